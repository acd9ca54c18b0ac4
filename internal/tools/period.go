package tools

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// PeriodStart converts a Yahoo-style lookback period ("10d", "1mo", "6mo", "1y", "5y", "ytd")
// into the start of the window ending at now.
func PeriodStart(now time.Time, period string) (time.Time, error) {
	period = strings.ToLower(strings.TrimSpace(period))
	if period == "ytd" {
		return time.Date(now.Year(), time.January, 1, 0, 0, 0, 0, now.Location()), nil
	}

	var unit string
	for _, u := range []string{"mo", "wk", "d", "y"} {
		if strings.HasSuffix(period, u) {
			unit = u
			break
		}
	}
	if unit == "" {
		return time.Time{}, fmt.Errorf("unknown period %q", period)
	}

	n, err := strconv.Atoi(strings.TrimSuffix(period, unit))
	if err != nil || n <= 0 {
		return time.Time{}, fmt.Errorf("unknown period %q", period)
	}

	switch unit {
	case "d":
		return now.AddDate(0, 0, -n), nil
	case "wk":
		return now.AddDate(0, 0, -7*n), nil
	case "mo":
		return now.AddDate(0, -n, 0), nil
	default:
		return now.AddDate(-n, 0, 0), nil
	}
}
