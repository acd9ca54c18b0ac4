package tools

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// ParseNumber parses quote strings such as "55,000" or "-1,234.5".
func ParseNumber(s string) (float64, error) {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	if s == "" {
		return 0, fmt.Errorf("empty number")
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("%w: can't parse number %q", err, s)
	}
	f, _ := d.Float64()
	return f, nil
}

// FormatAmount rounds to the given number of places and groups thousands: 1234567.8 -> "1,234,568".
func FormatAmount(v float64, places int32) string {
	d := decimal.NewFromFloat(v).Round(places)
	sign := ""
	if d.IsNegative() {
		sign = "-"
		d = d.Neg()
	}

	s := d.StringFixed(places)
	intPart, frac := s, ""
	if i := strings.IndexByte(s, '.'); i >= 0 {
		intPart, frac = s[:i], s[i:]
	}

	var b strings.Builder
	b.WriteString(sign)
	for i, r := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	b.WriteString(frac)
	return b.String()
}

// FormatSigned is FormatAmount with an explicit "+" for positive values.
func FormatSigned(v float64, places int32) string {
	s := FormatAmount(v, places)
	if decimal.NewFromFloat(v).Round(places).IsPositive() {
		return "+" + s
	}
	return s
}

func FormatPct(v float64) string {
	return FormatSigned(v, 2) + "%"
}
