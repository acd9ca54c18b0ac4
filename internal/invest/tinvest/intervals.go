package tinvest

import "time"

type Interval struct {
	Start time.Time
	End   time.Time
}

// SplitIntervals cuts [from, to] into consecutive windows no longer than step.
// Windows don't overlap: each one ends a nanosecond before the next starts.
func SplitIntervals(from, to time.Time, step time.Duration) []Interval {
	var intervals []Interval
	if step <= 0 || !from.Before(to) {
		return intervals
	}

	current := from
	for {
		next := current.Add(step)
		if !next.Before(to) {
			intervals = append(intervals, Interval{Start: current, End: to})
			break
		}

		intervals = append(intervals, Interval{
			Start: current,
			End:   next.Add(-time.Nanosecond),
		})
		current = next
	}

	return intervals
}
