package techan

import (
	"math"

	"github.com/markcheno/go-talib"
)

// SMA returns trailing simple moving averages aligned with values. Positions with
// fewer than window samples (including the current one) are NaN.
func SMA(values []float64, window int) []float64 {
	out := make([]float64, len(values))
	if window <= 0 || len(values) < window {
		for i := range out {
			out[i] = math.NaN()
		}
		return out
	}

	sma := talib.Sma(values, window)
	for i := range out {
		if i < window-1 {
			out[i] = math.NaN()
			continue
		}
		out[i] = sma[i]
	}
	return out
}

// averages that differ by less than this relative amount are treated as equal
const _relTolerance = 1e-9

// greater reports a > b beyond floating-point noise of the running-sum averages.
func greater(a, b float64) bool {
	return a-b > _relTolerance*max(math.Abs(a), math.Abs(b))
}

// CrossSignal is 1 where short > long and 0 otherwise, undefined averages count as 0.
// Averages equal up to rounding give 0.
func CrossSignal(short, long []float64) []int {
	n := min(len(short), len(long))
	signal := make([]int, n)
	for i := 0; i < n; i++ {
		if math.IsNaN(short[i]) || math.IsNaN(long[i]) {
			continue
		}
		if greater(short[i], long[i]) {
			signal[i] = 1
		}
	}
	return signal
}

// Last returns the last defined value.
func Last(values []float64) (float64, bool) {
	for i := len(values) - 1; i >= 0; i-- {
		if !math.IsNaN(values[i]) {
			return values[i], true
		}
	}
	return 0, false
}

type Trend string

const (
	TrendAbove   Trend = "above"
	TrendBelow   Trend = "below"
	TrendUnknown Trend = "unknown"
)

// TrendAgainst compares the latest price to the moving average of closes over window.
func TrendAgainst(closes []float64, price float64, window int) (Trend, float64) {
	sma := SMA(closes, window)
	if len(sma) == 0 || math.IsNaN(sma[len(sma)-1]) {
		return TrendUnknown, 0
	}
	ma := sma[len(sma)-1]
	if !greater(ma, price) {
		return TrendAbove, ma
	}
	return TrendBelow, ma
}
