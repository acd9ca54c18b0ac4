package techan

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSMA(t *testing.T) {
	values := []float64{102, 105, 106, 108, 110, 111, 113, 114, 116, 118}
	sma := SMA(values, 5)

	assert.Len(t, sma, len(values))
	for i := 0; i < 4; i++ {
		assert.True(t, math.IsNaN(sma[i]), "index %d", i)
	}
	assert.InDelta(t, 106.2, sma[4], 1e-9)
	// last 5 closes: 111,113,114,116,118
	assert.InDelta(t, 114.4, sma[9], 1e-9)
}

func TestSMAShortInput(t *testing.T) {
	sma := SMA([]float64{1, 2, 3}, 5)
	assert.Len(t, sma, 3)
	for _, v := range sma {
		assert.True(t, math.IsNaN(v))
	}
	assert.Empty(t, SMA(nil, 3))
}

func TestCrossSignal(t *testing.T) {
	nan := math.NaN()
	short := []float64{nan, nan, 10, 12, 9, 11}
	long := []float64{nan, nan, nan, 11, 10, 11}
	assert.Equal(t, []int{0, 0, 0, 1, 0, 0}, CrossSignal(short, long))
}

func TestCrossSignalFlatInexact(t *testing.T) {
	closes := make([]float64, 300)
	for i := range closes {
		closes[i] = 0.1
	}
	for i, s := range CrossSignal(SMA(closes, 20), SMA(closes, 60)) {
		assert.Equal(t, 0, s, "index %d", i)
	}

	trend, _ := TrendAgainst(closes, 0.1, 20)
	assert.Equal(t, TrendAbove, trend)
}

func TestLast(t *testing.T) {
	v, ok := Last([]float64{1, 2, math.NaN()})
	assert.True(t, ok)
	assert.Equal(t, 2.0, v)

	_, ok = Last([]float64{math.NaN()})
	assert.False(t, ok)
}

func TestTrendAgainst(t *testing.T) {
	closes := []float64{10, 10, 10, 10}
	trend, ma := TrendAgainst(closes, 10, 4)
	assert.Equal(t, TrendAbove, trend)
	assert.Equal(t, 10.0, ma)

	trend, _ = TrendAgainst(closes, 9.99, 4)
	assert.Equal(t, TrendBelow, trend)

	trend, _ = TrendAgainst(closes, 10, 5)
	assert.Equal(t, TrendUnknown, trend)
}
