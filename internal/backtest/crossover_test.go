package backtest

import (
	"fmt"
	"math"
	"testing"
	"time"

	"github.com/STTM-NSU/portfolio-dashboard/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var day0 = time.Date(2024, time.January, 2, 0, 0, 0, 0, time.UTC)

func seriesOf(closes ...float64) model.PriceSeries {
	s := make(model.PriceSeries, len(closes))
	for i, c := range closes {
		s[i] = model.PricePoint{Date: day0.AddDate(0, 0, i), Close: c}
	}
	return s
}

func rising(n int, start, step float64) model.PriceSeries {
	closes := make([]float64, n)
	closes[0] = start
	for i := 1; i < n; i++ {
		closes[i] = closes[i-1] * (1 + step)
	}
	return seriesOf(closes...)
}

var defaultWindows = Config{ShortWindow: 20, LongWindow: 60}

func TestRunCrossoverRisingSeries(t *testing.T) {
	series := rising(65, 10000, 0.01)

	res, err := RunCrossover(series, defaultWindows)
	require.NoError(t, err)

	assert.InDelta(t, (math.Pow(1.01, 64)-1)*100, res.BuyHoldReturnPct, 1e-6)
	// signal switches on at index 59 and earns returns of days 60..64
	assert.InDelta(t, (math.Pow(1.01, 5)-1)*100, res.StrategyReturnPct, 1e-6)
	assert.Equal(t, 0, res.TradeCount)
	assert.Empty(t, res.Trades)
	assert.Equal(t, 0.0, res.WinRatePct)

	require.NotNil(t, res.OpenTrade)
	assert.Equal(t, series[59].Date, res.OpenTrade.EntryDate)
	assert.Equal(t, series[59].Close, res.OpenTrade.EntryPrice)
	assert.InDelta(t, (series[64].Close/series[59].Close-1)*100, res.OpenTrade.ReturnPct, 1e-9)
	assert.True(t, res.OpenTrade.ExitDate.IsZero())

	assert.Equal(t, series[0].Date, res.From)
	assert.Equal(t, series[64].Date, res.To)
}

func TestRunCrossoverBuyHoldMatchesEndpoints(t *testing.T) {
	series := rising(65, 10000, 0.01)

	res, err := RunCrossover(series, defaultWindows)
	require.NoError(t, err)

	ratio := (1 + res.BuyHoldReturnPct/100) / (1 + res.StrategyReturnPct/100)
	assert.InDelta(t, math.Pow(1.01, 59), ratio, 1e-9)
	assert.InDelta(t, (series[64].Close/series[0].Close-1)*100, res.BuyHoldReturnPct, 1e-9)
}

func TestRunCrossoverFlatSeries(t *testing.T) {
	closes := make([]float64, 100)
	for i := range closes {
		closes[i] = 5000
	}

	res, err := RunCrossover(seriesOf(closes...), defaultWindows)
	require.NoError(t, err)

	assert.Equal(t, 0, res.TradeCount)
	assert.Nil(t, res.OpenTrade)
	assert.InDelta(t, 0, res.BuyHoldReturnPct, 1e-12)
	assert.InDelta(t, 0, res.StrategyReturnPct, 1e-12)
	assert.Equal(t, 0.0, res.WinRatePct)
}

func TestRunCrossoverFlatSeriesInexactPrices(t *testing.T) {
	for _, price := range []float64{0.1, 71.7, 1234.567, 98765.4321} {
		t.Run(fmt.Sprint(price), func(t *testing.T) {
			closes := make([]float64, 1250)
			for i := range closes {
				closes[i] = price
			}

			res, err := RunCrossover(seriesOf(closes...), defaultWindows)
			require.NoError(t, err)

			assert.Equal(t, 0, res.TradeCount)
			assert.Nil(t, res.OpenTrade, "equal averages must not open a position")
			assert.InDelta(t, 0, res.StrategyReturnPct, 1e-12)
		})
	}
}

func TestRunCrossoverTrades(t *testing.T) {
	// signal: 0 0 0 1 1 1 0 0 0 1 1 0 0
	series := seriesOf(10, 10, 10, 12, 14, 12, 13, 8, 10, 13, 15, 11, 8)

	res, err := RunCrossover(series, Config{ShortWindow: 2, LongWindow: 3})
	require.NoError(t, err)

	require.Len(t, res.Trades, 2)
	assert.Equal(t, 2, res.TradeCount)
	assert.Nil(t, res.OpenTrade)

	first := res.Trades[0]
	assert.Equal(t, series[3].Date, first.EntryDate)
	assert.Equal(t, 12.0, first.EntryPrice)
	assert.Equal(t, series[6].Date, first.ExitDate)
	assert.Equal(t, 13.0, first.ExitPrice)
	assert.InDelta(t, 100.0/12, first.ReturnPct, 1e-9)

	second := res.Trades[1]
	assert.Equal(t, 13.0, second.EntryPrice)
	assert.Equal(t, 11.0, second.ExitPrice)
	assert.Less(t, second.ReturnPct, 0.0)

	assert.Equal(t, 50.0, res.WinRatePct)
	assert.InDelta(t, (11.0/12-1)*100, res.StrategyReturnPct, 1e-9)
	assert.InDelta(t, -20, res.BuyHoldReturnPct, 1e-9)
}

func TestRunCrossoverIdempotent(t *testing.T) {
	series := seriesOf(10, 10, 10, 12, 14, 12, 13, 8, 10, 13, 15, 11, 8)
	cfg := Config{ShortWindow: 2, LongWindow: 3}

	first, err := RunCrossover(series, cfg)
	require.NoError(t, err)
	second, err := RunCrossover(series, cfg)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestRunCrossoverErrors(t *testing.T) {
	tests := []struct {
		name   string
		series model.PriceSeries
		cfg    Config
		err    error
	}{
		{name: "empty", series: nil, cfg: defaultWindows, err: ErrInsufficientData},
		{name: "shorter than long window", series: rising(59, 100, 0.01), cfg: defaultWindows, err: ErrInsufficientData},
		{name: "zero close", series: seriesOf(1, 2, 0, 4), cfg: Config{ShortWindow: 2, LongWindow: 3}, err: ErrInvalidInput},
		{name: "negative close", series: seriesOf(1, -2, 3, 4), cfg: Config{ShortWindow: 2, LongWindow: 3}, err: ErrInvalidInput},
		{name: "inverted windows", series: rising(70, 100, 0.01), cfg: Config{ShortWindow: 60, LongWindow: 20}, err: ErrInvalidInput},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := RunCrossover(tt.series, tt.cfg)
			assert.ErrorIs(t, err, tt.err)
		})
	}
}

func TestRunCrossoverExactlyLongWindow(t *testing.T) {
	res, err := RunCrossover(rising(60, 100, 0.01), defaultWindows)
	require.NoError(t, err)
	// signal can only switch on at the final bar, so nothing is earned
	assert.InDelta(t, 0, res.StrategyReturnPct, 1e-12)
	require.NotNil(t, res.OpenTrade)
}
