package backtest

import (
	"errors"
	"fmt"

	"github.com/STTM-NSU/portfolio-dashboard/internal/invest/techan"
	"github.com/STTM-NSU/portfolio-dashboard/internal/model"
	"gonum.org/v1/gonum/floats"
)

var (
	ErrInsufficientData = errors.New("insufficient data for moving averages")
	ErrInvalidInput     = errors.New("invalid backtest input")
)

type Config struct {
	ShortWindow int
	LongWindow  int
}

func (c Config) validate() error {
	if c.ShortWindow <= 0 || c.LongWindow <= 0 {
		return fmt.Errorf("%w: windows must be positive, got %d/%d", ErrInvalidInput, c.ShortWindow, c.LongWindow)
	}
	if c.ShortWindow >= c.LongWindow {
		return fmt.Errorf("%w: short window %d must be less than long window %d", ErrInvalidInput, c.ShortWindow, c.LongWindow)
	}
	return nil
}

// RunCrossover simulates a long-only moving-average crossover on daily closes.
//
// The signal observed on day i-1 is applied to the return of day i, trades open on
// 0->1 and close on 1->0 signal transitions at that day's close, and a trade still
// open on the last day is reported separately, marked to the last close, and not counted.
func RunCrossover(series model.PriceSeries, cfg Config) (model.BacktestResult, error) {
	if err := cfg.validate(); err != nil {
		return model.BacktestResult{}, err
	}
	n := len(series)
	if n == 0 || n < cfg.LongWindow {
		return model.BacktestResult{}, fmt.Errorf("%w: %d closes, need %d", ErrInsufficientData, n, cfg.LongWindow)
	}

	closes := series.Closes()
	for i, c := range closes {
		if c <= 0 {
			return model.BacktestResult{}, fmt.Errorf("%w: close %f on %s", ErrInvalidInput, c, series[i].Date.Format("2006-01-02"))
		}
	}

	signal := techan.CrossSignal(
		techan.SMA(closes, cfg.ShortWindow),
		techan.SMA(closes, cfg.LongWindow),
	)

	holdGrowth := make([]float64, n-1)
	strategyGrowth := make([]float64, n-1)
	for i := 1; i < n; i++ {
		r := closes[i]/closes[i-1] - 1
		holdGrowth[i-1] = 1 + r
		strategyGrowth[i-1] = 1 + float64(signal[i-1])*r
	}
	holdCum := floats.CumProd(make([]float64, n-1), holdGrowth)
	strategyCum := floats.CumProd(make([]float64, n-1), strategyGrowth)

	trades, open := extractTrades(series, signal)

	result := model.BacktestResult{
		From:              series[0].Date,
		To:                series[n-1].Date,
		ShortWindow:       cfg.ShortWindow,
		LongWindow:        cfg.LongWindow,
		BuyHoldReturnPct:  lastReturnPct(holdCum),
		StrategyReturnPct: lastReturnPct(strategyCum),
		TradeCount:        len(trades),
		WinRatePct:        winRate(trades),
		Trades:            trades,
		OpenTrade:         open,
	}

	return result, nil
}

func extractTrades(series model.PriceSeries, signal []int) ([]model.Trade, *model.Trade) {
	trades := make([]model.Trade, 0)
	var open *model.Trade

	for i := 1; i < len(signal); i++ {
		switch signal[i] - signal[i-1] {
		case 1:
			open = &model.Trade{EntryDate: series[i].Date, EntryPrice: series[i].Close}
		case -1:
			if open == nil {
				continue
			}
			open.ExitDate = series[i].Date
			open.ExitPrice = series[i].Close
			open.ReturnPct = tradeReturn(open.EntryPrice, open.ExitPrice) * 100
			trades = append(trades, *open)
			open = nil
		}
	}

	if open != nil {
		open.ReturnPct = tradeReturn(open.EntryPrice, series[len(series)-1].Close) * 100
	}

	return trades, open
}

func tradeReturn(entry, exit float64) float64 {
	if entry == 0 {
		return 0
	}
	return (exit - entry) / entry
}

func winRate(trades []model.Trade) float64 {
	if len(trades) == 0 {
		return 0
	}
	wins := 0
	for _, t := range trades {
		if t.ExitPrice > t.EntryPrice {
			wins++
		}
	}
	return float64(wins) / float64(len(trades)) * 100
}

func lastReturnPct(cum []float64) float64 {
	if len(cum) == 0 {
		return 0
	}
	return (cum[len(cum)-1] - 1) * 100
}
