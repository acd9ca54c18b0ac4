package dashboard

import (
	"context"
	"fmt"

	"github.com/STTM-NSU/portfolio-dashboard/internal/backtest"
	"github.com/STTM-NSU/portfolio-dashboard/internal/model"
	"github.com/google/uuid"
)

// Backtest runs the moving-average crossover over the configured lookback of
// daily closes for code, which does not have to be held.
func (b *Builder) Backtest(ctx context.Context, code string) (model.BacktestResult, error) {
	h, err := b.history.PositionHistory(ctx, model.Position{Code: code}, b.cfg.Backtest.Period)
	if err != nil {
		return model.BacktestResult{}, fmt.Errorf("%w: can't load history for %s", err, code)
	}

	res, err := backtest.RunCrossover(model.SeriesFromCandles(h.Candles), backtest.Config{
		ShortWindow: b.cfg.Backtest.ShortWindow,
		LongWindow:  b.cfg.Backtest.LongWindow,
	})
	if err != nil {
		return model.BacktestResult{}, fmt.Errorf("%w: can't run backtest for %s", err, code)
	}

	res.RunID = uuid.NewString()
	res.Ticker = h.Ticker
	b.logger.Infof("backtest %s %s: buy&hold %.2f%%, strategy %.2f%%, %d trades",
		res.RunID, res.Ticker, res.BuyHoldReturnPct, res.StrategyReturnPct, res.TradeCount)

	return res, nil
}
