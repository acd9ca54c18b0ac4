// Package yahoo loads daily OHLCV history from Yahoo Finance.
package yahoo

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/STTM-NSU/portfolio-dashboard/internal/logger"
	"github.com/STTM-NSU/portfolio-dashboard/internal/model"
	"github.com/wnjoon/go-yfinance/pkg/models"
	"github.com/wnjoon/go-yfinance/pkg/ticker"
	"go.uber.org/ratelimit"
)

const _dailyInterval = "1d"

type Client struct {
	rateLimiter ratelimit.Limiter
	logger      logger.Logger
}

func NewClient(logger logger.Logger) *Client {
	return &Client{
		rateLimiter: ratelimit.New(60, ratelimit.Per(time.Minute)),
		logger:      logger,
	}
}

// History returns adjusted daily candles for period ("1mo", "6mo", "5y", ...) in
// chronological order. An unknown symbol yields an empty slice, not an error.
func (c *Client) History(ctx context.Context, symbol, period string) ([]model.Candle, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	c.rateLimiter.Take()
	t, err := ticker.New(symbol)
	if err != nil {
		return nil, fmt.Errorf("%w: can't create ticker %s", err, symbol)
	}
	defer t.Close()

	bars, err := t.History(models.HistoryParams{
		Period:     period,
		Interval:   _dailyInterval,
		AutoAdjust: true,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: can't get history for %s", err, symbol)
	}

	candles := barsToCandles(symbol, bars)
	c.logger.Debugf("loaded %d daily candles for %s over %s", len(candles), symbol, period)

	return candles, nil
}

func barsToCandles(symbol string, bars []models.Bar) []model.Candle {
	candles := make([]model.Candle, 0, len(bars))
	for _, bar := range bars {
		// halted days come back as empty rows
		if bar.Close <= 0 {
			continue
		}
		candles = append(candles, model.Candle{
			Ticker: symbol,
			Ts:     bar.Date,
			Open:   bar.Open,
			High:   bar.High,
			Low:    bar.Low,
			Close:  bar.Close,
			Volume: int64(bar.Volume),
		})
	}
	sort.Slice(candles, func(i, j int) bool {
		return candles[i].Ts.Before(candles[j].Ts)
	})
	return candles
}
