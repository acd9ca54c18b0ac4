package dashboard

import (
	"context"
	"time"

	"github.com/STTM-NSU/portfolio-dashboard/internal/invest/kis"
	"github.com/STTM-NSU/portfolio-dashboard/internal/logger"
	"github.com/STTM-NSU/portfolio-dashboard/internal/model"
)

// RealtimeSource returns regular-session prices, e.g. the KIS OpenAPI.
type RealtimeSource interface {
	Enabled() bool
	StockPrice(ctx context.Context, code string) (float64, error)
	IndexPrice(ctx context.Context, index kis.Index) (float64, error)
}

// ExtendedSource returns after-hours prices, e.g. Naver NXT polling.
type ExtendedSource interface {
	ExtendedQuote(ctx context.Context, code string) (model.ExtendedQuote, error)
}

// LastPriceSource prices instruments outside KRX, e.g. T-Invest.
type LastPriceSource interface {
	LastPrice(ctx context.Context, symbol string) (float64, error)
}

// PreviousClose picks the close before today's session. When the last daily bar is
// already dated today in loc it is the running session, so the bar before it is used.
func PreviousClose(candles []model.Candle, now time.Time, loc *time.Location) float64 {
	n := len(candles)
	if n == 0 {
		return 0
	}
	if n >= 2 && sameDay(candles[n-1].Ts, now, loc) {
		return candles[n-2].Close
	}
	return candles[n-1].Close
}

func sameDay(a, b time.Time, loc *time.Location) bool {
	ay, am, ad := a.In(loc).Date()
	by, bm, bd := b.In(loc).Date()
	return ay == by && am == bm && ad == bd
}

type Quoter struct {
	realtime RealtimeSource
	extended ExtendedSource
	tinvest  LastPriceSource
	loc      *time.Location
	logger   logger.Logger
}

// NewQuoter accepts nil for any source that is not configured.
func NewQuoter(realtime RealtimeSource, extended ExtendedSource, tinvest LastPriceSource, loc *time.Location, logger logger.Logger) *Quoter {
	if loc == nil {
		loc = time.UTC
	}
	return &Quoter{
		realtime: realtime,
		extended: extended,
		tinvest:  tinvest,
		loc:      loc,
		logger:   logger,
	}
}

// Quote assembles the price inputs of one position. The close falls back to the last
// daily bar when no real-time price is available, and the extended price is left
// unset when there is no after-hours trading.
func (q *Quoter) Quote(ctx context.Context, p model.Position, h model.History, now time.Time) model.PriceQuote {
	last := h.Last().Close
	quote := model.PriceQuote{
		Close:         last,
		PreviousClose: PreviousClose(h.Candles, now, q.loc),
	}

	if p.IsTInvest() {
		if q.tinvest != nil {
			if price, err := q.tinvest.LastPrice(ctx, p.Symbol()); err != nil {
				q.logger.Warnf("%s: can't get t-invest price for %s", err, p.Code)
			} else if price > 0 {
				quote.Close = price
			}
		}
		return quote
	}

	if q.realtime != nil && q.realtime.Enabled() {
		if price, err := q.realtime.StockPrice(ctx, p.Symbol()); err != nil {
			q.logger.Warnf("%s: can't get real-time price for %s, using last close", err, p.Code)
		} else if price > 0 {
			quote.Close = price
		}
	}

	if q.extended != nil {
		ext, err := q.extended.ExtendedQuote(ctx, p.Symbol())
		if err != nil {
			q.logger.Debugf("%s: no extended quote for %s", err, p.Code)
		} else if ext.Price > 0 {
			price, ratio := ext.Price, ext.Ratio
			quote.ExtendedPrice = &price
			quote.ExtendedChangePct = &ratio
		}
	}

	return quote
}

// Index summarizes a market index from its daily history and, when available, the
// real-time index value.
func (q *Quoter) Index(ctx context.Context, name string, index kis.Index, h model.History, now time.Time) model.MarketIndex {
	m := model.MarketIndex{
		Name:          name,
		Current:       h.Last().Close,
		PreviousClose: PreviousClose(h.Candles, now, q.loc),
	}

	if q.realtime != nil && q.realtime.Enabled() {
		if v, err := q.realtime.IndexPrice(ctx, index); err != nil {
			q.logger.Warnf("%s: can't get real-time %s", err, name)
		} else if v > 0 {
			m.Current = v
		}
	}

	if m.PreviousClose > 0 {
		m.ChangePct = (m.Current - m.PreviousClose) / m.PreviousClose * 100
	}
	return m
}
