// Package dashboard assembles portfolio snapshots: quotes, valuations, trend, charts
// and news per held position plus the market summary.
package dashboard

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/STTM-NSU/portfolio-dashboard/internal/config"
	"github.com/STTM-NSU/portfolio-dashboard/internal/invest/kis"
	"github.com/STTM-NSU/portfolio-dashboard/internal/invest/techan"
	"github.com/STTM-NSU/portfolio-dashboard/internal/logger"
	"github.com/STTM-NSU/portfolio-dashboard/internal/model"
	"github.com/STTM-NSU/portfolio-dashboard/internal/valuation"
	"github.com/benbjohnson/clock"
	"github.com/google/uuid"
)

const (
	_workers     = 4
	_indexPeriod = "1mo"

	DataNotFound = "data not found"
)

var ErrEmptyPortfolio = errors.New("portfolio has no positions")

type marketIndex struct {
	name   string
	ticker string
	kis    kis.Index
}

var _indices = []marketIndex{
	{name: "KOSPI", ticker: "^KS11", kis: kis.Kospi},
	{name: "KOSDAQ", ticker: "^KQ11", kis: kis.Kosdaq},
}

type PortfolioSource interface {
	Reload() (model.Portfolio, error)
}

type HistorySource interface {
	PositionHistory(ctx context.Context, p model.Position, period string) (model.History, error)
	TickerHistory(ctx context.Context, ticker, period string) (model.History, error)
}

type NewsSource interface {
	Headlines(ctx context.Context, name string) ([]model.NewsItem, error)
}

type StockCard struct {
	Position  model.Position        `json:"position"`
	Ticker    string                `json:"ticker"`
	Quote     model.PriceQuote      `json:"quote"`
	Valuation model.ValuationResult `json:"valuation"`
	Trend     techan.Trend          `json:"trend"`
	TrendMA   float64               `json:"trend_ma"`
	TrendDays int                   `json:"trend_days"`
	News      []model.NewsItem      `json:"news"`
	Chart     []byte                `json:"-"`
	Error     string                `json:"error,omitempty"`

	// Watched cards are not held and carry no valuation.
	Watched bool `json:"watched,omitempty"`
}

func (c StockCard) OK() bool {
	return c.Error == ""
}

type Snapshot struct {
	ID           string                `json:"id"`
	GeneratedAt  time.Time             `json:"generated_at"`
	ExitCostRate float64               `json:"exit_cost_rate"`
	Indices      []model.MarketIndex   `json:"indices"`
	Cards        []StockCard           `json:"cards"`
	Watchlist    []StockCard           `json:"watchlist"`
	Totals       model.PortfolioTotals `json:"totals"`
}

// Card finds a card by portfolio code or bare symbol, held positions first.
func (s *Snapshot) Card(code string) (StockCard, bool) {
	for _, cards := range [][]StockCard{s.Cards, s.Watchlist} {
		for _, c := range cards {
			if c.Position.Code == code || c.Position.Symbol() == code {
				return c, true
			}
		}
	}
	return StockCard{}, false
}

type Builder struct {
	portfolio PortfolioSource
	history   HistorySource
	quoter    *Quoter
	news      NewsSource
	cfg       config.DashboardConfig
	clock     clock.Clock
	logger    logger.Logger
}

// NewBuilder accepts a nil news source when headlines are disabled.
func NewBuilder(
	portfolio PortfolioSource,
	history HistorySource,
	quoter *Quoter,
	news NewsSource,
	cfg config.DashboardConfig,
	clk clock.Clock,
	logger logger.Logger) *Builder {
	if clk == nil {
		clk = clock.New()
	}
	return &Builder{
		portfolio: portfolio,
		history:   history,
		quoter:    quoter,
		news:      news,
		cfg:       cfg,
		clock:     clk,
		logger:    logger,
	}
}

// Build re-reads the portfolio and values every position. Positions without data
// are kept as cards with an error and left out of the totals. Watchlist codes get
// cards without valuation.
func (b *Builder) Build(ctx context.Context) (*Snapshot, error) {
	p, err := b.portfolio.Reload()
	if err != nil {
		b.logger.Errorf("%s: can't reload portfolio, using last loaded", err)
	}
	watched := b.cfg.WatchPositions()
	if len(p.Positions) == 0 && len(watched) == 0 {
		if err != nil {
			return nil, fmt.Errorf("%w: %s", ErrEmptyPortfolio, err)
		}
		return nil, ErrEmptyPortfolio
	}

	now := b.clock.Now()
	snap := &Snapshot{
		ID:           uuid.NewString(),
		GeneratedAt:  now,
		ExitCostRate: b.cfg.Fees.ExitCostRate,
		Cards:        make([]StockCard, len(p.Positions)),
		Watchlist:    make([]StockCard, len(watched)),
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		snap.Indices = b.marketSummary(ctx, now)
	}()

	sem := make(chan struct{}, _workers)
	fill := func(cards []StockCard, positions []model.Position, watch bool) {
		for i, pos := range positions {
			wg.Add(1)
			go func() {
				defer wg.Done()
				select {
				case sem <- struct{}{}:
					defer func() { <-sem }()
				case <-ctx.Done():
					cards[i] = StockCard{Position: pos, Watched: watch, Error: ctx.Err().Error()}
					return
				}
				cards[i] = b.card(ctx, pos, now, watch)
			}()
		}
	}
	fill(snap.Cards, p.Positions, false)
	fill(snap.Watchlist, watched, true)
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	results := make([]model.ValuationResult, 0, len(snap.Cards))
	for _, c := range snap.Cards {
		if c.OK() {
			results = append(results, c.Valuation)
		}
	}
	snap.Totals = valuation.Aggregate(results, p.RealizedProfit)

	b.logger.Infof("built snapshot %s: %d positions, %d valued, %d watched",
		snap.ID, len(snap.Cards), len(results), len(snap.Watchlist))
	return snap, nil
}

func (b *Builder) card(ctx context.Context, p model.Position, now time.Time, watch bool) StockCard {
	card := StockCard{Position: p, Watched: watch}
	log := b.logger.With("code", p.Code)

	h, err := b.history.PositionHistory(ctx, p, b.cfg.HistoryPeriod)
	if err != nil || h.Empty() {
		if err != nil {
			log.Warnf("%s: can't load history", err)
		}
		card.Error = DataNotFound
		return card
	}
	card.Ticker = h.Ticker

	card.Quote = b.quoter.Quote(ctx, p, h, now)
	if !watch {
		v, err := valuation.Evaluate(p, &card.Quote, b.cfg.Fees.ExitCostRate)
		if err != nil {
			log.Errorf("%s: can't evaluate position", err)
			card.Error = err.Error()
			return card
		}
		card.Valuation = v
	}

	closes := model.SeriesFromCandles(h.Candles).Closes()
	card.TrendDays = b.cfg.Chart.TrendWindow
	card.Trend, card.TrendMA = techan.TrendAgainst(closes, card.Quote.Close, card.TrendDays)

	if svg, err := RenderCandles(h.Candles, b.cfg.Chart); err != nil {
		log.Warnf("%s: can't render chart", err)
	} else {
		card.Chart = svg
	}

	if b.news != nil {
		items, err := b.news.Headlines(ctx, p.Name)
		if err != nil {
			log.Warnf("%s: can't load news", err)
		}
		card.News = items
	}

	return card
}

func (b *Builder) marketSummary(ctx context.Context, now time.Time) []model.MarketIndex {
	indices := make([]model.MarketIndex, 0, len(_indices))
	for _, idx := range _indices {
		h, err := b.history.TickerHistory(ctx, idx.ticker, _indexPeriod)
		if err != nil {
			b.logger.Warnf("%s: can't load %s history", err, idx.name)
		}
		m := b.quoter.Index(ctx, idx.name, idx.kis, h, now)
		if m.Current == 0 {
			continue
		}
		indices = append(indices, m)
	}
	return indices
}
