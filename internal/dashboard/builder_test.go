package dashboard

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/STTM-NSU/portfolio-dashboard/internal/backtest"
	"github.com/STTM-NSU/portfolio-dashboard/internal/config"
	"github.com/STTM-NSU/portfolio-dashboard/internal/invest/kis"
	"github.com/STTM-NSU/portfolio-dashboard/internal/invest/techan"
	"github.com/STTM-NSU/portfolio-dashboard/internal/logger"
	"github.com/STTM-NSU/portfolio-dashboard/internal/model"
	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePortfolio struct {
	p   model.Portfolio
	err error
}

func (f *fakePortfolio) Reload() (model.Portfolio, error) {
	return f.p, f.err
}

type fakeHistory struct {
	byCode map[string]model.History
}

func (f *fakeHistory) PositionHistory(_ context.Context, p model.Position, _ string) (model.History, error) {
	h, ok := f.byCode[p.Code]
	if !ok {
		return model.History{}, errors.New("no data")
	}
	return h, nil
}

func (f *fakeHistory) TickerHistory(_ context.Context, ticker, _ string) (model.History, error) {
	h, ok := f.byCode[ticker]
	if !ok {
		return model.History{}, errors.New("no data")
	}
	return h, nil
}

type fakeNews map[string][]model.NewsItem

func (f fakeNews) Headlines(_ context.Context, name string) ([]model.NewsItem, error) {
	return f[name], nil
}

// rising candles with alternating up and down bodies so the chart has both colours
func risingHistory(ticker string, last time.Time, n int, start float64) model.History {
	h := model.History{Ticker: ticker}
	first := last.AddDate(0, 0, -(n - 1))
	price := start
	for i := 0; i < n; i++ {
		open, closePrice := price, price*1.01
		if i%3 == 0 {
			open, closePrice = closePrice, price
		}
		h.Candles = append(h.Candles, model.Candle{
			Ts:    first.AddDate(0, 0, i),
			Open:  open,
			High:  max(open, closePrice) * 1.005,
			Low:   min(open, closePrice) * 0.995,
			Close: closePrice,
		})
		price *= 1.01
	}
	return h
}

func testConfig(t *testing.T) config.DashboardConfig {
	t.Helper()
	cfg, err := config.Default()
	require.NoError(t, err)
	return cfg
}

func TestBuild(t *testing.T) {
	mock := clock.NewMock()
	now := time.Date(2025, 10, 16, 10, 0, 0, 0, kst)
	mock.Set(now)
	lastBar := time.Date(2025, 10, 15, 0, 0, 0, 0, kst)

	portfolio := &fakePortfolio{p: model.Portfolio{
		Positions: []model.Position{
			{Name: "삼성전자", Code: "005930", BuyPrice: 50000, Qty: 10},
			{Name: "없는종목", Code: "999999", BuyPrice: 1000, Qty: 1},
		},
		RealizedProfit: 150000,
	}}
	samsung := dailyHistory("005930.KS", lastBar, 53000, 54000, 55000)
	history := &fakeHistory{byCode: map[string]model.History{
		"005930": samsung,
		"^KS11":  dailyHistory("^KS11", lastBar, 2600, 2650),
		"^KQ11":  dailyHistory("^KQ11", lastBar, 800, 790),
	}}
	news := fakeNews{"삼성전자": {{Title: "실적 발표", Link: "https://example.com"}}}

	cfg := testConfig(t)
	quoter := NewQuoter(nil, nil, nil, kst, logger.NewNopLogger())
	b := NewBuilder(portfolio, history, quoter, news, cfg, mock, logger.NewNopLogger())

	snap, err := b.Build(context.Background())
	require.NoError(t, err)

	assert.NotEmpty(t, snap.ID)
	assert.Equal(t, now, snap.GeneratedAt)
	require.Len(t, snap.Indices, 2)
	assert.Equal(t, "KOSPI", snap.Indices[0].Name)
	assert.InDelta(t, 2650.0, snap.Indices[0].Current, 1e-9)

	require.Len(t, snap.Cards, 2)
	ok := snap.Cards[0]
	require.True(t, ok.OK())
	assert.Equal(t, "005930.KS", ok.Ticker)
	assert.InDelta(t, 549361.45, ok.Valuation.CurrentAmount, 1e-6)
	assert.Equal(t, techan.TrendUnknown, ok.Trend, "3 closes are not enough for MA20")
	assert.Len(t, ok.News, 1)
	assert.NotEmpty(t, ok.Chart)

	missing := snap.Cards[1]
	assert.False(t, missing.OK())
	assert.Equal(t, DataNotFound, missing.Error)

	assert.Equal(t, 500000.0, snap.Totals.Invested, "cards without data are excluded")
	assert.InDelta(t, 49361.45, snap.Totals.Unrealized, 1e-6)
	assert.InDelta(t, 49361.45+150000, snap.Totals.Cumulative, 1e-6)

	card, found := snap.Card("005930")
	assert.True(t, found)
	assert.Equal(t, "삼성전자", card.Position.Name)
}

func TestBuildEmptyPortfolio(t *testing.T) {
	b := NewBuilder(&fakePortfolio{err: errors.New("missing file")}, &fakeHistory{}, NewQuoter(nil, nil, nil, kst, logger.NewNopLogger()),
		nil, testConfig(t), clock.NewMock(), logger.NewNopLogger())

	_, err := b.Build(context.Background())
	assert.ErrorIs(t, err, ErrEmptyPortfolio)
}

func TestBuildWatchlist(t *testing.T) {
	mock := clock.NewMock()
	mock.Set(time.Date(2025, 10, 16, 10, 0, 0, 0, kst))
	lastBar := time.Date(2025, 10, 15, 0, 0, 0, 0, kst)

	history := &fakeHistory{byCode: map[string]model.History{
		"005930": dailyHistory("005930.KS", lastBar, 53000, 54000, 55000),
		"035720": risingHistory("035720.KQ", lastBar, 70, 40000),
	}}
	news := fakeNews{"카카오": {{Title: "카카오 실적", Link: "https://example.com/k"}}}

	cfg := testConfig(t)
	cfg.Watchlist = []string{"카카오:035720", "888888"}
	portfolio := &fakePortfolio{p: model.Portfolio{
		Positions: []model.Position{{Name: "삼성전자", Code: "005930", BuyPrice: 50000, Qty: 10}},
	}}
	b := NewBuilder(portfolio, history, NewQuoter(nil, nil, nil, kst, logger.NewNopLogger()),
		news, cfg, mock, logger.NewNopLogger())

	snap, err := b.Build(context.Background())
	require.NoError(t, err)

	require.Len(t, snap.Cards, 1)
	require.Len(t, snap.Watchlist, 2)

	kakao := snap.Watchlist[0]
	require.True(t, kakao.OK())
	assert.True(t, kakao.Watched)
	assert.Equal(t, "카카오", kakao.Position.Name)
	assert.Equal(t, "035720.KQ", kakao.Ticker)
	assert.Equal(t, history.byCode["035720"].Last().Close, kakao.Quote.Close)
	assert.Equal(t, model.ValuationResult{}, kakao.Valuation)
	assert.Equal(t, techan.TrendAbove, kakao.Trend)
	assert.Equal(t, 20, kakao.TrendDays)
	assert.NotEmpty(t, kakao.Chart)
	assert.Len(t, kakao.News, 1)

	missing := snap.Watchlist[1]
	assert.Equal(t, "888888", missing.Position.Name)
	assert.Equal(t, DataNotFound, missing.Error)

	assert.Equal(t, 500000.0, snap.Totals.Invested, "watched codes are not valued")
	assert.InDelta(t, 549361.45, snap.Totals.Current, 1e-6)

	card, found := snap.Card("035720")
	assert.True(t, found)
	assert.True(t, card.Watched)
}

func TestBuildOnlyWatchlist(t *testing.T) {
	lastBar := time.Date(2025, 10, 15, 0, 0, 0, 0, kst)
	cfg := testConfig(t)
	cfg.Watchlist = []string{"005930"}
	history := &fakeHistory{byCode: map[string]model.History{
		"005930": dailyHistory("005930.KS", lastBar, 54000, 55000),
	}}
	b := NewBuilder(&fakePortfolio{}, history, NewQuoter(nil, nil, nil, kst, logger.NewNopLogger()),
		nil, cfg, clock.NewMock(), logger.NewNopLogger())

	snap, err := b.Build(context.Background())
	require.NoError(t, err)
	assert.Empty(t, snap.Cards)
	require.Len(t, snap.Watchlist, 1)
	assert.True(t, snap.Watchlist[0].OK())
	assert.Equal(t, model.PortfolioTotals{}, snap.Totals)
}

func TestBuildManyPositions(t *testing.T) {
	lastBar := time.Date(2025, 10, 15, 0, 0, 0, 0, kst)
	history := &fakeHistory{byCode: map[string]model.History{}}
	var positions []model.Position
	for i := 0; i < 12; i++ {
		code := fmt.Sprintf("%06d", i+1)
		positions = append(positions, model.Position{Name: code, Code: code, BuyPrice: 100, Qty: 1})
		history.byCode[code] = risingHistory(code+".KS", lastBar, 70, 100)
	}

	cfg := testConfig(t)
	b := NewBuilder(&fakePortfolio{p: model.Portfolio{Positions: positions}}, history,
		NewQuoter(nil, nil, nil, kst, logger.NewNopLogger()), nil, cfg, clock.NewMock(), logger.NewNopLogger())

	snap, err := b.Build(context.Background())
	require.NoError(t, err)
	require.Len(t, snap.Cards, 12)
	for i, c := range snap.Cards {
		assert.Equal(t, positions[i].Code, c.Position.Code, "cards keep portfolio order")
		assert.True(t, c.OK())
		assert.Equal(t, techan.TrendAbove, c.Trend)
	}
	assert.Empty(t, snap.Indices)
}

func TestBuilderBacktest(t *testing.T) {
	lastBar := time.Date(2025, 10, 15, 0, 0, 0, 0, kst)
	history := &fakeHistory{byCode: map[string]model.History{
		"005930": risingHistory("005930.KS", lastBar, 65, 10000),
		"000660": risingHistory("000660.KS", lastBar, 30, 10000),
	}}
	b := NewBuilder(&fakePortfolio{}, history, NewQuoter(nil, nil, nil, kst, logger.NewNopLogger()),
		nil, testConfig(t), clock.NewMock(), logger.NewNopLogger())

	res, err := b.Backtest(context.Background(), "005930")
	require.NoError(t, err)
	assert.NotEmpty(t, res.RunID)
	assert.Equal(t, "005930.KS", res.Ticker)
	assert.Equal(t, 20, res.ShortWindow)
	assert.Equal(t, 60, res.LongWindow)
	assert.NotNil(t, res.OpenTrade)

	_, err = b.Backtest(context.Background(), "000660")
	assert.ErrorIs(t, err, backtest.ErrInsufficientData)

	_, err = b.Backtest(context.Background(), "123456")
	assert.Error(t, err)
}

func TestRenderDashboard(t *testing.T) {
	ext := 55300.0
	ratio := 0.55
	snap := &Snapshot{
		ID:          "snap-1",
		GeneratedAt: time.Date(2025, 10, 15, 17, 0, 0, 0, kst),
		Indices:     []model.MarketIndex{{Name: "KOSPI", Current: 2650.5, PreviousClose: 2600, ChangePct: 1.94}},
		Cards: []StockCard{
			{
				Position:  model.Position{Name: "삼성전자", Code: "005930", BuyPrice: 50000, Qty: 10},
				Quote:     model.PriceQuote{Close: 55000, PreviousClose: 54000, ExtendedPrice: &ext, ExtendedChangePct: &ratio},
				Valuation: model.ValuationResult{CurrentAmount: 549361.45, UnrealizedAmount: 49361.45, UnrealizedPct: 9.87, InvestedAmount: 500000},
				Trend:     techan.TrendAbove,
				TrendDays: 20,
				News:      []model.NewsItem{{Title: "<b>실적</b>", Link: "https://example.com/a"}},
				Chart:     []byte(`<svg id="chart"></svg>`),
			},
			{Position: model.Position{Name: "없는종목", Code: "999999"}, Error: DataNotFound},
		},
		Watchlist: []StockCard{
			{
				Position:  model.Position{Name: "카카오", Code: "035720.KQ"},
				Quote:     model.PriceQuote{Close: 41200, PreviousClose: 40000},
				Trend:     techan.TrendBelow,
				TrendDays: 10,
				Watched:   true,
			},
		},
		Totals: model.PortfolioTotals{Current: 549361.45, Invested: 500000, Unrealized: 49361.45, Realized: 150000, Cumulative: 199361.45},
	}

	var buf bytes.Buffer
	require.NoError(t, Render(&buf, snap))
	out := buf.String()

	assert.Contains(t, out, "KOSPI")
	assert.Contains(t, out, "2,650.50")
	assert.Contains(t, out, "549,361")
	assert.Contains(t, out, "+49,361")
	assert.Contains(t, out, "NXT")
	assert.Contains(t, out, "55,300")
	assert.Contains(t, out, `<svg id="chart"></svg>`)
	assert.Contains(t, out, "&lt;b&gt;실적&lt;/b&gt;")
	assert.Contains(t, out, DataNotFound)
	assert.Contains(t, out, "+199,361")
	assert.Contains(t, out, "생명선(20일선)")
	assert.Contains(t, out, "관심 종목")
	assert.Contains(t, out, "카카오")
	assert.Contains(t, out, "41,200")
	assert.Contains(t, out, "10일선 밑으로")
}

func TestTrendMessageUsesWindow(t *testing.T) {
	assert.Contains(t, trendMessage(techan.TrendAbove, 5), "5일선")
	assert.Contains(t, trendMessage(techan.TrendBelow, 60), "60일선")
	assert.NotContains(t, trendMessage(techan.TrendUnknown, 20), "20")
}

func TestRenderCandles(t *testing.T) {
	h := risingHistory("005930.KS", time.Date(2025, 10, 15, 0, 0, 0, 0, kst), 80, 50000)
	cfg := testConfig(t)

	svg, err := RenderCandles(h.Candles, cfg.Chart)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(bytes.TrimSpace(svg), []byte("<svg")))

	short, err := RenderCandles(h.Candles[:5], cfg.Chart)
	require.NoError(t, err, "moving averages are optional")
	assert.NotEmpty(t, short)

	_, err = RenderCandles(h.Candles[:1], cfg.Chart)
	assert.Error(t, err)
}

var _ RealtimeSource = (*kis.Client)(nil)
