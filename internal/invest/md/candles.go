package md

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/STTM-NSU/portfolio-dashboard/internal/cache"
	"github.com/STTM-NSU/portfolio-dashboard/internal/logger"
	"github.com/STTM-NSU/portfolio-dashboard/internal/model"
	"github.com/STTM-NSU/portfolio-dashboard/internal/tools"
	"github.com/benbjohnson/clock"
)

var ErrNoHistory = errors.New("no price history")

// Provider is a remote source of daily candles, e.g. Yahoo Finance or T-Invest.
type Provider interface {
	History(ctx context.Context, symbol, period string) ([]model.Candle, error)
}

// Store persists candles so history survives provider outages.
type Store interface {
	GetCandles(ctx context.Context, ticker string, from, to time.Time) ([]model.Candle, error)
	SaveCandles(ctx context.Context, candles []model.Candle) error
}

type CandlesService struct {
	yahoo   Provider
	tinvest Provider
	store   Store
	clock   clock.Clock
	logger  logger.Logger

	cache *cache.TTL[string, model.History]
}

// NewCandlesService wires the providers. tinvest and store may be nil.
func NewCandlesService(yahoo, tinvest Provider, store Store, clk clock.Clock, ttl time.Duration, logger logger.Logger) *CandlesService {
	if clk == nil {
		clk = clock.New()
	}
	return &CandlesService{
		yahoo:   yahoo,
		tinvest: tinvest,
		store:   store,
		clock:   clk,
		logger:  logger,
		cache:   cache.NewTTL[string, model.History](clk, ttl),
	}
}

// PositionHistory resolves the ticker of a held position. Bare KRX codes are tried
// as KOSPI first and as KOSDAQ when KOSPI has no data.
func (s *CandlesService) PositionHistory(ctx context.Context, p model.Position, period string) (model.History, error) {
	if p.IsTInvest() {
		if s.tinvest == nil {
			return model.History{}, fmt.Errorf("%w: t-invest provider is disabled for %s", ErrNoHistory, p.Code)
		}
		return s.history(ctx, s.tinvest, p.Symbol(), p.Code, period)
	}

	ticker := p.YahooTicker()
	h, err := s.history(ctx, s.yahoo, ticker, ticker, period)
	if err == nil && !h.Empty() {
		return h, nil
	}
	if ticker == p.Code {
		return h, err
	}

	kosdaq := strings.TrimSuffix(ticker, model.KospiSuffix) + model.KosdaqSuffix
	s.logger.Debugf("no history for %s, retrying as %s", ticker, kosdaq)
	return s.history(ctx, s.yahoo, kosdaq, kosdaq, period)
}

// TickerHistory loads history for a raw Yahoo symbol such as ^KS11.
func (s *CandlesService) TickerHistory(ctx context.Context, ticker, period string) (model.History, error) {
	return s.history(ctx, s.yahoo, ticker, ticker, period)
}

func (s *CandlesService) history(ctx context.Context, provider Provider, symbol, ticker, period string) (model.History, error) {
	return s.cache.GetOrLoad(ticker+"|"+period, func() (model.History, error) {
		candles, err := provider.History(ctx, symbol, period)
		if err != nil {
			s.logger.Warnf("%s: can't load %s from provider", err, ticker)
		}

		if len(candles) > 0 {
			for i := range candles {
				candles[i].Ticker = ticker
			}
			s.persist(ctx, candles)
			return model.History{Ticker: ticker, Candles: candles}, nil
		}

		stored, dbErr := s.fromStore(ctx, ticker, period)
		if dbErr != nil {
			s.logger.Errorf("%s: can't get candles from database", dbErr)
		}
		if len(stored) > 0 {
			s.logger.Warnf("using %d stored candles for %s", len(stored), ticker)
			return model.History{Ticker: ticker, Candles: stored}, nil
		}

		if err != nil {
			return model.History{}, fmt.Errorf("%w: %s: %s", ErrNoHistory, ticker, err)
		}
		return model.History{}, fmt.Errorf("%w: %s", ErrNoHistory, ticker)
	})
}

func (s *CandlesService) persist(ctx context.Context, candles []model.Candle) {
	if s.store == nil {
		return
	}
	if err := s.store.SaveCandles(ctx, candles); err != nil {
		s.logger.Errorf("%s: can't save candles to database", err)
	}
}

func (s *CandlesService) fromStore(ctx context.Context, ticker, period string) ([]model.Candle, error) {
	if s.store == nil {
		return nil, nil
	}
	to := s.clock.Now()
	from, err := tools.PeriodStart(to, period)
	if err != nil {
		return nil, err
	}
	return s.store.GetCandles(ctx, ticker, from, to)
}
