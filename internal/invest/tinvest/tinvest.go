// Package tinvest resolves "tinvest/<TICKER>" portfolio codes through the T-Invest API.
package tinvest

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/STTM-NSU/portfolio-dashboard/internal/logger"
	"github.com/STTM-NSU/portfolio-dashboard/internal/model"
	"github.com/STTM-NSU/portfolio-dashboard/internal/tools"
	"github.com/benbjohnson/clock"
	"github.com/russianinvestments/invest-api-go-sdk/investgo"
	investapi "github.com/russianinvestments/invest-api-go-sdk/proto"
	"go.uber.org/ratelimit"
)

// daily candles are served for at most one year per request
const _maxDailyRange = 365 * 24 * time.Hour

var (
	NotExistError = errors.New("instrument doesn't exist")
	NotFoundError = errors.New("instrument not found")
)

type Service struct {
	instrClient *investgo.InstrumentsServiceClient
	mdClient    *investgo.MarketDataServiceClient
	rateLimiter ratelimit.Limiter
	clock       clock.Clock
	logger      logger.Logger

	mu          sync.Mutex
	instruments map[string]*model.Instrument
}

func NewService(client *investgo.Client, clk clock.Clock, logger logger.Logger) *Service {
	if clk == nil {
		clk = clock.New()
	}
	return &Service{
		instrClient: client.NewInstrumentsServiceClient(),
		mdClient:    client.NewMarketDataServiceClient(),
		rateLimiter: ratelimit.New(200, ratelimit.Per(1*time.Minute)),
		clock:       clk,
		logger:      logger,
		instruments: make(map[string]*model.Instrument),
	}
}

// FindInstrument resolves a ticker to the first API-tradable instrument.
func (s *Service) FindInstrument(query string) (*model.Instrument, error) {
	s.mu.Lock()
	if v, ok := s.instruments[query]; ok {
		s.mu.Unlock()
		return v, nil
	}
	s.mu.Unlock()

	s.rateLimiter.Take()
	resp, err := s.instrClient.FindInstrument(query)
	if err != nil {
		return nil, fmt.Errorf("%w: can't find instrument", err)
	}

	found := resp.GetInstruments()
	if len(found) == 0 {
		return nil, NotExistError
	}

	for _, instrument := range found {
		if !instrument.GetApiTradeAvailableFlag() {
			continue
		}

		s.rateLimiter.Take()
		info, err := s.instrClient.InstrumentByFigi(instrument.GetFigi())
		if err != nil {
			s.logger.Warnf("%s: can't get info for figi=%s", err, instrument.GetFigi())
			continue
		}
		i := info.GetInstrument()

		instr := &model.Instrument{
			FIGI:           i.GetFigi(),
			UID:            i.GetUid(),
			Ticker:         i.GetTicker(),
			ClassCode:      i.GetClassCode(),
			Name:           i.GetName(),
			Query:          query,
			Lot:            int(i.GetLot()),
			Currency:       i.GetCurrency(),
			InstrumentType: model.FromInvestAPIType(instrument.GetInstrumentKind()),
		}

		s.mu.Lock()
		s.instruments[query] = instr
		s.mu.Unlock()

		return instr, nil
	}

	return nil, NotFoundError
}

func (s *Service) LastPrice(ctx context.Context, symbol string) (float64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	instr, err := s.FindInstrument(symbol)
	if err != nil {
		return 0, fmt.Errorf("%w: can't resolve %s", err, symbol)
	}

	s.rateLimiter.Take()
	resp, err := s.mdClient.GetLastPrices([]string{instr.UID})
	if err != nil {
		return 0, fmt.Errorf("%w: can't get last price", err)
	}
	if len(resp.GetLastPrices()) == 0 {
		return 0, fmt.Errorf("empty last price for instrument %s", symbol)
	}

	return resp.GetLastPrices()[0].GetPrice().ToFloat(), nil
}

// History loads daily candles for period, one request per year of range.
func (s *Service) History(ctx context.Context, symbol, period string) ([]model.Candle, error) {
	instr, err := s.FindInstrument(symbol)
	if err != nil {
		return nil, fmt.Errorf("%w: can't resolve %s", err, symbol)
	}

	to := s.clock.Now().UTC()
	from, err := tools.PeriodStart(to, period)
	if err != nil {
		return nil, err
	}

	candles := make([]model.Candle, 0, 256)
	for _, in := range SplitIntervals(from, to, _maxDailyRange) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		s.rateLimiter.Take()
		resp, err := s.mdClient.GetCandles(instr.UID, investapi.CandleInterval_CANDLE_INTERVAL_DAY, in.Start, in.End, 0, 0)
		if err != nil {
			return nil, fmt.Errorf("%w: can't get candles from api", err)
		}

		for _, item := range resp.GetCandles() {
			candles = append(candles, model.Candle{
				Ticker: model.TInvestPrefix + symbol,
				Ts:     item.GetTime().AsTime(),
				Open:   item.GetOpen().ToFloat(),
				High:   item.GetHigh().ToFloat(),
				Low:    item.GetLow().ToFloat(),
				Close:  item.GetClose().ToFloat(),
				Volume: item.GetVolume(),
			})
		}
	}

	sort.Slice(candles, func(i, j int) bool {
		return candles[i].Ts.Before(candles[j].Ts)
	})
	s.logger.Debugf("loaded %d daily candles for %s (%s)", len(candles), symbol, instr.FIGI)

	return candles, nil
}
