// Package naver reads after-hours (NXT) single-price quotes from Naver Finance polling.
package naver

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/STTM-NSU/portfolio-dashboard/internal/cache"
	"github.com/STTM-NSU/portfolio-dashboard/internal/config"
	"github.com/STTM-NSU/portfolio-dashboard/internal/logger"
	"github.com/STTM-NSU/portfolio-dashboard/internal/model"
	"github.com/STTM-NSU/portfolio-dashboard/internal/tools"
	"github.com/benbjohnson/clock"
	"go.uber.org/ratelimit"
	"resty.dev/v3"
)

const (
	_realtimeURL = "/api/realtime/domestic/stock/{code}"
	_userAgent   = "Mozilla/5.0"

	_signFall = "5"
	_signFlat = "3"
)

// ErrNoExtendedQuote means there is no after-hours trading data for the code right now.
var ErrNoExtendedQuote = errors.New("no extended-hours quote")

// flexNumber accepts "1,234.5", 1234.5 and "" from the same field.
type flexNumber struct {
	value float64
	set   bool
}

func (n *flexNumber) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		return nil
	}
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "-" {
		return nil
	}
	v, err := tools.ParseNumber(s)
	if err != nil {
		return err
	}
	n.value, n.set = v, true
	return nil
}

type realtimeResponse struct {
	Datas []struct {
		ItemCode            string `json:"itemCode"`
		OverMarketPriceInfo *struct {
			OverPrice                   flexNumber `json:"overPrice"`
			CompareToPreviousClosePrice flexNumber `json:"compareToPreviousClosePrice"`
			CompareToPreviousPrice      struct {
				Code string `json:"code"`
			} `json:"compareToPreviousPrice"`
			FluctuationsRatio flexNumber `json:"fluctuationsRatio"`
		} `json:"overMarketPriceInfo"`
	} `json:"datas"`
}

type Client struct {
	c           *resty.Client
	rateLimiter ratelimit.Limiter
	logger      logger.Logger

	quotes *cache.TTL[string, model.ExtendedQuote]
}

func NewClient(cfg config.NaverConfig, cacheCfg config.CacheConfig, clk clock.Clock, logger logger.Logger) *Client {
	client := resty.New().
		SetLogger(logger).
		SetBaseURL(cfg.Address).
		SetTimeout(cfg.Timeout).
		SetHeader("User-Agent", _userAgent)

	return &Client{
		c:           client,
		rateLimiter: ratelimit.New(cfg.RateLimit),
		logger:      logger,
		quotes:      cache.NewTTL[string, model.ExtendedQuote](clk, cacheCfg.Quotes),
	}
}

func (c *Client) Close() error {
	return c.c.Close()
}

// ExtendedQuote returns the NXT price with its signed change against the previous close.
// Codes without NXT trading are cached as a zero quote for the quote TTL.
func (c *Client) ExtendedQuote(ctx context.Context, code string) (model.ExtendedQuote, error) {
	if q, ok := c.quotes.Get(code); ok {
		if q.Price == 0 {
			return model.ExtendedQuote{}, fmt.Errorf("%w: %s", ErrNoExtendedQuote, code)
		}
		return q, nil
	}

	q, err := c.fetch(ctx, code)
	if err != nil {
		if errors.Is(err, ErrNoExtendedQuote) {
			c.quotes.Set(code, model.ExtendedQuote{})
		}
		return model.ExtendedQuote{}, err
	}
	c.quotes.Set(code, q)
	return q, nil
}

func (c *Client) fetch(ctx context.Context, code string) (model.ExtendedQuote, error) {
	c.rateLimiter.Take()
	resp, err := c.c.R().
		SetContext(ctx).
		SetPathParam("code", code).
		SetResult(&realtimeResponse{}).
		Get(_realtimeURL)
	if err != nil {
		return model.ExtendedQuote{}, fmt.Errorf("%w: can't send naver realtime request for %s", err, code)
	}
	defer resp.Body.Close()

	c.logger.Debugf("got response %s status: %s, %s", resp.Request.URL, resp.Status(), resp.Duration())

	if resp.IsError() {
		return model.ExtendedQuote{}, fmt.Errorf("naver realtime request error for %s: %s", code, resp.Status())
	}

	out, ok := resp.Result().(*realtimeResponse)
	if !ok || out == nil || len(out.Datas) == 0 {
		return model.ExtendedQuote{}, fmt.Errorf("naver realtime empty response for %s", code)
	}

	info := out.Datas[0].OverMarketPriceInfo
	if info == nil || !info.OverPrice.set || info.OverPrice.value <= 0 {
		return model.ExtendedQuote{}, fmt.Errorf("%w: %s", ErrNoExtendedQuote, code)
	}

	diff := info.CompareToPreviousClosePrice.value
	switch info.CompareToPreviousPrice.Code {
	case _signFall:
		diff = -abs(diff)
	case _signFlat:
		diff = 0
	}

	return model.ExtendedQuote{
		Price: info.OverPrice.value,
		Diff:  diff,
		Ratio: info.FluctuationsRatio.value,
	}, nil
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
