// Package kis is a minimal Korea Investment & Securities OpenAPI client for
// real-time domestic stock and index prices.
package kis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/STTM-NSU/portfolio-dashboard/internal/cache"
	"github.com/STTM-NSU/portfolio-dashboard/internal/config"
	"github.com/STTM-NSU/portfolio-dashboard/internal/logger"
	"github.com/STTM-NSU/portfolio-dashboard/internal/tools"
	"github.com/benbjohnson/clock"
	"go.uber.org/ratelimit"
	"resty.dev/v3"
)

const (
	_tokenURL = "/oauth2/tokenP"
	_priceURL = "/uapi/domestic-stock/v1/quotations/inquire-price"

	_stockPriceTrID = "FHKST01010100"
	_indexPriceTrID = "FHPUP02100000"

	_stockMarket = "J"
	_indexMarket = "U"

	_tokenKey = "access_token"
)

type Index string

const (
	Kospi  Index = "0001"
	Kosdaq Index = "1001"
)

var (
	ErrNotConfigured = errors.New("kis app key/secret not configured")
	ErrEmptyPrice    = errors.New("kis returned empty price")
)

type tokenRequest struct {
	GrantType string `json:"grant_type"`
	AppKey    string `json:"appkey"`
	AppSecret string `json:"appsecret"`
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
}

type errorResponse struct {
	ErrorCode        string `json:"error_code"`
	ErrorDescription string `json:"error_description"`
	MsgCode          string `json:"msg_cd"`
	Message          string `json:"msg1"`
}

func (e *errorResponse) String() string {
	if e.ErrorDescription != "" {
		return e.ErrorCode + " " + e.ErrorDescription
	}
	return e.MsgCode + " " + e.Message
}

type priceResponse struct {
	ReturnCode string `json:"rt_cd"`
	MsgCode    string `json:"msg_cd"`
	Message    string `json:"msg1"`
	Output     struct {
		Price string `json:"stck_prpr"`
	} `json:"output"`
}

type Client struct {
	c           *resty.Client
	cfg         config.KISConfig
	rateLimiter ratelimit.Limiter
	logger      logger.Logger

	tokens *cache.TTL[string, string]
	prices *cache.TTL[string, float64]
}

func NewClient(cfg config.KISConfig, cacheCfg config.CacheConfig, clk clock.Clock, logger logger.Logger) *Client {
	client := resty.New().
		SetLogger(logger).
		SetBaseURL(cfg.Address).
		SetTimeout(cfg.Timeout)

	return &Client{
		c:           client,
		cfg:         cfg,
		rateLimiter: ratelimit.New(cfg.RateLimit),
		logger:      logger,
		tokens:      cache.NewTTL[string, string](clk, cacheCfg.Token),
		prices:      cache.NewTTL[string, float64](clk, cacheCfg.Quotes),
	}
}

func (c *Client) Enabled() bool {
	return c.cfg.Enabled()
}

func (c *Client) Close() error {
	return c.c.Close()
}

// StockPrice returns the current regular-session price for a 6-digit stock code.
func (c *Client) StockPrice(ctx context.Context, code string) (float64, error) {
	return c.prices.GetOrLoad("J:"+code, func() (float64, error) {
		return c.inquirePrice(ctx, _stockPriceTrID, _stockMarket, code)
	})
}

func (c *Client) IndexPrice(ctx context.Context, index Index) (float64, error) {
	return c.prices.GetOrLoad("U:"+string(index), func() (float64, error) {
		return c.inquirePrice(ctx, _indexPriceTrID, _indexMarket, string(index))
	})
}

func (c *Client) inquirePrice(ctx context.Context, trID, market, code string) (float64, error) {
	token, err := c.token(ctx)
	if err != nil {
		return 0, err
	}

	c.rateLimiter.Take()
	resp, err := c.c.R().
		SetContext(ctx).
		SetHeaders(map[string]string{
			"content-type":  "application/json; charset=utf-8",
			"authorization": "Bearer " + token,
			"appkey":        c.cfg.AppKey,
			"appsecret":     c.cfg.AppSecret,
			"tr_id":         trID,
		}).
		SetQueryParams(map[string]string{
			"FID_COND_MRKT_DIV_CODE": market,
			"FID_INPUT_ISCD":         code,
		}).
		SetResult(&priceResponse{}).
		SetError(&errorResponse{}).
		Get(_priceURL)
	if err != nil {
		return 0, fmt.Errorf("%w: can't send price request for %s", err, code)
	}
	defer resp.Body.Close()

	c.logger.Debugf("got response %s status: %s, %s", resp.Request.URL, resp.Status(), resp.Duration())

	if resp.IsError() {
		if e, ok := resp.Error().(*errorResponse); ok && e != nil {
			return 0, fmt.Errorf("kis price request error for %s: %s", code, e)
		}
		return 0, fmt.Errorf("kis price request error for %s: %s", code, resp.Status())
	}

	out, ok := resp.Result().(*priceResponse)
	if !ok || out == nil {
		return 0, fmt.Errorf("kis price unexpected response for %s: %s", code, resp.Status())
	}
	if out.ReturnCode != "" && out.ReturnCode != "0" {
		return 0, fmt.Errorf("kis price rejected for %s: %s %s", code, out.MsgCode, out.Message)
	}
	if out.Output.Price == "" {
		return 0, fmt.Errorf("%w: %s", ErrEmptyPrice, code)
	}

	price, err := tools.ParseNumber(out.Output.Price)
	if err != nil {
		return 0, fmt.Errorf("%w: can't parse kis price for %s", err, code)
	}

	return price, nil
}

// token issues an access token at most once per cache TTL, a shorter expires_in
// from the server shortens the cached lifetime.
func (c *Client) token(ctx context.Context) (string, error) {
	if !c.cfg.Enabled() {
		return "", ErrNotConfigured
	}
	if t, ok := c.tokens.Get(_tokenKey); ok {
		return t, nil
	}

	c.rateLimiter.Take()
	resp, err := c.c.R().
		SetContext(ctx).
		SetHeader("content-type", "application/json").
		SetBody(tokenRequest{
			GrantType: "client_credentials",
			AppKey:    c.cfg.AppKey,
			AppSecret: c.cfg.AppSecret,
		}).
		SetResult(&tokenResponse{}).
		SetError(&errorResponse{}).
		Post(_tokenURL)
	if err != nil {
		return "", fmt.Errorf("%w: can't send token request", err)
	}
	defer resp.Body.Close()

	if resp.IsError() {
		if e, ok := resp.Error().(*errorResponse); ok && e != nil {
			return "", fmt.Errorf("kis token request error: %s", e)
		}
		return "", fmt.Errorf("kis token request error: %s", resp.Status())
	}

	out, ok := resp.Result().(*tokenResponse)
	if !ok || out == nil || out.AccessToken == "" {
		return "", fmt.Errorf("kis token response without access_token: %s", resp.Status())
	}

	if out.ExpiresIn > 0 {
		c.tokens.SetWithTTL(_tokenKey, out.AccessToken, min(time.Duration(out.ExpiresIn)*time.Second, c.tokens.TTL()))
	} else {
		c.tokens.Set(_tokenKey, out.AccessToken)
	}
	c.logger.Infof("issued kis access token")

	return out.AccessToken, nil
}
