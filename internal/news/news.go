// Package news fetches recent headlines for a stock from the Google News RSS search.
package news

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/STTM-NSU/portfolio-dashboard/internal/cache"
	"github.com/STTM-NSU/portfolio-dashboard/internal/config"
	"github.com/STTM-NSU/portfolio-dashboard/internal/logger"
	"github.com/STTM-NSU/portfolio-dashboard/internal/model"
	"github.com/benbjohnson/clock"
	"github.com/mmcdole/gofeed"
	"go.uber.org/ratelimit"
	"resty.dev/v3"
)

const (
	_searchURL    = "/rss/search"
	_userAgent    = "Mozilla/5.0"
	_sourceMarker = " - "
)

type NewsService struct {
	c           *resty.Client
	cfg         config.NewsConfig
	rateLimiter ratelimit.Limiter
	logger      logger.Logger

	items *cache.TTL[string, []model.NewsItem]
}

func NewNewsService(cfg config.NewsConfig, cacheCfg config.CacheConfig, clk clock.Clock, logger logger.Logger) *NewsService {
	client := resty.New().
		SetLogger(logger).
		SetBaseURL(cfg.Address).
		SetTimeout(cfg.Timeout).
		SetHeader("User-Agent", _userAgent)

	return &NewsService{
		c:           client,
		cfg:         cfg,
		rateLimiter: ratelimit.New(cfg.RateLimit, ratelimit.Per(time.Minute)),
		logger:      logger,
		items:       cache.NewTTL[string, []model.NewsItem](clk, cacheCfg.News),
	}
}

func (s *NewsService) Close() error {
	return s.c.Close()
}

// Headlines returns up to the configured number of recent headlines for a stock name.
// A disabled service returns nothing.
func (s *NewsService) Headlines(ctx context.Context, name string) ([]model.NewsItem, error) {
	if !s.cfg.IsEnabled() || strings.TrimSpace(name) == "" {
		return nil, nil
	}
	return s.items.GetOrLoad(name, func() ([]model.NewsItem, error) {
		return s.search(ctx, fmt.Sprintf(s.cfg.Query, name))
	})
}

func (s *NewsService) search(ctx context.Context, query string) ([]model.NewsItem, error) {
	s.rateLimiter.Take()
	resp, err := s.c.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"q":    query,
			"hl":   s.cfg.Language,
			"gl":   s.cfg.Country,
			"ceid": s.cfg.Country + ":" + s.cfg.Language,
		}).
		SetDoNotParseResponse(true).
		Get(_searchURL)
	if err != nil {
		return nil, fmt.Errorf("%w: can't send news request", err)
	}
	defer resp.Body.Close()

	s.logger.Debugf("got response %s status: %s, %s", resp.Request.URL, resp.Status(), resp.Duration())

	if resp.IsError() {
		return nil, fmt.Errorf("news request error: %s", resp.Status())
	}

	feed, err := gofeed.NewParser().Parse(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: can't parse news feed", err)
	}

	items := make([]model.NewsItem, 0, min(len(feed.Items), s.cfg.Limit))
	for _, item := range feed.Items {
		if len(items) == s.cfg.Limit {
			break
		}
		if item == nil || item.Title == "" {
			continue
		}
		n := model.NewsItem{
			Title: StripSource(item.Title),
			Link:  item.Link,
		}
		if item.PublishedParsed != nil {
			n.Published = *item.PublishedParsed
		}
		items = append(items, n)
	}

	return items, nil
}

// StripSource drops the trailing " - Publisher" that Google News appends to titles.
func StripSource(title string) string {
	if i := strings.LastIndex(title, _sourceMarker); i > 0 {
		return strings.TrimSpace(title[:i])
	}
	return strings.TrimSpace(title)
}
