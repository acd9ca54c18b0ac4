package news

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"github.com/STTM-NSU/portfolio-dashboard/internal/config"
	"github.com/STTM-NSU/portfolio-dashboard/internal/logger"
	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const feed = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0"><channel><title>search</title>
<item><title>삼성전자, 3분기 실적 발표 - 연합뉴스</title><link>https://example.com/1</link><pubDate>Mon, 13 Oct 2025 08:00:00 GMT</pubDate></item>
<item><title>반도체 - 업황 - 한국경제</title><link>https://example.com/2</link></item>
<item><title>주가 급등</title><link>https://example.com/3</link></item>
<item><title>네번째 - 매일경제</title><link>https://example.com/4</link></item>
<item><title>다섯번째 - 조선비즈</title><link>https://example.com/5</link></item>
</channel></rss>`

func TestStripSource(t *testing.T) {
	assert.Equal(t, "삼성전자 실적", StripSource("삼성전자 실적 - 연합뉴스"))
	assert.Equal(t, "A - B", StripSource("A - B - C"))
	assert.Equal(t, "no source", StripSource("no source"))
	assert.Equal(t, "- lead", StripSource("- lead"))
}

func newTestService(t *testing.T, cfg config.NewsConfig, clk clock.Clock) (*NewsService, *atomic.Int32, *atomic.Value) {
	t.Helper()
	var (
		calls atomic.Int32
		query atomic.Value
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		query.Store(r.URL.Query())
		w.Header().Set("Content-Type", "application/rss+xml; charset=utf-8")
		_, _ = w.Write([]byte(feed))
	}))
	t.Cleanup(srv.Close)

	cfg.Address = srv.URL
	cfg.Setup()
	s := NewNewsService(cfg, config.CacheConfig{News: time.Hour}, clk, logger.NewNopLogger())
	t.Cleanup(func() { _ = s.Close() })
	return s, &calls, &query
}

func TestHeadlines(t *testing.T) {
	s, calls, query := newTestService(t, config.NewsConfig{}, clock.NewMock())

	items, err := s.Headlines(context.Background(), "삼성전자")
	require.NoError(t, err)
	require.Len(t, items, 4)
	assert.Equal(t, "삼성전자, 3분기 실적 발표", items[0].Title)
	assert.Equal(t, "https://example.com/1", items[0].Link)
	assert.Equal(t, time.Date(2025, 10, 13, 8, 0, 0, 0, time.UTC), items[0].Published.UTC())
	assert.Equal(t, "반도체 - 업황", items[1].Title)
	assert.Equal(t, "주가 급등", items[2].Title)

	q := query.Load().(url.Values)
	assert.Equal(t, "삼성전자 실적 OR 주가 when:7d", q.Get("q"))
	assert.Equal(t, "ko", q.Get("hl"))
	assert.Equal(t, "KR:ko", q.Get("ceid"))

	_, err = s.Headlines(context.Background(), "삼성전자")
	require.NoError(t, err)
	assert.Equal(t, int32(1), calls.Load())
}

func TestHeadlinesCacheExpires(t *testing.T) {
	mock := clock.NewMock()
	s, calls, _ := newTestService(t, config.NewsConfig{Limit: 2}, mock)

	items, err := s.Headlines(context.Background(), "NAVER")
	require.NoError(t, err)
	assert.Len(t, items, 2)

	mock.Add(time.Hour)
	_, err = s.Headlines(context.Background(), "NAVER")
	require.NoError(t, err)
	assert.Equal(t, int32(2), calls.Load())
}

func TestHeadlinesDisabled(t *testing.T) {
	disabled := false
	s, calls, _ := newTestService(t, config.NewsConfig{Enabled: &disabled}, clock.NewMock())

	items, err := s.Headlines(context.Background(), "삼성전자")
	require.NoError(t, err)
	assert.Empty(t, items)
	assert.Equal(t, int32(0), calls.Load())
}
