package config

import (
	"cmp"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/STTM-NSU/portfolio-dashboard/internal/model"
	"gopkg.in/yaml.v3"
)

type FeesConfig struct {
	Preset       model.FeePreset `yaml:"preset"`
	ExitCostRate float64         `yaml:"exit_cost_rate"` // used with preset "custom"
}

func (c *FeesConfig) Setup() error {
	if c.Preset == "" {
		c.Preset = model.StatementFees
		if c.ExitCostRate > 0 {
			c.Preset = model.CustomFees
		}
	}

	if c.Preset != model.CustomFees {
		rate, ok := model.ExitCostRates[c.Preset]
		if !ok {
			return fmt.Errorf("unknown fees preset %q", c.Preset)
		}
		c.ExitCostRate = rate
	}

	if c.ExitCostRate < 0 || c.ExitCostRate >= 1 {
		return fmt.Errorf("exit cost rate %f out of [0, 1)", c.ExitCostRate)
	}

	return nil
}

type NewsConfig struct {
	Enabled   *bool         `yaml:"enabled"`
	Address   string        `yaml:"address"`
	Limit     int           `yaml:"limit"`
	Query     string        `yaml:"query"` // %s is replaced by the stock name
	Language  string        `yaml:"language"`
	Country   string        `yaml:"country"`
	RateLimit int           `yaml:"rate_limit"` // requests per minute
	Timeout   time.Duration `yaml:"timeout"`
}

func (c *NewsConfig) IsEnabled() bool {
	return c.Enabled == nil || *c.Enabled
}

func (c *NewsConfig) Setup() {
	c.Address = cmp.Or(c.Address, "https://news.google.com")
	if c.Limit <= 0 {
		c.Limit = 4
	}
	c.Query = cmp.Or(c.Query, "%s 실적 OR 주가 when:7d")
	c.Language = cmp.Or(c.Language, "ko")
	c.Country = cmp.Or(c.Country, "KR")
	if c.RateLimit <= 0 {
		c.RateLimit = 30
	}
	if c.Timeout <= 0 {
		c.Timeout = 10 * time.Second
	}
}

type CacheConfig struct {
	Token   time.Duration `yaml:"token"`
	Quotes  time.Duration `yaml:"quotes"`
	History time.Duration `yaml:"history"`
	News    time.Duration `yaml:"news"`
}

func (c *CacheConfig) Setup() {
	if c.Token <= 0 {
		c.Token = 24 * time.Hour
	}
	if c.Quotes <= 0 {
		c.Quotes = time.Minute
	}
	if c.History <= 0 {
		c.History = 10 * time.Minute
	}
	if c.News <= 0 {
		c.News = time.Hour
	}
}

type ServerConfig struct {
	Port            string        `yaml:"port"`
	RefreshSchedule string        `yaml:"refresh_schedule"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

func (c *ServerConfig) Setup() {
	c.Port = cmp.Or(c.Port, "8080")
	c.RefreshSchedule = cmp.Or(c.RefreshSchedule, "@every 1m")
	if c.ShutdownTimeout <= 0 {
		c.ShutdownTimeout = 10 * time.Second
	}
}

type DashboardConfig struct {
	LogLevel      string `yaml:"log_level"`
	PortfolioFile string `yaml:"portfolio_file"`
	Timezone      string `yaml:"timezone"`
	HistoryPeriod string `yaml:"history_period"`
	UsePostgres   bool   `yaml:"use_postgres"`

	// Watchlist holds codes shown without valuation, as "code" or "name:code".
	Watchlist []string `yaml:"watchlist"`

	Fees     FeesConfig     `yaml:"fees"`
	Backtest BacktestConfig `yaml:"backtest"`
	Chart    ChartConfig    `yaml:"chart"`
	News     NewsConfig     `yaml:"news"`
	Cache    CacheConfig    `yaml:"cache"`
	KIS      KISConfig      `yaml:"kis"`
	Naver    NaverConfig    `yaml:"naver"`
	TInvest  TInvestConfig  `yaml:"tinvest"`
	Server   ServerConfig   `yaml:"server"`

	location *time.Location
}

const (
	_portfolioFileDefault = "my_portfolio_data.txt"
	_timezoneDefault      = "Asia/Seoul"
	_historyPeriodDefault = "6mo"
)

func (c *DashboardConfig) ValidateAndSetup() error {
	c.LogLevel = cmp.Or(c.LogLevel, "info")
	c.PortfolioFile = cmp.Or(c.PortfolioFile, _portfolioFileDefault)
	c.Timezone = cmp.Or(c.Timezone, _timezoneDefault)
	c.HistoryPeriod = cmp.Or(c.HistoryPeriod, _historyPeriodDefault)

	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return fmt.Errorf("%w: can't load timezone %s", err, c.Timezone)
	}
	c.location = loc

	for _, w := range c.Watchlist {
		if parseWatch(w).Code == "" {
			return fmt.Errorf("watchlist entry %q has no code", w)
		}
	}

	if err := c.Fees.Setup(); err != nil {
		return fmt.Errorf("%w: can't setup fees", err)
	}
	if err := c.Backtest.ValidateAndSetup(); err != nil {
		return fmt.Errorf("%w: can't setup backtest", err)
	}
	c.Chart.Setup()
	c.News.Setup()
	c.Cache.Setup()
	c.KIS.Setup()
	c.Naver.Setup()
	c.TInvest.Setup()
	c.Server.Setup()

	return nil
}

// Location is the exchange timezone used to decide whether the last daily bar is today's.
func (c *DashboardConfig) Location() *time.Location {
	if c.location == nil {
		return time.UTC
	}
	return c.location
}

// WatchPositions returns the watchlist as positions with no buy price or quantity.
// Entries without a name use the code as the name.
func (c *DashboardConfig) WatchPositions() []model.Position {
	out := make([]model.Position, 0, len(c.Watchlist))
	for _, w := range c.Watchlist {
		out = append(out, parseWatch(w))
	}
	return out
}

func parseWatch(entry string) model.Position {
	entry = strings.TrimSpace(entry)
	name, code, ok := strings.Cut(entry, ":")
	if !ok {
		code = name
	}
	name, code = strings.TrimSpace(name), strings.TrimSpace(code)
	return model.Position{Name: cmp.Or(name, code), Code: code}
}

func Default() (DashboardConfig, error) {
	var cfg DashboardConfig
	if err := cfg.ValidateAndSetup(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// LoadDashboardConfig reads the YAML config, a missing file yields the defaults.
func LoadDashboardConfig(filename string) (DashboardConfig, error) {
	var cfg DashboardConfig
	input, err := os.ReadFile(filename)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return cfg, fmt.Errorf("%w: can't read file", err)
	}

	if len(input) > 0 {
		if err := yaml.Unmarshal(input, &cfg); err != nil {
			return cfg, fmt.Errorf("%w: can't unmarshal config", err)
		}
	}

	if err := cfg.ValidateAndSetup(); err != nil {
		return cfg, fmt.Errorf("%w: can't setup cfg", err)
	}

	return cfg, nil
}
