package config

import (
	"cmp"
	"fmt"
	"os"
	"time"

	"github.com/russianinvestments/invest-api-go-sdk/investgo"
)

const (
	KISAppKeyEnv    = "KIS_APP_KEY"
	KISAppSecretEnv = "KIS_APP_SECRET"
	TInvestTokenEnv = "T_INVEST_API_TOKEN"
)

type KISConfig struct {
	Address   string        `yaml:"address"`
	RateLimit int           `yaml:"rate_limit"` // requests per second
	Timeout   time.Duration `yaml:"timeout"`

	AppKey    string `yaml:"-"`
	AppSecret string `yaml:"-"`
}

func (c *KISConfig) Setup() {
	c.Address = cmp.Or(c.Address, "https://openapi.koreainvestment.com:9443")
	if c.RateLimit <= 0 {
		c.RateLimit = 15
	}
	if c.Timeout <= 0 {
		c.Timeout = 5 * time.Second
	}
	c.AppKey = os.Getenv(KISAppKeyEnv)
	c.AppSecret = os.Getenv(KISAppSecretEnv)
}

// Enabled is false without credentials, quotes then fall back to the last daily close.
func (c *KISConfig) Enabled() bool {
	return c.AppKey != "" && c.AppSecret != ""
}

type NaverConfig struct {
	Address   string        `yaml:"address"`
	RateLimit int           `yaml:"rate_limit"`
	Timeout   time.Duration `yaml:"timeout"`
	Disabled  bool          `yaml:"disabled"`
}

func (c *NaverConfig) Setup() {
	c.Address = cmp.Or(c.Address, "https://polling.finance.naver.com")
	if c.RateLimit <= 0 {
		c.RateLimit = 10
	}
	if c.Timeout <= 0 {
		c.Timeout = 5 * time.Second
	}
}

type TInvestConfig struct {
	Enabled    bool   `yaml:"enabled"`
	ConfigFile string `yaml:"config_file"`
}

func (c *TInvestConfig) Setup() {
	c.ConfigFile = cmp.Or(c.ConfigFile, "./configs/invest.yaml")
}

func LoadInvestConfig(filename string) (investgo.Config, error) {
	cfg, err := investgo.LoadConfig(filename)
	if err != nil {
		return investgo.Config{}, fmt.Errorf("%w: can't load config", err)
	}

	cfg.Token = os.Getenv(TInvestTokenEnv)
	if cfg.Token == "" {
		return investgo.Config{}, fmt.Errorf("empty t-invest api token")
	}

	return cfg, nil
}
