package config

type ChartConfig struct {
	Candles     int `yaml:"candles"`
	Width       int `yaml:"width"`
	Height      int `yaml:"height"`
	FastMA      int `yaml:"fast_ma"`
	SlowMA      int `yaml:"slow_ma"`
	TrendWindow int `yaml:"trend_window"`
}

func (c *ChartConfig) Setup() {
	if c.Candles <= 1 {
		c.Candles = 20
	}
	if c.Width <= 0 {
		c.Width = 640
	}
	if c.Height <= 0 {
		c.Height = 180
	}
	if c.FastMA <= 0 {
		c.FastMA = 20
	}
	if c.SlowMA <= 0 {
		c.SlowMA = 60
	}
	if c.TrendWindow <= 0 {
		c.TrendWindow = c.FastMA
	}
}
