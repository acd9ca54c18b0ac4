package config

import (
	"cmp"
	"fmt"
)

type BacktestConfig struct {
	ShortWindow int    `yaml:"short_window"`
	LongWindow  int    `yaml:"long_window"`
	Period      string `yaml:"period"`
}

const (
	_shortWindowDefault    = 20
	_longWindowDefault     = 60
	_backtestPeriodDefault = "5y"
)

func (b *BacktestConfig) ValidateAndSetup() error {
	if b.ShortWindow <= 0 {
		b.ShortWindow = _shortWindowDefault
	}
	if b.LongWindow <= 0 {
		b.LongWindow = _longWindowDefault
	}
	b.Period = cmp.Or(b.Period, _backtestPeriodDefault)

	if b.ShortWindow >= b.LongWindow {
		return fmt.Errorf("short window %d must be less than long window %d", b.ShortWindow, b.LongWindow)
	}

	return nil
}
