package model

import "strings"

const (
	KospiSuffix   = ".KS"
	KosdaqSuffix  = ".KQ"
	TInvestPrefix = "tinvest/"
)

type Position struct {
	Name     string  `json:"name"`
	Code     string  `json:"code"`
	BuyPrice float64 `json:"buy_price"`
	Qty      int64   `json:"qty"`
}

// IsTInvest reports whether the position is quoted through the T-Invest API instead of KRX sources.
func (p Position) IsTInvest() bool {
	return strings.HasPrefix(p.Code, TInvestPrefix)
}

// Symbol is the code without any market suffix or provider prefix, e.g. "005930".
func (p Position) Symbol() string {
	code := strings.TrimPrefix(p.Code, TInvestPrefix)
	if i := strings.IndexByte(code, '.'); i >= 0 {
		return code[:i]
	}
	return code
}

// YahooTicker returns the Yahoo Finance ticker, KOSPI unless the code says otherwise.
func (p Position) YahooTicker() string {
	if strings.HasSuffix(p.Code, KospiSuffix) || strings.HasSuffix(p.Code, KosdaqSuffix) {
		return p.Code
	}
	return p.Code + KospiSuffix
}

type Portfolio struct {
	Positions      []Position `json:"positions"`
	RealizedProfit float64    `json:"realized_profit"`
}
