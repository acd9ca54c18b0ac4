package model

import "time"

type Trade struct {
	EntryDate  time.Time `json:"entry_date"`
	EntryPrice float64   `json:"entry_price"`
	ExitDate   time.Time `json:"exit_date,omitempty"`
	ExitPrice  float64   `json:"exit_price,omitempty"`
	ReturnPct  float64   `json:"return_pct"`
}

type BacktestResult struct {
	RunID       string    `json:"run_id"`
	Ticker      string    `json:"ticker,omitempty"`
	From        time.Time `json:"from"`
	To          time.Time `json:"to"`
	ShortWindow int       `json:"short_window"`
	LongWindow  int       `json:"long_window"`

	BuyHoldReturnPct  float64 `json:"buy_hold_return_pct"`
	StrategyReturnPct float64 `json:"strategy_return_pct"`
	WinRatePct        float64 `json:"win_rate_pct"`
	TradeCount        int     `json:"trade_count"`

	// Trades holds closed trades only, OpenTrade is the position still held at the end.
	Trades    []Trade `json:"trades"`
	OpenTrade *Trade  `json:"open_trade,omitempty"`
}
