package model

// PriceQuote is what the valuation consumes. Close is the regular-session price
// (real-time when available), ExtendedPrice is the after-hours (NXT) price.
type PriceQuote struct {
	Close             float64  `json:"close"`
	PreviousClose     float64  `json:"previous_close"`
	ExtendedPrice     *float64 `json:"extended_price,omitempty"`
	ExtendedChangePct *float64 `json:"extended_change_pct,omitempty"`
}

// DayChangePct is the regular-session change against the previous close.
func (q PriceQuote) DayChangePct() float64 {
	if q.PreviousClose == 0 {
		return 0
	}
	return (q.Close - q.PreviousClose) / q.PreviousClose * 100
}

type ExtendedQuote struct {
	Price float64 `json:"price"`
	Diff  float64 `json:"diff"`
	Ratio float64 `json:"ratio"`
}

type ValuationResult struct {
	ActivePrice      float64 `json:"active_price"`
	Extended         bool    `json:"extended"`
	InvestedAmount   float64 `json:"invested_amount"`
	CurrentAmount    float64 `json:"current_amount"`
	UnrealizedAmount float64 `json:"unrealized_amount"`
	UnrealizedPct    float64 `json:"unrealized_pct"`
}

type PortfolioTotals struct {
	Invested      float64 `json:"invested"`
	Current       float64 `json:"current"`
	Unrealized    float64 `json:"unrealized"`
	UnrealizedPct float64 `json:"unrealized_pct"`
	Realized      float64 `json:"realized"`
	Cumulative    float64 `json:"cumulative"`
}

type MarketIndex struct {
	Name          string  `json:"name"`
	Current       float64 `json:"current"`
	PreviousClose float64 `json:"previous_close"`
	ChangePct     float64 `json:"change_pct"`
}
