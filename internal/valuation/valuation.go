// Package valuation turns held positions and their quotes into invested/current
// amounts net of exit costs. All functions are pure.
package valuation

import (
	"errors"
	"fmt"

	"github.com/STTM-NSU/portfolio-dashboard/internal/model"
)

var ErrInvalidInput = errors.New("invalid valuation input")

// ActivePrice prefers the extended-hours price when one is present and differs from the close.
func ActivePrice(q model.PriceQuote) (float64, bool) {
	if q.ExtendedPrice != nil && *q.ExtendedPrice != q.Close {
		return *q.ExtendedPrice, true
	}
	return q.Close, false
}

// Evaluate values one position. The buy price is assumed to already include the
// buy-side fee, so only exitCostRate is deducted from the current value.
func Evaluate(p model.Position, q *model.PriceQuote, exitCostRate float64) (model.ValuationResult, error) {
	if q == nil {
		return model.ValuationResult{}, fmt.Errorf("%w: no quote for %s", ErrInvalidInput, p.Code)
	}
	if p.BuyPrice <= 0 || p.Qty <= 0 {
		return model.ValuationResult{}, fmt.Errorf("%w: position %s buy price %f qty %d", ErrInvalidInput, p.Code, p.BuyPrice, p.Qty)
	}
	if q.Close <= 0 {
		return model.ValuationResult{}, fmt.Errorf("%w: close %f for %s", ErrInvalidInput, q.Close, p.Code)
	}
	if exitCostRate < 0 || exitCostRate >= 1 {
		return model.ValuationResult{}, fmt.Errorf("%w: exit cost rate %f", ErrInvalidInput, exitCostRate)
	}

	price, extended := ActivePrice(*q)
	qty := float64(p.Qty)

	invested := p.BuyPrice * qty
	current := price * qty * (1 - exitCostRate)
	unrealized := current - invested

	return model.ValuationResult{
		ActivePrice:      price,
		Extended:         extended,
		InvestedAmount:   invested,
		CurrentAmount:    current,
		UnrealizedAmount: unrealized,
		UnrealizedPct:    pct(unrealized, invested),
	}, nil
}

// Aggregate sums per-position results and adds the stored realized profit.
func Aggregate(results []model.ValuationResult, realizedProfit float64) model.PortfolioTotals {
	var totals model.PortfolioTotals
	for _, r := range results {
		totals.Invested += r.InvestedAmount
		totals.Current += r.CurrentAmount
		totals.Unrealized += r.UnrealizedAmount
	}
	totals.UnrealizedPct = pct(totals.Unrealized, totals.Invested)
	totals.Realized = realizedProfit
	totals.Cumulative = totals.Unrealized + realizedProfit
	return totals
}

func pct(amount, base float64) float64 {
	if base <= 0 {
		return 0
	}
	return amount / base * 100
}
