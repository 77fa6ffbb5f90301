package investool

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
)

// Rebalancer computes how many units of each holding to buy or sell to reach the targets.
//
// Unit counts are always rounded half to even (banker's rounding): 7.5 units
// becomes 8, 6.5 becomes 6. No other rounding rule is used anywhere.
type Rebalancer struct {
	fx FxSource
}

// NewRebalancer returns a Rebalancer converting prices with fx. fx can be nil
// when all holdings trade in the portfolio currency.
func NewRebalancer(fx FxSource) *Rebalancer {
	return &Rebalancer{fx: fx}
}

// Delta is the number of units to trade for one ticker.
type Delta struct {
	Ticker   string
	Units    int64           // negative to sell, otherwise to buy
	Price    decimal.Decimal // price converted into the portfolio currency
	Degraded bool            // Price relies on a fallback, see the warnings
}

// Cost returns the cash needed to trade the delta. It is negative for a sell.
func (d Delta) Cost() decimal.Decimal { return d.Price.Mul(decimal.NewFromInt(d.Units)) }

// Allocation is the raw difference between the current holdings and their targets.
type Allocation struct {
	Currency string
	Cash     decimal.Decimal // liquid cash
	Budget   decimal.Decimal // total value plus liquid cash
	Deltas   []Delta         // one per holding, in portfolio order
	Warnings []error
}

// Delta returns the delta for ticker.
func (a *Allocation) Delta(ticker string) (Delta, bool) {
	for _, d := range a.Deltas {
		if d.Ticker == ticker {
			return d, true
		}
	}
	return Delta{}, false
}

// AllocationDifference computes, for every holding, the signed number of
// units needed to reach its target share of the total value plus liquidCash.
//
// The portfolio total value must be up to date (see Portfolio.Refresh).
// AllocationDifference never fails: unavailable rates fall back to 1:1 and
// zero prices yield a zero delta, both flagged as Degraded with a warning.
func (r *Rebalancer) AllocationDifference(ctx context.Context, p *Portfolio, liquidCash decimal.Decimal) *Allocation {
	a := &Allocation{
		Currency: p.currency,
		Deltas:   make([]Delta, 0, len(p.holdings)),
	}
	liquidCash, err := usableCash(liquidCash)
	if err != nil {
		a.Warnings = append(a.Warnings, err)
	}
	a.Cash = liquidCash
	a.Budget = p.total.Add(liquidCash)

	for _, h := range p.holdings {
		d := Delta{Ticker: h.Ticker}
		rate, err := p.rate(ctx, r.fx, h)
		if err != nil {
			a.Warnings = append(a.Warnings, err)
			d.Degraded = true
		}
		d.Price = h.Price.Mul(rate)
		if d.Price.IsZero() {
			a.Warnings = append(a.Warnings, &DegradedPriceError{Ticker: h.Ticker, Err: fmt.Errorf("price is zero: %w", ErrRange)})
			d.Degraded = true
			a.Deltas = append(a.Deltas, d)
			continue
		}
		target := h.Target.Mul(a.Budget).Div(d.Price).RoundBank(0)
		d.Units = target.IntPart() - h.Units
		a.Deltas = append(a.Deltas, d)
	}
	return a
}

// usableCash returns liquidCash, or zero and an error when it is negative.
func usableCash(liquidCash decimal.Decimal) (decimal.Decimal, error) {
	if liquidCash.IsNegative() {
		return decimal.Zero, fmt.Errorf("liquid cash %s ignored, it cannot be negative: %w", liquidCash, ErrRange)
	}
	return liquidCash, nil
}

// Weight compares the current share of a holding with its target.
type Weight struct {
	Ticker  string
	Value   decimal.Decimal // in the portfolio currency
	Current decimal.Decimal // fraction of the total value
	Target  decimal.Decimal
}

// Drift returns how far the holding is from its target, positive when overweight.
func (w Weight) Drift() decimal.Decimal { return w.Current.Sub(w.Target) }

// Weights returns the current weight of every holding, in portfolio order.
func (r *Rebalancer) Weights(ctx context.Context, p *Portfolio) ([]Weight, []error) {
	var warnings []error
	weights := make([]Weight, 0, len(p.holdings))
	total := decimal.Zero
	for _, h := range p.holdings {
		rate, err := p.rate(ctx, r.fx, h)
		if err != nil {
			warnings = append(warnings, err)
		}
		w := Weight{Ticker: h.Ticker, Value: h.Value().Mul(rate), Target: h.Target}
		total = total.Add(w.Value)
		weights = append(weights, w)
	}
	if total.IsZero() {
		return weights, warnings
	}
	for i := range weights {
		weights[i].Current = weights[i].Value.Div(total)
	}
	return weights, warnings
}
