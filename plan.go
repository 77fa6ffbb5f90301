package investool

import (
	"cmp"
	"context"
	"fmt"
	"slices"

	"github.com/shopspring/decimal"
)

// Policy selects how a plan reaches the targets.
type Policy int

const (
	// SellThenBuy sells overweight holdings first and uses the proceeds to buy.
	SellThenBuy Policy = iota
	// BuyOnly never sells; only liquid cash is used to buy underweight holdings.
	BuyOnly
)

func (p Policy) String() string {
	switch p {
	case SellThenBuy:
		return "sell-then-buy"
	case BuyOnly:
		return "buy-only"
	default:
		return fmt.Sprintf("Policy(%d)", int(p))
	}
}

// Plan is an executable list of trades.
//
// Entries are in execution order: sells first (biggest first) then buys
// (biggest first). Liquid is the cash the plan was funded with and Cash is
// what is left of it once every entry is executed.
type Plan struct {
	Policy   Policy
	Currency string
	Entries  []Delta
	Liquid   decimal.Decimal // never negative
	Cash     decimal.Decimal
	Warnings []error
}

// newPlan starts a plan from the deltas sized on the current total value.
//
// Liquid cash only funds the trades, it never changes the target units.
func (r *Rebalancer) newPlan(ctx context.Context, policy Policy, p *Portfolio, liquidCash decimal.Decimal) (*Plan, []Delta) {
	plan := &Plan{Policy: policy, Currency: p.currency}
	cash, err := usableCash(liquidCash)
	if err != nil {
		plan.Warnings = append(plan.Warnings, err)
	}
	plan.Liquid = cash
	a := r.AllocationDifference(ctx, p, decimal.Zero)
	plan.Warnings = append(plan.Warnings, a.Warnings...)
	return plan, a.Deltas
}

// Entry returns the planned delta for ticker.
func (p *Plan) Entry(ticker string) (Delta, bool) {
	for _, d := range p.Entries {
		if d.Ticker == ticker {
			return d, true
		}
	}
	return Delta{}, false
}

// Sells returns the entries with a negative delta.
func (p *Plan) Sells() []Delta {
	return slices.DeleteFunc(slices.Clone(p.Entries), func(d Delta) bool { return d.Units >= 0 })
}

// Buys returns the entries with a positive delta.
func (p *Plan) Buys() []Delta {
	return slices.DeleteFunc(slices.Clone(p.Entries), func(d Delta) bool { return d.Units <= 0 })
}

// PlanSellThenBuy plans a full rebalance: targets are sized on the total
// value, every sell is executed, then the buys are funded by liquidCash plus
// the sell proceeds, biggest first, and clipped to whole units when cash runs out.
func (r *Rebalancer) PlanSellThenBuy(ctx context.Context, p *Portfolio, liquidCash decimal.Decimal) *Plan {
	plan, deltas := r.newPlan(ctx, SellThenBuy, p, liquidCash)

	var sells, buys []Delta
	for _, d := range deltas {
		if d.Units < 0 {
			sells = append(sells, d)
		} else {
			buys = append(buys, d)
		}
	}
	// Stable sorts: equal deltas keep the portfolio order.
	slices.SortStableFunc(sells, func(x, y Delta) int { return cmp.Compare(x.Units, y.Units) })
	slices.SortStableFunc(buys, func(x, y Delta) int { return cmp.Compare(y.Units, x.Units) })

	cash := plan.Liquid
	for _, d := range sells {
		cash = cash.Sub(d.Cost())
	}
	plan.Cash = fund(buys, cash)
	plan.Entries = append(sells, buys...)
	return plan
}

// PlanBuyOnly plans a partial rebalance funded by liquidCash only. Targets
// are sized on the total value, as for PlanSellThenBuy.
//
// Holdings that would need a sell are kept in the plan with a zero delta,
// after the buys, so that it is clear they are left unchanged on purpose.
func (r *Rebalancer) PlanBuyOnly(ctx context.Context, p *Portfolio, liquidCash decimal.Decimal) *Plan {
	plan, deltas := r.newPlan(ctx, BuyOnly, p, liquidCash)

	var buys, kept []Delta
	for _, d := range deltas {
		if d.Units < 0 {
			d.Units = 0
			kept = append(kept, d)
		} else {
			buys = append(buys, d)
		}
	}
	slices.SortStableFunc(buys, func(x, y Delta) int { return cmp.Compare(y.Units, x.Units) })

	plan.Cash = fund(buys, plan.Liquid)
	plan.Entries = append(buys, kept...)
	return plan
}

// fund walks buys in order and clips each one to the whole units that cash
// can pay for. It returns the cash left.
func fund(buys []Delta, cash decimal.Decimal) decimal.Decimal {
	for i := range buys {
		d := &buys[i]
		if d.Price.IsZero() {
			// already reported by the allocation
			d.Units = 0
			d.Degraded = true
			continue
		}
		if d.Cost().GreaterThan(cash) {
			d.Units = max(cash.Div(d.Price).Floor().IntPart(), 0)
			// Div is rounded, never trust it to stay within cash.
			for d.Units > 0 && d.Cost().GreaterThan(cash) {
				d.Units--
			}
		}
		cash = cash.Sub(d.Cost())
	}
	return cash
}

// CashRemaining returns the liquid cash left after executing every entry of plan.
//
// Sells have a negative cost and increase the cash. Negative liquidCash counts as zero,
// as it does for the planners, so the result is always equal to plan.Cash when liquidCash
// is the amount the plan was computed with.
func CashRemaining(plan *Plan, liquidCash decimal.Decimal) decimal.Decimal {
	remaining, _ := usableCash(liquidCash)
	for _, d := range plan.Entries {
		remaining = remaining.Sub(d.Cost())
	}
	return remaining
}

// Apply executes the plan on pf: sells first, then buys.
//
// Every ticker is checked before anything is changed, so a failing plan leaves pf untouched.
// The total value becomes stale; call Revalue afterwards.
func (p *Plan) Apply(pf *Portfolio) error {
	for _, d := range p.Entries {
		if _, err := pf.lookup(d.Ticker); err != nil {
			return err
		}
	}
	for _, d := range p.Sells() {
		if _, err := pf.Sell(d.Ticker, -d.Units); err != nil {
			return err
		}
	}
	for _, d := range p.Buys() {
		if _, err := pf.Buy(d.Ticker, d.Units); err != nil {
			return err
		}
	}
	return nil
}
