package investool

import (
	"context"
	"errors"
	"maps"
	"math/rand"
	"testing"

	"github.com/shopspring/decimal"
)

func TestRebalancer_PlanSellThenBuy(t *testing.T) {
	tests := []struct {
		name     string
		cash     float64
		want     map[string]int64
		wantCash float64
	}{
		{
			name:     "no cash",
			cash:     0,
			want:     map[string]int64{"msft": 19, "appl": -2, "zag.to": -5},
			wantCash: 0,
		},
		{
			name:     "with cash",
			cash:     100,
			want:     map[string]int64{"msft": 20, "appl": -2, "zag.to": -5},
			wantCash: 90,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := standardPortfolio(t)
			plan := NewRebalancer(nil).PlanSellThenBuy(context.Background(), p, D(tt.cash))
			if got := units(plan.Entries); !maps.Equal(got, tt.want) {
				t.Errorf("PlanSellThenBuy() = %v, want %v", got, tt.want)
			}
			if !plan.Cash.Equal(D(tt.wantCash)) {
				t.Errorf("PlanSellThenBuy().Cash = %v, want %v", plan.Cash, tt.wantCash)
			}
			if got := CashRemaining(plan, D(tt.cash)); !got.Equal(D(tt.wantCash)) {
				t.Errorf("CashRemaining() = %v, want %v", got, tt.wantCash)
			}
		})
	}
}

func TestRebalancer_PlanSellThenBuy_order(t *testing.T) {
	p := standardPortfolio(t)
	plan := NewRebalancer(nil).PlanSellThenBuy(context.Background(), p, D(100))
	want := []string{"zag.to", "appl", "msft"}
	for i, ticker := range want {
		if plan.Entries[i].Ticker != ticker {
			t.Errorf("Entries[%d] = %q, want %q", i, plan.Entries[i].Ticker, ticker)
		}
	}
	if plan.Policy != SellThenBuy {
		t.Errorf("Policy = %v, want %v", plan.Policy, SellThenBuy)
	}
	if !plan.Liquid.Equal(D(100)) {
		t.Errorf("Liquid = %v, want 100", plan.Liquid)
	}
}

func TestRebalancer_PlanSellThenBuy_cashDoesNotSize(t *testing.T) {
	p := standardPortfolio(t)
	r := NewRebalancer(nil)
	ctx := context.Background()
	// the msft target stays 30 units whatever the cash, only its funding changes.
	for _, cash := range []float64{100, 500, 10000} {
		plan := r.PlanSellThenBuy(ctx, p, D(cash))
		want := map[string]int64{"msft": 20, "appl": -2, "zag.to": -5}
		if got := units(plan.Entries); !maps.Equal(got, want) {
			t.Errorf("PlanSellThenBuy(cash=%v) = %v, want %v", cash, got, want)
		}
		if want := D(cash).Add(D(190)).Sub(D(200)); !plan.Cash.Equal(want) {
			t.Errorf("PlanSellThenBuy(cash=%v).Cash = %v, want %v", cash, plan.Cash, want)
		}
	}
}

func TestRebalancer_PlanSellThenBuy_ties(t *testing.T) {
	// OLD is sold for 400 that buys 10 units of each of the others.
	p := mustPortfolio(t, "ties", "CAD",
		Holding{Ticker: "OLD", Price: D(10), Currency: "CAD", Units: 40, Target: D(0)},
		Holding{Ticker: "CCC", Price: D(10), Currency: "CAD", Units: 0, Target: D(0.25)},
		Holding{Ticker: "AAA", Price: D(10), Currency: "CAD", Units: 0, Target: D(0.25)},
		Holding{Ticker: "BBB", Price: D(10), Currency: "CAD", Units: 0, Target: D(0.25)},
		Holding{Ticker: "DDD", Price: D(10), Currency: "CAD", Units: 0, Target: D(0.25)},
	)
	// all affordable: equal deltas keep the portfolio order.
	plan := NewRebalancer(nil).PlanSellThenBuy(context.Background(), p, decimal.Zero)
	want := []Delta{{Ticker: "OLD", Units: -40}, {Ticker: "CCC", Units: 10}, {Ticker: "AAA", Units: 10}, {Ticker: "BBB", Units: 10}, {Ticker: "DDD", Units: 10}}
	for i, w := range want {
		if got := plan.Entries[i]; got.Ticker != w.Ticker || got.Units != w.Units {
			t.Errorf("Entries[%d] = %s %d, want %s %d", i, got.Ticker, got.Units, w.Ticker, w.Units)
		}
	}

	p = mustPortfolio(t, "ties", "CAD",
		Holding{Ticker: "OLD", Price: D(1), Currency: "CAD", Units: 110, Target: D(0)},
		Holding{Ticker: "CCC", Price: D(10), Currency: "CAD", Units: 0, Target: D(0.5)},
		Holding{Ticker: "AAA", Price: D(10), Currency: "CAD", Units: 0, Target: D(0.5)},
	)
	plan = NewRebalancer(nil).PlanSellThenBuy(context.Background(), p, decimal.Zero)
	// 5.5 rounds to 6 units each, only 11 are affordable: the first in portfolio order is served first.
	if got, want := units(plan.Entries), map[string]int64{"OLD": -110, "CCC": 6, "AAA": 5}; !maps.Equal(got, want) {
		t.Errorf("PlanSellThenBuy() = %v, want %v", got, want)
	}
}

// oneSell returns a portfolio whose whole value is OLD, worth value, to be split between AAA and BBB.
func oneSell(t *testing.T, value int64, aaa, bbb Holding) *Portfolio {
	return mustPortfolio(t, "clip", "CAD",
		Holding{Ticker: "OLD", Price: D(1), Currency: "CAD", Units: value, Target: D(0)},
		aaa, bbb,
	)
}

func TestRebalancer_PlanSellThenBuy_clipFirstServed(t *testing.T) {
	aaa := Holding{Ticker: "AAA", Price: D(10), Currency: "CAD", Units: 0, Target: D(0.5)}
	bbb := Holding{Ticker: "BBB", Price: D(7), Currency: "CAD", Units: 0, Target: D(0.5)}

	// Wanted: AAA 5 (50), BBB round(50/7)=7 (49). BBB is the biggest delta and is served first.
	plan := NewRebalancer(nil).PlanSellThenBuy(context.Background(), oneSell(t, 100, aaa, bbb), decimal.Zero)
	if got, want := units(plan.Entries), map[string]int64{"OLD": -100, "AAA": 5, "BBB": 7}; !maps.Equal(got, want) {
		t.Errorf("PlanSellThenBuy() = %v, want %v", got, want)
	}
	if !plan.Cash.Equal(D(1)) {
		t.Errorf("Cash = %v, want 1", plan.Cash)
	}

	// Wanted: AAA round(4.75)=5, BBB round(6.79)=7. BBB costs 49, AAA is clipped to floor(46/10)=4.
	plan = NewRebalancer(nil).PlanSellThenBuy(context.Background(), oneSell(t, 95, aaa, bbb), decimal.Zero)
	if got, want := units(plan.Entries), map[string]int64{"OLD": -95, "AAA": 4, "BBB": 7}; !maps.Equal(got, want) {
		t.Errorf("PlanSellThenBuy() = %v, want %v", got, want)
	}
	if !plan.Cash.Equal(D(6)) {
		t.Errorf("Cash = %v, want 6", plan.Cash)
	}
}

func TestRebalancer_PlanSellThenBuy_zeroPrice(t *testing.T) {
	p := oneSell(t, 100,
		Holding{Ticker: "FREE", Price: D(0), Currency: "CAD", Units: 0, Target: D(0.5)},
		Holding{Ticker: "PAID", Price: D(10), Currency: "CAD", Units: 0, Target: D(0.5)},
	)
	plan := NewRebalancer(nil).PlanSellThenBuy(context.Background(), p, decimal.Zero)
	free, ok := plan.Entry("FREE")
	if !ok || free.Units != 0 || !free.Degraded {
		t.Errorf("Entry(FREE) = %+v, want 0 units and degraded", free)
	}
	if len(plan.Warnings) != 1 || !errors.Is(plan.Warnings[0], ErrDegradedPrice) {
		t.Errorf("Warnings = %v, want a degraded price", plan.Warnings)
	}
	// 100 from OLD, 50 spent on PAID.
	if !plan.Cash.Equal(D(50)) {
		t.Errorf("Cash = %v, want 50", plan.Cash)
	}
}

func TestRebalancer_plan_negativeCash(t *testing.T) {
	p := standardPortfolio(t)
	r := NewRebalancer(nil)
	ctx := context.Background()
	for _, plan := range []*Plan{r.PlanSellThenBuy(ctx, p, D(-50)), r.PlanBuyOnly(ctx, p, D(-50))} {
		if !plan.Liquid.IsZero() {
			t.Errorf("%v: Liquid = %v, want 0", plan.Policy, plan.Liquid)
		}
		if len(plan.Warnings) == 0 || !errors.Is(plan.Warnings[0], ErrRange) {
			t.Errorf("%v: Warnings = %v, want a range error first", plan.Policy, plan.Warnings)
		}
		if got := CashRemaining(plan, D(-50)); !got.Equal(plan.Cash) {
			t.Errorf("%v: CashRemaining() = %v, want plan.Cash %v", plan.Policy, got, plan.Cash)
		}
	}
	// same plan as without cash.
	plan := r.PlanSellThenBuy(ctx, p, D(-50))
	if got, want := units(plan.Entries), map[string]int64{"msft": 19, "appl": -2, "zag.to": -5}; !maps.Equal(got, want) {
		t.Errorf("PlanSellThenBuy(-50) = %v, want %v", got, want)
	}
}

// realStonks returns 4 holdings priced 10, 20, 30 and 40 with 5 units each, targeting 25% each.
func realStonks(t *testing.T) *Portfolio {
	return mustPortfolio(t, "realStonks", "CAD",
		Holding{Ticker: "msft", Price: D(10), Currency: "CAD", Units: 5, Target: D(0.25)},
		Holding{Ticker: "aapl", Price: D(20), Currency: "CAD", Units: 5, Target: D(0.25)},
		Holding{Ticker: "amzn", Price: D(30), Currency: "CAD", Units: 5, Target: D(0.25)},
		Holding{Ticker: "nvda", Price: D(40), Currency: "CAD", Units: 5, Target: D(0.25)},
	)
}

func TestRebalancer_PlanBuyOnly(t *testing.T) {
	p := realStonks(t)
	r := NewRebalancer(nil)

	// sized on the 500 of total value: 12.5 rounds to 12 msft.
	raw := r.AllocationDifference(context.Background(), p, decimal.Zero)
	if got, want := units(raw.Deltas), map[string]int64{"msft": 7, "aapl": 1, "amzn": -1, "nvda": -2}; !maps.Equal(got, want) {
		t.Fatalf("AllocationDifference() = %v, want %v", got, want)
	}

	plan := r.PlanBuyOnly(context.Background(), p, D(200))
	// msft 7 x 10 = 70, aapl 1 x 20 = 20, 110 left.
	want := []Delta{{Ticker: "msft", Units: 7}, {Ticker: "aapl", Units: 1}, {Ticker: "amzn", Units: 0}, {Ticker: "nvda", Units: 0}}
	if len(plan.Entries) != len(want) {
		t.Fatalf("len(Entries) = %d, want %d", len(plan.Entries), len(want))
	}
	for i, w := range want {
		if got := plan.Entries[i]; got.Ticker != w.Ticker || got.Units != w.Units {
			t.Errorf("Entries[%d] = %s %d, want %s %d", i, got.Ticker, got.Units, w.Ticker, w.Units)
		}
	}
	if !plan.Cash.Equal(D(110)) {
		t.Errorf("Cash = %v, want 110", plan.Cash)
	}
	if plan.Policy != BuyOnly {
		t.Errorf("Policy = %v, want %v", plan.Policy, BuyOnly)
	}
	if sells := plan.Sells(); len(sells) != 0 {
		t.Errorf("Sells() = %v, want none", sells)
	}

	plan = r.PlanBuyOnly(context.Background(), p, D(75))
	// msft 70, aapl 20 is too expensive for the 5 left.
	if got, want := units(plan.Entries), map[string]int64{"msft": 7, "aapl": 0, "amzn": 0, "nvda": 0}; !maps.Equal(got, want) {
		t.Errorf("PlanBuyOnly(75) = %v, want %v", got, want)
	}
	if !plan.Cash.Equal(D(5)) {
		t.Errorf("Cash = %v, want 5", plan.Cash)
	}
}

func TestRebalancer_PlanBuyOnly_noCash(t *testing.T) {
	p := standardPortfolio(t)
	plan := NewRebalancer(nil).PlanBuyOnly(context.Background(), p, decimal.Zero)
	want := map[string]int64{"msft": 0, "appl": 0, "zag.to": 0}
	if got := units(plan.Entries); !maps.Equal(got, want) {
		t.Errorf("PlanBuyOnly() = %v, want %v", got, want)
	}
	if !plan.Cash.IsZero() {
		t.Errorf("Cash = %v, want 0", plan.Cash)
	}
}

func TestPlan_Apply(t *testing.T) {
	p := standardPortfolio(t)
	plan := NewRebalancer(nil).PlanSellThenBuy(context.Background(), p, D(100))
	if err := plan.Apply(p); err != nil {
		t.Fatalf("Apply() error = %v", err)
	}
	want := map[string]int64{"msft": 30, "appl": 8, "zag.to": 5}
	for ticker, u := range want {
		h, _ := p.Holding(ticker)
		if h.Units != u {
			t.Errorf("%s Units = %d, want %d", ticker, h.Units, u)
		}
	}
	p.Revalue(context.Background(), nil)
	// 600 + 100 cash - 90 left.
	if !p.TotalValue().Equal(D(610)) {
		t.Errorf("TotalValue() = %v, want 610", p.TotalValue())
	}
}

func TestPlan_Apply_unknownTicker(t *testing.T) {
	p := standardPortfolio(t)
	plan := &Plan{Entries: []Delta{{Ticker: "msft", Units: -3, Price: D(10)}, {Ticker: "nope", Units: 1, Price: D(1)}}}
	err := plan.Apply(p)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("Apply() error = %v, want %v", err, ErrNotFound)
	}
	if h, _ := p.Holding("msft"); h.Units != 10 {
		t.Errorf("msft Units = %d, want 10 (unchanged)", h.Units)
	}
}

// randomPortfolio builds a portfolio with random prices, units and targets adding up to at most 100%.
func randomPortfolio(t *testing.T, rnd *rand.Rand) *Portfolio {
	t.Helper()
	n := 1 + rnd.Intn(8)
	holdings := make([]Holding, 0, n)
	left := 10000 // basis points
	for i := range n {
		target := rnd.Intn(left + 1)
		left -= target
		price := decimal.New(rnd.Int63n(100000), -2) // 0.00 to 999.99, zero included
		holdings = append(holdings, Holding{
			Ticker:   string(rune('A'+i)) + "X",
			Price:    price,
			Currency: "CAD",
			Units:    rnd.Int63n(200),
			Target:   decimal.New(int64(target), -4),
		})
	}
	return mustPortfolio(t, "random", "CAD", holdings...)
}

func TestPlan_properties(t *testing.T) {
	rnd := rand.New(rand.NewSource(42))
	r := NewRebalancer(nil)
	ctx := context.Background()
	for i := range 500 {
		p := randomPortfolio(t, rnd)
		// one in ten is negative.
		cash := decimal.New(rnd.Int63n(1100000)-100000, -2)

		for _, plan := range []*Plan{r.PlanSellThenBuy(ctx, p, cash), r.PlanBuyOnly(ctx, p, cash)} {
			if got := CashRemaining(plan, cash); !got.Equal(plan.Cash) {
				t.Fatalf("#%d %v: CashRemaining() = %v, want plan.Cash %v", i, plan.Policy, got, plan.Cash)
			}
			if len(plan.Entries) != p.Len() {
				t.Fatalf("#%d %v: len(Entries) = %d, want %d", i, plan.Policy, len(plan.Entries), p.Len())
			}
			// replay the plan: cash never goes negative.
			c := plan.Liquid
			for _, d := range plan.Entries {
				c = c.Sub(d.Cost())
				if c.IsNegative() {
					t.Fatalf("#%d %v: cash %v is negative after %s %d", i, plan.Policy, c, d.Ticker, d.Units)
				}
			}
			if plan.Policy == BuyOnly {
				for _, d := range plan.Entries {
					if d.Units < 0 {
						t.Fatalf("#%d: PlanBuyOnly() emitted %s %d", i, d.Ticker, d.Units)
					}
				}
			}
		}
	}
}
