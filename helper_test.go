package investool

import (
	"context"
	"fmt"
	"testing"

	"github.com/shopspring/decimal"
)

// CAD is a helper for test to create canadian money from const
func CAD(v float64) Money { return M(v, "CAD") }

// prices is a PriceSource stub, unknown tickers are unavailable.
type prices map[string]Quote

func (s prices) CurrentPrice(_ context.Context, ticker string) (Quote, error) {
	q, ok := s[ticker]
	if !ok {
		return Quote{}, fmt.Errorf("no quote for %q", ticker)
	}
	return q, nil
}

// rates is an FxSource stub keyed by "FROMTO".
type rates map[string]float64

func (s rates) Rate(_ context.Context, from, to string) (decimal.Decimal, error) {
	r, ok := s[from+to]
	if !ok {
		return decimal.Zero, fmt.Errorf("no rate for %s/%s", from, to)
	}
	return decimal.NewFromFloat(r), nil
}

// standardPortfolio returns msft, appl and zag.to priced 10, 20 and 30 with 10 units each,
// targeting 50%, 25% and 25%, and revalued at 600.
func standardPortfolio(t *testing.T) *Portfolio {
	t.Helper()
	p := mustPortfolio(t, "test", "CAD",
		Holding{Ticker: "msft", Price: D(10), Currency: "CAD", Units: 10, Target: D(0.5)},
		Holding{Ticker: "appl", Price: D(20), Currency: "CAD", Units: 10, Target: D(0.25)},
		Holding{Ticker: "zag.to", Price: D(30), Currency: "CAD", Units: 10, Target: D(0.25)},
	)
	return p
}

// mustPortfolio creates a revalued portfolio with holdings or fails the test.
func mustPortfolio(t *testing.T, name, currency string, holdings ...Holding) *Portfolio {
	t.Helper()
	p, err := NewPortfolio(name, currency)
	if err != nil {
		t.Fatalf("NewPortfolio(%q, %q) error = %v", name, currency, err)
	}
	for _, h := range holdings {
		if err := p.Add(h); err != nil {
			t.Fatalf("Add(%v) error = %v", h, err)
		}
	}
	if warnings := p.Revalue(context.Background(), nil); len(warnings) > 0 {
		t.Fatalf("Revalue() warnings = %v", warnings)
	}
	return p
}

// units returns the plan or allocation deltas as a ticker to units map.
func units(deltas []Delta) map[string]int64 {
	m := make(map[string]int64, len(deltas))
	for _, d := range deltas {
		m[d.Ticker] = d.Units
	}
	return m
}
