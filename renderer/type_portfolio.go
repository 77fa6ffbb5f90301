package renderer

import (
	"github.com/etnz/investool"
)

// Portfolio is the printable view of a portfolio.
type Portfolio struct {
	Name        string
	Currency    string
	Total       string
	TargetTotal string
	Holdings    []HoldingRow
	Warnings    []string
}

// HoldingRow is one line of the holdings table.
type HoldingRow struct {
	Ticker string
	Units  int64
	Price  string // in the holding currency
	Value  string // in the portfolio currency
	Weight string
	Target string
	Drift  string
}

// NewPortfolio builds the view of p. weights must come from Rebalancer.Weights on p.
func NewPortfolio(p *investool.Portfolio, weights []investool.Weight, warnings []error) *Portfolio {
	v := &Portfolio{
		Name:        p.Name(),
		Currency:    p.Currency(),
		Total:       investool.M(p.TotalValue(), p.Currency()).String(),
		TargetTotal: investool.P(p.TotalTarget()).String(),
		Holdings:    make([]HoldingRow, 0, p.Len()),
		Warnings:    messages(warnings),
	}
	for i, h := range p.Holdings() {
		row := HoldingRow{
			Ticker: h.Ticker,
			Units:  h.Units,
			Price:  "n/a",
			Target: investool.P(h.Target).String(),
		}
		if h.Currency != "" {
			row.Price = investool.M(h.Price, h.Currency).String()
		}
		if i < len(weights) && weights[i].Ticker == h.Ticker {
			w := weights[i]
			row.Value = investool.M(w.Value, p.Currency()).String()
			row.Weight = investool.P(w.Current).String()
			row.Drift = investool.P(w.Drift()).SignedString()
		}
		v.Holdings = append(v.Holdings, row)
	}
	return v
}

func messages(errs []error) []string {
	m := make([]string, 0, len(errs))
	for _, err := range errs {
		m = append(m, err.Error())
	}
	return m
}
