package investool

import (
	"fmt"

	"github.com/etnz/investool/date"
	"github.com/shopspring/decimal"
)

// Snapshot is the serializable state of a portfolio, as stored by a Storage.
type Snapshot struct {
	Name     string            `json:"name"`
	Currency string            `json:"currency"`
	On       date.Date         `json:"on"`
	Total    decimal.Decimal   `json:"total"`
	Holdings []SnapshotHolding `json:"holdings"`
}

// SnapshotHolding is the serializable state of a holding.
type SnapshotHolding struct {
	Ticker   string          `json:"ticker"`
	Units    int64           `json:"units"`
	Target   decimal.Decimal `json:"target"`
	Price    decimal.Decimal `json:"price"`
	Currency string          `json:"currency,omitempty"`
}

// Snapshot returns a copy of the portfolio state dated today.
func (p *Portfolio) Snapshot() *Snapshot {
	s := &Snapshot{
		Name:     p.name,
		Currency: p.currency,
		On:       date.Today(),
		Total:    p.total,
		Holdings: make([]SnapshotHolding, 0, len(p.holdings)),
	}
	for _, h := range p.holdings {
		s.Holdings = append(s.Holdings, SnapshotHolding{
			Ticker:   h.Ticker,
			Units:    h.Units,
			Target:   h.Target,
			Price:    h.Price,
			Currency: h.Currency,
		})
	}
	return s
}

// FromSnapshot rebuilds a portfolio from a snapshot, validating every holding.
//
// The total value is restored as saved; it stays stale until the next Revalue or Refresh.
func FromSnapshot(s *Snapshot) (*Portfolio, error) {
	p, err := NewPortfolio(s.Name, s.Currency)
	if err != nil {
		return nil, err
	}
	for _, sh := range s.Holdings {
		h := Holding{
			Ticker:   sh.Ticker,
			Price:    sh.Price,
			Currency: sh.Currency,
			Units:    sh.Units,
			Target:   sh.Target,
		}
		if err := p.Add(h); err != nil {
			return nil, fmt.Errorf("portfolio %q: %w", s.Name, err)
		}
	}
	p.total = s.Total
	return p, nil
}
