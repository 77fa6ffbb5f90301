package investool

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Holding is a single position of a portfolio.
type Holding struct {
	Ticker   string
	Price    decimal.Decimal // last known price, in Currency
	Currency string
	Units    int64
	Target   decimal.Decimal // target fraction of the portfolio value, within [0,1]
}

// NewHolding creates a holding with no known price yet.
func NewHolding(ticker string, units int64, target decimal.Decimal) Holding {
	return Holding{Ticker: ticker, Price: decimal.Zero, Units: units, Target: target}
}

// Value returns the market value of the holding in its own currency.
//
// It is always recomputed from Price and Units.
func (h Holding) Value() decimal.Decimal {
	return h.Price.Mul(decimal.NewFromInt(h.Units))
}

func (h Holding) String() string {
	return fmt.Sprintf("%s %d x %s %s (target %s)", h.Ticker, h.Units, h.Price, h.Currency, P(h.Target))
}

// Validate checks all holding fields. An empty currency is accepted, it means the price is not known yet.
func (h Holding) Validate() error {
	if err := ValidateTicker(h.Ticker); err != nil {
		return err
	}
	if h.Currency != "" {
		if err := ValidateCurrency(h.Currency); err != nil {
			return fmt.Errorf("%s: %w", h.Ticker, err)
		}
	}
	if h.Price.IsNegative() {
		return fmt.Errorf("%s: price %s cannot be negative: %w", h.Ticker, h.Price, ErrRange)
	}
	if h.Units < 0 {
		return fmt.Errorf("%s: units %d cannot be negative: %w", h.Ticker, h.Units, ErrRange)
	}
	if !P(h.Target).InRange() {
		return fmt.Errorf("%s: target %s must be within [0,1]: %w", h.Ticker, h.Target, ErrRange)
	}
	return nil
}
