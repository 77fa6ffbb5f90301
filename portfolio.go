package investool

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/shopspring/decimal"
)

// DefaultCurrency is the currency of a portfolio created without one.
const DefaultCurrency = "CAD"

// Portfolio is a named set of holdings, unique by ticker.
//
// The order of holdings is the insertion order. It is used for display and
// to break ties, but never changes the result of a computation.
type Portfolio struct {
	name     string
	currency string
	holdings []Holding
	total    decimal.Decimal // cached by Revalue, stale after any mutation
}

// NewPortfolio returns an empty portfolio. An empty currency means DefaultCurrency.
func NewPortfolio(name, currency string) (*Portfolio, error) {
	if currency == "" {
		currency = DefaultCurrency
	}
	if strings.TrimSpace(name) == "" {
		return nil, fmt.Errorf("portfolio name is missing: %w", ErrInvalid)
	}
	if err := ValidateCurrency(currency); err != nil {
		return nil, err
	}
	return &Portfolio{
		name:     name,
		currency: currency,
		holdings: make([]Holding, 0),
		total:    decimal.Zero,
	}, nil
}

func (p *Portfolio) Name() string     { return p.name }
func (p *Portfolio) Currency() string { return p.currency }

// TotalValue returns the value computed by the last Revalue or Refresh, in the portfolio currency.
func (p *Portfolio) TotalValue() decimal.Decimal { return p.total }

// Rename changes the portfolio name.
func (p *Portfolio) Rename(name string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("portfolio name is missing: %w", ErrInvalid)
	}
	p.name = name
	return nil
}

// Len returns the number of holdings.
func (p *Portfolio) Len() int { return len(p.holdings) }

// Holdings returns a copy of all holdings in insertion order.
func (p *Portfolio) Holdings() []Holding { return slices.Clone(p.holdings) }

// Tickers returns all tickers in insertion order.
func (p *Portfolio) Tickers() []string {
	tickers := make([]string, 0, len(p.holdings))
	for _, h := range p.holdings {
		tickers = append(tickers, h.Ticker)
	}
	return tickers
}

func (p *Portfolio) index(ticker string) int {
	return slices.IndexFunc(p.holdings, func(h Holding) bool { return h.Ticker == ticker })
}

// lookup returns the index of ticker or an error matching ErrNotFound.
func (p *Portfolio) lookup(ticker string) (int, error) {
	i := p.index(ticker)
	if i < 0 {
		return -1, fmt.Errorf("ticker %q is not in portfolio %q: %w", ticker, p.name, ErrNotFound)
	}
	return i, nil
}

// Holding returns a copy of the holding for ticker.
func (p *Portfolio) Holding(ticker string) (Holding, error) {
	i, err := p.lookup(ticker)
	if err != nil {
		return Holding{}, err
	}
	return p.holdings[i], nil
}

// Add appends a new holding.
func (p *Portfolio) Add(h Holding) error {
	if err := h.Validate(); err != nil {
		return err
	}
	if p.index(h.Ticker) >= 0 {
		return fmt.Errorf("ticker %q is already in portfolio %q: %w", h.Ticker, p.name, ErrExists)
	}
	p.holdings = append(p.holdings, h)
	return nil
}

// Remove deletes the holding for ticker.
func (p *Portfolio) Remove(ticker string) error {
	i, err := p.lookup(ticker)
	if err != nil {
		return err
	}
	p.holdings = slices.Delete(p.holdings, i, i+1)
	return nil
}

// Buy adds quantity units to ticker and returns the new unit count.
func (p *Portfolio) Buy(ticker string, quantity int64) (int64, error) {
	if quantity < 0 {
		return 0, fmt.Errorf("cannot buy %d units of %s: %w", quantity, ticker, ErrRange)
	}
	i, err := p.lookup(ticker)
	if err != nil {
		return 0, err
	}
	p.holdings[i].Units += quantity
	return p.holdings[i].Units, nil
}

// Sell removes quantity units from ticker and returns the new unit count.
//
// Selling more than held leaves 0 units; it is not an error.
func (p *Portfolio) Sell(ticker string, quantity int64) (int64, error) {
	if quantity < 0 {
		return 0, fmt.Errorf("cannot sell %d units of %s: %w", quantity, ticker, ErrRange)
	}
	i, err := p.lookup(ticker)
	if err != nil {
		return 0, err
	}
	h := &p.holdings[i]
	h.Units = max(h.Units-quantity, 0)
	return h.Units, nil
}

// SetTarget changes the target fraction of ticker. percent must be within [0,1].
func (p *Portfolio) SetTarget(ticker string, percent decimal.Decimal) error {
	if !P(percent).InRange() {
		return fmt.Errorf("target %s for %s must be within [0,1]: %w", percent, ticker, ErrRange)
	}
	i, err := p.lookup(ticker)
	if err != nil {
		return err
	}
	p.holdings[i].Target = percent
	return nil
}

// TotalTarget returns the sum of all holding targets.
func (p *Portfolio) TotalTarget() decimal.Decimal {
	sum := decimal.Zero
	for _, h := range p.holdings {
		sum = sum.Add(h.Target)
	}
	return sum
}

// ValidateTargets checks that targets do not add up to more than 100%.
func (p *Portfolio) ValidateTargets() error {
	if total := p.TotalTarget(); total.GreaterThan(decimal.NewFromInt(1)) {
		return fmt.Errorf("targets add up to %s: %w", P(total), ErrRange)
	}
	return nil
}

// Refresh fetches the current price of every holding and then revalues the portfolio.
//
// A holding whose price is unavailable keeps its last known price and is
// reported as a *DegradedPriceError. Refresh never stops on the first failure.
func (p *Portfolio) Refresh(ctx context.Context, prices PriceSource, fx FxSource) []error {
	var warnings []error
	for i := range p.holdings {
		h := &p.holdings[i]
		q, err := prices.CurrentPrice(ctx, h.Ticker)
		if err == nil {
			err = validateQuote(q)
		}
		if err != nil {
			warnings = append(warnings, &DegradedPriceError{Ticker: h.Ticker, Err: err})
			continue
		}
		h.Price = q.Price
		h.Currency = q.Currency
	}
	return append(warnings, p.Revalue(ctx, fx)...)
}

func validateQuote(q Quote) error {
	if q.Price.IsNegative() {
		return fmt.Errorf("negative price %s: %w", q.Price, ErrRange)
	}
	return ValidateCurrency(q.Currency)
}

// Revalue recomputes the total value from the current holding prices, without fetching them.
func (p *Portfolio) Revalue(ctx context.Context, fx FxSource) []error {
	var warnings []error
	total := decimal.Zero
	for _, h := range p.holdings {
		r, err := p.rate(ctx, fx, h)
		if err != nil {
			warnings = append(warnings, err)
		}
		total = total.Add(h.Value().Mul(r))
	}
	p.total = total
	return warnings
}

// rate returns the rate converting h's currency into the portfolio currency.
//
// On failure it returns 1 and a *DegradedPriceError.
func (p *Portfolio) rate(ctx context.Context, fx FxSource, h Holding) (decimal.Decimal, error) {
	if h.Currency == "" || h.Currency == p.currency {
		return decimal.NewFromInt(1), nil
	}
	var (
		r   decimal.Decimal
		err error
	)
	if fx == nil {
		err = errors.New("no FX source configured")
	} else {
		r, err = fx.Rate(ctx, h.Currency, p.currency)
		if err == nil && !r.IsPositive() {
			err = fmt.Errorf("rate %s is not positive: %w", r, ErrRange)
		}
	}
	if err != nil {
		return decimal.NewFromInt(1), &DegradedPriceError{Ticker: h.Ticker, From: h.Currency, To: p.currency, Err: err}
	}
	return r, nil
}
