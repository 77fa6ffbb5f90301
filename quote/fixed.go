package quote

import (
	"context"
	"fmt"

	"github.com/etnz/investool"
	"github.com/shopspring/decimal"
)

// Fixed is an in-memory PriceSource and FxSource.
//
// Unknown tickers and pairs are unavailable. A rate is inverted when only
// the reverse pair is known.
type Fixed struct {
	prices map[string]investool.Quote
	rates  map[[2]string]decimal.Decimal
}

// NewFixed returns an empty Fixed source.
func NewFixed() *Fixed {
	return &Fixed{
		prices: make(map[string]investool.Quote),
		rates:  make(map[[2]string]decimal.Decimal),
	}
}

// SetPrice records the price of ticker.
func (f *Fixed) SetPrice(ticker string, price decimal.Decimal, currency string) *Fixed {
	f.prices[ticker] = investool.Quote{Price: price, Currency: currency}
	return f
}

// SetRate records how many units of to one unit of from is worth.
func (f *Fixed) SetRate(from, to string, rate decimal.Decimal) *Fixed {
	f.rates[[2]string{from, to}] = rate
	return f
}

// FromPortfolio records the last known price of every holding of p.
func (f *Fixed) FromPortfolio(p *investool.Portfolio) *Fixed {
	for _, h := range p.Holdings() {
		if h.Currency != "" {
			f.SetPrice(h.Ticker, h.Price, h.Currency)
		}
	}
	return f
}

func (f *Fixed) CurrentPrice(_ context.Context, ticker string) (investool.Quote, error) {
	q, ok := f.prices[ticker]
	if !ok {
		return investool.Quote{}, fmt.Errorf("no price for %q: %w", ticker, investool.ErrNotFound)
	}
	return q, nil
}

func (f *Fixed) Rate(_ context.Context, from, to string) (decimal.Decimal, error) {
	if from == to {
		return decimal.NewFromInt(1), nil
	}
	if r, ok := f.rates[[2]string{from, to}]; ok {
		return r, nil
	}
	if r, ok := f.rates[[2]string{to, from}]; ok && !r.IsZero() {
		return decimal.NewFromInt(1).Div(r), nil
	}
	return decimal.Zero, fmt.Errorf("no rate for %s/%s: %w", from, to, investool.ErrNotFound)
}
