package investool

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when a ticker or a stored portfolio does not exist.
	ErrNotFound = errors.New("not found")
	// ErrRange is returned when a percent or a quantity is outside its allowed bounds.
	ErrRange = errors.New("out of range")
	// ErrExists is returned when adding a ticker that is already held.
	ErrExists = errors.New("already exists")
	// ErrInvalid is returned for malformed tickers, currencies or names.
	ErrInvalid = errors.New("invalid")
	// ErrDegradedPrice marks a price or a rate that could not be fetched and was replaced by a fallback.
	ErrDegradedPrice = errors.New("degraded price")
)

// DegradedPriceError reports a price or FX lookup that failed.
//
// The computation that produced it carried on with a documented fallback
// (previous price, or a 1:1 rate), so any number derived from it is approximate.
type DegradedPriceError struct {
	Ticker string
	From   string // currency pair, empty for a price lookup
	To     string
	Err    error
}

func (e *DegradedPriceError) Error() string {
	if e.From != "" {
		return fmt.Sprintf("%s: no %s/%s rate, using 1:1: %v", e.Ticker, e.From, e.To, e.Err)
	}
	return fmt.Sprintf("%s: price unavailable, keeping last known price: %v", e.Ticker, e.Err)
}

func (e *DegradedPriceError) Unwrap() error { return e.Err }

// Is makes any DegradedPriceError match ErrDegradedPrice.
func (e *DegradedPriceError) Is(target error) bool { return target == ErrDegradedPrice }
