package investool

import (
	"context"

	"github.com/shopspring/decimal"
)

// Quote is the latest market price of a ticker, in the currency it trades in.
type Quote struct {
	Price    decimal.Decimal
	Currency string
}

// PriceSource provides the latest price of a ticker.
//
// Any error means the price is unavailable.
type PriceSource interface {
	CurrentPrice(ctx context.Context, ticker string) (Quote, error)
}

// FxSource provides the rate to convert one unit of 'from' currency into 'to' currency.
type FxSource interface {
	Rate(ctx context.Context, from, to string) (decimal.Decimal, error)
}

// Storage persists portfolio snapshots by name.
type Storage interface {
	// Load returns the snapshot saved under name, or an error matching ErrNotFound.
	Load(ctx context.Context, name string) (*Snapshot, error)
	// Save stores the snapshot under name. If a snapshot already exists and
	// overwrite is false, nothing is written and Save returns false.
	Save(ctx context.Context, name string, s *Snapshot, overwrite bool) (bool, error)
}
