package investool

import (
	"fmt"
	"regexp"

	"github.com/Rhymond/go-money"
)

// tickerRegex checks for letters, optionally followed by a dot and an exchange suffix (e.g. ZAG.TO).
var tickerRegex = regexp.MustCompile(`^[A-Za-z]+(\.[A-Za-z]+)?$`)

// currencyCodeRegex checks for the format: 3 uppercase letters.
var currencyCodeRegex = regexp.MustCompile(`^[A-Z]{3}$`)

// ValidateTicker checks that ticker is a plausible market ticker.
func ValidateTicker(ticker string) error {
	if ticker == "" {
		return fmt.Errorf("ticker is missing: %w", ErrInvalid)
	}
	if !tickerRegex.MatchString(ticker) {
		return fmt.Errorf("ticker %q must be letters with an optional '.SUFFIX': %w", ticker, ErrInvalid)
	}
	return nil
}

// ValidateCurrency checks that cur is a known ISO 4217 code.
func ValidateCurrency(cur string) error {
	if !currencyCodeRegex.MatchString(cur) {
		return fmt.Errorf("currency %q must be 3 uppercase letters: %w", cur, ErrInvalid)
	}
	if money.GetCurrency(cur) == nil {
		return fmt.Errorf("currency %q is not an ISO 4217 code: %w", cur, ErrInvalid)
	}
	return nil
}
