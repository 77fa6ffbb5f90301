package config

import (
	"errors"
	"os"

	"github.com/zalando/go-keyring"
)

const (
	// KeyringService is the keyring service name for storing secrets.
	KeyringService = "investool"
	// KeyringEODHD is the keyring user holding the EODHD API key.
	KeyringEODHD = "eodhd_api_key"
	// EnvEODHDKey is the environment variable for the EODHD API key.
	EnvEODHDKey = "EODHD_API_KEY"
)

// ErrNoAPIKey is returned when no EODHD API key is configured anywhere.
var ErrNoAPIKey = errors.New("no EODHD API key, run 'investool configure -eodhd-api-key <key>'")

// EODHDAPIKey returns the EODHD API key from, in order, flagValue, the
// EODHD_API_KEY environment variable, the config file and the OS keyring.
func (c *Config) EODHDAPIKey(flagValue string) (string, error) {
	if flagValue != "" {
		return flagValue, nil
	}
	if v := os.Getenv(EnvEODHDKey); v != "" {
		return v, nil
	}
	if c.EODHDKey != "" {
		return c.EODHDKey, nil
	}
	secret, err := keyring.Get(KeyringService, KeyringEODHD)
	if errors.Is(err, keyring.ErrNotFound) {
		return "", ErrNoAPIKey
	}
	if err != nil {
		return "", err
	}
	return secret, nil
}

// StoreEODHDAPIKey saves key in the OS keyring.
func StoreEODHDAPIKey(key string) error {
	return keyring.Set(KeyringService, KeyringEODHD, key)
}

// DeleteEODHDAPIKey removes the key from the OS keyring, if any.
func DeleteEODHDAPIKey() error {
	err := keyring.Delete(KeyringService, KeyringEODHD)
	if errors.Is(err, keyring.ErrNotFound) {
		return nil // Deleting non-existent key is not an error
	}
	return err
}
