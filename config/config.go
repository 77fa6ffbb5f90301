// Package config loads and saves the investool configuration file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/etnz/investool"
	"github.com/etnz/investool/storage"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

const (
	// AppName names the configuration directory.
	AppName = "investool"
	// EnvPrefix prefixes environment variables overriding the file, e.g. INVESTOOL_CURRENCY.
	EnvPrefix = "INVESTOOL"
)

// Price sources.
const (
	SourceEODHD   = "eodhd"   // EODHD real-time API
	SourceQuote   = "quote"   // any JSON endpoint, see quote.JSONPath
	SourceOffline = "offline" // last known prices only
)

var sources = []string{SourceEODHD, SourceQuote, SourceOffline}

// Config holds the CLI configuration.
type Config struct {
	PortfolioDir      string `mapstructure:"portfolio_dir" yaml:"portfolio_dir"`
	Currency          string `mapstructure:"currency" yaml:"currency"`
	Source            string `mapstructure:"source" yaml:"source"`
	EODHDKey          string `mapstructure:"eodhd_api_key" yaml:"eodhd_api_key,omitempty"`
	QuoteURL          string `mapstructure:"quote_url" yaml:"quote_url,omitempty"`
	QuotePricePath    string `mapstructure:"quote_price_path" yaml:"quote_price_path,omitempty"`
	QuoteCurrencyPath string `mapstructure:"quote_currency_path" yaml:"quote_currency_path,omitempty"`
	DSN               string `mapstructure:"dsn" yaml:"dsn,omitempty"` // SQL storage instead of PortfolioDir when set
	LogLevel          string `mapstructure:"log_level" yaml:"log_level"`
}

// Default returns the configuration used when there is no file.
func Default() *Config {
	return &Config{
		PortfolioDir: storage.DefaultDir,
		Currency:     investool.DefaultCurrency,
		Source:       SourceEODHD,
		LogLevel:     logrus.InfoLevel.String(),
	}
}

// DefaultPath returns $XDG_CONFIG_HOME/investool/config.yaml or its OS equivalent.
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, AppName, "config.yaml"), nil
}

// Load reads the configuration at path, then applies INVESTOOL_* environment variables.
//
// A missing file is not an error: defaults are used.
func Load(path string) (*Config, error) {
	v := viper.New()
	def := Default()
	v.SetDefault("portfolio_dir", def.PortfolioDir)
	v.SetDefault("currency", def.Currency)
	v.SetDefault("source", def.Source)
	v.SetDefault("eodhd_api_key", "")
	v.SetDefault("quote_url", "")
	v.SetDefault("quote_price_path", "")
	v.SetDefault("quote_currency_path", "")
	v.SetDefault("dsn", "")
	v.SetDefault("log_level", def.LogLevel)

	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()

	if _, err := os.Stat(path); err == nil {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("could not read config %q: %w", path, err)
		}
	} else if !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("could not decode config %q: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config %q: %w", path, err)
	}
	return &cfg, nil
}

// Validate checks the enumerated fields.
func (c *Config) Validate() error {
	if err := investool.ValidateCurrency(c.Currency); err != nil {
		return err
	}
	if !slices.Contains(sources, c.Source) {
		return fmt.Errorf("source %q must be one of %s: %w", c.Source, strings.Join(sources, ", "), investool.ErrInvalid)
	}
	if _, err := logrus.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("log level: %w", err)
	}
	if c.Source == SourceQuote && (c.QuoteURL == "" || c.QuotePricePath == "") {
		return fmt.Errorf("source %q needs quote_url and quote_price_path: %w", SourceQuote, investool.ErrInvalid)
	}
	return nil
}

// Save writes cfg to path as YAML, readable by the owner only.
func Save(path string, cfg *Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	content, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}
	return os.WriteFile(path, content, 0o600)
}
