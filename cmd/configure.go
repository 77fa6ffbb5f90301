package cmd

import (
	"context"
	"flag"

	"github.com/etnz/investool/config"
	"github.com/google/subcommands"
)

type configureCmd struct {
	currency          string
	source            string
	quoteURL          string
	quotePricePath    string
	quoteCurrencyPath string
	dsn               string
	logLevel          string
	forgetKey         bool
}

func (*configureCmd) Name() string     { return "configure" }
func (*configureCmd) Synopsis() string { return "write the configuration file" }
func (*configureCmd) Usage() string {
	return `investool [-eodhd-api-key <key>] [-portfolio-dir <dir>] configure [flags]

  Updates the configuration file with the given values. The EODHD API key
  is stored in the OS keyring, never in the file.
`
}

func (c *configureCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.currency, "currency", "", "Default currency of new portfolios")
	f.StringVar(&c.source, "source", "", "Price source: eodhd, quote or offline")
	f.StringVar(&c.quoteURL, "quote-url", "", "URL of the quote source, with {ticker} in it")
	f.StringVar(&c.quotePricePath, "quote-price-path", "", "JSONPath of the price in the quote response")
	f.StringVar(&c.quoteCurrencyPath, "quote-currency-path", "", "JSONPath of the currency in the quote response")
	f.StringVar(&c.dsn, "dsn", "", "Database to store portfolios in (postgres DSN or sqlite:<file>)")
	f.StringVar(&c.logLevel, "log-level", "", "Log level")
	f.BoolVar(&c.forgetKey, "forget-key", false, "Remove the EODHD API key from the keyring")
}

func (c *configureCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	path, err := resolveConfigPath()
	if err != nil {
		return fail("locating configuration", err)
	}
	cfg, err := config.Load(path)
	if err != nil {
		return fail("loading configuration", err)
	}

	for _, set := range []struct {
		dst *string
		v   string
	}{
		{&cfg.Currency, c.currency},
		{&cfg.Source, c.source},
		{&cfg.QuoteURL, c.quoteURL},
		{&cfg.QuotePricePath, c.quotePricePath},
		{&cfg.QuoteCurrencyPath, c.quoteCurrencyPath},
		{&cfg.DSN, c.dsn},
		{&cfg.LogLevel, c.logLevel},
		{&cfg.PortfolioDir, *portfolioDir},
	} {
		if set.v != "" {
			*set.dst = set.v
		}
	}
	if err := cfg.Validate(); err != nil {
		return fail("validating configuration", err)
	}

	log := newLogger(cfg.LogLevel)
	switch {
	case c.forgetKey:
		if err := config.DeleteEODHDAPIKey(); err != nil {
			return fail("deleting API key", err)
		}
		log.Info("EODHD API key removed from the keyring")
	case *eodhdAPIKey != "":
		if err := config.StoreEODHDAPIKey(*eodhdAPIKey); err != nil {
			return fail("storing API key", err)
		}
		// the key lives in the keyring only.
		cfg.EODHDKey = ""
		log.Info("EODHD API key stored in the keyring")
	}

	if err := config.Save(path, cfg); err != nil {
		return fail("saving configuration", err)
	}
	log.WithField("path", path).Info("configuration saved")
	return subcommands.ExitSuccess
}
