// Package cmd implements the investool subcommands.
package cmd

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/etnz/investool"
	"github.com/etnz/investool/config"
	"github.com/etnz/investool/date"
	"github.com/etnz/investool/eodhd"
	"github.com/etnz/investool/quote"
	"github.com/etnz/investool/storage"
	"github.com/etnz/investool/storage/sqlstore"
	"github.com/google/subcommands"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"golang.org/x/term"
)

// as a CLI application, it has a very short lived lifecycle, so it is ok to use global variables.

var (
	configPath   = flag.String("config", "", "Path to the configuration file (default $XDG_CONFIG_HOME/investool/config.yaml)")
	portfolioDir = flag.String("portfolio-dir", "", "Directory of the portfolio files, overrides the configuration")
	eodhdAPIKey  = flag.String("eodhd-api-key", "", "EODHD API key, overrides the environment, the configuration and the keyring")
	// Verbose forces debug logs.
	Verbose = flag.Bool("v", false, "Verbose output")
)

// stdout and stdin are replaced in tests.
var (
	stdout io.Writer = os.Stdout
	stdin  io.Reader = os.Stdin
)

// store is the storage the commands need.
type store interface {
	investool.Storage
	List(ctx context.Context) ([]string, error)
	Delete(ctx context.Context, name string) error
}

// app holds what a command needs, built from flags and configuration.
type app struct {
	cfg   *config.Config
	log   *logrus.Logger
	store store
	close func() error
}

// resolveConfigPath returns the -config flag or the default path.
func resolveConfigPath() (string, error) {
	if *configPath != "" {
		return *configPath, nil
	}
	return config.DefaultPath()
}

// newApp loads the configuration and opens the storage.
func newApp() (*app, error) {
	path, err := resolveConfigPath()
	if err != nil {
		return nil, err
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if *portfolioDir != "" {
		cfg.PortfolioDir = *portfolioDir
		cfg.DSN = ""
	}
	a := &app{cfg: cfg, log: newLogger(cfg.LogLevel), close: func() error { return nil }}

	if cfg.DSN != "" {
		s, err := sqlstore.Open(cfg.DSN)
		if err != nil {
			return nil, err
		}
		a.store, a.close = s, s.Close
		a.log.WithField("dsn", redact(cfg.DSN)).Debug("using sql storage")
	} else {
		a.store = storage.NewDir(cfg.PortfolioDir)
		a.log.WithField("dir", cfg.PortfolioDir).Debug("using directory storage")
	}
	return a, nil
}

// redact hides the password of a postgres DSN.
func redact(dsn string) string {
	fields := strings.Fields(dsn)
	for i, f := range fields {
		if strings.HasPrefix(f, "password=") {
			fields[i] = "password=***"
		}
	}
	return strings.Join(fields, " ")
}

func newLogger(level string) *logrus.Logger {
	log := logrus.New()
	log.SetOutput(os.Stderr)
	log.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true})
	if lvl, err := logrus.ParseLevel(level); err == nil {
		log.SetLevel(lvl)
	}
	if *Verbose {
		log.SetLevel(logrus.DebugLevel)
	}
	return log
}

// warn logs warnings returned by the core.
func (a *app) warn(warnings []error) {
	for _, w := range warnings {
		entry := a.log.WithError(w)
		var dpe *investool.DegradedPriceError
		if errors.As(w, &dpe) {
			entry = entry.WithField("ticker", dpe.Ticker)
			if dpe.From != "" {
				entry = entry.WithFields(logrus.Fields{"from": dpe.From, "to": dpe.To})
			}
		}
		entry.Warn("degraded")
	}
}

// eodhdClient returns an EODHD client when an API key can be found.
func (a *app) eodhdClient() (*eodhd.Client, error) {
	key, err := a.cfg.EODHDAPIKey(*eodhdAPIKey)
	if err != nil {
		return nil, err
	}
	return eodhd.New(key, eodhd.WithLogger(a.log)), nil
}

// prices returns the configured price source for p.
//
// When the remote source cannot be used, the last known prices of p are used instead and a warning is logged.
func (a *app) prices(p *investool.Portfolio) investool.PriceSource {
	switch a.cfg.Source {
	case config.SourceEODHD:
		c, err := a.eodhdClient()
		if err == nil {
			return c
		}
		a.log.WithError(err).Warn("using last known prices")
	case config.SourceQuote:
		src, err := quote.NewJSONPath(a.cfg.QuoteURL, a.cfg.QuotePricePath, a.cfg.QuoteCurrencyPath, p.Currency(), nil, a.log)
		if err == nil {
			return src
		}
		a.log.WithError(err).Warn("using last known prices")
	}
	return quote.NewFixed().FromPortfolio(p)
}

// fx returns EODHD as the exchange rate source, or nil when no key is available.
//
// A nil source converts at 1 and reports every foreign holding as degraded.
func (a *app) fx() investool.FxSource {
	if a.cfg.Source == config.SourceOffline {
		return nil
	}
	c, err := a.eodhdClient()
	if err != nil {
		a.log.WithError(err).Debug("no exchange rates")
		return nil
	}
	return c
}

// load reads the portfolio name from the storage.
func (a *app) load(ctx context.Context, name string) (*investool.Portfolio, error) {
	s, err := a.store.Load(ctx, name)
	if err != nil {
		return nil, err
	}
	p, err := investool.FromSnapshot(s)
	if err != nil {
		return nil, err
	}
	// stored portfolios can be renamed on disk.
	if p.Name() != name {
		if err := p.Rename(name); err != nil {
			return nil, err
		}
	}
	return p, nil
}

// save stores p under its name and returns the name used.
//
// When overwrite is false and the name is taken, p is saved as "<name>-<YYYY-MM-DD>" instead.
func (a *app) save(ctx context.Context, p *investool.Portfolio, overwrite bool) (string, error) {
	snap := p.Snapshot()
	saved, err := a.store.Save(ctx, p.Name(), snap, overwrite)
	if err != nil {
		return "", err
	}
	if saved {
		return p.Name(), nil
	}
	dated := fmt.Sprintf("%s-%s", p.Name(), date.Today())
	snap.Name = dated
	saved, err = a.store.Save(ctx, dated, snap, false)
	if err != nil {
		return "", err
	}
	if !saved {
		return "", fmt.Errorf("portfolio %q and %q: %w", p.Name(), dated, investool.ErrExists)
	}
	a.log.WithFields(logrus.Fields{"name": p.Name(), "saved-as": dated}).Warn("portfolio exists, saved under a dated name")
	return dated, nil
}

// refresh updates the prices of p and logs the warnings.
func (a *app) refresh(ctx context.Context, p *investool.Portfolio, fx investool.FxSource) {
	a.warn(p.Refresh(ctx, a.prices(p), fx))
}

// printMarkdown renders md for the terminal, or prints it as is when stdout is not a terminal.
func printMarkdown(md string) {
	if !isTerminal(stdout) {
		fmt.Fprint(stdout, md)
		return
	}
	out, err := glamour.Render(md, "auto")
	if err != nil {
		fmt.Fprint(stdout, md)
		return
	}
	fmt.Fprint(stdout, out)
}

func isTerminal(v any) bool {
	f, ok := v.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// errNotInteractive is returned by confirm when nobody can answer.
var errNotInteractive = errors.New("stdin is not a terminal, use -y to confirm")

// confirm asks a yes/no question on stdin.
func confirm(question string) (bool, error) {
	if !isTerminal(stdin) {
		return false, errNotInteractive
	}
	fmt.Fprintf(stdout, "%s [y/N]: ", question)
	answer, err := bufio.NewReader(stdin).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return false, err
	}
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "y", "yes":
		return true, nil
	}
	return false, nil
}

// fail prints err and returns the matching exit status.
func fail(what string, err error) subcommands.ExitStatus {
	fmt.Fprintf(os.Stderr, "Error %s: %v\n", what, err)
	if errors.Is(err, investool.ErrInvalid) || errors.Is(err, investool.ErrRange) {
		return subcommands.ExitUsageError
	}
	return subcommands.ExitFailure
}

// parsePercent reads "25%" as 0.25 and "0.25" as is.
func parsePercent(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if v, ok := strings.CutSuffix(s, "%"); ok {
		d, err := decimal.NewFromString(strings.TrimSpace(v))
		if err != nil {
			return decimal.Zero, fmt.Errorf("invalid percent %q: %w", s, investool.ErrInvalid)
		}
		return d.Div(decimal.NewFromInt(100)), nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid percent %q: %w", s, investool.ErrInvalid)
	}
	return d, nil
}

// parseAmount reads a non negative amount of cash, an empty string is zero.
func parseAmount(s string) (decimal.Decimal, error) {
	if strings.TrimSpace(s) == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid amount %q: %w", s, investool.ErrInvalid)
	}
	if d.IsNegative() {
		return decimal.Zero, fmt.Errorf("amount %s cannot be negative: %w", d, investool.ErrRange)
	}
	return d, nil
}

// required checks that every named flag value is set.
func required(flags ...string) error {
	for i := 0; i+1 < len(flags); i += 2 {
		if strings.TrimSpace(flags[i+1]) == "" {
			return fmt.Errorf("flag -%s is required: %w", flags[i], investool.ErrInvalid)
		}
	}
	return nil
}
