package cmd

import (
	"bytes"
	"context"
	"flag"
	"os"
	"path/filepath"
	"testing"

	"github.com/etnz/investool"
	"github.com/etnz/investool/config"
	"github.com/etnz/investool/date"
	"github.com/etnz/investool/storage"
	"github.com/google/subcommands"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zalando/go-keyring"
)

// setup points the global flags to a temporary workspace using last known prices only.
func setup(t *testing.T) *storage.Dir {
	t.Helper()
	keyring.MockInit()
	tmp := t.TempDir()
	t.Setenv("INVESTOOL_SOURCE", config.SourceOffline)
	t.Setenv(config.EnvEODHDKey, "")

	oldConfig, oldDir, oldStdin := *configPath, *portfolioDir, stdin
	*configPath = filepath.Join(tmp, "config.yaml")
	*portfolioDir = filepath.Join(tmp, "portfolios")
	stdin = &bytes.Buffer{}
	t.Cleanup(func() { *configPath, *portfolioDir, stdin = oldConfig, oldDir, oldStdin })

	return storage.NewDir(*portfolioDir)
}

// run executes a command line and returns its output.
func run(t *testing.T, args ...string) (string, subcommands.ExitStatus) {
	t.Helper()
	fs := flag.NewFlagSet("investool", flag.ContinueOnError)
	commander := subcommands.NewCommander(fs, "investool")
	Register(commander)
	require.NoError(t, fs.Parse(args))

	var out bytes.Buffer
	old := stdout
	stdout = &out
	defer func() { stdout = old }()
	status := commander.Execute(context.Background())
	return out.String(), status
}

// seed stores the msft, appl, zag.to portfolio priced 10, 20 and 30 with 10 units each.
func seed(t *testing.T, dir *storage.Dir, name string) {
	t.Helper()
	p, err := investool.NewPortfolio(name, "CAD")
	require.NoError(t, err)
	for _, h := range []investool.Holding{
		{Ticker: "msft", Price: decimal.NewFromInt(10), Currency: "CAD", Units: 10, Target: decimal.RequireFromString("0.5")},
		{Ticker: "appl", Price: decimal.NewFromInt(20), Currency: "CAD", Units: 10, Target: decimal.RequireFromString("0.25")},
		{Ticker: "zag.to", Price: decimal.NewFromInt(30), Currency: "CAD", Units: 10, Target: decimal.RequireFromString("0.25")},
	} {
		require.NoError(t, p.Add(h))
	}
	p.Revalue(context.Background(), nil)
	_, err = dir.Save(context.Background(), name, p.Snapshot(), true)
	require.NoError(t, err)
}

// units loads name and returns its units by ticker.
func units(t *testing.T, dir *storage.Dir, name string) map[string]int64 {
	t.Helper()
	s, err := dir.Load(context.Background(), name)
	require.NoError(t, err)
	m := make(map[string]int64)
	for _, h := range s.Holdings {
		m[h.Ticker] = h.Units
	}
	return m
}

func TestCreateAndList(t *testing.T) {
	dir := setup(t)

	_, status := run(t, "create", "-n", "tfsa")
	require.Equal(t, subcommands.ExitSuccess, status)

	s, err := dir.Load(context.Background(), "tfsa")
	require.NoError(t, err)
	assert.Equal(t, investool.DefaultCurrency, s.Currency)
	assert.Empty(t, s.Holdings)

	_, status = run(t, "create", "-n", "tfsa")
	assert.Equal(t, subcommands.ExitFailure, status, "creating an existing portfolio")

	_, status = run(t, "create", "-n", "rrsp", "-c", "usd")
	assert.Equal(t, subcommands.ExitUsageError, status, "lower case currency")

	_, status = run(t, "create")
	assert.Equal(t, subcommands.ExitUsageError, status, "missing name")

	out, status := run(t, "list")
	require.Equal(t, subcommands.ExitSuccess, status)
	assert.Contains(t, out, "tfsa")
	assert.NotContains(t, out, "rrsp")
}

func TestInfo(t *testing.T) {
	dir := setup(t)
	seed(t, dir, "tfsa")

	out, status := run(t, "info", "-n", "tfsa", "-u")
	require.Equal(t, subcommands.ExitSuccess, status)
	assert.Contains(t, out, "# tfsa (CAD)")
	assert.Contains(t, out, "zag.to")
	assert.Contains(t, out, "$600.00")

	_, status = run(t, "info", "-n", "nope")
	assert.Equal(t, subcommands.ExitFailure, status)
}

func TestHoldingCommands(t *testing.T) {
	dir := setup(t)
	seed(t, dir, "tfsa")

	_, status := run(t, "buy", "-n", "tfsa", "-s", "appl", "-q", "5")
	require.Equal(t, subcommands.ExitSuccess, status)
	_, status = run(t, "sell", "-n", "tfsa", "-s", "msft", "-q", "100")
	require.Equal(t, subcommands.ExitSuccess, status)
	assert.Equal(t, map[string]int64{"msft": 0, "appl": 15, "zag.to": 10}, units(t, dir, "tfsa"))

	_, status = run(t, "sell", "-n", "tfsa", "-s", "msft", "-q", "-1")
	assert.Equal(t, subcommands.ExitUsageError, status)
	_, status = run(t, "buy", "-n", "tfsa", "-s", "nope", "-q", "1")
	assert.Equal(t, subcommands.ExitFailure, status)

	_, status = run(t, "target", "-n", "tfsa", "-s", "msft", "-t", "40%")
	require.Equal(t, subcommands.ExitSuccess, status)
	_, status = run(t, "target", "-n", "tfsa", "-s", "msft", "-t", "1.5")
	assert.Equal(t, subcommands.ExitUsageError, status)
	s, err := dir.Load(context.Background(), "tfsa")
	require.NoError(t, err)
	assert.True(t, s.Holdings[0].Target.Equal(decimal.RequireFromString("0.4")), "target = %v", s.Holdings[0].Target)

	_, status = run(t, "add", "-n", "tfsa", "-s", "VFV.TO", "-q", "3", "-t", "0.1")
	require.Equal(t, subcommands.ExitSuccess, status)
	_, status = run(t, "add", "-n", "tfsa", "-s", "VFV.TO")
	assert.Equal(t, subcommands.ExitFailure, status, "adding twice")
	_, status = run(t, "remove", "-n", "tfsa", "-s", "appl")
	require.Equal(t, subcommands.ExitSuccess, status)
	assert.Equal(t, map[string]int64{"msft": 0, "zag.to": 10, "VFV.TO": 3}, units(t, dir, "tfsa"))
}

func TestRename(t *testing.T) {
	dir := setup(t)
	seed(t, dir, "tfsa")
	seed(t, dir, "rrsp")

	_, status := run(t, "rename", "-n", "tfsa", "-to", "rrsp")
	assert.Equal(t, subcommands.ExitFailure, status, "renaming over an existing portfolio")

	_, status = run(t, "rename", "-n", "tfsa", "-to", "cash")
	require.Equal(t, subcommands.ExitSuccess, status)
	names, err := dir.List(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"cash", "rrsp"}, names)

	s, err := dir.Load(context.Background(), "cash")
	require.NoError(t, err)
	assert.Equal(t, "cash", s.Name)
}

func TestRebalance(t *testing.T) {
	dir := setup(t)
	seed(t, dir, "tfsa")

	out, status := run(t, "rebalance", "-n", "tfsa", "-y")
	require.Equal(t, subcommands.ExitSuccess, status)
	assert.Contains(t, out, "# Rebalance tfsa")
	assert.Contains(t, out, "Saved tfsa.")
	// 190 of sell proceeds pay for 19 of the 20 msft.
	assert.Equal(t, map[string]int64{"msft": 29, "appl": 8, "zag.to": 5}, units(t, dir, "tfsa"))

	// the missing msft unit cannot be paid for.
	out, status = run(t, "rebalance", "-n", "tfsa", "-y")
	require.Equal(t, subcommands.ExitSuccess, status)
	assert.NotContains(t, out, "Saved")
}

func TestRebalance_buyOnly(t *testing.T) {
	dir := setup(t)
	seed(t, dir, "tfsa")

	_, status := run(t, "rebalance", "-n", "tfsa", "-buy-only", "-cash", "100", "-y")
	require.Equal(t, subcommands.ExitSuccess, status)
	// msft targets 30 units but 100 only buys 10.
	assert.Equal(t, map[string]int64{"msft": 20, "appl": 10, "zag.to": 10}, units(t, dir, "tfsa"))
}

func TestRebalance_notConfirmed(t *testing.T) {
	dir := setup(t)
	seed(t, dir, "tfsa")

	_, status := run(t, "rebalance", "-n", "tfsa")
	assert.Equal(t, subcommands.ExitFailure, status, "stdin is not a terminal")
	assert.Equal(t, map[string]int64{"msft": 10, "appl": 10, "zag.to": 10}, units(t, dir, "tfsa"))

	_, status = run(t, "rebalance", "-n", "tfsa", "-cash", "ten", "-y")
	assert.Equal(t, subcommands.ExitUsageError, status)

	_, status = run(t, "rebalance", "-n", "tfsa", "-cash", "-50", "-y")
	assert.Equal(t, subcommands.ExitUsageError, status, "negative cash")
	assert.Equal(t, map[string]int64{"msft": 10, "appl": 10, "zag.to": 10}, units(t, dir, "tfsa"))
}

func TestRebalance_movedFile(t *testing.T) {
	dir := setup(t)
	seed(t, dir, "tfsa")
	s, err := dir.Load(context.Background(), "tfsa")
	require.NoError(t, err)
	_, err = dir.Save(context.Background(), "moved", s, true)
	require.NoError(t, err)

	out, status := run(t, "rebalance", "-n", "moved", "-y")
	require.Equal(t, subcommands.ExitSuccess, status)
	assert.Contains(t, out, "Saved moved.")
	assert.Equal(t, map[string]int64{"msft": 10, "appl": 10, "zag.to": 10}, units(t, dir, "tfsa"))

	s, err = dir.Load(context.Background(), "moved")
	require.NoError(t, err)
	assert.Equal(t, "moved", s.Name)
}

func TestParseAmount(t *testing.T) {
	got, err := parseAmount(" 12.5 ")
	require.NoError(t, err)
	assert.True(t, got.Equal(decimal.RequireFromString("12.5")))

	got, err = parseAmount("")
	require.NoError(t, err)
	assert.True(t, got.IsZero())

	_, err = parseAmount("ten")
	assert.ErrorIs(t, err, investool.ErrInvalid)
	_, err = parseAmount("-0.01")
	assert.ErrorIs(t, err, investool.ErrRange)
}

func TestRebalance_keep(t *testing.T) {
	dir := setup(t)
	seed(t, dir, "tfsa")

	out, status := run(t, "rebalance", "-n", "tfsa", "-y", "-keep")
	require.Equal(t, subcommands.ExitSuccess, status)

	dated := "tfsa-" + date.Today().String()
	assert.Contains(t, out, "Saved "+dated+".")
	assert.Equal(t, map[string]int64{"msft": 10, "appl": 10, "zag.to": 10}, units(t, dir, "tfsa"))
	assert.Equal(t, map[string]int64{"msft": 29, "appl": 8, "zag.to": 5}, units(t, dir, dated))

	s, err := dir.Load(context.Background(), dated)
	require.NoError(t, err)
	assert.Equal(t, dated, s.Name)

	// the dated name is taken as well.
	_, status = run(t, "rebalance", "-n", "tfsa", "-y", "-keep")
	assert.Equal(t, subcommands.ExitFailure, status)
}

func TestDelete(t *testing.T) {
	dir := setup(t)
	seed(t, dir, "tfsa")

	_, status := run(t, "delete", "-n", "tfsa")
	assert.Equal(t, subcommands.ExitFailure, status, "stdin is not a terminal")

	_, status = run(t, "delete", "-n", "tfsa", "-y")
	require.Equal(t, subcommands.ExitSuccess, status)
	_, err := dir.Load(context.Background(), "tfsa")
	assert.ErrorIs(t, err, investool.ErrNotFound)
}

func TestConfigure(t *testing.T) {
	setup(t)
	old := *eodhdAPIKey
	*eodhdAPIKey = "secret"
	t.Cleanup(func() { *eodhdAPIKey = old })

	_, status := run(t, "configure", "-currency", "USD", "-log-level", "debug")
	require.Equal(t, subcommands.ExitSuccess, status)

	cfg, err := config.Load(*configPath)
	require.NoError(t, err)
	assert.Equal(t, "USD", cfg.Currency)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Empty(t, cfg.EODHDKey)

	content, err := os.ReadFile(*configPath)
	require.NoError(t, err)
	assert.NotContains(t, string(content), "secret")

	*eodhdAPIKey = ""
	key, err := cfg.EODHDAPIKey("")
	require.NoError(t, err)
	assert.Equal(t, "secret", key)

	_, status = run(t, "configure", "-forget-key")
	require.Equal(t, subcommands.ExitSuccess, status)
	_, err = cfg.EODHDAPIKey("")
	assert.ErrorIs(t, err, config.ErrNoAPIKey)

	_, status = run(t, "configure", "-source", "carrier-pigeon")
	assert.Equal(t, subcommands.ExitUsageError, status)
}

func TestParsePercent(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{in: "25%", want: "0.25"},
		{in: " 12.5 % ", want: "0.125"},
		{in: "0.4", want: "0.4"},
		{in: "1", want: "1"},
		{in: "", wantErr: true},
		{in: "abc%", wantErr: true},
	}
	for _, tt := range tests {
		got, err := parsePercent(tt.in)
		if tt.wantErr {
			assert.ErrorIs(t, err, investool.ErrInvalid, "parsePercent(%q)", tt.in)
			continue
		}
		require.NoError(t, err, "parsePercent(%q)", tt.in)
		assert.True(t, got.Equal(decimal.RequireFromString(tt.want)), "parsePercent(%q) = %v, want %v", tt.in, got, tt.want)
	}
}

func TestRedact(t *testing.T) {
	assert.Equal(t, "host=db user=me password=*** dbname=inv", redact("host=db user=me password=s3cret dbname=inv"))
	assert.Equal(t, "sqlite:/tmp/x.db", redact("sqlite:/tmp/x.db"))
}
