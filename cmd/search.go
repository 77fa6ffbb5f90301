package cmd

import (
	"context"
	"flag"
	"strings"

	"github.com/etnz/investool/renderer"
	"github.com/google/subcommands"
)

type searchCmd struct{}

func (*searchCmd) Name() string     { return "search" }
func (*searchCmd) Synopsis() string { return "search for securities on EODHD" }
func (*searchCmd) Usage() string {
	return `investool search <search term>

  Searches securities by name, ticker or ISIN. The tickers printed are the
  ones to use with 'investool add'.
`
}

func (*searchCmd) SetFlags(f *flag.FlagSet) {}

func (*searchCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() == 0 {
		f.Usage()
		return subcommands.ExitUsageError
	}
	a, err := newApp()
	if err != nil {
		return fail("loading configuration", err)
	}
	defer a.close()

	client, err := a.eodhdClient()
	if err != nil {
		return fail("searching", err)
	}
	results, err := client.Search(ctx, strings.Join(f.Args(), " "))
	if err != nil {
		return fail("searching", err)
	}
	rows := make([]renderer.SearchRow, 0, len(results))
	for _, r := range results {
		rows = append(rows, renderer.SearchRow{
			Ticker:   r.Ticker(),
			Name:     r.Name,
			Type:     r.Type,
			Currency: r.Currency,
			ISIN:     r.ISIN,
		})
	}
	printMarkdown(renderer.RenderSearch(rows))
	return subcommands.ExitSuccess
}
