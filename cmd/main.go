package cmd

import (
	"context"
	"flag"
	"os"

	"github.com/etnz/investool/storage"
	"github.com/google/subcommands"
	"github.com/posener/complete/v2"
	"github.com/posener/complete/v2/predict"
)

// commands lists every subcommand by group.
func commands() map[string][]subcommands.Command {
	return map[string][]subcommands.Command{
		"portfolios": {&listCmd{}, &createCmd{}, &infoCmd{}, &renameCmd{}, &deleteCmd{}},
		"holdings":   {&addCmd{}, &removeCmd{}, &buyCmd{}, &sellCmd{}, &targetCmd{}},
		"rebalance":  {&rebalanceCmd{}},
		"tools":      {&configureCmd{}, &searchCmd{}, &topicCmd{}},
	}
}

// Register the subcommands.
func Register(c *subcommands.Commander) {
	for _, group := range []string{"portfolios", "holdings", "rebalance", "tools"} {
		for _, cmd := range commands()[group] {
			c.Register(cmd, group)
		}
	}
}

// Complete handles shell completion requests, it exits when the shell asked for completions.
//
// Flags named -n complete with the stored portfolio names.
func Complete(name string) {
	root := &complete.Command{Sub: map[string]*complete.Command{}, Flags: map[string]complete.Predictor{}}
	flag.VisitAll(func(f *flag.Flag) { root.Flags[f.Name] = predict.Something })

	for _, group := range commands() {
		for _, cmd := range group {
			fs := flag.NewFlagSet(cmd.Name(), flag.ContinueOnError)
			cmd.SetFlags(fs)
			sub := &complete.Command{Flags: map[string]complete.Predictor{}}
			fs.VisitAll(func(f *flag.Flag) {
				switch {
				case f.Name == "n":
					sub.Flags[f.Name] = complete.PredictFunc(predictPortfolios)
				case isBoolFlag(f):
					sub.Flags[f.Name] = predict.Nothing
				default:
					sub.Flags[f.Name] = predict.Something
				}
			})
			root.Sub[cmd.Name()] = sub
		}
	}
	root.Complete(name)
}

func isBoolFlag(f *flag.Flag) bool {
	b, ok := f.Value.(interface{ IsBoolFlag() bool })
	return ok && b.IsBoolFlag()
}

// predictPortfolios lists the portfolios of the configured directory.
func predictPortfolios(prefix string) []string {
	dir := os.Getenv("INVESTOOL_PORTFOLIO_DIR")
	if dir == "" {
		dir = storage.DefaultDir
	}
	names, _ := storage.NewDir(dir).List(context.Background())
	return names
}
