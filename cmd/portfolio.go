package cmd

import (
	"context"
	"flag"
	"fmt"

	"github.com/etnz/investool"
	"github.com/etnz/investool/renderer"
	"github.com/google/subcommands"
	"github.com/sirupsen/logrus"
)

type listCmd struct{}

func (*listCmd) Name() string     { return "list" }
func (*listCmd) Synopsis() string { return "list stored portfolios" }
func (*listCmd) Usage() string {
	return `investool list

  Lists the portfolios in the storage.
`
}

func (*listCmd) SetFlags(f *flag.FlagSet) {}

func (*listCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	a, err := newApp()
	if err != nil {
		return fail("loading configuration", err)
	}
	defer a.close()

	names, err := a.store.List(ctx)
	if err != nil {
		return fail("listing portfolios", err)
	}
	printMarkdown(renderer.RenderList(names))
	return subcommands.ExitSuccess
}

type createCmd struct {
	name     string
	currency string
}

func (*createCmd) Name() string     { return "create" }
func (*createCmd) Synopsis() string { return "create an empty portfolio" }
func (*createCmd) Usage() string {
	return `investool create -n <name> [-c <currency>]

  Creates an empty portfolio. It fails if the portfolio already exists.
`
}

func (c *createCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.name, "n", "", "Portfolio name")
	f.StringVar(&c.currency, "c", "", "Portfolio currency, defaults to the configured currency")
}

func (c *createCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if err := required("n", c.name); err != nil {
		return fail("creating portfolio", err)
	}
	a, err := newApp()
	if err != nil {
		return fail("loading configuration", err)
	}
	defer a.close()

	currency := c.currency
	if currency == "" {
		currency = a.cfg.Currency
	}
	p, err := investool.NewPortfolio(c.name, currency)
	if err != nil {
		return fail("creating portfolio", err)
	}
	saved, err := a.store.Save(ctx, p.Name(), p.Snapshot(), false)
	if err != nil {
		return fail("saving portfolio", err)
	}
	if !saved {
		return fail("creating portfolio", fmt.Errorf("portfolio %q: %w", p.Name(), investool.ErrExists))
	}
	a.log.WithField("name", p.Name()).Info("portfolio created")
	return subcommands.ExitSuccess
}

type infoCmd struct {
	name   string
	update bool
}

func (*infoCmd) Name() string     { return "info" }
func (*infoCmd) Synopsis() string { return "show holdings, weights and total value" }
func (*infoCmd) Usage() string {
	return `investool info -n <name> [-u]

  Shows every holding with its value, current weight and target.
  With -u the prices are refreshed and the portfolio is saved.
`
}

func (c *infoCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.name, "n", "", "Portfolio name")
	f.BoolVar(&c.update, "u", false, "Refresh prices before printing")
}

func (c *infoCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if err := required("n", c.name); err != nil {
		return fail("reading portfolio", err)
	}
	a, err := newApp()
	if err != nil {
		return fail("loading configuration", err)
	}
	defer a.close()

	p, err := a.load(ctx, c.name)
	if err != nil {
		return fail("loading portfolio", err)
	}

	fx := a.fx()
	var warnings []error
	if c.update {
		warnings = p.Refresh(ctx, a.prices(p), fx)
	} else {
		warnings = p.Revalue(ctx, fx)
	}
	a.warn(warnings)

	weights, _ := investool.NewRebalancer(fx).Weights(ctx, p)
	printMarkdown(renderer.RenderPortfolio(renderer.NewPortfolio(p, weights, warnings)))

	if c.update {
		if _, err := a.save(ctx, p, true); err != nil {
			return fail("saving portfolio", err)
		}
	}
	return subcommands.ExitSuccess
}

type renameCmd struct {
	name string
	to   string
}

func (*renameCmd) Name() string     { return "rename" }
func (*renameCmd) Synopsis() string { return "rename a portfolio" }
func (*renameCmd) Usage() string {
	return `investool rename -n <name> -to <new name>

  Renames a portfolio. It fails if the new name is already used.
`
}

func (c *renameCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.name, "n", "", "Portfolio name")
	f.StringVar(&c.to, "to", "", "New portfolio name")
}

func (c *renameCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if err := required("n", c.name, "to", c.to); err != nil {
		return fail("renaming portfolio", err)
	}
	a, err := newApp()
	if err != nil {
		return fail("loading configuration", err)
	}
	defer a.close()

	p, err := a.load(ctx, c.name)
	if err != nil {
		return fail("loading portfolio", err)
	}
	if err := p.Rename(c.to); err != nil {
		return fail("renaming portfolio", err)
	}
	saved, err := a.store.Save(ctx, p.Name(), p.Snapshot(), false)
	if err != nil {
		return fail("saving portfolio", err)
	}
	if !saved {
		return fail("renaming portfolio", fmt.Errorf("portfolio %q: %w", p.Name(), investool.ErrExists))
	}
	if err := a.store.Delete(ctx, c.name); err != nil {
		return fail("deleting portfolio", err)
	}
	a.log.WithFields(logrus.Fields{"from": c.name, "to": p.Name()}).Info("portfolio renamed")
	return subcommands.ExitSuccess
}

type deleteCmd struct {
	name string
	yes  bool
}

func (*deleteCmd) Name() string     { return "delete" }
func (*deleteCmd) Synopsis() string { return "delete a portfolio" }
func (*deleteCmd) Usage() string {
	return `investool delete -n <name> [-y]

  Deletes a portfolio from the storage.
`
}

func (c *deleteCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.name, "n", "", "Portfolio name")
	f.BoolVar(&c.yes, "y", false, "Do not ask for confirmation")
}

func (c *deleteCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if err := required("n", c.name); err != nil {
		return fail("deleting portfolio", err)
	}
	a, err := newApp()
	if err != nil {
		return fail("loading configuration", err)
	}
	defer a.close()

	if !c.yes {
		ok, err := confirm(fmt.Sprintf("Delete portfolio %q?", c.name))
		if err != nil {
			return fail("deleting portfolio", err)
		}
		if !ok {
			return subcommands.ExitSuccess
		}
	}
	if err := a.store.Delete(ctx, c.name); err != nil {
		return fail("deleting portfolio", err)
	}
	return subcommands.ExitSuccess
}
