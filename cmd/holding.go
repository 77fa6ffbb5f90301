package cmd

import (
	"context"
	"flag"
	"fmt"

	"github.com/etnz/investool"
	"github.com/google/subcommands"
	"github.com/sirupsen/logrus"
)

// holdingFlags are the flags shared by the commands changing a single holding.
type holdingFlags struct {
	name   string
	ticker string
}

func (h *holdingFlags) set(f *flag.FlagSet) {
	f.StringVar(&h.name, "n", "", "Portfolio name")
	f.StringVar(&h.ticker, "s", "", "Ticker of the security")
}

// update loads the portfolio, applies change and saves it back.
func (h *holdingFlags) update(ctx context.Context, what string, change func(a *app, p *investool.Portfolio) error) subcommands.ExitStatus {
	if err := required("n", h.name, "s", h.ticker); err != nil {
		return fail(what, err)
	}
	a, err := newApp()
	if err != nil {
		return fail("loading configuration", err)
	}
	defer a.close()

	p, err := a.load(ctx, h.name)
	if err != nil {
		return fail("loading portfolio", err)
	}
	if err := change(a, p); err != nil {
		return fail(what, err)
	}
	if _, err := a.save(ctx, p, true); err != nil {
		return fail("saving portfolio", err)
	}
	return subcommands.ExitSuccess
}

type addCmd struct {
	holdingFlags
	units  int64
	target string
}

func (*addCmd) Name() string     { return "add" }
func (*addCmd) Synopsis() string { return "add a holding to a portfolio" }
func (*addCmd) Usage() string {
	return `investool add -n <name> -s <ticker> [-q <units>] [-t <target>]

  Adds a holding and fetches its price. The target is a fraction (0.25) or a percent (25%).
`
}

func (c *addCmd) SetFlags(f *flag.FlagSet) {
	c.set(f)
	f.Int64Var(&c.units, "q", 0, "Units held")
	f.StringVar(&c.target, "t", "0", "Target weight")
}

func (c *addCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return c.update(ctx, "adding holding", func(a *app, p *investool.Portfolio) error {
		target, err := parsePercent(c.target)
		if err != nil {
			return err
		}
		if err := p.Add(investool.NewHolding(c.ticker, c.units, target)); err != nil {
			return err
		}
		a.refresh(ctx, p, a.fx())
		if err := p.ValidateTargets(); err != nil {
			a.log.WithError(err).Warn("targets exceed the portfolio")
		}
		h, _ := p.Holding(c.ticker)
		a.log.WithFields(logrus.Fields{"ticker": h.Ticker, "price": h.Price, "currency": h.Currency}).Info("holding added")
		return nil
	})
}

type removeCmd struct{ holdingFlags }

func (*removeCmd) Name() string     { return "remove" }
func (*removeCmd) Synopsis() string { return "remove a holding from a portfolio" }
func (*removeCmd) Usage() string {
	return `investool remove -n <name> -s <ticker>

  Removes a holding, whatever its units.
`
}

func (c *removeCmd) SetFlags(f *flag.FlagSet) { c.set(f) }

func (c *removeCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return c.update(ctx, "removing holding", func(a *app, p *investool.Portfolio) error {
		if err := p.Remove(c.ticker); err != nil {
			return err
		}
		a.warn(p.Revalue(ctx, a.fx()))
		return nil
	})
}

type buyCmd struct {
	holdingFlags
	units int64
}

func (*buyCmd) Name() string     { return "buy" }
func (*buyCmd) Synopsis() string { return "record bought units" }
func (*buyCmd) Usage() string {
	return `investool buy -n <name> -s <ticker> -q <units>

  Adds units to a holding.
`
}

func (c *buyCmd) SetFlags(f *flag.FlagSet) {
	c.set(f)
	f.Int64Var(&c.units, "q", 0, "Units bought")
}

func (c *buyCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return c.update(ctx, "buying", func(a *app, p *investool.Portfolio) error {
		units, err := p.Buy(c.ticker, c.units)
		if err != nil {
			return err
		}
		a.warn(p.Revalue(ctx, a.fx()))
		fmt.Fprintf(stdout, "%s: %d units\n", c.ticker, units)
		return nil
	})
}

type sellCmd struct {
	holdingFlags
	units int64
}

func (*sellCmd) Name() string     { return "sell" }
func (*sellCmd) Synopsis() string { return "record sold units" }
func (*sellCmd) Usage() string {
	return `investool sell -n <name> -s <ticker> -q <units>

  Removes units from a holding. Selling more than held leaves 0 units.
`
}

func (c *sellCmd) SetFlags(f *flag.FlagSet) {
	c.set(f)
	f.Int64Var(&c.units, "q", 0, "Units sold")
}

func (c *sellCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return c.update(ctx, "selling", func(a *app, p *investool.Portfolio) error {
		units, err := p.Sell(c.ticker, c.units)
		if err != nil {
			return err
		}
		a.warn(p.Revalue(ctx, a.fx()))
		fmt.Fprintf(stdout, "%s: %d units\n", c.ticker, units)
		return nil
	})
}

type targetCmd struct {
	holdingFlags
	target string
}

func (*targetCmd) Name() string     { return "target" }
func (*targetCmd) Synopsis() string { return "change the target weight of a holding" }
func (*targetCmd) Usage() string {
	return `investool target -n <name> -s <ticker> -t <target>

  Changes the target weight, as a fraction (0.25) or a percent (25%).
`
}

func (c *targetCmd) SetFlags(f *flag.FlagSet) {
	c.set(f)
	f.StringVar(&c.target, "t", "", "Target weight")
}

func (c *targetCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return c.update(ctx, "setting target", func(a *app, p *investool.Portfolio) error {
		target, err := parsePercent(c.target)
		if err != nil {
			return err
		}
		if err := p.SetTarget(c.ticker, target); err != nil {
			return err
		}
		if err := p.ValidateTargets(); err != nil {
			a.log.WithError(err).Warn("targets exceed the portfolio")
		}
		return nil
	})
}
