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

type rebalanceCmd struct {
	name    string
	cash    string
	buyOnly bool
	yes     bool
	keep    bool
}

func (*rebalanceCmd) Name() string     { return "rebalance" }
func (*rebalanceCmd) Synopsis() string { return "plan and apply trades to reach the targets" }
func (*rebalanceCmd) Usage() string {
	return `investool rebalance -n <name> [-cash <amount>] [-buy-only] [-y] [-keep]

  Refreshes the prices, prints the trades needed to reach the target weights
  and, once confirmed, applies them to the portfolio.

  By default overweight holdings are sold to fund the buys. With -buy-only
  nothing is sold and only the liquid cash is invested.

  With -keep the portfolio is left as is and the rebalanced one is saved
  as <name>-<YYYY-MM-DD>.
`
}

func (c *rebalanceCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.name, "n", "", "Portfolio name")
	f.StringVar(&c.cash, "cash", "", "Liquid cash to invest, in the portfolio currency")
	f.BoolVar(&c.buyOnly, "buy-only", false, "Never sell")
	f.BoolVar(&c.yes, "y", false, "Apply without asking for confirmation")
	f.BoolVar(&c.keep, "keep", false, "Save the result under a dated name")
}

func (c *rebalanceCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if err := required("n", c.name); err != nil {
		return fail("rebalancing", err)
	}
	cash, err := parseAmount(c.cash)
	if err != nil {
		return fail("rebalancing", err)
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
	if err := p.ValidateTargets(); err != nil {
		a.log.WithError(err).Warn("targets exceed the portfolio")
	}

	fx := a.fx()
	a.refresh(ctx, p, fx)

	r := investool.NewRebalancer(fx)
	var plan *investool.Plan
	if c.buyOnly {
		plan = r.PlanBuyOnly(ctx, p, cash)
	} else {
		plan = r.PlanSellThenBuy(ctx, p, cash)
	}
	printMarkdown(renderer.RenderPlan(renderer.NewPlan(p.Name(), plan)))

	if len(plan.Sells()) == 0 && len(plan.Buys()) == 0 {
		a.log.Info("nothing to trade")
		return subcommands.ExitSuccess
	}
	if !c.yes {
		ok, err := confirm("Apply this plan?")
		if err != nil {
			return fail("rebalancing", err)
		}
		if !ok {
			return subcommands.ExitSuccess
		}
	}

	if err := plan.Apply(p); err != nil {
		return fail("applying plan", err)
	}
	a.warn(p.Revalue(ctx, fx))
	name, err := a.save(ctx, p, !c.keep)
	if err != nil {
		return fail("saving portfolio", err)
	}
	a.log.WithFields(logrus.Fields{"name": name, "cash": investool.M(plan.Cash, p.Currency())}).Info("plan applied")
	fmt.Fprintf(stdout, "Saved %s.\n", name)
	return subcommands.ExitSuccess
}
