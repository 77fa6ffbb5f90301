package renderer

import (
	"github.com/etnz/investool"
)

// Plan is the printable view of a rebalance plan.
type Plan struct {
	Name      string
	Policy    string
	Cash      string // liquid cash before the plan
	Proceeds  string // cash from the sells
	Spent     string // cash for the buys
	Net       string // proceeds minus spent, signed
	Leftover  string // liquid cash after the plan
	Sells     []TradeRow
	Buys      []TradeRow
	Unchanged []string
	Warnings  []string
}

// TradeRow is one trade of a plan.
type TradeRow struct {
	Ticker   string
	Units    int64 // always positive
	Price    string
	Amount   string // proceeds for a sell, cost for a buy
	Degraded bool
}

// NewPlan builds the view of plan, computed for portfolio name.
func NewPlan(name string, plan *investool.Plan) *Plan {
	cur := plan.Currency
	cash := investool.M(plan.Liquid, cur)
	proceeds, spent := investool.M(0, cur), investool.M(0, cur)
	v := &Plan{
		Name:     name,
		Policy:   plan.Policy.String(),
		Cash:     cash.String(),
		Warnings: messages(plan.Warnings),
	}
	for _, d := range plan.Entries {
		price := investool.M(d.Price, cur)
		row := TradeRow{
			Ticker:   d.Ticker,
			Units:    d.Units,
			Price:    price.String(),
			Degraded: d.Degraded,
		}
		switch {
		case d.Units < 0:
			row.Units = -d.Units
			amount := price.Units(row.Units)
			proceeds = proceeds.Add(amount)
			row.Amount = amount.String()
			v.Sells = append(v.Sells, row)
		case d.Units > 0:
			amount := price.Units(row.Units)
			spent = spent.Add(amount)
			row.Amount = amount.String()
			v.Buys = append(v.Buys, row)
		default:
			v.Unchanged = append(v.Unchanged, d.Ticker)
		}
	}
	v.Proceeds = proceeds.String()
	v.Spent = spent.String()
	v.Net = proceeds.Sub(spent).SignedString()
	v.Leftover = cash.Add(proceeds).Sub(spent).String()
	return v
}

// SearchRow is one security search result.
type SearchRow struct {
	Ticker   string
	Name     string
	Type     string
	Currency string
	ISIN     string
}
