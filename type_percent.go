package investool

import "github.com/shopspring/decimal"

var hundred = decimal.NewFromInt(100)

// Percent is a fraction, 1 meaning 100%.
type Percent struct {
	value decimal.Decimal
}

// P returns the Percent for a fraction.
func P(fraction decimal.Decimal) Percent { return Percent{value: fraction} }

// InRange reports whether p is a valid target, that is within [0,1].
func (p Percent) InRange() bool {
	return !p.value.IsNegative() && p.value.LessThanOrEqual(decimal.NewFromInt(1))
}

func (p Percent) String() string {
	return p.value.Mul(hundred).StringFixed(2) + "%"
}

func (p Percent) SignedString() string {
	res := p.value.Mul(hundred).StringFixed(2)
	if res == "0.00" || res == "-0.00" {
		return "-"
	}
	if !p.value.IsNegative() {
		res = "+" + res
	}
	return res + "%"
}
