package evaluation

import "github.com/shopspring/decimal"

const (
	DefaultCapital  = 10000.0
	DefaultKellyCap = 0.06
)

// Stake is the fractional Kelly sizing of an option at its current price.
type Stake struct {
	Stake           float64 `json:"stake"`
	KellyPct        float64 `json:"kelly_pct"`
	PotentialReturn float64 `json:"potential_return"`
	PotentialProfit float64 `json:"potential_profit"`
}

// KellyStake sizes a bet with win probability prob (0..1) at decimal odds on capital,
// never staking more than capital*maxFraction. Money amounts are rounded to whole units.
func KellyStake(prob, price, capital, maxFraction float64) Stake {
	o := decimal.NewFromFloat(price)
	b := o.Sub(decimal.NewFromInt(1))
	if !b.IsPositive() || capital <= 0 {
		return Stake{}
	}

	pi := decimal.NewFromFloat(prob)
	q := decimal.NewFromInt(1).Sub(pi)
	f := b.Mul(pi).Sub(q).Div(b)
	if f.IsNegative() {
		f = decimal.Zero
	}
	if limit := decimal.NewFromFloat(maxFraction); f.GreaterThan(limit) {
		f = limit
	}

	stake := decimal.NewFromFloat(capital).Mul(f).Round(0)
	return Stake{
		Stake:           stake.InexactFloat64(),
		KellyPct:        f.Mul(decimal.NewFromInt(1000)).Round(0).Div(decimal.NewFromInt(10)).InexactFloat64(),
		PotentialReturn: stake.Mul(o).Round(0).InexactFloat64(),
		PotentialProfit: stake.Mul(b).Round(0).InexactFloat64(),
	}
}
