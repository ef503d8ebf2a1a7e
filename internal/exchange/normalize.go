package exchange

import (
	"math"

	"github.com/shopspring/decimal"

	"maker-systemv1/internal/model"
)

// minNotionalSafety widens the exchange min-notional check so that a
// marginally-passing order cannot be rejected after price movement.
const minNotionalSafety = 2

// NormalizeAmount clamps and rounds a signed order amount to the
// market's constraints. The result is either exactly 0 or a tradable
// size: below min notional or min lot it collapses to 0 (unless the
// order is reduce-only), above max lot it clamps, and it is always
// rounded to the market's amount precision.
func NormalizeAmount(signed, price float64, m model.Market, reduceOnly bool) float64 {
	if signed < 0 {
		return -NormalizeAmount(-signed, price, m, reduceOnly)
	}
	x := signed

	if !reduceOnly {
		if m.MinNotional > 0 && x*price < minNotionalSafety*m.MinNotional {
			x = 0
		}
		if m.MinAmount > 0 && x < m.MinAmount {
			x = 0
		}
	}

	if m.MaxAmount > 0 {
		x = math.Min(m.MaxAmount, x)
	}

	return RoundPrecision(x, m.AmountPrecision)
}

// RoundPrecision rounds x to the given precision: to a multiple of Step
// when a step size is set, else to Digits decimal places. Decimal
// arithmetic keeps the result free of binary-float dust so repeated
// rounding is a no-op.
func RoundPrecision(x float64, p model.Precision) float64 {
	d := decimal.NewFromFloat(x)
	if p.Step > 0 {
		step := decimal.NewFromFloat(p.Step)
		return d.Div(step).Round(0).Mul(step).InexactFloat64()
	}
	return d.Round(int32(p.Digits)).InexactFloat64()
}
