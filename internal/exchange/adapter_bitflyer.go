package exchange

import (
	"fmt"
	"strings"

	"maker-systemv1/internal/model"
)

// bitflyerAdapter covers the FX_BTC_JPY perpetual-style market.
type bitflyerAdapter struct{}

func (bitflyerAdapter) ID() string { return "bitflyer" }

func (bitflyerAdapter) MarketSymbol(base string) string {
	return "FX_" + base + "_JPY"
}

func (bitflyerAdapter) BaseSymbol(marketSymbol string) string {
	s := strings.TrimPrefix(marketSymbol, "FX_")
	return strings.TrimSuffix(s, "_JPY")
}

// OverrideMarket supplies the descriptor fields bitFlyer's API does not
// report: quantities are plain BTC with a fixed minimum and the price
// tick is 1 JPY.
func (bitflyerAdapter) OverrideMarket(m model.Market) model.Market {
	m.ContractSize = 1
	m.MinAmount = 0.01
	m.AmountPrecision = model.Precision{Step: 0.00000001}
	m.PricePrecision = model.Precision{Step: 1}
	return m
}

func (bitflyerAdapter) SupportsReduceOnly() bool    { return false }
func (bitflyerAdapter) SupportsLeverage() bool      { return false }
func (bitflyerAdapter) RequiresLeverageTiers() bool { return false }
func (bitflyerAdapter) RequiresOneWayMode() bool    { return false }

// OrderParams fails: bitFlyer has no parameter encoding that guarantees
// post-only placement, and submitting without one would risk taking
// liquidity silently.
func (bitflyerAdapter) OrderParams(reduceOnly bool) (string, map[string]any, error) {
	return "", nil, fmt.Errorf("bitflyer: no post-only order parameter mapping")
}
