package exchange

import (
	"strings"

	"maker-systemv1/internal/model"
)

// binanceAdapter targets USDT-margined perpetual futures.
type binanceAdapter struct{}

func (binanceAdapter) ID() string { return "binance" }

func (binanceAdapter) MarketSymbol(base string) string {
	return base + "USDT"
}

func (binanceAdapter) BaseSymbol(marketSymbol string) string {
	return strings.TrimSuffix(marketSymbol, "USDT")
}

func (binanceAdapter) OverrideMarket(m model.Market) model.Market {
	// Binance futures quotes quantities directly in contracts of size 1.
	if m.ContractSize == 0 {
		m.ContractSize = 1
	}
	return m
}

func (binanceAdapter) SupportsReduceOnly() bool    { return true }
func (binanceAdapter) SupportsLeverage() bool      { return true }
func (binanceAdapter) RequiresLeverageTiers() bool { return false }
func (binanceAdapter) RequiresOneWayMode() bool    { return true }

// OrderParams uses GTX time-in-force: the order is canceled instead of
// taking liquidity.
func (binanceAdapter) OrderParams(reduceOnly bool) (string, map[string]any, error) {
	params := map[string]any{
		"timeInForce": "GTX",
		"reduceOnly":  boolString(reduceOnly),
	}
	return "limit", params, nil
}

func boolString(b bool) string {
	if b {
		return "true"
	}
	return "false"
}
