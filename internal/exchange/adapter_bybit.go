package exchange

import (
	"strings"

	"maker-systemv1/internal/model"
)

type bybitAdapter struct{}

func (bybitAdapter) ID() string { return "bybit" }

func (bybitAdapter) MarketSymbol(base string) string {
	return base + "USDT"
}

func (bybitAdapter) BaseSymbol(marketSymbol string) string {
	return strings.TrimSuffix(marketSymbol, "USDT")
}

func (bybitAdapter) OverrideMarket(m model.Market) model.Market { return m }

func (bybitAdapter) SupportsReduceOnly() bool    { return true }
func (bybitAdapter) SupportsLeverage() bool      { return true }
func (bybitAdapter) RequiresLeverageTiers() bool { return false }

// Bybit rejects reduce-only orders in hedge mode, so the account is
// switched to merged single-position mode at startup.
func (bybitAdapter) RequiresOneWayMode() bool { return true }

func (bybitAdapter) OrderParams(reduceOnly bool) (string, map[string]any, error) {
	params := map[string]any{
		"timeInForce":  "PostOnly",
		"reduceOnly":   reduceOnly,
		"position_idx": 0,
	}
	return "limit", params, nil
}
