package exchange

import (
	"strings"

	"maker-systemv1/internal/model"
)

type okxAdapter struct{}

func (okxAdapter) ID() string { return "okx" }

func (okxAdapter) MarketSymbol(base string) string {
	return base + "-USDT-SWAP"
}

func (okxAdapter) BaseSymbol(marketSymbol string) string {
	return strings.TrimSuffix(marketSymbol, "-USDT-SWAP")
}

func (okxAdapter) OverrideMarket(m model.Market) model.Market { return m }

func (okxAdapter) SupportsReduceOnly() bool    { return true }
func (okxAdapter) SupportsLeverage() bool      { return true }
func (okxAdapter) RequiresLeverageTiers() bool { return false }
func (okxAdapter) RequiresOneWayMode() bool    { return false }

// OrderParams selects OKX's dedicated post_only order type.
func (okxAdapter) OrderParams(reduceOnly bool) (string, map[string]any, error) {
	params := map[string]any{
		"reduceOnly": boolString(reduceOnly),
	}
	return "post_only", params, nil
}
