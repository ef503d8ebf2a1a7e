package exchange

import (
	"strings"

	"maker-systemv1/internal/model"
)

type kucoinAdapter struct{}

func (kucoinAdapter) ID() string { return "kucoinfutures" }

func (kucoinAdapter) MarketSymbol(base string) string {
	return base + "USDTM"
}

func (kucoinAdapter) BaseSymbol(marketSymbol string) string {
	return strings.TrimSuffix(marketSymbol, "USDTM")
}

func (kucoinAdapter) OverrideMarket(m model.Market) model.Market { return m }

func (kucoinAdapter) SupportsReduceOnly() bool { return true }
func (kucoinAdapter) SupportsLeverage() bool   { return true }

// KuCoin maps leverage to a risk-limit tier id; the tier must cover the
// requested leverage before orders are accepted at that size.
func (kucoinAdapter) RequiresLeverageTiers() bool { return true }
func (kucoinAdapter) RequiresOneWayMode() bool    { return false }

func (kucoinAdapter) OrderParams(reduceOnly bool) (string, map[string]any, error) {
	params := map[string]any{
		"postOnly":   true,
		"reduceOnly": reduceOnly,
	}
	return "limit", params, nil
}
