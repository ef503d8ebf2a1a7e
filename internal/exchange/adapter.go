// Package exchange holds everything exchange-specific: the per-venue
// quirk adapters, amount normalization, leverage tier selection, and
// the concrete Binance futures client. The engine itself depends only
// on the model.ExchangeClient interface plus the Adapter here.
package exchange

import (
	"context"
	"fmt"

	"maker-systemv1/internal/model"
)

// Adapter captures per-exchange policy quirks: symbol mapping, market
// descriptor overrides, order parameter encoding for post-only and
// reduce-only, and leverage handling. One implementation per venue.
type Adapter interface {
	ID() string

	// MarketSymbol maps an internal instrument symbol ("BTC") to the
	// venue's market symbol; BaseSymbol is the inverse.
	MarketSymbol(base string) string
	BaseSymbol(marketSymbol string) string

	// OverrideMarket patches descriptors the venue reports wrong or
	// not at all (synthetic contract sizes, missing precisions).
	OverrideMarket(m model.Market) model.Market

	// SupportsReduceOnly reports whether the venue has a native
	// reduce-only order flag. When false the planner never sets it.
	SupportsReduceOnly() bool

	// SupportsLeverage reports whether leverage is set per instrument.
	SupportsLeverage() bool

	// RequiresLeverageTiers reports whether the venue maps leverage to
	// a risk tier that must be selected before setting it.
	RequiresLeverageTiers() bool

	// RequiresOneWayMode reports whether the account must be switched
	// to one-way (merged) position mode before trading.
	RequiresOneWayMode() bool

	// OrderParams returns the order type and venue-specific parameters
	// that guarantee post-only placement with the given reduce-only
	// flag. Venues without a known safe encoding return an error so an
	// unsafe order is never submitted.
	OrderParams(reduceOnly bool) (orderType string, params map[string]any, err error)
}

// ForID returns the adapter for an exchange identity.
func ForID(id string) (Adapter, error) {
	switch id {
	case "binance":
		return binanceAdapter{}, nil
	case "okx":
		return okxAdapter{}, nil
	case "bybit":
		return bybitAdapter{}, nil
	case "kucoinfutures":
		return kucoinAdapter{}, nil
	case "bitflyer":
		return bitflyerAdapter{}, nil
	}
	return nil, fmt.Errorf("exchange %q not supported", id)
}

// NewClient returns a live ExchangeClient for an exchange identity.
type ClientConfig struct {
	Exchange  string
	APIKey    string
	APISecret string
	Testnet   bool
}

func NewClient(ctx context.Context, cfg ClientConfig) (model.ExchangeClient, error) {
	if _, err := ForID(cfg.Exchange); err != nil {
		return nil, err
	}
	switch cfg.Exchange {
	case "binance":
		return NewBinanceClient(ctx, cfg)
	}
	return nil, fmt.Errorf("no client implementation for exchange %q", cfg.Exchange)
}
