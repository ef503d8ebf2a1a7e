package model

import (
	"context"
	"errors"
	"time"
)

// ── Port Interfaces ──
// These interfaces decouple the engine from concrete exchange, signal
// store and smoothing implementations. Each implementation satisfies
// one of these interfaces; tests use in-memory fakes.

// ErrOrderNotFound is returned by FetchOrder and CancelOrder when the
// exchange no longer knows the order. It is an expected race with
// exchange-side fills and is handled, not propagated.
var ErrOrderNotFound = errors.New("order not found")

// OrderStatus is the coarse exchange-reported order state.
type OrderStatus string

const (
	OrderOpen     OrderStatus = "open"
	OrderClosed   OrderStatus = "closed"
	OrderCanceled OrderStatus = "canceled"
)

// ExchangeOrder is an exchange-reported order snapshot.
type ExchangeOrder struct {
	ID     string
	Symbol string // exchange market symbol
	Filled float64
	Status OrderStatus
}

// ExchangePosition is an exchange-reported position: Position is signed
// contracts, positive long.
type ExchangePosition struct {
	Symbol   string
	Position float64
}

// PriceLevel is one order book level.
type PriceLevel struct {
	Price float64
	Size  float64
}

// OrderBook holds top-of-book depth, best price first.
type OrderBook struct {
	Asks []PriceLevel
	Bids []PriceLevel
}

// Ticker holds the last traded price.
type Ticker struct {
	Last float64
}

// LeverageTier is one risk-limit tier for exchanges that map leverage
// to a tier id.
type LeverageTier struct {
	Tier        int
	MaxLeverage float64
}

// OrderRequest is a uniform order submission. Type and Params carry the
// exchange-specific post-only / reduce-only encoding built by the
// exchange adapter.
type OrderRequest struct {
	Symbol        string // exchange market symbol
	Type          string // "limit", "post_only", "market"
	Side          string // "buy" or "sell"
	Amount        float64
	Price         float64 // 0 for market orders
	ClientOrderID string
	Params        map[string]any
}

// ExchangeClient is the uniform capability set the engine requires from
// a derivatives exchange.
type ExchangeClient interface {
	Name() string
	FetchMarkets(ctx context.Context) ([]Market, error)
	FetchOpenOrders(ctx context.Context, symbol string) ([]ExchangeOrder, error)
	// FetchOrder returns ErrOrderNotFound when the order is gone.
	FetchOrder(ctx context.Context, id, symbol string) (ExchangeOrder, error)
	// CancelOrder returns ErrOrderNotFound when the order is gone.
	CancelOrder(ctx context.Context, id, symbol string) error
	CancelAllOrders(ctx context.Context, symbol string) error
	FetchPositions(ctx context.Context) ([]ExchangePosition, error)
	FetchOrderBook(ctx context.Context, symbol string) (OrderBook, error)
	FetchTicker(ctx context.Context, symbol string) (Ticker, error)
	FetchCollateral(ctx context.Context) (float64, error)
	CreateOrder(ctx context.Context, req OrderRequest) (string, error)
	SetLeverage(ctx context.Context, symbol string, leverage float64) error
	// SetPositionMode switches the account to one-way (merged) position
	// tracking when oneWay is true. A no-op on venues without modes.
	SetPositionMode(ctx context.Context, oneWay bool) error
	// FetchLeverageTiers may return nil for exchanges without tiering.
	FetchLeverageTiers(ctx context.Context, symbol string) ([]LeverageTier, error)
	// SetRiskLimitLevel applies a risk-limit tier on venues that gate
	// leverage behind one. A no-op elsewhere.
	SetRiskLimitLevel(ctx context.Context, symbol string, level int) error
}

// SignalSource supplies model position rows at or after minTimestamp.
type SignalSource interface {
	GetPositions(ctx context.Context, minTimestamp time.Time) ([]PositionRow, error)
}

// Smoother smooths a keyed float series over time. The null variant
// passes values through unchanged.
type Smoother interface {
	Step(key string, value float64, t time.Time) float64
}
