package model

// Precision describes how an exchange quantizes an amount or price:
// either a decimal-digit count or a step size. When Step is nonzero it
// takes precedence over Digits.
type Precision struct {
	Digits int
	Step   float64
}

// Market is a normalized per-instrument contract descriptor as reported
// by the exchange. Limits of 0 mean "no limit".
type Market struct {
	Symbol       string // exchange market symbol, e.g. "BTCUSDT"
	Base         string // internal instrument symbol, e.g. "BTC"
	ContractSize float64

	AmountPrecision Precision
	PricePrecision  Precision

	MinAmount   float64
	MaxAmount   float64
	MinNotional float64
	MaxLeverage float64
}

// MarketSet indexes markets by exchange symbol.
type MarketSet map[string]Market
