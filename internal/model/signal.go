package model

import "time"

// OrderInstruction is one limit-order request emitted by a model.
// Amount is in unit exposure (fraction of collateral); DurationSec is
// the requested active window in seconds.
type OrderInstruction struct {
	Price       float64 `json:"price"`
	IsBuy       bool    `json:"is_buy"`
	Amount      float64 `json:"amount"`
	DurationSec float64 `json:"duration"`
}

// PositionRow is one append-only row published by a model to the signal
// store. Positions are unit exposures per instrument; Weights are only
// meaningful on the engine's own portfolio model row.
type PositionRow struct {
	Model     string                        `json:"model_id"`
	Timestamp time.Time                     `json:"timestamp"`
	Positions map[string]float64            `json:"positions"`
	Weights   map[string]float64            `json:"weights"`
	Orders    map[string][]OrderInstruction `json:"orders"`
}

// RowKey identifies a processed signal row for dedup.
type RowKey struct {
	Timestamp int64 // unix seconds
	Model     string
}

// Key returns the dedup key for this row.
func (r *PositionRow) Key() RowKey {
	return RowKey{Timestamp: r.Timestamp.Unix(), Model: r.Model}
}
