package engine

import (
	"context"
	"fmt"
	"maps"
	"time"

	"github.com/google/uuid"

	"maker-systemv1/internal/model"
)

// instructionKey buckets order instructions for aggregation. Equal
// instructions published by different models (or repeated within one
// row) collapse into one tracked order.
type instructionKey struct {
	timestamp int64
	symbol    string
	price     float64
	isBuy     bool
	duration  float64
}

// fetchModels ingests signal rows: it refreshes model positions and
// portfolio weights from the latest row per model and turns fresh
// order instructions into tracked orders.
func (e *Engine) fetchModels(ctx context.Context, collateral float64, markets model.MarketSet) error {
	now := e.now()

	rows, err := e.signals.GetPositions(ctx, now.Add(-lookbackWindow))
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		// empty feed means flat everywhere
		e.log.Warn("no signal rows, closing all positions")
		e.positions = map[string]map[string]float64{}
		e.weights = map[string]float64{}
		return nil
	}

	latest := map[string]model.PositionRow{}
	for _, row := range rows {
		if row.Timestamp.After(now) {
			continue
		}
		if prev, ok := latest[row.Model]; !ok || prev.Timestamp.Before(row.Timestamp) {
			latest[row.Model] = row
		}
	}

	weights := map[string]float64{}
	if pf, ok := latest[e.modelID]; ok {
		weights = pf.Weights
	}
	if !maps.Equal(weights, e.weights) {
		e.log.Info("weights updated", "old", e.weights, "new", weights)
	}
	e.weights = weights

	positions := map[string]map[string]float64{}
	for name, row := range latest {
		pos := map[string]float64{}
		for sym, p := range row.Positions {
			if _, ok := markets[e.marketSymbol(sym)]; !ok {
				e.log.Warn("skipping unknown instrument", "model", name, "symbol", sym)
				continue
			}
			pos[sym] = p
		}
		positions[name] = pos
	}
	if !equalPositions(positions, e.positions) {
		e.log.Info("positions updated", "old", e.positions, "new", positions)
	}
	e.positions = positions

	e.ingestOrders(latest, collateral, markets, now)
	return nil
}

// ingestOrders aggregates unprocessed order instructions into tracked
// orders. Rows older than the staleness window count as processed but
// contribute nothing.
func (e *Engine) ingestOrders(latest map[string]model.PositionRow, collateral float64, markets model.MarketSet, now time.Time) {
	buckets := map[instructionKey]float64{}

	for name, row := range latest {
		key := row.Key()
		if _, done := e.processedRows[key]; done {
			continue
		}
		e.processedRows[key] = struct{}{}

		if now.Sub(row.Timestamp) > staleOrderWindow {
			e.log.Warn("ignoring stale order instructions",
				"model", name, "timestamp", row.Timestamp)
			continue
		}

		weight := e.weights[name]
		for sym, instrs := range row.Orders {
			m, ok := markets[e.marketSymbol(sym)]
			if !ok {
				e.log.Warn("skipping order for unknown instrument",
					"model", name, "symbol", sym)
				continue
			}
			for _, in := range instrs {
				k := instructionKey{
					timestamp: key.Timestamp,
					symbol:    sym,
					price:     in.Price,
					isBuy:     in.IsBuy,
					duration:  in.DurationSec,
				}
				buckets[k] += e.toExchangeAmount(in.Amount*weight, collateral, in.Price, m, now)
			}
		}
	}

	for k, amount := range buckets {
		if amount == 0 {
			continue
		}
		o := &model.Order{
			ID:        uuid.NewString(),
			CreatedAt: time.Unix(k.timestamp, 0),
			Symbol:    k.symbol,
			Price:     k.price,
			Amount:    amount,
			IsBuy:     k.isBuy,
			Duration:  time.Duration(k.duration * float64(time.Second)),
		}
		e.log.Info("new limit order from signal",
			"order_id", o.ID, "symbol", o.Symbol, "price", o.Price,
			"amount", o.Amount, "is_buy", o.IsBuy, "duration", o.Duration)
		e.orders = append(e.orders, o)
	}
}

func equalPositions(a, b map[string]map[string]float64) bool {
	if len(a) != len(b) {
		return false
	}
	for name, pa := range a {
		pb, ok := b[name]
		if !ok || !maps.Equal(pa, pb) {
			return false
		}
	}
	return true
}

// targetPositions computes the desired signed contract position per
// instrument: weighted model exposure converted at last price, plus the
// decayed exposure of tracked orders.
func (e *Engine) targetPositions(ctx context.Context, collateral float64, markets model.MarketSet) (map[string]float64, error) {
	now := e.now()

	targets := map[string]float64{}
	for name, w := range e.weights {
		for sym, pos := range e.positions[name] {
			targets[sym] += w * pos
		}
	}

	for sym, unit := range targets {
		if unit == 0 {
			continue
		}
		marketSym := e.marketSymbol(sym)
		m, ok := markets[marketSym]
		if !ok {
			return nil, fmt.Errorf("no market for %s", sym)
		}
		ticker, err := e.client.FetchTicker(ctx, marketSym)
		if err != nil {
			return nil, fmt.Errorf("fetch ticker %s: %w", marketSym, err)
		}
		targets[sym] = e.toExchangeAmount(unit, collateral, ticker.Last, m, now)
	}

	for _, o := range e.orders {
		targets[o.Symbol] += o.SignedEffective(now)
	}

	if e.metrics != nil {
		for sym, t := range targets {
			e.metrics.TargetPos.WithLabelValues(sym).Set(t)
		}
	}
	e.log.Debug("target positions", "targets", targets)
	return targets, nil
}
