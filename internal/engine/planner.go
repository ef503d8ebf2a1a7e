package engine

import (
	"context"
	"math"

	"github.com/google/uuid"

	"maker-systemv1/internal/exchange"
	"maker-systemv1/internal/model"
)

// planTaker closes the gap between target and current positions with
// fresh taker-style orders, one per instrument. Previous taker orders
// for the instrument are superseded and canceled.
func (e *Engine) planTaker(ctx context.Context, targets map[string]float64) error {
	now := e.now()

	symbols := map[string]bool{}
	for sym := range targets {
		symbols[sym] = true
	}
	for sym := range e.exchangePositions {
		symbols[sym] = true
	}

	for sym := range symbols {
		target := targets[sym]
		current := e.exchangePositions[sym]
		if target == 0 && current == 0 {
			continue
		}

		signed := target - current
		reduceOnly := false
		if UseReduceOnly(e.adapter, signed, current) {
			reduceOnly = true
			if math.Abs(signed) > math.Abs(current) {
				signed = math.Copysign(current, signed)
			}
		}

		e.cancelTakerOrders(ctx, sym)

		o := &model.Order{
			ID:         uuid.NewString(),
			CreatedAt:  now,
			Symbol:     sym,
			Amount:     math.Abs(signed),
			IsBuy:      signed > 0,
			ReduceOnly: reduceOnly,
			Duration:   takerDuration,
		}
		e.log.Info("planning adjustment order",
			"order_id", o.ID, "symbol", sym, "target", target,
			"current", current, "amount", o.Amount, "is_buy", o.IsBuy,
			"reduce_only", reduceOnly)
		e.orders = append(e.orders, o)
	}
	return nil
}

// cancelTakerOrders drops superseded taker-style orders for an
// instrument. Unsubmitted ones are removed locally; submitted ones are
// canceled on the exchange and stay tracked until sync confirms they
// closed.
func (e *Engine) cancelTakerOrders(ctx context.Context, symbol string) {
	for i := len(e.orders) - 1; i >= 0; i-- {
		o := e.orders[i]
		if o.Symbol != symbol || o.Price != 0 {
			continue
		}
		if o.ExchangeOrderID == "" {
			e.orders = append(e.orders[:i], e.orders[i+1:]...)
			continue
		}
		e.cancelTrackedOrder(ctx, o, "superseded")
	}
}

// UseReduceOnly reports whether a position adjustment should be
// submitted reduce-only: it must oppose the current position and not
// exceed it by more than reduceOnlyMaxRatio. Venues without native
// reduce-only support never qualify.
func UseReduceOnly(ad exchange.Adapter, signedAmount, currentPos float64) bool {
	if !ad.SupportsReduceOnly() {
		return false
	}
	if signedAmount*currentPos >= 0 {
		return false
	}
	return math.Abs(signedAmount) <= reduceOnlyMaxRatio*math.Abs(currentPos)
}
