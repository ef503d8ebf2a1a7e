package engine

import (
	"context"
	"errors"
	"fmt"

	"maker-systemv1/internal/model"
)

// syncOrdersAndPositions reconciles tracked orders against the
// exchange and applies fill deltas to the position ledger. When a
// cycle observes no fills the ledger is replaced wholesale from
// exchange-reported positions, correcting any drift from manual
// intervention or missed fills.
func (e *Engine) syncOrdersAndPositions(ctx context.Context) error {
	reported, err := e.client.FetchPositions(ctx)
	if err != nil {
		return fmt.Errorf("fetch positions: %w", err)
	}

	previous := make(map[string]bool, len(e.exchangePositions))
	for sym := range e.exchangePositions {
		previous[sym] = true
	}

	changed, err := e.syncOrders(ctx)
	if err != nil {
		return err
	}

	if !changed {
		e.forceSyncPositions(reported)
	}

	if e.metrics != nil {
		for sym, pos := range e.exchangePositions {
			e.metrics.Position.WithLabelValues(sym).Set(pos)
			delete(previous, sym)
		}
		// instruments dropped from the ledger are flat now
		for sym := range previous {
			e.metrics.Position.WithLabelValues(sym).Set(0)
		}
	}
	return nil
}

// syncOrders refreshes fill state for every submitted order and
// reports whether any position-affecting fill was observed.
func (e *Engine) syncOrders(ctx context.Context) (bool, error) {
	now := e.now()

	symbols := map[string]bool{}
	for _, o := range e.orders {
		symbols[e.marketSymbol(o.Symbol)] = true
	}

	var open []model.ExchangeOrder
	for sym := range symbols {
		list, err := e.client.FetchOpenOrders(ctx, sym)
		if err != nil {
			return false, fmt.Errorf("fetch open orders %s: %w", sym, err)
		}
		open = append(open, list...)
	}

	positionChanged := false
	for i := len(e.orders) - 1; i >= 0; i-- {
		o := e.orders[i]
		if o.ExchangeOrderID == "" {
			continue
		}

		ex, found := takeOrder(&open, o.ExchangeOrderID)
		if !found {
			fetched, err := e.client.FetchOrder(ctx, o.ExchangeOrderID, e.marketSymbol(o.Symbol))
			if err != nil {
				if errors.Is(err, model.ErrOrderNotFound) {
					e.log.Warn("tracked order vanished from exchange, dropping",
						"order_id", o.ID, "exchange_order_id", o.ExchangeOrderID)
					e.orders = append(e.orders[:i], e.orders[i+1:]...)
					continue
				}
				return false, fmt.Errorf("fetch order %s: %w", o.ExchangeOrderID, err)
			}
			ex = fetched
		}

		delta := (ex.Filled - o.ExecutedAmount) * o.SideInt()
		if delta != 0 {
			e.exchangePositions[o.Symbol] += delta
			positionChanged = true
			e.log.Info("fill observed",
				"order_id", o.ID, "symbol", o.Symbol, "delta", delta, "filled", ex.Filled)
			if e.metrics != nil {
				e.metrics.FillsObserved.Inc()
			}
		}
		o.ExecutedAmount = ex.Filled

		if ex.Status == model.OrderOpen && o.Expired(now) {
			e.cancelTrackedOrder(ctx, o, "expired")
		}

		if ex.Status != model.OrderOpen && o.EffectiveAmount(now) == 0 {
			e.orders = append(e.orders[:i], e.orders[i+1:]...)
		}
	}

	// anything still on the exchange that we do not track is not ours
	// to keep
	for _, ex := range open {
		e.log.Warn("canceling unknown exchange order",
			"exchange_order_id", ex.ID, "symbol", ex.Symbol)
		if err := e.client.CancelOrder(ctx, ex.ID, ex.Symbol); err != nil && !errors.Is(err, model.ErrOrderNotFound) {
			return false, fmt.Errorf("cancel unknown order %s: %w", ex.ID, err)
		}
	}

	return positionChanged, nil
}

// cancelTrackedOrder issues a best-effort exchange cancel. The order
// stays tracked; it leaves the ledger once closed and fully decayed.
func (e *Engine) cancelTrackedOrder(ctx context.Context, o *model.Order, reason string) {
	e.log.Info("canceling order", "reason", reason,
		"order_id", o.ID, "symbol", o.Symbol, "created_at", o.CreatedAt)
	err := e.client.CancelOrder(ctx, o.ExchangeOrderID, e.marketSymbol(o.Symbol))
	if err != nil && !errors.Is(err, model.ErrOrderNotFound) {
		e.log.Warn("cancel failed", "order_id", o.ID, "error", err)
		return
	}
	if e.journal != nil {
		if err := e.journal.RecordCancel(*o); err != nil {
			e.log.Warn("journal write failed", "error", err)
		}
	}
	if e.metrics != nil {
		e.metrics.OrdersCanceled.Inc()
	}
}

// forceSyncPositions replaces the ledger with exchange truth.
func (e *Engine) forceSyncPositions(reported []model.ExchangePosition) {
	fresh := map[string]float64{}
	for _, p := range reported {
		if p.Position == 0 {
			continue
		}
		fresh[e.adapter.BaseSymbol(p.Symbol)] = p.Position
	}
	e.exchangePositions = fresh
	if e.metrics != nil {
		e.metrics.ForceResyncs.Inc()
	}
	e.log.Debug("force-synced positions", "positions", fresh)
}

// takeOrder removes and returns the order with the given exchange id.
func takeOrder(list *[]model.ExchangeOrder, id string) (model.ExchangeOrder, bool) {
	for i, ex := range *list {
		if ex.ID == id {
			*list = append((*list)[:i], (*list)[i+1:]...)
			return ex, true
		}
	}
	return model.ExchangeOrder{}, false
}
