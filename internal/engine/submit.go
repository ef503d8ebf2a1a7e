package engine

import (
	"context"
	"fmt"
	"math"
	"time"

	"maker-systemv1/internal/exchange"
	"maker-systemv1/internal/model"
)

// submitOrders sends every tracked order that has no exchange id yet.
// Orders normalized away by exchange limits are dropped. Iteration is
// newest-first so taker orders planned this cycle go out before older
// retries.
func (e *Engine) submitOrders(ctx context.Context, markets model.MarketSet) error {
	for i := len(e.orders) - 1; i >= 0; i-- {
		o := e.orders[i]
		if o.ExchangeOrderID != "" {
			continue
		}

		m, ok := markets[e.marketSymbol(o.Symbol)]
		if !ok {
			return fmt.Errorf("no market for %s", o.Symbol)
		}

		id, err := e.createOrder(ctx, m, o)
		if err != nil {
			return err
		}
		if id == "" {
			e.orders = append(e.orders[:i], e.orders[i+1:]...)
			if e.metrics != nil {
				e.metrics.OrdersSkipped.Inc()
			}
			continue
		}

		o.ExchangeOrderID = id
		if e.journal != nil {
			if err := e.journal.RecordSubmit(*o); err != nil {
				e.log.Warn("journal write failed", "error", err)
			}
		}
		if e.metrics != nil {
			e.metrics.OrdersSubmitted.Inc()
		}
	}
	return nil
}

// createOrder prices and submits one order post-only. It returns the
// exchange order id, or "" when exchange limits normalized the amount
// to zero.
func (e *Engine) createOrder(ctx context.Context, m model.Market, o *model.Order) (string, error) {
	if err := sleepCtx(ctx, e.orderInterval); err != nil {
		return "", err
	}

	book, err := e.client.FetchOrderBook(ctx, m.Symbol)
	if err != nil {
		return "", fmt.Errorf("fetch order book %s: %w", m.Symbol, err)
	}
	if len(book.Asks) == 0 || len(book.Bids) == 0 {
		return "", fmt.Errorf("empty order book for %s", m.Symbol)
	}
	bestAsk := book.Asks[0].Price
	bestBid := book.Bids[0].Price

	signed := o.SideInt() * o.Amount

	// price at top of book, never crossing the spread
	price := o.Price
	switch {
	case price == 0 && signed < 0:
		price = bestAsk
	case price == 0:
		price = bestBid
	case signed < 0:
		price = math.Max(bestAsk, price)
	default:
		price = math.Min(bestBid, price)
	}
	price = exchange.RoundPrecision(price, m.PricePrecision)

	signed = exchange.NormalizeAmount(signed, price, m, o.ReduceOnly)
	if signed == 0 {
		e.log.Info("order below exchange limits, skipping",
			"order_id", o.ID, "symbol", o.Symbol, "amount", o.Amount)
		return "", nil
	}

	orderType, params, err := e.adapter.OrderParams(o.ReduceOnly)
	if err != nil {
		return "", err
	}

	if !e.leverageSet[m.Symbol] {
		if err := exchange.EnsureLeverage(ctx, e.client, e.adapter, m, accountLeverage, e.log); err != nil {
			return "", err
		}
		e.leverageSet[m.Symbol] = true
	}

	side := "buy"
	if signed < 0 {
		side = "sell"
	}
	req := model.OrderRequest{
		Symbol:        m.Symbol,
		Type:          orderType,
		Side:          side,
		Amount:        math.Abs(signed),
		Price:         price,
		ClientOrderID: o.ID,
		Params:        params,
	}

	id, err := e.client.CreateOrder(ctx, req)
	if err != nil {
		return "", fmt.Errorf("create order %s: %w", m.Symbol, err)
	}
	e.log.Info("order submitted",
		"order_id", o.ID, "exchange_order_id", id, "symbol", m.Symbol,
		"side", side, "price", price, "amount", req.Amount,
		"reduce_only", o.ReduceOnly)
	return id, nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}
