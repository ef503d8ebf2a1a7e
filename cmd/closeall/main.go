// Command closeall flattens every open position and cancels every open
// order on the configured exchange. Emergency use: it crosses the
// spread with market orders.
package main

import (
	"context"
	"math"
	"os"
	"time"

	"maker-systemv1/internal/exchange"
	"maker-systemv1/internal/logger"
	"maker-systemv1/internal/model"
)

func main() {
	log := logger.Init("closeall", logger.ParseLevel(getEnv("LOG_LEVEL", "info")))
	ctx := context.Background()

	name := os.Getenv("EXCHANGE")
	adapter, err := exchange.ForID(name)
	if err != nil {
		log.Error("exchange setup failed", "error", err)
		os.Exit(1)
	}
	client, err := exchange.NewClient(ctx, exchange.ClientConfig{
		Exchange:  name,
		APIKey:    os.Getenv("EXCHANGE_API_KEY"),
		APISecret: os.Getenv("EXCHANGE_API_SECRET"),
		Testnet:   os.Getenv("EXCHANGE_TESTNET") == "true",
	})
	if err != nil {
		log.Error("exchange client init failed", "error", err)
		os.Exit(1)
	}

	positions, err := client.FetchPositions(ctx)
	if err != nil {
		log.Error("fetch positions failed", "error", err)
		os.Exit(1)
	}

	closed := 0
	for _, p := range positions {
		if p.Position == 0 {
			continue
		}
		log.Info("closing position", "symbol", p.Symbol, "position", p.Position)

		if err := client.CancelAllOrders(ctx, p.Symbol); err != nil {
			log.Error("cancel all failed", "symbol", p.Symbol, "error", err)
			os.Exit(1)
		}

		side := "sell"
		if p.Position < 0 {
			side = "buy"
		}
		params := map[string]any{}
		if adapter.SupportsReduceOnly() {
			params["reduceOnly"] = "true"
		}
		id, err := client.CreateOrder(ctx, model.OrderRequest{
			Symbol: p.Symbol,
			Type:   "market",
			Side:   side,
			Amount: math.Abs(p.Position),
			Params: params,
		})
		if err != nil {
			log.Error("close order failed", "symbol", p.Symbol, "error", err)
			os.Exit(1)
		}
		log.Info("close order submitted", "symbol", p.Symbol, "side", side, "exchange_order_id", id)
		closed++
		time.Sleep(time.Second)
	}

	log.Info("done", "positions_closed", closed)
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
