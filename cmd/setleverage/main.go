// Command setleverage applies the configured leverage to one
// instrument, or to every instrument with an open position when no
// symbol is given.
//
// Usage: setleverage [base symbol]
package main

import (
	"context"
	"os"
	"strconv"
	"time"

	"maker-systemv1/internal/exchange"
	"maker-systemv1/internal/logger"
	"maker-systemv1/internal/model"
)

func main() {
	log := logger.Init("setleverage", logger.ParseLevel(getEnv("LOG_LEVEL", "info")))
	ctx := context.Background()

	leverage, err := strconv.ParseFloat(os.Getenv("LEVERAGE"), 64)
	if err != nil {
		log.Error("LEVERAGE not set or not a number")
		os.Exit(1)
	}

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

	list, err := client.FetchMarkets(ctx)
	if err != nil {
		log.Error("fetch markets failed", "error", err)
		os.Exit(1)
	}
	markets := model.MarketSet{}
	for _, m := range list {
		markets[m.Symbol] = adapter.OverrideMarket(m)
	}

	var symbols []string
	if len(os.Args) > 1 {
		symbols = []string{adapter.MarketSymbol(os.Args[1])}
	} else {
		positions, err := client.FetchPositions(ctx)
		if err != nil {
			log.Error("fetch positions failed", "error", err)
			os.Exit(1)
		}
		for _, p := range positions {
			if p.Position != 0 {
				symbols = append(symbols, p.Symbol)
			}
		}
	}

	for _, sym := range symbols {
		m, ok := markets[sym]
		if !ok {
			log.Error("unknown market", "symbol", sym)
			os.Exit(1)
		}
		if err := exchange.EnsureLeverage(ctx, client, adapter, m, leverage, log); err != nil {
			log.Error("set leverage failed", "symbol", sym, "error", err)
			os.Exit(1)
		}
		log.Info("leverage set", "symbol", sym, "leverage", leverage)
		time.Sleep(time.Second)
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
