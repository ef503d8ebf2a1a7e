// Command printmarkets dumps the exchange's market descriptors after
// adapter overrides, for checking precisions and limits by hand.
package main

import (
	"context"
	"fmt"
	"os"
	"sort"

	"maker-systemv1/internal/exchange"
)

func main() {
	ctx := context.Background()

	name := os.Getenv("EXCHANGE")
	adapter, err := exchange.ForID(name)
	if err != nil {
		fmt.Fprintf(os.Stderr, "exchange setup failed: %v\n", err)
		os.Exit(1)
	}
	client, err := exchange.NewClient(ctx, exchange.ClientConfig{
		Exchange:  name,
		APIKey:    os.Getenv("EXCHANGE_API_KEY"),
		APISecret: os.Getenv("EXCHANGE_API_SECRET"),
		Testnet:   os.Getenv("EXCHANGE_TESTNET") == "true",
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "exchange client init failed: %v\n", err)
		os.Exit(1)
	}

	list, err := client.FetchMarkets(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "fetch markets failed: %v\n", err)
		os.Exit(1)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Symbol < list[j].Symbol })

	fmt.Printf("%-16s %-8s %12s %12s %12s %12s %12s\n",
		"SYMBOL", "BASE", "CONTRACT", "MIN_AMT", "MAX_AMT", "MIN_NOTIONAL", "AMT_STEP")
	for _, m := range list {
		m = adapter.OverrideMarket(m)
		step := m.AmountPrecision.Step
		fmt.Printf("%-16s %-8s %12g %12g %12g %12g %12g\n",
			m.Symbol, m.Base, m.ContractSize, m.MinAmount, m.MaxAmount, m.MinNotional, step)
	}
}
