// Package engine implements the maker-order reconciliation loop: it
// tracks resting limit orders and their fill progress, synchronizes
// against exchange-reported state, computes target positions from
// weighted model signals plus decaying order exposure, and converges
// via post-only orders.
//
// Position and amount scales: "unit" exposure is relative to
// collateral; "exchange" amounts are contracts
// (unit * leverage * collateral / price / contractSize).
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"maker-systemv1/internal/exchange"
	"maker-systemv1/internal/journal"
	"maker-systemv1/internal/metrics"
	"maker-systemv1/internal/model"
)

const (
	defaultLoopInterval  = 60 * time.Second
	defaultOrderInterval = time.Second

	// takerDuration is the active window for taker-style
	// reconciliation orders; each cycle supersedes the previous one.
	takerDuration = 300 * time.Second

	// staleOrderWindow bounds both how old a signal row may be before
	// its order instructions are ignored and how long processed-row
	// keys are retained.
	staleOrderWindow = 300 * time.Second

	// lookbackWindow is how far back signal rows are pulled.
	lookbackWindow = 24 * time.Hour

	// reduceOnlyMaxRatio caps reduce-only adjustments relative to the
	// current position; larger reversals are a fresh position, and
	// venues reject reduce-only orders bigger than the position.
	reduceOnlyMaxRatio = 10.0

	// accountLeverage is the margin leverage set on the exchange per
	// instrument. Sizing leverage is configuration; margin leverage is
	// fixed high so margin is never the binding constraint.
	accountLeverage = 10.0
)

// Config wires an Engine. Client, Adapter, Signals, Smoother, Logger,
// Leverage and ModelID are required; Journal, Metrics, Health and Ping
// are optional.
type Config struct {
	Client   model.ExchangeClient
	Adapter  exchange.Adapter
	Signals  model.SignalSource
	Smoother model.Smoother
	Journal  *journal.Journal
	Metrics  *metrics.Metrics
	Health   *metrics.HealthStatus
	Logger   *slog.Logger
	Leverage float64
	ModelID  string
	Ping     func()
}

// Engine owns all mutable trading state for one account. All state is
// mutated by the single cycle goroutine only; no locks needed.
type Engine struct {
	log      *slog.Logger
	client   model.ExchangeClient
	adapter  exchange.Adapter
	signals  model.SignalSource
	smoother model.Smoother
	journal  *journal.Journal
	metrics  *metrics.Metrics
	health   *metrics.HealthStatus
	leverage float64
	modelID  string
	ping     func()

	loopInterval  time.Duration
	orderInterval time.Duration
	now           func() time.Time

	// strategy state
	positions     map[string]map[string]float64 // model -> instrument -> unit exposure
	weights       map[string]float64
	orders        []*model.Order
	processedRows map[model.RowKey]struct{}

	// exchange state
	exchangePositions map[string]float64 // instrument -> signed contracts
	leverageSet       map[string]bool
	initialized       bool
}

// New creates an engine from config.
func New(cfg Config) *Engine {
	return &Engine{
		log:      cfg.Logger,
		client:   cfg.Client,
		adapter:  cfg.Adapter,
		signals:  cfg.Signals,
		smoother: cfg.Smoother,
		journal:  cfg.Journal,
		metrics:  cfg.Metrics,
		health:   cfg.Health,
		leverage: cfg.Leverage,
		modelID:  cfg.ModelID,
		ping:     cfg.Ping,

		loopInterval:  defaultLoopInterval,
		orderInterval: defaultOrderInterval,
		now:           time.Now,

		positions:         map[string]map[string]float64{},
		weights:           map[string]float64{},
		processedRows:     map[model.RowKey]struct{}{},
		exchangePositions: map[string]float64{},
		leverageSet:       map[string]bool{},
	}
}

// Run executes reconciliation cycles until ctx is cancelled. A failed
// cycle is logged and retried on the next tick; partially applied
// effects are reconciled by the next cycle's sync step.
func (e *Engine) Run(ctx context.Context) {
	for {
		if err := e.runCycle(ctx); err != nil {
			if ctx.Err() != nil {
				return
			}
			e.log.Error("cycle failed", "error", err)
			if e.metrics != nil {
				e.metrics.CycleErrors.Inc()
			}
			if e.health != nil {
				e.health.SetCycleError(err)
			}
		} else {
			if e.ping != nil {
				e.ping()
			}
			if e.health != nil {
				e.health.SetCycleOK(e.now())
			}
		}

		e.removeOldRows()

		select {
		case <-ctx.Done():
			return
		case <-time.After(e.loopInterval):
		}
	}
}

func (e *Engine) runCycle(ctx context.Context) error {
	if !e.initialized {
		if err := e.initialize(ctx); err != nil {
			return fmt.Errorf("initialize: %w", err)
		}
		e.initialized = true
	}

	start := e.now()
	err := e.step(ctx)
	if e.metrics != nil {
		e.metrics.CycleDur.Observe(e.now().Sub(start).Seconds())
		if err == nil {
			e.metrics.CyclesTotal.Inc()
		}
	}
	return err
}

func (e *Engine) initialize(ctx context.Context) error {
	if e.adapter.RequiresOneWayMode() {
		e.log.Info("switching account to one-way position mode")
		if err := e.client.SetPositionMode(ctx, true); err != nil {
			return err
		}
	}
	e.log.Info("initialized", "exchange", e.adapter.ID(), "model", e.modelID)
	return nil
}

// step runs one reconciliation cycle: sync, ingest, plan, submit.
// The order is load-bearing: force-resync must complete before new
// orders are planned so position deltas are never double-counted.
func (e *Engine) step(ctx context.Context) error {
	e.log.Debug("cycle state",
		"tracked_orders", len(e.orders),
		"weights", e.weights,
		"exchange_positions", e.exchangePositions)

	if err := e.syncOrdersAndPositions(ctx); err != nil {
		return fmt.Errorf("sync: %w", err)
	}

	collateral, err := e.client.FetchCollateral(ctx)
	if err != nil {
		return fmt.Errorf("fetch collateral: %w", err)
	}
	e.log.Info("collateral", "value", collateral)
	if e.metrics != nil {
		e.metrics.Collateral.Set(collateral)
	}

	markets, err := e.fetchMarkets(ctx)
	if err != nil {
		return fmt.Errorf("fetch markets: %w", err)
	}

	if err := e.fetchModels(ctx, collateral, markets); err != nil {
		return fmt.Errorf("fetch models: %w", err)
	}

	targets, err := e.targetPositions(ctx, collateral, markets)
	if err != nil {
		return fmt.Errorf("compute targets: %w", err)
	}

	if err := e.planTaker(ctx, targets); err != nil {
		return fmt.Errorf("plan: %w", err)
	}

	if err := e.submitOrders(ctx, markets); err != nil {
		return fmt.Errorf("submit: %w", err)
	}

	if e.metrics != nil {
		e.metrics.TrackedOrders.Set(float64(len(e.orders)))
	}
	return nil
}

// fetchMarkets pulls descriptors and applies adapter overrides, indexed
// by exchange market symbol.
func (e *Engine) fetchMarkets(ctx context.Context) (model.MarketSet, error) {
	list, err := e.client.FetchMarkets(ctx)
	if err != nil {
		return nil, err
	}
	markets := make(model.MarketSet, len(list))
	for _, m := range list {
		m = e.adapter.OverrideMarket(m)
		markets[m.Symbol] = m
	}
	return markets, nil
}

// toExchangeAmount converts unit exposure to signed contracts at the
// given price, smoothing the collateral/price sizing term per
// instrument.
func (e *Engine) toExchangeAmount(amount, collateral, price float64, m model.Market, now time.Time) float64 {
	unit := e.smoother.Step(m.Base, collateral/price, now)
	return amount * e.leverage * unit / m.ContractSize
}

// removeOldRows prunes the processed-row dedup set.
func (e *Engine) removeOldRows() {
	cutoff := e.now().Add(-staleOrderWindow)
	for key := range e.processedRows {
		if time.Unix(key.Timestamp, 0).Before(cutoff) {
			delete(e.processedRows, key)
		}
	}
}

func (e *Engine) marketSymbol(instrument string) string {
	return e.adapter.MarketSymbol(instrument)
}
