package engine

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"maker-systemv1/internal/metrics"
	"maker-systemv1/internal/model"
)

func trackedOrder(exchangeID string, executed float64) *model.Order {
	return &model.Order{
		ID:              "local-" + exchangeID,
		CreatedAt:       testTime,
		Symbol:          "BTC",
		Price:           9500,
		Amount:          2,
		IsBuy:           true,
		Duration:        time.Hour,
		ExecutedAmount:  executed,
		ExchangeOrderID: exchangeID,
	}
}

func TestSync_FillDeltaAppliedToLedger(t *testing.T) {
	f := newTestFake()
	// exchange reports a drifted position; it must be ignored because a
	// fill was observed this cycle
	f.Positions = []model.ExchangePosition{{Symbol: "BTCUSDT", Position: 5}}
	f.Orders["ex-9"] = model.ExchangeOrder{ID: "ex-9", Symbol: "BTCUSDT", Filled: 0.5, Status: model.OrderOpen}

	e := newTestEngine(t, f, &stubSignals{})
	e.exchangePositions["BTC"] = 1
	e.orders = append(e.orders, trackedOrder("ex-9", 0))

	if err := e.syncOrdersAndPositions(context.Background()); err != nil {
		t.Fatalf("sync: %v", err)
	}

	if got := e.exchangePositions["BTC"]; got != 1.5 {
		t.Errorf("ledger = %v, want 1.5", got)
	}
	if got := e.orders[0].ExecutedAmount; got != 0.5 {
		t.Errorf("executed = %v, want 0.5", got)
	}
}

func TestSync_NoFillForcesResync(t *testing.T) {
	f := newTestFake()
	f.Positions = []model.ExchangePosition{{Symbol: "BTCUSDT", Position: 5}}
	f.Orders["ex-9"] = model.ExchangeOrder{ID: "ex-9", Symbol: "BTCUSDT", Filled: 0.5, Status: model.OrderOpen}

	e := newTestEngine(t, f, &stubSignals{})
	e.exchangePositions["BTC"] = 1
	e.orders = append(e.orders, trackedOrder("ex-9", 0.5))

	if err := e.syncOrdersAndPositions(context.Background()); err != nil {
		t.Fatalf("sync: %v", err)
	}

	if got := e.exchangePositions["BTC"]; got != 5 {
		t.Errorf("ledger = %v, want exchange-reported 5", got)
	}
}

func TestSync_ZeroPositionsDroppedOnResync(t *testing.T) {
	f := newTestFake()
	f.Positions = []model.ExchangePosition{
		{Symbol: "BTCUSDT", Position: 0},
		{Symbol: "ETHUSDT", Position: -2},
	}

	e := newTestEngine(t, f, &stubSignals{})
	e.exchangePositions["BTC"] = 1

	if err := e.syncOrdersAndPositions(context.Background()); err != nil {
		t.Fatalf("sync: %v", err)
	}

	if _, ok := e.exchangePositions["BTC"]; ok {
		t.Error("flat position kept in ledger")
	}
	if got := e.exchangePositions["ETH"]; got != -2 {
		t.Errorf("ETH = %v, want -2", got)
	}
}

func TestSync_ForceResyncZeroesDroppedPositionGauge(t *testing.T) {
	f := newTestFake() // exchange reports no positions

	e := newTestEngine(t, f, &stubSignals{})
	e.metrics = metrics.NewWith(prometheus.NewRegistry())
	e.exchangePositions["BTC"] = 1
	e.metrics.Position.WithLabelValues("BTC").Set(1)

	if err := e.syncOrdersAndPositions(context.Background()); err != nil {
		t.Fatalf("sync: %v", err)
	}

	if _, ok := e.exchangePositions["BTC"]; ok {
		t.Error("flat instrument kept in ledger")
	}
	if got := testutil.ToFloat64(e.metrics.Position.WithLabelValues("BTC")); got != 0 {
		t.Errorf("position gauge = %v after resync, want 0", got)
	}
}

func TestSync_VanishedOrderDropped(t *testing.T) {
	f := newTestFake()
	e := newTestEngine(t, f, &stubSignals{})
	e.orders = append(e.orders, trackedOrder("gone", 0))

	if err := e.syncOrdersAndPositions(context.Background()); err != nil {
		t.Fatalf("sync: %v", err)
	}
	if len(e.orders) != 0 {
		t.Errorf("tracking %d orders, want 0", len(e.orders))
	}
}

func TestSync_UnknownExchangeOrderCanceled(t *testing.T) {
	f := newTestFake()
	f.Orders["mystery"] = model.ExchangeOrder{ID: "mystery", Symbol: "BTCUSDT", Status: model.OrderOpen}

	e := newTestEngine(t, f, &stubSignals{})
	// an unsubmitted tracked order puts BTCUSDT in the sync scope
	o := trackedOrder("", 0)
	o.ExchangeOrderID = ""
	e.orders = append(e.orders, o)

	if err := e.syncOrdersAndPositions(context.Background()); err != nil {
		t.Fatalf("sync: %v", err)
	}
	if len(f.Canceled) != 1 || f.Canceled[0] != "mystery" {
		t.Errorf("canceled = %v, want [mystery]", f.Canceled)
	}
}

func TestSync_ExpiredOpenOrderCanceled(t *testing.T) {
	f := newTestFake()
	f.Orders["ex-5"] = model.ExchangeOrder{ID: "ex-5", Symbol: "BTCUSDT", Status: model.OrderOpen}

	e := newTestEngine(t, f, &stubSignals{})
	var buf bytes.Buffer
	e.log = slog.New(slog.NewTextHandler(&buf, nil))
	o := trackedOrder("ex-5", 0)
	o.CreatedAt = testTime.Add(-2 * time.Hour)
	o.Duration = 300 * time.Second
	e.orders = append(e.orders, o)

	if err := e.syncOrdersAndPositions(context.Background()); err != nil {
		t.Fatalf("sync: %v", err)
	}
	if len(f.Canceled) != 1 || f.Canceled[0] != "ex-5" {
		t.Errorf("canceled = %v, want [ex-5]", f.Canceled)
	}
	if !strings.Contains(buf.String(), "reason=expired") {
		t.Errorf("cancel log missing expired reason: %s", buf.String())
	}
	// stays tracked until a later cycle sees it closed
	if len(e.orders) != 1 {
		t.Errorf("tracking %d orders, want 1", len(e.orders))
	}
}

func TestSync_ClosedDecayedOrderRemoved(t *testing.T) {
	f := newTestFake()
	f.Orders["ex-7"] = model.ExchangeOrder{ID: "ex-7", Symbol: "BTCUSDT", Filled: 1, Status: model.OrderClosed}

	e := newTestEngine(t, f, &stubSignals{})
	o := trackedOrder("ex-7", 1)
	// closed long ago: exposure fully decayed
	o.CreatedAt = testTime.Add(-3 * time.Hour)
	o.Duration = 300 * time.Second
	e.orders = append(e.orders, o)

	if err := e.syncOrdersAndPositions(context.Background()); err != nil {
		t.Fatalf("sync: %v", err)
	}
	if len(e.orders) != 0 {
		t.Errorf("tracking %d orders, want 0", len(e.orders))
	}
}
