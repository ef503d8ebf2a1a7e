package engine

import (
	"context"
	"io"
	"log/slog"
	"math"
	"testing"
	"time"

	"maker-systemv1/internal/exchange"
	"maker-systemv1/internal/model"
	"maker-systemv1/internal/smoother"
)

var testTime = time.Date(2020, 1, 1, 12, 0, 0, 0, time.UTC)

type stubSignals struct {
	rows []model.PositionRow
}

func (s *stubSignals) GetPositions(_ context.Context, _ time.Time) ([]model.PositionRow, error) {
	return s.rows, nil
}

func btcMarket() model.Market {
	return model.Market{
		Symbol:          "BTCUSDT",
		Base:            "BTC",
		ContractSize:    1,
		AmountPrecision: model.Precision{Digits: 3},
		PricePrecision:  model.Precision{Digits: 0},
		MinAmount:       0.001,
		MaxAmount:       1000,
		MinNotional:     10,
	}
}

func newTestFake() *exchange.Fake {
	f := exchange.NewFake()
	f.Collateral = 10000
	f.Markets = []model.Market{btcMarket()}
	f.Tickers["BTCUSDT"] = model.Ticker{Last: 10000}
	f.Books["BTCUSDT"] = model.OrderBook{
		Asks: []model.PriceLevel{{Price: 11000, Size: 5}},
		Bids: []model.PriceLevel{{Price: 9000, Size: 5}},
	}
	return f
}

func newTestEngine(t *testing.T, f *exchange.Fake, signals *stubSignals) *Engine {
	t.Helper()
	ad, err := exchange.ForID("binance")
	if err != nil {
		t.Fatalf("adapter: %v", err)
	}
	e := New(Config{
		Client:   f,
		Adapter:  ad,
		Signals:  signals,
		Smoother: smoother.Null{},
		Logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		Leverage: 1,
		ModelID:  "pf",
	})
	e.orderInterval = 0
	e.now = func() time.Time { return testTime }
	return e
}

// positionRows builds the usual two-row feed: one trading model holding
// btcPos unit exposure, and the portfolio model weighting it fully.
func positionRows(ts time.Time, btcPos float64) []model.PositionRow {
	return []model.PositionRow{
		{
			Model:     "model1",
			Timestamp: ts,
			Positions: map[string]float64{"BTC": btcPos},
		},
		{
			Model:     "pf",
			Timestamp: ts,
			Weights:   map[string]float64{"model1": 1.0},
		},
	}
}

func TestStep_BuysUpToTarget(t *testing.T) {
	f := newTestFake()
	f.Positions = []model.ExchangePosition{{Symbol: "BTCUSDT", Position: 1}}

	// rows are hours old: positions and weights still apply, only
	// order instructions would be stale
	sig := &stubSignals{rows: positionRows(testTime.Add(-3*time.Hour), 2.0)}
	e := newTestEngine(t, f, sig)

	if err := e.step(context.Background()); err != nil {
		t.Fatalf("step: %v", err)
	}

	if len(f.Created) != 1 {
		t.Fatalf("created %d orders, want 1", len(f.Created))
	}
	req := f.Created[0].Req
	if req.Symbol != "BTCUSDT" || req.Side != "buy" {
		t.Errorf("got %s %s, want BTCUSDT buy", req.Symbol, req.Side)
	}
	// target 2.0 contracts at last price, current 1.0
	if req.Amount != 1.0 {
		t.Errorf("amount = %v, want 1.0", req.Amount)
	}
	if req.Price != 9000 {
		t.Errorf("price = %v, want best bid 9000", req.Price)
	}
	if req.Type != "limit" || req.Params["timeInForce"] != "GTX" {
		t.Errorf("order not post-only: type=%q params=%v", req.Type, req.Params)
	}
	if req.Params["reduceOnly"] != "false" {
		t.Errorf("reduceOnly = %v, want false", req.Params["reduceOnly"])
	}
	if got := f.LeverageCalls["BTCUSDT"]; got != 10 {
		t.Errorf("leverage = %v, want 10", got)
	}
	if len(e.orders) != 1 || e.orders[0].ExchangeOrderID != f.Created[0].ID {
		t.Errorf("submitted order not tracked: %+v", e.orders)
	}
}

func TestStep_SecondCycleSupersedesTakerOrder(t *testing.T) {
	f := newTestFake()
	f.Positions = []model.ExchangePosition{{Symbol: "BTCUSDT", Position: 1}}
	sig := &stubSignals{rows: positionRows(testTime.Add(-3*time.Hour), 2.0)}
	e := newTestEngine(t, f, sig)

	if err := e.step(context.Background()); err != nil {
		t.Fatalf("first step: %v", err)
	}
	firstID := f.Created[0].ID

	now := testTime.Add(60 * time.Second)
	e.now = func() time.Time { return now }
	if err := e.step(context.Background()); err != nil {
		t.Fatalf("second step: %v", err)
	}

	if len(f.Canceled) != 1 || f.Canceled[0] != firstID {
		t.Errorf("canceled = %v, want [%s]", f.Canceled, firstID)
	}
	if len(f.Created) != 2 {
		t.Fatalf("created %d orders, want 2", len(f.Created))
	}
	if f.Created[1].Req.Amount != f.Created[0].Req.Amount {
		t.Errorf("replacement amount %v != original %v",
			f.Created[1].Req.Amount, f.Created[0].Req.Amount)
	}
}

func TestStep_ReduceOnlyClose(t *testing.T) {
	f := newTestFake()
	f.Positions = []model.ExchangePosition{{Symbol: "BTCUSDT", Position: 1}}
	e := newTestEngine(t, f, &stubSignals{})

	if err := e.step(context.Background()); err != nil {
		t.Fatalf("step: %v", err)
	}

	if len(f.Created) != 1 {
		t.Fatalf("created %d orders, want 1", len(f.Created))
	}
	req := f.Created[0].Req
	if req.Side != "sell" || req.Amount != 1.0 {
		t.Errorf("got %s %v, want sell 1.0", req.Side, req.Amount)
	}
	if req.Price != 11000 {
		t.Errorf("price = %v, want best ask 11000", req.Price)
	}
	if req.Params["reduceOnly"] != "true" {
		t.Errorf("reduceOnly = %v, want true", req.Params["reduceOnly"])
	}
}

func TestStep_DropsOrderBelowExchangeLimits(t *testing.T) {
	f := newTestFake()

	rows := positionRows(testTime.Add(-10*time.Second), 0)
	rows[0].Orders = map[string][]model.OrderInstruction{
		"BTC": {{Price: 9500, IsBuy: true, Amount: 5e-5, DurationSec: 600}},
	}
	e := newTestEngine(t, f, &stubSignals{rows: rows})

	if err := e.step(context.Background()); err != nil {
		t.Fatalf("step: %v", err)
	}

	if len(f.Created) != 0 {
		t.Errorf("created %d orders, want 0", len(f.Created))
	}
	if len(e.orders) != 0 {
		t.Errorf("tracking %d orders, want 0", len(e.orders))
	}
}

func TestIngestOrders_DedupAndAggregation(t *testing.T) {
	f := newTestFake()
	ts := testTime.Add(-10 * time.Second)
	instr := model.OrderInstruction{Price: 9500, IsBuy: true, Amount: 1e-4, DurationSec: 600}
	rows := []model.PositionRow{
		{
			Model:     "model1",
			Timestamp: ts,
			Orders:    map[string][]model.OrderInstruction{"BTC": {instr}},
		},
		{
			Model:     "model2",
			Timestamp: ts,
			Orders:    map[string][]model.OrderInstruction{"BTC": {instr}},
		},
		{
			Model:     "pf",
			Timestamp: ts,
			Weights:   map[string]float64{"model1": 0.5, "model2": 0.5},
		},
	}
	sig := &stubSignals{rows: rows}
	e := newTestEngine(t, f, sig)

	markets, err := e.fetchMarkets(context.Background())
	if err != nil {
		t.Fatalf("fetch markets: %v", err)
	}
	if err := e.fetchModels(context.Background(), 10000, markets); err != nil {
		t.Fatalf("fetch models: %v", err)
	}

	if len(e.orders) != 1 {
		t.Fatalf("tracking %d orders, want 1 aggregated", len(e.orders))
	}
	o := e.orders[0]
	want := 2 * (1e-4 * 0.5 * 10000 / 9500)
	if math.Abs(o.Amount-want) > 1e-12 {
		t.Errorf("amount = %v, want %v", o.Amount, want)
	}
	if o.Price != 9500 || !o.IsBuy || o.Duration != 600*time.Second {
		t.Errorf("order = %+v", o)
	}

	// same rows again: already processed
	if err := e.fetchModels(context.Background(), 10000, markets); err != nil {
		t.Fatalf("fetch models: %v", err)
	}
	if len(e.orders) != 1 {
		t.Errorf("tracking %d orders after replay, want 1", len(e.orders))
	}
}

func TestIngestOrders_StaleRowContributesNothing(t *testing.T) {
	f := newTestFake()
	rows := positionRows(testTime.Add(-10*time.Minute), 0)
	rows[0].Orders = map[string][]model.OrderInstruction{
		"BTC": {{Price: 9500, IsBuy: true, Amount: 0.1, DurationSec: 600}},
	}
	e := newTestEngine(t, f, &stubSignals{rows: rows})

	markets, err := e.fetchMarkets(context.Background())
	if err != nil {
		t.Fatalf("fetch markets: %v", err)
	}
	if err := e.fetchModels(context.Background(), 10000, markets); err != nil {
		t.Fatalf("fetch models: %v", err)
	}
	if len(e.orders) != 0 {
		t.Errorf("tracking %d orders from stale row, want 0", len(e.orders))
	}
}

func TestFetchMarkets_AppliesAdapterOverrides(t *testing.T) {
	f := newTestFake()
	// clients return descriptors as the venue reports them; the
	// contract size default comes from the adapter override
	raw := btcMarket()
	raw.ContractSize = 0
	f.Markets = []model.Market{raw}

	e := newTestEngine(t, f, &stubSignals{})
	markets, err := e.fetchMarkets(context.Background())
	if err != nil {
		t.Fatalf("fetch markets: %v", err)
	}
	if got := markets["BTCUSDT"].ContractSize; got != 1 {
		t.Errorf("contract size = %v, want overridden 1", got)
	}
}

func TestInitialize_SwitchesToOneWayMode(t *testing.T) {
	f := newTestFake()
	e := newTestEngine(t, f, &stubSignals{})

	if err := e.initialize(context.Background()); err != nil {
		t.Fatalf("initialize: %v", err)
	}
	if !f.OneWayMode {
		t.Error("position mode not switched to one-way")
	}
}

func TestRemoveOldRows(t *testing.T) {
	e := newTestEngine(t, newTestFake(), &stubSignals{})
	old := model.RowKey{Timestamp: testTime.Add(-10 * time.Minute).Unix(), Model: "model1"}
	fresh := model.RowKey{Timestamp: testTime.Add(-10 * time.Second).Unix(), Model: "model1"}
	e.processedRows[old] = struct{}{}
	e.processedRows[fresh] = struct{}{}

	e.removeOldRows()

	if _, ok := e.processedRows[old]; ok {
		t.Error("old row key not pruned")
	}
	if _, ok := e.processedRows[fresh]; !ok {
		t.Error("fresh row key pruned")
	}
}
