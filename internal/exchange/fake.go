package exchange

import (
	"context"
	"fmt"
	"sync"

	"maker-systemv1/internal/model"
)

// CreatedOrder records one CreateOrder call against the Fake.
type CreatedOrder struct {
	Req model.OrderRequest
	ID  string
}

// Fake is an in-memory ExchangeClient for tests: canned market data,
// scripted order state, and full call recording.
type Fake struct {
	mu sync.Mutex

	Markets    []model.Market
	Positions  []model.ExchangePosition
	Books      map[string]model.OrderBook
	Tickers    map[string]model.Ticker
	Collateral float64

	// Orders reported by FetchOpenOrders / FetchOrder, keyed by id.
	// Ids absent from the map yield ErrOrderNotFound.
	Orders map[string]model.ExchangeOrder

	Created        []CreatedOrder
	Canceled       []string
	CanceledAll    []string
	LeverageCalls  map[string]float64
	RiskLimitCalls map[string]int
	OneWayMode     bool
	Tiers          map[string][]model.LeverageTier

	// CreateErr, when set, fails the next CreateOrder.
	CreateErr error

	nextID int
}

// NewFake returns an empty fake exchange.
func NewFake() *Fake {
	return &Fake{
		Books:          map[string]model.OrderBook{},
		Tickers:        map[string]model.Ticker{},
		Orders:         map[string]model.ExchangeOrder{},
		LeverageCalls:  map[string]float64{},
		RiskLimitCalls: map[string]int{},
		Tiers:          map[string][]model.LeverageTier{},
	}
}

func (f *Fake) Name() string { return "fake" }

func (f *Fake) FetchMarkets(context.Context) ([]model.Market, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]model.Market(nil), f.Markets...), nil
}

func (f *Fake) FetchOpenOrders(_ context.Context, symbol string) ([]model.ExchangeOrder, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.ExchangeOrder
	for _, o := range f.Orders {
		if o.Symbol == symbol && o.Status == model.OrderOpen {
			out = append(out, o)
		}
	}
	return out, nil
}

func (f *Fake) FetchOrder(_ context.Context, id, _ string) (model.ExchangeOrder, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.Orders[id]
	if !ok {
		return model.ExchangeOrder{}, model.ErrOrderNotFound
	}
	return o, nil
}

func (f *Fake) CancelOrder(_ context.Context, id, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Canceled = append(f.Canceled, id)
	o, ok := f.Orders[id]
	if !ok {
		return model.ErrOrderNotFound
	}
	o.Status = model.OrderCanceled
	f.Orders[id] = o
	return nil
}

func (f *Fake) CancelAllOrders(_ context.Context, symbol string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.CanceledAll = append(f.CanceledAll, symbol)
	return nil
}

func (f *Fake) FetchPositions(context.Context) ([]model.ExchangePosition, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]model.ExchangePosition(nil), f.Positions...), nil
}

func (f *Fake) FetchOrderBook(_ context.Context, symbol string) (model.OrderBook, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	book, ok := f.Books[symbol]
	if !ok {
		return model.OrderBook{}, fmt.Errorf("no book for %s", symbol)
	}
	return book, nil
}

func (f *Fake) FetchTicker(_ context.Context, symbol string) (model.Ticker, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.Tickers[symbol]
	if !ok {
		return model.Ticker{}, fmt.Errorf("no ticker for %s", symbol)
	}
	return t, nil
}

func (f *Fake) FetchCollateral(context.Context) (float64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Collateral, nil
}

func (f *Fake) CreateOrder(_ context.Context, req model.OrderRequest) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.CreateErr != nil {
		err := f.CreateErr
		f.CreateErr = nil
		return "", err
	}
	f.nextID++
	id := fmt.Sprintf("ex-%d", f.nextID)
	f.Created = append(f.Created, CreatedOrder{Req: req, ID: id})
	f.Orders[id] = model.ExchangeOrder{
		ID:     id,
		Symbol: req.Symbol,
		Status: model.OrderOpen,
	}
	return id, nil
}

func (f *Fake) SetLeverage(_ context.Context, symbol string, leverage float64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.LeverageCalls[symbol] = leverage
	return nil
}

func (f *Fake) SetPositionMode(_ context.Context, oneWay bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.OneWayMode = oneWay
	return nil
}

func (f *Fake) SetRiskLimitLevel(_ context.Context, symbol string, level int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.RiskLimitCalls[symbol] = level
	return nil
}

func (f *Fake) FetchLeverageTiers(_ context.Context, symbol string) ([]model.LeverageTier, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Tiers[symbol], nil
}

// SetFilled marks a scripted order's fill progress and status, as the
// exchange would report after (partial) execution.
func (f *Fake) SetFilled(id string, filled float64, status model.OrderStatus) {
	f.mu.Lock()
	defer f.mu.Unlock()
	o := f.Orders[id]
	o.ID = id
	o.Filled = filled
	o.Status = status
	f.Orders[id] = o
}
