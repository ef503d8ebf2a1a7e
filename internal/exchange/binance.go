package exchange

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"

	"github.com/adshao/go-binance/v2/common"
	"github.com/adshao/go-binance/v2/futures"

	"maker-systemv1/internal/model"
)

// Binance futures API error codes.
const (
	binanceUnknownOrderCancel = -2011 // cancel: unknown order
	binanceOrderDoesNotExist  = -2013 // query: order does not exist
	binanceNoNeedChangeMode   = -4059 // position mode already set
)

// BinanceClient implements model.ExchangeClient over the USDT-margined
// futures REST API.
type BinanceClient struct {
	fu *futures.Client

	mu      sync.Mutex
	markets model.MarketSet // cached by FetchMarkets, used for price formatting
}

// NewBinanceClient creates a futures client and syncs server time.
func NewBinanceClient(ctx context.Context, cfg ClientConfig) (*BinanceClient, error) {
	futures.UseTestnet = cfg.Testnet
	fu := futures.NewClient(cfg.APIKey, cfg.APISecret)
	if _, err := fu.NewSetServerTimeService().Do(ctx); err != nil {
		return nil, fmt.Errorf("binance time sync: %w", err)
	}
	return &BinanceClient{fu: fu, markets: model.MarketSet{}}, nil
}

func (c *BinanceClient) Name() string { return "binance" }

// FetchMarkets returns descriptors for all trading USDT perpetuals.
func (c *BinanceClient) FetchMarkets(ctx context.Context) ([]model.Market, error) {
	info, err := c.fu.NewExchangeInfoService().Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("binance exchange info: %w", err)
	}

	markets := make([]model.Market, 0, len(info.Symbols))
	for _, s := range info.Symbols {
		if s.ContractType != "PERPETUAL" || s.QuoteAsset != "USDT" || s.Status != "TRADING" {
			continue
		}
		m := model.Market{
			Symbol:          s.Symbol,
			Base:            s.BaseAsset,
			AmountPrecision: model.Precision{Digits: s.QuantityPrecision},
			PricePrecision:  model.Precision{Digits: s.PricePrecision},
		}
		if f := s.LotSizeFilter(); f != nil {
			m.MinAmount = parseFloat(f.MinQuantity)
			m.MaxAmount = parseFloat(f.MaxQuantity)
			if step := parseFloat(f.StepSize); step > 0 {
				m.AmountPrecision = model.Precision{Step: step}
			}
		}
		if f := s.MinNotionalFilter(); f != nil {
			m.MinNotional = parseFloat(f.Notional)
		}
		// adapter overrides are the caller's job; descriptors leave
		// here exactly as the venue reports them
		markets = append(markets, m)
	}

	c.mu.Lock()
	for _, m := range markets {
		c.markets[m.Symbol] = m
	}
	c.mu.Unlock()
	return markets, nil
}

func (c *BinanceClient) FetchOpenOrders(ctx context.Context, symbol string) ([]model.ExchangeOrder, error) {
	orders, err := c.fu.NewListOpenOrdersService().Symbol(symbol).Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("binance open orders %s: %w", symbol, err)
	}
	out := make([]model.ExchangeOrder, 0, len(orders))
	for _, o := range orders {
		out = append(out, convertOrder(o))
	}
	return out, nil
}

func (c *BinanceClient) FetchOrder(ctx context.Context, id, symbol string) (model.ExchangeOrder, error) {
	oid, err := strconv.ParseInt(id, 10, 64)
	if err != nil {
		return model.ExchangeOrder{}, fmt.Errorf("binance order id %q: %w", id, err)
	}
	o, err := c.fu.NewGetOrderService().Symbol(symbol).OrderID(oid).Do(ctx)
	if err != nil {
		if apiErrCode(err) == binanceOrderDoesNotExist {
			return model.ExchangeOrder{}, model.ErrOrderNotFound
		}
		return model.ExchangeOrder{}, fmt.Errorf("binance get order %s: %w", id, err)
	}
	return convertOrder(o), nil
}

func (c *BinanceClient) CancelOrder(ctx context.Context, id, symbol string) error {
	oid, err := strconv.ParseInt(id, 10, 64)
	if err != nil {
		return fmt.Errorf("binance order id %q: %w", id, err)
	}
	if _, err := c.fu.NewCancelOrderService().Symbol(symbol).OrderID(oid).Do(ctx); err != nil {
		code := apiErrCode(err)
		if code == binanceUnknownOrderCancel || code == binanceOrderDoesNotExist {
			return model.ErrOrderNotFound
		}
		return fmt.Errorf("binance cancel order %s: %w", id, err)
	}
	return nil
}

func (c *BinanceClient) CancelAllOrders(ctx context.Context, symbol string) error {
	if err := c.fu.NewCancelAllOpenOrdersService().Symbol(symbol).Do(ctx); err != nil {
		return fmt.Errorf("binance cancel all %s: %w", symbol, err)
	}
	return nil
}

func (c *BinanceClient) FetchPositions(ctx context.Context) ([]model.ExchangePosition, error) {
	risks, err := c.fu.NewGetPositionRiskService().Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("binance positions: %w", err)
	}
	out := make([]model.ExchangePosition, 0, len(risks))
	for _, r := range risks {
		out = append(out, model.ExchangePosition{
			Symbol:   r.Symbol,
			Position: parseFloat(r.PositionAmt),
		})
	}
	return out, nil
}

func (c *BinanceClient) FetchOrderBook(ctx context.Context, symbol string) (model.OrderBook, error) {
	depth, err := c.fu.NewDepthService().Symbol(symbol).Limit(5).Do(ctx)
	if err != nil {
		return model.OrderBook{}, fmt.Errorf("binance depth %s: %w", symbol, err)
	}
	book := model.OrderBook{}
	for _, a := range depth.Asks {
		book.Asks = append(book.Asks, model.PriceLevel{Price: parseFloat(a.Price), Size: parseFloat(a.Quantity)})
	}
	for _, b := range depth.Bids {
		book.Bids = append(book.Bids, model.PriceLevel{Price: parseFloat(b.Price), Size: parseFloat(b.Quantity)})
	}
	return book, nil
}

func (c *BinanceClient) FetchTicker(ctx context.Context, symbol string) (model.Ticker, error) {
	prices, err := c.fu.NewListPricesService().Symbol(symbol).Do(ctx)
	if err != nil {
		return model.Ticker{}, fmt.Errorf("binance ticker %s: %w", symbol, err)
	}
	if len(prices) == 0 {
		return model.Ticker{}, fmt.Errorf("binance ticker %s: empty response", symbol)
	}
	return model.Ticker{Last: parseFloat(prices[0].Price)}, nil
}

// FetchCollateral returns total margin balance across the futures
// account, the same figure the account page reports.
func (c *BinanceClient) FetchCollateral(ctx context.Context) (float64, error) {
	acct, err := c.fu.NewGetAccountService().Do(ctx)
	if err != nil {
		return 0, fmt.Errorf("binance account: %w", err)
	}
	return parseFloat(acct.TotalMarginBalance), nil
}

func (c *BinanceClient) CreateOrder(ctx context.Context, req model.OrderRequest) (string, error) {
	side := futures.SideTypeBuy
	if req.Side == "sell" {
		side = futures.SideTypeSell
	}

	svc := c.fu.NewCreateOrderService().
		Symbol(req.Symbol).
		Side(side).
		Quantity(formatFloat(req.Amount))

	if req.Type == "market" {
		svc = svc.Type(futures.OrderTypeMarket)
	} else {
		svc = svc.Type(futures.OrderTypeLimit).
			Price(formatFloat(c.roundPrice(req.Symbol, req.Price)))
	}
	if tif, ok := req.Params["timeInForce"].(string); ok {
		svc = svc.TimeInForce(futures.TimeInForceType(tif))
	}
	if req.Params["reduceOnly"] == "true" {
		svc = svc.ReduceOnly(true)
	}
	if req.ClientOrderID != "" {
		svc = svc.NewClientOrderID(req.ClientOrderID)
	}

	res, err := svc.Do(ctx)
	if err != nil {
		return "", fmt.Errorf("binance create order %s: %w", req.Symbol, err)
	}
	return strconv.FormatInt(res.OrderID, 10), nil
}

func (c *BinanceClient) SetLeverage(ctx context.Context, symbol string, leverage float64) error {
	_, err := c.fu.NewChangeLeverageService().Symbol(symbol).Leverage(int(leverage)).Do(ctx)
	if err != nil {
		return fmt.Errorf("binance set leverage %s: %w", symbol, err)
	}
	return nil
}

func (c *BinanceClient) SetPositionMode(ctx context.Context, oneWay bool) error {
	err := c.fu.NewChangePositionModeService().DualSide(!oneWay).Do(ctx)
	if err != nil && apiErrCode(err) != binanceNoNeedChangeMode {
		return fmt.Errorf("binance position mode: %w", err)
	}
	return nil
}

// SetRiskLimitLevel is a no-op: Binance expresses risk limits through
// the leverage brackets applied by SetLeverage.
func (c *BinanceClient) SetRiskLimitLevel(context.Context, string, int) error {
	return nil
}

func (c *BinanceClient) FetchLeverageTiers(ctx context.Context, symbol string) ([]model.LeverageTier, error) {
	brackets, err := c.fu.NewGetLeverageBracketService().Symbol(symbol).Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("binance leverage brackets %s: %w", symbol, err)
	}
	var tiers []model.LeverageTier
	for _, lb := range brackets {
		for _, b := range lb.Brackets {
			tiers = append(tiers, model.LeverageTier{
				Tier:        b.Bracket,
				MaxLeverage: float64(b.InitialLeverage),
			})
		}
	}
	return tiers, nil
}

// roundPrice snaps a price to the market's tick when the descriptor is
// cached; the raw price passes through otherwise.
func (c *BinanceClient) roundPrice(symbol string, price float64) float64 {
	c.mu.Lock()
	m, ok := c.markets[symbol]
	c.mu.Unlock()
	if !ok {
		return price
	}
	return RoundPrecision(price, m.PricePrecision)
}

func convertOrder(o *futures.Order) model.ExchangeOrder {
	return model.ExchangeOrder{
		ID:     strconv.FormatInt(o.OrderID, 10),
		Symbol: o.Symbol,
		Filled: parseFloat(o.ExecutedQuantity),
		Status: convertStatus(o.Status),
	}
}

func convertStatus(s futures.OrderStatusType) model.OrderStatus {
	switch s {
	case futures.OrderStatusTypeNew, futures.OrderStatusTypePartiallyFilled:
		return model.OrderOpen
	case futures.OrderStatusTypeFilled:
		return model.OrderClosed
	default:
		return model.OrderCanceled
	}
}

func apiErrCode(err error) int64 {
	var apiErr *common.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code
	}
	return 0
}

func parseFloat(s string) float64 {
	f, _ := strconv.ParseFloat(s, 64)
	return f
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
