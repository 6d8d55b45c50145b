package adapters

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/ducminhle1904/crypto-signal-engine/internal/exchange"
	"github.com/ducminhle1904/crypto-signal-engine/internal/exchange/bybit"
	"github.com/ducminhle1904/crypto-signal-engine/pkg/types"
)

func timeFromMs(ms int64) time.Time {
	return time.UnixMilli(ms)
}

// BybitAdapter implements exchange.Adapter on top of the bybit package's
// REST client. Streaming subscriptions are not wired: the Subscribe*
// methods return ErrNotInitialized and no websocket is dialed.
type BybitAdapter struct {
	client   *bybit.Client
	category string // "spot" or "linear"

	mu          sync.RWMutex
	initialized bool
}

func NewBybitAdapter(cfg exchange.BybitConfig) *BybitAdapter {
	client := bybit.NewClient(bybit.Config{
		APIKey:    cfg.APIKey,
		APISecret: cfg.APISecret,
		Testnet:   cfg.Testnet,
		Demo:      cfg.Demo,
	})
	return &BybitAdapter{client: client, category: "spot"}
}

func (b *BybitAdapter) GetExchangeName() string { return "Bybit" }

func (b *BybitAdapter) Initialize(ctx context.Context) error {
	if _, err := b.client.GetLatestPrice(ctx, b.category, "BTCUSDT"); err != nil {
		return b.convertError(err)
	}
	b.mu.Lock()
	b.initialized = true
	b.mu.Unlock()
	return nil
}

func (b *BybitAdapter) IsInitialized() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.initialized
}

func (b *BybitAdapter) GetTicker(ctx context.Context, symbol string) (*types.Ticker, error) {
	price, err := b.client.GetLatestPrice(ctx, b.category, symbol)
	if err != nil {
		return nil, b.convertError(err)
	}
	return &types.Ticker{Symbol: symbol, Last: price}, nil
}

func (b *BybitAdapter) GetOrderBook(ctx context.Context, symbol string, depth int) (*types.OrderBookSnapshot, error) {
	ob, err := b.client.GetOrderBook(ctx, b.category, symbol, depth)
	if err != nil {
		return nil, b.convertError(err)
	}

	toLevels := func(rows []bybit.OrderBookLevel) []types.PriceLevel {
		out := make([]types.PriceLevel, len(rows))
		for i, r := range rows {
			out[i] = types.PriceLevel{Price: r.Price, Quantity: r.Quantity}
		}
		return out
	}

	return &types.OrderBookSnapshot{
		Symbol:   ob.Symbol,
		Bids:     toLevels(ob.Bids),
		Asks:     toLevels(ob.Asks),
		UpdateID: ob.UpdateID,
	}, nil
}

func (b *BybitAdapter) GetRecentTrades(ctx context.Context, symbol string, n int) ([]types.TradeRecord, error) {
	trades, err := b.client.GetRecentTrades(ctx, b.category, symbol, n)
	if err != nil {
		return nil, b.convertError(err)
	}

	out := make([]types.TradeRecord, len(trades))
	for i, t := range trades {
		side := types.SideBuy
		if t.Side == string(bybit.OrderSideSell) {
			side = types.SideSell
		}
		out[i] = types.TradeRecord{
			Symbol:    t.Symbol,
			Price:     t.Price,
			Quantity:  t.Quantity,
			Side:      side,
			Timestamp: t.Timestamp,
			TradeID:   t.TradeID,
		}
	}
	return out, nil
}

func (b *BybitAdapter) GetKlines(ctx context.Context, symbol, interval string, limit int, startMs, endMs int64) ([]types.Candle, error) {
	params := bybit.KlineParams{
		Category: b.category,
		Symbol:   symbol,
		Interval: convertIntervalToBybit(interval),
		Limit:    limit,
	}
	if startMs > 0 {
		start := timeFromMs(startMs)
		params.Start = &start
	}
	if endMs > 0 {
		end := timeFromMs(endMs)
		params.End = &end
	}

	klines, err := b.client.GetKlines(ctx, params)
	if err != nil {
		return nil, b.convertError(err)
	}

	out := make([]types.Candle, len(klines))
	for i, k := range klines {
		out[i] = types.Candle{
			Symbol:   symbol,
			OpenTime: k.StartTime.UnixMilli(),
			Open:     k.OpenPrice,
			High:     k.HighPrice,
			Low:      k.LowPrice,
			Close:    k.ClosePrice,
			Volume:   k.Volume,
		}
	}
	return out, nil
}

func (b *BybitAdapter) PlaceOrder(ctx context.Context, req exchange.OrderRequest) (*exchange.OrderResponse, error) {
	order, err := b.client.PlaceOrder(ctx, bybit.PlaceOrderParams{
		Category:  b.category,
		Symbol:    req.Symbol,
		Side:      convertOrderSide(req.Side),
		OrderType: convertOrderType(req.Type),
		Qty:       strconv.FormatFloat(req.Quantity, 'f', -1, 64),
		Price:     priceOrEmpty(req),
	})
	if err != nil {
		return nil, b.convertError(err)
	}
	return &exchange.OrderResponse{
		OrderID:   order.OrderID,
		Status:    string(order.OrderStatus),
		FilledQty: parseFloatOr(order.CumExecQty, 0),
		AvgPrice:  parseFloatOr(order.AvgPrice, 0),
	}, nil
}

func (b *BybitAdapter) CancelOrder(ctx context.Context, symbol, orderID string) (bool, error) {
	if err := b.client.CancelOrder(ctx, b.category, symbol, orderID); err != nil {
		return false, b.convertError(err)
	}
	return true, nil
}

func (b *BybitAdapter) GetOrderStatus(ctx context.Context, symbol, orderID string) (*exchange.OrderResponse, error) {
	order, err := b.client.GetOrderStatus(ctx, b.category, symbol, orderID)
	if err != nil {
		return nil, b.convertError(err)
	}
	return &exchange.OrderResponse{
		OrderID:   order.OrderID,
		Status:    string(order.OrderStatus),
		FilledQty: parseFloatOr(order.CumExecQty, 0),
		AvgPrice:  parseFloatOr(order.AvgPrice, 0),
	}, nil
}

func (b *BybitAdapter) GetOpenOrders(ctx context.Context, symbol string) ([]exchange.OrderResponse, error) {
	orders, err := b.client.GetOpenOrders(ctx, b.category, symbol)
	if err != nil {
		return nil, b.convertError(err)
	}
	out := make([]exchange.OrderResponse, len(orders))
	for i, o := range orders {
		out[i] = exchange.OrderResponse{
			OrderID:   o.OrderID,
			Status:    string(o.OrderStatus),
			FilledQty: parseFloatOr(o.CumExecQty, 0),
			AvgPrice:  parseFloatOr(o.AvgPrice, 0),
		}
	}
	return out, nil
}

func (b *BybitAdapter) GetAccountBalance(ctx context.Context, asset string) (float64, error) {
	balance, err := b.client.GetTradableBalance(ctx, bybit.AccountTypeUnified, asset)
	if err != nil {
		return 0, b.convertError(err)
	}
	return balance, nil
}

func (b *BybitAdapter) SubscribeOrderBook(symbol string, callback func(*types.OrderBookSnapshot)) (bool, error) {
	return false, exchange.ErrNotInitialized
}
func (b *BybitAdapter) SubscribeTicker(symbol string, callback func(*types.Ticker)) (bool, error) {
	return false, exchange.ErrNotInitialized
}
func (b *BybitAdapter) SubscribeTrades(symbol string, callback func(types.TradeRecord)) (bool, error) {
	return false, exchange.ErrNotInitialized
}
func (b *BybitAdapter) SubscribeKlines(symbol, interval string, callback func(types.Candle)) (bool, error) {
	return false, exchange.ErrNotInitialized
}
func (b *BybitAdapter) Unsubscribe(symbol string, kind exchange.StreamKind) error {
	return nil
}

func (b *BybitAdapter) GetAvailablePairs(ctx context.Context) ([]string, error) {
	return nil, fmt.Errorf("bybit adapter: GetAvailablePairs requires an instrument-info sweep, not wired")
}

func (b *BybitAdapter) IsValidPair(symbol string) bool {
	return len(symbol) >= 5
}

func convertOrderSide(side types.Side) bybit.OrderSide {
	if side == types.SideSell {
		return bybit.OrderSideSell
	}
	return bybit.OrderSideBuy
}

func convertOrderType(t types.OrderType) bybit.OrderType {
	if t == types.OrderTypeLimit {
		return bybit.OrderTypeLimit
	}
	return bybit.OrderTypeMarket
}

func priceOrEmpty(req exchange.OrderRequest) string {
	if req.Type != types.OrderTypeLimit {
		return ""
	}
	return strconv.FormatFloat(req.Price, 'f', -1, 64)
}

// convertIntervalToBybit maps a canonical interval string ("1m", "1h",
// "1d") to Bybit's numeric-minute-or-letter convention.
func convertIntervalToBybit(interval string) bybit.KlineInterval {
	switch interval {
	case "1m":
		return bybit.Interval1m
	case "3m":
		return bybit.Interval3m
	case "5m":
		return bybit.Interval5m
	case "15m":
		return bybit.Interval15m
	case "30m":
		return bybit.Interval30m
	case "1h":
		return bybit.Interval1h
	case "4h":
		return bybit.Interval4h
	case "1d":
		return bybit.Interval1d
	default:
		return bybit.Interval5m
	}
}

func (b *BybitAdapter) convertError(err error) error {
	if err == nil {
		return nil
	}
	if bybit.IsAuthenticationError(err) {
		return &exchange.AdapterError{Code: exchange.ErrAuthorization.Code, Message: exchange.ErrAuthorization.Message, Details: err.Error(), IsRetryable: false}
	}
	if bybit.IsRateLimitError(err) {
		return &exchange.AdapterError{Code: exchange.ErrRateLimited.Code, Message: exchange.ErrRateLimited.Message, Details: err.Error(), IsRetryable: true}
	}
	if bybit.IsRetryableError(err) {
		return &exchange.AdapterError{Code: exchange.ErrTransport.Code, Message: exchange.ErrTransport.Message, Details: err.Error(), IsRetryable: true}
	}
	return &exchange.AdapterError{Code: exchange.ErrInvalidResponse.Code, Message: exchange.ErrInvalidResponse.Message, Details: err.Error(), IsRetryable: false}
}
