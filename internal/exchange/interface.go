// Package exchange defines the narrow contract the core trading engine
// uses to reach a live venue, plus the request/response shapes shared
// by every concrete adapter. Networking, authentication, rate limiting
// and symbol normalization are the adapter's problem; the core only
// ever depends on this interface.
package exchange

import (
	"context"

	"github.com/ducminhle1904/crypto-signal-engine/pkg/types"
)

// OrderRequest is a venue-agnostic order placement request. Symbols are
// canonical ("BTCUSDT"); the adapter owns translation to venue-native
// strings.
type OrderRequest struct {
	Symbol   string
	Side     types.Side
	Type     types.OrderType
	Quantity float64
	Price    float64 // ignored for market orders
}

// OrderResponse is the adapter's normalized acknowledgement of an order
// placement call.
type OrderResponse struct {
	OrderID    string
	Status     string
	FilledQty  float64
	AvgPrice   float64
}

// StreamKind identifies which streaming channel a Subscribe/Unsubscribe
// call targets.
type StreamKind int

const (
	StreamOrderBook StreamKind = iota
	StreamTicker
	StreamTrades
	StreamKlines
)

// Adapter is the contract every exchange integration implements. The
// core never sees raw credentials; a CLI or bootstrap layer wires them
// into an Adapter at construction time.
type Adapter interface {
	Initialize(ctx context.Context) error
	IsInitialized() bool

	// REST market data. interval is canonical ("1m", "1h", ...).
	GetTicker(ctx context.Context, symbol string) (*types.Ticker, error)
	GetOrderBook(ctx context.Context, symbol string, depth int) (*types.OrderBookSnapshot, error)
	GetRecentTrades(ctx context.Context, symbol string, n int) ([]types.TradeRecord, error)
	GetKlines(ctx context.Context, symbol, interval string, limit int, startMs, endMs int64) ([]types.Candle, error)

	// REST trading.
	PlaceOrder(ctx context.Context, req OrderRequest) (*OrderResponse, error)
	CancelOrder(ctx context.Context, symbol, orderID string) (bool, error)
	GetOrderStatus(ctx context.Context, symbol, orderID string) (*OrderResponse, error)
	GetOpenOrders(ctx context.Context, symbol string) ([]OrderResponse, error)
	GetAccountBalance(ctx context.Context, asset string) (float64, error)

	// Streaming. callback is invoked from the adapter's own read loop,
	// never while the adapter holds an internal lock.
	SubscribeOrderBook(symbol string, callback func(*types.OrderBookSnapshot)) (bool, error)
	SubscribeTicker(symbol string, callback func(*types.Ticker)) (bool, error)
	SubscribeTrades(symbol string, callback func(types.TradeRecord)) (bool, error)
	SubscribeKlines(symbol, interval string, callback func(types.Candle)) (bool, error)
	Unsubscribe(symbol string, kind StreamKind) error

	GetExchangeName() string
	GetAvailablePairs(ctx context.Context) ([]string, error)
	IsValidPair(symbol string) bool
}

// AdapterError is the standardized error surface every Adapter method
// returns on failure: transport, authorization, invalid-response, or
// rate-limit-exceeded, each tagged with whether a retry may succeed.
type AdapterError struct {
	Code        string
	Message     string
	Details     string
	IsRetryable bool
}

func (e *AdapterError) Error() string {
	if e.Details != "" {
		return e.Message + ": " + e.Details
	}
	return e.Message
}

var (
	ErrTransport       = &AdapterError{Code: "TRANSPORT", Message: "transport failure", IsRetryable: true}
	ErrAuthorization   = &AdapterError{Code: "AUTHORIZATION", Message: "authorization failed", IsRetryable: false}
	ErrInvalidResponse = &AdapterError{Code: "INVALID_RESPONSE", Message: "invalid response from exchange", IsRetryable: false}
	ErrRateLimited     = &AdapterError{Code: "RATE_LIMITED", Message: "rate limit exceeded", IsRetryable: true}
	ErrInvalidSymbol   = &AdapterError{Code: "INVALID_SYMBOL", Message: "invalid trading symbol", IsRetryable: false}
	ErrNotInitialized  = &AdapterError{Code: "NOT_INITIALIZED", Message: "adapter not initialized", IsRetryable: false}
)

// BybitConfig holds the credentials and environment selection for the
// Bybit adapter.
type BybitConfig struct {
	APIKey    string
	APISecret string
	Testnet   bool
	Demo      bool
}

// BinanceConfig holds the credentials and environment selection for the
// Binance adapter.
type BinanceConfig struct {
	APIKey    string
	APISecret string
	Testnet   bool
}
