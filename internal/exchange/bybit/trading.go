package bybit

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	bybit_api "github.com/bybit-exchange/bybit.go.api"
)

// OrderSide is the buy/sell side of an order.
type OrderSide string

const (
	OrderSideBuy  OrderSide = "Buy"
	OrderSideSell OrderSide = "Sell"
)

// OrderType is the order's fill behavior.
type OrderType string

const (
	OrderTypeMarket OrderType = "Market"
	OrderTypeLimit  OrderType = "Limit"
)

// TimeInForce controls how long a resting order stays active.
type TimeInForce string

const (
	TimeInForceGTC TimeInForce = "GTC"
)

// OrderStatus mirrors Bybit's order lifecycle states.
type OrderStatus string

const (
	OrderStatusNew             OrderStatus = "New"
	OrderStatusPartiallyFilled OrderStatus = "PartiallyFilled"
	OrderStatusFilled          OrderStatus = "Filled"
	OrderStatusCancelled       OrderStatus = "Cancelled"
	OrderStatusRejected        OrderStatus = "Rejected"
)

// Order is a placed or queried Bybit order, denormalized into the fields
// the adapter needs to build an exchange.OrderResponse.
type Order struct {
	OrderID     string
	OrderLinkID string
	Symbol      string
	Side        OrderSide
	OrderType   OrderType
	Qty         string
	Price       string
	TimeInForce TimeInForce
	OrderStatus OrderStatus
	CreatedTime time.Time
	UpdatedTime time.Time
	CumExecQty  string
	AvgPrice    string
}

// PlaceOrderParams holds the parameters for a new order.
type PlaceOrderParams struct {
	Category    string
	Symbol      string
	Side        OrderSide
	OrderType   OrderType
	Qty         string
	Price       string      // required for limit orders
	TimeInForce TimeInForce // defaults to GTC for limit orders
	OrderLinkID string
}

// PlaceOrder submits a new order.
func (c *Client) PlaceOrder(ctx context.Context, params PlaceOrderParams) (*Order, error) {
	if params.Category == "" {
		params.Category = "spot"
	}
	if params.Symbol == "" {
		return nil, fmt.Errorf("symbol is required")
	}
	if params.Side == "" {
		return nil, fmt.Errorf("side is required")
	}
	if params.OrderType == "" {
		return nil, fmt.Errorf("orderType is required")
	}
	if params.Qty == "" {
		return nil, fmt.Errorf("qty is required")
	}
	if params.OrderType == OrderTypeLimit && params.Price == "" {
		return nil, fmt.Errorf("price is required for limit orders")
	}
	if params.OrderType == OrderTypeLimit && params.TimeInForce == "" {
		params.TimeInForce = TimeInForceGTC
	}

	apiParams := map[string]interface{}{
		"category":  params.Category,
		"symbol":    params.Symbol,
		"side":      string(params.Side),
		"orderType": string(params.OrderType),
		"qty":       params.Qty,
	}
	if params.Price != "" {
		apiParams["price"] = params.Price
	}
	if params.TimeInForce != "" {
		apiParams["timeInForce"] = string(params.TimeInForce)
	}
	if params.OrderLinkID != "" {
		apiParams["orderLinkId"] = params.OrderLinkID
	}

	result, err := c.httpClient.NewUtaBybitServiceWithParams(apiParams).PlaceOrder(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to place order: %w", err)
	}
	return parseOrderResponse(result)
}

// CancelOrder cancels an existing order by ID.
func (c *Client) CancelOrder(ctx context.Context, category, symbol, orderID string) error {
	params := map[string]interface{}{
		"category": category,
		"symbol":   symbol,
		"orderId":  orderID,
	}
	if _, err := c.httpClient.NewUtaBybitServiceWithParams(params).CancelOrder(ctx); err != nil {
		return fmt.Errorf("failed to cancel order: %w", err)
	}
	return nil
}

// GetOpenOrders retrieves the open orders for category, optionally
// restricted to symbol.
func (c *Client) GetOpenOrders(ctx context.Context, category, symbol string) ([]Order, error) {
	params := map[string]interface{}{"category": category}
	if symbol != "" {
		params["symbol"] = symbol
	}

	result, err := c.httpClient.NewUtaBybitServiceWithParams(params).GetOpenOrders(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get open orders: %w", err)
	}
	return parseOrdersResponse(result)
}

// GetOrderStatus looks up a single order by ID among the open orders.
func (c *Client) GetOrderStatus(ctx context.Context, category, symbol, orderID string) (*Order, error) {
	orders, err := c.GetOpenOrders(ctx, category, symbol)
	if err != nil {
		return nil, fmt.Errorf("failed to get order status: %w", err)
	}
	for _, order := range orders {
		if order.OrderID == orderID {
			return &order, nil
		}
	}
	return nil, fmt.Errorf("order with ID %s not found", orderID)
}

func parseOrderResponse(response interface{}) (*Order, error) {
	serverResp, ok := response.(*bybit_api.ServerResponse)
	if !ok {
		return nil, fmt.Errorf("invalid response type")
	}
	if serverResp.RetCode != 0 {
		return nil, NewBybitError(serverResp.RetCode, serverResp.RetMsg)
	}

	resultBytes, err := json.Marshal(serverResp.Result)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal result: %w", err)
	}

	var raw rawOrder
	if err := json.Unmarshal(resultBytes, &raw); err != nil {
		return nil, fmt.Errorf("failed to unmarshal order result: %w", err)
	}
	return raw.toOrder(), nil
}

func parseOrdersResponse(response interface{}) ([]Order, error) {
	serverResp, ok := response.(*bybit_api.ServerResponse)
	if !ok {
		return nil, fmt.Errorf("invalid response type")
	}
	if serverResp.RetCode != 0 {
		return nil, NewBybitError(serverResp.RetCode, serverResp.RetMsg)
	}

	resultBytes, err := json.Marshal(serverResp.Result)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal result: %w", err)
	}

	var raw struct {
		List []rawOrder `json:"list"`
	}
	if err := json.Unmarshal(resultBytes, &raw); err != nil {
		return nil, fmt.Errorf("failed to unmarshal order list result: %w", err)
	}

	orders := make([]Order, len(raw.List))
	for i, o := range raw.List {
		orders[i] = *o.toOrder()
	}
	return orders, nil
}

// rawOrder mirrors the wire shape of a Bybit order record, shared between
// the single-order and order-list response parsers.
type rawOrder struct {
	OrderID     string `json:"orderId"`
	OrderLinkID string `json:"orderLinkId"`
	Symbol      string `json:"symbol"`
	Side        string `json:"side"`
	OrderType   string `json:"orderType"`
	Qty         string `json:"qty"`
	Price       string `json:"price"`
	TimeInForce string `json:"timeInForce"`
	OrderStatus string `json:"orderStatus"`
	CumExecQty  string `json:"cumExecQty"`
	AvgPrice    string `json:"avgPrice"`
	CreatedTime string `json:"createdTime"`
	UpdatedTime string `json:"updatedTime"`
}

func (r rawOrder) toOrder() *Order {
	return &Order{
		OrderID:     r.OrderID,
		OrderLinkID: r.OrderLinkID,
		Symbol:      r.Symbol,
		Side:        OrderSide(r.Side),
		OrderType:   OrderType(r.OrderType),
		Qty:         r.Qty,
		Price:       r.Price,
		TimeInForce: TimeInForce(r.TimeInForce),
		OrderStatus: OrderStatus(r.OrderStatus),
		CreatedTime: parseTimestamp(r.CreatedTime),
		UpdatedTime: parseTimestamp(r.UpdatedTime),
		CumExecQty:  r.CumExecQty,
		AvgPrice:    r.AvgPrice,
	}
}
