package adapters

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ducminhle1904/crypto-signal-engine/internal/exchange"
	"github.com/ducminhle1904/crypto-signal-engine/pkg/types"
)

// BinanceAdapter implements exchange.Adapter against Binance's spot
// REST API and its raw per-stream WebSocket endpoint (/ws/<stream>).
type BinanceAdapter struct {
	cfg     exchange.BinanceConfig
	http    *http.Client
	baseURL string
	wsURL   string

	mu          sync.RWMutex
	initialized bool

	streamsMu sync.Mutex
	streams   map[string]*websocket.Conn
}

func NewBinanceAdapter(cfg exchange.BinanceConfig) *BinanceAdapter {
	baseURL := "https://api.binance.com"
	wsURL := "wss://stream.binance.com:9443/ws"
	if cfg.Testnet {
		baseURL = "https://testnet.binance.vision"
		wsURL = "wss://testnet.binance.vision/ws"
	}
	return &BinanceAdapter{
		cfg:     cfg,
		http:    &http.Client{Timeout: 15 * time.Second},
		baseURL: baseURL,
		wsURL:   wsURL,
		streams: make(map[string]*websocket.Conn),
	}
}

func (b *BinanceAdapter) GetExchangeName() string { return "Binance" }

func (b *BinanceAdapter) Initialize(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, b.baseURL+"/api/v3/time", nil)
	if err != nil {
		return exchange.ErrTransport
	}
	resp, err := b.http.Do(req)
	if err != nil {
		return &exchange.AdapterError{Code: exchange.ErrTransport.Code, Message: exchange.ErrTransport.Message, Details: err.Error(), IsRetryable: true}
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return exchange.ErrTransport
	}

	b.mu.Lock()
	b.initialized = true
	b.mu.Unlock()
	return nil
}

func (b *BinanceAdapter) IsInitialized() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.initialized
}

func (b *BinanceAdapter) GetTicker(ctx context.Context, symbol string) (*types.Ticker, error) {
	var raw struct {
		Symbol             string `json:"symbol"`
		LastPrice          string `json:"lastPrice"`
		BidPrice           string `json:"bidPrice"`
		AskPrice           string `json:"askPrice"`
		Volume             string `json:"volume"`
		PriceChangePercent string `json:"priceChangePercent"`
		CloseTime          int64  `json:"closeTime"`
	}
	if err := b.getJSON(ctx, "/api/v3/ticker/24hr", url.Values{"symbol": {symbol}}, &raw); err != nil {
		return nil, err
	}
	return &types.Ticker{
		Symbol:    raw.Symbol,
		Last:      parseFloatOr(raw.LastPrice, 0),
		Bid:       parseFloatOr(raw.BidPrice, 0),
		Ask:       parseFloatOr(raw.AskPrice, 0),
		Volume24h: parseFloatOr(raw.Volume, 0),
		Change24h: parseFloatOr(raw.PriceChangePercent, 0),
		Timestamp: raw.CloseTime,
	}, nil
}

func (b *BinanceAdapter) GetOrderBook(ctx context.Context, symbol string, depth int) (*types.OrderBookSnapshot, error) {
	if depth <= 0 || depth > 5000 {
		depth = 100
	}
	var raw struct {
		LastUpdateID int64      `json:"lastUpdateId"`
		Bids         [][]string `json:"bids"`
		Asks         [][]string `json:"asks"`
	}
	params := url.Values{"symbol": {symbol}, "limit": {strconv.Itoa(depth)}}
	if err := b.getJSON(ctx, "/api/v3/depth", params, &raw); err != nil {
		return nil, err
	}

	toLevels := func(rows [][]string) []types.PriceLevel {
		out := make([]types.PriceLevel, 0, len(rows))
		for _, r := range rows {
			if len(r) < 2 {
				continue
			}
			out = append(out, types.PriceLevel{Price: parseFloatOr(r[0], 0), Quantity: parseFloatOr(r[1], 0)})
		}
		return out
	}

	return &types.OrderBookSnapshot{
		Symbol:   symbol,
		Bids:     toLevels(raw.Bids),
		Asks:     toLevels(raw.Asks),
		UpdateID: raw.LastUpdateID,
	}, nil
}

func (b *BinanceAdapter) GetRecentTrades(ctx context.Context, symbol string, n int) ([]types.TradeRecord, error) {
	if n <= 0 || n > 1000 {
		n = 500
	}
	var raw []struct {
		ID      int64  `json:"id"`
		Price   string `json:"price"`
		Qty     string `json:"qty"`
		Time    int64  `json:"time"`
		IsBuyer bool   `json:"isBuyerMaker"`
	}
	params := url.Values{"symbol": {symbol}, "limit": {strconv.Itoa(n)}}
	if err := b.getJSON(ctx, "/api/v3/trades", params, &raw); err != nil {
		return nil, err
	}

	out := make([]types.TradeRecord, len(raw))
	for i, t := range raw {
		side := types.SideBuy
		if t.IsBuyer {
			side = types.SideSell
		}
		out[i] = types.TradeRecord{
			Symbol:    symbol,
			Price:     parseFloatOr(t.Price, 0),
			Quantity:  parseFloatOr(t.Qty, 0),
			Side:      side,
			Timestamp: t.Time,
			TradeID:   strconv.FormatInt(t.ID, 10),
		}
	}
	return out, nil
}

func (b *BinanceAdapter) GetKlines(ctx context.Context, symbol, interval string, limit int, startMs, endMs int64) ([]types.Candle, error) {
	if limit <= 0 || limit > 1000 {
		limit = 500
	}
	params := url.Values{"symbol": {symbol}, "interval": {interval}, "limit": {strconv.Itoa(limit)}}
	if startMs > 0 {
		params.Set("startTime", strconv.FormatInt(startMs, 10))
	}
	if endMs > 0 {
		params.Set("endTime", strconv.FormatInt(endMs, 10))
	}

	var raw [][]interface{}
	if err := b.getJSON(ctx, "/api/v3/klines", params, &raw); err != nil {
		return nil, err
	}

	out := make([]types.Candle, 0, len(raw))
	for _, row := range raw {
		if len(row) < 7 {
			continue
		}
		openTime, _ := row[0].(float64)
		closeTime, _ := row[6].(float64)
		out = append(out, types.Candle{
			Symbol:    symbol,
			OpenTime:  int64(openTime),
			CloseTime: int64(closeTime),
			Open:      parseFloatOr(fmt.Sprint(row[1]), 0),
			High:      parseFloatOr(fmt.Sprint(row[2]), 0),
			Low:       parseFloatOr(fmt.Sprint(row[3]), 0),
			Close:     parseFloatOr(fmt.Sprint(row[4]), 0),
			Volume:    parseFloatOr(fmt.Sprint(row[5]), 0),
		})
	}
	return out, nil
}

func (b *BinanceAdapter) PlaceOrder(ctx context.Context, req exchange.OrderRequest) (*exchange.OrderResponse, error) {
	params := url.Values{
		"symbol":   {req.Symbol},
		"side":     {string(req.Side)},
		"type":     {binanceOrderType(req.Type)},
		"quantity": {strconv.FormatFloat(req.Quantity, 'f', -1, 64)},
	}
	if req.Type == types.OrderTypeLimit {
		params.Set("price", strconv.FormatFloat(req.Price, 'f', -1, 64))
		params.Set("timeInForce", "GTC")
	}

	var raw struct {
		OrderID             int64  `json:"orderId"`
		Status              string `json:"status"`
		ExecutedQty         string `json:"executedQty"`
		CummulativeQuoteQty string `json:"cummulativeQuoteQty"`
	}
	if err := b.signedPost(ctx, "/api/v3/order", params, &raw); err != nil {
		return nil, err
	}

	executedQty := parseFloatOr(raw.ExecutedQty, 0)
	avgPrice := 0.0
	if executedQty > 0 {
		avgPrice = parseFloatOr(raw.CummulativeQuoteQty, 0) / executedQty
	}
	return &exchange.OrderResponse{
		OrderID:   strconv.FormatInt(raw.OrderID, 10),
		Status:    raw.Status,
		FilledQty: executedQty,
		AvgPrice:  avgPrice,
	}, nil
}

func (b *BinanceAdapter) CancelOrder(ctx context.Context, symbol, orderID string) (bool, error) {
	params := url.Values{"symbol": {symbol}, "orderId": {orderID}}
	var raw struct {
		Status string `json:"status"`
	}
	if err := b.signedDelete(ctx, "/api/v3/order", params, &raw); err != nil {
		return false, err
	}
	return raw.Status == "CANCELED", nil
}

func (b *BinanceAdapter) GetOrderStatus(ctx context.Context, symbol, orderID string) (*exchange.OrderResponse, error) {
	params := url.Values{"symbol": {symbol}, "orderId": {orderID}}
	var raw struct {
		OrderID     int64  `json:"orderId"`
		Status      string `json:"status"`
		ExecutedQty string `json:"executedQty"`
		Price       string `json:"price"`
	}
	if err := b.signedGet(ctx, "/api/v3/order", params, &raw); err != nil {
		return nil, err
	}
	return &exchange.OrderResponse{
		OrderID:   strconv.FormatInt(raw.OrderID, 10),
		Status:    raw.Status,
		FilledQty: parseFloatOr(raw.ExecutedQty, 0),
		AvgPrice:  parseFloatOr(raw.Price, 0),
	}, nil
}

func (b *BinanceAdapter) GetOpenOrders(ctx context.Context, symbol string) ([]exchange.OrderResponse, error) {
	params := url.Values{}
	if symbol != "" {
		params.Set("symbol", symbol)
	}
	var raw []struct {
		OrderID     int64  `json:"orderId"`
		Status      string `json:"status"`
		ExecutedQty string `json:"executedQty"`
		Price       string `json:"price"`
	}
	if err := b.signedGet(ctx, "/api/v3/openOrders", params, &raw); err != nil {
		return nil, err
	}
	out := make([]exchange.OrderResponse, len(raw))
	for i, o := range raw {
		out[i] = exchange.OrderResponse{
			OrderID:   strconv.FormatInt(o.OrderID, 10),
			Status:    o.Status,
			FilledQty: parseFloatOr(o.ExecutedQty, 0),
			AvgPrice:  parseFloatOr(o.Price, 0),
		}
	}
	return out, nil
}

func (b *BinanceAdapter) GetAccountBalance(ctx context.Context, asset string) (float64, error) {
	var raw struct {
		Balances []struct {
			Asset string `json:"asset"`
			Free  string `json:"free"`
		} `json:"balances"`
	}
	if err := b.signedGet(ctx, "/api/v3/account", url.Values{}, &raw); err != nil {
		return 0, err
	}
	for _, bal := range raw.Balances {
		if bal.Asset == asset {
			return parseFloatOr(bal.Free, 0), nil
		}
	}
	return 0, nil
}

// SubscribeOrderBook is not offered over Binance's raw streams at the
// depth this adapter needs; callers fall back to polling GetOrderBook.
func (b *BinanceAdapter) SubscribeOrderBook(symbol string, callback func(*types.OrderBookSnapshot)) (bool, error) {
	return false, exchange.ErrNotInitialized
}

func (b *BinanceAdapter) SubscribeTicker(symbol string, callback func(*types.Ticker)) (bool, error) {
	stream := strings.ToLower(symbol) + "@ticker"
	conn, err := b.dialStream(stream)
	if err != nil {
		return false, err
	}
	b.registerStream(symbol, exchange.StreamTicker, conn)

	go func() {
		defer b.closeStream(symbol, exchange.StreamTicker)
		for {
			var raw struct {
				Symbol    string `json:"s"`
				LastPrice string `json:"c"`
				BidPrice  string `json:"b"`
				AskPrice  string `json:"a"`
				Volume    string `json:"v"`
				ChangePct string `json:"P"`
				EventTime int64  `json:"E"`
			}
			if err := conn.ReadJSON(&raw); err != nil {
				return
			}
			callback(&types.Ticker{
				Symbol:    raw.Symbol,
				Last:      parseFloatOr(raw.LastPrice, 0),
				Bid:       parseFloatOr(raw.BidPrice, 0),
				Ask:       parseFloatOr(raw.AskPrice, 0),
				Volume24h: parseFloatOr(raw.Volume, 0),
				Change24h: parseFloatOr(raw.ChangePct, 0),
				Timestamp: raw.EventTime,
			})
		}
	}()
	return true, nil
}

func (b *BinanceAdapter) SubscribeTrades(symbol string, callback func(types.TradeRecord)) (bool, error) {
	stream := strings.ToLower(symbol) + "@trade"
	conn, err := b.dialStream(stream)
	if err != nil {
		return false, err
	}
	b.registerStream(symbol, exchange.StreamTrades, conn)

	go func() {
		defer b.closeStream(symbol, exchange.StreamTrades)
		for {
			var raw struct {
				Symbol      string `json:"s"`
				Price       string `json:"p"`
				Quantity    string `json:"q"`
				TradeID     int64  `json:"t"`
				TradeTime   int64  `json:"T"`
				IsBuyerMake bool   `json:"m"`
			}
			if err := conn.ReadJSON(&raw); err != nil {
				return
			}
			side := types.SideBuy
			if raw.IsBuyerMake {
				side = types.SideSell
			}
			callback(types.TradeRecord{
				Symbol:    raw.Symbol,
				Price:     parseFloatOr(raw.Price, 0),
				Quantity:  parseFloatOr(raw.Quantity, 0),
				Side:      side,
				Timestamp: raw.TradeTime,
				TradeID:   strconv.FormatInt(raw.TradeID, 10),
			})
		}
	}()
	return true, nil
}

func (b *BinanceAdapter) SubscribeKlines(symbol, interval string, callback func(types.Candle)) (bool, error) {
	stream := strings.ToLower(symbol) + "@kline_" + interval
	conn, err := b.dialStream(stream)
	if err != nil {
		return false, err
	}
	b.registerStream(symbol, exchange.StreamKlines, conn)

	go func() {
		defer b.closeStream(symbol, exchange.StreamKlines)
		for {
			var raw struct {
				Kline struct {
					OpenTime  int64  `json:"t"`
					CloseTime int64  `json:"T"`
					Open      string `json:"o"`
					High      string `json:"h"`
					Low       string `json:"l"`
					Close     string `json:"c"`
					Volume    string `json:"v"`
					Closed    bool   `json:"x"`
				} `json:"k"`
			}
			if err := conn.ReadJSON(&raw); err != nil {
				return
			}
			if !raw.Kline.Closed {
				continue
			}
			callback(types.Candle{
				Symbol:    symbol,
				OpenTime:  raw.Kline.OpenTime,
				CloseTime: raw.Kline.CloseTime,
				Open:      parseFloatOr(raw.Kline.Open, 0),
				High:      parseFloatOr(raw.Kline.High, 0),
				Low:       parseFloatOr(raw.Kline.Low, 0),
				Close:     parseFloatOr(raw.Kline.Close, 0),
				Volume:    parseFloatOr(raw.Kline.Volume, 0),
			})
		}
	}()
	return true, nil
}

func (b *BinanceAdapter) Unsubscribe(symbol string, kind exchange.StreamKind) error {
	b.closeStream(symbol, kind)
	return nil
}

func (b *BinanceAdapter) dialStream(stream string) (*websocket.Conn, error) {
	conn, _, err := websocket.DefaultDialer.Dial(b.wsURL+"/"+stream, nil)
	if err != nil {
		return nil, &exchange.AdapterError{Code: exchange.ErrTransport.Code, Message: exchange.ErrTransport.Message, Details: err.Error(), IsRetryable: true}
	}
	return conn, nil
}

func (b *BinanceAdapter) registerStream(symbol string, kind exchange.StreamKind, conn *websocket.Conn) {
	b.streamsMu.Lock()
	b.streams[streamKey(symbol, kind)] = conn
	b.streamsMu.Unlock()
}

func (b *BinanceAdapter) closeStream(symbol string, kind exchange.StreamKind) {
	key := streamKey(symbol, kind)
	b.streamsMu.Lock()
	conn, ok := b.streams[key]
	delete(b.streams, key)
	b.streamsMu.Unlock()
	if ok {
		conn.Close()
	}
}

func streamKey(symbol string, kind exchange.StreamKind) string {
	return symbol + ":" + strconv.Itoa(int(kind))
}

func (b *BinanceAdapter) GetAvailablePairs(ctx context.Context) ([]string, error) {
	var raw struct {
		Symbols []struct {
			Symbol string `json:"symbol"`
			Status string `json:"status"`
		} `json:"symbols"`
	}
	if err := b.getJSON(ctx, "/api/v3/exchangeInfo", url.Values{}, &raw); err != nil {
		return nil, err
	}
	var pairs []string
	for _, s := range raw.Symbols {
		if s.Status == "TRADING" {
			pairs = append(pairs, s.Symbol)
		}
	}
	return pairs, nil
}

func (b *BinanceAdapter) IsValidPair(symbol string) bool {
	return len(symbol) >= 5 // cheap heuristic; GetAvailablePairs is authoritative
}

func binanceOrderType(t types.OrderType) string {
	if t == types.OrderTypeLimit {
		return "LIMIT"
	}
	return "MARKET"
}

func parseFloatOr(s string, fallback float64) float64 {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fallback
	}
	return v
}

func (b *BinanceAdapter) getJSON(ctx context.Context, path string, params url.Values, out interface{}) error {
	reqURL := b.baseURL + path
	if encoded := params.Encode(); encoded != "" {
		reqURL += "?" + encoded
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return exchange.ErrTransport
	}
	return b.do(req, out)
}

func (b *BinanceAdapter) signedGet(ctx context.Context, path string, params url.Values, out interface{}) error {
	return b.signedRequest(ctx, http.MethodGet, path, params, out)
}
func (b *BinanceAdapter) signedPost(ctx context.Context, path string, params url.Values, out interface{}) error {
	return b.signedRequest(ctx, http.MethodPost, path, params, out)
}
func (b *BinanceAdapter) signedDelete(ctx context.Context, path string, params url.Values, out interface{}) error {
	return b.signedRequest(ctx, http.MethodDelete, path, params, out)
}

func (b *BinanceAdapter) signedRequest(ctx context.Context, method, path string, params url.Values, out interface{}) error {
	params.Set("timestamp", strconv.FormatInt(time.Now().UnixMilli(), 10))
	params.Set("signature", b.sign(params.Encode()))

	req, err := http.NewRequestWithContext(ctx, method, b.baseURL+path+"?"+params.Encode(), nil)
	if err != nil {
		return exchange.ErrTransport
	}
	req.Header.Set("X-MBX-APIKEY", b.cfg.APIKey)
	return b.do(req, out)
}

func (b *BinanceAdapter) sign(queryString string) string {
	mac := hmac.New(sha256.New, []byte(b.cfg.APISecret))
	mac.Write([]byte(queryString))
	return hex.EncodeToString(mac.Sum(nil))
}

func (b *BinanceAdapter) do(req *http.Request, out interface{}) error {
	resp, err := b.http.Do(req)
	if err != nil {
		return &exchange.AdapterError{Code: exchange.ErrTransport.Code, Message: exchange.ErrTransport.Message, Details: err.Error(), IsRetryable: true}
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return exchange.ErrAuthorization
	case http.StatusTooManyRequests:
		return exchange.ErrRateLimited
	}
	if resp.StatusCode >= 400 {
		return exchange.ErrInvalidResponse
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &exchange.AdapterError{Code: exchange.ErrInvalidResponse.Code, Message: exchange.ErrInvalidResponse.Message, Details: err.Error(), IsRetryable: false}
	}
	return nil
}
