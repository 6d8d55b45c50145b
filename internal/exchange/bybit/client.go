package bybit

import (
	bybit_api "github.com/bybit-exchange/bybit.go.api"
)

// Client wraps the Bybit v5 unified-trading-account HTTP client with the
// subset of account/market/trading calls the exchange adapter needs.
type Client struct {
	httpClient *bybit_api.Client
	apiKey     string
	apiSecret  string
	testnet    bool
	demo       bool
}

// Config selects which Bybit environment a Client talks to.
type Config struct {
	APIKey    string
	APISecret string
	Testnet   bool
	Demo      bool // paper-trading environment, distinct from Testnet
}

// NewClient builds a Client against the environment config selects: demo
// takes priority over testnet, which takes priority over mainnet.
func NewClient(config Config) *Client {
	baseURL := bybit_api.MAINNET
	switch {
	case config.Demo:
		baseURL = "https://api-demo.bybit.com"
	case config.Testnet:
		baseURL = bybit_api.TESTNET
	}

	httpClient := bybit_api.NewBybitHttpClient(
		config.APIKey,
		config.APISecret,
		bybit_api.WithBaseURL(baseURL),
	)

	return &Client{
		httpClient: httpClient,
		apiKey:     config.APIKey,
		apiSecret:  config.APISecret,
		testnet:    config.Testnet,
		demo:       config.Demo,
	}
}

func (c *Client) IsTestnet() bool { return c.testnet }
func (c *Client) IsDemo() bool    { return c.demo }

// GetEnvironment names the environment this client was constructed against.
func (c *Client) GetEnvironment() string {
	switch {
	case c.demo:
		return "demo"
	case c.testnet:
		return "testnet"
	default:
		return "mainnet"
	}
}
