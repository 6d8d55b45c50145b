package adapters

import (
	"fmt"
	"strings"

	"github.com/ducminhle1904/crypto-signal-engine/internal/exchange"
)

// ExchangeConfig is the top-level exchange selection block: which venue
// to use and its credentials/environment flags.
type ExchangeConfig struct {
	Name    string
	Bybit   *exchange.BybitConfig
	Binance *exchange.BinanceConfig
}

// Factory creates exchange.Adapter instances from configuration.
type Factory struct{}

func NewFactory() *Factory {
	return &Factory{}
}

// CreateAdapter builds the adapter named in config.Name. It does not
// call Initialize; the caller does that once it holds a context.
func (f *Factory) CreateAdapter(config ExchangeConfig) (exchange.Adapter, error) {
	switch strings.ToLower(strings.TrimSpace(config.Name)) {
	case "bybit":
		if err := f.validateBybitConfig(config.Bybit); err != nil {
			return nil, err
		}
		return NewBybitAdapter(*config.Bybit), nil
	case "binance":
		if err := f.validateBinanceConfig(config.Binance); err != nil {
			return nil, err
		}
		return NewBinanceAdapter(*config.Binance), nil
	default:
		return nil, &exchange.AdapterError{
			Code:    "UNSUPPORTED_EXCHANGE",
			Message: fmt.Sprintf("exchange %q is not supported", config.Name),
			Details: "supported exchanges: bybit, binance",
		}
	}
}

func (f *Factory) GetSupportedExchanges() []string {
	return []string{"bybit", "binance"}
}

func (f *Factory) validateBybitConfig(config *exchange.BybitConfig) error {
	if config == nil {
		return &exchange.AdapterError{Code: "MISSING_BYBIT_CONFIG", Message: "bybit configuration is required"}
	}
	if config.APIKey == "" || config.APISecret == "" {
		return &exchange.AdapterError{Code: "MISSING_CREDENTIALS", Message: "bybit API key and secret are required"}
	}
	if config.Testnet && config.Demo {
		return &exchange.AdapterError{Code: "INVALID_ENVIRONMENT", Message: "cannot use both testnet and demo mode simultaneously"}
	}
	return nil
}

func (f *Factory) validateBinanceConfig(config *exchange.BinanceConfig) error {
	if config == nil {
		return &exchange.AdapterError{Code: "MISSING_BINANCE_CONFIG", Message: "binance configuration is required"}
	}
	if config.APIKey == "" || config.APISecret == "" {
		return &exchange.AdapterError{Code: "MISSING_CREDENTIALS", Message: "binance API key and secret are required"}
	}
	return nil
}

// Capabilities describes what features a named exchange supports, for
// operator-facing reporting; the core never branches on it.
type Capabilities struct {
	SpotTrading    bool
	FuturesTrading bool
	DemoMode       bool
	TestnetMode    bool
	MaxLeverage    int
}

func (f *Factory) GetCapabilities(exchangeName string) (*Capabilities, error) {
	switch strings.ToLower(strings.TrimSpace(exchangeName)) {
	case "bybit":
		return &Capabilities{SpotTrading: true, FuturesTrading: true, DemoMode: true, TestnetMode: true, MaxLeverage: 100}, nil
	case "binance":
		return &Capabilities{SpotTrading: true, FuturesTrading: true, DemoMode: false, TestnetMode: true, MaxLeverage: 125}, nil
	default:
		return nil, &exchange.AdapterError{Code: "UNSUPPORTED_EXCHANGE", Message: fmt.Sprintf("exchange %q is not supported", exchangeName)}
	}
}
