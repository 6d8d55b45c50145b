// Package config loads the engine's runtime configuration: exchange
// credentials from the environment (via godotenv), and a structured
// JSON (or, by file extension, YAML) document for strategy and risk
// parameters, mirroring the teacher's pkg/config/manager.go JSON-file
// loading pattern.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/ducminhle1904/crypto-signal-engine/internal/risk"
	"github.com/ducminhle1904/crypto-signal-engine/pkg/types"
)

// ExchangeConfig carries credentials and connectivity options for a
// single venue. Credentials never flow through the core - this struct
// is only ever handed to an adapter constructor.
type ExchangeConfig struct {
	Name    string `json:"name" yaml:"name"`
	APIKey  string `json:"-" yaml:"-"`
	Secret  string `json:"-" yaml:"-"`
	Testnet bool   `json:"testnet" yaml:"testnet"`
}

// RiskConfig mirrors internal/risk.Parameters field-for-field so a
// config document's top-level "risk" section can be unmarshaled
// directly into the manager's own parameter names.
type RiskConfig struct {
	MaxCapitalPerTrade    float64 `json:"max_capital_per_trade_pct" yaml:"max_capital_per_trade_pct"`
	MaxTotalExposure      float64 `json:"max_total_exposure_pct" yaml:"max_total_exposure_pct"`
	MaxSymbolExposure     float64 `json:"max_symbol_exposure_pct" yaml:"max_symbol_exposure_pct"`
	MaxOpenPositions      int     `json:"max_open_positions" yaml:"max_open_positions"`
	MaxDailyLoss          float64 `json:"max_daily_loss_pct" yaml:"max_daily_loss_pct"`
	DefaultStopLoss       float64 `json:"default_stop_loss_pct" yaml:"default_stop_loss_pct"`
	DefaultTakeProfit     float64 `json:"default_take_profit_pct" yaml:"default_take_profit_pct"`
	MinTimeBetweenTrades  string  `json:"min_time_between_trades" yaml:"min_time_between_trades"`
	EnableVolatilityCheck bool    `json:"enable_volatility_check" yaml:"enable_volatility_check"`
	MaxVolatility         float64 `json:"max_volatility_pct" yaml:"max_volatility_pct"`
}

// MinTimeBetweenTradesDuration parses MinTimeBetweenTrades, defaulting
// to 60s when the field is empty or malformed.
func (r RiskConfig) MinTimeBetweenTradesDuration() time.Duration {
	if r.MinTimeBetweenTrades == "" {
		return 60 * time.Second
	}
	d, err := time.ParseDuration(r.MinTimeBetweenTrades)
	if err != nil {
		return 60 * time.Second
	}
	return d
}

// ToParameters converts the JSON-facing RiskConfig into the
// risk.Parameters value object a risk.Manager is constructed from.
func (r RiskConfig) ToParameters() risk.Parameters {
	return risk.Parameters{
		MaxCapitalPerTradePct: r.MaxCapitalPerTrade,
		MaxTotalExposurePct:   r.MaxTotalExposure,
		MaxSymbolExposurePct:  r.MaxSymbolExposure,
		MaxOpenPositions:      r.MaxOpenPositions,
		MaxDailyLossPct:       r.MaxDailyLoss,
		DefaultStopLossPct:    r.DefaultStopLoss,
		DefaultTakeProfitPct:  r.DefaultTakeProfit,
		MinTimeBetweenTrades:  r.MinTimeBetweenTradesDuration(),
		EnableVolatilityCheck: r.EnableVolatilityCheck,
		MaxVolatilityPct:      r.MaxVolatility,
	}
}

// MonitoringConfig controls the Prometheus and health-check listeners.
type MonitoringConfig struct {
	PrometheusPort int `json:"prometheus_port" yaml:"prometheus_port"`
	HealthPort     int `json:"health_port" yaml:"health_port"`
}

// Document is the top-level shape of a config file.
type Document struct {
	Exchange   ExchangeConfig         `json:"exchange" yaml:"exchange"`
	Risk       RiskConfig             `json:"risk" yaml:"risk"`
	Monitoring MonitoringConfig       `json:"monitoring" yaml:"monitoring"`
	Strategies []types.StrategyConfig `json:"strategies" yaml:"strategies"`
}

// Default returns a Document populated with conservative out-of-the-box
// risk parameters suitable for a first run against testnet.
func Default() *Document {
	return &Document{
		Exchange: ExchangeConfig{Name: "bybit", Testnet: true},
		Risk: RiskConfig{
			MaxCapitalPerTrade:    5.0,
			MaxTotalExposure:      50.0,
			MaxSymbolExposure:     20.0,
			MaxOpenPositions:      5,
			MaxDailyLoss:          10.0,
			DefaultStopLoss:       2.0,
			DefaultTakeProfit:     5.0,
			MinTimeBetweenTrades:  "60s",
			EnableVolatilityCheck: true,
			MaxVolatility:         5.0,
		},
		Monitoring: MonitoringConfig{PrometheusPort: 9090, HealthPort: 8081},
	}
}

// Load reads an optional .env file for credentials, then a document at
// path (if non-empty) layered over Default(). The document may be JSON
// or YAML; the format is chosen by the file extension (.yaml/.yml vs.
// everything else, which is parsed as JSON).
func Load(path string) (*Document, error) {
	_ = godotenv.Load()

	doc := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("could not read config file: %w", err)
		}
		if err := unmarshalDocument(path, data, doc); err != nil {
			return nil, fmt.Errorf("could not parse config file: %w", err)
		}
	}

	doc.Exchange.APIKey = getEnv("EXCHANGE_API_KEY", doc.Exchange.APIKey)
	doc.Exchange.Secret = getEnv("EXCHANGE_SECRET", doc.Exchange.Secret)
	if name := os.Getenv("EXCHANGE_NAME"); name != "" {
		doc.Exchange.Name = name
	}
	doc.Exchange.Testnet = getEnvBool("EXCHANGE_TESTNET", doc.Exchange.Testnet)

	return doc, Validate(doc)
}

func unmarshalDocument(path string, data []byte, doc *Document) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return yaml.Unmarshal(data, doc)
	default:
		return json.Unmarshal(data, doc)
	}
}

// Validate checks invariants the rest of the engine assumes hold.
func Validate(doc *Document) error {
	if doc.Exchange.Name == "" {
		return fmt.Errorf("exchange name must not be empty")
	}
	if doc.Risk.MaxOpenPositions <= 0 {
		return fmt.Errorf("risk.max_open_positions must be positive")
	}
	if doc.Risk.MaxCapitalPerTrade <= 0 || doc.Risk.MaxCapitalPerTrade > 100 {
		return fmt.Errorf("risk.max_capital_per_trade_pct must be in (0,100]")
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}
