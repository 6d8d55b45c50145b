package risk

import (
	"time"
)

// Parameters are the risk limits a Manager enforces. Field names mirror
// the "risk" section of a config document so a JSON document can be
// unmarshaled directly into the equivalent config.RiskConfig and handed
// here as a value object.
type Parameters struct {
	MaxCapitalPerTradePct float64
	MaxTotalExposurePct   float64
	MaxSymbolExposurePct  float64
	MaxOpenPositions      int
	MaxDailyLossPct       float64
	DefaultStopLossPct    float64
	DefaultTakeProfitPct  float64
	MinTimeBetweenTrades  time.Duration
	EnableVolatilityCheck bool
	MaxVolatilityPct      float64
}

// DefaultParameters mirrors the original risk manager's defaults.
func DefaultParameters() Parameters {
	return Parameters{
		MaxCapitalPerTradePct: 5.0,
		MaxTotalExposurePct:   50.0,
		MaxSymbolExposurePct:  20.0,
		MaxOpenPositions:      5,
		MaxDailyLossPct:       10.0,
		DefaultStopLossPct:    2.0,
		DefaultTakeProfitPct:  5.0,
		MinTimeBetweenTrades:  60 * time.Second,
		EnableVolatilityCheck: true,
		MaxVolatilityPct:      5.0,
	}
}

// AlertKind names the limit that tripped.
type AlertKind string

const (
	AlertDailyLossLimit    AlertKind = "DAILY_LOSS_LIMIT"
	AlertTotalExposure     AlertKind = "TOTAL_EXPOSURE_LIMIT"
	AlertSymbolExposure    AlertKind = "SYMBOL_EXPOSURE_LIMIT"
	AlertMaxPositions      AlertKind = "MAX_POSITIONS_LIMIT"
	AlertVolatility        AlertKind = "VOLATILITY_ALERT"
)

// Alert is a timestamped record of a tripped risk limit. ID correlates
// an alert with whatever notification or log line it produced.
type Alert struct {
	ID           string
	Kind         AlertKind
	Symbol       string
	CurrentValue float64
	LimitValue   float64
	Timestamp    time.Time
}

// Statistics is a point-in-time snapshot of the Manager's exposure
// ledger, exposed for operator introspection (GetRiskStatistics in the
// original source).
type Statistics struct {
	AccountBalance     float64
	TotalExposure      float64
	SymbolExposure     map[string]float64
	OpenPositionsCount int
	TodayPnL           float64
	RecentAlerts       []Alert
}

// VolatilityOracle estimates recent price volatility for symbol, as a
// percentage. The default oracle used when none is supplied always
// reports zero volatility, matching the source's unconditional-true
// placeholder; a real implementation wires in an actual estimator.
type VolatilityOracle func(symbol string) float64

func zeroVolatilityOracle(string) float64 { return 0 }
