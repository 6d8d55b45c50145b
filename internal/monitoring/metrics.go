package monitoring

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Trading metrics
	tradesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "signal_engine_trades_total",
			Help: "Total number of trades executed",
		},
		[]string{"symbol", "side", "strategy"},
	)

	tradeAmount = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "signal_engine_trade_amount",
			Help:    "Distribution of trade notional amounts",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"symbol"},
	)

	// Market data metrics
	currentPrice = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "signal_engine_current_price",
			Help: "Current price of trading symbol",
		},
		[]string{"symbol"},
	)

	// Strategy metrics
	strategyConfidence = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "signal_engine_strategy_confidence",
			Help: "Strength of the most recently emitted signal",
		},
		[]string{"strategy"},
	)

	signalsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "signal_engine_signals_total",
			Help: "Total signals emitted by kind",
		},
		[]string{"strategy", "kind"},
	)

	riskRejectionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "signal_engine_risk_rejections_total",
			Help: "Total trades refused by the risk manager, by tripped alert kind",
		},
		[]string{"kind"},
	)

	openPositions = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "signal_engine_open_positions",
			Help: "Current number of open positions across all strategies",
		},
	)

	// Error metrics
	errorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "signal_engine_errors_total",
			Help: "Total number of errors",
		},
		[]string{"type"},
	)
)

func init() {
	prometheus.MustRegister(tradesTotal)
	prometheus.MustRegister(tradeAmount)
	prometheus.MustRegister(currentPrice)
	prometheus.MustRegister(strategyConfidence)
	prometheus.MustRegister(signalsTotal)
	prometheus.MustRegister(riskRejectionsTotal)
	prometheus.MustRegister(openPositions)
	prometheus.MustRegister(errorsTotal)
}

// MetricsHandler handles Prometheus metrics endpoint
type MetricsHandler struct{}

// NewMetricsHandler creates a new metrics handler
func NewMetricsHandler() *MetricsHandler {
	return &MetricsHandler{}
}

// ServeHTTP serves the Prometheus metrics endpoint
func (m *MetricsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

// RecordTrade records a trade metric.
func RecordTrade(symbol, side, strategy string, amount float64) {
	tradesTotal.WithLabelValues(symbol, side, strategy).Inc()
	tradeAmount.WithLabelValues(symbol).Observe(amount)
}

// UpdatePrice updates the current price metric.
func UpdatePrice(symbol string, price float64) {
	currentPrice.WithLabelValues(symbol).Set(price)
}

// RecordSignal records an emitted signal's strength and kind.
func RecordSignal(strategy, kind string, strength float64) {
	strategyConfidence.WithLabelValues(strategy).Set(strength)
	signalsTotal.WithLabelValues(strategy, kind).Inc()
}

// RecordRiskRejection records a pre-trade gate refusal by alert kind.
func RecordRiskRejection(kind string) {
	riskRejectionsTotal.WithLabelValues(kind).Inc()
}

// SetOpenPositions sets the current open-position gauge.
func SetOpenPositions(n int) {
	openPositions.Set(float64(n))
}

// RecordError records an error metric.
func RecordError(errorType string) {
	errorsTotal.WithLabelValues(errorType).Inc()
}
