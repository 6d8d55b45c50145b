package strategy

import (
	"time"

	"github.com/ducminhle1904/crypto-signal-engine/pkg/types"
)

func holdSignal(strategyName, message string) types.Signal {
	return types.Signal{
		Kind:         types.SignalHold,
		StrategyName: strategyName,
		Message:      message,
		Timestamp:    time.Now(),
	}
}

// buySignal and sellSignal leave Quantity at its zero value; callers
// that know the strategy's configured position-size fraction set it via
// withSize. The backtester and live engine both treat a zero Quantity as
// "use the caller's own default sizing".
func buySignal(strategyName string, price, strength float64, message string, at time.Time) types.Signal {
	return types.Signal{
		Kind:         types.SignalBuy,
		StrategyName: strategyName,
		Price:        price,
		Strength:     clampUnit(strength),
		Message:      message,
		Timestamp:    at,
	}
}

func sellSignal(strategyName string, price, strength float64, message string, at time.Time) types.Signal {
	return types.Signal{
		Kind:         types.SignalSell,
		StrategyName: strategyName,
		Price:        price,
		Strength:     clampUnit(strength),
		Message:      message,
		Timestamp:    at,
	}
}

// withSize stamps a signal's Quantity with the fraction of balance the
// emitting strategy is configured to risk per trade.
func withSize(sig types.Signal, sizeFraction float64) types.Signal {
	sig.Quantity = sizeFraction
	return sig
}

func clampUnit(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func toInt(v interface{}, fallback int) int {
	switch t := v.(type) {
	case int:
		return t
	case float64:
		return int(t)
	default:
		return fallback
	}
}

func toFloat(v interface{}, fallback float64) float64 {
	switch t := v.(type) {
	case float64:
		return t
	case int:
		return float64(t)
	default:
		return fallback
	}
}

func toBool(v interface{}, fallback bool) bool {
	if b, ok := v.(bool); ok {
		return b
	}
	return fallback
}

func absf(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

// localMinima returns indices of 3-point local minima: x[i-1] > x[i] <
// x[i+1]. Endpoints are never pivots.
func localMinima(x []float64) []int {
	var out []int
	for i := 1; i < len(x)-1; i++ {
		if x[i-1] > x[i] && x[i] < x[i+1] {
			out = append(out, i)
		}
	}
	return out
}

// localMaxima returns indices of 3-point local maxima: x[i-1] < x[i] >
// x[i+1]. Endpoints are never pivots.
func localMaxima(x []float64) []int {
	var out []int
	for i := 1; i < len(x)-1; i++ {
		if x[i-1] < x[i] && x[i] > x[i+1] {
			out = append(out, i)
		}
	}
	return out
}
