package backtest

import "math"

const periodsPerYear = 365.0

// SharpeRatio computes an annualized Sharpe ratio from a series of
// per-candle returns, assuming daily-equivalent periods. riskFreeAnnual
// is the annual risk-free rate expressed as a fraction (e.g. 0.02). A
// zero-variance return series yields a Sharpe ratio of zero rather than
// dividing by zero.
func SharpeRatio(returns []float64, riskFreeAnnual float64) float64 {
	if len(returns) == 0 {
		return 0
	}

	riskFreePerPeriod := riskFreeAnnual / periodsPerYear
	mean := 0.0
	for _, r := range returns {
		mean += r - riskFreePerPeriod
	}
	mean /= float64(len(returns))

	variance := 0.0
	for _, r := range returns {
		d := (r - riskFreePerPeriod) - mean
		variance += d * d
	}
	variance /= float64(len(returns))

	stddev := math.Sqrt(variance)
	if stddev == 0 {
		return 0
	}

	return (mean / stddev) * math.Sqrt(periodsPerYear)
}

// ProfitFactor is the ratio of gross profit to gross loss across a set
// of realized trade PnLs. With zero gross loss it returns the gross
// profit itself, and 0 when both gross profit and gross loss are zero.
func ProfitFactor(pnls []float64) float64 {
	grossProfit, grossLoss := 0.0, 0.0
	for _, p := range pnls {
		if p >= 0 {
			grossProfit += p
		} else {
			grossLoss += -p
		}
	}
	if grossLoss == 0 {
		if grossProfit == 0 {
			return 0
		}
		return grossProfit
	}
	return grossProfit / grossLoss
}

// WinRate is the fraction (0-100) of positive PnLs in the slice.
func WinRate(pnls []float64) float64 {
	if len(pnls) == 0 {
		return 0
	}
	wins := 0
	for _, p := range pnls {
		if p > 0 {
			wins++
		}
	}
	return float64(wins) / float64(len(pnls)) * 100
}
