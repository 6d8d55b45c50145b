// Package indicators provides the pure numerical kernels the strategy
// engines build rolling state on top of: SMA, EMA, RSI, MACD, a
// least-squares slope, and a Wilder-style smoothing helper. Every
// function here is stateless and fails silently with a neutral
// sentinel when it is handed too little data, rather than erroring -
// callers decide what "not enough data yet" means for them.
package indicators

// RSINeutral is returned by RSI when there isn't enough history to
// compute a real value.
const RSINeutral = 50.0

// SMA is the arithmetic mean of the last p elements of x. Returns 0
// when len(x) < p.
func SMA(x []float64, p int) float64 {
	if p <= 0 || len(x) < p {
		return 0
	}
	sum := 0.0
	for _, v := range x[len(x)-p:] {
		sum += v
	}
	return sum / float64(p)
}

// EMA computes the exponential moving average of the whole buffer x
// with period p, seeded on x[0] and folded forward with multiplier
// 2/(p+1). It returns the single resulting value, not a history.
func EMA(x []float64, p int) float64 {
	if p <= 0 || len(x) == 0 {
		return 0
	}
	multiplier := 2.0 / float64(p+1)
	ema := x[0]
	for _, v := range x[1:] {
		ema = (v-ema)*multiplier + ema
	}
	return ema
}

// WilderSmooth approximates Wilder's smoothed average over the first p
// values of x as a simple mean. The textbook form is a recursive
// exponential average seeded on the first SMA and rolled forward one
// sample at a time; this module intentionally matches the source
// system's simple-average behavior instead (see DESIGN.md's Open
// Question on Wilder smoothing).
func WilderSmooth(x []float64, p int) float64 {
	if p <= 0 || len(x) < p {
		return 0
	}
	return SMA(x[:p], p)
}

// RSI computes the Relative Strength Index over the last p+1 closes of
// x. Gains and losses are smoothed with WilderSmooth (the simple-mean
// form). Returns RSINeutral when there is insufficient history, and
// 100 when avg_loss is exactly zero.
func RSI(x []float64, p int) float64 {
	if p <= 0 || len(x) < p+1 {
		return RSINeutral
	}
	window := x[len(x)-(p+1):]
	gains := make([]float64, p)
	losses := make([]float64, p)
	for i := 1; i < len(window); i++ {
		delta := window[i] - window[i-1]
		if delta > 0 {
			gains[i-1] = delta
		} else {
			losses[i-1] = -delta
		}
	}
	avgGain := WilderSmooth(gains, p)
	avgLoss := WilderSmooth(losses, p)
	if avgLoss == 0 {
		return 100
	}
	rs := avgGain / avgLoss
	return 100 - 100/(1+rs)
}

// MACDLine returns fastEMA - slowEMA over x. Callers are responsible
// for maintaining a rolling history of the result to derive a signal
// line themselves (see strategy.MACDStrategy), since the signal line
// is an EMA of MACD values across updates, not a pure function of a
// single price window.
func MACDLine(x []float64, fastPeriod, slowPeriod int) float64 {
	if len(x) < slowPeriod {
		return 0
	}
	return EMA(x, fastPeriod) - EMA(x, slowPeriod)
}

// LinRegSlope computes the least-squares slope of the last p samples
// of x against x-axis values 0..p-1. Returns 0 when len(x) < p.
func LinRegSlope(x []float64, p int) float64 {
	if p <= 1 || len(x) < p {
		return 0
	}
	window := x[len(x)-p:]
	n := float64(p)
	var sumX, sumY, sumXY, sumXX float64
	for i, y := range window {
		fx := float64(i)
		sumX += fx
		sumY += y
		sumXY += fx * y
		sumXX += fx * fx
	}
	denom := n*sumXX - sumX*sumX
	if denom == 0 {
		return 0
	}
	return (n*sumXY - sumX*sumY) / denom
}
