package strategy

import (
	"fmt"
	"sync"
	"time"

	"github.com/ducminhle1904/crypto-signal-engine/internal/errs"
	"github.com/ducminhle1904/crypto-signal-engine/internal/obslog"
	"github.com/ducminhle1904/crypto-signal-engine/pkg/indicators"
	"github.com/ducminhle1904/crypto-signal-engine/pkg/types"
)

const macdCooldown = 5 * time.Minute

type MACDTrend int

const (
	TrendStrongBullish MACDTrend = iota
	TrendBullish
	TrendNeutralMACD
	TrendBearish
	TrendStrongBearish
)

func (t MACDTrend) String() string {
	switch t {
	case TrendStrongBullish:
		return "STRONG_BULLISH"
	case TrendBullish:
		return "BULLISH"
	case TrendNeutralMACD:
		return "NEUTRAL"
	case TrendBearish:
		return "BEARISH"
	case TrendStrongBearish:
		return "STRONG_BEARISH"
	default:
		return "UNKNOWN"
	}
}

// MACDParams configures a MACDStrategy instance.
type MACDParams struct {
	FastPeriod               int
	SlowPeriod                int
	SignalPeriod              int
	PositionSize              float64
	HistogramThreshold        float64
	MinHistogramChange        float64
	UseDivergence             bool
	UseHistogramAnalysis      bool
	UseZeroLineCross          bool
	TrendConfirmationPeriods  int
	DivergenceLookback        int
}

func defaultMACDParams() MACDParams {
	return MACDParams{
		FastPeriod: 12, SlowPeriod: 26, SignalPeriod: 9, PositionSize: 0.1,
		HistogramThreshold: 0.0, MinHistogramChange: 0.001,
		UseDivergence: true, UseHistogramAnalysis: true, UseZeroLineCross: true,
		TrendConfirmationPeriods: 3, DivergenceLookback: 20,
	}
}

func (p MACDParams) validate() error {
	if p.FastPeriod >= p.SlowPeriod {
		return fmt.Errorf("macd: fast period (%d) must be < slow period (%d)", p.FastPeriod, p.SlowPeriod)
	}
	if p.FastPeriod <= 0 || p.SlowPeriod <= 0 || p.SignalPeriod <= 0 {
		return fmt.Errorf("macd: all periods must be positive")
	}
	return nil
}

type macdSnapshot struct {
	FastEMA, SlowEMA, MACD, Signal, Histogram float64
	MACDChange, HistogramChange               float64
}

// MACDStrategy classifies MACD/signal crossovers, zero-line crosses,
// histogram turns and acceleration, and price/MACD divergence.
type MACDStrategy struct {
	*Base

	paramsMu sync.Mutex
	params   MACDParams

	snapMu    sync.Mutex
	prev      macdSnapshot
	hasPrev   bool
	trendHist *ringBuffer[MACDTrend]

	macdHistMu sync.Mutex
	macdHist   *ringBuffer[float64]
}

func NewMACDStrategy(name string, log *obslog.Logger) *MACDStrategy {
	params := defaultMACDParams()
	return &MACDStrategy{
		Base:      newBase(name, types.StrategyMomentum, params.SlowPeriod, log),
		params:    params,
		trendHist: newRingBuffer[MACDTrend](20),
		macdHist:  newRingBuffer[float64](params.SignalPeriod * 3),
	}
}

func (s *MACDStrategy) Configure(cfg types.StrategyConfig) error {
	params := defaultMACDParams()
	if v, ok := cfg.CustomParams["fast_period"]; ok {
		params.FastPeriod = toInt(v, params.FastPeriod)
	}
	if v, ok := cfg.CustomParams["slow_period"]; ok {
		params.SlowPeriod = toInt(v, params.SlowPeriod)
	}
	if v, ok := cfg.CustomParams["signal_period"]; ok {
		params.SignalPeriod = toInt(v, params.SignalPeriod)
	}
	if v, ok := cfg.CustomParams["position_size"]; ok {
		params.PositionSize = toFloat(v, params.PositionSize)
	}
	if v, ok := cfg.CustomParams["histogram_threshold"]; ok {
		params.HistogramThreshold = toFloat(v, params.HistogramThreshold)
	}
	if v, ok := cfg.CustomParams["min_histogram_change"]; ok {
		params.MinHistogramChange = toFloat(v, params.MinHistogramChange)
	}
	if v, ok := cfg.CustomParams["use_divergence"]; ok {
		params.UseDivergence = toBool(v, params.UseDivergence)
	}
	if v, ok := cfg.CustomParams["use_histogram_analysis"]; ok {
		params.UseHistogramAnalysis = toBool(v, params.UseHistogramAnalysis)
	}
	if v, ok := cfg.CustomParams["use_zero_line_cross"]; ok {
		params.UseZeroLineCross = toBool(v, params.UseZeroLineCross)
	}
	if v, ok := cfg.CustomParams["trend_confirmation_periods"]; ok {
		params.TrendConfirmationPeriods = toInt(v, params.TrendConfirmationPeriods)
	}
	if v, ok := cfg.CustomParams["divergence_lookback"]; ok {
		params.DivergenceLookback = toInt(v, params.DivergenceLookback)
	}

	if err := params.validate(); err != nil {
		return errs.New(errs.Configuration, s.Name(), "Configure", err.Error())
	}

	s.paramsMu.Lock()
	s.params = params
	s.paramsMu.Unlock()

	s.Base.closes = newRingBuffer[float64](priceBufferCap(params.SlowPeriod))
	s.macdHistMu.Lock()
	s.macdHist = newRingBuffer[float64](params.SignalPeriod * 3)
	s.macdHistMu.Unlock()

	s.cfgMu.Lock()
	s.cfg = cfg
	s.cfgMu.Unlock()
	return nil
}

func (s *MACDStrategy) Initialize() error { return s.doInitialize() }
func (s *MACDStrategy) Start() error      { return s.doStart() }
func (s *MACDStrategy) Pause() error      { return s.doPause() }
func (s *MACDStrategy) Resume() error     { return s.doResume() }
func (s *MACDStrategy) Stop() error       { return s.doStop() }
func (s *MACDStrategy) Shutdown() error   { return s.doShutdown() }

func (s *MACDStrategy) Reset() error {
	s.snapMu.Lock()
	s.hasPrev = false
	s.trendHist = newRingBuffer[MACDTrend](20)
	s.snapMu.Unlock()
	s.macdHistMu.Lock()
	s.macdHist = newRingBuffer[float64](s.macdHist.cap)
	s.macdHistMu.Unlock()
	return s.doReset()
}

func (s *MACDStrategy) classifyTrend(macd, signal float64) MACDTrend {
	switch {
	case macd > signal && macd > 0:
		return TrendStrongBullish
	case macd > signal && macd <= 0:
		return TrendBullish
	case macd < signal && macd < 0:
		return TrendStrongBearish
	case macd < signal && macd >= 0:
		return TrendBearish
	default:
		return TrendNeutralMACD
	}
}

func (s *MACDStrategy) Update(candles []types.Candle, ticker *types.Ticker) (types.Signal, error) {
	start := time.Now()
	defer func() { s.setExecDuration(time.Since(start)) }()

	if s.State() != StateActive {
		return holdSignal(s.Name(), "strategy not active"), nil
	}
	for _, c := range candles {
		s.appendCandle(c)
	}

	s.paramsMu.Lock()
	p := s.params
	s.paramsMu.Unlock()

	closes := s.closesSnapshot()
	if len(closes) < p.SlowPeriod+p.SignalPeriod {
		return holdSignal(s.Name(), "insufficient data for MACD window"), nil
	}

	fastEMA := indicators.EMA(closes, p.FastPeriod)
	slowEMA := indicators.EMA(closes, p.SlowPeriod)
	macd := fastEMA - slowEMA

	s.macdHistMu.Lock()
	s.macdHist.Append(macd)
	signal := indicators.EMA(s.macdHist.Slice(), p.SignalPeriod)
	s.macdHistMu.Unlock()

	histogram := macd - signal

	s.snapMu.Lock()
	prev, hasPrev := s.prev, s.hasPrev
	s.snapMu.Unlock()

	macdChange, histChange := 0.0, 0.0
	if hasPrev {
		macdChange = macd - prev.MACD
		histChange = histogram - prev.Histogram
	}
	cur := macdSnapshot{FastEMA: fastEMA, SlowEMA: slowEMA, MACD: macd, Signal: signal, Histogram: histogram, MACDChange: macdChange, HistogramChange: histChange}
	s.pushIndicatorSnapshot(map[string]float64{"macd": macd, "signal": signal, "histogram": histogram})

	trend := s.classifyTrend(macd, signal)
	s.snapMu.Lock()
	s.prev, s.hasPrev = cur, true
	s.trendHist.Append(trend)
	trendHistSlice := s.trendHist.Slice()
	s.snapMu.Unlock()

	now := time.Now()
	sig, ok := s.classifySignal(closes, cur, prev, hasPrev, trend, trendHistSlice, p, now)
	if !ok {
		return holdSignal(s.Name(), fmt.Sprintf("trend=%s no signal condition met", trend)), nil
	}
	sig = withSize(sig, p.PositionSize)
	if !s.canEmit(sig.Kind, now, macdCooldown) {
		return holdSignal(s.Name(), "signal suppressed by cooldown"), nil
	}
	s.recordAndEmit(sig)
	return sig, nil
}

func (s *MACDStrategy) classifySignal(closes []float64, cur, prev macdSnapshot, hasPrev bool, trend MACDTrend, trendHist []MACDTrend, p MACDParams, now time.Time) (types.Signal, bool) {
	name := s.Name()
	price := closes[len(closes)-1]

	if hasPrev {
		// 1. Signal-line cross.
		if prev.MACD <= prev.Signal && cur.MACD > cur.Signal {
			return buySignal(name, price, clampUnit(absf(cur.MACD-cur.Signal)/0.01), "Bullish Crossover", now), true
		}
		if prev.MACD >= prev.Signal && cur.MACD < cur.Signal {
			return sellSignal(name, price, clampUnit(absf(cur.MACD-cur.Signal)/0.01), "Bearish Crossover", now), true
		}

		// 2. Zero-line cross.
		if p.UseZeroLineCross {
			if prev.MACD <= 0 && cur.MACD > 0 {
				return buySignal(name, price, clampUnit(absf(cur.MACD)/0.005), "Zero Line Cross Up", now), true
			}
			if prev.MACD >= 0 && cur.MACD < 0 {
				return sellSignal(name, price, clampUnit(absf(cur.MACD)/0.005), "Zero Line Cross Down", now), true
			}
		}

		// 3. Histogram turn / acceleration.
		if p.UseHistogramAnalysis {
			prevSign := sign(prev.Histogram)
			curSign := sign(cur.Histogram)
			if prevSign != curSign && cur.Histogram != 0 {
				if curSign > 0 {
					return buySignal(name, price, clampUnit(absf(cur.HistogramChange)/0.001), "Histogram Turn Positive", now), true
				}
				return sellSignal(name, price, clampUnit(absf(cur.HistogramChange)/0.001), "Histogram Turn Negative", now), true
			}
			if absf(cur.HistogramChange) > p.MinHistogramChange {
				if curSign > 0 && cur.HistogramChange > 0 {
					return buySignal(name, price, clampUnit(absf(cur.HistogramChange)/0.001), "Histogram Accelerating Up", now), true
				}
				if curSign < 0 && cur.HistogramChange < 0 {
					return sellSignal(name, price, clampUnit(absf(cur.HistogramChange)/0.001), "Histogram Accelerating Down", now), true
				}
			}
		}

		// 4. Momentum acceleration.
		if cur.MACDChange > 0 && cur.HistogramChange > 0 {
			return buySignal(name, price, clampUnit(cur.MACDChange/0.01+cur.HistogramChange/0.001), "Momentum Acceleration Bullish", now), true
		}
		if cur.MACDChange < 0 && cur.HistogramChange < 0 {
			return sellSignal(name, price, clampUnit(absf(cur.MACDChange)/0.01+absf(cur.HistogramChange)/0.001), "Momentum Acceleration Bearish", now), true
		}
	}

	// 5. Trend confirmation.
	if len(trendHist) >= p.TrendConfirmationPeriods {
		window := trendHist[len(trendHist)-p.TrendConfirmationPeriods:]
		counts := map[MACDTrend]int{}
		for _, t := range window {
			counts[t]++
		}
		if counts[trend]*3 >= len(window)*2 {
			if trend == TrendStrongBullish || trend == TrendBullish {
				return buySignal(name, price, 0.5, "Trend Confirmation Bullish", now), true
			}
			if trend == TrendStrongBearish || trend == TrendBearish {
				return sellSignal(name, price, 0.5, "Trend Confirmation Bearish", now), true
			}
		}
	}

	// 6. Divergence.
	if p.UseDivergence {
		if sig, ok := s.detectDivergence(closes, p, now); ok {
			return sig, true
		}
	}

	return types.Signal{}, false
}

func (s *MACDStrategy) detectDivergence(closes []float64, p MACDParams, now time.Time) (types.Signal, bool) {
	hist := s.indicatorHistorySnapshot()
	lookback := p.DivergenceLookback
	if len(closes) < lookback || len(hist) < lookback {
		return types.Signal{}, false
	}
	priceWindow := closes[len(closes)-lookback:]
	macdWindow := make([]float64, lookback)
	for i, h := range hist[len(hist)-lookback:] {
		macdWindow[i] = h["macd"]
	}

	priceLows := localMinima(priceWindow)
	macdLows := localMinima(macdWindow)
	if len(priceLows) >= 2 && len(macdLows) >= 2 {
		pA, pB := priceLows[len(priceLows)-2], priceLows[len(priceLows)-1]
		mA, mB := macdLows[len(macdLows)-2], macdLows[len(macdLows)-1]
		if priceWindow[pB] < priceWindow[pA] && macdWindow[mB] > macdWindow[mA] {
			return buySignal(s.Name(), closes[len(closes)-1], 0.9, "Bullish Divergence", now), true
		}
	}
	priceHighs := localMaxima(priceWindow)
	macdHighs := localMaxima(macdWindow)
	if len(priceHighs) >= 2 && len(macdHighs) >= 2 {
		pA, pB := priceHighs[len(priceHighs)-2], priceHighs[len(priceHighs)-1]
		mA, mB := macdHighs[len(macdHighs)-2], macdHighs[len(macdHighs)-1]
		if priceWindow[pB] > priceWindow[pA] && macdWindow[mB] < macdWindow[mA] {
			return sellSignal(s.Name(), closes[len(closes)-1], 0.9, "Bearish Divergence", now), true
		}
	}
	return types.Signal{}, false
}

// ShouldClosePosition reports whether the close trigger fires: an
// opposing crossover, or a histogram swing against side larger than
// 2x the minimum histogram change.
func (s *MACDStrategy) ShouldClosePosition(side types.Side) bool {
	s.snapMu.Lock()
	cur, hasPrev := s.prev, s.hasPrev
	s.snapMu.Unlock()

	p := s.currentParams()
	if side == types.SideBuy {
		if cur.MACD < cur.Signal {
			return true
		}
		if hasPrev && cur.HistogramChange < -2*p.MinHistogramChange {
			return true
		}
	}
	if side == types.SideSell {
		if cur.MACD > cur.Signal {
			return true
		}
		if hasPrev && cur.HistogramChange > 2*p.MinHistogramChange {
			return true
		}
	}
	return false
}

func (s *MACDStrategy) currentParams() MACDParams {
	s.paramsMu.Lock()
	defer s.paramsMu.Unlock()
	return s.params
}

func (s *MACDStrategy) Serialize() (*Snapshot, error) {
	s.cfgMu.Lock()
	cfg := s.cfg
	s.cfgMu.Unlock()
	s.snapMu.Lock()
	snap := s.prev
	s.snapMu.Unlock()

	hist := s.indicatorHistorySnapshot()
	if len(hist) > 100 {
		hist = hist[len(hist)-100:]
	}

	return &Snapshot{
		Type:              "MACD",
		Name:              s.Name(),
		Config:            cfg,
		Metrics:           s.Metrics(),
		InPosition:        s.isInPosition(),
		CurrentIndicators: map[string]float64{"macd": snap.MACD, "signal": snap.Signal, "histogram": snap.Histogram},
		History:           hist,
	}, nil
}

func (s *MACDStrategy) Deserialize(snap *Snapshot) error {
	if snap == nil {
		return errs.New(errs.Persistence, s.Name(), "Deserialize", "nil snapshot")
	}
	s.cfgMu.Lock()
	s.cfg = snap.Config
	s.cfgMu.Unlock()

	s.snapMu.Lock()
	if macd, ok := snap.CurrentIndicators["macd"]; ok {
		s.prev.MACD = macd
		s.hasPrev = true
	}
	if signal, ok := snap.CurrentIndicators["signal"]; ok {
		s.prev.Signal = signal
		s.hasPrev = true
	}
	if histogram, ok := snap.CurrentIndicators["histogram"]; ok {
		s.prev.Histogram = histogram
		s.hasPrev = true
	}
	s.snapMu.Unlock()

	s.restoreIndicatorHistory(snap.History)
	return nil
}

func sign(v float64) int {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	default:
		return 0
	}
}
