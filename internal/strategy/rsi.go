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

// rsiCooldown is the minimum interval between two emissions of the same
// signal kind from an RSI strategy instance.
const rsiCooldown = 10 * time.Minute

// RSIZone is the classification of the current RSI reading relative to
// the configured thresholds.
type RSIZone int

const (
	ZoneExtremeOversold RSIZone = iota
	ZoneOversold
	ZoneNeutralLow
	ZoneNeutralHigh
	ZoneOverbought
	ZoneExtremeOverbought
)

func (z RSIZone) String() string {
	switch z {
	case ZoneExtremeOversold:
		return "EXTREME_OVERSOLD"
	case ZoneOversold:
		return "OVERSOLD"
	case ZoneNeutralLow:
		return "NEUTRAL_LOW"
	case ZoneNeutralHigh:
		return "NEUTRAL_HIGH"
	case ZoneOverbought:
		return "OVERBOUGHT"
	case ZoneExtremeOverbought:
		return "EXTREME_OVERBOUGHT"
	default:
		return "UNKNOWN"
	}
}

func (z RSIZone) isOversoldSide() bool {
	return z == ZoneExtremeOversold || z == ZoneOversold
}

func (z RSIZone) isOverboughtSide() bool {
	return z == ZoneOverbought || z == ZoneExtremeOverbought
}

func (z RSIZone) isNeutral() bool {
	return z == ZoneNeutralLow || z == ZoneNeutralHigh
}

func parseRSIZone(s string) (RSIZone, bool) {
	switch s {
	case "EXTREME_OVERSOLD":
		return ZoneExtremeOversold, true
	case "OVERSOLD":
		return ZoneOversold, true
	case "NEUTRAL_LOW":
		return ZoneNeutralLow, true
	case "NEUTRAL_HIGH":
		return ZoneNeutralHigh, true
	case "OVERBOUGHT":
		return ZoneOverbought, true
	case "EXTREME_OVERBOUGHT":
		return ZoneExtremeOverbought, true
	default:
		return 0, false
	}
}

// RSIParams configures an RSIStrategy instance.
type RSIParams struct {
	Period             int
	Oversold           float64
	Overbought         float64
	ExtremeOversold    float64
	ExtremeOverbought  float64
	PositionSize       float64
	StopLossPct        float64
	TakeProfitPct      float64
	MinRSIChange       float64
	UseDivergence      bool
	DivergenceLookback int
}

func defaultRSIParams() RSIParams {
	return RSIParams{
		Period:             14,
		Oversold:           30,
		Overbought:         70,
		ExtremeOversold:    20,
		ExtremeOverbought:  80,
		PositionSize:       0.1,
		StopLossPct:        2.0,
		TakeProfitPct:      5.0,
		MinRSIChange:       5.0,
		UseDivergence:      true,
		DivergenceLookback: 20,
	}
}

func (p RSIParams) validate() error {
	if p.Oversold >= p.Overbought {
		return fmt.Errorf("rsi: oversold (%.2f) must be < overbought (%.2f)", p.Oversold, p.Overbought)
	}
	if p.ExtremeOversold >= p.Oversold {
		return fmt.Errorf("rsi: extreme_oversold (%.2f) must be < oversold (%.2f)", p.ExtremeOversold, p.Oversold)
	}
	if p.ExtremeOverbought <= p.Overbought {
		return fmt.Errorf("rsi: extreme_overbought (%.2f) must be > overbought (%.2f)", p.ExtremeOverbought, p.Overbought)
	}
	return nil
}

// RSIStrategy classifies RSI readings into zones and emits signals on
// zone transitions, extreme reversals, momentum bursts and bullish or
// bearish divergence between price and RSI pivots.
type RSIStrategy struct {
	*Base

	paramsMu sync.Mutex
	params   RSIParams

	zoneMu      sync.Mutex
	prevZone    RSIZone
	hasPrevZone bool
	prevRSI     float64
	hasPrevRSI  bool
}

func NewRSIStrategy(name string, log *obslog.Logger) *RSIStrategy {
	params := defaultRSIParams()
	return &RSIStrategy{
		Base:   newBase(name, types.StrategyMomentum, params.Period, log),
		params: params,
	}
}

func (s *RSIStrategy) Configure(cfg types.StrategyConfig) error {
	params := defaultRSIParams()
	if v, ok := cfg.CustomParams["period"]; ok {
		params.Period = clampInt(toInt(v, params.Period), 2, 50)
	}
	if v, ok := cfg.CustomParams["oversold"]; ok {
		params.Oversold = toFloat(v, params.Oversold)
	}
	if v, ok := cfg.CustomParams["overbought"]; ok {
		params.Overbought = toFloat(v, params.Overbought)
	}
	if v, ok := cfg.CustomParams["extreme_oversold"]; ok {
		params.ExtremeOversold = toFloat(v, params.ExtremeOversold)
	}
	if v, ok := cfg.CustomParams["extreme_overbought"]; ok {
		params.ExtremeOverbought = toFloat(v, params.ExtremeOverbought)
	}
	if v, ok := cfg.CustomParams["position_size"]; ok {
		params.PositionSize = toFloat(v, params.PositionSize)
	}
	if v, ok := cfg.CustomParams["stop_loss_pct"]; ok {
		params.StopLossPct = toFloat(v, params.StopLossPct)
	}
	if v, ok := cfg.CustomParams["take_profit_pct"]; ok {
		params.TakeProfitPct = toFloat(v, params.TakeProfitPct)
	}
	if v, ok := cfg.CustomParams["min_rsi_change"]; ok {
		params.MinRSIChange = toFloat(v, params.MinRSIChange)
	}
	if v, ok := cfg.CustomParams["use_divergence"]; ok {
		params.UseDivergence = toBool(v, params.UseDivergence)
	}
	if v, ok := cfg.CustomParams["divergence_lookback"]; ok {
		params.DivergenceLookback = clampInt(toInt(v, params.DivergenceLookback), 5, 200)
	}

	if err := params.validate(); err != nil {
		return errs.New(errs.Configuration, s.Name(), "Configure", err.Error())
	}

	s.paramsMu.Lock()
	s.params = params
	s.paramsMu.Unlock()

	s.Base.closes = newRingBuffer[float64](priceBufferCap(params.Period))
	s.cfgMu.Lock()
	s.cfg = cfg
	s.cfgMu.Unlock()
	return nil
}

func (s *RSIStrategy) Initialize() error { return s.doInitialize() }
func (s *RSIStrategy) Start() error      { return s.doStart() }
func (s *RSIStrategy) Pause() error      { return s.doPause() }
func (s *RSIStrategy) Resume() error     { return s.doResume() }
func (s *RSIStrategy) Stop() error       { return s.doStop() }
func (s *RSIStrategy) Shutdown() error   { return s.doShutdown() }

func (s *RSIStrategy) Reset() error {
	s.zoneMu.Lock()
	s.hasPrevZone = false
	s.hasPrevRSI = false
	s.zoneMu.Unlock()
	return s.doReset()
}

func (s *RSIStrategy) classifyZone(r float64, p RSIParams) RSIZone {
	switch {
	case r <= p.ExtremeOversold:
		return ZoneExtremeOversold
	case r <= p.Oversold:
		return ZoneOversold
	case r < 50:
		return ZoneNeutralLow
	case r < p.Overbought:
		return ZoneNeutralHigh
	case r < p.ExtremeOverbought:
		return ZoneOverbought
	default:
		return ZoneExtremeOverbought
	}
}

func (s *RSIStrategy) Update(candles []types.Candle, ticker *types.Ticker) (types.Signal, error) {
	start := time.Now()
	defer func() { s.setExecDuration(time.Since(start)) }()

	if s.State() != StateActive {
		return holdSignal(s.Name(), "strategy not active"), nil
	}

	for _, c := range candles {
		s.appendCandle(c)
	}

	s.paramsMu.Lock()
	params := s.params
	s.paramsMu.Unlock()

	closes := s.closesSnapshot()
	if len(closes) < params.Period+1 {
		return holdSignal(s.Name(), "insufficient data for RSI window"), nil
	}

	rsi := indicators.RSI(closes, params.Period)
	zone := s.classifyZone(rsi, params)
	s.pushIndicatorSnapshot(map[string]float64{"rsi": rsi})

	s.zoneMu.Lock()
	prevZone, hasPrevZone := s.prevZone, s.hasPrevZone
	prevRSI, hasPrevRSI := s.prevRSI, s.hasPrevRSI
	s.prevZone, s.hasPrevZone = zone, true
	s.prevRSI, s.hasPrevRSI = rsi, true
	s.zoneMu.Unlock()

	now := time.Now()
	sig, ok := s.classifySignal(closes, rsi, zone, prevZone, hasPrevZone, prevRSI, hasPrevRSI, params, now)
	if !ok {
		return holdSignal(s.Name(), fmt.Sprintf("RSI=%.2f zone=%s no signal condition met", rsi, zone)), nil
	}
	sig = withSize(sig, params.PositionSize)

	if !s.canEmit(sig.Kind, now, rsiCooldown) {
		return holdSignal(s.Name(), "signal suppressed by cooldown"), nil
	}

	s.recordAndEmit(sig)
	return sig, nil
}

func (s *RSIStrategy) classifySignal(
	closes []float64, rsi float64, zone, prevZone RSIZone, hasPrevZone bool,
	prevRSI float64, hasPrevRSI bool, p RSIParams, now time.Time,
) (types.Signal, bool) {
	name := s.Name()

	// 1. Zone-entry.
	if hasPrevZone {
		if !prevZone.isOversoldSide() && zone.isOversoldSide() {
			strength := zoneEntryStrength(p.Oversold-rsi, p.Oversold-p.ExtremeOversold)
			return buySignal(name, closes[len(closes)-1], strength, "Buy Oversold", now), true
		}
		if !prevZone.isOverboughtSide() && zone.isOverboughtSide() {
			strength := zoneEntryStrength(rsi-p.Overbought, p.ExtremeOverbought-p.Overbought)
			return sellSignal(name, closes[len(closes)-1], strength, "Sell Overbought", now), true
		}
	}

	// 2. Zone-exit.
	if hasPrevZone {
		if prevZone.isOversoldSide() && zone.isNeutral() {
			return buySignal(name, closes[len(closes)-1], 0.5, "Oversold Exit", now), true
		}
		if prevZone.isOverboughtSide() && zone.isNeutral() {
			return sellSignal(name, closes[len(closes)-1], 0.5, "Overbought Exit", now), true
		}
	}

	// 3. Extreme reversal: last 3 RSI readings show a direction flip.
	hist := s.indicatorHistorySnapshot()
	if len(hist) >= 3 {
		r0 := hist[len(hist)-3]["rsi"]
		r1 := hist[len(hist)-2]["rsi"]
		r2 := hist[len(hist)-1]["rsi"]
		if zone == ZoneExtremeOversold && r1 < r0 && r2 > r1 {
			return buySignal(name, closes[len(closes)-1], 0.9, "Extreme Reversal Buy", now), true
		}
		if zone == ZoneExtremeOverbought && r1 > r0 && r2 < r1 {
			return sellSignal(name, closes[len(closes)-1], 0.9, "Extreme Reversal Sell", now), true
		}
	}

	// 4. Momentum.
	if hasPrevRSI {
		delta := rsi - prevRSI
		if delta > p.MinRSIChange && rsi > 50 {
			return buySignal(name, closes[len(closes)-1], momentumStrength(delta), "Momentum Bullish", now), true
		}
		if delta < -p.MinRSIChange && rsi < 50 {
			return sellSignal(name, closes[len(closes)-1], momentumStrength(delta), "Momentum Bearish", now), true
		}
	}

	// 5. Divergence.
	if p.UseDivergence {
		if sig, ok := s.detectDivergence(closes, hist, p, now); ok {
			return sig, true
		}
	}

	return types.Signal{}, false
}

func (s *RSIStrategy) detectDivergence(closes []float64, hist []map[string]float64, p RSIParams, now time.Time) (types.Signal, bool) {
	lookback := p.DivergenceLookback
	if len(closes) < lookback || len(hist) < lookback {
		return types.Signal{}, false
	}
	priceWindow := closes[len(closes)-lookback:]
	rsiWindow := make([]float64, lookback)
	for i, h := range hist[len(hist)-lookback:] {
		rsiWindow[i] = h["rsi"]
	}

	priceLows := localMinima(priceWindow)
	rsiLows := localMinima(rsiWindow)
	if len(priceLows) >= 2 && len(rsiLows) >= 2 {
		pA, pB := priceLows[len(priceLows)-2], priceLows[len(priceLows)-1]
		rA, rB := rsiLows[len(rsiLows)-2], rsiLows[len(rsiLows)-1]
		if priceWindow[pB] < priceWindow[pA] && rsiWindow[rB] > rsiWindow[rA] {
			strength := divergenceStrength(rsiWindow[rB])
			return buySignal(s.Name(), closes[len(closes)-1], strength, "Bullish Divergence", now), true
		}
	}

	priceHighs := localMaxima(priceWindow)
	rsiHighs := localMaxima(rsiWindow)
	if len(priceHighs) >= 2 && len(rsiHighs) >= 2 {
		pA, pB := priceHighs[len(priceHighs)-2], priceHighs[len(priceHighs)-1]
		rA, rB := rsiHighs[len(rsiHighs)-2], rsiHighs[len(rsiHighs)-1]
		if priceWindow[pB] > priceWindow[pA] && rsiWindow[rB] < rsiWindow[rA] {
			strength := divergenceStrength(rsiWindow[rB])
			return sellSignal(s.Name(), closes[len(closes)-1], strength, "Bearish Divergence", now), true
		}
	}

	return types.Signal{}, false
}

// ShouldClosePosition reports whether an open position in the given side
// should be closed based on the current RSI reading, per the RSI
// strategy's position-close trigger.
func (s *RSIStrategy) ShouldClosePosition(side types.Side, rsi float64) bool {
	s.paramsMu.Lock()
	p := s.params
	s.paramsMu.Unlock()

	s.zoneMu.Lock()
	prevRSI, hasPrev := s.prevRSI, s.hasPrevRSI
	s.zoneMu.Unlock()

	if side == types.SideBuy && rsi >= p.Overbought {
		return true
	}
	if side == types.SideSell && rsi <= p.Oversold {
		return true
	}
	if hasPrev {
		if side == types.SideBuy && prevRSI > rsi && rsi < prevRSI-2 {
			return true
		}
		if side == types.SideSell && prevRSI < rsi && rsi > prevRSI+2 {
			return true
		}
	}
	return false
}

func (s *RSIStrategy) Serialize() (*Snapshot, error) {
	s.paramsMu.Lock()
	params := s.params
	s.paramsMu.Unlock()
	s.cfgMu.Lock()
	cfg := s.cfg
	s.cfgMu.Unlock()

	s.zoneMu.Lock()
	rsi := s.prevRSI
	zone := s.prevZone
	s.zoneMu.Unlock()

	hist := s.indicatorHistorySnapshot()
	if len(hist) > 100 {
		hist = hist[len(hist)-100:]
	}

	cfg.CustomParams = map[string]interface{}{
		"period": params.Period, "oversold": params.Oversold, "overbought": params.Overbought,
	}

	return &Snapshot{
		Type:                  "RSI",
		Name:                  s.Name(),
		Config:                cfg,
		Metrics:               s.Metrics(),
		InPosition:            s.isInPosition(),
		CurrentIndicators:     map[string]float64{"rsi": rsi},
		CurrentClassification: zone.String(),
		History:               hist,
	}, nil
}

func (s *RSIStrategy) Deserialize(snap *Snapshot) error {
	if snap == nil {
		return errs.New(errs.Persistence, s.Name(), "Deserialize", "nil snapshot")
	}
	s.cfgMu.Lock()
	s.cfg = snap.Config
	s.cfgMu.Unlock()

	if snap.Config.CustomParams != nil {
		s.paramsMu.Lock()
		s.params.Period = toInt(snap.Config.CustomParams["period"], s.params.Period)
		s.params.Oversold = toFloat(snap.Config.CustomParams["oversold"], s.params.Oversold)
		s.params.Overbought = toFloat(snap.Config.CustomParams["overbought"], s.params.Overbought)
		s.paramsMu.Unlock()
	}

	s.zoneMu.Lock()
	if rsi, ok := snap.CurrentIndicators["rsi"]; ok {
		s.prevRSI = rsi
		s.hasPrevRSI = true
	}
	if zone, ok := parseRSIZone(snap.CurrentClassification); ok {
		s.prevZone = zone
		s.hasPrevZone = true
	}
	s.zoneMu.Unlock()

	s.restoreIndicatorHistory(snap.History)
	return nil
}

func zoneEntryStrength(distancePastThreshold, span float64) float64 {
	if span <= 0 {
		return 0
	}
	v := distancePastThreshold / span
	if v < 0 {
		v = 0
	}
	if v > 1 {
		v = 1
	}
	return v
}

func momentumStrength(delta float64) float64 {
	v := absf(delta) / 20.0
	if v > 1 {
		v = 1
	}
	return v
}

func divergenceStrength(pivotRSI float64) float64 {
	v := absf(pivotRSI-50) / 50.0
	if v < 0.1 {
		v = 0.1
	}
	if v > 1 {
		v = 1
	}
	return v
}
