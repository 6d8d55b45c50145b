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

const smaCooldown = 15 * time.Minute

// SMATrend is the classification of the fast/slow spread and its slope.
type SMATrend int

const (
	TrendStrongUptrend SMATrend = iota
	TrendWeakUptrend
	TrendSideways
	TrendWeakDowntrend
	TrendStrongDowntrend
)

func (t SMATrend) String() string {
	switch t {
	case TrendStrongUptrend:
		return "STRONG_UPTREND"
	case TrendWeakUptrend:
		return "WEAK_UPTREND"
	case TrendSideways:
		return "SIDEWAYS"
	case TrendWeakDowntrend:
		return "WEAK_DOWNTREND"
	case TrendStrongDowntrend:
		return "STRONG_DOWNTREND"
	default:
		return "UNKNOWN"
	}
}

// SMAParams configures an SMAStrategy instance.
type SMAParams struct {
	FastPeriod       int
	SlowPeriod       int
	LongPeriod       int
	PositionSize     float64
	StopLossPct      float64
	TakeProfitPct    float64
	UseTripleMA      bool
	UseSlopeFilter   bool
	MinSlope         float64
	UseVolumeFilter  bool
	VolumeThreshold  float64
}

func defaultSMAParams() SMAParams {
	return SMAParams{
		FastPeriod: 10, SlowPeriod: 20, LongPeriod: 50,
		PositionSize: 0.1, StopLossPct: 2.0, TakeProfitPct: 5.0,
		UseTripleMA: false, UseSlopeFilter: true, MinSlope: 0.001,
		UseVolumeFilter: false, VolumeThreshold: 1.5,
	}
}

func (p SMAParams) validate() error {
	if p.FastPeriod >= p.SlowPeriod {
		return fmt.Errorf("sma: fast period (%d) must be < slow period (%d)", p.FastPeriod, p.SlowPeriod)
	}
	if p.UseTripleMA && p.SlowPeriod >= p.LongPeriod {
		return fmt.Errorf("sma: slow period (%d) must be < long period (%d) when triple MA is enabled", p.SlowPeriod, p.LongPeriod)
	}
	return nil
}

type smaSnapshot struct {
	Fast, Slow, Long           float64
	FastSlope, SlowSlope, LongSlope float64
	Spread, SpreadPct          float64
}

// SMAStrategy classifies dual/triple moving-average crossovers, slope
// acceleration and trend-aligned pullbacks.
type SMAStrategy struct {
	*Base

	paramsMu sync.Mutex
	params   SMAParams

	snapMu  sync.Mutex
	prev    smaSnapshot
	hasPrev bool

	fastHistMu sync.Mutex
	fastHist   *ringBuffer[float64]
	slowHist   *ringBuffer[float64]
	longHist   *ringBuffer[float64]
}

func NewSMAStrategy(name string, log *obslog.Logger) *SMAStrategy {
	params := defaultSMAParams()
	return &SMAStrategy{
		Base:     newBase(name, types.StrategySwing, params.LongPeriod, log),
		params:   params,
		fastHist: newRingBuffer[float64](10),
		slowHist: newRingBuffer[float64](10),
		longHist: newRingBuffer[float64](10),
	}
}

func (s *SMAStrategy) Configure(cfg types.StrategyConfig) error {
	params := defaultSMAParams()
	if v, ok := cfg.CustomParams["fast_period"]; ok {
		params.FastPeriod = toInt(v, params.FastPeriod)
	}
	if v, ok := cfg.CustomParams["slow_period"]; ok {
		params.SlowPeriod = toInt(v, params.SlowPeriod)
	}
	if v, ok := cfg.CustomParams["long_period"]; ok {
		params.LongPeriod = toInt(v, params.LongPeriod)
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
	if v, ok := cfg.CustomParams["use_triple_ma"]; ok {
		params.UseTripleMA = toBool(v, params.UseTripleMA)
	}
	if v, ok := cfg.CustomParams["use_slope_filter"]; ok {
		params.UseSlopeFilter = toBool(v, params.UseSlopeFilter)
	}
	if v, ok := cfg.CustomParams["min_slope"]; ok {
		params.MinSlope = toFloat(v, params.MinSlope)
	}
	if v, ok := cfg.CustomParams["use_volume_filter"]; ok {
		params.UseVolumeFilter = toBool(v, params.UseVolumeFilter)
	}
	if v, ok := cfg.CustomParams["volume_threshold"]; ok {
		params.VolumeThreshold = toFloat(v, params.VolumeThreshold)
	}

	if err := params.validate(); err != nil {
		return errs.New(errs.Configuration, s.Name(), "Configure", err.Error())
	}

	s.paramsMu.Lock()
	s.params = params
	s.paramsMu.Unlock()

	bufCap := params.LongPeriod
	if !params.UseTripleMA || bufCap < params.SlowPeriod {
		bufCap = params.SlowPeriod
	}
	s.Base.closes = newRingBuffer[float64](priceBufferCap(bufCap))
	s.cfgMu.Lock()
	s.cfg = cfg
	s.cfgMu.Unlock()
	return nil
}

func (s *SMAStrategy) Initialize() error { return s.doInitialize() }
func (s *SMAStrategy) Start() error      { return s.doStart() }
func (s *SMAStrategy) Pause() error      { return s.doPause() }
func (s *SMAStrategy) Resume() error     { return s.doResume() }
func (s *SMAStrategy) Stop() error       { return s.doStop() }
func (s *SMAStrategy) Shutdown() error   { return s.doShutdown() }

func (s *SMAStrategy) Reset() error {
	s.snapMu.Lock()
	s.hasPrev = false
	s.snapMu.Unlock()
	s.fastHistMu.Lock()
	s.fastHist = newRingBuffer[float64](10)
	s.slowHist = newRingBuffer[float64](10)
	s.longHist = newRingBuffer[float64](10)
	s.fastHistMu.Unlock()
	return s.doReset()
}

func (s *SMAStrategy) classifyTrend(snap smaSnapshot, minSlope float64) SMATrend {
	absPct := absf(snap.SpreadPct)
	switch {
	case snap.Spread > 0 && absPct > 1.0 && snap.FastSlope > minSlope:
		return TrendStrongUptrend
	case snap.Spread > 0 && absPct > 0.5:
		return TrendWeakUptrend
	case snap.Spread < 0 && absPct > 1.0 && snap.FastSlope < -minSlope:
		return TrendStrongDowntrend
	case snap.Spread < 0 && absPct > 0.5:
		return TrendWeakDowntrend
	default:
		return TrendSideways
	}
}

func (s *SMAStrategy) Update(candles []types.Candle, ticker *types.Ticker) (types.Signal, error) {
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
	volumes := s.volumesSnapshot()
	minLen := p.SlowPeriod
	if p.UseTripleMA && p.LongPeriod > minLen {
		minLen = p.LongPeriod
	}
	if len(closes) < minLen {
		return holdSignal(s.Name(), "insufficient data for SMA window"), nil
	}

	fast := indicators.SMA(closes, p.FastPeriod)
	slow := indicators.SMA(closes, p.SlowPeriod)
	var long float64
	if p.UseTripleMA {
		long = indicators.SMA(closes, p.LongPeriod)
	}

	s.fastHistMu.Lock()
	s.fastHist.Append(fast)
	s.slowHist.Append(slow)
	s.longHist.Append(long)
	fastSlope := indicators.LinRegSlope(s.fastHist.Slice(), 3)
	slowSlope := indicators.LinRegSlope(s.slowHist.Slice(), 3)
	longSlope := indicators.LinRegSlope(s.longHist.Slice(), 3)
	s.fastHistMu.Unlock()

	spread := fast - slow
	spreadPct := 0.0
	if slow != 0 {
		spreadPct = spread / slow * 100
	}
	snap := smaSnapshot{Fast: fast, Slow: slow, Long: long, FastSlope: fastSlope, SlowSlope: slowSlope, LongSlope: longSlope, Spread: spread, SpreadPct: spreadPct}
	s.pushIndicatorSnapshot(map[string]float64{"fast": fast, "slow": slow, "long": long, "spread_pct": spreadPct})

	s.snapMu.Lock()
	prev, hasPrev := s.prev, s.hasPrev
	s.prev, s.hasPrev = snap, true
	s.snapMu.Unlock()

	if p.UseVolumeFilter && len(volumes) >= 21 {
		recent := volumes[len(volumes)-20:]
		mean := 0.0
		for _, v := range recent {
			mean += v
		}
		mean /= float64(len(recent))
		if volumes[len(volumes)-1] < mean*p.VolumeThreshold {
			return holdSignal(s.Name(), "volume filter not satisfied"), nil
		}
	}
	if p.UseSlopeFilter && absf(fastSlope) < p.MinSlope {
		return holdSignal(s.Name(), "slope filter not satisfied"), nil
	}

	trend := s.classifyTrend(snap, p.MinSlope)
	now := time.Now()
	sig, ok := s.classifySignal(closes, snap, prev, hasPrev, trend, p, now)
	if !ok {
		return holdSignal(s.Name(), fmt.Sprintf("trend=%s no signal condition met", trend)), nil
	}
	sig = withSize(sig, p.PositionSize)
	if !s.canEmit(sig.Kind, now, smaCooldown) {
		return holdSignal(s.Name(), "signal suppressed by cooldown"), nil
	}
	s.recordAndEmit(sig)
	return sig, nil
}

func (s *SMAStrategy) classifySignal(closes []float64, cur, prev smaSnapshot, hasPrev bool, trend SMATrend, p SMAParams, now time.Time) (types.Signal, bool) {
	name := s.Name()
	price := closes[len(closes)-1]

	if hasPrev {
		// 1. Golden cross.
		if prev.Fast <= prev.Slow && cur.Fast > cur.Slow {
			strength := crossoverStrength(cur.SpreadPct, cur.FastSlope)
			return buySignal(name, price, strength, "Golden Cross", now), true
		}
		// 2. Death cross.
		if prev.Fast >= prev.Slow && cur.Fast < cur.Slow {
			strength := crossoverStrength(cur.SpreadPct, cur.FastSlope)
			return sellSignal(name, price, strength, "Death Cross", now), true
		}
		// 3/4. Trend acceleration / deceleration.
		if cur.FastSlope > prev.FastSlope && cur.FastSlope > 2*p.MinSlope {
			return buySignal(name, price, clampUnit(cur.FastSlope*100), "Trend Acceleration", now), true
		}
		if cur.FastSlope < prev.FastSlope && absf(cur.FastSlope) < p.MinSlope {
			return sellSignal(name, price, clampUnit(absf(prev.FastSlope)*100), "Trend Deceleration", now), true
		}
	}

	// 5. Pullback.
	if trend == TrendStrongUptrend && cur.Fast != 0 && absf(price-cur.Fast)/cur.Fast <= 0.005 {
		return buySignal(name, price, 0.6, "Pullback Buy", now), true
	}
	if trend == TrendStrongDowntrend && cur.Fast != 0 && absf(price-cur.Fast)/cur.Fast <= 0.005 {
		return sellSignal(name, price, 0.6, "Pullback Sell", now), true
	}

	// 6. Triple-MA alignment, only on the transition edge.
	if p.UseTripleMA {
		bullNow := cur.Fast > cur.Slow && cur.Slow > cur.Long
		bearNow := cur.Fast < cur.Slow && cur.Slow < cur.Long
		bullPrev := hasPrev && prev.Fast > prev.Slow && prev.Slow > prev.Long
		bearPrev := hasPrev && prev.Fast < prev.Slow && prev.Slow < prev.Long
		if bullNow && !bullPrev {
			return buySignal(name, price, 0.8+clampUnit(cur.SpreadPct/10), "Triple Alignment Bull", now), true
		}
		if bearNow && !bearPrev {
			return sellSignal(name, price, 0.8+clampUnit(absf(cur.SpreadPct)/10), "Triple Alignment Bear", now), true
		}
	}

	return types.Signal{}, false
}

// DynamicSupportResistance returns the active support level in an
// uptrend (min of active SMAs) or resistance in a downtrend (max).
func (s *SMAStrategy) DynamicSupportResistance(trend SMATrend) float64 {
	s.snapMu.Lock()
	snap := s.prev
	s.snapMu.Unlock()

	vals := []float64{snap.Fast, snap.Slow}
	if snap.Long != 0 {
		vals = append(vals, snap.Long)
	}
	if trend == TrendStrongUptrend || trend == TrendWeakUptrend {
		return minOf(vals)
	}
	return maxOf(vals)
}

func (s *SMAStrategy) Serialize() (*Snapshot, error) {
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
		Type:                  "SMA",
		Name:                  s.Name(),
		Config:                cfg,
		Metrics:               s.Metrics(),
		InPosition:            s.isInPosition(),
		CurrentIndicators:     map[string]float64{"fast": snap.Fast, "slow": snap.Slow, "long": snap.Long},
		History:               hist,
	}, nil
}

func (s *SMAStrategy) Deserialize(snap *Snapshot) error {
	if snap == nil {
		return errs.New(errs.Persistence, s.Name(), "Deserialize", "nil snapshot")
	}
	s.cfgMu.Lock()
	s.cfg = snap.Config
	s.cfgMu.Unlock()

	s.snapMu.Lock()
	if fast, ok := snap.CurrentIndicators["fast"]; ok {
		s.prev.Fast = fast
		s.hasPrev = true
	}
	if slow, ok := snap.CurrentIndicators["slow"]; ok {
		s.prev.Slow = slow
		s.hasPrev = true
	}
	if long, ok := snap.CurrentIndicators["long"]; ok {
		s.prev.Long = long
		s.hasPrev = true
	}
	s.snapMu.Unlock()

	s.restoreIndicatorHistory(snap.History)
	return nil
}

func crossoverStrength(spreadPct, fastSlope float64) float64 {
	return clampUnit(absf(spreadPct)*2 + absf(fastSlope)*100)
}

func minOf(xs []float64) float64 {
	m := xs[0]
	for _, x := range xs[1:] {
		if x < m {
			m = x
		}
	}
	return m
}

func maxOf(xs []float64) float64 {
	m := xs[0]
	for _, x := range xs[1:] {
		if x > m {
			m = x
		}
	}
	return m
}
