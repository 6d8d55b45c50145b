package strategy

import (
	"fmt"
	"sync"
	"time"

	"github.com/ducminhle1904/crypto-signal-engine/internal/errs"
	"github.com/ducminhle1904/crypto-signal-engine/internal/obslog"
	"github.com/ducminhle1904/crypto-signal-engine/pkg/types"
)

const (
	indicatorHistoryCap = 500
	signalHistoryCap    = 100
	volumeBufferCap     = 200
	errorRingCap        = 50
)

// priceBufferCap returns max(period*3, 200), the close-price buffer cap.
func priceBufferCap(period int) int {
	c := period * 3
	if c < 200 {
		c = 200
	}
	return c
}

// Base holds the lifecycle state machine, rolling buffers, callbacks and
// bounded error log shared by every concrete strategy. Concrete
// strategies embed *Base for its promoted methods rather than extending
// it through inheritance; strategy-specific indicator state and signal
// classification live entirely outside Base.
type Base struct {
	name  string
	stype types.StrategyType
	log   *obslog.Logger

	stateMu sync.RWMutex
	state   State

	cfgMu sync.Mutex
	cfg   types.StrategyConfig

	// dataMu guards market-data-derived state: price/volume buffers,
	// indicator history, and position bookkeeping. metricsMu guards the
	// counters in metrics. metricsMu is never taken while dataMu is
	// held - callbacks that mutate metrics run only after dataMu is
	// released.
	dataMu sync.Mutex
	closes *ringBuffer[float64]
	volume *ringBuffer[float64]

	indicatorHistory *ringBuffer[map[string]float64]
	signalHistory    *ringBuffer[types.Signal]
	lastEmission     map[types.SignalKind]time.Time

	inPosition        bool
	currentPositionID string

	metricsMu sync.Mutex
	metrics   types.StrategyMetrics

	errMu  sync.Mutex
	errLog *errs.Ring

	callbacksMu sync.RWMutex
	callbacks   Callbacks

	lastExecDuration time.Duration
}

func newBase(name string, stype types.StrategyType, period int, log *obslog.Logger) *Base {
	return &Base{
		name:             name,
		stype:            stype,
		log:              log,
		state:            StateInactive,
		closes:           newRingBuffer[float64](priceBufferCap(period)),
		volume:           newRingBuffer[float64](volumeBufferCap),
		indicatorHistory: newRingBuffer[map[string]float64](indicatorHistoryCap),
		signalHistory:    newRingBuffer[types.Signal](signalHistoryCap),
		lastEmission:     make(map[types.SignalKind]time.Time),
		errLog:           errs.NewRing(errorRingCap),
		metrics:          types.StrategyMetrics{StartTime: time.Now()},
	}
}

func (b *Base) Name() string            { return b.name }
func (b *Base) Type() types.StrategyType { return b.stype }

func (b *Base) State() State {
	b.stateMu.RLock()
	defer b.stateMu.RUnlock()
	return b.state
}

func (b *Base) setState(s State) {
	b.stateMu.Lock()
	b.state = s
	b.stateMu.Unlock()
}

func (b *Base) SetCallbacks(cb Callbacks) {
	b.callbacksMu.Lock()
	b.callbacks = cb
	b.callbacksMu.Unlock()
}

func (b *Base) callbacksSnapshot() Callbacks {
	b.callbacksMu.RLock()
	defer b.callbacksMu.RUnlock()
	return b.callbacks
}

func (b *Base) LastExecutionDuration() time.Duration {
	b.dataMu.Lock()
	defer b.dataMu.Unlock()
	return b.lastExecDuration
}

// --- lifecycle ---

func (b *Base) doInitialize() error {
	if b.State() == StateShutdown {
		return fmt.Errorf("strategy %s: cannot initialize after shutdown", b.name)
	}
	b.setState(StateInitializing)
	b.setState(StateActive)
	return nil
}

// Start is idempotent: calling Start on an ACTIVE strategy is a no-op.
func (b *Base) doStart() error {
	switch b.State() {
	case StateActive:
		return nil
	case StateInactive, StatePaused, StateStopped:
		b.setState(StateActive)
		return nil
	default:
		return fmt.Errorf("strategy %s: cannot start from state %s", b.name, b.State())
	}
}

func (b *Base) doPause() error {
	if b.State() != StateActive {
		return fmt.Errorf("strategy %s: cannot pause from state %s", b.name, b.State())
	}
	b.setState(StatePaused)
	return nil
}

func (b *Base) doResume() error {
	if b.State() != StatePaused {
		return fmt.Errorf("strategy %s: cannot resume from state %s", b.name, b.State())
	}
	b.setState(StateActive)
	return nil
}

// Stop is idempotent: calling Stop on an INACTIVE strategy is a no-op.
func (b *Base) doStop() error {
	switch b.State() {
	case StateInactive, StateStopped:
		return nil
	case StateShutdown:
		return fmt.Errorf("strategy %s: cannot stop after shutdown", b.name)
	}
	b.setState(StateStopped)
	return nil
}

func (b *Base) doReset() error {
	if b.State() == StateShutdown {
		return fmt.Errorf("strategy %s: cannot reset after shutdown", b.name)
	}
	b.dataMu.Lock()
	b.closes = newRingBuffer[float64](b.closes.cap)
	b.volume = newRingBuffer[float64](b.volume.cap)
	b.indicatorHistory = newRingBuffer[map[string]float64](indicatorHistoryCap)
	b.signalHistory = newRingBuffer[types.Signal](signalHistoryCap)
	b.lastEmission = make(map[types.SignalKind]time.Time)
	b.inPosition = false
	b.currentPositionID = ""
	b.dataMu.Unlock()

	b.setState(StateInactive)
	return nil
}

func (b *Base) doShutdown() error {
	b.setState(StateShutdown)
	return nil
}

func (b *Base) flagError(err error, category errs.Category, operation string) {
	ee := errs.Wrap(err, category, b.name, operation)
	b.errMu.Lock()
	b.errLog.Append(ee)
	b.errMu.Unlock()
	b.setState(StateError)

	if cb := b.callbacksSnapshot().OnError; cb != nil {
		cb(ee)
	}
}

// --- rolling state ---

func (b *Base) appendCandle(c types.Candle) {
	b.dataMu.Lock()
	b.closes.Append(c.Close)
	b.volume.Append(c.Volume)
	b.dataMu.Unlock()
}

func (b *Base) closesSnapshot() []float64 {
	b.dataMu.Lock()
	defer b.dataMu.Unlock()
	return b.closes.Slice()
}

func (b *Base) volumesSnapshot() []float64 {
	b.dataMu.Lock()
	defer b.dataMu.Unlock()
	return b.volume.Slice()
}

func (b *Base) pushIndicatorSnapshot(values map[string]float64) {
	b.dataMu.Lock()
	b.indicatorHistory.Append(values)
	b.dataMu.Unlock()
}

func (b *Base) indicatorHistorySnapshot() []map[string]float64 {
	b.dataMu.Lock()
	defer b.dataMu.Unlock()
	return b.indicatorHistory.Slice()
}

// restoreIndicatorHistory replaces the indicator-history buffer with
// hist, oldest-first, as part of Deserialize.
func (b *Base) restoreIndicatorHistory(hist []map[string]float64) {
	b.dataMu.Lock()
	b.indicatorHistory = newRingBuffer[map[string]float64](indicatorHistoryCap)
	for _, h := range hist {
		b.indicatorHistory.Append(h)
	}
	b.dataMu.Unlock()
}

func (b *Base) previousIndicatorSnapshot() (map[string]float64, bool) {
	b.dataMu.Lock()
	defer b.dataMu.Unlock()
	hist := b.indicatorHistory.Slice()
	if len(hist) < 2 {
		return nil, false
	}
	return hist[len(hist)-2], true
}

// canEmit enforces the per-kind cooldown: the same signal kind must not
// be emitted again within cooldown of its previous emission.
func (b *Base) canEmit(kind types.SignalKind, now time.Time, cooldown time.Duration) bool {
	b.dataMu.Lock()
	defer b.dataMu.Unlock()
	last, ok := b.lastEmission[kind]
	if !ok {
		return true
	}
	return now.Sub(last) >= cooldown
}

// recordAndEmit appends sig to the signal history, records its
// cooldown timer, and invokes the signal callback without holding any
// lock.
func (b *Base) recordAndEmit(sig types.Signal) {
	b.dataMu.Lock()
	b.signalHistory.Append(sig)
	b.lastEmission[sig.Kind] = sig.Timestamp
	b.dataMu.Unlock()

	if cb := b.callbacksSnapshot().OnSignal; cb != nil {
		cb(sig)
	}
}

func (b *Base) signalHistorySnapshot() []types.Signal {
	b.dataMu.Lock()
	defer b.dataMu.Unlock()
	return b.signalHistory.Slice()
}

func (b *Base) setExecDuration(d time.Duration) {
	b.dataMu.Lock()
	b.lastExecDuration = d
	b.dataMu.Unlock()
}

// --- metrics / positions ---

func (b *Base) Metrics() types.StrategyMetrics {
	b.metricsMu.Lock()
	defer b.metricsMu.Unlock()
	return b.metrics
}

func (b *Base) OnPositionOpened(pos *types.Position) {
	b.dataMu.Lock()
	b.inPosition = true
	b.currentPositionID = pos.ID
	b.dataMu.Unlock()

	if cb := b.callbacksSnapshot().OnPosition; cb != nil {
		cb(pos, true)
	}
}

func (b *Base) OnPositionClosed(pos *types.Position, realizedPnL float64) {
	b.dataMu.Lock()
	b.inPosition = false
	b.currentPositionID = ""
	entryTime := pos.EntryTime
	b.dataMu.Unlock()

	b.metricsMu.Lock()
	b.metrics.RecordTrade(realizedPnL, time.Since(entryTime), time.Now())
	b.metricsMu.Unlock()

	if cb := b.callbacksSnapshot().OnPosition; cb != nil {
		cb(pos, false)
	}
}

func (b *Base) isInPosition() bool {
	b.dataMu.Lock()
	defer b.dataMu.Unlock()
	return b.inPosition
}
