// Package strategy implements the three concrete indicator engines (RSI,
// SMA, MACD) and the lifecycle/base machinery shared by all of them. Each
// engine maintains its own rolling price and indicator state and emits
// typed Signals for the Strategy Engine to arbitrate.
package strategy

import (
	"time"

	"github.com/ducminhle1904/crypto-signal-engine/pkg/types"
)

// State is a lifecycle state in the INACTIVE -> INITIALIZING -> ACTIVE <->
// PAUSED machine; any state can transition to ERROR, and Shutdown is
// terminal.
type State int

const (
	StateInactive State = iota
	StateInitializing
	StateActive
	StatePaused
	StateError
	StateStopped
	StateShutdown
)

func (s State) String() string {
	switch s {
	case StateInactive:
		return "INACTIVE"
	case StateInitializing:
		return "INITIALIZING"
	case StateActive:
		return "ACTIVE"
	case StatePaused:
		return "PAUSED"
	case StateError:
		return "ERROR"
	case StateStopped:
		return "STOPPED"
	case StateShutdown:
		return "SHUTDOWN"
	default:
		return "UNKNOWN"
	}
}

// Callbacks are invoked without holding any strategy lock, so a callback
// may safely re-enter the strategy (e.g. to query metrics).
type Callbacks struct {
	OnSignal   func(types.Signal)
	OnPosition func(pos *types.Position, opened bool)
	OnError    func(err error)
}

// Snapshot is the serializable persisted form of a strategy instance:
// type, name, config, metrics, in-position flag, current indicator
// values, and a bounded history of prior snapshots. CurrentPositionID is
// not filled in by any Serialize, and only the RSI strategy fills in
// CurrentClassification (its zone); SMA and MACD leave it empty.
type Snapshot struct {
	Type                string                 `json:"type"`
	Name                string                 `json:"name"`
	Config              types.StrategyConfig   `json:"config"`
	Metrics             types.StrategyMetrics  `json:"metrics"`
	InPosition          bool                   `json:"in_position"`
	CurrentPositionID   string                 `json:"current_position_id"`
	CurrentIndicators   map[string]float64     `json:"current_indicator_values"`
	CurrentClassification string               `json:"current_zone_or_trend"`
	History             []map[string]float64  `json:"history"`
}

// Strategy is the uniform contract every concrete indicator engine
// implements: lifecycle control, state inspection, market-data ingestion,
// and persistence.
type Strategy interface {
	Name() string
	Type() types.StrategyType
	State() State

	Configure(cfg types.StrategyConfig) error
	Initialize() error
	Start() error
	Pause() error
	Resume() error
	Stop() error
	Reset() error
	Shutdown() error

	// Update feeds newly observed candles and an optional ticker snapshot
	// to the strategy and returns the signal it emits (possibly HOLD).
	// It never panics; data-path failures are reported via err and also
	// surfaced as a HOLD signal carrying an explanatory message.
	Update(candles []types.Candle, ticker *types.Ticker) (types.Signal, error)

	Metrics() types.StrategyMetrics

	OnPositionOpened(pos *types.Position)
	OnPositionClosed(pos *types.Position, realizedPnL float64)

	SetCallbacks(cb Callbacks)

	Serialize() (*Snapshot, error)
	Deserialize(snap *Snapshot) error

	LastExecutionDuration() time.Duration
}
