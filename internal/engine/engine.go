// Package engine implements the Strategy Engine: a registry of running
// strategies, dispatch of market data to the active subset, and the
// authoritative open-position map shared across them.
package engine

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/ducminhle1904/crypto-signal-engine/internal/errs"
	"github.com/ducminhle1904/crypto-signal-engine/internal/monitoring"
	"github.com/ducminhle1904/crypto-signal-engine/internal/obslog"
	"github.com/ducminhle1904/crypto-signal-engine/internal/strategy"
	"github.com/ducminhle1904/crypto-signal-engine/pkg/types"
)

// Engine is the strategy registry, market-data dispatcher and
// authoritative position ledger. Lock ordering is fixed: registry
// mutex before positions mutex, never reversed; neither is ever held
// across a strategy callback.
type Engine struct {
	log *obslog.Logger

	registryMu sync.Mutex
	strategies map[string]strategy.Strategy

	positionsMu       sync.Mutex
	positions         map[string]*types.Position // id -> position
	positionsBySymbol map[string][]string        // symbol -> ids
	positionToOwner   map[string]string          // id -> strategy name
	strategyPositions map[string][]string         // strategy name -> ids

	posCounter int64
}

func New(log *obslog.Logger) *Engine {
	return &Engine{
		log:               log,
		strategies:        make(map[string]strategy.Strategy),
		positions:         make(map[string]*types.Position),
		positionsBySymbol: make(map[string][]string),
		positionToOwner:   make(map[string]string),
		strategyPositions: make(map[string][]string),
	}
}

// RegisterStrategy adds s to the registry under its own Name(). The name
// must be non-empty and not already registered. Initialize is called
// under the registry lock.
func (e *Engine) RegisterStrategy(s strategy.Strategy) error {
	if s == nil || s.Name() == "" {
		return errs.New(errs.Configuration, "engine", "RegisterStrategy", "strategy must have a non-empty name")
	}

	e.registryMu.Lock()
	defer e.registryMu.Unlock()

	if _, exists := e.strategies[s.Name()]; exists {
		return errs.New(errs.Configuration, "engine", "RegisterStrategy", fmt.Sprintf("strategy %q already registered", s.Name()))
	}
	if err := s.Initialize(); err != nil {
		return errs.Wrap(err, errs.Configuration, "engine", "RegisterStrategy")
	}
	e.strategies[s.Name()] = s
	return nil
}

func (e *Engine) lookup(name string) (strategy.Strategy, error) {
	e.registryMu.Lock()
	defer e.registryMu.Unlock()
	s, ok := e.strategies[name]
	if !ok {
		return nil, errs.New(errs.StrategyNotFound, "engine", "lookup", fmt.Sprintf("strategy %q not found", name))
	}
	return s, nil
}

func (e *Engine) transition(name string, fn func(strategy.Strategy) error) error {
	s, err := e.lookup(name)
	if err != nil {
		return err
	}
	if err := fn(s); err != nil {
		return errs.Wrap(err, errs.Configuration, name, "transition")
	}
	return nil
}

func (e *Engine) StartStrategy(name string) error  { return e.transition(name, strategy.Strategy.Start) }
func (e *Engine) StopStrategy(name string) error   { return e.transition(name, strategy.Strategy.Stop) }
func (e *Engine) PauseStrategy(name string) error  { return e.transition(name, strategy.Strategy.Pause) }
func (e *Engine) ResumeStrategy(name string) error { return e.transition(name, strategy.Strategy.Resume) }
func (e *Engine) ResetStrategy(name string) error  { return e.transition(name, strategy.Strategy.Reset) }

// ExecuteStrategy dispatches candles/ticker to the named strategy and
// returns the signal it emits. A strategy that is not ACTIVE yields a
// HOLD without invoking Update. Panics inside Update are not caught
// here: Update itself is required to never panic on data-path errors,
// per the strategy contract.
func (e *Engine) ExecuteStrategy(name string, candles []types.Candle, ticker *types.Ticker) (types.Signal, error) {
	s, err := e.lookup(name)
	if err != nil {
		return types.Signal{}, err
	}

	if s.State() != strategy.StateActive {
		return types.Signal{Kind: types.SignalHold, StrategyName: name, Message: "strategy not active", Timestamp: time.Now()}, nil
	}

	sig, err := s.Update(candles, ticker)
	if err != nil {
		return types.Signal{Kind: types.SignalHold, StrategyName: name, Message: "update failed: " + err.Error(), Timestamp: time.Now()}, nil
	}

	if !validSignal(sig) {
		return types.Signal{Kind: types.SignalHold, StrategyName: name, Message: "signal failed validation, degraded to HOLD", Timestamp: time.Now()}, nil
	}

	monitoring.RecordSignal(name, string(sig.Kind), sig.Strength)

	if sig.IsActionable() {
		sig.CorrelationID = uuid.NewString()
	}

	return sig, nil
}

func validSignal(sig types.Signal) bool {
	if sig.Kind == types.SignalHold {
		return true
	}
	if sig.Strength < 0 || sig.Strength > 1 {
		return false
	}
	if sig.StrategyName == "" {
		return false
	}
	return true
}

// ExecutionResult pairs a strategy name with the outcome of its Execute
// call, for ExecuteAllStrategies' isolated per-strategy failure model.
type ExecutionResult struct {
	StrategyName string
	Signal       types.Signal
	Err          error
}

// ExecuteAllStrategies runs ExecuteStrategy over every currently active
// strategy, isolating a failure in one from affecting the others.
func (e *Engine) ExecuteAllStrategies(candles []types.Candle, ticker *types.Ticker) []ExecutionResult {
	e.registryMu.Lock()
	names := make([]string, 0, len(e.strategies))
	for name, s := range e.strategies {
		if s.State() == strategy.StateActive {
			names = append(names, name)
		}
	}
	e.registryMu.Unlock()

	results := make([]ExecutionResult, 0, len(names))
	for _, name := range names {
		sig, err := e.ExecuteStrategy(name, candles, ticker)
		results = append(results, ExecutionResult{StrategyName: name, Signal: sig, Err: err})
	}
	return results
}

// GeneratePositionID returns "pos_<ms-epoch>_<monotonic-counter>".
func (e *Engine) GeneratePositionID() string {
	n := atomic.AddInt64(&e.posCounter, 1)
	return fmt.Sprintf("pos_%d_%d", time.Now().UnixMilli(), n)
}

// RegisterPosition records a newly opened position and notifies its
// owning strategy via OnPositionOpened, outside any lock.
func (e *Engine) RegisterPosition(pos *types.Position) error {
	if pos.ID == "" || pos.StrategyName == "" {
		return errs.New(errs.Configuration, "engine", "RegisterPosition", "position id and strategy name must be non-empty")
	}

	owner, err := e.lookup(pos.StrategyName)
	if err != nil {
		return err
	}

	e.positionsMu.Lock()
	e.positions[pos.ID] = pos
	e.positionsBySymbol[pos.Symbol] = append(e.positionsBySymbol[pos.Symbol], pos.ID)
	e.positionToOwner[pos.ID] = pos.StrategyName
	e.strategyPositions[pos.StrategyName] = append(e.strategyPositions[pos.StrategyName], pos.ID)
	count := len(e.positions)
	e.positionsMu.Unlock()

	monitoring.SetOpenPositions(count)
	monitoring.RecordTrade(pos.Symbol, string(pos.Side), pos.StrategyName, pos.Quantity*pos.EntryPrice)
	owner.OnPositionOpened(pos)
	return nil
}

// ClosePosition removes the position from the open-position maps and
// notifies its owning strategy with the realized PnL.
func (e *Engine) ClosePosition(id string, realizedPnL float64) error {
	e.positionsMu.Lock()
	pos, ok := e.positions[id]
	if !ok {
		e.positionsMu.Unlock()
		return errs.New(errs.StrategyNotFound, "engine", "ClosePosition", fmt.Sprintf("position %q not found", id))
	}
	strategyName := e.positionToOwner[id]
	delete(e.positions, id)
	delete(e.positionToOwner, id)
	e.positionsBySymbol[pos.Symbol] = removeString(e.positionsBySymbol[pos.Symbol], id)
	e.strategyPositions[strategyName] = removeString(e.strategyPositions[strategyName], id)
	count := len(e.positions)
	e.positionsMu.Unlock()

	monitoring.SetOpenPositions(count)

	owner, err := e.lookup(strategyName)
	if err != nil {
		return err
	}
	owner.OnPositionClosed(pos, realizedPnL)
	return nil
}

// UpdatePosition recomputes unrealized PnL for an open position against
// the latest observed price.
func (e *Engine) UpdatePosition(id string, currentPrice float64) error {
	e.positionsMu.Lock()
	defer e.positionsMu.Unlock()
	pos, ok := e.positions[id]
	if !ok {
		return errs.New(errs.StrategyNotFound, "engine", "UpdatePosition", fmt.Sprintf("position %q not found", id))
	}
	pos.UpdateUnrealized(currentPrice)
	return nil
}

func (e *Engine) OpenPositions() []*types.Position {
	e.positionsMu.Lock()
	defer e.positionsMu.Unlock()
	out := make([]*types.Position, 0, len(e.positions))
	for _, p := range e.positions {
		out = append(out, p)
	}
	return out
}

func (e *Engine) PositionsForStrategy(name string) []*types.Position {
	e.positionsMu.Lock()
	ids := append([]string(nil), e.strategyPositions[name]...)
	e.positionsMu.Unlock()

	out := make([]*types.Position, 0, len(ids))
	e.positionsMu.Lock()
	for _, id := range ids {
		if p, ok := e.positions[id]; ok {
			out = append(out, p)
		}
	}
	e.positionsMu.Unlock()
	return out
}

func (e *Engine) Strategy(name string) (strategy.Strategy, error) { return e.lookup(name) }

func (e *Engine) StrategyNames() []string {
	e.registryMu.Lock()
	defer e.registryMu.Unlock()
	out := make([]string, 0, len(e.strategies))
	for name := range e.strategies {
		out = append(out, name)
	}
	return out
}

func removeString(xs []string, target string) []string {
	out := xs[:0]
	for _, x := range xs {
		if x != target {
			out = append(out, x)
		}
	}
	return out
}
