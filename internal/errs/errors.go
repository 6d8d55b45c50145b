// Package errs implements the error taxonomy every component in the
// engine reports through: configuration, data, lookup, adapter, risk
// and persistence failures each carry a distinct Category so callers
// can decide whether to propagate, degrade to HOLD, or retry.
package errs

import (
	"errors"
	"fmt"
)

// Category names a kind of failure, not a Go type - every category
// wraps the same EngineError shape.
type Category string

const (
	Configuration   Category = "CONFIGURATION"
	InsufficientData Category = "INSUFFICIENT_DATA"
	InvalidSignal   Category = "INVALID_SIGNAL"
	StrategyNotFound Category = "STRATEGY_NOT_FOUND"
	Adapter         Category = "ADAPTER"
	RiskRejection   Category = "RISK_REJECTION"
	Persistence     Category = "PERSISTENCE"
)

// EngineError is a categorized error with enough context to decide how
// to recover without inspecting the message string.
type EngineError struct {
	Category   Category
	Component  string
	Operation  string
	Message    string
	Underlying error
}

func (e *EngineError) Error() string {
	if e.Underlying != nil {
		return fmt.Sprintf("[%s:%s] %s: %v", e.Category, e.Component, e.Message, e.Underlying)
	}
	return fmt.Sprintf("[%s:%s] %s", e.Category, e.Component, e.Message)
}

func (e *EngineError) Unwrap() error { return e.Underlying }

// IsCategory reports whether err (or anything it wraps) is an
// EngineError of the given category.
func IsCategory(err error, cat Category) bool {
	var ee *EngineError
	if !errors.As(err, &ee) {
		return false
	}
	return ee.Category == cat
}

func New(category Category, component, operation, message string) *EngineError {
	return &EngineError{Category: category, Component: component, Operation: operation, Message: message}
}

func Wrap(err error, category Category, component, operation string) *EngineError {
	if err == nil {
		return nil
	}
	return &EngineError{Category: category, Component: component, Operation: operation, Message: "operation failed", Underlying: err}
}

// Propagating reports whether a caller of the named component must
// bubble the error up rather than degrade it to a HOLD signal:
// configuration and lookup errors propagate, all data-path errors are
// caught at the strategy/engine boundary.
func (e *EngineError) Propagating() bool {
	switch e.Category {
	case Configuration, StrategyNotFound, Persistence:
		return true
	default:
		return false
	}
}

// Ring is a bounded, append-only error log every strategy keeps to
// decide whether repeated AdapterErrors should flip it to ERROR.
type Ring struct {
	entries  []*EngineError
	capacity int
}

func NewRing(capacity int) *Ring {
	return &Ring{capacity: capacity}
}

func (r *Ring) Append(err *EngineError) {
	r.entries = append(r.entries, err)
	if len(r.entries) > r.capacity {
		r.entries = r.entries[len(r.entries)-r.capacity:]
	}
}

func (r *Ring) Entries() []*EngineError {
	out := make([]*EngineError, len(r.entries))
	copy(out, r.entries)
	return out
}

func (r *Ring) Len() int { return len(r.entries) }

// CountCategory counts how many of the most recent `window` entries
// match category.
func (r *Ring) CountCategory(category Category, window int) int {
	n := 0
	start := 0
	if len(r.entries) > window {
		start = len(r.entries) - window
	}
	for _, e := range r.entries[start:] {
		if e.Category == category {
			n++
		}
	}
	return n
}

func (r *Ring) Strings() []string {
	out := make([]string, len(r.entries))
	for i, e := range r.entries {
		out[i] = e.Error()
	}
	return out
}
