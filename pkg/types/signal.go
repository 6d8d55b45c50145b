package types

import "time"

// SignalKind is the generic action a strategy is recommending.
type SignalKind string

const (
	SignalBuy        SignalKind = "BUY"
	SignalSell       SignalKind = "SELL"
	SignalHold       SignalKind = "HOLD"
	SignalCloseLong  SignalKind = "CLOSE_LONG"
	SignalCloseShort SignalKind = "CLOSE_SHORT"
	SignalCancel     SignalKind = "CANCEL"
)

// Signal is the immutable output of a strategy's Update call. Strength
// is a confidence measure in [0,1]; StopLoss/TakeProfit are suggestions
// the engine and risk manager may override with their own defaults.
type Signal struct {
	Kind          SignalKind
	Symbol        string
	Price         float64
	Quantity      float64
	StopLoss      float64
	TakeProfit    float64
	Strength      float64
	StrategyName  string
	Message       string
	Timestamp     time.Time
	CorrelationID string // set on actionable signals, carried onto the resulting order for tracing
}

// IsActionable reports whether the signal requires the engine to act,
// as opposed to a HOLD used purely to carry a diagnostic message.
func (s Signal) IsActionable() bool {
	return s.Kind != SignalHold
}
