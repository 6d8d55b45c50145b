package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ducminhle1904/crypto-signal-engine/internal/strategy"
	"github.com/ducminhle1904/crypto-signal-engine/pkg/types"
)

func TestRegisterStrategyRejectsDuplicate(t *testing.T) {
	e := New(nil)
	s := strategy.NewRSIStrategy("rsi-1", nil)
	require.NoError(t, e.RegisterStrategy(s))
	err := e.RegisterStrategy(strategy.NewRSIStrategy("rsi-1", nil))
	assert.Error(t, err)
}

func TestExecuteStrategyUnknownNameReturnsError(t *testing.T) {
	e := New(nil)
	_, err := e.ExecuteStrategy("missing", nil, nil)
	assert.Error(t, err)
}

func TestExecuteStrategyNotActiveReturnsHold(t *testing.T) {
	e := New(nil)
	s := strategy.NewRSIStrategy("rsi-2", nil)
	require.NoError(t, e.RegisterStrategy(s))
	require.NoError(t, e.StopStrategy("rsi-2"))

	sig, err := e.ExecuteStrategy("rsi-2", nil, nil)
	require.NoError(t, err)
	assert.Equal(t, types.SignalHold, sig.Kind)
}

func TestRegisterAndClosePositionRoundTrip(t *testing.T) {
	e := New(nil)
	s := strategy.NewRSIStrategy("rsi-3", nil)
	require.NoError(t, e.RegisterStrategy(s))

	pos := &types.Position{
		ID: e.GeneratePositionID(), Symbol: "BTCUSDT", Side: types.SideBuy,
		EntryPrice: 100, Quantity: 1, EntryTime: time.Now(), StrategyName: "rsi-3",
	}
	require.NoError(t, e.RegisterPosition(pos))
	assert.Len(t, e.OpenPositions(), 1)

	require.NoError(t, e.ClosePosition(pos.ID, 10))
	assert.Len(t, e.OpenPositions(), 0)

	err := e.ClosePosition(pos.ID, 0)
	assert.Error(t, err)
}

func TestGeneratePositionIDIsUnique(t *testing.T) {
	e := New(nil)
	seen := map[string]bool{}
	for i := 0; i < 50; i++ {
		id := e.GeneratePositionID()
		assert.False(t, seen[id])
		seen[id] = true
	}
}
