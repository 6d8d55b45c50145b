package strategy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ducminhle1904/crypto-signal-engine/pkg/types"
)

func TestLifecycleStartIsIdempotent(t *testing.T) {
	s := NewRSIStrategy("lifecycle", nil)
	require.NoError(t, s.Initialize())
	assert.Equal(t, StateActive, s.State())
	require.NoError(t, s.Start())
	assert.Equal(t, StateActive, s.State())
}

func TestLifecycleStopOnInactiveIsNoop(t *testing.T) {
	s := NewRSIStrategy("lifecycle2", nil)
	require.NoError(t, s.Stop())
	assert.Equal(t, StateInactive, s.State())
	require.NoError(t, s.Stop())
	assert.Equal(t, StateInactive, s.State())
}

func TestLifecyclePauseResume(t *testing.T) {
	s := NewRSIStrategy("lifecycle3", nil)
	require.NoError(t, s.Initialize())
	require.NoError(t, s.Pause())
	assert.Equal(t, StatePaused, s.State())
	require.NoError(t, s.Resume())
	assert.Equal(t, StateActive, s.State())
}

func TestResetTwiceIsIdempotent(t *testing.T) {
	s := NewRSIStrategy("lifecycle4", nil)
	require.NoError(t, s.Initialize())
	_, _ = s.Update(candlesFromCloses("BTCUSDT", []float64{1, 2, 3}), nil)
	require.NoError(t, s.Reset())
	first := s.closesSnapshot()
	require.NoError(t, s.Reset())
	second := s.closesSnapshot()
	assert.Equal(t, first, second)
}

func TestSignalHistoryCappedAt100(t *testing.T) {
	b := newBase("cap-test", types.StrategyMomentum, 14, nil)
	for i := 0; i < 150; i++ {
		b.recordAndEmit(types.Signal{Kind: types.SignalBuy})
	}
	assert.LessOrEqual(t, b.signalHistory.Len(), 100)
}

func TestIndicatorHistoryCappedAt500(t *testing.T) {
	b := newBase("cap-test-2", types.StrategyMomentum, 14, nil)
	for i := 0; i < 600; i++ {
		b.pushIndicatorSnapshot(map[string]float64{"x": float64(i)})
	}
	assert.LessOrEqual(t, b.indicatorHistory.Len(), 500)
}
