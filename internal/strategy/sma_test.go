package strategy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ducminhle1904/crypto-signal-engine/pkg/types"
)

func activeSMA(t *testing.T, customParams map[string]interface{}) *SMAStrategy {
	s := NewSMAStrategy("sma-test", nil)
	require.NoError(t, s.Configure(types.StrategyConfig{Name: "sma-test", CustomParams: customParams}))
	require.NoError(t, s.Initialize())
	return s
}

func TestSMAGoldenCrossProducesBuy(t *testing.T) {
	s := activeSMA(t, map[string]interface{}{"fast_period": 3, "slow_period": 5, "use_slope_filter": false})

	// The cross happens on the sixth candle (close 11): fast/slow go from
	// 10/10 to 10.33/10.2. Later BUYs fall inside the BUY cooldown.
	closes := []float64{10, 10, 10, 10, 10, 11, 12, 13, 14, 15}
	var crossSig types.Signal
	for i, c := range candlesFromCloses("BTCUSDT", closes) {
		sig, err := s.Update([]types.Candle{c}, nil)
		require.NoError(t, err)
		if i == 5 {
			crossSig = sig
		}
	}

	assert.True(t, crossSig.IsActionable())
	assert.Equal(t, types.SignalBuy, crossSig.Kind)
}

func TestSMAConfigureValidatesPeriods(t *testing.T) {
	s := NewSMAStrategy("sma-bad", nil)
	err := s.Configure(types.StrategyConfig{
		Name: "sma-bad",
		CustomParams: map[string]interface{}{"fast_period": 20, "slow_period": 10},
	})
	assert.Error(t, err)
}

func TestSMAInsufficientDataHolds(t *testing.T) {
	s := activeSMA(t, nil)
	sig, err := s.Update(candlesFromCloses("BTCUSDT", []float64{1, 2, 3}), nil)
	require.NoError(t, err)
	assert.Equal(t, types.SignalHold, sig.Kind)
}
