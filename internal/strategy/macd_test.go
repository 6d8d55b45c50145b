package strategy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ducminhle1904/crypto-signal-engine/pkg/types"
)

func activeMACD(t *testing.T, customParams map[string]interface{}) *MACDStrategy {
	s := NewMACDStrategy("macd-test", nil)
	require.NoError(t, s.Configure(types.StrategyConfig{Name: "macd-test", CustomParams: customParams}))
	require.NoError(t, s.Initialize())
	return s
}

func TestMACDBullishCrossoverProducesBuy(t *testing.T) {
	s := activeMACD(t, map[string]interface{}{"fast_period": 3, "slow_period": 5, "signal_period": 3})

	closes := []float64{10, 10, 10, 10, 10, 10, 10, 9, 8, 9, 12, 16, 20, 24, 28, 32}
	var sawBuy bool
	for _, c := range candlesFromCloses("BTCUSDT", closes) {
		sig, err := s.Update([]types.Candle{c}, nil)
		require.NoError(t, err)
		if sig.Kind == types.SignalBuy {
			sawBuy = true
		}
	}
	assert.True(t, sawBuy)
}

func TestMACDConfigureValidatesPeriods(t *testing.T) {
	s := NewMACDStrategy("macd-bad", nil)
	err := s.Configure(types.StrategyConfig{
		Name: "macd-bad",
		CustomParams: map[string]interface{}{"fast_period": 26, "slow_period": 12},
	})
	assert.Error(t, err)
}

func TestMACDInsufficientDataHolds(t *testing.T) {
	s := activeMACD(t, nil)
	sig, err := s.Update(candlesFromCloses("BTCUSDT", []float64{1, 2, 3}), nil)
	require.NoError(t, err)
	assert.Equal(t, types.SignalHold, sig.Kind)
}
