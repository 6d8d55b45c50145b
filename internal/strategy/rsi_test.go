package strategy

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ducminhle1904/crypto-signal-engine/pkg/types"
)

func candlesFromCloses(symbol string, closes []float64) []types.Candle {
	out := make([]types.Candle, len(closes))
	base := time.Now().Add(-time.Duration(len(closes)) * time.Minute)
	for i, c := range closes {
		out[i] = types.Candle{
			Symbol:   symbol,
			OpenTime: base.Add(time.Duration(i) * time.Minute).UnixMilli(),
			Open:     c, High: c, Low: c, Close: c,
			Volume: 1.0,
		}
	}
	return out
}

func activeRSI(t *testing.T) *RSIStrategy {
	s := NewRSIStrategy("rsi-test", nil)
	require.NoError(t, s.Configure(types.StrategyConfig{Name: "rsi-test"}))
	require.NoError(t, s.Initialize())
	return s
}

func TestRSIOversoldEntryProducesBuy(t *testing.T) {
	s := activeRSI(t)

	// Alternating closes hold RSI(14) at exactly 50 (NEUTRAL_HIGH); the
	// final drop of 10 takes it to 100*6/23 ≈ 26.1, inside OVERSOLD.
	closes := make([]float64, 0, 20)
	for i := 0; i < 19; i++ {
		closes = append(closes, 100+float64(i%2))
	}
	closes = append(closes, 90)

	var lastSig types.Signal
	for i, c := range candlesFromCloses("BTCUSDT", closes) {
		sig, err := s.Update([]types.Candle{c}, nil)
		require.NoError(t, err)
		if i == len(closes)-1 {
			lastSig = sig
		}
	}

	assert.True(t, lastSig.IsActionable())
	assert.Equal(t, types.SignalBuy, lastSig.Kind)
	assert.Greater(t, lastSig.Strength, 0.0)
}

func TestRSIInsufficientDataHolds(t *testing.T) {
	s := activeRSI(t)
	sig, err := s.Update(candlesFromCloses("BTCUSDT", []float64{1, 2, 3}), nil)
	require.NoError(t, err)
	assert.Equal(t, types.SignalHold, sig.Kind)
}

func TestRSIConfigureValidatesThresholds(t *testing.T) {
	s := NewRSIStrategy("rsi-bad", nil)
	err := s.Configure(types.StrategyConfig{
		Name: "rsi-bad",
		CustomParams: map[string]interface{}{
			"oversold": 80.0, "overbought": 70.0,
		},
	})
	assert.Error(t, err)
}
