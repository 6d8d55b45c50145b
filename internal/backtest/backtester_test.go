package backtest

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ducminhle1904/crypto-signal-engine/internal/strategy"
	"github.com/ducminhle1904/crypto-signal-engine/pkg/types"
)

// scriptedStrategy emits a fixed signal on a fixed candle index and HOLD
// everywhere else, letting backtester tests drive deterministic fills
// without depending on any real indicator math.
type scriptedStrategy struct {
	script map[int]types.SignalKind
	size   float64
	calls  int
}

func (s *scriptedStrategy) Name() string               { return "scripted" }
func (s *scriptedStrategy) Type() types.StrategyType    { return types.StrategyMomentum }
func (s *scriptedStrategy) State() strategy.State        { return strategy.StateActive }
func (s *scriptedStrategy) Configure(types.StrategyConfig) error { return nil }
func (s *scriptedStrategy) Initialize() error            { return nil }
func (s *scriptedStrategy) Start() error                 { return nil }
func (s *scriptedStrategy) Pause() error                 { return nil }
func (s *scriptedStrategy) Resume() error                { return nil }
func (s *scriptedStrategy) Stop() error                  { return nil }
func (s *scriptedStrategy) Reset() error                 { return nil }
func (s *scriptedStrategy) Shutdown() error               { return nil }
func (s *scriptedStrategy) Metrics() types.StrategyMetrics { return types.StrategyMetrics{} }
func (s *scriptedStrategy) OnPositionOpened(pos *types.Position)                  {}
func (s *scriptedStrategy) OnPositionClosed(pos *types.Position, pnl float64)     {}
func (s *scriptedStrategy) SetCallbacks(cb strategy.Callbacks)                    {}
func (s *scriptedStrategy) Serialize() (*strategy.Snapshot, error)                { return nil, nil }
func (s *scriptedStrategy) Deserialize(snap *strategy.Snapshot) error             { return nil }
func (s *scriptedStrategy) LastExecutionDuration() time.Duration                  { return 0 }

func (s *scriptedStrategy) Update(candles []types.Candle, ticker *types.Ticker) (types.Signal, error) {
	idx := s.calls
	s.calls++
	kind, ok := s.script[idx]
	if !ok {
		return types.Signal{Kind: types.SignalHold, StrategyName: s.Name()}, nil
	}
	return types.Signal{Kind: kind, StrategyName: s.Name(), Quantity: s.size, Price: candles[0].Close}, nil
}

func candleSeries(closes []float64) []types.Candle {
	out := make([]types.Candle, len(closes))
	for i, c := range closes {
		t := int64(i) * 60_000
		out[i] = types.Candle{Symbol: "BTCUSDT", OpenTime: t, CloseTime: t + 59_999, Open: c, High: c, Low: c, Close: c, Volume: 1}
	}
	return out
}

func TestBacktesterBuyThenSellNoFeesNoSlippage(t *testing.T) {
	candles := candleSeries([]float64{100, 100, 110, 110, 100})
	strat := &scriptedStrategy{
		script: map[int]types.SignalKind{0: types.SignalBuy, 2: types.SignalSell},
		size:   1.0,
	}
	cfg := Config{InitialBalance: 1000, Symbol: "BTCUSDT", FeeRate: 0, SlippagePct: 0}
	bt := New(cfg, strat)

	results, err := bt.Run(candles)
	require.NoError(t, err)

	require.Len(t, results.Trades, 2)
	assert.Equal(t, types.SignalBuy, results.Trades[0].Kind)
	assert.Equal(t, types.SignalSell, results.Trades[1].Kind)

	// Bought with the full balance at 100, sold at 110: +10% on the trade.
	assert.InDelta(t, 1100.0, results.Summary.EndBalance, 1e-9)
	assert.InDelta(t, 10.0, results.Summary.TotalReturnPct, 1e-9)
	assert.Equal(t, 1, results.Summary.WinningTrades)
	assert.Equal(t, 0, results.Summary.LosingTrades)
}

func TestBacktesterAppliesFeesAndSlippage(t *testing.T) {
	candles := candleSeries([]float64{100, 100, 110})
	strat := &scriptedStrategy{
		script: map[int]types.SignalKind{0: types.SignalBuy, 2: types.SignalSell},
		size:   0.5,
	}
	cfg := Config{InitialBalance: 1000, Symbol: "BTCUSDT", FeeRate: 0.01, SlippagePct: 0.01}
	bt := New(cfg, strat)

	results, err := bt.Run(candles)
	require.NoError(t, err)
	require.Len(t, results.Trades, 2)

	buy := results.Trades[0]
	assert.InDelta(t, 101.0, buy.Price, 1e-9) // 100 * 1.01
	assert.Less(t, buy.Balance, 1000-500.0)   // cost plus fee both deducted

	sell := results.Trades[1]
	assert.InDelta(t, 110.0/1.01, sell.Price, 1e-6)
}

func TestBacktesterSkipsBuyWhenAlreadyInPosition(t *testing.T) {
	candles := candleSeries([]float64{100, 100, 100})
	strat := &scriptedStrategy{
		script: map[int]types.SignalKind{0: types.SignalBuy, 1: types.SignalBuy},
		size:   1.0,
	}
	cfg := Config{InitialBalance: 1000, Symbol: "BTCUSDT"}
	bt := New(cfg, strat)

	results, err := bt.Run(candles)
	require.NoError(t, err)
	assert.Len(t, results.Trades, 1)
}

func TestBacktesterEmptyCandlesErrors(t *testing.T) {
	bt := New(Config{InitialBalance: 1000}, &scriptedStrategy{})
	_, err := bt.Run(nil)
	assert.Error(t, err)
}

func TestSharpeRatioZeroVarianceIsZero(t *testing.T) {
	assert.Equal(t, 0.0, SharpeRatio([]float64{0.01, 0.01, 0.01}, 0))
	assert.Equal(t, 0.0, SharpeRatio(nil, 0))
}

func TestProfitFactorAndWinRate(t *testing.T) {
	pnls := []float64{10, -5, 20, -5}
	assert.InDelta(t, 3.0, ProfitFactor(pnls), 1e-9)
	assert.InDelta(t, 50.0, WinRate(pnls), 1e-9)
}
