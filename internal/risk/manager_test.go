package risk

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ducminhle1904/crypto-signal-engine/pkg/types"
)

func TestCheckPositionAllowedRejectsOnSymbolExposure(t *testing.T) {
	m := New(Parameters{
		MaxOpenPositions: 10, MaxSymbolExposurePct: 20, MaxTotalExposurePct: 100,
		MaxDailyLossPct: 100, MinTimeBetweenTrades: 0,
	}, 10000, nil)

	m.RegisterPosition("BTCUSDT", 0.25, 6000) // exposure = 1500

	allowed := m.CheckPositionAllowed("BTCUSDT", types.SideBuy, 0.1, 6000)
	assert.False(t, allowed)

	alerts := m.Alerts()
	assert.NotEmpty(t, alerts)
	assert.Equal(t, AlertSymbolExposure, alerts[len(alerts)-1].Kind)
}

func TestCheckPositionAllowedRejectsOnMaxPositions(t *testing.T) {
	m := New(Parameters{MaxOpenPositions: 1, MaxSymbolExposurePct: 100, MaxTotalExposurePct: 100, MaxDailyLossPct: 100}, 10000, nil)
	m.RegisterPosition("ETHUSDT", 1, 100)

	assert.False(t, m.CheckPositionAllowed("BTCUSDT", types.SideBuy, 1, 100))
}

func TestCalculatePositionSizeBoundedByExposureCaps(t *testing.T) {
	m := New(Parameters{MaxCapitalPerTradePct: 50, MaxTotalExposurePct: 10, MaxSymbolExposurePct: 100}, 10000, nil)
	size := m.CalculatePositionSize("BTCUSDT", 100, 10000)
	assert.InDelta(t, 10.0, size, 1e-9) // capped to 10% total exposure = 1000 / 100
}

func TestCalculateExitLevelsBuyAndSell(t *testing.T) {
	m := New(Parameters{DefaultStopLossPct: 2, DefaultTakeProfitPct: 5}, 10000, nil)

	sl, tp := m.CalculateExitLevels(types.SideBuy, 100)
	assert.InDelta(t, 98, sl, 1e-9)
	assert.InDelta(t, 105, tp, 1e-9)

	sl, tp = m.CalculateExitLevels(types.SideSell, 100)
	assert.InDelta(t, 102, sl, 1e-9)
	assert.InDelta(t, 95, tp, 1e-9)
}

func TestClosePositionAccumulatesTodayPnL(t *testing.T) {
	m := New(DefaultParameters(), 10000, nil)
	m.RegisterPosition("BTCUSDT", 1, 100)
	m.ClosePosition("BTCUSDT", 1, 100, -500)

	stats := m.GetRiskStatistics()
	assert.InDelta(t, -500, stats.TodayPnL, 1e-9)
	assert.Equal(t, 0, stats.OpenPositionsCount)
}

func TestDailyLossResetsOnNewDay(t *testing.T) {
	m := New(DefaultParameters(), 10000, nil)
	m.RegisterPosition("BTCUSDT", 1, 100)
	m.ClosePosition("BTCUSDT", 1, 100, -500)

	m.mu.Lock()
	m.startOfDay = m.startOfDay.AddDate(0, 0, -1)
	m.mu.Unlock()

	assert.True(t, m.CheckPositionAllowed("ETHUSDT", types.SideBuy, 1, 100))

	stats := m.GetRiskStatistics()
	assert.Equal(t, 0.0, stats.TodayPnL)
}
