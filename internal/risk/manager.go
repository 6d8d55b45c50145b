// Package risk implements the portfolio-level pre-trade gate and
// exposure ledger every candidate trade passes through before an order
// is placed.
package risk

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ducminhle1904/crypto-signal-engine/internal/monitoring"
	"github.com/ducminhle1904/crypto-signal-engine/internal/obslog"
	"github.com/ducminhle1904/crypto-signal-engine/pkg/types"
)

const defaultAlertWindow = 24 * time.Hour

// Manager owns risk parameters, exposure accounting and alerts. All
// state is guarded by a single mutex; the pre-trade gate and the
// register/close mutators hold it for the whole operation so exposure
// sums stay consistent across concurrent callers.
type Manager struct {
	log *obslog.Logger

	mu             sync.Mutex
	params         Parameters
	accountBalance float64

	openPositionsCount int
	symbolExposure     map[string]float64
	totalExposure      float64
	lastTradeTime      map[string]time.Time

	todayPnL   float64
	startOfDay time.Time

	alerts      []Alert
	alertWindow time.Duration

	oracle VolatilityOracle
}

func New(params Parameters, initialBalance float64, log *obslog.Logger) *Manager {
	return &Manager{
		log:            log,
		params:         params,
		accountBalance: initialBalance,
		symbolExposure: make(map[string]float64),
		lastTradeTime:  make(map[string]time.Time),
		startOfDay:     startOfDayUTC(time.Now()),
		alertWindow:    defaultAlertWindow,
		oracle:         zeroVolatilityOracle,
	}
}

// SetVolatilityOracle installs a real volatility estimator, superseding
// the zero-volatility placeholder.
func (m *Manager) SetVolatilityOracle(oracle VolatilityOracle) {
	m.mu.Lock()
	m.oracle = oracle
	m.mu.Unlock()
}

func (m *Manager) SetAccountBalance(balance float64) {
	m.mu.Lock()
	m.accountBalance = balance
	m.mu.Unlock()
}

func startOfDayUTC(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}

// resetDailyIfNeeded resets todayPnL when the UTC calendar day has
// advanced since startOfDay. Caller must hold m.mu.
func (m *Manager) resetDailyIfNeeded(now time.Time) {
	today := startOfDayUTC(now)
	if today.After(m.startOfDay) {
		m.todayPnL = 0
		m.startOfDay = today
	}
}

// CheckPositionAllowed is the pre-trade gate: it returns true only if
// every exposure, drawdown and volatility limit currently configured
// on the manager permits the candidate trade.
func (m *Manager) CheckPositionAllowed(symbol string, side types.Side, qty, price float64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if qty <= 0 || price <= 0 || symbol == "" {
		return false
	}

	if m.openPositionsCount >= m.params.MaxOpenPositions {
		m.recordAlertLocked(AlertMaxPositions, symbol, float64(m.openPositionsCount), float64(m.params.MaxOpenPositions), time.Now())
		return false
	}

	now := time.Now()
	m.resetDailyIfNeeded(now)
	dailyLossLimit := m.accountBalance * m.params.MaxDailyLossPct / 100
	if -m.todayPnL >= dailyLossLimit {
		m.recordAlertLocked(AlertDailyLossLimit, symbol, -m.todayPnL, dailyLossLimit, now)
		return false
	}

	symbolCap := m.accountBalance * m.params.MaxSymbolExposurePct / 100
	newSymbolExposure := m.symbolExposure[symbol] + qty*price
	if newSymbolExposure > symbolCap {
		m.recordAlertLocked(AlertSymbolExposure, symbol, newSymbolExposure, symbolCap, now)
		return false
	}

	totalCap := m.accountBalance * m.params.MaxTotalExposurePct / 100
	if m.totalExposure+qty*price > totalCap {
		m.recordAlertLocked(AlertTotalExposure, symbol, m.totalExposure+qty*price, totalCap, now)
		return false
	}

	if last, ok := m.lastTradeTime[symbol]; ok && now.Sub(last) < m.params.MinTimeBetweenTrades {
		return false
	}

	if m.params.EnableVolatilityCheck {
		vol := m.oracle(symbol)
		if vol > m.params.MaxVolatilityPct {
			m.recordAlertLocked(AlertVolatility, symbol, vol, m.params.MaxVolatilityPct, now)
			return false
		}
	}

	return true
}

// CalculatePositionSize bounds the desired capital allocation by the
// remaining headroom in both total and symbol exposure caps, then
// converts to a quantity at price.
func (m *Manager) CalculatePositionSize(symbol string, price, balance float64) float64 {
	m.mu.Lock()
	defer m.mu.Unlock()

	if price <= 0 {
		return 0
	}

	desired := balance * m.params.MaxCapitalPerTradePct / 100

	totalHeadroom := balance*m.params.MaxTotalExposurePct/100 - m.totalExposure
	if totalHeadroom < 0 {
		totalHeadroom = 0
	}
	if desired > totalHeadroom {
		desired = totalHeadroom
	}

	symbolHeadroom := balance*m.params.MaxSymbolExposurePct/100 - m.symbolExposure[symbol]
	if symbolHeadroom < 0 {
		symbolHeadroom = 0
	}
	if desired > symbolHeadroom {
		desired = symbolHeadroom
	}

	if desired <= 0 {
		return 0
	}
	return desired / price
}

// CalculateExitLevels returns (stopLoss, takeProfit) for a new position
// at entry, using the configured default percentages.
func (m *Manager) CalculateExitLevels(side types.Side, entry float64) (stopLoss, takeProfit float64) {
	m.mu.Lock()
	sl, tp := m.params.DefaultStopLossPct, m.params.DefaultTakeProfitPct
	m.mu.Unlock()

	if side == types.SideBuy {
		return entry * (1 - sl/100), entry * (1 + tp/100)
	}
	return entry * (1 + sl/100), entry * (1 - tp/100)
}

// RegisterPosition records newly opened exposure against symbol and the
// portfolio totals, and stamps the symbol's last-trade time.
func (m *Manager) RegisterPosition(symbol string, qty, price float64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	exposure := qty * price
	m.symbolExposure[symbol] += exposure
	m.totalExposure += exposure
	m.openPositionsCount++
	m.lastTradeTime[symbol] = time.Now()
	monitoring.SetOpenPositions(m.openPositionsCount)
}

// ClosePosition releases exposure for symbol and folds the realized PnL
// into today's running total.
func (m *Manager) ClosePosition(symbol string, qty, entryPrice, realizedPnL float64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	exposure := qty * entryPrice
	m.symbolExposure[symbol] -= exposure
	if m.symbolExposure[symbol] < 0 {
		m.symbolExposure[symbol] = 0
	}
	m.totalExposure -= exposure
	if m.totalExposure < 0 {
		m.totalExposure = 0
	}
	if m.openPositionsCount > 0 {
		m.openPositionsCount--
	}

	now := time.Now()
	m.resetDailyIfNeeded(now)
	m.todayPnL += realizedPnL
	monitoring.SetOpenPositions(m.openPositionsCount)
}

// recordAlertLocked appends an alert and purges any older than
// alertWindow. Caller must hold m.mu.
func (m *Manager) recordAlertLocked(kind AlertKind, symbol string, current, limit float64, at time.Time) {
	id := uuid.NewString()
	m.alerts = append(m.alerts, Alert{ID: id, Kind: kind, Symbol: symbol, CurrentValue: current, LimitValue: limit, Timestamp: at})
	monitoring.RecordRiskRejection(string(kind))
	if m.log != nil {
		m.log.WithFields(map[string]interface{}{
			"alert_id": id, "symbol": symbol, "current": current, "limit": limit,
		}).Warnf("risk alert tripped: %s", kind)
	}

	cutoff := at.Add(-m.alertWindow)
	kept := m.alerts[:0]
	for _, a := range m.alerts {
		if a.Timestamp.After(cutoff) {
			kept = append(kept, a)
		}
	}
	m.alerts = kept
}

func (m *Manager) Alerts() []Alert {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Alert, len(m.alerts))
	copy(out, m.alerts)
	return out
}

// GetRiskStatistics returns a snapshot of the current exposure ledger.
func (m *Manager) GetRiskStatistics() Statistics {
	m.mu.Lock()
	defer m.mu.Unlock()

	exposureCopy := make(map[string]float64, len(m.symbolExposure))
	for k, v := range m.symbolExposure {
		exposureCopy[k] = v
	}
	alertsCopy := make([]Alert, len(m.alerts))
	copy(alertsCopy, m.alerts)

	return Statistics{
		AccountBalance:     m.accountBalance,
		TotalExposure:      m.totalExposure,
		SymbolExposure:     exposureCopy,
		OpenPositionsCount: m.openPositionsCount,
		TodayPnL:           m.todayPnL,
		RecentAlerts:       alertsCopy,
	}
}

// IsWithinRiskLimits reports whether the portfolio currently sits
// within the open-position count, total-exposure and daily-loss limits,
// without evaluating a specific candidate trade. Per-symbol exposure is
// not checked here.
func (m *Manager) IsWithinRiskLimits() bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.openPositionsCount > m.params.MaxOpenPositions {
		return false
	}
	if m.totalExposure > m.accountBalance*m.params.MaxTotalExposurePct/100 {
		return false
	}
	dailyLossLimit := m.accountBalance * m.params.MaxDailyLossPct / 100
	return -m.todayPnL < dailyLossLimit
}
