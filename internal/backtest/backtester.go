// Package backtest replays historical candles through the same
// strategy contract the live engine drives, simulating fills with a fee
// and slippage model and accumulating equity, drawdown and trade
// history for later reporting.
package backtest

import (
	"fmt"

	"github.com/ducminhle1904/crypto-signal-engine/internal/strategy"
	"github.com/ducminhle1904/crypto-signal-engine/pkg/types"
)

// Config parameterizes a single backtest run.
type Config struct {
	InitialBalance   float64
	Symbol           string
	Timeframe        string
	FeeRate          float64 // fraction of notional, e.g. 0.001 = 10bps
	SlippagePct      float64 // fraction, e.g. 0.0005 = 5bps
	RiskFreeRateAnnual float64
	DefaultPositionSize float64 // used when a signal carries no sizing hint
}

// EquityPoint is one sample of the equity curve, keyed by candle open-time.
type EquityPoint struct {
	OpenTimeMs int64
	Equity     float64
}

// DrawdownPoint is one sample of the drawdown curve.
type DrawdownPoint struct {
	OpenTimeMs  int64
	DrawdownPct float64
}

// TradeLogEntry records a single simulated fill.
type TradeLogEntry struct {
	OpenTimeMs int64
	Kind       types.SignalKind
	Price      float64
	Quantity   float64
	PnL        float64
	Balance    float64
}

// Summary is the top-level performance digest of a completed run.
type Summary struct {
	StartBalance   float64
	EndBalance     float64
	TotalReturnPct float64
	MaxDrawdownPct float64
	SharpeRatio    float64
	TotalTrades    int
	WinningTrades  int
	LosingTrades   int
	WinRate        float64
}

// Results is the full serializable output of a backtest run.
type Results struct {
	Summary       Summary
	EquityCurve   []EquityPoint
	DrawdownCurve []DrawdownPoint
	Trades        []TradeLogEntry
}

type openLot struct {
	quantity   float64
	entryPrice float64
	cost       float64
}

// Backtester drives candles through a single strategy instance,
// maintaining at most one open long position per symbol.
type Backtester struct {
	cfg      Config
	strategy strategy.Strategy

	balance float64
	lot     *openLot

	peak        float64
	maxDrawdown float64

	equityCurve   []EquityPoint
	drawdownCurve []DrawdownPoint
	trades        []TradeLogEntry

	periodReturns []float64
	wins, losses  int
}

func New(cfg Config, strat strategy.Strategy) *Backtester {
	if cfg.DefaultPositionSize <= 0 {
		cfg.DefaultPositionSize = 0.1
	}
	return &Backtester{
		cfg:      cfg,
		strategy: strat,
		balance:  cfg.InitialBalance,
		peak:     cfg.InitialBalance,
	}
}

// Run replays candles in chronological order and returns the
// accumulated results. candles must already be sorted by open-time; the
// caller (a loader) is responsible for that.
func (b *Backtester) Run(candles []types.Candle) (*Results, error) {
	if len(candles) == 0 {
		return nil, fmt.Errorf("backtest: no candles to replay")
	}

	prevEquity := b.balance

	for _, c := range candles {
		sig, err := b.strategy.Update([]types.Candle{c}, nil)
		if err != nil {
			// Per-candle execution anomalies do not halt a backtest.
			continue
		}
		if sig.IsActionable() {
			b.executeTrade(sig, c)
		}

		equity := b.equity(c.Close)
		b.equityCurve = append(b.equityCurve, EquityPoint{OpenTimeMs: c.OpenTime, Equity: equity})

		if equity > b.peak {
			b.peak = equity
		}
		drawdownPct := 0.0
		if b.peak > 0 {
			drawdownPct = (b.peak - equity) / b.peak * 100
		}
		b.drawdownCurve = append(b.drawdownCurve, DrawdownPoint{OpenTimeMs: c.OpenTime, DrawdownPct: drawdownPct})
		if drawdownPct > b.maxDrawdown {
			b.maxDrawdown = drawdownPct
		}

		if prevEquity > 0 {
			b.periodReturns = append(b.periodReturns, (equity-prevEquity)/prevEquity)
		}
		prevEquity = equity
	}

	return b.results(), nil
}

func (b *Backtester) equity(lastClose float64) float64 {
	if b.lot == nil {
		return b.balance
	}
	return b.balance + b.lot.quantity*lastClose
}

// executeTrade applies the fee/slippage model for a single long-only
// position per symbol; any other BUY/SELL combination is ignored.
func (b *Backtester) executeTrade(sig types.Signal, c types.Candle) {
	switch sig.Kind {
	case types.SignalBuy:
		if b.lot != nil {
			return
		}
		sizeFraction := sig.Quantity
		if sizeFraction <= 0 {
			sizeFraction = b.cfg.DefaultPositionSize
		}
		effectivePrice := c.Close * (1 + b.cfg.SlippagePct)
		cost := b.balance * sizeFraction
		fee := cost * b.cfg.FeeRate
		if cost+fee > b.balance || effectivePrice <= 0 {
			return
		}
		qty := cost / effectivePrice
		b.balance -= cost + fee
		b.lot = &openLot{quantity: qty, entryPrice: effectivePrice, cost: cost}
		b.trades = append(b.trades, TradeLogEntry{OpenTimeMs: c.OpenTime, Kind: types.SignalBuy, Price: effectivePrice, Quantity: qty, PnL: -fee, Balance: b.balance})

	case types.SignalSell, types.SignalCloseLong:
		if b.lot == nil {
			return
		}
		effectivePrice := c.Close / (1 + b.cfg.SlippagePct)
		gross := b.lot.quantity * effectivePrice
		fee := gross * b.cfg.FeeRate
		realizedPnL := (gross - fee) - b.lot.cost
		b.balance += gross - fee

		if realizedPnL > 0 {
			b.wins++
		} else {
			b.losses++
		}

		b.trades = append(b.trades, TradeLogEntry{OpenTimeMs: c.OpenTime, Kind: types.SignalSell, Price: effectivePrice, Quantity: b.lot.quantity, PnL: realizedPnL, Balance: b.balance})
		b.lot = nil
	}
}

func (b *Backtester) results() *Results {
	total := b.wins + b.losses
	winRate := 0.0
	if total > 0 {
		winRate = float64(b.wins) / float64(total) * 100
	}

	endBalance := b.balance
	if len(b.equityCurve) > 0 {
		endBalance = b.equityCurve[len(b.equityCurve)-1].Equity
	}
	totalReturn := 0.0
	if b.cfg.InitialBalance > 0 {
		totalReturn = (endBalance - b.cfg.InitialBalance) / b.cfg.InitialBalance * 100
	}

	return &Results{
		Summary: Summary{
			StartBalance:   b.cfg.InitialBalance,
			EndBalance:     endBalance,
			TotalReturnPct: totalReturn,
			MaxDrawdownPct: b.maxDrawdown,
			SharpeRatio:    SharpeRatio(b.periodReturns, b.cfg.RiskFreeRateAnnual),
			TotalTrades:    total,
			WinningTrades:  b.wins,
			LosingTrades:   b.losses,
			WinRate:        winRate,
		},
		EquityCurve:   b.equityCurve,
		DrawdownCurve: b.drawdownCurve,
		Trades:        b.trades,
	}
}
