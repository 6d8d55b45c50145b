package reporting

import (
	"fmt"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/ducminhle1904/crypto-signal-engine/internal/backtest"
)

// ConsolePrinter renders backtest.Results as rounded-style tables on
// stdout, the way a live bot's startup banner reports its own config.
type ConsolePrinter struct{}

func NewConsolePrinter() *ConsolePrinter { return &ConsolePrinter{} }

func (p *ConsolePrinter) PrintSummary(results *backtest.Results) {
	p.PrintSummaryWithContext(results, "", "")
}

func (p *ConsolePrinter) PrintSummaryWithContext(results *backtest.Results, symbol, timeframe string) {
	s := results.Summary

	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetTitle("BACKTEST RESULTS")
	t.SetStyle(table.StyleRounded)

	if symbol != "" {
		t.AppendRows([]table.Row{
			{"📊 Symbol", symbol},
			{"⏰ Timeframe", timeframe},
		})
		t.AppendSeparator()
	}

	t.AppendRows([]table.Row{
		{"💰 Start Balance", fmt.Sprintf("$%.2f", s.StartBalance)},
		{"💰 End Balance", fmt.Sprintf("$%.2f", s.EndBalance)},
		{"📈 Total Return", fmt.Sprintf("%.2f%%", s.TotalReturnPct)},
		{"📉 Max Drawdown", fmt.Sprintf("%.2f%%", s.MaxDrawdownPct)},
		{"📊 Sharpe Ratio", fmt.Sprintf("%.2f", s.SharpeRatio)},
	})
	t.AppendSeparator()
	t.AppendRows([]table.Row{
		{"🔄 Total Trades", s.TotalTrades},
		{"✅ Winning Trades", s.WinningTrades},
		{"❌ Losing Trades", s.LosingTrades},
		{"🎯 Win Rate", fmt.Sprintf("%.1f%%", s.WinRate)},
	})

	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, WidthMin: 18, WidthMax: 18, Align: text.AlignLeft},
		{Number: 2, WidthMin: 20, WidthMax: 30, Align: text.AlignLeft},
	})

	t.Render()
	fmt.Println()
}
