package reporting

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/ducminhle1904/crypto-signal-engine/internal/backtest"
)

// CSVWriter writes a backtest's trade log and summary to a flat CSV
// file, one row per simulated fill.
type CSVWriter struct{}

func NewCSVWriter() *CSVWriter { return &CSVWriter{} }

func (w *CSVWriter) WriteCSV(results *backtest.Results, path string) error {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	cw := csv.NewWriter(f)
	defer cw.Flush()

	if err := cw.Write([]string{"Open_Time", "Kind", "Price", "Quantity", "PnL", "Balance"}); err != nil {
		return err
	}

	for _, tr := range results.Trades {
		row := []string{
			time.UnixMilli(tr.OpenTimeMs).UTC().Format("2006-01-02 15:04:05"),
			string(tr.Kind),
			fmt.Sprintf("%.8f", tr.Price),
			fmt.Sprintf("%.8f", tr.Quantity),
			fmt.Sprintf("%.2f", tr.PnL),
			fmt.Sprintf("%.2f", tr.Balance),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}

	s := results.Summary
	if err := cw.Write([]string{}); err != nil {
		return err
	}
	summary := [][]string{
		{"Start Balance", fmt.Sprintf("%.2f", s.StartBalance)},
		{"End Balance", fmt.Sprintf("%.2f", s.EndBalance)},
		{"Total Return %", fmt.Sprintf("%.2f", s.TotalReturnPct)},
		{"Max Drawdown %", fmt.Sprintf("%.2f", s.MaxDrawdownPct)},
		{"Sharpe Ratio", fmt.Sprintf("%.2f", s.SharpeRatio)},
		{"Total Trades", strconv.Itoa(s.TotalTrades)},
		{"Winning Trades", strconv.Itoa(s.WinningTrades)},
		{"Losing Trades", strconv.Itoa(s.LosingTrades)},
		{"Win Rate %", fmt.Sprintf("%.2f", s.WinRate)},
	}
	for _, row := range summary {
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	return nil
}
