// Package reporting renders a completed backtest.Results in the
// formats an operator reviews it in: a console summary table, a CSV
// trade log, an Excel workbook, or a JSON document for downstream
// tooling.
package reporting

import "github.com/ducminhle1904/crypto-signal-engine/internal/backtest"

// ConsoleReporter prints results to an output stream.
type ConsoleReporter interface {
	PrintSummary(results *backtest.Results)
	PrintSummaryWithContext(results *backtest.Results, symbol, timeframe string)
}

// FileReporter writes results to disk in a specific format.
type FileReporter interface {
	WriteCSV(results *backtest.Results, path string) error
	WriteXLSX(results *backtest.Results, path string) error
	WriteJSON(results *backtest.Results, path string) error
}

// Reporter combines every output format behind one value.
type Reporter interface {
	ConsoleReporter
	FileReporter
}
