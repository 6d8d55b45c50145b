package reporting

import "github.com/ducminhle1904/crypto-signal-engine/internal/backtest"

// DefaultReporter composes the console, CSV, Excel and JSON writers
// behind the single Reporter interface.
type DefaultReporter struct {
	console *ConsolePrinter
	csv     *CSVWriter
	excel   *ExcelWriter
	json    *JSONWriter
}

func NewDefaultReporter() *DefaultReporter {
	return &DefaultReporter{
		console: NewConsolePrinter(),
		csv:     NewCSVWriter(),
		excel:   NewExcelWriter(),
		json:    NewJSONWriter(),
	}
}

func (r *DefaultReporter) PrintSummary(results *backtest.Results) { r.console.PrintSummary(results) }

func (r *DefaultReporter) PrintSummaryWithContext(results *backtest.Results, symbol, timeframe string) {
	r.console.PrintSummaryWithContext(results, symbol, timeframe)
}

func (r *DefaultReporter) WriteCSV(results *backtest.Results, path string) error {
	return r.csv.WriteCSV(results, path)
}

func (r *DefaultReporter) WriteXLSX(results *backtest.Results, path string) error {
	return r.excel.WriteXLSX(results, path)
}

func (r *DefaultReporter) WriteJSON(results *backtest.Results, path string) error {
	return r.json.WriteJSON(results, path)
}
