package reporting

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/ducminhle1904/crypto-signal-engine/internal/backtest"
)

// JSONWriter serializes backtest.Results verbatim for downstream
// tooling that wants the full equity/drawdown/trade series.
type JSONWriter struct{}

func NewJSONWriter() *JSONWriter { return &JSONWriter{} }

func (w *JSONWriter) WriteJSON(results *backtest.Results, path string) error {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}

	data, err := json.MarshalIndent(results, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
