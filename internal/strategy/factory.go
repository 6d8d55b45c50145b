package strategy

import (
	"fmt"
	"strings"

	"github.com/ducminhle1904/crypto-signal-engine/internal/obslog"
	"github.com/ducminhle1904/crypto-signal-engine/pkg/types"
)

// NewFromConfig builds and configures the concrete indicator engine
// named by cfg's "engine" custom param ("rsi", "sma" or "macd"). When
// the param is absent, the engine is inferred from the first of "rsi",
// "sma", "macd" found anywhere in cfg.Name (case-insensitive), mirroring the live bot's indicator-name-driven wiring.
func NewFromConfig(cfg types.StrategyConfig, log *obslog.Logger) (Strategy, error) {
	engine := engineKind(cfg)

	var s Strategy
	switch engine {
	case "rsi":
		s = NewRSIStrategy(cfg.Name, log)
	case "sma":
		s = NewSMAStrategy(cfg.Name, log)
	case "macd":
		s = NewMACDStrategy(cfg.Name, log)
	default:
		return nil, fmt.Errorf("strategy: unknown engine %q for strategy %q", engine, cfg.Name)
	}

	if err := s.Configure(cfg); err != nil {
		return nil, fmt.Errorf("strategy: configure %q: %w", cfg.Name, err)
	}
	return s, nil
}

func engineKind(cfg types.StrategyConfig) string {
	if v, ok := cfg.CustomParams["engine"]; ok {
		if s, ok := v.(string); ok {
			return strings.ToLower(s)
		}
	}
	lower := strings.ToLower(cfg.Name)
	for _, kind := range []string{"rsi", "sma", "macd"} {
		if strings.Contains(lower, kind) {
			return kind
		}
	}
	return ""
}
