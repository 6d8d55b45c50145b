package main

import (
	"flag"
	"fmt"
	"log"
	"strings"

	"github.com/ducminhle1904/crypto-signal-engine/internal/backtest"
	"github.com/ducminhle1904/crypto-signal-engine/internal/config"
	"github.com/ducminhle1904/crypto-signal-engine/internal/obslog"
	"github.com/ducminhle1904/crypto-signal-engine/internal/strategy"
	"github.com/ducminhle1904/crypto-signal-engine/pkg/reporting"
	"github.com/ducminhle1904/crypto-signal-engine/pkg/types"

	"github.com/joho/godotenv"
)

const (
	appName    = "Signal Engine Backtest"
	appVersion = "1.0.0"
)

func main() {
	var (
		configFile     = flag.String("config", "", "Configuration file (JSON document, see internal/config.Document)")
		strategyName   = flag.String("strategy", "", "Name of the strategy in the config document to replay")
		dataFile       = flag.String("data", "", "CSV file of historical candles (open_time,open,high,low,close,volume,close_time)")
		initialBalance = flag.Float64("balance", 1000, "Starting balance in quote currency")
		feeRate        = flag.Float64("fee", 0.001, "Fraction of notional charged per fill (0.001 = 10bps)")
		slippagePct    = flag.Float64("slippage", 0.0005, "Fraction of price assumed lost to slippage per fill")
		outCSV         = flag.String("out-csv", "", "Write the trade log to this CSV path")
		outXLSX        = flag.String("out-xlsx", "", "Write the full results to this Excel workbook path")
		outJSON        = flag.String("out-json", "", "Write the full results to this JSON document path")
		envFile        = flag.String("env", ".env", "Environment file path")
	)
	flag.Parse()

	fmt.Printf("%s v%s\n%s\n\n", appName, appVersion, strings.Repeat("=", 50))

	if err := godotenv.Load(*envFile); err != nil {
		log.Printf("could not load %s (%v), continuing without it", *envFile, err)
	}

	if *dataFile == "" {
		log.Fatal("please specify historical candles with -data")
	}

	doc, err := config.Load(*configFile)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	sc, err := findStrategyConfig(doc, *strategyName)
	if err != nil {
		log.Fatal(err)
	}

	rootLog, err := obslog.New(obslog.Config{Level: "info", Format: "text"})
	if err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}

	strat, err := strategy.NewFromConfig(sc, rootLog.With("strategy."+sc.Name))
	if err != nil {
		log.Fatalf("failed to build strategy: %v", err)
	}
	if err := strat.Start(); err != nil {
		log.Fatalf("failed to start strategy: %v", err)
	}

	loader := backtest.NewCSVLoader()
	candles, err := loader.Load(*dataFile)
	if err != nil {
		log.Fatalf("failed to load candles: %v", err)
	}
	if len(candles) == 0 {
		log.Fatalf("no candles loaded from %s", *dataFile)
	}

	symbol := sc.Symbols[0]
	fmt.Printf("📊 Symbol: %s\n", symbol)
	fmt.Printf("📈 Strategy: %s\n", sc.Name)
	fmt.Printf("🕯️ Candles: %d\n\n", len(candles))

	bt := backtest.New(backtest.Config{
		InitialBalance:      *initialBalance,
		Symbol:              symbol,
		Timeframe:           sc.Timeframe,
		FeeRate:             *feeRate,
		SlippagePct:         *slippagePct,
		RiskFreeRateAnnual:  0.0,
		DefaultPositionSize: sc.RiskPerTrade / 100,
	}, strat)

	results, err := bt.Run(candles)
	if err != nil {
		log.Fatalf("backtest failed: %v", err)
	}

	reporter := reporting.NewDefaultReporter()
	reporter.PrintSummaryWithContext(results, symbol, sc.Timeframe)

	writeOutputs(reporter, results, *outCSV, *outXLSX, *outJSON)
}

func findStrategyConfig(doc *config.Document, name string) (types.StrategyConfig, error) {
	if len(doc.Strategies) == 0 {
		return types.StrategyConfig{}, fmt.Errorf("config document has no strategies section")
	}
	if name == "" {
		return doc.Strategies[0], nil
	}
	for _, sc := range doc.Strategies {
		if sc.Name == name {
			return sc, nil
		}
	}
	return types.StrategyConfig{}, fmt.Errorf("no strategy named %q in config document", name)
}

func writeOutputs(reporter *reporting.DefaultReporter, results *backtest.Results, outCSV, outXLSX, outJSON string) {
	if outCSV != "" {
		if err := reporter.WriteCSV(results, outCSV); err != nil {
			log.Printf("failed to write CSV report: %v", err)
		} else {
			fmt.Printf("📄 Trade log written to %s\n", outCSV)
		}
	}
	if outXLSX != "" {
		if err := reporter.WriteXLSX(results, outXLSX); err != nil {
			log.Printf("failed to write Excel report: %v", err)
		} else {
			fmt.Printf("📄 Workbook written to %s\n", outXLSX)
		}
	}
	if outJSON != "" {
		if err := reporter.WriteJSON(results, outJSON); err != nil {
			log.Printf("failed to write JSON report: %v", err)
		} else {
			fmt.Printf("📄 Results written to %s\n", outJSON)
		}
	}
}
