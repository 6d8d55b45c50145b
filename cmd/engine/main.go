package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ducminhle1904/crypto-signal-engine/internal/config"
	"github.com/ducminhle1904/crypto-signal-engine/internal/engine"
	"github.com/ducminhle1904/crypto-signal-engine/internal/exchange"
	"github.com/ducminhle1904/crypto-signal-engine/internal/exchange/adapters"
	"github.com/ducminhle1904/crypto-signal-engine/internal/monitoring"
	"github.com/ducminhle1904/crypto-signal-engine/internal/notifications"
	"github.com/ducminhle1904/crypto-signal-engine/internal/obslog"
	"github.com/ducminhle1904/crypto-signal-engine/internal/risk"
	"github.com/ducminhle1904/crypto-signal-engine/internal/strategy"
	"github.com/ducminhle1904/crypto-signal-engine/pkg/types"
)

func main() {
	var (
		configFile = flag.String("config", "", "Configuration file (JSON document, see internal/config.Document)")
		dryRun     = flag.Bool("dry-run", true, "Do not place live orders, only log the decision")
		logLevel   = flag.String("log-level", "info", "debug, info, warn or error")
		logFormat  = flag.String("log-format", "text", "text or json")
	)
	flag.Parse()

	log, err := obslog.New(obslog.Config{Level: *logLevel, Format: *logFormat})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	rootLog := log.With("main")

	doc, err := config.Load(*configFile)
	if err != nil {
		rootLog.WithError(err).Errorf("failed to load configuration")
		os.Exit(1)
	}

	rootLog.Infof("starting signal engine (exchange=%s dry_run=%v)", doc.Exchange.Name, *dryRun)

	factory := adapters.NewFactory()
	adapterCfg := adapters.ExchangeConfig{Name: doc.Exchange.Name}
	switch doc.Exchange.Name {
	case "bybit":
		adapterCfg.Bybit = &exchange.BybitConfig{APIKey: doc.Exchange.APIKey, APISecret: doc.Exchange.Secret, Testnet: doc.Exchange.Testnet}
	case "binance":
		adapterCfg.Binance = &exchange.BinanceConfig{APIKey: doc.Exchange.APIKey, APISecret: doc.Exchange.Secret, Testnet: doc.Exchange.Testnet}
	}

	adapter, err := factory.CreateAdapter(adapterCfg)
	if err != nil {
		rootLog.WithError(err).Errorf("failed to build exchange adapter")
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := adapter.Initialize(ctx); err != nil {
		rootLog.WithError(err).Errorf("failed to initialize exchange adapter")
		os.Exit(1)
	}

	health := monitoring.NewHealthChecker()
	health.SetConnected(true)

	var notifier notifications.Notifier
	if token := os.Getenv("TELEGRAM_TOKEN"); token != "" {
		notifier = notifications.NewTelegramNotifier(token, os.Getenv("TELEGRAM_CHAT_ID"))
	}

	eng := engine.New(rootLog.With("engine"))
	riskMgr := risk.New(doc.Risk.ToParameters(), 0, rootLog.With("risk"))

	for _, sc := range doc.Strategies {
		if !sc.Enabled {
			continue
		}
		s, err := strategy.NewFromConfig(sc, rootLog.With("strategy."+sc.Name))
		if err != nil {
			rootLog.WithError(err).Errorf("failed to build strategy %q, skipping", sc.Name)
			continue
		}
		if err := eng.RegisterStrategy(s); err != nil {
			rootLog.WithError(err).Errorf("failed to register strategy %q, skipping", sc.Name)
			continue
		}
		if err := eng.StartStrategy(sc.Name); err != nil {
			rootLog.WithError(err).Errorf("failed to start strategy %q", sc.Name)
		}
	}

	if notifier != nil {
		if err := notifier.SendAlert("info", fmt.Sprintf("signal engine started with %d strategies", len(eng.StrategyNames()))); err != nil {
			rootLog.WithError(err).Warnf("failed to send startup notification")
		}
	}

	go runMonitoringServers(doc.Monitoring, health, rootLog.With("monitoring"))

	runner := &runner{
		cfg:      doc,
		adapter:  adapter,
		engine:   eng,
		risk:     riskMgr,
		health:   health,
		notifier: notifier,
		log:      rootLog.With("runner"),
		dryRun:   *dryRun,
	}
	go runner.loop(ctx)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	rootLog.Infof("shutdown signal received")
	cancel()
	health.SetConnected(false)
	if notifier != nil {
		_ = notifier.SendAlert("info", "signal engine stopped")
	}
}

// runner drives a single 30-second polling loop that ticks every
// registered strategy on its first configured symbol, dispatching
// candles through the engine and gating actionable signals through the
// risk manager before placing an order.
type runner struct {
	cfg      *config.Document
	adapter  exchange.Adapter
	engine   *engine.Engine
	risk     *risk.Manager
	health   *monitoring.HealthChecker
	notifier notifications.Notifier
	log      *obslog.Logger
	dryRun   bool
}

func (r *runner) loop(ctx context.Context) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	r.tick(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.tick(ctx)
		}
	}
}

func (r *runner) tick(ctx context.Context) {
	for _, name := range r.engine.StrategyNames() {
		r.tickStrategy(ctx, name)
	}
}

func (r *runner) tickStrategy(ctx context.Context, strategyName string) {
	symbol := r.symbolFor(strategyName)
	if symbol == "" {
		return
	}

	candles, err := r.adapter.GetKlines(ctx, symbol, r.timeframeFor(strategyName), 200, 0, 0)
	if err != nil {
		r.log.WithError(err).Warnf("failed to fetch klines for %s", symbol)
		r.health.RecordError(err.Error())
		return
	}
	if len(candles) == 0 {
		return
	}

	tick, err := r.adapter.GetTicker(ctx, symbol)
	if err != nil {
		r.log.WithError(err).Warnf("failed to fetch ticker for %s", symbol)
		tick = nil
	} else {
		r.health.RecordTrade(tick.Last)
		monitoring.UpdatePrice(symbol, tick.Last)
	}

	result, err := r.engine.ExecuteStrategy(strategyName, candles, tick)
	if err != nil {
		r.log.WithError(err).Warnf("strategy %s execution failed", strategyName)
		return
	}
	if !result.IsActionable() {
		return
	}

	r.handleSignal(ctx, strategyName, symbol, result)
}

func (r *runner) handleSignal(ctx context.Context, strategyName, symbol string, sig types.Signal) {
	balance, err := r.adapter.GetAccountBalance(ctx, "USDT")
	if err != nil {
		r.log.WithError(err).Warnf("failed to fetch balance, skipping signal")
		return
	}
	r.risk.SetAccountBalance(balance)

	qty := r.risk.CalculatePositionSize(symbol, sig.Price, balance)
	if qty <= 0 {
		return
	}

	side := types.SideBuy
	if sig.Kind == types.SignalSell || sig.Kind == types.SignalCloseLong {
		side = types.SideSell
	}

	if !r.risk.CheckPositionAllowed(symbol, side, qty, sig.Price) {
		r.log.Infof("risk manager rejected %s %s signal from %s (correlation_id=%s)", side, symbol, strategyName, sig.CorrelationID)
		if r.notifier != nil {
			if alerts := r.risk.Alerts(); len(alerts) > 0 {
				latest := alerts[len(alerts)-1]
				_ = r.notifier.SendRiskAlert(string(latest.Kind), latest.Symbol, latest.CurrentValue, latest.LimitValue, sig.CorrelationID)
			}
		}
		return
	}

	if r.dryRun {
		r.log.Infof("dry-run: would place %s order for %.6f %s at %.2f (strategy=%s correlation_id=%s)", side, qty, symbol, sig.Price, strategyName, sig.CorrelationID)
		return
	}

	order, err := r.adapter.PlaceOrder(ctx, exchange.OrderRequest{Symbol: symbol, Side: side, Type: types.OrderTypeMarket, Quantity: qty})
	if err != nil {
		r.log.WithError(err).Errorf("failed to place order for %s (correlation_id=%s)", symbol, sig.CorrelationID)
		return
	}

	r.risk.RegisterPosition(symbol, qty, sig.Price)
	if r.notifier != nil {
		_ = r.notifier.SendAlert("success", fmt.Sprintf("%s %s order %s filled: qty=%.6f price=%.2f (correlation_id=%s)", strategyName, side, order.OrderID, qty, sig.Price, sig.CorrelationID))
	}
}

func (r *runner) symbolFor(strategyName string) string {
	for _, sc := range r.cfg.Strategies {
		if sc.Name == strategyName && len(sc.Symbols) > 0 {
			return sc.Symbols[0]
		}
	}
	return ""
}

func (r *runner) timeframeFor(strategyName string) string {
	for _, sc := range r.cfg.Strategies {
		if sc.Name == strategyName && sc.Timeframe != "" {
			return sc.Timeframe
		}
	}
	return "1h"
}

func runMonitoringServers(cfg config.MonitoringConfig, health *monitoring.HealthChecker, log *obslog.Logger) {
	healthMux := http.NewServeMux()
	healthMux.Handle("/health", health)
	go func() {
		log.Infof("starting health server on port %d", cfg.HealthPort)
		if err := http.ListenAndServe(fmt.Sprintf(":%d", cfg.HealthPort), healthMux); err != nil {
			log.WithError(err).Errorf("health server stopped")
		}
	}()

	go func() {
		log.Infof("starting prometheus server on port %d", cfg.PrometheusPort)
		if err := http.ListenAndServe(fmt.Sprintf(":%d", cfg.PrometheusPort), monitoring.NewMetricsHandler()); err != nil {
			log.WithError(err).Errorf("prometheus server stopped")
		}
	}()
}
