// Command engine is the production entrypoint of SPEC_FULL §6: it wires
// a live venue feed, a journaled venue-backed executor, the full kill
// switch/signal surface, and a metrics server around the single-market
// hot loop. Grounded on the teacher's cmd/bot/main.go lifecycle
// (load config → build logger → construct engine → wait for shutdown
// signal → stop), generalized to this engine's config schema, feed/
// executor/breaker/risk wiring, and exit-code discipline.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"runtime"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/bogengine/mm-core/internal/breaker"
	"github.com/bogengine/mm-core/internal/config"
	"github.com/bogengine/mm-core/internal/engine"
	"github.com/bogengine/mm-core/internal/executor"
	"github.com/bogengine/mm-core/internal/feed"
	"github.com/bogengine/mm-core/internal/gap"
	"github.com/bogengine/mm-core/internal/journal"
	"github.com/bogengine/mm-core/internal/killswitch"
	"github.com/bogengine/mm-core/internal/position"
	"github.com/bogengine/mm-core/internal/risk"
	"github.com/bogengine/mm-core/internal/store"
	"github.com/bogengine/mm-core/internal/strategy"
	"github.com/bogengine/mm-core/internal/supervise"
	"github.com/bogengine/mm-core/internal/telemetry"
	"github.com/bogengine/mm-core/internal/venue"
)

// tickSizeNanos is the minimum price increment assumed for the
// inventory-based strategy's tick rounding; the config schema (spec §6)
// does not expose a per-market tick size, so this is fixed at one
// hundredth of a unit, the common prediction-market convention.
const tickSizeNanos = fixedpointScale / 100

const fixedpointScale = 1_000_000_000

func main() {
	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintf(os.Stderr, "panic: %v\n%s", r, debug.Stack())
			os.Exit(1)
		}
	}()
	os.Exit(run())
}

func run() int {
	cfgPath := flag.String("config", "configs/config.yaml", "path to the engine YAML config")
	marketID := flag.Uint64("market-id", 0, "override market.market_id")
	dexType := flag.Uint("dex-type", 0, "override market.dex_type")
	cpuCore := flag.Int("cpu-core", -1, "requested CPU core for the hot loop (logged only; no CPU affinity is applied)")
	realtime := flag.Bool("realtime", false, "disable GC pauses and lock the hot loop to its OS thread for latency-sensitive runs")
	metricsEnabled := flag.Bool("metrics", true, "start the Prometheus metrics server")
	logLevel := flag.String("log-level", "", "override logging.level (trace|debug|info|warn|error)")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		slog.Error("failed to load config", "error", err, "path", *cfgPath)
		return 1
	}
	if *marketID != 0 {
		cfg.Market.MarketID = *marketID
	}
	if *dexType != 0 {
		cfg.Market.DexType = uint8(*dexType)
	}
	if *logLevel != "" {
		cfg.Logging.Level = *logLevel
	}
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid config", "error", err)
		return 1
	}

	logger := slog.New(newLogHandler(cfg.Logging.Level, cfg.Logging.Format))

	if *realtime {
		debug.SetGCPercent(-1)
		runtime.LockOSThread()
		logger.Warn("realtime mode: GC disabled, hot loop locked to its OS thread")
	}
	if *cpuCore >= 0 {
		logger.Info("cpu-core pinning requested; not applied (no cross-platform affinity API in pure Go)", "cpu_core", *cpuCore)
	}

	marketID2, err := cfg.EncodedMarketID()
	if err != nil {
		logger.Error("invalid market id", "error", err)
		return 1
	}

	limits, err := cfg.ToRiskLimits()
	if err != nil {
		logger.Error("invalid risk config", "error", err)
		return 1
	}
	flashCfg, err := cfg.ToFlashCrashConfig()
	if err != nil {
		logger.Error("invalid breaker config", "error", err)
		return 1
	}

	var strat strategy.Strategy
	switch cfg.Strategy.Type {
	case "simple_spread":
		strat, err = cfg.ToSimpleSpread(limits.MaxPosition)
	case "inventory_based":
		strat, err = cfg.ToInventoryBased(tickSizeNanos, limits.MaxPosition)
	default:
		err = fmt.Errorf("unknown strategy.type %q", cfg.Strategy.Type)
	}
	if err != nil {
		logger.Error("failed to build strategy", "error", err)
		return 1
	}

	posStore, err := store.Open("./data", journal.NowMs)
	if err != nil {
		logger.Error("failed to open position store", "error", err)
		return 1
	}
	defer posStore.Close()

	pos := &position.Position{}
	if snap, err := posStore.LoadPosition(marketID2); err != nil {
		logger.Error("failed to load persisted position", "error", err)
		return 1
	} else if snap != nil {
		pos.RestoreFrom(*snap)
		logger.Info("restored position from store", "quantity", pos.GetQuantity())
	}

	j, err := journal.Open(cfg.Execution.JournalPath, logger)
	if err != nil {
		logger.Error("failed to open journal", "error", err)
		return 1
	}
	defer j.Close()

	recovered, err := journal.Recover(cfg.Execution.JournalPath)
	if err != nil {
		logger.Error("failed to recover journal", "error", err)
		return 1
	}

	venueClient := venue.NewClient(venue.Config{BaseURL: cfg.Execution.Venue.BaseURL}, logger)
	var exec executor.Executor = executor.NewProduction(venueClient, j, 4096, journal.NowMs, recovered)

	ws := feed.NewWS(cfg.Execution.Venue.WSURL, logger)
	var f engine.Feed = ws

	metrics := telemetry.NewPrometheusMetrics()
	var telemetryServer *telemetry.Server
	if *metricsEnabled {
		telemetryServer = telemetry.NewServer(fmt.Sprintf(":%d", cfg.Telemetry.PrometheusPort), metrics)
	}

	ks := killswitch.New()
	stopSignals := ks.Install()
	defer stopSignals()

	eng := engine.New[strategy.Strategy, executor.Executor](
		f, strat, exec,
		risk.NewValidator(limits),
		pos,
		gap.New(),
		breaker.NewStaleBreaker(cfg.ToStaleConfig()),
		breaker.NewFlashCrashBreaker(flashCfg),
		ks,
		metrics,
		logger,
		engine.DefaultConfig(),
	)

	bgCtx, cancelBg := context.WithCancel(context.Background())
	defer cancelBg()
	sup, ctx := supervise.New(bgCtx, logger)
	sup.Go("feed", ws.Run)
	if telemetryServer != nil {
		sup.Go("telemetry", func(ctx context.Context) error {
			go func() {
				<-ctx.Done()
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				telemetryServer.Shutdown(shutdownCtx)
			}()
			if err := telemetryServer.Start(); err != nil {
				return err
			}
			return nil
		})
	}
	sup.Go("position-snapshotter", func(ctx context.Context) error {
		return runSnapshotter(ctx, posStore, marketID2, pos, time.Duration(cfg.Telemetry.SnapshotIntervalSecs)*time.Second)
	})

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case <-sigCh:
			logger.Info("received SIGINT")
			ks.Shutdown("SIGINT received")
		case <-ctx.Done():
		}
	}()

	eng.Run(ctx)
	cancelBg()

	if err := sup.Wait(); err != nil {
		logger.Error("background task failed", "error", err)
	}

	if err := posStore.SavePosition(marketID2, pos.ToSnapshot()); err != nil {
		logger.Error("failed to save position on shutdown", "error", err)
	}

	if ks.State() == killswitch.EmergencyStop {
		logger.Error("shut down via emergency stop", "reason", ks.Reason())
		return 2
	}
	logger.Info("engine shut down cleanly")
	return 0
}

func runSnapshotter(ctx context.Context, s *store.Store, marketID uint64, pos *position.Position, interval time.Duration) error {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := s.SavePosition(marketID, pos.ToSnapshot()); err != nil {
				slog.Error("periodic position snapshot failed", "error", err)
			}
		}
	}
}

func newLogHandler(level, format string) slog.Handler {
	opts := &slog.HandlerOptions{Level: parseLogLevel(level)}
	if format == "json" {
		return slog.NewJSONHandler(os.Stdout, opts)
	}
	return slog.NewTextHandler(os.Stdout, opts)
}

func parseLogLevel(level string) slog.Level {
	switch level {
	case "trace", "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
