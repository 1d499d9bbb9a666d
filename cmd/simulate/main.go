// Command simulate runs the engine against a simulated executor (no
// venue client, no journal) for local testing and the end-to-end
// scenarios of spec.md §8. It shares cmd/engine's flag surface plus
// --replay-file, which feeds the engine from a recorded line-delimited
// JSON fixture instead of a live WebSocket feed and exits cleanly once
// the fixture is exhausted (SPEC_FULL §9 EXPANSION, grounded on
// original_source's detect_replay_end concept).
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
	"github.com/bogengine/mm-core/internal/killswitch"
	"github.com/bogengine/mm-core/internal/position"
	"github.com/bogengine/mm-core/internal/risk"
	"github.com/bogengine/mm-core/internal/strategy"
	"github.com/bogengine/mm-core/internal/supervise"
	"github.com/bogengine/mm-core/internal/telemetry"
)

const tickSizeNanos = 1_000_000_000 / 100

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
	replayFile := flag.String("replay-file", "", "replay a line-delimited JSON snapshot fixture instead of a live feed")
	replayTimeout := flag.Duration("replay-timeout", 2*time.Second, "exit once --replay-file is exhausted and no new snapshot arrives within this duration")
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
	cfg.Execution.Mode = "simulated"
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

	var exec executor.Executor
	switch cfg.Execution.FillMode {
	case "realistic":
		exec = executor.NewSimulatedRealistic(4096, executor.Realistic, 0, 20*time.Millisecond, time.Now().UnixNano(), journalNowMs, nil)
	default:
		exec = executor.NewSimulatedInstant(4096, 0, journalNowMs)
	}

	bgCtx, cancelBg := context.WithCancel(context.Background())
	defer cancelBg()
	sup, ctx := supervise.New(bgCtx, logger)

	var f engine.Feed
	var replaySrc *feed.Replay
	if *replayFile != "" {
		rf, err := os.Open(*replayFile)
		if err != nil {
			logger.Error("failed to open replay file", "error", err, "path", *replayFile)
			return 1
		}
		defer rf.Close()
		replaySrc, err = feed.NewReplay(rf)
		if err != nil {
			logger.Error("failed to parse replay file", "error", err, "path", *replayFile)
			return 1
		}
		replaySrc.EndTimeout = *replayTimeout
		f = replaySrc
	} else {
		ws := feed.NewWS(cfg.Execution.Venue.WSURL, logger)
		sup.Go("feed", ws.Run)
		f = ws
	}

	metrics := telemetry.NewPrometheusMetrics()
	var telemetryServer *telemetry.Server
	if *metricsEnabled {
		telemetryServer = telemetry.NewServer(fmt.Sprintf(":%d", cfg.Telemetry.PrometheusPort), metrics)
		sup.Go("telemetry", func(ctx context.Context) error {
			go func() {
				<-ctx.Done()
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				telemetryServer.Shutdown(shutdownCtx)
			}()
			return telemetryServer.Start()
		})
	}

	ks := killswitch.New()
	stopSignals := ks.Install()
	defer stopSignals()

	pos := &position.Position{}
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

	if replaySrc != nil {
		sup.Go("replay-watchdog", func(ctx context.Context) error {
			ticker := time.NewTicker(50 * time.Millisecond)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return nil
				case <-ticker.C:
					if replaySrc.IsExhausted() {
						logger.Info("replay file exhausted, shutting down", "remaining", replaySrc.Remaining())
						ks.Shutdown("replay file exhausted")
						return nil
					}
				}
			}
		})
	}

	eng.Run(ctx)
	cancelBg()

	if err := sup.Wait(); err != nil {
		logger.Error("background task failed", "error", err)
	}

	if ks.State() == killswitch.EmergencyStop {
		logger.Error("shut down via emergency stop", "reason", ks.Reason())
		return 2
	}
	logger.Info("simulation shut down cleanly")
	return 0
}

func journalNowMs() int64 { return time.Now().UnixMilli() }

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
