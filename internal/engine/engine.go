// Package engine implements the single-threaded hot loop of spec §4.9:
// generic over a Strategy and an Executor (chosen at build time, the
// nearest Go equivalent of the original's const-generic monomorphized
// `Engine<Strategy, Executor>`), it drives one market's trading decision
// on every snapshot. Grounded on the teacher's internal/engine/engine.go
// orchestration shape (New/Start/Stop lifecycle, slog logging,
// sync.WaitGroup-supervised goroutines) generalized from a
// multi-market async orchestrator to a single-market synchronous loop,
// per spec §5's "one hot thread, no internal scheduler" requirement.
package engine

import (
	"context"
	"log/slog"
	"runtime"
	"time"

	"github.com/bogengine/mm-core/internal/breaker"
	"github.com/bogengine/mm-core/internal/core"
	"github.com/bogengine/mm-core/internal/executor"
	"github.com/bogengine/mm-core/internal/gap"
	"github.com/bogengine/mm-core/internal/killswitch"
	"github.com/bogengine/mm-core/internal/position"
	"github.com/bogengine/mm-core/internal/risk"
	"github.com/bogengine/mm-core/internal/strategy"
)

// Feed is the engine's sole market-data source (spec §4.9/§4.11):
// TryRecv is a non-blocking poll, RequestFullSnapshot asks the source to
// prioritize a full-book resync after a detected gap.
type Feed interface {
	TryRecv() (core.MarketSnapshot, bool)
	RequestFullSnapshot()
}

// Metrics is the engine's observability sink (spec §4.9 step 10 / §5's
// "metrics HTTP server" background collaborator). A nil Metrics is
// replaced with a no-op implementation so callers never need to check.
type Metrics interface {
	RecordTick(latency time.Duration)
	IncGapDetected(size uint64)
	IncCircuitBreakerHalt()
	IncSignalRejected()
	IncFillProcessed()
	IncKillSwitchTripped(reason string)
	IncDroppedFills(count uint64)
}

type noopMetrics struct{}

func (noopMetrics) RecordTick(time.Duration)        {}
func (noopMetrics) IncGapDetected(uint64)           {}
func (noopMetrics) IncCircuitBreakerHalt()          {}
func (noopMetrics) IncSignalRejected()              {}
func (noopMetrics) IncFillProcessed()                {}
func (noopMetrics) IncKillSwitchTripped(string)     {}
func (noopMetrics) IncDroppedFills(uint64)          {}

// Config bounds the behaviors spec §4.9/§4.11 leave tunable.
type Config struct {
	// RecoveryDeadline, if positive, trips the kill switch when gap
	// recovery (spec §4.11) has not completed within this duration.
	RecoveryDeadline time.Duration
	// IdleSpin is how long the hot loop sleeps when TryRecv reports no
	// data, approximating spec §5's "microsecond-scale yield or spin".
	IdleSpin time.Duration
}

// DefaultConfig matches spec §4.9/§5's stated defaults.
func DefaultConfig() Config {
	return Config{RecoveryDeadline: 30 * time.Second, IdleSpin: 50 * time.Microsecond}
}

// Engine is the single-market, single-venue hot loop. S and E are fixed
// at construction (and, in the typical cmd/engine wiring, at compile
// time via a concrete instantiation) so every call through them is a
// direct, non-virtual dispatch.
type Engine[S strategy.Strategy, E executor.Executor] struct {
	feed      Feed
	strat     S
	exec      E
	validator *risk.Validator
	pos       *position.Position
	gapDet    *gap.Detector
	stale     *breaker.StaleBreaker
	flash     *breaker.FlashCrashBreaker
	kill      *killswitch.KillSwitch
	metrics   Metrics
	logger    *slog.Logger
	cfg       Config
	now       func() time.Time

	havePrevTick                               bool
	lastBid, lastAsk, lastBidSize, lastAskSize uint64

	recovering         bool
	recoveryDeadlineAt time.Time
}

// New wires one engine instance. metrics may be nil (defaults to a
// no-op sink); every other dependency is required.
func New[S strategy.Strategy, E executor.Executor](
	feed Feed,
	strat S,
	exec E,
	validator *risk.Validator,
	pos *position.Position,
	gapDet *gap.Detector,
	stale *breaker.StaleBreaker,
	flash *breaker.FlashCrashBreaker,
	kill *killswitch.KillSwitch,
	metrics Metrics,
	logger *slog.Logger,
	cfg Config,
) *Engine[S, E] {
	if metrics == nil {
		metrics = noopMetrics{}
	}
	return &Engine[S, E]{
		feed:      feed,
		strat:     strat,
		exec:      exec,
		validator: validator,
		pos:       pos,
		gapDet:    gapDet,
		stale:     stale,
		flash:     flash,
		kill:      kill,
		metrics:   metrics,
		logger:    logger.With("component", "engine"),
		cfg:       cfg,
		now:       time.Now,
	}
}

// Run drives the hot loop until ctx is cancelled or the kill switch
// reports ShuttingDown/EmergencyStop (spec §4.10/§5).
func (e *Engine[S, E]) Run(ctx context.Context) {
	e.logger.Info("engine loop starting")
	for {
		select {
		case <-ctx.Done():
			e.logger.Info("engine loop stopping: context cancelled")
			return
		default:
		}

		if e.kill.ShouldStop() {
			e.logger.Info("engine loop stopping: kill switch", "state", e.kill.State().String(), "reason", e.kill.Reason())
			return
		}

		snap, ok := e.feed.TryRecv()
		if !ok {
			e.stale.MarkEmptyPoll()
			if e.cfg.IdleSpin > 0 {
				time.Sleep(e.cfg.IdleSpin)
			} else {
				runtime.Gosched()
			}
			continue
		}

		e.Tick(&snap)
	}
}

// Tick runs the ten numbered steps of spec §4.9 against one snapshot and
// returns the resulting signal (NoAction if any gate rejected it).
func (e *Engine[S, E]) Tick(snap *core.MarketSnapshot) core.Signal {
	start := e.now()
	sig := e.tick(snap)
	e.metrics.RecordTick(e.now().Sub(start))
	return sig
}

func (e *Engine[S, E]) tick(snap *core.MarketSnapshot) core.Signal {
	if e.kill.IsPaused() {
		// Paused still ingests data and updates counters (spec §4.10)
		// but never reaches the strategy/executor; freshness and gap
		// bookkeeping below still run so state doesn't go stale while
		// paused.
		e.stale.MarkFresh()
		e.gapDet.Check(snap.Sequence)
		return core.NoActionSignal()
	}

	if e.recovering {
		return e.tickRecovering(snap)
	}

	// Step 1.
	if !e.stale.IsFresh() {
		return core.NoActionSignal()
	}
	e.stale.MarkFresh()

	// Step 2.
	if gapSize := e.gapDet.Check(snap.Sequence); gapSize > 0 {
		e.beginRecovery(gapSize)
		return core.NoActionSignal()
	}

	return e.tickNormal(snap)
}

func (e *Engine[S, E]) beginRecovery(gapSize uint64) {
	e.metrics.IncGapDetected(gapSize)
	e.logger.Warn("sequence gap detected, entering recovery", "gap_size", gapSize)
	e.feed.RequestFullSnapshot()
	e.recovering = true
	if e.cfg.RecoveryDeadline > 0 {
		e.recoveryDeadlineAt = e.now().Add(e.cfg.RecoveryDeadline)
	}
}

// tickRecovering implements spec §4.11: discard incremental snapshots,
// resync on the first full snapshot, trip the kill switch on timeout.
func (e *Engine[S, E]) tickRecovering(snap *core.MarketSnapshot) core.Signal {
	if e.cfg.RecoveryDeadline > 0 && e.now().After(e.recoveryDeadlineAt) {
		e.logger.Error("gap recovery deadline exceeded")
		e.kill.EmergencyStop("gap recovery deadline exceeded")
		e.metrics.IncKillSwitchTripped("gap recovery deadline exceeded")
		e.recovering = false
		return core.NoActionSignal()
	}
	if !snap.Flags.Full() {
		return core.NoActionSignal()
	}

	e.gapDet.ResetAtSequence(snap.Sequence)
	e.recovering = false
	e.havePrevTick = false
	e.logger.Info("gap recovery complete", "sequence", snap.Sequence)
	return e.tickNormal(snap)
}

func (e *Engine[S, E]) tickNormal(snap *core.MarketSnapshot) core.Signal {
	// Step 3.
	if e.flash.Check(snap) == breaker.Halted {
		e.metrics.IncCircuitBreakerHalt()
		return core.NoActionSignal()
	}

	// Step 4 (pure optimization; strategy must be deterministic in its
	// inputs regardless of whether this skip fires).
	if e.unchangedSinceLastTick(snap) {
		return core.NoActionSignal()
	}
	e.recordTick(snap)

	// Step 5.
	sig, ok := e.strat.Calculate(snap, e.pos)

	// Unrealized P&L can reach a new high-water mark on a fill-less tick
	// purely from mid movement; the drawdown breaker must see that peak
	// even when nothing trades this tick.
	e.pos.MaybeUpdatePeak(snap.Mid())

	if !ok {
		return core.NoActionSignal()
	}

	// Step 6.
	openBuy, openSell := e.exec.OpenExposure()
	outstanding := e.exec.OutstandingOrders()
	if err := e.validator.ValidateSignal(sig, e.pos, openBuy, openSell, outstanding); err != nil {
		e.metrics.IncSignalRejected()
		e.logger.Debug("signal rejected by risk validator", "error", err, "action", sig.Action.String())
		return core.NoActionSignal()
	}

	// Step 7.
	if err := e.exec.Execute(sig, e.pos); err != nil {
		e.logger.Error("executor.Execute failed", "error", err)
		return core.NoActionSignal()
	}

	// Step 8.
	fills := e.exec.DrainFills()

	// Step 9.
	mid := snap.Mid()
	for _, f := range fills {
		halt, err := e.validator.UpdatePosition(f, e.pos, mid)
		if err != nil {
			e.logger.Error("UpdatePosition failed", "error", err, "order_id", f.OrderID.String())
			continue
		}
		e.metrics.IncFillProcessed()
		if halt != nil {
			e.logger.Error("risk halt triggered", "reason", halt.Error())
			e.exec.CancelAll()
			e.kill.EmergencyStop(halt.Error())
			e.metrics.IncKillSwitchTripped(halt.Error())
		}
	}

	// Step 10: dropped fills are a data-integrity alarm, not a halt
	// condition (spec §4.8.2).
	if dropped := e.exec.DroppedFillCount(); dropped > 0 {
		e.metrics.IncDroppedFills(dropped)
	}

	return sig
}

func (e *Engine[S, E]) unchangedSinceLastTick(snap *core.MarketSnapshot) bool {
	return e.havePrevTick &&
		snap.BestBidPrice == e.lastBid && snap.BestAskPrice == e.lastAsk &&
		snap.BestBidSize == e.lastBidSize && snap.BestAskSize == e.lastAskSize
}

func (e *Engine[S, E]) recordTick(snap *core.MarketSnapshot) {
	e.havePrevTick = true
	e.lastBid, e.lastAsk = snap.BestBidPrice, snap.BestAskPrice
	e.lastBidSize, e.lastAskSize = snap.BestBidSize, snap.BestAskSize
}
