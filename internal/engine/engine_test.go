package engine

import (
	"log/slog"
	"testing"

	"github.com/bogengine/mm-core/internal/breaker"
	"github.com/bogengine/mm-core/internal/core"
	"github.com/bogengine/mm-core/internal/executor"
	"github.com/bogengine/mm-core/internal/gap"
	"github.com/bogengine/mm-core/internal/killswitch"
	"github.com/bogengine/mm-core/internal/position"
	"github.com/bogengine/mm-core/internal/risk"
	"github.com/bogengine/mm-core/internal/strategy"
	"github.com/bogengine/mm-core/pkg/fixedpoint"
)

type stubFeed struct {
	snapshots      []core.MarketSnapshot
	i              int
	fullRequested  bool
}

func (f *stubFeed) TryRecv() (core.MarketSnapshot, bool) {
	if f.i >= len(f.snapshots) {
		return core.MarketSnapshot{}, false
	}
	s := f.snapshots[f.i]
	f.i++
	return s, true
}

func (f *stubFeed) RequestFullSnapshot() { f.fullRequested = true }

func px(x float64) uint64 {
	v, _ := fixedpoint.FromF64Checked(x)
	return uint64(v)
}

func testSnapshot(seq uint64, bid, ask float64) core.MarketSnapshot {
	return core.MarketSnapshot{
		Sequence:     seq,
		BestBidPrice: px(bid),
		BestAskPrice: px(ask),
		BestBidSize:  px(100),
		BestAskSize:  px(100),
	}
}

func newTestEngine(t *testing.T, feed Feed) (*Engine[strategy.SimpleSpread, *executor.SimulatedInstant], *executor.SimulatedInstant) {
	t.Helper()
	strat := strategy.SimpleSpread{SpreadBps: 10, MinSpreadBps: 1, OrderSize: px(1), MaxPosition: int64(px(1000))}
	exec := executor.NewSimulatedInstant(16, 0, func() int64 { return 1_000 })
	validator := risk.NewValidator(risk.Limits{
		MaxPosition: int64(px(1000)), MaxShort: int64(px(1000)),
		MaxOrderSize: px(500), MinOrderSize: px(0.0001),
		MaxOutstandingOrders: 10, MaxDailyLoss: int64(px(5000)), MaxDrawdownPct: 0.5,
	})
	var pos position.Position
	gapDet := gap.New()
	stale := breaker.NewStaleBreaker(breaker.DefaultStaleConfig())
	flash := breaker.NewFlashCrashBreaker(breaker.FlashCrashConfig{MaxSpreadBps: 1000, MinLiquidity: 1, MaxJumpBps: 100000, ConsecutiveViolationsToTrip: 1000})
	kill := killswitch.New()
	logger := slog.New(slog.DiscardHandler)

	eng := New[strategy.SimpleSpread, *executor.SimulatedInstant](feed, strat, exec, validator, &pos, gapDet, stale, flash, kill, nil, logger, DefaultConfig())
	return eng, exec
}

func TestTickQuotesOnFirstFreshSnapshot(t *testing.T) {
	t.Parallel()
	eng, _ := newTestEngine(t, &stubFeed{})
	snap := testSnapshot(1, 100, 101)
	sig := eng.Tick(&snap)
	if sig.Action != core.QuoteBoth {
		t.Fatalf("expected QuoteBoth on first snapshot, got %v", sig.Action)
	}
}

func TestTickSkipsStrategyWhenUnchanged(t *testing.T) {
	t.Parallel()
	eng, _ := newTestEngine(t, &stubFeed{})
	snap := testSnapshot(1, 100, 101)
	eng.Tick(&snap)

	snap2 := testSnapshot(2, 100, 101)
	sig := eng.Tick(&snap2)
	if sig.Action != core.NoAction {
		t.Fatalf("expected NoAction when market unchanged, got %v", sig.Action)
	}
}

func TestTickEntersRecoveryOnGapAndResyncsOnFullSnapshot(t *testing.T) {
	t.Parallel()
	feed := &stubFeed{}
	eng, _ := newTestEngine(t, feed)

	eng.Tick(ptr(testSnapshot(1, 100, 101)))
	eng.Tick(ptr(testSnapshot(2, 100, 101)))

	gapped := testSnapshot(10, 100, 101)
	sig := eng.Tick(&gapped)
	if sig.Action != core.NoAction {
		t.Fatalf("expected NoAction while entering recovery, got %v", sig.Action)
	}
	if !feed.fullRequested {
		t.Fatalf("expected RequestFullSnapshot to have been called")
	}
	if !eng.recovering {
		t.Fatalf("expected engine to be in recovering state")
	}

	incremental := testSnapshot(11, 105, 106)
	sig = eng.Tick(&incremental)
	if sig.Action != core.NoAction || !eng.recovering {
		t.Fatalf("expected incremental snapshots discarded during recovery")
	}

	full := testSnapshot(50, 200, 201)
	full.Flags = core.IsFullSnapshot
	sig = eng.Tick(&full)
	if eng.recovering {
		t.Fatalf("expected recovery to end on full snapshot")
	}
	if sig.Action != core.QuoteBoth {
		t.Fatalf("expected normal processing to resume after resync, got %v", sig.Action)
	}
}

func TestTickSmallFillDoesNotTripKillSwitch(t *testing.T) {
	t.Parallel()
	eng, exec := newTestEngine(t, &stubFeed{})
	_ = exec

	eng.validator = risk.NewValidator(risk.Limits{
		MaxPosition: int64(px(1000)), MaxShort: int64(px(1000)),
		MaxOrderSize: px(500), MinOrderSize: px(0.0001),
		MaxOutstandingOrders: 10, MaxDailyLoss: 0, MaxDrawdownPct: 0.5,
	})

	snap := testSnapshot(1, 100, 101)
	eng.Tick(&snap)

	if eng.kill.ShouldStop() {
		t.Fatalf("did not expect kill switch tripped from a single small fill")
	}
}

func TestTickReturnsNoActionWhenPaused(t *testing.T) {
	t.Parallel()
	eng, _ := newTestEngine(t, &stubFeed{})
	eng.kill.Pause()

	snap := testSnapshot(1, 100, 101)
	sig := eng.Tick(&snap)
	if sig.Action != core.NoAction {
		t.Fatalf("expected NoAction while paused, got %v", sig.Action)
	}
}

func TestTickReturnsNoActionOnCircuitBreakerHalt(t *testing.T) {
	t.Parallel()
	eng, _ := newTestEngine(t, &stubFeed{})
	eng.flash = breaker.NewFlashCrashBreaker(breaker.FlashCrashConfig{
		MaxSpreadBps: 1, MinLiquidity: px(1), MaxJumpBps: 100000, ConsecutiveViolationsToTrip: 1,
	})

	wide := testSnapshot(1, 100, 200)
	sig := eng.Tick(&wide)
	if sig.Action != core.NoAction {
		t.Fatalf("expected NoAction when circuit breaker halts, got %v", sig.Action)
	}
}

func ptr(s core.MarketSnapshot) *core.MarketSnapshot { return &s }
