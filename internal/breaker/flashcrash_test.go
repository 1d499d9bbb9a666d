package breaker

import (
	"testing"

	"github.com/bogengine/mm-core/internal/core"
	"github.com/bogengine/mm-core/pkg/fixedpoint"
)

func scale(x float64) uint64 {
	v, _ := fixedpoint.FromF64Checked(x)
	return uint64(v)
}

func defaultCfg() FlashCrashConfig {
	return FlashCrashConfig{
		MaxSpreadBps:                50,
		MinLiquidity:                scale(1),
		MaxJumpBps:                  500,
		ConsecutiveViolationsToTrip: 3,
	}
}

func snap(bid, ask float64) *core.MarketSnapshot {
	return &core.MarketSnapshot{
		BestBidPrice: scale(bid),
		BestAskPrice: scale(ask),
		BestBidSize:  scale(100),
		BestAskSize:  scale(100),
	}
}

func TestFlashCrashTripsAfterThreeConsecutiveJumps(t *testing.T) {
	t.Parallel()
	b := NewFlashCrashBreaker(defaultCfg())

	if st := b.Check(snap(50_000, 50_005)); st != Normal {
		t.Fatalf("priming snapshot should not trip breaker")
	}
	for i := 0; i < 2; i++ {
		if st := b.Check(snap(55_000, 55_005)); st != Normal {
			t.Fatalf("should not trip before threshold, violation %d", i+1)
		}
	}
	if st := b.Check(snap(55_000, 55_005)); st != Halted {
		t.Fatalf("expected Halted after third consecutive violation")
	}
}

func TestFlashCrashResetClearsStreak(t *testing.T) {
	t.Parallel()
	b := NewFlashCrashBreaker(defaultCfg())
	b.Check(snap(50_000, 50_005))
	b.Check(snap(55_000, 55_005))
	b.Check(snap(50_010, 50_015)) // clean snapshot resets streak
	b.Check(snap(55_000, 55_005))
	if st := b.Check(snap(55_000, 55_005)); st != Normal {
		t.Fatalf("streak should have reset after the clean snapshot, got %v", st)
	}
}

func TestFlashCrashRequiresExplicitReset(t *testing.T) {
	t.Parallel()
	b := NewFlashCrashBreaker(defaultCfg())
	b.Check(snap(50_000, 50_005))
	for i := 0; i < 3; i++ {
		b.Check(snap(55_000, 55_005))
	}
	if b.State() != Halted {
		t.Fatalf("expected Halted")
	}
	if st := b.Check(snap(50_000, 50_005)); st != Halted {
		t.Fatalf("Halted must not auto-recover on a clean snapshot")
	}
	b.Reset()
	if b.State() != Normal {
		t.Fatalf("expected Normal after explicit Reset")
	}
}

func TestFlashCrashWideSpreadTrips(t *testing.T) {
	t.Parallel()
	b := NewFlashCrashBreaker(defaultCfg())
	wide := snap(50_000, 50_500) // 100bps spread > 50bps max
	for i := 0; i < 3; i++ {
		b.Check(wide)
	}
	if b.State() != Halted {
		t.Fatalf("expected Halted from sustained wide spread")
	}
}

func TestFlashCrashLowLiquidityTrips(t *testing.T) {
	t.Parallel()
	b := NewFlashCrashBreaker(defaultCfg())
	thin := &core.MarketSnapshot{BestBidPrice: scale(50_000), BestAskPrice: scale(50_005), BestBidSize: 0, BestAskSize: 0}
	for i := 0; i < 3; i++ {
		b.Check(thin)
	}
	if b.State() != Halted {
		t.Fatalf("expected Halted from zero liquidity")
	}
}
