package breaker

import (
	"fmt"

	"github.com/bogengine/mm-core/internal/core"
)

// FlashCrashState is the binary breaker state of spec §4.5: unlike the
// three-state resilience pattern documented in the original sources'
// circuit_breaker_fsm module (SPEC_FULL §9), a risk-halting breaker is
// deliberately two-state and requires an explicit operator Reset — it
// must never auto-recover.
type FlashCrashState uint8

const (
	Normal FlashCrashState = iota
	Halted
)

// FlashCrashConfig configures the per-snapshot invariants.
type FlashCrashConfig struct {
	MaxSpreadBps               float64
	MinLiquidity               uint64
	MaxJumpBps                 float64
	ConsecutiveViolationsToTrip int
}

// FlashCrashBreaker trips to Halted after N consecutive violating
// snapshots; a single clean snapshot between violations resets the
// streak (spec §4.5).
type FlashCrashBreaker struct {
	cfg                 FlashCrashConfig
	state               FlashCrashState
	reason              string
	consecutiveViolation int
	havePrimed          bool
	primedMid           uint64
}

func NewFlashCrashBreaker(cfg FlashCrashConfig) *FlashCrashBreaker {
	return &FlashCrashBreaker{cfg: cfg, state: Normal}
}

// Check evaluates one snapshot. While Halted it always reports Halted
// without re-evaluating (only Reset exits Halted).
func (b *FlashCrashBreaker) Check(s *core.MarketSnapshot) FlashCrashState {
	if b.state == Halted {
		return Halted
	}

	violated := false
	if s.BestBidPrice > 0 {
		spreadBps := s.SpreadBps()
		if spreadBps > b.cfg.MaxSpreadBps {
			violated = true
		}
	}
	if s.BestBidSize < b.cfg.MinLiquidity || s.BestAskSize < b.cfg.MinLiquidity {
		violated = true
	}

	mid := s.Mid()
	if b.havePrimed && b.primedMid > 0 {
		jumpBps := absF(float64(mid)-float64(b.primedMid)) * 10_000 / float64(b.primedMid)
		if jumpBps > b.cfg.MaxJumpBps {
			violated = true
		}
	}
	if !violated {
		b.havePrimed = true
		b.primedMid = mid
	}

	if violated {
		b.consecutiveViolation++
		if b.consecutiveViolation >= b.cfg.ConsecutiveViolationsToTrip {
			b.state = Halted
			b.reason = fmt.Sprintf("flash-crash breaker tripped after %d consecutive violations", b.consecutiveViolation)
		}
	} else {
		b.consecutiveViolation = 0
	}
	return b.state
}

func (b *FlashCrashBreaker) State() FlashCrashState { return b.state }
func (b *FlashCrashBreaker) Reason() string         { return b.reason }

// Reset manually clears Halted back to Normal (spec §4.5: no auto-recovery).
func (b *FlashCrashBreaker) Reset() {
	b.state = Normal
	b.reason = ""
	b.consecutiveViolation = 0
	b.havePrimed = false
}

func absF(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}
