package venue

import (
	"sync"
	"time"
)

// ResilienceState is the three-state connection-resilience breaker of
// original_source's circuit_breaker_fsm.rs (SPEC_FULL §9 EXPANSION):
// distinct from the binary risk breaker of spec §4.5, this one governs
// connection/API failures and recovers automatically rather than
// requiring an operator reset.
type ResilienceState uint8

const (
	Closed ResilienceState = iota
	Open
	HalfOpen
)

func (s ResilienceState) String() string {
	switch s {
	case Closed:
		return "Closed"
	case Open:
		return "Open"
	case HalfOpen:
		return "HalfOpen"
	default:
		return "Unknown"
	}
}

// ResilienceConfig tunes the failure/recovery thresholds.
type ResilienceConfig struct {
	FailureThreshold int
	SuccessThreshold int
	OpenTimeout      time.Duration
}

// DefaultResilienceConfig matches the original's typestate breaker
// defaults: open after 5 consecutive failures, half-open after 30s,
// close again after 2 consecutive successes.
func DefaultResilienceConfig() ResilienceConfig {
	return ResilienceConfig{FailureThreshold: 5, SuccessThreshold: 2, OpenTimeout: 30 * time.Second}
}

// ResilienceBreaker wraps venue calls to short-circuit when the venue is
// unreachable, instead of every submit/cancel/poll blocking on the
// client's own retry/timeout budget during an outage.
type ResilienceBreaker struct {
	cfg ResilienceConfig
	now func() time.Time

	mu               sync.Mutex
	state            ResilienceState
	consecutiveFails int
	consecutiveOK    int
	openedAt         time.Time
}

// NewResilienceBreaker constructs a breaker starting Closed.
func NewResilienceBreaker(cfg ResilienceConfig) *ResilienceBreaker {
	return &ResilienceBreaker{cfg: cfg, state: Closed, now: time.Now}
}

// Allow reports whether a call should proceed: true in Closed, true in
// HalfOpen (a recovery probe), false in Open until OpenTimeout has
// elapsed; after that it transitions to HalfOpen and allows the call
// through as the probe.
func (b *ResilienceBreaker) Allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	switch b.state {
	case Closed, HalfOpen:
		return true
	default: // Open
		if b.now().Sub(b.openedAt) >= b.cfg.OpenTimeout {
			b.state = HalfOpen
			b.consecutiveOK = 0
			return true
		}
		return false
	}
}

// RecordSuccess reports a successful call outcome.
func (b *ResilienceBreaker) RecordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.consecutiveFails = 0
	switch b.state {
	case HalfOpen:
		b.consecutiveOK++
		if b.consecutiveOK >= b.cfg.SuccessThreshold {
			b.state = Closed
		}
	case Open:
		// Stray success racing a timeout-driven probe; ignore.
	}
}

// RecordFailure reports a failed call outcome.
func (b *ResilienceBreaker) RecordFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()
	switch b.state {
	case HalfOpen:
		b.trip()
	case Closed:
		b.consecutiveFails++
		if b.consecutiveFails >= b.cfg.FailureThreshold {
			b.trip()
		}
	}
}

func (b *ResilienceBreaker) trip() {
	b.state = Open
	b.openedAt = b.now()
	b.consecutiveFails = 0
	b.consecutiveOK = 0
}

// State returns the current state, for logging/metrics.
func (b *ResilienceBreaker) State() ResilienceState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}
