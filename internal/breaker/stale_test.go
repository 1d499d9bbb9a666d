package breaker

import (
	"testing"
	"time"
)

func TestStaleInitialStateFresh(t *testing.T) {
	t.Parallel()
	b := NewStaleBreaker(DefaultStaleConfig())
	if !b.IsFresh() {
		t.Fatalf("expected initial state Fresh")
	}
}

func TestStaleOfflineRequiresBothConditions(t *testing.T) {
	t.Parallel()
	tick := time.Unix(0, 0)
	cfg := StaleConfig{MaxAge: 50 * time.Millisecond, MaxEmptyPolls: 5}
	b := NewStaleBreaker(cfg)
	b.now = func() time.Time { return tick }
	b.lastUpdate = tick

	tick = tick.Add(100 * time.Millisecond)
	for i := 0; i < 6; i++ {
		b.MarkEmptyPoll()
	}
	if !b.IsOffline() {
		t.Fatalf("expected Offline when both age and poll-count thresholds exceeded")
	}

	b.MarkFresh()
	if !b.IsFresh() {
		t.Fatalf("expected Fresh after MarkFresh")
	}
}

func TestStaleEmptyPollsAloneDoNotCauseStale(t *testing.T) {
	t.Parallel()
	tick := time.Unix(0, 0)
	cfg := StaleConfig{MaxAge: 5 * time.Second, MaxEmptyPolls: 10}
	b := NewStaleBreaker(cfg)
	b.now = func() time.Time { return tick }
	b.MarkFresh()

	for i := 0; i < 15; i++ {
		b.MarkEmptyPoll()
	}
	if !b.IsFresh() {
		t.Fatalf("many empty polls with fresh data age should remain Fresh")
	}
}

func TestStaleDetectionByAgeAlone(t *testing.T) {
	t.Parallel()
	tick := time.Unix(0, 0)
	cfg := StaleConfig{MaxAge: 100 * time.Millisecond, MaxEmptyPolls: 10000}
	b := NewStaleBreaker(cfg)
	b.now = func() time.Time { return tick }
	b.lastUpdate = tick

	tick = tick.Add(150 * time.Millisecond)
	b.MarkEmptyPoll()

	if !b.IsStale() {
		t.Fatalf("expected Stale once age exceeds MaxAge regardless of poll count")
	}
}

func TestStaleReset(t *testing.T) {
	t.Parallel()
	tick := time.Unix(0, 0)
	cfg := StaleConfig{MaxAge: 50 * time.Millisecond, MaxEmptyPolls: 10}
	b := NewStaleBreaker(cfg)
	b.now = func() time.Time { return tick }
	b.lastUpdate = tick
	tick = tick.Add(100 * time.Millisecond)
	for i := 0; i < 11; i++ {
		b.MarkEmptyPoll()
	}
	if !b.IsOffline() {
		t.Fatalf("expected Offline before reset")
	}
	b.Reset()
	if !b.IsFresh() {
		t.Fatalf("expected Fresh after Reset")
	}
}
