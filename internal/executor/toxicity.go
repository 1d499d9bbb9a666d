package executor

import (
	"math"
	"sync"
	"time"

	"github.com/bogengine/mm-core/internal/core"
)

// ToxicityMetrics summarizes adverse-selection pressure from recent
// fills: a burst of same-direction fills suggests an informed trader is
// picking off resting quotes just ahead of a price move.
type ToxicityMetrics struct {
	DirectionalImbalance float64
	FillVelocity         float64
	ToxicityScore        float64
	IsAverse             bool
}

type timestampedFill struct {
	side core.Side
	at   time.Time
}

// ToxicityTracker is a rolling-window adverse-selection detector used by
// SimulatedRealistic to widen its effective fill-probability range when
// recent flow looks informed. It is not part of the Strategy contract —
// strategies remain stateless per spec §4.7 — it lives in the executor,
// which is already the stateful, allocating side of the engine.
type ToxicityTracker struct {
	mu sync.Mutex

	window            time.Duration
	fills             []timestampedFill
	toxicityThreshold float64
	cooldown          time.Duration
	maxMultiplier     float64
	lastToxicAt       time.Time
	now               func() time.Time
}

func NewToxicityTracker(window time.Duration, toxicityThreshold float64, cooldown time.Duration, maxMultiplier float64, now func() time.Time) *ToxicityTracker {
	if now == nil {
		now = time.Now
	}
	return &ToxicityTracker{
		window:            window,
		toxicityThreshold: toxicityThreshold,
		cooldown:          cooldown,
		maxMultiplier:     maxMultiplier,
		now:               now,
	}
}

func (t *ToxicityTracker) AddFill(side core.Side) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.fills = append(t.fills, timestampedFill{side: side, at: t.now()})
	t.evictStaleLocked()
}

func (t *ToxicityTracker) evictStaleLocked() {
	if len(t.fills) == 0 {
		return
	}
	cutoff := t.now().Add(-t.window)
	idx := -1
	for i, f := range t.fills {
		if f.at.After(cutoff) {
			idx = i
			break
		}
	}
	if idx == -1 {
		t.fills = t.fills[:0]
		return
	}
	if idx > 0 {
		t.fills = t.fills[idx:]
	}
}

func (t *ToxicityTracker) Metrics() ToxicityMetrics {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.evictStaleLocked()

	if len(t.fills) == 0 {
		return ToxicityMetrics{}
	}

	var buys, sells int
	for _, f := range t.fills {
		if f.side == core.Buy {
			buys++
		} else {
			sells++
		}
	}
	total := len(t.fills)
	dominant := math.Max(float64(buys), float64(sells))
	imbalance := dominant / float64(total)

	if total < 2 {
		return ToxicityMetrics{
			DirectionalImbalance: imbalance,
			ToxicityScore:        imbalance * 0.6,
			IsAverse:             imbalance*0.6 > t.toxicityThreshold,
		}
	}

	minutes := t.window.Minutes()
	velocity := float64(total) / minutes
	velocityFactor := math.Min(velocity/3.0, 1.0)
	score := 0.6*imbalance + 0.4*velocityFactor

	return ToxicityMetrics{
		DirectionalImbalance: imbalance,
		FillVelocity:         velocity,
		ToxicityScore:        score,
		IsAverse:             score > t.toxicityThreshold,
	}
}

// ProbabilityMultiplier returns a [1.0, maxMultiplier] factor: 1.0 under
// normal flow, scaling up while toxic or within the post-toxicity
// cooldown window.
func (t *ToxicityTracker) ProbabilityMultiplier() float64 {
	metrics := t.Metrics()

	t.mu.Lock()
	if metrics.IsAverse {
		t.lastToxicAt = t.now()
	}
	inCooldown := t.now().Sub(t.lastToxicAt) < t.cooldown
	lastToxicAt := t.lastToxicAt
	t.mu.Unlock()

	if !metrics.IsAverse && !inCooldown {
		return 1.0
	}
	if metrics.ToxicityScore < t.toxicityThreshold {
		progress := math.Min(t.now().Sub(lastToxicAt).Seconds()/t.cooldown.Seconds(), 1.0)
		return 1.0 + (t.maxMultiplier-1.0)*(1.0-progress)
	}
	normalized := (metrics.ToxicityScore - t.toxicityThreshold) / (1.0 - t.toxicityThreshold)
	return 1.0 + (t.maxMultiplier-1.0)*math.Min(normalized*2.0, 1.0)
}
