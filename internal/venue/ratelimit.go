package venue

import (
	"context"
	"sync"
	"time"
)

// TokenBucket is a continuously-refilling token-bucket rate limiter,
// adapted from the teacher's internal/exchange/ratelimit.go: callers
// block in Wait until a token is available or ctx is cancelled, refilled
// smoothly rather than in discrete windows to avoid bursting into a
// venue's hard per-window limit.
type TokenBucket struct {
	mu       sync.Mutex
	tokens   float64
	capacity float64
	rate     float64
	lastTime time.Time
	now      func() time.Time
}

// NewTokenBucket creates a rate limiter with the given capacity and refill rate.
func NewTokenBucket(capacity, ratePerSecond float64) *TokenBucket {
	return &TokenBucket{tokens: capacity, capacity: capacity, rate: ratePerSecond, lastTime: time.Now(), now: time.Now}
}

// Wait blocks until a token is available or ctx is cancelled.
func (tb *TokenBucket) Wait(ctx context.Context) error {
	for {
		tb.mu.Lock()
		now := tb.now()
		elapsed := now.Sub(tb.lastTime).Seconds()
		tb.tokens += elapsed * tb.rate
		if tb.tokens > tb.capacity {
			tb.tokens = tb.capacity
		}
		tb.lastTime = now

		if tb.tokens >= 1 {
			tb.tokens--
			tb.mu.Unlock()
			return nil
		}

		wait := time.Duration((1 - tb.tokens) / tb.rate * float64(time.Second))
		tb.mu.Unlock()

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}
}

// RateLimiter groups token buckets by venue API category, matching the
// three-category split (submit/cancel/read) of the teacher's RateLimiter.
type RateLimiter struct {
	Submit *TokenBucket
	Cancel *TokenBucket
	Poll   *TokenBucket
}

// NewRateLimiter constructs default per-category limiters. The
// magnitudes are venue-agnostic placeholders (spec §6 treats the venue
// client as external/swappable); a real deployment would tune these to
// the target venue's published limits the way the teacher's
// NewRateLimiter does for Polymarket.
func NewRateLimiter() *RateLimiter {
	return &RateLimiter{
		Submit: NewTokenBucket(100, 20),
		Cancel: NewTokenBucket(100, 20),
		Poll:   NewTokenBucket(50, 10),
	}
}
