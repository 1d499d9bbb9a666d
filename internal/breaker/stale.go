// Package breaker implements the two circuit breakers spec §4.4/§4.5
// describe: stale-data freshness and flash-crash anomaly detection.
package breaker

import "time"

// StaleState is the stale-data breaker's FSM state (spec §4.4).
type StaleState uint8

const (
	Fresh StaleState = iota
	Stale
	Offline
)

func (s StaleState) String() string {
	switch s {
	case Fresh:
		return "Fresh"
	case Stale:
		return "Stale"
	case Offline:
		return "Offline"
	default:
		return "Unknown"
	}
}

// StaleConfig configures the freshness breaker.
type StaleConfig struct {
	MaxAge           time.Duration
	MaxEmptyPolls    uint64
}

// DefaultStaleConfig matches spec §4.4's stated defaults.
func DefaultStaleConfig() StaleConfig {
	return StaleConfig{MaxAge: 5 * time.Second, MaxEmptyPolls: 1000}
}

// StaleBreaker detects stale or offline market data. IsFresh is designed
// to be a single state comparison suitable for a hot-path check.
type StaleBreaker struct {
	cfg                  StaleConfig
	state                StaleState
	lastUpdate           time.Time
	consecutiveEmptyPolls uint64
	now                  func() time.Time
}

// NewStaleBreaker constructs a breaker starting in Fresh.
func NewStaleBreaker(cfg StaleConfig) *StaleBreaker {
	return &StaleBreaker{cfg: cfg, state: Fresh, lastUpdate: time.Now(), now: time.Now}
}

// IsFresh is the hot-path check the engine consults every tick (spec §4.9 step 1).
func (b *StaleBreaker) IsFresh() bool { return b.state == Fresh }

// MarkFresh resets the breaker to Fresh and clears counters.
func (b *StaleBreaker) MarkFresh() {
	b.lastUpdate = b.now()
	b.consecutiveEmptyPolls = 0
	b.state = Fresh
}

// MarkEmptyPoll records a poll that returned no data. Per spec §4.4,
// empty polls alone never imply staleness — only actual data age does;
// the poll counter additionally gates the Offline transition.
func (b *StaleBreaker) MarkEmptyPoll() {
	b.consecutiveEmptyPolls++
	age := b.now().Sub(b.lastUpdate)

	if b.consecutiveEmptyPolls > b.cfg.MaxEmptyPolls && age >= b.cfg.MaxAge {
		b.state = Offline
		return
	}
	if age >= b.cfg.MaxAge {
		b.state = Stale
	}
}

func (b *StaleBreaker) State() StaleState   { return b.state }
func (b *StaleBreaker) IsStale() bool       { return b.state == Stale }
func (b *StaleBreaker) IsOffline() bool     { return b.state == Offline }
func (b *StaleBreaker) TimeSinceUpdate() time.Duration { return b.now().Sub(b.lastUpdate) }

// Reset returns the breaker to Fresh, as after operator recovery.
func (b *StaleBreaker) Reset() {
	b.lastUpdate = b.now()
	b.consecutiveEmptyPolls = 0
	b.state = Fresh
}
