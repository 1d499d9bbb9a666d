package feed

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/bogengine/mm-core/internal/core"
)

// Replay implements engine.Feed by reading line-delimited JSON snapshot
// fixtures, for the scenario tests of spec §8 and cmd/simulate
// --replay-file. Grounded on original_source's detect_replay_end concept
// (SPEC_FULL §9 EXPANSION): once TryRecv first finds the file exhausted,
// IsExhausted starts reporting true after EndTimeout has elapsed, which
// cmd/simulate polls to decide when to exit cleanly (code 0) rather than
// spinning forever.
type Replay struct {
	snapshots []core.MarketSnapshot
	i         int

	mu           sync.Mutex
	exhaustedAt  time.Time
	fullRequests int
	now          func() time.Time

	// EndTimeout is how long after exhaustion IsExhausted must report
	// true. Zero means "report immediately".
	EndTimeout time.Duration
}

// NewReplay parses r as line-delimited JSON wireSnapshot records.
func NewReplay(r io.Reader) (*Replay, error) {
	rep := &Replay{now: time.Now}
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 4*1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		raw := scanner.Bytes()
		if len(raw) == 0 {
			continue
		}
		var wire wireSnapshot
		if err := json.Unmarshal(raw, &wire); err != nil {
			return nil, fmt.Errorf("feed: replay line %d: %w", line, err)
		}
		rep.snapshots = append(rep.snapshots, wire.toSnapshot(uint64(line)))
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("feed: replay scan: %w", err)
	}
	return rep, nil
}

// TryRecv returns the next fixture snapshot in file order, or false once
// the file is exhausted.
func (r *Replay) TryRecv() (core.MarketSnapshot, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.i >= len(r.snapshots) {
		if r.exhaustedAt.IsZero() {
			r.exhaustedAt = r.now()
		}
		return core.MarketSnapshot{}, false
	}
	snap := r.snapshots[r.i]
	r.i++
	return snap, true
}

// RequestFullSnapshot only counts the request for replay fixtures: a
// fixture file is already a complete, ordered record, so nothing is
// resynced and delivery is unaffected.
func (r *Replay) RequestFullSnapshot() {
	r.mu.Lock()
	r.fullRequests++
	r.mu.Unlock()
}

// IsExhausted reports whether the fixture has been fully consumed and
// EndTimeout has elapsed since, the signal cmd/simulate polls to exit
// cleanly once a replay scenario completes.
func (r *Replay) IsExhausted() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.exhaustedAt.IsZero() {
		return false
	}
	return r.now().Sub(r.exhaustedAt) >= r.EndTimeout
}

// Remaining returns how many fixture snapshots have not yet been delivered.
func (r *Replay) Remaining() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.snapshots) - r.i
}
