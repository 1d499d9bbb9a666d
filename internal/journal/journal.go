// Package journal implements the append-only execution journal of spec
// §4.8.3/§6: a dedicated writer goroutine draining a bounded channel,
// one JSON line per event, drop-on-full rather than block. Ported from
// original_source/bog-core/src/execution/journal.rs's AsyncJournal.
package journal

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bogengine/mm-core/internal/core"
)

// channelCapacity matches the original AsyncJournal's bounded
// crossbeam::channel capacity.
const channelCapacity = 4096

// AsyncJournal may be written to from multiple goroutines (spec §5: the
// journal channel is MPSC) but has exactly one writer goroutine draining
// it, so Write never blocks the hot path regardless of caller count.
type AsyncJournal struct {
	entries chan core.JournalEntry
	done    chan struct{}
	wg      sync.WaitGroup
	dropped atomic.Uint64
	logger  *slog.Logger
}

// Open creates or appends to the journal file at path and starts the
// writer goroutine. Entry timestamps are supplied by callers of Write.
func Open(path string, logger *slog.Logger) (*AsyncJournal, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("journal: open %s: %w", path, err)
	}
	if logger == nil {
		logger = slog.Default()
	}

	j := &AsyncJournal{
		entries: make(chan core.JournalEntry, channelCapacity),
		done:    make(chan struct{}),
		logger:  logger.With("component", "journal"),
	}

	j.wg.Add(1)
	go j.run(f)
	return j, nil
}

func (j *AsyncJournal) run(f *os.File) {
	defer j.wg.Done()
	defer f.Close()

	w := bufio.NewWriter(f)
	defer w.Flush()

	for {
		select {
		case entry, ok := <-j.entries:
			if !ok {
				return
			}
			if err := j.writeLine(w, entry); err != nil {
				j.logger.Error("journal write failed", "error", err)
			}
		case <-j.done:
			// Drain whatever remains buffered before exiting.
			for {
				select {
				case entry := <-j.entries:
					if err := j.writeLine(w, entry); err != nil {
						j.logger.Error("journal write failed", "error", err)
					}
				default:
					return
				}
			}
		}
	}
}

func (j *AsyncJournal) writeLine(w *bufio.Writer, entry core.JournalEntry) error {
	b, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	b = append(b, '\n')
	if _, err := w.Write(b); err != nil {
		return err
	}
	return w.Flush()
}

// Write enqueues an event for durable logging. Never blocks: on a full
// channel the event is dropped and an error is logged (spec §4.8.3).
func (j *AsyncJournal) Write(event core.JournalEvent, nowMs int64) {
	entry := core.JournalEntry{TimestampMs: nowMs, Event: event}
	select {
	case j.entries <- entry:
	default:
		j.dropped.Add(1)
		j.logger.Error("journal channel full, dropping event", "kind", event.Kind)
	}
}

// DroppedCount returns the number of events dropped for a full channel.
func (j *AsyncJournal) DroppedCount() uint64 { return j.dropped.Load() }

// Close signals the writer to flush and exit, then waits for it.
func (j *AsyncJournal) Close() error {
	close(j.done)
	j.wg.Wait()
	return nil
}

// NowMs is a small helper so callers don't each import time directly.
func NowMs() int64 { return time.Now().UnixMilli() }

// ErrCorruptLine is returned by Recover when a journal line cannot be
// parsed; recovery stops at the first such line per spec §6's "recovery
// order is strictly file order" requirement — a damaged tail must not
// silently skip ahead.
var ErrCorruptLine = errors.New("journal: corrupt line")
