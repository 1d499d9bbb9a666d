package executor

import (
	"sync/atomic"

	"github.com/bogengine/mm-core/internal/core"
)

// FillQueue is the bounded, lock-free, single-producer/single-consumer
// fill-return queue required by spec §4.8.2/§9: the executor's Execute
// call is the sole producer, the engine's drain call is the sole
// consumer. On a full queue the newest fill is dropped and
// dropped_fill_count is incremented — the queue never blocks and never
// grows.
type FillQueue struct {
	buf     []core.Fill
	mask    uint64
	head    atomic.Uint64 // next write slot, producer-owned
	tail    atomic.Uint64 // next read slot, consumer-owned
	dropped atomic.Uint64
}

// NewFillQueue allocates a queue with capacity rounded up to a power of
// two so index wrapping is a mask instead of a modulo.
func NewFillQueue(capacity int) *FillQueue {
	c := nextPowerOfTwo(capacity)
	return &FillQueue{buf: make([]core.Fill, c), mask: uint64(c - 1)}
}

// Push enqueues a fill. Must only be called by the producer. Returns
// false (and increments the dropped counter) if the queue is full.
func (q *FillQueue) Push(f core.Fill) bool {
	head := q.head.Load()
	tail := q.tail.Load()
	if head-tail >= uint64(len(q.buf)) {
		q.dropped.Add(1)
		return false
	}
	q.buf[head&q.mask] = f
	q.head.Store(head + 1)
	return true
}

// Drain removes and returns every fill currently queued, in FIFO order.
// Must only be called by the consumer.
func (q *FillQueue) Drain() []core.Fill {
	head := q.head.Load()
	tail := q.tail.Load()
	if tail == head {
		return nil
	}
	n := head - tail
	out := make([]core.Fill, n)
	for i := uint64(0); i < n; i++ {
		out[i] = q.buf[(tail+i)&q.mask]
	}
	q.tail.Store(head)
	return out
}

// DroppedCount returns the cumulative number of fills dropped for being
// enqueued against a full buffer — a data-integrity alarm per spec §9.
func (q *FillQueue) DroppedCount() uint64 {
	return q.dropped.Load()
}

func nextPowerOfTwo(n int) int {
	if n <= 1 {
		return 1
	}
	p := 1
	for p < n {
		p <<= 1
	}
	return p
}
