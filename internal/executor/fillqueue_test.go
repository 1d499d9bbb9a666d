package executor

import (
	"testing"

	"github.com/bogengine/mm-core/internal/core"
)

func TestFillQueueOverflowVisibility(t *testing.T) {
	t.Parallel()
	const n = 4
	q := NewFillQueue(n)

	for i := 0; i < n+3; i++ {
		q.Push(core.Fill{Size: uint64(i)})
	}

	if got := q.DroppedCount(); got != 3 {
		t.Fatalf("dropped count = %d, want 3", got)
	}

	drained := q.Drain()
	if len(drained) != n {
		t.Fatalf("drained %d fills, want %d", len(drained), n)
	}
	for i, f := range drained {
		if f.Size != uint64(i) {
			t.Fatalf("drained[%d].Size = %d, want %d (expected oldest-first, newest dropped)", i, f.Size, i)
		}
	}
}

func TestFillQueueDrainEmpty(t *testing.T) {
	t.Parallel()
	q := NewFillQueue(8)
	if drained := q.Drain(); drained != nil {
		t.Fatalf("expected nil drain on empty queue, got %v", drained)
	}
}

func TestFillQueueRoundTrip(t *testing.T) {
	t.Parallel()
	q := NewFillQueue(8)
	for i := 0; i < 5; i++ {
		if !q.Push(core.Fill{Size: uint64(i)}) {
			t.Fatalf("push %d should have succeeded", i)
		}
	}
	drained := q.Drain()
	if len(drained) != 5 {
		t.Fatalf("drained %d, want 5", len(drained))
	}
	if q.DroppedCount() != 0 {
		t.Fatalf("expected no drops")
	}
}
