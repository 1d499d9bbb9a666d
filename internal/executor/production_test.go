package executor

import (
	"context"
	"path/filepath"
	"sync"
	"testing"

	"github.com/bogengine/mm-core/internal/core"
	"github.com/bogengine/mm-core/internal/journal"
	"github.com/bogengine/mm-core/internal/position"
)

// fakeVenue is an in-memory VenueClient: Submit always acks, and queued
// updates are returned once from PollUpdates.
type fakeVenue struct {
	mu        sync.Mutex
	submitted []core.Order
	cancelled []core.OrderID
	updates   []VenueUpdate
	submitErr error
}

func (v *fakeVenue) Submit(ctx context.Context, order core.Order) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.submitErr != nil {
		return v.submitErr
	}
	v.submitted = append(v.submitted, order)
	return nil
}

func (v *fakeVenue) Cancel(ctx context.Context, id core.OrderID) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.cancelled = append(v.cancelled, id)
	return nil
}

func (v *fakeVenue) PollUpdates(ctx context.Context) ([]VenueUpdate, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	out := v.updates
	v.updates = nil
	return out, nil
}

func nowMs() int64 { return 1_000 }

func TestProductionSubmitJournalsAndTracksExposure(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "journal.log")
	j, err := journal.Open(path, nil)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer j.Close()

	venue := &fakeVenue{}
	exec := NewProduction(venue, j, 16, nowMs, nil)

	sig := core.QuoteBothSignal(100, 110, 5)
	if err := exec.Execute(sig, &position.Position{}); err != nil {
		t.Fatalf("Execute failed: %v", err)
	}

	buy, sell := exec.OpenExposure()
	if buy != 5 || sell != 5 {
		t.Fatalf("exposure = (%d, %d), want (5, 5)", buy, sell)
	}
	if len(venue.submitted) != 2 {
		t.Fatalf("expected 2 orders submitted, got %d", len(venue.submitted))
	}
}

func TestProductionDrainFillsJournalsAndReducesExposure(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "journal.log")
	j, err := journal.Open(path, nil)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer j.Close()

	venue := &fakeVenue{}
	exec := NewProduction(venue, j, 16, nowMs, nil)

	sig := core.QuoteBidSignal(100, 5)
	if err := exec.Execute(sig, &position.Position{}); err != nil {
		t.Fatalf("Execute failed: %v", err)
	}

	orderID := venue.submitted[0].ID
	venue.mu.Lock()
	venue.updates = []VenueUpdate{{
		Kind:    VenueFill,
		OrderID: orderID,
		Fill:    &core.Fill{OrderID: orderID, Side: core.Buy, Price: 100, Size: 5},
	}}
	venue.mu.Unlock()

	fills := exec.DrainFills()
	if len(fills) != 1 {
		t.Fatalf("expected 1 drained fill, got %d", len(fills))
	}

	buy, _ := exec.OpenExposure()
	if buy != 0 {
		t.Fatalf("open buy exposure = %d, want 0 after full fill", buy)
	}
}

func TestProductionRecoversInFlightOrdersAcrossRestart(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "journal.log")

	j1, err := journal.Open(path, nil)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	venue := &fakeVenue{}
	exec1 := NewProduction(venue, j1, 16, nowMs, nil)
	if err := exec1.Execute(core.QuoteBidSignal(100, 5), &position.Position{}); err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if err := j1.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	recovered, err := journal.Recover(path)
	if err != nil {
		t.Fatalf("Recover failed: %v", err)
	}
	if len(recovered.Orders) != 1 {
		t.Fatalf("expected 1 recovered order, got %d", len(recovered.Orders))
	}

	j2, err := journal.Open(path, nil)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer j2.Close()

	exec2 := NewProduction(venue, j2, 16, nowMs, recovered)
	buy, _ := exec2.OpenExposure()
	if buy != 0 {
		t.Fatalf("recovered order table does not feed OpenExposure automatically; got %d", buy)
	}
	if len(exec2.orders) != 1 {
		t.Fatalf("expected recovered order table to seed 1 in-flight order, got %d", len(exec2.orders))
	}
}

func TestProductionCancelAllJournalsAndClearsExposure(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "journal.log")
	j, err := journal.Open(path, nil)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer j.Close()

	venue := &fakeVenue{}
	exec := NewProduction(venue, j, 16, nowMs, nil)
	if err := exec.Execute(core.QuoteBothSignal(100, 110, 5), &position.Position{}); err != nil {
		t.Fatalf("Execute failed: %v", err)
	}

	exec.CancelAll()

	buy, sell := exec.OpenExposure()
	if buy != 0 || sell != 0 {
		t.Fatalf("exposure after CancelAll = (%d, %d), want (0, 0)", buy, sell)
	}
	if len(venue.cancelled) != 2 {
		t.Fatalf("expected 2 cancel calls, got %d", len(venue.cancelled))
	}
}
