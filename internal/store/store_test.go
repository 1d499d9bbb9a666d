package store

import (
	"testing"

	"github.com/bogengine/mm-core/internal/position"
)

func fixedNow() int64 { return 1_700_000_000_000 }

func TestSaveAndLoadPosition(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()

	s, err := Open(dir, fixedNow)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer s.Close()

	snap := position.Snapshot{
		Quantity:    10_500_000_000,
		EntryPrice:  550_000_000,
		RealizedPnl: 1_230_000_000,
		DailyPnl:    1_230_000_000,
		PeakPnl:     1_230_000_000,
		TradeCount:  3,
	}

	if err := s.SavePosition(1_000_042, snap); err != nil {
		t.Fatalf("SavePosition: %v", err)
	}

	loaded, err := s.LoadPosition(1_000_042)
	if err != nil {
		t.Fatalf("LoadPosition: %v", err)
	}
	if loaded == nil {
		t.Fatal("LoadPosition returned nil")
	}
	if *loaded != snap {
		t.Errorf("loaded snapshot = %+v, want %+v", *loaded, snap)
	}
}

func TestLoadPositionMissing(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()

	s, err := Open(dir, fixedNow)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer s.Close()

	loaded, err := s.LoadPosition(999)
	if err != nil {
		t.Fatalf("LoadPosition: %v", err)
	}
	if loaded != nil {
		t.Errorf("expected nil for missing position, got %+v", loaded)
	}
}

func TestSavePositionOverwrites(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()

	s, err := Open(dir, fixedNow)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer s.Close()

	_ = s.SavePosition(1, position.Snapshot{Quantity: 10})
	_ = s.SavePosition(1, position.Snapshot{Quantity: 20})

	loaded, err := s.LoadPosition(1)
	if err != nil {
		t.Fatalf("LoadPosition: %v", err)
	}
	if loaded.Quantity != 20 {
		t.Errorf("Quantity = %d, want 20 (latest save)", loaded.Quantity)
	}
}

func TestRoundTripsThroughPositionRestore(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()

	s, err := Open(dir, fixedNow)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer s.Close()

	var original position.Position
	original.RestoreFrom(position.Snapshot{Quantity: 42, EntryPrice: 100, TradeCount: 7})

	if err := s.SavePosition(1, original.ToSnapshot()); err != nil {
		t.Fatalf("SavePosition: %v", err)
	}

	loaded, err := s.LoadPosition(1)
	if err != nil {
		t.Fatalf("LoadPosition: %v", err)
	}

	var restored position.Position
	restored.RestoreFrom(*loaded)
	if restored.GetQuantity() != 42 || restored.GetEntryPrice() != 100 || restored.GetTradeCount() != 7 {
		t.Errorf("restored position mismatch: qty=%d entry=%d trades=%d",
			restored.GetQuantity(), restored.GetEntryPrice(), restored.GetTradeCount())
	}
}
