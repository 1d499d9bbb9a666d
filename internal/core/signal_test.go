package core

import (
	"testing"
	"unsafe"
)

func TestSignalSize(t *testing.T) {
	t.Parallel()
	var s Signal
	if got := unsafe.Sizeof(s); got != 64 {
		t.Fatalf("Signal size = %d, want 64", got)
	}
}

func TestNoActionIsIdentity(t *testing.T) {
	t.Parallel()
	s := NoActionSignal()
	if s.RequiresAction() {
		t.Fatalf("NoAction must not require downstream action")
	}
}

func TestQuoteBothTotalSize(t *testing.T) {
	t.Parallel()
	s := QuoteBothSignal(100, 110, 5)
	if got := s.TotalSize(); got != 10 {
		t.Fatalf("TotalSize = %d, want 10", got)
	}
}

func TestNetPositionChangeBySide(t *testing.T) {
	t.Parallel()
	cases := []struct {
		s    Signal
		want int64
	}{
		{QuoteBidSignal(100, 5), 5},
		{QuoteAskSignal(110, 5), -5},
		{Signal{Action: TakePosition, Side: Buy, Size: 3}, 3},
		{Signal{Action: TakePosition, Side: Sell, Size: 3}, -3},
		{NoActionSignal(), 0},
	}
	for _, c := range cases {
		if got := c.s.NetPositionChange(); got != c.want {
			t.Fatalf("NetPositionChange(%v) = %d, want %d", c.s.Action, got, c.want)
		}
	}
}
