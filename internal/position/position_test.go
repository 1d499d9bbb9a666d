package position

import (
	"testing"

	"github.com/bogengine/mm-core/internal/core"
	"github.com/bogengine/mm-core/pkg/fixedpoint"
)

func u(x float64) uint64 {
	v, err := fixedpoint.FromF64Checked(x)
	if err != nil || v < 0 {
		panic(err)
	}
	return uint64(v)
}

func TestProcessFillOpensFromFlat(t *testing.T) {
	t.Parallel()
	var p Position
	err := p.ProcessFill(core.Fill{Side: core.Buy, Price: u(50000), Size: u(1)})
	if err != nil {
		t.Fatalf("ProcessFill: %v", err)
	}
	if p.GetQuantity() != int64(u(1)) {
		t.Fatalf("quantity = %d, want %d", p.GetQuantity(), u(1))
	}
	if p.GetEntryPrice() != u(50000) {
		t.Fatalf("entry price = %d, want %d", p.GetEntryPrice(), u(50000))
	}
}

func TestProcessFillWeightedAverageExtend(t *testing.T) {
	t.Parallel()
	var p Position
	must(t, p.ProcessFill(core.Fill{Side: core.Buy, Price: u(100), Size: u(1)}))
	must(t, p.ProcessFill(core.Fill{Side: core.Buy, Price: u(200), Size: u(1)}))
	if p.GetEntryPrice() != u(150) {
		t.Fatalf("entry price = %v, want %v", fixedpoint.ToF64(int64(p.GetEntryPrice())), 150.0)
	}
}

func TestRoundTripFillAccountingWithFees(t *testing.T) {
	t.Parallel()
	var p Position
	feeBuy := int64(u(1))
	feeSell := int64(u(2))
	must(t, p.ProcessFill(core.Fill{Side: core.Buy, Price: u(50000), Size: u(1), Fee: feeBuy}))
	must(t, p.ProcessFill(core.Fill{Side: core.Sell, Price: u(50100), Size: u(1), Fee: feeSell}))

	wantPnl := int64(u(100)) - feeBuy - feeSell
	if got := p.GetRealizedPnL(); abs64(got-wantPnl) > 10 {
		t.Fatalf("realized pnl = %d, want ~%d", got, wantPnl)
	}
	if !p.IsFlat() {
		t.Fatalf("expected flat position after round trip")
	}
}

func TestPositionFlipExactEntryNotBlended(t *testing.T) {
	t.Parallel()
	var p Position
	must(t, p.ProcessFill(core.Fill{Side: core.Buy, Price: u(100), Size: u(5)})) // long 5 @ 100
	must(t, p.ProcessFill(core.Fill{Side: core.Sell, Price: u(110), Size: u(8)})) // sell 8 -> short 3 @ 110

	if p.GetQuantity() != -int64(u(3)) {
		t.Fatalf("quantity = %d, want %d", p.GetQuantity(), -int64(u(3)))
	}
	if p.GetEntryPrice() != u(110) {
		t.Fatalf("entry price = %d, want exact fill price %d (not a blend)", p.GetEntryPrice(), u(110))
	}
	wantPnl := int64(u(10)) * 5
	if got := p.GetRealizedPnL(); abs64(got-wantPnl) > 10 {
		t.Fatalf("realized pnl = %d, want ~%d", got, wantPnl)
	}
}

func TestPartialReduceDoesNotRepriceEntry(t *testing.T) {
	t.Parallel()
	var p Position
	must(t, p.ProcessFill(core.Fill{Side: core.Buy, Price: u(100), Size: u(10)}))
	must(t, p.ProcessFill(core.Fill{Side: core.Sell, Price: u(150), Size: u(3)}))

	if p.GetQuantity() != int64(u(7)) {
		t.Fatalf("quantity = %d, want %d", p.GetQuantity(), u(7))
	}
	if p.GetEntryPrice() != u(100) {
		t.Fatalf("entry price should remain %d on partial reduce, got %d", u(100), p.GetEntryPrice())
	}
}

func TestProcessFillOverflow(t *testing.T) {
	t.Parallel()
	var p Position
	must(t, p.ProcessFill(core.Fill{Side: core.Buy, Price: 1, Size: uint64(1) << 62}))
	err := p.ProcessFill(core.Fill{Side: core.Buy, Price: 1, Size: uint64(1) << 62})
	if err != ErrOverflow {
		t.Fatalf("expected ErrOverflow, got %v", err)
	}
}

func TestMaybeUpdatePeakTracksHighWaterMark(t *testing.T) {
	t.Parallel()
	var p Position
	must(t, p.ProcessFill(core.Fill{Side: core.Buy, Price: u(100), Size: u(1)}))
	p.MaybeUpdatePeak(u(110))
	peakAt110 := p.GetPeakPnL()
	p.MaybeUpdatePeak(u(90))
	if p.GetPeakPnL() != peakAt110 {
		t.Fatalf("peak pnl should not decrease on lower mid")
	}
	p.MaybeUpdatePeak(u(200))
	if p.GetPeakPnL() <= peakAt110 {
		t.Fatalf("peak pnl should increase on higher mid")
	}
}

func must(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func abs64(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}
