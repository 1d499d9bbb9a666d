package executor

import (
	"testing"

	"github.com/bogengine/mm-core/internal/core"
)

func TestSimulatedRealisticProducesSlippageAgainstTaker(t *testing.T) {
	t.Parallel()
	e := NewSimulatedRealistic(64, Realistic, 0, 0, 42, fixedNow, nil)
	e.rng.Seed(1) // deterministic: first sample highly likely to clear threshold across both lo/hi draws

	var filledBuy, filledSell bool
	for i := 0; i < 200 && !(filledBuy && filledSell); i++ {
		e.quote(core.Buy, 1_000_000_000, 1_000_000_000, true)
		e.quote(core.Sell, 1_000_000_000, 1_000_000_000, true)
		for _, f := range e.DrainFills() {
			if f.Side == core.Buy {
				filledBuy = true
				if f.Price <= 1_000_000_000 {
					t.Fatalf("buy fill price %d should include positive slippage above 1_000_000_000", f.Price)
				}
			} else {
				filledSell = true
				if f.Price >= 1_000_000_000 {
					t.Fatalf("sell fill price %d should include negative slippage below 1_000_000_000", f.Price)
				}
			}
		}
	}
	if !filledBuy || !filledSell {
		t.Fatal("expected at least one fill on each side across repeated sampling")
	}
}

func TestSimulatedRealisticOpenExposureAccumulatesUnfilledPortion(t *testing.T) {
	t.Parallel()
	e := NewSimulatedRealistic(64, Conservative, 0, 0, 7, fixedNow, nil)

	e.quote(core.Buy, 1_000_000_000, 1_000_000_000, false)
	buy, _ := e.OpenExposure()
	if buy == 0 {
		t.Fatal("expected some open buy exposure after a single quote")
	}

	e.CancelAll()
	buy, sell := e.OpenExposure()
	if buy != 0 || sell != 0 {
		t.Fatalf("expected exposure cleared after CancelAll, got (%d, %d)", buy, sell)
	}
}

func TestSimulatedRealisticNoActionEmitsNothing(t *testing.T) {
	t.Parallel()
	e := NewSimulatedRealistic(64, Realistic, 0, 0, 3, fixedNow, nil)
	if err := e.Execute(core.NoActionSignal(), nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if fills := e.DrainFills(); fills != nil {
		t.Fatalf("expected no fills, got %v", fills)
	}
}
