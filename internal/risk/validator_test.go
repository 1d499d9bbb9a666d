package risk

import (
	"errors"
	"testing"

	"github.com/bogengine/mm-core/internal/core"
	"github.com/bogengine/mm-core/internal/position"
	"github.com/bogengine/mm-core/pkg/fixedpoint"
)

func fp(x float64) int64 {
	v, _ := fixedpoint.FromF64Checked(x)
	return v
}

func testLimits() Limits {
	return Limits{
		MaxPosition:          fp(1000),
		MaxShort:             fp(1000),
		MaxOrderSize:         uint64(fp(500)),
		MinOrderSize:         uint64(fp(0.0001)),
		MaxOutstandingOrders: 10,
		MaxDailyLoss:         fp(5000),
		MaxDrawdownPct:       0.20,
	}
}

func TestValidateSignalRejectsTooSmall(t *testing.T) {
	t.Parallel()
	v := NewValidator(testLimits())
	var pos position.Position
	sig := core.QuoteBothSignal(100, 110, 1)
	err := v.ValidateSignal(sig, &pos, 0, 0, 0)
	var ve *ViolationError
	if !errors.As(err, &ve) || ve.Kind != OrderSizeTooSmall {
		t.Fatalf("expected OrderSizeTooSmall, got %v", err)
	}
}

func TestValidateSignalRejectsPositionLimit(t *testing.T) {
	t.Parallel()
	limits := testLimits()
	v := NewValidator(limits)
	var pos position.Position
	must(t, pos.ProcessFill(core.Fill{Side: core.Buy, Price: uint64(fp(100)), Size: uint64(limits.MaxPosition)}))

	sig := core.QuoteBidSignal(100, uint64(fp(1)))
	err := v.ValidateSignal(sig, &pos, 0, 0, 0)
	var ve *ViolationError
	if !errors.As(err, &ve) || ve.Kind != PositionLimitExceeded {
		t.Fatalf("expected PositionLimitExceeded, got %v", err)
	}
}

func TestValidateSignalAcceptsWithinLimits(t *testing.T) {
	t.Parallel()
	v := NewValidator(testLimits())
	var pos position.Position
	sig := core.QuoteBothSignal(uint64(fp(100)), uint64(fp(101)), uint64(fp(10)))
	if err := v.ValidateSignal(sig, &pos, 0, 0, 0); err != nil {
		t.Fatalf("expected acceptance, got %v", err)
	}
}

func TestUpdatePositionDrawdownHalt(t *testing.T) {
	t.Parallel()
	limits := testLimits()
	limits.MaxDrawdownPct = 0.05
	v := NewValidator(limits)
	var pos position.Position

	// Build a peak, then realize a loss exceeding 5% drawdown from peak.
	must(t, pos.ProcessFill(core.Fill{Side: core.Buy, Price: uint64(fp(100)), Size: uint64(fp(10))}))
	pos.MaybeUpdatePeak(uint64(fp(200))) // large unrealized gain sets a high peak

	halt, err := v.UpdatePosition(core.Fill{Side: core.Sell, Price: uint64(fp(100)), Size: uint64(fp(10))}, &pos, uint64(fp(100)))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if halt == nil || halt.Kind != DrawdownLimitBreached {
		t.Fatalf("expected DrawdownLimitBreached halt, got %v", halt)
	}
}

func TestUpdatePositionOkWithinLimits(t *testing.T) {
	t.Parallel()
	v := NewValidator(testLimits())
	var pos position.Position
	halt, err := v.UpdatePosition(core.Fill{Side: core.Buy, Price: uint64(fp(100)), Size: uint64(fp(1))}, &pos, uint64(fp(100)))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if halt != nil {
		t.Fatalf("expected no halt, got %v", halt)
	}
}

func must(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
