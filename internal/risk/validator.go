package risk

import (
	"github.com/bogengine/mm-core/internal/core"
	"github.com/bogengine/mm-core/internal/position"
)

// Limits is the risk configuration of spec §4.6, all values fixed-point.
type Limits struct {
	MaxPosition          int64
	MaxShort             int64
	MaxOrderSize         uint64
	MinOrderSize         uint64
	MaxOutstandingOrders int
	MaxDailyLoss         int64
	MaxDrawdownPct       float64
}

// Validator implements pre-trade validation and post-fill enforcement.
type Validator struct {
	limits Limits
}

func NewValidator(limits Limits) *Validator {
	return &Validator{limits: limits}
}

// ValidateSignal is the pre-trade check of spec §4.6. openBuys/openSells
// are the executor's current open exposure.
func (v *Validator) ValidateSignal(sig core.Signal, pos *position.Position, openBuys, openSells uint64, outstandingOrders int) error {
	if sig.Action == core.NoAction || sig.Action == core.CancelAll {
		return nil
	}

	if sig.Size < v.limits.MinOrderSize {
		return &ViolationError{Kind: OrderSizeTooSmall, Size: int64(sig.Size), Limit: int64(v.limits.MinOrderSize)}
	}
	if sig.Size > v.limits.MaxOrderSize {
		return &ViolationError{Kind: OrderSizeTooLarge, Size: int64(sig.Size), Limit: int64(v.limits.MaxOrderSize)}
	}

	qty := pos.GetQuantity()

	quotesBuy := sig.Action == core.QuoteBoth || sig.Action == core.QuoteBid ||
		(sig.Action == core.TakePosition && sig.Side == core.Buy)
	quotesSell := sig.Action == core.QuoteBoth || sig.Action == core.QuoteAsk ||
		(sig.Action == core.TakePosition && sig.Side == core.Sell)

	if quotesBuy {
		projected := qty + int64(openBuys) + int64(sig.Size)
		if projected > v.limits.MaxPosition {
			return &ViolationError{Kind: PositionLimitExceeded, Size: projected, Limit: v.limits.MaxPosition}
		}
	}
	if quotesSell {
		projected := qty - int64(openSells) - int64(sig.Size)
		if -projected > v.limits.MaxShort {
			return &ViolationError{Kind: ShortLimitExceeded, Size: -projected, Limit: v.limits.MaxShort}
		}
	}

	additionalOrders := 0
	switch sig.Action {
	case core.QuoteBoth:
		additionalOrders = 2
	case core.QuoteBid, core.QuoteAsk, core.TakePosition:
		additionalOrders = 1
	}
	if outstandingOrders+additionalOrders > v.limits.MaxOutstandingOrders {
		return &ViolationError{Kind: TooManyOutstandingOrders, Current: outstandingOrders + additionalOrders, Max: v.limits.MaxOutstandingOrders}
	}

	return nil
}

// UpdatePosition applies a fill (spec §4.2 via position.ProcessFill) then
// runs the post-fill checks of spec §4.6. A non-nil *HaltReason signals
// the engine must cancel all and trip the kill switch; the underlying
// fill is still applied regardless (spec §4.6: "position limits are
// enforced after application").
func (v *Validator) UpdatePosition(fill core.Fill, pos *position.Position, mid uint64) (*HaltReason, error) {
	if err := pos.ProcessFill(fill); err != nil {
		return nil, err
	}
	pos.MaybeUpdatePeak(mid)

	qty := pos.GetQuantity()
	if qty > v.limits.MaxPosition {
		return &HaltReason{&ViolationError{Kind: PositionLimitExceeded, Size: qty, Limit: v.limits.MaxPosition}}, nil
	}
	if -qty > v.limits.MaxShort {
		return &HaltReason{&ViolationError{Kind: ShortLimitExceeded, Size: -qty, Limit: v.limits.MaxShort}}, nil
	}

	dailyPnl := pos.GetDailyPnL()
	if dailyPnl < -v.limits.MaxDailyLoss {
		return &HaltReason{&ViolationError{Kind: DailyLossLimitBreached, Size: dailyPnl, Limit: -v.limits.MaxDailyLoss}}, nil
	}

	peak := pos.GetPeakPnL()
	if peak > 0 {
		total := pos.GetRealizedPnL() + pos.GetUnrealizedPnL(mid)
		drawdownPct := float64(peak-total) / float64(peak)
		if drawdownPct > v.limits.MaxDrawdownPct {
			return &HaltReason{&ViolationError{Kind: DrawdownLimitBreached, DrawdownPct: drawdownPct, LimitPct: v.limits.MaxDrawdownPct}}, nil
		}
	}

	return nil, nil
}
