// Package risk implements pre-trade and post-fill risk validation
// (spec §4.6). Violation message phrasing is grounded on
// original_source/bog-core/src/risk/types.rs's Display implementation
// (SPEC_FULL §4.6).
package risk

import "fmt"

// ViolationKind enumerates the risk violation categories of spec §4.6/§7.
type ViolationKind uint8

const (
	OrderSizeTooSmall ViolationKind = iota
	OrderSizeTooLarge
	PositionLimitExceeded
	ShortLimitExceeded
	TooManyOutstandingOrders
	DailyLossLimitBreached
	DrawdownLimitBreached
)

// ViolationError is a typed risk-validation failure.
type ViolationError struct {
	Kind        ViolationKind
	Size, Limit int64
	Current, Max int
	DrawdownPct, LimitPct float64
}

func (e *ViolationError) Error() string {
	switch e.Kind {
	case OrderSizeTooSmall:
		return fmt.Sprintf("order size %d is below minimum %d", e.Size, e.Limit)
	case OrderSizeTooLarge:
		return fmt.Sprintf("order size %d exceeds maximum %d", e.Size, e.Limit)
	case PositionLimitExceeded:
		return fmt.Sprintf("projected position %d would exceed limit %d", e.Size, e.Limit)
	case ShortLimitExceeded:
		return fmt.Sprintf("projected short position %d would exceed limit %d", e.Size, e.Limit)
	case TooManyOutstandingOrders:
		return fmt.Sprintf("outstanding orders %d would exceed maximum %d", e.Current, e.Max)
	case DailyLossLimitBreached:
		return fmt.Sprintf("daily pnl %d breaches loss limit %d", e.Size, e.Limit)
	case DrawdownLimitBreached:
		return fmt.Sprintf("drawdown %.2f%% breaches limit %.2f%%", e.DrawdownPct*100, e.LimitPct*100)
	default:
		return "unknown risk violation"
	}
}

// HaltReason is returned by post-fill checks that require the engine to
// cancel all orders and trip the kill switch.
type HaltReason struct {
	*ViolationError
}
