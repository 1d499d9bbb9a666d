// Package executor implements the three execution backends of spec
// §4.8: simulated instant, simulated realistic, and production
// (journaled, venue-backed). All three share the FillQueue contract.
package executor

import (
	"github.com/bogengine/mm-core/internal/core"
	"github.com/bogengine/mm-core/internal/position"
)

// Executor is the engine's sole downstream side-effect boundary: every
// signal the engine decides to act on flows through Execute, and every
// resulting fill flows back through DrainFills.
type Executor interface {
	Execute(sig core.Signal, pos *position.Position) error
	DrainFills() []core.Fill
	OpenExposure() (openBuy, openSell uint64)
	CancelAll()
	DroppedFillCount() uint64
	OutstandingOrders() int
}
