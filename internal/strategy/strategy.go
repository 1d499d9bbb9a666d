// Package strategy implements the quote-generation strategies of spec
// §4.7: stateless, build-time-configured structs with a single Calculate
// method. Each strategy holds only its own fixed parameters — no mutable
// runtime state, no allocation on the call path — so that a caller can
// invoke Calculate at arbitrary rates without synchronization.
package strategy

import (
	"github.com/bogengine/mm-core/internal/core"
	"github.com/bogengine/mm-core/internal/position"
)

// Strategy is the sole contract between a quoting algorithm and the
// engine. It must never allocate and must return ok=false on any invalid
// input (zero or crossed prices) rather than panicking.
type Strategy interface {
	Calculate(snapshot *core.MarketSnapshot, pos *position.Position) (sig core.Signal, ok bool)
}

// spreadBps computes (ask-bid)*10000/bid without overflowing for the
// price magnitudes this engine deals in.
func spreadBps(bid, ask uint64) uint64 {
	if bid == 0 {
		return 0
	}
	return (ask - bid) * 10_000 / bid
}

// midOf computes (bid+ask)/2 using the overflow-safe formulation of spec
// §4.7 step 3: bid + half the difference, never bid+ask directly.
func midOf(bid, ask uint64) uint64 {
	return bid + (ask-bid)/2
}

// unwindSide reports, given the current quantity and a max-position cap,
// whether the long (buy) side and/or short (sell) side may still be
// quoted. At +max_position only the sell side may be quoted (unwinding);
// at -max_position only the buy side may be quoted.
func unwindSide(qty, maxPosition int64) (canBuy, canSell bool) {
	if maxPosition <= 0 {
		return true, true
	}
	canBuy = qty < maxPosition
	canSell = qty > -maxPosition
	return canBuy, canSell
}
