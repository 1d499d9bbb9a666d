package strategy

import (
	"github.com/bogengine/mm-core/internal/core"
	"github.com/bogengine/mm-core/internal/position"
	"github.com/bogengine/mm-core/pkg/fixedpoint"
)

// SimpleSpread quotes a fixed spread around the market mid, declines to
// quote when the observed market spread is below MinSpreadBps, and
// collapses to one side when the inventory cap is reached (spec §4.7).
// SpreadBps and MinSpreadBps are whole basis points.
type SimpleSpread struct {
	SpreadBps    uint64
	MinSpreadBps uint64
	OrderSize    uint64
	MaxPosition  int64
}

func (s SimpleSpread) Calculate(snap *core.MarketSnapshot, pos *position.Position) (core.Signal, bool) {
	bid, ask := snap.BestBidPrice, snap.BestAskPrice
	if bid == 0 || ask == 0 || ask <= bid {
		return core.Signal{}, false
	}
	if spreadBps(bid, ask) < s.MinSpreadBps {
		return core.Signal{}, false
	}

	mid := midOf(bid, ask)
	half, err := fixedpoint.MulDivChecked(int64(mid), int64(s.SpreadBps), 20_000)
	if err != nil || half < 0 {
		return core.Signal{}, false
	}

	ourBid := mid - uint64(half)
	ourAsk := mid + uint64(half)

	canBuy, canSell := unwindSide(pos.GetQuantity(), s.MaxPosition)
	switch {
	case canBuy && canSell:
		return core.QuoteBothSignal(ourBid, ourAsk, s.OrderSize), true
	case canSell:
		return core.QuoteAskSignal(ourAsk, s.OrderSize), true
	case canBuy:
		return core.QuoteBidSignal(ourBid, s.OrderSize), true
	default:
		return core.Signal{}, false
	}
}
