// Package feed implements the engine.Feed contract of spec §4.9/§4.11/§6:
// a non-blocking TryRecv plus a RequestFullSnapshot hint for gap
// recovery. Two concrete sources live here — a WebSocket-backed live
// feed (ws.go) grounded on the teacher's internal/exchange/ws.go
// reconnect-with-backoff WSFeed, and a line-delimited-JSON replay source
// (replay.go) for the scenario tests of spec §8 and cmd/simulate
// --replay-file, grounded on original_source's detect_replay_end
// concept (SPEC_FULL §9).
package feed

import "github.com/bogengine/mm-core/internal/core"

// wireSnapshot is the JSON wire shape both sources decode: a venue's
// actual message format is external and swappable (spec §6), so this
// package defines the minimal shape a venue adapter must produce rather
// than any one venue's native protocol.
type wireSnapshot struct {
	MarketID        uint64   `json:"market_id"`
	Sequence        uint64   `json:"sequence"`
	ExchangeTSNanos uint64   `json:"exchange_ts_nanos"`
	BestBidPrice    uint64   `json:"best_bid_price"`
	BestBidSize     uint64   `json:"best_bid_size"`
	BestAskPrice    uint64   `json:"best_ask_price"`
	BestAskSize     uint64   `json:"best_ask_size"`
	BidPrices       []uint64 `json:"bid_prices,omitempty"`
	BidSizes        []uint64 `json:"bid_sizes,omitempty"`
	AskPrices       []uint64 `json:"ask_prices,omitempty"`
	AskSizes        []uint64 `json:"ask_sizes,omitempty"`
	IsFull          bool     `json:"is_full"`
	DexType         uint8    `json:"dex_type"`
}

// toSnapshot converts the wire shape into the engine's internal
// MarketSnapshot, stamping LocalRecvNanos at the given arrival time.
func (w wireSnapshot) toSnapshot(localRecvNanos uint64) core.MarketSnapshot {
	snap := core.MarketSnapshot{
		MarketID:        w.MarketID,
		Sequence:        w.Sequence,
		ExchangeTSNanos: w.ExchangeTSNanos,
		LocalRecvNanos:  localRecvNanos,
		BestBidPrice:    w.BestBidPrice,
		BestBidSize:     w.BestBidSize,
		BestAskPrice:    w.BestAskPrice,
		BestAskSize:     w.BestAskSize,
		DexType:         w.DexType,
	}
	if w.IsFull {
		snap.Flags |= core.IsFullSnapshot
	}
	depth := len(w.BidPrices)
	if len(w.AskPrices) < depth {
		depth = len(w.AskPrices)
	}
	if depth > core.MaxDepth {
		depth = core.MaxDepth
	}
	for i := 0; i < depth; i++ {
		snap.BidPrices[i] = w.BidPrices[i]
		snap.AskPrices[i] = w.AskPrices[i]
		if i < len(w.BidSizes) {
			snap.BidSizes[i] = w.BidSizes[i]
		}
		if i < len(w.AskSizes) {
			snap.AskSizes[i] = w.AskSizes[i]
		}
	}
	snap.Depth = uint8(depth)
	return snap
}
