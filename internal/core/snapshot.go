package core

// MaxDepth bounds the per-side depth levels carried in a MarketSnapshot.
// Spec §3 requires depth D to be a compile-time constant in {1,2,5,10};
// Go has no array-length type parameter, so MarketSnapshot instead carries
// a fixed MaxDepth-sized array plus a Depth field naming how many leading
// entries are populated — callers configured for D=1 simply leave the
// remaining slots zeroed.
const MaxDepth = 10

// SnapshotFlags is a bitset carried on MarketSnapshot.
type SnapshotFlags uint8

// IsFullSnapshot marks a snapshot that fully replaces book state, as
// opposed to an incremental update layered on prior state.
const IsFullSnapshot SnapshotFlags = 1 << 0

func (f SnapshotFlags) Full() bool { return f&IsFullSnapshot != 0 }

// MarketSnapshot is the per-tick input record (spec §3). Fields are laid
// out largest-alignment-first to keep the struct compact; the depth
// arrays dominate its size.
type MarketSnapshot struct {
	MarketID         EncodedMarketID
	Sequence         uint64
	ExchangeTSNanos  uint64
	LocalRecvNanos   uint64
	LocalPubNanos    uint64
	BestBidPrice     uint64
	BestBidSize      uint64
	BestAskPrice     uint64
	BestAskSize      uint64
	BidPrices        [MaxDepth]uint64
	BidSizes         [MaxDepth]uint64
	AskPrices        [MaxDepth]uint64
	AskSizes         [MaxDepth]uint64
	Depth            uint8
	Flags            SnapshotFlags
	DexType          uint8
}

// Mid returns (bid+ask)/2 using uint64 arithmetic safe against overflow
// for realistic price magnitudes (prices are fixed-point at 1e9 scale and
// fit comfortably under 2^63 for any sane market).
func (s *MarketSnapshot) Mid() uint64 {
	return s.BestBidPrice/2 + s.BestAskPrice/2 + (s.BestBidPrice%2+s.BestAskPrice%2)/2
}

// SpreadBps returns (ask-bid)*10000/bid, or 0 if bid is zero.
func (s *MarketSnapshot) SpreadBps() float64 {
	if s.BestBidPrice == 0 {
		return 0
	}
	return float64(s.BestAskPrice-s.BestBidPrice) * 10_000 / float64(s.BestBidPrice)
}

// Crossed reports whether the book is unusable: zero or crossed prices.
func (s *MarketSnapshot) Crossed() bool {
	return s.BestBidPrice == 0 || s.BestAskPrice == 0 || s.BestAskPrice <= s.BestBidPrice
}

// ValidateDepthConsistency enforces spec §3's invariant that, for full
// snapshots only, every depth entry satisfies (price==0) <=> (size==0).
// Incremental snapshots may carry stale depth and are exempt (spec §9
// Open Question, resolved: depth-consistency checks run only on full
// snapshots).
func (s *MarketSnapshot) ValidateDepthConsistency() bool {
	if !s.Flags.Full() {
		return true
	}
	for i := uint8(0); i < s.Depth && i < MaxDepth; i++ {
		if (s.BidPrices[i] == 0) != (s.BidSizes[i] == 0) {
			return false
		}
		if (s.AskPrices[i] == 0) != (s.AskSizes[i] == 0) {
			return false
		}
	}
	return true
}

// DecodedMarketID splits MarketID back into (dexType, rawMarketID).
func (s *MarketSnapshot) DecodedMarketID() (uint8, uint64) {
	return DecodeMarketID(s.MarketID)
}
