package core

// SignalAction is the sole vocabulary by which a strategy requests
// downstream action; the engine executes nothing else (spec §3).
type SignalAction uint8

const (
	NoAction SignalAction = iota
	QuoteBoth
	QuoteBid
	QuoteAsk
	CancelAll
	TakePosition
)

func (a SignalAction) String() string {
	switch a {
	case NoAction:
		return "NoAction"
	case QuoteBoth:
		return "QuoteBoth"
	case QuoteBid:
		return "QuoteBid"
	case QuoteAsk:
		return "QuoteAsk"
	case CancelAll:
		return "CancelAll"
	case TakePosition:
		return "TakePosition"
	default:
		return "Unknown"
	}
}

// Side is an order side.
type Side uint8

const (
	Buy Side = iota
	Sell
)

func (s Side) String() string {
	if s == Sell {
		return "sell"
	}
	return "buy"
}

// Signal is the engine's 64-byte, cache-line-aligned trading decision
// record (spec §3). Go has no `#[repr(align(64))]`; the trailing Padding
// array pads the struct out to exactly 64 bytes on amd64/arm64 where
// uint64 fields are naturally 8-byte aligned, which is verified by
// TestSignalSize.
type Signal struct {
	Action   SignalAction
	Side     Side
	Reserved [2]byte
	BidPrice uint64
	AskPrice uint64
	Size     uint64
	Padding  [32]byte
}

// NoActionSignal is the identity signal: no downstream call is made.
func NoActionSignal() Signal {
	return Signal{Action: NoAction}
}

// QuoteBothSignal constructs a two-sided quote.
func QuoteBothSignal(bid, ask, size uint64) Signal {
	return Signal{Action: QuoteBoth, BidPrice: bid, AskPrice: ask, Size: size}
}

// QuoteBidSignal constructs a bid-only quote.
func QuoteBidSignal(bid, size uint64) Signal {
	return Signal{Action: QuoteBid, BidPrice: bid, Size: size}
}

// QuoteAskSignal constructs an ask-only quote.
func QuoteAskSignal(ask, size uint64) Signal {
	return Signal{Action: QuoteAsk, AskPrice: ask, Size: size}
}

// CancelAllSignal requests cancellation of all resting orders.
func CancelAllSignal() Signal {
	return Signal{Action: CancelAll}
}

// RequiresAction reports whether the engine must call the executor.
func (s Signal) RequiresAction() bool {
	return s.Action != NoAction
}

// TotalSize returns the combined bid+ask size the signal would expose.
func (s Signal) TotalSize() uint64 {
	switch s.Action {
	case QuoteBoth:
		return s.Size * 2
	case QuoteBid, QuoteAsk, TakePosition:
		return s.Size
	default:
		return 0
	}
}

// NetPositionChange returns the signed inventory delta a full fill of
// this signal's side(s) would produce. QuoteBoth is delta-neutral by
// construction (equal size both sides) until one side actually fills.
func (s Signal) NetPositionChange() int64 {
	switch s.Action {
	case QuoteBid:
		return int64(s.Size)
	case QuoteAsk:
		return -int64(s.Size)
	case TakePosition:
		if s.Side == Sell {
			return -int64(s.Size)
		}
		return int64(s.Size)
	default:
		return 0
	}
}
