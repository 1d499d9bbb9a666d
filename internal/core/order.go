package core

import (
	"fmt"
	"sync/atomic"
	"time"
)

// OrderID is the 128-bit order identifier of spec §3: the high 64 bits
// are a cached nanosecond timestamp, the low 64 bits a per-generator
// wrapping counter. Go lacks a native 128-bit integer; two uint64 limbs
// carry the same information with the same uniqueness guarantee.
type OrderID struct {
	TimestampNanos uint64
	Counter        uint64
}

func (id OrderID) String() string {
	return fmt.Sprintf("%016x-%016x", id.TimestampNanos, id.Counter)
}

// OrderIDGenerator produces unique OrderIDs on the hot thread. It caches
// the timestamp for up to RefreshInterval to amortize the clock read,
// matching spec §3's "refreshed at a bounded interval (≤1ms)" rule.
type OrderIDGenerator struct {
	refreshInterval time.Duration
	cachedNanos     uint64
	cachedAt        time.Time
	counter         uint64
	now             func() time.Time
}

// NewOrderIDGenerator builds a generator with the default ≤1ms refresh
// bound from spec §3.
func NewOrderIDGenerator() *OrderIDGenerator {
	return &OrderIDGenerator{refreshInterval: time.Millisecond, now: time.Now}
}

// Next returns a fresh, unique OrderID. It panics on counter wraparound
// within a single cached timestamp window, matching spec §3's "fatal
// invariant violation" classification — this can only happen after
// generating 2^64 orders inside one millisecond, which is unreachable in
// practice and exists purely to make the invariant explicit rather than
// silently producing a colliding ID.
func (g *OrderIDGenerator) Next() OrderID {
	now := g.now()
	if g.cachedAt.IsZero() || now.Sub(g.cachedAt) >= g.refreshInterval {
		g.cachedNanos = uint64(now.UnixNano())
		g.cachedAt = now
		g.counter = 0
	}
	prev := g.counter
	g.counter++
	if g.counter == 0 && prev != 0 {
		panic("core: OrderID counter wrapped within cached timestamp window")
	}
	return OrderID{TimestampNanos: g.cachedNanos, Counter: prev}
}

// OrderType distinguishes limit from market orders. The core only ever
// issues limit orders (strategies quote prices); market orders exist for
// completeness of the venue-client contract.
type OrderType uint8

const (
	Limit OrderType = iota
	Market
)

// TimeInForce is carried for venue-client compatibility; the core always
// issues GTC orders and relies on explicit cancellation.
type TimeInForce uint8

const (
	GTC TimeInForce = iota
	IOC
	FOK
)

// OrderStatus is the order lifecycle typestate of spec §3:
// Pending -> (Open | Rejected), Open -> (PartiallyFilled* -> Filled | Cancelled | Expired).
// Terminal states are absorbing.
type OrderStatus uint8

const (
	Pending OrderStatus = iota
	Open
	PartiallyFilled
	Filled
	Cancelled
	Rejected
	Expired
)

func (s OrderStatus) Terminal() bool {
	switch s {
	case Filled, Cancelled, Rejected, Expired:
		return true
	default:
		return false
	}
}

// Order is the executor/journal-internal order record (spec §3).
type Order struct {
	ID            OrderID
	Side          Side
	Type          OrderType
	Price         uint64
	Size          uint64
	TimeInForce   TimeInForce
	Status        OrderStatus
	FilledSize    uint64
	AvgFillPrice  uint64
	CreatedAtUnix int64
	UpdatedAtUnix int64
}

// Fill is emitted by executors and consumed by the engine in FIFO order
// (spec §3).
type Fill struct {
	OrderID     OrderID
	Side        Side
	Price       uint64
	Size        uint64
	TimestampNs int64
	Fee         int64
	FeeCurrency string
}

// SignedDelta is the signed quantity delta a fill applies to a
// position: +size for a buy, -size for a sell.
func (f Fill) SignedDelta() int64 {
	if f.Side == Sell {
		return -int64(f.Size)
	}
	return int64(f.Size)
}

// atomicOrderTable is a minimal concurrency-safe tally of open buy and
// sell size. It is not on the hot path; the executors in
// internal/executor keep their own exposure counters and do not use it.
type atomicOrderTable struct {
	openBuySize  atomic.Uint64
	openSellSize atomic.Uint64
}

func (t *atomicOrderTable) AddOpen(side Side, size uint64) {
	if side == Buy {
		t.openBuySize.Add(size)
	} else {
		t.openSellSize.Add(size)
	}
}

func (t *atomicOrderTable) Clear() {
	t.openBuySize.Store(0)
	t.openSellSize.Store(0)
}

func (t *atomicOrderTable) OpenExposure() (buy, sell uint64) {
	return t.openBuySize.Load(), t.openSellSize.Load()
}
