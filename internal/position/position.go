// Package position implements the lock-free, cache-aligned Position
// record of spec §4.2: all mutation uses sync/atomic values, never a
// mutex. The fill-driven P&L, peak and trade-count updates are
// compare-and-swap loops; quantity, entry price, restores and the daily
// reset use plain atomic stores.
package position

import (
	"errors"
	"sync/atomic"

	"github.com/bogengine/mm-core/internal/core"
	"github.com/bogengine/mm-core/pkg/fixedpoint"
)

// ErrOverflow is returned by checked mutation paths instead of silently
// saturating, per spec §4.2/§7.
var ErrOverflow = errors.New("position: overflow")

// ErrTradeCountOverflow is the fatal u32 wraparound case from spec §4.2.
var ErrTradeCountOverflow = errors.New("position: trade count overflow")

// Position is the atomic, cache-line-sized position record. Field
// ordering groups the eight-byte atomics together; the trailing padding
// rounds the struct to a 64-byte cache line the way spec §3 specifies for
// Signal, avoiding false sharing with adjacent hot-path data.
type Position struct {
	quantity    atomic.Int64
	entryPrice  atomic.Uint64
	realizedPnl atomic.Int64
	dailyPnl    atomic.Int64
	peakPnl     atomic.Int64
	tradeCount  atomic.Uint32
	_           [20]byte // pad to 64 bytes: 5*8 + 4 + 20 = 64
}

// Snapshot is the plain-data view of a Position used at persistence and
// recovery boundaries (internal/store), where the atomic fields
// themselves cannot be marshaled directly.
type Snapshot struct {
	Quantity    int64
	EntryPrice  uint64
	RealizedPnl int64
	DailyPnl    int64
	PeakPnl     int64
	TradeCount  uint32
}

// ToSnapshot captures the current field values. Not atomic as a whole —
// a concurrent writer could interleave between individual loads — but
// the engine is documented (spec §5) as the position's sole writer, and
// snapshots are only ever taken from background threads for persistence.
func (p *Position) ToSnapshot() Snapshot {
	return Snapshot{
		Quantity:    p.quantity.Load(),
		EntryPrice:  p.entryPrice.Load(),
		RealizedPnl: p.realizedPnl.Load(),
		DailyPnl:    p.dailyPnl.Load(),
		PeakPnl:     p.peakPnl.Load(),
		TradeCount:  p.tradeCount.Load(),
	}
}

// RestoreFrom overwrites every field from a previously captured Snapshot,
// used once at startup before the hot loop begins (never concurrently
// with ProcessFill).
func (p *Position) RestoreFrom(s Snapshot) {
	p.quantity.Store(s.Quantity)
	p.entryPrice.Store(s.EntryPrice)
	p.realizedPnl.Store(s.RealizedPnl)
	p.dailyPnl.Store(s.DailyPnl)
	p.peakPnl.Store(s.PeakPnl)
	p.tradeCount.Store(s.TradeCount)
}

func (p *Position) GetQuantity() int64      { return p.quantity.Load() }
func (p *Position) GetEntryPrice() uint64   { return p.entryPrice.Load() }
func (p *Position) GetRealizedPnL() int64   { return p.realizedPnl.Load() }
func (p *Position) GetDailyPnL() int64      { return p.dailyPnl.Load() }
func (p *Position) GetPeakPnL() int64       { return p.peakPnl.Load() }
func (p *Position) GetTradeCount() uint32   { return p.tradeCount.Load() }

// GetUnrealizedPnL computes (mid - entryPrice) * quantity at the given
// mid price using 128-bit intermediate arithmetic (spec §4.2).
func (p *Position) GetUnrealizedPnL(mid uint64) int64 {
	qty := p.quantity.Load()
	if qty == 0 {
		return 0
	}
	entry := int64(p.entryPrice.Load())
	diff := int64(mid) - entry
	pnl, err := fixedpoint.Mul128(diff, qty)
	if err != nil {
		// Out-of-range intermediate: conservative clamp rather than a
		// panic on the hot path; this is a monitoring value only.
		if (diff > 0) == (qty > 0) {
			return int64(^uint64(0) >> 1)
		}
		return -int64(^uint64(0) >> 1)
	}
	return pnl
}

// MaybeUpdatePeak recomputes peak P&L against realized+unrealized at the
// current mid, per SPEC_FULL §4.2's resolution of the "peak P&L" open
// question: it is refreshed every tick, not only at fill boundaries.
func (p *Position) MaybeUpdatePeak(mid uint64) {
	total := p.realizedPnl.Load() + p.GetUnrealizedPnL(mid)
	for {
		cur := p.peakPnl.Load()
		if total <= cur {
			return
		}
		if p.peakPnl.CompareAndSwap(cur, total) {
			return
		}
	}
}

// Drawdown returns peakPnl - (realized + unrealized at mid), per the
// GLOSSARY definition.
func (p *Position) Drawdown(mid uint64) int64 {
	return p.peakPnl.Load() - (p.realizedPnl.Load() + p.GetUnrealizedPnL(mid))
}

// IsFlat, IsLong, IsShort classify the current quantity.
func (p *Position) IsFlat() bool  { return p.quantity.Load() == 0 }
func (p *Position) IsLong() bool  { return p.quantity.Load() > 0 }
func (p *Position) IsShort() bool { return p.quantity.Load() < 0 }

// ProcessFill applies a fill to the position per the rules of spec §4.2:
// weighted-average extension, full-close-then-reopen on a sign-crossing
// fill, fee deducted from realized P&L, and an overflow-checked trade
// count increment. It is not itself lock-free against concurrent callers
// — the engine is documented (spec §5) as the position's sole writer —
// but every individual field mutation remains a plain atomic store so
// concurrent *readers* never observe a torn intermediate state.
func (p *Position) ProcessFill(f core.Fill) error {
	delta := f.SignedDelta()
	oldQty := p.quantity.Load()
	newQty := oldQty + delta
	if (delta > 0 && newQty < oldQty) || (delta < 0 && newQty > oldQty) {
		return ErrOverflow
	}

	price := int64(f.Price)
	oldEntry := int64(p.entryPrice.Load())
	extending := oldQty == 0 || (oldQty > 0) == (delta > 0)

	switch {
	case oldQty == 0:
		// Opening from flat: entry price is simply the fill price.
		p.entryPrice.Store(f.Price)
		if err := p.addRealized(-f.Fee); err != nil {
			return err
		}

	case extending:
		// Extending without crossing zero: size-weighted average entry,
		// carried through 128-bit intermediate arithmetic (spec §4.2 step 3).
		oldNotional, err := fixedpoint.Mul128(oldEntry, oldQty)
		if err != nil {
			return ErrOverflow
		}
		fillNotional, err := fixedpoint.Mul128(price, delta)
		if err != nil {
			return ErrOverflow
		}
		newEntry, err := fixedpoint.DivChecked(oldNotional+fillNotional, newQty)
		if err != nil {
			return ErrOverflow
		}
		p.entryPrice.Store(uint64(newEntry))
		if err := p.addRealized(-f.Fee); err != nil {
			return err
		}

	case absI64(delta) <= absI64(oldQty):
		// Partial (or exact) reduction that does not flip sign: realize
		// P&L on the closed portion, entry price is unchanged (this is
		// not a blend and not a reopen — spec §4.2 only reprices entry on
		// extension or on a sign-crossing fill).
		closedQty := absI64(delta)
		signedClosed := closedQty
		if oldQty < 0 {
			signedClosed = -closedQty
		}
		realized, err := fixedpoint.Mul128(price-oldEntry, signedClosed)
		if err != nil {
			return ErrOverflow
		}
		if err := p.addRealized(realized - f.Fee); err != nil {
			return err
		}
		if newQty == 0 {
			p.entryPrice.Store(0)
		}

	default:
		// Sign-crossing fill (position flip): the prior position is fully
		// closed at the fill price, realizing P&L on oldQty, then a fresh
		// position of the residue opens at the fill price — never a
		// blended entry (spec §4.2 step 2).
		realized, err := fixedpoint.Mul128(price-oldEntry, oldQty)
		if err != nil {
			return ErrOverflow
		}
		if err := p.addRealized(realized - f.Fee); err != nil {
			return err
		}
		p.entryPrice.Store(f.Price)
	}

	p.quantity.Store(newQty)
	return p.incrementTradeCount()
}

func (p *Position) addRealized(delta int64) error {
	for {
		cur := p.realizedPnl.Load()
		next := cur + delta
		if (delta > 0 && next < cur) || (delta < 0 && next > cur) {
			return ErrOverflow
		}
		if p.realizedPnl.CompareAndSwap(cur, next) {
			p.addDaily(delta)
			return nil
		}
	}
}

func (p *Position) addDaily(delta int64) {
	for {
		cur := p.dailyPnl.Load()
		next := cur + delta
		if p.dailyPnl.CompareAndSwap(cur, next) {
			return
		}
	}
}

func (p *Position) incrementTradeCount() error {
	for {
		cur := p.tradeCount.Load()
		if cur == ^uint32(0) {
			return ErrTradeCountOverflow
		}
		if p.tradeCount.CompareAndSwap(cur, cur+1) {
			return nil
		}
	}
}

// ResetDaily clears DailyPnL at the start of a new trading day. It does
// not touch realized/peak P&L or quantity.
func (p *Position) ResetDaily() {
	p.dailyPnl.Store(0)
}

func absI64(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}
