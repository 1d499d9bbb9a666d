package executor

import (
	"sync/atomic"

	"github.com/bogengine/mm-core/internal/core"
	"github.com/bogengine/mm-core/internal/position"
	"github.com/bogengine/mm-core/pkg/fixedpoint"
)

// SimulatedInstant implements spec §4.8.1: every signal translates into
// one or two synthetic fills at the quoted price, emitted immediately.
// Because fills are instant, there is never a resting order, so
// OpenExposure is always zero right after Execute returns.
type SimulatedInstant struct {
	fillQueue *FillQueue
	feeBps    uint64
	orderIDs  *core.OrderIDGenerator
	now       func() int64

	openBuy  atomic.Uint64
	openSell atomic.Uint64
}

// NewSimulatedInstant builds an instant-fill executor. feeBps is a
// deterministic maker fee applied to notional on every fill (0 disables
// fees entirely).
func NewSimulatedInstant(fillQueueCapacity int, feeBps uint64, now func() int64) *SimulatedInstant {
	return &SimulatedInstant{
		fillQueue: NewFillQueue(fillQueueCapacity),
		feeBps:    feeBps,
		orderIDs:  core.NewOrderIDGenerator(),
		now:       now,
	}
}

func (e *SimulatedInstant) Execute(sig core.Signal, pos *position.Position) error {
	e.openBuy.Store(0)
	e.openSell.Store(0)

	switch sig.Action {
	case core.NoAction, core.CancelAll:
		return nil
	case core.QuoteBoth:
		e.emit(core.Buy, sig.BidPrice, sig.Size)
		e.emit(core.Sell, sig.AskPrice, sig.Size)
	case core.QuoteBid:
		e.emit(core.Buy, sig.BidPrice, sig.Size)
	case core.QuoteAsk:
		e.emit(core.Sell, sig.AskPrice, sig.Size)
	case core.TakePosition:
		price := sig.BidPrice
		if sig.Side == core.Sell {
			price = sig.AskPrice
		}
		e.emit(sig.Side, price, sig.Size)
	}
	return nil
}

func (e *SimulatedInstant) emit(side core.Side, price, size uint64) {
	if price == 0 || size == 0 {
		return
	}
	notional, err := fixedpoint.Mul128(int64(price), int64(size))
	if err != nil {
		return
	}
	fee, err := fixedpoint.MulDivChecked(notional, int64(e.feeBps), 10_000)
	if err != nil {
		fee = 0
	}
	f := core.Fill{
		OrderID:     e.orderIDs.Next(),
		Side:        side,
		Price:       price,
		Size:        size,
		TimestampNs: e.now(),
		Fee:         fee,
	}
	e.fillQueue.Push(f)
}

func (e *SimulatedInstant) DrainFills() []core.Fill { return e.fillQueue.Drain() }

func (e *SimulatedInstant) OpenExposure() (uint64, uint64) {
	return e.openBuy.Load(), e.openSell.Load()
}

func (e *SimulatedInstant) CancelAll() {
	e.openBuy.Store(0)
	e.openSell.Store(0)
}

func (e *SimulatedInstant) DroppedFillCount() uint64 { return e.fillQueue.DroppedCount() }

// OutstandingOrders is always zero: instant fills never leave a resting order.
func (e *SimulatedInstant) OutstandingOrders() int { return 0 }
