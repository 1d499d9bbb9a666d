package executor

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/bogengine/mm-core/internal/core"
	"github.com/bogengine/mm-core/internal/journal"
	"github.com/bogengine/mm-core/internal/position"
)

// VenueUpdateKind tags the outcome of a poll against a live venue (spec
// §6's venue client capability set).
type VenueUpdateKind uint8

const (
	VenueAck VenueUpdateKind = iota
	VenueFill
	VenueReject
	VenueCancelled
)

// VenueUpdate is one observed order-lifecycle event from the venue.
type VenueUpdate struct {
	Kind    VenueUpdateKind
	OrderID core.OrderID
	Fill    *core.Fill
	Reason  string
}

// VenueClient is the minimal capability set spec §6 requires of a
// production venue integration. Implementations are external; this
// package only consumes the interface.
type VenueClient interface {
	Submit(ctx context.Context, order core.Order) error
	Cancel(ctx context.Context, id core.OrderID) error
	PollUpdates(ctx context.Context) ([]VenueUpdate, error)
}

// Production wraps a VenueClient with journaled durability (spec
// §4.8.3): every submit/ack/fill/cancel is appended to the journal
// before (submit) or as a consequence of (ack/fill/cancel) the venue
// call, so a crash mid-flight can be replayed on restart via
// journal.Recover.
type Production struct {
	client  VenueClient
	journal *journal.AsyncJournal
	orderIDs *core.OrderIDGenerator
	fillQueue *FillQueue
	nowMs   func() int64

	mu     sync.Mutex
	orders map[string]core.Order

	openBuy  atomic.Uint64
	openSell atomic.Uint64
}

// NewProduction builds a journaled production executor. recovered, if
// non-nil, seeds the local order table from a prior journal.Recover call
// so in-flight orders survive a restart.
func NewProduction(client VenueClient, j *journal.AsyncJournal, fillQueueCapacity int, nowMs func() int64, recovered *journal.RecoveredState) *Production {
	orders := make(map[string]core.Order)
	if recovered != nil {
		for id, o := range recovered.Orders {
			if !o.Status.Terminal() {
				orders[id] = o
			}
		}
	}
	return &Production{
		client:    client,
		journal:   j,
		orderIDs:  core.NewOrderIDGenerator(),
		fillQueue: NewFillQueue(fillQueueCapacity),
		nowMs:     nowMs,
		orders:    orders,
	}
}

func (e *Production) Execute(sig core.Signal, pos *position.Position) error {
	ctx := context.Background()
	switch sig.Action {
	case core.NoAction:
		return nil
	case core.CancelAll:
		e.CancelAll()
		return nil
	case core.QuoteBoth:
		if err := e.submit(ctx, core.Buy, sig.BidPrice, sig.Size); err != nil {
			return err
		}
		return e.submit(ctx, core.Sell, sig.AskPrice, sig.Size)
	case core.QuoteBid:
		return e.submit(ctx, core.Buy, sig.BidPrice, sig.Size)
	case core.QuoteAsk:
		return e.submit(ctx, core.Sell, sig.AskPrice, sig.Size)
	case core.TakePosition:
		price := sig.BidPrice
		if sig.Side == core.Sell {
			price = sig.AskPrice
		}
		return e.submit(ctx, sig.Side, price, sig.Size)
	}
	return nil
}

func (e *Production) submit(ctx context.Context, side core.Side, price, size uint64) error {
	order := core.Order{
		ID:            e.orderIDs.Next(),
		Side:          side,
		Type:          core.Limit,
		Price:         price,
		Size:          size,
		TimeInForce:   core.GTC,
		Status:        core.Pending,
		CreatedAtUnix: e.nowMs(),
	}
	e.journal.Write(core.SubmitEvent(order), e.nowMs())

	if err := e.client.Submit(ctx, order); err != nil {
		return fmt.Errorf("executor: submit order: %w", err)
	}

	order.Status = core.Open
	e.journal.Write(core.AckEvent(order.ID), e.nowMs())

	e.mu.Lock()
	e.orders[order.ID.String()] = order
	e.mu.Unlock()

	exposure := &e.openBuy
	if side == core.Sell {
		exposure = &e.openSell
	}
	exposure.Add(size)
	return nil
}

// DrainFills polls the venue for updates, journals and tracks each, and
// returns every fill observed since the last call.
func (e *Production) DrainFills() []core.Fill {
	ctx := context.Background()
	updates, err := e.client.PollUpdates(ctx)
	if err != nil {
		return e.fillQueue.Drain()
	}

	for _, u := range updates {
		switch u.Kind {
		case VenueFill:
			if u.Fill == nil {
				continue
			}
			e.journal.Write(core.FillEvent(*u.Fill), e.nowMs())
			e.fillQueue.Push(*u.Fill)
			e.reduceExposure(*u.Fill)
			e.markFilled(u.OrderID, *u.Fill)
		case VenueCancelled:
			e.journal.Write(core.CancelEvent(u.OrderID), e.nowMs())
			e.removeOrder(u.OrderID)
		case VenueReject, VenueAck:
			// Ack already recorded at submit time; reject requires no
			// journal entry of its own beyond the submit that failed.
		}
	}
	return e.fillQueue.Drain()
}

func (e *Production) reduceExposure(f core.Fill) {
	exposure := &e.openBuy
	if f.Side == core.Sell {
		exposure = &e.openSell
	}
	exposure.Add(^(f.Size - 1))
}

func (e *Production) markFilled(id core.OrderID, f core.Fill) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if o, ok := e.orders[id.String()]; ok {
		o.FilledSize += f.Size
		if o.FilledSize >= o.Size {
			o.Status = core.Filled
			delete(e.orders, id.String())
		} else {
			o.Status = core.PartiallyFilled
			e.orders[id.String()] = o
		}
	}
}

func (e *Production) removeOrder(id core.OrderID) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.orders, id.String())
}

func (e *Production) OpenExposure() (uint64, uint64) {
	return e.openBuy.Load(), e.openSell.Load()
}

// CancelAll cancels every tracked open order via the venue client.
func (e *Production) CancelAll() {
	ctx := context.Background()
	e.mu.Lock()
	ids := make([]core.OrderID, 0, len(e.orders))
	for _, o := range e.orders {
		ids = append(ids, o.ID)
	}
	e.mu.Unlock()

	for _, id := range ids {
		if err := e.client.Cancel(ctx, id); err != nil {
			continue
		}
		e.journal.Write(core.CancelEvent(id), e.nowMs())
		e.removeOrder(id)
	}
	e.openBuy.Store(0)
	e.openSell.Store(0)
}

func (e *Production) DroppedFillCount() uint64 { return e.fillQueue.DroppedCount() }

func (e *Production) OutstandingOrders() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.orders)
}
