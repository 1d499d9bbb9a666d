package executor

import (
	"math/rand"
	"sync/atomic"
	"time"

	"github.com/bogengine/mm-core/internal/core"
	"github.com/bogengine/mm-core/internal/position"
	"github.com/bogengine/mm-core/pkg/fixedpoint"
)

// FillAggressiveness selects the sampling range of spec §4.8.2: realistic
// markets fill more often and in larger size than conservative ones.
type FillAggressiveness uint8

const (
	Realistic FillAggressiveness = iota
	Conservative
)

func (a FillAggressiveness) bounds() (lo, hi float64) {
	if a == Conservative {
		return 0.2, 0.6
	}
	return 0.4, 0.8
}

const slippageBps = 2

// SimulatedRealistic implements spec §4.8.2: probabilistic partial
// fills, slippage against the taker, and optional emission latency to
// approximate a venue round-trip. Unlike SimulatedInstant, a quoted side
// that does not (fully) fill remains open exposure until superseded or
// cancelled.
type SimulatedRealistic struct {
	fillQueue    *FillQueue
	aggr         FillAggressiveness
	feeBps       uint64
	latency      time.Duration
	orderIDs     *core.OrderIDGenerator
	rng          *rand.Rand
	now          func() int64
	toxicity     *ToxicityTracker
	afterFunc    func(time.Duration, func())
	openBuy      atomic.Uint64
	openSell     atomic.Uint64
}

// NewSimulatedRealistic builds a realistic-fill executor. rngSeed makes
// fill sampling reproducible in tests; toxicity may be nil to disable
// flow-based probability widening.
func NewSimulatedRealistic(fillQueueCapacity int, aggr FillAggressiveness, feeBps uint64, latency time.Duration, rngSeed int64, now func() int64, toxicity *ToxicityTracker) *SimulatedRealistic {
	return &SimulatedRealistic{
		fillQueue: NewFillQueue(fillQueueCapacity),
		aggr:      aggr,
		feeBps:    feeBps,
		latency:   latency,
		orderIDs:  core.NewOrderIDGenerator(),
		rng:       rand.New(rand.NewSource(rngSeed)),
		now:       now,
		toxicity:  toxicity,
		afterFunc: scheduleAfter,
	}
}

// scheduleAfter runs f after d without blocking the caller. It exists as
// a field on SimulatedRealistic (not a direct time.AfterFunc call) so
// tests can substitute a synchronous stub and assert on fills
// immediately instead of sleeping.
func scheduleAfter(d time.Duration, f func()) { time.AfterFunc(d, f) }

func (e *SimulatedRealistic) Execute(sig core.Signal, pos *position.Position) error {
	switch sig.Action {
	case core.NoAction:
		return nil
	case core.CancelAll:
		e.CancelAll()
		return nil
	case core.QuoteBoth:
		e.quote(core.Buy, sig.BidPrice, sig.Size, false)
		e.quote(core.Sell, sig.AskPrice, sig.Size, false)
	case core.QuoteBid:
		e.quote(core.Buy, sig.BidPrice, sig.Size, false)
	case core.QuoteAsk:
		e.quote(core.Sell, sig.AskPrice, sig.Size, false)
	case core.TakePosition:
		price := sig.BidPrice
		if sig.Side == core.Sell {
			price = sig.AskPrice
		}
		e.quote(sig.Side, price, sig.Size, true)
	}
	return nil
}

// quote samples a (partial) fill for one side. Slippage is applied only
// when taker is true; resting quotes fill at the quoted price.
func (e *SimulatedRealistic) quote(side core.Side, price, size uint64, taker bool) {
	if price == 0 || size == 0 {
		return
	}
	lo, hi := e.aggr.bounds()
	if e.toxicity != nil {
		mult := e.toxicity.ProbabilityMultiplier()
		lo *= mult
		hi *= mult
		if lo > 1.0 {
			lo = 1.0
		}
		if hi > 1.0 {
			hi = 1.0
		}
	}

	p := lo + e.rng.Float64()*(hi-lo)
	ratio := lo + e.rng.Float64()*(hi-lo)

	exposure := &e.openBuy
	if side == core.Sell {
		exposure = &e.openSell
	}
	exposure.Add(size)

	if e.rng.Float64() >= p {
		return // this side does not fill this tick; stays open
	}

	filledSize := uint64(float64(size) * ratio)
	if filledSize == 0 {
		return
	}
	exposure.Add(^(filledSize - 1)) // atomic subtract via two's complement

	fillPrice := int64(price)
	if taker {
		if slipped, err := fixedpoint.MulDivChecked(int64(price), 10_000+slippageSign(side), 10_000); err == nil {
			fillPrice = slipped
		}
	}

	notional, err := fixedpoint.Mul128(fillPrice, int64(filledSize))
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
		Price:       uint64(fillPrice),
		Size:        filledSize,
		TimestampNs: e.now(),
		Fee:         fee,
	}
	if e.toxicity != nil {
		e.toxicity.AddFill(side)
	}

	if e.latency <= 0 {
		e.fillQueue.Push(f)
		return
	}
	e.afterFunc(e.latency, func() { e.fillQueue.Push(f) })
}

func slippageSign(side core.Side) int64 {
	if side == core.Buy {
		return slippageBps // buys pay more
	}
	return -slippageBps // sells receive less
}

func (e *SimulatedRealistic) DrainFills() []core.Fill { return e.fillQueue.Drain() }

func (e *SimulatedRealistic) OpenExposure() (uint64, uint64) {
	return e.openBuy.Load(), e.openSell.Load()
}

func (e *SimulatedRealistic) CancelAll() {
	e.openBuy.Store(0)
	e.openSell.Store(0)
}

func (e *SimulatedRealistic) DroppedFillCount() uint64 { return e.fillQueue.DroppedCount() }

// OutstandingOrders approximates the resting-order count from aggregate
// exposure: this executor does not track individual order identities, so
// it reports one synthetic order per side still carrying open exposure.
func (e *SimulatedRealistic) OutstandingOrders() int {
	n := 0
	if e.openBuy.Load() > 0 {
		n++
	}
	if e.openSell.Load() > 0 {
		n++
	}
	return n
}
