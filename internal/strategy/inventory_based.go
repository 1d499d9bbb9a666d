package strategy

import (
	"math"

	"github.com/bogengine/mm-core/internal/core"
	"github.com/bogengine/mm-core/internal/position"
	"github.com/bogengine/mm-core/pkg/fixedpoint"
)

// InventoryBased is the Avellaneda-Stoikov-style strategy of spec §4.7:
// a reservation price skewed by inventory distance from a target, and an
// optimal half-spread derived from risk aversion, volatility, and order
// arrival intensity. The reservation/spread formulas follow the shape
// already present in the teacher's original Avellaneda-Stoikov
// implementation, ported from float64 to fixed-point.
//
// Gamma, volatility, and kappa are compile-time constants in the source
// model; since Go cannot const-evaluate math.Log, NewInventoryBased
// precomputes the transcendental half-spread term once at construction so
// Calculate itself performs only fixed-point multiplication and division.
type InventoryBased struct {
	TargetInventory int64
	Gamma           int64
	SigmaSquared    int64
	TimeHorizon     int64
	HalfSpreadBase  int64
	TickSize        uint64
	OrderSize       uint64
	MaxPosition     int64
}

// NewInventoryBased builds an InventoryBased strategy from the model's
// natural float64 parameters, converting to fixed-point once at startup.
func NewInventoryBased(targetInventory int64, gamma, sigma, timeHorizon, kappa float64, tickSize, orderSize uint64, maxPosition int64) (InventoryBased, error) {
	gammaFp, err := fixedpoint.FromF64Checked(gamma)
	if err != nil {
		return InventoryBased{}, err
	}
	sigmaSqFp, err := fixedpoint.FromF64Checked(sigma * sigma)
	if err != nil {
		return InventoryBased{}, err
	}
	tFp, err := fixedpoint.FromF64Checked(timeHorizon)
	if err != nil {
		return InventoryBased{}, err
	}
	halfSpread := gamma*sigma*sigma*timeHorizon/2 + (1/gamma)*math.Log(1+gamma/kappa)
	halfSpreadFp, err := fixedpoint.FromF64Checked(halfSpread)
	if err != nil {
		return InventoryBased{}, err
	}
	return InventoryBased{
		TargetInventory: targetInventory,
		Gamma:           gammaFp,
		SigmaSquared:    sigmaSqFp,
		TimeHorizon:     tFp,
		HalfSpreadBase:  halfSpreadFp,
		TickSize:        tickSize,
		OrderSize:       orderSize,
		MaxPosition:     maxPosition,
	}, nil
}

func (s InventoryBased) Calculate(snap *core.MarketSnapshot, pos *position.Position) (core.Signal, bool) {
	bid, ask := snap.BestBidPrice, snap.BestAskPrice
	if bid == 0 || ask == 0 || ask <= bid {
		return core.Signal{}, false
	}
	mid := int64(midOf(bid, ask))

	skew := pos.GetQuantity() - s.TargetInventory
	gammaSigma2, err := fixedpoint.Mul128(s.Gamma, s.SigmaSquared)
	if err != nil {
		return core.Signal{}, false
	}
	coefficient, err := fixedpoint.Mul128(gammaSigma2, s.TimeHorizon)
	if err != nil {
		return core.Signal{}, false
	}
	skewTerm, err := fixedpoint.Mul128(skew, coefficient)
	if err != nil {
		return core.Signal{}, false
	}

	reservation := mid - skewTerm
	if reservation <= 0 {
		return core.Signal{}, false
	}

	bidRaw := reservation - s.HalfSpreadBase
	askRaw := reservation + s.HalfSpreadBase
	if bidRaw <= 0 {
		return core.Signal{}, false
	}

	ourBid := roundDownToTick(uint64(bidRaw), s.TickSize)
	ourAsk := roundUpToTick(uint64(askRaw), s.TickSize)
	if ourAsk <= ourBid {
		ourAsk = ourBid + s.TickSize
	}

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

func roundDownToTick(v, tick uint64) uint64 {
	if tick == 0 {
		return v
	}
	return (v / tick) * tick
}

func roundUpToTick(v, tick uint64) uint64 {
	if tick == 0 {
		return v
	}
	return ((v + tick - 1) / tick) * tick
}
