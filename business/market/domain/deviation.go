// Package domain contains the core domain types for the market reference context.
package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

var bpsFactor = decimal.NewFromInt(10000)

// ReferencePrice is an external quote for token A priced in token B.
type ReferencePrice struct {
	Symbol    string
	Rate      decimal.Decimal
	Source    string
	Timestamp time.Time
}

// Invert returns the reference expressed the other way round. A zero rate stays zero.
func (r ReferencePrice) Invert() ReferencePrice {
	inv := r
	if !r.Rate.IsZero() {
		inv.Rate = decimal.NewFromInt(1).DivRound(r.Rate, 18)
	}
	return inv
}

// Deviation measures how far the pool's spot rate sits from the reference.
type Deviation struct {
	PoolRate      decimal.Decimal
	ReferenceRate decimal.Decimal
	Absolute      decimal.Decimal // pool - reference
	BasisPoints   decimal.Decimal // (pool - reference) / reference * 10000
}

// CalculateDeviation compares a pool rate to a reference rate. A zero
// reference yields zero basis points.
func CalculateDeviation(poolRate, referenceRate decimal.Decimal) Deviation {
	absolute := poolRate.Sub(referenceRate)
	bps := decimal.Zero
	if !referenceRate.IsZero() {
		bps = absolute.Div(referenceRate).Mul(bpsFactor)
	}

	return Deviation{
		PoolRate:      poolRate,
		ReferenceRate: referenceRate,
		Absolute:      absolute,
		BasisPoints:   bps,
	}
}

// Exceeds reports whether the deviation, in either direction, is above maxBps.
func (d Deviation) Exceeds(maxBps decimal.Decimal) bool {
	return d.BasisPoints.Abs().GreaterThan(maxBps)
}
