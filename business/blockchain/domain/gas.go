package domain

import (
	"math/big"
	"time"

	"github.com/shopspring/decimal"
)

var gwei = decimal.New(1, 9)

// FeeQuote holds EIP-1559 fee parameters for the next block.
type FeeQuote struct {
	BaseFee   *big.Int
	TipCap    *big.Int
	FeeCap    *big.Int
	Timestamp time.Time
}

// NewFeeQuote derives the fee cap as twice the base fee plus the tip, so the
// transaction stays includable across a few full blocks. A positive maxFeeCap
// bounds the result; the tip is lowered with it when needed.
func NewFeeQuote(baseFee, tipCap, maxFeeCap *big.Int) *FeeQuote {
	if baseFee == nil {
		baseFee = new(big.Int)
	}
	tip := new(big.Int).Set(tipCap)

	feeCap := new(big.Int).Mul(baseFee, big.NewInt(2))
	feeCap.Add(feeCap, tip)

	if maxFeeCap != nil && maxFeeCap.Sign() > 0 && feeCap.Cmp(maxFeeCap) > 0 {
		feeCap.Set(maxFeeCap)
		if tip.Cmp(feeCap) > 0 {
			tip.Set(feeCap)
		}
	}

	return &FeeQuote{
		BaseFee:   new(big.Int).Set(baseFee),
		TipCap:    tip,
		FeeCap:    feeCap,
		Timestamp: time.Now(),
	}
}

// FeeCapGwei returns the fee cap in gwei for display and metrics.
func (f *FeeQuote) FeeCapGwei() decimal.Decimal {
	return decimal.NewFromBigInt(f.FeeCap, 0).Div(gwei)
}

// GweiToWei converts a gwei amount to wei, truncating fractions of a wei.
func GweiToWei(g decimal.Decimal) *big.Int {
	return g.Mul(gwei).Truncate(0).BigInt()
}

// GasCost is the worst-case network fee of a transaction.
type GasCost struct {
	GasLimit uint64
	FeeCap   *big.Int // wei per gas
	TotalWei *big.Int // GasLimit * FeeCap
	Native   decimal.Decimal
}

// MaxCost prices gasLimit at the fee cap; the fee actually charged is lower
// whenever the base fee stays below its cap.
func (f *FeeQuote) MaxCost(gasLimit uint64) *GasCost {
	total := new(big.Int).Mul(f.FeeCap, new(big.Int).SetUint64(gasLimit))
	return &GasCost{
		GasLimit: gasLimit,
		FeeCap:   new(big.Int).Set(f.FeeCap),
		TotalWei: total,
		Native:   decimal.NewFromBigInt(total, -18),
	}
}
