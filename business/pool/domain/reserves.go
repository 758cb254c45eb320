// Package domain contains the core value types and math of the pool context.
// Nothing here performs I/O; every function is safe for concurrent use.
package domain

import (
	"fmt"
	"math/big"

	"github.com/shopspring/decimal"

	"github.com/fd1az/poolctl/internal/apperror"
	"github.com/fd1az/poolctl/internal/asset"
)

// Reserves holds the raw on-chain balances of the pool, as returned by get_rsrvs.
type Reserves struct {
	A *big.Int
	B *big.Int
}

// NewReserves copies a and b into a Reserves value.
func NewReserves(a, b *big.Int) Reserves {
	return Reserves{A: copyInt(a), B: copyInt(b)}
}

// Priceable reports whether both sides are strictly positive.
func (r Reserves) Priceable() bool {
	return r.A != nil && r.B != nil && r.A.Sign() > 0 && r.B.Sign() > 0
}

// Validate returns DEGENERATE_RESERVES unless both sides are strictly positive.
func (r Reserves) Validate() error {
	if !r.Priceable() {
		return apperror.Validation(apperror.CodeDegenerateReserves,
			fmt.Sprintf("reserves a=%v b=%v", r.A, r.B))
	}
	return nil
}

// SharePosition is the account's pool share balance against the share supply.
type SharePosition struct {
	Balance     *big.Int
	TotalShares *big.Int
}

// NewSharePosition copies balance and total into a SharePosition.
func NewSharePosition(balance, total *big.Int) SharePosition {
	return SharePosition{Balance: copyInt(balance), TotalShares: copyInt(total)}
}

// Validate checks the position can back a withdrawal.
func (p SharePosition) Validate() error {
	if p.TotalShares == nil || p.TotalShares.Sign() <= 0 {
		return apperror.Validation(apperror.CodeDegenerateReserves, "pool has no shares outstanding")
	}
	if p.Balance == nil || p.Balance.Sign() < 0 {
		return apperror.Validation(apperror.CodeInvalidInput, "share balance missing or negative")
	}
	if p.Balance.Cmp(p.TotalShares) > 0 {
		return apperror.Validation(apperror.CodeInvalidInput, "share balance exceeds total shares")
	}
	return nil
}

// SharesFor returns pct percent of the balance in share units, truncated.
// A result above the balance is INSUFFICIENT_SHARES.
func (p SharePosition) SharesFor(pct decimal.Decimal, decimals uint8) (*big.Int, error) {
	balance := asset.FromFixedPoint(p.Balance, decimals)
	shares, err := asset.ToFixedPoint(balance.Mul(pct).Shift(-2), decimals)
	if err != nil {
		return nil, err
	}
	if p.Balance == nil || shares.Cmp(p.Balance) > 0 {
		return nil, apperror.Validation(apperror.CodeInsufficientShares,
			fmt.Sprintf("%s > %s", shares, p.Balance))
	}
	return shares, nil
}

// Entitlement returns floor(shares * reserve / TotalShares).
func (p SharePosition) Entitlement(shares, reserve *big.Int) *big.Int {
	out := new(big.Int).Mul(shares, reserve)
	return out.Quo(out, p.TotalShares)
}

func copyInt(v *big.Int) *big.Int {
	if v == nil {
		return nil
	}
	return new(big.Int).Set(v)
}
