package domain

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/fd1az/poolctl/internal/apperror"
	"github.com/fd1az/poolctl/internal/asset"
)

// SwapRequest is the validated argument set of the pool's swap entry point.
// It is immutable; accessors return copies.
type SwapRequest struct {
	to    common.Address
	buyA  bool
	out   *big.Int
	inMax *big.Int
}

// NewSwapRequest checks every amount is a non-negative i128.
func NewSwapRequest(to common.Address, buyA bool, out, inMax *big.Int) (*SwapRequest, error) {
	if err := checkAmount("out", out); err != nil {
		return nil, err
	}
	if err := checkAmount("in_max", inMax); err != nil {
		return nil, err
	}
	return &SwapRequest{to: to, buyA: buyA, out: copyInt(out), inMax: copyInt(inMax)}, nil
}

// To returns the recipient.
func (r *SwapRequest) To() common.Address { return r.to }

// BuyA reports whether token A is being bought.
func (r *SwapRequest) BuyA() bool { return r.buyA }

// Out returns the exact amount to receive, in the bought token's units.
func (r *SwapRequest) Out() *big.Int { return copyInt(r.out) }

// InMax returns the most the pool may take, in the sold token's units.
func (r *SwapRequest) InMax() *big.Int { return copyInt(r.inMax) }

// Equal reports whether both requests carry identical arguments.
func (r *SwapRequest) Equal(o *SwapRequest) bool {
	if r == nil || o == nil {
		return r == o
	}
	return r.to == o.to && r.buyA == o.buyA && r.out.Cmp(o.out) == 0 && r.inMax.Cmp(o.inMax) == 0
}

func (r *SwapRequest) String() string {
	return fmt.Sprintf("swap(to=%s buy_a=%t out=%s in_max=%s)", r.to.Hex(), r.buyA, r.out, r.inMax)
}

// WithdrawRequest is the validated argument set of the pool's withdraw entry point.
type WithdrawRequest struct {
	to          common.Address
	shareAmount *big.Int
	minA        *big.Int
	minB        *big.Int
}

// NewWithdrawRequest requires a positive share amount and non-negative minimums.
func NewWithdrawRequest(to common.Address, shareAmount, minA, minB *big.Int) (*WithdrawRequest, error) {
	if err := checkAmount("share_amount", shareAmount); err != nil {
		return nil, err
	}
	if shareAmount.Sign() == 0 {
		return nil, apperror.Validation(apperror.CodeZeroAmount, "share_amount is zero")
	}
	if err := checkAmount("min_a", minA); err != nil {
		return nil, err
	}
	if err := checkAmount("min_b", minB); err != nil {
		return nil, err
	}
	return &WithdrawRequest{
		to:          to,
		shareAmount: copyInt(shareAmount),
		minA:        copyInt(minA),
		minB:        copyInt(minB),
	}, nil
}

// To returns the recipient.
func (r *WithdrawRequest) To() common.Address { return r.to }

// ShareAmount returns the shares to burn.
func (r *WithdrawRequest) ShareAmount() *big.Int { return copyInt(r.shareAmount) }

// MinA returns the least amount of token A accepted.
func (r *WithdrawRequest) MinA() *big.Int { return copyInt(r.minA) }

// MinB returns the least amount of token B accepted.
func (r *WithdrawRequest) MinB() *big.Int { return copyInt(r.minB) }

// Equal reports whether both requests carry identical arguments.
func (r *WithdrawRequest) Equal(o *WithdrawRequest) bool {
	if r == nil || o == nil {
		return r == o
	}
	return r.to == o.to &&
		r.shareAmount.Cmp(o.shareAmount) == 0 &&
		r.minA.Cmp(o.minA) == 0 &&
		r.minB.Cmp(o.minB) == 0
}

func (r *WithdrawRequest) String() string {
	return fmt.Sprintf("withdraw(to=%s share_amount=%s min_a=%s min_b=%s)", r.to.Hex(), r.shareAmount, r.minA, r.minB)
}

func checkAmount(field string, v *big.Int) error {
	if v == nil || v.Sign() < 0 || !asset.InInt128Range(v) {
		return apperror.Validation(apperror.CodeInvalidAmount, fmt.Sprintf("%s=%v", field, v))
	}
	return nil
}
