package app

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	"github.com/fd1az/poolctl/business/pool/domain"
	"github.com/fd1az/poolctl/internal/apperror"
	"github.com/fd1az/poolctl/internal/asset"
)

// SwapParams is the user's swap intent: receive exactly BuyAmount of Buy,
// expecting to give roughly SellAmount of the other token.
type SwapParams struct {
	To         common.Address
	Buy        *asset.Asset
	TokenA     *asset.Asset
	TokenB     *asset.Asset
	BuyAmount  decimal.Decimal
	SellAmount decimal.Decimal
	Tolerance  decimal.Decimal // percent
}

// BuildSwap turns a swap intent into contract arguments. The sell side is
// padded by the tolerance so the call still settles if the price moves
// against the caller by up to that much.
func BuildSwap(p SwapParams) (*domain.SwapRequest, error) {
	tol, err := domain.NewTolerance(p.Tolerance)
	if err != nil {
		return nil, err
	}

	sell, err := sellToken(p.Buy, p.TokenA, p.TokenB)
	if err != nil {
		return nil, err
	}

	if p.BuyAmount.IsZero() && p.SellAmount.IsZero() {
		return nil, apperror.Validation(apperror.CodeZeroAmount, "buy and sell amounts are both zero")
	}

	out, err := asset.AmountFromDecimal(p.Buy, p.BuyAmount)
	if err != nil {
		return nil, err
	}

	maxSold, err := domain.MaxBound(p.SellAmount, tol)
	if err != nil {
		return nil, err
	}
	inMax, err := asset.AmountFromDecimal(sell, maxSold)
	if err != nil {
		return nil, err
	}

	return domain.NewSwapRequest(p.To, p.Buy.Equals(p.TokenA), out.Raw(), inMax.Raw())
}

func sellToken(buy, a, b *asset.Asset) (*asset.Asset, error) {
	if buy == nil || a == nil || b == nil {
		return nil, apperror.Validation(apperror.CodeInvalidInput, "swap token metadata missing")
	}
	switch {
	case buy.Equals(a):
		return b, nil
	case buy.Equals(b):
		return a, nil
	default:
		return nil, apperror.Validation(apperror.CodeInvalidInput, "buy token "+buy.Symbol()+" is not in the pool")
	}
}
