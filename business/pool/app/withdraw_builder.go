package app

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	"github.com/fd1az/poolctl/business/pool/domain"
	"github.com/fd1az/poolctl/internal/apperror"
	"github.com/fd1az/poolctl/internal/asset"
)

var hundred = decimal.NewFromInt(100)

// WithdrawParams is the user's intent to redeem SharePercent of their shares.
type WithdrawParams struct {
	To           common.Address
	Position     domain.SharePosition
	Reserves     domain.Reserves
	SharePercent decimal.Decimal
	Tolerance    decimal.Decimal // percent
	Share        *asset.Asset
	TokenA       *asset.Asset
	TokenB       *asset.Asset
}

// BuildWithdraw computes the shares to burn and the minimum amounts of each
// token the caller accepts, from the pro-rata entitlement less the tolerance.
func BuildWithdraw(p WithdrawParams) (*domain.WithdrawRequest, error) {
	if !asset.InExponentRange(p.SharePercent) || !p.SharePercent.IsPositive() || p.SharePercent.GreaterThan(hundred) {
		return nil, apperror.Validation(apperror.CodeInvalidSharePercent, p.SharePercent.String())
	}

	tol, err := domain.NewTolerance(p.Tolerance)
	if err != nil {
		return nil, err
	}

	if p.Share == nil || p.TokenA == nil || p.TokenB == nil {
		return nil, apperror.Validation(apperror.CodeInvalidInput, "withdraw token metadata missing")
	}
	if err := p.Position.Validate(); err != nil {
		return nil, err
	}
	if err := p.Reserves.Validate(); err != nil {
		return nil, err
	}

	shareAmount, err := p.Position.SharesFor(p.SharePercent, p.Share.Decimals())
	if err != nil {
		return nil, err
	}

	minA, err := minimumOut(p.Position, shareAmount, p.Reserves.A, p.TokenA, tol)
	if err != nil {
		return nil, err
	}
	minB, err := minimumOut(p.Position, shareAmount, p.Reserves.B, p.TokenB, tol)
	if err != nil {
		return nil, err
	}

	return domain.NewWithdrawRequest(p.To, shareAmount, minA, minB)
}

// ExpectedWithdraw returns the pro-rata amounts of A and B that shares redeem.
func ExpectedWithdraw(pos domain.SharePosition, r domain.Reserves, shares *big.Int) (a, b *big.Int) {
	return pos.Entitlement(shares, r.A), pos.Entitlement(shares, r.B)
}

func minimumOut(pos domain.SharePosition, shares, reserve *big.Int, token *asset.Asset, tol domain.Tolerance) (*big.Int, error) {
	entitled := asset.FromFixedPoint(pos.Entitlement(shares, reserve), token.Decimals())
	bound, err := domain.MinBound(entitled, tol)
	if err != nil {
		return nil, err
	}
	return asset.ToFixedPoint(bound, token.Decimals())
}
