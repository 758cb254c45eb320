package domain

import (
	"github.com/shopspring/decimal"

	"github.com/fd1az/poolctl/internal/apperror"
	"github.com/fd1az/poolctl/internal/asset"
)

var hundred = decimal.NewFromInt(100)

// Tolerance is a slippage percentage in [0, 100).
type Tolerance struct {
	pct decimal.Decimal
}

// NewTolerance validates pct. Exponents beyond asset.MaxExponent are
// rejected before any comparison rescales them.
func NewTolerance(pct decimal.Decimal) (Tolerance, error) {
	if pct.IsZero() {
		return Tolerance{pct: decimal.Zero}, nil
	}
	if !asset.InExponentRange(pct) || pct.IsNegative() || pct.GreaterThanOrEqual(hundred) {
		return Tolerance{}, apperror.Validation(apperror.CodeInvalidTolerance, pct.String())
	}
	return Tolerance{pct: pct}, nil
}

// ParseTolerance parses and validates a percentage string such as "0.5".
func ParseTolerance(s string) (Tolerance, error) {
	pct, err := decimal.NewFromString(s)
	if err != nil {
		return Tolerance{}, apperror.New(apperror.CodeInvalidTolerance,
			apperror.WithCause(err), apperror.WithContext(s))
	}
	return NewTolerance(pct)
}

// Percent returns the tolerance as a percentage.
func (t Tolerance) Percent() decimal.Decimal {
	return t.pct
}

func (t Tolerance) String() string {
	return t.pct.String() + "%"
}

// MaxBound returns nominal * (1 + tol/100), the most the caller will give up.
func MaxBound(nominal decimal.Decimal, tol Tolerance) (decimal.Decimal, error) {
	if nominal.IsNegative() {
		return decimal.Zero, apperror.Validation(apperror.CodeInvalidAmount, nominal.String())
	}
	return nominal.Mul(decimal.NewFromInt(1).Add(tol.pct.Shift(-2))), nil
}

// MinBound returns max(0, nominal * (1 - tol/100)), the least the caller accepts.
func MinBound(nominal decimal.Decimal, tol Tolerance) (decimal.Decimal, error) {
	if nominal.IsNegative() {
		return decimal.Zero, apperror.Validation(apperror.CodeInvalidAmount, nominal.String())
	}
	bound := nominal.Mul(decimal.NewFromInt(1).Sub(tol.pct.Shift(-2)))
	if bound.IsNegative() {
		return decimal.Zero, nil
	}
	return bound, nil
}
