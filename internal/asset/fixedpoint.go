package asset

import (
	"errors"
	"fmt"
	"math"
	"math/big"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/fd1az/poolctl/internal/apperror"
)

// Signed 128-bit bounds of the pool contract's amount type.
var (
	MaxInt128 = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 127), big.NewInt(1))
	MinInt128 = new(big.Int).Neg(new(big.Int).Lsh(big.NewInt(1), 127))
)

// Codec errors, always wrapped in an INVALID_AMOUNT AppError.
var (
	ErrNegativeAmount = errors.New("asset: negative amount")
	ErrNotFinite      = errors.New("asset: amount is not a finite number")
	ErrOverflow       = errors.New("asset: amount exceeds i128 range")
	ErrOutOfRange     = errors.New("asset: amount exponent out of range")
)

// MaxExponent bounds the decimal exponent accepted from user input. Exact
// arithmetic on a decimal costs 10^|exponent|, and nothing past this bound
// fits an i128 or any token's precision.
const MaxExponent = 80

// int128Digits is the digit count of MaxInt128.
const int128Digits = 39

// ToFixedPoint scales d by exactly 10^decimals and drops any sub-unit
// remainder, so the encoded value never exceeds what d authorises.
func ToFixedPoint(d decimal.Decimal, decimals uint8) (*big.Int, error) {
	if d.IsNegative() {
		return nil, invalidAmount(ErrNegativeAmount, d.String())
	}

	if d.IsZero() {
		return new(big.Int), nil
	}

	// digits left of the point once scaled
	whole := int64(d.NumDigits()) + int64(d.Exponent()) + int64(decimals)
	if whole > int128Digits {
		return nil, invalidAmount(ErrOverflow, fmt.Sprintf("%s with %d decimals", d.String(), decimals))
	}
	if whole <= 0 {
		return new(big.Int), nil
	}

	raw := d.Shift(int32(decimals)).Truncate(0).BigInt()
	if raw.Cmp(MaxInt128) > 0 {
		return nil, invalidAmount(ErrOverflow, fmt.Sprintf("%s with %d decimals", d.String(), decimals))
	}

	return raw, nil
}

// ParseFixedPoint parses a decimal string and encodes it with ToFixedPoint.
func ParseFixedPoint(s string, decimals uint8) (*big.Int, error) {
	d, err := ParseDecimal(s)
	if err != nil {
		return nil, err
	}
	return ToFixedPoint(d, decimals)
}

// FloatToFixedPoint encodes a float64. Prefer the decimal variants; floats
// are accepted only at boundaries that already hold one.
func FloatToFixedPoint(f float64, decimals uint8) (*big.Int, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil, invalidAmount(ErrNotFinite, fmt.Sprint(f))
	}
	return ToFixedPoint(decimal.NewFromFloat(f), decimals)
}

// FromFixedPoint converts an encoded value back to a decimal amount.
func FromFixedPoint(v *big.Int, decimals uint8) decimal.Decimal {
	if v == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(v, -int32(decimals))
}

// InInt128Range reports whether v fits the signed 128-bit range.
func InInt128Range(v *big.Int) bool {
	return v != nil && v.Cmp(MaxInt128) <= 0 && v.Cmp(MinInt128) >= 0
}

// ParseDecimal parses user input into a decimal, rejecting non-finite values
// and exponents beyond MaxExponent.
func ParseDecimal(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, invalidAmount(fmt.Errorf("%w: %v", ErrNotFinite, err), s)
	}
	if !InExponentRange(d) {
		return decimal.Zero, invalidAmount(ErrOutOfRange, s)
	}
	return d, nil
}

// InExponentRange reports whether d's exponent lies within ±MaxExponent.
func InExponentRange(d decimal.Decimal) bool {
	exp := d.Exponent()
	return exp >= -MaxExponent && exp <= MaxExponent
}

func invalidAmount(cause error, context string) *apperror.AppError {
	return apperror.New(apperror.CodeInvalidAmount,
		apperror.WithCause(cause),
		apperror.WithContext(context))
}
