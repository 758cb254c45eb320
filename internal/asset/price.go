package asset

import (
	"fmt"
	"math/big"
	"time"

	"github.com/shopspring/decimal"
)

// PricePrecision is the internal precision for price calculations.
const PricePrecision = 18

var pricePrecisionMultiplier = new(big.Int).Exp(big.NewInt(10), big.NewInt(PricePrecision), nil)

// Price represents an exchange rate between two tokens in whole units.
// Stored as a fixed-point integer with PricePrecision decimals.
// Example: 1 XLM = 0.125 USDC stored as 125000000000000000
type Price struct {
	rate      *big.Int  // Fixed-point with PricePrecision decimals
	base      *Asset    // The asset being priced (e.g., XLM)
	quote     *Asset    // The unit of price (e.g., USDC)
	timestamp time.Time // When this price was observed
}

// NewPriceFromReserves derives the decimals-normalised spot price of base in
// quote from raw pool reserves: (reserveQuote/10^qd) / (reserveBase/10^bd).
func NewPriceFromReserves(base, quote *Asset, reserveBase, reserveQuote *big.Int, timestamp time.Time) (Price, error) {
	if base == nil || quote == nil {
		return Price{}, ErrNilAsset
	}
	if reserveBase == nil || reserveBase.Sign() <= 0 {
		return Price{}, ErrDivisionByZero
	}
	if reserveQuote == nil || reserveQuote.Sign() < 0 {
		return Price{}, ErrNegativeAmount
	}

	// rate = reserveQuote * 10^(18 + bd - qd) / reserveBase
	num := new(big.Int).Set(reserveQuote)
	den := new(big.Int).Set(reserveBase)
	shift := int64(PricePrecision) + int64(base.Decimals()) - int64(quote.Decimals())
	if shift >= 0 {
		num.Mul(num, pow10(shift))
	} else {
		den.Mul(den, pow10(-shift))
	}

	return Price{
		rate:      num.Quo(num, den),
		base:      base,
		quote:     quote,
		timestamp: timestamp,
	}, nil
}

// Rate returns the price rate as a decimal.
func (p Price) Rate() decimal.Decimal {
	if p.rate == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(p.rate, -PricePrecision)
}

// Base returns the base asset.
func (p Price) Base() *Asset {
	return p.base
}

// Timestamp returns when this price was observed.
func (p Price) Timestamp() time.Time {
	return p.timestamp
}

// Pair returns the trading pair symbol (e.g., "XLM/USDC").
func (p Price) Pair() string {
	if p.base == nil || p.quote == nil {
		return "???/???"
	}
	return fmt.Sprintf("%s/%s", p.base.Symbol(), p.quote.Symbol())
}

// IsZero returns true if the price is zero.
func (p Price) IsZero() bool {
	return p.rate == nil || p.rate.Sign() == 0
}

// Invert returns the inverse price (e.g., XLM/USDC -> USDC/XLM).
func (p Price) Invert() Price {
	if p.IsZero() {
		return Price{
			rate:      big.NewInt(0),
			base:      p.quote,
			quote:     p.base,
			timestamp: p.timestamp,
		}
	}

	// inverse = 1 / rate = precision^2 / rate
	precisionSquared := new(big.Int).Mul(pricePrecisionMultiplier, pricePrecisionMultiplier)
	invertedRate := new(big.Int).Div(precisionSquared, p.rate)

	return Price{
		rate:      invertedRate,
		base:      p.quote,
		quote:     p.base,
		timestamp: p.timestamp,
	}
}

// Convert converts an amount from base to quote currency using this price.
// Returns the equivalent amount in the quote currency.
func (p Price) Convert(amount Amount) (Amount, error) {
	if amount.Asset() == nil {
		return Amount{}, ErrNilAsset
	}

	// Verify the amount is in the base currency
	if !amount.Asset().ID().Equals(p.base.ID()) {
		return Amount{}, fmt.Errorf("%w: expected %s, got %s",
			ErrAssetMismatch, p.base.Symbol(), amount.Asset().Symbol())
	}

	// quoteRaw = baseRaw * rate * 10^(qd - bd) / 10^18, floored once at the end
	num := new(big.Int).Mul(amount.Raw(), p.rate)
	den := new(big.Int).Set(pricePrecisionMultiplier)

	decimalShift := int64(p.quote.Decimals()) - int64(p.base.Decimals())
	if decimalShift > 0 {
		num.Mul(num, pow10(decimalShift))
	} else if decimalShift < 0 {
		den.Mul(den, pow10(-decimalShift))
	}

	return NewAmount(p.quote, num.Quo(num, den)), nil
}

// String returns a human-readable representation.
func (p Price) String() string {
	return fmt.Sprintf("%s %s", p.Rate().String(), p.Pair())
}

func pow10(n int64) *big.Int {
	return new(big.Int).Exp(big.NewInt(10), big.NewInt(n), nil)
}
