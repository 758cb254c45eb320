package domain

import "github.com/shopspring/decimal"

// PriceDigits is the number of fractional digits shown for a spot rate.
const PriceDigits = 18

// Price is the indicative spot rate implied by the reserves.
type Price struct {
	AInB decimal.Decimal // units of B per unit of A
	BInA decimal.Decimal // units of A per unit of B
}

// SpotPrice derives both rates from raw reserves. It is not an execution
// quote: settlement happens at whatever the pool holds when the call lands.
//
// Rates carry enough fractional digits that a one-unit change of either
// reserve always changes them; use Rounded for display.
func SpotPrice(r Reserves) (Price, error) {
	if err := r.Validate(); err != nil {
		return Price{}, err
	}

	a := decimal.NewFromBigInt(r.A, 0)
	b := decimal.NewFromBigInt(r.B, 0)

	// b/a - b/(a+1) = b/(a(a+1)) needs about 2*digits(a) - digits(b) places
	precision := int32(PriceDigits + 2*(a.NumDigits()+b.NumDigits()))

	return Price{
		AInB: b.DivRound(a, precision),
		BInA: a.DivRound(b, precision),
	}, nil
}

// Rounded returns both rates rounded to PriceDigits.
func (p Price) Rounded() Price {
	return Price{
		AInB: p.AInB.Round(PriceDigits),
		BInA: p.BInA.Round(PriceDigits),
	}
}
