package domain

import (
	"math/big"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/fd1az/poolctl/internal/apperror"
)

func TestSpotPrice(t *testing.T) {
	tests := []struct {
		name     string
		a, b     int64
		wantAInB string
		wantBInA string
	}{
		{
			name:     "b_three_times_a",
			a:        100,
			b:        300,
			wantAInB: "3",
			wantBInA: "0.333333333333333333",
		},
		{
			name:     "balanced",
			a:        50_000,
			b:        50_000,
			wantAInB: "1",
			wantBInA: "1",
		},
		{
			name:     "a_heavy",
			a:        50_000,
			b:        20_000,
			wantAInB: "0.4",
			wantBInA: "2.5",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := SpotPrice(NewReserves(big.NewInt(tt.a), big.NewInt(tt.b)))
			if err != nil {
				t.Fatalf("SpotPrice: %v", err)
			}
			shown := p.Rounded()
			if !shown.AInB.Equal(decimal.RequireFromString(tt.wantAInB)) {
				t.Errorf("AInB = %s, want %s", shown.AInB, tt.wantAInB)
			}
			if !shown.BInA.Equal(decimal.RequireFromString(tt.wantBInA)) {
				t.Errorf("BInA = %s, want %s", shown.BInA, tt.wantBInA)
			}
		})
	}
}

func TestSpotPrice_ReciprocalProduct(t *testing.T) {
	p, err := SpotPrice(NewReserves(big.NewInt(7), big.NewInt(3)))
	if err != nil {
		t.Fatal(err)
	}
	diff := p.AInB.Mul(p.BInA).Sub(decimal.NewFromInt(1)).Abs()
	if diff.GreaterThan(decimal.New(1, -PriceDigits+1)) {
		t.Errorf("AInB*BInA off by %s", diff)
	}
}

func TestSpotPrice_Degenerate(t *testing.T) {
	tests := []struct {
		name string
		r    Reserves
	}{
		{"zero_a", NewReserves(big.NewInt(0), big.NewInt(300))},
		{"zero_b", NewReserves(big.NewInt(100), big.NewInt(0))},
		{"negative", NewReserves(big.NewInt(-1), big.NewInt(300))},
		{"nil", Reserves{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := SpotPrice(tt.r)
			if apperror.GetCode(err) != apperror.CodeDegenerateReserves {
				t.Errorf("code = %s, want %s", apperror.GetCode(err), apperror.CodeDegenerateReserves)
			}
		})
	}
}

func TestSpotPrice_Monotonic(t *testing.T) {
	b := big.NewInt(20_000)
	prev, err := SpotPrice(NewReserves(big.NewInt(1_000), b))
	if err != nil {
		t.Fatal(err)
	}
	for a := int64(2_000); a <= 10_000; a += 1_000 {
		p, err := SpotPrice(NewReserves(big.NewInt(a), b))
		if err != nil {
			t.Fatal(err)
		}
		if !p.AInB.LessThan(prev.AInB) {
			t.Fatalf("A=%d: AInB %s not below %s", a, p.AInB, prev.AInB)
		}
		prev = p
	}
}

func TestSpotPrice_MonotonicLargeReserves(t *testing.T) {
	tests := []struct {
		name string
		a, b string
	}{
		{"eighteen_decimal_pool", "1000000000000000000000000", "1000000000000000000000000"},
		{"small_b", "1000000000000000000000000", "7"},
		{"i128_scale", "170141183460469231731687303715884105000", "3"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, _ := new(big.Int).SetString(tt.a, 10)
			b, _ := new(big.Int).SetString(tt.b, 10)
			next := new(big.Int).Add(a, big.NewInt(1))

			lo, err := SpotPrice(NewReserves(a, b))
			if err != nil {
				t.Fatal(err)
			}
			hi, err := SpotPrice(NewReserves(next, b))
			if err != nil {
				t.Fatal(err)
			}
			if !hi.AInB.LessThan(lo.AInB) {
				t.Errorf("AInB %s at A+1 not below %s", hi.AInB, lo.AInB)
			}
			if !hi.BInA.GreaterThan(lo.BInA) {
				t.Errorf("BInA %s at A+1 not above %s", hi.BInA, lo.BInA)
			}
		})
	}
}

func TestSharePosition_Validate(t *testing.T) {
	tests := []struct {
		name     string
		balance  *big.Int
		total    *big.Int
		wantCode apperror.Code
	}{
		{"ok", big.NewInt(1), big.NewInt(10), ""},
		{"all_shares", big.NewInt(10), big.NewInt(10), ""},
		{"no_supply", big.NewInt(0), big.NewInt(0), apperror.CodeDegenerateReserves},
		{"over_supply", big.NewInt(11), big.NewInt(10), apperror.CodeInvalidInput},
		{"negative_balance", big.NewInt(-1), big.NewInt(10), apperror.CodeInvalidInput},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewSharePosition(tt.balance, tt.total).Validate()
			if tt.wantCode == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if !apperror.Is(err, tt.wantCode) {
				t.Errorf("err = %v, want %s", err, tt.wantCode)
			}
		})
	}
}

func TestSharePosition_Entitlement(t *testing.T) {
	pos := NewSharePosition(big.NewInt(1_000), big.NewInt(10_000))

	if got := pos.Entitlement(big.NewInt(500), big.NewInt(50_000)); got.Cmp(big.NewInt(2_500)) != 0 {
		t.Errorf("entitlement A = %s, want 2500", got)
	}
	// 1 * 7 / 3 floors to 2.
	pos = NewSharePosition(big.NewInt(1), big.NewInt(3))
	if got := pos.Entitlement(big.NewInt(1), big.NewInt(7)); got.Cmp(big.NewInt(2)) != 0 {
		t.Errorf("floor entitlement = %s, want 2", got)
	}
}

func TestSharePosition_SharesFor(t *testing.T) {
	tests := []struct {
		name     string
		balance  int64
		pct      string
		decimals uint8
		want     int64
		wantCode apperror.Code
	}{
		{name: "half", balance: 1_000, pct: "50", want: 500},
		{name: "all", balance: 1_000, pct: "100", want: 1_000},
		{name: "truncates", balance: 999, pct: "33.3", want: 332},
		{name: "scaled_shares", balance: 10_000_000, pct: "50", decimals: 7, want: 5_000_000},
		{name: "above_balance", balance: 1_000, pct: "150", wantCode: apperror.CodeInsufficientShares},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pos := NewSharePosition(big.NewInt(tt.balance), big.NewInt(10_000_000))
			got, err := pos.SharesFor(decimal.RequireFromString(tt.pct), tt.decimals)
			if tt.wantCode != "" {
				if apperror.GetCode(err) != tt.wantCode {
					t.Fatalf("code = %s, want %s", apperror.GetCode(err), tt.wantCode)
				}
				return
			}
			if err != nil {
				t.Fatalf("SharesFor: %v", err)
			}
			if got.Int64() != tt.want {
				t.Errorf("shares = %s, want %d", got, tt.want)
			}
		})
	}
}
