package domain

import (
	"math/big"
	"testing"

	"github.com/shopspring/decimal"
)

func TestNewFeeQuote(t *testing.T) {
	tests := []struct {
		name       string
		baseFee    int64
		tip        int64
		maxFeeCap  int64
		wantFeeCap int64
		wantTip    int64
	}{
		{"uncapped", 10, 2, 0, 22, 2},
		{"below cap", 10, 2, 30, 22, 2},
		{"capped", 10, 2, 15, 15, 2},
		{"cap below tip", 10, 20, 5, 5, 5},
		{"zero base fee", 0, 3, 0, 3, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := NewFeeQuote(big.NewInt(tt.baseFee), big.NewInt(tt.tip), big.NewInt(tt.maxFeeCap))
			if q.FeeCap.Int64() != tt.wantFeeCap {
				t.Errorf("fee cap: expected %d, got %s", tt.wantFeeCap, q.FeeCap)
			}
			if q.TipCap.Int64() != tt.wantTip {
				t.Errorf("tip: expected %d, got %s", tt.wantTip, q.TipCap)
			}
		})
	}
}

func TestGweiConversions(t *testing.T) {
	wei := GweiToWei(decimal.RequireFromString("1.5"))
	if wei.String() != "1500000000" {
		t.Errorf("expected 1500000000, got %s", wei)
	}

	q := NewFeeQuote(big.NewInt(1_000_000_000), big.NewInt(500_000_000), nil)
	if !q.FeeCapGwei().Equal(decimal.RequireFromString("2.5")) {
		t.Errorf("expected 2.5 gwei, got %s", q.FeeCapGwei())
	}
}

func TestFeeQuote_MaxCost(t *testing.T) {
	tests := []struct {
		name       string
		gasLimit   uint64
		feeCapWei  int64
		wantWei    string
		wantNative string
	}{
		{
			name:       "default_limit_25gwei",
			gasLimit:   300_000,
			feeCapWei:  25_000_000_000,
			wantWei:    "7500000000000000",
			wantNative: "0.0075", // 300000 * 25 gwei
		},
		{
			name:       "one_gwei",
			gasLimit:   200_000,
			feeCapWei:  1_000_000_000,
			wantWei:    "200000000000000",
			wantNative: "0.0002",
		},
		{
			name:       "zero_limit",
			gasLimit:   0,
			feeCapWei:  25_000_000_000,
			wantWei:    "0",
			wantNative: "0",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := &FeeQuote{FeeCap: big.NewInt(tt.feeCapWei)}
			cost := q.MaxCost(tt.gasLimit)

			if cost.TotalWei.String() != tt.wantWei {
				t.Errorf("TotalWei = %s, want %s", cost.TotalWei, tt.wantWei)
			}
			if !cost.Native.Equal(decimal.RequireFromString(tt.wantNative)) {
				t.Errorf("Native = %s, want %s", cost.Native, tt.wantNative)
			}
		})
	}
}
