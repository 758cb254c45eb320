package domain

import (
	"testing"

	"github.com/shopspring/decimal"

	"github.com/fd1az/poolctl/internal/apperror"
)

func TestNewTolerance(t *testing.T) {
	tests := []struct {
		pct     string
		wantErr bool
	}{
		{"0", false},
		{"0.5", false},
		{"99.999", false},
		{"100", true},
		{"150", true},
		{"-0.1", true},
		{"1e-80", false},
		{"0e-900000000", false},
		{"1e-900000000", true},
		{"1e900000000", true},
	}

	for _, tt := range tests {
		t.Run(tt.pct, func(t *testing.T) {
			_, err := NewTolerance(decimal.RequireFromString(tt.pct))
			if tt.wantErr {
				if !apperror.Is(err, apperror.CodeInvalidTolerance) {
					t.Errorf("err = %v, want INVALID_TOLERANCE", err)
				}
				return
			}
			if err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestParseTolerance(t *testing.T) {
	tol, err := ParseTolerance("0.5")
	if err != nil {
		t.Fatal(err)
	}
	if !tol.Percent().Equal(decimal.RequireFromString("0.5")) {
		t.Errorf("Percent = %s", tol.Percent())
	}

	for _, in := range []string{"half", "1e-900000000", "1e900000000"} {
		if _, err := ParseTolerance(in); !apperror.Is(err, apperror.CodeInvalidTolerance) {
			t.Errorf("ParseTolerance(%s): err = %v, want INVALID_TOLERANCE", in, err)
		}
	}
}

func TestBounds(t *testing.T) {
	tests := []struct {
		name    string
		nominal string
		tol     string
		wantMax string
		wantMin string
	}{
		{"swap_example", "3.3333", "0.5", "3.3499665", "3.3166335"},
		{"withdraw_example", "2500", "1", "2525", "2475"},
		{"zero_tolerance", "42", "0", "42", "42"},
		{"zero_nominal", "0", "5", "0", "0"},
		{"high_tolerance", "10", "99.5", "19.95", "0.05"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tol, err := NewTolerance(decimal.RequireFromString(tt.tol))
			if err != nil {
				t.Fatal(err)
			}
			n := decimal.RequireFromString(tt.nominal)

			maxB, err := MaxBound(n, tol)
			if err != nil {
				t.Fatal(err)
			}
			minB, err := MinBound(n, tol)
			if err != nil {
				t.Fatal(err)
			}

			if !maxB.Equal(decimal.RequireFromString(tt.wantMax)) {
				t.Errorf("MaxBound = %s, want %s", maxB, tt.wantMax)
			}
			if !minB.Equal(decimal.RequireFromString(tt.wantMin)) {
				t.Errorf("MinBound = %s, want %s", minB, tt.wantMin)
			}
			if minB.GreaterThan(n) || maxB.LessThan(n) {
				t.Errorf("bounds %s..%s do not bracket %s", minB, maxB, n)
			}
		})
	}
}

func TestBounds_NegativeNominal(t *testing.T) {
	tol, _ := NewTolerance(decimal.NewFromInt(1))
	n := decimal.NewFromInt(-1)

	if _, err := MaxBound(n, tol); !apperror.Is(err, apperror.CodeInvalidAmount) {
		t.Errorf("MaxBound err = %v", err)
	}
	if _, err := MinBound(n, tol); !apperror.Is(err, apperror.CodeInvalidAmount) {
		t.Errorf("MinBound err = %v", err)
	}
}
