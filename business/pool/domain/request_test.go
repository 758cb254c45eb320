package domain

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"

	"github.com/fd1az/poolctl/internal/apperror"
	"github.com/fd1az/poolctl/internal/asset"
)

var recipient = common.HexToAddress("0x00000000000000000000000000000000000000aa")

func TestNewSwapRequest(t *testing.T) {
	tooBig := new(big.Int).Add(asset.MaxInt128, big.NewInt(1))

	tests := []struct {
		name    string
		out     *big.Int
		inMax   *big.Int
		wantErr bool
	}{
		{"ok", big.NewInt(100_000_000), big.NewInt(33_499_665), false},
		{"max_i128", asset.MaxInt128, big.NewInt(1), false},
		{"overflow", tooBig, big.NewInt(1), true},
		{"negative", big.NewInt(1), big.NewInt(-1), true},
		{"nil", nil, big.NewInt(1), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewSwapRequest(recipient, false, tt.out, tt.inMax)
			if tt.wantErr != (err != nil) {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr && !apperror.Is(err, apperror.CodeInvalidAmount) {
				t.Errorf("code = %s", apperror.GetCode(err))
			}
		})
	}
}

func TestSwapRequest_Immutable(t *testing.T) {
	out := big.NewInt(10)
	req, err := NewSwapRequest(recipient, true, out, big.NewInt(11))
	if err != nil {
		t.Fatal(err)
	}

	out.SetInt64(99)
	req.Out().SetInt64(77)

	if req.Out().Int64() != 10 {
		t.Errorf("Out mutated to %s", req.Out())
	}
}

func TestSwapRequest_Equal(t *testing.T) {
	a, _ := NewSwapRequest(recipient, true, big.NewInt(10), big.NewInt(11))
	b, _ := NewSwapRequest(recipient, true, big.NewInt(10), big.NewInt(11))
	c, _ := NewSwapRequest(recipient, false, big.NewInt(10), big.NewInt(11))

	if !a.Equal(b) {
		t.Error("identical requests not equal")
	}
	if a.Equal(c) {
		t.Error("different direction compared equal")
	}
}

func TestNewWithdrawRequest(t *testing.T) {
	if _, err := NewWithdrawRequest(recipient, big.NewInt(0), big.NewInt(0), big.NewInt(0)); !apperror.Is(err, apperror.CodeZeroAmount) {
		t.Errorf("zero share err = %v", err)
	}
	if _, err := NewWithdrawRequest(recipient, big.NewInt(1), big.NewInt(-1), big.NewInt(0)); !apperror.Is(err, apperror.CodeInvalidAmount) {
		t.Errorf("negative min err = %v", err)
	}

	a, err := NewWithdrawRequest(recipient, big.NewInt(500), big.NewInt(2475), big.NewInt(990))
	if err != nil {
		t.Fatal(err)
	}
	b, _ := NewWithdrawRequest(recipient, big.NewInt(500), big.NewInt(2475), big.NewInt(990))
	if !a.Equal(b) {
		t.Error("identical requests not equal")
	}
}

func TestSubmission_Args(t *testing.T) {
	req, _ := NewSwapRequest(recipient, false, big.NewInt(100_000_000), big.NewInt(33_499_665))
	sub := NewSubmission(KindSwap, "0xpool", recipient.Hex())
	sub.SwapArgs(req)

	if sub.Args["buy_a"] != "false" || sub.Args["in_max"] != "33499665" {
		t.Errorf("args = %v", sub.Args)
	}
	if sub.ID.String() == "" {
		t.Error("missing submission id")
	}
}
