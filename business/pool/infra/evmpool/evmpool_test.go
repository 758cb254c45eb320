package evmpool

import (
	"bytes"
	"context"
	"errors"
	"math/big"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	blockchainDomain "github.com/fd1az/poolctl/business/blockchain/domain"
	"github.com/fd1az/poolctl/business/pool/domain"
	"github.com/fd1az/poolctl/internal/apperror"
	"github.com/fd1az/poolctl/internal/asset"
)

type mockLogger struct{}

func (mockLogger) Debug(context.Context, string, ...any)       {}
func (mockLogger) Debugc(context.Context, int, string, ...any) {}
func (mockLogger) Info(context.Context, string, ...any)        {}
func (mockLogger) Infoc(context.Context, int, string, ...any)  {}
func (mockLogger) Warn(context.Context, string, ...any)        {}
func (mockLogger) Warnc(context.Context, int, string, ...any)  {}
func (mockLogger) Error(context.Context, string, ...any)       {}
func (mockLogger) Errorc(context.Context, int, string, ...any) {}

var (
	poolAddr  = common.HexToAddress("0x00000000000000000000000000000000000000cc")
	tokenA    = common.HexToAddress("0x00000000000000000000000000000000000000a1")
	tokenB    = common.HexToAddress("0x00000000000000000000000000000000000000b1")
	shareAddr = common.HexToAddress("0x00000000000000000000000000000000000000c1")
	holder    = common.HexToAddress("0x00000000000000000000000000000000000000ee")
)

// fakeChain answers eth_call by contract address and method selector.
type fakeChain struct {
	t       *testing.T
	poolABI abi.ABI
	tknABI  abi.ABI
	calls   map[string]int
	failAll error
	head    uint64
	blocks  map[string]*big.Int // method -> block it was read at
}

func newFakeChain(t *testing.T) *fakeChain {
	t.Helper()
	p, err := abi.JSON(strings.NewReader(PoolABI))
	if err != nil {
		t.Fatal(err)
	}
	tk, err := abi.JSON(strings.NewReader(TokenABI))
	if err != nil {
		t.Fatal(err)
	}
	return &fakeChain{t: t, poolABI: p, tknABI: tk, calls: map[string]int{}, head: 120, blocks: map[string]*big.Int{}}
}

func (f *fakeChain) BlockNumber(context.Context) (uint64, error) {
	if f.failAll != nil {
		return 0, f.failAll
	}
	head := f.head
	f.head++ // a new block lands after every head lookup
	return head, nil
}

func (f *fakeChain) CallContract(_ context.Context, msg ethereum.CallMsg, block *big.Int) ([]byte, error) {
	if f.failAll != nil {
		return nil, f.failAll
	}

	contract := f.tknABI
	if *msg.To == poolAddr {
		contract = f.poolABI
	}
	method, err := contract.MethodById(msg.Data[:4])
	if err != nil {
		f.t.Fatalf("unknown selector on %s: %v", msg.To.Hex(), err)
	}
	f.calls[method.Name]++
	f.blocks[method.Name] = block

	var out []any
	switch method.Name {
	case methodShareID:
		out = []any{shareAddr}
	case methodReserves:
		out = []any{big.NewInt(50_000), big.NewInt(20_000)}
	case methodShares:
		out = []any{big.NewInt(10_000)}
	case methodDecimals:
		out = []any{uint32(7)}
	case methodSymbol:
		out = []any{map[common.Address]string{tokenA: "XLM", tokenB: "USDC", shareAddr: "POOL"}[*msg.To]}
	case methodBalance:
		args, err := method.Inputs.Unpack(msg.Data[4:])
		if err != nil {
			f.t.Fatal(err)
		}
		if args[0].(common.Address) != holder {
			f.t.Errorf("balance queried for %s", args[0])
		}
		out = []any{big.NewInt(1_000)}
	default:
		f.t.Fatalf("unexpected call %s", method.Name)
	}

	data, err := method.Outputs.Pack(out...)
	if err != nil {
		f.t.Fatal(err)
	}
	return data, nil
}

func newTestReader(t *testing.T, chain *fakeChain) *Reader {
	t.Helper()
	r, err := NewReader(ReaderConfig{
		ChainID: 31337,
		Pool:    poolAddr,
		TokenA:  tokenA,
		TokenB:  tokenB,
	}, chain, asset.NewRegistry(), mockLogger{})
	if err != nil {
		t.Fatalf("NewReader: %v", err)
	}
	t.Cleanup(r.Close)
	return r
}

func TestReader_Tokens(t *testing.T) {
	chain := newFakeChain(t)
	r := newTestReader(t, chain)

	tokens, err := r.Tokens(context.Background())
	if err != nil {
		t.Fatalf("Tokens: %v", err)
	}
	if tokens.A.Symbol() != "XLM" || tokens.B.Symbol() != "USDC" || tokens.Share.Address() != shareAddr {
		t.Errorf("tokens = %s/%s/%s", tokens.A, tokens.B, tokens.Share)
	}
	if tokens.A.Decimals() != 7 {
		t.Errorf("decimals = %d", tokens.A.Decimals())
	}

	if _, err := r.Tokens(context.Background()); err != nil {
		t.Fatal(err)
	}
	if chain.calls[methodShareID] != 1 || chain.calls[methodDecimals] != 3 {
		t.Errorf("metadata not cached: %v", chain.calls)
	}
}

func TestReader_ReservesAndPosition(t *testing.T) {
	r := newTestReader(t, newFakeChain(t))

	res, err := r.Reserves(context.Background())
	if err != nil {
		t.Fatalf("Reserves: %v", err)
	}
	if res.A.Int64() != 50_000 || res.B.Int64() != 20_000 {
		t.Errorf("reserves = %s/%s", res.A, res.B)
	}

	snap, err := r.Snapshot(context.Background(), holder)
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if snap.Position.Balance.Int64() != 1_000 || snap.Position.TotalShares.Int64() != 10_000 {
		t.Errorf("position = %s/%s", snap.Position.Balance, snap.Position.TotalShares)
	}
	if snap.Reserves.A.Int64() != 50_000 || snap.Reserves.B.Int64() != 20_000 {
		t.Errorf("snapshot reserves = %s/%s", snap.Reserves.A, snap.Reserves.B)
	}
}

func TestReader_SnapshotPinsOneBlock(t *testing.T) {
	chain := newFakeChain(t)
	r := newTestReader(t, chain)

	snap, err := r.Snapshot(context.Background(), holder)
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if snap.Block != 120 {
		t.Errorf("block = %d, want 120", snap.Block)
	}
	for _, method := range []string{methodReserves, methodShares, methodBalance} {
		got := chain.blocks[method]
		if got == nil || got.Uint64() != snap.Block {
			t.Errorf("%s read at %v, want block %d", method, got, snap.Block)
		}
	}
}

func TestReader_SnapshotHeadFailure(t *testing.T) {
	chain := newFakeChain(t)
	chain.failAll = errors.New("connection refused")
	r := newTestReader(t, chain)

	if _, err := r.Snapshot(context.Background(), holder); !apperror.Is(err, apperror.CodeRPCError) {
		t.Errorf("err = %v, want RPC_ERROR", err)
	}
}

func TestReader_CallFailure(t *testing.T) {
	chain := newFakeChain(t)
	chain.failAll = errors.New("connection refused")
	r := newTestReader(t, chain)

	_, err := r.Reserves(context.Background())
	if !apperror.Is(err, apperror.CodeContractCallFailed) {
		t.Errorf("err = %v, want CONTRACT_CALL_FAILED", err)
	}
}

type fakeExecutor struct {
	to      common.Address
	data    []byte
	receipt *blockchainDomain.Receipt
	err     error
}

func (f *fakeExecutor) Execute(_ context.Context, to common.Address, data []byte) (*blockchainDomain.Receipt, error) {
	f.to, f.data = to, data
	return f.receipt, f.err
}

func TestInvoker_SwapCalldata(t *testing.T) {
	exec := &fakeExecutor{receipt: &blockchainDomain.Receipt{TxHash: common.HexToHash("0x01"), BlockNumber: 9, Succeeded: true}}
	inv, err := NewInvoker(poolAddr, exec, mockLogger{})
	if err != nil {
		t.Fatal(err)
	}

	req, err := domain.NewSwapRequest(holder, false, big.NewInt(100_000_000), big.NewInt(33_499_665))
	if err != nil {
		t.Fatal(err)
	}

	outcome, err := inv.Swap(context.Background(), req)
	if err != nil {
		t.Fatalf("Swap: %v", err)
	}
	if outcome.Block != 9 || exec.to != poolAddr {
		t.Errorf("outcome = %+v, to = %s", outcome, exec.to.Hex())
	}

	method := inv.poolABI.Methods[methodSwap]
	if !bytes.Equal(exec.data[:4], method.ID) {
		t.Fatalf("selector = %x, want %x", exec.data[:4], method.ID)
	}
	args, err := method.Inputs.Unpack(exec.data[4:])
	if err != nil {
		t.Fatal(err)
	}
	if args[0].(common.Address) != holder || args[1].(bool) ||
		args[2].(*big.Int).Int64() != 100_000_000 || args[3].(*big.Int).Int64() != 33_499_665 {
		t.Errorf("args = %v", args)
	}
}

func TestInvoker_WithdrawCalldata(t *testing.T) {
	inv, err := NewInvoker(poolAddr, &fakeExecutor{}, mockLogger{})
	if err != nil {
		t.Fatal(err)
	}
	req, _ := domain.NewWithdrawRequest(holder, big.NewInt(500), big.NewInt(2475), big.NewInt(990))

	data, err := inv.WithdrawCalldata(req)
	if err != nil {
		t.Fatal(err)
	}
	args, err := inv.poolABI.Methods[methodWithdraw].Inputs.Unpack(data[4:])
	if err != nil {
		t.Fatal(err)
	}

	want := []int64{500, 2475, 990}
	for i, w := range want {
		if got := args[i+1].(*big.Int).Int64(); got != w {
			t.Errorf("arg %d = %d, want %d", i+1, got, w)
		}
	}
}

func TestInvoker_Reverted(t *testing.T) {
	exec := &fakeExecutor{
		receipt: &blockchainDomain.Receipt{TxHash: common.HexToHash("0x02"), BlockNumber: 10},
		err:     apperror.Reverted("0x02", nil),
	}
	inv, _ := NewInvoker(poolAddr, exec, mockLogger{})
	req, _ := domain.NewWithdrawRequest(holder, big.NewInt(500), big.NewInt(2475), big.NewInt(990))

	outcome, err := inv.Withdraw(context.Background(), req)
	if !apperror.Is(err, apperror.CodeExecutionReverted) {
		t.Fatalf("err = %v", err)
	}
	if outcome == nil || outcome.Block != 10 {
		t.Errorf("outcome = %+v, want reverted receipt details", outcome)
	}
}
