package ethereum

import (
	"context"
	"errors"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/fd1az/poolctl/business/blockchain/domain"
	"github.com/fd1az/poolctl/internal/apperror"
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

// fakeChain implements FeeBackend, TxBackend and HeadBackend.
type fakeChain struct {
	mu          sync.Mutex
	head        int64
	baseFee     int64
	tip         int64
	estimate    uint64
	estimateErr error
	nonce       uint64
	sent        []*types.Transaction
	receipt     *types.Receipt
	headerCalls int
}

func (f *fakeChain) HeaderByNumber(context.Context, *big.Int) (*types.Header, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.headerCalls++
	return &types.Header{Number: big.NewInt(f.head), BaseFee: big.NewInt(f.baseFee), Time: uint64(time.Now().Unix())}, nil
}

func (f *fakeChain) SuggestGasTipCap(context.Context) (*big.Int, error) {
	return big.NewInt(f.tip), nil
}

func (f *fakeChain) EstimateGas(context.Context, ethereum.CallMsg) (uint64, error) {
	return f.estimate, f.estimateErr
}

func (f *fakeChain) PendingNonceAt(context.Context, common.Address) (uint64, error) {
	return f.nonce, nil
}

func (f *fakeChain) SendTransaction(_ context.Context, tx *types.Transaction) error {
	f.sent = append(f.sent, tx)
	return nil
}

func (f *fakeChain) TransactionReceipt(context.Context, common.Hash) (*types.Receipt, error) {
	if f.receipt == nil {
		return nil, ethereum.NotFound
	}
	return f.receipt, nil
}

const testKey = "4c0883a69102937d6231471b5dbb6204fe5129617082792ae468d01a3f362318"

func TestSender_SignsDynamicFeeTx(t *testing.T) {
	chain := &fakeChain{nonce: 5}
	s, err := NewSender(chain, "0x"+testKey, 1337, time.Millisecond, mockLogger{})
	if err != nil {
		t.Fatalf("new sender: %v", err)
	}

	key, _ := crypto.HexToECDSA(testKey)
	if s.Address() != crypto.PubkeyToAddress(key.PublicKey) {
		t.Fatalf("unexpected address %s", s.Address().Hex())
	}

	to := common.HexToAddress("0xcc")
	hash, err := s.Send(context.Background(), domain.TxRequest{
		To:       to,
		Data:     []byte{0xde, 0xad},
		GasLimit: 100000,
		Fees:     domain.NewFeeQuote(big.NewInt(10), big.NewInt(2), nil),
	})
	if err != nil {
		t.Fatalf("send: %v", err)
	}

	if len(chain.sent) != 1 {
		t.Fatalf("expected one broadcast, got %d", len(chain.sent))
	}
	tx := chain.sent[0]
	if tx.Hash() != hash || tx.Nonce() != 5 || tx.Type() != types.DynamicFeeTxType {
		t.Errorf("unexpected tx hash=%s nonce=%d type=%d", tx.Hash().Hex(), tx.Nonce(), tx.Type())
	}
	if tx.GasFeeCap().Int64() != 22 || tx.GasTipCap().Int64() != 2 || *tx.To() != to {
		t.Errorf("unexpected fee fields or recipient")
	}

	from, err := types.Sender(types.LatestSignerForChainID(big.NewInt(1337)), tx)
	if err != nil || from != s.Address() {
		t.Errorf("signature does not recover sender: %v %s", err, from.Hex())
	}
}

func TestSender_InvalidKey(t *testing.T) {
	if _, err := NewSender(&fakeChain{}, "not-a-key", 1, 0, mockLogger{}); !apperror.Is(err, apperror.CodeConfigurationError) {
		t.Errorf("expected CONFIGURATION_ERROR, got %v", err)
	}
}

func TestSender_WaitReceipt(t *testing.T) {
	chain := &fakeChain{receipt: &types.Receipt{Status: types.ReceiptStatusFailed, BlockNumber: big.NewInt(9), GasUsed: 21000}}
	s, _ := NewSender(chain, testKey, 1, time.Millisecond, mockLogger{})

	r, err := s.WaitReceipt(context.Background(), common.HexToHash("0x01"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.Succeeded || r.BlockNumber != 9 {
		t.Errorf("unexpected receipt %+v", r)
	}
}

func TestSender_WaitReceiptTimeout(t *testing.T) {
	s, _ := NewSender(&fakeChain{}, testKey, 1, time.Millisecond, mockLogger{})

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	if _, err := s.WaitReceipt(ctx, common.HexToHash("0x01")); !apperror.Is(err, apperror.CodeReceiptTimeout) {
		t.Errorf("expected RECEIPT_TIMEOUT, got %v", err)
	}
}

func TestGasOracle_FeeQuoteCached(t *testing.T) {
	chain := &fakeChain{baseFee: 100, tip: 3}
	g, err := NewGasOracle(GasOracleConfig{CacheTTL: time.Minute}, chain, mockLogger{})
	if err != nil {
		t.Fatalf("new oracle: %v", err)
	}
	defer g.Close()

	q, err := g.FeeQuote(context.Background())
	if err != nil {
		t.Fatalf("fee quote: %v", err)
	}
	if q.FeeCap.Int64() != 203 {
		t.Errorf("expected fee cap 203, got %s", q.FeeCap)
	}

	if _, err := g.FeeQuote(context.Background()); err != nil {
		t.Fatalf("second quote: %v", err)
	}
	if chain.headerCalls != 1 {
		t.Errorf("expected cached quote, header fetched %d times", chain.headerCalls)
	}
}

func TestGasOracle_EstimateGas(t *testing.T) {
	tests := []struct {
		name    string
		gas     uint64
		err     error
		want    uint64
		wantErr error
	}{
		{"adds margin", 100000, nil, 110000, nil},
		{"revert", 0, errors.New("execution reverted: slippage"), 0, apperror.New(apperror.CodeExecutionReverted)},
		{"node failure", 0, errors.New("connection reset"), 0, apperror.New(apperror.CodeGasEstimationFailed)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g, _ := NewGasOracle(DefaultGasOracleConfig(), &fakeChain{estimate: tt.gas, estimateErr: tt.err}, mockLogger{})
			defer g.Close()

			got, err := g.EstimateGas(context.Background(), common.Address{}, common.HexToAddress("0xcc"), nil)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("expected %v, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil || got != tt.want {
				t.Errorf("expected %d, got %d (%v)", tt.want, got, err)
			}
		})
	}
}

func TestSubscriber_PollsWithoutWS(t *testing.T) {
	chain := &fakeChain{head: 42}
	s, err := NewSubscriber(DefaultSubscriberConfig("", 5*time.Millisecond), chain, mockLogger{})
	if err != nil {
		t.Fatalf("new subscriber: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	blocks, err := s.Subscribe(ctx)
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	select {
	case b := <-blocks:
		if b.Number != 42 {
			t.Errorf("expected block 42, got %d", b.Number)
		}
	case <-time.After(time.Second):
		t.Fatal("no block received")
	}

	cancel()
	for range blocks {
	}
	if s.State() != domain.StateDisconnected {
		t.Errorf("expected disconnected after cancel, got %s", s.State())
	}
}
