package app

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"

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

type fakeOracle struct {
	estimate    uint64
	estimateErr error
}

func (f *fakeOracle) FeeQuote(context.Context) (*domain.FeeQuote, error) {
	return domain.NewFeeQuote(big.NewInt(10), big.NewInt(1), nil), nil
}

func (f *fakeOracle) EstimateGas(context.Context, common.Address, common.Address, []byte) (uint64, error) {
	return f.estimate, f.estimateErr
}

type fakeSender struct {
	sent    []domain.TxRequest
	receipt *domain.Receipt
}

func (f *fakeSender) Address() common.Address { return common.HexToAddress("0xabc") }

func (f *fakeSender) Send(_ context.Context, req domain.TxRequest) (common.Hash, error) {
	f.sent = append(f.sent, req)
	return common.HexToHash("0x01"), nil
}

func (f *fakeSender) WaitReceipt(context.Context, common.Hash) (*domain.Receipt, error) {
	return f.receipt, nil
}

var pool = common.HexToAddress("0xcc")

func newService(oracle GasOracle, sender TxSender) *BlockchainService {
	return NewBlockchainService(nil, oracle, sender, ExecutionConfig{DefaultGasLimit: 300000}, mockLogger{})
}

func TestExecute_Success(t *testing.T) {
	sender := &fakeSender{receipt: &domain.Receipt{Succeeded: true, BlockNumber: 7}}
	svc := newService(&fakeOracle{estimate: 90000}, sender)

	receipt, err := svc.Execute(context.Background(), pool, []byte{1, 2})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if receipt.BlockNumber != 7 {
		t.Errorf("expected block 7, got %d", receipt.BlockNumber)
	}
	if len(sender.sent) != 1 || sender.sent[0].GasLimit != 90000 || sender.sent[0].To != pool {
		t.Errorf("unexpected submission %+v", sender.sent)
	}
}

func TestExecute_RevertedReceipt(t *testing.T) {
	sender := &fakeSender{receipt: &domain.Receipt{Succeeded: false}}
	svc := newService(&fakeOracle{estimate: 90000}, sender)

	_, err := svc.Execute(context.Background(), pool, nil)
	if !apperror.Is(err, apperror.CodeExecutionReverted) {
		t.Fatalf("expected EXECUTION_REVERTED, got %v", err)
	}
}

func TestExecute_RevertAtEstimationIsNotSubmitted(t *testing.T) {
	sender := &fakeSender{}
	oracle := &fakeOracle{estimateErr: apperror.Reverted("estimate", errors.New("execution reverted"))}
	svc := newService(oracle, sender)

	_, err := svc.Execute(context.Background(), pool, nil)
	if !apperror.Is(err, apperror.CodeExecutionReverted) {
		t.Fatalf("expected EXECUTION_REVERTED, got %v", err)
	}
	if len(sender.sent) != 0 {
		t.Error("reverting call must not be broadcast")
	}
}

func TestExecute_EstimationFailureFallsBackToDefault(t *testing.T) {
	sender := &fakeSender{receipt: &domain.Receipt{Succeeded: true}}
	oracle := &fakeOracle{estimateErr: apperror.New(apperror.CodeGasEstimationFailed)}
	svc := newService(oracle, sender)

	if _, err := svc.Execute(context.Background(), pool, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sender.sent[0].GasLimit != 300000 {
		t.Errorf("expected default gas limit, got %d", sender.sent[0].GasLimit)
	}
}

func TestExecute_NoAccount(t *testing.T) {
	svc := newService(&fakeOracle{}, nil)

	_, err := svc.Execute(context.Background(), pool, nil)
	if !apperror.Is(err, apperror.CodeSigningFailed) {
		t.Fatalf("expected SIGNING_FAILED, got %v", err)
	}
	if svc.Account() != (common.Address{}) {
		t.Error("expected zero account without a sender")
	}
}
