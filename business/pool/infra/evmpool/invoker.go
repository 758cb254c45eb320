package evmpool

import (
	"context"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	blockchainDomain "github.com/fd1az/poolctl/business/blockchain/domain"
	"github.com/fd1az/poolctl/business/pool/app"
	"github.com/fd1az/poolctl/business/pool/domain"
	"github.com/fd1az/poolctl/internal/apperror"
	"github.com/fd1az/poolctl/internal/logger"
)

// Ensure Invoker implements PoolInvoker.
var _ app.PoolInvoker = (*Invoker)(nil)

// Executor signs, submits and settles a contract call.
type Executor interface {
	Execute(ctx context.Context, to common.Address, data []byte) (*blockchainDomain.Receipt, error)
}

// Invoker encodes pool requests and hands them to the Executor.
type Invoker struct {
	pool    common.Address
	poolABI abi.ABI
	exec    Executor
	logger  logger.LoggerInterface
}

// NewInvoker creates a new Invoker for pool.
func NewInvoker(pool common.Address, exec Executor, log logger.LoggerInterface) (*Invoker, error) {
	poolABI, err := abi.JSON(strings.NewReader(PoolABI))
	if err != nil {
		return nil, fmt.Errorf("failed to parse pool ABI: %w", err)
	}
	return &Invoker{pool: pool, poolABI: poolABI, exec: exec, logger: log}, nil
}

// SwapCalldata encodes swap(to, buy_a, out, in_max).
func (i *Invoker) SwapCalldata(req *domain.SwapRequest) ([]byte, error) {
	return i.poolABI.Pack(methodSwap, req.To(), req.BuyA(), req.Out(), req.InMax())
}

// WithdrawCalldata encodes withdraw(to, share_amount, min_a, min_b).
func (i *Invoker) WithdrawCalldata(req *domain.WithdrawRequest) ([]byte, error) {
	return i.poolABI.Pack(methodWithdraw, req.To(), req.ShareAmount(), req.MinA(), req.MinB())
}

// Swap submits a swap request.
func (i *Invoker) Swap(ctx context.Context, req *domain.SwapRequest) (*domain.Outcome, error) {
	data, err := i.SwapCalldata(req)
	if err != nil {
		return nil, apperror.Internal(apperror.CodeInternalError, "pack swap", err)
	}
	return i.execute(ctx, methodSwap, data)
}

// Withdraw submits a withdraw request.
func (i *Invoker) Withdraw(ctx context.Context, req *domain.WithdrawRequest) (*domain.Outcome, error) {
	data, err := i.WithdrawCalldata(req)
	if err != nil {
		return nil, apperror.Internal(apperror.CodeInternalError, "pack withdraw", err)
	}
	return i.execute(ctx, methodWithdraw, data)
}

func (i *Invoker) execute(ctx context.Context, method string, data []byte) (*domain.Outcome, error) {
	i.logger.Debug(ctx, "invoking pool", "method", method, "pool", i.pool.Hex(), "calldata_bytes", len(data))

	receipt, err := i.exec.Execute(ctx, i.pool, data)
	if receipt == nil {
		return nil, err
	}
	return &domain.Outcome{
		TxHash:  receipt.TxHash.Hex(),
		Block:   receipt.BlockNumber,
		GasUsed: receipt.GasUsed,
	}, err
}
