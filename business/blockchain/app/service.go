package app

import (
	"context"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.opentelemetry.io/otel/attribute"

	"github.com/fd1az/poolctl/business/blockchain/domain"
	"github.com/fd1az/poolctl/internal/apm"
	"github.com/fd1az/poolctl/internal/apperror"
	"github.com/fd1az/poolctl/internal/logger"
)

// ExecutionConfig controls transaction submission.
type ExecutionConfig struct {
	DefaultGasLimit uint64        // used when estimation fails for reasons other than a revert
	ReceiptTimeout  time.Duration // how long to wait for inclusion
}

// BlockchainService coordinates blockchain interactions.
type BlockchainService struct {
	subscriber BlockSubscriber
	gasOracle  GasOracle
	sender     TxSender // nil when no signing key is configured
	cfg        ExecutionConfig
	log        logger.LoggerInterface
	tracer     apm.Tracer
}

// NewBlockchainService creates a new BlockchainService.
func NewBlockchainService(subscriber BlockSubscriber, gasOracle GasOracle, sender TxSender, cfg ExecutionConfig, log logger.LoggerInterface) *BlockchainService {
	return &BlockchainService{
		subscriber: subscriber,
		gasOracle:  gasOracle,
		sender:     sender,
		cfg:        cfg,
		log:        log,
		tracer:     apm.NewTracer("blockchain.app"),
	}
}

// SubscribeBlocks starts the block subscription and returns the channel.
func (s *BlockchainService) SubscribeBlocks(ctx context.Context) (<-chan *domain.Block, error) {
	return s.subscriber.Subscribe(ctx)
}

// LatestBlock returns the current chain head.
func (s *BlockchainService) LatestBlock(ctx context.Context) (*domain.Block, error) {
	return s.subscriber.LatestBlock(ctx)
}

// FeeQuote returns the current fee parameters.
func (s *BlockchainService) FeeQuote(ctx context.Context) (*domain.FeeQuote, error) {
	return s.gasOracle.FeeQuote(ctx)
}

// ConnectionState returns the current connection state.
func (s *BlockchainService) ConnectionState() domain.ConnectionState {
	return s.subscriber.State()
}

// Account returns the signing address, or the zero address without a key.
func (s *BlockchainService) Account() common.Address {
	if s.sender == nil {
		return common.Address{}
	}
	return s.sender.Address()
}

// Execute signs and submits a contract call, then waits for its receipt.
// A call the chain rejects, at estimation or settlement, yields
// EXECUTION_REVERTED; the caller must rebuild from fresh state before retrying.
func (s *BlockchainService) Execute(ctx context.Context, to common.Address, data []byte) (*domain.Receipt, error) {
	ctx, span := s.tracer.StartSpanFromContext(ctx, "blockchain.execute")
	defer span.End()

	if s.sender == nil {
		err := apperror.New(apperror.CodeSigningFailed, apperror.WithContext("no signing account configured"))
		span.NoticeError(err)
		return nil, err
	}

	fees, err := s.gasOracle.FeeQuote(ctx)
	if err != nil {
		span.NoticeError(err)
		return nil, err
	}

	gas, err := s.gasOracle.EstimateGas(ctx, s.sender.Address(), to, data)
	switch {
	case apperror.Is(err, apperror.CodeExecutionReverted):
		span.NoticeError(err)
		return nil, err
	case err != nil:
		s.log.Warn(ctx, "gas estimation failed, using default limit",
			"error", err, "gas_limit", s.cfg.DefaultGasLimit)
		gas = s.cfg.DefaultGasLimit
	}

	hash, err := s.sender.Send(ctx, domain.TxRequest{
		To:       to,
		Data:     data,
		GasLimit: gas,
		Fees:     fees,
	})
	if err != nil {
		span.NoticeError(err)
		return nil, err
	}
	span.SetAttributes(attribute.String("tx_hash", hash.Hex()))
	s.log.Info(ctx, "transaction submitted", "tx_hash", hash.Hex(), "gas_limit", gas, "fee_cap_gwei", fees.FeeCapGwei().String())

	waitCtx := ctx
	if s.cfg.ReceiptTimeout > 0 {
		var cancel context.CancelFunc
		waitCtx, cancel = context.WithTimeout(ctx, s.cfg.ReceiptTimeout)
		defer cancel()
	}

	receipt, err := s.sender.WaitReceipt(waitCtx, hash)
	if err != nil {
		span.NoticeError(err)
		return nil, err
	}

	if !receipt.Succeeded {
		err := apperror.Reverted(hash.Hex(), nil)
		span.NoticeError(err)
		return receipt, err
	}

	s.log.Info(ctx, "transaction confirmed", "tx_hash", hash.Hex(), "block", receipt.BlockNumber, "gas_used", receipt.GasUsed)
	return receipt, nil
}

