package ethereum

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/fd1az/poolctl/business/blockchain/domain"
	"github.com/fd1az/poolctl/internal/apperror"
	"github.com/fd1az/poolctl/internal/logger"
)

// TxBackend is the subset of ethclient.Client the sender needs.
type TxBackend interface {
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	SendTransaction(ctx context.Context, tx *types.Transaction) error
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
}

// Sender signs EIP-1559 transactions with a local key and broadcasts them.
type Sender struct {
	backend      TxBackend
	key          *ecdsa.PrivateKey
	address      common.Address
	signer       types.Signer
	pollInterval time.Duration
	logger       logger.LoggerInterface
	tracer       trace.Tracer

	// serialises nonce selection and broadcast
	mu sync.Mutex
}

// NewSender parses a hex private key (with or without 0x) for chainID.
func NewSender(backend TxBackend, hexKey string, chainID uint64, pollInterval time.Duration, log logger.LoggerInterface) (*Sender, error) {
	key, err := crypto.HexToECDSA(strings.TrimPrefix(strings.TrimSpace(hexKey), "0x"))
	if err != nil {
		return nil, apperror.New(apperror.CodeConfigurationError,
			apperror.WithCause(err),
			apperror.WithContext("invalid account key"))
	}

	if pollInterval <= 0 {
		pollInterval = time.Second
	}

	return &Sender{
		backend:      backend,
		key:          key,
		address:      crypto.PubkeyToAddress(key.PublicKey),
		signer:       types.LatestSignerForChainID(new(big.Int).SetUint64(chainID)),
		pollInterval: pollInterval,
		logger:       log,
		tracer:       otel.Tracer(tracerName),
	}, nil
}

// Address returns the signing account.
func (s *Sender) Address() common.Address {
	return s.address
}

// Send signs req with the next pending nonce and broadcasts it.
func (s *Sender) Send(ctx context.Context, req domain.TxRequest) (common.Hash, error) {
	ctx, span := s.tracer.Start(ctx, "tx.send",
		trace.WithAttributes(attribute.String("to", req.To.Hex())),
	)
	defer span.End()

	s.mu.Lock()
	defer s.mu.Unlock()

	nonce, err := s.backend.PendingNonceAt(ctx, s.address)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "nonce failed")
		return common.Hash{}, apperror.External(apperror.CodeRPCError, "pending nonce", err)
	}

	signed, err := s.sign(req, nonce)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "sign failed")
		return common.Hash{}, err
	}

	if err := s.backend.SendTransaction(ctx, signed); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "broadcast failed")
		if isRevert(err) {
			return common.Hash{}, apperror.Reverted("broadcast", err)
		}
		return common.Hash{}, apperror.External(apperror.CodeSubmissionFailed, signed.Hash().Hex(), err)
	}

	span.SetAttributes(attribute.String("tx_hash", signed.Hash().Hex()), attribute.Int64("nonce", int64(nonce)))
	span.SetStatus(codes.Ok, "sent")
	return signed.Hash(), nil
}

func (s *Sender) sign(req domain.TxRequest, nonce uint64) (*types.Transaction, error) {
	if req.Fees == nil {
		return nil, apperror.New(apperror.CodeSigningFailed, apperror.WithContext("missing fee quote"))
	}

	value := req.Value
	if value == nil {
		value = new(big.Int)
	}

	to := req.To
	tx := types.NewTx(&types.DynamicFeeTx{
		ChainID:   s.signer.ChainID(),
		Nonce:     nonce,
		GasTipCap: req.Fees.TipCap,
		GasFeeCap: req.Fees.FeeCap,
		Gas:       req.GasLimit,
		To:        &to,
		Value:     value,
		Data:      req.Data,
	})

	signed, err := types.SignTx(tx, s.signer, s.key)
	if err != nil {
		return nil, apperror.New(apperror.CodeSigningFailed, apperror.WithCause(err))
	}
	return signed, nil
}

// WaitReceipt polls until the transaction is included or ctx is done.
func (s *Sender) WaitReceipt(ctx context.Context, hash common.Hash) (*domain.Receipt, error) {
	ctx, span := s.tracer.Start(ctx, "tx.wait_receipt",
		trace.WithAttributes(attribute.String("tx_hash", hash.Hex())),
	)
	defer span.End()

	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()

	for {
		receipt, err := s.backend.TransactionReceipt(ctx, hash)
		switch {
		case err == nil:
			span.SetAttributes(attribute.Int64("status", int64(receipt.Status)))
			return &domain.Receipt{
				TxHash:      hash,
				BlockNumber: receipt.BlockNumber.Uint64(),
				GasUsed:     receipt.GasUsed,
				Succeeded:   receipt.Status == types.ReceiptStatusSuccessful,
			}, nil
		case !errors.Is(err, ethereum.NotFound):
			s.logger.Warn(ctx, "receipt lookup failed", "tx_hash", hash.Hex(), "error", err)
		}

		select {
		case <-ctx.Done():
			span.SetStatus(codes.Error, "timeout")
			return nil, apperror.New(apperror.CodeReceiptTimeout,
				apperror.WithCause(ctx.Err()),
				apperror.WithContext(hash.Hex()))
		case <-ticker.C:
		}
	}
}
