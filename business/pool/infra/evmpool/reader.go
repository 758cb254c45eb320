package evmpool

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/sony/gobreaker/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/fd1az/poolctl/business/pool/app"
	"github.com/fd1az/poolctl/business/pool/domain"
	"github.com/fd1az/poolctl/internal/apperror"
	"github.com/fd1az/poolctl/internal/asset"
	"github.com/fd1az/poolctl/internal/cache"
	"github.com/fd1az/poolctl/internal/circuitbreaker"
	"github.com/fd1az/poolctl/internal/logger"
)

const (
	tracerName = "github.com/fd1az/poolctl/business/pool/infra/evmpool"
	meterName  = "github.com/fd1az/poolctl/business/pool/infra/evmpool"
)

// Ensure Reader implements PoolReader.
var _ app.PoolReader = (*Reader)(nil)

// ContractCaller is the subset of ethclient.Client the reader needs.
type ContractCaller interface {
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
	BlockNumber(ctx context.Context) (uint64, error)
}

// ReaderConfig holds configuration for the pool reader.
type ReaderConfig struct {
	ChainID     uint64
	Pool        common.Address
	TokenA      common.Address
	TokenB      common.Address
	CallTimeout time.Duration
	MetadataTTL time.Duration // token metadata never changes in practice
}

type readerMetrics struct {
	calls     metric.Int64Counter
	callErrs  metric.Int64Counter
	latencyMs metric.Float64Histogram
}

// Reader reads pool state through eth_call.
type Reader struct {
	cfg      ReaderConfig
	caller   ContractCaller
	poolABI  abi.ABI
	tokenABI abi.ABI
	registry *asset.Registry
	tokens   *cache.Cache[string, *app.Tokens]
	cb       *circuitbreaker.CircuitBreaker[[]byte]
	logger   logger.LoggerInterface

	tracer  trace.Tracer
	metrics *readerMetrics
}

// NewReader creates a new pool Reader.
func NewReader(cfg ReaderConfig, caller ContractCaller, registry *asset.Registry, log logger.LoggerInterface) (*Reader, error) {
	poolABI, err := abi.JSON(strings.NewReader(PoolABI))
	if err != nil {
		return nil, fmt.Errorf("failed to parse pool ABI: %w", err)
	}
	tokenABI, err := abi.JSON(strings.NewReader(TokenABI))
	if err != nil {
		return nil, fmt.Errorf("failed to parse token ABI: %w", err)
	}
	if cfg.MetadataTTL <= 0 {
		cfg.MetadataTTL = time.Hour
	}
	if registry == nil {
		registry = asset.NewRegistry()
	}

	r := &Reader{
		cfg:      cfg,
		caller:   caller,
		poolABI:  poolABI,
		tokenABI: tokenABI,
		registry: registry,
		tokens:   cache.New[string, *app.Tokens](10 * time.Minute),
		cb:       circuitbreaker.New[[]byte](circuitbreaker.DefaultConfig("pool-reader")),
		logger:   log,
		tracer:   otel.Tracer(tracerName),
	}

	if err := r.initMetrics(); err != nil {
		return nil, fmt.Errorf("failed to init metrics: %w", err)
	}
	return r, nil
}

func (r *Reader) initMetrics() error {
	meter := otel.Meter(meterName)
	var err error

	r.metrics = &readerMetrics{}

	r.metrics.calls, err = meter.Int64Counter(
		"pool_contract_calls_total",
		metric.WithDescription("Total read calls against the pool and its tokens"),
		metric.WithUnit("{call}"),
	)
	if err != nil {
		return err
	}

	r.metrics.callErrs, err = meter.Int64Counter(
		"pool_contract_call_errors_total",
		metric.WithDescription("Failed read calls"),
		metric.WithUnit("{call}"),
	)
	if err != nil {
		return err
	}

	r.metrics.latencyMs, err = meter.Float64Histogram(
		"pool_contract_call_latency_ms",
		metric.WithDescription("Read call latency in milliseconds"),
		metric.WithUnit("ms"),
	)
	return err
}

// Tokens returns metadata for token A, token B and the share token.
// The result is cached; each asset is deduplicated through the registry.
func (r *Reader) Tokens(ctx context.Context) (*app.Tokens, error) {
	if t, ok := r.tokens.Get(ctx, "tokens"); ok {
		return t, nil
	}

	ctx, span := r.tracer.Start(ctx, "pool.tokens")
	defer span.End()

	out, err := r.call(ctx, r.poolABI, r.cfg.Pool, methodShareID)
	if err != nil {
		return nil, r.fail(span, err)
	}
	shareID, ok := out[0].(common.Address)
	if !ok {
		return nil, r.fail(span, invalidData(methodShareID, out[0]))
	}

	a, err := r.token(ctx, r.cfg.TokenA)
	if err != nil {
		return nil, r.fail(span, err)
	}
	b, err := r.token(ctx, r.cfg.TokenB)
	if err != nil {
		return nil, r.fail(span, err)
	}
	share, err := r.token(ctx, shareID)
	if err != nil {
		return nil, r.fail(span, err)
	}

	t := &app.Tokens{A: a, B: b, Share: share}
	r.tokens.Set(ctx, "tokens", t, r.cfg.MetadataTTL)

	r.logger.Info(ctx, "pool tokens resolved",
		"token_a", a.Symbol(), "decimals_a", a.Decimals(),
		"token_b", b.Symbol(), "decimals_b", b.Decimals(),
		"share", share.Address().Hex())
	return t, nil
}

func (r *Reader) token(ctx context.Context, addr common.Address) (*asset.Asset, error) {
	if a, ok := r.registry.GetToken(r.cfg.ChainID, addr); ok {
		return a, nil
	}

	out, err := r.call(ctx, r.tokenABI, addr, methodDecimals)
	if err != nil {
		return nil, err
	}
	decimals, ok := out[0].(uint32)
	if !ok {
		return nil, invalidData(methodDecimals, out[0])
	}

	out, err = r.call(ctx, r.tokenABI, addr, methodSymbol)
	if err != nil {
		return nil, err
	}
	symbol, _ := out[0].(string)

	a, err := asset.NewToken(r.cfg.ChainID, addr, symbol, decimals)
	if err != nil {
		return nil, apperror.New(apperror.CodeInvalidContractData, apperror.WithCause(err), apperror.WithContext(addr.Hex()))
	}
	return r.registry.GetOrRegister(a), nil
}

// Reserves returns the pool's current raw reserves.
func (r *Reader) Reserves(ctx context.Context) (domain.Reserves, error) {
	ctx, span := r.tracer.Start(ctx, "pool.reserves")
	defer span.End()

	reserves, err := r.reserves(ctx, nil)
	if err != nil {
		return domain.Reserves{}, r.fail(span, err)
	}
	return reserves, nil
}

// Snapshot reads the reserves and the account's share position at a single
// block, so a withdrawal is sized against one consistent pool state.
func (r *Reader) Snapshot(ctx context.Context, account common.Address) (*app.Snapshot, error) {
	ctx, span := r.tracer.Start(ctx, "pool.snapshot",
		trace.WithAttributes(attribute.String("account", account.Hex())))
	defer span.End()

	head, err := r.caller.BlockNumber(ctx)
	if err != nil {
		return nil, r.fail(span, apperror.External(apperror.CodeRPCError, "block number", err))
	}
	at := new(big.Int).SetUint64(head)
	span.SetAttributes(attribute.Int64("block", int64(head)))

	reserves, err := r.reserves(ctx, at)
	if err != nil {
		return nil, r.fail(span, err)
	}
	position, err := r.position(ctx, at, account)
	if err != nil {
		return nil, r.fail(span, err)
	}

	return &app.Snapshot{Block: head, Reserves: reserves, Position: position}, nil
}

func (r *Reader) reserves(ctx context.Context, at *big.Int) (domain.Reserves, error) {
	out, err := r.callAt(ctx, at, r.poolABI, r.cfg.Pool, methodReserves)
	if err != nil {
		return domain.Reserves{}, err
	}
	a, okA := out[0].(*big.Int)
	b, okB := out[1].(*big.Int)
	if !okA || !okB {
		return domain.Reserves{}, invalidData(methodReserves, out)
	}

	trace.SpanFromContext(ctx).SetAttributes(
		attribute.String("reserve_a", a.String()),
		attribute.String("reserve_b", b.String()),
	)
	return domain.NewReserves(a, b), nil
}

func (r *Reader) position(ctx context.Context, at *big.Int, account common.Address) (domain.SharePosition, error) {
	tokens, err := r.Tokens(ctx)
	if err != nil {
		return domain.SharePosition{}, err
	}

	out, err := r.callAt(ctx, at, r.poolABI, r.cfg.Pool, methodShares)
	if err != nil {
		return domain.SharePosition{}, err
	}
	total, ok := out[0].(*big.Int)
	if !ok {
		return domain.SharePosition{}, invalidData(methodShares, out[0])
	}

	out, err = r.callAt(ctx, at, r.tokenABI, tokens.Share.Address(), methodBalance, account)
	if err != nil {
		return domain.SharePosition{}, err
	}
	balance, ok := out[0].(*big.Int)
	if !ok {
		return domain.SharePosition{}, invalidData(methodBalance, out[0])
	}

	return domain.NewSharePosition(balance, total), nil
}

// Close releases the metadata cache.
func (r *Reader) Close() {
	r.tokens.Close()
}

// call reads at the latest block.
func (r *Reader) call(ctx context.Context, contract abi.ABI, to common.Address, method string, args ...any) ([]any, error) {
	return r.callAt(ctx, nil, contract, to, method, args...)
}

// callAt packs, executes through the circuit breaker and unpacks a read at
// block at, or the latest block when at is nil.
func (r *Reader) callAt(ctx context.Context, at *big.Int, contract abi.ABI, to common.Address, method string, args ...any) ([]any, error) {
	data, err := contract.Pack(method, args...)
	if err != nil {
		return nil, apperror.Internal(apperror.CodeInternalError, "pack "+method, err)
	}

	if r.cfg.CallTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.cfg.CallTimeout)
		defer cancel()
	}

	start := time.Now()
	attrs := metric.WithAttributes(attribute.String("method", method))
	r.metrics.calls.Add(ctx, 1, attrs)

	raw, err := r.cb.Execute(func() ([]byte, error) {
		return r.caller.CallContract(ctx, ethereum.CallMsg{To: &to, Data: data}, at)
	})
	r.metrics.latencyMs.Record(ctx, float64(time.Since(start).Milliseconds()), attrs)
	if err != nil {
		r.metrics.callErrs.Add(ctx, 1, attrs)
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, apperror.External(apperror.CodeCircuitOpen, "pool reader", err)
		}
		return nil, apperror.External(apperror.CodeContractCallFailed, fmt.Sprintf("%s on %s", method, to.Hex()), err)
	}

	out, err := contract.Unpack(method, raw)
	if err != nil {
		return nil, apperror.New(apperror.CodeInvalidContractData, apperror.WithCause(err), apperror.WithContext(method))
	}
	if len(out) == 0 {
		return nil, invalidData(method, out)
	}
	return out, nil
}

func (r *Reader) fail(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}

func invalidData(method string, got any) error {
	return apperror.New(apperror.CodeInvalidContractData, apperror.WithContext(fmt.Sprintf("%s returned %T", method, got)))
}
