package ethereum

import (
	"context"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/fd1az/poolctl/business/blockchain/domain"
	"github.com/fd1az/poolctl/internal/apperror"
	"github.com/fd1az/poolctl/internal/cache"
	"github.com/fd1az/poolctl/internal/circuitbreaker"
	"github.com/fd1az/poolctl/internal/logger"
)

// FeeBackend is the subset of ethclient.Client the gas oracle needs.
type FeeBackend interface {
	HeaderByNumber(ctx context.Context, number *big.Int) (*types.Header, error)
	SuggestGasTipCap(ctx context.Context) (*big.Int, error)
	EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error)
}

// GasOracleConfig holds configuration for the gas oracle.
type GasOracleConfig struct {
	CacheTTL  time.Duration // How long to cache fee quotes
	MaxFeeCap *big.Int      // Upper bound on the fee cap; nil or zero disables
}

// DefaultGasOracleConfig returns sensible defaults.
func DefaultGasOracleConfig() GasOracleConfig {
	return GasOracleConfig{
		CacheTTL: 6 * time.Second, // half a block
	}
}

type gasOracleMetrics struct {
	feeFetches  metric.Int64Counter
	feeCapGwei  metric.Float64Gauge
	estimateGas metric.Int64Counter
	cacheHits   metric.Int64Counter
}

type feeInputs struct {
	baseFee *big.Int
	tipCap  *big.Int
}

// GasOracle serves EIP-1559 fee quotes and gas estimates.
type GasOracle struct {
	config  GasOracleConfig
	backend FeeBackend
	logger  logger.LoggerInterface

	quotes *cache.Cache[string, *domain.FeeQuote]
	cb     *circuitbreaker.CircuitBreaker[feeInputs]

	tracer  trace.Tracer
	metrics *gasOracleMetrics
}

// NewGasOracle creates a new gas oracle instance.
func NewGasOracle(cfg GasOracleConfig, backend FeeBackend, log logger.LoggerInterface) (*GasOracle, error) {
	g := &GasOracle{
		config:  cfg,
		backend: backend,
		logger:  log,
		quotes:  cache.New[string, *domain.FeeQuote](time.Minute),
		cb:      circuitbreaker.New[feeInputs](circuitbreaker.DefaultConfig("gas-oracle")),
		tracer:  otel.Tracer(tracerName),
	}

	if err := g.initMetrics(); err != nil {
		return nil, err
	}

	return g, nil
}

func (g *GasOracle) initMetrics() error {
	meter := otel.Meter(meterName)
	var err error

	g.metrics = &gasOracleMetrics{}

	g.metrics.feeFetches, err = meter.Int64Counter(
		"fee_quote_fetches_total",
		metric.WithDescription("Total fee quote fetch attempts"),
		metric.WithUnit("{fetch}"),
	)
	if err != nil {
		return err
	}

	g.metrics.feeCapGwei, err = meter.Float64Gauge(
		"fee_cap_gwei",
		metric.WithDescription("Current fee cap in gwei"),
		metric.WithUnit("gwei"),
	)
	if err != nil {
		return err
	}

	g.metrics.estimateGas, err = meter.Int64Counter(
		"gas_estimate_total",
		metric.WithDescription("Total gas estimation calls"),
		metric.WithUnit("{estimate}"),
	)
	if err != nil {
		return err
	}

	g.metrics.cacheHits, err = meter.Int64Counter(
		"fee_cache_hits_total",
		metric.WithDescription("Fee quote cache hits"),
		metric.WithUnit("{hit}"),
	)
	return err
}

// FeeQuote retrieves the current fee parameters with caching.
func (g *GasOracle) FeeQuote(ctx context.Context) (*domain.FeeQuote, error) {
	ctx, span := g.tracer.Start(ctx, "gas.fee_quote")
	defer span.End()

	if quote, found := g.quotes.Get(ctx, "current"); found {
		g.metrics.cacheHits.Add(ctx, 1)
		span.AddEvent("cache_hit")
		return quote, nil
	}

	g.metrics.feeFetches.Add(ctx, 1)

	in, err := g.cb.Execute(func() (feeInputs, error) {
		head, err := g.backend.HeaderByNumber(ctx, nil)
		if err != nil {
			return feeInputs{}, err
		}
		tip, err := g.backend.SuggestGasTipCap(ctx)
		if err != nil {
			return feeInputs{}, err
		}
		return feeInputs{baseFee: head.BaseFee, tipCap: tip}, nil
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "fetch failed")
		return nil, apperror.External(apperror.CodeRPCError, "failed to fetch fee parameters", err)
	}

	quote := domain.NewFeeQuote(in.baseFee, in.tipCap, g.config.MaxFeeCap)
	g.quotes.Set(ctx, "current", quote, g.config.CacheTTL)

	gweiValue := quote.FeeCapGwei().InexactFloat64()
	g.metrics.feeCapGwei.Record(ctx, gweiValue)
	span.SetAttributes(attribute.Float64("fee_cap_gwei", gweiValue))
	span.SetStatus(codes.Ok, "fetched")

	return quote, nil
}

// EstimateGas estimates the gas needed for a call from -> to, adding a 10%
// margin. A call the node reports as reverting maps to EXECUTION_REVERTED.
func (g *GasOracle) EstimateGas(ctx context.Context, from, to common.Address, data []byte) (uint64, error) {
	ctx, span := g.tracer.Start(ctx, "gas.estimate",
		trace.WithAttributes(
			attribute.String("to", to.Hex()),
			attribute.Int("data_len", len(data)),
		),
	)
	defer span.End()

	g.metrics.estimateGas.Add(ctx, 1)

	gas, err := g.backend.EstimateGas(ctx, ethereum.CallMsg{From: from, To: &to, Data: data})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "estimate failed")
		if isRevert(err) {
			return 0, apperror.Reverted("gas estimation", err)
		}
		return 0, apperror.New(apperror.CodeGasEstimationFailed,
			apperror.WithCause(err),
			apperror.WithContext(to.Hex()))
	}

	gas += gas / 10

	span.SetAttributes(attribute.Int64("gas", int64(gas)))
	span.SetStatus(codes.Ok, "estimated")

	return gas, nil
}

// Close releases the quote cache.
func (g *GasOracle) Close() error {
	g.quotes.Close()
	return nil
}

// isRevert reports whether a node error describes contract execution failure.
func isRevert(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "execution reverted") || strings.Contains(msg, "revert")
}
