// Package ethereum provides EVM chain infrastructure adapters.
package ethereum

import (
	"context"
	"errors"
	"math/big"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/sony/gobreaker/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/fd1az/poolctl/business/blockchain/domain"
	"github.com/fd1az/poolctl/internal/apperror"
	"github.com/fd1az/poolctl/internal/circuitbreaker"
	"github.com/fd1az/poolctl/internal/logger"
)

const (
	tracerName = "github.com/fd1az/poolctl/business/blockchain/infra/ethereum"
	meterName  = "github.com/fd1az/poolctl/business/blockchain/infra/ethereum"
)

// HeadBackend reads the latest header over HTTP.
type HeadBackend interface {
	HeaderByNumber(ctx context.Context, number *big.Int) (*types.Header, error)
}

// SubscriberConfig holds configuration for the head subscriber.
type SubscriberConfig struct {
	WSURL        string        // optional push endpoint
	PollInterval time.Duration // HTTP polling interval
	BufferSize   int           // block channel buffer size
}

// DefaultSubscriberConfig returns sensible defaults.
func DefaultSubscriberConfig(wsURL string, poll time.Duration) SubscriberConfig {
	if poll <= 0 {
		poll = 4 * time.Second
	}
	return SubscriberConfig{
		WSURL:        wsURL,
		PollInterval: poll,
		BufferSize:   16,
	}
}

type subscriberMetrics struct {
	blocksReceived   metric.Int64Counter
	subscribeErrors  metric.Int64Counter
	httpFallbackUsed metric.Int64Counter
}

// Subscriber streams chain heads over WebSocket when available and falls
// back to HTTP polling when the push subscription cannot be held.
type Subscriber struct {
	config  SubscriberConfig
	backend HeadBackend
	logger  logger.LoggerInterface

	state     domain.ConnectionState
	stateMu   sync.RWMutex
	lastBlock atomic.Uint64

	cb *circuitbreaker.CircuitBreaker[*types.Header]

	tracer  trace.Tracer
	metrics *subscriberMetrics
}

// NewSubscriber creates a new head subscriber polling through backend.
func NewSubscriber(cfg SubscriberConfig, backend HeadBackend, log logger.LoggerInterface) (*Subscriber, error) {
	s := &Subscriber{
		config:  cfg,
		backend: backend,
		logger:  log,
		state:   domain.StateDisconnected,
		tracer:  otel.Tracer(tracerName),
	}

	if err := s.initMetrics(); err != nil {
		return nil, err
	}

	cbCfg := circuitbreaker.DefaultConfig("head-poll")
	cbCfg.OnStateChange = func(name string, from, to gobreaker.State) {
		s.logger.Info(context.Background(), "circuit breaker state change",
			"breaker", name, "from", from.String(), "to", to.String())
	}
	s.cb = circuitbreaker.New[*types.Header](cbCfg)

	return s, nil
}

func (s *Subscriber) initMetrics() error {
	meter := otel.Meter(meterName)
	var err error

	s.metrics = &subscriberMetrics{}

	s.metrics.blocksReceived, err = meter.Int64Counter(
		"blocks_received_total",
		metric.WithDescription("Total chain heads received"),
		metric.WithUnit("{block}"),
	)
	if err != nil {
		return err
	}

	s.metrics.subscribeErrors, err = meter.Int64Counter(
		"head_subscribe_errors_total",
		metric.WithDescription("Total head subscription errors"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		return err
	}

	s.metrics.httpFallbackUsed, err = meter.Int64Counter(
		"head_http_fallback_total",
		metric.WithDescription("Times HTTP polling fallback was used"),
		metric.WithUnit("{fallback}"),
	)
	return err
}

// Subscribe streams new heads until ctx is done, then closes the channel.
func (s *Subscriber) Subscribe(ctx context.Context) (<-chan *domain.Block, error) {
	s.setState(domain.StateConnecting)
	blocks := make(chan *domain.Block, s.config.BufferSize)

	go func() {
		defer close(blocks)
		defer s.setState(domain.StateDisconnected)

		if s.config.WSURL != "" {
			if err := s.runWS(ctx, blocks); err != nil && ctx.Err() == nil {
				s.logger.Warn(ctx, "ws head subscription lost, polling over http", "error", err)
				s.metrics.subscribeErrors.Add(ctx, 1)
			}
			if ctx.Err() != nil {
				return
			}
			s.metrics.httpFallbackUsed.Add(ctx, 1)
		}

		s.runPoller(ctx, blocks)
	}()

	return blocks, nil
}

// runWS holds a push subscription until it fails or ctx is done.
func (s *Subscriber) runWS(ctx context.Context, out chan<- *domain.Block) error {
	client, err := ethclient.DialContext(ctx, s.config.WSURL)
	if err != nil {
		return err
	}
	defer client.Close()

	headers := make(chan *types.Header, s.config.BufferSize)
	sub, err := client.SubscribeNewHead(ctx, headers)
	if err != nil {
		return err
	}
	defer sub.Unsubscribe()

	s.setState(domain.StateConnected)
	s.logger.Info(ctx, "subscribed to new heads via ws")

	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-sub.Err():
			return err
		case header := <-headers:
			if header != nil {
				s.emit(ctx, header, out)
			}
		}
	}
}

func (s *Subscriber) runPoller(ctx context.Context, out chan<- *domain.Block) {
	s.setState(domain.StatePolling)
	s.logger.Info(ctx, "polling heads over http", "interval", s.config.PollInterval)

	ticker := time.NewTicker(s.config.PollInterval)
	defer ticker.Stop()

	for {
		s.poll(ctx, out)

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (s *Subscriber) poll(ctx context.Context, out chan<- *domain.Block) {
	header, err := s.cb.Execute(func() (*types.Header, error) {
		return s.backend.HeaderByNumber(ctx, nil)
	})
	if err != nil {
		if ctx.Err() == nil {
			s.logger.Warn(ctx, "head poll failed", "error", err)
			s.metrics.subscribeErrors.Add(ctx, 1)
		}
		return
	}

	if header.Number.Uint64() <= s.lastBlock.Load() {
		return
	}
	s.emit(ctx, header, out)
}

// emit forwards a head without blocking; slow consumers drop heads since
// only the newest state matters.
func (s *Subscriber) emit(ctx context.Context, header *types.Header, out chan<- *domain.Block) {
	block := headerToBlock(header)
	s.lastBlock.Store(block.Number)

	select {
	case out <- block:
		s.metrics.blocksReceived.Add(ctx, 1)
	default:
		s.logger.Warn(ctx, "block dropped, buffer full", "number", block.Number)
	}
}

func headerToBlock(header *types.Header) *domain.Block {
	return &domain.Block{
		Number:    header.Number.Uint64(),
		Hash:      header.Hash(),
		Timestamp: time.Unix(int64(header.Time), 0),
		BaseFee:   header.BaseFee,
	}
}

// LatestBlock retrieves the most recent block.
func (s *Subscriber) LatestBlock(ctx context.Context) (*domain.Block, error) {
	ctx, span := s.tracer.Start(ctx, "eth.latest_block")
	defer span.End()

	header, err := s.cb.Execute(func() (*types.Header, error) {
		return s.backend.HeaderByNumber(ctx, nil)
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "fetch failed")
		if errors.Is(err, gobreaker.ErrOpenState) {
			return nil, apperror.External(apperror.CodeCircuitOpen, "latest block", err)
		}
		return nil, apperror.External(apperror.CodeBlockNotFound, "latest block", err)
	}

	span.SetAttributes(attribute.Int64("block_number", header.Number.Int64()))
	return headerToBlock(header), nil
}

// State returns the current connection state.
func (s *Subscriber) State() domain.ConnectionState {
	s.stateMu.RLock()
	defer s.stateMu.RUnlock()
	return s.state
}

func (s *Subscriber) setState(state domain.ConnectionState) {
	s.stateMu.Lock()
	s.state = state
	s.stateMu.Unlock()
}

