// Package app contains the pool use cases: request builders, the submission
// service and the block-driven price watcher.
package app

import (
	"context"
	"errors"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	blockchainDomain "github.com/fd1az/poolctl/business/blockchain/domain"
	"github.com/fd1az/poolctl/business/pool/domain"
	"github.com/fd1az/poolctl/internal/apm"
	"github.com/fd1az/poolctl/internal/apperror"
	"github.com/fd1az/poolctl/internal/asset"
	"github.com/fd1az/poolctl/internal/logger"
)

const meterName = "github.com/fd1az/poolctl/business/pool"

// ServiceConfig holds the pool service settings.
type ServiceConfig struct {
	Pool     common.Address
	Account  common.Address // signing account; default recipient and share holder
	GasLimit uint64         // used to bound the network fee shown in quotes
}

// SwapInput is a swap intent as entered by the user.
type SwapInput struct {
	To         common.Address // zero means the signing account
	BuyA       bool
	BuyAmount  decimal.Decimal
	SellAmount decimal.Decimal
	Tolerance  decimal.Decimal
	Force      bool // skip the reference price guard
}

// WithdrawInput is a withdraw intent as entered by the user.
type WithdrawInput struct {
	To           common.Address
	SharePercent decimal.Decimal
	Tolerance    decimal.Decimal
	Force        bool
}

// SwapQuote previews a swap against the current reserves.
type SwapQuote struct {
	Tokens   *Tokens
	Reserves domain.Reserves
	Spot     domain.Price
	Rate     asset.Price // token A in token B, decimals-normalised
	Buy      asset.Amount
	AtSpot   asset.Amount // what Buy costs at the spot rate, before price impact
	MaxSold  asset.Amount
	Fee      *blockchainDomain.GasCost // nil when fees could not be quoted
	Request  *domain.SwapRequest
}

// WithdrawQuote previews a withdrawal against the current reserves.
type WithdrawQuote struct {
	Block     uint64 // state the quote was read at
	Tokens    *Tokens
	Reserves  domain.Reserves
	Position  domain.SharePosition
	Shares    asset.Amount
	ExpectedA asset.Amount
	ExpectedB asset.Amount
	MinA      asset.Amount
	MinB      asset.Amount
	Fee       *blockchainDomain.GasCost
	Request   *domain.WithdrawRequest
}

// Result is the outcome of a submission.
type Result struct {
	Submission *domain.Submission
	Outcome    *domain.Outcome
}

type serviceMetrics struct {
	submissions metric.Int64Counter
	rejections  metric.Int64Counter
}

// Service reads a fresh pool snapshot, builds the request and submits it.
// Every submission rebuilds from state read in the same call; a reverted
// request is never resubmitted with the same bounds.
type Service struct {
	reader  PoolReader
	invoker PoolInvoker
	guard   PriceGuard
	journal Journal
	fees    FeeSource
	cfg     ServiceConfig
	log     logger.LoggerInterface
	tracer  apm.Tracer
	metrics *serviceMetrics
}

// NewService creates a new pool Service. guard, journal and fees may be nil.
func NewService(reader PoolReader, invoker PoolInvoker, guard PriceGuard, journal Journal, fees FeeSource, cfg ServiceConfig, log logger.LoggerInterface) (*Service, error) {
	s := &Service{
		reader:  reader,
		invoker: invoker,
		guard:   guard,
		journal: journal,
		fees:    fees,
		cfg:     cfg,
		log:     log,
		tracer:  apm.NewTracer("pool.app"),
	}

	meter := otel.Meter(meterName)
	m := &serviceMetrics{}
	var err error
	m.submissions, err = meter.Int64Counter(
		"pool_submissions_total",
		metric.WithDescription("Pool invocations by kind and final status"),
		metric.WithUnit("{submission}"),
	)
	if err != nil {
		return nil, err
	}
	m.rejections, err = meter.Int64Counter(
		"pool_rejections_total",
		metric.WithDescription("Requests refused before submission, by error code"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, err
	}
	s.metrics = m

	return s, nil
}

// Account returns the configured signing account.
func (s *Service) Account() common.Address {
	return s.cfg.Account
}

// Tokens returns the pool token metadata.
func (s *Service) Tokens(ctx context.Context) (*Tokens, error) {
	return s.reader.Tokens(ctx)
}

// SpotPrice reads the reserves and prices them.
func (s *Service) SpotPrice(ctx context.Context) (domain.Reserves, domain.Price, error) {
	r, err := s.reader.Reserves(ctx)
	if err != nil {
		return domain.Reserves{}, domain.Price{}, err
	}
	p, err := domain.SpotPrice(r)
	return r, p, err
}

// QuoteSwap builds a swap request from fresh state without submitting it.
func (s *Service) QuoteSwap(ctx context.Context, in SwapInput) (*SwapQuote, error) {
	ctx, span := s.tracer.StartSpanFromContext(ctx, "pool.quote_swap")
	defer span.End()

	q, err := s.quoteSwap(ctx, in)
	if err != nil {
		span.NoticeError(err)
		return nil, err
	}
	return q, nil
}

func (s *Service) quoteSwap(ctx context.Context, in SwapInput) (*SwapQuote, error) {
	tokens, err := s.reader.Tokens(ctx)
	if err != nil {
		return nil, err
	}
	reserves, spot, err := s.SpotPrice(ctx)
	if err != nil {
		return nil, err
	}

	buy, sell := tokens.B, tokens.A
	if in.BuyA {
		buy, sell = tokens.A, tokens.B
	}

	req, err := BuildSwap(SwapParams{
		To:         s.recipient(in.To),
		Buy:        buy,
		TokenA:     tokens.A,
		TokenB:     tokens.B,
		BuyAmount:  in.BuyAmount,
		SellAmount: in.SellAmount,
		Tolerance:  in.Tolerance,
	})
	if err != nil {
		return nil, err
	}

	rate, err := asset.NewPriceFromReserves(tokens.A, tokens.B, reserves.A, reserves.B, time.Now())
	if err != nil {
		return nil, apperror.Wrap(err, apperror.CodeDegenerateReserves, "normalising spot rate")
	}

	bought := asset.NewAmount(buy, req.Out())
	toSell := rate
	if !rate.Base().Equals(buy) {
		toSell = rate.Invert()
	}
	atSpot, err := toSell.Convert(bought)
	if err != nil {
		return nil, apperror.Internal(apperror.CodeInternalError, "pricing swap at spot", err)
	}

	q := &SwapQuote{
		Tokens:   tokens,
		Reserves: reserves,
		Spot:     spot,
		Rate:     rate,
		Buy:      bought,
		AtSpot:   atSpot,
		MaxSold:  asset.NewAmount(sell, req.InMax()),
		Fee:      s.networkFee(ctx),
		Request:  req,
	}
	if c, err := q.AtSpot.Cmp(q.MaxSold); err == nil && c > 0 {
		s.log.Warn(ctx, "max sold is below the cost at spot; the swap will likely revert",
			"at_spot", q.AtSpot.String(),
			"max_sold", q.MaxSold.String())
	}
	return q, nil
}

// Swap quotes, checks the reference price unless forced, and submits.
func (s *Service) Swap(ctx context.Context, in SwapInput) (*Result, error) {
	ctx, span := s.tracer.StartSpanFromContext(ctx, "pool.swap")
	defer span.End()

	q, err := s.quoteSwap(ctx, in)
	if err != nil {
		s.reject(ctx, domain.KindSwap, err)
		span.NoticeError(err)
		return nil, err
	}
	if err := s.checkGuard(ctx, q.Rate.Rate(), in.Force); err != nil {
		s.reject(ctx, domain.KindSwap, err)
		span.NoticeError(err)
		return nil, err
	}

	sub := domain.NewSubmission(domain.KindSwap, s.cfg.Pool.Hex(), s.cfg.Account.Hex())
	sub.SwapArgs(q.Request)
	sub.SpotAInB = q.Spot.Rounded().AInB.String()
	span.SetAttributes(attribute.String("submission_id", sub.ID.String()))

	s.log.Info(ctx, "submitting swap",
		"submission_id", sub.ID.String(),
		"buy", q.Buy.String(),
		"max_sold", q.MaxSold.String(),
		"request", q.Request.String())

	outcome, err := s.invoker.Swap(ctx, q.Request)
	return s.settle(ctx, sub, outcome, err)
}

// QuoteWithdraw builds a withdraw request from fresh state without submitting it.
func (s *Service) QuoteWithdraw(ctx context.Context, in WithdrawInput) (*WithdrawQuote, error) {
	ctx, span := s.tracer.StartSpanFromContext(ctx, "pool.quote_withdraw")
	defer span.End()

	q, err := s.quoteWithdraw(ctx, in)
	if err != nil {
		span.NoticeError(err)
		return nil, err
	}
	return q, nil
}

func (s *Service) quoteWithdraw(ctx context.Context, in WithdrawInput) (*WithdrawQuote, error) {
	tokens, err := s.reader.Tokens(ctx)
	if err != nil {
		return nil, err
	}
	snap, err := s.reader.Snapshot(ctx, s.cfg.Account)
	if err != nil {
		return nil, err
	}
	reserves, position := snap.Reserves, snap.Position

	req, err := BuildWithdraw(WithdrawParams{
		To:           s.recipient(in.To),
		Position:     position,
		Reserves:     reserves,
		SharePercent: in.SharePercent,
		Tolerance:    in.Tolerance,
		Share:        tokens.Share,
		TokenA:       tokens.A,
		TokenB:       tokens.B,
	})
	if err != nil {
		return nil, err
	}

	expA, expB := ExpectedWithdraw(position, reserves, req.ShareAmount())

	return &WithdrawQuote{
		Block:     snap.Block,
		Tokens:    tokens,
		Reserves:  reserves,
		Position:  position,
		Shares:    asset.NewAmount(tokens.Share, req.ShareAmount()),
		ExpectedA: asset.NewAmount(tokens.A, expA),
		ExpectedB: asset.NewAmount(tokens.B, expB),
		MinA:      asset.NewAmount(tokens.A, req.MinA()),
		MinB:      asset.NewAmount(tokens.B, req.MinB()),
		Fee:       s.networkFee(ctx),
		Request:   req,
	}, nil
}

// Withdraw quotes, checks the reference price unless forced, and submits.
func (s *Service) Withdraw(ctx context.Context, in WithdrawInput) (*Result, error) {
	ctx, span := s.tracer.StartSpanFromContext(ctx, "pool.withdraw")
	defer span.End()

	q, err := s.quoteWithdraw(ctx, in)
	if err != nil {
		s.reject(ctx, domain.KindWithdraw, err)
		span.NoticeError(err)
		return nil, err
	}

	sub := domain.NewSubmission(domain.KindWithdraw, s.cfg.Pool.Hex(), s.cfg.Account.Hex())
	sub.WithdrawArgs(q.Request)

	if rate, err := asset.NewPriceFromReserves(q.Tokens.A, q.Tokens.B, q.Reserves.A, q.Reserves.B, time.Now()); err == nil {
		sub.SpotAInB = rate.Rate().String()
		if err := s.checkGuard(ctx, rate.Rate(), in.Force); err != nil {
			s.reject(ctx, domain.KindWithdraw, err)
			span.NoticeError(err)
			return nil, err
		}
	}
	span.SetAttributes(attribute.String("submission_id", sub.ID.String()))

	s.log.Info(ctx, "submitting withdraw",
		"submission_id", sub.ID.String(),
		"shares", q.Shares.String(),
		"min_a", q.MinA.String(),
		"min_b", q.MinB.String(),
		"request", q.Request.String())

	outcome, err := s.invoker.Withdraw(ctx, q.Request)
	return s.settle(ctx, sub, outcome, err)
}

// networkFee bounds the fee of a pool call. Quotes stay usable without it.
func (s *Service) networkFee(ctx context.Context) *blockchainDomain.GasCost {
	if s.fees == nil || s.cfg.GasLimit == 0 {
		return nil
	}
	q, err := s.fees.FeeQuote(ctx)
	if err != nil {
		s.log.Warn(ctx, "fee quote unavailable", "error", err)
		return nil
	}
	return q.MaxCost(s.cfg.GasLimit)
}

func (s *Service) recipient(to common.Address) common.Address {
	if to == (common.Address{}) {
		return s.cfg.Account
	}
	return to
}

func (s *Service) checkGuard(ctx context.Context, aInB decimal.Decimal, force bool) error {
	if s.guard == nil {
		return nil
	}
	if force {
		s.log.Warn(ctx, "reference price guard skipped", "pool_a_in_b", aInB.String())
		return nil
	}
	return s.guard.CheckSpot(ctx, aInB)
}

func (s *Service) reject(ctx context.Context, kind domain.Kind, err error) {
	s.metrics.rejections.Add(ctx, 1, metric.WithAttributes(
		attribute.String("kind", string(kind)),
		attribute.String("code", string(apperror.GetCode(err))),
	))
}

// settle classifies the invocation result, journals it and returns it.
func (s *Service) settle(ctx context.Context, sub *domain.Submission, outcome *domain.Outcome, err error) (*Result, error) {
	res := &Result{Submission: sub, Outcome: outcome}
	if outcome != nil {
		sub.TxHash = outcome.TxHash
		sub.Block = outcome.Block
	}

	switch {
	case err == nil:
		sub.Status = domain.StatusConfirmed
	case apperror.Is(err, apperror.CodeExecutionReverted):
		sub.Status = domain.StatusReverted
		sub.Error = err.Error()
	default:
		sub.Status = domain.StatusFailed
		sub.Error = err.Error()
	}

	s.metrics.submissions.Add(ctx, 1, metric.WithAttributes(
		attribute.String("kind", string(sub.Kind)),
		attribute.String("status", string(sub.Status)),
	))

	if s.journal != nil {
		if jerr := s.journal.Record(ctx, sub); jerr != nil {
			s.log.Error(ctx, "failed to journal submission", "submission_id", sub.ID.String(), "error", jerr)
		}
	}

	if err != nil {
		s.log.Warn(ctx, "submission not confirmed",
			"submission_id", sub.ID.String(),
			"status", string(sub.Status),
			"error", err)
		return res, err
	}

	s.log.Info(ctx, "submission confirmed",
		"submission_id", sub.ID.String(),
		"tx_hash", sub.TxHash,
		"block", sub.Block)
	return res, nil
}

// IsRetryable reports whether err may clear after re-reading pool state.
// The caller decides whether to retry; the service never does.
func IsRetryable(err error) bool {
	var appErr *apperror.AppError
	if !errors.As(err, &appErr) {
		return false
	}
	return apperror.RequiresRefetch(appErr.Code)
}
