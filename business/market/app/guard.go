package app

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/fd1az/poolctl/business/market/domain"
	"github.com/fd1az/poolctl/internal/apperror"
	"github.com/fd1az/poolctl/internal/logger"
)

// GuardConfig configures the reference price guard.
type GuardConfig struct {
	Enabled         bool
	Symbol          string
	Inverted        bool // the ticker quotes token B in token A
	MaxDeviationBps decimal.Decimal
}

// Guard refuses submissions while the pool's spot rate strays too far from
// an external reference, which usually means stale or manipulated reserves.
type Guard struct {
	provider ReferenceProvider
	cfg      GuardConfig
	log      logger.LoggerInterface
}

// NewGuard creates a new Guard.
func NewGuard(provider ReferenceProvider, cfg GuardConfig, log logger.LoggerInterface) *Guard {
	return &Guard{provider: provider, cfg: cfg, log: log}
}

// Enabled reports whether the guard performs checks.
func (g *Guard) Enabled() bool {
	return g.cfg.Enabled
}

// Deviation fetches the reference and compares it to the pool rate of token A in token B.
func (g *Guard) Deviation(ctx context.Context, poolAInB decimal.Decimal) (*domain.Deviation, error) {
	ref, err := g.provider.ReferencePrice(ctx, g.cfg.Symbol)
	if err != nil {
		return nil, err
	}
	if g.cfg.Inverted {
		inv := ref.Invert()
		ref = &inv
	}
	if !ref.Rate.IsPositive() {
		return nil, apperror.External(apperror.CodeReferencePriceFailed,
			fmt.Sprintf("%s returned non-positive price %s", g.cfg.Symbol, ref.Rate), nil)
	}

	d := domain.CalculateDeviation(poolAInB, ref.Rate)
	return &d, nil
}

// CheckSpot returns PRICE_DEVIATION when the pool rate deviates from the
// reference by more than the configured threshold. Disabled guards pass.
func (g *Guard) CheckSpot(ctx context.Context, poolAInB decimal.Decimal) error {
	if !g.cfg.Enabled {
		return nil
	}

	d, err := g.Deviation(ctx, poolAInB)
	if err != nil {
		return err
	}

	g.log.Debug(ctx, "reference price check",
		"symbol", g.cfg.Symbol,
		"pool", d.PoolRate.String(),
		"reference", d.ReferenceRate.String(),
		"bps", d.BasisPoints.StringFixed(2))

	if d.Exceeds(g.cfg.MaxDeviationBps) {
		return apperror.New(apperror.CodePriceDeviation,
			apperror.WithContext(fmt.Sprintf("pool %s vs reference %s (%s bps, max %s)",
				d.PoolRate.String(), d.ReferenceRate.String(),
				d.BasisPoints.StringFixed(2), g.cfg.MaxDeviationBps.String())))
	}
	return nil
}
