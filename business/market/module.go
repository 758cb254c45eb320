// Package market implements the reference price guard bounded context.
package market

import (
	"context"

	"github.com/fd1az/poolctl/business/market/app"
	marketDI "github.com/fd1az/poolctl/business/market/di"
	"github.com/fd1az/poolctl/business/market/infra/binance"
	"github.com/fd1az/poolctl/internal/config"
	"github.com/fd1az/poolctl/internal/di"
	"github.com/fd1az/poolctl/internal/logger"
	"github.com/fd1az/poolctl/internal/monolith"
)

// Module implements the market bounded context.
type Module struct{}

// RegisterServices registers all market services with the DI container.
func (m *Module) RegisterServices(c di.Container) error {
	di.RegisterToken(c, marketDI.ReferenceProvider, func(sr di.ServiceRegistry) app.ReferenceProvider {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)

		client, err := binance.NewTickerClient(binance.TickerConfig{
			BaseURL:           cfg.Market.BaseURL,
			Timeout:           cfg.Market.Timeout,
			RequestsPerSecond: cfg.Market.RequestsPerSecond,
		}, log)
		if err != nil {
			panic("failed to create ticker client: " + err.Error())
		}
		return client
	})

	di.RegisterToken(c, marketDI.Guard, func(sr di.ServiceRegistry) *app.Guard {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)

		return app.NewGuard(marketDI.GetReferenceProvider(sr), app.GuardConfig{
			Enabled:         cfg.Market.Enabled,
			Symbol:          cfg.Market.Symbol,
			Inverted:        cfg.Market.Inverted,
			MaxDeviationBps: cfg.Market.MaxDeviationBpsDecimal(),
		}, log)
	})

	return nil
}

// Startup logs the guard configuration.
func (m *Module) Startup(ctx context.Context, mono monolith.Monolith) error {
	cfg := mono.Config().Market
	if !cfg.Enabled {
		mono.Logger().Info(ctx, "market guard disabled")
		return nil
	}

	mono.Logger().Info(ctx, "market guard enabled",
		"symbol", cfg.Symbol,
		"max_deviation_bps", cfg.MaxDeviationBps,
		"source", cfg.BaseURL)
	return nil
}
