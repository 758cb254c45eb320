// Package pool implements the liquidity pool bounded context: quoting,
// building and submitting swap and withdraw requests.
package pool

import (
	"context"
	"time"

	"github.com/ethereum/go-ethereum/ethclient"

	blockchainDI "github.com/fd1az/poolctl/business/blockchain/di"
	marketDI "github.com/fd1az/poolctl/business/market/di"
	"github.com/fd1az/poolctl/business/pool/app"
	poolDI "github.com/fd1az/poolctl/business/pool/di"
	"github.com/fd1az/poolctl/business/pool/infra/evmpool"
	"github.com/fd1az/poolctl/business/pool/infra/journal"
	"github.com/fd1az/poolctl/internal/asset"
	"github.com/fd1az/poolctl/internal/config"
	"github.com/fd1az/poolctl/internal/di"
	"github.com/fd1az/poolctl/internal/logger"
	"github.com/fd1az/poolctl/internal/monolith"
)

// Module implements the pool bounded context.
type Module struct{}

// RegisterServices registers all pool services with the DI container.
func (m *Module) RegisterServices(c di.Container) error {
	di.RegisterToken(c, poolDI.Reader, func(sr di.ServiceRegistry) app.PoolReader {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)
		client := sr.Get("ethClient").(*ethclient.Client)
		registry := sr.Get("assetRegistry").(*asset.Registry)

		tokenA, tokenB := cfg.Network.TokenAddresses()
		reader, err := evmpool.NewReader(evmpool.ReaderConfig{
			ChainID:     cfg.Network.ChainID,
			Pool:        cfg.Network.PoolAddressHex(),
			TokenA:      tokenA,
			TokenB:      tokenB,
			CallTimeout: cfg.Network.CallTimeout,
		}, client, registry, log)
		if err != nil {
			panic("failed to create pool reader: " + err.Error())
		}
		return reader
	})

	di.RegisterToken(c, poolDI.Invoker, func(sr di.ServiceRegistry) app.PoolInvoker {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)

		invoker, err := evmpool.NewInvoker(cfg.Network.PoolAddressHex(), blockchainDI.GetBlockchainService(sr), log)
		if err != nil {
			panic("failed to create pool invoker: " + err.Error())
		}
		return invoker
	})

	di.RegisterToken(c, poolDI.Journal, func(sr di.ServiceRegistry) app.Journal {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		j, err := journal.Open(ctx, journal.Config{DSN: cfg.Journal.DSN, MaxConns: cfg.Journal.MaxConns}, log)
		if err != nil {
			log.Error(ctx, "submission journal unavailable, continuing without it", "error", err)
			return journal.Noop{}
		}
		return j
	})

	di.RegisterToken(c, poolDI.Service, func(sr di.ServiceRegistry) *app.Service {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)

		svc, err := app.NewService(
			poolDI.GetReader(sr),
			poolDI.GetInvoker(sr),
			marketDI.GetGuard(sr),
			poolDI.GetJournal(sr),
			blockchainDI.GetBlockchainService(sr),
			app.ServiceConfig{
				Pool:     cfg.Network.PoolAddressHex(),
				Account:  blockchainDI.GetBlockchainService(sr).Account(),
				GasLimit: cfg.Network.GasLimit,
			},
			log,
		)
		if err != nil {
			panic("failed to create pool service: " + err.Error())
		}
		return svc
	})

	di.RegisterToken(c, poolDI.Watcher, func(sr di.ServiceRegistry) *app.Watcher {
		log := sr.Get("logger").(logger.LoggerInterface)
		return app.NewWatcher(blockchainDI.GetBlockchainService(sr), poolDI.GetService(sr), log)
	})

	return nil
}

// Startup resolves the pool tokens and registers the journal health check.
func (m *Module) Startup(ctx context.Context, mono monolith.Monolith) error {
	svc := poolDI.GetService(mono.Services())

	tokens, err := svc.Tokens(ctx)
	if err != nil {
		return err
	}

	if store, ok := poolDI.GetJournal(mono.Services()).(*journal.Store); ok {
		mono.Health().RegisterCheck("journal", func(ctx context.Context) (bool, string) {
			if err := store.Ping(ctx); err != nil {
				return false, err.Error()
			}
			return true, "ok"
		})
	}

	mono.Logger().Info(ctx, "pool module started",
		"pool", mono.Config().Network.PoolAddress,
		"token_a", tokens.A.Symbol(),
		"token_b", tokens.B.Symbol(),
		"account", svc.Account().Hex())
	return nil
}
