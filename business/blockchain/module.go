// Package blockchain implements the chain access bounded context: heads, fees and transaction submission.
package blockchain

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/fd1az/poolctl/business/blockchain/app"
	blockchainDI "github.com/fd1az/poolctl/business/blockchain/di"
	"github.com/fd1az/poolctl/business/blockchain/domain"
	"github.com/fd1az/poolctl/business/blockchain/infra/ethereum"
	"github.com/fd1az/poolctl/internal/config"
	"github.com/fd1az/poolctl/internal/di"
	"github.com/fd1az/poolctl/internal/logger"
	"github.com/fd1az/poolctl/internal/monolith"
)

// Module implements the blockchain bounded context.
type Module struct{}

// RegisterServices registers all blockchain services with the DI container.
func (m *Module) RegisterServices(c di.Container) error {
	di.RegisterToken(c, blockchainDI.BlockSubscriber, func(sr di.ServiceRegistry) app.BlockSubscriber {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)
		client := sr.Get("ethClient").(*ethclient.Client)

		subCfg := ethereum.DefaultSubscriberConfig(cfg.Network.WebSocketURL, cfg.Network.PollInterval)
		sub, err := ethereum.NewSubscriber(subCfg, client, log)
		if err != nil {
			panic("failed to create subscriber: " + err.Error())
		}
		return sub
	})

	di.RegisterToken(c, blockchainDI.GasOracle, func(sr di.ServiceRegistry) app.GasOracle {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)
		client := sr.Get("ethClient").(*ethclient.Client)

		oracleCfg := ethereum.DefaultGasOracleConfig()
		oracleCfg.MaxFeeCap = domain.GweiToWei(cfg.Network.MaxFeeGweiDecimal())

		oracle, err := ethereum.NewGasOracle(oracleCfg, client, log)
		if err != nil {
			panic("failed to create gas oracle: " + err.Error())
		}
		return oracle
	})

	// Without a key the sender is nil and only read paths work.
	di.RegisterToken(c, blockchainDI.TxSender, func(sr di.ServiceRegistry) app.TxSender {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)
		client := sr.Get("ethClient").(*ethclient.Client)

		key := cfg.Network.AccountKey()
		if key == "" {
			return nil
		}

		sender, err := ethereum.NewSender(client, key, cfg.Network.ChainID, cfg.Network.PollInterval, log)
		if err != nil {
			panic("failed to create tx sender: " + err.Error())
		}
		return sender
	})

	di.RegisterToken(c, blockchainDI.BlockchainService, func(sr di.ServiceRegistry) *app.BlockchainService {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)

		return app.NewBlockchainService(
			blockchainDI.GetBlockSubscriber(sr),
			blockchainDI.GetGasOracle(sr),
			blockchainDI.GetTxSender(sr),
			app.ExecutionConfig{
				DefaultGasLimit: cfg.Network.GasLimit,
				ReceiptTimeout:  cfg.Network.ReceiptTimeout,
			},
			log,
		)
	})

	return nil
}

// Startup verifies the node serves the configured chain and registers the rpc health check.
func (m *Module) Startup(ctx context.Context, mono monolith.Monolith) error {
	log := mono.Logger()
	cfg := mono.Config()

	chainID, err := mono.EthClient().ChainID(ctx)
	if err != nil {
		return fmt.Errorf("query chain id: %w", err)
	}
	if chainID.Uint64() != cfg.Network.ChainID {
		return fmt.Errorf("node serves chain %s, configured chain %d", chainID, cfg.Network.ChainID)
	}

	svc := blockchainDI.GetBlockchainService(mono.Services())
	mono.Health().RegisterCheck("rpc", func(ctx context.Context) (bool, string) {
		block, err := svc.LatestBlock(ctx)
		if err != nil {
			return false, err.Error()
		}
		return true, fmt.Sprintf("head %d", block.Number)
	})

	log.Info(ctx, "blockchain module started", "chain_id", chainID.Uint64(), "account", svc.Account().Hex())
	return nil
}
