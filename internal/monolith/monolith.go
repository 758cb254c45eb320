// Package monolith provides the application container and module interface.
package monolith

import (
	"context"

	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/fd1az/poolctl/internal/apperror"
	"github.com/fd1az/poolctl/internal/asset"
	"github.com/fd1az/poolctl/internal/config"
	"github.com/fd1az/poolctl/internal/di"
	"github.com/fd1az/poolctl/internal/health"
	"github.com/fd1az/poolctl/internal/logger"
)

// Monolith is the main application container providing access to shared infrastructure.
type Monolith interface {
	Config() *config.Config
	Logger() logger.LoggerInterface
	EthClient() *ethclient.Client
	AssetRegistry() *asset.Registry
	Health() *health.Server
	Services() di.ServiceRegistry
}

// Module represents a bounded context module that can register services and start up.
type Module interface {
	RegisterServices(di.Container) error
	Startup(context.Context, Monolith) error
}

// app implements the Monolith interface.
type app struct {
	config        *config.Config
	logger        logger.LoggerInterface
	ethClient     *ethclient.Client
	assetRegistry *asset.Registry
	health        *health.Server
	container     di.Container
}

// New dials the node and creates a new Monolith instance.
func New(ctx context.Context, cfg *config.Config, log logger.LoggerInterface, version string) (*app, error) {
	ethClient, err := ethclient.DialContext(ctx, cfg.Network.HTTPURL)
	if err != nil {
		return nil, apperror.External(apperror.CodeRPCConnectionFailed, cfg.Network.HTTPURL, err)
	}

	// Tokens are discovered from the pool contract at runtime.
	assetRegistry := asset.NewRegistry()
	healthServer := health.NewServer(cfg.Telemetry.HealthPort, version, log)

	container := di.NewContainer()

	container.Register("config", cfg)
	container.Register("logger", log)
	container.Register("ethClient", ethClient)
	container.Register("assetRegistry", assetRegistry)

	return &app{
		config:        cfg,
		logger:        log,
		ethClient:     ethClient,
		assetRegistry: assetRegistry,
		health:        healthServer,
		container:     container,
	}, nil
}

func (a *app) Config() *config.Config {
	return a.config
}

func (a *app) Logger() logger.LoggerInterface {
	return a.logger
}

func (a *app) EthClient() *ethclient.Client {
	return a.ethClient
}

func (a *app) AssetRegistry() *asset.Registry {
	return a.assetRegistry
}

func (a *app) Health() *health.Server {
	return a.health
}

func (a *app) Services() di.ServiceRegistry {
	return a.container
}

// RegisterModules registers all provided modules.
func (a *app) RegisterModules(modules ...Module) error {
	for _, m := range modules {
		if err := m.RegisterServices(a.container); err != nil {
			return err
		}
	}
	return nil
}

// StartModules starts all provided modules in order.
func (a *app) StartModules(ctx context.Context, modules ...Module) error {
	for _, m := range modules {
		if err := m.Startup(ctx, a); err != nil {
			return err
		}
	}
	return nil
}

// Close closes all resources.
func (a *app) Close(ctx context.Context) error {
	err := a.health.Stop(ctx)
	if a.ethClient != nil {
		a.ethClient.Close()
	}
	return err
}
