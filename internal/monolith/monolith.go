// Package monolith provides the application container and module interface.
package monolith

import (
	"context"

	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/fd1az/flashloan-deployer/business/deployment/infra/ethereum"
	"github.com/fd1az/flashloan-deployer/internal/asset"
	"github.com/fd1az/flashloan-deployer/internal/config"
	"github.com/fd1az/flashloan-deployer/internal/di"
	"github.com/fd1az/flashloan-deployer/internal/httpclient"
	"github.com/fd1az/flashloan-deployer/internal/logger"
)

// Monolith is the main application container providing access to shared infrastructure.
type Monolith interface {
	Config() *config.Config
	Logger() logger.LoggerInterface
	EthClient() *ethclient.Client
	AssetRegistry() *asset.Registry
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
	container     di.Container
}

// New creates a new Monolith instance. Dialing an HTTP endpoint does not
// touch the network; the first RPC call does.
func New(ctx context.Context, cfg *config.Config, log logger.LoggerInterface) (*app, error) {
	ethClient, err := ethereum.Dial(ctx, cfg.Network.RPCURL,
		httpclient.WithProviderName(cfg.Network.Name),
		httpclient.WithRequestTimeout(cfg.Network.RequestTimeout),
		httpclient.WithHeaders(cfg.Network.RPCHeaders),
	)
	if err != nil {
		return nil, err
	}

	// Presets plus whatever the configured chain needs
	assetRegistry := asset.DefaultRegistry()
	if _, ok := assetRegistry.GetNative(cfg.Network.ChainID); !ok && cfg.Network.ChainID != 0 {
		assetRegistry.Register(asset.NewNative(cfg.Network.ChainID, "ETH", cfg.Network.Name+" native"))
	}

	container := di.NewContainer()

	// Register global services
	container.Register("config", cfg)
	container.Register("logger", log)
	container.Register("ethClient", ethClient)
	container.Register("assetRegistry", assetRegistry)

	return &app{
		config:        cfg,
		logger:        log,
		ethClient:     ethClient,
		assetRegistry: assetRegistry,
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

func (a *app) Services() di.ServiceRegistry {
	return a.container
}

// Container returns the DI container for module registration.
func (a *app) Container() di.Container {
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

// StartModules starts all provided modules.
func (a *app) StartModules(ctx context.Context, modules ...Module) error {
	for _, m := range modules {
		if err := m.Startup(ctx, a); err != nil {
			return err
		}
	}
	return nil
}

// Close closes all resources.
func (a *app) Close() error {
	if a.ethClient != nil {
		a.ethClient.Close()
	}
	return nil
}
