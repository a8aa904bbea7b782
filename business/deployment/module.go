// Package deployment implements the deployment bounded context: publishing the
// flash-loan contract and recording where it landed.
package deployment

import (
	"context"
	"math/big"
	"os"

	"github.com/shopspring/decimal"
	"github.com/spf13/afero"

	"github.com/fd1az/flashloan-deployer/business/deployment/app"
	deploymentDI "github.com/fd1az/flashloan-deployer/business/deployment/di"
	"github.com/fd1az/flashloan-deployer/business/deployment/domain"
	"github.com/fd1az/flashloan-deployer/business/deployment/infra"
	"github.com/fd1az/flashloan-deployer/business/deployment/infra/artifact"
	"github.com/fd1az/flashloan-deployer/business/deployment/infra/ethereum"
	"github.com/fd1az/flashloan-deployer/business/deployment/infra/filestore"
	"github.com/fd1az/flashloan-deployer/internal/asset"
	"github.com/fd1az/flashloan-deployer/internal/config"
	"github.com/fd1az/flashloan-deployer/internal/di"
	"github.com/fd1az/flashloan-deployer/internal/logger"
	"github.com/fd1az/flashloan-deployer/internal/monolith"
)

// Module implements the deployment bounded context.
type Module struct{}

// RegisterServices registers all deployment services with the DI container.
func (m *Module) RegisterServices(c di.Container) error {
	// Register FileSystem (private) unless a test already provided one
	if !c.Has(deploymentDI.FileSystem.Name()) {
		di.RegisterToken(c, deploymentDI.FileSystem, func(sr di.ServiceRegistry) afero.Fs {
			return afero.NewOsFs()
		})
	}

	// Register RPC (private) as the rate limited view of the shared client
	di.RegisterToken(c, deploymentDI.RPC, func(sr di.ServiceRegistry) ethereum.Backend {
		cfg := sr.Get("config").(*config.Config)
		client := sr.Get("ethClient").(ethereum.Backend)
		return ethereum.NewLimitedBackend(client, cfg.Network.RequestsPerMinute)
	})

	// Register GasOracle (private - internal dependency)
	di.RegisterToken(c, deploymentDI.GasOracle, func(sr di.ServiceRegistry) *ethereum.GasOracle {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)
		oracle, err := ethereum.NewGasOracle(deploymentDI.GetRPC(sr), GasOracleConfig(cfg), log)
		if err != nil {
			panic("failed to create gas oracle: " + err.Error())
		}
		return oracle
	})

	// Register Chain (private - internal dependency)
	di.RegisterToken(c, deploymentDI.Chain, func(sr di.ServiceRegistry) app.Chain {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)
		chain, err := ethereum.NewChain(deploymentDI.GetRPC(sr), deploymentDI.GetGasOracle(sr), ethereum.ChainConfig{
			PrivateKey:   cfg.Deployer.PrivateKey,
			ChainID:      cfg.Network.ChainID,
			PollInterval: cfg.Deployment.PollInterval,
		}, log)
		if err != nil {
			panic("failed to create chain adapter: " + err.Error())
		}
		return chain
	})

	// Register Artifacts (private - internal dependency)
	di.RegisterToken(c, deploymentDI.Artifacts, func(sr di.ServiceRegistry) app.Artifacts {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)
		return artifact.NewLoader(deploymentDI.GetFileSystem(sr), artifact.Config{
			Root: cfg.Contract.ArtifactsDir,
			Path: cfg.Contract.ArtifactPath,
		}, log)
	})

	// Register Recorder (private - internal dependency)
	di.RegisterToken(c, deploymentDI.Recorder, func(sr di.ServiceRegistry) app.Recorder {
		log := sr.Get("logger").(logger.LoggerInterface)
		return filestore.NewRecorder(deploymentDI.GetFileSystem(sr), log)
	})

	// Register Reporter (private) unless main provided one
	if !c.Has(deploymentDI.Reporter.Name()) {
		di.RegisterToken(c, deploymentDI.Reporter, func(sr di.ServiceRegistry) app.Reporter {
			cfg := sr.Get("config").(*config.Config)
			if cfg.Deployment.TUIMode {
				return infra.NewTUIReporter(nil)
			}
			return infra.NewConsoleReporter(os.Stdout)
		})
	}

	// Register Runner (private - internal dependency)
	di.RegisterToken(c, deploymentDI.Runner, func(sr di.ServiceRegistry) *app.Runner {
		log := sr.Get("logger").(logger.LoggerInterface)
		registry := sr.Get("assetRegistry").(*asset.Registry)

		runner, err := app.NewRunner(
			deploymentDI.GetChain(sr),
			deploymentDI.GetArtifacts(sr),
			log,
			app.WithReporter(deploymentDI.GetReporter(sr)),
			app.WithAssetRegistry(registry),
		)
		if err != nil {
			panic("failed to create runner: " + err.Error())
		}
		return runner
	})

	// Register DeploymentService (public - exposed to main)
	di.RegisterToken(c, deploymentDI.DeploymentService, func(sr di.ServiceRegistry) *app.DeploymentService {
		log := sr.Get("logger").(logger.LoggerInterface)
		return app.NewDeploymentService(deploymentDI.GetRunner(sr), deploymentDI.GetRecorder(sr), log)
	})

	return nil
}

// Startup initializes the deployment module.
func (m *Module) Startup(ctx context.Context, mono monolith.Monolith) error {
	log := mono.Logger()
	cfg := mono.Config()

	// Build the graph now so wiring bugs surface before the first step runs
	deploymentDI.GetDeploymentService(mono.Services())

	log.Info(ctx, "deployment module started",
		"network", cfg.Network.Name,
		"chain_id", cfg.Network.ChainID,
		"contract", cfg.Contract.Name,
	)
	return nil
}

// GasOracleConfig maps the network gas settings onto the oracle config.
// Zero prices mean "ask the node".
func GasOracleConfig(cfg *config.Config) ethereum.GasOracleConfig {
	oc := ethereum.DefaultGasOracleConfig()
	oc.GasLimit = cfg.Network.GasLimit
	if p := gweiToWei(cfg.Network.GasPriceDecimal()); p != nil {
		oc.GasPrice = p
	}
	if p := gweiToWei(cfg.Network.MaxGasPriceDecimal()); p != nil {
		oc.MaxGasPrice = p
	}
	return oc
}

func gweiToWei(gwei decimal.Decimal) *big.Int {
	if !gwei.IsPositive() {
		return nil
	}
	// sub-wei fractions cannot be paid
	wei, err := asset.GweiToWei(gwei.Truncate(asset.GweiDecimals))
	if err != nil {
		return nil
	}
	return wei
}

// NewRequest builds the deployment request from configuration.
func NewRequest(cfg *config.Config) domain.Request {
	return domain.Request{
		Network:             cfg.Network.Name,
		ChainID:             cfg.Network.ChainID,
		ContractName:        cfg.Contract.Name,
		PoolAddressProvider: cfg.Contract.PoolAddressProviderHex(),
		ConfirmationTimeout: cfg.Deployment.ConfirmationTimeout,
		Confirmations:       cfg.Deployment.Confirmations,
		OwnerMethod:         cfg.Contract.OwnerMethod,
		PoolMethod:          cfg.Contract.PoolMethod,
	}
}
