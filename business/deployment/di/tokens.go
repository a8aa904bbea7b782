// Package di contains dependency injection tokens for the deployment context.
package di

import (
	"github.com/spf13/afero"

	"github.com/fd1az/flashloan-deployer/business/deployment/app"
	"github.com/fd1az/flashloan-deployer/business/deployment/infra/ethereum"
	"github.com/fd1az/flashloan-deployer/internal/di"
)

// Public service tokens - exposed to other modules
var (
	DeploymentService = di.NewToken[*app.DeploymentService]("deployment.DeploymentService")
)

// Private dependency tokens - internal to deployment module
var (
	FileSystem = di.NewToken[afero.Fs]("deployment:fileSystem")
	RPC        = di.NewToken[ethereum.Backend]("deployment:rpc")
	GasOracle  = di.NewToken[*ethereum.GasOracle]("deployment:gasOracle")
	Chain      = di.NewToken[app.Chain]("deployment:chain")
	Artifacts  = di.NewToken[app.Artifacts]("deployment:artifacts")
	Recorder   = di.NewToken[app.Recorder]("deployment:recorder")
	Reporter   = di.NewToken[app.Reporter]("deployment:reporter")
	Runner     = di.NewToken[*app.Runner]("deployment:runner")
)

// Helper functions for type-safe access
func GetDeploymentService(c di.ServiceRegistry) *app.DeploymentService {
	return di.GetToken(c, DeploymentService)
}

func GetFileSystem(c di.ServiceRegistry) afero.Fs {
	return di.GetToken(c, FileSystem)
}

func GetRPC(c di.ServiceRegistry) ethereum.Backend {
	return di.GetToken(c, RPC)
}

func GetGasOracle(c di.ServiceRegistry) *ethereum.GasOracle {
	return di.GetToken(c, GasOracle)
}

func GetChain(c di.ServiceRegistry) app.Chain {
	return di.GetToken(c, Chain)
}

func GetArtifacts(c di.ServiceRegistry) app.Artifacts {
	return di.GetToken(c, Artifacts)
}

func GetRecorder(c di.ServiceRegistry) app.Recorder {
	return di.GetToken(c, Recorder)
}

func GetReporter(c di.ServiceRegistry) app.Reporter {
	return di.GetToken(c, Reporter)
}

func GetRunner(c di.ServiceRegistry) *app.Runner {
	return di.GetToken(c, Runner)
}
