// Package app contains application services and port definitions for the deployment context.
package app

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/fd1az/flashloan-deployer/business/deployment/domain"
	"github.com/fd1az/flashloan-deployer/internal/asset"
)

// Contract is a compiled contract ready to be published.
type Contract struct {
	Name     string
	Bytecode []byte
	// Pack encodes constructor arguments per the contract ABI.
	Pack func(args ...any) ([]byte, error)
}

// Chain is the narrow view of an EVM network the runner needs.
type Chain interface {
	// Signer returns the configured deploying account.
	Signer(ctx context.Context) (common.Address, error)

	// Balance returns the native balance of addr in wei.
	Balance(ctx context.Context, addr common.Address) (*big.Int, error)

	// Deploy signs and sends a contract-creation transaction.
	Deploy(ctx context.Context, contract *Contract, args ...any) (*domain.Submission, error)

	// WaitConfirmed blocks until the creation tx has the requested number of
	// confirmations or ctx ends.
	WaitConfirmed(ctx context.Context, sub *domain.Submission, confirmations uint64) (*domain.Confirmation, error)

	// Read calls a zero-argument view method returning an address.
	Read(ctx context.Context, contract common.Address, method string) (common.Address, error)
}

// Artifacts resolves compiled contracts by name.
type Artifacts interface {
	Load(ctx context.Context, name string) (*Contract, error)
}

// Recorder persists deployment records.
type Recorder interface {
	Record(ctx context.Context, path string, rec *domain.Record) error
	Load(ctx context.Context, path string) (*domain.Record, error)
}

// Reporter receives operator-facing progress.
type Reporter interface {
	StepChanged(ctx context.Context, ev domain.StepEvent)
	AccountResolved(ctx context.Context, deployer common.Address, balance asset.Amount)
	Submitted(ctx context.Context, sub *domain.Submission)
	Deployed(ctx context.Context, rec *domain.Record)
	Recorded(ctx context.Context, path string)
	Verified(ctx context.Context, v *domain.Verification)
	Completed(ctx context.Context, s *domain.Summary)
	Failed(ctx context.Context, err error)
}

// NopReporter discards every event.
type NopReporter struct{}

func (NopReporter) StepChanged(context.Context, domain.StepEvent) {}
func (NopReporter) AccountResolved(context.Context, common.Address, asset.Amount) {}
func (NopReporter) Submitted(context.Context, *domain.Submission) {}
func (NopReporter) Deployed(context.Context, *domain.Record) {}
func (NopReporter) Recorded(context.Context, string) {}
func (NopReporter) Verified(context.Context, *domain.Verification) {}
func (NopReporter) Completed(context.Context, *domain.Summary) {}
func (NopReporter) Failed(context.Context, error) {}
