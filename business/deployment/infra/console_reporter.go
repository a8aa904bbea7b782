// Package infra contains infrastructure adapters for the deployment context.
package infra

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/fd1az/flashloan-deployer/business/deployment/app"
	"github.com/fd1az/flashloan-deployer/business/deployment/domain"
	"github.com/fd1az/flashloan-deployer/internal/asset"
)

// ConsoleReporter implements Reporter for CLI output.
type ConsoleReporter struct {
	mu  sync.Mutex
	out io.Writer
}

var _ app.Reporter = (*ConsoleReporter)(nil)

// NewConsoleReporter creates a new ConsoleReporter writing to w, or stdout when w is nil.
func NewConsoleReporter(w io.Writer) *ConsoleReporter {
	if w == nil {
		w = os.Stdout
	}
	return &ConsoleReporter{out: w}
}

func (r *ConsoleReporter) printf(format string, args ...any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fmt.Fprintf(r.out, format, args...)
}

// StepChanged prints step transitions except the pending state.
func (r *ConsoleReporter) StepChanged(_ context.Context, ev domain.StepEvent) {
	var mark string
	switch ev.Status {
	case domain.StatusRunning:
		mark = "..."
	case domain.StatusDone:
		mark = "ok"
	case domain.StatusWarning:
		mark = "warn"
	case domain.StatusFailed:
		mark = "FAIL"
	default:
		return
	}
	if ev.Detail != "" {
		r.printf("[%s] %-22s %-4s %s\n", time.Now().Format("15:04:05"), ev.Step, mark, ev.Detail)
		return
	}
	r.printf("[%s] %-22s %s\n", time.Now().Format("15:04:05"), ev.Step, mark)
}

// AccountResolved prints the deploying account.
func (r *ConsoleReporter) AccountResolved(_ context.Context, deployer common.Address, balance asset.Amount) {
	r.printf("Deployer:       %s\n", deployer.Hex())
	r.printf("Balance:        %s\n", balance.String())
}

// Submitted prints the creation transaction.
func (r *ConsoleReporter) Submitted(_ context.Context, sub *domain.Submission) {
	r.printf("Transaction:    %s\n", sub.TxHash.Hex())
	r.printf("Nonce:          %d\n", sub.Nonce)
	r.printf("Gas:            %d @ %s\n", sub.GasLimit, asset.FormatGwei(sub.GasPrice))
}

// Deployed prints the confirmed contract address.
func (r *ConsoleReporter) Deployed(_ context.Context, rec *domain.Record) {
	r.printf("Contract:       %s\n", rec.ContractAddress)
	if rec.BlockNumber > 0 {
		r.printf("Block:          #%d\n", rec.BlockNumber)
	}
}

// Recorded prints where the record was saved.
func (r *ConsoleReporter) Recorded(_ context.Context, path string) {
	r.printf("Record:         %s\n", path)
}

// Verified prints the post-deployment reads.
func (r *ConsoleReporter) Verified(_ context.Context, v *domain.Verification) {
	if v.OwnerErr != nil {
		r.printf("Owner:          read failed: %v\n", v.OwnerErr)
	} else {
		r.printf("Owner:          %s\n", v.Owner.Hex())
	}
	if v.PoolErr != nil {
		r.printf("Pool:           read failed: %v\n", v.PoolErr)
	} else {
		r.printf("Pool:           %s\n", v.Pool.Hex())
	}
}

// Completed prints the final summary.
func (r *ConsoleReporter) Completed(_ context.Context, s *domain.Summary) {
	r.printf("\n")
	r.printf("================================================================================\n")
	r.printf("CONTRACT DEPLOYED\n")
	r.printf("================================================================================\n")
	r.printf("Address:        %s\n", s.Record.ContractAddress)
	r.printf("Network:        %s\n", s.Record.Network)
	r.printf("Transaction:    %s\n", s.Record.TransactionHash)
	r.printf("Record:         %s\n", s.RecordPath)
	r.printf("Cost:           %s\n", s.Cost.String())
	r.printf("Spent:          %s\n", s.Spent.String())
	r.printf("Balance left:   %s\n", s.Balance.String())
	r.printf("Duration:       %s\n", s.Duration.Round(time.Millisecond))
	if !s.Verification.OK() {
		r.printf("Verification:   incomplete\n")
	}
	if v := s.Verification; v != nil && v.OwnerErr == nil && !v.OwnerMatches {
		r.printf("Owner:          %s differs from deployer %s\n", v.Owner.Hex(), s.Record.Deployer)
	}
	r.printf("================================================================================\n")
}

// Failed prints the error that ended the run.
func (r *ConsoleReporter) Failed(_ context.Context, err error) {
	r.printf("\nERROR: %v\n", err)
}
