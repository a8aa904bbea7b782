package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.opentelemetry.io/otel/attribute"

	"github.com/fd1az/flashloan-deployer/business/deployment/domain"
	"github.com/fd1az/flashloan-deployer/internal/apm"
	"github.com/fd1az/flashloan-deployer/internal/asset"
	"github.com/fd1az/flashloan-deployer/internal/logger"
)

// DeploymentService runs the whole procedure: publish, record, verify, summarize.
type DeploymentService struct {
	runner   *Runner
	recorder Recorder
	logger   logger.LoggerInterface
	tracer   apm.Tracer
}

// NewDeploymentService creates a new DeploymentService.
func NewDeploymentService(runner *Runner, recorder Recorder, log logger.LoggerInterface) *DeploymentService {
	return &DeploymentService{
		runner:   runner,
		recorder: recorder,
		logger:   log,
		tracer:   apm.NewTracer(tracerName),
	}
}

// Run deploys the contract and writes the record to outputPath before the
// verification reads. It returns *domain.DeploymentError or *domain.IOError.
func (s *DeploymentService) Run(ctx context.Context, req domain.Request, outputPath string) (*domain.Summary, error) {
	ctx, span := s.tracer.StartSpanFromContext(ctx, "deployment.run")
	defer span.End()

	start := time.Now()

	dep, err := s.runner.Publish(ctx, req)
	if err != nil {
		span.NoticeError(err)
		return nil, err
	}

	if err := s.record(ctx, outputPath, dep.Record); err != nil {
		span.NoticeError(err)
		return nil, err
	}

	v := s.runner.Verify(ctx, req, dep.Submission.Address, dep.Deployer)

	native := s.runner.natives.NativeOrDefault(req.ChainID)
	summary := &domain.Summary{
		Record:       dep.Record,
		RecordPath:   outputPath,
		Verification: v,
		Cost:         dep.Confirmation.ActualCost(native),
		Balance:      asset.Zero(native),
		Spent:        asset.Zero(native),
		Duration:     time.Since(start),
	}

	if wei, err := s.runner.chain.Balance(ctx, dep.Deployer); err != nil {
		s.logger.Warn(ctx, "could not read remaining balance", "error", err)
	} else {
		summary.Balance = asset.NewAmount(native, wei)
		summary.Spent = s.spent(ctx, dep.BalanceBefore, summary.Balance, summary.Cost)
	}

	s.logger.Info(ctx, "contract deployed successfully",
		"address", dep.Record.ContractAddress,
		"cost", summary.Cost.String(),
		"remaining_balance", summary.Balance.String(),
		"spent", summary.Spent.String(),
		"verified", v.OK(),
	)

	span.SetAttributes(
		attribute.String("contract_address", dep.Record.ContractAddress),
		attribute.Bool("verified", v.OK()),
	)
	s.runner.reporter.Completed(ctx, summary)

	return summary, nil
}

// spent is the balance drop between before and after. It differs from cost
// when the account moved funds while the deployment was in flight.
func (s *DeploymentService) spent(ctx context.Context, before, after, cost asset.Amount) asset.Amount {
	spent, err := before.Sub(after)
	if err != nil {
		s.logger.Warn(ctx, "balance grew during deployment",
			"before", before.String(),
			"after", after.String(),
		)
		return asset.Zero(after.Asset())
	}

	expected, err := after.Add(cost)
	if err != nil {
		return spent
	}
	if c, err := before.Cmp(expected); err == nil && c != 0 {
		s.logger.Warn(ctx, "balance change differs from gas cost",
			"spent", spent.String(),
			"cost", cost.String(),
		)
	}
	return spent
}

// VerifyExisting re-runs the verification reads against a previously written record.
func (s *DeploymentService) VerifyExisting(ctx context.Context, req domain.Request, path string) (*domain.Record, *domain.Verification, error) {
	ctx, span := s.tracer.StartSpanFromContext(ctx, "deployment.verify_existing")
	defer span.End()

	rec, err := s.recorder.Load(ctx, path)
	if err != nil {
		ioErr := asIOError(err, "read", path)
		span.NoticeError(ioErr)
		s.runner.reporter.Failed(ctx, ioErr)
		return nil, nil, ioErr
	}

	if !common.IsHexAddress(rec.ContractAddress) {
		ioErr := &domain.IOError{Op: "parse", Path: path, Err: fmt.Errorf("contractAddress %q is not an address", rec.ContractAddress)}
		span.NoticeError(ioErr)
		s.runner.reporter.Failed(ctx, ioErr)
		return nil, nil, ioErr
	}

	if rec.Network != req.Network {
		s.logger.Warn(ctx, "record was written for a different network",
			"record_network", rec.Network,
			"network", req.Network,
		)
	}

	s.logger.Info(ctx, "verifying recorded deployment", "address", rec.ContractAddress, "path", path)
	s.runner.reporter.Deployed(ctx, rec)

	v := s.runner.Verify(ctx, req, common.HexToAddress(rec.ContractAddress), common.HexToAddress(rec.Deployer))
	return rec, v, nil
}

func (s *DeploymentService) record(ctx context.Context, path string, rec *domain.Record) error {
	s.runner.step(ctx, domain.StepRecord, domain.StatusRunning, path)

	if err := s.recorder.Record(ctx, path, rec); err != nil {
		ioErr := asIOError(err, "write", path)
		s.runner.step(ctx, domain.StepRecord, domain.StatusFailed, ioErr.Error())
		s.logger.Error(ctx, "failed to save deployment record", "path", path, "error", ioErr)
		s.runner.reporter.Failed(ctx, ioErr)
		return ioErr
	}

	s.runner.step(ctx, domain.StepRecord, domain.StatusDone, path)
	s.logger.Info(ctx, "deployment record saved", "path", path)
	s.runner.reporter.Recorded(ctx, path)
	return nil
}

func asIOError(err error, op, path string) *domain.IOError {
	var ioErr *domain.IOError
	if errors.As(err, &ioErr) {
		return ioErr
	}
	return &domain.IOError{Op: op, Path: path, Err: err}
}
