package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/fd1az/flashloan-deployer/business/deployment/domain"
	"github.com/fd1az/flashloan-deployer/internal/apm"
	"github.com/fd1az/flashloan-deployer/internal/apperror"
	"github.com/fd1az/flashloan-deployer/internal/asset"
	"github.com/fd1az/flashloan-deployer/internal/logger"
)

const (
	tracerName = "github.com/fd1az/flashloan-deployer/business/deployment/app"
	meterName  = "github.com/fd1az/flashloan-deployer/business/deployment/app"
)

// runnerMetrics holds OTEL metric instruments.
type runnerMetrics struct {
	deployments          metric.Int64Counter
	deployDuration       metric.Float64Histogram
	confirmationLatency  metric.Float64Histogram
	verificationFailures metric.Int64Counter
}

// Runner publishes a contract and performs the post-deployment reads.
type Runner struct {
	chain     Chain
	artifacts Artifacts
	reporter  Reporter
	logger    logger.LoggerInterface
	natives   *asset.Registry
	now       func() time.Time

	tracer  trace.Tracer
	metrics *runnerMetrics
}

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

// WithClock overrides the clock used for the record timestamp.
func WithClock(now func() time.Time) RunnerOption {
	return func(r *Runner) {
		r.now = now
	}
}

// WithReporter sets the progress reporter.
func WithReporter(rep Reporter) RunnerOption {
	return func(r *Runner) {
		r.reporter = rep
	}
}

// WithAssetRegistry sets the registry used to name the native coin.
func WithAssetRegistry(reg *asset.Registry) RunnerOption {
	return func(r *Runner) {
		r.natives = reg
	}
}

// NewRunner creates a Runner.
func NewRunner(chain Chain, artifacts Artifacts, log logger.LoggerInterface, opts ...RunnerOption) (*Runner, error) {
	r := &Runner{
		chain:     chain,
		artifacts: artifacts,
		reporter:  NopReporter{},
		logger:    log,
		natives:   asset.DefaultRegistry(),
		now:       time.Now,
		tracer:    otel.Tracer(tracerName),
	}

	for _, opt := range opts {
		opt(r)
	}

	if err := r.initMetrics(); err != nil {
		return nil, fmt.Errorf("init metrics: %w", err)
	}

	return r, nil
}

func (r *Runner) initMetrics() error {
	meter := otel.Meter(meterName)
	var err error

	r.metrics = &runnerMetrics{}

	r.metrics.deployments, err = meter.Int64Counter(
		"deployments_total",
		metric.WithDescription("Deployment attempts by outcome"),
		metric.WithUnit("{deployment}"),
	)
	if err != nil {
		return err
	}

	r.metrics.deployDuration, err = meter.Float64Histogram(
		"deployment_duration_seconds",
		metric.WithDescription("Time from signer resolution to confirmed record"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return err
	}

	r.metrics.confirmationLatency, err = meter.Float64Histogram(
		"deployment_confirmation_seconds",
		metric.WithDescription("Time waiting for the creation tx to confirm"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return err
	}

	r.metrics.verificationFailures, err = meter.Int64Counter(
		"deployment_verification_failures_total",
		metric.WithDescription("Failed post-deployment reads"),
		metric.WithUnit("{read}"),
	)
	if err != nil {
		return err
	}

	return nil
}

// Deploy publishes the contract, then runs the verification reads.
// Verification never changes the outcome or the returned record.
func (r *Runner) Deploy(ctx context.Context, req domain.Request) (*domain.Record, error) {
	dep, err := r.Publish(ctx, req)
	if err != nil {
		return nil, err
	}

	r.Verify(ctx, req, dep.Submission.Address, dep.Deployer)

	return dep.Record, nil
}

// Publish resolves the signer, submits the creation transaction, waits for
// confirmation and builds the record. Every failure is a *domain.DeploymentError.
func (r *Runner) Publish(ctx context.Context, req domain.Request) (*domain.Deployment, error) {
	ctx, span := r.tracer.Start(ctx, "deployment.publish",
		trace.WithAttributes(
			attribute.String("network", req.Network),
			attribute.String("contract", req.ContractName),
		),
	)
	defer span.End()

	start := r.now()

	if err := req.Validate(); err != nil {
		return nil, r.fail(ctx, span, domain.StepSubmit, apperror.Wrap(err, apperror.CodeInvalidConstructorArgs, "request"))
	}

	native := r.natives.NativeOrDefault(req.ChainID)

	// 1. Signer
	r.step(ctx, domain.StepSigner, domain.StatusRunning, "")
	deployer, err := r.chain.Signer(ctx)
	if err != nil {
		return nil, r.fail(ctx, span, domain.StepSigner, err)
	}
	r.step(ctx, domain.StepSigner, domain.StatusDone, deployer.Hex())
	r.logger.Info(ctx, "deploying contract with account", "account", deployer.Hex(), "contract", req.ContractName)

	// 2. Balance, informational only
	r.step(ctx, domain.StepBalance, domain.StatusRunning, "")
	wei, err := r.chain.Balance(ctx, deployer)
	if err != nil {
		return nil, r.fail(ctx, span, domain.StepBalance, err)
	}
	balance := asset.NewAmount(native, wei)
	r.step(ctx, domain.StepBalance, domain.StatusDone, balance.String())
	r.logger.Info(ctx, "account balance", "account", deployer.Hex(), "balance", balance.String())
	r.reporter.AccountResolved(ctx, deployer, balance)

	// 3. Submit
	r.step(ctx, domain.StepSubmit, domain.StatusRunning, req.ContractName)
	contract, err := r.artifacts.Load(ctx, req.ContractName)
	if err != nil {
		return nil, r.fail(ctx, span, domain.StepSubmit, err)
	}

	sub, err := r.chain.Deploy(ctx, contract, req.PoolAddressProvider)
	if err != nil {
		return nil, r.fail(ctx, span, domain.StepSubmit, err)
	}
	r.step(ctx, domain.StepSubmit, domain.StatusDone, sub.TxHash.Hex())
	r.logger.Info(ctx, "creation transaction sent",
		"tx", sub.TxHash.Hex(),
		"nonce", sub.Nonce,
		"gas_limit", sub.GasLimit,
		"gas_price", asset.FormatGwei(sub.GasPrice),
	)
	r.reporter.Submitted(ctx, sub)
	span.SetAttributes(attribute.String("tx_hash", sub.TxHash.Hex()))

	// 4. Confirm within the caller's timeout
	confirmations := req.Confirmations
	if confirmations == 0 {
		confirmations = 1
	}
	r.step(ctx, domain.StepConfirm, domain.StatusRunning, fmt.Sprintf("%d confirmation(s), timeout %s", confirmations, req.ConfirmationTimeout))

	waitStart := time.Now()
	waitCtx, cancel := context.WithTimeout(ctx, req.ConfirmationTimeout)
	conf, err := r.chain.WaitConfirmed(waitCtx, sub, confirmations)
	cancel()
	r.metrics.confirmationLatency.Record(ctx, time.Since(waitStart).Seconds())
	if err != nil {
		// Only the wait deadline is a timeout. A revert seen on the last poll keeps its own code.
		if ctx.Err() == nil && errors.Is(err, context.DeadlineExceeded) {
			err = apperror.New(apperror.CodeConfirmationTimeout,
				apperror.WithCause(err),
				apperror.WithContext(fmt.Sprintf("tx %s after %s", sub.TxHash.Hex(), req.ConfirmationTimeout)))
		}
		return nil, r.fail(ctx, span, domain.StepConfirm, err)
	}
	r.step(ctx, domain.StepConfirm, domain.StatusDone, fmt.Sprintf("block %d", conf.BlockNumber))

	// 5. Record
	rec := domain.NewRecord(req, sub, conf, r.now())
	r.logger.Info(ctx, "contract deployed",
		"address", rec.ContractAddress,
		"block", conf.BlockNumber,
		"gas_used", conf.GasUsed,
	)
	r.reporter.Deployed(ctx, rec)

	r.metrics.deployments.Add(ctx, 1, metric.WithAttributes(
		attribute.String("network", req.Network),
		attribute.String("outcome", "success"),
	))
	r.metrics.deployDuration.Record(ctx, r.now().Sub(start).Seconds())

	span.SetAttributes(attribute.String("contract_address", rec.ContractAddress))
	span.SetStatus(codes.Ok, "deployed")

	return &domain.Deployment{
		Record:        rec,
		Submission:    sub,
		Confirmation:  conf,
		Deployer:      deployer,
		BalanceBefore: balance,
	}, nil
}

// Verify reads the owner and pool address of a deployed contract. Failures
// are logged and reported, never returned.
func (r *Runner) Verify(ctx context.Context, req domain.Request, contract, deployer common.Address) *domain.Verification {
	ctx, span := r.tracer.Start(ctx, "deployment.verify",
		trace.WithAttributes(attribute.String("contract_address", contract.Hex())),
	)
	defer span.End()

	r.step(ctx, domain.StepVerify, domain.StatusRunning, contract.Hex())

	v := &domain.Verification{}

	v.Owner, v.OwnerErr = r.chain.Read(ctx, contract, req.OwnerMethod)
	if v.OwnerErr != nil {
		r.readFailed(ctx, span, req.OwnerMethod, v.OwnerErr)
	} else {
		v.OwnerMatches = v.Owner == deployer
		r.logger.Info(ctx, "contract owner", "owner", v.Owner.Hex())
		if !v.OwnerMatches {
			r.logger.Warn(ctx, "contract owner differs from deployer",
				"owner", v.Owner.Hex(),
				"deployer", deployer.Hex(),
			)
		}
	}

	v.Pool, v.PoolErr = r.chain.Read(ctx, contract, req.PoolMethod)
	if v.PoolErr != nil {
		r.readFailed(ctx, span, req.PoolMethod, v.PoolErr)
	} else {
		r.logger.Info(ctx, "aave pool address", "pool", v.Pool.Hex())
	}

	status := domain.StatusDone
	detail := "owner and pool verified"
	if !v.OK() || !v.OwnerMatches {
		status = domain.StatusWarning
		detail = "verification incomplete"
	}
	r.step(ctx, domain.StepVerify, status, detail)
	r.reporter.Verified(ctx, v)

	return v
}

func (r *Runner) readFailed(ctx context.Context, span trace.Span, method string, err error) {
	r.metrics.verificationFailures.Add(ctx, 1, metric.WithAttributes(attribute.String("method", method)))
	span.AddEvent("read_failed", trace.WithAttributes(
		attribute.String("method", method),
		attribute.String("error", err.Error()),
	))
	r.logger.Warn(ctx, "verification read failed", "method", method, "error", err)
}

func (r *Runner) step(ctx context.Context, step domain.Step, status domain.StepStatus, detail string) {
	r.reporter.StepChanged(ctx, domain.StepEvent{Step: step, Status: status, Detail: detail})
}

// fail classifies err, reports it and returns the DeploymentError.
func (r *Runner) fail(ctx context.Context, span trace.Span, step domain.Step, err error) error {
	var appErr *apperror.AppError
	if errors.As(err, &appErr) && appErr.TraceID == "" {
		appErr.WithTraceID(apm.TraceID(ctx))
	}

	depErr := &domain.DeploymentError{
		Reason: classify(ctx, step, err),
		Step:   step,
		Err:    err,
	}

	span.RecordError(depErr)
	span.SetStatus(codes.Error, string(depErr.Reason))

	r.metrics.deployments.Add(ctx, 1, metric.WithAttributes(
		attribute.String("outcome", "failure"),
		attribute.String("reason", string(depErr.Reason)),
	))

	r.step(ctx, step, domain.StatusFailed, string(depErr.Reason))
	r.logger.Error(ctx, "deployment failed", "step", step.String(), "reason", string(depErr.Reason), "error", err)
	r.reporter.Failed(ctx, depErr)

	return depErr
}

// classify maps an infrastructure error to a deployment failure reason.
func classify(ctx context.Context, step domain.Step, err error) domain.Reason {
	switch {
	case errors.Is(ctx.Err(), context.Canceled), errors.Is(err, context.Canceled):
		return domain.ReasonInterrupted
	case apperror.HasCode(err, apperror.CodeConfirmationTimeout):
		return domain.ReasonConfirmationTimeout
	case step == domain.StepConfirm && errors.Is(err, context.DeadlineExceeded):
		return domain.ReasonConfirmationTimeout
	case apperror.HasCode(err, apperror.CodeSignerNotConfigured),
		apperror.HasCode(err, apperror.CodeInvalidPrivateKey):
		return domain.ReasonNoSigner
	case apperror.HasCode(err, apperror.CodeArtifactNotFound),
		apperror.HasCode(err, apperror.CodeInvalidArtifact):
		return domain.ReasonArtifactUnavailable
	default:
		return domain.ReasonRejected
	}
}
