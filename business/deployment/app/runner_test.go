package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/fd1az/flashloan-deployer/business/deployment/domain"
	"github.com/fd1az/flashloan-deployer/internal/apperror"
	"github.com/fd1az/flashloan-deployer/internal/asset"
	"github.com/fd1az/flashloan-deployer/internal/logger"
)

var fixedNow = time.Date(2025, 3, 14, 9, 26, 53, 589_793_238, time.UTC)

func testRequest() domain.Request {
	return domain.Request{
		Network:             "localhost",
		ChainID:             asset.ChainIDHardhat,
		ContractName:        "FlashLoanArbitrage",
		PoolAddressProvider: providerAddr,
		ConfirmationTimeout: time.Second,
		Confirmations:       1,
		OwnerMethod:         "owner",
		PoolMethod:          "POOL",
	}
}

func newTestRunner(t *testing.T, chain Chain, artifacts Artifacts, rep Reporter) *Runner {
	t.Helper()
	r, err := NewRunner(chain, artifacts, logger.NewDiscard(),
		WithClock(func() time.Time { return fixedNow }),
		WithReporter(rep),
	)
	require.NoError(t, err)
	return r
}

func requireReason(t *testing.T, err error, want domain.Reason) *domain.DeploymentError {
	t.Helper()
	var depErr *domain.DeploymentError
	require.ErrorAs(t, err, &depErr)
	assert.Equal(t, want, depErr.Reason)
	return depErr
}

func TestRunner_Deploy_RecordMatchesSubmission(t *testing.T) {
	chain := newFakeChain()
	rep := &captureReporter{}
	r := newTestRunner(t, chain, &fakeArtifacts{}, rep)

	rec, err := r.Deploy(context.Background(), testRequest())
	require.NoError(t, err)

	assert.Equal(t, contractAddr.Hex(), rec.ContractAddress)
	assert.Equal(t, deployerAddr.Hex(), rec.Deployer)
	assert.Equal(t, "localhost", rec.Network)
	assert.Equal(t, providerAddr.Hex(), rec.ConstructorArgument)
	assert.Equal(t, txHash.Hex(), rec.TransactionHash)
	assert.Equal(t, fixedNow.Truncate(time.Millisecond), rec.DeploymentTime)
	assert.Equal(t, uint64(100), rec.BlockNumber)
	assert.NoError(t, rec.Validate())

	require.Len(t, chain.deployArgs, 1)
	assert.Equal(t, providerAddr, chain.deployArgs[0])

	require.NotNil(t, rep.submitted)
	require.NotNil(t, rep.deployed)
	assert.Equal(t, "2 ETH", rep.balance.String())
	assert.Empty(t, rep.failures)
}

func TestRunner_Deploy_RejectsInvalidRequestBeforeNetwork(t *testing.T) {
	chain := newFakeChain()
	r := newTestRunner(t, chain, &fakeArtifacts{}, NopReporter{})

	req := testRequest()
	req.ConfirmationTimeout = 0

	_, err := r.Deploy(context.Background(), req)
	requireReason(t, err, domain.ReasonRejected)
	assert.Equal(t, 0, chain.balanceCalls)
	assert.Equal(t, 0, chain.deployCalls)
}

func TestRunner_Deploy_AcceptsZeroProviderAddress(t *testing.T) {
	chain := newFakeChain()
	r := newTestRunner(t, chain, &fakeArtifacts{}, NopReporter{})

	req := testRequest()
	req.PoolAddressProvider = common.Address{}

	rec, err := r.Deploy(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, common.Address{}.Hex(), rec.ConstructorArgument)
	assert.Equal(t, 1, chain.deployCalls)
	require.Len(t, chain.deployArgs, 1)
	assert.Equal(t, common.Address{}, chain.deployArgs[0])
}

func TestRunner_Deploy_FailureReasons(t *testing.T) {
	tests := []struct {
		name      string
		setup     func(c *fakeChain, a *fakeArtifacts)
		reason    domain.Reason
		step      domain.Step
		submitted bool
	}{
		{
			name: "no signer",
			setup: func(c *fakeChain, _ *fakeArtifacts) {
				c.signerErr = apperror.New(apperror.CodeSignerNotConfigured)
			},
			reason: domain.ReasonNoSigner,
			step:   domain.StepSigner,
		},
		{
			name: "malformed key",
			setup: func(c *fakeChain, _ *fakeArtifacts) {
				c.signerErr = apperror.New(apperror.CodeInvalidPrivateKey)
			},
			reason: domain.ReasonNoSigner,
			step:   domain.StepSigner,
		},
		{
			name: "balance unreadable",
			setup: func(c *fakeChain, _ *fakeArtifacts) {
				c.balanceErr = apperror.New(apperror.CodeEthereumConnectionFailed)
			},
			reason: domain.ReasonRejected,
			step:   domain.StepBalance,
		},
		{
			name: "artifact missing",
			setup: func(_ *fakeChain, a *fakeArtifacts) {
				a.err = apperror.New(apperror.CodeArtifactNotFound, apperror.WithContext("FlashLoanArbitrage"))
			},
			reason: domain.ReasonArtifactUnavailable,
			step:   domain.StepSubmit,
		},
		{
			name: "insufficient funds",
			setup: func(c *fakeChain, _ *fakeArtifacts) {
				c.deployErr = apperror.New(apperror.CodeTransactionRejected,
					apperror.WithCause(errors.New("insufficient funds for gas * price + value")))
			},
			reason: domain.ReasonRejected,
			step:   domain.StepSubmit,
		},
		{
			name: "constructor reverted",
			setup: func(c *fakeChain, _ *fakeArtifacts) {
				c.waitErr = apperror.New(apperror.CodeTransactionReverted)
			},
			reason:    domain.ReasonRejected,
			step:      domain.StepConfirm,
			submitted: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chain := newFakeChain()
			artifacts := &fakeArtifacts{}
			tt.setup(chain, artifacts)
			rep := &captureReporter{}
			r := newTestRunner(t, chain, artifacts, rep)

			rec, err := r.Deploy(context.Background(), testRequest())
			assert.Nil(t, rec)
			depErr := requireReason(t, err, tt.reason)
			assert.Equal(t, tt.step, depErr.Step)

			status, ok := rep.lastStatus(tt.step)
			require.True(t, ok)
			assert.Equal(t, domain.StatusFailed, status)
			require.Len(t, rep.failures, 1)
			assert.Nil(t, rep.deployed)
			assert.Equal(t, tt.submitted, rep.submitted != nil)
		})
	}
}

func TestRunner_Deploy_ConfirmationTimeout(t *testing.T) {
	chain := newFakeChain()
	chain.blockWait = true
	r := newTestRunner(t, chain, &fakeArtifacts{}, NopReporter{})

	req := testRequest()
	req.ConfirmationTimeout = 20 * time.Millisecond

	_, err := r.Deploy(context.Background(), req)
	depErr := requireReason(t, err, domain.ReasonConfirmationTimeout)
	assert.Equal(t, domain.StepConfirm, depErr.Step)
	assert.True(t, apperror.HasCode(err, apperror.CodeConfirmationTimeout))
}

func TestRunner_Deploy_RevertAtDeadlineIsRejection(t *testing.T) {
	chain := newFakeChain()
	chain.blockWait = true
	chain.waitErr = apperror.New(apperror.CodeTransactionReverted, apperror.WithContext("out of gas"))
	r := newTestRunner(t, chain, &fakeArtifacts{}, NopReporter{})

	req := testRequest()
	req.ConfirmationTimeout = 20 * time.Millisecond

	_, err := r.Deploy(context.Background(), req)
	depErr := requireReason(t, err, domain.ReasonRejected)
	assert.Equal(t, domain.StepConfirm, depErr.Step)
	assert.True(t, apperror.HasCode(err, apperror.CodeTransactionReverted))
	assert.False(t, apperror.HasCode(err, apperror.CodeConfirmationTimeout))
}

func TestRunner_Deploy_FailureCarriesTraceID(t *testing.T) {
	chain := newFakeChain()
	chain.signerErr = apperror.New(apperror.CodeSignerNotConfigured)
	r := newTestRunner(t, chain, &fakeArtifacts{}, NopReporter{})

	tp := sdktrace.NewTracerProvider()
	defer func() { _ = tp.Shutdown(context.Background()) }()
	ctx, span := tp.Tracer("test").Start(context.Background(), "root")
	defer span.End()

	_, err := r.Deploy(ctx, testRequest())
	requireReason(t, err, domain.ReasonNoSigner)

	var appErr *apperror.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, span.SpanContext().TraceID().String(), appErr.TraceID)
}

func TestRunner_Deploy_Interrupted(t *testing.T) {
	chain := newFakeChain()
	chain.blockWait = true
	r := newTestRunner(t, chain, &fakeArtifacts{}, NopReporter{})

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(20*time.Millisecond, cancel)

	_, err := r.Deploy(ctx, testRequest())
	requireReason(t, err, domain.ReasonInterrupted)
}

func TestRunner_Verify_FailuresAreNonFatal(t *testing.T) {
	chain := newFakeChain()
	chain.readErrs["owner"] = errors.New("execution reverted")
	delete(chain.reads, "POOL")
	rep := &captureReporter{}
	r := newTestRunner(t, chain, &fakeArtifacts{}, rep)

	rec, err := r.Deploy(context.Background(), testRequest())
	require.NoError(t, err)
	assert.Equal(t, contractAddr.Hex(), rec.ContractAddress)

	require.NotNil(t, rep.verified)
	assert.Error(t, rep.verified.OwnerErr)
	assert.Error(t, rep.verified.PoolErr)
	assert.False(t, rep.verified.OK())

	status, _ := rep.lastStatus(domain.StepVerify)
	assert.Equal(t, domain.StatusWarning, status)
	assert.Empty(t, rep.failures)
}

func TestRunner_Verify_OwnerMismatchWarns(t *testing.T) {
	chain := newFakeChain()
	chain.reads["owner"] = poolAddr
	rep := &captureReporter{}
	r := newTestRunner(t, chain, &fakeArtifacts{}, rep)

	v := r.Verify(context.Background(), testRequest(), contractAddr, deployerAddr)

	assert.True(t, v.OK())
	assert.False(t, v.OwnerMatches)
	assert.Equal(t, poolAddr, v.Pool)
	status, _ := rep.lastStatus(domain.StepVerify)
	assert.Equal(t, domain.StatusWarning, status)
}

func TestRunner_Verify_AllGood(t *testing.T) {
	rep := &captureReporter{}
	r := newTestRunner(t, newFakeChain(), &fakeArtifacts{}, rep)

	v := r.Verify(context.Background(), testRequest(), contractAddr, deployerAddr)

	assert.True(t, v.OK())
	assert.True(t, v.OwnerMatches)
	assert.Equal(t, deployerAddr, v.Owner)
	status, _ := rep.lastStatus(domain.StepVerify)
	assert.Equal(t, domain.StatusDone, status)
}

func TestClassify(t *testing.T) {
	canceled, cancel := context.WithCancel(context.Background())
	cancel()

	tests := []struct {
		name string
		ctx  context.Context
		step domain.Step
		err  error
		want domain.Reason
	}{
		{"canceled context", canceled, domain.StepSubmit, errors.New("boom"), domain.ReasonInterrupted},
		{"deadline while confirming", context.Background(), domain.StepConfirm, context.DeadlineExceeded, domain.ReasonConfirmationTimeout},
		{"deadline while submitting", context.Background(), domain.StepSubmit, context.DeadlineExceeded, domain.ReasonRejected},
		{"nested artifact code", context.Background(), domain.StepSubmit,
			apperror.New(apperror.CodeEthereumRPCError, apperror.WithCause(apperror.New(apperror.CodeInvalidArtifact))),
			domain.ReasonArtifactUnavailable},
		{"plain error", context.Background(), domain.StepSubmit, errors.New("nonce too low"), domain.ReasonRejected},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, classify(tt.ctx, tt.step, tt.err))
		})
	}
}
