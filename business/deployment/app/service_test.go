package app

import (
	"context"
	"errors"
	"math/big"
	"os"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fd1az/flashloan-deployer/business/deployment/domain"
	"github.com/fd1az/flashloan-deployer/internal/logger"
)

const outPath = "config/deployment.json"

func newTestService(t *testing.T, chain *fakeChain, rec *memRecorder, rep Reporter) *DeploymentService {
	t.Helper()
	return NewDeploymentService(newTestRunner(t, chain, &fakeArtifacts{}, rep), rec, logger.NewDiscard())
}

func TestService_Run_WritesRecordAndSummary(t *testing.T) {
	chain := newFakeChain()
	recorder := newMemRecorder()
	rep := &captureReporter{}
	svc := newTestService(t, chain, recorder, rep)

	summary, err := svc.Run(context.Background(), testRequest(), outPath)
	require.NoError(t, err)

	saved, ok := recorder.records[outPath]
	require.True(t, ok)
	assert.Equal(t, *summary.Record, *saved)
	assert.Equal(t, contractAddr.Hex(), saved.ContractAddress)

	assert.Equal(t, outPath, summary.RecordPath)
	assert.True(t, summary.Verification.OK())
	// 1_500_000 gas at 20 gwei
	assert.Equal(t, "0.03 ETH", summary.Cost.String())
	assert.Equal(t, "2 ETH", summary.Balance.String())

	assert.Equal(t, outPath, rep.recorded)
	assert.Same(t, summary, rep.summary)
	status, _ := rep.lastStatus(domain.StepRecord)
	assert.Equal(t, domain.StatusDone, status)
}

func TestService_Run_SpentTracksBalanceDrop(t *testing.T) {
	tests := []struct {
		name  string
		after *big.Int
		spent string
	}{
		{"matches gas cost", big.NewInt(1_970_000_000_000_000_000), "0.03 ETH"},
		{"other outflow", big.NewInt(1_500_000_000_000_000_000), "0.5 ETH"},
		{"balance grew", big.NewInt(3_000_000_000_000_000_000), "0 ETH"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chain := newFakeChain()
			chain.balances = []*big.Int{big.NewInt(2e18), tt.after}
			svc := newTestService(t, chain, newMemRecorder(), NopReporter{})

			summary, err := svc.Run(context.Background(), testRequest(), outPath)
			require.NoError(t, err)
			assert.Equal(t, "0.03 ETH", summary.Cost.String())
			assert.Equal(t, tt.spent, summary.Spent.String())
		})
	}
}

func TestService_Run_VerificationFailureKeepsRecord(t *testing.T) {
	chain := newFakeChain()
	chain.readErrs["owner"] = errors.New("execution reverted")
	chain.readErrs["POOL"] = errors.New("execution reverted")
	recorder := newMemRecorder()
	svc := newTestService(t, chain, recorder, NopReporter{})

	summary, err := svc.Run(context.Background(), testRequest(), outPath)
	require.NoError(t, err)

	assert.False(t, summary.Verification.OK())
	require.Contains(t, recorder.records, outPath)
	assert.Equal(t, contractAddr.Hex(), recorder.records[outPath].ContractAddress)
}

func TestService_Run_TimeoutWritesNothing(t *testing.T) {
	chain := newFakeChain()
	chain.blockWait = true
	recorder := newMemRecorder()
	svc := newTestService(t, chain, recorder, NopReporter{})

	req := testRequest()
	req.ConfirmationTimeout = 20 * time.Millisecond

	summary, err := svc.Run(context.Background(), req, outPath)
	assert.Nil(t, summary)

	var depErr *domain.DeploymentError
	require.ErrorAs(t, err, &depErr)
	assert.Equal(t, domain.ReasonConfirmationTimeout, depErr.Reason)
	assert.Equal(t, 0, recorder.calls)
}

func TestService_Run_RecordFailureIsIOError(t *testing.T) {
	chain := newFakeChain()
	recorder := newMemRecorder()
	recorder.err = os.ErrPermission
	rep := &captureReporter{}
	svc := newTestService(t, chain, recorder, rep)

	summary, err := svc.Run(context.Background(), testRequest(), outPath)
	assert.Nil(t, summary)

	var ioErr *domain.IOError
	require.ErrorAs(t, err, &ioErr)
	assert.Equal(t, "write", ioErr.Op)
	assert.Equal(t, outPath, ioErr.Path)
	assert.ErrorIs(t, err, os.ErrPermission)

	var depErr *domain.DeploymentError
	assert.False(t, errors.As(err, &depErr))

	// verification is skipped once the record could not be saved
	assert.Nil(t, rep.verified)
	status, _ := rep.lastStatus(domain.StepRecord)
	assert.Equal(t, domain.StatusFailed, status)
}

func TestService_Run_BalanceReadAfterDeployFails(t *testing.T) {
	chain := newFakeChain()
	recorder := newMemRecorder()
	svc := newTestService(t, chain, recorder, NopReporter{})

	// The first balance read succeeds inside Publish; fail the remaining one.
	wrapped := &balanceAfterFirst{fakeChain: chain, err: errors.New("connection reset")}
	svc.runner.chain = wrapped

	summary, err := svc.Run(context.Background(), testRequest(), outPath)
	require.NoError(t, err)
	assert.True(t, summary.Balance.IsZero())
	assert.Equal(t, "0 ETH", summary.Balance.String())
}

func TestService_VerifyExisting(t *testing.T) {
	chain := newFakeChain()
	recorder := newMemRecorder()
	rep := &captureReporter{}
	svc := newTestService(t, chain, recorder, rep)

	_, err := svc.Run(context.Background(), testRequest(), outPath)
	require.NoError(t, err)

	rec, v, err := svc.VerifyExisting(context.Background(), testRequest(), outPath)
	require.NoError(t, err)
	assert.Equal(t, contractAddr.Hex(), rec.ContractAddress)
	assert.True(t, v.OK())
	assert.True(t, v.OwnerMatches)
}

func TestService_VerifyExisting_MissingRecord(t *testing.T) {
	rep := &captureReporter{}
	svc := newTestService(t, newFakeChain(), newMemRecorder(), rep)

	_, _, err := svc.VerifyExisting(context.Background(), testRequest(), "missing.json")

	var ioErr *domain.IOError
	require.ErrorAs(t, err, &ioErr)
	assert.ErrorIs(t, err, os.ErrNotExist)
	assert.Len(t, rep.failures, 1)
}

func TestService_VerifyExisting_RejectsNonAddress(t *testing.T) {
	recorder := newMemRecorder()
	recorder.records[outPath] = &domain.Record{
		ContractAddress: "0xABC",
		Deployer:        "0xDEF",
		Network:         "localhost",
	}
	svc := newTestService(t, newFakeChain(), recorder, NopReporter{})

	_, _, err := svc.VerifyExisting(context.Background(), testRequest(), outPath)

	var ioErr *domain.IOError
	require.ErrorAs(t, err, &ioErr)
	assert.Equal(t, "parse", ioErr.Op)
}

// balanceAfterFirst fails every Balance call after the first one.
type balanceAfterFirst struct {
	*fakeChain
	err   error
	calls int
}

func (b *balanceAfterFirst) Balance(ctx context.Context, addr common.Address) (*big.Int, error) {
	b.calls++
	if b.calls > 1 {
		return nil, b.err
	}
	return b.fakeChain.Balance(ctx, addr)
}
