package app

import (
	"context"
	"errors"
	"math/big"
	"os"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"github.com/fd1az/flashloan-deployer/business/deployment/domain"
	"github.com/fd1az/flashloan-deployer/internal/apperror"
	"github.com/fd1az/flashloan-deployer/internal/asset"
)

var (
	deployerAddr = common.HexToAddress("0x00000000000000000000000000000000000000d1")
	contractAddr = common.HexToAddress("0x5FbDB2315678afecb367f032d93F642f64180aa3")
	poolAddr     = common.HexToAddress("0x0000000000000000000000000000000000000a0a")
	providerAddr = common.HexToAddress("0x012bAC54348C0E635dCAc9D5FB99f06F24136C9A")
	txHash       = common.HexToHash("0x9999")
)

// fakeChain is a scripted Chain.
type fakeChain struct {
	mu sync.Mutex

	signerErr  error
	balance    *big.Int
	balances   []*big.Int // served in order before falling back to balance
	balanceErr error
	deployErr  error
	waitErr    error
	blockWait  bool // WaitConfirmed blocks until ctx ends, then returns waitErr if set
	reads      map[string]common.Address
	readErrs   map[string]error

	deployArgs   []any
	deployCalls  int
	balanceCalls int
}

func newFakeChain() *fakeChain {
	return &fakeChain{
		balance: big.NewInt(2e18),
		reads: map[string]common.Address{
			"owner": deployerAddr,
			"POOL":  poolAddr,
		},
		readErrs: map[string]error{},
	}
}

func (c *fakeChain) Signer(ctx context.Context) (common.Address, error) {
	if c.signerErr != nil {
		return common.Address{}, c.signerErr
	}
	return deployerAddr, nil
}

func (c *fakeChain) Balance(ctx context.Context, addr common.Address) (*big.Int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.balanceCalls++
	if c.balanceErr != nil {
		return nil, c.balanceErr
	}
	if len(c.balances) > 0 {
		next := c.balances[0]
		c.balances = c.balances[1:]
		return new(big.Int).Set(next), nil
	}
	return new(big.Int).Set(c.balance), nil
}

func (c *fakeChain) Deploy(ctx context.Context, contract *Contract, args ...any) (*domain.Submission, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.deployCalls++
	c.deployArgs = args
	if c.deployErr != nil {
		return nil, c.deployErr
	}
	return &domain.Submission{
		From:     deployerAddr,
		Address:  contractAddr,
		TxHash:   txHash,
		Nonce:    7,
		GasLimit: 6_000_000,
		GasPrice: big.NewInt(20_000_000_000),
	}, nil
}

func (c *fakeChain) WaitConfirmed(ctx context.Context, sub *domain.Submission, confirmations uint64) (*domain.Confirmation, error) {
	if c.blockWait {
		<-ctx.Done()
		if c.waitErr != nil {
			return nil, c.waitErr
		}
		return nil, apperror.New(apperror.CodeEthereumRPCError, apperror.WithCause(ctx.Err()))
	}
	if c.waitErr != nil {
		return nil, c.waitErr
	}
	return &domain.Confirmation{
		BlockNumber:       100,
		GasUsed:           1_500_000,
		EffectiveGasPrice: big.NewInt(20_000_000_000),
	}, nil
}

func (c *fakeChain) Read(ctx context.Context, contract common.Address, method string) (common.Address, error) {
	if err := c.readErrs[method]; err != nil {
		return common.Address{}, err
	}
	addr, ok := c.reads[method]
	if !ok {
		return common.Address{}, errors.New("execution reverted")
	}
	return addr, nil
}

// fakeArtifacts returns a fixed contract or an error.
type fakeArtifacts struct {
	err error
}

func (a *fakeArtifacts) Load(ctx context.Context, name string) (*Contract, error) {
	if a.err != nil {
		return nil, a.err
	}
	return &Contract{
		Name:     name,
		Bytecode: []byte{0x60, 0x00},
		Pack:     func(args ...any) ([]byte, error) { return nil, nil },
	}, nil
}

// memRecorder keeps records in memory keyed by path.
type memRecorder struct {
	mu      sync.Mutex
	records map[string]*domain.Record
	err     error
	calls   int
}

func newMemRecorder() *memRecorder {
	return &memRecorder{records: map[string]*domain.Record{}}
}

func (m *memRecorder) Record(ctx context.Context, path string, rec *domain.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.err != nil {
		return m.err
	}
	cp := *rec
	m.records[path] = &cp
	return nil
}

func (m *memRecorder) Load(ctx context.Context, path string) (*domain.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[path]
	if !ok {
		return nil, &domain.IOError{Op: "read", Path: path, Err: os.ErrNotExist}
	}
	cp := *rec
	return &cp, nil
}

// captureReporter records every event it receives.
type captureReporter struct {
	mu        sync.Mutex
	steps     []domain.StepEvent
	balance   asset.Amount
	submitted *domain.Submission
	deployed  *domain.Record
	recorded  string
	verified  *domain.Verification
	summary   *domain.Summary
	failures  []error
}

func (r *captureReporter) StepChanged(_ context.Context, ev domain.StepEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.steps = append(r.steps, ev)
}

func (r *captureReporter) AccountResolved(_ context.Context, _ common.Address, balance asset.Amount) {
	r.balance = balance
}

func (r *captureReporter) Submitted(_ context.Context, sub *domain.Submission) { r.submitted = sub }
func (r *captureReporter) Deployed(_ context.Context, rec *domain.Record)     { r.deployed = rec }
func (r *captureReporter) Recorded(_ context.Context, path string)            { r.recorded = path }
func (r *captureReporter) Verified(_ context.Context, v *domain.Verification) { r.verified = v }
func (r *captureReporter) Completed(_ context.Context, s *domain.Summary)     { r.summary = s }

func (r *captureReporter) Failed(_ context.Context, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failures = append(r.failures, err)
}

// lastStatus returns the most recent status reported for step.
func (r *captureReporter) lastStatus(step domain.Step) (domain.StepStatus, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := len(r.steps) - 1; i >= 0; i-- {
		if r.steps[i].Step == step {
			return r.steps[i].Status, true
		}
	}
	return domain.StatusPending, false
}
