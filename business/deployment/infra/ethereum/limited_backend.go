package ethereum

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/fd1az/flashloan-deployer/internal/ratelimit"
)

// limitedBackend paces every JSON-RPC call through a shared limiter so public
// endpoints with per-minute quotas do not reject the receipt polling.
type limitedBackend struct {
	Backend
	limiter *ratelimit.Limiter
}

// NewLimitedBackend wraps b so it issues at most requestsPerMinute calls.
// A non-positive limit returns b unchanged.
func NewLimitedBackend(b Backend, requestsPerMinute int) Backend {
	if requestsPerMinute <= 0 {
		return b
	}
	return &limitedBackend{
		Backend: b,
		limiter: ratelimit.New(requestsPerMinute),
	}
}

func (l *limitedBackend) ChainID(ctx context.Context) (*big.Int, error) {
	if err := l.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	return l.Backend.ChainID(ctx)
}

func (l *limitedBackend) BlockNumber(ctx context.Context) (uint64, error) {
	if err := l.limiter.Wait(ctx); err != nil {
		return 0, err
	}
	return l.Backend.BlockNumber(ctx)
}

func (l *limitedBackend) BalanceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (*big.Int, error) {
	if err := l.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	return l.Backend.BalanceAt(ctx, account, blockNumber)
}

func (l *limitedBackend) PendingNonceAt(ctx context.Context, account common.Address) (uint64, error) {
	if err := l.limiter.Wait(ctx); err != nil {
		return 0, err
	}
	return l.Backend.PendingNonceAt(ctx, account)
}

func (l *limitedBackend) SuggestGasPrice(ctx context.Context) (*big.Int, error) {
	if err := l.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	return l.Backend.SuggestGasPrice(ctx)
}

func (l *limitedBackend) EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error) {
	if err := l.limiter.Wait(ctx); err != nil {
		return 0, err
	}
	return l.Backend.EstimateGas(ctx, msg)
}

func (l *limitedBackend) SendTransaction(ctx context.Context, tx *types.Transaction) error {
	if err := l.limiter.Wait(ctx); err != nil {
		return err
	}
	return l.Backend.SendTransaction(ctx, tx)
}

func (l *limitedBackend) TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error) {
	if err := l.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	return l.Backend.TransactionReceipt(ctx, txHash)
}

func (l *limitedBackend) CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error) {
	if err := l.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	return l.Backend.CallContract(ctx, msg, blockNumber)
}
