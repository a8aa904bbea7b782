// Package ethereum provides the go-ethereum adapters of the deployment context.
package ethereum

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"

	"github.com/fd1az/flashloan-deployer/internal/apperror"
	"github.com/fd1az/flashloan-deployer/internal/httpclient"
)

const (
	tracerName = "github.com/fd1az/flashloan-deployer/business/deployment/infra/ethereum"
	meterName  = "github.com/fd1az/flashloan-deployer/business/deployment/infra/ethereum"
)

// Backend is the subset of the JSON-RPC API the adapters use. It is
// satisfied by *ethclient.Client and by the simulated backend client.
type Backend interface {
	ChainID(ctx context.Context) (*big.Int, error)
	BlockNumber(ctx context.Context) (uint64, error)
	BalanceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (*big.Int, error)
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
	EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error)
	SendTransaction(ctx context.Context, tx *types.Transaction) error
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
}

// Dial connects to an HTTP JSON-RPC endpoint through the instrumented HTTP client.
func Dial(ctx context.Context, url string, opts ...httpclient.ClientOption) (*ethclient.Client, error) {
	hc, err := httpclient.New(opts...)
	if err != nil {
		return nil, apperror.New(apperror.CodeConfigurationError,
			apperror.WithCause(err),
			apperror.WithContext("rpc http client"))
	}

	rc, err := rpc.DialOptions(ctx, url, rpc.WithHTTPClient(hc))
	if err != nil {
		return nil, apperror.New(apperror.CodeEthereumConnectionFailed,
			apperror.WithCause(err),
			apperror.WithContext("dial rpc endpoint"))
	}

	return ethclient.NewClient(rc), nil
}
