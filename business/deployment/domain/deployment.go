package domain

import (
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/fd1az/flashloan-deployer/internal/asset"
)

// Request is the explicit input of one deployment.
type Request struct {
	Network             string
	ChainID             uint64
	ContractName        string
	PoolAddressProvider common.Address
	ConfirmationTimeout time.Duration
	Confirmations       uint64
	OwnerMethod         string
	PoolMethod          string
}

// Validate checks the request before any network call is made. The pool
// address provider is taken as given; any well-formed address is accepted.
func (r Request) Validate() error {
	switch {
	case r.Network == "":
		return fmt.Errorf("request: network is empty")
	case r.ContractName == "":
		return fmt.Errorf("request: contract name is empty")
	case r.ConfirmationTimeout <= 0:
		return fmt.Errorf("request: confirmation timeout must be positive")
	}
	return nil
}

// Submission is a signed creation transaction accepted by the node.
type Submission struct {
	From     common.Address
	Address  common.Address // derived from sender and nonce
	TxHash   common.Hash
	Nonce    uint64
	GasLimit uint64
	GasPrice *big.Int
}

// Confirmation is the receipt data of a mined creation transaction.
type Confirmation struct {
	BlockNumber       uint64
	GasUsed           uint64
	EffectiveGasPrice *big.Int
}

// Deployment carries everything known after a successful publish.
type Deployment struct {
	Record        *Record
	Submission    *Submission
	Confirmation  *Confirmation
	Deployer      common.Address
	BalanceBefore asset.Amount
}

// Verification holds the post-deployment reads. Errors are informational.
type Verification struct {
	Owner    common.Address
	OwnerErr error
	Pool     common.Address
	PoolErr  error
	// OwnerMatches is true when the owner read succeeded and equals the deployer.
	OwnerMatches bool
}

// OK reports whether both reads succeeded.
func (v *Verification) OK() bool {
	return v != nil && v.OwnerErr == nil && v.PoolErr == nil
}

// Summary is the operator-facing outcome of a run.
type Summary struct {
	Record       *Record
	RecordPath   string
	Verification *Verification
	Cost         asset.Amount
	Balance      asset.Amount // remaining balance, zero when the read failed
	Spent        asset.Amount // balance drop over the run, zero when the read failed
	Duration     time.Duration
}
