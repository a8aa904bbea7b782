// Package domain contains the core domain types for the deployment context.
package domain

import (
	"fmt"
	"time"
)

// Record is the persisted receipt of one successful contract deployment.
// Field order is the JSON key order of the written file.
type Record struct {
	ContractAddress     string    `json:"contractAddress"`
	Deployer            string    `json:"deployer"`
	Network             string    `json:"network"`
	ConstructorArgument string    `json:"constructorArgument"`
	DeploymentTime      time.Time `json:"deploymentTime"`
	TransactionHash     string    `json:"transactionHash"`

	ContractName string `json:"contractName,omitempty"`
	ChainID      uint64 `json:"chainId,omitempty"`
	BlockNumber  uint64 `json:"blockNumber,omitempty"`
	GasUsed      uint64 `json:"gasUsed,omitempty"`
}

// Validate checks that the mandatory receipt fields are present.
func (r *Record) Validate() error {
	switch {
	case r == nil:
		return fmt.Errorf("record is nil")
	case r.ContractAddress == "":
		return fmt.Errorf("record: contractAddress is empty")
	case r.Deployer == "":
		return fmt.Errorf("record: deployer is empty")
	case r.Network == "":
		return fmt.Errorf("record: network is empty")
	case r.ConstructorArgument == "":
		return fmt.Errorf("record: constructorArgument is empty")
	case r.TransactionHash == "":
		return fmt.Errorf("record: transactionHash is empty")
	case r.DeploymentTime.IsZero():
		return fmt.Errorf("record: deploymentTime is zero")
	}
	return nil
}

// NewRecord builds the record for a confirmed deployment. The timestamp is
// normalized to UTC with millisecond precision.
func NewRecord(req Request, sub *Submission, conf *Confirmation, at time.Time) *Record {
	rec := &Record{
		ContractAddress:     sub.Address.Hex(),
		Deployer:            sub.From.Hex(),
		Network:             req.Network,
		ConstructorArgument: req.PoolAddressProvider.Hex(),
		DeploymentTime:      at.UTC().Truncate(time.Millisecond),
		TransactionHash:     sub.TxHash.Hex(),
		ContractName:        req.ContractName,
		ChainID:             req.ChainID,
	}
	if conf != nil {
		rec.BlockNumber = conf.BlockNumber
		rec.GasUsed = conf.GasUsed
	}
	return rec
}
