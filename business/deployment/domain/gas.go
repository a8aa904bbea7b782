package domain

import (
	"math/big"

	"github.com/fd1az/flashloan-deployer/internal/asset"
)

// GasSource tells where a gas value came from.
type GasSource string

const (
	GasFromConfig GasSource = "config"
	GasFromNode   GasSource = "node"
)

// GasQuote is the gas price and limit chosen for a creation transaction.
type GasQuote struct {
	Price       *big.Int
	Limit       uint64
	PriceSource GasSource
	LimitSource GasSource
}

// MaxCost is the upper bound the transaction can spend on gas.
func (q GasQuote) MaxCost(native *asset.Asset) asset.Amount {
	return asset.GasCost(native, q.Limit, q.Price)
}

// ActualCost is gasUsed times the effective price paid.
func (c *Confirmation) ActualCost(native *asset.Asset) asset.Amount {
	if c == nil {
		return asset.Zero(native)
	}
	return asset.GasCost(native, c.GasUsed, c.EffectiveGasPrice)
}
