package config

import (
	"os"
	"sort"
	"strings"
)

// Preset carries the per-network defaults mirrored from the Hardhat config
// the contract was originally deployed with.
type Preset struct {
	Name         string
	ChainID      uint64
	RPCEnv       string // env var holding the RPC URL
	DefaultRPC   string // used when RPCEnv is unset
	GasPriceGwei float64
	GasLimit     uint64
	PoolProvider string // Aave PoolAddressesProvider
}

const infuraProjectIDEnv = "INFURA_PROJECT_ID"

var presets = map[string]Preset{
	"mainnet": {
		Name:         "mainnet",
		ChainID:      1,
		RPCEnv:       "ETHEREUM_RPC_URL",
		DefaultRPC:   "https://mainnet.infura.io/v3/your-project-id",
		GasPriceGwei: 20,
		GasLimit:     6_000_000,
		PoolProvider: "0x2f39d218133AFaB8F2B819B1066c7E434Ad94E9e",
	},
	"sepolia": {
		Name:         "sepolia",
		ChainID:      11155111,
		GasPriceGwei: 20,
		GasLimit:     6_000_000,
		PoolProvider: "0x012bAC54348C0E635dCAc9D5FB99f06F24136C9A",
	},
	"polygon": {
		Name:         "polygon",
		ChainID:      137,
		RPCEnv:       "POLYGON_RPC_URL",
		DefaultRPC:   "https://polygon-mainnet.infura.io/v3/your-project-id",
		GasPriceGwei: 30,
		GasLimit:     6_000_000,
		PoolProvider: "0xa97684ead0e402dC232d5A977953DF7ECBaB3CDb",
	},
	"arbitrum": {
		Name:         "arbitrum",
		ChainID:      42161,
		RPCEnv:       "ARBITRUM_RPC_URL",
		DefaultRPC:   "https://arbitrum-mainnet.infura.io/v3/your-project-id",
		GasPriceGwei: 1,
		GasLimit:     6_000_000,
		PoolProvider: "0xa97684ead0e402dC232d5A977953DF7ECBaB3CDb",
	},
	"localhost": {
		Name:       "localhost",
		ChainID:    31337,
		DefaultRPC: "http://127.0.0.1:8545",
	},
}

// LookupPreset returns the preset for a network name (case-insensitive).
func LookupPreset(name string) (Preset, bool) {
	p, ok := presets[strings.ToLower(strings.TrimSpace(name))]
	return p, ok
}

// PresetNames lists the known networks in sorted order.
func PresetNames() []string {
	names := make([]string, 0, len(presets))
	for name := range presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// RPCURL resolves the preset's RPC endpoint from the environment.
func (p Preset) RPCURL() string {
	if p.Name == "sepolia" {
		id := os.Getenv(infuraProjectIDEnv)
		if id == "" {
			id = "your-project-id"
		}
		return "https://sepolia.infura.io/v3/" + id
	}
	if p.RPCEnv != "" {
		if url := os.Getenv(p.RPCEnv); url != "" {
			return url
		}
	}
	return p.DefaultRPC
}
