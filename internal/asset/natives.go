package asset

// Chain IDs of the networks the deployer has presets for.
const (
	ChainIDEthereum = 1
	ChainIDSepolia  = 11155111
	ChainIDPolygon  = 137
	ChainIDArbitrum = 42161
	ChainIDHardhat  = 31337
	ChainIDGeth     = 1337 // geth --dev and the simulated backend
)

// Native coins for the preset networks.
var (
	ETH         = NewAsset(NewNativeAssetID(ChainIDEthereum), "ETH", "Ether", 18)
	SepoliaETH  = NewAsset(NewNativeAssetID(ChainIDSepolia), "ETH", "Sepolia Ether", 18)
	POL         = NewAsset(NewNativeAssetID(ChainIDPolygon), "POL", "Polygon Ecosystem Token", 18)
	ArbitrumETH = NewAsset(NewNativeAssetID(ChainIDArbitrum), "ETH", "Arbitrum Ether", 18)
	HardhatETH  = NewAsset(NewNativeAssetID(ChainIDHardhat), "ETH", "Hardhat Ether", 18)
	DevETH      = NewAsset(NewNativeAssetID(ChainIDGeth), "ETH", "Dev Ether", 18)
)

// DefaultRegistry returns a registry pre-populated with the preset natives.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(ETH)
	r.Register(SepoliaETH)
	r.Register(POL)
	r.Register(ArbitrumETH)
	r.Register(HardhatETH)
	r.Register(DevETH)
	return r
}

// NewNative creates a native coin asset for an arbitrary chain.
func NewNative(chainID uint64, symbol, name string) *Asset {
	return NewAsset(NewNativeAssetID(chainID), symbol, name, 18)
}
