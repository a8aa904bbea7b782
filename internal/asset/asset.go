package asset

// Asset is the metadata of an on-chain coin or token.
// The symbol is display metadata; identity is the AssetID.
type Asset struct {
	id       AssetID
	symbol   string
	name     string
	decimals uint8
}

// NewAsset creates a new Asset with the given parameters.
func NewAsset(id AssetID, symbol, name string, decimals uint8) *Asset {
	if symbol == "" {
		panic("asset: empty symbol")
	}
	if decimals > 30 {
		panic("asset: suspicious decimals (>30)")
	}
	return &Asset{id: id, symbol: symbol, name: name, decimals: decimals}
}

// ID returns the unique identifier for this asset.
func (a *Asset) ID() AssetID { return a.id }

// Symbol returns the ticker symbol (e.g., "ETH").
func (a *Asset) Symbol() string { return a.symbol }

// Name returns the human-readable name, falling back to the symbol.
func (a *Asset) Name() string {
	if a.name == "" {
		return a.symbol
	}
	return a.name
}

// Decimals returns the number of decimal places.
func (a *Asset) Decimals() uint8 { return a.decimals }

// ChainID returns the chain the asset lives on.
func (a *Asset) ChainID() uint64 { return a.id.ChainID() }

func (a *Asset) String() string { return a.symbol }

// Equals compares two Assets by their ID.
func (a *Asset) Equals(other *Asset) bool {
	if a == nil || other == nil {
		return a == other
	}
	return a.id.Equals(other.id)
}
