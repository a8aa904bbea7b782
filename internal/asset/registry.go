package asset

import (
	"fmt"
	"sync"
)

// Registry is a thread-safe registry of known assets.
type Registry struct {
	byID map[AssetID]*Asset
	mu   sync.RWMutex
}

// NewRegistry creates a new empty asset registry.
func NewRegistry() *Registry {
	return &Registry{byID: make(map[AssetID]*Asset)}
}

// Register adds an asset to the registry.
// Panics if an asset with the same ID is already registered.
func (r *Registry) Register(a *Asset) {
	if a == nil {
		panic("asset: cannot register nil asset")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byID[a.ID()]; exists {
		panic(fmt.Sprintf("asset: %s already registered", a.ID()))
	}
	r.byID[a.ID()] = a
}

// Get retrieves an asset by its ID.
func (r *Registry) Get(id AssetID) (*Asset, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	a, ok := r.byID[id]
	return a, ok
}

// GetNative retrieves the native coin for a chain.
func (r *Registry) GetNative(chainID uint64) (*Asset, bool) {
	return r.Get(NewNativeAssetID(chainID))
}

// NativeOrDefault returns the registered native coin for chainID, or a
// generic 18-decimal "ETH" when the chain is unknown.
func (r *Registry) NativeOrDefault(chainID uint64) *Asset {
	if a, ok := r.GetNative(chainID); ok {
		return a
	}
	return NewNative(chainID, "ETH", "Ether")
}

// Count returns the number of registered assets.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byID)
}
