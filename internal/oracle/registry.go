package oracle

import (
	"github.com/ethereum/go-ethereum/common"
)

// AssetClass selects the pricing strategy for an asset.
type AssetClass uint8

const (
	ClassUnknown AssetClass = iota
	ClassDirect             // priced by an external feed
	ClassWeightedPool       // LP token of a weighted pool
	ClassStableSwap         // LP token of a stable-swap pool
)

func (c AssetClass) String() string {
	switch c {
	case ClassDirect:
		return "direct"
	case ClassWeightedPool:
		return "weighted_pool"
	case ClassStableSwap:
		return "stable_swap"
	default:
		return "unknown"
	}
}

// AssetInfo is the classification record for one asset.
type AssetInfo struct {
	Class AssetClass
	// Pool is auxiliary metadata for stable-swap LP tokens: the address of
	// the pool whose virtual price values the LP.
	Pool common.Address
}

// Registry maps asset identifiers to their pricing classification. Entries
// are admin-configured before an asset becomes borrowable and read on every
// price lookup.
type Registry struct {
	assets map[common.Address]AssetInfo
}

func NewRegistry() *Registry {
	return &Registry{
		assets: make(map[common.Address]AssetInfo),
	}
}

// SetAssetInfo classifies an asset. Stable-swap assets carry their pool.
func (r *Registry) SetAssetInfo(asset common.Address, info AssetInfo) {
	r.assets[asset] = info
}

// Classify returns the asset's classification; ClassUnknown if never set.
func (r *Registry) Classify(asset common.Address) AssetInfo {
	return r.assets[asset]
}
