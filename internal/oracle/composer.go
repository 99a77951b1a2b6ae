package oracle

import (
	"errors"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/rs/zerolog"

	vmath "LendingVault/internal/math"
)

// PriceDecimals is the fixed scale every composed price is expressed in.
const PriceDecimals = 8

var (
	ErrNotAdminOrVault     = errors.New("caller is not admin or vault")
	ErrArrayLengthMismatch = errors.New("input array lengths do not match")
)

// WeightedPoolSource reports a weighted pool's composition: underlying
// tokens, their current balances (18-decimal) and the LP total supply.
type WeightedPoolSource interface {
	Tokens() []common.Address
	Balances() []*big.Int
	TotalSupply() *big.Int
}

// StableSwapSource reports a stable-swap pool's coins and its virtual price
// (18-decimal LP-to-underlying exchange rate).
type StableSwapSource interface {
	Coins() []common.Address
	VirtualPrice() *big.Int
}

// Composer resolves USD prices by dispatching on the asset's classification.
// Unknown or feed-less assets price at zero; callers treat zero as
// "unpriced", which collapses any borrowable amount to zero.
type Composer struct {
	admin    common.Address
	vault    common.Address
	registry *Registry
	feeds    map[common.Address]PriceFeed
	weighted map[common.Address]WeightedPoolSource
	stable   map[common.Address]StableSwapSource
	logger   zerolog.Logger
}

func NewComposer(admin, vault common.Address, registry *Registry, logger zerolog.Logger) *Composer {
	return &Composer{
		admin:    admin,
		vault:    vault,
		registry: registry,
		feeds:    make(map[common.Address]PriceFeed),
		weighted: make(map[common.Address]WeightedPoolSource),
		stable:   make(map[common.Address]StableSwapSource),
		logger:   logger,
	}
}

func (c *Composer) authorize(caller common.Address) error {
	if caller != c.admin && caller != c.vault {
		return ErrNotAdminOrVault
	}
	return nil
}

// SetAssetSources registers direct price feeds for assets, positionally.
func (c *Composer) SetAssetSources(caller common.Address, assets []common.Address, feeds []PriceFeed) error {
	if err := c.authorize(caller); err != nil {
		return err
	}
	if len(assets) != len(feeds) {
		return ErrArrayLengthMismatch
	}
	for i, asset := range assets {
		c.feeds[asset] = feeds[i]
	}
	return nil
}

// SetWeightedPool registers the pool source backing a weighted-pool LP asset.
func (c *Composer) SetWeightedPool(caller, asset common.Address, source WeightedPoolSource) error {
	if err := c.authorize(caller); err != nil {
		return err
	}
	c.weighted[asset] = source
	return nil
}

// SetStableSwapPool registers the pool source backing a stable-swap LP asset.
func (c *Composer) SetStableSwapPool(caller, asset common.Address, source StableSwapSource) error {
	if err := c.authorize(caller); err != nil {
		return err
	}
	c.stable[asset] = source
	return nil
}

// GetAssetPrice returns the asset's USD price at PriceDecimals. It never
// fails: anything it cannot price comes back as zero.
func (c *Composer) GetAssetPrice(asset common.Address) *big.Int {
	info := c.registry.Classify(asset)
	switch info.Class {
	case ClassDirect:
		return c.directPrice(asset)
	case ClassWeightedPool:
		return c.weightedPoolPrice(asset)
	case ClassStableSwap:
		return c.stableSwapPrice(asset)
	default:
		return new(big.Int)
	}
}

func (c *Composer) directPrice(asset common.Address) *big.Int {
	feed, ok := c.feeds[asset]
	if !ok {
		return new(big.Int)
	}
	value, decimals, ok := feed.LatestPrice()
	if !ok || value.Sign() <= 0 {
		return new(big.Int)
	}
	return vmath.ScaleDecimals(value, decimals, PriceDecimals)
}

// weightedPoolPrice values the LP as pool TVL over LP supply: each
// underlying balance priced through its direct feed. Any unpriced underlying
// makes the whole LP unpriced.
func (c *Composer) weightedPoolPrice(asset common.Address) *big.Int {
	source, ok := c.weighted[asset]
	if !ok {
		return new(big.Int)
	}
	tokens := source.Tokens()
	balances := source.Balances()
	supply := source.TotalSupply()
	if len(tokens) != len(balances) || supply.Sign() == 0 {
		return new(big.Int)
	}

	tvl := new(big.Int)
	for i, tok := range tokens {
		price := c.directPrice(tok)
		if price.Sign() == 0 {
			c.logger.Warn().Str("asset", asset.Hex()).Str("underlying", tok.Hex()).
				Msg("weighted pool underlying unpriced")
			return new(big.Int)
		}
		tvl.Add(tvl, new(big.Int).Mul(balances[i], price))
	}
	// balances are 18-decimal, prices PriceDecimals: dividing by supply
	// (18-decimal) leaves the result at PriceDecimals.
	return new(big.Int).Quo(tvl, supply)
}

// stableSwapPrice values the LP as virtualPrice * min(underlying prices),
// a conservative lower bound against single-coin depeg.
func (c *Composer) stableSwapPrice(asset common.Address) *big.Int {
	source, ok := c.stable[asset]
	if !ok {
		return new(big.Int)
	}
	coins := source.Coins()
	if len(coins) == 0 {
		return new(big.Int)
	}

	var minPrice *big.Int
	for _, coin := range coins {
		price := c.directPrice(coin)
		if price.Sign() == 0 {
			return new(big.Int)
		}
		if minPrice == nil || price.Cmp(minPrice) < 0 {
			minPrice = price
		}
	}
	return vmath.WadMul(source.VirtualPrice(), minPrice)
}
