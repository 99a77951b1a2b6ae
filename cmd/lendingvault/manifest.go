package main

import (
	"fmt"
	"math/big"

	"github.com/BurntSushi/toml"
	"github.com/ethereum/go-ethereum/common"
	"github.com/rs/zerolog"

	"LendingVault/internal/oracle"
	"LendingVault/internal/strategy"
	"LendingVault/internal/token"
	"LendingVault/internal/vault"
)

// Manifest is the deployment configuration: the admin and stable token
// addresses, global accrual parameters, the yield venues collateral is
// staked at, and every collateral asset with its classification and risk
// limits. It is read once at startup; runtime changes arrive as admin
// events.
type Manifest struct {
	Admin  string         `toml:"admin"`
	Stable string         `toml:"stable"`
	Params ManifestParams `toml:"params"`

	Gauges   []GaugeManifest   `toml:"gauge"`
	Boosters []BoosterManifest `toml:"booster"`
	Assets   []AssetManifest   `toml:"asset"`
}

type ManifestParams struct {
	InterestRateBps       int64 `toml:"interest_rate_bps"`
	FlashLoanFeeBps       int64 `toml:"flash_loan_fee_bps"`
	LiquidationPenaltyBps int64 `toml:"liquidation_penalty_bps"`
}

// GaugeManifest declares one single-reward gauge strategy and the per-asset
// venues it stakes into. The strategy name keys snapshot entries; venue
// names key RewardAccrual events.
type GaugeManifest struct {
	Name        string            `toml:"name"`
	RewardToken string            `toml:"reward_token"`
	Venues      []GaugeVenueEntry `toml:"venue"`
}

type GaugeVenueEntry struct {
	Name  string `toml:"name"`
	Asset string `toml:"asset"`
}

// BoosterManifest declares one dual-reward booster venue with its numbered
// pools. Pools may also be registered later via PoolRegistration events.
type BoosterManifest struct {
	Name            string             `toml:"name"`
	PrimaryReward   string             `toml:"primary_reward"`
	SecondaryReward string             `toml:"secondary_reward"`
	Pools           []BoosterPoolEntry `toml:"pool"`
}

type BoosterPoolEntry struct {
	PoolID uint64 `toml:"pid"`
	Asset  string `toml:"asset"`
}

// AssetManifest declares one collateral asset: pricing classification, feed
// precision, risk limits and the strategy custodying it. LP assets also
// declare their pool composition so the composer can price them through
// the underlying token feeds.
type AssetManifest struct {
	Address string `toml:"address"`
	// Class is "direct", "weighted_pool" or "stable_swap".
	Class string `toml:"class"`
	// Pool is the stable-swap pool address; stable_swap assets only.
	Pool         string `toml:"pool"`
	FeedDecimals uint8  `toml:"feed_decimals"`

	// Underlyings lists the pool's constituent tokens; weighted_pool and
	// stable_swap assets only.
	Underlyings []UnderlyingEntry `toml:"underlying"`
	// TotalSupply is the LP token supply, 18-decimal; weighted_pool only.
	TotalSupply string `toml:"total_supply"`
	// VirtualPrice is the 18-decimal LP redemption rate; stable_swap only.
	VirtualPrice string `toml:"virtual_price"`

	LoanToValueBps          int64 `toml:"ltv_bps"`
	LiquidationThresholdBps int64 `toml:"liquidation_threshold_bps"`
	Decimals                uint8 `toml:"decimals"`

	// Strategy names the gauge or booster strategy holding this asset.
	Strategy string `toml:"strategy"`
}

// UnderlyingEntry declares one constituent token of an LP asset's pool.
// Balance is the pool's 18-decimal holding; weighted_pool assets only.
type UnderlyingEntry struct {
	Token        string `toml:"token"`
	Balance      string `toml:"balance"`
	FeedDecimals uint8  `toml:"feed_decimals"`
}

// LoadManifest reads and validates the TOML manifest.
func LoadManifest(path string) (*Manifest, error) {
	var m Manifest
	if _, err := toml.DecodeFile(path, &m); err != nil {
		return nil, fmt.Errorf("decode manifest %s: %w", path, err)
	}
	if !common.IsHexAddress(m.Admin) {
		return nil, fmt.Errorf("manifest: bad admin address %q", m.Admin)
	}
	if !common.IsHexAddress(m.Stable) {
		return nil, fmt.Errorf("manifest: bad stable address %q", m.Stable)
	}
	for _, a := range m.Assets {
		if !common.IsHexAddress(a.Address) {
			return nil, fmt.Errorf("manifest: bad asset address %q", a.Address)
		}
		switch a.Class {
		case "direct":
		case "weighted_pool":
			if len(a.Underlyings) == 0 {
				return nil, fmt.Errorf("manifest: asset %s: weighted_pool needs underlyings", a.Address)
			}
			if a.TotalSupply == "" {
				return nil, fmt.Errorf("manifest: asset %s: weighted_pool needs total_supply", a.Address)
			}
			for _, u := range a.Underlyings {
				if u.Balance == "" {
					return nil, fmt.Errorf("manifest: asset %s: underlying %s needs a balance", a.Address, u.Token)
				}
			}
		case "stable_swap":
			if !common.IsHexAddress(a.Pool) {
				return nil, fmt.Errorf("manifest: asset %s: stable_swap needs a pool address", a.Address)
			}
			if len(a.Underlyings) == 0 {
				return nil, fmt.Errorf("manifest: asset %s: stable_swap needs underlyings", a.Address)
			}
			if a.VirtualPrice == "" {
				return nil, fmt.Errorf("manifest: asset %s: stable_swap needs virtual_price", a.Address)
			}
		default:
			return nil, fmt.Errorf("manifest: asset %s: unknown class %q", a.Address, a.Class)
		}
		for _, u := range a.Underlyings {
			if !common.IsHexAddress(u.Token) {
				return nil, fmt.Errorf("manifest: asset %s: bad underlying token %q", a.Address, u.Token)
			}
		}
		if a.Strategy == "" {
			return nil, fmt.Errorf("manifest: asset %s: missing strategy", a.Address)
		}
	}
	return &m, nil
}

// Vault is the fully wired in-memory lending stack built from a manifest.
// Feeds, gauges and boosters are exposed by name so the processor can
// register them for snapshots and reward routing.
type Vault struct {
	Engine   *vault.Engine
	Bank     *token.Bank
	Composer *oracle.Composer

	Feeds             map[common.Address]*oracle.Feed
	Strategies        map[string]strategy.Snapshotter
	Gauges            map[string]*strategy.MemoryGauge
	Boosters          map[string]*strategy.MemoryBooster
	BoosterStrategies map[string]*strategy.BoosterStrategy
}

func manifestClass(s string) oracle.AssetClass {
	switch s {
	case "direct":
		return oracle.ClassDirect
	case "weighted_pool":
		return oracle.ClassWeightedPool
	case "stable_swap":
		return oracle.ClassStableSwap
	default:
		return oracle.ClassUnknown
	}
}

// BuildVault constructs the engine, bank, oracle composer and strategies a
// manifest describes. Every asset is classified, given a price feed, bound
// to its strategy and risk-configured before the processor starts.
func BuildVault(m *Manifest, logger zerolog.Logger) (*Vault, error) {
	admin := common.HexToAddress(m.Admin)
	stable := common.HexToAddress(m.Stable)

	bank := token.NewBank()
	registry := oracle.NewRegistry()
	composer := oracle.NewComposer(admin, token.VaultAddress, registry, logger)

	v := &Vault{
		Bank:              bank,
		Composer:          composer,
		Feeds:             make(map[common.Address]*oracle.Feed),
		Strategies:        make(map[string]strategy.Snapshotter),
		Gauges:            make(map[string]*strategy.MemoryGauge),
		Boosters:          make(map[string]*strategy.MemoryBooster),
		BoosterStrategies: make(map[string]*strategy.BoosterStrategy),
	}

	// Strategies the assets can reference by name.
	byName := make(map[string]strategy.Strategy)

	for _, gm := range m.Gauges {
		if !common.IsHexAddress(gm.RewardToken) {
			return nil, fmt.Errorf("gauge %s: bad reward token %q", gm.Name, gm.RewardToken)
		}
		rewardToken := common.HexToAddress(gm.RewardToken)
		strat := strategy.NewGaugeStrategy(bank, token.VaultAddress, rewardToken, logger)
		for _, ve := range gm.Venues {
			if !common.IsHexAddress(ve.Asset) {
				return nil, fmt.Errorf("gauge venue %s: bad asset %q", ve.Name, ve.Asset)
			}
			asset := common.HexToAddress(ve.Asset)
			gauge := strategy.NewMemoryGauge(bank, asset, rewardToken, ve.Name, token.VaultAddress)
			strat.RegisterGauge(asset, gauge)
			v.Gauges[ve.Name] = gauge
		}
		byName[gm.Name] = strat
		v.Strategies[gm.Name] = strat
	}

	for _, bm := range m.Boosters {
		if !common.IsHexAddress(bm.PrimaryReward) || !common.IsHexAddress(bm.SecondaryReward) {
			return nil, fmt.Errorf("booster %s: bad reward token", bm.Name)
		}
		booster := strategy.NewMemoryBooster(bank,
			common.HexToAddress(bm.PrimaryReward),
			common.HexToAddress(bm.SecondaryReward),
			bm.Name, token.VaultAddress)
		strat := strategy.NewBoosterStrategy(bank, token.VaultAddress, booster, logger)
		for _, pe := range bm.Pools {
			if !common.IsHexAddress(pe.Asset) {
				return nil, fmt.Errorf("booster %s pool %d: bad asset %q", bm.Name, pe.PoolID, pe.Asset)
			}
			asset := common.HexToAddress(pe.Asset)
			booster.AddPool(pe.PoolID, asset)
			strat.SetPoolID(asset, pe.PoolID)
		}
		byName[bm.Name] = strat
		v.Strategies[bm.Name] = strat
		v.Boosters[bm.Name] = booster
		v.BoosterStrategies[bm.Name] = strat
	}

	params := vault.Params{
		InterestRateBps:       m.Params.InterestRateBps,
		FlashLoanFeeBps:       m.Params.FlashLoanFeeBps,
		LiquidationPenaltyBps: m.Params.LiquidationPenaltyBps,
	}
	engine := vault.NewEngine(admin, stable, bank, composer, params, logger)
	v.Engine = engine

	for _, am := range m.Assets {
		asset := common.HexToAddress(am.Address)

		info := oracle.AssetInfo{Class: manifestClass(am.Class)}
		if am.Class == "stable_swap" {
			info.Pool = common.HexToAddress(am.Pool)
		}
		registry.SetAssetInfo(asset, info)

		feed := oracle.NewFeed(am.FeedDecimals)
		if err := composer.SetAssetSources(admin, []common.Address{asset}, []oracle.PriceFeed{feed}); err != nil {
			return nil, fmt.Errorf("asset %s: set price source: %w", am.Address, err)
		}
		v.Feeds[asset] = feed

		if err := wirePoolSources(admin, composer, v, am, asset); err != nil {
			return nil, err
		}

		strat, ok := byName[am.Strategy]
		if !ok {
			return nil, fmt.Errorf("asset %s: unknown strategy %q", am.Address, am.Strategy)
		}
		if err := engine.SetStrategy(admin, asset, strat); err != nil {
			return nil, fmt.Errorf("asset %s: set strategy: %w", am.Address, err)
		}
		if err := engine.SetRiskConfig(admin, asset, vault.RiskConfig{
			LoanToValueBps:          am.LoanToValueBps,
			LiquidationThresholdBps: am.LiquidationThresholdBps,
			Decimals:                am.Decimals,
		}); err != nil {
			return nil, fmt.Errorf("asset %s: set risk config: %w", am.Address, err)
		}
	}

	return v, nil
}

// wirePoolSources binds an LP asset's pool composition to the composer and
// gives each underlying token a price feed, so LP prices resolve through
// the underlying feeds instead of staying at zero.
func wirePoolSources(admin common.Address, composer *oracle.Composer, v *Vault, am AssetManifest, asset common.Address) error {
	if len(am.Underlyings) == 0 {
		return nil
	}

	tokens := make([]common.Address, len(am.Underlyings))
	for i, u := range am.Underlyings {
		tok := common.HexToAddress(u.Token)
		tokens[i] = tok
		if _, ok := v.Feeds[tok]; ok {
			continue
		}
		uf := oracle.NewFeed(u.FeedDecimals)
		if err := composer.SetAssetSources(admin, []common.Address{tok}, []oracle.PriceFeed{uf}); err != nil {
			return fmt.Errorf("asset %s: set underlying source: %w", am.Address, err)
		}
		v.Feeds[tok] = uf
	}

	switch am.Class {
	case "weighted_pool":
		balances := make([]*big.Int, len(am.Underlyings))
		for i, u := range am.Underlyings {
			b, ok := new(big.Int).SetString(u.Balance, 10)
			if !ok {
				return fmt.Errorf("asset %s: bad underlying balance %q", am.Address, u.Balance)
			}
			balances[i] = b
		}
		supply, ok := new(big.Int).SetString(am.TotalSupply, 10)
		if !ok || supply.Sign() <= 0 {
			return fmt.Errorf("asset %s: bad total supply %q", am.Address, am.TotalSupply)
		}
		pool, err := oracle.NewWeightedPoolState(tokens, balances, supply)
		if err != nil {
			return fmt.Errorf("asset %s: pool state: %w", am.Address, err)
		}
		if err := composer.SetWeightedPool(admin, asset, pool); err != nil {
			return fmt.Errorf("asset %s: set weighted pool: %w", am.Address, err)
		}
	case "stable_swap":
		vp, ok := new(big.Int).SetString(am.VirtualPrice, 10)
		if !ok || vp.Sign() <= 0 {
			return fmt.Errorf("asset %s: bad virtual price %q", am.Address, am.VirtualPrice)
		}
		pool := oracle.NewStableSwapState(tokens, vp)
		if err := composer.SetStableSwapPool(admin, asset, pool); err != nil {
			return fmt.Errorf("asset %s: set stable-swap pool: %w", am.Address, err)
		}
	}
	return nil
}
