package main

import (
	"math/big"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/rs/zerolog"
)

const testManifest = `
admin  = "0x000000000000000000000000000000000000A11c"
stable = "0x0000000000000000000000000000000000005AB1"

[params]
interest_rate_bps       = 200
flash_loan_fee_bps      = 5
liquidation_penalty_bps = 100

[[gauge]]
name         = "gauge/crv"
reward_token = "0x00000000000000000000000000000000000c0101"

  [[gauge.venue]]
  name  = "gauge/crv/steth"
  asset = "0x0000000000000000000000000000000000aaaa01"

[[booster]]
name             = "booster/main"
primary_reward   = "0x00000000000000000000000000000000000c0102"
secondary_reward = "0x00000000000000000000000000000000000c0103"

  [[booster.pool]]
  pid   = 9
  asset = "0x0000000000000000000000000000000000aaaa02"

[[asset]]
address                   = "0x0000000000000000000000000000000000aaaa01"
class                     = "direct"
feed_decimals             = 8
ltv_bps                   = 7500
liquidation_threshold_bps = 8000
decimals                  = 18
strategy                  = "gauge/crv"

[[asset]]
address                   = "0x0000000000000000000000000000000000aaaa02"
class                     = "stable_swap"
pool                      = "0x0000000000000000000000000000000000bbbb01"
feed_decimals             = 8
virtual_price             = "1020000000000000000"
ltv_bps                   = 8000
liquidation_threshold_bps = 8500
decimals                  = 18
strategy                  = "booster/main"

  [[asset.underlying]]
  token         = "0x0000000000000000000000000000000000dddd01"
  feed_decimals = 8

  [[asset.underlying]]
  token         = "0x0000000000000000000000000000000000dddd02"
  feed_decimals = 8

[[asset]]
address                   = "0x0000000000000000000000000000000000aaaa03"
class                     = "weighted_pool"
feed_decimals             = 8
total_supply              = "100000000000000000000"
ltv_bps                   = 7000
liquidation_threshold_bps = 7500
decimals                  = 18
strategy                  = "gauge/crv"

  [[asset.underlying]]
  token         = "0x0000000000000000000000000000000000dddd01"
  balance       = "1000000000000000000000"
  feed_decimals = 8

  [[asset.underlying]]
  token         = "0x0000000000000000000000000000000000dddd03"
  balance       = "1000000000000000000"
  feed_decimals = 8
`

func writeManifest(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "manifest.toml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write manifest: %v", err)
	}
	return path
}

func TestLoadManifest(t *testing.T) {
	m, err := LoadManifest(writeManifest(t, testManifest))
	if err != nil {
		t.Fatalf("load manifest: %v", err)
	}

	if got, want := m.Params.InterestRateBps, int64(200); got != want {
		t.Errorf("interest rate = %d, want %d", got, want)
	}
	if got, want := len(m.Assets), 3; got != want {
		t.Fatalf("assets = %d, want %d", got, want)
	}
	if got, want := m.Assets[1].Class, "stable_swap"; got != want {
		t.Errorf("asset class = %q, want %q", got, want)
	}
	if got, want := len(m.Assets[1].Underlyings), 2; got != want {
		t.Errorf("stable-swap underlyings = %d, want %d", got, want)
	}
	if got, want := m.Assets[2].TotalSupply, "100000000000000000000"; got != want {
		t.Errorf("weighted pool supply = %q, want %q", got, want)
	}
	if got, want := len(m.Gauges), 1; got != want {
		t.Fatalf("gauges = %d, want %d", got, want)
	}
	if got, want := m.Gauges[0].Venues[0].Name, "gauge/crv/steth"; got != want {
		t.Errorf("gauge venue = %q, want %q", got, want)
	}
	if got, want := m.Boosters[0].Pools[0].PoolID, uint64(9); got != want {
		t.Errorf("booster pid = %d, want %d", got, want)
	}
}

func TestLoadManifestBadAdmin_Fails(t *testing.T) {
	body := `
admin  = "not-an-address"
stable = "0x0000000000000000000000000000000000005AB1"
`
	if _, err := LoadManifest(writeManifest(t, body)); err == nil {
		t.Fatal("expected error for bad admin address")
	}
}

func TestLoadManifestUnknownClass_Fails(t *testing.T) {
	body := `
admin  = "0x000000000000000000000000000000000000A11c"
stable = "0x0000000000000000000000000000000000005AB1"

[[asset]]
address  = "0x0000000000000000000000000000000000aaaa01"
class    = "exotic"
strategy = "gauge/crv"
`
	if _, err := LoadManifest(writeManifest(t, body)); err == nil {
		t.Fatal("expected error for unknown asset class")
	}
}

func TestBuildVault(t *testing.T) {
	m, err := LoadManifest(writeManifest(t, testManifest))
	if err != nil {
		t.Fatalf("load manifest: %v", err)
	}

	v, err := BuildVault(m, zerolog.Nop())
	if err != nil {
		t.Fatalf("build vault: %v", err)
	}

	if v.Engine == nil || v.Bank == nil {
		t.Fatal("engine or bank not built")
	}
	// Three assets plus three distinct underlying tokens.
	if got, want := len(v.Feeds), 6; got != want {
		t.Errorf("feeds = %d, want %d", got, want)
	}
	if _, ok := v.Gauges["gauge/crv/steth"]; !ok {
		t.Error("gauge venue not registered")
	}
	if _, ok := v.Boosters["booster/main"]; !ok {
		t.Error("booster venue not registered")
	}
	if _, ok := v.BoosterStrategies["booster/main"]; !ok {
		t.Error("booster strategy not registered")
	}
	if got, want := len(v.Strategies), 2; got != want {
		t.Errorf("strategies = %d, want %d", got, want)
	}

	admin := common.HexToAddress(m.Admin)
	if got := v.Engine.Admin(); got != admin {
		t.Errorf("engine admin = %s, want %s", got.Hex(), admin.Hex())
	}
}

func TestBuildVaultPricesPoolAssets(t *testing.T) {
	m, err := LoadManifest(writeManifest(t, testManifest))
	if err != nil {
		t.Fatalf("load manifest: %v", err)
	}
	v, err := BuildVault(m, zerolog.Nop())
	if err != nil {
		t.Fatalf("build vault: %v", err)
	}

	coinA := common.HexToAddress("0x0000000000000000000000000000000000dddd01")
	coinB := common.HexToAddress("0x0000000000000000000000000000000000dddd02")
	coinC := common.HexToAddress("0x0000000000000000000000000000000000dddd03")
	now := time.Now()
	v.Feeds[coinA].Update(big.NewInt(100_000_000), now)     // $1.00
	v.Feeds[coinB].Update(big.NewInt(99_000_000), now)      // $0.99
	v.Feeds[coinC].Update(big.NewInt(200_000_000_000), now) // $2000

	// virtual_price 1.02 * min($1.00, $0.99) = $1.0098.
	stableLP := common.HexToAddress("0x0000000000000000000000000000000000aaaa02")
	if got := v.Composer.GetAssetPrice(stableLP).Int64(); got != 100_980_000 {
		t.Errorf("stable-swap LP price: got %d, want 100980000", got)
	}

	// (1000 * $1.00 + 1 * $2000) / 100 LP = $30.
	weightedLP := common.HexToAddress("0x0000000000000000000000000000000000aaaa03")
	if got := v.Composer.GetAssetPrice(weightedLP).Int64(); got != 3_000_000_000 {
		t.Errorf("weighted LP price: got %d, want 3000000000", got)
	}
}

func TestLoadManifestStableSwapWithoutUnderlyings_Fails(t *testing.T) {
	body := `
admin  = "0x000000000000000000000000000000000000A11c"
stable = "0x0000000000000000000000000000000000005AB1"

[[asset]]
address       = "0x0000000000000000000000000000000000aaaa02"
class         = "stable_swap"
pool          = "0x0000000000000000000000000000000000bbbb01"
virtual_price = "1000000000000000000"
strategy      = "booster/main"
`
	if _, err := LoadManifest(writeManifest(t, body)); err == nil {
		t.Fatal("expected error for stable_swap without underlyings")
	}
}

func TestLoadManifestWeightedPoolWithoutSupply_Fails(t *testing.T) {
	body := `
admin  = "0x000000000000000000000000000000000000A11c"
stable = "0x0000000000000000000000000000000000005AB1"

[[asset]]
address  = "0x0000000000000000000000000000000000aaaa03"
class    = "weighted_pool"
strategy = "gauge/crv"

  [[asset.underlying]]
  token   = "0x0000000000000000000000000000000000dddd01"
  balance = "1000000000000000000"
`
	if _, err := LoadManifest(writeManifest(t, body)); err == nil {
		t.Fatal("expected error for weighted_pool without total_supply")
	}
}

func TestBuildVaultUnknownStrategy_Fails(t *testing.T) {
	m, err := LoadManifest(writeManifest(t, testManifest))
	if err != nil {
		t.Fatalf("load manifest: %v", err)
	}
	m.Assets[0].Strategy = "gauge/unknown"

	if _, err := BuildVault(m, zerolog.Nop()); err == nil {
		t.Fatal("expected error for unknown strategy")
	}
}
