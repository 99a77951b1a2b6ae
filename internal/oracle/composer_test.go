package oracle_test

import (
	"errors"
	"math/big"
	"testing"
	"time"

	"LendingVault/internal/oracle"

	"github.com/ethereum/go-ethereum/common"
	"github.com/rs/zerolog"
)

var (
	admin  = common.HexToAddress("0x00000000000000000000000000000000000000ad")
	vault  = common.HexToAddress("0x00000000000000000000000000000000000000fa")
	user   = common.HexToAddress("0x00000000000000000000000000000000000000ee")
	weth   = common.HexToAddress("0x0000000000000000000000000000000000000001")
	dai    = common.HexToAddress("0x0000000000000000000000000000000000000002")
	usdc   = common.HexToAddress("0x0000000000000000000000000000000000000003")
	balLP  = common.HexToAddress("0x0000000000000000000000000000000000000010")
	crvLP  = common.HexToAddress("0x0000000000000000000000000000000000000011")
	random = common.HexToAddress("0x00000000000000000000000000000000000000ff")
)

var wad = new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil)

func usd(dollars int64) *big.Int {
	// PriceDecimals = 8
	return new(big.Int).Mul(big.NewInt(dollars), big.NewInt(100_000_000))
}

func wadAmount(n int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(n), wad)
}

func newFeed(t *testing.T, value *big.Int, decimals uint8) *oracle.Feed {
	t.Helper()
	f := oracle.NewFeed(decimals)
	f.Update(value, time.Now())
	return f
}

type fakeWeightedPool struct {
	tokens   []common.Address
	balances []*big.Int
	supply   *big.Int
}

func (p *fakeWeightedPool) Tokens() []common.Address { return p.tokens }
func (p *fakeWeightedPool) Balances() []*big.Int     { return p.balances }
func (p *fakeWeightedPool) TotalSupply() *big.Int    { return p.supply }

type fakeStableSwap struct {
	coins        []common.Address
	virtualPrice *big.Int
}

func (p *fakeStableSwap) Coins() []common.Address { return p.coins }
func (p *fakeStableSwap) VirtualPrice() *big.Int  { return p.virtualPrice }

func newComposer(t *testing.T) (*oracle.Registry, *oracle.Composer) {
	t.Helper()
	reg := oracle.NewRegistry()
	return reg, oracle.NewComposer(admin, vault, reg, zerolog.Nop())
}

// ============================================================================
// Test: authorization and batch setters
// ============================================================================

func TestSetAssetSourcesUnauthorized(t *testing.T) {
	_, comp := newComposer(t)
	err := comp.SetAssetSources(user, []common.Address{dai}, []oracle.PriceFeed{oracle.NewFeed(8)})
	if !errors.Is(err, oracle.ErrNotAdminOrVault) {
		t.Fatalf("got %v, want ErrNotAdminOrVault", err)
	}
}

func TestSetAssetSourcesVaultAllowed(t *testing.T) {
	_, comp := newComposer(t)
	err := comp.SetAssetSources(vault, []common.Address{dai}, []oracle.PriceFeed{oracle.NewFeed(8)})
	if err != nil {
		t.Fatalf("vault caller: %v", err)
	}
}

func TestSetAssetSourcesLengthMismatch(t *testing.T) {
	_, comp := newComposer(t)
	err := comp.SetAssetSources(admin, []common.Address{dai, weth}, []oracle.PriceFeed{oracle.NewFeed(8)})
	if !errors.Is(err, oracle.ErrArrayLengthMismatch) {
		t.Fatalf("got %v, want ErrArrayLengthMismatch", err)
	}
}

// ============================================================================
// Test: direct pricing
// ============================================================================

func TestUnclassifiedAssetPricesZero(t *testing.T) {
	_, comp := newComposer(t)
	if got := comp.GetAssetPrice(random); got.Sign() != 0 {
		t.Errorf("got %s, want 0", got)
	}
}

func TestClassifiedAssetWithoutFeedPricesZero(t *testing.T) {
	reg, comp := newComposer(t)
	reg.SetAssetInfo(weth, oracle.AssetInfo{Class: oracle.ClassDirect})
	if got := comp.GetAssetPrice(weth); got.Sign() != 0 {
		t.Errorf("got %s, want 0", got)
	}
}

func TestDirectPriceScalesFeedDecimals(t *testing.T) {
	reg, comp := newComposer(t)
	reg.SetAssetInfo(weth, oracle.AssetInfo{Class: oracle.ClassDirect})
	// Feed publishes 2000.0 with 6 decimals.
	feed := newFeed(t, big.NewInt(2000_000_000), 6)
	if err := comp.SetAssetSources(admin, []common.Address{weth}, []oracle.PriceFeed{feed}); err != nil {
		t.Fatalf("set sources: %v", err)
	}

	got := comp.GetAssetPrice(weth)
	if got.Cmp(usd(2000)) != 0 {
		t.Errorf("got %s, want %s", got, usd(2000))
	}
}

func TestDirectPriceFeedNotYetUpdated(t *testing.T) {
	reg, comp := newComposer(t)
	reg.SetAssetInfo(weth, oracle.AssetInfo{Class: oracle.ClassDirect})
	comp.SetAssetSources(admin, []common.Address{weth}, []oracle.PriceFeed{oracle.NewFeed(8)})
	if got := comp.GetAssetPrice(weth); got.Sign() != 0 {
		t.Errorf("got %s, want 0", got)
	}
}

// ============================================================================
// Test: weighted pool LP pricing
// ============================================================================

func setupWeighted(t *testing.T) (*oracle.Registry, *oracle.Composer) {
	reg, comp := newComposer(t)
	reg.SetAssetInfo(weth, oracle.AssetInfo{Class: oracle.ClassDirect})
	reg.SetAssetInfo(dai, oracle.AssetInfo{Class: oracle.ClassDirect})
	reg.SetAssetInfo(balLP, oracle.AssetInfo{Class: oracle.ClassWeightedPool})
	comp.SetAssetSources(admin,
		[]common.Address{weth, dai},
		[]oracle.PriceFeed{newFeed(t, usd(2000), 8), newFeed(t, usd(1), 8)},
	)
	return reg, comp
}

func TestWeightedPoolPrice(t *testing.T) {
	_, comp := setupWeighted(t)
	// 10 WETH @ 2000 + 20000 DAI @ 1 = 40000 USD over 1000 LP = 40 USD each.
	pool := &fakeWeightedPool{
		tokens:   []common.Address{weth, dai},
		balances: []*big.Int{wadAmount(10), wadAmount(20000)},
		supply:   wadAmount(1000),
	}
	if err := comp.SetWeightedPool(admin, balLP, pool); err != nil {
		t.Fatalf("set pool: %v", err)
	}

	got := comp.GetAssetPrice(balLP)
	if got.Cmp(usd(40)) != 0 {
		t.Errorf("got %s, want %s", got, usd(40))
	}
}

func TestWeightedPoolUnpricedUnderlying(t *testing.T) {
	reg, comp := setupWeighted(t)
	reg.SetAssetInfo(usdc, oracle.AssetInfo{Class: oracle.ClassDirect}) // classified, no feed
	pool := &fakeWeightedPool{
		tokens:   []common.Address{weth, usdc},
		balances: []*big.Int{wadAmount(10), wadAmount(20000)},
		supply:   wadAmount(1000),
	}
	comp.SetWeightedPool(admin, balLP, pool)

	if got := comp.GetAssetPrice(balLP); got.Sign() != 0 {
		t.Errorf("got %s, want 0", got)
	}
}

func TestWeightedPoolZeroSupply(t *testing.T) {
	_, comp := setupWeighted(t)
	pool := &fakeWeightedPool{
		tokens:   []common.Address{weth},
		balances: []*big.Int{wadAmount(10)},
		supply:   new(big.Int),
	}
	comp.SetWeightedPool(admin, balLP, pool)

	if got := comp.GetAssetPrice(balLP); got.Sign() != 0 {
		t.Errorf("got %s, want 0", got)
	}
}

// ============================================================================
// Test: stable-swap LP pricing
// ============================================================================

func TestStableSwapPriceUsesMinUnderlying(t *testing.T) {
	reg, comp := newComposer(t)
	reg.SetAssetInfo(dai, oracle.AssetInfo{Class: oracle.ClassDirect})
	reg.SetAssetInfo(usdc, oracle.AssetInfo{Class: oracle.ClassDirect})
	reg.SetAssetInfo(crvLP, oracle.AssetInfo{Class: oracle.ClassStableSwap})
	// DAI at 1.00, USDC depegged to 0.98.
	comp.SetAssetSources(admin,
		[]common.Address{dai, usdc},
		[]oracle.PriceFeed{newFeed(t, big.NewInt(100_000_000), 8), newFeed(t, big.NewInt(98_000_000), 8)},
	)
	// Virtual price 1.02.
	vp := new(big.Int).Div(new(big.Int).Mul(wad, big.NewInt(102)), big.NewInt(100))
	pool := &fakeStableSwap{coins: []common.Address{dai, usdc}, virtualPrice: vp}
	comp.SetStableSwapPool(admin, crvLP, pool)

	// 1.02 * 0.98 = 0.9996
	got := comp.GetAssetPrice(crvLP)
	want := big.NewInt(99_960_000)
	if got.Cmp(want) != 0 {
		t.Errorf("got %s, want %s", got, want)
	}
}

func TestStableSwapUnpricedCoin(t *testing.T) {
	reg, comp := newComposer(t)
	reg.SetAssetInfo(dai, oracle.AssetInfo{Class: oracle.ClassDirect})
	reg.SetAssetInfo(crvLP, oracle.AssetInfo{Class: oracle.ClassStableSwap})
	comp.SetAssetSources(admin, []common.Address{dai}, []oracle.PriceFeed{newFeed(t, usd(1), 8)})
	pool := &fakeStableSwap{coins: []common.Address{dai, usdc}, virtualPrice: wad}
	comp.SetStableSwapPool(admin, crvLP, pool)

	if got := comp.GetAssetPrice(crvLP); got.Sign() != 0 {
		t.Errorf("got %s, want 0", got)
	}
}
