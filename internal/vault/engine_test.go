package vault_test

import (
	"errors"
	"math/big"
	"testing"
	"time"

	vmath "LendingVault/internal/math"
	"LendingVault/internal/oracle"
	"LendingVault/internal/strategy"
	"LendingVault/internal/token"
	"LendingVault/internal/vault"

	"github.com/ethereum/go-ethereum/common"
	"github.com/rs/zerolog"
)

var (
	adminAddr = common.HexToAddress("0x0000000000000000000000000000000000000Ad0")
	assetA    = common.HexToAddress("0x0000000000000000000000000000000000000aa1")
	stableTok = common.HexToAddress("0x00000000000000000000000000000000000005ab")
	rewardTok = common.HexToAddress("0x0000000000000000000000000000000000000ba1")
	alice     = common.HexToAddress("0x0000000000000000000000000000000000000ca1")
	bob       = common.HexToAddress("0x0000000000000000000000000000000000000cb2")

	t0 = time.Unix(1_700_000_000, 0)
)

func wad(n int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(n), vmath.Precision)
}

// price at 8 decimals from cents
func cents(c int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(c), big.NewInt(1_000_000))
}

type fixture struct {
	bank   *token.Bank
	engine *vault.Engine
	strat  *strategy.GaugeStrategy
	gauge  *strategy.MemoryGauge
	feed   *oracle.Feed
}

// newFixture wires one directly priced collateral asset at $2 behind a
// gauge strategy, LTV 75%, liquidation threshold 80%.
func newFixture(t *testing.T) *fixture {
	t.Helper()
	bank := token.NewBank()
	reg := oracle.NewRegistry()
	comp := oracle.NewComposer(adminAddr, token.VaultAddress, reg, zerolog.Nop())

	reg.SetAssetInfo(assetA, oracle.AssetInfo{Class: oracle.ClassDirect})
	feed := oracle.NewFeed(8)
	feed.Update(cents(200), t0)
	if err := comp.SetAssetSources(adminAddr, []common.Address{assetA}, []oracle.PriceFeed{feed}); err != nil {
		t.Fatalf("set sources: %v", err)
	}

	gauge := strategy.NewMemoryGauge(bank, assetA, rewardTok, "gauge/asset-a", token.VaultAddress)
	strat := strategy.NewGaugeStrategy(bank, token.VaultAddress, rewardTok, zerolog.Nop())
	strat.RegisterGauge(assetA, gauge)

	engine := vault.NewEngine(adminAddr, stableTok, bank, comp, vault.DefaultParams(), zerolog.Nop())
	if err := engine.SetStrategy(adminAddr, assetA, strat); err != nil {
		t.Fatalf("set strategy: %v", err)
	}
	cfg := vault.RiskConfig{LoanToValueBps: 7500, LiquidationThresholdBps: 8000, Decimals: 18}
	if err := engine.SetRiskConfig(adminAddr, assetA, cfg); err != nil {
		t.Fatalf("set risk config: %v", err)
	}
	return &fixture{bank: bank, engine: engine, strat: strat, gauge: gauge, feed: feed}
}

func (f *fixture) fundCollateral(t *testing.T, account common.Address, amount *big.Int) {
	t.Helper()
	if err := f.bank.Mint(assetA, account, amount); err != nil {
		t.Fatalf("fund collateral: %v", err)
	}
}

func (f *fixture) deposit(t *testing.T, at time.Time, account common.Address, amount *big.Int) {
	t.Helper()
	f.fundCollateral(t, account, amount)
	if err := f.engine.Deposit(at, assetA, account, amount); err != nil {
		t.Fatalf("deposit: %v", err)
	}
}

// ============================================================================
// Test: deposit
// ============================================================================

func TestDepositZeroAmount(t *testing.T) {
	f := newFixture(t)
	err := f.engine.Deposit(t0, assetA, alice, new(big.Int))
	if !errors.Is(err, vault.ErrZeroAmount) {
		t.Fatalf("got %v, want ErrZeroAmount", err)
	}
}

func TestDepositUnregisteredAsset(t *testing.T) {
	f := newFixture(t)
	other := common.HexToAddress("0x00000000000000000000000000000000000000dd")
	err := f.engine.Deposit(t0, other, alice, wad(1))
	if !errors.Is(err, vault.ErrInvalidAsset) {
		t.Fatalf("got %v, want ErrInvalidAsset", err)
	}
}

func TestDepositConservation(t *testing.T) {
	f := newFixture(t)
	f.deposit(t, t0, alice, wad(100))
	f.deposit(t, t0, bob, wad(250))

	posA, _ := f.engine.GetPosition(assetA, alice)
	posB, _ := f.engine.GetPosition(assetA, bob)
	sum := new(big.Int).Add(posA.CollateralAmount, posB.CollateralAmount)
	if total := f.strat.TotalDeposit(assetA); total.Cmp(sum) != 0 {
		t.Errorf("adapter totalDeposit %s != sum of positions %s", total, sum)
	}
}

// ============================================================================
// Test: borrow
// ============================================================================

func TestBorrowableAmountScenario(t *testing.T) {
	f := newFixture(t)
	// 400 units at $2 with 75% LTV can back 600 stable units.
	f.deposit(t, t0, alice, wad(400))

	got := f.engine.GetBorrowableAmount(t0, assetA, alice)
	if got.Cmp(wad(600)) != 0 {
		t.Fatalf("borrowable: got %s, want %s", got, wad(600))
	}

	if err := f.engine.Borrow(t0, assetA, alice, wad(601)); !errors.Is(err, vault.ErrOverLTV) {
		t.Fatalf("borrow 601: got %v, want ErrOverLTV", err)
	}
	if err := f.engine.Borrow(t0, assetA, alice, wad(600)); err != nil {
		t.Fatalf("borrow 600: %v", err)
	}
	if got := f.bank.BalanceOf(stableTok, alice); got.Cmp(wad(600)) != 0 {
		t.Errorf("stable balance: got %s, want %s", got, wad(600))
	}
}

func TestBorrowNoCollateral(t *testing.T) {
	f := newFixture(t)
	err := f.engine.Borrow(t0, assetA, alice, wad(1))
	if !errors.Is(err, vault.ErrNoCollateral) {
		t.Fatalf("got %v, want ErrNoCollateral", err)
	}
}

func TestBorrowUnpricedAssetCollapsesToZero(t *testing.T) {
	f := newFixture(t)
	other := common.HexToAddress("0x00000000000000000000000000000000000000ee")
	// Register a strategy and risk config but no price feed.
	gauge := strategy.NewMemoryGauge(f.bank, other, rewardTok, "gauge/other", token.VaultAddress)
	strat := strategy.NewGaugeStrategy(f.bank, token.VaultAddress, rewardTok, zerolog.Nop())
	strat.RegisterGauge(other, gauge)
	f.engine.SetStrategy(adminAddr, other, strat)
	f.engine.SetRiskConfig(adminAddr, other, vault.RiskConfig{LoanToValueBps: 7500, LiquidationThresholdBps: 8000, Decimals: 18})

	f.bank.Mint(other, alice, wad(100))
	if err := f.engine.Deposit(t0, other, alice, wad(100)); err != nil {
		t.Fatalf("deposit: %v", err)
	}
	if got := f.engine.GetBorrowableAmount(t0, other, alice); got.Sign() != 0 {
		t.Errorf("borrowable on unpriced asset: got %s, want 0", got)
	}
	if err := f.engine.Borrow(t0, other, alice, wad(1)); !errors.Is(err, vault.ErrOverLTV) {
		t.Fatalf("got %v, want ErrOverLTV", err)
	}
}

func TestLTVSoundnessAfterBorrow(t *testing.T) {
	f := newFixture(t)
	f.deposit(t, t0, alice, wad(400))
	if err := f.engine.Borrow(t0, assetA, alice, wad(500)); err != nil {
		t.Fatalf("borrow: %v", err)
	}

	debt := f.engine.Debt(t0, assetA, alice)
	// collateral 400 * $2 * 75% = 600
	if debt.Cmp(wad(600)) > 0 {
		t.Errorf("debt %s exceeds LTV capacity %s", debt, wad(600))
	}
}

// ============================================================================
// Test: repay
// ============================================================================

func TestRepayNoBorrow(t *testing.T) {
	f := newFixture(t)
	f.deposit(t, t0, alice, wad(5))
	err := f.engine.Repay(t0, assetA, alice, wad(1))
	if !errors.Is(err, vault.ErrNoBorrow) {
		t.Fatalf("got %v, want ErrNoBorrow", err)
	}
}

func TestRepayTrivialAmountAfterTwoDays(t *testing.T) {
	f := newFixture(t)
	f.deposit(t, t0, alice, wad(5))
	if err := f.engine.Borrow(t0, assetA, alice, wad(5)); err != nil {
		t.Fatalf("borrow: %v", err)
	}

	twoDays := t0.Add(48 * time.Hour)
	// 100 base units is far below two days of interest on 5e18.
	err := f.engine.Repay(twoDays, assetA, alice, big.NewInt(100))
	if !errors.Is(err, vault.ErrRepayTooSmall) {
		t.Fatalf("got %v, want ErrRepayTooSmall", err)
	}
}

func TestRepayFullDebt(t *testing.T) {
	f := newFixture(t)
	f.deposit(t, t0, alice, wad(5))
	f.engine.Borrow(t0, assetA, alice, wad(5))

	later := t0.Add(48 * time.Hour)
	debt := f.engine.Debt(later, assetA, alice)
	// Top up the borrower to cover the interest portion.
	f.bank.Mint(stableTok, alice, new(big.Int).Sub(debt, wad(5)))

	if err := f.engine.Repay(later, assetA, alice, debt); err != nil {
		t.Fatalf("repay: %v", err)
	}
	pos, _ := f.engine.GetPosition(assetA, alice)
	if pos.BorrowAmount.Sign() != 0 {
		t.Errorf("borrow after full repay: got %s, want 0", pos.BorrowAmount)
	}
}

func TestRepayTooBig(t *testing.T) {
	f := newFixture(t)
	f.deposit(t, t0, alice, wad(5))
	f.engine.Borrow(t0, assetA, alice, wad(5))

	later := t0.Add(48 * time.Hour)
	debt := f.engine.Debt(later, assetA, alice)
	over := new(big.Int).Add(debt, wad(1))
	f.bank.Mint(stableTok, alice, wad(10))

	err := f.engine.Repay(later, assetA, alice, over)
	if !errors.Is(err, vault.ErrRepayTooBig) {
		t.Fatalf("got %v, want ErrRepayTooBig", err)
	}
}

// ============================================================================
// Test: withdraw
// ============================================================================

func TestWithdrawTooBig(t *testing.T) {
	f := newFixture(t)
	f.deposit(t, t0, alice, wad(10))
	err := f.engine.Withdraw(t0, assetA, alice, wad(11))
	if !errors.Is(err, vault.ErrWithdrawTooBig) {
		t.Fatalf("got %v, want ErrWithdrawTooBig", err)
	}
}

func TestWithdrawOverLTV(t *testing.T) {
	f := newFixture(t)
	f.deposit(t, t0, alice, wad(400))
	f.engine.Borrow(t0, assetA, alice, wad(600))

	err := f.engine.Withdraw(t0, assetA, alice, wad(1))
	if !errors.Is(err, vault.ErrOverLTV) {
		t.Fatalf("got %v, want ErrOverLTV", err)
	}
}

func TestWithdrawReturnsCollateral(t *testing.T) {
	f := newFixture(t)
	f.deposit(t, t0, alice, wad(400))
	f.engine.Borrow(t0, assetA, alice, wad(300))

	// Debt 300 needs 300/0.75/$2 = 200 units; withdrawing 100 keeps 300.
	if err := f.engine.Withdraw(t0, assetA, alice, wad(100)); err != nil {
		t.Fatalf("withdraw: %v", err)
	}
	if got := f.bank.BalanceOf(assetA, alice); got.Cmp(wad(100)) != 0 {
		t.Errorf("returned collateral: got %s, want %s", got, wad(100))
	}
	pos, _ := f.engine.GetPosition(assetA, alice)
	if total := f.strat.TotalDeposit(assetA); total.Cmp(pos.CollateralAmount) != 0 {
		t.Errorf("adapter totalDeposit %s != position collateral %s", total, pos.CollateralAmount)
	}
}

// ============================================================================
// Test: liquidation
// ============================================================================

// liquidationFixture: 10 units at $2, borrow 15 (LTV cap 15), then price
// drops to $1.80 so threshold value 14.4 < debt 15.
func liquidationFixture(t *testing.T) *fixture {
	t.Helper()
	f := newFixture(t)
	f.deposit(t, t0, alice, wad(10))
	if err := f.engine.Borrow(t0, assetA, alice, wad(15)); err != nil {
		t.Fatalf("borrow: %v", err)
	}
	f.bank.Mint(stableTok, bob, wad(100))
	return f
}

func TestLiquidateHealthyPosition(t *testing.T) {
	f := liquidationFixture(t)
	err := f.engine.Liquidate(t0, assetA, bob, alice, wad(5))
	if !errors.Is(err, vault.ErrLiquidationNotEligible) {
		t.Fatalf("got %v, want ErrLiquidationNotEligible", err)
	}
}

func TestLiquidateTooBig(t *testing.T) {
	f := liquidationFixture(t)
	f.feed.Update(cents(180), t0)
	// Half of 15 is 7.5; 8 exceeds it.
	err := f.engine.Liquidate(t0, assetA, bob, alice, wad(8))
	if !errors.Is(err, vault.ErrLiquidationTooBig) {
		t.Fatalf("got %v, want ErrLiquidationTooBig", err)
	}
}

func TestLiquidateNoBorrow(t *testing.T) {
	f := newFixture(t)
	f.deposit(t, t0, alice, wad(10))
	err := f.engine.Liquidate(t0, assetA, bob, alice, wad(1))
	if !errors.Is(err, vault.ErrNoBorrow) {
		t.Fatalf("got %v, want ErrNoBorrow", err)
	}
}

func TestLiquidateSplitsPenalty(t *testing.T) {
	f := liquidationFixture(t)
	f.feed.Update(cents(180), t0)

	ratio, err := f.engine.HealthRatio(t0, assetA, alice)
	if err != nil {
		t.Fatalf("health ratio: %v", err)
	}
	if ratio.Cmp(vmath.Precision) < 0 {
		t.Fatalf("expected unhealthy position, ratio %s", ratio)
	}

	repay := new(big.Int).Div(wad(15), big.NewInt(2)) // 7.5
	if err := f.engine.Liquidate(t0, assetA, bob, alice, repay); err != nil {
		t.Fatalf("liquidate: %v", err)
	}

	// penalty = 7.5 * 1% = 0.075; each half 0.0375.
	// liquidator units = 7.5375 / 1.80 = 4.1875
	wantLiquidator, _ := new(big.Int).SetString("4187500000000000000", 10)
	// treasury units = 0.0375 / 1.80 = 0.0208333...
	wantTreasury, _ := new(big.Int).SetString("20833333333333333", 10)

	liqPos, _ := f.engine.GetPosition(assetA, bob)
	if liqPos.CollateralAmount.Cmp(wantLiquidator) != 0 {
		t.Errorf("liquidator collateral: got %s, want %s", liqPos.CollateralAmount, wantLiquidator)
	}
	if got := f.bank.BalanceOf(assetA, token.TreasuryAddress); got.Cmp(wantTreasury) != 0 {
		t.Errorf("treasury collateral: got %s, want %s", got, wantTreasury)
	}

	borrowerPos, _ := f.engine.GetPosition(assetA, alice)
	seized := new(big.Int).Add(wantLiquidator, wantTreasury)
	wantRemaining := new(big.Int).Sub(wad(10), seized)
	if borrowerPos.CollateralAmount.Cmp(wantRemaining) != 0 {
		t.Errorf("borrower collateral: got %s, want %s", borrowerPos.CollateralAmount, wantRemaining)
	}
	if borrowerPos.BorrowAmount.Cmp(repay) != 0 {
		t.Errorf("borrower debt: got %s, want %s", borrowerPos.BorrowAmount, repay)
	}

	// Conservation: everything seized is either restaked or at the treasury.
	sum := new(big.Int).Add(borrowerPos.CollateralAmount, liqPos.CollateralAmount)
	if total := f.strat.TotalDeposit(assetA); total.Cmp(sum) != 0 {
		t.Errorf("adapter totalDeposit %s != sum of positions %s", total, sum)
	}
}

func TestLiquidationBound(t *testing.T) {
	f := liquidationFixture(t)
	f.feed.Update(cents(180), t0)

	before := f.engine.Debt(t0, assetA, alice)
	repay := new(big.Int).Div(wad(15), big.NewInt(2))
	if err := f.engine.Liquidate(t0, assetA, bob, alice, repay); err != nil {
		t.Fatalf("liquidate: %v", err)
	}
	after := f.engine.Debt(t0, assetA, alice)

	reduced := new(big.Int).Sub(before, after)
	half := new(big.Int).Div(before, big.NewInt(2))
	if reduced.Cmp(half) > 0 {
		t.Errorf("liquidation reduced debt by %s, more than half of %s", reduced, before)
	}
}

// ============================================================================
// Test: accrue
// ============================================================================

func TestAccrueMintsTreasuryInterest(t *testing.T) {
	f := newFixture(t)
	f.deposit(t, t0, alice, wad(400))
	f.engine.Borrow(t0, assetA, alice, wad(600))

	oneYear := t0.Add(365 * 24 * time.Hour)
	minted, err := f.engine.Accrue(oneYear)
	if err != nil {
		t.Fatalf("accrue: %v", err)
	}
	// 2% APR on 600 for one year = 12.
	if minted.Cmp(wad(12)) != 0 {
		t.Errorf("minted: got %s, want %s", minted, wad(12))
	}
	if got := f.bank.BalanceOf(stableTok, token.TreasuryAddress); got.Cmp(wad(12)) != 0 {
		t.Errorf("treasury balance: got %s, want %s", got, wad(12))
	}

	_, err = f.engine.Accrue(oneYear)
	if !errors.Is(err, vault.ErrTreasuryFeeZero) {
		t.Fatalf("second accrue: got %v, want ErrTreasuryFeeZero", err)
	}
}

// ============================================================================
// Test: flash loans
// ============================================================================

type flashReceiver struct {
	bank *token.Bank
	addr common.Address
	// repay controls whether the receiver returns the funds plus fee.
	repay bool
	fail  bool
}

func (r *flashReceiver) OnFlashLoan(amount, fee *big.Int, data []byte) error {
	if r.fail {
		return errors.New("receiver aborted")
	}
	if !r.repay {
		return nil
	}
	owed := new(big.Int).Add(amount, fee)
	return r.bank.Transfer(stableTok, r.addr, token.VaultAddress, owed)
}

func TestFlashLoanHappyPath(t *testing.T) {
	f := newFixture(t)
	f.bank.Mint(stableTok, token.VaultAddress, wad(1000))
	recv := &flashReceiver{bank: f.bank, addr: bob, repay: true}
	// Pre-fund the fee: 100 * 0.05% = 0.05.
	f.bank.Mint(stableTok, bob, wad(1))

	before := f.bank.BalanceOf(stableTok, token.VaultAddress)
	if err := f.engine.FlashLoan(t0, recv, bob, wad(100), nil); err != nil {
		t.Fatalf("flash loan: %v", err)
	}
	after := f.bank.BalanceOf(stableTok, token.VaultAddress)

	fee := vmath.BpsMul(wad(100), 5)
	want := new(big.Int).Add(before, fee)
	if after.Cmp(want) != 0 {
		t.Errorf("vault balance: got %s, want %s", after, want)
	}
}

func TestFlashLoanNotRepaid(t *testing.T) {
	f := newFixture(t)
	f.bank.Mint(stableTok, token.VaultAddress, wad(1000))
	recv := &flashReceiver{bank: f.bank, addr: bob, repay: false}

	before := f.bank.BalanceOf(stableTok, token.VaultAddress)
	err := f.engine.FlashLoan(t0, recv, bob, wad(100), nil)
	if !errors.Is(err, vault.ErrFlashLoanCallbackFailed) {
		t.Fatalf("got %v, want ErrFlashLoanCallbackFailed", err)
	}
	// Atomicity: failed loans leave no balance change anywhere.
	if got := f.bank.BalanceOf(stableTok, token.VaultAddress); got.Cmp(before) != 0 {
		t.Errorf("vault balance changed on failed loan: %s != %s", got, before)
	}
	if got := f.bank.BalanceOf(stableTok, bob); got.Sign() != 0 {
		t.Errorf("recipient kept funds on failed loan: %s", got)
	}
}

func TestFlashLoanCallbackError(t *testing.T) {
	f := newFixture(t)
	f.bank.Mint(stableTok, token.VaultAddress, wad(1000))
	recv := &flashReceiver{bank: f.bank, addr: bob, fail: true}

	err := f.engine.FlashLoan(t0, recv, bob, wad(100), nil)
	if !errors.Is(err, vault.ErrFlashLoanCallbackFailed) {
		t.Fatalf("got %v, want ErrFlashLoanCallbackFailed", err)
	}
	if got := f.bank.BalanceOf(stableTok, bob); got.Sign() != 0 {
		t.Errorf("recipient kept funds after callback error: %s", got)
	}
}

func TestFlashLoanTooBig(t *testing.T) {
	f := newFixture(t)
	f.bank.Mint(stableTok, token.VaultAddress, wad(10))
	recv := &flashReceiver{bank: f.bank, addr: bob, repay: true}

	err := f.engine.FlashLoan(t0, recv, bob, wad(11), nil)
	if !errors.Is(err, vault.ErrFlashLoanTooBig) {
		t.Fatalf("got %v, want ErrFlashLoanTooBig", err)
	}
}

func TestFlashLoanZeroAmount(t *testing.T) {
	f := newFixture(t)
	recv := &flashReceiver{bank: f.bank, addr: bob}
	err := f.engine.FlashLoan(t0, recv, bob, new(big.Int), nil)
	if !errors.Is(err, vault.ErrZeroAmount) {
		t.Fatalf("got %v, want ErrZeroAmount", err)
	}
}

// ============================================================================
// Test: rewards through the engine
// ============================================================================

func TestClaimRewards(t *testing.T) {
	f := newFixture(t)
	f.deposit(t, t0, alice, wad(100))
	f.gauge.AddRewards(wad(10))

	payouts, err := f.engine.Claim(t0, assetA, alice)
	if err != nil {
		t.Fatalf("claim: %v", err)
	}
	if len(payouts) != 1 || payouts[0].Amount.Cmp(wad(10)) != 0 {
		t.Fatalf("payouts: got %v", payouts)
	}

	_, err = f.engine.Claim(t0, assetA, alice)
	if !errors.Is(err, vault.ErrNothingToClaim) {
		t.Fatalf("second claim: got %v, want ErrNothingToClaim", err)
	}
}

// ============================================================================
// Test: admin gating
// ============================================================================

func TestAdminGating(t *testing.T) {
	f := newFixture(t)
	if err := f.engine.SetInterestRate(t0, alice, 300); !errors.Is(err, vault.ErrUnauthorized) {
		t.Errorf("SetInterestRate: got %v, want ErrUnauthorized", err)
	}
	if err := f.engine.SetFlashLoanFee(alice, 10); !errors.Is(err, vault.ErrUnauthorized) {
		t.Errorf("SetFlashLoanFee: got %v, want ErrUnauthorized", err)
	}
	if err := f.engine.SetStrategy(alice, assetA, f.strat); !errors.Is(err, vault.ErrUnauthorized) {
		t.Errorf("SetStrategy: got %v, want ErrUnauthorized", err)
	}
}

func TestSetStrategiesLengthMismatch(t *testing.T) {
	f := newFixture(t)
	err := f.engine.SetStrategies(adminAddr, []common.Address{assetA}, nil)
	if !errors.Is(err, vault.ErrArrayLengthMismatch) {
		t.Fatalf("got %v, want ErrArrayLengthMismatch", err)
	}
}

func TestSetRiskConfigInvalid(t *testing.T) {
	f := newFixture(t)
	cfg := vault.RiskConfig{LoanToValueBps: 9000, LiquidationThresholdBps: 8000, Decimals: 18}
	err := f.engine.SetRiskConfig(adminAddr, assetA, cfg)
	if !errors.Is(err, vault.ErrInvalidRiskConfig) {
		t.Fatalf("got %v, want ErrInvalidRiskConfig", err)
	}
}

// ============================================================================
// Test: state export/import
// ============================================================================

func TestStateRoundTrip(t *testing.T) {
	f := newFixture(t)
	f.deposit(t, t0, alice, wad(400))
	f.engine.Borrow(t0, assetA, alice, wad(600))
	f.engine.Accrue(t0.Add(24 * time.Hour))

	st := f.engine.ExportState()

	restored := vault.NewEngine(adminAddr, stableTok, f.bank, nil, vault.DefaultParams(), zerolog.Nop())
	if err := restored.ImportState(st); err != nil {
		t.Fatalf("import: %v", err)
	}

	pos, ok := restored.GetPosition(assetA, alice)
	if !ok {
		t.Fatal("position missing after import")
	}
	if pos.CollateralAmount.Cmp(wad(400)) != 0 {
		t.Errorf("collateral: got %s, want %s", pos.CollateralAmount, wad(400))
	}
	if pos.BorrowAmount.Cmp(wad(600)) != 0 {
		t.Errorf("borrow: got %s, want %s", pos.BorrowAmount, wad(600))
	}

	again := restored.ExportState()
	if len(again.Positions) != len(st.Positions) || again.GlobalDebtIndex != st.GlobalDebtIndex {
		t.Error("re-exported state differs from imported state")
	}
}
