package vault

import (
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/rs/zerolog"

	vmath "LendingVault/internal/math"
	"LendingVault/internal/oracle"
	"LendingVault/internal/strategy"
	"LendingVault/internal/token"
)

var priceFactor = new(big.Int).Exp(big.NewInt(10), big.NewInt(oracle.PriceDecimals), nil)

// Engine owns positions, risk configuration and the global accrual state.
// Custody is delegated to the per-asset strategy and pricing to the oracle
// composer. All methods run on the single core goroutine; operations either
// complete or leave state untouched.
type Engine struct {
	admin  common.Address
	stable common.Address
	bank   *token.Bank
	prices *oracle.Composer
	logger zerolog.Logger

	strategies map[common.Address]strategy.Strategy
	risk       map[common.Address]RiskConfig
	positions  map[PositionKey]*Position

	params          Params
	globalDebtIndex *big.Int
	lastAccrual     int64
	totalBorrows    *big.Int
	treasuryAccrued *big.Int
}

func NewEngine(admin, stable common.Address, bank *token.Bank, prices *oracle.Composer, params Params, logger zerolog.Logger) *Engine {
	return &Engine{
		admin:           admin,
		stable:          stable,
		bank:            bank,
		prices:          prices,
		logger:          logger,
		strategies:      make(map[common.Address]strategy.Strategy),
		risk:            make(map[common.Address]RiskConfig),
		positions:       make(map[PositionKey]*Position),
		params:          params,
		globalDebtIndex: new(big.Int),
		totalBorrows:    new(big.Int),
		treasuryAccrued: new(big.Int),
	}
}

// accrueInterest advances the global debt index for the elapsed time and
// accumulates the interest earned on total borrows for the treasury. Runs
// at the start of every mutating call, before any balance check.
func (e *Engine) accrueInterest(at time.Time) {
	now := at.Unix()
	if e.lastAccrual == 0 {
		e.lastAccrual = now
		return
	}
	elapsed := now - e.lastAccrual
	if elapsed <= 0 {
		return
	}
	next := vmath.AdvanceInterestIndex(e.globalDebtIndex, e.params.InterestRateBps, elapsed)
	e.treasuryAccrued.Add(e.treasuryAccrued, vmath.InterestOwed(e.totalBorrows, next, e.globalDebtIndex))
	e.globalDebtIndex = next
	e.lastAccrual = now
}

// indexAt projects the debt index forward to at without mutating state.
func (e *Engine) indexAt(at time.Time) *big.Int {
	if e.lastAccrual == 0 {
		return new(big.Int).Set(e.globalDebtIndex)
	}
	return vmath.AdvanceInterestIndex(e.globalDebtIndex, e.params.InterestRateBps, at.Unix()-e.lastAccrual)
}

func (e *Engine) position(asset, account common.Address) *Position {
	key := PositionKey{Asset: asset, Account: account}
	pos, ok := e.positions[key]
	if !ok {
		pos = newPosition()
		e.positions[key] = pos
	}
	return pos
}

// collateralValue prices amount of asset in wad USD. Zero price means
// unpriced, which values the collateral at zero and collapses any
// borrowable amount to zero.
func (e *Engine) collateralValue(asset common.Address, amount *big.Int) *big.Int {
	price := e.prices.GetAssetPrice(asset)
	if price.Sign() == 0 || amount.Sign() == 0 {
		return new(big.Int)
	}
	cfg := e.risk[asset]
	raw := new(big.Int).Mul(amount, price)
	return vmath.ScaleDecimals(raw, cfg.Decimals+oracle.PriceDecimals, vmath.PrecisionDecimals)
}

// usdToCollateral converts a wad USD amount into collateral units at the
// given price: usd * 10^decimals / price.
func (e *Engine) usdToCollateral(asset common.Address, usd, price *big.Int) *big.Int {
	cfg := e.risk[asset]
	pow := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(cfg.Decimals)+oracle.PriceDecimals), nil)
	num := new(big.Int).Mul(usd, pow)
	denom := new(big.Int).Mul(price, vmath.Precision)
	return num.Quo(num, denom)
}

// Deposit transfers collateral from account, stakes it at the asset's venue
// and grows the position. Collateral starts earning immediately.
func (e *Engine) Deposit(at time.Time, asset, account common.Address, amount *big.Int) error {
	if amount == nil || amount.Sign() <= 0 {
		return ErrZeroAmount
	}
	strat, ok := e.strategies[asset]
	if !ok {
		return ErrInvalidAsset
	}
	e.accrueInterest(at)

	if err := e.bank.Transfer(asset, account, token.VaultAddress, amount); err != nil {
		return fmt.Errorf("collateral transfer: %w", err)
	}
	if err := strat.Stake(asset, account, amount); err != nil {
		return fmt.Errorf("stake: %w", err)
	}
	pos := e.position(asset, account)
	pos.CollateralAmount.Add(pos.CollateralAmount, amount)

	e.logger.Info().Str("asset", asset.Hex()).Str("account", account.Hex()).
		Str("amount", amount.String()).Msg("collateral deposited")
	return nil
}

// Borrow mints stable units to account against its collateral. Accrued
// interest rolls into the principal and the index snapshot advances.
func (e *Engine) Borrow(at time.Time, asset, account common.Address, amount *big.Int) error {
	if amount == nil || amount.Sign() <= 0 {
		return ErrZeroAmount
	}
	if _, ok := e.strategies[asset]; !ok {
		return ErrInvalidAsset
	}
	e.accrueInterest(at)

	pos := e.position(asset, account)
	if pos.CollateralAmount.Sign() == 0 {
		return ErrNoCollateral
	}
	interest := vmath.InterestOwed(pos.BorrowAmount, e.globalDebtIndex, pos.DebtIndexSnapshot)
	debt := new(big.Int).Add(pos.BorrowAmount, interest)

	cfg := e.risk[asset]
	borrowable := vmath.BpsMul(e.collateralValue(asset, pos.CollateralAmount), cfg.LoanToValueBps)
	if new(big.Int).Add(debt, amount).Cmp(borrowable) > 0 {
		return ErrOverLTV
	}

	if err := e.bank.Mint(e.stable, account, amount); err != nil {
		return fmt.Errorf("stable mint: %w", err)
	}
	pos.BorrowAmount = debt.Add(debt, amount)
	pos.DebtIndexSnapshot.Set(e.globalDebtIndex)
	e.totalBorrows.Add(e.totalBorrows, new(big.Int).Add(interest, amount))

	e.logger.Info().Str("asset", asset.Hex()).Str("account", account.Hex()).
		Str("amount", amount.String()).Msg("stable borrowed")
	return nil
}

// Repay burns stable units from account. The amount must cover at least the
// accrued interest and at most the total owed.
func (e *Engine) Repay(at time.Time, asset, account common.Address, amount *big.Int) error {
	if amount == nil || amount.Sign() <= 0 {
		return ErrZeroAmount
	}
	e.accrueInterest(at)

	pos := e.position(asset, account)
	if pos.BorrowAmount.Sign() == 0 {
		return ErrNoBorrow
	}
	interest := vmath.InterestOwed(pos.BorrowAmount, e.globalDebtIndex, pos.DebtIndexSnapshot)
	total := new(big.Int).Add(pos.BorrowAmount, interest)
	if amount.Cmp(interest) < 0 {
		return ErrRepayTooSmall
	}
	if amount.Cmp(total) > 0 {
		return ErrRepayTooBig
	}

	if err := e.bank.Burn(e.stable, account, amount); err != nil {
		return fmt.Errorf("stable burn: %w", err)
	}
	principalRepaid := new(big.Int).Sub(amount, interest)
	pos.BorrowAmount.Sub(pos.BorrowAmount, principalRepaid)
	pos.DebtIndexSnapshot.Set(e.globalDebtIndex)
	e.totalBorrows.Sub(e.totalBorrows, principalRepaid)

	e.logger.Info().Str("asset", asset.Hex()).Str("account", account.Hex()).
		Str("amount", amount.String()).Msg("debt repaid")
	return nil
}

// Withdraw unstakes collateral and returns it to account. A position that
// keeps debt must still satisfy its loan-to-value limit afterwards.
func (e *Engine) Withdraw(at time.Time, asset, account common.Address, amount *big.Int) error {
	if amount == nil || amount.Sign() <= 0 {
		return ErrZeroAmount
	}
	strat, ok := e.strategies[asset]
	if !ok {
		return ErrInvalidAsset
	}
	e.accrueInterest(at)

	pos := e.position(asset, account)
	if amount.Cmp(pos.CollateralAmount) > 0 {
		return ErrWithdrawTooBig
	}
	if pos.BorrowAmount.Sign() > 0 {
		interest := vmath.InterestOwed(pos.BorrowAmount, e.globalDebtIndex, pos.DebtIndexSnapshot)
		debt := new(big.Int).Add(pos.BorrowAmount, interest)
		remaining := new(big.Int).Sub(pos.CollateralAmount, amount)
		cfg := e.risk[asset]
		borrowable := vmath.BpsMul(e.collateralValue(asset, remaining), cfg.LoanToValueBps)
		if debt.Cmp(borrowable) > 0 {
			return ErrOverLTV
		}
	}

	if err := strat.Unstake(asset, account, amount); err != nil {
		return fmt.Errorf("unstake: %w", err)
	}
	if err := e.bank.Transfer(asset, token.VaultAddress, account, amount); err != nil {
		return fmt.Errorf("collateral return: %w", err)
	}
	pos.CollateralAmount.Sub(pos.CollateralAmount, amount)

	e.logger.Info().Str("asset", asset.Hex()).Str("account", account.Hex()).
		Str("amount", amount.String()).Msg("collateral withdrawn")
	return nil
}

// Liquidate lets liquidator repay part of an unhealthy position's debt in
// exchange for collateral plus a penalty share. The repay amount is bounded
// below by accrued interest and above by half the outstanding debt. The
// liquidator's collateral share is restaked as its own position; the
// treasury share leaves the venue.
func (e *Engine) Liquidate(at time.Time, asset, liquidator, borrower common.Address, repayAmount *big.Int) error {
	if repayAmount == nil || repayAmount.Sign() <= 0 {
		return ErrZeroAmount
	}
	strat, ok := e.strategies[asset]
	if !ok {
		return ErrInvalidAsset
	}
	e.accrueInterest(at)

	pos := e.position(asset, borrower)
	if pos.BorrowAmount.Sign() == 0 {
		return ErrNoBorrow
	}
	interest := vmath.InterestOwed(pos.BorrowAmount, e.globalDebtIndex, pos.DebtIndexSnapshot)
	debt := new(big.Int).Add(pos.BorrowAmount, interest)

	cfg := e.risk[asset]
	thresholdValue := vmath.BpsMul(e.collateralValue(asset, pos.CollateralAmount), cfg.LiquidationThresholdBps)
	// healthRatio = debt / thresholdValue; eligible when >= 1.
	if debt.Cmp(thresholdValue) < 0 {
		return ErrLiquidationNotEligible
	}
	if repayAmount.Cmp(interest) < 0 {
		return ErrLiquidationTooSmall
	}
	if new(big.Int).Mul(repayAmount, big.NewInt(2)).Cmp(debt) > 0 {
		return ErrLiquidationTooBig
	}

	price := e.prices.GetAssetPrice(asset)
	if price.Sign() == 0 {
		return ErrInvalidAsset
	}

	penalty := vmath.BpsMul(repayAmount, e.params.LiquidationPenaltyBps)
	half := new(big.Int).Quo(penalty, big.NewInt(2))
	liquidatorUnits := e.usdToCollateral(asset, new(big.Int).Add(repayAmount, half), price)
	treasuryUnits := e.usdToCollateral(asset, half, price)

	seized := new(big.Int).Add(liquidatorUnits, treasuryUnits)
	if seized.Cmp(pos.CollateralAmount) > 0 {
		// Undercollateralized tail: the liquidator is made whole first,
		// the treasury takes what remains.
		seized = new(big.Int).Set(pos.CollateralAmount)
		if liquidatorUnits.Cmp(seized) > 0 {
			liquidatorUnits = new(big.Int).Set(seized)
		}
		treasuryUnits = new(big.Int).Sub(seized, liquidatorUnits)
	}

	if err := e.bank.Burn(e.stable, liquidator, repayAmount); err != nil {
		return fmt.Errorf("stable burn: %w", err)
	}
	if err := strat.Unstake(asset, borrower, seized); err != nil {
		return fmt.Errorf("unstake seized: %w", err)
	}
	if liquidatorUnits.Sign() > 0 {
		if err := strat.Stake(asset, liquidator, liquidatorUnits); err != nil {
			return fmt.Errorf("restake seized: %w", err)
		}
	}
	if treasuryUnits.Sign() > 0 {
		if err := e.bank.Transfer(asset, token.VaultAddress, token.TreasuryAddress, treasuryUnits); err != nil {
			return fmt.Errorf("treasury transfer: %w", err)
		}
	}

	pos.CollateralAmount.Sub(pos.CollateralAmount, seized)
	pos.BorrowAmount = debt.Sub(debt, repayAmount)
	pos.DebtIndexSnapshot.Set(e.globalDebtIndex)
	e.totalBorrows.Add(e.totalBorrows, interest)
	e.totalBorrows.Sub(e.totalBorrows, repayAmount)

	liqPos := e.position(asset, liquidator)
	liqPos.CollateralAmount.Add(liqPos.CollateralAmount, liquidatorUnits)

	e.logger.Info().Str("asset", asset.Hex()).Str("borrower", borrower.Hex()).
		Str("liquidator", liquidator.Hex()).Str("repay", repayAmount.String()).
		Str("seized", seized.String()).Msg("position liquidated")
	return nil
}

// Accrue realizes the interest accumulated for the treasury by minting it.
func (e *Engine) Accrue(at time.Time) (*big.Int, error) {
	e.accrueInterest(at)
	if e.treasuryAccrued.Sign() == 0 {
		return nil, ErrTreasuryFeeZero
	}
	minted := new(big.Int).Set(e.treasuryAccrued)
	if err := e.bank.Mint(e.stable, token.TreasuryAddress, minted); err != nil {
		return nil, fmt.Errorf("treasury mint: %w", err)
	}
	e.treasuryAccrued = new(big.Int)

	e.logger.Info().Str("amount", minted.String()).Msg("treasury interest minted")
	return minted, nil
}

// Claim pays out account's pending strategy rewards for asset.
func (e *Engine) Claim(at time.Time, asset, account common.Address) ([]strategy.Payout, error) {
	strat, ok := e.strategies[asset]
	if !ok {
		return nil, ErrInvalidAsset
	}
	e.accrueInterest(at)

	payouts, err := strat.Claim(asset, account)
	if errors.Is(err, strategy.ErrNothingToClaim) {
		return nil, ErrNothingToClaim
	}
	if err != nil {
		return nil, err
	}
	return payouts, nil
}

// FlashLoan transfers amount of stable to recipient, runs the receiver's
// callback, and verifies the vault balance grew by at least the fee. The
// check re-reads balances after the callback; on any failure the token
// state is rolled back wholesale.
func (e *Engine) FlashLoan(at time.Time, receiver FlashLoanReceiver, recipient common.Address, amount *big.Int, data []byte) error {
	if amount == nil || amount.Sign() <= 0 {
		return ErrZeroAmount
	}
	e.accrueInterest(at)

	liquidity := e.bank.BalanceOf(e.stable, token.VaultAddress)
	if amount.Cmp(liquidity) > 0 {
		return ErrFlashLoanTooBig
	}
	fee := vmath.BpsMul(amount, e.params.FlashLoanFeeBps)
	required := new(big.Int).Add(liquidity, fee)

	snap := e.bank.Snapshot()
	if err := e.bank.Transfer(e.stable, token.VaultAddress, recipient, amount); err != nil {
		return fmt.Errorf("flash loan transfer: %w", err)
	}
	if err := receiver.OnFlashLoan(amount, fee, data); err != nil {
		e.bank.Restore(snap)
		return fmt.Errorf("%w: %v", ErrFlashLoanCallbackFailed, err)
	}
	// The callback ran arbitrary code; trust only a fresh read.
	after := e.bank.BalanceOf(e.stable, token.VaultAddress)
	if after.Cmp(required) < 0 {
		e.bank.Restore(snap)
		return ErrFlashLoanCallbackFailed
	}

	e.logger.Info().Str("recipient", recipient.Hex()).Str("amount", amount.String()).
		Str("fee", fee.String()).Msg("flash loan executed")
	return nil
}
