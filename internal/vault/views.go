package vault

import (
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"

	vmath "LendingVault/internal/math"
	"LendingVault/internal/strategy"
	"LendingVault/internal/token"
)

// Read-only views. Pending interest is projected with the index advanced to
// the query time; nothing is mutated.

// GetPosition returns a copy of the position, reporting whether it exists.
func (e *Engine) GetPosition(asset, account common.Address) (Position, bool) {
	pos, ok := e.positions[PositionKey{Asset: asset, Account: account}]
	if !ok {
		return Position{}, false
	}
	return *pos.clone(), true
}

// Debt returns principal plus interest projected to at.
func (e *Engine) Debt(at time.Time, asset, account common.Address) *big.Int {
	pos, ok := e.positions[PositionKey{Asset: asset, Account: account}]
	if !ok || pos.BorrowAmount.Sign() == 0 {
		return new(big.Int)
	}
	interest := vmath.InterestOwed(pos.BorrowAmount, e.indexAt(at), pos.DebtIndexSnapshot)
	return interest.Add(interest, pos.BorrowAmount)
}

// GetBorrowableAmount returns the stable units account can still borrow
// against its collateral: LTV capacity minus current debt, floored at zero.
func (e *Engine) GetBorrowableAmount(at time.Time, asset, account common.Address) *big.Int {
	pos, ok := e.positions[PositionKey{Asset: asset, Account: account}]
	if !ok {
		return new(big.Int)
	}
	cfg := e.risk[asset]
	capacity := vmath.BpsMul(e.collateralValue(asset, pos.CollateralAmount), cfg.LoanToValueBps)
	capacity.Sub(capacity, e.Debt(at, asset, account))
	if capacity.Sign() < 0 {
		return new(big.Int)
	}
	return capacity
}

// HealthRatio returns debtUSD / (collateralUSD * threshold) at 1e18 scale.
// A ratio of 1e18 or more means the position is liquidatable. Returns
// ErrNoBorrow for debt-free positions.
func (e *Engine) HealthRatio(at time.Time, asset, account common.Address) (*big.Int, error) {
	debt := e.Debt(at, asset, account)
	if debt.Sign() == 0 {
		return nil, ErrNoBorrow
	}
	pos := e.positions[PositionKey{Asset: asset, Account: account}]
	cfg := e.risk[asset]
	thresholdValue := vmath.BpsMul(e.collateralValue(asset, pos.CollateralAmount), cfg.LiquidationThresholdBps)
	if thresholdValue.Sign() == 0 {
		// Unpriced or zero collateral with debt: maximally unhealthy.
		return new(big.Int).Lsh(big.NewInt(1), 255), nil
	}
	return vmath.WadDiv(debt, thresholdValue), nil
}

// ClaimableRewards reports account's pending strategy rewards for asset.
func (e *Engine) ClaimableRewards(asset, account common.Address) ([]strategy.Payout, error) {
	strat, ok := e.strategies[asset]
	if !ok {
		return nil, ErrInvalidAsset
	}
	return strat.ClaimableRewards(asset, account)
}

// AvailableLiquidity is the vault's own stable float, the ceiling for
// flash loans.
func (e *Engine) AvailableLiquidity() *big.Int {
	return e.bank.BalanceOf(e.stable, token.VaultAddress)
}

// TreasuryAccrued is the interest pending an Accrue call.
func (e *Engine) TreasuryAccrued() *big.Int {
	return new(big.Int).Set(e.treasuryAccrued)
}

// GlobalDebtIndex returns the current accumulator value.
func (e *Engine) GlobalDebtIndex() *big.Int {
	return new(big.Int).Set(e.globalDebtIndex)
}

// TotalBorrows returns the protocol-wide outstanding principal.
func (e *Engine) TotalBorrows() *big.Int {
	return new(big.Int).Set(e.totalBorrows)
}

// Params returns the current global parameters.
func (e *Engine) Params() Params {
	return e.params
}

// RiskConfigOf returns the asset's risk configuration, if set.
func (e *Engine) RiskConfigOf(asset common.Address) (RiskConfig, bool) {
	cfg, ok := e.risk[asset]
	return cfg, ok
}

// StrategyOf returns the asset's registered strategy, if any.
func (e *Engine) StrategyOf(asset common.Address) (strategy.Strategy, bool) {
	s, ok := e.strategies[asset]
	return s, ok
}
