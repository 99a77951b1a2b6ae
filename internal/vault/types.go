package vault

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// Position is one account's collateral and debt in one asset. Created on
// first deposit and never deleted; balances may return to zero and be
// reused.
type Position struct {
	CollateralAmount *big.Int
	// BorrowAmount is the stable-unit principal outstanding. Accrued
	// interest is rolled into it whenever the position is touched.
	BorrowAmount *big.Int
	// DebtIndexSnapshot is the global debt index at the last touch.
	DebtIndexSnapshot *big.Int
}

func newPosition() *Position {
	return &Position{
		CollateralAmount:  new(big.Int),
		BorrowAmount:      new(big.Int),
		DebtIndexSnapshot: new(big.Int),
	}
}

func (p *Position) clone() *Position {
	return &Position{
		CollateralAmount:  new(big.Int).Set(p.CollateralAmount),
		BorrowAmount:      new(big.Int).Set(p.BorrowAmount),
		DebtIndexSnapshot: new(big.Int).Set(p.DebtIndexSnapshot),
	}
}

// PositionKey identifies a position.
type PositionKey struct {
	Asset   common.Address
	Account common.Address
}

// RiskConfig is the per-asset risk configuration, set by the admin before
// the asset becomes borrowable.
type RiskConfig struct {
	LoanToValueBps          int64
	LiquidationThresholdBps int64
	// Decimals is the collateral token's decimal precision, used for
	// USD-to-collateral-unit conversion.
	Decimals uint8
}

// Params is the global accrual and fee configuration.
type Params struct {
	InterestRateBps       int64
	FlashLoanFeeBps       int64
	LiquidationPenaltyBps int64
}

// DefaultParams mirror the reference deployment: 2% borrow APR, 0.05%
// flash-loan fee, 1% liquidation penalty.
func DefaultParams() Params {
	return Params{
		InterestRateBps:       200,
		FlashLoanFeeBps:       5,
		LiquidationPenaltyBps: 100,
	}
}

// FlashLoanReceiver is the callback contract flash-loan users implement.
// It runs synchronously inside the flash-loan call; by the time it returns
// the vault's stable balance must have grown by at least fee.
type FlashLoanReceiver interface {
	OnFlashLoan(amount, fee *big.Int, data []byte) error
}
