package vault

import "errors"

// One sentinel per rejection kind so callers can tell insufficient-collateral
// conditions from insufficient-input ones. Every rejected call leaves ledger
// state untouched.
var (
	ErrUnauthorized        = errors.New("caller is not the admin")
	ErrInvalidAsset        = errors.New("asset has no registered strategy")
	ErrZeroAmount          = errors.New("amount must be positive")
	ErrArrayLengthMismatch = errors.New("input array lengths do not match")

	ErrInvalidRiskConfig = errors.New("risk parameters out of range")

	ErrNoCollateral    = errors.New("position has no collateral")
	ErrOverLTV         = errors.New("operation would breach loan-to-value limit")
	ErrNoBorrow        = errors.New("position has no outstanding borrow")
	ErrRepayTooSmall   = errors.New("repay amount below accrued interest")
	ErrRepayTooBig     = errors.New("repay amount exceeds total owed")
	ErrWithdrawTooBig  = errors.New("withdraw amount exceeds collateral")
	ErrNothingToClaim  = errors.New("no rewards to claim")
	ErrTreasuryFeeZero = errors.New("no treasury interest accrued")

	ErrLiquidationNotEligible = errors.New("position health above liquidation threshold")
	ErrLiquidationTooSmall    = errors.New("liquidation repay below accrued interest")
	ErrLiquidationTooBig      = errors.New("liquidation repay exceeds half of outstanding debt")

	ErrFlashLoanTooBig         = errors.New("flash loan exceeds available liquidity")
	ErrFlashLoanCallbackFailed = errors.New("flash loan was not repaid with fee")
)
