package vault

import (
	"time"

	"github.com/ethereum/go-ethereum/common"

	"LendingVault/internal/strategy"
)

// Admin surface. Every setter is gated to the single privileged account
// injected at construction.

func (e *Engine) requireAdmin(caller common.Address) error {
	if caller != e.admin {
		return ErrUnauthorized
	}
	return nil
}

// SetStrategy registers or replaces the custody strategy for an asset.
func (e *Engine) SetStrategy(caller, asset common.Address, strat strategy.Strategy) error {
	if err := e.requireAdmin(caller); err != nil {
		return err
	}
	if strat == nil {
		return ErrInvalidAsset
	}
	e.strategies[asset] = strat
	e.logger.Info().Str("asset", asset.Hex()).Msg("strategy registered")
	return nil
}

// SetStrategies is the batch form of SetStrategy.
func (e *Engine) SetStrategies(caller common.Address, assets []common.Address, strats []strategy.Strategy) error {
	if err := e.requireAdmin(caller); err != nil {
		return err
	}
	if len(assets) != len(strats) {
		return ErrArrayLengthMismatch
	}
	for i := range assets {
		if err := e.SetStrategy(caller, assets[i], strats[i]); err != nil {
			return err
		}
	}
	return nil
}

// SetRiskConfig sets an asset's loan-to-value, liquidation threshold and
// collateral decimals. Must be called before the asset is borrowable.
func (e *Engine) SetRiskConfig(caller, asset common.Address, cfg RiskConfig) error {
	if err := e.requireAdmin(caller); err != nil {
		return err
	}
	if cfg.LoanToValueBps <= 0 || cfg.LiquidationThresholdBps <= 0 ||
		cfg.LoanToValueBps > 10_000 || cfg.LiquidationThresholdBps > 10_000 ||
		cfg.LoanToValueBps > cfg.LiquidationThresholdBps {
		return ErrInvalidRiskConfig
	}
	e.risk[asset] = cfg
	e.logger.Info().Str("asset", asset.Hex()).
		Int64("ltv_bps", cfg.LoanToValueBps).
		Int64("threshold_bps", cfg.LiquidationThresholdBps).
		Msg("risk config set")
	return nil
}

// SetInterestRate settles the index at the old rate, then switches.
func (e *Engine) SetInterestRate(at time.Time, caller common.Address, rateBps int64) error {
	if err := e.requireAdmin(caller); err != nil {
		return err
	}
	if rateBps < 0 {
		return ErrInvalidRiskConfig
	}
	e.accrueInterest(at)
	e.params.InterestRateBps = rateBps
	e.logger.Info().Int64("rate_bps", rateBps).Msg("interest rate set")
	return nil
}

// SetFlashLoanFee sets the flash-loan fee in basis points.
func (e *Engine) SetFlashLoanFee(caller common.Address, feeBps int64) error {
	if err := e.requireAdmin(caller); err != nil {
		return err
	}
	if feeBps < 0 {
		return ErrInvalidRiskConfig
	}
	e.params.FlashLoanFeeBps = feeBps
	return nil
}

// SetLiquidationPenalty sets the liquidation penalty in basis points.
func (e *Engine) SetLiquidationPenalty(caller common.Address, penaltyBps int64) error {
	if err := e.requireAdmin(caller); err != nil {
		return err
	}
	if penaltyBps < 0 {
		return ErrInvalidRiskConfig
	}
	e.params.LiquidationPenaltyBps = penaltyBps
	return nil
}

// Admin returns the privileged account.
func (e *Engine) Admin() common.Address {
	return e.admin
}
