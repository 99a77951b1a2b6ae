// Package strategy implements collateral custody at external yield venues
// with per-pool, per-depositor reward attribution. Two venue shapes are
// supported: single-reward gauges and dual-reward boosters. Both share the
// reward-per-share accumulator bookkeeping in pool.go.
package strategy

import (
	"errors"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

var (
	ErrZeroAmount            = errors.New("amount must be positive")
	ErrInvalidLpToken        = errors.New("lp token has no registered pool")
	ErrInvalidWithdrawAmount = errors.New("withdraw amount exceeds staked balance")
	ErrNothingToClaim        = errors.New("no rewards to claim")
)

// Payout is one reward-token amount owed to a depositor.
type Payout struct {
	Token  common.Address
	Amount *big.Int
}

// Strategy is the custody-and-rewards capability the vault holds per asset.
// Implementations keep Pool and Staker state as exclusive internal state;
// the vault reaches it only through this contract.
type Strategy interface {
	// Stake syncs reward state, credits account's stake and forwards the
	// amount to the external venue.
	Stake(asset, account common.Address, amount *big.Int) error

	// Unstake syncs reward state, debits account's stake and withdraws the
	// amount from the external venue.
	Unstake(asset, account common.Address, amount *big.Int) error

	// Claim syncs reward state and pays out all pending rewards. Returns
	// ErrNothingToClaim when every pending amount is zero. The returned
	// payouts have already been transferred to account.
	Claim(asset, account common.Address) ([]Payout, error)

	// ClaimableRewards reports pending rewards without mutating state,
	// including rewards the venue has accrued but the pool has not synced.
	ClaimableRewards(asset, account common.Address) ([]Payout, error)

	// TotalDeposit returns the pool-wide staked amount for asset.
	TotalDeposit(asset common.Address) *big.Int

	// DepositorBalance returns account's staked amount for asset.
	DepositorBalance(asset, account common.Address) *big.Int

	// RewardTokens lists the reward tokens this strategy's venue pays.
	RewardTokens() []common.Address
}
