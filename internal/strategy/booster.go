package strategy

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/rs/zerolog"

	"LendingVault/internal/token"
)

// BoosterVenue is the consumed interface of a dual-reward booster: one
// shared venue with numbered pools, each paying a primary and a secondary
// reward token. LifetimeRewards totals are monotone per pool.
type BoosterVenue interface {
	Deposit(pid uint64, amount *big.Int) error
	Withdraw(pid uint64, amount *big.Int) error
	GetReward(pid uint64) error
	RewardTokens() [2]common.Address
	LifetimeRewards(pid uint64) [2]*big.Int
}

// BoosterStrategy custodies assets at one booster venue, mapping each asset
// to a venue pool id. Each pool tracks two independent accumulator pairs.
type BoosterStrategy struct {
	bank   *token.Bank
	float  common.Address
	venue  BoosterVenue
	pids   map[common.Address]uint64
	pools  map[common.Address]*rewardPool
	logger zerolog.Logger
}

func NewBoosterStrategy(bank *token.Bank, float common.Address, venue BoosterVenue, logger zerolog.Logger) *BoosterStrategy {
	return &BoosterStrategy{
		bank:   bank,
		float:  float,
		venue:  venue,
		pids:   make(map[common.Address]uint64),
		pools:  make(map[common.Address]*rewardPool),
		logger: logger,
	}
}

// SetPoolID binds an asset to a booster pool id, creating the pool state.
func (b *BoosterStrategy) SetPoolID(asset common.Address, pid uint64) {
	b.pids[asset] = pid
	if _, ok := b.pools[asset]; !ok {
		b.pools[asset] = newRewardPool(2)
	}
}

// SetPoolIDs is the batch form of SetPoolID.
func (b *BoosterStrategy) SetPoolIDs(assets []common.Address, pids []uint64) error {
	if len(assets) != len(pids) {
		return fmt.Errorf("assets/pids length mismatch: %d != %d", len(assets), len(pids))
	}
	for i := range assets {
		b.SetPoolID(assets[i], pids[i])
	}
	return nil
}

func (b *BoosterStrategy) lookup(asset common.Address) (uint64, *rewardPool, error) {
	pid, ok := b.pids[asset]
	if !ok {
		return 0, nil, ErrInvalidLpToken
	}
	pool, ok := b.pools[asset]
	if !ok {
		// Snapshots only carry assets that had pool state; a pool id
		// registered after the snapshot starts with a fresh pool.
		pool = newRewardPool(2)
		b.pools[asset] = pool
	}
	return pid, pool, nil
}

func (b *BoosterStrategy) lifetime(pid uint64) []*big.Int {
	lt := b.venue.LifetimeRewards(pid)
	return []*big.Int{lt[0], lt[1]}
}

func (b *BoosterStrategy) Stake(asset, account common.Address, amount *big.Int) error {
	if amount.Sign() <= 0 {
		return ErrZeroAmount
	}
	pid, pool, err := b.lookup(asset)
	if err != nil {
		return err
	}
	pool.sync(b.lifetime(pid))
	pool.stake(account, amount)
	if err := b.venue.Deposit(pid, amount); err != nil {
		return fmt.Errorf("booster deposit: %w", err)
	}
	return nil
}

func (b *BoosterStrategy) Unstake(asset, account common.Address, amount *big.Int) error {
	if amount.Sign() <= 0 {
		return ErrInvalidWithdrawAmount
	}
	pid, pool, err := b.lookup(asset)
	if err != nil {
		return err
	}
	pool.sync(b.lifetime(pid))
	if err := pool.unstake(account, amount); err != nil {
		return err
	}
	if err := b.venue.Withdraw(pid, amount); err != nil {
		return fmt.Errorf("booster withdraw: %w", err)
	}
	return nil
}

func (b *BoosterStrategy) Claim(asset, account common.Address) ([]Payout, error) {
	pid, pool, err := b.lookup(asset)
	if err != nil {
		return nil, err
	}
	pool.sync(b.lifetime(pid))
	amounts := pool.collect(account)
	if amounts[0].Sign() == 0 && amounts[1].Sign() == 0 {
		return nil, ErrNothingToClaim
	}
	if err := b.venue.GetReward(pid); err != nil {
		return nil, fmt.Errorf("booster claim: %w", err)
	}
	tokens := b.venue.RewardTokens()
	payouts := make([]Payout, 0, 2)
	for i, amount := range amounts {
		if amount.Sign() == 0 {
			continue
		}
		if err := b.bank.Transfer(tokens[i], b.float, account, amount); err != nil {
			return nil, fmt.Errorf("reward payout: %w", err)
		}
		payouts = append(payouts, Payout{Token: tokens[i], Amount: amount})
	}
	b.logger.Debug().Str("asset", asset.Hex()).Str("account", account.Hex()).
		Uint64("pid", pid).Msg("booster rewards claimed")
	return payouts, nil
}

func (b *BoosterStrategy) ClaimableRewards(asset, account common.Address) ([]Payout, error) {
	pid, pool, err := b.lookup(asset)
	if err != nil {
		return nil, err
	}
	amounts := pool.pendingView(account, b.lifetime(pid))
	tokens := b.venue.RewardTokens()
	return []Payout{
		{Token: tokens[0], Amount: amounts[0]},
		{Token: tokens[1], Amount: amounts[1]},
	}, nil
}

func (b *BoosterStrategy) TotalDeposit(asset common.Address) *big.Int {
	pool, ok := b.pools[asset]
	if !ok {
		return new(big.Int)
	}
	return new(big.Int).Set(pool.totalDeposit)
}

func (b *BoosterStrategy) DepositorBalance(asset, account common.Address) *big.Int {
	pool, ok := b.pools[asset]
	if !ok {
		return new(big.Int)
	}
	s, ok := pool.stakers[account]
	if !ok {
		return new(big.Int)
	}
	return new(big.Int).Set(s.amount)
}

func (b *BoosterStrategy) RewardTokens() []common.Address {
	tokens := b.venue.RewardTokens()
	return []common.Address{tokens[0], tokens[1]}
}
