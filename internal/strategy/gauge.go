package strategy

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/rs/zerolog"

	"LendingVault/internal/token"
)

// GaugeVenue is the consumed interface of a single-reward gauge: stake,
// withdraw, claim, plus the venue-reported lifetime reward total used by
// the sync step. LifetimeRewards is monotone.
type GaugeVenue interface {
	Stake(amount *big.Int) error
	Withdraw(amount *big.Int) error
	ClaimRewards() error
	LifetimeRewards() *big.Int
}

// GaugeStrategy custodies assets at per-asset gauge venues that all pay one
// reward token.
type GaugeStrategy struct {
	bank        *token.Bank
	float       common.Address
	rewardToken common.Address
	gauges      map[common.Address]GaugeVenue
	pools       map[common.Address]*rewardPool
	logger      zerolog.Logger
}

func NewGaugeStrategy(bank *token.Bank, float, rewardToken common.Address, logger zerolog.Logger) *GaugeStrategy {
	return &GaugeStrategy{
		bank:        bank,
		float:       float,
		rewardToken: rewardToken,
		gauges:      make(map[common.Address]GaugeVenue),
		pools:       make(map[common.Address]*rewardPool),
		logger:      logger,
	}
}

// RegisterGauge binds an asset to its gauge venue, creating the pool.
func (g *GaugeStrategy) RegisterGauge(asset common.Address, venue GaugeVenue) {
	g.gauges[asset] = venue
	if _, ok := g.pools[asset]; !ok {
		g.pools[asset] = newRewardPool(1)
	}
}

func (g *GaugeStrategy) lookup(asset common.Address) (GaugeVenue, *rewardPool, error) {
	venue, ok := g.gauges[asset]
	if !ok {
		return nil, nil, ErrInvalidLpToken
	}
	pool, ok := g.pools[asset]
	if !ok {
		// Snapshots only carry assets that had pool state; a venue
		// registered after the snapshot starts with a fresh pool.
		pool = newRewardPool(1)
		g.pools[asset] = pool
	}
	return venue, pool, nil
}

func (g *GaugeStrategy) Stake(asset, account common.Address, amount *big.Int) error {
	if amount.Sign() <= 0 {
		return ErrZeroAmount
	}
	venue, pool, err := g.lookup(asset)
	if err != nil {
		return err
	}
	pool.sync([]*big.Int{venue.LifetimeRewards()})
	pool.stake(account, amount)
	if err := venue.Stake(amount); err != nil {
		return fmt.Errorf("gauge stake: %w", err)
	}
	return nil
}

func (g *GaugeStrategy) Unstake(asset, account common.Address, amount *big.Int) error {
	if amount.Sign() <= 0 {
		return ErrInvalidWithdrawAmount
	}
	venue, pool, err := g.lookup(asset)
	if err != nil {
		return err
	}
	pool.sync([]*big.Int{venue.LifetimeRewards()})
	if err := pool.unstake(account, amount); err != nil {
		return err
	}
	if err := venue.Withdraw(amount); err != nil {
		return fmt.Errorf("gauge withdraw: %w", err)
	}
	return nil
}

func (g *GaugeStrategy) Claim(asset, account common.Address) ([]Payout, error) {
	venue, pool, err := g.lookup(asset)
	if err != nil {
		return nil, err
	}
	pool.sync([]*big.Int{venue.LifetimeRewards()})
	amounts := pool.collect(account)
	if amounts[0].Sign() == 0 {
		return nil, ErrNothingToClaim
	}
	if err := venue.ClaimRewards(); err != nil {
		return nil, fmt.Errorf("gauge claim: %w", err)
	}
	if err := g.bank.Transfer(g.rewardToken, g.float, account, amounts[0]); err != nil {
		return nil, fmt.Errorf("reward payout: %w", err)
	}
	g.logger.Debug().Str("asset", asset.Hex()).Str("account", account.Hex()).
		Str("amount", amounts[0].String()).Msg("gauge rewards claimed")
	return []Payout{{Token: g.rewardToken, Amount: amounts[0]}}, nil
}

func (g *GaugeStrategy) ClaimableRewards(asset, account common.Address) ([]Payout, error) {
	venue, pool, err := g.lookup(asset)
	if err != nil {
		return nil, err
	}
	amounts := pool.pendingView(account, []*big.Int{venue.LifetimeRewards()})
	return []Payout{{Token: g.rewardToken, Amount: amounts[0]}}, nil
}

func (g *GaugeStrategy) TotalDeposit(asset common.Address) *big.Int {
	pool, ok := g.pools[asset]
	if !ok {
		return new(big.Int)
	}
	return new(big.Int).Set(pool.totalDeposit)
}

func (g *GaugeStrategy) DepositorBalance(asset, account common.Address) *big.Int {
	pool, ok := g.pools[asset]
	if !ok {
		return new(big.Int)
	}
	s, ok := pool.stakers[account]
	if !ok {
		return new(big.Int)
	}
	return new(big.Int).Set(s.amount)
}

func (g *GaugeStrategy) RewardTokens() []common.Address {
	return []common.Address{g.rewardToken}
}
