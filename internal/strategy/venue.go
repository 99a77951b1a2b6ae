package strategy

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"LendingVault/internal/token"
)

// In-process venue state. The engine does not talk to chains directly; the
// ingestion layer applies externally observed venue activity (reward
// arrivals) to these, and custody moves through the bank.

// MemoryGauge models one single-reward gauge. Staked collateral is held at
// the gauge's own address; claimed rewards move to the float address.
type MemoryGauge struct {
	bank        *token.Bank
	asset       common.Address
	rewardToken common.Address
	addr        common.Address
	float       common.Address
	lifetime    *big.Int
	unclaimed   *big.Int
}

func NewMemoryGauge(bank *token.Bank, asset, rewardToken common.Address, name string, float common.Address) *MemoryGauge {
	return &MemoryGauge{
		bank:        bank,
		asset:       asset,
		rewardToken: rewardToken,
		addr:        token.ModuleAddress(name),
		float:       float,
		lifetime:    new(big.Int),
		unclaimed:   new(big.Int),
	}
}

// AddRewards records a venue reward arrival: tokens appear at the gauge and
// the lifetime total grows.
func (g *MemoryGauge) AddRewards(amount *big.Int) error {
	if amount.Sign() <= 0 {
		return ErrZeroAmount
	}
	if err := g.bank.Mint(g.rewardToken, g.addr, amount); err != nil {
		return err
	}
	g.lifetime.Add(g.lifetime, amount)
	g.unclaimed.Add(g.unclaimed, amount)
	return nil
}

func (g *MemoryGauge) Stake(amount *big.Int) error {
	return g.bank.Transfer(g.asset, g.float, g.addr, amount)
}

func (g *MemoryGauge) Withdraw(amount *big.Int) error {
	return g.bank.Transfer(g.asset, g.addr, g.float, amount)
}

func (g *MemoryGauge) ClaimRewards() error {
	if g.unclaimed.Sign() == 0 {
		return nil
	}
	if err := g.bank.Transfer(g.rewardToken, g.addr, g.float, g.unclaimed); err != nil {
		return err
	}
	g.unclaimed = new(big.Int)
	return nil
}

func (g *MemoryGauge) LifetimeRewards() *big.Int {
	return new(big.Int).Set(g.lifetime)
}

// MemoryBooster models one dual-reward booster venue with numbered pools.
type MemoryBooster struct {
	bank    *token.Bank
	rewards [2]common.Address
	addr    common.Address
	float   common.Address
	pools   map[uint64]*boosterPool
}

type boosterPool struct {
	asset     common.Address
	lifetime  [2]*big.Int
	unclaimed [2]*big.Int
}

func NewMemoryBooster(bank *token.Bank, primary, secondary common.Address, name string, float common.Address) *MemoryBooster {
	return &MemoryBooster{
		bank:    bank,
		rewards: [2]common.Address{primary, secondary},
		addr:    token.ModuleAddress(name),
		float:   float,
		pools:   make(map[uint64]*boosterPool),
	}
}

// AddPool registers a venue pool id for an asset.
func (b *MemoryBooster) AddPool(pid uint64, asset common.Address) {
	b.pools[pid] = &boosterPool{
		asset:     asset,
		lifetime:  [2]*big.Int{new(big.Int), new(big.Int)},
		unclaimed: [2]*big.Int{new(big.Int), new(big.Int)},
	}
}

func (b *MemoryBooster) pool(pid uint64) (*boosterPool, error) {
	p, ok := b.pools[pid]
	if !ok {
		return nil, fmt.Errorf("booster pool %d not registered", pid)
	}
	return p, nil
}

// AddRewards records a reward arrival for one pool.
func (b *MemoryBooster) AddRewards(pid uint64, primary, secondary *big.Int) error {
	p, err := b.pool(pid)
	if err != nil {
		return err
	}
	for i, amount := range []*big.Int{primary, secondary} {
		if amount.Sign() <= 0 {
			continue
		}
		if err := b.bank.Mint(b.rewards[i], b.addr, amount); err != nil {
			return err
		}
		p.lifetime[i].Add(p.lifetime[i], amount)
		p.unclaimed[i].Add(p.unclaimed[i], amount)
	}
	return nil
}

func (b *MemoryBooster) Deposit(pid uint64, amount *big.Int) error {
	p, err := b.pool(pid)
	if err != nil {
		return err
	}
	return b.bank.Transfer(p.asset, b.float, b.addr, amount)
}

func (b *MemoryBooster) Withdraw(pid uint64, amount *big.Int) error {
	p, err := b.pool(pid)
	if err != nil {
		return err
	}
	return b.bank.Transfer(p.asset, b.addr, b.float, amount)
}

func (b *MemoryBooster) GetReward(pid uint64) error {
	p, err := b.pool(pid)
	if err != nil {
		return err
	}
	for i := range p.unclaimed {
		if p.unclaimed[i].Sign() == 0 {
			continue
		}
		if err := b.bank.Transfer(b.rewards[i], b.addr, b.float, p.unclaimed[i]); err != nil {
			return err
		}
		p.unclaimed[i] = new(big.Int)
	}
	return nil
}

func (b *MemoryBooster) RewardTokens() [2]common.Address {
	return b.rewards
}

func (b *MemoryBooster) LifetimeRewards(pid uint64) [2]*big.Int {
	p, ok := b.pools[pid]
	if !ok {
		return [2]*big.Int{new(big.Int), new(big.Int)}
	}
	return [2]*big.Int{new(big.Int).Set(p.lifetime[0]), new(big.Int).Set(p.lifetime[1])}
}
