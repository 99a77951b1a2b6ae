package strategy

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	vmath "LendingVault/internal/math"
)

// rewardPool is the accumulator bookkeeping shared by both strategy
// variants, generic over the number of reward tokens the venue pays.
//
// accPerShare[i] is the running reward-per-share total at 1e18 precision.
// lastSynced[i] is the watermark of venue-reported lifetime rewards already
// folded into accPerShare; it advances immediately after the delta is
// computed, so calling sync twice without new rewards is a no-op.
type rewardPool struct {
	totalDeposit *big.Int
	accPerShare  []*big.Int
	lastSynced   []*big.Int
	stakers      map[common.Address]*staker
}

type staker struct {
	amount     *big.Int
	rewardDebt []*big.Int
	// accrued holds pending rewards banked at stake/unstake time so that
	// balance changes never forfeit earned-but-unclaimed rewards.
	accrued []*big.Int
}

func newRewardPool(numRewards int) *rewardPool {
	p := &rewardPool{
		totalDeposit: new(big.Int),
		accPerShare:  make([]*big.Int, numRewards),
		lastSynced:   make([]*big.Int, numRewards),
		stakers:      make(map[common.Address]*staker),
	}
	for i := 0; i < numRewards; i++ {
		p.accPerShare[i] = new(big.Int)
		p.lastSynced[i] = new(big.Int)
	}
	return p
}

func (p *rewardPool) numRewards() int {
	return len(p.accPerShare)
}

func (p *rewardPool) getStaker(account common.Address) *staker {
	s, ok := p.stakers[account]
	if !ok {
		s = &staker{
			amount:     new(big.Int),
			rewardDebt: make([]*big.Int, p.numRewards()),
			accrued:    make([]*big.Int, p.numRewards()),
		}
		for i := range s.rewardDebt {
			s.rewardDebt[i] = new(big.Int)
			s.accrued[i] = new(big.Int)
		}
		p.stakers[account] = s
	}
	return s
}

// sync folds venue-reported lifetime rewards into the accumulators. While
// the pool is empty the watermark does not advance: rewards accrued against
// zero stake are attributed to whoever is staked at the next nonzero sync.
func (p *rewardPool) sync(lifetime []*big.Int) {
	if p.totalDeposit.Sign() == 0 {
		return
	}
	for i, total := range lifetime {
		delta := new(big.Int).Sub(total, p.lastSynced[i])
		if delta.Sign() <= 0 {
			continue
		}
		p.lastSynced[i].Set(total)
		p.accPerShare[i].Add(p.accPerShare[i], vmath.MulDiv(delta, vmath.Precision, p.totalDeposit))
	}
}

// entitled returns amount * accPerShare / PRECISION for reward token i.
func (p *rewardPool) entitled(s *staker, i int) *big.Int {
	return vmath.MulDiv(s.amount, p.accPerShare[i], vmath.Precision)
}

// bankPending moves each reward token's pending amount into accrued and
// resets reward debt to the staker's current entitlement. Called around any
// stake-balance change.
func (p *rewardPool) bankPending(s *staker) {
	for i := range p.accPerShare {
		pending := new(big.Int).Sub(p.entitled(s, i), s.rewardDebt[i])
		if pending.Sign() > 0 {
			s.accrued[i].Add(s.accrued[i], pending)
		}
	}
}

func (p *rewardPool) resetDebt(s *staker) {
	for i := range p.accPerShare {
		s.rewardDebt[i].Set(p.entitled(s, i))
	}
}

func (p *rewardPool) stake(account common.Address, amount *big.Int) {
	s := p.getStaker(account)
	p.bankPending(s)
	s.amount.Add(s.amount, amount)
	p.totalDeposit.Add(p.totalDeposit, amount)
	p.resetDebt(s)
}

func (p *rewardPool) unstake(account common.Address, amount *big.Int) error {
	s := p.getStaker(account)
	if amount.Cmp(s.amount) > 0 {
		return ErrInvalidWithdrawAmount
	}
	p.bankPending(s)
	s.amount.Sub(s.amount, amount)
	p.totalDeposit.Sub(p.totalDeposit, amount)
	p.resetDebt(s)
	return nil
}

// collect drains accrued plus fresh pending for every reward token and
// resets debt. Returns one amount per reward token, possibly zero.
func (p *rewardPool) collect(account common.Address) []*big.Int {
	s := p.getStaker(account)
	p.bankPending(s)
	p.resetDebt(s)
	out := make([]*big.Int, p.numRewards())
	for i := range out {
		out[i] = s.accrued[i]
		s.accrued[i] = new(big.Int)
	}
	return out
}

// pendingView computes what collect would pay if the pool synced against
// the given lifetime totals, without mutating anything.
func (p *rewardPool) pendingView(account common.Address, lifetime []*big.Int) []*big.Int {
	s, ok := p.stakers[account]
	out := make([]*big.Int, p.numRewards())
	for i := range out {
		out[i] = new(big.Int)
	}
	if !ok {
		return out
	}
	for i := range out {
		acc := new(big.Int).Set(p.accPerShare[i])
		if p.totalDeposit.Sign() > 0 {
			delta := new(big.Int).Sub(lifetime[i], p.lastSynced[i])
			if delta.Sign() > 0 {
				acc.Add(acc, vmath.MulDiv(delta, vmath.Precision, p.totalDeposit))
			}
		}
		entitled := vmath.MulDiv(s.amount, acc, vmath.Precision)
		pending := new(big.Int).Sub(entitled, s.rewardDebt[i])
		if pending.Sign() < 0 {
			pending = new(big.Int)
		}
		out[i].Add(s.accrued[i], pending)
	}
	return out
}
