package strategy

import (
	"fmt"
	"math/big"
	"sort"

	"github.com/ethereum/go-ethereum/common"
)

// Serializable pool state for snapshots. Both strategy variants export the
// same shape; the reward-token count distinguishes them.

type PoolSnapshot struct {
	Asset        string           `json:"asset"`
	TotalDeposit string           `json:"total_deposit"`
	AccPerShare  []string         `json:"acc_per_share"`
	LastSynced   []string         `json:"last_synced"`
	Stakers      []StakerSnapshot `json:"stakers"`
}

type StakerSnapshot struct {
	Account    string   `json:"account"`
	Amount     string   `json:"amount"`
	RewardDebt []string `json:"reward_debt"`
	Accrued    []string `json:"accrued"`
}

// Snapshotter is implemented by both strategy variants.
type Snapshotter interface {
	ExportPools() []PoolSnapshot
	ImportPools(snaps []PoolSnapshot) error
}

func exportPools(pools map[common.Address]*rewardPool) []PoolSnapshot {
	out := make([]PoolSnapshot, 0, len(pools))
	for asset, pool := range pools {
		snap := PoolSnapshot{
			Asset:        asset.Hex(),
			TotalDeposit: pool.totalDeposit.String(),
			AccPerShare:  bigStrings(pool.accPerShare),
			LastSynced:   bigStrings(pool.lastSynced),
		}
		for account, s := range pool.stakers {
			snap.Stakers = append(snap.Stakers, StakerSnapshot{
				Account:    account.Hex(),
				Amount:     s.amount.String(),
				RewardDebt: bigStrings(s.rewardDebt),
				Accrued:    bigStrings(s.accrued),
			})
		}
		sort.Slice(snap.Stakers, func(i, j int) bool {
			return snap.Stakers[i].Account < snap.Stakers[j].Account
		})
		out = append(out, snap)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Asset < out[j].Asset })
	return out
}

func importPools(snaps []PoolSnapshot, numRewards int) (map[common.Address]*rewardPool, error) {
	pools := make(map[common.Address]*rewardPool, len(snaps))
	for _, snap := range snaps {
		pool := newRewardPool(numRewards)
		if _, ok := pool.totalDeposit.SetString(snap.TotalDeposit, 10); !ok {
			return nil, fmt.Errorf("bad total deposit %q", snap.TotalDeposit)
		}
		if err := parseBigs(pool.accPerShare, snap.AccPerShare); err != nil {
			return nil, err
		}
		if err := parseBigs(pool.lastSynced, snap.LastSynced); err != nil {
			return nil, err
		}
		for _, ss := range snap.Stakers {
			s := pool.getStaker(common.HexToAddress(ss.Account))
			if _, ok := s.amount.SetString(ss.Amount, 10); !ok {
				return nil, fmt.Errorf("bad staker amount %q", ss.Amount)
			}
			if err := parseBigs(s.rewardDebt, ss.RewardDebt); err != nil {
				return nil, err
			}
			if err := parseBigs(s.accrued, ss.Accrued); err != nil {
				return nil, err
			}
		}
		pools[common.HexToAddress(snap.Asset)] = pool
	}
	return pools, nil
}

func bigStrings(vs []*big.Int) []string {
	out := make([]string, len(vs))
	for i, v := range vs {
		out[i] = v.String()
	}
	return out
}

func parseBigs(dst []*big.Int, src []string) error {
	if len(dst) != len(src) {
		return fmt.Errorf("reward token count mismatch: %d != %d", len(dst), len(src))
	}
	for i, s := range src {
		if _, ok := dst[i].SetString(s, 10); !ok {
			return fmt.Errorf("bad amount %q", s)
		}
	}
	return nil
}

func (g *GaugeStrategy) ExportPools() []PoolSnapshot {
	return exportPools(g.pools)
}

func (g *GaugeStrategy) ImportPools(snaps []PoolSnapshot) error {
	pools, err := importPools(snaps, 1)
	if err != nil {
		return err
	}
	g.pools = pools
	return nil
}

func (b *BoosterStrategy) ExportPools() []PoolSnapshot {
	return exportPools(b.pools)
}

func (b *BoosterStrategy) ImportPools(snaps []PoolSnapshot) error {
	pools, err := importPools(snaps, 2)
	if err != nil {
		return err
	}
	b.pools = pools
	return nil
}

// Venue state travels with the pool snapshots so that lifetime watermarks
// survive restarts.

type GaugeVenueSnapshot struct {
	Lifetime  string `json:"lifetime"`
	Unclaimed string `json:"unclaimed"`
}

func (g *MemoryGauge) ExportState() GaugeVenueSnapshot {
	return GaugeVenueSnapshot{
		Lifetime:  g.lifetime.String(),
		Unclaimed: g.unclaimed.String(),
	}
}

func (g *MemoryGauge) ImportState(snap GaugeVenueSnapshot) error {
	lifetime, ok := new(big.Int).SetString(snap.Lifetime, 10)
	if !ok {
		return fmt.Errorf("bad lifetime %q", snap.Lifetime)
	}
	unclaimed, ok := new(big.Int).SetString(snap.Unclaimed, 10)
	if !ok {
		return fmt.Errorf("bad unclaimed %q", snap.Unclaimed)
	}
	g.lifetime = lifetime
	g.unclaimed = unclaimed
	return nil
}

type BoosterPoolSnapshot struct {
	PID       uint64    `json:"pid"`
	Asset     string    `json:"asset"`
	Lifetime  [2]string `json:"lifetime"`
	Unclaimed [2]string `json:"unclaimed"`
}

func (b *MemoryBooster) ExportState() []BoosterPoolSnapshot {
	out := make([]BoosterPoolSnapshot, 0, len(b.pools))
	for pid, p := range b.pools {
		out = append(out, BoosterPoolSnapshot{
			PID:       pid,
			Asset:     p.asset.Hex(),
			Lifetime:  [2]string{p.lifetime[0].String(), p.lifetime[1].String()},
			Unclaimed: [2]string{p.unclaimed[0].String(), p.unclaimed[1].String()},
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PID < out[j].PID })
	return out
}

func (b *MemoryBooster) ImportState(snaps []BoosterPoolSnapshot) error {
	for _, snap := range snaps {
		p := &boosterPool{asset: common.HexToAddress(snap.Asset)}
		for i := 0; i < 2; i++ {
			lt, ok := new(big.Int).SetString(snap.Lifetime[i], 10)
			if !ok {
				return fmt.Errorf("bad lifetime %q", snap.Lifetime[i])
			}
			uc, ok := new(big.Int).SetString(snap.Unclaimed[i], 10)
			if !ok {
				return fmt.Errorf("bad unclaimed %q", snap.Unclaimed[i])
			}
			p.lifetime[i] = lt
			p.unclaimed[i] = uc
		}
		b.pools[snap.PID] = p
	}
	return nil
}
