package core

import (
	"fmt"

	"LendingVault/internal/strategy"
	"LendingVault/internal/token"
	"LendingVault/internal/vault"
)

// SnapshotState holds the serializable in-memory state for restore. On warm
// restart the latest snapshot is loaded, then the event log is replayed
// from Sequence+1.
type SnapshotState struct {
	Sequence  int64     `json:"sequence"`
	StateHash [32]byte  `json:"state_hash"`

	Engine   vault.State                               `json:"engine"`
	Bank     token.State                               `json:"bank"`
	Pools    map[string][]strategy.PoolSnapshot        `json:"pools"`
	Gauges   map[string]strategy.GaugeVenueSnapshot    `json:"gauges"`
	Boosters map[string][]strategy.BoosterPoolSnapshot `json:"boosters"`

	SequenceState   map[string]int64 `json:"sequence_state"`
	IdempotencyKeys []string         `json:"idempotency_keys"`
}

// CreateSnapshotState captures the current in-memory state for persistence.
func (p *Processor) CreateSnapshotState() *SnapshotState {
	ds := p.exportDigestState()
	return &SnapshotState{
		Sequence:        p.sequence - 1, // Last processed sequence
		StateHash:       p.hasher.GetPrevHash(),
		Engine:          ds.Engine,
		Bank:            ds.Bank,
		Pools:           ds.Pools,
		Gauges:          ds.Gauges,
		Boosters:        ds.Boosters,
		SequenceState:   p.sequenceValidator.GetAllPartitions(),
		IdempotencyKeys: p.idempotency.lru.GetAllKeys(),
	}
}

// RestoreFromSnapshot restores the processor's in-memory state. Strategies,
// gauges and boosters must already be registered under the same names the
// snapshot was taken with.
func (p *Processor) RestoreFromSnapshot(snap *SnapshotState) error {
	if err := p.engine.ImportState(snap.Engine); err != nil {
		return fmt.Errorf("engine restore: %w", err)
	}
	if err := p.bank.ImportState(snap.Bank); err != nil {
		return fmt.Errorf("bank restore: %w", err)
	}
	for name, pools := range snap.Pools {
		strat, ok := p.strategies[name]
		if !ok {
			return fmt.Errorf("snapshot names unregistered strategy %q", name)
		}
		if err := strat.ImportPools(pools); err != nil {
			return fmt.Errorf("strategy %q restore: %w", name, err)
		}
	}
	for name, gaugeSnap := range snap.Gauges {
		gauge, ok := p.gauges[name]
		if !ok {
			return fmt.Errorf("snapshot names unregistered gauge %q", name)
		}
		if err := gauge.ImportState(gaugeSnap); err != nil {
			return fmt.Errorf("gauge %q restore: %w", name, err)
		}
	}
	for name, boosterSnap := range snap.Boosters {
		booster, ok := p.boosters[name]
		if !ok {
			return fmt.Errorf("snapshot names unregistered booster %q", name)
		}
		if err := booster.ImportState(boosterSnap); err != nil {
			return fmt.Errorf("booster %q restore: %w", name, err)
		}
	}
	for partition, nextSeq := range snap.SequenceState {
		p.sequenceValidator.RestorePartition(partition, nextSeq)
	}

	p.sequence = snap.Sequence + 1
	p.hasher.SetPrevHash(snap.StateHash)
	return nil
}

// WarmLRU loads recent idempotency keys into the LRU cache so replayed
// duplicates are caught without DB lookups.
func (p *Processor) WarmLRU(keys []string) {
	p.idempotency.lru.WarmFromKeys(keys)
}
