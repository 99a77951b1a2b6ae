package vault

import (
	"fmt"
	"math/big"
	"sort"

	"github.com/ethereum/go-ethereum/common"
)

// Serializable engine state for snapshots and state hashing. Entries are
// emitted in deterministic order; big.Int values travel as decimal strings.

type State struct {
	Positions       []PositionState `json:"positions"`
	Risk            []RiskState     `json:"risk"`
	Params          Params          `json:"params"`
	GlobalDebtIndex string          `json:"global_debt_index"`
	LastAccrual     int64           `json:"last_accrual"`
	TotalBorrows    string          `json:"total_borrows"`
	TreasuryAccrued string          `json:"treasury_accrued"`
}

type PositionState struct {
	Asset             string `json:"asset"`
	Account           string `json:"account"`
	CollateralAmount  string `json:"collateral_amount"`
	BorrowAmount      string `json:"borrow_amount"`
	DebtIndexSnapshot string `json:"debt_index_snapshot"`
}

type RiskState struct {
	Asset  string     `json:"asset"`
	Config RiskConfig `json:"config"`
}

// ExportState captures the engine's full ledger state.
func (e *Engine) ExportState() State {
	st := State{
		Params:          e.params,
		GlobalDebtIndex: e.globalDebtIndex.String(),
		LastAccrual:     e.lastAccrual,
		TotalBorrows:    e.totalBorrows.String(),
		TreasuryAccrued: e.treasuryAccrued.String(),
	}
	for key, pos := range e.positions {
		st.Positions = append(st.Positions, PositionState{
			Asset:             key.Asset.Hex(),
			Account:           key.Account.Hex(),
			CollateralAmount:  pos.CollateralAmount.String(),
			BorrowAmount:      pos.BorrowAmount.String(),
			DebtIndexSnapshot: pos.DebtIndexSnapshot.String(),
		})
	}
	sort.Slice(st.Positions, func(i, j int) bool {
		if st.Positions[i].Asset != st.Positions[j].Asset {
			return st.Positions[i].Asset < st.Positions[j].Asset
		}
		return st.Positions[i].Account < st.Positions[j].Account
	})
	for asset, cfg := range e.risk {
		st.Risk = append(st.Risk, RiskState{Asset: asset.Hex(), Config: cfg})
	}
	sort.Slice(st.Risk, func(i, j int) bool { return st.Risk[i].Asset < st.Risk[j].Asset })
	return st
}

// ImportState replaces the engine's ledger state. Strategy registrations
// are wiring, not ledger state, and are left untouched.
func (e *Engine) ImportState(st State) error {
	index, ok := new(big.Int).SetString(st.GlobalDebtIndex, 10)
	if !ok {
		return fmt.Errorf("bad global debt index %q", st.GlobalDebtIndex)
	}
	totalBorrows, ok := new(big.Int).SetString(st.TotalBorrows, 10)
	if !ok {
		return fmt.Errorf("bad total borrows %q", st.TotalBorrows)
	}
	treasury, ok := new(big.Int).SetString(st.TreasuryAccrued, 10)
	if !ok {
		return fmt.Errorf("bad treasury accrued %q", st.TreasuryAccrued)
	}

	positions := make(map[PositionKey]*Position, len(st.Positions))
	for _, ps := range st.Positions {
		pos := newPosition()
		for _, pair := range []struct {
			dst *big.Int
			src string
		}{
			{pos.CollateralAmount, ps.CollateralAmount},
			{pos.BorrowAmount, ps.BorrowAmount},
			{pos.DebtIndexSnapshot, ps.DebtIndexSnapshot},
		} {
			if _, ok := pair.dst.SetString(pair.src, 10); !ok {
				return fmt.Errorf("bad position amount %q", pair.src)
			}
		}
		key := PositionKey{
			Asset:   common.HexToAddress(ps.Asset),
			Account: common.HexToAddress(ps.Account),
		}
		positions[key] = pos
	}

	risk := make(map[common.Address]RiskConfig, len(st.Risk))
	for _, rs := range st.Risk {
		risk[common.HexToAddress(rs.Asset)] = rs.Config
	}

	e.positions = positions
	e.risk = risk
	e.params = st.Params
	e.globalDebtIndex = index
	e.lastAccrual = st.LastAccrual
	e.totalBorrows = totalBorrows
	e.treasuryAccrued = treasury
	return nil
}
