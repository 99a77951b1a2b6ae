package token

import (
	"fmt"
	"math/big"
	"sort"

	"github.com/ethereum/go-ethereum/common"
)

// Serializable bank state for snapshots; amounts travel as decimal strings.

type State struct {
	Balances []BalanceState `json:"balances"`
	Supply   []SupplyState  `json:"supply"`
}

type BalanceState struct {
	Token  string `json:"token"`
	Holder string `json:"holder"`
	Amount string `json:"amount"`
}

type SupplyState struct {
	Token  string `json:"token"`
	Amount string `json:"amount"`
}

// ExportState captures all non-zero balances and supplies in deterministic
// order.
func (b *Bank) ExportState() State {
	st := State{}
	for _, entry := range b.SortedBalances() {
		st.Balances = append(st.Balances, BalanceState{
			Token:  entry.Key.Token.Hex(),
			Holder: entry.Key.Holder.Hex(),
			Amount: entry.Amount.String(),
		})
	}
	for tok, amount := range b.supply {
		if amount.Sign() == 0 {
			continue
		}
		st.Supply = append(st.Supply, SupplyState{Token: tok.Hex(), Amount: amount.String()})
	}
	sort.Slice(st.Supply, func(i, j int) bool { return st.Supply[i].Token < st.Supply[j].Token })
	return st
}

// ImportState replaces the bank's state.
func (b *Bank) ImportState(st State) error {
	balances := make(map[BalanceKey]*big.Int, len(st.Balances))
	for _, bs := range st.Balances {
		amount, ok := new(big.Int).SetString(bs.Amount, 10)
		if !ok {
			return fmt.Errorf("bad balance amount %q", bs.Amount)
		}
		key := BalanceKey{
			Token:  common.HexToAddress(bs.Token),
			Holder: common.HexToAddress(bs.Holder),
		}
		balances[key] = amount
	}
	supply := make(map[common.Address]*big.Int, len(st.Supply))
	for _, ss := range st.Supply {
		amount, ok := new(big.Int).SetString(ss.Amount, 10)
		if !ok {
			return fmt.Errorf("bad supply amount %q", ss.Amount)
		}
		supply[common.HexToAddress(ss.Token)] = amount
	}
	b.balances = balances
	b.supply = supply
	return nil
}
