package token

import (
	"errors"
	"fmt"
	"math/big"
	"sort"

	"github.com/ethereum/go-ethereum/common"
)

var (
	ErrInsufficientBalance = errors.New("insufficient token balance")
	ErrNegativeAmount      = errors.New("negative token amount")
)

// Bank maintains in-memory token balances for every holder the engine knows
// about: users, the vault, the treasury and external yield venues. It is the
// single source of truth for "who holds what" inside the core; the flash-loan
// path relies on Snapshot/Restore for rollback.
type Bank struct {
	balances map[BalanceKey]*big.Int
	supply   map[common.Address]*big.Int
}

func NewBank() *Bank {
	return &Bank{
		balances: make(map[BalanceKey]*big.Int),
		supply:   make(map[common.Address]*big.Int),
	}
}

// BalanceOf returns a copy of holder's balance of tok.
func (b *Bank) BalanceOf(tok, holder common.Address) *big.Int {
	if bal, ok := b.balances[BalanceKey{Token: tok, Holder: holder}]; ok {
		return new(big.Int).Set(bal)
	}
	return new(big.Int)
}

// TotalSupply returns a copy of tok's minted supply.
func (b *Bank) TotalSupply(tok common.Address) *big.Int {
	if s, ok := b.supply[tok]; ok {
		return new(big.Int).Set(s)
	}
	return new(big.Int)
}

// Mint credits amount of tok to holder and grows total supply.
func (b *Bank) Mint(tok, holder common.Address, amount *big.Int) error {
	if amount.Sign() < 0 {
		return ErrNegativeAmount
	}
	b.credit(tok, holder, amount)
	s, ok := b.supply[tok]
	if !ok {
		s = new(big.Int)
		b.supply[tok] = s
	}
	s.Add(s, amount)
	return nil
}

// Burn debits amount of tok from holder and shrinks total supply.
func (b *Bank) Burn(tok, holder common.Address, amount *big.Int) error {
	if amount.Sign() < 0 {
		return ErrNegativeAmount
	}
	if err := b.debit(tok, holder, amount); err != nil {
		return err
	}
	s := b.supply[tok]
	s.Sub(s, amount)
	return nil
}

// Transfer moves amount of tok from one holder to another.
func (b *Bank) Transfer(tok, from, to common.Address, amount *big.Int) error {
	if amount.Sign() < 0 {
		return ErrNegativeAmount
	}
	if err := b.debit(tok, from, amount); err != nil {
		return err
	}
	b.credit(tok, to, amount)
	return nil
}

func (b *Bank) credit(tok, holder common.Address, amount *big.Int) {
	key := BalanceKey{Token: tok, Holder: holder}
	bal, ok := b.balances[key]
	if !ok {
		bal = new(big.Int)
		b.balances[key] = bal
	}
	bal.Add(bal, amount)
}

func (b *Bank) debit(tok, holder common.Address, amount *big.Int) error {
	key := BalanceKey{Token: tok, Holder: holder}
	bal, ok := b.balances[key]
	if !ok || bal.Cmp(amount) < 0 {
		have := new(big.Int)
		if ok {
			have = bal
		}
		return fmt.Errorf("%w: holder %s token %s have=%s need=%s",
			ErrInsufficientBalance, holder.Hex(), tok.Hex(), have, amount)
	}
	bal.Sub(bal, amount)
	return nil
}

// Snapshot returns a deep copy of all balances and supplies.
func (b *Bank) Snapshot() *BankSnapshot {
	snap := &BankSnapshot{
		Balances: make(map[BalanceKey]*big.Int, len(b.balances)),
		Supply:   make(map[common.Address]*big.Int, len(b.supply)),
	}
	for k, v := range b.balances {
		snap.Balances[k] = new(big.Int).Set(v)
	}
	for k, v := range b.supply {
		snap.Supply[k] = new(big.Int).Set(v)
	}
	return snap
}

// Restore replaces the bank's state with a previously taken snapshot.
func (b *Bank) Restore(snap *BankSnapshot) {
	b.balances = make(map[BalanceKey]*big.Int, len(snap.Balances))
	b.supply = make(map[common.Address]*big.Int, len(snap.Supply))
	for k, v := range snap.Balances {
		b.balances[k] = new(big.Int).Set(v)
	}
	for k, v := range snap.Supply {
		b.supply[k] = new(big.Int).Set(v)
	}
}

// BankSnapshot is a point-in-time copy of bank state.
type BankSnapshot struct {
	Balances map[BalanceKey]*big.Int
	Supply   map[common.Address]*big.Int
}

// SortedBalances returns all non-zero balances in deterministic key order,
// for state hashing and snapshot serialization.
func (b *Bank) SortedBalances() []BalanceEntry {
	entries := make([]BalanceEntry, 0, len(b.balances))
	for k, v := range b.balances {
		if v.Sign() == 0 {
			continue
		}
		entries = append(entries, BalanceEntry{Key: k, Amount: new(big.Int).Set(v)})
	}
	sort.Slice(entries, func(i, j int) bool {
		ci := entries[i].Key
		cj := entries[j].Key
		if cmp := compareAddr(ci.Token, cj.Token); cmp != 0 {
			return cmp < 0
		}
		return compareAddr(ci.Holder, cj.Holder) < 0
	})
	return entries
}

type BalanceEntry struct {
	Key    BalanceKey
	Amount *big.Int
}

func compareAddr(a, b common.Address) int {
	for i := range a {
		if a[i] != b[i] {
			if a[i] < b[i] {
				return -1
			}
			return 1
		}
	}
	return 0
}
