package oracle

import (
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
)

// WeightedPoolState is a mutable in-process WeightedPoolSource. The token
// list is fixed at construction; balances and supply can be refreshed as
// pool observations arrive.
type WeightedPoolState struct {
	mu       sync.RWMutex
	tokens   []common.Address
	balances []*big.Int
	supply   *big.Int
}

func NewWeightedPoolState(tokens []common.Address, balances []*big.Int, supply *big.Int) (*WeightedPoolState, error) {
	if len(tokens) != len(balances) {
		return nil, ErrArrayLengthMismatch
	}
	w := &WeightedPoolState{
		tokens:   append([]common.Address(nil), tokens...),
		balances: make([]*big.Int, len(balances)),
		supply:   new(big.Int).Set(supply),
	}
	for i, b := range balances {
		w.balances[i] = new(big.Int).Set(b)
	}
	return w, nil
}

// SetComposition replaces the pool's balances and LP supply.
func (w *WeightedPoolState) SetComposition(balances []*big.Int, supply *big.Int) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if len(balances) != len(w.tokens) {
		return fmt.Errorf("%w: %d balances for %d tokens", ErrArrayLengthMismatch, len(balances), len(w.tokens))
	}
	for i, b := range balances {
		w.balances[i] = new(big.Int).Set(b)
	}
	w.supply = new(big.Int).Set(supply)
	return nil
}

func (w *WeightedPoolState) Tokens() []common.Address {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return append([]common.Address(nil), w.tokens...)
}

func (w *WeightedPoolState) Balances() []*big.Int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	out := make([]*big.Int, len(w.balances))
	for i, b := range w.balances {
		out[i] = new(big.Int).Set(b)
	}
	return out
}

func (w *WeightedPoolState) TotalSupply() *big.Int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return new(big.Int).Set(w.supply)
}

// StableSwapState is a mutable in-process StableSwapSource. Coins are fixed
// at construction; the virtual price can be refreshed.
type StableSwapState struct {
	mu           sync.RWMutex
	coins        []common.Address
	virtualPrice *big.Int
}

func NewStableSwapState(coins []common.Address, virtualPrice *big.Int) *StableSwapState {
	return &StableSwapState{
		coins:        append([]common.Address(nil), coins...),
		virtualPrice: new(big.Int).Set(virtualPrice),
	}
}

// SetVirtualPrice replaces the pool's virtual price.
func (s *StableSwapState) SetVirtualPrice(v *big.Int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.virtualPrice = new(big.Int).Set(v)
}

func (s *StableSwapState) Coins() []common.Address {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]common.Address(nil), s.coins...)
}

func (s *StableSwapState) VirtualPrice() *big.Int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return new(big.Int).Set(s.virtualPrice)
}
