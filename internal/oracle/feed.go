package oracle

import (
	"math/big"
	"sync"
	"time"
)

// PriceFeed is the consumed price-source interface: latest observed value
// plus the decimals that value is expressed in.
type PriceFeed interface {
	LatestPrice() (value *big.Int, decimals uint8, ok bool)
}

// Feed is a mutable in-process PriceFeed fed by the ingestion layer.
// Writes come from the NATS subscriber goroutine, reads from the core loop.
type Feed struct {
	mu        sync.RWMutex
	value     *big.Int
	decimals  uint8
	updatedAt time.Time
}

func NewFeed(decimals uint8) *Feed {
	return &Feed{decimals: decimals}
}

// Update replaces the feed's latest value.
func (f *Feed) Update(value *big.Int, at time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.value = new(big.Int).Set(value)
	f.updatedAt = at
}

// LatestPrice reports the last published value; ok is false until the first
// update arrives.
func (f *Feed) LatestPrice() (*big.Int, uint8, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if f.value == nil {
		return nil, f.decimals, false
	}
	return new(big.Int).Set(f.value), f.decimals, true
}

// UpdatedAt returns the timestamp of the last update.
func (f *Feed) UpdatedAt() time.Time {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.updatedAt
}
