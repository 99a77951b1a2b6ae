package event

import (
	"fmt"
	"time"
)

// PriceUpdate carries a published feed value for one asset. The dedup key
// is positional: one update per (asset, source sequence).
type PriceUpdate struct {
	AssetAddr string
	Value     string
	Decimals  uint8
	Timestamp time.Time
	Sequence  int64
}

func (p *PriceUpdate) IdempotencyKey() string {
	return fmt.Sprintf("price:%s:%d", p.AssetAddr, p.Sequence)
}

func (p *PriceUpdate) EventType() EventType  { return EventTypePriceUpdate }
func (p *PriceUpdate) Asset() *string        { return &p.AssetAddr }
func (p *PriceUpdate) SourceSequence() int64 { return p.Sequence }
