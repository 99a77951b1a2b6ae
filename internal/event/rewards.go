package event

import (
	"time"

	"github.com/google/uuid"
)

// ClaimRewards pays out an account's pending strategy rewards.
type ClaimRewards struct {
	OperationID uuid.UUID
	Account     string
	AssetAddr   string
	Timestamp   time.Time
	Sequence    int64
}

func (c *ClaimRewards) IdempotencyKey() string { return c.OperationID.String() }
func (c *ClaimRewards) EventType() EventType   { return EventTypeClaimRewards }
func (c *ClaimRewards) Asset() *string         { return &c.AssetAddr }
func (c *ClaimRewards) SourceSequence() int64  { return c.Sequence }

// RewardAccrual records reward tokens arriving at an external venue. Venue
// names the configured venue; booster venues carry a pool id and two
// amounts, gauges one.
type RewardAccrual struct {
	AccrualID uuid.UUID
	Venue     string
	AssetAddr string
	PoolID    uint64
	Amounts   []string
	Timestamp time.Time
	Sequence  int64
}

func (r *RewardAccrual) IdempotencyKey() string { return r.AccrualID.String() }
func (r *RewardAccrual) EventType() EventType   { return EventTypeRewardAccrual }
func (r *RewardAccrual) Asset() *string         { return &r.AssetAddr }
func (r *RewardAccrual) SourceSequence() int64  { return r.Sequence }
