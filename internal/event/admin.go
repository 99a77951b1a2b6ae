package event

import (
	"time"

	"github.com/google/uuid"
)

// Admin operations arrive on the admin subject and are gated to the
// configured admin account by the core.

type RiskConfigUpdate struct {
	OperationID             uuid.UUID
	Caller                  string
	AssetAddr               string
	LoanToValueBps          int64
	LiquidationThresholdBps int64
	Decimals                uint8
	Timestamp               time.Time
	Sequence                int64
}

func (r *RiskConfigUpdate) IdempotencyKey() string { return r.OperationID.String() }
func (r *RiskConfigUpdate) EventType() EventType   { return EventTypeRiskConfigUpdate }
func (r *RiskConfigUpdate) Asset() *string         { return &r.AssetAddr }
func (r *RiskConfigUpdate) SourceSequence() int64  { return r.Sequence }

type InterestRateUpdate struct {
	OperationID uuid.UUID
	Caller      string
	RateBps     int64
	Timestamp   time.Time
	Sequence    int64
}

func (i *InterestRateUpdate) IdempotencyKey() string { return i.OperationID.String() }
func (i *InterestRateUpdate) EventType() EventType   { return EventTypeInterestRateUpdate }
func (i *InterestRateUpdate) Asset() *string         { return nil }
func (i *InterestRateUpdate) SourceSequence() int64  { return i.Sequence }

type FlashLoanFeeUpdate struct {
	OperationID uuid.UUID
	Caller      string
	FeeBps      int64
	Timestamp   time.Time
	Sequence    int64
}

func (f *FlashLoanFeeUpdate) IdempotencyKey() string { return f.OperationID.String() }
func (f *FlashLoanFeeUpdate) EventType() EventType   { return EventTypeFlashLoanFeeUpdate }
func (f *FlashLoanFeeUpdate) Asset() *string         { return nil }
func (f *FlashLoanFeeUpdate) SourceSequence() int64  { return f.Sequence }

type LiquidationPenaltyUpdate struct {
	OperationID uuid.UUID
	Caller      string
	PenaltyBps  int64
	Timestamp   time.Time
	Sequence    int64
}

func (l *LiquidationPenaltyUpdate) IdempotencyKey() string { return l.OperationID.String() }
func (l *LiquidationPenaltyUpdate) EventType() EventType   { return EventTypeLiquidationPenaltyUpdate }
func (l *LiquidationPenaltyUpdate) Asset() *string         { return nil }
func (l *LiquidationPenaltyUpdate) SourceSequence() int64  { return l.Sequence }

// PoolRegistration binds an asset to a booster venue pool id.
type PoolRegistration struct {
	OperationID uuid.UUID
	Caller      string
	AssetAddr   string
	Venue       string
	PoolID      uint64
	Timestamp   time.Time
	Sequence    int64
}

func (p *PoolRegistration) IdempotencyKey() string { return p.OperationID.String() }
func (p *PoolRegistration) EventType() EventType   { return EventTypePoolRegistration }
func (p *PoolRegistration) Asset() *string         { return &p.AssetAddr }
func (p *PoolRegistration) SourceSequence() int64  { return p.Sequence }
