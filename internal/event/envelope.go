package event

import (
	"time"
)

// EventType discriminator for event payloads
type EventType int32

const (
	EventTypeUnknown EventType = iota
	EventTypeDeposit
	EventTypeBorrow
	EventTypeRepay
	EventTypeWithdraw
	EventTypeLiquidate
	EventTypeAccrue
	EventTypeClaimRewards
	EventTypeFlashLoan
	EventTypePriceUpdate
	EventTypeRewardAccrual
	EventTypeRiskConfigUpdate
	EventTypeInterestRateUpdate
	EventTypeFlashLoanFeeUpdate
	EventTypeLiquidationPenaltyUpdate
	EventTypePoolRegistration
)

// EventEnvelope wraps every event in the log
type EventEnvelope struct {
	// Global monotonic sequence assigned by core
	Sequence int64

	// Stable idempotency key from upstream
	IdempotencyKey string

	// Event type discriminator
	EventType EventType

	// Asset context (nullable for global events)
	Asset *string

	// Versioned input timestamp (NOT wall-clock)
	Timestamp time.Time

	// Upstream sequence for ordering validation
	SourceSequence int64

	// JSON-encoded event-specific data
	Payload []byte

	// SHA-256 of state AFTER applying this event
	StateHash [32]byte

	// Previous event's state hash (chain integrity)
	PrevHash [32]byte
}

// Event is the interface all event payloads must implement
type Event interface {
	// IdempotencyKey returns the stable dedup key
	IdempotencyKey() string

	// EventType returns the discriminator
	EventType() EventType

	// Asset returns the asset context (nil for global events)
	Asset() *string

	// SourceSequence returns upstream ordering key
	SourceSequence() int64
}

func (et EventType) String() string {
	switch et {
	case EventTypeDeposit:
		return "Deposit"
	case EventTypeBorrow:
		return "Borrow"
	case EventTypeRepay:
		return "Repay"
	case EventTypeWithdraw:
		return "Withdraw"
	case EventTypeLiquidate:
		return "Liquidate"
	case EventTypeAccrue:
		return "Accrue"
	case EventTypeClaimRewards:
		return "ClaimRewards"
	case EventTypeFlashLoan:
		return "FlashLoan"
	case EventTypePriceUpdate:
		return "PriceUpdate"
	case EventTypeRewardAccrual:
		return "RewardAccrual"
	case EventTypeRiskConfigUpdate:
		return "RiskConfigUpdate"
	case EventTypeInterestRateUpdate:
		return "InterestRateUpdate"
	case EventTypeFlashLoanFeeUpdate:
		return "FlashLoanFeeUpdate"
	case EventTypeLiquidationPenaltyUpdate:
		return "LiquidationPenaltyUpdate"
	case EventTypePoolRegistration:
		return "PoolRegistration"
	default:
		return "Unknown"
	}
}
