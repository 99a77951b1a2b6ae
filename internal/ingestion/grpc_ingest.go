package ingestion

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/google/uuid"

	"LendingVault/internal/event"
)

// GRPCIngestService provides admin/manual event injection via the RPC
// surface. It is for operator actions and backfills, not high-throughput
// ingestion (use NATS for that). Injected events use the wall-clock
// microsecond timestamp as their source sequence.
type GRPCIngestService struct {
	eventChan chan<- event.Event
}

func NewGRPCIngestService(eventChan chan<- event.Event) *GRPCIngestService {
	return &GRPCIngestService{eventChan: eventChan}
}

func positiveAmount(amount string) error {
	v, ok := new(big.Int).SetString(amount, 10)
	if !ok {
		return fmt.Errorf("amount must be a decimal integer")
	}
	if v.Sign() <= 0 {
		return fmt.Errorf("amount must be positive")
	}
	return nil
}

func (s *GRPCIngestService) send(ctx context.Context, evt event.Event) error {
	select {
	case s.eventChan <- evt:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// InjectDeposit manually injects a Deposit event.
func (s *GRPCIngestService) InjectDeposit(
	ctx context.Context,
	account string,
	asset string,
	amount string,
) error {
	if err := positiveAmount(amount); err != nil {
		return err
	}

	now := time.Now()
	evt := &event.Deposit{
		OperationID: uuid.New(),
		Account:     account,
		AssetAddr:   asset,
		Amount:      amount,
		Timestamp:   now,
		Sequence:    now.UnixMicro(),
	}
	return s.send(ctx, evt)
}

// InjectAccrue manually injects an Accrue event to realize pending
// treasury interest.
func (s *GRPCIngestService) InjectAccrue(ctx context.Context) error {
	now := time.Now()
	evt := &event.Accrue{
		OperationID: uuid.New(),
		Timestamp:   now,
		Sequence:    now.UnixMicro(),
	}
	return s.send(ctx, evt)
}

// InjectPrice manually injects a PriceUpdate event.
func (s *GRPCIngestService) InjectPrice(
	ctx context.Context,
	asset string,
	value string,
	decimals uint8,
	priceSequence int64,
) error {
	if err := positiveAmount(value); err != nil {
		return fmt.Errorf("price %w", err)
	}

	evt := &event.PriceUpdate{
		AssetAddr: asset,
		Value:     value,
		Decimals:  decimals,
		Timestamp: time.Now(),
		Sequence:  priceSequence,
	}
	return s.send(ctx, evt)
}

// InjectRiskConfig manually injects a RiskConfigUpdate event. The core
// still gates the caller against the configured admin account.
func (s *GRPCIngestService) InjectRiskConfig(
	ctx context.Context,
	caller string,
	asset string,
	loanToValueBps int64,
	liquidationThresholdBps int64,
	decimals uint8,
) error {
	now := time.Now()
	evt := &event.RiskConfigUpdate{
		OperationID:             uuid.New(),
		Caller:                  caller,
		AssetAddr:               asset,
		LoanToValueBps:          loanToValueBps,
		LiquidationThresholdBps: liquidationThresholdBps,
		Decimals:                decimals,
		Timestamp:               now,
		Sequence:                now.UnixMicro(),
	}
	return s.send(ctx, evt)
}

// InjectInterestRate manually injects an InterestRateUpdate event.
func (s *GRPCIngestService) InjectInterestRate(
	ctx context.Context,
	caller string,
	rateBps int64,
) error {
	now := time.Now()
	evt := &event.InterestRateUpdate{
		OperationID: uuid.New(),
		Caller:      caller,
		RateBps:     rateBps,
		Timestamp:   now,
		Sequence:    now.UnixMicro(),
	}
	return s.send(ctx, evt)
}

// InjectFlashLoanFee manually injects a FlashLoanFeeUpdate event.
func (s *GRPCIngestService) InjectFlashLoanFee(
	ctx context.Context,
	caller string,
	feeBps int64,
) error {
	now := time.Now()
	evt := &event.FlashLoanFeeUpdate{
		OperationID: uuid.New(),
		Caller:      caller,
		FeeBps:      feeBps,
		Timestamp:   now,
		Sequence:    now.UnixMicro(),
	}
	return s.send(ctx, evt)
}

// InjectLiquidationPenalty manually injects a LiquidationPenaltyUpdate event.
func (s *GRPCIngestService) InjectLiquidationPenalty(
	ctx context.Context,
	caller string,
	penaltyBps int64,
) error {
	now := time.Now()
	evt := &event.LiquidationPenaltyUpdate{
		OperationID: uuid.New(),
		Caller:      caller,
		PenaltyBps:  penaltyBps,
		Timestamp:   now,
		Sequence:    now.UnixMicro(),
	}
	return s.send(ctx, evt)
}

// InjectPoolRegistration manually injects a PoolRegistration event.
func (s *GRPCIngestService) InjectPoolRegistration(
	ctx context.Context,
	caller string,
	asset string,
	venue string,
	poolID uint64,
) error {
	now := time.Now()
	evt := &event.PoolRegistration{
		OperationID: uuid.New(),
		Caller:      caller,
		AssetAddr:   asset,
		Venue:       venue,
		PoolID:      poolID,
		Timestamp:   now,
		Sequence:    now.UnixMicro(),
	}
	return s.send(ctx, evt)
}
