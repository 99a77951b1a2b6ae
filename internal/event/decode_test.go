package event_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"

	"LendingVault/internal/event"
)

// The event log stores json.Marshal of the typed events. Decode must invert
// that marshal exactly, or replay after a restart silently drops events.

func TestDecodeDepositRoundTrip(t *testing.T) {
	orig := &event.Deposit{
		OperationID: uuid.New(),
		Account:     "0x0000000000000000000000000000000000000c01",
		AssetAddr:   "0x0000000000000000000000000000000000000a01",
		Amount:      "1500000000000000000",
		Timestamp:   time.Unix(1_700_000_000, 0).UTC(),
		Sequence:    42,
	}
	payload, err := json.Marshal(orig)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	decoded, err := event.Decode(orig.EventType().String(), payload)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	got, ok := decoded.(*event.Deposit)
	if !ok {
		t.Fatalf("got %T, want *event.Deposit", decoded)
	}
	if got.OperationID != orig.OperationID {
		t.Errorf("operation id: got %s, want %s", got.OperationID, orig.OperationID)
	}
	if got.IdempotencyKey() != orig.IdempotencyKey() {
		t.Errorf("idempotency key: got %s, want %s", got.IdempotencyKey(), orig.IdempotencyKey())
	}
	if got.AssetAddr != orig.AssetAddr || got.Amount != orig.Amount {
		t.Errorf("got %+v, want %+v", got, orig)
	}
	if got.SourceSequence() != 42 {
		t.Errorf("source sequence: got %d, want 42", got.SourceSequence())
	}
}

func TestDecodePriceUpdateRoundTrip(t *testing.T) {
	orig := &event.PriceUpdate{
		AssetAddr: "0x0000000000000000000000000000000000aaaa01",
		Value:     "250000000000",
		Decimals:  8,
		Timestamp: time.Unix(1_700_000_100, 0).UTC(),
		Sequence:  7,
	}
	payload, err := json.Marshal(orig)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	decoded, err := event.Decode("PriceUpdate", payload)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	got, ok := decoded.(*event.PriceUpdate)
	if !ok {
		t.Fatalf("got %T, want *event.PriceUpdate", decoded)
	}
	if got.Value != orig.Value || got.Decimals != orig.Decimals || got.Sequence != orig.Sequence {
		t.Errorf("got %+v, want %+v", got, orig)
	}
	if got.IdempotencyKey() != orig.IdempotencyKey() {
		t.Errorf("idempotency key: got %s, want %s", got.IdempotencyKey(), orig.IdempotencyKey())
	}
}

func TestDecodeRewardAccrualRoundTrip(t *testing.T) {
	orig := &event.RewardAccrual{
		AccrualID: uuid.New(),
		Venue:     "gauge/bal-lp",
		AssetAddr: "0x0000000000000000000000000000000000000a01",
		PoolID:    38,
		Amounts:   []string{"300", "90"},
		Timestamp: time.Unix(1_700_000_200, 0).UTC(),
		Sequence:  9,
	}
	payload, err := json.Marshal(orig)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	decoded, err := event.Decode("RewardAccrual", payload)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	got, ok := decoded.(*event.RewardAccrual)
	if !ok {
		t.Fatalf("got %T, want *event.RewardAccrual", decoded)
	}
	if got.AccrualID != orig.AccrualID || got.PoolID != orig.PoolID {
		t.Errorf("got %+v, want %+v", got, orig)
	}
	if len(got.Amounts) != 2 || got.Amounts[0] != "300" || got.Amounts[1] != "90" {
		t.Errorf("amounts: got %v, want [300 90]", got.Amounts)
	}
}

func TestDecodeEveryEventType(t *testing.T) {
	events := []event.Event{
		&event.Deposit{OperationID: uuid.New()},
		&event.Borrow{OperationID: uuid.New()},
		&event.Repay{OperationID: uuid.New()},
		&event.Withdraw{OperationID: uuid.New()},
		&event.Liquidate{OperationID: uuid.New()},
		&event.Accrue{OperationID: uuid.New()},
		&event.ClaimRewards{OperationID: uuid.New()},
		&event.FlashLoan{OperationID: uuid.New()},
		&event.PriceUpdate{AssetAddr: "0x01", Sequence: 1},
		&event.RewardAccrual{AccrualID: uuid.New()},
		&event.RiskConfigUpdate{OperationID: uuid.New()},
		&event.InterestRateUpdate{OperationID: uuid.New()},
		&event.FlashLoanFeeUpdate{OperationID: uuid.New()},
		&event.LiquidationPenaltyUpdate{OperationID: uuid.New()},
		&event.PoolRegistration{OperationID: uuid.New()},
	}
	for _, orig := range events {
		name := orig.EventType().String()
		payload, err := json.Marshal(orig)
		if err != nil {
			t.Fatalf("%s marshal: %v", name, err)
		}
		decoded, err := event.Decode(name, payload)
		if err != nil {
			t.Fatalf("%s decode: %v", name, err)
		}
		if decoded.EventType() != orig.EventType() {
			t.Errorf("%s: decoded as %s", name, decoded.EventType())
		}
		if decoded.IdempotencyKey() != orig.IdempotencyKey() {
			t.Errorf("%s: idempotency key: got %s, want %s",
				name, decoded.IdempotencyKey(), orig.IdempotencyKey())
		}
	}
}

func TestDecodeUnknownType(t *testing.T) {
	if _, err := event.Decode("Margin", []byte(`{}`)); err == nil {
		t.Fatal("expected error for unknown event type")
	}
}
