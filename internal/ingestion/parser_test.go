package ingestion_test

import (
	"encoding/json"
	"testing"
	"time"

	"LendingVault/internal/event"
	"LendingVault/internal/ingestion"
)

func rawFromJSON(t *testing.T, v interface{}) ingestion.RawEvent {
	t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return ingestion.RawEvent{
		Subject:   "test",
		Data:      data,
		Timestamp: time.Now(),
		AckFunc:   func() {},
		NakFunc:   func() {},
	}
}

func TestParseDeposit(t *testing.T) {
	payload := map[string]interface{}{
		"operation_id": "550e8400-e29b-41d4-a716-446655440000",
		"account":      "0x1111111111111111111111111111111111111111",
		"asset":        "0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa",
		"amount":       "4000000000000000000",
		"sequence":     int64(1),
		"timestamp_us": int64(1700000000000000),
	}

	raw := rawFromJSON(t, payload)
	evt, err := ingestion.ParseRawEvent(raw, "Deposit")
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}

	d, ok := evt.(*event.Deposit)
	if !ok {
		t.Fatalf("expected *event.Deposit, got %T", evt)
	}

	if d.Account != "0x1111111111111111111111111111111111111111" {
		t.Errorf("account: got %s", d.Account)
	}
	if d.AssetAddr != "0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa" {
		t.Errorf("asset: got %s", d.AssetAddr)
	}
	if d.Amount != "4000000000000000000" {
		t.Errorf("amount: got %s, want 4000000000000000000", d.Amount)
	}
	if d.Sequence != 1 {
		t.Errorf("sequence: got %d, want 1", d.Sequence)
	}
	if d.Timestamp.UnixMicro() != 1700000000000000 {
		t.Errorf("timestamp: got %d, want 1700000000000000", d.Timestamp.UnixMicro())
	}
	if d.EventType() != event.EventTypeDeposit {
		t.Errorf("event type: got %v, want Deposit", d.EventType())
	}
}

func TestParseLiquidate(t *testing.T) {
	payload := map[string]interface{}{
		"operation_id": "550e8400-e29b-41d4-a716-446655440000",
		"liquidator":   "0x2222222222222222222222222222222222222222",
		"borrower":     "0x1111111111111111111111111111111111111111",
		"asset":        "0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa",
		"repay_amount": "500000000000000000",
		"sequence":     int64(7),
		"timestamp_us": int64(1700000000000000),
	}

	raw := rawFromJSON(t, payload)
	evt, err := ingestion.ParseRawEvent(raw, "Liquidate")
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}

	lq, ok := evt.(*event.Liquidate)
	if !ok {
		t.Fatalf("expected *event.Liquidate, got %T", evt)
	}

	if lq.Liquidator != "0x2222222222222222222222222222222222222222" {
		t.Errorf("liquidator: got %s", lq.Liquidator)
	}
	if lq.Borrower != "0x1111111111111111111111111111111111111111" {
		t.Errorf("borrower: got %s", lq.Borrower)
	}
	if lq.RepayAmount != "500000000000000000" {
		t.Errorf("repay_amount: got %s, want 500000000000000000", lq.RepayAmount)
	}
	if lq.Sequence != 7 {
		t.Errorf("sequence: got %d, want 7", lq.Sequence)
	}
}

func TestParsePriceUpdate(t *testing.T) {
	payload := map[string]interface{}{
		"asset":              "0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa",
		"value":              "200000000",
		"decimals":           8,
		"price_sequence":     int64(100),
		"price_timestamp_us": int64(1700000000000000),
	}

	raw := rawFromJSON(t, payload)
	evt, err := ingestion.ParseRawEvent(raw, "PriceUpdate")
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}

	pu, ok := evt.(*event.PriceUpdate)
	if !ok {
		t.Fatalf("expected *event.PriceUpdate, got %T", evt)
	}

	if pu.Value != "200000000" {
		t.Errorf("value: got %s, want 200000000", pu.Value)
	}
	if pu.Decimals != 8 {
		t.Errorf("decimals: got %d, want 8", pu.Decimals)
	}
	if pu.Sequence != 100 {
		t.Errorf("price_sequence: got %d, want 100", pu.Sequence)
	}
}

func TestParsePriceUpdateMissingAsset_Fails(t *testing.T) {
	payload := map[string]interface{}{
		"value":          "200000000",
		"decimals":       8,
		"price_sequence": int64(1),
	}

	raw := rawFromJSON(t, payload)
	if _, err := ingestion.ParseRawEvent(raw, "PriceUpdate"); err == nil {
		t.Fatal("expected error for price update without asset")
	}
}

func TestParseRewardAccrual(t *testing.T) {
	payload := map[string]interface{}{
		"accrual_id":   "550e8400-e29b-41d4-a716-446655440000",
		"venue":        "booster/main",
		"asset":        "0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa",
		"pool_id":      uint64(3),
		"amounts":      []string{"1000", "2000"},
		"sequence":     int64(12),
		"timestamp_us": int64(1700000000000000),
	}

	raw := rawFromJSON(t, payload)
	evt, err := ingestion.ParseRawEvent(raw, "RewardAccrual")
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}

	ra, ok := evt.(*event.RewardAccrual)
	if !ok {
		t.Fatalf("expected *event.RewardAccrual, got %T", evt)
	}

	if ra.Venue != "booster/main" {
		t.Errorf("venue: got %s, want booster/main", ra.Venue)
	}
	if ra.PoolID != 3 {
		t.Errorf("pool_id: got %d, want 3", ra.PoolID)
	}
	if len(ra.Amounts) != 2 || ra.Amounts[0] != "1000" || ra.Amounts[1] != "2000" {
		t.Errorf("amounts: got %v, want [1000 2000]", ra.Amounts)
	}
}

func TestParseRewardAccrualNoAmounts_Fails(t *testing.T) {
	payload := map[string]interface{}{
		"accrual_id":   "550e8400-e29b-41d4-a716-446655440000",
		"venue":        "gauge/main",
		"asset":        "0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa",
		"amounts":      []string{},
		"sequence":     int64(1),
		"timestamp_us": int64(1700000000000000),
	}

	raw := rawFromJSON(t, payload)
	if _, err := ingestion.ParseRawEvent(raw, "RewardAccrual"); err == nil {
		t.Fatal("expected error for reward accrual without amounts")
	}
}

func TestParseFlashLoan(t *testing.T) {
	payload := map[string]interface{}{
		"operation_id": "550e8400-e29b-41d4-a716-446655440000",
		"receiver":     "arb-bot",
		"recipient":    "0x3333333333333333333333333333333333333333",
		"amount":       "50000000000000000000",
		"sequence":     int64(9),
		"timestamp_us": int64(1700000000000000),
	}

	raw := rawFromJSON(t, payload)
	evt, err := ingestion.ParseRawEvent(raw, "FlashLoan")
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}

	fl, ok := evt.(*event.FlashLoan)
	if !ok {
		t.Fatalf("expected *event.FlashLoan, got %T", evt)
	}

	if fl.Receiver != "arb-bot" {
		t.Errorf("receiver: got %s, want arb-bot", fl.Receiver)
	}
	if fl.Amount != "50000000000000000000" {
		t.Errorf("amount: got %s, want 50000000000000000000", fl.Amount)
	}
	if fl.Asset() != nil {
		t.Errorf("flash loan should be global scope, got asset %v", *fl.Asset())
	}
}

func TestParseRiskConfigUpdate(t *testing.T) {
	payload := map[string]interface{}{
		"operation_id":              "550e8400-e29b-41d4-a716-446655440000",
		"caller":                    "0x9999999999999999999999999999999999999999",
		"asset":                     "0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa",
		"loan_to_value_bps":         int64(7500),
		"liquidation_threshold_bps": int64(8000),
		"decimals":                  18,
		"sequence":                  int64(1),
		"timestamp_us":              int64(1700000000000000),
	}

	raw := rawFromJSON(t, payload)
	evt, err := ingestion.ParseRawEvent(raw, "RiskConfigUpdate")
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}

	rc, ok := evt.(*event.RiskConfigUpdate)
	if !ok {
		t.Fatalf("expected *event.RiskConfigUpdate, got %T", evt)
	}

	if rc.LoanToValueBps != 7500 {
		t.Errorf("loan_to_value_bps: got %d, want 7500", rc.LoanToValueBps)
	}
	if rc.LiquidationThresholdBps != 8000 {
		t.Errorf("liquidation_threshold_bps: got %d, want 8000", rc.LiquidationThresholdBps)
	}
	if rc.Decimals != 18 {
		t.Errorf("decimals: got %d, want 18", rc.Decimals)
	}
}

func TestParsePoolRegistration(t *testing.T) {
	payload := map[string]interface{}{
		"operation_id": "550e8400-e29b-41d4-a716-446655440000",
		"caller":       "0x9999999999999999999999999999999999999999",
		"asset":        "0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa",
		"venue":        "booster/main",
		"pool_id":      uint64(5),
		"sequence":     int64(2),
		"timestamp_us": int64(1700000000000000),
	}

	raw := rawFromJSON(t, payload)
	evt, err := ingestion.ParseRawEvent(raw, "PoolRegistration")
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}

	pr, ok := evt.(*event.PoolRegistration)
	if !ok {
		t.Fatalf("expected *event.PoolRegistration, got %T", evt)
	}

	if pr.Venue != "booster/main" {
		t.Errorf("venue: got %s, want booster/main", pr.Venue)
	}
	if pr.PoolID != 5 {
		t.Errorf("pool_id: got %d, want 5", pr.PoolID)
	}
}

func TestParseUnknownEventType_Fails(t *testing.T) {
	raw := ingestion.RawEvent{Data: []byte(`{}`)}
	_, err := ingestion.ParseRawEvent(raw, "NonExistentType")
	if err == nil {
		t.Fatal("expected error for unknown event type")
	}
}

func TestParseInvalidJSON_Fails(t *testing.T) {
	raw := ingestion.RawEvent{Data: []byte(`{invalid json`)}
	_, err := ingestion.ParseRawEvent(raw, "Deposit")
	if err == nil {
		t.Fatal("expected error for invalid JSON")
	}
}

func TestParseInvalidUUID_Fails(t *testing.T) {
	payload := map[string]interface{}{
		"operation_id": "not-a-uuid",
		"account":      "0x1111111111111111111111111111111111111111",
		"asset":        "0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa",
		"amount":       "1",
		"sequence":     int64(0),
		"timestamp_us": int64(0),
	}

	raw := rawFromJSON(t, payload)
	_, err := ingestion.ParseRawEvent(raw, "Deposit")
	if err == nil {
		t.Fatal("expected error for invalid UUID")
	}
}
