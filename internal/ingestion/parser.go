package ingestion

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"LendingVault/internal/event"
)

// ParseRawEvent converts a raw NATS message into a typed event for the core.
// Returns an error for malformed payloads; the caller should NAK or
// dead-letter those instead of feeding them to the core.
func ParseRawEvent(raw RawEvent, eventType string) (event.Event, error) {
	switch eventType {
	case "Deposit":
		return parseDeposit(raw.Data)
	case "Borrow":
		return parseBorrow(raw.Data)
	case "Repay":
		return parseRepay(raw.Data)
	case "Withdraw":
		return parseWithdraw(raw.Data)
	case "Liquidate":
		return parseLiquidate(raw.Data)
	case "Accrue":
		return parseAccrue(raw.Data)
	case "ClaimRewards":
		return parseClaimRewards(raw.Data)
	case "FlashLoan":
		return parseFlashLoan(raw.Data)
	case "PriceUpdate":
		return parsePriceUpdate(raw.Data)
	case "RewardAccrual":
		return parseRewardAccrual(raw.Data)
	case "RiskConfigUpdate":
		return parseRiskConfigUpdate(raw.Data)
	case "InterestRateUpdate":
		return parseInterestRateUpdate(raw.Data)
	case "FlashLoanFeeUpdate":
		return parseFlashLoanFeeUpdate(raw.Data)
	case "LiquidationPenaltyUpdate":
		return parseLiquidationPenaltyUpdate(raw.Data)
	case "PoolRegistration":
		return parsePoolRegistration(raw.Data)
	default:
		return nil, fmt.Errorf("unknown event type: %s", eventType)
	}
}

// Wire formats. Amounts are decimal strings in base units, addresses are
// 0x-hex, timestamps are microseconds since epoch.

type ledgerOpJSON struct {
	OperationID string `json:"operation_id"`
	Account     string `json:"account"`
	Asset       string `json:"asset"`
	Amount      string `json:"amount"`
	Sequence    int64  `json:"sequence"`
	TimestampUs int64  `json:"timestamp_us"`
}

func parseLedgerOp(data []byte, what string) (*ledgerOpJSON, uuid.UUID, error) {
	var w ledgerOpJSON
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, uuid.Nil, fmt.Errorf("unmarshal %s: %w", what, err)
	}
	opID, err := uuid.Parse(w.OperationID)
	if err != nil {
		return nil, uuid.Nil, fmt.Errorf("invalid operation_id: %w", err)
	}
	return &w, opID, nil
}

func parseDeposit(data []byte) (event.Event, error) {
	w, opID, err := parseLedgerOp(data, "deposit")
	if err != nil {
		return nil, err
	}
	return &event.Deposit{
		OperationID: opID,
		Account:     w.Account,
		AssetAddr:   w.Asset,
		Amount:      w.Amount,
		Timestamp:   time.UnixMicro(w.TimestampUs),
		Sequence:    w.Sequence,
	}, nil
}

func parseBorrow(data []byte) (event.Event, error) {
	w, opID, err := parseLedgerOp(data, "borrow")
	if err != nil {
		return nil, err
	}
	return &event.Borrow{
		OperationID: opID,
		Account:     w.Account,
		AssetAddr:   w.Asset,
		Amount:      w.Amount,
		Timestamp:   time.UnixMicro(w.TimestampUs),
		Sequence:    w.Sequence,
	}, nil
}

func parseRepay(data []byte) (event.Event, error) {
	w, opID, err := parseLedgerOp(data, "repay")
	if err != nil {
		return nil, err
	}
	return &event.Repay{
		OperationID: opID,
		Account:     w.Account,
		AssetAddr:   w.Asset,
		Amount:      w.Amount,
		Timestamp:   time.UnixMicro(w.TimestampUs),
		Sequence:    w.Sequence,
	}, nil
}

func parseWithdraw(data []byte) (event.Event, error) {
	w, opID, err := parseLedgerOp(data, "withdraw")
	if err != nil {
		return nil, err
	}
	return &event.Withdraw{
		OperationID: opID,
		Account:     w.Account,
		AssetAddr:   w.Asset,
		Amount:      w.Amount,
		Timestamp:   time.UnixMicro(w.TimestampUs),
		Sequence:    w.Sequence,
	}, nil
}

func parseLiquidate(data []byte) (event.Event, error) {
	var w struct {
		OperationID string `json:"operation_id"`
		Liquidator  string `json:"liquidator"`
		Borrower    string `json:"borrower"`
		Asset       string `json:"asset"`
		RepayAmount string `json:"repay_amount"`
		Sequence    int64  `json:"sequence"`
		TimestampUs int64  `json:"timestamp_us"`
	}
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("unmarshal liquidate: %w", err)
	}
	opID, err := uuid.Parse(w.OperationID)
	if err != nil {
		return nil, fmt.Errorf("invalid operation_id: %w", err)
	}
	return &event.Liquidate{
		OperationID: opID,
		Liquidator:  w.Liquidator,
		Borrower:    w.Borrower,
		AssetAddr:   w.Asset,
		RepayAmount: w.RepayAmount,
		Timestamp:   time.UnixMicro(w.TimestampUs),
		Sequence:    w.Sequence,
	}, nil
}

func parseAccrue(data []byte) (event.Event, error) {
	var w struct {
		OperationID string `json:"operation_id"`
		Sequence    int64  `json:"sequence"`
		TimestampUs int64  `json:"timestamp_us"`
	}
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("unmarshal accrue: %w", err)
	}
	opID, err := uuid.Parse(w.OperationID)
	if err != nil {
		return nil, fmt.Errorf("invalid operation_id: %w", err)
	}
	return &event.Accrue{
		OperationID: opID,
		Timestamp:   time.UnixMicro(w.TimestampUs),
		Sequence:    w.Sequence,
	}, nil
}

func parseClaimRewards(data []byte) (event.Event, error) {
	var w struct {
		OperationID string `json:"operation_id"`
		Account     string `json:"account"`
		Asset       string `json:"asset"`
		Sequence    int64  `json:"sequence"`
		TimestampUs int64  `json:"timestamp_us"`
	}
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("unmarshal claim: %w", err)
	}
	opID, err := uuid.Parse(w.OperationID)
	if err != nil {
		return nil, fmt.Errorf("invalid operation_id: %w", err)
	}
	return &event.ClaimRewards{
		OperationID: opID,
		Account:     w.Account,
		AssetAddr:   w.Asset,
		Timestamp:   time.UnixMicro(w.TimestampUs),
		Sequence:    w.Sequence,
	}, nil
}

func parseFlashLoan(data []byte) (event.Event, error) {
	var w struct {
		OperationID string `json:"operation_id"`
		Receiver    string `json:"receiver"`
		Recipient   string `json:"recipient"`
		Amount      string `json:"amount"`
		Sequence    int64  `json:"sequence"`
		TimestampUs int64  `json:"timestamp_us"`
	}
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("unmarshal flashloan: %w", err)
	}
	opID, err := uuid.Parse(w.OperationID)
	if err != nil {
		return nil, fmt.Errorf("invalid operation_id: %w", err)
	}
	return &event.FlashLoan{
		OperationID: opID,
		Receiver:    w.Receiver,
		Recipient:   w.Recipient,
		Amount:      w.Amount,
		Timestamp:   time.UnixMicro(w.TimestampUs),
		Sequence:    w.Sequence,
	}, nil
}

func parsePriceUpdate(data []byte) (event.Event, error) {
	var w struct {
		Asset            string `json:"asset"`
		Value            string `json:"value"`
		Decimals         uint8  `json:"decimals"`
		PriceSequence    int64  `json:"price_sequence"`
		PriceTimestampUs int64  `json:"price_timestamp_us"`
	}
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("unmarshal price: %w", err)
	}
	if w.Asset == "" {
		return nil, fmt.Errorf("price update missing asset")
	}
	return &event.PriceUpdate{
		AssetAddr: w.Asset,
		Value:     w.Value,
		Decimals:  w.Decimals,
		Timestamp: time.UnixMicro(w.PriceTimestampUs),
		Sequence:  w.PriceSequence,
	}, nil
}

func parseRewardAccrual(data []byte) (event.Event, error) {
	var w struct {
		AccrualID   string   `json:"accrual_id"`
		Venue       string   `json:"venue"`
		Asset       string   `json:"asset"`
		PoolID      uint64   `json:"pool_id"`
		Amounts     []string `json:"amounts"`
		Sequence    int64    `json:"sequence"`
		TimestampUs int64    `json:"timestamp_us"`
	}
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("unmarshal reward accrual: %w", err)
	}
	accrualID, err := uuid.Parse(w.AccrualID)
	if err != nil {
		return nil, fmt.Errorf("invalid accrual_id: %w", err)
	}
	if len(w.Amounts) == 0 {
		return nil, fmt.Errorf("reward accrual has no amounts")
	}
	return &event.RewardAccrual{
		AccrualID: accrualID,
		Venue:     w.Venue,
		AssetAddr: w.Asset,
		PoolID:    w.PoolID,
		Amounts:   w.Amounts,
		Timestamp: time.UnixMicro(w.TimestampUs),
		Sequence:  w.Sequence,
	}, nil
}

func parseRiskConfigUpdate(data []byte) (event.Event, error) {
	var w struct {
		OperationID             string `json:"operation_id"`
		Caller                  string `json:"caller"`
		Asset                   string `json:"asset"`
		LoanToValueBps          int64  `json:"loan_to_value_bps"`
		LiquidationThresholdBps int64  `json:"liquidation_threshold_bps"`
		Decimals                uint8  `json:"decimals"`
		Sequence                int64  `json:"sequence"`
		TimestampUs             int64  `json:"timestamp_us"`
	}
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("unmarshal risk config: %w", err)
	}
	opID, err := uuid.Parse(w.OperationID)
	if err != nil {
		return nil, fmt.Errorf("invalid operation_id: %w", err)
	}
	return &event.RiskConfigUpdate{
		OperationID:             opID,
		Caller:                  w.Caller,
		AssetAddr:               w.Asset,
		LoanToValueBps:          w.LoanToValueBps,
		LiquidationThresholdBps: w.LiquidationThresholdBps,
		Decimals:                w.Decimals,
		Timestamp:               time.UnixMicro(w.TimestampUs),
		Sequence:                w.Sequence,
	}, nil
}

func parseInterestRateUpdate(data []byte) (event.Event, error) {
	var w struct {
		OperationID string `json:"operation_id"`
		Caller      string `json:"caller"`
		RateBps     int64  `json:"rate_bps"`
		Sequence    int64  `json:"sequence"`
		TimestampUs int64  `json:"timestamp_us"`
	}
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("unmarshal rate update: %w", err)
	}
	opID, err := uuid.Parse(w.OperationID)
	if err != nil {
		return nil, fmt.Errorf("invalid operation_id: %w", err)
	}
	return &event.InterestRateUpdate{
		OperationID: opID,
		Caller:      w.Caller,
		RateBps:     w.RateBps,
		Timestamp:   time.UnixMicro(w.TimestampUs),
		Sequence:    w.Sequence,
	}, nil
}

func parseFlashLoanFeeUpdate(data []byte) (event.Event, error) {
	var w struct {
		OperationID string `json:"operation_id"`
		Caller      string `json:"caller"`
		FeeBps      int64  `json:"fee_bps"`
		Sequence    int64  `json:"sequence"`
		TimestampUs int64  `json:"timestamp_us"`
	}
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("unmarshal fee update: %w", err)
	}
	opID, err := uuid.Parse(w.OperationID)
	if err != nil {
		return nil, fmt.Errorf("invalid operation_id: %w", err)
	}
	return &event.FlashLoanFeeUpdate{
		OperationID: opID,
		Caller:      w.Caller,
		FeeBps:      w.FeeBps,
		Timestamp:   time.UnixMicro(w.TimestampUs),
		Sequence:    w.Sequence,
	}, nil
}

func parseLiquidationPenaltyUpdate(data []byte) (event.Event, error) {
	var w struct {
		OperationID string `json:"operation_id"`
		Caller      string `json:"caller"`
		PenaltyBps  int64  `json:"penalty_bps"`
		Sequence    int64  `json:"sequence"`
		TimestampUs int64  `json:"timestamp_us"`
	}
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("unmarshal penalty update: %w", err)
	}
	opID, err := uuid.Parse(w.OperationID)
	if err != nil {
		return nil, fmt.Errorf("invalid operation_id: %w", err)
	}
	return &event.LiquidationPenaltyUpdate{
		OperationID: opID,
		Caller:      w.Caller,
		PenaltyBps:  w.PenaltyBps,
		Timestamp:   time.UnixMicro(w.TimestampUs),
		Sequence:    w.Sequence,
	}, nil
}

func parsePoolRegistration(data []byte) (event.Event, error) {
	var w struct {
		OperationID string `json:"operation_id"`
		Caller      string `json:"caller"`
		Asset       string `json:"asset"`
		Venue       string `json:"venue"`
		PoolID      uint64 `json:"pool_id"`
		Sequence    int64  `json:"sequence"`
		TimestampUs int64  `json:"timestamp_us"`
	}
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("unmarshal pool registration: %w", err)
	}
	opID, err := uuid.Parse(w.OperationID)
	if err != nil {
		return nil, fmt.Errorf("invalid operation_id: %w", err)
	}
	return &event.PoolRegistration{
		OperationID: opID,
		Caller:      w.Caller,
		AssetAddr:   w.Asset,
		Venue:       w.Venue,
		PoolID:      w.PoolID,
		Timestamp:   time.UnixMicro(w.TimestampUs),
		Sequence:    w.Sequence,
	}, nil
}
