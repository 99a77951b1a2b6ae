package event

import (
	"encoding/json"
	"fmt"
)

// Decode unmarshals a stored event payload back into its typed form. Log
// payloads are written by the core with encoding/json straight from the
// typed structs, so this is the inverse of that marshal, keyed by the
// EventType string recorded alongside the payload. It is not the wire
// format parser; stored payloads use Go field names.
func Decode(eventType string, payload []byte) (Event, error) {
	evt, err := emptyEvent(eventType)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(payload, evt); err != nil {
		return nil, fmt.Errorf("decode %s payload: %w", eventType, err)
	}
	return evt, nil
}

func emptyEvent(eventType string) (Event, error) {
	switch eventType {
	case "Deposit":
		return &Deposit{}, nil
	case "Borrow":
		return &Borrow{}, nil
	case "Repay":
		return &Repay{}, nil
	case "Withdraw":
		return &Withdraw{}, nil
	case "Liquidate":
		return &Liquidate{}, nil
	case "Accrue":
		return &Accrue{}, nil
	case "ClaimRewards":
		return &ClaimRewards{}, nil
	case "FlashLoan":
		return &FlashLoan{}, nil
	case "PriceUpdate":
		return &PriceUpdate{}, nil
	case "RewardAccrual":
		return &RewardAccrual{}, nil
	case "RiskConfigUpdate":
		return &RiskConfigUpdate{}, nil
	case "InterestRateUpdate":
		return &InterestRateUpdate{}, nil
	case "FlashLoanFeeUpdate":
		return &FlashLoanFeeUpdate{}, nil
	case "LiquidationPenaltyUpdate":
		return &LiquidationPenaltyUpdate{}, nil
	case "PoolRegistration":
		return &PoolRegistration{}, nil
	default:
		return nil, fmt.Errorf("unknown event type %q", eventType)
	}
}
