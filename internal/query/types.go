package query

import "time"

// PositionResponse represents one account's position in one asset market.
// Amounts are base-unit decimal strings.
type PositionResponse struct {
	Account           string `json:"account"`
	Asset             string `json:"asset"`
	CollateralAmount  string `json:"collateral_amount"`
	BorrowAmount      string `json:"borrow_amount"`
	DebtIndexSnapshot string `json:"debt_index_snapshot"`
	AsOfSequence      int64  `json:"as_of_sequence"`
}

// MarketStateResponse represents per-asset market totals and the latest
// published price.
type MarketStateResponse struct {
	Asset           string  `json:"asset"`
	TotalCollateral string  `json:"total_collateral"`
	TotalBorrows    string  `json:"total_borrows"`
	PriceValue      *string `json:"price_value,omitempty"`
	PriceDecimals   *int16  `json:"price_decimals,omitempty"`
	AsOfSequence    int64   `json:"as_of_sequence"`
}

// HealthResponse carries the raw components of an account's health check.
// The authoritative health ratio lives in the core; this read model returns
// the projected inputs so callers and dashboards can derive an estimate.
type HealthResponse struct {
	Account          string  `json:"account"`
	Asset            string  `json:"asset"`
	CollateralAmount string  `json:"collateral_amount"`
	BorrowAmount     string  `json:"borrow_amount"`
	PriceValue       *string `json:"price_value,omitempty"`
	PriceDecimals    *int16  `json:"price_decimals,omitempty"`
	AsOfSequence     int64   `json:"as_of_sequence"`
}

// LiquidationHistoryResponse represents one executed liquidation.
type LiquidationHistoryResponse struct {
	Sequence    int64     `json:"sequence"`
	Asset       string    `json:"asset"`
	Borrower    string    `json:"borrower"`
	Liquidator  string    `json:"liquidator"`
	RepayAmount string    `json:"repay_amount"`
	OccurredAt  time.Time `json:"occurred_at"`
}

// EventHistoryEntry represents one applied event from the log.
type EventHistoryEntry struct {
	Sequence  int64     `json:"sequence"`
	EventType string    `json:"event_type"`
	Asset     *string   `json:"asset,omitempty"`
	Payload   []byte    `json:"payload"`
	Timestamp time.Time `json:"timestamp"`
}

// IntegrityReport is the result of an integrity verification check.
type IntegrityReport struct {
	IsHealthy       bool    `json:"is_healthy"`
	HashChainBreaks []int64 `json:"hash_chain_breaks,omitempty"`
	EventCount      int64   `json:"event_count"`
}
