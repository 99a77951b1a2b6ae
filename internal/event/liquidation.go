package event

import (
	"time"

	"github.com/google/uuid"
)

// Liquidate repays part of an unhealthy borrower's debt on behalf of the
// liquidator in exchange for discounted collateral.
type Liquidate struct {
	OperationID uuid.UUID
	Liquidator  string
	Borrower    string
	AssetAddr   string
	RepayAmount string
	Timestamp   time.Time
	Sequence    int64
}

func (l *Liquidate) IdempotencyKey() string { return l.OperationID.String() }
func (l *Liquidate) EventType() EventType   { return EventTypeLiquidate }
func (l *Liquidate) Asset() *string         { return &l.AssetAddr }
func (l *Liquidate) SourceSequence() int64  { return l.Sequence }
