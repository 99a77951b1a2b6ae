package event

import (
	"time"

	"github.com/google/uuid"
)

// Ledger operations. Addresses are 0x-hex strings, amounts decimal strings
// in the token's base units.

type Deposit struct {
	OperationID uuid.UUID
	Account     string
	AssetAddr   string
	Amount      string
	Timestamp   time.Time
	Sequence    int64
}

func (d *Deposit) IdempotencyKey() string { return d.OperationID.String() }
func (d *Deposit) EventType() EventType   { return EventTypeDeposit }
func (d *Deposit) Asset() *string         { return &d.AssetAddr }
func (d *Deposit) SourceSequence() int64  { return d.Sequence }

type Borrow struct {
	OperationID uuid.UUID
	Account     string
	AssetAddr   string
	Amount      string
	Timestamp   time.Time
	Sequence    int64
}

func (b *Borrow) IdempotencyKey() string { return b.OperationID.String() }
func (b *Borrow) EventType() EventType   { return EventTypeBorrow }
func (b *Borrow) Asset() *string         { return &b.AssetAddr }
func (b *Borrow) SourceSequence() int64  { return b.Sequence }

type Repay struct {
	OperationID uuid.UUID
	Account     string
	AssetAddr   string
	Amount      string
	Timestamp   time.Time
	Sequence    int64
}

func (r *Repay) IdempotencyKey() string { return r.OperationID.String() }
func (r *Repay) EventType() EventType   { return EventTypeRepay }
func (r *Repay) Asset() *string         { return &r.AssetAddr }
func (r *Repay) SourceSequence() int64  { return r.Sequence }

type Withdraw struct {
	OperationID uuid.UUID
	Account     string
	AssetAddr   string
	Amount      string
	Timestamp   time.Time
	Sequence    int64
}

func (w *Withdraw) IdempotencyKey() string { return w.OperationID.String() }
func (w *Withdraw) EventType() EventType   { return EventTypeWithdraw }
func (w *Withdraw) Asset() *string         { return &w.AssetAddr }
func (w *Withdraw) SourceSequence() int64  { return w.Sequence }

// Accrue realizes pending treasury interest.
type Accrue struct {
	OperationID uuid.UUID
	Timestamp   time.Time
	Sequence    int64
}

func (a *Accrue) IdempotencyKey() string { return a.OperationID.String() }
func (a *Accrue) EventType() EventType   { return EventTypeAccrue }
func (a *Accrue) Asset() *string         { return nil }
func (a *Accrue) SourceSequence() int64  { return a.Sequence }
