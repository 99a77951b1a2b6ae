package event

import (
	"time"

	"github.com/google/uuid"
)

// FlashLoan requests a same-call atomic loan. Receiver names a callback
// registered with the core; the loan either completes with the fee repaid
// or leaves no trace beyond the rejection.
type FlashLoan struct {
	OperationID uuid.UUID
	Receiver    string
	Recipient   string
	Amount      string
	Timestamp   time.Time
	Sequence    int64
}

func (f *FlashLoan) IdempotencyKey() string { return f.OperationID.String() }
func (f *FlashLoan) EventType() EventType   { return EventTypeFlashLoan }
func (f *FlashLoan) Asset() *string         { return nil }
func (f *FlashLoan) SourceSequence() int64  { return f.Sequence }
