package persistence

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// EventLogWriter writes applied events and position rows to Postgres using
// multi-row INSERT batches. Batches are flushed inside a single transaction
// so the event log and position table never diverge mid-batch.
type EventLogWriter struct {
	db           *sql.DB
	batchSize    int
	flushTimeout time.Duration
}

// EventRow represents a row in event_log.events
type EventRow struct {
	Sequence       int64
	EventType      string
	IdempotencyKey string
	Asset          *string
	Payload        []byte // JSON-encoded event payload
	StateHash      []byte
	PrevHash       []byte
	Timestamp      time.Time
	SourceSequence int64
}

// PositionRow represents a row in vault.positions. Amounts are decimal
// strings in base units; NUMERIC columns hold them without precision loss.
type PositionRow struct {
	Sequence          int64
	Asset             string
	Account           string
	CollateralAmount  string
	BorrowAmount      string
	DebtIndexSnapshot string
	Timestamp         time.Time
}

func NewEventLogWriter(db *sql.DB, batchSize int, flushTimeout time.Duration) *EventLogWriter {
	return &EventLogWriter{
		db:           db,
		batchSize:    batchSize,
		flushTimeout: flushTimeout,
	}
}

// WriteEventBatch writes a batch of events to event_log.events inside tx.
func (w *EventLogWriter) WriteEventBatch(ctx context.Context, tx *sql.Tx, events []EventRow) error {
	if len(events) == 0 {
		return nil
	}

	query := `INSERT INTO event_log.events
		(sequence, event_type, idempotency_key, asset, payload, state_hash, prev_hash, timestamp, source_sequence)
		VALUES `

	values := make([]string, 0, len(events))
	args := make([]interface{}, 0, len(events)*9)

	for i, e := range events {
		base := i * 9
		values = append(values, fmt.Sprintf(
			"($%d, $%d, $%d, $%d, $%d, $%d, $%d, $%d, $%d)",
			base+1, base+2, base+3, base+4, base+5, base+6, base+7, base+8, base+9,
		))
		args = append(args,
			e.Sequence, e.EventType, e.IdempotencyKey, e.Asset,
			e.Payload, e.StateHash, e.PrevHash, e.Timestamp, e.SourceSequence,
		)
	}

	query += strings.Join(values, ", ")
	query += " ON CONFLICT (sequence) DO NOTHING" // Idempotent writes

	_, err := tx.ExecContext(ctx, query, args...)
	return err
}

// WritePositionBatch upserts position rows inside tx. A batch may touch the
// same (asset, account) several times; only the highest-sequence row per key
// is written, since Postgres rejects a second ON CONFLICT update of one row
// in a single statement.
func (w *EventLogWriter) WritePositionBatch(ctx context.Context, tx *sql.Tx, positions []PositionRow) error {
	if len(positions) == 0 {
		return nil
	}

	latest := make(map[string]PositionRow, len(positions))
	order := make([]string, 0, len(positions))
	for _, p := range positions {
		key := p.Asset + "|" + p.Account
		if prev, seen := latest[key]; !seen {
			order = append(order, key)
			latest[key] = p
		} else if p.Sequence > prev.Sequence {
			latest[key] = p
		}
	}

	query := `INSERT INTO vault.positions
		(asset, account, collateral_amount, borrow_amount, debt_index_snapshot, as_of_sequence, updated_at)
		VALUES `

	values := make([]string, 0, len(order))
	args := make([]interface{}, 0, len(order)*7)

	for i, key := range order {
		p := latest[key]
		base := i * 7
		values = append(values, fmt.Sprintf(
			"($%d, $%d, $%d, $%d, $%d, $%d, $%d)",
			base+1, base+2, base+3, base+4, base+5, base+6, base+7,
		))
		args = append(args,
			p.Asset, p.Account, p.CollateralAmount, p.BorrowAmount,
			p.DebtIndexSnapshot, p.Sequence, p.Timestamp,
		)
	}

	query += strings.Join(values, ", ")
	query += ` ON CONFLICT (asset, account) DO UPDATE SET
		collateral_amount = EXCLUDED.collateral_amount,
		borrow_amount = EXCLUDED.borrow_amount,
		debt_index_snapshot = EXCLUDED.debt_index_snapshot,
		as_of_sequence = EXCLUDED.as_of_sequence,
		updated_at = EXCLUDED.updated_at
		WHERE vault.positions.as_of_sequence < EXCLUDED.as_of_sequence`

	_, err := tx.ExecContext(ctx, query, args...)
	return err
}

// MarshalEventPayload serializes an event payload to JSON for storage.
func MarshalEventPayload(payload interface{}) ([]byte, error) {
	return json.Marshal(payload)
}
