package projection

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"time"
)

// ProjectionOutput mirrors the data needed by projection workers.
// The orchestrator bridges between core.CoreOutput and this.
type ProjectionOutput struct {
	Sequence  int64
	EventType string
	Asset     *string
	Payload   []byte
	Timestamp time.Time
}

// ProjectionWorker updates read-model tables from processed events. The
// projection channel is non-blocking with drop: if projections fall behind
// they go stale, and can be rebuilt from the event log at any time.
type ProjectionWorker struct {
	db        *sql.DB
	inputChan <-chan ProjectionOutput
	lastSeq   int64
}

func NewProjectionWorker(db *sql.DB, inputChan <-chan ProjectionOutput) *ProjectionWorker {
	return &ProjectionWorker{
		db:        db,
		inputChan: inputChan,
	}
}

// Run starts the projection worker loop.
func (pw *ProjectionWorker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case output, ok := <-pw.inputChan:
			if !ok {
				return nil
			}

			if err := pw.processOutput(ctx, output); err != nil {
				log.Printf("WARN: projection update failed at seq=%d: %v", output.Sequence, err)
				// Continue: projections are eventually consistent
				// and can be rebuilt from the event log
			}

			pw.lastSeq = output.Sequence
		}
	}
}

func (pw *ProjectionWorker) processOutput(ctx context.Context, output ProjectionOutput) error {
	tx, err := pw.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	switch output.EventType {
	case "Liquidate":
		if err := pw.recordLiquidation(ctx, tx, output); err != nil {
			return fmt.Errorf("liquidation history: %w", err)
		}
		if output.Asset != nil {
			if err := pw.refreshMarketTotals(ctx, tx, *output.Asset, output.Sequence); err != nil {
				return fmt.Errorf("market totals: %w", err)
			}
		}
	case "PriceUpdate":
		if err := pw.updateMarketPrice(ctx, tx, output); err != nil {
			return fmt.Errorf("market price: %w", err)
		}
	case "Deposit", "Borrow", "Repay", "Withdraw":
		if output.Asset != nil {
			if err := pw.refreshMarketTotals(ctx, tx, *output.Asset, output.Sequence); err != nil {
				return fmt.Errorf("market totals: %w", err)
			}
		}
	}

	// Advance the freshness watermark
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO vault.projection_watermark (worker_id, last_sequence, updated_at)
		VALUES ('main', $1, NOW())
		ON CONFLICT (worker_id) DO UPDATE SET last_sequence = $1, updated_at = NOW()
	`, output.Sequence); err != nil {
		return fmt.Errorf("watermark update: %w", err)
	}

	return tx.Commit()
}

func (pw *ProjectionWorker) recordLiquidation(ctx context.Context, tx *sql.Tx, output ProjectionOutput) error {
	var payload struct {
		Liquidator  string `json:"Liquidator"`
		Borrower    string `json:"Borrower"`
		AssetAddr   string `json:"AssetAddr"`
		RepayAmount string `json:"RepayAmount"`
	}
	if err := json.Unmarshal(output.Payload, &payload); err != nil {
		return fmt.Errorf("unmarshal liquidate payload: %w", err)
	}

	_, err := tx.ExecContext(ctx, `
		INSERT INTO vault.liquidation_history
			(sequence, asset, borrower, liquidator, repay_amount, occurred_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (sequence) DO NOTHING
	`, output.Sequence, payload.AssetAddr, payload.Borrower, payload.Liquidator,
		payload.RepayAmount, output.Timestamp)
	return err
}

func (pw *ProjectionWorker) updateMarketPrice(ctx context.Context, tx *sql.Tx, output ProjectionOutput) error {
	var payload struct {
		AssetAddr string `json:"AssetAddr"`
		Value     string `json:"Value"`
		Decimals  uint8  `json:"Decimals"`
	}
	if err := json.Unmarshal(output.Payload, &payload); err != nil {
		return fmt.Errorf("unmarshal price payload: %w", err)
	}

	_, err := tx.ExecContext(ctx, `
		INSERT INTO vault.market_state
			(asset, total_collateral, total_borrows, price_value, price_decimals, as_of_sequence, updated_at)
		VALUES ($1, 0, 0, $2, $3, $4, NOW())
		ON CONFLICT (asset) DO UPDATE SET
			price_value = $2, price_decimals = $3, as_of_sequence = $4, updated_at = NOW()
	`, payload.AssetAddr, payload.Value, payload.Decimals, output.Sequence)
	return err
}

// refreshMarketTotals recomputes per-asset totals from the positions table.
// Positions are written by the persistence worker on its own cadence, so the
// totals here may trail the log by a batch; that staleness is bounded by the
// persistence flush timeout.
func (pw *ProjectionWorker) refreshMarketTotals(ctx context.Context, tx *sql.Tx, asset string, sequence int64) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO vault.market_state
			(asset, total_collateral, total_borrows, as_of_sequence, updated_at)
		SELECT $1,
		       COALESCE(SUM(collateral_amount), 0),
		       COALESCE(SUM(borrow_amount), 0),
		       $2, NOW()
		FROM vault.positions WHERE asset = $1
		ON CONFLICT (asset) DO UPDATE SET
			total_collateral = EXCLUDED.total_collateral,
			total_borrows = EXCLUDED.total_borrows,
			as_of_sequence = EXCLUDED.as_of_sequence,
			updated_at = NOW()
	`, asset, sequence)
	return err
}

// RebuildProjections rebuilds all read-model tables from the event log and
// the positions table.
func RebuildProjections(ctx context.Context, db *sql.DB) error {
	truncateStatements := []string{
		`TRUNCATE vault.market_state`,
		`TRUNCATE vault.liquidation_history`,
		`DELETE FROM vault.projection_watermark WHERE worker_id = 'main'`,
	}

	for _, stmt := range truncateStatements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("truncate failed: %w", err)
		}
	}

	// Liquidation history comes straight out of the event log payloads
	_, err := db.ExecContext(ctx, `
		INSERT INTO vault.liquidation_history
			(sequence, asset, borrower, liquidator, repay_amount, occurred_at)
		SELECT
			sequence,
			payload->>'AssetAddr',
			payload->>'Borrower',
			payload->>'Liquidator',
			(payload->>'RepayAmount')::NUMERIC,
			timestamp
		FROM event_log.events
		WHERE event_type = 'Liquidate'
		ON CONFLICT (sequence) DO NOTHING
	`)
	if err != nil {
		return fmt.Errorf("rebuild liquidation history: %w", err)
	}

	// Market totals from positions, latest price from the event log
	_, err = db.ExecContext(ctx, `
		INSERT INTO vault.market_state
			(asset, total_collateral, total_borrows, as_of_sequence, updated_at)
		SELECT
			asset,
			SUM(collateral_amount),
			SUM(borrow_amount),
			MAX(as_of_sequence),
			NOW()
		FROM vault.positions
		GROUP BY asset
		ON CONFLICT (asset) DO UPDATE SET
			total_collateral = EXCLUDED.total_collateral,
			total_borrows = EXCLUDED.total_borrows,
			as_of_sequence = EXCLUDED.as_of_sequence,
			updated_at = NOW()
	`)
	if err != nil {
		return fmt.Errorf("rebuild market totals: %w", err)
	}

	_, err = db.ExecContext(ctx, `
		UPDATE vault.market_state ms SET
			price_value = p.value,
			price_decimals = p.decimals
		FROM (
			SELECT DISTINCT ON (payload->>'AssetAddr')
				payload->>'AssetAddr' AS asset,
				(payload->>'Value')::NUMERIC AS value,
				(payload->>'Decimals')::SMALLINT AS decimals
			FROM event_log.events
			WHERE event_type = 'PriceUpdate'
			ORDER BY payload->>'AssetAddr', sequence DESC
		) p
		WHERE ms.asset = p.asset
	`)
	if err != nil {
		return fmt.Errorf("rebuild market prices: %w", err)
	}

	log.Println("INFO: projection rebuild complete")
	return nil
}
