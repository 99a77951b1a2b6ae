package query

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"LendingVault/internal/observability"
)

// QueryService provides read-only access to the projection tables. Queries
// are served over gRPC-Gateway HTTP/JSON, reading from Postgres. Every
// response includes as_of_sequence for freshness semantics.
type QueryService struct {
	db      *sql.DB
	metrics *observability.Metrics
}

func NewQueryService(db *sql.DB, metrics *observability.Metrics) *QueryService {
	return &QueryService{db: db, metrics: metrics}
}

// GetPosition returns one account's position in one asset market.
func (qs *QueryService) GetPosition(ctx context.Context, account, asset string) (*PositionResponse, error) {
	defer qs.observe("position", time.Now())

	asOfSeq, err := qs.getWatermark(ctx)
	if err != nil {
		return nil, fmt.Errorf("watermark: %w", err)
	}

	var p PositionResponse
	p.Account = account
	p.Asset = asset
	p.AsOfSequence = asOfSeq
	err = qs.db.QueryRowContext(ctx, `
		SELECT collateral_amount::TEXT, borrow_amount::TEXT, debt_index_snapshot::TEXT
		FROM vault.positions
		WHERE asset = $1 AND account = $2
	`, asset, account).Scan(&p.CollateralAmount, &p.BorrowAmount, &p.DebtIndexSnapshot)
	if err == sql.ErrNoRows {
		p.CollateralAmount = "0"
		p.BorrowAmount = "0"
		p.DebtIndexSnapshot = "0"
		return &p, nil
	}
	if err != nil {
		qs.countError("position")
		return nil, err
	}

	return &p, nil
}

// GetPositions returns all of an account's positions.
func (qs *QueryService) GetPositions(ctx context.Context, account string) ([]PositionResponse, error) {
	defer qs.observe("positions", time.Now())

	asOfSeq, err := qs.getWatermark(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := qs.db.QueryContext(ctx, `
		SELECT asset, collateral_amount::TEXT, borrow_amount::TEXT, debt_index_snapshot::TEXT
		FROM vault.positions
		WHERE account = $1 AND (collateral_amount > 0 OR borrow_amount > 0)
		ORDER BY asset
	`, account)
	if err != nil {
		qs.countError("positions")
		return nil, err
	}
	defer rows.Close()

	var positions []PositionResponse
	for rows.Next() {
		var p PositionResponse
		p.Account = account
		p.AsOfSequence = asOfSeq
		if err := rows.Scan(&p.Asset, &p.CollateralAmount, &p.BorrowAmount, &p.DebtIndexSnapshot); err != nil {
			return nil, err
		}
		positions = append(positions, p)
	}

	return positions, rows.Err()
}

// GetMarketState returns per-asset totals and the latest price.
func (qs *QueryService) GetMarketState(ctx context.Context, asset string) (*MarketStateResponse, error) {
	defer qs.observe("market_state", time.Now())

	var m MarketStateResponse
	m.Asset = asset
	err := qs.db.QueryRowContext(ctx, `
		SELECT total_collateral::TEXT, total_borrows::TEXT,
		       price_value::TEXT, price_decimals, as_of_sequence
		FROM vault.market_state
		WHERE asset = $1
	`, asset).Scan(&m.TotalCollateral, &m.TotalBorrows, &m.PriceValue, &m.PriceDecimals, &m.AsOfSequence)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("unknown market: %s", asset)
	}
	if err != nil {
		qs.countError("market_state")
		return nil, err
	}

	return &m, nil
}

// GetAccountHealth returns the projected inputs of an account's health
// check. The authoritative ratio is computed by the core against live
// prices and interest; this is the read-model estimate for dashboards.
func (qs *QueryService) GetAccountHealth(ctx context.Context, account, asset string) (*HealthResponse, error) {
	defer qs.observe("health", time.Now())

	pos, err := qs.GetPosition(ctx, account, asset)
	if err != nil {
		return nil, err
	}

	h := &HealthResponse{
		Account:          account,
		Asset:            asset,
		CollateralAmount: pos.CollateralAmount,
		BorrowAmount:     pos.BorrowAmount,
		AsOfSequence:     pos.AsOfSequence,
	}

	err = qs.db.QueryRowContext(ctx, `
		SELECT price_value::TEXT, price_decimals
		FROM vault.market_state
		WHERE asset = $1
	`, asset).Scan(&h.PriceValue, &h.PriceDecimals)
	if err != nil && err != sql.ErrNoRows {
		qs.countError("health")
		return nil, err
	}

	return h, nil
}

// GetLiquidationHistory returns executed liquidations, newest first, with
// cursor-based pagination on sequence. borrower is optional.
func (qs *QueryService) GetLiquidationHistory(
	ctx context.Context,
	borrower *string,
	limit int,
	beforeSequence *int64,
) ([]LiquidationHistoryResponse, error) {
	defer qs.observe("liquidation_history", time.Now())

	query := `
		SELECT sequence, asset, borrower, liquidator, repay_amount::TEXT, occurred_at
		FROM vault.liquidation_history
		WHERE TRUE
	`
	args := []interface{}{}
	argIdx := 1

	if borrower != nil {
		query += fmt.Sprintf(" AND borrower = $%d", argIdx)
		args = append(args, *borrower)
		argIdx++
	}

	if beforeSequence != nil {
		query += fmt.Sprintf(" AND sequence < $%d", argIdx)
		args = append(args, *beforeSequence)
		argIdx++
	}

	query += " ORDER BY sequence DESC"
	query += fmt.Sprintf(" LIMIT $%d", argIdx)
	args = append(args, limit)

	rows, err := qs.db.QueryContext(ctx, query, args...)
	if err != nil {
		qs.countError("liquidation_history")
		return nil, err
	}
	defer rows.Close()

	var history []LiquidationHistoryResponse
	for rows.Next() {
		var h LiquidationHistoryResponse
		if err := rows.Scan(&h.Sequence, &h.Asset, &h.Borrower, &h.Liquidator, &h.RepayAmount, &h.OccurredAt); err != nil {
			return nil, err
		}
		history = append(history, h)
	}

	return history, rows.Err()
}

// GetEventHistory returns applied events from the log with cursor-based
// pagination. asset is optional.
func (qs *QueryService) GetEventHistory(
	ctx context.Context,
	asset *string,
	limit int,
	beforeSequence *int64,
) ([]EventHistoryEntry, error) {
	defer qs.observe("event_history", time.Now())

	query := `
		SELECT sequence, event_type, asset, payload, timestamp
		FROM event_log.events
		WHERE TRUE
	`
	args := []interface{}{}
	argIdx := 1

	if asset != nil {
		query += fmt.Sprintf(" AND asset = $%d", argIdx)
		args = append(args, *asset)
		argIdx++
	}

	if beforeSequence != nil {
		query += fmt.Sprintf(" AND sequence < $%d", argIdx)
		args = append(args, *beforeSequence)
		argIdx++
	}

	query += " ORDER BY sequence DESC"
	query += fmt.Sprintf(" LIMIT $%d", argIdx)
	args = append(args, limit)

	rows, err := qs.db.QueryContext(ctx, query, args...)
	if err != nil {
		qs.countError("event_history")
		return nil, err
	}
	defer rows.Close()

	var entries []EventHistoryEntry
	for rows.Next() {
		var e EventHistoryEntry
		if err := rows.Scan(&e.Sequence, &e.EventType, &e.Asset, &e.Payload, &e.Timestamp); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}

	return entries, rows.Err()
}

// --- Admin APIs ---

// VerifyIntegrity checks hash chain continuity across the event log.
func (qs *QueryService) VerifyIntegrity(ctx context.Context) (*IntegrityReport, error) {
	defer qs.observe("verify_integrity", time.Now())

	report := &IntegrityReport{}

	rows, err := qs.db.QueryContext(ctx, `
		SELECT e1.sequence
		FROM event_log.events e1
		JOIN event_log.events e2 ON e2.sequence = e1.sequence - 1
		WHERE e1.prev_hash != e2.state_hash
		LIMIT 10
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var seq int64
		if err := rows.Scan(&seq); err != nil {
			return nil, err
		}
		report.HashChainBreaks = append(report.HashChainBreaks, seq)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if err := qs.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM event_log.events
	`).Scan(&report.EventCount); err != nil {
		return nil, err
	}

	report.IsHealthy = len(report.HashChainBreaks) == 0
	return report, nil
}

// --- helpers ---

func (qs *QueryService) getWatermark(ctx context.Context) (int64, error) {
	var seq int64
	err := qs.db.QueryRowContext(ctx, `
		SELECT COALESCE(last_sequence, 0) FROM vault.projection_watermark WHERE worker_id = 'main'
	`).Scan(&seq)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	return seq, err
}

func (qs *QueryService) observe(endpoint string, start time.Time) {
	if qs.metrics != nil {
		qs.metrics.QueryRequests.WithLabelValues(endpoint).Inc()
		qs.metrics.QueryDuration.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
	}
}

func (qs *QueryService) countError(endpoint string) {
	if qs.metrics != nil {
		qs.metrics.QueryErrors.WithLabelValues(endpoint).Inc()
	}
}
