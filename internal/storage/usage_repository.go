package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// UsageRepository handles usage record database operations
type UsageRepository struct {
	db *DB
}

// NewUsageRepository creates a new usage repository
func NewUsageRepository(db *DB) *UsageRepository {
	return &UsageRepository{db: db}
}

// Create creates a new usage record
func (r *UsageRepository) Create(ctx context.Context, record *UsageRecord) error {
	return r.create(ctx, r.db.conn, record)
}

// create writes one record through q, which is either the pooled
// connection or an open transaction.
func (r *UsageRepository) create(ctx context.Context, q sqlx.QueryerContext, record *UsageRecord) error {
	query := `
		INSERT INTO usage_records (
			id, request_id, fingerprint, user_id, team_id,
			provider, model, alias, outcome, status_code,
			provider_ms, gateway_ms, request_timestamp
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING created_at
	`

	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}

	if record.Timestamp.IsZero() {
		record.Timestamp = time.Now()
	}

	err := q.QueryRowxContext(
		ctx, query,
		record.ID, record.RequestID, record.Fingerprint, record.UserID,
		record.TeamID, record.Provider, record.Model, record.Alias,
		record.Outcome, record.StatusCode, record.ProviderMs,
		record.GatewayMs, record.Timestamp,
	).Scan(&record.CreatedAt)

	if err != nil {
		return fmt.Errorf("failed to create usage record: %w", err)
	}

	return nil
}

// GetByRequestID retrieves the usage record for one gateway request
func (r *UsageRepository) GetByRequestID(ctx context.Context, requestID string) (*UsageRecord, error) {
	query := `
		SELECT id, request_id, fingerprint, user_id, team_id,
		       provider, model, alias, outcome, status_code,
		       provider_ms, gateway_ms, request_timestamp, created_at
		FROM usage_records
		WHERE request_id = $1
		ORDER BY request_timestamp DESC
		LIMIT 1
	`

	var record UsageRecord
	err := r.db.conn.GetContext(ctx, &record, query, requestID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrUsageRecordNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get usage record: %w", err)
	}

	return &record, nil
}

// GetByFingerprint retrieves usage records for a caller fingerprint
func (r *UsageRepository) GetByFingerprint(ctx context.Context, fingerprint string, startTime, endTime time.Time, limit, offset int) ([]*UsageRecord, error) {
	query := `
		SELECT id, request_id, fingerprint, user_id, team_id,
		       provider, model, alias, outcome, status_code,
		       provider_ms, gateway_ms, request_timestamp, created_at
		FROM usage_records
		WHERE fingerprint = $1
		  AND request_timestamp >= $2
		  AND request_timestamp < $3
		ORDER BY request_timestamp DESC
		LIMIT $4 OFFSET $5
	`

	var records []*UsageRecord
	err := r.db.conn.SelectContext(ctx, &records, query, fingerprint, startTime, endTime, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to get usage records: %w", err)
	}

	return records, nil
}

// GetByModel retrieves usage records for a resolved model id
func (r *UsageRepository) GetByModel(ctx context.Context, model string, startTime, endTime time.Time, limit, offset int) ([]*UsageRecord, error) {
	query := `
		SELECT id, request_id, fingerprint, user_id, team_id,
		       provider, model, alias, outcome, status_code,
		       provider_ms, gateway_ms, request_timestamp, created_at
		FROM usage_records
		WHERE model = $1
		  AND request_timestamp >= $2
		  AND request_timestamp < $3
		ORDER BY request_timestamp DESC
		LIMIT $4 OFFSET $5
	`

	var records []*UsageRecord
	err := r.db.conn.SelectContext(ctx, &records, query, model, startTime, endTime, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to get usage records: %w", err)
	}

	return records, nil
}

// CountByFingerprint counts requests for a fingerprint in a time range.
// Used for offline reconciliation of the live limiter counters.
func (r *UsageRepository) CountByFingerprint(ctx context.Context, fingerprint string, startTime, endTime time.Time) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM usage_records
		WHERE fingerprint = $1
		  AND request_timestamp >= $2
		  AND request_timestamp < $3
	`

	var count int
	err := r.db.conn.GetContext(ctx, &count, query, fingerprint, startTime, endTime)
	if err != nil {
		return 0, fmt.Errorf("failed to count usage records: %w", err)
	}

	return count, nil
}
