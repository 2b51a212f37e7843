package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"creative_gateway/internal/models"
)

// UsageRepository handles usage record database operations
type UsageRepository struct {
	db *DB
}

// NewUsageRepository creates a new usage repository
func NewUsageRepository(db *DB) *UsageRepository {
	return &UsageRepository{db: db}
}

// Create inserts a usage record. Records are append-only: nothing updates or
// deletes them after this point.
func (r *UsageRepository) Create(ctx context.Context, record *models.UsageRecord) error {
	query := `
		INSERT INTO usage_records (
			id, request_id, user_id, org_id, endpoint, operation, provider,
			model_id, input_tokens, output_tokens, image_count,
			video_duration_seconds, audio_duration_seconds,
			estimated_cost_cents, latency_ms, status, error_message,
			metadata, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)
	`

	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now().UTC()
	}

	_, err := r.db.conn.ExecContext(
		ctx, query,
		record.ID, record.RequestID, record.UserID, record.OrgID,
		record.Endpoint, record.Operation, record.Provider, record.ModelID,
		record.InputTokens, record.OutputTokens, record.ImageCount,
		record.VideoDurationSeconds, record.AudioDurationSeconds,
		record.EstimatedCostCents, record.LatencyMs, record.Status,
		record.ErrorMessage, record.Metadata, record.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create usage record: %w", err)
	}

	return nil
}

// GetByID retrieves a single usage record
func (r *UsageRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.UsageRecord, error) {
	var record models.UsageRecord
	query := `
		SELECT id, request_id, user_id, org_id, endpoint, operation, provider,
		       model_id, input_tokens, output_tokens, image_count,
		       video_duration_seconds, audio_duration_seconds,
		       estimated_cost_cents, latency_ms, status, error_message,
		       metadata, created_at
		FROM usage_records
		WHERE id = $1
	`

	err := r.db.conn.GetContext(ctx, &record, query, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrUsageRecordNotFound
		}
		return nil, fmt.Errorf("failed to get usage record: %w", err)
	}

	return &record, nil
}

// GetByUser retrieves usage records for a user in a time range
func (r *UsageRepository) GetByUser(ctx context.Context, userID string, startTime, endTime time.Time, limit, offset int) ([]*models.UsageRecord, error) {
	query := `
		SELECT id, request_id, user_id, org_id, endpoint, operation, provider,
		       model_id, input_tokens, output_tokens, image_count,
		       video_duration_seconds, audio_duration_seconds,
		       estimated_cost_cents, latency_ms, status, error_message,
		       metadata, created_at
		FROM usage_records
		WHERE user_id = $1
		  AND created_at >= $2
		  AND created_at < $3
		ORDER BY created_at DESC
		LIMIT $4 OFFSET $5
	`

	var records []*models.UsageRecord
	err := r.db.conn.SelectContext(ctx, &records, query, userID, startTime, endTime, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to get usage records: %w", err)
	}

	return records, nil
}

// GetTotalCostByOrg sums estimated cost for an organization in a time range
func (r *UsageRepository) GetTotalCostByOrg(ctx context.Context, orgID string, startTime, endTime time.Time) (int64, error) {
	query := `
		SELECT COALESCE(SUM(estimated_cost_cents), 0)
		FROM usage_records
		WHERE org_id = $1
		  AND created_at >= $2
		  AND created_at < $3
	`

	var totalCents int64
	err := r.db.conn.GetContext(ctx, &totalCents, query, orgID, startTime, endTime)
	if err != nil {
		return 0, fmt.Errorf("failed to get total cost: %w", err)
	}

	return totalCents, nil
}
