package models

import (
	"time"

	"github.com/google/uuid"
)

// Operation identifies the gateway operation a usage record belongs to.
type Operation string

const (
	OperationGenerateText   Operation = "generate_text"
	OperationGenerateImage  Operation = "generate_image"
	OperationGenerateVideo  Operation = "generate_video"
	OperationGenerateSpeech Operation = "generate_speech"
	OperationAssistantChat  Operation = "assistant_chat"
)

// UsageStatus is the terminal status of a single attempt.
type UsageStatus string

const (
	UsageStatusSuccess UsageStatus = "success"
	UsageStatusFailed  UsageStatus = "failed"
)

// UsageRecord is one immutable accounting row per externally observable
// attempt, success or failure. Rows are inserted and never updated; a fallback
// hop gets its own row with a fresh RequestID.
type UsageRecord struct {
	ID        uuid.UUID `db:"id" json:"id"`
	RequestID uuid.UUID `db:"request_id" json:"request_id"`

	// Attribution; nullable because some callers are machine identities.
	UserID *string `db:"user_id" json:"user_id,omitempty"`
	OrgID  *string `db:"org_id" json:"org_id,omitempty"`

	Endpoint  string    `db:"endpoint" json:"endpoint"`
	Operation Operation `db:"operation" json:"operation"`
	Provider  string    `db:"provider" json:"provider"`
	ModelID   string    `db:"model_id" json:"model_id"`

	// Modality-dependent usage quantities; unset fields stay NULL.
	InputTokens          *int     `db:"input_tokens" json:"input_tokens,omitempty"`
	OutputTokens         *int     `db:"output_tokens" json:"output_tokens,omitempty"`
	ImageCount           *int     `db:"image_count" json:"image_count,omitempty"`
	VideoDurationSeconds *float64 `db:"video_duration_seconds" json:"video_duration_seconds,omitempty"`
	AudioDurationSeconds *float64 `db:"audio_duration_seconds" json:"audio_duration_seconds,omitempty"`

	// Server-computed, never client-supplied.
	EstimatedCostCents int `db:"estimated_cost_cents" json:"estimated_cost_cents"`

	LatencyMs    int64       `db:"latency_ms" json:"latency_ms"`
	Status       UsageStatus `db:"status" json:"status"`
	ErrorMessage *string     `db:"error_message" json:"error_message,omitempty"`
	Metadata     JSONB       `db:"metadata" json:"metadata,omitempty"`
	CreatedAt    time.Time   `db:"created_at" json:"created_at"`
}
