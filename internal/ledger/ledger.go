package ledger

import (
	"context"
	"math"
	"time"

	"github.com/google/uuid"

	"creative_gateway/internal/models"
	"creative_gateway/internal/utils"
)

// Entry is what callers hand to the ledger; the ledger turns it into an
// immutable UsageRecord with a server-computed cost.
type Entry struct {
	UserID       string // empty means unattributed
	OrgID        string
	Endpoint     string
	Operation    models.Operation
	Provider     string
	Model        string
	Usage        models.Usage
	LatencyMs    int64
	Status       models.UsageStatus
	ErrorMessage string
	Metadata     models.JSONB
}

// Sink is where finished records go; in production the async queue worker.
type Sink interface {
	Enqueue(ctx context.Context, record *models.UsageRecord) error
}

// Ledger appends one accounting record per externally observable attempt,
// success or failure. Writes are best-effort: a ledger failure is logged and
// swallowed, never surfaced, and never blocks the generation response.
type Ledger struct {
	pricing *models.PricingTable
	sink    Sink
	logger  *utils.Logger
}

// New creates a ledger over a pricing table and a record sink.
func New(pricing *models.PricingTable, sink Sink) *Ledger {
	return &Ledger{
		pricing: pricing,
		sink:    sink,
		logger:  utils.NewLogger("ledger"),
	}
}

// Record builds and enqueues the usage record for one attempt. Each call gets
// a fresh request ID; fallback hops are separate attempts and are never
// merged into one record.
func (l *Ledger) Record(ctx context.Context, e Entry) {
	costCents := l.pricing.Cost(e.Model, e.Usage)

	record := &models.UsageRecord{
		ID:        uuid.New(),
		RequestID: uuid.New(),
		Endpoint:  e.Endpoint,
		Operation: e.Operation,
		Provider:  e.Provider,
		ModelID:   e.Model,
		// Second rounding: Cost already rounded to 2 decimals, persisted as
		// a whole cent. Accepted billing behavior, do not "fix" silently.
		EstimatedCostCents: int(math.Round(costCents)),
		LatencyMs:          e.LatencyMs,
		Status:             e.Status,
		Metadata:           e.Metadata,
		CreatedAt:          time.Now().UTC(),
	}

	if e.UserID != "" {
		record.UserID = utils.StringPtr(e.UserID)
	}
	if e.OrgID != "" {
		record.OrgID = utils.StringPtr(e.OrgID)
	}
	if e.ErrorMessage != "" {
		record.ErrorMessage = utils.StringPtr(e.ErrorMessage)
	}

	if e.Usage.InputTokens > 0 {
		record.InputTokens = utils.IntPtr(e.Usage.InputTokens)
	}
	if e.Usage.OutputTokens > 0 {
		record.OutputTokens = utils.IntPtr(e.Usage.OutputTokens)
	}
	if e.Usage.ImageCount > 0 {
		record.ImageCount = utils.IntPtr(e.Usage.ImageCount)
	}
	if e.Usage.VideoDurationSeconds > 0 {
		record.VideoDurationSeconds = utils.Float64Ptr(e.Usage.VideoDurationSeconds)
	}
	if e.Usage.AudioDurationSeconds > 0 {
		record.AudioDurationSeconds = utils.Float64Ptr(e.Usage.AudioDurationSeconds)
	}

	if err := l.sink.Enqueue(ctx, record); err != nil {
		l.logger.Error("Failed to enqueue usage record, dropping",
			"request_id", record.RequestID, "operation", record.Operation, "error", err)
	}
}
