package ledger

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"creative_gateway/internal/models"
	"creative_gateway/internal/queue"
	"creative_gateway/internal/utils"
)

// UsageRepository persists usage records. Satisfied by storage.UsageRepository.
type UsageRepository interface {
	Create(ctx context.Context, record *models.UsageRecord) error
}

// Worker drains usage records off the queue and inserts them in batches.
// It is the asynchronous half of the ledger's best-effort contract: a record
// the worker ultimately cannot insert lands in the dead-letter queue instead
// of failing any request.
type Worker struct {
	queue       queue.Queue
	dlq         queue.DeadLetterQueue
	repo        UsageRepository
	config      *queue.Config
	stopChan    chan struct{}
	stoppedChan chan struct{}
}

// NewWorker creates a usage record worker.
func NewWorker(q queue.Queue, dlq queue.DeadLetterQueue, repo UsageRepository, config *queue.Config) *Worker {
	if config == nil {
		config = queue.DefaultConfig("usage")
	}

	return &Worker{
		queue:       q,
		dlq:         dlq,
		repo:        repo,
		config:      config,
		stopChan:    make(chan struct{}),
		stoppedChan: make(chan struct{}),
	}
}

// Start starts the worker goroutine.
func (w *Worker) Start(ctx context.Context) {
	go w.run(ctx)
}

// Stop gracefully stops the worker.
func (w *Worker) Stop() error {
	close(w.stopChan)
	<-w.stoppedChan
	return nil
}

// Enqueue adds a usage record to the queue. Implements the ledger Sink.
func (w *Worker) Enqueue(ctx context.Context, record *models.UsageRecord) error {
	return w.queue.Enqueue(ctx, record)
}

// run is the main worker loop.
func (w *Worker) run(ctx context.Context) {
	defer close(w.stoppedChan)

	logger := utils.NewLogger("usage-worker")

	for {
		select {
		case <-w.stopChan:
			logger.Info("Usage worker stopping")
			return
		case <-ctx.Done():
			logger.Info("Usage worker context cancelled")
			return
		default:
			w.processBatch(ctx, logger)
		}
	}
}

// processBatch drains up to one batch off the queue and inserts it.
func (w *Worker) processBatch(ctx context.Context, logger *utils.Logger) {
	items, err := w.queue.DequeueWithTimeout(ctx, w.config.BatchSize, w.config.BatchTimeout)
	if err != nil {
		logger.Error("Failed to dequeue usage records", "error", err)
		time.Sleep(1 * time.Second) // Back off on error
		return
	}

	if len(items) == 0 {
		return
	}

	logger.Debug("Processing usage batch", "count", len(items))

	for _, item := range items {
		var record models.UsageRecord
		if err := w.unmarshalItem(item, &record); err != nil {
			logger.Error("Failed to unmarshal usage record", "error", err)
			continue
		}
		if err := w.processItem(ctx, &record, logger); err != nil {
			logger.Error("Failed to process usage record", "error", err)
		}
	}
}

// processItem inserts a single usage record with retries, then dead-letters.
func (w *Worker) processItem(ctx context.Context, record *models.UsageRecord, logger *utils.Logger) error {
	var lastErr error
	for attempt := 0; attempt <= w.config.MaxRetries; attempt++ {
		if attempt > 0 {
			// Exponential backoff
			backoff := w.config.RetryBackoff * time.Duration(1<<uint(attempt-1))
			logger.Debug("Retrying usage record", "attempt", attempt, "backoff", backoff)
			time.Sleep(backoff)
		}

		if err := w.repo.Create(ctx, record); err != nil {
			lastErr = err
			logger.Error("Failed to insert usage record", "attempt", attempt, "error", err)
			continue
		}

		logger.Debug("Usage record inserted", "request_id", record.RequestID)
		return nil
	}

	// Max retries exceeded - add to dead letter queue
	if w.dlq != nil {
		if err := w.dlq.Add(ctx, record, lastErr); err != nil {
			logger.Error("Failed to add to dead letter queue", "error", err)
		} else {
			logger.Warn("Usage record moved to DLQ", "request_id", record.RequestID, "error", lastErr)
		}
	}

	return fmt.Errorf("max retries exceeded: %w", lastErr)
}

// unmarshalItem converts a queue item back into a UsageRecord. Redis-backed
// queues hand back raw JSON; the memory queue hands back the struct itself.
func (w *Worker) unmarshalItem(item interface{}, record *models.UsageRecord) error {
	switch v := item.(type) {
	case *models.UsageRecord:
		*record = *v
		return nil
	case models.UsageRecord:
		*record = v
		return nil
	case []byte:
		return json.Unmarshal(v, record)
	case json.RawMessage:
		return json.Unmarshal(v, record)
	default:
		data, err := json.Marshal(item)
		if err != nil {
			return fmt.Errorf("failed to marshal item: %w", err)
		}
		return json.Unmarshal(data, record)
	}
}

// QueueLength returns the current queue depth.
func (w *Worker) QueueLength(ctx context.Context) (int, error) {
	return w.queue.Length(ctx)
}

// DeadLetterItems lists records that exhausted their insert retries.
func (w *Worker) DeadLetterItems(ctx context.Context, maxItems int) ([]queue.DeadLetterItem, error) {
	if w.dlq == nil {
		return nil, fmt.Errorf("dead letter queue not configured")
	}
	return w.dlq.List(ctx, maxItems)
}
