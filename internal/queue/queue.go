// Package queue buffers usage records between the request path and the
// database writer. Two backends share one interface:
//
//   - memory: channel-based, nothing survives a restart, no external
//     dependencies. Good for development and single-node deployments.
//   - redis: list-based, records survive restarts and can be drained by
//     workers on other nodes.
//
// A record flows request -> queue -> batch worker -> usage_records table.
// Records the worker cannot insert after its retries land in a dead-letter
// queue for manual inspection instead of being dropped.
package queue

import (
	"context"
	"time"
)

// Queue is the delivery buffer for usage records.
type Queue interface {
	// Enqueue appends an item. Non-blocking unless the buffer is full.
	Enqueue(ctx context.Context, item any) error

	// Dequeue blocks until at least one item is available, then drains up
	// to maxItems without further blocking.
	Dequeue(ctx context.Context, maxItems int) ([]any, error)

	// DequeueWithTimeout is Dequeue with a bounded wait for the first
	// item. Returns an empty slice when the timeout elapses.
	DequeueWithTimeout(ctx context.Context, maxItems int, timeout time.Duration) ([]any, error)

	// Length reports the current backlog
	Length(ctx context.Context) (int, error)

	// Close shuts the queue down; further operations fail with
	// ErrQueueClosed.
	Close() error
}

// DeadLetterQueue holds items that exhausted their processing retries.
type DeadLetterQueue interface {
	Add(ctx context.Context, item any, err error) error
	List(ctx context.Context, maxItems int) ([]DeadLetterItem, error)
	Remove(ctx context.Context, id string) error
	Close() error
}

// DeadLetterItem wraps a failed item with the error that killed it.
type DeadLetterItem struct {
	ID        string
	Item      any
	Error     string
	Timestamp time.Time
	Retries   int
}

// Config tunes the queue and the batch worker that drains it.
type Config struct {
	// BatchSize caps how many items one worker pass drains
	BatchSize int

	// BatchTimeout bounds how long a pass waits for a first item
	BatchTimeout time.Duration

	// MaxRetries is how many times the worker re-attempts an insert
	MaxRetries int

	// RetryBackoff is the initial backoff, doubled per retry
	RetryBackoff time.Duration

	// UseRedis selects the Redis backend over the in-memory one
	UseRedis bool

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// QueueName namespaces the Redis keys (queue:<name>, dlq:<name>)
	QueueName string
}

// DefaultConfig returns the memory-backed defaults for a named queue.
func DefaultConfig(queueName string) *Config {
	return &Config{
		BatchSize:    100,
		BatchTimeout: 5 * time.Second,
		MaxRetries:   3,
		RetryBackoff: 1 * time.Second,
		UseRedis:     false,
		QueueName:    queueName,
	}
}
