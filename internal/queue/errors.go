package queue

import "errors"

var (
	// ErrQueueClosed is returned for any operation on a closed queue
	ErrQueueClosed = errors.New("queue is closed")

	// ErrItemNotFound is returned when removing an unknown DLQ item
	ErrItemNotFound = errors.New("item not found")

	// ErrMaxRetriesExceeded marks items headed for the dead-letter queue
	ErrMaxRetriesExceeded = errors.New("max retries exceeded")
)
