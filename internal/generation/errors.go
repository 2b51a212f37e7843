package generation

import (
	"errors"
	"fmt"
)

// ErrPollTimeout is raised when a long-running job's poll deadline elapses.
// The remote job is not cancelled; its result, if any, is discarded. For
// models reached via polling a timeout is terminal: no fallback is attempted,
// since the job is usually still running server-side and retrying elsewhere
// would double-bill.
var ErrPollTimeout = errors.New("video job did not finish before the poll deadline")

// ValidationError rejects a malformed request before any provider call.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// PersistenceError means the generation succeeded but the durable upload
// failed. Surfaced as a failure even though compute cost was already
// incurred; returning an unverifiable ephemeral URL would be worse.
type PersistenceError struct {
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("failed to persist generated asset: %v", e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}
