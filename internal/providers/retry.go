package providers

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"
)

// RetryPolicy wraps a single synchronous provider call with bounded retries
// and linear backoff. It is call-scoped on purpose: it never spans a provider
// fallback hop and keeps no state across requests.
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
}

// DefaultRetryPolicy matches the vendor guidance for overload errors:
// three total tries, one second apart growing linearly.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxAttempts: 3, BaseDelay: time.Second}
}

// Execute runs fn, retrying transient failures up to MaxAttempts total tries
// with a sleep of BaseDelay × attempt between tries. Fatal errors and
// exhausted retries propagate the last error unchanged.
func (p RetryPolicy) Execute(ctx context.Context, fn func() error) error {
	maxAttempts := p.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		lastErr = fn()
		if lastErr == nil {
			return nil
		}
		if !IsTransient(lastErr) || attempt == maxAttempts {
			return lastErr
		}

		select {
		case <-time.After(p.BaseDelay * time.Duration(attempt)):
		case <-ctx.Done():
			return lastErr
		}
	}
	return lastErr
}

// IsTransient reports whether an error carries one of the known overload
// signatures: an HTTP 503 status, or the literal substrings "overloaded",
// "UNAVAILABLE" or "503" in the message. Anything else is fatal.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}

	var pe *ProviderError
	if errors.As(err, &pe) && pe.Status == http.StatusServiceUnavailable {
		return true
	}

	msg := err.Error()
	return strings.Contains(msg, "overloaded") ||
		strings.Contains(msg, "UNAVAILABLE") ||
		strings.Contains(msg, "503")
}
