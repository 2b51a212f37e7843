package providers

import (
	"context"
	"errors"
	"testing"
	"time"
)

func fastPolicy() RetryPolicy {
	return RetryPolicy{MaxAttempts: 3, BaseDelay: time.Millisecond}
}

func TestRetryPolicy_SucceedsAfterTransientFailures(t *testing.T) {
	calls := 0
	err := fastPolicy().Execute(context.Background(), func() error {
		calls++
		if calls < 3 {
			return &ProviderError{Provider: ProviderGoogle, Status: 503, Message: "service unavailable"}
		}
		return nil
	})

	if err != nil {
		t.Fatalf("expected success after retries, got: %v", err)
	}
	if calls != 3 {
		t.Errorf("expected 3 attempts, got %d", calls)
	}
}

func TestRetryPolicy_FatalErrorDoesNotRetry(t *testing.T) {
	calls := 0
	fatal := &ProviderError{Provider: ProviderGoogle, Status: 400, Message: "invalid argument"}
	err := fastPolicy().Execute(context.Background(), func() error {
		calls++
		return fatal
	})

	if !errors.Is(err, fatal) {
		t.Fatalf("expected the fatal error back, got: %v", err)
	}
	if calls != 1 {
		t.Errorf("fatal errors must not retry, got %d attempts", calls)
	}
}

func TestRetryPolicy_ExhaustsAttempts(t *testing.T) {
	calls := 0
	err := fastPolicy().Execute(context.Background(), func() error {
		calls++
		return errors.New("model is overloaded, try again")
	})

	if err == nil {
		t.Fatal("expected the last error after exhausting retries")
	}
	if calls != 3 {
		t.Errorf("expected exactly 3 attempts, got %d", calls)
	}
}

func TestRetryPolicy_ContextCancelStopsBackoff(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	calls := 0
	policy := RetryPolicy{MaxAttempts: 5, BaseDelay: time.Hour}
	err := policy.Execute(ctx, func() error {
		calls++
		return errors.New("UNAVAILABLE")
	})

	if err == nil {
		t.Fatal("expected an error")
	}
	if calls != 1 {
		t.Errorf("expected a single attempt with cancelled context, got %d", calls)
	}
}

func TestIsTransient(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"provider 503", &ProviderError{Status: 503}, true},
		{"provider 400", &ProviderError{Status: 400, Message: "bad request"}, false},
		{"overloaded message", errors.New("the model is overloaded"), true},
		{"unavailable message", errors.New("rpc error: UNAVAILABLE"), true},
		{"plain failure", errors.New("connection refused"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsTransient(tt.err); got != tt.want {
				t.Errorf("IsTransient(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}
