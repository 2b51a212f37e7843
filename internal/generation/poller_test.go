package generation

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"creative_gateway/internal/providers"
)

func TestPoller_ReturnsResultWhenJobFinishes(t *testing.T) {
	poller := NewPoller(time.Millisecond, time.Second)
	want := &providers.MediaResult{ContentType: "video/mp4", DurationSeconds: 8}

	var polls int32
	submit := func(ctx context.Context) (PollFunc, error) {
		return func(ctx context.Context) (bool, *providers.MediaResult, error) {
			if atomic.AddInt32(&polls, 1) < 3 {
				return false, nil, nil
			}
			return true, want, nil
		}, nil
	}

	got, err := poller.SubmitAndAwait(context.Background(), submit)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != want {
		t.Errorf("unexpected result: %+v", got)
	}
	if atomic.LoadInt32(&polls) != 3 {
		t.Errorf("expected 3 polls, got %d", polls)
	}
}

func TestPoller_TimeoutPollCount(t *testing.T) {
	// 50ms interval against a 120ms deadline: the deadline check runs after
	// each poll, so the job is queried exactly ceil(120/50) = 3 times.
	poller := NewPoller(50*time.Millisecond, 120*time.Millisecond)

	var polls int32
	submit := func(ctx context.Context) (PollFunc, error) {
		return func(ctx context.Context) (bool, *providers.MediaResult, error) {
			atomic.AddInt32(&polls, 1)
			return false, nil, nil
		}, nil
	}

	_, err := poller.SubmitAndAwait(context.Background(), submit)
	if !errors.Is(err, ErrPollTimeout) {
		t.Fatalf("expected ErrPollTimeout, got: %v", err)
	}
	if got := atomic.LoadInt32(&polls); got != 3 {
		t.Errorf("expected 3 polls before timeout, got %d", got)
	}
}

func TestPoller_SubmissionFailurePropagates(t *testing.T) {
	poller := NewPoller(time.Millisecond, time.Second)
	submitErr := &providers.ProviderError{Provider: providers.ProviderGoogle, Status: 400, Message: "bad prompt"}

	_, err := poller.SubmitAndAwait(context.Background(), func(ctx context.Context) (PollFunc, error) {
		return nil, submitErr
	})

	if !errors.Is(err, submitErr) {
		t.Fatalf("expected submission error back, got: %v", err)
	}
}

func TestPoller_PollErrorIsFatal(t *testing.T) {
	poller := NewPoller(time.Millisecond, time.Second)
	pollErr := errors.New("operation lookup failed")

	var polls int32
	_, err := poller.SubmitAndAwait(context.Background(), func(ctx context.Context) (PollFunc, error) {
		return func(ctx context.Context) (bool, *providers.MediaResult, error) {
			atomic.AddInt32(&polls, 1)
			return false, nil, pollErr
		}, nil
	})

	if !errors.Is(err, pollErr) {
		t.Fatalf("expected poll error back, got: %v", err)
	}
	if atomic.LoadInt32(&polls) != 1 {
		t.Errorf("poll errors must not be retried, got %d polls", polls)
	}
}

func TestPoller_ContextCancellation(t *testing.T) {
	poller := NewPoller(50*time.Millisecond, time.Minute)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := poller.SubmitAndAwait(ctx, func(ctx context.Context) (PollFunc, error) {
		return func(ctx context.Context) (bool, *providers.MediaResult, error) {
			return false, nil, nil
		}, nil
	})

	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got: %v", err)
	}
}
