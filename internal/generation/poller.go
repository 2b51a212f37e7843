package generation

import (
	"context"
	"time"

	"creative_gateway/internal/providers"
	"creative_gateway/internal/utils"
)

// PollFunc queries a submitted job once. It reports done=true with the
// normalized result when the job finished; a non-nil error is always fatal.
type PollFunc func(ctx context.Context) (bool, *providers.MediaResult, error)

// SubmitFunc starts a long-running job and returns its poll function.
type SubmitFunc func(ctx context.Context) (PollFunc, error)

// Poller drives submit-then-poll providers. It blocks the calling goroutine
// for the duration of polling; concurrent requests poll independently and
// share no state.
type Poller struct {
	Interval time.Duration
	Deadline time.Duration

	logger *utils.Logger
}

// NewPoller creates a poller with a fixed poll interval and overall deadline.
func NewPoller(interval, deadline time.Duration) *Poller {
	return &Poller{
		Interval: interval,
		Deadline: deadline,
		logger:   utils.NewLogger("poller"),
	}
}

// SubmitAndAwait submits the job once (a submission failure propagates
// immediately, with no retry at this layer) and then polls on the fixed
// interval until the job completes, a poll fails, or the deadline elapses.
// Poll errors are fatal rather than retried so the total wait stays bounded.
func (p *Poller) SubmitAndAwait(ctx context.Context, submit SubmitFunc) (*providers.MediaResult, error) {
	poll, err := submit(ctx)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	polls := 0
	for {
		select {
		case <-time.After(p.Interval):
		case <-ctx.Done():
			return nil, ctx.Err()
		}

		polls++
		done, result, err := poll(ctx)
		if err != nil {
			return nil, err
		}
		if done {
			if result == nil {
				return nil, &providers.ProviderError{Status: 502, Message: "job finished without a result"}
			}
			p.logger.Debug("Job finished", "polls", polls, "elapsed_ms", time.Since(start).Milliseconds())
			return result, nil
		}

		if time.Since(start) >= p.Deadline {
			p.logger.Warn("Poll deadline elapsed, abandoning job", "polls", polls)
			return nil, ErrPollTimeout
		}
	}
}
