package backend

import (
	"context"
	"errors"
	"time"
)

// RetryPolicy spells out which error categories are retried and how
// often. The zero value retries nothing, so every retry a client
// performs is visible in its configuration.
type RetryPolicy struct {
	// MaxAttempts counts the first try. Values below 1 behave as 1.
	MaxAttempts int
	// RetryUnavailable retries transport-level failures.
	RetryUnavailable bool
	// RetryRateLimited retries 429s, honoring the Retry-After hint when
	// it fits inside Backoff*4, otherwise giving up.
	RetryRateLimited bool
	// Backoff is the base delay between attempts, doubled each retry.
	Backoff time.Duration
}

// DefaultRetryPolicy retries transient transport failures twice and
// leaves rate limits and auth failures to the caller.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:      3,
		RetryUnavailable: true,
		Backoff:          250 * time.Millisecond,
	}
}

func (p RetryPolicy) attempts() int {
	if p.MaxAttempts < 1 {
		return 1
	}
	return p.MaxAttempts
}

// shouldRetry decides whether the given failure is retryable under this
// policy and returns the delay to wait before the next attempt.
func (p RetryPolicy) shouldRetry(err error, attempt int) (time.Duration, bool) {
	if err == nil || attempt >= p.attempts()-1 {
		return 0, false
	}

	delay := p.Backoff
	if delay <= 0 {
		delay = 100 * time.Millisecond
	}
	for i := 0; i < attempt; i++ {
		delay *= 2
	}

	if errors.Is(err, ErrUnavailable) {
		return delay, p.RetryUnavailable
	}

	var rl *RateLimitError
	if errors.As(err, &rl) {
		if !p.RetryRateLimited {
			return 0, false
		}
		if rl.RetryAfter > 0 {
			if rl.RetryAfter > 4*delay {
				return 0, false
			}
			return rl.RetryAfter, true
		}
		return delay, true
	}

	return 0, false
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
