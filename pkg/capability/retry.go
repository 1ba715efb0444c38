package capability

import (
	"context"
	"time"
)

// RetryPolicy bounds how often a retryable capability failure is retried
// before the step is marked failed.
type RetryPolicy struct {
	MaxAttempts int
	Backoff     time.Duration
}

// DefaultRetryPolicy allows one retry with a short pause, matching the
// behaviour providers expect for idempotent UPI status calls.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxAttempts: 2, Backoff: 100 * time.Millisecond}
}

// Attempts returns the total attempt budget, never less than one.
func (p RetryPolicy) Attempts() int {
	if p.MaxAttempts < 1 {
		return 1
	}
	return p.MaxAttempts
}

// Do runs fn up to the policy's attempt budget, pausing Backoff between
// attempts. Only retryable capability errors trigger another attempt.
// It returns the number of attempts made and the last error.
func Do(ctx context.Context, policy RetryPolicy, fn func(ctx context.Context) error) (int, error) {
	var lastErr error
	budget := policy.Attempts()
	for attempt := 1; attempt <= budget; attempt++ {
		lastErr = fn(ctx)
		if lastErr == nil {
			return attempt, nil
		}
		if !IsRetryable(lastErr) || attempt == budget {
			return attempt, lastErr
		}
		if policy.Backoff > 0 {
			timer := time.NewTimer(policy.Backoff)
			select {
			case <-ctx.Done():
				timer.Stop()
				return attempt, ctx.Err()
			case <-timer.C:
			}
		}
	}
	return budget, lastErr
}
