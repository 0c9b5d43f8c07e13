package resilience

import (
	"context"
	"errors"
	"fmt"
)

// ErrRetriesExhausted is returned when a retryable failure persists past the policy
var ErrRetriesExhausted = errors.New("retries exhausted")

// RetryPolicy bounds how many times a unit of work is retried
type RetryPolicy struct {
	MaxRetries int
}

// ShouldRetry reports whether another attempt is allowed after `retries` retries
func (p RetryPolicy) ShouldRetry(retries int) bool {
	return retries < p.MaxRetries
}

// Do runs fn until it succeeds, fails with a non-retryable error, or the
// policy is exhausted. Waiting between attempts is the caller's concern
// (usually a Gate wait inside fn).
func Do(ctx context.Context, policy RetryPolicy, retryable func(error) bool, fn func(attempt int) error) error {
	for attempt := 0; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		err := fn(attempt)
		if err == nil || !retryable(err) {
			return err
		}
		if !policy.ShouldRetry(attempt) {
			return fmt.Errorf("%w after %d attempts: %w", ErrRetriesExhausted, attempt+1, err)
		}
	}
}
