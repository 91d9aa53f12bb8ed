package provider

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// RetryPolicy bounds the backoff loop around a network-backed provider call.
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
}

// DefaultRetryPolicy retries transient failures up to 3 times with
// exponential backoff capped at 30 seconds.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 3,
		BaseDelay:   time.Second,
		MaxDelay:    30 * time.Second,
	}
}

// Retry runs fn, retrying transient failures per the policy. Terminal errors
// (authentication, quota) propagate immediately. A rate-limit error with a
// server-provided hint waits at least that long before the next attempt.
func Retry(ctx context.Context, policy RetryPolicy, fn func() error) error {
	if policy.MaxAttempts < 1 {
		policy.MaxAttempts = 1
	}

	var lastErr error
	for attempt := 0; attempt < policy.MaxAttempts; attempt++ {
		if attempt > 0 {
			delay := backoffDelay(policy, attempt, lastErr)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}

		lastErr = fn()
		if lastErr == nil {
			return nil
		}
		if IsTerminal(lastErr) {
			return lastErr
		}
	}
	return fmt.Errorf("provider: %d attempts exhausted: %w", policy.MaxAttempts, lastErr)
}

// backoffDelay doubles per attempt, capped at MaxDelay, and honors a
// rate-limit retry hint when it is longer than the computed delay.
func backoffDelay(policy RetryPolicy, attempt int, lastErr error) time.Duration {
	delay := policy.BaseDelay << (attempt - 1)
	if delay > policy.MaxDelay || delay <= 0 {
		delay = policy.MaxDelay
	}

	var rl *RateLimitedError
	if errors.As(lastErr, &rl) && rl.RetryAfter > delay {
		delay = rl.RetryAfter
		if delay > policy.MaxDelay {
			delay = policy.MaxDelay
		}
	}
	return delay
}
