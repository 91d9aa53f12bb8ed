package provider

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"
)

func fastPolicy() RetryPolicy {
	return RetryPolicy{MaxAttempts: 3, BaseDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond}
}

func TestRetrySucceedsAfterTransientFailures(t *testing.T) {
	calls := 0
	err := Retry(context.Background(), fastPolicy(), func() error {
		calls++
		if calls < 3 {
			return fmt.Errorf("%w: connection reset", ErrNetwork)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Retry failed: %v", err)
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
}

func TestRetryTerminalErrorsImmediate(t *testing.T) {
	for _, terminal := range []error{ErrAuthenticationFailed, ErrQuotaExceeded} {
		calls := 0
		err := Retry(context.Background(), fastPolicy(), func() error {
			calls++
			return terminal
		})
		if !errors.Is(err, terminal) {
			t.Errorf("err = %v, want %v", err, terminal)
		}
		if calls != 1 {
			t.Errorf("calls for %v = %d, want 1 (no retry)", terminal, calls)
		}
	}
}

func TestRetryRateLimitedIsRetried(t *testing.T) {
	calls := 0
	err := Retry(context.Background(), fastPolicy(), func() error {
		calls++
		if calls == 1 {
			return &RateLimitedError{RetryAfter: time.Millisecond}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Retry failed: %v", err)
	}
	if calls != 2 {
		t.Errorf("calls = %d, want 2", calls)
	}
}

func TestRetryExhaustionSurfacesLastError(t *testing.T) {
	err := Retry(context.Background(), fastPolicy(), func() error {
		return fmt.Errorf("%w: timeout", ErrNetwork)
	})
	if err == nil {
		t.Fatal("expected exhaustion error")
	}
	if !errors.Is(err, ErrNetwork) {
		t.Errorf("err = %v, want wrapped ErrNetwork", err)
	}
}

func TestRetryHonorsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	policy := RetryPolicy{MaxAttempts: 5, BaseDelay: time.Hour, MaxDelay: time.Hour}

	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()
	err := Retry(ctx, policy, func() error {
		calls++
		return fmt.Errorf("%w: flaky", ErrNetwork)
	})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1 (cancelled during backoff)", calls)
	}
}

func TestBackoffDelayCapped(t *testing.T) {
	policy := RetryPolicy{MaxAttempts: 10, BaseDelay: time.Second, MaxDelay: 30 * time.Second}
	for attempt := 1; attempt < 10; attempt++ {
		d := backoffDelay(policy, attempt, ErrNetwork)
		if d > policy.MaxDelay {
			t.Errorf("attempt %d delay = %s, exceeds cap %s", attempt, d, policy.MaxDelay)
		}
	}
}

func TestBackoffDelayHonorsRetryAfter(t *testing.T) {
	policy := RetryPolicy{MaxAttempts: 3, BaseDelay: time.Second, MaxDelay: 30 * time.Second}
	hint := &RateLimitedError{RetryAfter: 10 * time.Second}
	if d := backoffDelay(policy, 1, hint); d != 10*time.Second {
		t.Errorf("delay = %s, want the 10s server hint", d)
	}

	// The hint never stretches past the cap.
	big := &RateLimitedError{RetryAfter: 5 * time.Minute}
	if d := backoffDelay(policy, 1, big); d != policy.MaxDelay {
		t.Errorf("delay = %s, want capped at %s", d, policy.MaxDelay)
	}
}

func TestIsTerminal(t *testing.T) {
	tests := []struct {
		err  error
		want bool
	}{
		{ErrAuthenticationFailed, true},
		{ErrQuotaExceeded, true},
		{fmt.Errorf("wrapped: %w", ErrAuthenticationFailed), true},
		{ErrNetwork, false},
		{ErrUnavailable, false},
		{&RateLimitedError{}, false},
		{errors.New("some logic error"), true},
	}
	for _, tt := range tests {
		if got := IsTerminal(tt.err); got != tt.want {
			t.Errorf("IsTerminal(%v) = %v, want %v", tt.err, got, tt.want)
		}
	}
}
