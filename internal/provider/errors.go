package provider

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"
)

// Terminal errors are never retried; transient ones go through the backoff
// policy in Retry.
var (
	// ErrAuthenticationFailed means the credentials were rejected.
	ErrAuthenticationFailed = errors.New("provider: authentication failed")

	// ErrQuotaExceeded means the account is out of quota.
	ErrQuotaExceeded = errors.New("provider: quota exceeded")

	// ErrNetwork is a generic transient transport failure.
	ErrNetwork = errors.New("provider: network error")

	// ErrUnavailable means the provider is not ready to serve requests.
	ErrUnavailable = errors.New("provider: unavailable")

	// ErrGenerationFailed wraps an underlying provider failure; the original
	// message is preserved for the caller.
	ErrGenerationFailed = errors.New("provider: generation failed")
)

// RateLimitedError is transient and carries the server-provided retry hint.
type RateLimitedError struct {
	RetryAfter time.Duration
}

func (e *RateLimitedError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("provider: rate limited, retry after %s", e.RetryAfter)
	}
	return "provider: rate limited"
}

// IsTerminal reports whether the error should not be retried.
func IsTerminal(err error) bool {
	if errors.Is(err, ErrAuthenticationFailed) || errors.Is(err, ErrQuotaExceeded) {
		return true
	}
	var rl *RateLimitedError
	if errors.As(err, &rl) {
		return false
	}
	if errors.Is(err, ErrNetwork) || errors.Is(err, ErrUnavailable) {
		return false
	}
	// Unknown errors are treated as terminal; retrying a logic error helps
	// nobody.
	return true
}

// classifyHTTPError maps an HTTP failure status to the error taxonomy.
func classifyHTTPError(resp *http.Response, body string) error {
	switch resp.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return fmt.Errorf("%w: status %d: %s", ErrAuthenticationFailed, resp.StatusCode, body)
	case http.StatusPaymentRequired:
		return fmt.Errorf("%w: status %d: %s", ErrQuotaExceeded, resp.StatusCode, body)
	case http.StatusTooManyRequests:
		return &RateLimitedError{RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After"))}
	}
	if resp.StatusCode >= 500 {
		return fmt.Errorf("%w: status %d: %s", ErrNetwork, resp.StatusCode, body)
	}
	return fmt.Errorf("%w: status %d: %s", ErrGenerationFailed, resp.StatusCode, body)
}

func parseRetryAfter(header string) time.Duration {
	if header == "" {
		return 0
	}
	if secs, err := strconv.Atoi(header); err == nil && secs >= 0 {
		return time.Duration(secs) * time.Second
	}
	if at, err := http.ParseTime(header); err == nil {
		if d := time.Until(at); d > 0 {
			return d
		}
	}
	return 0
}
