package provider

import (
	"context"
	"errors"
	"time"

	"github.com/sony/gobreaker"
)

// ErrCircuitOpen is returned while the breaker rejects requests after
// repeated failures.
var ErrCircuitOpen = errors.New("provider: circuit breaker open")

// BreakerConfig tunes the failure threshold and recovery behavior.
type BreakerConfig struct {
	// MaxFailures trips the circuit after this many consecutive failures.
	MaxFailures uint32
	// Timeout is how long the circuit stays open before probing again.
	Timeout time.Duration
	// HalfOpenProbes is the number of trial requests allowed while half-open.
	HalfOpenProbes uint32
}

// DefaultBreakerConfig trips after 3 consecutive failures, stays open for
// 30 seconds, and closes again after 2 successful probes.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		MaxFailures:    3,
		Timeout:        30 * time.Second,
		HalfOpenProbes: 2,
	}
}

// breaker shields a provider's transport from cascading failures. Requests
// pass through while closed; after MaxFailures consecutive failures every
// call fails fast with ErrCircuitOpen until the timeout elapses.
type breaker struct {
	cb *gobreaker.CircuitBreaker
}

func newBreaker(name string, cfg BreakerConfig) *breaker {
	return &breaker{
		cb: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        name,
			MaxRequests: cfg.HalfOpenProbes,
			Timeout:     cfg.Timeout,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= cfg.MaxFailures
			},
		}),
	}
}

// execute runs fn through the breaker, honoring context cancellation on both
// sides of the call.
func (b *breaker) execute(ctx context.Context, fn func() (any, error)) (any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	result, err := b.cb.Execute(func() (any, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return fn()
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, ErrCircuitOpen
	}
	return result, err
}

// state reports "closed", "open", or "half-open".
func (b *breaker) state() string {
	switch b.cb.State() {
	case gobreaker.StateClosed:
		return "closed"
	case gobreaker.StateOpen:
		return "open"
	case gobreaker.StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}
