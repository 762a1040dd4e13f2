// Package retry implements deterministic exponential backoff for single
// network calls.
//
// The policy wraps one idempotent-or-safe-to-repeat call, never a
// multi-step operation: retrying a composite would risk double side
// effects such as a double delete.
package retry

import (
	"context"
	"time"

	"github.com/omnistor/omnistor/pkg/provider"
)

// Config tunes the retry policy.
type Config struct {
	// MaxAttempts is the total number of attempts, including the first.
	MaxAttempts int

	// InitialDelay is the sleep before the second attempt.
	InitialDelay time.Duration

	// MaxDelay caps the grown delay.
	MaxDelay time.Duration

	// BackoffMultiplier grows the delay after each failed attempt.
	BackoffMultiplier float64

	// IsRetryable decides whether a failure is worth another attempt.
	// Nil uses provider.IsRetryable (throttle, timeout, 5xx-class).
	IsRetryable func(error) bool
}

// DefaultConfig returns the engine-wide default policy.
func DefaultConfig() Config {
	return Config{
		MaxAttempts:       3,
		InitialDelay:      200 * time.Millisecond,
		MaxDelay:          5 * time.Second,
		BackoffMultiplier: 2.0,
	}
}

func (c Config) normalized() Config {
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = DefaultConfig().MaxAttempts
	}
	if c.InitialDelay <= 0 {
		c.InitialDelay = DefaultConfig().InitialDelay
	}
	if c.MaxDelay <= 0 {
		c.MaxDelay = DefaultConfig().MaxDelay
	}
	if c.BackoffMultiplier < 1 {
		c.BackoffMultiplier = DefaultConfig().BackoffMultiplier
	}
	if c.IsRetryable == nil {
		c.IsRetryable = provider.IsRetryable
	}
	return c
}

// Do runs fn until it succeeds, the error is non-retryable, the attempt
// budget is exhausted, or ctx is cancelled. The delay sequence is
// deterministic (no jitter): delay starts at InitialDelay and is
// multiplied by BackoffMultiplier after each failure, capped at MaxDelay.
func Do(ctx context.Context, cfg Config, fn func(ctx context.Context) error) error {
	cfg = cfg.normalized()

	delay := cfg.InitialDelay
	var err error
	for attempt := 1; ; attempt++ {
		err = fn(ctx)
		if err == nil {
			return nil
		}
		if attempt >= cfg.MaxAttempts || !cfg.IsRetryable(err) {
			return err
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}

		delay = time.Duration(float64(delay) * cfg.BackoffMultiplier)
		if delay > cfg.MaxDelay {
			delay = cfg.MaxDelay
		}
	}
}
