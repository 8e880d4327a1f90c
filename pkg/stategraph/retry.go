package stategraph

import (
	"math/rand/v2"
	"time"
)

// RetryConfig configures the Retryable node wrapper.
type RetryConfig struct {
	// MaxAttempts is the maximum number of attempts (including the first).
	MaxAttempts int

	// InitialBackoff is the starting backoff duration.
	InitialBackoff time.Duration

	// MaxBackoff is the maximum backoff duration.
	MaxBackoff time.Duration

	// BackoffFactor is the multiplier applied to backoff after each attempt.
	BackoffFactor float64

	// Jitter is the random jitter factor (0.0-1.0).
	Jitter float64

	// RetryIf decides whether an error is worth another attempt.
	// Nil retries every error.
	RetryIf func(error) bool
}

// DefaultRetry is the standard retry configuration.
var DefaultRetry = RetryConfig{
	MaxAttempts:    3,
	InitialBackoff: 1 * time.Second,
	MaxBackoff:     30 * time.Second,
	BackoffFactor:  2.0,
	Jitter:         0.1,
}

// Retryable wraps a node function with retry behavior. The wrapped node
// re-runs against the same state snapshot until it succeeds, exhausts
// cfg.MaxAttempts, or returns an error RetryIf rejects. Backoff between
// attempts respects context cancellation.
//
// Useful for nodes calling flaky external services:
//
//	graph.AddNode("search", stategraph.Retryable(search, stategraph.DefaultRetry))
func Retryable(fn NodeFunc, cfg RetryConfig) NodeFunc {
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}

	return func(ctx Context, state State) (Update, error) {
		backoff := cfg.InitialBackoff
		var lastErr error

		for attempt := 0; attempt < cfg.MaxAttempts; attempt++ {
			if err := ctx.Err(); err != nil {
				return nil, err
			}

			upd, err := fn(ctx, state)
			if err == nil {
				return upd, nil
			}
			lastErr = err

			if cfg.RetryIf != nil && !cfg.RetryIf(err) {
				return nil, err
			}

			// No sleep after the last attempt.
			if attempt < cfg.MaxAttempts-1 && backoff > 0 {
				select {
				case <-ctx.Done():
					return nil, ctx.Err()
				case <-time.After(jittered(backoff, cfg.Jitter)):
				}

				backoff = time.Duration(float64(backoff) * cfg.BackoffFactor)
				if cfg.MaxBackoff > 0 && backoff > cfg.MaxBackoff {
					backoff = cfg.MaxBackoff
				}
			}
		}

		return nil, lastErr
	}
}

// jittered returns the backoff duration with jitter applied.
func jittered(base time.Duration, jitter float64) time.Duration {
	if jitter <= 0 {
		return base
	}
	amount := float64(base) * jitter * (rand.Float64()*2 - 1)
	return time.Duration(float64(base) + amount)
}
