// Package backoff runs calls to external collaborators with bounded,
// jittered exponential retry.
package backoff

import (
	"context"
	"log/slog"
	"time"

	"github.com/sethvargo/go-retry"
)

// Config bounds a retried call. MaxAttempts counts the first call.
type Config struct {
	MaxAttempts  int
	BaseDelay    time.Duration
	MaxDelay     time.Duration
	Jitter       time.Duration
	TotalTimeout time.Duration
}

func DefaultConfig() Config {
	return Config{
		MaxAttempts:  4,
		BaseDelay:    time.Second,
		MaxDelay:     30 * time.Second,
		Jitter:       time.Second,
		TotalTimeout: 5 * time.Minute,
	}
}

// Retryable decides whether a failed attempt may be repeated.
type Retryable func(error) bool

func (c Config) backoff() retry.Backoff {
	attempts := c.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	base := c.BaseDelay
	if base <= 0 {
		base = time.Millisecond
	}

	b := retry.NewExponential(base)
	if c.MaxDelay > 0 {
		b = retry.WithCappedDuration(c.MaxDelay, b)
	}
	if c.Jitter > 0 {
		b = retry.WithJitter(c.Jitter, b)
	}
	return retry.WithMaxRetries(uint64(attempts-1), b) // #nosec G115 -- attempts >= 1
}

// Do calls fn until it succeeds, returns an error that retryable rejects,
// runs out of attempts, or the total timeout expires. The last error from fn
// is returned unwrapped.
func Do[T any](ctx context.Context, cfg Config, retryable Retryable, fn func(context.Context) (T, error)) (T, error) {
	if cfg.TotalTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.TotalTimeout)
		defer cancel()
	}

	var (
		result  T
		attempt int
	)
	err := retry.Do(ctx, cfg.backoff(), func(ctx context.Context) error {
		attempt++
		res, err := fn(ctx)
		if err == nil {
			result = res
			return nil
		}
		if retryable != nil && retryable(err) {
			slog.Default().Warn("retrying call", "attempt", attempt, "error", err)
			return retry.RetryableError(err)
		}
		return err
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return result, nil
}
