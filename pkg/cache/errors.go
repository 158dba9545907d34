package cache

import (
	"context"
	"errors"
	"time"
)

// RetryableError marks a backend failure as transient (timeouts, dropped
// connections). Only marked errors trigger retries; everything else fails
// the operation immediately.
type RetryableError struct{ Err error }

// Retryable marks err as transient. Returns nil for a nil err.
func Retryable(err error) error {
	if err == nil {
		return nil
	}
	return &RetryableError{Err: err}
}

func (e *RetryableError) Error() string { return e.Err.Error() }

func (e *RetryableError) Unwrap() error { return e.Err }

// IsRetryable reports whether err is marked transient anywhere in its chain.
func IsRetryable(err error) bool {
	var re *RetryableError
	return errors.As(err, &re)
}

// RetryWithBackoff runs fn up to attempts times, doubling the delay between
// tries starting from base. Non-retryable errors and context cancellation
// stop the retries immediately.
func RetryWithBackoff(ctx context.Context, attempts int, base time.Duration, fn func() error) error {
	delay := base
	var lastErr error

	for i := 0; i < attempts; i++ {
		if err := fn(); err == nil {
			return nil
		} else if lastErr = err; !IsRetryable(err) {
			return err
		}

		if i < attempts-1 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
				delay *= 2
			}
		}
	}
	return lastErr
}
