// Package retry provides the single retry-with-backoff combinator used by
// every storage and network call in edgeprint.
//
// Only errors marked with [Retryable] trigger another attempt; anything else
// is returned immediately. The delay doubles after each failed attempt.
// When all attempts fail, [Do] returns an error with code
// RETRIES_EXHAUSTED wrapping the last failure.
//
//	err := retry.Do(ctx, retry.DefaultPolicy, func() error {
//	    data, err = store.Download(ctx, path)
//	    return err
//	})
package retry

import (
	"context"
	"errors"
	"time"

	perrors "github.com/matzehuels/edgeprint/pkg/errors"
)

// Default policy values: 3 attempts, doubling from a 1 second base.
const (
	DefaultAttempts  = 3
	DefaultBaseDelay = time.Second
)

// DefaultPolicy is the policy used when callers have no configuration.
var DefaultPolicy = Policy{Attempts: DefaultAttempts, BaseDelay: DefaultBaseDelay}

// Policy bounds a retry loop.
type Policy struct {
	// Attempts is the total number of calls, including the first. Values below 1 mean 1.
	Attempts int
	// BaseDelay is the wait before the second attempt; it doubles afterwards.
	BaseDelay time.Duration
	// OnRetry, if set, is called before each wait with the attempt number (1-based)
	// that just failed, the error, and the delay that follows.
	OnRetry func(attempt int, err error, delay time.Duration)
}

// RetryableError wraps an error to indicate it should trigger a retry.
// Wrap transient failures (network timeouts, 5xx responses, storage hiccups)
// with this type so that [Do] knows to attempt the operation again.
type RetryableError struct{ Err error }

func (e *RetryableError) Error() string { return e.Err.Error() }
func (e *RetryableError) Unwrap() error { return e.Err }

// Retryable marks err as transient. Retryable(nil) returns nil.
func Retryable(err error) error {
	if err == nil {
		return nil
	}
	return &RetryableError{Err: err}
}

// IsRetryable reports whether err, or anything it wraps, is a [RetryableError].
func IsRetryable(err error) bool {
	return errors.As(err, new(*RetryableError))
}

// Do executes fn until it succeeds, returns a non-retryable error, or the
// policy's attempts are used up. Returns ctx.Err() if cancelled while waiting.
func Do(ctx context.Context, p Policy, fn func() error) error {
	attempts := max(p.Attempts, 1)
	delay := p.BaseDelay
	var lastErr error

	for i := range attempts {
		if err := fn(); err == nil {
			return nil
		} else if lastErr = err; !IsRetryable(err) {
			return err
		}

		if i < attempts-1 {
			if p.OnRetry != nil {
				p.OnRetry(i+1, lastErr, delay)
			}
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
				delay *= 2
			}
		}
	}
	return perrors.Wrap(perrors.ErrCodeRetriesExhausted, lastErr, "giving up after %d attempts", attempts)
}

// Value is [Do] for operations that produce a result.
func Value[T any](ctx context.Context, p Policy, fn func() (T, error)) (T, error) {
	var out T
	err := Do(ctx, p, func() error {
		v, err := fn()
		if err != nil {
			return err
		}
		out = v
		return nil
	})
	return out, err
}
