// Package retry wraps ledger collaborators with a bounded retry policy.
package retry

import (
	"context"
	"errors"
	"time"

	"course-ledger-service/internal/domain"
	"github.com/cenkalti/backoff/v4"
)

// Policy bounds how often and how patiently an operation is retried.
type Policy struct {
	MaxAttempts int
	NewBackOff  func() backoff.BackOff
}

// Exponential retries up to maxAttempts times with exponential, jittered delays.
func Exponential(maxAttempts int, initial, max time.Duration) Policy {
	return Policy{
		MaxAttempts: maxAttempts,
		NewBackOff: func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			if initial > 0 {
				b.InitialInterval = initial
			}
			if max > 0 {
				b.MaxInterval = max
			}
			b.MaxElapsedTime = 0
			return b
		},
	}
}

// NoDelay retries immediately; used in tests.
func NoDelay(maxAttempts int) Policy {
	return Policy{
		MaxAttempts: maxAttempts,
		NewBackOff:  func() backoff.BackOff { return &backoff.ZeroBackOff{} },
	}
}

func (p Policy) backOff(ctx context.Context) backoff.BackOff {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	var b backoff.BackOff = &backoff.ZeroBackOff{}
	if p.NewBackOff != nil {
		b = p.NewBackOff()
	}
	return backoff.WithContext(backoff.WithMaxRetries(b, uint64(attempts-1)), ctx)
}

// Retryable reports whether err is worth another attempt. Lookups that legitimately miss,
// rejected input and cancellation are final.
func Retryable(err error) bool {
	switch {
	case err == nil:
		return false
	case domain.IsNotFound(err), domain.IsValidation(err):
		return false
	case errors.Is(err, domain.ErrCertificateExists):
		return false
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return false
	}
	return true
}

// Do runs op until it succeeds, fails permanently, or the policy is exhausted.
func Do[T any](ctx context.Context, p Policy, op func() (T, error)) (T, error) {
	var result T
	err := backoff.Retry(func() error {
		v, err := op()
		if err != nil {
			if !Retryable(err) {
				return backoff.Permanent(err)
			}
			return err
		}
		result = v
		return nil
	}, p.backOff(ctx))
	return result, err
}
