package store

import (
	"context"
	"errors"
	"time"

	"pharma-redistribution-api-server/internal/apperror"

	"github.com/cenkalti/backoff/v4"
)

// RetryPolicy re-runs a unit that failed with apperror.KindTransaction. Each
// attempt re-executes fn from scratch, so state checks inside fn are repeated
// against committed data and an already applied change is never applied twice.
type RetryPolicy struct {
	MaxAttempts int
	BaseBackoff time.Duration
	MaxBackoff  time.Duration
	// Timeout bounds a single attempt; zero means only the caller's ctx applies.
	Timeout time.Duration
}

func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 3,
		BaseBackoff: 50 * time.Millisecond,
		MaxBackoff:  time.Second,
		Timeout:     5 * time.Second,
	}
}

// Execute returns the error of the last attempt, including when ctx ends
// while waiting between attempts.
func (p RetryPolicy) Execute(ctx context.Context, scope Scope, fn func(ctx context.Context, tx Tx) error) error {
	var last error
	operation := func() error {
		last = p.once(ctx, scope, fn)
		if last != nil && !apperror.IsRetryable(last) {
			return backoff.Permanent(last)
		}
		return last
	}
	if err := backoff.Retry(operation, backoff.WithContext(p.newBackOff(), ctx)); err != nil {
		if last != nil {
			return last
		}
		return err
	}
	return nil
}

func (p RetryPolicy) once(ctx context.Context, scope Scope, fn func(ctx context.Context, tx Tx) error) error {
	attemptCtx := ctx
	if p.Timeout > 0 {
		var cancel context.CancelFunc
		attemptCtx, cancel = context.WithTimeout(ctx, p.Timeout)
		defer cancel()
	}
	err := scope.Execute(attemptCtx, fn)
	if err != nil && apperror.KindOf(err) == "" && errors.Is(err, context.DeadlineExceeded) {
		return apperror.Transaction("transaction timed out", err)
	}
	return err
}

// newBackOff is exponential with jitter, capped at MaxBackoff, and stops after
// MaxAttempts-1 retries.
func (p RetryPolicy) newBackOff() backoff.BackOff {
	attempts := p.MaxAttempts
	if attempts <= 0 {
		attempts = 1
	}
	var b backoff.BackOff = &backoff.ZeroBackOff{}
	if p.BaseBackoff > 0 {
		exp := backoff.NewExponentialBackOff()
		exp.InitialInterval = p.BaseBackoff
		if p.MaxBackoff > 0 {
			exp.MaxInterval = p.MaxBackoff
		}
		exp.MaxElapsedTime = 0
		exp.Reset()
		b = exp
	}
	return backoff.WithMaxRetries(b, uint64(attempts-1))
}
