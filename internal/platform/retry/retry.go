// Package retry provides the bounded retry combinator shared by the
// transaction and indexer read paths. Policies are expressed as
// backoff.BackOff values so callers can inject a fixed poll interval, the
// indexer's linear catch-up delay, or an exponential policy without
// changing the loop.
package retry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v5"
)

// ErrExhausted reports that the attempt budget was spent without success.
// The last attempt's error is wrapped alongside it.
var ErrExhausted = errors.New("retry attempts exhausted")

// Permanent marks err as terminal: Do returns it immediately without
// consuming further attempts.
func Permanent(err error) error {
	return backoff.Permanent(err)
}

// Constant returns a fixed-interval policy.
func Constant(interval time.Duration) backoff.BackOff {
	return backoff.NewConstantBackOff(interval)
}

// Linear returns a policy whose nth delay is base*n (base, 2*base, ...),
// matching the indexer's propagation-lag profile.
func Linear(base time.Duration) backoff.BackOff {
	return &linearBackOff{base: base}
}

type linearBackOff struct {
	base time.Duration
	n    int
}

func (l *linearBackOff) NextBackOff() time.Duration {
	l.n++
	return l.base * time.Duration(l.n)
}

func (l *linearBackOff) Reset() { l.n = 0 }

// Options bound a retry loop.
type Options struct {
	// MaxAttempts is the total number of attempts, including the first.
	MaxAttempts int
	// Policy yields the delay between attempts. Required when MaxAttempts > 1.
	Policy backoff.BackOff
	// DelayFirst applies the policy before the first attempt as well,
	// used by indexer reads that follow a just-finalized transaction.
	DelayFirst bool
	// Notify observes each failed attempt (1-based) before the next delay.
	Notify func(attempt int, err error)
	// Sleep overrides the delay implementation. Tests inject a recorder;
	// nil means a context-aware real sleep.
	Sleep func(ctx context.Context, d time.Duration) error
}

// Do runs op under the retry options. A Permanent error stops the loop and
// is returned unwrapped. Exhaustion returns an error matching ErrExhausted
// that also wraps the final attempt's error. Context cancellation stops
// the loop between attempts.
func Do[T any](ctx context.Context, opts Options, op func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	if opts.MaxAttempts <= 0 {
		return zero, fmt.Errorf("retry: max attempts must be positive, got %d", opts.MaxAttempts)
	}
	sleep := opts.Sleep
	if sleep == nil {
		sleep = sleepContext
	}
	if opts.Policy != nil {
		opts.Policy.Reset()
	}

	var lastErr error
	for attempt := 0; attempt < opts.MaxAttempts; attempt++ {
		if attempt > 0 || opts.DelayFirst {
			if opts.Policy == nil {
				return zero, errors.New("retry: policy is required")
			}
			if err := sleep(ctx, opts.Policy.NextBackOff()); err != nil {
				return zero, err
			}
		}

		result, err := op(ctx)
		if err == nil {
			return result, nil
		}

		var perm *backoff.PermanentError
		if errors.As(err, &perm) {
			return zero, perm.Unwrap()
		}
		if ctx.Err() != nil {
			return zero, ctx.Err()
		}

		lastErr = err
		if opts.Notify != nil {
			opts.Notify(attempt+1, err)
		}
	}
	return zero, fmt.Errorf("%w after %d attempts: %w", ErrExhausted, opts.MaxAttempts, lastErr)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
