package retry

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	goretry "github.com/sethvargo/go-retry"
)

// ErrExhausted wraps the last error once every attempt has failed.
var ErrExhausted = errors.New("retry attempts exhausted")

// Delay produces the wait before the given retry (1 for the wait after the
// first failed attempt).
type Delay func(retry int) time.Duration

// Fixed waits d between every attempt.
func Fixed(d time.Duration) Delay {
	return func(int) time.Duration { return d }
}

// Exponential waits base * 2^(retry-1), scaled by a jitter factor in [0.5, 1.0).
func Exponential(base time.Duration) Delay {
	return func(retry int) time.Duration {
		if retry < 1 {
			retry = 1
		}
		backoff := base << (retry - 1)
		jitter := 0.5 + rand.Float64()*0.5 //nolint:gosec // jitter does not need crypto randomness
		return time.Duration(float64(backoff) * jitter)
	}
}

// Policy retries an operation up to Attempts times, waiting Delay between
// attempts. The zero Policy runs the operation once.
type Policy struct {
	Attempts int
	Delay    Delay
}

// New returns a Policy with the given attempt budget and delay strategy.
func New(attempts int, delay Delay) Policy {
	return Policy{Attempts: attempts, Delay: delay}
}

type permanentError struct {
	err error
}

func (e *permanentError) Error() string {
	return e.err.Error()
}

func (e *permanentError) Unwrap() error {
	return e.err
}

// Permanent marks err as not worth retrying. Do returns it unwrapped.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// Attempt is called once per attempt with the 1-based attempt number.
type Attempt func(ctx context.Context, attempt int) error

// Do runs fn until it succeeds, returns a Permanent error, the context is
// done, or the attempt budget is spent. After exhaustion the returned error
// wraps both ErrExhausted and the last attempt's error.
func (p Policy) Do(ctx context.Context, fn Attempt) error {
	attempts := p.Attempts
	if attempts < 1 {
		attempts = 1
	}
	delay := p.Delay
	if delay == nil {
		delay = Fixed(0)
	}

	var (
		attempt int
		lastErr error
	)
	backoff := goretry.WithMaxRetries(uint64(attempts-1), goretry.BackoffFunc(func() (time.Duration, bool) {
		return delay(attempt), false
	}))

	err := goretry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++
		err := fn(ctx, attempt)
		if err == nil {
			return nil
		}
		var perm *permanentError
		if errors.As(err, &perm) {
			return perm
		}
		lastErr = err
		return goretry.RetryableError(err)
	})
	if err == nil {
		return nil
	}

	var perm *permanentError
	if errors.As(err, &perm) {
		return perm.err
	}
	if lastErr != nil && attempt >= attempts {
		return fmt.Errorf("%w after %d attempts: %w", ErrExhausted, attempt, lastErr)
	}
	return err
}
