// Package retry re-runs operations that fail transiently, sleeping an
// exponentially growing, jittered delay between attempts.
//
//	err := retry.Do(ctx, func(ctx context.Context) error {
//	    return fetch(ctx)
//	}, retry.WithAttempts(3))
//
// Return Abort(err) from the operation to stop retrying immediately.
package retry

import (
	"context"
	"errors"
	"math"
	"math/rand/v2"
	"time"
)

const (
	defaultAttempts  = 4
	defaultBaseDelay = 100 * time.Millisecond
	defaultMaxDelay  = 2 * time.Second
	defaultFactor    = 2.0
)

// Attempts is the maximum number of calls, the first one included.
type Attempts uint

// ExpBackoff grows the delay as Base * Factor^retry, capped at Max.
type ExpBackoff struct {
	Base   time.Duration
	Max    time.Duration
	Factor float64
}

// Delay returns the wait before retry number n, counting from zero.
func (b ExpBackoff) Delay(n uint) time.Duration {
	d := time.Duration(float64(b.Base) * math.Pow(b.Factor, float64(n)))

	switch {
	case d < b.Base:
		return b.Base
	case d > b.Max:
		return b.Max
	default:
		return d
	}
}

// Jitter is the randomized share of each delay: 0 keeps delays exact,
// 1 draws them uniformly from [0, delay).
type Jitter float64

const (
	WithoutJitter Jitter = 0
	EqualJitter   Jitter = 0.5
	FullJitter    Jitter = 1
)

func (j Jitter) apply(d time.Duration) time.Duration {
	if j <= 0 || d <= 0 {
		return d
	}

	j = min(j, 1)

	//nolint:gosec // jitter does not need a cryptographic source
	random := rand.Float64() * float64(d)

	return time.Duration(float64(j)*random + float64(1-j)*float64(d))
}

type options struct {
	attempts Attempts
	backoff  ExpBackoff
	jitter   Jitter
}

// Option configures Do and DoValue.
type Option func(*options)

// WithAttempts sets the maximum number of calls. Zero means one call.
func WithAttempts(a Attempts) Option {
	return func(o *options) {
		o.attempts = max(a, 1)
	}
}

// WithBackoff replaces the default 100ms..2s doubling backoff.
func WithBackoff(b ExpBackoff) Option {
	return func(o *options) {
		o.backoff = b
	}
}

// WithJitter replaces the default FullJitter.
func WithJitter(j Jitter) Option {
	return func(o *options) {
		o.jitter = j
	}
}

type permanentError struct {
	err error
}

func (e *permanentError) Error() string { return e.err.Error() }

func (e *permanentError) Unwrap() error { return e.err }

// Abort marks err as not worth retrying. Do returns err itself, unwrapped.
// Abort(nil) is nil.
func Abort(err error) error {
	if err == nil {
		return nil
	}

	return &permanentError{err: err}
}

type attemptKey struct{}

// Attempt reports which call of a retry loop ctx belongs to, from zero.
func Attempt(ctx context.Context) uint {
	n, _ := ctx.Value(attemptKey{}).(uint)

	return n
}

// Do calls f until it succeeds, returns an aborted error, the attempts
// run out, or ctx is done. It returns the last error f produced, or the
// context's error when cancelled while waiting.
func Do(ctx context.Context, f func(ctx context.Context) error, opts ...Option) error {
	o := options{
		attempts: defaultAttempts,
		backoff:  ExpBackoff{Base: defaultBaseDelay, Max: defaultMaxDelay, Factor: defaultFactor},
		jitter:   FullJitter,
	}

	for _, opt := range opts {
		opt(&o)
	}

	var err error

	for n := range uint(o.attempts) {
		if n > 0 {
			timer := time.NewTimer(o.jitter.apply(o.backoff.Delay(n - 1)))

			select {
			case <-ctx.Done():
				timer.Stop()

				return ctx.Err() //nolint:wrapcheck
			case <-timer.C:
			}
		}

		err = f(context.WithValue(ctx, attemptKey{}, n))
		if err == nil {
			return nil
		}

		var permanent *permanentError
		if errors.As(err, &permanent) {
			return permanent.err
		}

		if ctx.Err() != nil {
			return err
		}
	}

	return err
}

// DoValue is Do for operations that produce a value.
func DoValue[T any](ctx context.Context, f func(ctx context.Context) (T, error), opts ...Option) (T, error) {
	var out T

	err := Do(ctx, func(ctx context.Context) error {
		var err error

		out, err = f(ctx)

		return err
	}, opts...)
	if err != nil {
		var zero T

		return zero, err
	}

	return out, nil
}
