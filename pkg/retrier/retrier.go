// Package retrier retries fallible calls with capped exponential backoff.
package retrier

import (
	"context"
	"math/rand"
	"time"

	"github.com/pkg/errors"
)

const (
	defaultInitialInterval = 500 * time.Millisecond
	defaultMaxInterval     = 10 * time.Second
	defaultMaxRetries      = 3
	defaultJitter          = 0.1
)

// permanent marks an error that must not be retried.
type permanent struct {
	err error
}

func (p permanent) Error() string { return p.err.Error() }

func (p permanent) Unwrap() error { return p.err }

// Permanent wraps err so Do returns it immediately.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return permanent{err: err}
}

// Retrier doubles the wait after every failed attempt, up to maxInterval.
type Retrier struct {
	initialInterval time.Duration
	maxInterval     time.Duration
	maxRetries      int
	jitter          float64
	onRetry         func(attempt int, err error)
}

// Option configures the Retrier.
type Option func(*Retrier)

// WithInitialInterval sets the wait before the first retry.
func WithInitialInterval(d time.Duration) Option {
	return func(r *Retrier) {
		r.initialInterval = d
	}
}

// WithMaxInterval caps the wait between retries.
func WithMaxInterval(d time.Duration) Option {
	return func(r *Retrier) {
		r.maxInterval = d
	}
}

// WithMaxRetries sets how many times a failed call is repeated.
func WithMaxRetries(n int) Option {
	return func(r *Retrier) {
		r.maxRetries = n
	}
}

// WithOnRetry registers a hook called before every retry, e.g. for logging.
func WithOnRetry(fn func(attempt int, err error)) Option {
	return func(r *Retrier) {
		r.onRetry = fn
	}
}

// New creates a Retrier with defaults and optional overrides.
func New(opts ...Option) *Retrier {
	r := &Retrier{
		initialInterval: defaultInitialInterval,
		maxInterval:     defaultMaxInterval,
		maxRetries:      defaultMaxRetries,
		jitter:          defaultJitter,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Do calls fn until it succeeds, returns a Permanent error, retries run out or ctx is done.
func (r *Retrier) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	interval := r.initialInterval

	var err error
	for attempt := 0; attempt <= r.maxRetries; attempt++ {
		if attempt > 0 {
			if r.onRetry != nil {
				r.onRetry(attempt, err)
			}

			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(r.withJitter(interval)):
			}

			interval *= 2
			if interval > r.maxInterval {
				interval = r.maxInterval
			}
		}

		err = fn(ctx)
		if err == nil {
			return nil
		}

		var p permanent
		if errors.As(err, &p) {
			return p.err
		}
	}

	return err
}

func (r *Retrier) withJitter(d time.Duration) time.Duration {
	delta := (rand.Float64()*2 - 1) * r.jitter * float64(d)
	if out := time.Duration(float64(d) + delta); out > 0 {
		return out
	}
	return 0
}

// DoWithData is Do for calls that return a value.
func DoWithData[T any](ctx context.Context, r *Retrier, fn func(ctx context.Context) (T, error)) (T, error) {
	var result T
	err := r.Do(ctx, func(ctx context.Context) error {
		var e error
		result, e = fn(ctx)
		return e
	})
	return result, err
}
