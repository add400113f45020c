package retry

import (
	"context"
	"time"
)

const (
	DefaultMaxRetries   = 3
	DefaultInitialDelay = 500 * time.Millisecond
)

// Options controls the retry policy: the operation runs once, then up to
// MaxRetries additional times, sleeping InitialDelay before the first retry
// and doubling the delay each time after.
type Options struct {
	MaxRetries   int
	InitialDelay time.Duration
}

func DefaultOptions() Options {
	return Options{
		MaxRetries:   DefaultMaxRetries,
		InitialDelay: DefaultInitialDelay,
	}
}

// Do runs fn until it succeeds or retries are exhausted, returning the last
// error. Context cancellation aborts the backoff wait.
func Do(ctx context.Context, fn func() error, opts Options) error {
	delay := opts.InitialDelay

	var err error
	for attempt := 0; ; attempt++ {
		if err = fn(); err == nil {
			return nil
		}

		if attempt >= opts.MaxRetries {
			return err
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}

		delay *= 2
	}
}
