package misc

import (
	"context"
	"time"
)

// Backoff is the list of pauses between attempts; its length caps the number of retries.
type Backoff []time.Duration

var DefaultBackoff = Backoff{
	1 * time.Second,
	3 * time.Second,
	5 * time.Second,
}

// Retry runs op until it succeeds, returns a non-retryable error, the
// backoff is exhausted, or ctx is done.
func (b Backoff) Retry(ctx context.Context, isRetryable func(error) bool, op func() error) error {
	var err error
	for i := 0; ; i++ {
		if err = op(); err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if i >= len(b) || !isRetryable(err) {
			return err
		}
		t := time.NewTimer(b[i])
		select {
		case <-ctx.Done():
			t.Stop()
			return ctx.Err()
		case <-t.C:
		}
	}
}

// Retry is shorthand for Backoff(delays).Retry.
func Retry(ctx context.Context, delays []time.Duration, isRetryable func(error) bool, op func() error) error {
	return Backoff(delays).Retry(ctx, isRetryable, op)
}
