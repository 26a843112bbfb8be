package pipeline

import (
	"context"
	"time"

	"github.com/aqua777/go-legalrag/schema"
)

const (
	defaultMaxAttempts  = 3
	defaultRetryBackoff = 500 * time.Millisecond
)

// withRetry runs fn up to maxAttempts times with doubling backoff. Only
// transient failures are retried; input and integrity errors surface
// immediately.
func withRetry(ctx context.Context, maxAttempts int, backoff time.Duration, fn func() error) error {
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	var err error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
			}
			backoff *= 2
		}

		if err = fn(); err == nil {
			return nil
		}
		if !schema.IsTransient(err) {
			return err
		}
	}
	return err
}
