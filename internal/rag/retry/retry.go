package retry

import (
	"context"
	"time"
)

// Do runs fn with a per-attempt timeout, retrying up to maxRetries extra
// times. Retries are only safe for idempotent read-only calls (embedding,
// generation); the attempt budget is always finite.
func Do(ctx context.Context, maxRetries int, timeout time.Duration, fn func(ctx context.Context) error) error {
	var lastErr error

	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(attempt) * 500 * time.Millisecond
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
			}
		}

		attemptCtx := ctx
		var cancel context.CancelFunc
		if timeout > 0 {
			attemptCtx, cancel = context.WithTimeout(ctx, timeout)
		}
		err := fn(attemptCtx)
		if cancel != nil {
			cancel()
		}
		if err == nil {
			return nil
		}
		lastErr = err

		// The caller is gone, stop burning attempts.
		if ctx.Err() != nil {
			return lastErr
		}
	}

	return lastErr
}
