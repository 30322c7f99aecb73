package retry

import (
	"context"
	"time"
)

// Do runs op up to attempts times, doubling the delay between attempts
// starting from baseDelay. It returns nil on the first success, the last
// error once attempts are exhausted, or the context error if ctx is done
// while waiting.
func Do(ctx context.Context, attempts int, baseDelay time.Duration, op func() error) error {
	if attempts < 1 {
		attempts = 1
	}

	var err error
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(baseDelay << (attempt - 1)):
			}
		}

		if err = op(); err == nil {
			return nil
		}
	}
	return err
}
