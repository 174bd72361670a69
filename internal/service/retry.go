package service

import (
	"context"
	"fmt"
	"time"
)

// retryFixed calls fn up to attempts times, waiting delay between failures.
// It returns the number of attempts made and the last error. A cancelled ctx
// interrupts the wait; the returned error then wraps ctx.Err().
func retryFixed(ctx context.Context, attempts int, delay time.Duration, fn func(context.Context) error) (int, error) {
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if attempt > 1 {
			timer := time.NewTimer(delay)
			select {
			case <-timer.C:
			case <-ctx.Done():
				timer.Stop()
				return attempt - 1, fmt.Errorf("%w (last error: %v)", ctx.Err(), lastErr)
			}
		}

		lastErr = fn(ctx)
		if lastErr == nil {
			return attempt, nil
		}
	}
	return attempts, lastErr
}
