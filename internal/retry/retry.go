// Package retry provides bounded fixed-delay retry for fallible external
// calls. Every oracle and tool invocation in the system goes through Do so
// transient provider errors (rate limits, timeouts) do not immediately fail
// a task. Do bounds attempts, not wall time: a hung operation is only bounded
// by its own context.
package retry

import (
	"context"
	"fmt"
	"time"
)

const (
	DefaultAttempts = 3
	DefaultDelay    = 1000 * time.Millisecond
)

// Do invokes op up to attempts times, sleeping a fixed delay between failed
// attempts. It returns the first successful result, or the last error once
// attempts are exhausted. Context cancellation interrupts the inter-attempt
// wait and is returned immediately.
func Do[T any](ctx context.Context, attempts int, delay time.Duration, op func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	if attempts <= 0 {
		attempts = DefaultAttempts
	}

	var lastErr error
	for i := 1; i <= attempts; i++ {
		v, err := op(ctx)
		if err == nil {
			return v, nil
		}
		lastErr = err
		if i == attempts {
			break
		}
		select {
		case <-ctx.Done():
			return zero, ctx.Err()
		case <-time.After(delay):
		}
	}
	return zero, fmt.Errorf("after %d attempts: %w", attempts, lastErr)
}
