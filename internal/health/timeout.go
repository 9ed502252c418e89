package health

import (
	"context"
	"errors"
	"time"
)

// ErrTimeout is returned when an operation loses the race against its
// deadline.
var ErrTimeout = errors.New("health: operation timed out")

// runWithTimeout races fn against a deadline. Whichever finishes first
// wins; the loser's context is cancelled.
func runWithTimeout(ctx context.Context, d time.Duration, fn func(ctx context.Context) error) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- fn(ctx)
	}()

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case err := <-done:
		return err
	case <-timer.C:
		return ErrTimeout
	case <-ctx.Done():
		return ctx.Err()
	}
}
