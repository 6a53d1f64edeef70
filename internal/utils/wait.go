package utils

import (
	"context"
	"time"
)

// maxBackoffShift caps the exponent so the delay cannot overflow.
const maxBackoffShift = 16

// WaitFor blocks for d or until ctx is done, whichever comes first.
func WaitFor(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Backoff returns unit * 2^attempt, attempt counted from zero.
func Backoff(unit time.Duration, attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	if attempt > maxBackoffShift {
		attempt = maxBackoffShift
	}
	return unit * time.Duration(1<<attempt)
}
