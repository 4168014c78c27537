// Package backoff paces the worker loop after something went wrong: a job
// that was put back on the queue, or a queue that could not be read.
package backoff

import (
	"context"
	"time"
)

// Backoff is a fixed pause. Every failure waits the same amount of time, so
// a broken queue is polled at a steady rate instead of drifting away.
type Backoff struct {
	delay time.Duration
}

// Fixed returns a Backoff that always waits d. A non-positive d never waits.
func Fixed(d time.Duration) *Backoff {
	if d < 0 {
		d = 0
	}
	return &Backoff{delay: d}
}

func (b *Backoff) Duration() time.Duration {
	return b.delay
}

// Sleep waits for the delay or until ctx is done, whichever comes first. It
// returns ctx.Err() when interrupted.
func (b *Backoff) Sleep(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if b.delay == 0 {
		return nil
	}
	timer := time.NewTimer(b.delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
