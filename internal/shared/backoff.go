package shared

import (
	"context"
	"math/rand"
	"time"
)

// Backoff is an explicit wait policy: a fixed base interval plus a uniformly
// random jitter on top.
//
// It replaces literal sleep calls in polling loops so intervals stay
// testable without real timers.
type Backoff struct {
	Base   time.Duration // minimum wait
	Jitter time.Duration // random extra wait in [0, Jitter)
}

// Next returns the duration of the next wait.
func (b Backoff) Next() time.Duration {
	d := b.Base
	if b.Jitter > 0 {
		d += time.Duration(rand.Int63n(int64(b.Jitter)))
	}
	return d
}

// Sleeper waits for a duration, honoring context cancellation.
//
// Production code uses TimerSleeper; tests substitute a recording fake.
type Sleeper interface {
	Sleep(ctx context.Context, d time.Duration) error
}

// TimerSleeper implements Sleeper with a real timer.
type TimerSleeper struct{}

func (TimerSleeper) Sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Wait sleeps for the policy's next interval using the given Sleeper.
func (b Backoff) Wait(ctx context.Context, s Sleeper) error {
	return s.Sleep(ctx, b.Next())
}
