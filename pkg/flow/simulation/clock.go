package simulation

import (
	"context"
	"time"
)

// Clock abstracts pacing so simulations can run in real time or instantly.
type Clock interface {
	Now() time.Time
	Sleep(ctx context.Context, d time.Duration) error
}

// RealClock paces against wall time.
type RealClock struct{}

func (RealClock) Now() time.Time {
	return time.Now()
}

func (RealClock) Sleep(ctx context.Context, d time.Duration) error {
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

// InstantClock never waits and advances its notion of now by each requested
// sleep, keeping timestamps monotonic across a replay.
type InstantClock struct {
	current time.Time
}

func NewInstantClock(start time.Time) *InstantClock {
	return &InstantClock{current: start}
}

func (c *InstantClock) Now() time.Time {
	return c.current
}

func (c *InstantClock) Sleep(ctx context.Context, d time.Duration) error {
	if d > 0 {
		c.current = c.current.Add(d)
	}
	return ctx.Err()
}
