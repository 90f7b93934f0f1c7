package dispatch

import (
	"context"
	"math/rand/v2"
	"time"
)

// Pacer waits between outbound sends.
type Pacer interface {
	Pause(ctx context.Context) error
}

// RandomPacer sleeps a uniform duration in [Min, Max].
type RandomPacer struct {
	Min time.Duration
	Max time.Duration
}

func NewRandomPacer(minDelay, maxDelay time.Duration) RandomPacer {
	if maxDelay < minDelay {
		maxDelay = minDelay
	}
	return RandomPacer{Min: minDelay, Max: maxDelay}
}

// Next draws the next delay.
func (p RandomPacer) Next() time.Duration {
	if p.Max <= p.Min {
		return p.Min
	}
	return p.Min + rand.N(p.Max-p.Min+1)
}

func (p RandomPacer) Pause(ctx context.Context) error {
	d := p.Next()
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

// NoPacer never waits.
type NoPacer struct{}

func (NoPacer) Pause(ctx context.Context) error { return ctx.Err() }
