package browser

import (
	"context"
	"math/rand/v2"
	"time"
)

// Delay is a random pause between page interactions, so that a session does not click
// through the page faster than a person would.
type Delay struct {
	Min time.Duration
	Max time.Duration
}

// NewDelay returns a Delay in [lo, hi]. Negative bounds are clamped to zero and
// swapped bounds are reordered.
func NewDelay(lo, hi time.Duration) Delay {
	if lo < 0 {
		lo = 0
	}
	if hi < 0 {
		hi = 0
	}
	if hi < lo {
		lo, hi = hi, lo
	}
	return Delay{Min: lo, Max: hi}
}

// Next returns a random duration in [Min, Max].
func (d Delay) Next() time.Duration {
	if d.Max <= d.Min {
		return d.Min
	}
	return d.Min + rand.N(d.Max-d.Min+1)
}

// Wait sleeps for Next() or until ctx is done.
func (d Delay) Wait(ctx context.Context) error {
	wait := d.Next()
	if wait <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(wait)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
