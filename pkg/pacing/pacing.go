// Package pacing provides the minimum-interval delays the pipeline applies
// between outbound calls, as a courtesy to third-party rate limits.
package pacing

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// Pacer enforces a minimum interval between calls to Wait. The zero value
// and a nil Pacer never block, so callers can thread an optional pacer
// through without nil checks.
type Pacer struct {
	limiter *rate.Limiter
}

// New creates a Pacer with the given minimum interval between calls.
// A non-positive interval yields a no-op pacer.
func New(interval time.Duration) *Pacer {
	if interval <= 0 {
		return &Pacer{}
	}
	return &Pacer{
		limiter: rate.NewLimiter(rate.Every(interval), 1),
	}
}

// Wait blocks until the interval since the previous call has elapsed, or the
// context is cancelled. The first call never blocks.
func (p *Pacer) Wait(ctx context.Context) error {
	if p == nil || p.limiter == nil {
		return nil
	}
	return p.limiter.Wait(ctx)
}
