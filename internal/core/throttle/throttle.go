// Package throttle paces upstream requests at a fixed interval
package throttle

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// DefaultInterval matches the upstream's tolerated request spacing
const DefaultInterval = 2 * time.Second

// Pacer is a token bucket with burst 1: the first Wait passes immediately and
// later ones are spaced at least one interval apart. Spacing is measured from
// the start of the previous request, so time spent in that request counts
// toward the interval. It is not safe for concurrent use; a run owns its pacer.
type Pacer struct {
	lim      *rate.Limiter
	interval time.Duration

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error

	waits int
	slept time.Duration
}

// Option customises a Pacer
type Option func(*Pacer)

// WithClock replaces the wall clock
func WithClock(now func() time.Time) Option { return func(p *Pacer) { p.now = now } }

// WithSleeper replaces the context-aware sleep
func WithSleeper(sleep func(ctx context.Context, d time.Duration) error) Option {
	return func(p *Pacer) { p.sleep = sleep }
}

// New returns a pacer spacing calls by interval; interval <= 0 disables pacing
func New(interval time.Duration, opts ...Option) *Pacer {
	limit := rate.Inf
	if interval > 0 {
		limit = rate.Every(interval)
	}
	p := &Pacer{
		lim:      rate.NewLimiter(limit, 1),
		interval: interval,
		now:      time.Now,
		sleep:    sleepCtx,
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

// Interval reports the configured spacing
func (p *Pacer) Interval() time.Duration { return p.interval }

// Wait blocks until the next request may be sent or ctx ends
func (p *Pacer) Wait(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	now := p.now()
	r := p.lim.ReserveN(now, 1)
	if !r.OK() {
		return context.Canceled
	}
	p.waits++
	d := r.DelayFrom(now)
	if d <= 0 {
		return nil
	}
	if err := p.sleep(ctx, d); err != nil {
		r.CancelAt(p.now())
		return err
	}
	p.slept += d
	return nil
}

// Stats reports how many times Wait granted a slot and the total time spent sleeping
func (p *Pacer) Stats() (waits int, slept time.Duration) { return p.waits, p.slept }

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
