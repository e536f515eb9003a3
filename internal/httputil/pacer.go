// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package httputil

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/time/rate"
)

// Clock abstracts time so pacing can be tested without real sleeps.
type Clock interface {
	Now() time.Time
	After(d time.Duration) <-chan time.Time
}

type realClock struct{}

func (realClock) Now() time.Time                         { return time.Now() }
func (realClock) After(d time.Duration) <-chan time.Time { return time.After(d) }

// Pacer enforces a minimum interval between consecutive calls to one
// upstream. The first slot is also delayed by one interval from
// construction, so a freshly built client never fires immediately.
//
// Pacing is a blocking wait independent of call outcome. It is not a retry
// mechanism. A nil *Pacer never waits.
type Pacer struct {
	lim      *rate.Limiter
	clock    Clock
	interval time.Duration
}

// PacerOption configures a Pacer.
type PacerOption func(*Pacer)

// WithClock substitutes the time source.
func WithClock(c Clock) PacerOption {
	return func(p *Pacer) { p.clock = c }
}

// NewPacer returns a Pacer granting one slot per interval. An interval of
// zero or less disables pacing.
func NewPacer(interval time.Duration, opts ...PacerOption) *Pacer {
	p := &Pacer{clock: realClock{}, interval: interval}
	for _, o := range opts {
		o(p)
	}
	if interval <= 0 {
		p.lim = rate.NewLimiter(rate.Inf, 1)
		return p
	}
	p.lim = rate.NewLimiter(rate.Every(interval), 1)
	// Spend the initial burst so the first call waits too.
	p.lim.ReserveN(p.clock.Now(), 1)
	return p
}

// Interval returns the configured minimum spacing.
func (p *Pacer) Interval() time.Duration {
	if p == nil {
		return 0
	}
	return p.interval
}

// AwaitSlot blocks until the next slot is available or ctx is done. A
// cancelled wait returns its reservation so later callers are not delayed.
func (p *Pacer) AwaitSlot(ctx context.Context) error {
	if p == nil {
		return nil
	}
	now := p.clock.Now()
	r := p.lim.ReserveN(now, 1)
	if !r.OK() {
		return fmt.Errorf("pacer: reservation refused")
	}
	d := r.DelayFrom(now)
	if d <= 0 {
		return nil
	}
	select {
	case <-ctx.Done():
		r.CancelAt(p.clock.Now())
		return ctx.Err()
	case <-p.clock.After(d):
		return nil
	}
}
