package recording

import (
	"context"
	"time"
)

// Clock is the host frame clock that drives Session.Tick.
type Clock interface {
	C() <-chan time.Time
	Stop()
}

type tickerClock struct{ t *time.Ticker }

// NewTickerClock ticks at fps, 30 when fps is not positive.
func NewTickerClock(fps float64) Clock {
	if fps <= 0 {
		fps = 30
	}
	return tickerClock{t: time.NewTicker(time.Duration(float64(time.Second) / fps))}
}

func (c tickerClock) C() <-chan time.Time { return c.t.C }
func (c tickerClock) Stop()               { c.t.Stop() }

// Run feeds clock ticks into s until a tick reports the session stopped or
// ctx ends. Each tick runs to completion before the next is taken; ticks
// that arrive while one is in progress are dropped by the ticker.
func Run(ctx context.Context, s *Session, clock Clock) error {
	defer clock.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.Done():
			return nil
		case now := <-clock.C():
			if !s.Tick(now) {
				return nil
			}
		}
	}
}

// ManualClock is a Clock driven by explicit Advance calls.
type ManualClock struct {
	ch  chan time.Time
	now time.Time
}

func NewManualClock(start time.Time) *ManualClock {
	return &ManualClock{ch: make(chan time.Time), now: start}
}

func (c *ManualClock) C() <-chan time.Time { return c.ch }
func (c *ManualClock) Stop()               {}

// Advance moves the clock by d and delivers one tick, blocking until Run
// takes it or ctx ends.
func (c *ManualClock) Advance(ctx context.Context, d time.Duration) bool {
	c.now = c.now.Add(d)
	select {
	case c.ch <- c.now:
		return true
	case <-ctx.Done():
		return false
	}
}
