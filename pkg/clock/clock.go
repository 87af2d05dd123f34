// Package clock abstracts time so the timer queue and worker pool can be
// driven by a mock clock in tests instead of the wall clock.
package clock

import (
	"context"
	"time"
)

// Clock provides the time operations the timer queue and worker pool need:
// sampling "now", strict ordering of timepoints (inherited from time.Time),
// and bounded waits until a timepoint.
type Clock interface {
	// Now returns the current time.
	Now() time.Time
	// After returns a channel that delivers the current time after d.
	After(d time.Duration) <-chan time.Time
	// Sleep blocks for d.
	Sleep(d time.Duration)
	// Since returns the time elapsed since t.
	Since(t time.Time) time.Duration
	// NewTimer creates a new Timer.
	NewTimer(d time.Duration) Timer
	// NewTicker creates a new Ticker.
	NewTicker(d time.Duration) Ticker
}

// Timer provides timer operations.
type Timer interface {
	C() <-chan time.Time
	Stop() bool
	Reset(d time.Duration) bool
}

// Ticker provides ticker operations.
type Ticker interface {
	C() <-chan time.Time
	Stop()
	Reset(d time.Duration)
}

// Real implements Clock using the real wall clock.
type Real struct{}

// NewReal creates a Clock backed by the standard library's time package.
func NewReal() Clock {
	return &Real{}
}

func (c *Real) Now() time.Time { return time.Now() }

func (c *Real) After(d time.Duration) <-chan time.Time { return time.After(d) }

func (c *Real) Sleep(d time.Duration) { time.Sleep(d) }

func (c *Real) Since(t time.Time) time.Duration { return time.Since(t) }

func (c *Real) NewTimer(d time.Duration) Timer {
	return &realTimer{timer: time.NewTimer(d)}
}

func (c *Real) NewTicker(d time.Duration) Ticker {
	return &realTicker{ticker: time.NewTicker(d)}
}

type realTimer struct {
	timer *time.Timer
}

func (t *realTimer) C() <-chan time.Time      { return t.timer.C }
func (t *realTimer) Stop() bool               { return t.timer.Stop() }
func (t *realTimer) Reset(d time.Duration) bool { return t.timer.Reset(d) }

type realTicker struct {
	ticker *time.Ticker
}

func (t *realTicker) C() <-chan time.Time        { return t.ticker.C }
func (t *realTicker) Stop()                      { t.ticker.Stop() }
func (t *realTicker) Reset(d time.Duration)      { t.ticker.Reset(d) }

// contextKey scopes the clock value stored on a context.Context.
type contextKey struct{}

// WithClock attaches a Clock to ctx.
func WithClock(ctx context.Context, c Clock) context.Context {
	return context.WithValue(ctx, contextKey{}, c)
}

// FromContext retrieves the Clock attached to ctx, or Real if none was
// attached.
func FromContext(ctx context.Context) Clock {
	if c, ok := ctx.Value(contextKey{}).(Clock); ok {
		return c
	}
	return NewReal()
}
