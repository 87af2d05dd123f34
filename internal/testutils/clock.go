package testutils

import (
	"context"
	"testing"
	"time"

	"github.com/coder/quartz"
	"github.com/nullstream/timerq/pkg/clock"
)

// NewMockClock creates a quartz mock clock for deterministic tests.
func NewMockClock(t testing.TB) *quartz.Mock {
	return quartz.NewMock(t)
}

// ClockWrapper adapts quartz.Mock to this module's clock.Clock interface.
type ClockWrapper struct {
	*quartz.Mock
}

// NewClockWrapper wraps mock as a clock.Clock.
func NewClockWrapper(mock *quartz.Mock) *ClockWrapper {
	return &ClockWrapper{Mock: mock}
}

func (c *ClockWrapper) After(d time.Duration) <-chan time.Time {
	return c.Mock.NewTimer(d).C
}

func (c *ClockWrapper) Sleep(d time.Duration) {
	<-c.Mock.NewTimer(d).C
}

func (c *ClockWrapper) Now() time.Time { return c.Mock.Now() }

func (c *ClockWrapper) Since(t time.Time) time.Duration { return c.Mock.Since(t) }

func (c *ClockWrapper) NewTimer(d time.Duration) clock.Timer {
	return &timerWrapper{timer: c.Mock.NewTimer(d)}
}

func (c *ClockWrapper) NewTicker(d time.Duration) clock.Ticker {
	return &tickerWrapper{ticker: c.Mock.NewTicker(d)}
}

type timerWrapper struct{ timer *quartz.Timer }

func (t *timerWrapper) C() <-chan time.Time        { return t.timer.C }
func (t *timerWrapper) Stop() bool                 { return t.timer.Stop() }
func (t *timerWrapper) Reset(d time.Duration) bool { return t.timer.Reset(d) }

type tickerWrapper struct{ ticker *quartz.Ticker }

func (t *tickerWrapper) C() <-chan time.Time      { return t.ticker.C }
func (t *tickerWrapper) Stop()                    { t.ticker.Stop() }
func (t *tickerWrapper) Reset(d time.Duration)    { t.ticker.Reset(d) }

// WithMockClock returns ctx carrying mock, retrievable via clock.FromContext.
func WithMockClock(ctx context.Context, mock *quartz.Mock) context.Context {
	return clock.WithClock(ctx, NewClockWrapper(mock))
}
