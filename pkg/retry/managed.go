package retry

import (
	"sync"
	"time"

	cbackoff "github.com/cenkalti/backoff/v4"
)

// BackoffV5Policy adapts cenkalti/backoff/v4's exponential backoff engine
// to the RetryPolicy interface, so it can be handed to NewRetryExecutor
// like any policy in this package. Unlike ExponentialBackoffRetry, which
// computes delay as a pure function of attempt, this policy advances an
// internal generator sequentially and so must only be driven by a single
// RetryExecutor loop at a time between Reset calls.
type BackoffV5Policy struct {
	maxAttempts int
	mu          sync.Mutex
	eb          *cbackoff.ExponentialBackOff
}

// NewBackoffV5Policy creates a RetryPolicy backed by cenkalti/backoff/v4's
// exponential backoff. configure is handed the library's own
// ExponentialBackOff so callers can tune InitialInterval, MaxInterval,
// Multiplier, and RandomizationFactor directly; it may be nil to accept
// the library's defaults.
func NewBackoffV5Policy(maxAttempts int, configure func(*cbackoff.ExponentialBackOff)) *BackoffV5Policy {
	eb := cbackoff.NewExponentialBackOff()
	if configure != nil {
		configure(eb)
		// The constructor already reset eb with the default intervals;
		// reset again so the first delay uses the configured values.
		eb.Reset()
	}
	return &BackoffV5Policy{maxAttempts: maxAttempts, eb: eb}
}

// ShouldRetry reports whether attempt is within maxAttempts.
func (p *BackoffV5Policy) ShouldRetry(err error, attempt int) bool {
	return err != nil && attempt < p.maxAttempts
}

// NextDelay advances the underlying generator and returns its next delay.
func (p *BackoffV5Policy) NextDelay(attempt int) time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()

	d := p.eb.NextBackOff()
	if d == cbackoff.Stop {
		return p.eb.MaxInterval
	}
	return d
}

// MaxAttempts returns the configured attempt ceiling.
func (p *BackoffV5Policy) MaxAttempts() int { return p.maxAttempts }

// Reset rewinds the underlying generator to its initial state.
func (p *BackoffV5Policy) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.eb.Reset()
}
