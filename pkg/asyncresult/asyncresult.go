// Package asyncresult implements the "result channel with a synchronous
// continuation" primitive the timer queue needs to chain a worker pool's
// outcome into the caller-visible handle returned at enqueue time.
//
// Go has neither boost::future::then nor a built-in promise type, so this
// is the capability-based stand-in: a one-shot value slot with a write end
// (Resolve) and a read end (Get/Done/Then). It resolves exactly once;
// later calls to Resolve are no-ops.
package asyncresult

import (
	"context"
	"sync"
)

// AsyncResult is a one-shot slot for either a value of type R or an error.
// The zero value is not usable; construct one with New.
type AsyncResult[R any] struct {
	mu        sync.Mutex
	done      chan struct{}
	value     R
	err       error
	resolved  bool
	callbacks []func(R, error)
}

// New creates an unresolved AsyncResult.
func New[R any]() *AsyncResult[R] {
	return &AsyncResult[R]{done: make(chan struct{})}
}

// Resolve sets the final value and error, waking any waiters and running
// any continuations registered via Then. Only the first call to Resolve
// has any effect; it must never be called more than once by a correct
// producer, but a second call is tolerated rather than treated as a bug.
func (r *AsyncResult[R]) Resolve(value R, err error) {
	r.mu.Lock()
	if r.resolved {
		r.mu.Unlock()
		return
	}
	r.resolved = true
	r.value = value
	r.err = err
	callbacks := r.callbacks
	r.callbacks = nil
	close(r.done)
	r.mu.Unlock()

	for _, cb := range callbacks {
		cb(value, err)
	}
}

// Then registers a continuation that runs with the final value and error
// as soon as they are available. If the result is already resolved, cb
// runs synchronously before Then returns. Otherwise it runs in whichever
// goroutine calls Resolve. cb must not block.
func (r *AsyncResult[R]) Then(cb func(value R, err error)) {
	r.mu.Lock()
	if r.resolved {
		value, err := r.value, r.err
		r.mu.Unlock()
		cb(value, err)
		return
	}
	r.callbacks = append(r.callbacks, cb)
	r.mu.Unlock()
}

// Done returns a channel that is closed once the result is resolved.
func (r *AsyncResult[R]) Done() <-chan struct{} {
	return r.done
}

// Get blocks until the result resolves or ctx is done, whichever comes
// first.
func (r *AsyncResult[R]) Get(ctx context.Context) (R, error) {
	select {
	case <-r.done:
		return r.value, r.err
	case <-ctx.Done():
		var zero R
		return zero, ctx.Err()
	}
}

// TryGet returns the result's value and error along with whether it has
// resolved yet. It never blocks.
func (r *AsyncResult[R]) TryGet() (value R, err error, ok bool) {
	select {
	case <-r.done:
		return r.value, r.err, true
	default:
		var zero R
		return zero, nil, false
	}
}
