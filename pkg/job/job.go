// Package job defines the unit of work the timer queue schedules and the
// worker pool executes.
package job

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/google/uuid"
)

// Job is a movable, invocable unit of work producing a value of type R.
// A Job may fail by returning a non-nil error; the failure is captured by
// the worker pool and surfaced through the caller's result handle, never
// propagated into the dispatcher or a worker's own control flow.
type Job[R any] interface {
	// Execute runs the job and returns its result or error.
	Execute(ctx context.Context) (R, error)
	// ID returns an identifier used for diagnostics and tracing.
	ID() string
}

// idCounter is used only to make the fallback ID readable in logs when the
// caller does not care to provide one; correctness never depends on it.
var idCounter int64

// Func adapts a plain function into a Job[R].
type Func[R any] struct {
	id string
	fn func(ctx context.Context) (R, error)
}

// NewFunc wraps fn as a Job[R] with a generated ID.
func NewFunc[R any](fn func(ctx context.Context) (R, error)) *Func[R] {
	n := atomic.AddInt64(&idCounter, 1)
	return &Func[R]{id: fmt.Sprintf("job-%d-%s", n, uuid.NewString()), fn: fn}
}

// NewFuncWithID wraps fn as a Job[R] with a caller-supplied ID.
func NewFuncWithID[R any](id string, fn func(ctx context.Context) (R, error)) *Func[R] {
	return &Func[R]{id: id, fn: fn}
}

// Execute runs the wrapped function.
func (f *Func[R]) Execute(ctx context.Context) (R, error) {
	if f.fn == nil {
		var zero R
		return zero, fmt.Errorf("job %s has no execution function", f.id)
	}
	return f.fn(ctx)
}

// ID returns the job's identifier.
func (f *Func[R]) ID() string { return f.id }
