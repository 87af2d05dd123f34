package workerpool

import (
	"context"
	"fmt"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/nullstream/timerq/internal/errors"
)

// workerState mirrors the three phases a single worker goroutine moves
// through; it exists only for Stats()/diagnostics.
type workerState int32

const (
	workerStateIdle workerState = iota
	workerStateWorking
	workerStateStopped
)

// worker pulls envelopes off the pool's shared job channel and runs them
// one at a time, recovering from panics so one bad job can never take
// down the pool.
type worker[R any] struct {
	id    int
	jobs  <-chan envelope[R]
	cfg   Config
	quit  chan struct{}
	done  chan struct{}
	st    int32
	total int64
	fail  int64
}

func newWorker[R any](id int, jobs <-chan envelope[R], cfg Config) *worker[R] {
	return &worker[R]{
		id:   id,
		jobs: jobs,
		cfg:  cfg,
		quit: make(chan struct{}),
		done: make(chan struct{}),
	}
}

func (w *worker[R]) state() workerState { return workerState(atomic.LoadInt32(&w.st)) }

// run is the worker's goroutine body. It exits when ctx is cancelled,
// quit is closed, or the shared job channel is closed.
func (w *worker[R]) run(ctx context.Context) {
	defer close(w.done)

	for {
		select {
		case <-ctx.Done():
			atomic.StoreInt32(&w.st, int32(workerStateStopped))
			return
		case <-w.quit:
			atomic.StoreInt32(&w.st, int32(workerStateStopped))
			return
		case env, ok := <-w.jobs:
			if !ok {
				atomic.StoreInt32(&w.st, int32(workerStateStopped))
				return
			}
			w.process(ctx, env)
		}
	}
}

func (w *worker[R]) process(ctx context.Context, env envelope[R]) {
	atomic.StoreInt32(&w.st, int32(workerStateWorking))
	defer atomic.StoreInt32(&w.st, int32(workerStateIdle))

	start := w.cfg.Clock.Now()
	value, err := w.execute(ctx, env)
	elapsed := w.cfg.Clock.Since(start)

	w.cfg.Metrics.JobDuration.Observe(elapsed.Seconds())

	if err != nil {
		atomic.AddInt64(&w.fail, 1)
		w.cfg.Metrics.JobsExecuted.WithLabelValues("failure").Inc()
		w.classify(ctx, env, err)
	} else {
		atomic.AddInt64(&w.total, 1)
		w.cfg.Metrics.JobsExecuted.WithLabelValues("success").Inc()
	}

	env.result.Resolve(value, err)
}

// execute runs the job with panic recovery, turning a panic into an
// error rather than crashing the worker goroutine.
func (w *worker[R]) execute(ctx context.Context, env envelope[R]) (value R, err error) {
	defer func() {
		if r := recover(); r != nil {
			var buf [4096]byte
			n := runtime.Stack(buf[:], false)

			switch v := r.(type) {
			case error:
				err = v
			default:
				err = fmt.Errorf("panic: %v", v)
			}
			w.cfg.Logger.Errorf("workerpool: worker %d recovered from panic on job %s: %v\n%s",
				w.id, env.job.ID(), err, buf[:n])
		}
	}()

	return env.job.Execute(ctx)
}

// classify runs the pool's error classifier for logging/observability.
// Its verdict is advisory: a real "fatal" policy would need the pool to
// stop accepting work, which is left to a future ErrorClassifier-driven
// Stop() call site; today this only shapes what gets logged.
func (w *worker[R]) classify(ctx context.Context, env envelope[R], jobErr error) {
	if w.cfg.ErrorClassifier == nil {
		return
	}
	errCtx := errors.NewErrorContext(jobErr, "workerpool.Execute", nil)
	errCtx.JobID = env.job.ID()
	if fatal := w.cfg.ErrorClassifier.HandleError(ctx, errCtx); fatal != nil {
		w.cfg.Logger.Errorf("workerpool: job %s failed: %v", env.job.ID(), fatal)
	}
}

// stop signals the worker to exit after its current job and waits up to
// timeout for it to do so.
func (w *worker[R]) stop(timeout time.Duration) error {
	select {
	case <-w.quit:
	default:
		close(w.quit)
	}

	select {
	case <-w.done:
		return nil
	case <-w.cfg.Clock.After(timeout):
		return fmt.Errorf("worker %d: stop timed out", w.id)
	}
}
