// Package workerpool implements the fixed-size goroutine pool that drains
// jobs handed to it by a timerqueue.Queue (or any other caller) and
// resolves the AsyncResult of each job it runs exactly once. Jobs still
// queued when the pool stops are dropped and their results never resolve.
package workerpool

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nullstream/timerq/internal/errors"
	"github.com/nullstream/timerq/pkg/asyncresult"
	"github.com/nullstream/timerq/pkg/clock"
	"github.com/nullstream/timerq/pkg/job"
	"github.com/nullstream/timerq/pkg/logx"
	"github.com/nullstream/timerq/pkg/metrics"
	"github.com/nullstream/timerq/pkg/timererr"
)

// state values for FixedPool.state.
const (
	stateStopped int32 = iota
	stateRunning
	stateClosed
)

// Config configures a FixedPool[R].
type Config struct {
	// Size is the number of worker goroutines. Must be positive.
	Size int

	// QueueSize bounds the number of jobs waiting for a free worker.
	// Must be positive.
	QueueSize int

	// SubmitTimeout bounds how long Execute waits for room in the queue
	// when the queue is full. Zero means try once, non-blocking.
	SubmitTimeout time.Duration

	// WorkerStopTimeout bounds how long Stop waits for an in-flight job
	// to finish before giving up on that worker.
	WorkerStopTimeout time.Duration

	// Clock is used for submit/stop timeouts and duration accounting.
	// Defaults to clock.NewReal().
	Clock clock.Clock

	// Logger receives diagnostic output. Defaults to a no-op logger.
	Logger logx.Logger

	// Metrics receives instrumentation. Defaults to metrics.Noop().
	Metrics *metrics.Registry

	// ErrorClassifier classifies each job failure; a non-nil verdict is
	// logged as an error. No verdict stops the pool. Defaults to
	// errors.NewContinueOnErrorHandler(nil).
	ErrorClassifier errors.ErrorHandler
}

// DefaultConfig returns a Config suitable for most callers.
func DefaultConfig() Config {
	return Config{
		Size:              4,
		QueueSize:         64,
		SubmitTimeout:     5 * time.Second,
		WorkerStopTimeout: 10 * time.Second,
		Clock:             clock.NewReal(),
		Logger:            logx.NewNop(),
		Metrics:           metrics.Noop(),
		ErrorClassifier:   errors.NewContinueOnErrorHandler(nil),
	}
}

func (c *Config) setDefaults() {
	if c.Size <= 0 {
		c.Size = 4
	}
	if c.QueueSize <= 0 {
		c.QueueSize = 64
	}
	if c.WorkerStopTimeout <= 0 {
		c.WorkerStopTimeout = 10 * time.Second
	}
	if c.Clock == nil {
		c.Clock = clock.NewReal()
	}
	if c.Logger == nil {
		c.Logger = logx.NewNop()
	}
	if c.Metrics == nil {
		c.Metrics = metrics.Noop()
	}
	if c.ErrorClassifier == nil {
		c.ErrorClassifier = errors.NewContinueOnErrorHandler(nil)
	}
}

// envelope pairs a job with the result handle its outcome resolves.
type envelope[R any] struct {
	job    job.Job[R]
	result *asyncresult.AsyncResult[R]
}

// FixedPool is a fixed-size worker pool executing Job[R] and resolving each
// job's AsyncResult[R]. The zero value is not usable; construct one with
// NewFixedPool.
type FixedPool[R any] struct {
	cfg     Config
	workers []*worker[R]
	jobs    chan envelope[R]

	state  int32
	ctx    context.Context
	cancel context.CancelFunc

	mu sync.RWMutex
}

// NewFixedPool constructs a FixedPool[R]. The pool is not yet accepting jobs until
// Start is called.
func NewFixedPool[R any](cfg Config) (*FixedPool[R], error) {
	if cfg.Size <= 0 {
		return nil, fmt.Errorf("workerpool: size must be positive, got %d", cfg.Size)
	}
	if cfg.QueueSize <= 0 {
		return nil, fmt.Errorf("workerpool: queue size must be positive, got %d", cfg.QueueSize)
	}

	cfg.setDefaults()

	p := &FixedPool[R]{
		cfg:  cfg,
		jobs: make(chan envelope[R], cfg.QueueSize),
	}

	p.workers = make([]*worker[R], cfg.Size)
	for i := range p.workers {
		p.workers[i] = newWorker[R](i, p.jobs, cfg)
	}

	cfg.Metrics.PoolSize.Set(float64(cfg.Size))

	return p, nil
}

// Start launches the pool's worker goroutines. ctx bounds the pool's
// lifetime in addition to an explicit Stop call; cancelling ctx makes the
// workers exit without resolving pending results, but unlike Stop it
// leaves the pool marked as running. Start
// is idempotent: calling it on an already-running pool is a no-op.
func (p *FixedPool[R]) Start(ctx context.Context) error {
	if atomic.CompareAndSwapInt32(&p.state, stateStopped, stateRunning) {
		p.ctx, p.cancel = context.WithCancel(ctx)
		for _, w := range p.workers {
			go w.run(p.ctx)
		}
		return nil
	}
	if atomic.LoadInt32(&p.state) == stateClosed {
		return fmt.Errorf("workerpool: closed")
	}
	return nil
}

// Execute submits j and returns a handle resolved once the job finishes.
// If the pool stops before a worker takes the job, the job is dropped and
// the handle never resolves.
func (p *FixedPool[R]) Execute(j job.Job[R]) (*asyncresult.AsyncResult[R], error) {
	return p.ExecuteWithTimeout(j, p.cfg.SubmitTimeout)
}

// ExecuteWithTimeout is Execute with an explicit submit timeout,
// overriding Config.SubmitTimeout for this call.
func (p *FixedPool[R]) ExecuteWithTimeout(j job.Job[R], timeout time.Duration) (*asyncresult.AsyncResult[R], error) {
	if atomic.LoadInt32(&p.state) != stateRunning {
		if atomic.LoadInt32(&p.state) == stateStopped {
			return nil, timererr.ErrPoolNotRunning
		}
		return nil, timererr.ErrPoolClosed
	}
	if j == nil {
		return nil, fmt.Errorf("workerpool: job cannot be nil")
	}

	result := asyncresult.New[R]()
	env := envelope[R]{job: j, result: result}

	if timeout <= 0 {
		select {
		case p.jobs <- env:
			return result, nil
		default:
			return nil, timererr.ErrPoolFull
		}
	}

	timer := p.cfg.Clock.NewTimer(timeout)
	defer timer.Stop()

	select {
	case p.jobs <- env:
		return result, nil
	case <-timer.C():
		return nil, timererr.ErrSubmitTimeout
	case <-p.ctx.Done():
		return nil, timererr.ErrPoolClosed
	}
}

// Stop stops accepting new jobs and waits for in-flight jobs to finish,
// up to Config.WorkerStopTimeout. It is idempotent: calling it on a pool
// that is already stopped (or was never started) is a no-op.
func (p *FixedPool[R]) Stop() error {
	if !atomic.CompareAndSwapInt32(&p.state, stateRunning, stateStopped) {
		return nil
	}

	if p.cancel != nil {
		p.cancel()
	}

	var wg sync.WaitGroup
	for _, w := range p.workers {
		wg.Add(1)
		go func(w *worker[R]) {
			defer wg.Done()
			if err := w.stop(p.cfg.WorkerStopTimeout); err != nil {
				p.cfg.Logger.Warnf("workerpool: %v", err)
			}
		}(w)
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-p.cfg.Clock.After(p.cfg.WorkerStopTimeout):
		return fmt.Errorf("workerpool: timed out waiting for workers to stop")
	}
}

// Close stops the pool (if still running) and releases its job channel.
// A pool is not reusable after Close.
func (p *FixedPool[R]) Close() error {
	if atomic.LoadInt32(&p.state) == stateRunning {
		if err := p.Stop(); err != nil {
			return err
		}
	}
	if atomic.CompareAndSwapInt32(&p.state, stateStopped, stateClosed) {
		close(p.jobs)
	}
	return nil
}

// IsRunning reports whether the pool is currently accepting jobs.
func (p *FixedPool[R]) IsRunning() bool { return atomic.LoadInt32(&p.state) == stateRunning }

// Stats reports current pool occupancy.
type Stats struct {
	Size          int
	ActiveWorkers int
	QueueLength   int
	QueueCapacity int
}

// Stats snapshots the pool's current occupancy.
func (p *FixedPool[R]) Stats() Stats {
	p.mu.RLock()
	defer p.mu.RUnlock()

	active := 0
	for _, w := range p.workers {
		if w.state() == workerStateWorking {
			active++
		}
	}

	p.cfg.Metrics.PoolActive.Set(float64(active))
	p.cfg.Metrics.PoolQueued.Set(float64(len(p.jobs)))

	return Stats{
		Size:          p.cfg.Size,
		ActiveWorkers: active,
		QueueLength:   len(p.jobs),
		QueueCapacity: p.cfg.QueueSize,
	}
}
