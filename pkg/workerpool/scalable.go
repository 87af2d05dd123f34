package workerpool

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nullstream/timerq/pkg/asyncresult"
	"github.com/nullstream/timerq/pkg/job"
	"github.com/nullstream/timerq/pkg/timererr"
)

// ScalableConfig configures a ScalablePool[R]. It embeds Config for the
// shared submission/execution knobs and adds the min/max worker bounds
// and the monitor's scaling cadence.
type ScalableConfig struct {
	Config

	// MinSize is the number of workers kept running even when idle.
	// Must be positive.
	MinSize int

	// MaxSize bounds how many workers the monitor will ever grow to.
	// Must be >= MinSize.
	MaxSize int

	// MonitorInterval is how often the monitor goroutine re-evaluates
	// queue pressure. Defaults to time.Second.
	MonitorInterval time.Duration

	// ScaleUpThreshold is the queue occupancy ratio (0 to 1) above which
	// the monitor adds a worker. Defaults to 0.75.
	ScaleUpThreshold float64

	// ScaleDownThreshold is the queue occupancy ratio below which the
	// monitor removes a worker, down to MinSize. Defaults to 0.25.
	ScaleDownThreshold float64
}

// DefaultScalableConfig returns a ScalableConfig suitable for most
// callers, scaling between 2 and 8 workers.
func DefaultScalableConfig() ScalableConfig {
	return ScalableConfig{
		Config:             DefaultConfig(),
		MinSize:            2,
		MaxSize:            8,
		MonitorInterval:    time.Second,
		ScaleUpThreshold:   0.75,
		ScaleDownThreshold: 0.25,
	}
}

func (c *ScalableConfig) setDefaults() {
	c.Config.setDefaults()
	if c.MinSize <= 0 {
		c.MinSize = 2
	}
	if c.MaxSize < c.MinSize {
		c.MaxSize = c.MinSize
	}
	if c.MonitorInterval <= 0 {
		c.MonitorInterval = time.Second
	}
	if c.ScaleUpThreshold <= 0 {
		c.ScaleUpThreshold = 0.75
	}
	if c.ScaleDownThreshold <= 0 {
		c.ScaleDownThreshold = 0.25
	}
}

// ScalablePool is a worker pool that grows and shrinks its worker count
// between MinSize and MaxSize in response to queue pressure, while
// satisfying the same Executor[R] contract as FixedPool. Growth and
// shrink decisions are made by a single monitor goroutine so they never
// race each other; Execute itself never blocks on a scaling decision.
type ScalablePool[R any] struct {
	cfg ScalableConfig

	mu      sync.Mutex
	workers []*worker[R]
	nextID  int

	jobs chan envelope[R]

	state  int32
	ctx    context.Context
	cancel context.CancelFunc
}

// NewScalablePool constructs a ScalablePool[R] with MinSize workers
// already created (but not started until Start).
func NewScalablePool[R any](cfg ScalableConfig) (*ScalablePool[R], error) {
	if cfg.MinSize <= 0 {
		return nil, fmt.Errorf("workerpool: min size must be positive, got %d", cfg.MinSize)
	}
	if cfg.QueueSize <= 0 {
		return nil, fmt.Errorf("workerpool: queue size must be positive, got %d", cfg.QueueSize)
	}

	cfg.setDefaults()

	p := &ScalablePool[R]{
		cfg:  cfg,
		jobs: make(chan envelope[R], cfg.QueueSize),
	}

	for i := 0; i < cfg.MinSize; i++ {
		p.workers = append(p.workers, p.newWorkerLocked())
	}

	cfg.Metrics.PoolSize.Set(float64(len(p.workers)))
	return p, nil
}

func (p *ScalablePool[R]) newWorkerLocked() *worker[R] {
	w := newWorker[R](p.nextID, p.jobs, p.cfg.Config)
	p.nextID++
	return w
}

// Start launches every current worker and the scaling monitor. Start is
// idempotent: calling it on an already-running pool is a no-op.
func (p *ScalablePool[R]) Start(ctx context.Context) error {
	if atomic.CompareAndSwapInt32(&p.state, stateStopped, stateRunning) {
		p.ctx, p.cancel = context.WithCancel(ctx)

		p.mu.Lock()
		for _, w := range p.workers {
			go w.run(p.ctx)
		}
		p.mu.Unlock()

		go p.monitor(p.ctx)
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
func (p *ScalablePool[R]) Execute(j job.Job[R]) (*asyncresult.AsyncResult[R], error) {
	return p.ExecuteWithTimeout(j, p.cfg.SubmitTimeout)
}

// ExecuteWithTimeout is Execute with an explicit submit timeout.
func (p *ScalablePool[R]) ExecuteWithTimeout(j job.Job[R], timeout time.Duration) (*asyncresult.AsyncResult[R], error) {
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

// monitor watches queue occupancy and grows or shrinks the worker pool
// accordingly, never below MinSize or above MaxSize. It runs until ctx
// is cancelled, one decision per MonitorInterval tick.
func (p *ScalablePool[R]) monitor(ctx context.Context) {
	ticker := p.cfg.Clock.NewTicker(p.cfg.MonitorInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C():
			occupancy := float64(len(p.jobs)) / float64(p.cfg.QueueSize)
			switch {
			case occupancy >= p.cfg.ScaleUpThreshold:
				_ = p.scaleBy(ctx, 1)
			case occupancy <= p.cfg.ScaleDownThreshold:
				_ = p.scaleBy(ctx, -1)
			}
		}
	}
}

// scaleBy grows (delta > 0) or shrinks (delta < 0) the pool by one
// worker, clamped to [MinSize, MaxSize]. Shrinking stops the removed
// worker in the background; it does not block the monitor.
func (p *ScalablePool[R]) scaleBy(ctx context.Context, delta int) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	current := len(p.workers)
	target := current + delta
	if target > p.cfg.MaxSize || target < p.cfg.MinSize || target == current {
		return nil
	}

	if delta > 0 {
		w := p.newWorkerLocked()
		p.workers = append(p.workers, w)
		go w.run(ctx)
	} else {
		w := p.workers[len(p.workers)-1]
		p.workers = p.workers[:len(p.workers)-1]
		go func() {
			if err := w.stop(p.cfg.WorkerStopTimeout); err != nil {
				p.cfg.Logger.Warnf("workerpool: %v", err)
			}
		}()
	}

	p.cfg.Metrics.PoolSize.Set(float64(len(p.workers)))
	return nil
}

// Stop stops accepting new jobs and waits for in-flight jobs to finish,
// up to WorkerStopTimeout. It is idempotent: calling it on a pool that
// is already stopped (or was never started) is a no-op.
func (p *ScalablePool[R]) Stop() error {
	if !atomic.CompareAndSwapInt32(&p.state, stateRunning, stateStopped) {
		return nil
	}

	if p.cancel != nil {
		p.cancel()
	}

	p.mu.Lock()
	workers := append([]*worker[R]{}, p.workers...)
	p.mu.Unlock()

	var wg sync.WaitGroup
	for _, w := range workers {
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
func (p *ScalablePool[R]) Close() error {
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
func (p *ScalablePool[R]) IsRunning() bool { return atomic.LoadInt32(&p.state) == stateRunning }

// Size reports the current worker count.
func (p *ScalablePool[R]) Size() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.workers)
}

// Stats snapshots the pool's current occupancy.
func (p *ScalablePool[R]) Stats() Stats {
	p.mu.Lock()
	active := 0
	for _, w := range p.workers {
		if w.state() == workerStateWorking {
			active++
		}
	}
	size := len(p.workers)
	p.mu.Unlock()

	p.cfg.Metrics.PoolActive.Set(float64(active))
	p.cfg.Metrics.PoolQueued.Set(float64(len(p.jobs)))

	return Stats{
		Size:          size,
		ActiveWorkers: active,
		QueueLength:   len(p.jobs),
		QueueCapacity: p.cfg.QueueSize,
	}
}
