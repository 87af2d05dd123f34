// Package timerqueue implements the concurrent, deadline-ordered
// scheduler at the center of this module: a single dispatcher goroutine
// owns a min-heap keyed by deadline and a side table mapping a dense UID
// to its pending job and caller-facing result handle. On every iteration
// it inspects the earliest heap entry, waits until its deadline (or
// until signalled by a concurrent enqueue/cancel/clear), then hands the
// job to an Executor and chains the executor's outcome into the caller's
// handle.
package timerqueue

import (
	"container/heap"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/nullstream/timerq/pkg/asyncresult"
	"github.com/nullstream/timerq/pkg/clock"
	"github.com/nullstream/timerq/pkg/job"
	"github.com/nullstream/timerq/pkg/logx"
	"github.com/nullstream/timerq/pkg/metrics"
	"github.com/nullstream/timerq/pkg/schedutil"
	"github.com/nullstream/timerq/pkg/timererr"
)

// Executor is the capability a Queue needs from its worker pool: submit
// a job, get back a handle that resolves to the job's outcome. A
// *workerpool.FixedPool[R] and *workerpool.ScalablePool[R] satisfy this directly.
type Executor[R any] interface {
	Execute(j job.Job[R]) (*asyncresult.AsyncResult[R], error)
}

// entry is the job-table row for one live timer: the full job, its
// deadline, and the write-end of the caller's result handle. Removing a
// uid's entry from the job table (without touching the heap) is what
// turns the matching heap entry into a tombstone.
type entry[R any] struct {
	uid      TimerUID
	deadline time.Time
	job      job.Job[R]
	result   *asyncresult.AsyncResult[R]
}

// TimerHandle is returned by Enqueue. Result resolves exactly once, to
// the job's return value, the job's captured error, or a cancellation
// error.
type TimerHandle[R any] struct {
	UID      TimerUID
	Deadline time.Time
	Result   *asyncresult.AsyncResult[R]
}

// Config configures a Queue[R].
type Config[R any] struct {
	// Executor runs jobs the queue dispatches. Required.
	Executor Executor[R]

	// Clock is sampled for "now" and used for the dispatcher's bounded
	// wait. Deadlines passed to Enqueue must be taken from the same
	// clock or waits resolve at the wrong time. Defaults to
	// clock.NewReal().
	Clock clock.Clock

	Logger  logx.Logger
	Metrics *metrics.Registry
}

func (c *Config[R]) setDefaults() {
	if c.Clock == nil {
		c.Clock = clock.NewReal()
	}
	if c.Logger == nil {
		c.Logger = logx.NewNop()
	}
	if c.Metrics == nil {
		c.Metrics = metrics.Noop()
	}
}

// Queue is a deadline-ordered timer scheduler. The zero value is not
// usable; construct one with New.
type Queue[R any] struct {
	cfg Config[R]

	mu      sync.Mutex
	running bool
	nextUID uint64
	jobs    map[TimerUID]*entry[R]
	heap    minHeap

	wake chan struct{}
	stop chan struct{}
	done chan struct{}
}

// New constructs a stopped Queue[R] wired to executor.
func New[R any](cfg Config[R]) (*Queue[R], error) {
	cfg.setDefaults()
	if cfg.Executor == nil {
		return nil, fmt.Errorf("timerqueue: executor cannot be nil")
	}

	return &Queue[R]{
		cfg:  cfg,
		jobs: make(map[TimerUID]*entry[R]),
		wake: make(chan struct{}, 1),
	}, nil
}

// Start launches the dispatcher goroutine with default scheduling. It is
// idempotent: calling Start on an already-running queue is a no-op.
func (q *Queue[R]) Start() error {
	return q.start(nil)
}

// StartWithSchedule launches the dispatcher goroutine and attempts to
// apply the requested OS thread scheduling policy to it. Failure to
// apply the policy is logged and does not prevent the dispatcher from
// running with default scheduling.
func (q *Queue[R]) StartWithSchedule(params schedutil.Params) error {
	return q.start(&params)
}

func (q *Queue[R]) start(sched *schedutil.Params) error {
	q.mu.Lock()
	if q.running {
		q.mu.Unlock()
		return nil
	}
	q.running = true
	q.stop = make(chan struct{})
	q.done = make(chan struct{})
	q.mu.Unlock()

	go q.runDispatcher(sched)
	return nil
}

func (q *Queue[R]) runDispatcher(sched *schedutil.Params) {
	if sched != nil {
		runtime.LockOSThread()
		defer runtime.UnlockOSThread()
		schedutil.Apply(q.cfg.Logger, *sched)
	}
	q.dispatch()
}

// Stop signals the dispatcher to exit, joins it, and resolves every
// timer still pending at that moment with a cancellation error so no
// caller is left blocked forever on a handle Stop will never fulfil.
// Stop is idempotent; Stop on a queue that was never started returns
// nil.
func (q *Queue[R]) Stop() error {
	q.mu.Lock()
	if !q.running {
		q.mu.Unlock()
		return nil
	}
	q.running = false
	stopCh := q.stop
	doneCh := q.done
	q.mu.Unlock()

	close(stopCh)
	<-doneCh

	q.mu.Lock()
	abandoned := q.jobs
	q.jobs = make(map[TimerUID]*entry[R])
	q.heap = nil
	q.mu.Unlock()

	for _, e := range abandoned {
		e.result.Resolve(zero[R](), timererr.ErrCancelled)
	}
	return nil
}

func zero[R any]() R {
	var z R
	return z
}

// dispatch is the dispatcher's main loop, run on its own goroutine.
func (q *Queue[R]) dispatch() {
	defer close(q.done)

	for {
		q.mu.Lock()
		if !q.running {
			q.mu.Unlock()
			return
		}

		if len(q.heap) == 0 {
			q.mu.Unlock()
			select {
			case <-q.wake:
			case <-q.stop:
			}
			continue
		}

		root := q.heap[0]
		if _, live := q.jobs[root.uid]; !live {
			heap.Pop(&q.heap)
			q.cfg.Metrics.HeapDepth.Set(float64(len(q.heap)))
			q.mu.Unlock()
			continue
		}

		now := q.cfg.Clock.Now()
		if !root.deadline.After(now) {
			e := q.jobs[root.uid]
			delete(q.jobs, root.uid)
			heap.Pop(&q.heap)
			q.cfg.Metrics.JobTableDepth.Set(float64(len(q.jobs)))
			q.cfg.Metrics.HeapDepth.Set(float64(len(q.heap)))
			q.mu.Unlock()

			q.cfg.Metrics.DispatchDelay.Observe(now.Sub(e.deadline).Seconds())
			q.cfg.Metrics.TimersFired.Inc()
			q.fire(e)
			continue
		}

		wait := root.deadline.Sub(now)
		q.mu.Unlock()

		timer := q.cfg.Clock.NewTimer(wait)
		select {
		case <-timer.C():
		case <-q.wake:
			timer.Stop()
		case <-q.stop:
			timer.Stop()
		}
	}
}

// fire hands e's job to the executor and chains the executor's outcome
// into e's caller-facing result. It must not hold q.mu while calling the
// executor, since job submission may block briefly.
func (q *Queue[R]) fire(e *entry[R]) {
	poolResult, err := q.cfg.Executor.Execute(e.job)
	if err != nil {
		e.result.Resolve(zero[R](), err)
		return
	}
	poolResult.Then(func(value R, err error) {
		e.result.Resolve(value, err)
	})
}

// Enqueue schedules j to fire at deadline and returns a handle for
// observing its outcome or cancelling it before it fires.
func (q *Queue[R]) Enqueue(deadline time.Time, j job.Job[R]) TimerHandle[R] {
	result := asyncresult.New[R]()

	q.mu.Lock()
	uid := TimerUID(q.nextUID)
	q.nextUID++
	q.jobs[uid] = &entry[R]{uid: uid, deadline: deadline, job: j, result: result}
	heap.Push(&q.heap, heapEntry{uid: uid, deadline: deadline})
	becameRoot := q.heap[0].uid == uid
	q.cfg.Metrics.JobTableDepth.Set(float64(len(q.jobs)))
	q.cfg.Metrics.HeapDepth.Set(float64(len(q.heap)))
	q.mu.Unlock()

	q.cfg.Metrics.TimersEnqueued.Inc()
	if becameRoot {
		q.signal()
	}

	return TimerHandle[R]{UID: uid, Deadline: deadline, Result: result}
}

// Cancel removes uid from the job table if still pending, resolving its
// result with a cancellation error. It reports whether uid was live
// immediately before the call. The heap entry is left behind as a
// tombstone; it is swept lazily by the dispatcher or eagerly by Purge.
func (q *Queue[R]) Cancel(uid TimerUID) bool {
	q.mu.Lock()
	e, live := q.jobs[uid]
	if !live {
		q.mu.Unlock()
		return false
	}
	delete(q.jobs, uid)
	wasRoot := len(q.heap) > 0 && q.heap[0].uid == uid
	q.cfg.Metrics.JobTableDepth.Set(float64(len(q.jobs)))
	q.mu.Unlock()

	q.cfg.Metrics.TimersCancelled.Inc()
	e.result.Resolve(zero[R](), timererr.ErrCancelled)

	if wasRoot {
		q.signal()
	}
	return true
}

// Clear removes every pending timer, resolving each with a cancellation
// error, and empties the heap.
func (q *Queue[R]) Clear() {
	q.mu.Lock()
	abandoned := q.jobs
	hadAny := len(abandoned) > 0
	q.jobs = make(map[TimerUID]*entry[R])
	q.heap = nil
	q.cfg.Metrics.JobTableDepth.Set(0)
	q.cfg.Metrics.HeapDepth.Set(0)
	q.mu.Unlock()

	for _, e := range abandoned {
		q.cfg.Metrics.TimersCancelled.Inc()
		e.result.Resolve(zero[R](), timererr.ErrCancelled)
	}

	if hadAny {
		q.signal()
	}
}

// Purge drops tombstone heap entries (uids no longer in the job table)
// and re-heapifies, in O(n). The dispatcher never waits on a tombstone's
// deadline, so Purge never needs to wake it.
func (q *Queue[R]) Purge() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.heap) == len(q.jobs) {
		return
	}

	kept := make(minHeap, 0, len(q.jobs))
	purged := 0
	for _, he := range q.heap {
		if _, live := q.jobs[he.uid]; live {
			kept = append(kept, he)
		} else {
			purged++
		}
	}
	heap.Init(&kept)
	q.heap = kept
	q.cfg.Metrics.HeapDepth.Set(float64(len(q.heap)))
	q.cfg.Metrics.TimersPurged.Add(float64(purged))
}

// InQueue reports whether uid has been enqueued, has not fired, and has
// not been cancelled.
func (q *Queue[R]) InQueue(uid TimerUID) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	_, live := q.jobs[uid]
	return live
}

// Len reports the number of live (non-tombstone) timers.
func (q *Queue[R]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.jobs)
}

// HeapLen reports the raw heap size, including tombstones.
func (q *Queue[R]) HeapLen() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.heap)
}

// signal wakes the dispatcher if it is blocked waiting; it never blocks
// itself, matching the non-owning, fire-and-forget nature of a condition
// variable's notify_one.
func (q *Queue[R]) signal() {
	select {
	case q.wake <- struct{}{}:
	default:
	}
}
