// Package metrics provides Prometheus instrumentation for the timer queue
// and worker pool. Everything here is informational: the dispatcher
// records DispatchDelay for every timer it fires, but nothing in this
// package changes scheduling or execution semantics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Registry holds the metric instances for a timer queue + worker pool
// pair. Construct one with NewRegistry and share it between the two.
type Registry struct {
	// Timer queue metrics.
	HeapDepth       prometheus.Gauge
	JobTableDepth   prometheus.Gauge
	TimersEnqueued  prometheus.Counter
	TimersFired     prometheus.Counter
	TimersCancelled prometheus.Counter
	TimersPurged    prometheus.Counter
	DispatchDelay   prometheus.Histogram

	// Worker pool metrics.
	PoolSize      prometheus.Gauge
	PoolActive    prometheus.Gauge
	PoolQueued    prometheus.Gauge
	JobsExecuted  *prometheus.CounterVec
	JobDuration   prometheus.Histogram
}

// NewRegistry registers a fresh set of metrics against reg. Pass
// prometheus.NewRegistry() in tests to avoid collisions with the global
// default registerer; pass prometheus.DefaultRegisterer in production.
func NewRegistry(reg prometheus.Registerer) *Registry {
	factory := promauto.With(reg)

	return &Registry{
		HeapDepth: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "timerq",
			Subsystem: "queue",
			Name:      "heap_depth",
			Help:      "Number of entries currently in the timer heap, including tombstones.",
		}),
		JobTableDepth: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "timerq",
			Subsystem: "queue",
			Name:      "job_table_depth",
			Help:      "Number of live timers currently in the job table.",
		}),
		TimersEnqueued: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "timerq",
			Subsystem: "queue",
			Name:      "timers_enqueued_total",
			Help:      "Total timers enqueued.",
		}),
		TimersFired: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "timerq",
			Subsystem: "queue",
			Name:      "timers_fired_total",
			Help:      "Total timers dispatched to the executor.",
		}),
		TimersCancelled: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "timerq",
			Subsystem: "queue",
			Name:      "timers_cancelled_total",
			Help:      "Total timers cancelled or cleared before firing.",
		}),
		TimersPurged: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "timerq",
			Subsystem: "queue",
			Name:      "timers_purged_total",
			Help:      "Total tombstone heap entries removed by Purge.",
		}),
		DispatchDelay: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "timerq",
			Subsystem: "queue",
			Name:      "dispatch_delay_seconds",
			Help:      "Actual fire time minus scheduled deadline.",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 2, 16),
		}),
		PoolSize: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "timerq",
			Subsystem: "pool",
			Name:      "size",
			Help:      "Configured worker pool size.",
		}),
		PoolActive: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "timerq",
			Subsystem: "pool",
			Name:      "active_workers",
			Help:      "Workers currently executing a job.",
		}),
		PoolQueued: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "timerq",
			Subsystem: "pool",
			Name:      "queued_jobs",
			Help:      "Jobs waiting in the pool's FIFO.",
		}),
		JobsExecuted: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "timerq",
			Subsystem: "pool",
			Name:      "jobs_executed_total",
			Help:      "Total jobs executed by the pool, by outcome.",
		}, []string{"outcome"}),
		JobDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "timerq",
			Subsystem: "pool",
			Name:      "job_duration_seconds",
			Help:      "Wall-clock time spent executing a job.",
			Buckets:   prometheus.DefBuckets,
		}),
	}
}

// Noop returns a Registry backed by a private, unregistered Prometheus
// registry, for callers that want the instrumentation call sites to work
// without actually publishing metrics (e.g. unit tests that construct
// many short-lived queues and would otherwise collide on metric names).
func Noop() *Registry {
	return NewRegistry(prometheus.NewRegistry())
}
