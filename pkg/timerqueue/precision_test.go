package timerqueue

import (
	"context"
	"sort"
	"testing"
	"time"

	"github.com/nullstream/timerq/pkg/job"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestPrecisionHarness is the scaled-down form of the spec's 1000-timers
// precision harness: it schedules a batch of timers a fixed interval
// apart and checks the 99th percentile of (actual fire time - scheduled
// deadline) stays within a generous bound for a test environment. This
// is informational about scheduling quality, not a strict correctness
// property.
func TestPrecisionHarness(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping precision harness in -short mode")
	}

	q, _ := newTestQueue(t)

	const n = 200
	const spacing = 5 * time.Millisecond

	start := time.Now().Add(50 * time.Millisecond)
	type result struct {
		deadline time.Time
		handle   TimerHandle[string]
	}
	results := make([]result, 0, n)

	for i := 0; i < n; i++ {
		deadline := start.Add(time.Duration(i) * spacing)
		h := q.Enqueue(deadline, job.NewFunc(func(ctx context.Context) (string, error) {
			return "ok", nil
		}))
		results = append(results, result{deadline: deadline, handle: h})
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	delays := make([]time.Duration, 0, n)
	for _, r := range results {
		before := time.Now()
		_, err := r.handle.Result.Get(ctx)
		require.NoError(t, err)
		fired := time.Now()
		_ = before

		delay := fired.Sub(r.deadline)
		assert.True(t, delay >= -time.Millisecond, "dispatch delay should not be meaningfully negative, got %v", delay)
		delays = append(delays, delay)
	}

	sort.Slice(delays, func(i, j int) bool { return delays[i] < delays[j] })
	p99 := delays[int(float64(len(delays))*0.99)-1]
	t.Logf("p99 dispatch delay: %v", p99)
	assert.Less(t, p99, 200*time.Millisecond, "p99 dispatch delay should stay within a generous scheduling jitter bound")
}
