package timerqueue

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/nullstream/timerq/pkg/job"
	"github.com/nullstream/timerq/pkg/timererr"
	"github.com/nullstream/timerq/pkg/workerpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestQueue(t *testing.T) (*Queue[string], *workerpool.FixedPool[string]) {
	t.Helper()

	pool, err := workerpool.NewFixedPool[string](workerpool.DefaultConfig())
	require.NoError(t, err)
	require.NoError(t, pool.Start(context.Background()))
	t.Cleanup(func() { _ = pool.Stop() })

	q, err := New(Config[string]{Executor: pool})
	require.NoError(t, err)
	require.NoError(t, q.Start())
	t.Cleanup(func() { _ = q.Stop() })

	return q, pool
}

func TestBasicFire(t *testing.T) {
	q, _ := newTestQueue(t)

	handle := q.Enqueue(time.Now().Add(100*time.Millisecond), job.NewFunc(func(ctx context.Context) (string, error) {
		return "ok", nil
	}))

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	value, err := handle.Result.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, "ok", value)
}

func TestCancelBeforeFire(t *testing.T) {
	q, _ := newTestQueue(t)

	handle := q.Enqueue(time.Now().Add(200*time.Millisecond), job.NewFunc(func(ctx context.Context) (string, error) {
		return "should not run", nil
	}))

	time.Sleep(50 * time.Millisecond)
	assert.True(t, q.Cancel(handle.UID))
	assert.False(t, q.InQueue(handle.UID))

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	_, err := handle.Result.Get(ctx)
	assert.ErrorIs(t, err, timererr.ErrCancelled)
}

func TestErrorCapture(t *testing.T) {
	q, _ := newTestQueue(t)

	wantErr := errors.New("boom")
	handle := q.Enqueue(time.Now().Add(10*time.Millisecond), job.NewFunc(func(ctx context.Context) (string, error) {
		return "", wantErr
	}))

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	_, err := handle.Result.Get(ctx)
	assert.ErrorIs(t, err, wantErr)
}

func TestEarliestDeadlineReplacement(t *testing.T) {
	q, _ := newTestQueue(t)

	var order []string
	done := make(chan struct{}, 2)

	handleA := q.Enqueue(time.Now().Add(300*time.Millisecond), job.NewFunc(func(ctx context.Context) (string, error) {
		order = append(order, "A")
		done <- struct{}{}
		return "A", nil
	}))
	handleB := q.Enqueue(time.Now().Add(50*time.Millisecond), job.NewFunc(func(ctx context.Context) (string, error) {
		order = append(order, "B")
		done <- struct{}{}
		return "B", nil
	}))

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	_, err := handleB.Result.Get(ctx)
	require.NoError(t, err)
	_, err = handleA.Result.Get(ctx)
	require.NoError(t, err)

	require.Len(t, order, 2)
	assert.Equal(t, "B", order[0])
	assert.Equal(t, "A", order[1])
}

func TestPurgeRemovesTombstones(t *testing.T) {
	q, _ := newTestQueue(t)

	const n = 100
	handles := make([]TimerHandle[string], 0, n)
	for i := 0; i < n; i++ {
		h := q.Enqueue(time.Now().Add(10*time.Second), job.NewFunc(func(ctx context.Context) (string, error) {
			return "unused", nil
		}))
		handles = append(handles, h)
	}

	for i, h := range handles {
		if i%2 == 1 {
			q.Cancel(h.UID)
		}
	}

	assert.Equal(t, n, q.HeapLen())
	q.Purge()
	assert.Equal(t, n/2, q.HeapLen())
	assert.Equal(t, n/2, q.Len())
}

func TestClearResolvesHandles(t *testing.T) {
	q, _ := newTestQueue(t)

	handles := make([]TimerHandle[string], 0, 3)
	for i := 0; i < 3; i++ {
		h := q.Enqueue(time.Now().Add(10*time.Second), job.NewFunc(func(ctx context.Context) (string, error) {
			return "unused", nil
		}))
		handles = append(handles, h)
	}

	q.Clear()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	for _, h := range handles {
		_, err := h.Result.Get(ctx)
		assert.ErrorIs(t, err, timererr.ErrCancelled)
	}
	assert.Equal(t, 0, q.Len())
	assert.Equal(t, 0, q.HeapLen())
}

func TestStopResolvesPendingTimers(t *testing.T) {
	q, _ := newTestQueue(t)

	handle := q.Enqueue(time.Now().Add(10*time.Second), job.NewFunc(func(ctx context.Context) (string, error) {
		return "unused", nil
	}))

	require.NoError(t, q.Stop())

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	_, err := handle.Result.Get(ctx)
	assert.ErrorIs(t, err, timererr.ErrCancelled)
}

func TestDistinctUIDsUnderConcurrentEnqueue(t *testing.T) {
	q, _ := newTestQueue(t)

	const n = 200
	uids := make(chan TimerUID, n)
	for i := 0; i < n; i++ {
		go func() {
			h := q.Enqueue(time.Now().Add(5*time.Second), job.NewFunc(func(ctx context.Context) (string, error) {
				return "x", nil
			}))
			uids <- h.UID
		}()
	}

	seen := make(map[TimerUID]bool, n)
	for i := 0; i < n; i++ {
		uid := <-uids
		assert.False(t, seen[uid], "uid %d enqueued twice", uid)
		seen[uid] = true
	}
}

func TestInQueueReflectsLifecycle(t *testing.T) {
	q, _ := newTestQueue(t)

	handle := q.Enqueue(time.Now().Add(5*time.Second), job.NewFunc(func(ctx context.Context) (string, error) {
		return "x", nil
	}))
	assert.True(t, q.InQueue(handle.UID))

	q.Cancel(handle.UID)
	assert.False(t, q.InQueue(handle.UID))

	assert.False(t, q.InQueue(TimerUID(99999)))
}

func TestStartIsIdempotent(t *testing.T) {
	q, _ := newTestQueue(t)
	assert.NoError(t, q.Start())
	assert.NoError(t, q.Start())
}

func TestStopIsIdempotent(t *testing.T) {
	q, _ := newTestQueue(t)
	require.NoError(t, q.Stop())
	assert.NoError(t, q.Stop())
}

func TestDispatchDelayNeverNegative(t *testing.T) {
	q, _ := newTestQueue(t)

	handle := q.Enqueue(time.Now().Add(20*time.Millisecond), job.NewFunc(func(ctx context.Context) (string, error) {
		return "ok", nil
	}))

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	_, err := handle.Result.Get(ctx)
	require.NoError(t, err)
	fireTime := time.Now()

	assert.True(t, !fireTime.Before(handle.Deadline.Add(-time.Millisecond)),
		"fire observed before scheduled deadline (allowing 1ms clock skew)")
}

// TestScalablePoolAsExecutor confirms workerpool.ScalablePool[R] satisfies
// Executor[R] just as well as FixedPool[R] does.
func TestScalablePoolAsExecutor(t *testing.T) {
	pool, err := workerpool.NewScalablePool[string](workerpool.DefaultScalableConfig())
	require.NoError(t, err)
	require.NoError(t, pool.Start(context.Background()))
	t.Cleanup(func() { _ = pool.Stop() })

	q, err := New(Config[string]{Executor: pool})
	require.NoError(t, err)
	require.NoError(t, q.Start())
	t.Cleanup(func() { _ = q.Stop() })

	handle := q.Enqueue(time.Now().Add(50*time.Millisecond), job.NewFunc(func(ctx context.Context) (string, error) {
		return "scaled", nil
	}))

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	value, err := handle.Result.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, "scaled", value)
}
