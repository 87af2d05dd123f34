package workerpool

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/nullstream/timerq/pkg/job"
	"github.com/nullstream/timerq/pkg/timererr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.Size = 3
	cfg.QueueSize = 8
	cfg.SubmitTimeout = time.Second
	cfg.WorkerStopTimeout = time.Second
	return cfg
}

func TestNewValidatesConfig(t *testing.T) {
	_, err := NewFixedPool[int](Config{Size: 0, QueueSize: 1})
	assert.Error(t, err)

	_, err = NewFixedPool[int](Config{Size: 1, QueueSize: 0})
	assert.Error(t, err)

	p, err := NewFixedPool[int](testConfig())
	require.NoError(t, err)
	require.NotNil(t, p)
}

func TestExecuteBeforeStartFails(t *testing.T) {
	p, err := NewFixedPool[int](testConfig())
	require.NoError(t, err)

	_, err = p.Execute(job.NewFunc(func(ctx context.Context) (int, error) { return 1, nil }))
	assert.ErrorIs(t, err, timererr.ErrPoolNotRunning)
}

func TestExecuteReturnsJobResult(t *testing.T) {
	p, err := NewFixedPool[int](testConfig())
	require.NoError(t, err)
	require.NoError(t, p.Start(context.Background()))
	defer p.Stop()

	result, err := p.Execute(job.NewFunc(func(ctx context.Context) (int, error) { return 42, nil }))
	require.NoError(t, err)

	value, err := result.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 42, value)
}

func TestExecutePropagatesJobError(t *testing.T) {
	p, err := NewFixedPool[int](testConfig())
	require.NoError(t, err)
	require.NoError(t, p.Start(context.Background()))
	defer p.Stop()

	wantErr := errors.New("boom")
	result, err := p.Execute(job.NewFunc(func(ctx context.Context) (int, error) { return 0, wantErr }))
	require.NoError(t, err)

	_, err = result.Get(context.Background())
	assert.ErrorIs(t, err, wantErr)
}

func TestExecuteRecoversFromPanic(t *testing.T) {
	p, err := NewFixedPool[int](testConfig())
	require.NoError(t, err)
	require.NoError(t, p.Start(context.Background()))
	defer p.Stop()

	result, err := p.Execute(job.NewFunc(func(ctx context.Context) (int, error) {
		panic("kaboom")
	}))
	require.NoError(t, err)

	_, err = result.Get(context.Background())
	assert.Error(t, err)
}

func TestExecuteManyJobsAllComplete(t *testing.T) {
	p, err := NewFixedPool[int](testConfig())
	require.NoError(t, err)
	require.NoError(t, p.Start(context.Background()))
	defer p.Stop()

	var counter int64
	const n = 50

	type getter interface {
		Get(ctx context.Context) (int, error)
	}
	var handles []getter
	for i := 0; i < n; i++ {
		r, err := p.Execute(job.NewFunc(func(ctx context.Context) (int, error) {
			atomic.AddInt64(&counter, 1)
			return 1, nil
		}))
		require.NoError(t, err)
		handles = append(handles, r)
	}

	for _, h := range handles {
		_, err := h.Get(context.Background())
		require.NoError(t, err)
	}
	assert.Equal(t, int64(n), atomic.LoadInt64(&counter))
}

func TestExecuteAfterStopFails(t *testing.T) {
	p, err := NewFixedPool[int](testConfig())
	require.NoError(t, err)
	require.NoError(t, p.Start(context.Background()))

	require.NoError(t, p.Stop())
	assert.False(t, p.IsRunning())

	_, err = p.Execute(job.NewFunc(func(ctx context.Context) (int, error) { return 1, nil }))
	assert.Error(t, err)
}

func TestStatsReportsSizeAndCapacity(t *testing.T) {
	p, err := NewFixedPool[int](testConfig())
	require.NoError(t, err)
	require.NoError(t, p.Start(context.Background()))
	defer p.Stop()

	stats := p.Stats()
	assert.Equal(t, 3, stats.Size)
	assert.Equal(t, 8, stats.QueueCapacity)
}
