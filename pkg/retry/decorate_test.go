package retry

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/nullstream/timerq/pkg/job"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecorateRetriesUntilSuccess(t *testing.T) {
	var attempts int32
	inner := job.NewFuncWithID("retry-me", func(ctx context.Context) (string, error) {
		if atomic.AddInt32(&attempts, 1) < 3 {
			return "", errors.New("not yet")
		}
		return "ok", nil
	})

	policy := NewFixedDelayRetry(5, time.Millisecond, WithRetryCondition(func(error) bool { return true }))
	executor := NewRetryExecutor(policy)
	wrapped := Decorate[string](inner, executor)

	assert.Equal(t, "retry-me", wrapped.ID())

	value, err := wrapped.Execute(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "ok", value)
	assert.Equal(t, int32(3), atomic.LoadInt32(&attempts))
}

func TestDecorateGivesUpAfterMaxAttempts(t *testing.T) {
	wantErr := errors.New("permanent")
	inner := job.NewFunc(func(ctx context.Context) (string, error) {
		return "", wantErr
	})

	policy := NewFixedDelayRetry(2, time.Millisecond, WithRetryCondition(func(error) bool { return true }))
	wrapped := Decorate[string](inner, NewRetryExecutor(policy))

	_, err := wrapped.Execute(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, wantErr)
}
