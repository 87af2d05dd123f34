package retry

import (
	"context"

	"github.com/nullstream/timerq/pkg/job"
)

// Decorate wraps j so that executing it runs the job through executor's
// retry logic, retrying the job's own Execute method on failure. The
// returned Job keeps j's ID, so diagnostics still point at the original
// job rather than the wrapper.
func Decorate[R any](j job.Job[R], executor *RetryExecutor) job.Job[R] {
	return job.NewFuncWithID(j.ID(), func(ctx context.Context) (R, error) {
		return ExecuteWithName(executor, ctx, j.ID(), j.Execute)
	})
}
