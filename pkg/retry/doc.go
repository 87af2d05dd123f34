// Package retry provides retry policies, backoff algorithms, and a retry
// executor usable standalone or as a decorator around a job.Job[R] before
// it reaches the worker pool or timer queue.
//
// Key Features:
//
// 1. Multiple retry policies:
//   - FixedDelayRetry: Fixed delay retry
//   - ExponentialBackoffRetry: Exponential backoff retry
//   - LinearBackoffRetry: Linear backoff retry
//   - CustomRetry: Custom retry policy
//   - StrategyRetry: drives retry eligibility from any BackoffStrategy
//   - BackoffV5Policy: delegates delay computation to cenkalti/backoff/v4
//
// 2. Advanced backoff algorithms, usable standalone or wrapped in a
// StrategyRetry to become a RetryPolicy:
//   - FixedBackoff: Fixed delay
//   - ExponentialBackoff: Exponential backoff
//   - LinearBackoff: Linear backoff
//   - FibonacciBackoff: Fibonacci backoff
//   - DecorrelatedJitterBackoff: Decorrelated jitter backoff
//
// 3. Jitter support:
//   - FullJitter: Full jitter
//   - EqualJitter: Equal jitter
//   - ExponentialJitter: Exponential jitter
//
// 4. Retry executor:
//   - Supports synchronous and asynchronous execution
//   - Context cancellation and timeout support
//   - Retry statistics and metrics collection
//   - Event notification mechanism
//
// 5. Job integration:
//   - Decorate wraps a job.Job[R] so a timer queue or worker pool submits
//     a retrying job without knowing retry is involved
//
// Basic usage example:
//
//	// Create retry policy
//	policy := retry.NewExponentialBackoffRetry(3, 100*time.Millisecond)
//
//	// Create retry executor
//	executor := retry.NewRetryExecutor(policy)
//
//	// Execute function with retry
//	result, err := retry.Execute(executor, ctx, func(ctx context.Context) (string, error) {
//		// Your business logic
//		return doSomething()
//	})
//
// Job decorator example:
//
//	retryingJob := retry.Decorate[string](myJob, retry.NewRetryExecutor(policy))
//	handle, err := pool.Execute(retryingJob)
//
// Custom retry conditions:
//
//	customCondition := func(err error) bool {
//		// Custom retry logic
//		return isTemporaryError(err)
//	}
//
//	policy := retry.NewFixedDelayRetry(3, 100*time.Millisecond,
//		retry.WithRetryCondition(customCondition))
//
// Jitter configuration:
//
//	policy := retry.NewExponentialBackoffRetry(3, 100*time.Millisecond,
//		retry.WithMultiplier(1.5),
//		retry.WithMaxDelay(10*time.Second))
//
//	// Enable jitter
//	policy = retry.NewFixedDelayRetry(3, 100*time.Millisecond,
//		retry.WithJitter(true, 0.1)) // 10% jitter
//
// Event handling:
//
//	handler := retry.NewDefaultEventHandler(logger)
//	executor := retry.NewRetryExecutor(policy,
//		retry.WithEventHandler(handler))
//
// Backoff strategy integration:
//
//	strategy := retry.NewFibonacciBackoff(50*time.Millisecond,
//		retry.WithBackoffMaxDelay(5*time.Second))
//	policy := retry.NewStrategyRetry(5, strategy)
//	executor := retry.NewRetryExecutor(policy)
//
// cenkalti/backoff/v4 integration:
//
//	policy := retry.NewBackoffV5Policy(5, func(eb *backoff.ExponentialBackOff) {
//		eb.InitialInterval = 50 * time.Millisecond
//		eb.MaxInterval = 5 * time.Second
//	})
//	executor := retry.NewRetryExecutor(policy)
//
// Performance considerations:
//
// 1. Retry policies are lightweight and suitable for high-frequency use
// 2. Exponential backoff includes maximum delay limits to prevent excessive waiting
// 3. Jitter mechanism avoids thundering herd problems
// 4. Statistics collection has minimal performance impact
// 5. Supports context cancellation to avoid resource leaks
//
// Error handling:
//
// The retry mechanism integrates with this module's error vocabulary:
//   - Recognizes timererr sentinel errors for the default retry condition
//   - Preserves complete error context on retry failure via timererr.JobError
//
// Thread safety:
//
// The retry policies and RetryExecutor can be shared between goroutines.
// FibonacciBackoff (its cache) and DecorrelatedJitterBackoff (its previous
// delay) keep unsynchronised state, so each instance of those two must be
// driven by one goroutine at a time.
package retry
