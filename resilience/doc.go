// Package resilience provides resilience patterns for external dependency calls.
//
// This package implements the patterns that protect the order fulfillment
// workflow from failures in its downstream dependencies (inventory, payment,
// shipping). The patterns can be used independently or composed through a
// Pipeline.
//
// # Patterns
//
// The package provides the following resilience patterns:
//
//   - Bulkhead: Limits concurrent in-flight calls per dependency, with a
//     bounded wait queue, so a slow dependency cannot exhaust the process.
//
//   - Circuit Breaker: Stops calling a dependency whose failure ratio over a
//     trailing sampling window crosses a threshold, and probes recovery after
//     a break duration.
//
//   - Retry: Automatically retries transient failures with exponential
//     backoff and jitter, keeping a ledger of every attempt.
//
//   - Timeout: Bounds each individual attempt with a deadline.
//
// # Usage
//
// A Pipeline composes the patterns in a fixed order around a single
// dependency, admission first, fast-fail second, attempts last:
//
//	pipe := resilience.NewPipeline("payment", resilience.PipelineConfig{
//	    Timeout: 10 * time.Second,
//	    Retry: resilience.RetryConfig{
//	        MaxAttempts: 3,
//	        BaseDelay:   time.Second,
//	    },
//	    CircuitBreaker: resilience.CircuitBreakerConfig{
//	        FailureThreshold:  3,
//	        MinimumThroughput: 3,
//	        BreakDuration:     30 * time.Second,
//	    },
//	    Bulkhead: resilience.BulkheadConfig{MaxConcurrent: 5},
//	})
//
//	outcome := pipe.Execute(ctx, func(ctx context.Context) error {
//	    return paymentClient.ProcessPayment(ctx, req)
//	})
//
// The returned Outcome carries the terminal error (if any), the retry attempt
// ledger, and the elapsed wall-clock time of the whole call.
package resilience
