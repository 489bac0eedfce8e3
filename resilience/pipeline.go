package resilience

import (
	"context"
	"errors"
	"time"
)

// EventListener receives fine-grained telemetry from a Pipeline.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Errors: implementations must not panic and should return quickly;
//   listeners run inline with the guarded call.
type EventListener interface {
	// StateChange is called on every circuit breaker transition.
	StateChange(dependency string, from, to State)

	// Retry is called for every recorded retry attempt, before its delay.
	Retry(dependency string, attempt int, reason string)

	// Timeout is called when a single attempt hits its deadline.
	Timeout(dependency string, duration time.Duration)

	// Call is called once per Execute with the total elapsed time and the
	// terminal error, nil on success.
	Call(dependency string, duration time.Duration, err error)
}

// PipelineConfig configures a Pipeline.
type PipelineConfig struct {
	// Timeout bounds each individual attempt. Default: 5s.
	Timeout time.Duration

	// Retry configures the retry stage.
	Retry RetryConfig

	// CircuitBreaker configures the circuit breaker stage.
	CircuitBreaker CircuitBreakerConfig

	// Bulkhead configures the admission stage.
	Bulkhead BulkheadConfig
}

// PipelineOption configures a Pipeline.
type PipelineOption func(*Pipeline)

// WithListener registers an event listener on the pipeline.
// Listeners are notified in registration order.
func WithListener(l EventListener) PipelineOption {
	return func(p *Pipeline) {
		p.listeners = append(p.listeners, l)
	}
}

// Pipeline composes the resilience patterns around calls to one dependency.
//
// The stages apply in a fixed order, outermost first:
//
//	Bulkhead -> CircuitBreaker -> Retry -> Timeout -> call
//
// Admission is checked before anything else is attempted, an open circuit
// short-circuits before burning the retry budget, and each individual retry
// attempt is time-bounded rather than the whole retry loop.
//
// One Pipeline instance guards one dependency and is shared by every
// concurrent caller of that dependency.
type Pipeline struct {
	name      string
	bulkhead  *Bulkhead
	breaker   *CircuitBreaker
	retry     *Retry
	timeout   *Timeout
	listeners []EventListener
}

// NewPipeline creates a pipeline for the named dependency.
func NewPipeline(name string, cfg PipelineConfig, opts ...PipelineOption) *Pipeline {
	p := &Pipeline{name: name}
	for _, opt := range opts {
		opt(p)
	}

	// Chain pipeline events into the stage callbacks without clobbering
	// any caller-supplied hooks.
	userStateChange := cfg.CircuitBreaker.OnStateChange
	cfg.CircuitBreaker.OnStateChange = func(from, to State) {
		if userStateChange != nil {
			userStateChange(from, to)
		}
		for _, l := range p.listeners {
			l.StateChange(p.name, from, to)
		}
	}

	userOnRetry := cfg.Retry.OnRetry
	cfg.Retry.OnRetry = func(attempt Attempt) {
		if userOnRetry != nil {
			userOnRetry(attempt)
		}
		for _, l := range p.listeners {
			l.Retry(p.name, attempt.Number, attempt.Reason)
		}
	}

	p.bulkhead = NewBulkhead(cfg.Bulkhead)
	p.breaker = NewCircuitBreaker(cfg.CircuitBreaker)
	p.retry = NewRetry(cfg.Retry)
	p.timeout = NewTimeout(TimeoutConfig{Timeout: cfg.Timeout})

	return p
}

// Outcome is the result of one pipeline execution.
type Outcome struct {
	// Dependency is the name of the guarded dependency.
	Dependency string

	// Success reports whether the call ultimately succeeded.
	Success bool

	// Err is the terminal error: the last underlying failure after the retry
	// budget is exhausted, or a pipeline rejection.
	Err error

	// Attempts is the retry ledger accumulated during this call.
	Attempts []Attempt

	// Elapsed is the total wall-clock time of the call including queueing,
	// retries, and backoff delays.
	Elapsed time.Duration
}

// Rejected reports whether the pipeline itself refused the call
// (open circuit or full bulkhead) without reaching the dependency.
func (o Outcome) Rejected() bool {
	return IsRejection(o.Err)
}

// Execute runs op through the pipeline and returns its outcome.
func (p *Pipeline) Execute(ctx context.Context, op func(context.Context) error) Outcome {
	start := time.Now()
	var attempts []Attempt

	err := p.bulkhead.Execute(ctx, func(ctx context.Context) error {
		return p.breaker.Execute(ctx, func(ctx context.Context) error {
			a, retryErr := p.retry.Execute(ctx, func(ctx context.Context) error {
				attemptStart := time.Now()
				attemptErr := p.timeout.Execute(ctx, op)
				if errors.Is(attemptErr, ErrTimeout) {
					elapsed := time.Since(attemptStart)
					for _, l := range p.listeners {
						l.Timeout(p.name, elapsed)
					}
				}
				return attemptErr
			})
			attempts = a
			return retryErr
		})
	})

	elapsed := time.Since(start)
	for _, l := range p.listeners {
		l.Call(p.name, elapsed, err)
	}

	return Outcome{
		Dependency: p.name,
		Success:    err == nil,
		Err:        err,
		Attempts:   attempts,
		Elapsed:    elapsed,
	}
}

// Name returns the dependency name this pipeline guards.
func (p *Pipeline) Name() string {
	return p.name
}

// CircuitState returns the current circuit breaker state.
func (p *Pipeline) CircuitState() State {
	return p.breaker.State()
}

// ResetCircuit resets the circuit breaker to closed.
func (p *Pipeline) ResetCircuit() {
	p.breaker.Reset()
}

// BulkheadMetrics returns the bulkhead statistics.
func (p *Pipeline) BulkheadMetrics() BulkheadMetrics {
	return p.bulkhead.Metrics()
}
