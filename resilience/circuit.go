package resilience

import (
	"context"
	"sync"
	"time"
)

// State represents the circuit breaker state.
type State int

const (
	// StateClosed means the circuit is operating normally.
	StateClosed State = iota
	// StateOpen means the circuit is rejecting all requests.
	StateOpen
	// StateHalfOpen means the circuit is probing if the dependency recovered.
	StateHalfOpen
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// CircuitBreakerConfig configures the circuit breaker.
type CircuitBreakerConfig struct {
	// FailureThreshold, together with MinimumThroughput, defines the failure
	// ratio that opens the circuit: FailureThreshold/MinimumThroughput.
	// Default: 3
	FailureThreshold int

	// MinimumThroughput is the minimum number of calls observed within the
	// sampling window before the circuit may open.
	// Default: 3
	MinimumThroughput int

	// SamplingWindow is the trailing window over which outcomes are counted.
	// Default: 10 seconds
	SamplingWindow time.Duration

	// BreakDuration is how long the circuit stays open before probing.
	// Default: 30 seconds
	BreakDuration time.Duration

	// HalfOpenMaxProbes is the max trial calls admitted in half-open state.
	// Default: 1
	HalfOpenMaxProbes int

	// OnStateChange is called when the circuit state changes.
	OnStateChange func(from, to State)

	// IsFailure determines if an error should count toward the failure ratio.
	// Default: every non-nil error except those marked permanent and context
	// cancellation. Transient and unexpected errors both count; a business
	// rejection says nothing about the dependency's availability.
	IsFailure func(err error) bool
}

// outcome is one observed call within the sampling window.
type outcome struct {
	at      time.Time
	failure bool
}

// CircuitBreaker implements the circuit breaker pattern over a trailing
// outcome window. It is safe for concurrent use; two near-simultaneous
// failures cannot double-open an already-open circuit.
type CircuitBreaker struct {
	config CircuitBreakerConfig

	mu         sync.Mutex
	state      State
	window     []outcome
	openedAt   time.Time
	lastChange time.Time
	probes     int
}

// NewCircuitBreaker creates a new circuit breaker.
func NewCircuitBreaker(config CircuitBreakerConfig) *CircuitBreaker {
	// Apply defaults
	if config.FailureThreshold <= 0 {
		config.FailureThreshold = 3
	}
	if config.MinimumThroughput <= 0 {
		config.MinimumThroughput = 3
	}
	if config.SamplingWindow <= 0 {
		config.SamplingWindow = 10 * time.Second
	}
	if config.BreakDuration <= 0 {
		config.BreakDuration = 30 * time.Second
	}
	if config.HalfOpenMaxProbes <= 0 {
		config.HalfOpenMaxProbes = 1
	}
	if config.IsFailure == nil {
		config.IsFailure = func(err error) bool {
			if err == nil {
				return false
			}
			if IsPermanent(err) {
				return false
			}
			return err != context.Canceled
		}
	}

	return &CircuitBreaker{
		config:     config,
		state:      StateClosed,
		lastChange: time.Now(),
	}
}

// Execute runs the operation through the circuit breaker.
// While the circuit is open the operation is never invoked and
// ErrCircuitOpen is returned.
func (cb *CircuitBreaker) Execute(ctx context.Context, op func(context.Context) error) error {
	if err := cb.beforeRequest(); err != nil {
		return err
	}

	err := op(ctx)
	cb.afterRequest(err)
	return err
}

// State returns the current circuit state.
func (cb *CircuitBreaker) State() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.currentStateLocked(time.Now())
}

// Reset resets the circuit breaker to closed state and clears the window.
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	oldState := cb.state
	cb.state = StateClosed
	cb.window = cb.window[:0]
	cb.probes = 0
	cb.lastChange = time.Now()

	if oldState != StateClosed && cb.config.OnStateChange != nil {
		cb.config.OnStateChange(oldState, StateClosed)
	}
}

func (cb *CircuitBreaker) beforeRequest() error {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.currentStateLocked(time.Now()) {
	case StateOpen:
		return ErrCircuitOpen
	case StateHalfOpen:
		if cb.probes >= cb.config.HalfOpenMaxProbes {
			return ErrCircuitOpen
		}
		cb.probes++
	}

	return nil
}

func (cb *CircuitBreaker) afterRequest(err error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	now := time.Now()
	failure := cb.config.IsFailure(err)

	switch cb.state {
	case StateClosed:
		cb.window = append(cb.window, outcome{at: now, failure: failure})
		cb.pruneLocked(now)
		if cb.shouldOpenLocked() {
			cb.transitionLocked(StateOpen, now)
			cb.openedAt = now
		}

	case StateHalfOpen:
		if failure {
			// Failed probe reopens with a fresh break duration.
			cb.transitionLocked(StateOpen, now)
			cb.openedAt = now
		} else {
			cb.transitionLocked(StateClosed, now)
			cb.window = cb.window[:0]
		}
	}
}

// currentStateLocked resolves the lazy Open -> HalfOpen transition.
func (cb *CircuitBreaker) currentStateLocked(now time.Time) State {
	if cb.state == StateOpen && now.Sub(cb.openedAt) >= cb.config.BreakDuration {
		cb.transitionLocked(StateHalfOpen, now)
	}
	return cb.state
}

func (cb *CircuitBreaker) transitionLocked(to State, now time.Time) {
	from := cb.state
	if from == to {
		return
	}
	cb.state = to
	cb.lastChange = now
	if to == StateHalfOpen {
		cb.probes = 0
	}
	if cb.config.OnStateChange != nil {
		cb.config.OnStateChange(from, to)
	}
}

func (cb *CircuitBreaker) pruneLocked(now time.Time) {
	cutoff := now.Add(-cb.config.SamplingWindow)
	i := 0
	for i < len(cb.window) && cb.window[i].at.Before(cutoff) {
		i++
	}
	if i > 0 {
		cb.window = append(cb.window[:0], cb.window[i:]...)
	}
}

func (cb *CircuitBreaker) shouldOpenLocked() bool {
	total := len(cb.window)
	if total < cb.config.MinimumThroughput {
		return false
	}
	failures := 0
	for _, o := range cb.window {
		if o.failure {
			failures++
		}
	}
	threshold := float64(cb.config.FailureThreshold) / float64(cb.config.MinimumThroughput)
	return float64(failures)/float64(total) >= threshold
}

// Counts returns the observed totals within the current sampling window.
func (cb *CircuitBreaker) Counts() (total, failures int) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.pruneLocked(time.Now())
	for _, o := range cb.window {
		if o.failure {
			failures++
		}
	}
	return len(cb.window), failures
}

// LastStateChange returns when the circuit last changed state.
func (cb *CircuitBreaker) LastStateChange() time.Time {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.lastChange
}
