package monitor

import (
	"sync"
	"time"

	"github.com/orderstack/fulfillment/resilience"
)

// Metrics is a point-in-time snapshot of one dependency's resilience record.
type Metrics struct {
	// Dependency is the dependency name the record belongs to.
	Dependency string

	// State is the current circuit breaker state.
	State resilience.State

	// LastStateChange is when the circuit last changed state.
	LastStateChange time.Time

	// OpenedCount, ClosedCount, and HalfOpenedCount count the transitions
	// into each state since the record was created or last reset.
	OpenedCount     int64
	ClosedCount     int64
	HalfOpenedCount int64

	// TotalRetries counts every recorded retry attempt.
	TotalRetries int64

	// TimeoutCount counts attempts that hit their deadline.
	TimeoutCount int64

	// LastTimeout is when the most recent timeout occurred.
	LastTimeout time.Time

	// AverageTimeout is a smoothed timeout duration:
	// avg = (avg_prev + sample) / 2 per sample, an exponential moving
	// average rather than a true mean.
	AverageTimeout time.Duration

	// TotalRequests, SuccessfulRequests, and FailedRequests count completed
	// pipeline executions, including calls the pipeline itself rejected.
	TotalRequests      int64
	SuccessfulRequests int64
	FailedRequests     int64
}

// SuccessRate returns the percentage of successful requests, 100 when no
// requests have been observed yet.
func (m Metrics) SuccessRate() float64 {
	if m.TotalRequests == 0 {
		return 100
	}
	return float64(m.SuccessfulRequests) / float64(m.TotalRequests) * 100
}

// Monitor aggregates per-dependency resilience metrics.
// It implements resilience.EventListener and is safe for concurrent use.
type Monitor struct {
	mu      sync.RWMutex
	records map[string]*Metrics
}

// New creates an empty Monitor.
func New() *Monitor {
	return &Monitor{records: make(map[string]*Metrics)}
}

// StateChange records a circuit breaker transition for the dependency.
func (m *Monitor) StateChange(dependency string, from, to resilience.State) {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec := m.recordLocked(dependency)
	rec.State = to
	rec.LastStateChange = time.Now()
	switch to {
	case resilience.StateOpen:
		rec.OpenedCount++
	case resilience.StateClosed:
		rec.ClosedCount++
	case resilience.StateHalfOpen:
		rec.HalfOpenedCount++
	}
}

// Retry records one retry attempt for the dependency.
func (m *Monitor) Retry(dependency string, attempt int, reason string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.recordLocked(dependency).TotalRetries++
}

// Timeout records an attempt that hit its deadline.
func (m *Monitor) Timeout(dependency string, duration time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec := m.recordLocked(dependency)
	rec.TimeoutCount++
	rec.LastTimeout = time.Now()
	if rec.AverageTimeout == 0 {
		rec.AverageTimeout = duration
	} else {
		rec.AverageTimeout = (rec.AverageTimeout + duration) / 2
	}
}

// Call records one completed pipeline execution.
func (m *Monitor) Call(dependency string, duration time.Duration, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec := m.recordLocked(dependency)
	rec.TotalRequests++
	if err == nil {
		rec.SuccessfulRequests++
	} else {
		rec.FailedRequests++
	}
}

// Metrics returns a snapshot for the dependency, creating a default record
// (closed circuit, 100% success) if none exists yet.
func (m *Monitor) Metrics(dependency string) Metrics {
	m.mu.Lock()
	defer m.mu.Unlock()

	return *m.recordLocked(dependency)
}

// AllMetrics returns a point-in-time snapshot of every known dependency,
// keyed by name. The returned map is a copy.
func (m *Monitor) AllMetrics() map[string]Metrics {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make(map[string]Metrics, len(m.records))
	for name, rec := range m.records {
		out[name] = *rec
	}
	return out
}

// Reset clears the record for one dependency. Administrative use only.
func (m *Monitor) Reset(dependency string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.records, dependency)
}

func (m *Monitor) recordLocked(dependency string) *Metrics {
	rec, ok := m.records[dependency]
	if !ok {
		rec = &Metrics{
			Dependency:      dependency,
			State:           resilience.StateClosed,
			LastStateChange: time.Now(),
		}
		m.records[dependency] = rec
	}
	return rec
}

// interface guard
var _ resilience.EventListener = (*Monitor)(nil)
