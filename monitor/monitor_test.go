package monitor

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/orderstack/fulfillment/resilience"
)

func TestMonitor_DefaultRecord(t *testing.T) {
	m := New()

	rec := m.Metrics("payment")
	if rec.Dependency != "payment" {
		t.Errorf("Dependency = %q, want payment", rec.Dependency)
	}
	if rec.State != resilience.StateClosed {
		t.Errorf("State = %v, want closed", rec.State)
	}
	if rec.SuccessRate() != 100 {
		t.Errorf("SuccessRate() = %f, want 100", rec.SuccessRate())
	}
}

func TestMonitor_MetricsIdempotent(t *testing.T) {
	m := New()
	m.Call("inventory", time.Millisecond, nil)
	m.Retry("inventory", 1, "flaky")

	a := m.Metrics("inventory")
	b := m.Metrics("inventory")
	if a != b {
		t.Errorf("snapshots differ with no intervening events: %+v vs %+v", a, b)
	}
}

func TestMonitor_StateChangeCounts(t *testing.T) {
	m := New()

	m.StateChange("shipping", resilience.StateClosed, resilience.StateOpen)
	m.StateChange("shipping", resilience.StateOpen, resilience.StateHalfOpen)
	m.StateChange("shipping", resilience.StateHalfOpen, resilience.StateOpen)
	m.StateChange("shipping", resilience.StateOpen, resilience.StateHalfOpen)
	m.StateChange("shipping", resilience.StateHalfOpen, resilience.StateClosed)

	rec := m.Metrics("shipping")
	if rec.OpenedCount != 2 {
		t.Errorf("OpenedCount = %d, want 2", rec.OpenedCount)
	}
	if rec.HalfOpenedCount != 2 {
		t.Errorf("HalfOpenedCount = %d, want 2", rec.HalfOpenedCount)
	}
	if rec.ClosedCount != 1 {
		t.Errorf("ClosedCount = %d, want 1", rec.ClosedCount)
	}
	if rec.State != resilience.StateClosed {
		t.Errorf("State = %v, want closed", rec.State)
	}
	if rec.LastStateChange.IsZero() {
		t.Error("LastStateChange not recorded")
	}
}

func TestMonitor_CallCountsAndSuccessRate(t *testing.T) {
	m := New()

	for i := 0; i < 7; i++ {
		m.Call("payment", time.Millisecond, nil)
	}
	for i := 0; i < 3; i++ {
		m.Call("payment", time.Millisecond, errors.New("declined"))
	}

	rec := m.Metrics("payment")
	if rec.TotalRequests != 10 || rec.SuccessfulRequests != 7 || rec.FailedRequests != 3 {
		t.Errorf("counts = %d/%d/%d, want 10/7/3",
			rec.TotalRequests, rec.SuccessfulRequests, rec.FailedRequests)
	}
	if rec.SuccessRate() != 70 {
		t.Errorf("SuccessRate() = %f, want 70", rec.SuccessRate())
	}
}

func TestMonitor_TimeoutAverageSmoothing(t *testing.T) {
	m := New()

	m.Timeout("inventory", 100*time.Millisecond)
	if avg := m.Metrics("inventory").AverageTimeout; avg != 100*time.Millisecond {
		t.Errorf("AverageTimeout = %v, want 100ms", avg)
	}

	m.Timeout("inventory", 200*time.Millisecond)
	if avg := m.Metrics("inventory").AverageTimeout; avg != 150*time.Millisecond {
		t.Errorf("AverageTimeout = %v, want (100+200)/2 = 150ms", avg)
	}

	rec := m.Metrics("inventory")
	if rec.TimeoutCount != 2 {
		t.Errorf("TimeoutCount = %d, want 2", rec.TimeoutCount)
	}
	if rec.LastTimeout.IsZero() {
		t.Error("LastTimeout not recorded")
	}
}

func TestMonitor_AllMetricsIsSnapshot(t *testing.T) {
	m := New()
	m.Call("inventory", time.Millisecond, nil)
	m.Call("payment", time.Millisecond, nil)

	snap := m.AllMetrics()
	if len(snap) != 2 {
		t.Fatalf("snapshot size = %d, want 2", len(snap))
	}

	// Mutating after the snapshot must not change it.
	m.Call("inventory", time.Millisecond, errors.New("x"))
	if snap["inventory"].TotalRequests != 1 {
		t.Errorf("snapshot mutated: TotalRequests = %d, want 1", snap["inventory"].TotalRequests)
	}

	// Mutating the returned map must not affect the monitor.
	delete(snap, "payment")
	if m.Metrics("payment").TotalRequests != 1 {
		t.Error("deleting from a snapshot affected the monitor")
	}
}

func TestMonitor_Reset(t *testing.T) {
	m := New()
	m.Retry("shipping", 1, "flaky")
	m.Call("shipping", time.Millisecond, errors.New("x"))

	m.Reset("shipping")

	rec := m.Metrics("shipping")
	if rec.TotalRetries != 0 || rec.TotalRequests != 0 {
		t.Errorf("record after Reset = %+v, want default", rec)
	}
	if rec.SuccessRate() != 100 {
		t.Errorf("SuccessRate() after Reset = %f, want 100", rec.SuccessRate())
	}
}

func TestMonitor_ConcurrentRecording(t *testing.T) {
	m := New()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			m.Call("payment", time.Millisecond, nil)
			m.Retry("payment", 1, "flaky")
			if i%2 == 0 {
				m.Timeout("payment", time.Millisecond)
			}
		}(i)
	}
	wg.Wait()

	rec := m.Metrics("payment")
	if rec.TotalRequests != 50 {
		t.Errorf("TotalRequests = %d, want 50", rec.TotalRequests)
	}
	if rec.TotalRetries != 50 {
		t.Errorf("TotalRetries = %d, want 50", rec.TotalRetries)
	}
	if rec.TimeoutCount != 25 {
		t.Errorf("TimeoutCount = %d, want 25", rec.TimeoutCount)
	}
}

func TestMonitor_WiredIntoPipeline(t *testing.T) {
	m := New()
	p := resilience.NewPipeline("inventory", resilience.PipelineConfig{
		Timeout: time.Second,
		Retry: resilience.RetryConfig{
			MaxAttempts: 2,
			BaseDelay:   time.Millisecond,
		},
		CircuitBreaker: resilience.CircuitBreakerConfig{
			FailureThreshold:  1,
			MinimumThroughput: 1,
			BreakDuration:     time.Minute,
		},
		Bulkhead: resilience.BulkheadConfig{MaxConcurrent: 1, MaxQueueLength: 1},
	}, resilience.WithListener(m))

	_ = p.Execute(context.Background(), func(ctx context.Context) error {
		return resilience.Transient("down")
	})

	rec := m.Metrics("inventory")
	if rec.State != resilience.StateOpen {
		t.Errorf("State = %v, want open", rec.State)
	}
	if rec.OpenedCount != 1 {
		t.Errorf("OpenedCount = %d, want 1", rec.OpenedCount)
	}
	if rec.TotalRetries != 1 {
		t.Errorf("TotalRetries = %d, want 1", rec.TotalRetries)
	}
	if rec.FailedRequests != 1 {
		t.Errorf("FailedRequests = %d, want 1", rec.FailedRequests)
	}
}
