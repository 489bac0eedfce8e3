package backends

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/orderstack/fulfillment/resilience"
)

// FaultConfig controls injected latency and failures for simulated clients.
// The zero value injects nothing.
type FaultConfig struct {
	// Latency is added to every call before it does any work.
	Latency time.Duration

	// FailureRate is the probability in [0, 1] that a call fails with a
	// transient error before doing any work.
	FailureRate float64

	// FailNext forces the next N calls to fail regardless of FailureRate.
	// Useful in tests to script exact failure sequences.
	FailNext int
}

// faultInjector applies a FaultConfig at the top of each simulated call.
type faultInjector struct {
	latency time.Duration

	mu          sync.Mutex
	failureRate float64
	failNext    int
	rng         *rand.Rand
}

func newFaultInjector(config FaultConfig) *faultInjector {
	return &faultInjector{
		latency:     config.Latency,
		failureRate: config.FailureRate,
		failNext:    config.FailNext,
		rng:         rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// inject sleeps for the configured latency, honoring context cancellation,
// then decides whether this call fails.
func (f *faultInjector) inject(ctx context.Context, op string) error {
	if f.latency > 0 {
		timer := time.NewTimer(f.latency)
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if f.failNext > 0 {
		f.failNext--
		return resilience.Transient("%s: injected failure", op)
	}
	if f.failureRate > 0 && f.rng.Float64() < f.failureRate {
		return resilience.Transient("%s: service unavailable", op)
	}
	return nil
}

// failNextCalls schedules the next n calls to fail.
func (f *faultInjector) failNextCalls(n int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failNext = n
}
