package health

import (
	"context"
	"fmt"
	"time"

	"github.com/orderstack/fulfillment/monitor"
	"github.com/orderstack/fulfillment/resilience"
)

// DependencyCheckerConfig tunes the unhealthy classification rule.
type DependencyCheckerConfig struct {
	// MinSuccessRate is the success percentage below which the dependency is
	// unhealthy, once enough requests have been observed.
	// Default: 70
	MinSuccessRate float64

	// MinRequests is the request count that must be exceeded before the
	// success rate is considered meaningful.
	// Default: 10
	MinRequests int64

	// MaxTimeouts is the timeout count above which recent timeouts make the
	// dependency unhealthy.
	// Default: 5
	MaxTimeouts int64

	// TimeoutRecency bounds how recent the last timeout must be for the
	// timeout count to matter.
	// Default: 5 minutes
	TimeoutRecency time.Duration
}

// DependencyChecker classifies one dependency from the resilience monitor's
// metrics. A dependency is unhealthy when its circuit is open, when its
// success rate drops below the threshold with meaningful traffic, or when it
// has been timing out recently. A half-open circuit reports degraded: the
// dependency is being probed and may not take full traffic.
type DependencyChecker struct {
	dependency string
	monitor    *monitor.Monitor
	config     DependencyCheckerConfig
}

// NewDependencyChecker creates a checker for the named dependency.
func NewDependencyChecker(dependency string, m *monitor.Monitor, config DependencyCheckerConfig) *DependencyChecker {
	if config.MinSuccessRate <= 0 {
		config.MinSuccessRate = 70
	}
	if config.MinRequests <= 0 {
		config.MinRequests = 10
	}
	if config.MaxTimeouts <= 0 {
		config.MaxTimeouts = 5
	}
	if config.TimeoutRecency <= 0 {
		config.TimeoutRecency = 5 * time.Minute
	}

	return &DependencyChecker{
		dependency: dependency,
		monitor:    m,
		config:     config,
	}
}

// Name returns the dependency name.
func (c *DependencyChecker) Name() string { return c.dependency }

// Check classifies the dependency from the monitor's current record.
func (c *DependencyChecker) Check(ctx context.Context) Result {
	rec := c.monitor.Metrics(c.dependency)

	details := map[string]any{
		"circuit_state": rec.State.String(),
		"success_rate":  rec.SuccessRate(),
		"requests":      rec.TotalRequests,
		"retries":       rec.TotalRetries,
		"timeouts":      rec.TimeoutCount,
	}

	if rec.State == resilience.StateOpen {
		return Unhealthy("circuit breaker is open").WithDetails(details)
	}

	if rec.SuccessRate() < c.config.MinSuccessRate && rec.TotalRequests > c.config.MinRequests {
		msg := fmt.Sprintf("success rate %.1f%% below %.0f%%", rec.SuccessRate(), c.config.MinSuccessRate)
		return Unhealthy(msg).WithDetails(details)
	}

	if rec.TimeoutCount > c.config.MaxTimeouts && time.Since(rec.LastTimeout) <= c.config.TimeoutRecency {
		msg := fmt.Sprintf("%d timeouts, last %s ago", rec.TimeoutCount, time.Since(rec.LastTimeout).Round(time.Second))
		return Unhealthy(msg).WithDetails(details)
	}

	if rec.State == resilience.StateHalfOpen {
		return Degraded("circuit breaker is probing recovery").WithDetails(details)
	}

	return Healthy("dependency operating normally").WithDetails(details)
}
