package health

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/orderstack/fulfillment/monitor"
)

// LivenessHandler returns an HTTP handler for liveness probes.
func LivenessHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	}
}

// ReadinessHandler returns an HTTP handler that runs all checks in the
// aggregator and reports a single word.
func ReadinessHandler(agg *Aggregator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		results := agg.CheckAll(ctx)
		status := agg.OverallStatus(results)

		w.Header().Set("Content-Type", "text/plain")

		switch status {
		case StatusHealthy:
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte("OK"))
		case StatusDegraded:
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte("DEGRADED"))
		default:
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte("UNHEALTHY"))
		}
	}
}

// HealthResponse is the JSON response for the detailed health endpoint.
type HealthResponse struct {
	Status    string                   `json:"status"`
	Timestamp string                   `json:"timestamp"`
	Checks    map[string]CheckResponse `json:"checks,omitempty"`
}

// CheckResponse is the JSON response for a single health check.
type CheckResponse struct {
	Status   string         `json:"status"`
	Message  string         `json:"message,omitempty"`
	Duration string         `json:"duration,omitempty"`
	Details  map[string]any `json:"details,omitempty"`
}

// DetailedHandler returns an HTTP handler with per-dependency health detail.
func DetailedHandler(agg *Aggregator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
		defer cancel()

		results := agg.CheckAll(ctx)
		status := agg.OverallStatus(results)

		response := HealthResponse{
			Status:    status.String(),
			Timestamp: time.Now().UTC().Format(time.RFC3339),
			Checks:    make(map[string]CheckResponse, len(results)),
		}
		for name, result := range results {
			response.Checks[name] = CheckResponse{
				Status:   result.Status.String(),
				Message:  result.Message,
				Duration: result.Duration.String(),
				Details:  result.Details,
			}
		}

		w.Header().Set("Content-Type", "application/json")
		if status == StatusUnhealthy {
			w.WriteHeader(http.StatusServiceUnavailable)
		} else {
			w.WriteHeader(http.StatusOK)
		}
		_ = json.NewEncoder(w).Encode(response)
	}
}

// DependencyMetric is the JSON shape of one dependency's resilience record.
type DependencyMetric struct {
	CircuitState       string  `json:"circuit_state"`
	LastStateChange    string  `json:"last_state_change"`
	OpenedCount        int64   `json:"opened_count"`
	ClosedCount        int64   `json:"closed_count"`
	HalfOpenedCount    int64   `json:"half_opened_count"`
	TotalRetries       int64   `json:"total_retries"`
	TimeoutCount       int64   `json:"timeout_count"`
	LastTimeout        string  `json:"last_timeout,omitempty"`
	AverageTimeoutMS   float64 `json:"average_timeout_ms"`
	SuccessRate        float64 `json:"success_rate"`
	TotalRequests      int64   `json:"total_requests"`
	SuccessfulRequests int64   `json:"successful_requests"`
	FailedRequests     int64   `json:"failed_requests"`
}

// MetricsHandler returns an HTTP handler exposing the monitor's
// point-in-time snapshot of every dependency.
func MetricsHandler(m *monitor.Monitor) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		snap := m.AllMetrics()

		out := make(map[string]DependencyMetric, len(snap))
		for name, rec := range snap {
			dm := DependencyMetric{
				CircuitState:       rec.State.String(),
				LastStateChange:    rec.LastStateChange.UTC().Format(time.RFC3339),
				OpenedCount:        rec.OpenedCount,
				ClosedCount:        rec.ClosedCount,
				HalfOpenedCount:    rec.HalfOpenedCount,
				TotalRetries:       rec.TotalRetries,
				TimeoutCount:       rec.TimeoutCount,
				AverageTimeoutMS:   float64(rec.AverageTimeout.Microseconds()) / 1000,
				SuccessRate:        rec.SuccessRate(),
				TotalRequests:      rec.TotalRequests,
				SuccessfulRequests: rec.SuccessfulRequests,
				FailedRequests:     rec.FailedRequests,
			}
			if !rec.LastTimeout.IsZero() {
				dm.LastTimeout = rec.LastTimeout.UTC().Format(time.RFC3339)
			}
			out[name] = dm
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(out)
	}
}

// RegisterHandlers registers the health handlers on the given mux.
func RegisterHandlers(mux *http.ServeMux, agg *Aggregator, m *monitor.Monitor) {
	mux.HandleFunc("/healthz", LivenessHandler())
	mux.HandleFunc("/readyz", ReadinessHandler(agg))
	mux.HandleFunc("/health", DetailedHandler(agg))
	mux.HandleFunc("/health/dependencies", MetricsHandler(m))
}
