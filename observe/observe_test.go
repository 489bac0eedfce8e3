package observe

import (
	"context"
	"testing"
	"time"

	"go.opentelemetry.io/otel/metric/noop"

	"github.com/orderstack/fulfillment/resilience"
)

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{
			name:    "missing service name",
			cfg:     Config{},
			wantErr: true,
		},
		{
			name: "minimal valid",
			cfg:  Config{ServiceName: "fulfillment"},
		},
		{
			name: "unknown tracing exporter",
			cfg: Config{
				ServiceName: "fulfillment",
				Tracing:     TracingConfig{Enabled: true, Exporter: "zipkin"},
			},
			wantErr: true,
		},
		{
			name: "sample percentage out of range",
			cfg: Config{
				ServiceName: "fulfillment",
				Tracing:     TracingConfig{Enabled: true, Exporter: "stdout", SamplePct: 1.5},
			},
			wantErr: true,
		},
		{
			name: "unknown metrics exporter",
			cfg: Config{
				ServiceName: "fulfillment",
				Metrics:     MetricsConfig{Enabled: true, Exporter: "statsd"},
			},
			wantErr: true,
		},
		{
			name: "unknown log level",
			cfg: Config{
				ServiceName: "fulfillment",
				Logging:     LoggingConfig{Enabled: true, Level: "verbose"},
			},
			wantErr: true,
		},
		{
			name: "fully enabled",
			cfg: Config{
				ServiceName: "fulfillment",
				Tracing:     TracingConfig{Enabled: true, Exporter: "none", SamplePct: 0.5},
				Metrics:     MetricsConfig{Enabled: true, Exporter: "none"},
				Logging:     LoggingConfig{Enabled: true, Level: "info"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestNewObserver_AllDisabled(t *testing.T) {
	obs, err := NewObserver(context.Background(), Config{ServiceName: "fulfillment"})
	if err != nil {
		t.Fatalf("NewObserver() error = %v", err)
	}
	defer obs.Shutdown(context.Background())

	if obs.Tracer() == nil || obs.Meter() == nil || obs.Logger() == nil {
		t.Error("disabled observer returned nil primitives, want noop implementations")
	}
	// Noop logger must be callable without side effects.
	obs.Logger().Info(context.Background(), "noop")
}

func TestNewObserver_InvalidConfig(t *testing.T) {
	if _, err := NewObserver(context.Background(), Config{}); err == nil {
		t.Error("NewObserver() with empty config succeeded, want error")
	}
}

func TestCallMetrics_RecordsWithoutPanic(t *testing.T) {
	metrics, err := NewCallMetrics(noop.NewMeterProvider().Meter("test"))
	if err != nil {
		t.Fatalf("NewCallMetrics() error = %v", err)
	}

	metrics.StateChange("payment", resilience.StateClosed, resilience.StateOpen)
	metrics.Retry("payment", 1, "flaky")
	metrics.Timeout("payment", 100*time.Millisecond)
	metrics.Call("payment", 250*time.Millisecond, nil)
	metrics.Call("payment", 5*time.Millisecond, resilience.ErrCircuitOpen)
}

func TestCallMetrics_AttachesToPipeline(t *testing.T) {
	metrics, err := NewCallMetrics(noop.NewMeterProvider().Meter("test"))
	if err != nil {
		t.Fatalf("NewCallMetrics() error = %v", err)
	}

	p := resilience.NewPipeline("payment", resilience.PipelineConfig{}, resilience.WithListener(metrics))
	outcome := p.Execute(context.Background(), func(ctx context.Context) error { return nil })
	if !outcome.Success {
		t.Errorf("outcome = %+v, want success", outcome)
	}
}
