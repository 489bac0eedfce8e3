// Package config holds the service configuration: HTTP listen address,
// storage backends, telemetry, admin auth, and the per-dependency
// resilience settings with their production defaults.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/orderstack/fulfillment/observe"
	"github.com/orderstack/fulfillment/resilience"
)

// DependencySettings are the resilience knobs for one downstream dependency.
type DependencySettings struct {
	// Timeout bounds each individual attempt.
	Timeout time.Duration

	// MaxConcurrent is the bulkhead slot count.
	MaxConcurrent int

	// MaxQueueLength bounds the bulkhead wait queue.
	MaxQueueLength int

	// MaxAttempts is the total attempt budget including the first call.
	MaxAttempts int

	// BaseDelay, MaxDelay, Multiplier, and JitterFraction shape the
	// retry backoff.
	BaseDelay      time.Duration
	MaxDelay       time.Duration
	Multiplier     float64
	JitterFraction float64

	// FailureThreshold over MinimumThroughput is the failure ratio that
	// opens the circuit within the sampling window.
	FailureThreshold  int
	MinimumThroughput int
	SamplingWindow    time.Duration
	BreakDuration     time.Duration
}

// Pipeline maps the settings onto a resilience pipeline configuration.
func (s DependencySettings) Pipeline() resilience.PipelineConfig {
	return resilience.PipelineConfig{
		Timeout: s.Timeout,
		Retry: resilience.RetryConfig{
			MaxAttempts:    s.MaxAttempts,
			BaseDelay:      s.BaseDelay,
			MaxDelay:       s.MaxDelay,
			Multiplier:     s.Multiplier,
			JitterFraction: s.JitterFraction,
		},
		CircuitBreaker: resilience.CircuitBreakerConfig{
			FailureThreshold:  s.FailureThreshold,
			MinimumThroughput: s.MinimumThroughput,
			SamplingWindow:    s.SamplingWindow,
			BreakDuration:     s.BreakDuration,
		},
		Bulkhead: resilience.BulkheadConfig{
			MaxConcurrent:  s.MaxConcurrent,
			MaxQueueLength: s.MaxQueueLength,
		},
	}
}

// Validate checks the settings for one dependency.
func (s DependencySettings) Validate() error {
	if s.Timeout <= 0 {
		return errors.New("timeout must be positive")
	}
	if s.MaxConcurrent <= 0 {
		return errors.New("max concurrent must be positive")
	}
	if s.MaxAttempts <= 0 {
		return errors.New("max attempts must be positive")
	}
	if s.FailureThreshold <= 0 || s.MinimumThroughput <= 0 {
		return errors.New("circuit breaker thresholds must be positive")
	}
	if s.JitterFraction < 0 || s.JitterFraction >= 1 {
		return errors.New("jitter fraction must be in [0, 1)")
	}
	return nil
}

// RedisConfig configures the Redis order store.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// AuthConfig configures the admin endpoint guard.
type AuthConfig struct {
	// SigningKey is the HMAC key for admin tokens. Admin endpoints are
	// disabled when empty.
	SigningKey string

	// Issuer is the expected token issuer.
	Issuer string

	// AdminRole is the role required for status overrides.
	// Default: "admin".
	AdminRole string
}

// Config is the full service configuration.
type Config struct {
	// HTTPAddr is the listen address for the HTTP API.
	HTTPAddr string

	// Store selects the order store: "memory" or "redis".
	Store string

	// Redis applies when Store is "redis".
	Redis RedisConfig

	// AuditLogPath is the SQLite file for the order audit trail.
	// Empty disables auditing.
	AuditLogPath string

	// Observe configures logging, tracing, and metrics.
	Observe observe.Config

	// Auth guards the admin endpoints.
	Auth AuthConfig

	// Inventory, Payment, and Shipping are the per-dependency
	// resilience settings.
	Inventory DependencySettings
	Payment   DependencySettings
	Shipping  DependencySettings
}

// retry and circuit breaker defaults shared by all dependencies
func baseSettings() DependencySettings {
	return DependencySettings{
		MaxQueueLength:    25,
		MaxAttempts:       3,
		BaseDelay:         time.Second,
		MaxDelay:          10 * time.Second,
		Multiplier:        2.0,
		JitterFraction:    0.1,
		FailureThreshold:  3,
		MinimumThroughput: 3,
		SamplingWindow:    10 * time.Second,
		BreakDuration:     30 * time.Second,
	}
}

// Default returns the production defaults.
func Default() Config {
	inventory := baseSettings()
	inventory.Timeout = 5 * time.Second
	inventory.MaxConcurrent = 10

	payment := baseSettings()
	payment.Timeout = 10 * time.Second
	payment.MaxConcurrent = 5

	shipping := baseSettings()
	shipping.Timeout = 8 * time.Second
	shipping.MaxConcurrent = 8

	return Config{
		HTTPAddr:     ":8080",
		Store:        "memory",
		Redis:        RedisConfig{Addr: "localhost:6379"},
		AuditLogPath: "orders.db",
		Observe: observe.Config{
			ServiceName: "fulfillment",
			Logging:     observe.LoggingConfig{Enabled: true, Level: "info"},
		},
		Auth:      AuthConfig{AdminRole: "admin"},
		Inventory: inventory,
		Payment:   payment,
		Shipping:  shipping,
	}
}

// FromEnv returns the defaults overridden by FULFILLMENT_* environment
// variables.
func FromEnv() (Config, error) {
	cfg := Default()

	if v := os.Getenv("FULFILLMENT_HTTP_ADDR"); v != "" {
		cfg.HTTPAddr = v
	}
	if v := os.Getenv("FULFILLMENT_STORE"); v != "" {
		cfg.Store = v
	}
	if v := os.Getenv("FULFILLMENT_REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := os.Getenv("FULFILLMENT_REDIS_PASSWORD"); v != "" {
		cfg.Redis.Password = v
	}
	if v := os.Getenv("FULFILLMENT_REDIS_DB"); v != "" {
		db, err := strconv.Atoi(v)
		if err != nil {
			return cfg, fmt.Errorf("config: invalid FULFILLMENT_REDIS_DB %q: %w", v, err)
		}
		cfg.Redis.DB = db
	}
	if v := os.Getenv("FULFILLMENT_AUDIT_LOG"); v != "" {
		cfg.AuditLogPath = v
	}
	if v := os.Getenv("FULFILLMENT_LOG_LEVEL"); v != "" {
		cfg.Observe.Logging.Level = v
	}
	if v := os.Getenv("FULFILLMENT_METRICS_EXPORTER"); v != "" {
		cfg.Observe.Metrics.Enabled = true
		cfg.Observe.Metrics.Exporter = v
	}
	if v := os.Getenv("FULFILLMENT_TRACING_EXPORTER"); v != "" {
		cfg.Observe.Tracing.Enabled = true
		cfg.Observe.Tracing.Exporter = v
		cfg.Observe.Tracing.SamplePct = 1.0
	}
	if v := os.Getenv("FULFILLMENT_OTLP_ENDPOINT"); v != "" {
		cfg.Observe.Tracing.Endpoint = v
		cfg.Observe.Metrics.Endpoint = v
	}
	if v := os.Getenv("FULFILLMENT_AUTH_KEY"); v != "" {
		cfg.Auth.SigningKey = v
	}
	if v := os.Getenv("FULFILLMENT_AUTH_ISSUER"); v != "" {
		cfg.Auth.Issuer = v
	}

	return cfg, nil
}

// Validate checks the whole configuration.
func (c Config) Validate() error {
	if c.HTTPAddr == "" {
		return errors.New("config: HTTP address is required")
	}
	if c.Store != "memory" && c.Store != "redis" {
		return fmt.Errorf("config: unknown store %q", c.Store)
	}
	if err := c.Observe.Validate(); err != nil {
		return fmt.Errorf("config: observe: %w", err)
	}
	for name, s := range map[string]DependencySettings{
		"inventory": c.Inventory,
		"payment":   c.Payment,
		"shipping":  c.Shipping,
	} {
		if err := s.Validate(); err != nil {
			return fmt.Errorf("config: %s: %w", name, err)
		}
	}
	return nil
}
