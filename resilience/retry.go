package resilience

import (
	"context"
	"math"
	"math/rand/v2"
	"time"
)

// RetryConfig configures the retry behavior.
type RetryConfig struct {
	// MaxAttempts is the maximum number of attempts (including initial).
	// Default: 3
	MaxAttempts int

	// BaseDelay is the delay before the first retry.
	// Default: 1s
	BaseDelay time.Duration

	// MaxDelay caps the maximum delay between retries.
	// Default: 10s
	MaxDelay time.Duration

	// Multiplier is the exponential backoff multiplier.
	// Default: 2.0
	Multiplier float64

	// JitterFraction perturbs each computed delay by up to ±fraction of
	// itself to avoid synchronized retry storms. Value between 0 and 1.
	// Default: 0.1
	JitterFraction float64

	// RetryIf determines if an error should trigger a retry.
	// Default: IsTransient.
	RetryIf func(err error) bool

	// OnRetry is called after each attempt is recorded, before its delay
	// elapses.
	OnRetry func(attempt Attempt)
}

// Attempt is one entry in the per-call retry ledger.
type Attempt struct {
	// Number is the 1-based attempt number that failed.
	Number int

	// Delay is the backoff applied before the next attempt.
	// Zero for the final attempt.
	Delay time.Duration

	// Reason is the failure message of this attempt.
	Reason string

	// Timestamp is when the attempt finished.
	Timestamp time.Time
}

// Retry implements retry with exponential backoff and jitter.
type Retry struct {
	config RetryConfig
}

// NewRetry creates a new retry handler.
func NewRetry(config RetryConfig) *Retry {
	// Apply defaults
	if config.MaxAttempts <= 0 {
		config.MaxAttempts = 3
	}
	if config.BaseDelay <= 0 {
		config.BaseDelay = time.Second
	}
	if config.MaxDelay <= 0 {
		config.MaxDelay = 10 * time.Second
	}
	if config.Multiplier <= 0 {
		config.Multiplier = 2.0
	}
	if config.JitterFraction <= 0 || config.JitterFraction >= 1 {
		config.JitterFraction = 0.1
	}
	if config.RetryIf == nil {
		config.RetryIf = IsTransient
	}

	return &Retry{config: config}
}

// Execute runs the operation with retry logic.
//
// Every failed attempt is appended to the returned ledger before its delay
// elapses; the ledger is returned regardless of the final outcome. A
// non-retryable error stops immediately and propagates as-is.
func (r *Retry) Execute(ctx context.Context, op func(context.Context) error) ([]Attempt, error) {
	var attempts []Attempt
	var lastErr error

	for attempt := 1; attempt <= r.config.MaxAttempts; attempt++ {
		err := op(ctx)
		if err == nil {
			return attempts, nil
		}
		lastErr = err

		if !r.config.RetryIf(err) {
			return attempts, err
		}

		// Last attempt carries no delay.
		if attempt >= r.config.MaxAttempts {
			attempts = append(attempts, Attempt{
				Number:    attempt,
				Reason:    err.Error(),
				Timestamp: time.Now(),
			})
			break
		}

		delay := r.calculateDelay(attempt)
		entry := Attempt{
			Number:    attempt,
			Delay:     delay,
			Reason:    err.Error(),
			Timestamp: time.Now(),
		}
		attempts = append(attempts, entry)

		if r.config.OnRetry != nil {
			r.config.OnRetry(entry)
		}

		select {
		case <-ctx.Done():
			return attempts, ctx.Err()
		case <-time.After(delay):
			// Continue to next attempt
		}
	}

	return attempts, lastErr
}

func (r *Retry) calculateDelay(attempt int) time.Duration {
	multiplier := math.Pow(r.config.Multiplier, float64(attempt-1))
	delay := time.Duration(float64(r.config.BaseDelay) * multiplier)

	// Cap at max delay before jitter is applied.
	if delay > r.config.MaxDelay {
		delay = r.config.MaxDelay
	}

	if r.config.JitterFraction > 0 && delay > 0 {
		// Perturb by ±JitterFraction of the computed delay.
		// #nosec G404 -- jitter is non-cryptographic timing variance.
		jitter := r.config.JitterFraction * (2*rand.Float64() - 1)
		delay = time.Duration(float64(delay) * (1 + jitter))
	}

	return delay
}

// Config returns the retry configuration.
func (r *Retry) Config() RetryConfig {
	return r.config
}
