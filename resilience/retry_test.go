package resilience

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestNewRetry_Defaults(t *testing.T) {
	r := NewRetry(RetryConfig{})

	if r.config.MaxAttempts != 3 {
		t.Errorf("MaxAttempts = %d, want 3", r.config.MaxAttempts)
	}
	if r.config.BaseDelay != time.Second {
		t.Errorf("BaseDelay = %v, want 1s", r.config.BaseDelay)
	}
	if r.config.MaxDelay != 10*time.Second {
		t.Errorf("MaxDelay = %v, want 10s", r.config.MaxDelay)
	}
	if r.config.Multiplier != 2.0 {
		t.Errorf("Multiplier = %f, want 2.0", r.config.Multiplier)
	}
	if r.config.JitterFraction != 0.1 {
		t.Errorf("JitterFraction = %f, want 0.1", r.config.JitterFraction)
	}
}

func TestRetry_SuccessOnFirstAttempt(t *testing.T) {
	r := NewRetry(RetryConfig{MaxAttempts: 3})

	attempts := 0
	ledger, err := r.Execute(context.Background(), func(ctx context.Context) error {
		attempts++
		return nil
	})

	if err != nil {
		t.Errorf("Execute() error = %v", err)
	}
	if attempts != 1 {
		t.Errorf("attempts = %d, want 1", attempts)
	}
	if len(ledger) != 0 {
		t.Errorf("ledger length = %d, want 0", len(ledger))
	}
}

func TestRetry_SuccessOnRetry(t *testing.T) {
	r := NewRetry(RetryConfig{
		MaxAttempts: 3,
		BaseDelay:   time.Millisecond,
	})

	attempts := 0
	ledger, err := r.Execute(context.Background(), func(ctx context.Context) error {
		attempts++
		if attempts < 3 {
			return Transient("temporarily unavailable")
		}
		return nil
	})

	if err != nil {
		t.Errorf("Execute() error = %v", err)
	}
	if attempts != 3 {
		t.Errorf("attempts = %d, want 3", attempts)
	}
	if len(ledger) != 2 {
		t.Fatalf("ledger length = %d, want 2", len(ledger))
	}
	if ledger[0].Number != 1 || ledger[1].Number != 2 {
		t.Errorf("ledger numbers = %d,%d, want 1,2", ledger[0].Number, ledger[1].Number)
	}
	if ledger[0].Reason != "temporarily unavailable" {
		t.Errorf("ledger reason = %q", ledger[0].Reason)
	}
}

func TestRetry_ExhaustedAttempts(t *testing.T) {
	r := NewRetry(RetryConfig{
		MaxAttempts: 3,
		BaseDelay:   time.Millisecond,
	})

	attempts := 0
	testErr := Transient("persistent failure")

	ledger, err := r.Execute(context.Background(), func(ctx context.Context) error {
		attempts++
		return testErr
	})

	if !errors.Is(err, testErr) {
		t.Errorf("Execute() error = %v, want %v", err, testErr)
	}
	if attempts != 3 {
		t.Errorf("attempts = %d, want 3", attempts)
	}
	// Ledger is surfaced regardless of outcome, including the final attempt.
	if len(ledger) != 3 {
		t.Fatalf("ledger length = %d, want 3", len(ledger))
	}
	if ledger[2].Delay != 0 {
		t.Errorf("final attempt delay = %v, want 0", ledger[2].Delay)
	}
}

func TestRetry_PermanentStopsImmediately(t *testing.T) {
	r := NewRetry(RetryConfig{
		MaxAttempts: 5,
		BaseDelay:   time.Millisecond,
	})

	attempts := 0
	testErr := Permanent("validation failed")

	_, err := r.Execute(context.Background(), func(ctx context.Context) error {
		attempts++
		return testErr
	})

	if !errors.Is(err, testErr) {
		t.Errorf("Execute() error = %v, want %v", err, testErr)
	}
	if attempts != 1 {
		t.Errorf("attempts = %d, want 1 (no retry on permanent errors)", attempts)
	}
}

func TestRetry_UnmarkedErrorNotRetried(t *testing.T) {
	r := NewRetry(RetryConfig{MaxAttempts: 5, BaseDelay: time.Millisecond})

	attempts := 0
	_, err := r.Execute(context.Background(), func(ctx context.Context) error {
		attempts++
		return errors.New("unexpected")
	})

	if err == nil {
		t.Fatal("Execute() error = nil, want error")
	}
	if attempts != 1 {
		t.Errorf("attempts = %d, want 1", attempts)
	}
}

func TestRetry_OnRetryCallback(t *testing.T) {
	var seen []Attempt
	r := NewRetry(RetryConfig{
		MaxAttempts: 3,
		BaseDelay:   time.Millisecond,
		OnRetry: func(a Attempt) {
			seen = append(seen, a)
		},
	})

	_, _ = r.Execute(context.Background(), func(ctx context.Context) error {
		return Transient("flaky")
	})

	// The final attempt has no delay and triggers no callback.
	if len(seen) != 2 {
		t.Fatalf("OnRetry calls = %d, want 2", len(seen))
	}
	if seen[0].Number != 1 {
		t.Errorf("first callback attempt = %d, want 1", seen[0].Number)
	}
}

func TestRetry_DelaysNonDecreasingUpToCap(t *testing.T) {
	r := NewRetry(RetryConfig{
		MaxAttempts:    6,
		BaseDelay:      time.Millisecond,
		MaxDelay:       4 * time.Millisecond,
		Multiplier:     2.0,
		JitterFraction: 0.0001, // effectively disabled, config rejects exact zero as unset
	})

	ledger, _ := r.Execute(context.Background(), func(ctx context.Context) error {
		return Transient("always failing")
	})

	if len(ledger) != 6 {
		t.Fatalf("ledger length = %d, want 6", len(ledger))
	}
	bound := time.Duration(float64(4*time.Millisecond) * 1.01)
	var prev time.Duration
	for _, a := range ledger[:len(ledger)-1] {
		if a.Delay < prev && prev-a.Delay > time.Duration(float64(prev)*0.01) {
			t.Errorf("attempt %d delay %v decreased from %v", a.Number, a.Delay, prev)
		}
		if a.Delay > bound {
			t.Errorf("attempt %d delay %v exceeds max delay + jitter bound", a.Number, a.Delay)
		}
		prev = a.Delay
	}
}

func TestRetry_JitterWithinBounds(t *testing.T) {
	r := NewRetry(RetryConfig{
		MaxAttempts:    2,
		BaseDelay:      10 * time.Millisecond,
		JitterFraction: 0.1,
	})

	for i := 0; i < 50; i++ {
		d := r.calculateDelay(1)
		lo := time.Duration(float64(10*time.Millisecond) * 0.9)
		hi := time.Duration(float64(10*time.Millisecond) * 1.1)
		if d < lo || d > hi {
			t.Fatalf("calculateDelay(1) = %v, want within [%v, %v]", d, lo, hi)
		}
	}
}

func TestRetry_ContextCancellation(t *testing.T) {
	r := NewRetry(RetryConfig{
		MaxAttempts: 10,
		BaseDelay:   100 * time.Millisecond,
	})

	ctx, cancel := context.WithCancel(context.Background())

	attempts := 0
	done := make(chan struct{})
	var err error
	go func() {
		_, err = r.Execute(ctx, func(ctx context.Context) error {
			attempts++
			return Transient("failing")
		})
		close(done)
	}()

	time.Sleep(10 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Execute() did not return after cancellation")
	}

	if !errors.Is(err, context.Canceled) {
		t.Errorf("Execute() error = %v, want context.Canceled", err)
	}
	if attempts != 1 {
		t.Errorf("attempts = %d, want 1", attempts)
	}
}
