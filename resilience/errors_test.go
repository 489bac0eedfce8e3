package resilience

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

func TestClassification(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		transient bool
		permanent bool
	}{
		{"nil", nil, false, false},
		{"unmarked", errors.New("boom"), false, false},
		{"transient", Transient("connection reset"), true, false},
		{"permanent", Permanent("card declined"), false, true},
		{"timeout sentinel", ErrTimeout, true, false},
		{"deadline", context.DeadlineExceeded, true, false},
		{"wrapped transient", fmt.Errorf("call failed: %w", Transient("unavailable")), true, false},
		{"wrapped permanent", fmt.Errorf("call failed: %w", Permanent("not found")), false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsTransient(tt.err); got != tt.transient {
				t.Errorf("IsTransient() = %v, want %v", got, tt.transient)
			}
			if got := IsPermanent(tt.err); got != tt.permanent {
				t.Errorf("IsPermanent() = %v, want %v", got, tt.permanent)
			}
		})
	}
}

func TestIsRejection(t *testing.T) {
	if !IsRejection(ErrCircuitOpen) {
		t.Error("ErrCircuitOpen should be a rejection")
	}
	if !IsRejection(fmt.Errorf("wrapped: %w", ErrBulkheadFull)) {
		t.Error("wrapped ErrBulkheadFull should be a rejection")
	}
	if IsRejection(errors.New("dependency failure")) {
		t.Error("dependency failures are not rejections")
	}
	if IsRejection(ErrTimeout) {
		t.Error("timeouts are not rejections")
	}
}

func TestMarkNil(t *testing.T) {
	if MarkTransient(nil) != nil {
		t.Error("MarkTransient(nil) should be nil")
	}
	if MarkPermanent(nil) != nil {
		t.Error("MarkPermanent(nil) should be nil")
	}
}
