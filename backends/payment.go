package backends

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/orderstack/fulfillment/resilience"
)

// PaymentRequest describes a charge to process.
type PaymentRequest struct {
	OrderID    string
	CustomerID string
	Amount     float64
	Method     string
}

// PaymentResult is the provider's answer to a charge. A declined payment is
// not an error: the call succeeded and the provider said no.
type PaymentResult struct {
	Success       bool
	PaymentID     string
	Status        string
	FailureReason string
}

// PaymentClient processes charges against a payment provider.
type PaymentClient interface {
	ProcessPayment(ctx context.Context, req PaymentRequest) (PaymentResult, error)
}

// SimulatedPaymentConfig configures the in-memory payment client.
type SimulatedPaymentConfig struct {
	// DeclineAbove declines any charge strictly greater than this amount.
	// Zero means no limit.
	DeclineAbove float64

	// Faults injects latency and transient failures. Optional.
	Faults FaultConfig
}

// SimulatedPayment is an in-memory PaymentClient with fault injection.
// Processing the same order twice returns the original result instead of
// charging again.
type SimulatedPayment struct {
	declineAbove float64
	faults       *faultInjector

	mu        sync.Mutex
	processed map[string]PaymentResult // keyed by order ID
}

// NewSimulatedPayment creates a simulated payment client.
func NewSimulatedPayment(config SimulatedPaymentConfig) *SimulatedPayment {
	return &SimulatedPayment{
		declineAbove: config.DeclineAbove,
		faults:       newFaultInjector(config.Faults),
		processed:    make(map[string]PaymentResult),
	}
}

// ProcessPayment charges the request amount, declining charges above the
// configured limit.
func (s *SimulatedPayment) ProcessPayment(ctx context.Context, req PaymentRequest) (PaymentResult, error) {
	if err := s.faults.inject(ctx, "payment"); err != nil {
		return PaymentResult{}, err
	}
	if req.OrderID == "" {
		return PaymentResult{}, resilience.Permanent("payment: missing order ID")
	}
	if req.Amount <= 0 {
		return PaymentResult{}, resilience.Permanent("payment: invalid amount %.2f", req.Amount)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if prior, ok := s.processed[req.OrderID]; ok {
		return prior, nil
	}

	result := PaymentResult{
		Success:   true,
		PaymentID: uuid.NewString(),
		Status:    "COMPLETED",
	}
	if s.declineAbove > 0 && req.Amount > s.declineAbove {
		result = PaymentResult{
			Success:       false,
			Status:        "DECLINED",
			FailureReason: "amount exceeds authorized limit",
		}
	}
	s.processed[req.OrderID] = result
	return result, nil
}

// FailNextCalls schedules the next n calls to fail with a transient error.
func (s *SimulatedPayment) FailNextCalls(n int) {
	s.faults.failNextCalls(n)
}

var _ PaymentClient = (*SimulatedPayment)(nil)
