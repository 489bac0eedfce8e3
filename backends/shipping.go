package backends

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/orderstack/fulfillment/resilience"
)

// ShipmentRequest describes a shipment to arrange for a paid order.
type ShipmentRequest struct {
	OrderID string
	Street  string
	City    string
	State   string
	Zip     string
	Country string
}

// ShipmentResult is the carrier's answer to a shipment request.
type ShipmentResult struct {
	Success           bool
	TrackingNumber    string
	Carrier           string
	EstimatedDelivery time.Time
	FailureReason     string
}

// ShippingClient arranges shipments with a carrier.
type ShippingClient interface {
	CreateShipment(ctx context.Context, req ShipmentRequest) (ShipmentResult, error)
}

// SimulatedShippingConfig configures the in-memory shipping client.
type SimulatedShippingConfig struct {
	// Carrier is the carrier name stamped on every shipment.
	// Defaults to "SIMEX".
	Carrier string

	// TransitDays sets the estimated delivery window. Defaults to 5.
	TransitDays int

	// Faults injects latency and transient failures. Optional.
	Faults FaultConfig
}

// SimulatedShipping is an in-memory ShippingClient with fault injection.
type SimulatedShipping struct {
	carrier     string
	transitDays int
	faults      *faultInjector

	mu        sync.Mutex
	shipments map[string]ShipmentResult // keyed by order ID
	rng       *rand.Rand
}

// NewSimulatedShipping creates a simulated shipping client.
func NewSimulatedShipping(config SimulatedShippingConfig) *SimulatedShipping {
	if config.Carrier == "" {
		config.Carrier = "SIMEX"
	}
	if config.TransitDays <= 0 {
		config.TransitDays = 5
	}
	return &SimulatedShipping{
		carrier:     config.Carrier,
		transitDays: config.TransitDays,
		faults:      newFaultInjector(config.Faults),
		shipments:   make(map[string]ShipmentResult),
		rng:         rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// CreateShipment books a shipment for the order. Booking the same order twice
// returns the original tracking number.
func (s *SimulatedShipping) CreateShipment(ctx context.Context, req ShipmentRequest) (ShipmentResult, error) {
	if err := s.faults.inject(ctx, "shipping"); err != nil {
		return ShipmentResult{}, err
	}
	if req.OrderID == "" {
		return ShipmentResult{}, resilience.Permanent("shipping: missing order ID")
	}
	if req.Street == "" || req.City == "" || req.Country == "" {
		return ShipmentResult{
			Success:       false,
			FailureReason: "incomplete delivery address",
		}, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if prior, ok := s.shipments[req.OrderID]; ok {
		return prior, nil
	}

	result := ShipmentResult{
		Success:           true,
		TrackingNumber:    fmt.Sprintf("%s-%010d", s.carrier, s.rng.Int63n(1e10)),
		Carrier:           s.carrier,
		EstimatedDelivery: time.Now().UTC().AddDate(0, 0, s.transitDays),
	}
	s.shipments[req.OrderID] = result
	return result, nil
}

// FailNextCalls schedules the next n calls to fail with a transient error.
func (s *SimulatedShipping) FailNextCalls(n int) {
	s.faults.failNextCalls(n)
}

var _ ShippingClient = (*SimulatedShipping)(nil)
