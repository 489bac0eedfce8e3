package backends

import (
	"context"
	"sync"

	"github.com/orderstack/fulfillment/resilience"
)

// InventoryClient checks and reserves stock for order items.
type InventoryClient interface {
	// CheckAvailability reports whether at least qty units of the product
	// are in unreserved stock.
	CheckAvailability(ctx context.Context, productID string, qty int) (bool, error)

	// Reserve holds qty units of the product for the given order.
	Reserve(ctx context.Context, orderID, productID string, qty int) error

	// Release returns a prior reservation to stock. Releasing a reservation
	// that does not exist is a no-op.
	Release(ctx context.Context, orderID, productID string, qty int) error
}

// SimulatedInventoryConfig configures the in-memory inventory client.
type SimulatedInventoryConfig struct {
	// InitialStock seeds stock levels per product ID.
	InitialStock map[string]int

	// Faults injects latency and transient failures. Optional.
	Faults FaultConfig
}

// SimulatedInventory is an in-memory InventoryClient with fault injection.
type SimulatedInventory struct {
	faults *faultInjector

	mu           sync.Mutex
	stock        map[string]int
	reservations map[string]int // keyed by orderID/productID
}

// NewSimulatedInventory creates a simulated inventory client seeded with the
// configured stock levels.
func NewSimulatedInventory(config SimulatedInventoryConfig) *SimulatedInventory {
	stock := make(map[string]int, len(config.InitialStock))
	for id, qty := range config.InitialStock {
		stock[id] = qty
	}
	return &SimulatedInventory{
		faults:       newFaultInjector(config.Faults),
		stock:        stock,
		reservations: make(map[string]int),
	}
}

func reservationKey(orderID, productID string) string {
	return orderID + "/" + productID
}

// CheckAvailability reports whether qty units are in unreserved stock.
func (s *SimulatedInventory) CheckAvailability(ctx context.Context, productID string, qty int) (bool, error) {
	if err := s.faults.inject(ctx, "inventory check"); err != nil {
		return false, err
	}
	if qty <= 0 {
		return false, resilience.Permanent("inventory: invalid quantity %d", qty)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stock[productID] >= qty, nil
}

// Reserve holds qty units for the order, failing permanently when stock is
// insufficient. Repeating a reservation for the same order and product is
// idempotent.
func (s *SimulatedInventory) Reserve(ctx context.Context, orderID, productID string, qty int) error {
	if err := s.faults.inject(ctx, "inventory reserve"); err != nil {
		return err
	}
	if qty <= 0 {
		return resilience.Permanent("inventory: invalid quantity %d", qty)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := reservationKey(orderID, productID)
	if _, held := s.reservations[key]; held {
		return nil
	}
	if s.stock[productID] < qty {
		return resilience.Permanent("inventory: insufficient stock for product %s (have %d, need %d)",
			productID, s.stock[productID], qty)
	}
	s.stock[productID] -= qty
	s.reservations[key] = qty
	return nil
}

// Release returns a reservation to stock. Unknown reservations are ignored.
func (s *SimulatedInventory) Release(ctx context.Context, orderID, productID string, qty int) error {
	if err := s.faults.inject(ctx, "inventory release"); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := reservationKey(orderID, productID)
	held, ok := s.reservations[key]
	if !ok {
		return nil
	}
	delete(s.reservations, key)
	s.stock[productID] += held
	return nil
}

// Stock returns the current unreserved stock for a product.
func (s *SimulatedInventory) Stock(productID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stock[productID]
}

// Reserved returns the quantity held for an order and product, if any.
func (s *SimulatedInventory) Reserved(orderID, productID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reservations[reservationKey(orderID, productID)]
}

// FailNextCalls schedules the next n calls to fail with a transient error.
func (s *SimulatedInventory) FailNextCalls(n int) {
	s.faults.failNextCalls(n)
}

// SetStock overwrites the stock level for a product.
func (s *SimulatedInventory) SetStock(productID string, qty int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stock[productID] = qty
}

var _ InventoryClient = (*SimulatedInventory)(nil)
