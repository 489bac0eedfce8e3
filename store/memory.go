// Package store provides order.Repository implementations: an in-memory
// store for tests and local runs, and a Redis-backed store for deployments
// that need orders to survive a restart.
package store

import (
	"context"
	"sort"
	"sync"

	"github.com/orderstack/fulfillment/order"
)

// Memory is a thread-safe in-memory order repository. Orders are cloned on
// the way in and out so callers never share the stored aggregate.
type Memory struct {
	mu     sync.RWMutex
	orders map[string]*order.Order
}

// NewMemory creates an empty in-memory repository.
func NewMemory() *Memory {
	return &Memory{orders: make(map[string]*order.Order)}
}

// Create persists a new order.
func (m *Memory) Create(ctx context.Context, o *order.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.orders[o.ID]; exists {
		return order.ErrAlreadyExists
	}
	m.orders[o.ID] = o.Clone()
	return nil
}

// Get returns a copy of the order with the given ID.
func (m *Memory) Get(ctx context.Context, id string) (*order.Order, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	o, ok := m.orders[id]
	if !ok {
		return nil, order.ErrNotFound
	}
	return o.Clone(), nil
}

// Update overwrites an existing order.
func (m *Memory) Update(ctx context.Context, o *order.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.orders[o.ID]; !exists {
		return order.ErrNotFound
	}
	m.orders[o.ID] = o.Clone()
	return nil
}

// ListByCustomer returns the customer's orders, newest first.
func (m *Memory) ListByCustomer(ctx context.Context, customerID string, offset, limit int) ([]*order.Order, error) {
	m.mu.RLock()
	matched := make([]*order.Order, 0)
	for _, o := range m.orders {
		if o.CustomerID == customerID {
			matched = append(matched, o.Clone())
		}
	}
	m.mu.RUnlock()

	sort.Slice(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	if offset < 0 {
		offset = 0
	}
	if offset >= len(matched) {
		return []*order.Order{}, nil
	}
	matched = matched[offset:]
	if limit > 0 && limit < len(matched) {
		matched = matched[:limit]
	}
	return matched, nil
}

// Len returns the number of stored orders.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.orders)
}

var _ order.Repository = (*Memory)(nil)
