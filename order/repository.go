package order

import (
	"context"
	"errors"
)

// Sentinel errors for order persistence.
var (
	// ErrNotFound indicates no order exists with the given ID.
	ErrNotFound = errors.New("order: not found")

	// ErrAlreadyExists indicates an order with the given ID already exists.
	ErrAlreadyExists = errors.New("order: already exists")
)

// Repository is the persistence port for orders.
// The workflow depends on this abstraction, not on a concrete store, and
// calls Update after every status transition.
type Repository interface {
	// Create persists a new order. Fails with ErrAlreadyExists on ID reuse.
	Create(ctx context.Context, o *Order) error

	// Get returns the order with the given ID or ErrNotFound.
	Get(ctx context.Context, id string) (*Order, error)

	// Update overwrites an existing order. Fails with ErrNotFound if the
	// order was never created.
	Update(ctx context.Context, o *Order) error

	// ListByCustomer returns the customer's orders ordered by creation time,
	// newest first, with offset/limit paging.
	ListByCustomer(ctx context.Context, customerID string, offset, limit int) ([]*Order, error)
}
