// Package orderlog records an append-only audit trail of order status
// transitions. Orders themselves keep only their current state; the log is
// where history lives.
package orderlog

import (
	"context"
	"time"
)

// Entry is one recorded status transition.
type Entry struct {
	ID        int64     `json:"id"`
	OrderID   string    `json:"order_id"`
	Status    string    `json:"status"`
	Step      string    `json:"step"`
	Detail    string    `json:"detail,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Log is the audit trail port. Implementations must be safe for concurrent
// use; entries are append-only and never modified.
type Log interface {
	// Append records a transition. CreatedAt is stamped by the
	// implementation when zero.
	Append(ctx context.Context, entry Entry) error

	// ListByOrder returns the order's entries oldest first.
	ListByOrder(ctx context.Context, orderID string) ([]Entry, error)
}

// Nop is a Log that discards everything. Used where auditing is disabled.
type Nop struct{}

func (Nop) Append(ctx context.Context, entry Entry) error { return nil }

func (Nop) ListByOrder(ctx context.Context, orderID string) ([]Entry, error) {
	return nil, nil
}

var _ Log = Nop{}
