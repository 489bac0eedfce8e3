// Package order defines the order aggregate and its persistence port.
//
// An Order is created once, mutated only by the fulfillment workflow as it
// advances through inventory, payment, and shipping, and never deleted. Only
// the current state is kept; there is no status history beyond the audit log.
package order
