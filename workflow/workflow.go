// Package workflow drives orders through fulfillment: inventory check and
// reservation, payment, then shipping. Every dependency call goes through
// that dependency's resilience pipeline, and every status transition is
// persisted before the next step runs, so a crashed workflow leaves the
// order in its last completed state.
package workflow

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/orderstack/fulfillment/backends"
	"github.com/orderstack/fulfillment/observe"
	"github.com/orderstack/fulfillment/order"
	"github.com/orderstack/fulfillment/orderlog"
	"github.com/orderstack/fulfillment/resilience"
)

// Step names recorded in the audit log.
const (
	stepCreate    = "create"
	stepInventory = "inventory"
	stepPayment   = "payment"
	stepShipping  = "shipping"
	stepOverride  = "override"
)

// Deps are the collaborators a Workflow needs. Repo, the three clients, and
// their pipelines are required; Logger and AuditLog default to no-ops.
type Deps struct {
	Repo      order.Repository
	Inventory backends.InventoryClient
	Payment   backends.PaymentClient
	Shipping  backends.ShippingClient

	InventoryPipeline *resilience.Pipeline
	PaymentPipeline   *resilience.Pipeline
	ShippingPipeline  *resilience.Pipeline

	Logger   observe.Logger
	AuditLog orderlog.Log
}

// Workflow executes the fulfillment steps for orders.
// Safe for concurrent use; each order is expected to be processed by one
// caller at a time.
type Workflow struct {
	deps Deps
}

// New creates a workflow, validating that all required collaborators are set.
func New(deps Deps) (*Workflow, error) {
	switch {
	case deps.Repo == nil:
		return nil, errors.New("workflow: repository is required")
	case deps.Inventory == nil, deps.Payment == nil, deps.Shipping == nil:
		return nil, errors.New("workflow: all three dependency clients are required")
	case deps.InventoryPipeline == nil, deps.PaymentPipeline == nil, deps.ShippingPipeline == nil:
		return nil, errors.New("workflow: all three resilience pipelines are required")
	}
	if deps.Logger == nil {
		deps.Logger = observe.NopLogger()
	}
	if deps.AuditLog == nil {
		deps.AuditLog = orderlog.Nop{}
	}
	return &Workflow{deps: deps}, nil
}

// CreateOrderRequest describes a new order.
type CreateOrderRequest struct {
	CustomerID      string
	Items           []order.Item
	ShippingAddress order.Address
	PaymentMethod   string
}

// CreateOrder validates the request, computes the order total, and persists
// the order in created state. No dependency is called.
func (w *Workflow) CreateOrder(ctx context.Context, req CreateOrderRequest) (*order.Order, error) {
	if req.CustomerID == "" {
		return nil, errors.New("workflow: customer ID is required")
	}
	if len(req.Items) == 0 {
		return nil, errors.New("workflow: order must contain at least one item")
	}

	var total float64
	for i, item := range req.Items {
		if item.ProductID == "" {
			return nil, fmt.Errorf("workflow: item %d missing product ID", i)
		}
		if item.Quantity <= 0 {
			return nil, fmt.Errorf("workflow: item %d has invalid quantity %d", i, item.Quantity)
		}
		if item.UnitPrice < 0 {
			return nil, fmt.Errorf("workflow: item %d has negative unit price", i)
		}
		total += item.TotalPrice()
	}

	o := &order.Order{
		ID:          uuid.NewString(),
		CustomerID:  req.CustomerID,
		CreatedAt:   time.Now().UTC(),
		Status:      order.StatusCreated,
		TotalAmount: total,
		Items:       append([]order.Item(nil), req.Items...),
		Shipping: &order.ShippingInfo{
			Status:          order.ShippingPending,
			DeliveryAddress: req.ShippingAddress,
		},
	}
	if req.PaymentMethod != "" {
		o.Payment = &order.PaymentInfo{
			PaymentMethod: req.PaymentMethod,
			Status:        order.PaymentPending,
		}
	}

	if err := w.deps.Repo.Create(ctx, o); err != nil {
		return nil, fmt.Errorf("workflow: create order: %w", err)
	}
	w.audit(ctx, o, stepCreate, "")
	w.deps.Logger.Info(ctx, "order created",
		observe.F("order_id", o.ID),
		observe.F("customer_id", o.CustomerID),
		observe.F("total_amount", o.TotalAmount),
	)
	return o.Clone(), nil
}

// ProcessOrder runs the fulfillment steps for a created order. On any step
// failure the order lands in failed state with the failure reason recorded,
// and the order in that final state is returned along with the step error.
func (w *Workflow) ProcessOrder(ctx context.Context, orderID string) (*order.Order, error) {
	o, err := w.deps.Repo.Get(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("workflow: load order %s: %w", orderID, err)
	}
	if o.Status != order.StatusCreated {
		return o, fmt.Errorf("workflow: order %s is %s, only created orders can be processed", orderID, o.Status)
	}

	if err := w.checkInventory(ctx, o); err != nil {
		return w.fail(ctx, o, stepInventory, err)
	}
	if err := w.processPayment(ctx, o); err != nil {
		return w.fail(ctx, o, stepPayment, err)
	}
	if err := w.arrangeShipping(ctx, o); err != nil {
		return w.fail(ctx, o, stepShipping, err)
	}

	w.deps.Logger.Info(ctx, "order fulfilled",
		observe.F("order_id", o.ID),
		observe.F("tracking_number", o.Shipping.TrackingNumber),
	)
	return o.Clone(), nil
}

// GetOrder returns the current state of an order.
func (w *Workflow) GetOrder(ctx context.Context, orderID string) (*order.Order, error) {
	return w.deps.Repo.Get(ctx, orderID)
}

// ListOrders returns a customer's orders, newest first.
func (w *Workflow) ListOrders(ctx context.Context, customerID string, offset, limit int) ([]*order.Order, error) {
	return w.deps.Repo.ListByCustomer(ctx, customerID, offset, limit)
}

// History returns the audit trail of an order, oldest first.
func (w *Workflow) History(ctx context.Context, orderID string) ([]orderlog.Entry, error) {
	return w.deps.AuditLog.ListByOrder(ctx, orderID)
}

// OverrideStatus forces an order into the given status regardless of its
// current state. Administrative escape hatch for stuck orders; the override
// is recorded in the audit log with the operator's reason.
func (w *Workflow) OverrideStatus(ctx context.Context, orderID string, status order.Status, reason string) (*order.Order, error) {
	o, err := w.deps.Repo.Get(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("workflow: load order %s: %w", orderID, err)
	}

	from := o.Status
	o.Status = status
	if status == order.StatusFailed && reason != "" {
		o.FailureReason = reason
	}
	o.Touch()
	if err := w.deps.Repo.Update(ctx, o); err != nil {
		return nil, fmt.Errorf("workflow: override order %s: %w", orderID, err)
	}
	w.audit(ctx, o, stepOverride, fmt.Sprintf("%s -> %s: %s", from, status, reason))
	w.deps.Logger.Warn(ctx, "order status overridden",
		observe.F("order_id", o.ID),
		observe.F("from", string(from)),
		observe.F("to", string(status)),
		observe.F("reason", reason),
	)
	return o.Clone(), nil
}

// checkInventory verifies availability and reserves stock for every item.
// If any item cannot be reserved, reservations already taken for this order
// are released before the error is returned.
func (w *Workflow) checkInventory(ctx context.Context, o *order.Order) error {
	reserved := make([]order.Item, 0, len(o.Items))

	for _, item := range o.Items {
		item := item
		outcome := w.deps.InventoryPipeline.Execute(ctx, func(ctx context.Context) error {
			available, err := w.deps.Inventory.CheckAvailability(ctx, item.ProductID, item.Quantity)
			if err != nil {
				return err
			}
			if !available {
				return resilience.Permanent("product %s: requested %d units not available", item.ProductID, item.Quantity)
			}
			return w.deps.Inventory.Reserve(ctx, o.ID, item.ProductID, item.Quantity)
		})
		if outcome.Err != nil {
			w.releaseReservations(ctx, o, reserved)
			return fmt.Errorf("inventory check failed: %w", outcome.Err)
		}
		reserved = append(reserved, item)
	}

	o.Status = order.StatusInventoryChecked
	o.Touch()
	if err := w.deps.Repo.Update(ctx, o); err != nil {
		w.releaseReservations(ctx, o, reserved)
		return fmt.Errorf("persist inventory result: %w", err)
	}
	w.audit(ctx, o, stepInventory, "")
	return nil
}

// processPayment charges the order total. The processing status is persisted
// before the provider is called so an interrupted payment is visible.
func (w *Workflow) processPayment(ctx context.Context, o *order.Order) error {
	method := ""
	if o.Payment != nil {
		method = o.Payment.PaymentMethod
	}
	o.Status = order.StatusPaymentProcessing
	o.Payment = &order.PaymentInfo{
		PaymentMethod: method,
		Status:        order.PaymentProcessing,
	}
	o.Touch()
	if err := w.deps.Repo.Update(ctx, o); err != nil {
		return fmt.Errorf("persist payment start: %w", err)
	}

	var result backends.PaymentResult
	outcome := w.deps.PaymentPipeline.Execute(ctx, func(ctx context.Context) error {
		var err error
		result, err = w.deps.Payment.ProcessPayment(ctx, backends.PaymentRequest{
			OrderID:    o.ID,
			CustomerID: o.CustomerID,
			Amount:     o.TotalAmount,
			Method:     method,
		})
		return err
	})

	if outcome.Err != nil {
		w.recordPaymentFailure(ctx, o, outcome.Err.Error())
		w.releaseReservations(ctx, o, o.Items)
		return fmt.Errorf("payment failed: %w", outcome.Err)
	}
	if !result.Success {
		w.recordPaymentFailure(ctx, o, result.FailureReason)
		w.releaseReservations(ctx, o, o.Items)
		return declineError{reason: result.FailureReason}
	}

	o.Status = order.StatusPaymentCompleted
	o.Payment = &order.PaymentInfo{
		PaymentID:     result.PaymentID,
		PaymentMethod: method,
		Status:        order.PaymentCompleted,
		ProcessedAt:   time.Now().UTC(),
	}
	o.Touch()
	if err := w.deps.Repo.Update(ctx, o); err != nil {
		return fmt.Errorf("persist payment result: %w", err)
	}
	w.audit(ctx, o, stepPayment, "payment "+result.PaymentID)
	return nil
}

// declineError is a payment declined by the provider. Its message is the
// provider's reason verbatim, so the order's terminal failure reason equals
// what the provider reported.
type declineError struct {
	reason string
}

func (e declineError) Error() string { return e.reason }

// recordPaymentFailure persists the intermediate payment-failed status before
// the order is moved to its terminal failed state.
func (w *Workflow) recordPaymentFailure(ctx context.Context, o *order.Order, reason string) {
	o.Status = order.StatusPaymentFailed
	o.Payment.Status = order.PaymentFailed
	o.Payment.FailureReason = reason
	o.Touch()
	if err := w.deps.Repo.Update(ctx, o); err != nil {
		w.deps.Logger.Error(ctx, "failed to persist payment failure",
			observe.F("order_id", o.ID),
			observe.F("error", err.Error()),
		)
	}
	w.audit(ctx, o, stepPayment, reason)
}

// arrangeShipping books the shipment for a paid order.
func (w *Workflow) arrangeShipping(ctx context.Context, o *order.Order) error {
	o.Status = order.StatusShipping
	o.Shipping.Status = order.ShippingProcessed
	o.Touch()
	if err := w.deps.Repo.Update(ctx, o); err != nil {
		return fmt.Errorf("persist shipping start: %w", err)
	}

	addr := o.Shipping.DeliveryAddress
	var result backends.ShipmentResult
	outcome := w.deps.ShippingPipeline.Execute(ctx, func(ctx context.Context) error {
		var err error
		result, err = w.deps.Shipping.CreateShipment(ctx, backends.ShipmentRequest{
			OrderID: o.ID,
			Street:  addr.Street,
			City:    addr.City,
			State:   addr.State,
			Zip:     addr.Zip,
			Country: addr.Country,
		})
		return err
	})
	if outcome.Err != nil {
		o.Shipping.Status = order.ShippingFailed
		return fmt.Errorf("shipping failed: %w", outcome.Err)
	}
	if !result.Success {
		o.Shipping.Status = order.ShippingFailed
		return fmt.Errorf("shipment rejected: %s", result.FailureReason)
	}

	now := time.Now().UTC()
	o.Status = order.StatusShipped
	o.Shipping.TrackingNumber = result.TrackingNumber
	o.Shipping.Carrier = result.Carrier
	o.Shipping.Status = order.ShippingShipped
	o.Shipping.ShippedAt = now
	o.Shipping.EstimatedDelivery = result.EstimatedDelivery
	o.Touch()
	if err := w.deps.Repo.Update(ctx, o); err != nil {
		return fmt.Errorf("persist shipping result: %w", err)
	}
	w.audit(ctx, o, stepShipping, "tracking "+result.TrackingNumber)
	return nil
}

// fail moves the order to its terminal failed state with the step's error as
// the failure reason.
func (w *Workflow) fail(ctx context.Context, o *order.Order, step string, stepErr error) (*order.Order, error) {
	o.Status = order.StatusFailed
	o.FailureReason = stepErr.Error()
	o.Touch()
	if err := w.deps.Repo.Update(ctx, o); err != nil {
		w.deps.Logger.Error(ctx, "failed to persist order failure",
			observe.F("order_id", o.ID),
			observe.F("error", err.Error()),
		)
	}
	w.audit(ctx, o, step, stepErr.Error())
	w.deps.Logger.Warn(ctx, "order failed",
		observe.F("order_id", o.ID),
		observe.F("step", step),
		observe.F("reason", stepErr.Error()),
	)
	return o.Clone(), fmt.Errorf("workflow: order %s: %w", o.ID, stepErr)
}

// releaseReservations returns reserved stock to inventory. Runs even when
// the caller's context is already cancelled; the release itself is
// best-effort and failures are only logged.
func (w *Workflow) releaseReservations(ctx context.Context, o *order.Order, items []order.Item) {
	releaseCtx := context.WithoutCancel(ctx)
	for _, item := range items {
		if err := w.deps.Inventory.Release(releaseCtx, o.ID, item.ProductID, item.Quantity); err != nil {
			w.deps.Logger.Error(ctx, "failed to release reservation",
				observe.F("order_id", o.ID),
				observe.F("product_id", item.ProductID),
				observe.F("error", err.Error()),
			)
		}
	}
}

// audit records a transition, best-effort.
func (w *Workflow) audit(ctx context.Context, o *order.Order, step, detail string) {
	err := w.deps.AuditLog.Append(ctx, orderlog.Entry{
		OrderID: o.ID,
		Status:  string(o.Status),
		Step:    step,
		Detail:  detail,
	})
	if err != nil {
		w.deps.Logger.Error(ctx, "failed to append audit entry",
			observe.F("order_id", o.ID),
			observe.F("error", err.Error()),
		)
	}
}
