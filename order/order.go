package order

import "time"

// Status is the lifecycle state of an order.
type Status string

const (
	StatusCreated           Status = "CREATED"
	StatusInventoryChecked  Status = "INVENTORY_CHECKED"
	StatusPaymentProcessing Status = "PAYMENT_PROCESSING"
	StatusPaymentCompleted  Status = "PAYMENT_COMPLETED"
	StatusPaymentFailed     Status = "PAYMENT_FAILED"
	StatusShipping          Status = "SHIPPING"
	StatusShipped           Status = "SHIPPED"
	StatusFailed            Status = "FAILED"
)

// Terminal reports whether no workflow step may follow this status.
func (s Status) Terminal() bool {
	return s == StatusShipped || s == StatusFailed
}

// PaymentStatus is the lifecycle state of a payment attempt.
type PaymentStatus string

const (
	PaymentPending    PaymentStatus = "PENDING"
	PaymentProcessing PaymentStatus = "PROCESSING"
	PaymentCompleted  PaymentStatus = "COMPLETED"
	PaymentFailed     PaymentStatus = "FAILED"
	PaymentRefunded   PaymentStatus = "REFUNDED"
)

// ShippingStatus is the lifecycle state of a shipment.
type ShippingStatus string

const (
	ShippingPending   ShippingStatus = "PENDING"
	ShippingProcessed ShippingStatus = "PROCESSING"
	ShippingShipped   ShippingStatus = "SHIPPED"
	ShippingInTransit ShippingStatus = "IN_TRANSIT"
	ShippingDelivered ShippingStatus = "DELIVERED"
	ShippingFailed    ShippingStatus = "FAILED"
)

// Address is a delivery address.
type Address struct {
	Street  string `json:"street"`
	City    string `json:"city"`
	State   string `json:"state"`
	Zip     string `json:"zip"`
	Country string `json:"country"`
}

// Item is one line of an order. Immutable after order creation.
type Item struct {
	ProductID   string  `json:"product_id"`
	ProductName string  `json:"product_name"`
	Quantity    int     `json:"quantity"`
	UnitPrice   float64 `json:"unit_price"`
}

// TotalPrice returns the line total.
func (i Item) TotalPrice() float64 {
	return float64(i.Quantity) * i.UnitPrice
}

// PaymentInfo records the outcome of the payment step.
// Created or overwritten once per payment attempt.
type PaymentInfo struct {
	PaymentID     string        `json:"payment_id"`
	PaymentMethod string        `json:"payment_method"`
	Status        PaymentStatus `json:"status"`
	ProcessedAt   time.Time     `json:"processed_at"`
	FailureReason string        `json:"failure_reason,omitempty"`
}

// ShippingInfo records the shipment for an order. Created with the order in
// pending state and updated when the shipment is arranged.
type ShippingInfo struct {
	TrackingNumber    string         `json:"tracking_number,omitempty"`
	Carrier           string         `json:"carrier,omitempty"`
	Status            ShippingStatus `json:"status"`
	ShippedAt         time.Time      `json:"shipped_at,omitzero"`
	EstimatedDelivery time.Time      `json:"estimated_delivery,omitzero"`
	DeliveryAddress   Address        `json:"delivery_address"`
}

// Order is the aggregate root.
//
// TotalAmount equals the sum of item line totals at creation time and is
// never recomputed afterwards.
type Order struct {
	ID            string        `json:"id"`
	CustomerID    string        `json:"customer_id"`
	CreatedAt     time.Time     `json:"created_at"`
	UpdatedAt     *time.Time    `json:"updated_at,omitempty"`
	Status        Status        `json:"status"`
	TotalAmount   float64       `json:"total_amount"`
	Items         []Item        `json:"items"`
	Payment       *PaymentInfo  `json:"payment,omitempty"`
	Shipping      *ShippingInfo `json:"shipping,omitempty"`
	FailureReason string        `json:"failure_reason,omitempty"`
}

// Touch stamps the order as updated now.
func (o *Order) Touch() {
	now := time.Now().UTC()
	o.UpdatedAt = &now
}

// Clone returns a deep copy so callers can hand orders across goroutines
// without sharing the aggregate's mutable parts.
func (o *Order) Clone() *Order {
	c := *o
	c.Items = append([]Item(nil), o.Items...)
	if o.UpdatedAt != nil {
		t := *o.UpdatedAt
		c.UpdatedAt = &t
	}
	if o.Payment != nil {
		p := *o.Payment
		c.Payment = &p
	}
	if o.Shipping != nil {
		s := *o.Shipping
		c.Shipping = &s
	}
	return &c
}
