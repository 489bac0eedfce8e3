package order

import (
	"testing"
	"time"
)

func TestStatus_Terminal(t *testing.T) {
	terminal := map[Status]bool{
		StatusCreated:           false,
		StatusInventoryChecked:  false,
		StatusPaymentProcessing: false,
		StatusPaymentCompleted:  false,
		StatusPaymentFailed:     false,
		StatusShipping:          false,
		StatusShipped:           true,
		StatusFailed:            true,
	}
	for status, want := range terminal {
		if got := status.Terminal(); got != want {
			t.Errorf("%s.Terminal() = %v, want %v", status, got, want)
		}
	}
}

func TestItem_TotalPrice(t *testing.T) {
	item := Item{ProductID: "widget", Quantity: 3, UnitPrice: 2.5}
	if got := item.TotalPrice(); got != 7.5 {
		t.Errorf("TotalPrice() = %v, want 7.5", got)
	}
}

func TestOrder_Clone(t *testing.T) {
	now := time.Now().UTC()
	o := &Order{
		ID:     "order-1",
		Status: StatusCreated,
		Items:  []Item{{ProductID: "widget", Quantity: 1, UnitPrice: 10}},
		Payment: &PaymentInfo{
			PaymentID: "pay-1",
			Status:    PaymentCompleted,
		},
		Shipping: &ShippingInfo{
			Status:          ShippingPending,
			DeliveryAddress: Address{City: "Springfield"},
		},
		UpdatedAt: &now,
	}

	c := o.Clone()
	c.Items[0].Quantity = 99
	c.Payment.Status = PaymentFailed
	c.Shipping.TrackingNumber = "TRACK"
	*c.UpdatedAt = now.Add(time.Hour)

	if o.Items[0].Quantity != 1 {
		t.Error("clone shares items slice")
	}
	if o.Payment.Status != PaymentCompleted {
		t.Error("clone shares payment info")
	}
	if o.Shipping.TrackingNumber != "" {
		t.Error("clone shares shipping info")
	}
	if !o.UpdatedAt.Equal(now) {
		t.Error("clone shares updated-at pointer")
	}
}

func TestOrder_Touch(t *testing.T) {
	o := &Order{ID: "order-1"}
	if o.UpdatedAt != nil {
		t.Fatal("fresh order already has UpdatedAt")
	}
	o.Touch()
	if o.UpdatedAt == nil || time.Since(*o.UpdatedAt) > time.Minute {
		t.Errorf("UpdatedAt = %v after Touch", o.UpdatedAt)
	}
}
