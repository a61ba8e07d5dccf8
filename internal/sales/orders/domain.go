// Package orders implements the sales order fulfillment state machine.
// Delivery orders hold stock reserved from confirmation until dispatch;
// pickup orders take stock immediately and are born completed.
package orders

import (
	"errors"
	"time"
)

// OrderType distinguishes how the customer receives the goods.
type OrderType string

const (
	TypeDelivery OrderType = "delivery"
	TypePickup   OrderType = "pickup"
)

// Valid reports whether t is a known order type.
func (t OrderType) Valid() bool {
	return t == TypeDelivery || t == TypePickup
}

// Status is the fulfillment state of an order.
type Status string

const (
	StatusPending    Status = "pending"
	StatusPreparing  Status = "preparing"
	StatusDelivering Status = "delivering"
	StatusCompleted  Status = "completed"
	StatusCancelled  Status = "cancelled"
)

// CanCancel reports whether an order in this state may still be voided.
// Once goods leave the warehouse the order can only run to completion.
func (s Status) CanCancel() bool {
	return s == StatusPending || s == StatusPreparing
}

// PaymentStatus summarises how much of the order has been paid.
type PaymentStatus string

const (
	PaymentUnpaid  PaymentStatus = "unpaid"
	PaymentPartial PaymentStatus = "partial"
	PaymentPaid    PaymentStatus = "paid"
)

// Order is a sales order with its money and fulfillment state.
type Order struct {
	ID            int64         `json:"id"`
	Code          string        `json:"code"`
	CustomerID    int64         `json:"customer_id"`
	Type          OrderType     `json:"type"`
	Status        Status        `json:"status"`
	PaymentStatus PaymentStatus `json:"payment_status"`
	TotalAmount   float64       `json:"total_amount"`
	PaidAmount    float64       `json:"paid_amount"`
	Note          string        `json:"note,omitempty"`
	CreatedBy     int64         `json:"created_by"`
	CreatedAt     time.Time     `json:"created_at"`
	ApprovedBy    int64         `json:"approved_by,omitempty"`
	ApprovedAt    *time.Time    `json:"approved_at,omitempty"`
	CompletedAt   *time.Time    `json:"completed_at,omitempty"`
	CancelledBy   int64         `json:"cancelled_by,omitempty"`
	CancelledAt   *time.Time    `json:"cancelled_at,omitempty"`
	CancelReason  string        `json:"cancel_reason,omitempty"`
	Lines         []Line        `json:"lines,omitempty"`
	Delivery      *Delivery     `json:"delivery,omitempty"`
}

// Remaining is the unpaid part of the order total.
func (o Order) Remaining() float64 {
	return o.TotalAmount - o.PaidAmount
}

// Line is one product position on an order. LineTotal is quantity times
// unit price with discount applied before tax.
type Line struct {
	ID              int64   `json:"id"`
	OrderID         int64   `json:"order_id"`
	ProductID       int64   `json:"product_id"`
	WarehouseID     int64   `json:"warehouse_id"`
	Quantity        float64 `json:"quantity"`
	UnitPrice       float64 `json:"unit_price"`
	DiscountPercent float64 `json:"discount_percent"`
	TaxPercent      float64 `json:"tax_percent"`
	LineTotal       float64 `json:"line_total"`
}

// DeliveryStatus tracks the physical shipment of a delivery order.
type DeliveryStatus string

const (
	DeliveryPending   DeliveryStatus = "pending"
	DeliveryInTransit DeliveryStatus = "in_transit"
	DeliveryDelivered DeliveryStatus = "delivered"
)

// Delivery is the shipment record attached to a delivery order.
type Delivery struct {
	ID          int64          `json:"id"`
	OrderID     int64          `json:"order_id"`
	Status      DeliveryStatus `json:"status"`
	Address     string         `json:"address"`
	Phone       string         `json:"phone,omitempty"`
	ShippedAt   *time.Time     `json:"shipped_at,omitempty"`
	DeliveredAt *time.Time     `json:"delivered_at,omitempty"`
}

// PaymentReceipt records one payment against an order. Receipts are
// immutable; corrections are new receipts.
type PaymentReceipt struct {
	ID         int64     `json:"id"`
	OrderID    int64     `json:"order_id"`
	Amount     float64   `json:"amount"`
	Method     string    `json:"method"`
	ReceivedBy int64     `json:"received_by"`
	ReceivedAt time.Time `json:"received_at"`
}

// ListFilter narrows order listings.
type ListFilter struct {
	Status     Status
	Type       OrderType
	CustomerID int64
	From       time.Time
	To         time.Time
	Limit      int
	Offset     int
}

var ErrNoLines = errors.New("orders: at least one line required")
