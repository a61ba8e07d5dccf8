package orders

import (
	"context"
	"time"
)

// OrderCreatedEvent is emitted after an order commits.
type OrderCreatedEvent struct {
	OrderID     int64     `json:"order_id"`
	Code        string    `json:"code"`
	CustomerID  int64     `json:"customer_id"`
	Type        OrderType `json:"type"`
	TotalAmount float64   `json:"total_amount"`
	ActorID     int64     `json:"actor_id"`
	CreatedAt   time.Time `json:"created_at"`
}

// OrderStatusChangedEvent is emitted after a fulfillment transition commits.
type OrderStatusChangedEvent struct {
	OrderID int64     `json:"order_id"`
	Code    string    `json:"code"`
	From    Status    `json:"from"`
	To      Status    `json:"to"`
	ActorID int64     `json:"actor_id"`
	At      time.Time `json:"at"`
}

// IntegrationHandler receives order lifecycle events after commit.
// Implementations must not fail the business operation.
type IntegrationHandler interface {
	HandleOrderCreated(ctx context.Context, evt OrderCreatedEvent)
	HandleOrderStatusChanged(ctx context.Context, evt OrderStatusChangedEvent)
}
