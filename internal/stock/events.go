package stock

import (
	"context"
	"time"
)

// TransactionApprovedEvent is emitted after an approval commits.
type TransactionApprovedEvent struct {
	TransactionID int64
	Code          string
	Type          TransactionType
	WarehouseID   int64
	DestWarehouse int64
	ActorID       int64
	ApprovedAt    time.Time
}

// IntegrationHandler receives domain events after successful operations.
// Implementations must not block the business outcome; errors are handled by
// the hook itself, never propagated back.
type IntegrationHandler interface {
	HandleStockTransactionApproved(ctx context.Context, evt TransactionApprovedEvent)
}
