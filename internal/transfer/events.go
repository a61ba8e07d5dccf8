package transfer

import (
	"context"
	"time"
)

// TransferCompletedEvent is emitted after a transfer commits its stock
// movement at the destination.
type TransferCompletedEvent struct {
	TransferID      int64     `json:"transfer_id"`
	Code            string    `json:"code"`
	SourceWarehouse int64     `json:"source_warehouse_id"`
	DestWarehouse   int64     `json:"dest_warehouse_id"`
	ActorID         int64     `json:"actor_id"`
	CompletedAt     time.Time `json:"completed_at"`
}

// IntegrationHandler receives transfer lifecycle events. Implementations
// must not fail the business operation; errors stay on their side.
type IntegrationHandler interface {
	HandleTransferCompleted(ctx context.Context, evt TransferCompletedEvent)
}
