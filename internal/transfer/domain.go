// Package transfer implements the staged warehouse-to-warehouse movement
// workflow. Unlike a single-step transfer document, a staged transfer holds
// stock reserved at the source while goods are physically in transit, and
// only moves quantities once receipt is confirmed at the destination.
package transfer

import (
	"errors"
	"time"
)

// Status is the lifecycle state of a transfer.
type Status string

const (
	StatusPending   Status = "pending"
	StatusInTransit Status = "in_transit"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

// CanCancel reports whether a transfer in this state may still be voided.
// Completed transfers are immutable.
func (s Status) CanCancel() bool {
	return s == StatusPending || s == StatusInTransit
}

// Transfer is a staged movement between two warehouses.
type Transfer struct {
	ID              int64      `json:"id"`
	Code            string     `json:"code"`
	Status          Status     `json:"status"`
	SourceWarehouse int64      `json:"source_warehouse_id"`
	DestWarehouse   int64      `json:"dest_warehouse_id"`
	Note            string     `json:"note,omitempty"`
	CreatedBy       int64      `json:"created_by"`
	CreatedAt       time.Time  `json:"created_at"`
	ApprovedBy      int64      `json:"approved_by,omitempty"`
	ApprovedAt      *time.Time `json:"approved_at,omitempty"`
	CompletedBy     int64      `json:"completed_by,omitempty"`
	CompletedAt     *time.Time `json:"completed_at,omitempty"`
	CancelledBy     int64      `json:"cancelled_by,omitempty"`
	CancelledAt     *time.Time `json:"cancelled_at,omitempty"`
	CancelReason    string     `json:"cancel_reason,omitempty"`
	Details         []Detail   `json:"details,omitempty"`
}

// Detail is one product line of a transfer.
type Detail struct {
	ID         int64   `json:"id"`
	TransferID int64   `json:"transfer_id"`
	ProductID  int64   `json:"product_id"`
	Quantity   float64 `json:"quantity"`
}

// ListFilter narrows transfer listings.
type ListFilter struct {
	Status      Status
	WarehouseID int64
	Limit       int
	Offset      int
}

var ErrNoLines = errors.New("transfer: at least one line required")
