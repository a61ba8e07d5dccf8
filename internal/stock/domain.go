// Package stock implements discrete, auditable stock movements. A movement
// document is created pending, and mutates the inventory ledger only at the
// moment it is approved.
package stock

import (
	"errors"
	"time"
)

// TransactionType enumerates supported movement documents.
type TransactionType string

const (
	// TypeImport is an inbound receipt into a warehouse.
	TypeImport TransactionType = "import"
	// TypeExport is an outbound issue from a warehouse.
	TypeExport TransactionType = "export"
	// TypeTransfer moves stock between two warehouses in one approval.
	TypeTransfer TransactionType = "transfer"
	// TypeDisposal writes off damaged or expired goods.
	TypeDisposal TransactionType = "disposal"
	// TypeStocktake reconciles counted stock against the ledger; line
	// quantities are signed (positive surplus, negative shortage).
	TypeStocktake TransactionType = "stocktake"
)

// Prefix returns the document-code prefix for the type.
func (t TransactionType) Prefix() string {
	switch t {
	case TypeImport:
		return "PNK"
	case TypeExport:
		return "PXK"
	case TypeTransfer:
		return "PCK"
	case TypeDisposal:
		return "PXH"
	case TypeStocktake:
		return "PKK"
	}
	return "STK"
}

// Valid reports whether the type is known.
func (t TransactionType) Valid() bool {
	switch t {
	case TypeImport, TypeExport, TypeTransfer, TypeDisposal, TypeStocktake:
		return true
	}
	return false
}

// Status is the document lifecycle state.
type Status string

const (
	// StatusPending means created but not yet applied to the ledger.
	StatusPending Status = "pending"
	// StatusApproved is terminal; the ledger deltas have been applied.
	StatusApproved Status = "approved"
	// StatusCancelled is terminal; the document never touched the ledger.
	StatusCancelled Status = "cancelled"
)

// Transaction models the header of a stock movement document.
type Transaction struct {
	ID                int64           `json:"id"`
	Code              string          `json:"code"`
	Type              TransactionType `json:"type"`
	Status            Status          `json:"status"`
	WarehouseID       int64           `json:"warehouse_id"`
	SourceWarehouseID int64           `json:"source_warehouse_id,omitempty"`
	DestWarehouseID   int64           `json:"dest_warehouse_id,omitempty"`
	TotalValue        float64         `json:"total_value"`
	Note              string          `json:"note,omitempty"`
	RefModule         string          `json:"ref_module,omitempty"`
	RefID             string          `json:"ref_id,omitempty"`
	CreatedBy         int64           `json:"created_by"`
	CreatedAt         time.Time       `json:"created_at"`
	ApprovedBy        int64           `json:"approved_by,omitempty"`
	ApprovedAt        *time.Time      `json:"approved_at,omitempty"`
	CancelledBy       int64           `json:"cancelled_by,omitempty"`
	CancelledAt       *time.Time      `json:"cancelled_at,omitempty"`
	CancelReason      string          `json:"cancel_reason,omitempty"`
	Details           []Detail        `json:"details,omitempty"`
}

// Detail models one product line of a movement document.
type Detail struct {
	ID            int64      `json:"id"`
	TransactionID int64      `json:"transaction_id"`
	ProductID     int64      `json:"product_id"`
	Quantity      float64    `json:"quantity"`
	UnitPrice     float64    `json:"unit_price"`
	Batch         string     `json:"batch,omitempty"`
	ExpiryDate    *time.Time `json:"expiry_date,omitempty"`
}

// ListFilter filters transaction listings.
type ListFilter struct {
	Type        TransactionType
	Status      Status
	WarehouseID int64
	From        time.Time
	To          time.Time
	Limit       int
	Offset      int
}

// ErrNoLines indicates a document without any detail line.
var ErrNoLines = errors.New("stock: at least one line required")
