// Package inventory owns the per (warehouse, product) stock ledger. Every
// quantity mutation in the system funnels through ApplyDelta so the
// reserved-never-exceeds-on-hand invariant is enforced in exactly one place.
package inventory

import (
	"errors"
	"fmt"
	"time"

	"github.com/nguyenhoangkha03/quan-ly-ban-hang-backend-sub002/internal/shared"
)

// Record summarises stock in a warehouse per product.
type Record struct {
	WarehouseID      int64     `json:"warehouse_id"`
	ProductID        int64     `json:"product_id"`
	Quantity         float64   `json:"quantity"`
	ReservedQuantity float64   `json:"reserved_quantity"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// Available returns on-hand minus reserved, what can still be committed.
func (r Record) Available() float64 {
	return r.Quantity - r.ReservedQuantity
}

// AvailabilityItem is one line of a pre-flight availability check.
type AvailabilityItem struct {
	WarehouseID int64   `json:"warehouse_id"`
	ProductID   int64   `json:"product_id"`
	Quantity    float64 `json:"quantity"`
}

// Availability reports whether one requested line can be covered.
type Availability struct {
	WarehouseID int64   `json:"warehouse_id"`
	ProductID   int64   `json:"product_id"`
	Requested   float64 `json:"requested"`
	OnHand      float64 `json:"on_hand"`
	Reserved    float64 `json:"reserved"`
	Available   float64 `json:"available"`
	Sufficient  bool    `json:"sufficient"`
}

// ErrRecordNotFound indicates a missing ledger row; callers treat it as an
// empty record since rows are created lazily on first movement.
var ErrRecordNotFound = errors.New("inventory record not found")

// ErrInvalidQuantity indicates a non-positive quantity input.
var ErrInvalidQuantity = fmt.Errorf("inventory: quantity must be positive: %w", shared.ErrValidation)

// qtyEpsilon absorbs float drift when comparing quantities.
const qtyEpsilon = 1e-9
