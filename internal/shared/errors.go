package shared

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNotFound indicates a referenced warehouse/product/order/customer
	// does not exist.
	ErrNotFound = errors.New("not found")
	// ErrValidation indicates a business-rule violation.
	ErrValidation = errors.New("validation failed")
	// ErrInvalidState indicates an illegal lifecycle transition.
	ErrInvalidState = errors.New("invalid state transition")
	// ErrConflict indicates a concurrent mutation would violate an invariant.
	ErrConflict = errors.New("conflict")
)

// StockShortage describes one line that cannot be covered by available stock.
type StockShortage struct {
	WarehouseID int64   `json:"warehouse_id"`
	ProductID   int64   `json:"product_id"`
	Requested   float64 `json:"requested"`
	Available   float64 `json:"available"`
}

// InsufficientStockError carries the full list of short lines so callers can
// surface every problem at once instead of failing line by line.
type InsufficientStockError struct {
	Shortages []StockShortage
}

func (e *InsufficientStockError) Error() string {
	parts := make([]string, 0, len(e.Shortages))
	for _, s := range e.Shortages {
		parts = append(parts, fmt.Sprintf("product %d in warehouse %d: requested %.2f, available %.2f", s.ProductID, s.WarehouseID, s.Requested, s.Available))
	}
	return "insufficient stock: " + strings.Join(parts, "; ")
}

// Unwrap allows errors.Is(err, ErrValidation) checks on shortage errors.
func (e *InsufficientStockError) Unwrap() error {
	return ErrValidation
}

// UserSafeMessage returns a message that can be shown to an end user. Known
// business errors surface verbatim; anything else collapses to a generic text
// so infrastructure details never leak.
func UserSafeMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrNotFound),
		errors.Is(err, ErrValidation),
		errors.Is(err, ErrInvalidState),
		errors.Is(err, ErrConflict):
		return err.Error()
	default:
		return "an unexpected error occurred, please retry"
	}
}
