package inventory

import (
	"context"

	"github.com/nguyenhoangkha03/quan-ly-ban-hang-backend-sub002/internal/shared"
)

// Store is the transaction-scoped surface over ledger rows. Implementations
// lock the row (SELECT ... FOR UPDATE) so that concurrent check-then-act
// sequences against the same (warehouse, product) pair serialise. A Store is
// only valid inside the atomic unit that produced it.
type Store interface {
	GetForUpdate(ctx context.Context, warehouseID, productID int64) (Record, error)
	Upsert(ctx context.Context, record Record) error
}

// ApplyDelta is the single mutation entry point for ledger rows. It must run
// inside the caller's atomic unit. The row is created lazily when absent.
// The operation fails when the resulting on-hand or reserved quantity would
// go negative, or reserved would exceed on-hand.
func ApplyDelta(ctx context.Context, store Store, warehouseID, productID int64, qtyDelta, reservedDelta float64) (Record, error) {
	record, err := store.GetForUpdate(ctx, warehouseID, productID)
	if err != nil && err != ErrRecordNotFound {
		return Record{}, err
	}
	if err == ErrRecordNotFound {
		record = Record{WarehouseID: warehouseID, ProductID: productID}
	}

	newQty := record.Quantity + qtyDelta
	newReserved := record.ReservedQuantity + reservedDelta
	if newQty < -qtyEpsilon || newReserved < -qtyEpsilon || newReserved > newQty+qtyEpsilon {
		requested := -qtyDelta
		if reservedDelta > requested {
			requested = reservedDelta
		}
		return Record{}, &shared.InsufficientStockError{Shortages: []shared.StockShortage{{
			WarehouseID: warehouseID,
			ProductID:   productID,
			Requested:   requested,
			Available:   record.Available(),
		}}}
	}
	if newQty < 0 {
		newQty = 0
	}
	if newReserved < 0 {
		newReserved = 0
	}

	record.Quantity = newQty
	record.ReservedQuantity = newReserved
	if err := store.Upsert(ctx, record); err != nil {
		return Record{}, err
	}
	return record, nil
}

// Reserve earmarks qty against a record without moving physical stock.
func Reserve(ctx context.Context, store Store, warehouseID, productID int64, qty float64) (Record, error) {
	if qty <= 0 {
		return Record{}, ErrInvalidQuantity
	}
	return ApplyDelta(ctx, store, warehouseID, productID, 0, qty)
}

// Release returns a previously reserved qty without moving physical stock.
func Release(ctx context.Context, store Store, warehouseID, productID int64, qty float64) (Record, error) {
	if qty <= 0 {
		return Record{}, ErrInvalidQuantity
	}
	return ApplyDelta(ctx, store, warehouseID, productID, 0, -qty)
}

// Consume converts a reservation into a physical decrement, the commit point
// where goods leave the warehouse.
func Consume(ctx context.Context, store Store, warehouseID, productID int64, qty float64) (Record, error) {
	if qty <= 0 {
		return Record{}, ErrInvalidQuantity
	}
	return ApplyDelta(ctx, store, warehouseID, productID, -qty, -qty)
}
