package inventory

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository persists ledger rows in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// txStore implements Store on top of a live pgx transaction. Sibling modules
// build one with NewTxStore inside their own WithTx block so ledger writes
// commit or roll back together with the owning document.
type txStore struct {
	tx pgx.Tx
}

// NewTxStore wraps a transaction into a ledger Store.
func NewTxStore(tx pgx.Tx) Store {
	return &txStore{tx: tx}
}

func (s *txStore) GetForUpdate(ctx context.Context, warehouseID, productID int64) (Record, error) {
	var rec Record
	err := s.tx.QueryRow(ctx, `SELECT warehouse_id, product_id, quantity, reserved_quantity, updated_at
FROM inventory_records WHERE warehouse_id = $1 AND product_id = $2 FOR UPDATE`, warehouseID, productID).
		Scan(&rec.WarehouseID, &rec.ProductID, &rec.Quantity, &rec.ReservedQuantity, &rec.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Record{WarehouseID: warehouseID, ProductID: productID}, ErrRecordNotFound
		}
		return Record{}, err
	}
	return rec, nil
}

func (s *txStore) Upsert(ctx context.Context, record Record) error {
	_, err := s.tx.Exec(ctx, `INSERT INTO inventory_records (warehouse_id, product_id, quantity, reserved_quantity, updated_at)
VALUES ($1, $2, $3, $4, NOW())
ON CONFLICT (warehouse_id, product_id) DO UPDATE SET quantity = EXCLUDED.quantity, reserved_quantity = EXCLUDED.reserved_quantity, updated_at = NOW()`,
		record.WarehouseID, record.ProductID, record.Quantity, record.ReservedQuantity)
	return err
}

// GetRecord loads one ledger row without locking.
func (r *Repository) GetRecord(ctx context.Context, warehouseID, productID int64) (Record, error) {
	var rec Record
	err := r.pool.QueryRow(ctx, `SELECT warehouse_id, product_id, quantity, reserved_quantity, updated_at
FROM inventory_records WHERE warehouse_id = $1 AND product_id = $2`, warehouseID, productID).
		Scan(&rec.WarehouseID, &rec.ProductID, &rec.Quantity, &rec.ReservedQuantity, &rec.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Record{WarehouseID: warehouseID, ProductID: productID}, ErrRecordNotFound
		}
		return Record{}, err
	}
	return rec, nil
}

// ListByWarehouse lists ledger rows for one warehouse.
func (r *Repository) ListByWarehouse(ctx context.Context, warehouseID int64) ([]Record, error) {
	rows, err := r.pool.Query(ctx, `SELECT warehouse_id, product_id, quantity, reserved_quantity, updated_at
FROM inventory_records WHERE warehouse_id = $1 ORDER BY product_id`, warehouseID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var records []Record
	for rows.Next() {
		var rec Record
		if err := rows.Scan(&rec.WarehouseID, &rec.ProductID, &rec.Quantity, &rec.ReservedQuantity, &rec.UpdatedAt); err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}
