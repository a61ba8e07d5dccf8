package stock

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nguyenhoangkha03/quan-ly-ban-hang-backend-sub002/internal/inventory"
	"github.com/nguyenhoangkha03/quan-ly-ban-hang-backend-sub002/internal/platform/db"
	"github.com/nguyenhoangkha03/quan-ly-ban-hang-backend-sub002/internal/shared"
)

// Repository persists stock transactions in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

type txRepository struct {
	tx pgx.Tx
}

// WithTx executes the callback inside a repeatable-read transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	if r == nil {
		return errors.New("stock repository not initialised")
	}
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepository{tx: tx})
	})
}

const txnColumns = `id, code, tx_type, status, warehouse_id, COALESCE(source_warehouse_id, 0), COALESCE(dest_warehouse_id, 0), total_value, COALESCE(note, ''), COALESCE(ref_module, ''), COALESCE(ref_id, ''), created_by, created_at, COALESCE(approved_by, 0), approved_at, COALESCE(cancelled_by, 0), cancelled_at, COALESCE(cancel_reason, '')`

func scanTransaction(row pgx.Row) (Transaction, error) {
	var t Transaction
	err := row.Scan(&t.ID, &t.Code, &t.Type, &t.Status, &t.WarehouseID, &t.SourceWarehouseID, &t.DestWarehouseID,
		&t.TotalValue, &t.Note, &t.RefModule, &t.RefID, &t.CreatedBy, &t.CreatedAt,
		&t.ApprovedBy, &t.ApprovedAt, &t.CancelledBy, &t.CancelledAt, &t.CancelReason)
	return t, err
}

// Get loads a transaction with its detail lines.
func (r *Repository) Get(ctx context.Context, id int64) (Transaction, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+txnColumns+` FROM stock_transactions WHERE id = $1`, id)
	txn, err := scanTransaction(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Transaction{}, fmt.Errorf("stock transaction %d: %w", id, shared.ErrNotFound)
		}
		return Transaction{}, err
	}
	details, err := r.details(ctx, r.pool, id)
	if err != nil {
		return Transaction{}, err
	}
	txn.Details = details
	return txn, nil
}

type queryer interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

func (r *Repository) details(ctx context.Context, q queryer, txID int64) ([]Detail, error) {
	rows, err := q.Query(ctx, `SELECT id, transaction_id, product_id, quantity, unit_price, COALESCE(batch, ''), expiry_date
FROM stock_transaction_details WHERE transaction_id = $1 ORDER BY id`, txID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var details []Detail
	for rows.Next() {
		var d Detail
		if err := rows.Scan(&d.ID, &d.TransactionID, &d.ProductID, &d.Quantity, &d.UnitPrice, &d.Batch, &d.ExpiryDate); err != nil {
			return nil, err
		}
		details = append(details, d)
	}
	return details, rows.Err()
}

// List returns filtered transactions plus the total count.
func (r *Repository) List(ctx context.Context, filter ListFilter) ([]Transaction, int, error) {
	where := ` WHERE 1=1`
	args := []any{}
	argCount := 0
	if filter.Type != "" {
		argCount++
		where += ` AND tx_type = $` + strconv.Itoa(argCount)
		args = append(args, string(filter.Type))
	}
	if filter.Status != "" {
		argCount++
		where += ` AND status = $` + strconv.Itoa(argCount)
		args = append(args, string(filter.Status))
	}
	if filter.WarehouseID != 0 {
		argCount++
		where += ` AND warehouse_id = $` + strconv.Itoa(argCount)
		args = append(args, filter.WarehouseID)
	}
	if !filter.From.IsZero() {
		argCount++
		where += ` AND created_at >= $` + strconv.Itoa(argCount)
		args = append(args, filter.From)
	}
	if !filter.To.IsZero() {
		argCount++
		where += ` AND created_at <= $` + strconv.Itoa(argCount)
		args = append(args, filter.To)
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM stock_transactions`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	argCount++
	query := `SELECT ` + txnColumns + ` FROM stock_transactions` + where + ` ORDER BY created_at DESC, id DESC LIMIT $` + strconv.Itoa(argCount)
	args = append(args, limit)
	argCount++
	query += ` OFFSET $` + strconv.Itoa(argCount)
	args = append(args, filter.Offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var result []Transaction
	for rows.Next() {
		txn, err := scanTransaction(rows)
		if err != nil {
			return nil, 0, err
		}
		result = append(result, txn)
	}
	return result, total, rows.Err()
}

func (r *txRepository) GetForUpdate(ctx context.Context, id int64) (Transaction, error) {
	row := r.tx.QueryRow(ctx, `SELECT `+txnColumns+` FROM stock_transactions WHERE id = $1 FOR UPDATE`, id)
	txn, err := scanTransaction(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Transaction{}, fmt.Errorf("stock transaction %d: %w", id, shared.ErrNotFound)
		}
		return Transaction{}, err
	}
	rows, err := r.tx.Query(ctx, `SELECT id, transaction_id, product_id, quantity, unit_price, COALESCE(batch, ''), expiry_date
FROM stock_transaction_details WHERE transaction_id = $1 ORDER BY id`, id)
	if err != nil {
		return Transaction{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var d Detail
		if err := rows.Scan(&d.ID, &d.TransactionID, &d.ProductID, &d.Quantity, &d.UnitPrice, &d.Batch, &d.ExpiryDate); err != nil {
			return Transaction{}, err
		}
		txn.Details = append(txn.Details, d)
	}
	return txn, rows.Err()
}

func (r *txRepository) Insert(ctx context.Context, txn Transaction) (int64, error) {
	var id int64
	err := r.tx.QueryRow(ctx, `INSERT INTO stock_transactions
(code, tx_type, status, warehouse_id, source_warehouse_id, dest_warehouse_id, total_value, note, ref_module, ref_id, created_by, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12) RETURNING id`,
		txn.Code, string(txn.Type), string(txn.Status), txn.WarehouseID,
		nullInt(txn.SourceWarehouseID), nullInt(txn.DestWarehouseID),
		txn.TotalValue, txn.Note, txn.RefModule, nullString(txn.RefID), txn.CreatedBy, txn.CreatedAt).Scan(&id)
	return id, err
}

func (r *txRepository) InsertDetail(ctx context.Context, d Detail) error {
	_, err := r.tx.Exec(ctx, `INSERT INTO stock_transaction_details
(transaction_id, product_id, quantity, unit_price, batch, expiry_date)
VALUES ($1,$2,$3,$4,$5,$6)`,
		d.TransactionID, d.ProductID, d.Quantity, d.UnitPrice, d.Batch, d.ExpiryDate)
	return err
}

func (r *txRepository) SetApproved(ctx context.Context, id, approverID int64, at time.Time) error {
	_, err := r.tx.Exec(ctx, `UPDATE stock_transactions SET status = $2, approved_by = $3, approved_at = $4 WHERE id = $1`,
		id, string(StatusApproved), approverID, at)
	return err
}

func (r *txRepository) SetCancelled(ctx context.Context, id, actorID int64, at time.Time, reason string) error {
	_, err := r.tx.Exec(ctx, `UPDATE stock_transactions SET status = $2, cancelled_by = $3, cancelled_at = $4, cancel_reason = $5 WHERE id = $1`,
		id, string(StatusCancelled), actorID, at, reason)
	return err
}

func (r *txRepository) Ledger() inventory.Store {
	return inventory.NewTxStore(r.tx)
}

func nullInt(value int64) any {
	if value == 0 {
		return nil
	}
	return value
}

func nullString(value string) any {
	if value == "" {
		return nil
	}
	return value
}
