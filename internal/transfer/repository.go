package transfer

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

// Repository persists staged transfers in PostgreSQL.
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
		return errors.New("transfer repository not initialised")
	}
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepository{tx: tx})
	})
}

const transferColumns = `id, code, status, source_warehouse_id, dest_warehouse_id, COALESCE(note, ''), created_by, created_at, COALESCE(approved_by, 0), approved_at, COALESCE(completed_by, 0), completed_at, COALESCE(cancelled_by, 0), cancelled_at, COALESCE(cancel_reason, '')`

func scanTransfer(row pgx.Row) (Transfer, error) {
	var t Transfer
	err := row.Scan(&t.ID, &t.Code, &t.Status, &t.SourceWarehouse, &t.DestWarehouse, &t.Note,
		&t.CreatedBy, &t.CreatedAt, &t.ApprovedBy, &t.ApprovedAt,
		&t.CompletedBy, &t.CompletedAt, &t.CancelledBy, &t.CancelledAt, &t.CancelReason)
	return t, err
}

type queryer interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

func (r *Repository) details(ctx context.Context, q queryer, transferID int64) ([]Detail, error) {
	rows, err := q.Query(ctx, `SELECT id, transfer_id, product_id, quantity
FROM stock_transfer_details WHERE transfer_id = $1 ORDER BY id`, transferID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var details []Detail
	for rows.Next() {
		var d Detail
		if err := rows.Scan(&d.ID, &d.TransferID, &d.ProductID, &d.Quantity); err != nil {
			return nil, err
		}
		details = append(details, d)
	}
	return details, rows.Err()
}

// Get loads a transfer with its detail lines.
func (r *Repository) Get(ctx context.Context, id int64) (Transfer, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+transferColumns+` FROM stock_transfers WHERE id = $1`, id)
	t, err := scanTransfer(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Transfer{}, fmt.Errorf("transfer %d: %w", id, shared.ErrNotFound)
		}
		return Transfer{}, err
	}
	details, err := r.details(ctx, r.pool, id)
	if err != nil {
		return Transfer{}, err
	}
	t.Details = details
	return t, nil
}

// List returns filtered transfers plus the total count.
func (r *Repository) List(ctx context.Context, filter ListFilter) ([]Transfer, int, error) {
	where := ` WHERE 1=1`
	args := []any{}
	argCount := 0
	if filter.Status != "" {
		argCount++
		where += ` AND status = $` + strconv.Itoa(argCount)
		args = append(args, string(filter.Status))
	}
	if filter.WarehouseID != 0 {
		argCount++
		where += ` AND (source_warehouse_id = $` + strconv.Itoa(argCount) + ` OR dest_warehouse_id = $` + strconv.Itoa(argCount) + `)`
		args = append(args, filter.WarehouseID)
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM stock_transfers`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	argCount++
	query := `SELECT ` + transferColumns + ` FROM stock_transfers` + where + ` ORDER BY created_at DESC, id DESC LIMIT $` + strconv.Itoa(argCount)
	args = append(args, limit)
	argCount++
	query += ` OFFSET $` + strconv.Itoa(argCount)
	args = append(args, filter.Offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var result []Transfer
	for rows.Next() {
		t, err := scanTransfer(rows)
		if err != nil {
			return nil, 0, err
		}
		result = append(result, t)
	}
	return result, total, rows.Err()
}

func (r *txRepository) GetForUpdate(ctx context.Context, id int64) (Transfer, error) {
	row := r.tx.QueryRow(ctx, `SELECT `+transferColumns+` FROM stock_transfers WHERE id = $1 FOR UPDATE`, id)
	t, err := scanTransfer(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Transfer{}, fmt.Errorf("transfer %d: %w", id, shared.ErrNotFound)
		}
		return Transfer{}, err
	}
	rows, err := r.tx.Query(ctx, `SELECT id, transfer_id, product_id, quantity
FROM stock_transfer_details WHERE transfer_id = $1 ORDER BY id`, id)
	if err != nil {
		return Transfer{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var d Detail
		if err := rows.Scan(&d.ID, &d.TransferID, &d.ProductID, &d.Quantity); err != nil {
			return Transfer{}, err
		}
		t.Details = append(t.Details, d)
	}
	return t, rows.Err()
}

func (r *txRepository) Insert(ctx context.Context, t Transfer) (int64, error) {
	var id int64
	err := r.tx.QueryRow(ctx, `INSERT INTO stock_transfers
(code, status, source_warehouse_id, dest_warehouse_id, note, created_by, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7) RETURNING id`,
		t.Code, string(t.Status), t.SourceWarehouse, t.DestWarehouse, t.Note, t.CreatedBy, t.CreatedAt).Scan(&id)
	return id, err
}

func (r *txRepository) InsertDetail(ctx context.Context, d Detail) error {
	_, err := r.tx.Exec(ctx, `INSERT INTO stock_transfer_details (transfer_id, product_id, quantity) VALUES ($1,$2,$3)`,
		d.TransferID, d.ProductID, d.Quantity)
	return err
}

func (r *txRepository) SetInTransit(ctx context.Context, id, approverID int64, at time.Time) error {
	_, err := r.tx.Exec(ctx, `UPDATE stock_transfers SET status = $2, approved_by = $3, approved_at = $4 WHERE id = $1`,
		id, string(StatusInTransit), approverID, at)
	return err
}

func (r *txRepository) SetCompleted(ctx context.Context, id, actorID int64, at time.Time) error {
	_, err := r.tx.Exec(ctx, `UPDATE stock_transfers SET status = $2, completed_by = $3, completed_at = $4 WHERE id = $1`,
		id, string(StatusCompleted), actorID, at)
	return err
}

func (r *txRepository) SetCancelled(ctx context.Context, id, actorID int64, at time.Time, reason string) error {
	_, err := r.tx.Exec(ctx, `UPDATE stock_transfers SET status = $2, cancelled_by = $3, cancelled_at = $4, cancel_reason = $5 WHERE id = $1`,
		id, string(StatusCancelled), actorID, at, reason)
	return err
}

func (r *txRepository) Ledger() inventory.Store {
	return inventory.NewTxStore(r.tx)
}
