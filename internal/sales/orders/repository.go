package orders

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
	"github.com/nguyenhoangkha03/quan-ly-ban-hang-backend-sub002/internal/sales/customers"
	"github.com/nguyenhoangkha03/quan-ly-ban-hang-backend-sub002/internal/shared"
	"github.com/nguyenhoangkha03/quan-ly-ban-hang-backend-sub002/internal/stock"
)

// Repository persists sales orders in PostgreSQL.
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
		return errors.New("orders repository not initialised")
	}
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepository{tx: tx})
	})
}

const orderColumns = `id, code, customer_id, order_type, status, payment_status, total_amount, paid_amount, COALESCE(note, ''), created_by, created_at, COALESCE(approved_by, 0), approved_at, completed_at, COALESCE(cancelled_by, 0), cancelled_at, COALESCE(cancel_reason, '')`

func scanOrder(row pgx.Row) (Order, error) {
	var o Order
	err := row.Scan(&o.ID, &o.Code, &o.CustomerID, &o.Type, &o.Status, &o.PaymentStatus,
		&o.TotalAmount, &o.PaidAmount, &o.Note, &o.CreatedBy, &o.CreatedAt,
		&o.ApprovedBy, &o.ApprovedAt, &o.CompletedAt, &o.CancelledBy, &o.CancelledAt, &o.CancelReason)
	return o, err
}

type queryer interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func loadLines(ctx context.Context, q queryer, orderID int64) ([]Line, error) {
	rows, err := q.Query(ctx, `SELECT id, order_id, product_id, warehouse_id, quantity, unit_price, discount_percent, tax_percent, line_total
FROM sales_order_details WHERE order_id = $1 ORDER BY id`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var lines []Line
	for rows.Next() {
		var l Line
		if err := rows.Scan(&l.ID, &l.OrderID, &l.ProductID, &l.WarehouseID, &l.Quantity,
			&l.UnitPrice, &l.DiscountPercent, &l.TaxPercent, &l.LineTotal); err != nil {
			return nil, err
		}
		lines = append(lines, l)
	}
	return lines, rows.Err()
}

func loadDelivery(ctx context.Context, q queryer, orderID int64) (*Delivery, error) {
	row := q.QueryRow(ctx, `SELECT id, order_id, status, address, COALESCE(phone, ''), shipped_at, delivered_at
FROM deliveries WHERE order_id = $1`, orderID)
	var d Delivery
	err := row.Scan(&d.ID, &d.OrderID, &d.Status, &d.Address, &d.Phone, &d.ShippedAt, &d.DeliveredAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func loadOrder(ctx context.Context, q queryer, id int64, forUpdate bool) (Order, error) {
	query := `SELECT ` + orderColumns + ` FROM sales_orders WHERE id = $1`
	if forUpdate {
		query += ` FOR UPDATE`
	}
	o, err := scanOrder(q.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Order{}, fmt.Errorf("order %d: %w", id, shared.ErrNotFound)
		}
		return Order{}, err
	}
	if o.Lines, err = loadLines(ctx, q, id); err != nil {
		return Order{}, err
	}
	if o.Delivery, err = loadDelivery(ctx, q, id); err != nil {
		return Order{}, err
	}
	return o, nil
}

// Get loads an order with lines and shipment.
func (r *Repository) Get(ctx context.Context, id int64) (Order, error) {
	return loadOrder(ctx, r.pool, id, false)
}

// List returns filtered orders plus the total count. Lines are not loaded.
func (r *Repository) List(ctx context.Context, filter ListFilter) ([]Order, int, error) {
	where := ` WHERE 1=1`
	args := []any{}
	argCount := 0
	if filter.Status != "" {
		argCount++
		where += ` AND status = $` + strconv.Itoa(argCount)
		args = append(args, string(filter.Status))
	}
	if filter.Type != "" {
		argCount++
		where += ` AND order_type = $` + strconv.Itoa(argCount)
		args = append(args, string(filter.Type))
	}
	if filter.CustomerID != 0 {
		argCount++
		where += ` AND customer_id = $` + strconv.Itoa(argCount)
		args = append(args, filter.CustomerID)
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
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM sales_orders`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	argCount++
	query := `SELECT ` + orderColumns + ` FROM sales_orders` + where + ` ORDER BY created_at DESC, id DESC LIMIT $` + strconv.Itoa(argCount)
	args = append(args, limit)
	argCount++
	query += ` OFFSET $` + strconv.Itoa(argCount)
	args = append(args, filter.Offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var result []Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, 0, err
		}
		result = append(result, o)
	}
	return result, total, rows.Err()
}

// ListReceipts returns the payment receipts of an order, oldest first.
func (r *Repository) ListReceipts(ctx context.Context, orderID int64) ([]PaymentReceipt, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, order_id, amount, COALESCE(method, ''), received_by, received_at
FROM payment_receipts WHERE order_id = $1 ORDER BY id`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var receipts []PaymentReceipt
	for rows.Next() {
		var p PaymentReceipt
		if err := rows.Scan(&p.ID, &p.OrderID, &p.Amount, &p.Method, &p.ReceivedBy, &p.ReceivedAt); err != nil {
			return nil, err
		}
		receipts = append(receipts, p)
	}
	return receipts, rows.Err()
}

// ListStalePending returns delivery orders still holding reservations past
// the given age. Report input for the stale-reservation job; nothing is
// released automatically.
func (r *Repository) ListStalePending(ctx context.Context, olderThan time.Time, limit int) ([]Order, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.pool.Query(ctx, `SELECT `+orderColumns+` FROM sales_orders
WHERE order_type = 'delivery' AND status IN ('pending', 'preparing') AND created_at < $1
ORDER BY created_at LIMIT $2`, olderThan, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var result []Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, o)
	}
	return result, rows.Err()
}

func (r *txRepository) GetForUpdate(ctx context.Context, id int64) (Order, error) {
	return loadOrder(ctx, r.tx, id, true)
}

func (r *txRepository) Insert(ctx context.Context, o Order) (int64, error) {
	var id int64
	err := r.tx.QueryRow(ctx, `INSERT INTO sales_orders
(code, customer_id, order_type, status, payment_status, total_amount, paid_amount, note, created_by, created_at, completed_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11) RETURNING id`,
		o.Code, o.CustomerID, string(o.Type), string(o.Status), string(o.PaymentStatus),
		o.TotalAmount, o.PaidAmount, o.Note, o.CreatedBy, o.CreatedAt, o.CompletedAt).Scan(&id)
	return id, err
}

func (r *txRepository) InsertLine(ctx context.Context, l Line) error {
	_, err := r.tx.Exec(ctx, `INSERT INTO sales_order_details
(order_id, product_id, warehouse_id, quantity, unit_price, discount_percent, tax_percent, line_total)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
		l.OrderID, l.ProductID, l.WarehouseID, l.Quantity, l.UnitPrice, l.DiscountPercent, l.TaxPercent, l.LineTotal)
	return err
}

func (r *txRepository) InsertDelivery(ctx context.Context, d Delivery) (int64, error) {
	var id int64
	err := r.tx.QueryRow(ctx, `INSERT INTO deliveries (order_id, status, address, phone)
VALUES ($1,$2,$3,$4) RETURNING id`,
		d.OrderID, string(d.Status), d.Address, d.Phone).Scan(&id)
	return id, err
}

func (r *txRepository) SetDeliveryStatus(ctx context.Context, orderID int64, status DeliveryStatus, at time.Time) error {
	query := `UPDATE deliveries SET status = $2 WHERE order_id = $1`
	switch status {
	case DeliveryInTransit:
		query = `UPDATE deliveries SET status = $2, shipped_at = $3 WHERE order_id = $1`
	case DeliveryDelivered:
		query = `UPDATE deliveries SET status = $2, delivered_at = $3 WHERE order_id = $1`
	default:
		_, err := r.tx.Exec(ctx, query, orderID, string(status))
		return err
	}
	_, err := r.tx.Exec(ctx, query, orderID, string(status), at)
	return err
}

func (r *txRepository) SetApproved(ctx context.Context, id, approverID int64, at time.Time) error {
	_, err := r.tx.Exec(ctx, `UPDATE sales_orders SET status = $2, approved_by = $3, approved_at = $4 WHERE id = $1`,
		id, string(StatusPreparing), approverID, at)
	return err
}

func (r *txRepository) SetDelivering(ctx context.Context, id int64) error {
	_, err := r.tx.Exec(ctx, `UPDATE sales_orders SET status = $2 WHERE id = $1`, id, string(StatusDelivering))
	return err
}

func (r *txRepository) SetCompleted(ctx context.Context, id int64, at time.Time) error {
	_, err := r.tx.Exec(ctx, `UPDATE sales_orders SET status = $2, completed_at = $3 WHERE id = $1`,
		id, string(StatusCompleted), at)
	return err
}

func (r *txRepository) SetCancelled(ctx context.Context, id, actorID int64, at time.Time, reason string) error {
	_, err := r.tx.Exec(ctx, `UPDATE sales_orders SET status = $2, cancelled_by = $3, cancelled_at = $4, cancel_reason = $5 WHERE id = $1`,
		id, string(StatusCancelled), actorID, at, reason)
	return err
}

func (r *txRepository) UpdatePayment(ctx context.Context, id int64, paidAmount float64, status PaymentStatus) error {
	_, err := r.tx.Exec(ctx, `UPDATE sales_orders SET paid_amount = $2, payment_status = $3 WHERE id = $1`,
		id, paidAmount, string(status))
	return err
}

func (r *txRepository) InsertReceipt(ctx context.Context, p PaymentReceipt) (int64, error) {
	var id int64
	err := r.tx.QueryRow(ctx, `INSERT INTO payment_receipts (order_id, amount, method, received_by, received_at)
VALUES ($1,$2,$3,$4,$5) RETURNING id`,
		p.OrderID, p.Amount, p.Method, p.ReceivedBy, p.ReceivedAt).Scan(&id)
	return id, err
}

// InsertMovement writes an already-approved export document produced by an
// order dispatch or pickup into the stock transaction tables.
func (r *txRepository) InsertMovement(ctx context.Context, txn stock.Transaction) (int64, error) {
	var id int64
	err := r.tx.QueryRow(ctx, `INSERT INTO stock_transactions
(code, tx_type, status, warehouse_id, total_value, ref_module, ref_id, created_by, created_at, approved_by, approved_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11) RETURNING id`,
		txn.Code, string(txn.Type), string(txn.Status), txn.WarehouseID, txn.TotalValue,
		txn.RefModule, txn.RefID, txn.CreatedBy, txn.CreatedAt, txn.ApprovedBy, txn.ApprovedAt).Scan(&id)
	if err != nil {
		return 0, err
	}
	for _, d := range txn.Details {
		if _, err := r.tx.Exec(ctx, `INSERT INTO stock_transaction_details
(transaction_id, product_id, quantity, unit_price) VALUES ($1,$2,$3,$4)`,
			id, d.ProductID, d.Quantity, d.UnitPrice); err != nil {
			return 0, err
		}
	}
	return id, nil
}

func (r *txRepository) Ledger() inventory.Store {
	return inventory.NewTxStore(r.tx)
}

func (r *txRepository) Customers() customers.Store {
	return customers.NewTxStore(r.tx)
}
