package customers

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nguyenhoangkha03/quan-ly-ban-hang-backend-sub002/internal/shared"
)

// Repository persists customers in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const customerColumns = `id, code, name, COALESCE(phone, ''), COALESCE(email, ''), COALESCE(address, ''), credit_limit, current_debt, is_active, created_at, updated_at`

func scanCustomer(row pgx.Row) (Customer, error) {
	var c Customer
	err := row.Scan(&c.ID, &c.Code, &c.Name, &c.Phone, &c.Email, &c.Address,
		&c.CreditLimit, &c.CurrentDebt, &c.IsActive, &c.CreatedAt, &c.UpdatedAt)
	return c, err
}

// Get loads one customer.
func (r *Repository) Get(ctx context.Context, id int64) (Customer, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+customerColumns+` FROM customers WHERE id = $1`, id)
	c, err := scanCustomer(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Customer{}, fmt.Errorf("customer %d: %w", id, shared.ErrNotFound)
		}
		return Customer{}, err
	}
	return c, nil
}

// List returns customers, optionally filtered to active ones, plus a total.
func (r *Repository) List(ctx context.Context, activeOnly bool, limit, offset int) ([]Customer, int, error) {
	where := ` WHERE 1=1`
	if activeOnly {
		where += ` AND is_active = TRUE`
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM customers`+where).Scan(&total); err != nil {
		return nil, 0, err
	}
	if limit <= 0 {
		limit = 50
	}
	args := []any{}
	argCount := 1
	query := `SELECT ` + customerColumns + ` FROM customers` + where + ` ORDER BY id LIMIT $` + strconv.Itoa(argCount)
	args = append(args, limit)
	argCount++
	query += ` OFFSET $` + strconv.Itoa(argCount)
	args = append(args, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var result []Customer
	for rows.Next() {
		c, err := scanCustomer(rows)
		if err != nil {
			return nil, 0, err
		}
		result = append(result, c)
	}
	return result, total, rows.Err()
}

// Create inserts a new customer with zero debt.
func (r *Repository) Create(ctx context.Context, c Customer) (Customer, error) {
	now := time.Now()
	row := r.pool.QueryRow(ctx, `INSERT INTO customers
(code, name, phone, email, address, credit_limit, current_debt, is_active, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,0,TRUE,$7,$7) RETURNING `+customerColumns,
		c.Code, c.Name, c.Phone, c.Email, c.Address, c.CreditLimit, now)
	return scanCustomer(row)
}

// SetActive toggles the active flag.
func (r *Repository) SetActive(ctx context.Context, id int64, active bool) error {
	tag, err := r.pool.Exec(ctx, `UPDATE customers SET is_active = $2, updated_at = NOW() WHERE id = $1`, id, active)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("customer %d: %w", id, shared.ErrNotFound)
	}
	return nil
}

// txStore is the tx-scoped debt surface.
type txStore struct {
	tx pgx.Tx
}

// NewTxStore binds a debt Store to an open transaction.
func NewTxStore(tx pgx.Tx) Store {
	return &txStore{tx: tx}
}

func (s *txStore) GetForUpdate(ctx context.Context, customerID int64) (Customer, error) {
	row := s.tx.QueryRow(ctx, `SELECT `+customerColumns+` FROM customers WHERE id = $1 FOR UPDATE`, customerID)
	c, err := scanCustomer(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Customer{}, fmt.Errorf("customer %d: %w", customerID, ErrCustomerNotFound)
		}
		return Customer{}, err
	}
	return c, nil
}

func (s *txStore) UpdateDebt(ctx context.Context, customerID int64, newDebt float64) error {
	_, err := s.tx.Exec(ctx, `UPDATE customers SET current_debt = $2, updated_at = NOW() WHERE id = $1`, customerID, newDebt)
	return err
}
