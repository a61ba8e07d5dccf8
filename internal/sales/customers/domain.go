// Package customers manages customer records and their running debt. Debt
// changes only through AdjustDebt inside a caller-owned transaction, never
// by writing the balance directly.
package customers

import (
	"fmt"
	"time"

	"github.com/nguyenhoangkha03/quan-ly-ban-hang-backend-sub002/internal/shared"
)

// Customer is a buyer with an optional credit line.
type Customer struct {
	ID          int64     `json:"id"`
	Code        string    `json:"code"`
	Name        string    `json:"name"`
	Phone       string    `json:"phone,omitempty"`
	Email       string    `json:"email,omitempty"`
	Address     string    `json:"address,omitempty"`
	CreditLimit float64   `json:"credit_limit"`
	CurrentDebt float64   `json:"current_debt"`
	IsActive    bool      `json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// RemainingCredit is how much more deferred debt the customer may take on.
// A zero credit limit means no deferred payment at all.
func (c Customer) RemainingCredit() float64 {
	return c.CreditLimit - c.CurrentDebt
}

var ErrCustomerNotFound = fmt.Errorf("customers: customer not found: %w", shared.ErrNotFound)
