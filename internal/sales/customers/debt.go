package customers

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/nguyenhoangkha03/quan-ly-ban-hang-backend-sub002/internal/shared"
)

// Store is the tx-scoped surface debt adjustments run against. All reads
// lock the customer row, so two concurrent adjustments serialize.
type Store interface {
	GetForUpdate(ctx context.Context, customerID int64) (Customer, error)
	UpdateDebt(ctx context.Context, customerID int64, newDebt float64) error
}

// AdjustDebt applies a signed delta to a customer's running debt inside the
// caller's transaction. A decrement past zero is rejected: it means the
// caller's bookkeeping is wrong, not that the customer is in credit.
func AdjustDebt(ctx context.Context, store Store, customerID int64, delta float64) (Customer, error) {
	c, err := store.GetForUpdate(ctx, customerID)
	if err != nil {
		return Customer{}, err
	}
	newDebt := decimal.NewFromFloat(c.CurrentDebt).Add(decimal.NewFromFloat(delta)).Round(2)
	if newDebt.IsNegative() {
		return Customer{}, fmt.Errorf("customers: debt for customer %d would become negative (%s): %w",
			customerID, newDebt.String(), shared.ErrValidation)
	}
	c.CurrentDebt = newDebt.InexactFloat64()
	if err := store.UpdateDebt(ctx, customerID, c.CurrentDebt); err != nil {
		return Customer{}, err
	}
	return c, nil
}

// CheckCredit verifies that taking on extra deferred debt stays within the
// customer's credit limit. Used as a gate before order confirmation.
func CheckCredit(c Customer, extraDebt float64) error {
	if extraDebt <= 0 {
		return nil
	}
	if c.CurrentDebt+extraDebt > c.CreditLimit {
		return fmt.Errorf("customers: customer %s exceeds credit limit (debt %.2f + %.2f > limit %.2f): %w",
			c.Code, c.CurrentDebt, extraDebt, c.CreditLimit, shared.ErrValidation)
	}
	return nil
}
