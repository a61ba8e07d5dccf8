package customers

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nguyenhoangkha03/quan-ly-ban-hang-backend-sub002/internal/shared"
)

type memoryStore struct {
	customers map[int64]Customer
}

func newMemoryStore(customers ...Customer) *memoryStore {
	m := &memoryStore{customers: make(map[int64]Customer)}
	for _, c := range customers {
		m.customers[c.ID] = c
	}
	return m
}

func (m *memoryStore) GetForUpdate(ctx context.Context, customerID int64) (Customer, error) {
	c, ok := m.customers[customerID]
	if !ok {
		return Customer{}, fmt.Errorf("customer %d: %w", customerID, ErrCustomerNotFound)
	}
	return c, nil
}

func (m *memoryStore) UpdateDebt(ctx context.Context, customerID int64, newDebt float64) error {
	c := m.customers[customerID]
	c.CurrentDebt = newDebt
	m.customers[customerID] = c
	return nil
}

func TestAdjustDebtIncrementAndDecrement(t *testing.T) {
	store := newMemoryStore(Customer{ID: 1, Code: "KH001", CreditLimit: 5000000, CurrentDebt: 1000000})
	ctx := context.Background()

	c, err := AdjustDebt(ctx, store, 1, 2500000)
	require.NoError(t, err)
	require.InDelta(t, 3500000.0, c.CurrentDebt, 0.001)

	c, err = AdjustDebt(ctx, store, 1, -3500000)
	require.NoError(t, err)
	require.InDelta(t, 0.0, c.CurrentDebt, 0.001)
}

func TestAdjustDebtRejectsNegativeBalance(t *testing.T) {
	store := newMemoryStore(Customer{ID: 1, CurrentDebt: 100})
	_, err := AdjustDebt(context.Background(), store, 1, -150)
	require.ErrorIs(t, err, shared.ErrValidation)
	// untouched on failure
	require.InDelta(t, 100.0, store.customers[1].CurrentDebt, 0.001)
}

func TestAdjustDebtUnknownCustomer(t *testing.T) {
	store := newMemoryStore()
	_, err := AdjustDebt(context.Background(), store, 42, 10)
	require.ErrorIs(t, err, ErrCustomerNotFound)
}

func TestAdjustDebtRoundsToCents(t *testing.T) {
	store := newMemoryStore(Customer{ID: 1})
	c, err := AdjustDebt(context.Background(), store, 1, 0.105+0.105)
	require.NoError(t, err)
	require.Equal(t, 0.21, c.CurrentDebt)
}

func TestCheckCredit(t *testing.T) {
	c := Customer{Code: "KH001", CreditLimit: 1000, CurrentDebt: 600}
	require.NoError(t, CheckCredit(c, 400))
	require.NoError(t, CheckCredit(c, 0))
	require.NoError(t, CheckCredit(c, -50))
	err := CheckCredit(c, 401)
	require.ErrorIs(t, err, shared.ErrValidation)
}

func TestCheckCreditZeroLimitBlocksDeferredPayment(t *testing.T) {
	c := Customer{Code: "KH002"}
	require.ErrorIs(t, CheckCredit(c, 1), shared.ErrValidation)
}
