package inventory

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nguyenhoangkha03/quan-ly-ban-hang-backend-sub002/internal/shared"
)

type memoryStore struct {
	records map[string]Record
}

func newMemoryStore() *memoryStore {
	return &memoryStore{records: make(map[string]Record)}
}

func storeKey(warehouseID, productID int64) string {
	return fmt.Sprintf("%d:%d", warehouseID, productID)
}

func (s *memoryStore) GetForUpdate(ctx context.Context, warehouseID, productID int64) (Record, error) {
	if rec, ok := s.records[storeKey(warehouseID, productID)]; ok {
		return rec, nil
	}
	return Record{WarehouseID: warehouseID, ProductID: productID}, ErrRecordNotFound
}

func (s *memoryStore) Upsert(ctx context.Context, record Record) error {
	s.records[storeKey(record.WarehouseID, record.ProductID)] = record
	return nil
}

func TestApplyDeltaLazyCreate(t *testing.T) {
	store := newMemoryStore()
	ctx := context.Background()

	rec, err := ApplyDelta(ctx, store, 1, 7, 100, 0)
	require.NoError(t, err)
	require.InDelta(t, 100.0, rec.Quantity, 1e-9)
	require.InDelta(t, 0.0, rec.ReservedQuantity, 1e-9)
	require.InDelta(t, 100.0, rec.Available(), 1e-9)
}

func TestReserveAndRelease(t *testing.T) {
	store := newMemoryStore()
	ctx := context.Background()

	_, err := ApplyDelta(ctx, store, 1, 1, 100, 0)
	require.NoError(t, err)

	rec, err := Reserve(ctx, store, 1, 1, 30)
	require.NoError(t, err)
	require.InDelta(t, 100.0, rec.Quantity, 1e-9)
	require.InDelta(t, 30.0, rec.ReservedQuantity, 1e-9)
	require.InDelta(t, 70.0, rec.Available(), 1e-9)

	rec, err = Release(ctx, store, 1, 1, 30)
	require.NoError(t, err)
	require.InDelta(t, 0.0, rec.ReservedQuantity, 1e-9)
	require.InDelta(t, 100.0, rec.Quantity, 1e-9)
}

func TestReserveBeyondAvailableFails(t *testing.T) {
	store := newMemoryStore()
	ctx := context.Background()

	_, err := ApplyDelta(ctx, store, 1, 1, 100, 0)
	require.NoError(t, err)
	_, err = Reserve(ctx, store, 1, 1, 30)
	require.NoError(t, err)

	_, err = Reserve(ctx, store, 1, 1, 71)
	var shortage *shared.InsufficientStockError
	require.True(t, errors.As(err, &shortage))
	require.Len(t, shortage.Shortages, 1)
	require.InDelta(t, 70.0, shortage.Shortages[0].Available, 1e-9)
	require.True(t, errors.Is(err, shared.ErrValidation))

	// failed attempt must not mutate the record
	rec, err := store.GetForUpdate(ctx, 1, 1)
	require.NoError(t, err)
	require.InDelta(t, 30.0, rec.ReservedQuantity, 1e-9)
}

func TestConsumeConvertsReservation(t *testing.T) {
	store := newMemoryStore()
	ctx := context.Background()

	_, err := ApplyDelta(ctx, store, 1, 1, 100, 0)
	require.NoError(t, err)
	_, err = Reserve(ctx, store, 1, 1, 30)
	require.NoError(t, err)

	rec, err := Consume(ctx, store, 1, 1, 30)
	require.NoError(t, err)
	require.InDelta(t, 70.0, rec.Quantity, 1e-9)
	require.InDelta(t, 0.0, rec.ReservedQuantity, 1e-9)
}

func TestPhysicalDecrementCannotUndercutReservation(t *testing.T) {
	store := newMemoryStore()
	ctx := context.Background()

	_, err := ApplyDelta(ctx, store, 1, 1, 100, 0)
	require.NoError(t, err)
	_, err = Reserve(ctx, store, 1, 1, 60)
	require.NoError(t, err)

	// only 40 unreserved, exporting 50 must fail
	_, err = ApplyDelta(ctx, store, 1, 1, -50, 0)
	var shortage *shared.InsufficientStockError
	require.True(t, errors.As(err, &shortage))
}

func TestNegativeQuantityRejected(t *testing.T) {
	store := newMemoryStore()
	ctx := context.Background()

	_, err := ApplyDelta(ctx, store, 1, 1, -1, 0)
	var shortage *shared.InsufficientStockError
	require.True(t, errors.As(err, &shortage))

	_, err = Reserve(ctx, store, 1, 1, 0)
	require.ErrorIs(t, err, ErrInvalidQuantity)
	_, err = Release(ctx, store, 1, 1, -5)
	require.ErrorIs(t, err, ErrInvalidQuantity)
}

type memoryReader struct {
	store *memoryStore
}

func (r *memoryReader) GetRecord(ctx context.Context, warehouseID, productID int64) (Record, error) {
	return r.store.GetForUpdate(ctx, warehouseID, productID)
}

func (r *memoryReader) ListByWarehouse(ctx context.Context, warehouseID int64) ([]Record, error) {
	var records []Record
	for _, rec := range r.store.records {
		if rec.WarehouseID == warehouseID {
			records = append(records, rec)
		}
	}
	return records, nil
}

func TestCheckAvailability(t *testing.T) {
	store := newMemoryStore()
	ctx := context.Background()
	_, err := ApplyDelta(ctx, store, 1, 1, 100, 0)
	require.NoError(t, err)
	_, err = Reserve(ctx, store, 1, 1, 30)
	require.NoError(t, err)

	svc := NewService(&memoryReader{store: store})
	report, err := svc.CheckAvailability(ctx, []AvailabilityItem{
		{WarehouseID: 1, ProductID: 1, Quantity: 70},
		{WarehouseID: 1, ProductID: 1, Quantity: 71},
		{WarehouseID: 1, ProductID: 2, Quantity: 5},
	})
	require.NoError(t, err)
	require.Len(t, report, 3)
	require.True(t, report[0].Sufficient)
	require.False(t, report[1].Sufficient)
	require.False(t, report[2].Sufficient)
	require.InDelta(t, 0.0, report[2].Available, 1e-9)

	short := Shortages(report)
	require.Len(t, short, 2)
}
