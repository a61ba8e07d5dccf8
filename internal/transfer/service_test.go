package transfer

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/nguyenhoangkha03/quan-ly-ban-hang-backend-sub002/internal/inventory"
	"github.com/nguyenhoangkha03/quan-ly-ban-hang-backend-sub002/internal/masterdata"
	"github.com/nguyenhoangkha03/quan-ly-ban-hang-backend-sub002/internal/shared"
)

type memoryLedger struct {
	records map[string]inventory.Record
}

func newMemoryLedger() *memoryLedger {
	return &memoryLedger{records: make(map[string]inventory.Record)}
}

func (l *memoryLedger) key(warehouseID, productID int64) string {
	return fmt.Sprintf("%d:%d", warehouseID, productID)
}

func (l *memoryLedger) GetForUpdate(ctx context.Context, warehouseID, productID int64) (inventory.Record, error) {
	if rec, ok := l.records[l.key(warehouseID, productID)]; ok {
		return rec, nil
	}
	return inventory.Record{WarehouseID: warehouseID, ProductID: productID}, inventory.ErrRecordNotFound
}

func (l *memoryLedger) Upsert(ctx context.Context, record inventory.Record) error {
	l.records[l.key(record.WarehouseID, record.ProductID)] = record
	return nil
}

func (l *memoryLedger) get(t *testing.T, warehouseID, productID int64) inventory.Record {
	t.Helper()
	return l.records[l.key(warehouseID, productID)]
}

type memoryRepo struct {
	transfers map[int64]Transfer
	details   map[int64][]Detail
	ledger    *memoryLedger
	nextID    int64
}

type memoryTx struct {
	repo *memoryRepo
}

func newMemoryRepo(ledger *memoryLedger) *memoryRepo {
	return &memoryRepo{transfers: make(map[int64]Transfer), details: make(map[int64][]Detail), ledger: ledger}
}

func (r *memoryRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return fn(ctx, &memoryTx{repo: r})
}

func (r *memoryRepo) Get(ctx context.Context, id int64) (Transfer, error) {
	t, ok := r.transfers[id]
	if !ok {
		return Transfer{}, fmt.Errorf("transfer %d: %w", id, shared.ErrNotFound)
	}
	t.Details = append([]Detail(nil), r.details[id]...)
	return t, nil
}

func (r *memoryRepo) List(ctx context.Context, filter ListFilter) ([]Transfer, int, error) {
	var result []Transfer
	for id := range r.transfers {
		t, _ := r.Get(ctx, id)
		result = append(result, t)
	}
	return result, len(result), nil
}

func (tx *memoryTx) GetForUpdate(ctx context.Context, id int64) (Transfer, error) {
	return tx.repo.Get(ctx, id)
}

func (tx *memoryTx) Insert(ctx context.Context, t Transfer) (int64, error) {
	tx.repo.nextID++
	t.ID = tx.repo.nextID
	tx.repo.transfers[t.ID] = t
	return t.ID, nil
}

func (tx *memoryTx) InsertDetail(ctx context.Context, d Detail) error {
	tx.repo.details[d.TransferID] = append(tx.repo.details[d.TransferID], d)
	return nil
}

func (tx *memoryTx) SetInTransit(ctx context.Context, id, approverID int64, at time.Time) error {
	t := tx.repo.transfers[id]
	t.Status = StatusInTransit
	t.ApprovedBy = approverID
	t.ApprovedAt = &at
	tx.repo.transfers[id] = t
	return nil
}

func (tx *memoryTx) SetCompleted(ctx context.Context, id, actorID int64, at time.Time) error {
	t := tx.repo.transfers[id]
	t.Status = StatusCompleted
	t.CompletedBy = actorID
	t.CompletedAt = &at
	tx.repo.transfers[id] = t
	return nil
}

func (tx *memoryTx) SetCancelled(ctx context.Context, id, actorID int64, at time.Time, reason string) error {
	t := tx.repo.transfers[id]
	t.Status = StatusCancelled
	t.CancelledBy = actorID
	t.CancelledAt = &at
	t.CancelReason = reason
	tx.repo.transfers[id] = t
	return nil
}

func (tx *memoryTx) Ledger() inventory.Store {
	return tx.repo.ledger
}

type stubMaster struct{}

func (stubMaster) RequireActiveWarehouse(ctx context.Context, id int64) (masterdata.Warehouse, error) {
	return masterdata.Warehouse{ID: id, IsActive: true}, nil
}

func (stubMaster) RequireActiveProduct(ctx context.Context, id int64) (masterdata.Product, error) {
	return masterdata.Product{ID: id, IsActive: true}, nil
}

type stubSequences struct {
	n int64
}

func (s *stubSequences) NextCode(ctx context.Context, prefix string, day time.Time) (string, error) {
	s.n++
	return shared.FormatCode(prefix, day, s.n), nil
}

func newTestService(ledger *memoryLedger) *Service {
	return NewService(newMemoryRepo(ledger), stubMaster{}, &stubSequences{}, nil, nil, nil)
}

func seedStock(t *testing.T, ledger *memoryLedger, warehouseID, productID int64, qty float64) {
	t.Helper()
	_, err := inventory.ApplyDelta(context.Background(), ledger, warehouseID, productID, qty, 0)
	require.NoError(t, err)
}

func createPending(t *testing.T, svc *Service, lines ...LineInput) Transfer {
	t.Helper()
	tr, err := svc.Create(context.Background(), CreateInput{SourceWarehouse: 1, DestWarehouse: 2, ActorID: 9, Lines: lines})
	require.NoError(t, err)
	require.Equal(t, StatusPending, tr.Status)
	return tr
}

func TestApproveReservesAtSource(t *testing.T) {
	ledger := newMemoryLedger()
	svc := newTestService(ledger)
	ctx := context.Background()
	seedStock(t, ledger, 1, 1, 100)

	tr := createPending(t, svc, LineInput{ProductID: 1, Quantity: 30})
	require.Contains(t, tr.Code, "PCK-")

	// nothing held while pending
	require.InDelta(t, 0.0, ledger.get(t, 1, 1).ReservedQuantity, 1e-9)

	approved, err := svc.Approve(ctx, tr.ID, 5)
	require.NoError(t, err)
	require.Equal(t, StatusInTransit, approved.Status)

	src := ledger.get(t, 1, 1)
	require.InDelta(t, 100.0, src.Quantity, 1e-9)
	require.InDelta(t, 30.0, src.ReservedQuantity, 1e-9)
	require.InDelta(t, 70.0, src.Available(), 1e-9)
}

func TestApproveShortageReportsAllLines(t *testing.T) {
	ledger := newMemoryLedger()
	svc := newTestService(ledger)
	ctx := context.Background()
	seedStock(t, ledger, 1, 1, 10)
	seedStock(t, ledger, 1, 2, 5)

	tr := createPending(t, svc,
		LineInput{ProductID: 1, Quantity: 20},
		LineInput{ProductID: 2, Quantity: 8},
	)
	_, err := svc.Approve(ctx, tr.ID, 5)
	var shortage *shared.InsufficientStockError
	require.True(t, errors.As(err, &shortage))
	require.Len(t, shortage.Shortages, 2)

	// no partial reservation
	require.InDelta(t, 0.0, ledger.get(t, 1, 1).ReservedQuantity, 1e-9)
	require.InDelta(t, 0.0, ledger.get(t, 1, 2).ReservedQuantity, 1e-9)
	got, err := svc.Get(ctx, tr.ID)
	require.NoError(t, err)
	require.Equal(t, StatusPending, got.Status)
}

func TestCompleteMovesStockAndReleasesReservation(t *testing.T) {
	ledger := newMemoryLedger()
	svc := newTestService(ledger)
	ctx := context.Background()
	seedStock(t, ledger, 1, 1, 100)

	tr := createPending(t, svc, LineInput{ProductID: 1, Quantity: 30})
	_, err := svc.Approve(ctx, tr.ID, 5)
	require.NoError(t, err)

	completed, err := svc.Complete(ctx, tr.ID, 6)
	require.NoError(t, err)
	require.Equal(t, StatusCompleted, completed.Status)

	src := ledger.get(t, 1, 1)
	require.InDelta(t, 70.0, src.Quantity, 1e-9)
	require.InDelta(t, 0.0, src.ReservedQuantity, 1e-9)
	dst := ledger.get(t, 2, 1)
	require.InDelta(t, 30.0, dst.Quantity, 1e-9)

	// terminal: cannot complete or cancel again
	_, err = svc.Complete(ctx, tr.ID, 6)
	require.ErrorIs(t, err, shared.ErrInvalidState)
	_, err = svc.Cancel(ctx, tr.ID, 6, "late")
	require.ErrorIs(t, err, shared.ErrInvalidState)
}

func TestCompleteRequiresInTransit(t *testing.T) {
	ledger := newMemoryLedger()
	svc := newTestService(ledger)
	ctx := context.Background()
	seedStock(t, ledger, 1, 1, 10)

	tr := createPending(t, svc, LineInput{ProductID: 1, Quantity: 5})
	_, err := svc.Complete(ctx, tr.ID, 6)
	require.ErrorIs(t, err, shared.ErrInvalidState)
}

func TestCancelInTransitReleasesReservation(t *testing.T) {
	ledger := newMemoryLedger()
	svc := newTestService(ledger)
	ctx := context.Background()
	seedStock(t, ledger, 1, 1, 50)

	tr := createPending(t, svc, LineInput{ProductID: 1, Quantity: 20})
	_, err := svc.Approve(ctx, tr.ID, 5)
	require.NoError(t, err)
	require.InDelta(t, 20.0, ledger.get(t, 1, 1).ReservedQuantity, 1e-9)

	cancelled, err := svc.Cancel(ctx, tr.ID, 5, "truck broke down")
	require.NoError(t, err)
	require.Equal(t, StatusCancelled, cancelled.Status)
	require.Equal(t, "truck broke down", cancelled.CancelReason)

	src := ledger.get(t, 1, 1)
	require.InDelta(t, 50.0, src.Quantity, 1e-9)
	require.InDelta(t, 0.0, src.ReservedQuantity, 1e-9)
	// destination never touched
	require.InDelta(t, 0.0, ledger.get(t, 2, 1).Quantity, 1e-9)
}

func TestCancelPendingHasNoLedgerEffect(t *testing.T) {
	ledger := newMemoryLedger()
	svc := newTestService(ledger)
	ctx := context.Background()
	seedStock(t, ledger, 1, 1, 50)

	tr := createPending(t, svc, LineInput{ProductID: 1, Quantity: 20})
	_, err := svc.Cancel(ctx, tr.ID, 5, "not needed")
	require.NoError(t, err)
	require.InDelta(t, 0.0, ledger.get(t, 1, 1).ReservedQuantity, 1e-9)

	_, err = svc.Approve(ctx, tr.ID, 5)
	require.ErrorIs(t, err, shared.ErrInvalidState)
}

func TestCreateValidation(t *testing.T) {
	ledger := newMemoryLedger()
	svc := newTestService(ledger)
	ctx := context.Background()

	_, err := svc.Create(ctx, CreateInput{SourceWarehouse: 1, DestWarehouse: 2})
	require.ErrorIs(t, err, shared.ErrValidation)

	_, err = svc.Create(ctx, CreateInput{SourceWarehouse: 1, DestWarehouse: 1, Lines: []LineInput{{ProductID: 1, Quantity: 5}}})
	require.ErrorIs(t, err, shared.ErrValidation)

	_, err = svc.Create(ctx, CreateInput{SourceWarehouse: 1, DestWarehouse: 2, Lines: []LineInput{{ProductID: 1, Quantity: 0}}})
	require.ErrorIs(t, err, shared.ErrValidation)
}
