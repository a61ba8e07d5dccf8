package orders

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/nguyenhoangkha03/quan-ly-ban-hang-backend-sub002/internal/inventory"
	"github.com/nguyenhoangkha03/quan-ly-ban-hang-backend-sub002/internal/masterdata"
	"github.com/nguyenhoangkha03/quan-ly-ban-hang-backend-sub002/internal/sales/customers"
	"github.com/nguyenhoangkha03/quan-ly-ban-hang-backend-sub002/internal/shared"
	"github.com/nguyenhoangkha03/quan-ly-ban-hang-backend-sub002/internal/stock"
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

func (l *memoryLedger) GetRecord(ctx context.Context, warehouseID, productID int64) (inventory.Record, error) {
	return l.GetForUpdate(ctx, warehouseID, productID)
}

func (l *memoryLedger) ListByWarehouse(ctx context.Context, warehouseID int64) ([]inventory.Record, error) {
	return nil, nil
}

func (l *memoryLedger) get(t *testing.T, warehouseID, productID int64) inventory.Record {
	t.Helper()
	return l.records[l.key(warehouseID, productID)]
}

type memoryCustomers struct {
	customers map[int64]customers.Customer
}

func (m *memoryCustomers) GetForUpdate(ctx context.Context, customerID int64) (customers.Customer, error) {
	c, ok := m.customers[customerID]
	if !ok {
		return customers.Customer{}, customers.ErrCustomerNotFound
	}
	return c, nil
}

func (m *memoryCustomers) UpdateDebt(ctx context.Context, customerID int64, newDebt float64) error {
	c := m.customers[customerID]
	c.CurrentDebt = newDebt
	m.customers[customerID] = c
	return nil
}

func (m *memoryCustomers) RequireActive(ctx context.Context, id int64) (customers.Customer, error) {
	c, ok := m.customers[id]
	if !ok {
		return customers.Customer{}, customers.ErrCustomerNotFound
	}
	if !c.IsActive {
		return customers.Customer{}, fmt.Errorf("customers: customer %s is inactive: %w", c.Code, shared.ErrValidation)
	}
	return c, nil
}

type memoryOrderRepo struct {
	orders     map[int64]Order
	lines      map[int64][]Line
	deliveries map[int64]*Delivery
	receipts   map[int64][]PaymentReceipt
	movements  []stock.Transaction
	ledger     *memoryLedger
	customers  *memoryCustomers
	nextID     int64
}

type memoryOrderTx struct {
	repo *memoryOrderRepo
}

func newMemoryOrderRepo(ledger *memoryLedger, cust *memoryCustomers) *memoryOrderRepo {
	return &memoryOrderRepo{
		orders:     make(map[int64]Order),
		lines:      make(map[int64][]Line),
		deliveries: make(map[int64]*Delivery),
		receipts:   make(map[int64][]PaymentReceipt),
		ledger:     ledger,
		customers:  cust,
	}
}

func (r *memoryOrderRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return fn(ctx, &memoryOrderTx{repo: r})
}

func (r *memoryOrderRepo) Get(ctx context.Context, id int64) (Order, error) {
	o, ok := r.orders[id]
	if !ok {
		return Order{}, fmt.Errorf("order %d: %w", id, shared.ErrNotFound)
	}
	o.Lines = append([]Line(nil), r.lines[id]...)
	if d, ok := r.deliveries[id]; ok {
		copied := *d
		o.Delivery = &copied
	}
	return o, nil
}

func (r *memoryOrderRepo) List(ctx context.Context, filter ListFilter) ([]Order, int, error) {
	var result []Order
	for id := range r.orders {
		o, _ := r.Get(ctx, id)
		result = append(result, o)
	}
	return result, len(result), nil
}

func (r *memoryOrderRepo) ListReceipts(ctx context.Context, orderID int64) ([]PaymentReceipt, error) {
	return append([]PaymentReceipt(nil), r.receipts[orderID]...), nil
}

func (tx *memoryOrderTx) GetForUpdate(ctx context.Context, id int64) (Order, error) {
	return tx.repo.Get(ctx, id)
}

func (tx *memoryOrderTx) Insert(ctx context.Context, o Order) (int64, error) {
	tx.repo.nextID++
	o.ID = tx.repo.nextID
	tx.repo.orders[o.ID] = o
	return o.ID, nil
}

func (tx *memoryOrderTx) InsertLine(ctx context.Context, l Line) error {
	tx.repo.lines[l.OrderID] = append(tx.repo.lines[l.OrderID], l)
	return nil
}

func (tx *memoryOrderTx) InsertDelivery(ctx context.Context, d Delivery) (int64, error) {
	tx.repo.nextID++
	d.ID = tx.repo.nextID
	tx.repo.deliveries[d.OrderID] = &d
	return d.ID, nil
}

func (tx *memoryOrderTx) SetDeliveryStatus(ctx context.Context, orderID int64, status DeliveryStatus, at time.Time) error {
	d := tx.repo.deliveries[orderID]
	d.Status = status
	switch status {
	case DeliveryInTransit:
		d.ShippedAt = &at
	case DeliveryDelivered:
		d.DeliveredAt = &at
	}
	return nil
}

func (tx *memoryOrderTx) SetApproved(ctx context.Context, id, approverID int64, at time.Time) error {
	o := tx.repo.orders[id]
	o.Status = StatusPreparing
	o.ApprovedBy = approverID
	o.ApprovedAt = &at
	tx.repo.orders[id] = o
	return nil
}

func (tx *memoryOrderTx) SetDelivering(ctx context.Context, id int64) error {
	o := tx.repo.orders[id]
	o.Status = StatusDelivering
	tx.repo.orders[id] = o
	return nil
}

func (tx *memoryOrderTx) SetCompleted(ctx context.Context, id int64, at time.Time) error {
	o := tx.repo.orders[id]
	o.Status = StatusCompleted
	o.CompletedAt = &at
	tx.repo.orders[id] = o
	return nil
}

func (tx *memoryOrderTx) SetCancelled(ctx context.Context, id, actorID int64, at time.Time, reason string) error {
	o := tx.repo.orders[id]
	o.Status = StatusCancelled
	o.CancelledBy = actorID
	o.CancelledAt = &at
	o.CancelReason = reason
	tx.repo.orders[id] = o
	return nil
}

func (tx *memoryOrderTx) UpdatePayment(ctx context.Context, id int64, paidAmount float64, status PaymentStatus) error {
	o := tx.repo.orders[id]
	o.PaidAmount = paidAmount
	o.PaymentStatus = status
	tx.repo.orders[id] = o
	return nil
}

func (tx *memoryOrderTx) InsertReceipt(ctx context.Context, p PaymentReceipt) (int64, error) {
	tx.repo.nextID++
	p.ID = tx.repo.nextID
	tx.repo.receipts[p.OrderID] = append(tx.repo.receipts[p.OrderID], p)
	return p.ID, nil
}

func (tx *memoryOrderTx) InsertMovement(ctx context.Context, txn stock.Transaction) (int64, error) {
	tx.repo.nextID++
	txn.ID = tx.repo.nextID
	tx.repo.movements = append(tx.repo.movements, txn)
	return txn.ID, nil
}

func (tx *memoryOrderTx) Ledger() inventory.Store {
	return tx.repo.ledger
}

func (tx *memoryOrderTx) Customers() customers.Store {
	return tx.repo.customers
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

type fixture struct {
	svc       *Service
	repo      *memoryOrderRepo
	ledger    *memoryLedger
	customers *memoryCustomers
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ledger := newMemoryLedger()
	cust := &memoryCustomers{customers: map[int64]customers.Customer{
		1: {ID: 1, Code: "KH001", Name: "Khach A", CreditLimit: 10000000, IsActive: true},
		2: {ID: 2, Code: "KH002", Name: "Khach B", CreditLimit: 0, IsActive: true},
	}}
	repo := newMemoryOrderRepo(ledger, cust)
	svc := NewService(repo, cust, stubMaster{}, inventory.NewService(ledger), &stubSequences{}, nil, nil, nil)
	return &fixture{svc: svc, repo: repo, ledger: ledger, customers: cust}
}

func (f *fixture) seed(t *testing.T, warehouseID, productID int64, qty float64) {
	t.Helper()
	_, err := inventory.ApplyDelta(context.Background(), f.ledger, warehouseID, productID, qty, 0)
	require.NoError(t, err)
}

func (f *fixture) debt(customerID int64) float64 {
	return f.customers.customers[customerID].CurrentDebt
}

func deliveryInput(lines ...LineInput) CreateInput {
	return CreateInput{
		CustomerID:      1,
		Type:            TypeDelivery,
		ActorID:         9,
		DeliveryAddress: "12 Nguyen Trai",
		Lines:           lines,
	}
}

func TestCreateDeliveryReservesAndBooksDebt(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seed(t, 1, 1, 100)

	res, err := f.svc.Create(ctx, deliveryInput(
		LineInput{ProductID: 1, WarehouseID: 1, Quantity: 10, UnitPrice: 100000, DiscountPercent: 10, TaxPercent: 8},
	))
	require.NoError(t, err)
	o := res.Order
	require.Equal(t, StatusPending, o.Status)
	require.Contains(t, o.Code, "DH-")
	require.InDelta(t, 972000.0, o.TotalAmount, 0.01)
	require.Equal(t, PaymentUnpaid, o.PaymentStatus)
	require.Empty(t, res.Warnings)

	rec := f.ledger.get(t, 1, 1)
	require.InDelta(t, 100.0, rec.Quantity, 1e-9)
	require.InDelta(t, 10.0, rec.ReservedQuantity, 1e-9)

	require.NotNil(t, o.Delivery)
	require.Equal(t, DeliveryPending, o.Delivery.Status)
	require.InDelta(t, 972000.0, f.debt(1), 0.01)
}

func TestCreateDeliveryPartialPayment(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seed(t, 1, 1, 50)

	res, err := f.svc.Create(ctx, CreateInput{
		CustomerID:      1,
		Type:            TypeDelivery,
		ActorID:         9,
		PaidAmount:      200000,
		PaymentMethod:   "cash",
		DeliveryAddress: "12 Nguyen Trai",
		Lines:           []LineInput{{ProductID: 1, WarehouseID: 1, Quantity: 5, UnitPrice: 100000}},
	})
	require.NoError(t, err)
	require.Equal(t, PaymentPartial, res.Order.PaymentStatus)
	require.InDelta(t, 300000.0, f.debt(1), 0.01)

	receipts, err := f.svc.Receipts(ctx, res.Order.ID)
	require.NoError(t, err)
	require.Len(t, receipts, 1)
	require.InDelta(t, 200000.0, receipts[0].Amount, 0.01)
}

func TestCreatePickupTakesStockImmediately(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seed(t, 1, 1, 20)

	res, err := f.svc.Create(ctx, CreateInput{
		CustomerID: 1,
		Type:       TypePickup,
		ActorID:    9,
		PaidAmount: 500000,
		Lines:      []LineInput{{ProductID: 1, WarehouseID: 1, Quantity: 5, UnitPrice: 100000}},
	})
	require.NoError(t, err)
	require.Equal(t, StatusCompleted, res.Order.Status)
	require.Equal(t, PaymentPaid, res.Order.PaymentStatus)
	require.NotNil(t, res.Order.CompletedAt)
	require.Nil(t, res.Order.Delivery)

	rec := f.ledger.get(t, 1, 1)
	require.InDelta(t, 15.0, rec.Quantity, 1e-9)
	require.InDelta(t, 0.0, rec.ReservedQuantity, 1e-9)
	require.InDelta(t, 0.0, f.debt(1), 0.01)

	// the physical outflow leaves an approved export document
	require.Len(t, f.repo.movements, 1)
	require.Equal(t, stock.TypeExport, f.repo.movements[0].Type)
	require.Equal(t, stock.StatusApproved, f.repo.movements[0].Status)
	require.Equal(t, res.Order.Code, f.repo.movements[0].RefID)
}

func TestCreatePickupInsufficientStock(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seed(t, 1, 1, 3)

	_, err := f.svc.Create(ctx, CreateInput{
		CustomerID: 1,
		Type:       TypePickup,
		ActorID:    9,
		Lines:      []LineInput{{ProductID: 1, WarehouseID: 1, Quantity: 5, UnitPrice: 100}},
	})
	var shortage *shared.InsufficientStockError
	require.True(t, errors.As(err, &shortage))
	require.InDelta(t, 3.0, f.ledger.get(t, 1, 1).Quantity, 1e-9)
}

func TestCreateDeliveryCannotReserveBeyondAvailable(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seed(t, 1, 1, 10)
	_, err := inventory.Reserve(ctx, f.ledger, 1, 1, 8)
	require.NoError(t, err)

	_, err = f.svc.Create(ctx, deliveryInput(LineInput{ProductID: 1, WarehouseID: 1, Quantity: 5, UnitPrice: 100}))
	var shortage *shared.InsufficientStockError
	require.True(t, errors.As(err, &shortage))
	require.InDelta(t, 2.0, shortage.Shortages[0].Available, 1e-9)
	// reservation untouched
	require.InDelta(t, 8.0, f.ledger.get(t, 1, 1).ReservedQuantity, 1e-9)
}

func TestCreditLimitGate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seed(t, 1, 1, 100)

	// customer 2 has no credit line: any unpaid remainder is rejected
	_, err := f.svc.Create(ctx, CreateInput{
		CustomerID:      2,
		Type:            TypeDelivery,
		ActorID:         9,
		DeliveryAddress: "3 Le Loi",
		Lines:           []LineInput{{ProductID: 1, WarehouseID: 1, Quantity: 1, UnitPrice: 100000}},
	})
	require.ErrorIs(t, err, shared.ErrValidation)

	// fully paid up front is fine
	res, err := f.svc.Create(ctx, CreateInput{
		CustomerID:      2,
		Type:            TypeDelivery,
		ActorID:         9,
		PaidAmount:      100000,
		PaymentMethod:   "cash",
		DeliveryAddress: "3 Le Loi",
		Lines:           []LineInput{{ProductID: 1, WarehouseID: 1, Quantity: 1, UnitPrice: 100000}},
	})
	require.NoError(t, err)
	require.Equal(t, PaymentPaid, res.Order.PaymentStatus)
	require.InDelta(t, 0.0, f.debt(2), 0.01)
}

func TestCreateRejectsOverpayment(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seed(t, 1, 1, 10)

	input := deliveryInput(LineInput{ProductID: 1, WarehouseID: 1, Quantity: 1, UnitPrice: 100000})
	input.PaidAmount = 100001
	_, err := f.svc.Create(ctx, input)
	require.ErrorIs(t, err, shared.ErrValidation)
}

func TestFullDeliveryLifecycleConservesReservation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seed(t, 1, 1, 100)
	f.seed(t, 1, 2, 50)

	res, err := f.svc.Create(ctx, deliveryInput(
		LineInput{ProductID: 1, WarehouseID: 1, Quantity: 10, UnitPrice: 50000},
		LineInput{ProductID: 2, WarehouseID: 1, Quantity: 4, UnitPrice: 20000},
	))
	require.NoError(t, err)
	id := res.Order.ID

	o, err := f.svc.Approve(ctx, id, 7)
	require.NoError(t, err)
	require.Equal(t, StatusPreparing, o.Status)
	// approval is a stamp only
	require.InDelta(t, 10.0, f.ledger.get(t, 1, 1).ReservedQuantity, 1e-9)
	require.InDelta(t, 100.0, f.ledger.get(t, 1, 1).Quantity, 1e-9)

	o, err = f.svc.AdvanceToDelivering(ctx, id, 7)
	require.NoError(t, err)
	require.Equal(t, StatusDelivering, o.Status)
	require.Equal(t, DeliveryInTransit, o.Delivery.Status)

	// reservation consumed, not released
	rec1 := f.ledger.get(t, 1, 1)
	require.InDelta(t, 90.0, rec1.Quantity, 1e-9)
	require.InDelta(t, 0.0, rec1.ReservedQuantity, 1e-9)
	rec2 := f.ledger.get(t, 1, 2)
	require.InDelta(t, 46.0, rec2.Quantity, 1e-9)
	require.InDelta(t, 0.0, rec2.ReservedQuantity, 1e-9)
	require.Len(t, f.repo.movements, 1)
	require.Len(t, f.repo.movements[0].Details, 2)

	o, err = f.svc.Complete(ctx, id, 7)
	require.NoError(t, err)
	require.Equal(t, StatusCompleted, o.Status)
	require.Equal(t, DeliveryDelivered, o.Delivery.Status)
	// no further inventory change
	require.InDelta(t, 90.0, f.ledger.get(t, 1, 1).Quantity, 1e-9)
}

func TestAdvanceRequiresPreparing(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seed(t, 1, 1, 10)

	res, err := f.svc.Create(ctx, deliveryInput(LineInput{ProductID: 1, WarehouseID: 1, Quantity: 2, UnitPrice: 100}))
	require.NoError(t, err)

	_, err = f.svc.AdvanceToDelivering(ctx, res.Order.ID, 7)
	require.ErrorIs(t, err, shared.ErrInvalidState)
	_, err = f.svc.Complete(ctx, res.Order.ID, 7)
	require.ErrorIs(t, err, shared.ErrInvalidState)
}

func TestCancelPendingReleasesAndReversesDebt(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seed(t, 1, 1, 30)

	res, err := f.svc.Create(ctx, deliveryInput(LineInput{ProductID: 1, WarehouseID: 1, Quantity: 10, UnitPrice: 100000}))
	require.NoError(t, err)
	require.InDelta(t, 1000000.0, f.debt(1), 0.01)

	o, err := f.svc.Cancel(ctx, res.Order.ID, 9, "customer changed mind")
	require.NoError(t, err)
	require.Equal(t, StatusCancelled, o.Status)

	rec := f.ledger.get(t, 1, 1)
	require.InDelta(t, 30.0, rec.Quantity, 1e-9)
	require.InDelta(t, 0.0, rec.ReservedQuantity, 1e-9)
	require.InDelta(t, 0.0, f.debt(1), 0.01)
}

func TestCancelPreparingAllowedDeliveringForbidden(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seed(t, 1, 1, 30)

	res, err := f.svc.Create(ctx, deliveryInput(LineInput{ProductID: 1, WarehouseID: 1, Quantity: 5, UnitPrice: 1000}))
	require.NoError(t, err)
	id := res.Order.ID
	_, err = f.svc.Approve(ctx, id, 7)
	require.NoError(t, err)

	_, err = f.svc.AdvanceToDelivering(ctx, id, 7)
	require.NoError(t, err)
	_, err = f.svc.Cancel(ctx, id, 9, "too late")
	require.ErrorIs(t, err, shared.ErrInvalidState)
}

func TestProcessPaymentSettlesDebt(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seed(t, 1, 1, 10)

	res, err := f.svc.Create(ctx, deliveryInput(LineInput{ProductID: 1, WarehouseID: 1, Quantity: 2, UnitPrice: 500000}))
	require.NoError(t, err)
	id := res.Order.ID
	require.InDelta(t, 1000000.0, f.debt(1), 0.01)

	o, err := f.svc.ProcessPayment(ctx, id, 400000, "transfer", 9)
	require.NoError(t, err)
	require.Equal(t, PaymentPartial, o.PaymentStatus)
	require.InDelta(t, 400000.0, o.PaidAmount, 0.01)
	require.InDelta(t, 600000.0, f.debt(1), 0.01)

	o, err = f.svc.ProcessPayment(ctx, id, 600000, "transfer", 9)
	require.NoError(t, err)
	require.Equal(t, PaymentPaid, o.PaymentStatus)
	require.InDelta(t, 0.0, f.debt(1), 0.01)

	receipts, err := f.svc.Receipts(ctx, id)
	require.NoError(t, err)
	require.Len(t, receipts, 2)

	// fully paid: any further payment exceeds the remaining balance
	_, err = f.svc.ProcessPayment(ctx, id, 1, "cash", 9)
	require.ErrorIs(t, err, shared.ErrValidation)
}

func TestProcessPaymentRejectsOverAndCancelled(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seed(t, 1, 1, 10)

	res, err := f.svc.Create(ctx, deliveryInput(LineInput{ProductID: 1, WarehouseID: 1, Quantity: 1, UnitPrice: 100000}))
	require.NoError(t, err)
	id := res.Order.ID

	_, err = f.svc.ProcessPayment(ctx, id, 100001, "cash", 9)
	require.ErrorIs(t, err, shared.ErrValidation)
	_, err = f.svc.ProcessPayment(ctx, id, 0, "cash", 9)
	require.ErrorIs(t, err, shared.ErrValidation)

	_, err = f.svc.Cancel(ctx, id, 9, "no stock")
	require.NoError(t, err)
	_, err = f.svc.ProcessPayment(ctx, id, 1000, "cash", 9)
	require.ErrorIs(t, err, shared.ErrInvalidState)
}

func TestCreateValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Create(ctx, CreateInput{CustomerID: 1, Type: "mail", Lines: []LineInput{{ProductID: 1, WarehouseID: 1, Quantity: 1}}})
	require.ErrorIs(t, err, shared.ErrValidation)

	_, err = f.svc.Create(ctx, CreateInput{CustomerID: 1, Type: TypeDelivery, DeliveryAddress: "x"})
	require.ErrorIs(t, err, shared.ErrValidation)

	_, err = f.svc.Create(ctx, CreateInput{CustomerID: 1, Type: TypeDelivery, Lines: []LineInput{{ProductID: 1, WarehouseID: 1, Quantity: 1, UnitPrice: 10}}})
	require.ErrorIs(t, err, shared.ErrValidation) // missing address

	_, err = f.svc.Create(ctx, CreateInput{CustomerID: 99, Type: TypePickup, Lines: []LineInput{{ProductID: 1, WarehouseID: 1, Quantity: 1}}})
	require.ErrorIs(t, err, shared.ErrNotFound)

	input := deliveryInput(LineInput{ProductID: 1, WarehouseID: 1, Quantity: 1, UnitPrice: 10, DiscountPercent: 101})
	_, err = f.svc.Create(ctx, input)
	require.ErrorIs(t, err, shared.ErrValidation)
}

func TestCreateDeliveryShortageWarning(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seed(t, 1, 1, 3)

	// requested quantity exceeds stock: the advisory check flags it and the
	// in-transaction reservation fails the create
	_, err := f.svc.Create(ctx, deliveryInput(LineInput{ProductID: 1, WarehouseID: 1, Quantity: 5, UnitPrice: 100}))
	var shortage *shared.InsufficientStockError
	require.True(t, errors.As(err, &shortage))
	require.ErrorIs(t, err, shared.ErrValidation)
}
