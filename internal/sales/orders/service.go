package orders

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/nguyenhoangkha03/quan-ly-ban-hang-backend-sub002/internal/inventory"
	"github.com/nguyenhoangkha03/quan-ly-ban-hang-backend-sub002/internal/masterdata"
	"github.com/nguyenhoangkha03/quan-ly-ban-hang-backend-sub002/internal/sales"
	"github.com/nguyenhoangkha03/quan-ly-ban-hang-backend-sub002/internal/sales/customers"
	"github.com/nguyenhoangkha03/quan-ly-ban-hang-backend-sub002/internal/shared"
	"github.com/nguyenhoangkha03/quan-ly-ban-hang-backend-sub002/internal/stock"
)

// RepositoryPort abstracts repository usage for service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	Get(ctx context.Context, id int64) (Order, error)
	List(ctx context.Context, filter ListFilter) ([]Order, int, error)
	ListReceipts(ctx context.Context, orderID int64) ([]PaymentReceipt, error)
}

// TxRepository exposes transactional operations used by service. Ledger and
// Customers return stores bound to the same transaction, so order state,
// stock deltas and debt adjustments commit or roll back as one unit.
type TxRepository interface {
	GetForUpdate(ctx context.Context, id int64) (Order, error)
	Insert(ctx context.Context, o Order) (int64, error)
	InsertLine(ctx context.Context, l Line) error
	InsertDelivery(ctx context.Context, d Delivery) (int64, error)
	SetDeliveryStatus(ctx context.Context, orderID int64, status DeliveryStatus, at time.Time) error
	SetApproved(ctx context.Context, id, approverID int64, at time.Time) error
	SetDelivering(ctx context.Context, id int64) error
	SetCompleted(ctx context.Context, id int64, at time.Time) error
	SetCancelled(ctx context.Context, id, actorID int64, at time.Time, reason string) error
	UpdatePayment(ctx context.Context, id int64, paidAmount float64, status PaymentStatus) error
	InsertReceipt(ctx context.Context, r PaymentReceipt) (int64, error)
	InsertMovement(ctx context.Context, txn stock.Transaction) (int64, error)
	Ledger() inventory.Store
	Customers() customers.Store
}

// CustomerPort validates customers outside a transaction.
type CustomerPort interface {
	RequireActive(ctx context.Context, id int64) (customers.Customer, error)
}

// MasterDataPort validates warehouse/product existence and active status.
type MasterDataPort interface {
	RequireActiveWarehouse(ctx context.Context, id int64) (masterdata.Warehouse, error)
	RequireActiveProduct(ctx context.Context, id int64) (masterdata.Product, error)
}

// AvailabilityPort runs the advisory pre-flight stock check.
type AvailabilityPort interface {
	CheckAvailability(ctx context.Context, items []inventory.AvailabilityItem) ([]inventory.Availability, error)
}

// SequencePort allocates document codes.
type SequencePort interface {
	NextCode(ctx context.Context, prefix string, day time.Time) (string, error)
}

// AuditPort abstracts audit logging.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

const codePrefix = "DH"

// Service runs the order fulfillment state machine.
type Service struct {
	repo         RepositoryPort
	customers    CustomerPort
	master       MasterDataPort
	availability AvailabilityPort
	sequences    SequencePort
	audit        AuditPort
	idempotency  *shared.IdempotencyStore
	integration  IntegrationHandler
}

// NewService builds Service.
func NewService(
	repo RepositoryPort,
	customerPort CustomerPort,
	master MasterDataPort,
	availability AvailabilityPort,
	sequences SequencePort,
	audit AuditPort,
	idem *shared.IdempotencyStore,
	integration IntegrationHandler,
) *Service {
	return &Service{
		repo:         repo,
		customers:    customerPort,
		master:       master,
		availability: availability,
		sequences:    sequences,
		audit:        audit,
		idempotency:  idem,
		integration:  integration,
	}
}

// LineInput describes one requested order line.
type LineInput struct {
	ProductID       int64   `json:"product_id"`
	WarehouseID     int64   `json:"warehouse_id"`
	Quantity        float64 `json:"quantity"`
	UnitPrice       float64 `json:"unit_price"`
	DiscountPercent float64 `json:"discount_percent"`
	TaxPercent      float64 `json:"tax_percent"`
}

// CreateInput describes an order creation request.
type CreateInput struct {
	CustomerID      int64
	Type            OrderType
	Note            string
	ActorID         int64
	PaidAmount      float64
	PaymentMethod   string
	DeliveryAddress string
	DeliveryPhone   string
	Lines           []LineInput
}

// CreateResult carries the persisted order plus advisory warnings for lines
// that currently lack available stock. For delivery orders a warning usually
// means the in-transaction reservation will fail too; it is surfaced so the
// caller can tell a doomed order from a race.
type CreateResult struct {
	Order    Order                    `json:"order"`
	Warnings []inventory.Availability `json:"warnings,omitempty"`
}

// Create validates and persists an order. Delivery orders start pending with
// stock reserved per line; pickup orders take stock immediately and are
// persisted completed. The unpaid remainder becomes customer debt, gated by
// the credit limit.
func (s *Service) Create(ctx context.Context, input CreateInput) (CreateResult, error) {
	if !input.Type.Valid() {
		return CreateResult{}, fmt.Errorf("orders: unknown order type %q: %w", input.Type, shared.ErrValidation)
	}
	if len(input.Lines) == 0 {
		return CreateResult{}, fmt.Errorf("%s: %w", ErrNoLines, shared.ErrValidation)
	}
	if input.Type == TypeDelivery && input.DeliveryAddress == "" {
		return CreateResult{}, fmt.Errorf("orders: delivery orders require an address: %w", shared.ErrValidation)
	}
	customer, err := s.customers.RequireActive(ctx, input.CustomerID)
	if err != nil {
		return CreateResult{}, err
	}

	lineTotals := make([]float64, 0, len(input.Lines))
	for _, line := range input.Lines {
		if _, err := s.master.RequireActiveWarehouse(ctx, line.WarehouseID); err != nil {
			return CreateResult{}, err
		}
		if _, err := s.master.RequireActiveProduct(ctx, line.ProductID); err != nil {
			return CreateResult{}, err
		}
		if line.Quantity <= 0 {
			return CreateResult{}, fmt.Errorf("orders: line quantity must be positive: %w", shared.ErrValidation)
		}
		if line.UnitPrice < 0 {
			return CreateResult{}, fmt.Errorf("orders: unit price must be non-negative: %w", shared.ErrValidation)
		}
		if line.DiscountPercent < 0 || line.DiscountPercent > 100 {
			return CreateResult{}, fmt.Errorf("orders: discount percent out of range: %w", shared.ErrValidation)
		}
		if line.TaxPercent < 0 || line.TaxPercent > 100 {
			return CreateResult{}, fmt.Errorf("orders: tax percent out of range: %w", shared.ErrValidation)
		}
		lineTotals = append(lineTotals, sales.LineTotal(line.Quantity, line.UnitPrice, line.DiscountPercent, line.TaxPercent))
	}
	total := sales.Sum(lineTotals)

	if input.PaidAmount < 0 {
		return CreateResult{}, fmt.Errorf("orders: paid amount must be non-negative: %w", shared.ErrValidation)
	}
	if input.PaidAmount > total {
		return CreateResult{}, fmt.Errorf("orders: paid amount %.2f exceeds order total %.2f: %w", input.PaidAmount, total, shared.ErrValidation)
	}
	unpaid := decimal.NewFromFloat(total).Sub(decimal.NewFromFloat(input.PaidAmount)).Round(2).InexactFloat64()
	if unpaid > 0 {
		if err := customers.CheckCredit(customer, unpaid); err != nil {
			return CreateResult{}, err
		}
	}

	warnings, err := s.advisoryCheck(ctx, input.Lines)
	if err != nil {
		return CreateResult{}, err
	}

	now := time.Now()
	code, err := s.sequences.NextCode(ctx, codePrefix, now)
	if err != nil {
		return CreateResult{}, err
	}

	order := Order{
		Code:          code,
		CustomerID:    input.CustomerID,
		Type:          input.Type,
		Status:        StatusPending,
		PaymentStatus: paymentStatusFor(input.PaidAmount, total),
		TotalAmount:   total,
		PaidAmount:    input.PaidAmount,
		Note:          input.Note,
		CreatedBy:     input.ActorID,
		CreatedAt:     now,
	}
	if input.Type == TypePickup {
		order.Status = StatusCompleted
		order.CompletedAt = &now
	}

	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		id, err := tx.Insert(ctx, order)
		if err != nil {
			return err
		}
		order.ID = id
		for i, line := range input.Lines {
			l := Line{
				OrderID:         id,
				ProductID:       line.ProductID,
				WarehouseID:     line.WarehouseID,
				Quantity:        line.Quantity,
				UnitPrice:       line.UnitPrice,
				DiscountPercent: line.DiscountPercent,
				TaxPercent:      line.TaxPercent,
				LineTotal:       lineTotals[i],
			}
			if err := tx.InsertLine(ctx, l); err != nil {
				return err
			}
		}

		switch input.Type {
		case TypeDelivery:
			if err := applyLineOps(ctx, tx.Ledger(), lineOpsFor(input.Lines), opReserve); err != nil {
				return err
			}
			if _, err := tx.InsertDelivery(ctx, Delivery{
				OrderID: id,
				Status:  DeliveryPending,
				Address: input.DeliveryAddress,
				Phone:   input.DeliveryPhone,
			}); err != nil {
				return err
			}
		case TypePickup:
			if err := applyLineOps(ctx, tx.Ledger(), lineOpsFor(input.Lines), opTakeUnreserved); err != nil {
				return err
			}
			if err := s.writeMovements(ctx, tx, order, input.Lines, now); err != nil {
				return err
			}
		}

		if unpaid > 0 {
			if _, err := customers.AdjustDebt(ctx, tx.Customers(), input.CustomerID, unpaid); err != nil {
				return err
			}
		}
		if input.PaidAmount > 0 {
			if _, err := tx.InsertReceipt(ctx, PaymentReceipt{
				OrderID:    id,
				Amount:     input.PaidAmount,
				Method:     input.PaymentMethod,
				ReceivedBy: input.ActorID,
				ReceivedAt: now,
			}); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return CreateResult{}, err
	}

	s.recordAudit(ctx, input.ActorID, "orders:create", order.ID, nil,
		map[string]any{"code": order.Code, "type": string(order.Type), "total": order.TotalAmount})
	if s.integration != nil {
		s.integration.HandleOrderCreated(ctx, OrderCreatedEvent{
			OrderID:     order.ID,
			Code:        order.Code,
			CustomerID:  order.CustomerID,
			Type:        order.Type,
			TotalAmount: order.TotalAmount,
			ActorID:     input.ActorID,
			CreatedAt:   now,
		})
	}
	created, err := s.repo.Get(ctx, order.ID)
	if err != nil {
		return CreateResult{}, err
	}
	return CreateResult{Order: created, Warnings: warnings}, nil
}

func (s *Service) advisoryCheck(ctx context.Context, lines []LineInput) ([]inventory.Availability, error) {
	if s.availability == nil {
		return nil, nil
	}
	items := make([]inventory.AvailabilityItem, 0, len(lines))
	for _, line := range lines {
		items = append(items, inventory.AvailabilityItem{WarehouseID: line.WarehouseID, ProductID: line.ProductID, Quantity: line.Quantity})
	}
	report, err := s.availability.CheckAvailability(ctx, items)
	if err != nil {
		return nil, err
	}
	return inventory.Shortages(report), nil
}

func paymentStatusFor(paid, total float64) PaymentStatus {
	switch {
	case paid <= 0:
		return PaymentUnpaid
	case paid < total:
		return PaymentPartial
	default:
		return PaymentPaid
	}
}

// Approve is the administrative gate before the warehouse picks the goods.
// No inventory effect.
func (s *Service) Approve(ctx context.Context, id, approverID int64) (Order, error) {
	now := time.Now()
	var code string
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		o, err := tx.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if o.Status != StatusPending {
			return fmt.Errorf("orders: %s is %s: %w", o.Code, o.Status, shared.ErrInvalidState)
		}
		code = o.Code
		return tx.SetApproved(ctx, id, approverID, now)
	})
	if err != nil {
		return Order{}, err
	}
	s.recordAudit(ctx, approverID, "orders:approve", id,
		map[string]any{"status": string(StatusPending)},
		map[string]any{"status": string(StatusPreparing), "code": code})
	s.emitStatusChange(ctx, id, code, StatusPending, StatusPreparing, approverID, now)
	return s.repo.Get(ctx, id)
}

// AdvanceToDelivering is the commit point: each line's reservation is
// consumed (quantity and reserved decrement together), an export movement is
// written for the audit trail, and the shipment flips to in-transit.
func (s *Service) AdvanceToDelivering(ctx context.Context, id, actorID int64) (Order, error) {
	existing, err := s.repo.Get(ctx, id)
	if err != nil {
		return Order{}, err
	}
	if existing.Status != StatusPreparing {
		return Order{}, fmt.Errorf("orders: %s is %s: %w", existing.Code, existing.Status, shared.ErrInvalidState)
	}

	key := fmt.Sprintf("orders:deliver:%s", existing.Code)
	insertedKey := false
	if s.idempotency != nil {
		if err := s.idempotency.CheckAndInsert(ctx, key, "orders"); err != nil {
			return Order{}, err
		}
		insertedKey = true
	}

	now := time.Now()
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		o, err := tx.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if o.Status != StatusPreparing {
			return fmt.Errorf("orders: %s is %s: %w", o.Code, o.Status, shared.ErrInvalidState)
		}
		ledger := tx.Ledger()
		for _, l := range sortedLines(o.Lines) {
			if _, err := inventory.Consume(ctx, ledger, l.WarehouseID, l.ProductID, l.Quantity); err != nil {
				return err
			}
		}
		if err := s.writeMovementsFromLines(ctx, tx, o, now); err != nil {
			return err
		}
		if err := tx.SetDeliveryStatus(ctx, id, DeliveryInTransit, now); err != nil {
			return err
		}
		return tx.SetDelivering(ctx, id)
	})
	if err != nil {
		if insertedKey {
			_ = s.idempotency.Delete(ctx, key)
		}
		return Order{}, err
	}

	s.recordAudit(ctx, actorID, "orders:deliver", id,
		map[string]any{"status": string(StatusPreparing)},
		map[string]any{"status": string(StatusDelivering), "code": existing.Code})
	s.emitStatusChange(ctx, id, existing.Code, StatusPreparing, StatusDelivering, actorID, now)
	return s.repo.Get(ctx, id)
}

// Complete confirms the customer received the goods. Inventory was already
// applied at dispatch; this finalizes the shipment record.
func (s *Service) Complete(ctx context.Context, id, actorID int64) (Order, error) {
	now := time.Now()
	var code string
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		o, err := tx.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if o.Status != StatusDelivering {
			return fmt.Errorf("orders: %s is %s: %w", o.Code, o.Status, shared.ErrInvalidState)
		}
		code = o.Code
		if err := tx.SetDeliveryStatus(ctx, id, DeliveryDelivered, now); err != nil {
			return err
		}
		return tx.SetCompleted(ctx, id, now)
	})
	if err != nil {
		return Order{}, err
	}
	s.recordAudit(ctx, actorID, "orders:complete", id,
		map[string]any{"status": string(StatusDelivering)},
		map[string]any{"status": string(StatusCompleted), "code": code})
	s.emitStatusChange(ctx, id, code, StatusDelivering, StatusCompleted, actorID, now)
	return s.repo.Get(ctx, id)
}

// Cancel voids an order before dispatch: reservations are released line by
// line and the outstanding debt increment is reversed. Delivering and
// terminal orders cannot be cancelled.
func (s *Service) Cancel(ctx context.Context, id, actorID int64, reason string) (Order, error) {
	now := time.Now()
	var prev Status
	var code string
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		o, err := tx.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if !o.Status.CanCancel() {
			return fmt.Errorf("orders: %s is %s: %w", o.Code, o.Status, shared.ErrInvalidState)
		}
		prev, code = o.Status, o.Code
		if o.Type == TypeDelivery {
			ledger := tx.Ledger()
			for _, l := range sortedLines(o.Lines) {
				if _, err := inventory.Release(ctx, ledger, l.WarehouseID, l.ProductID, l.Quantity); err != nil {
					return err
				}
			}
		}
		if remaining := o.Remaining(); remaining > 0 {
			if _, err := customers.AdjustDebt(ctx, tx.Customers(), o.CustomerID, -remaining); err != nil {
				return err
			}
		}
		return tx.SetCancelled(ctx, id, actorID, now, reason)
	})
	if err != nil {
		return Order{}, err
	}
	s.recordAudit(ctx, actorID, "orders:cancel", id,
		map[string]any{"status": string(prev)},
		map[string]any{"status": string(StatusCancelled), "reason": reason})
	s.emitStatusChange(ctx, id, code, prev, StatusCancelled, actorID, now)
	return s.repo.Get(ctx, id)
}

// ProcessPayment records an incremental payment. The amount may not exceed
// the remaining balance; the matching debt is reduced in the same
// transaction and an immutable receipt is written.
func (s *Service) ProcessPayment(ctx context.Context, id int64, amount float64, method string, actorID int64) (Order, error) {
	if amount <= 0 {
		return Order{}, fmt.Errorf("orders: payment amount must be positive: %w", shared.ErrValidation)
	}
	now := time.Now()
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		o, err := tx.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if o.Status == StatusCancelled {
			return fmt.Errorf("orders: %s is cancelled: %w", o.Code, shared.ErrInvalidState)
		}
		remaining := decimal.NewFromFloat(o.TotalAmount).Sub(decimal.NewFromFloat(o.PaidAmount))
		pay := decimal.NewFromFloat(amount)
		if pay.GreaterThan(remaining) {
			return fmt.Errorf("orders: payment %.2f exceeds remaining balance %s: %w", amount, remaining.StringFixed(2), shared.ErrValidation)
		}
		newPaid := decimal.NewFromFloat(o.PaidAmount).Add(pay).Round(2).InexactFloat64()
		if err := tx.UpdatePayment(ctx, id, newPaid, paymentStatusFor(newPaid, o.TotalAmount)); err != nil {
			return err
		}
		if _, err := tx.InsertReceipt(ctx, PaymentReceipt{
			OrderID:    id,
			Amount:     amount,
			Method:     method,
			ReceivedBy: actorID,
			ReceivedAt: now,
		}); err != nil {
			return err
		}
		// debt mirrors the outstanding remainder until fully settled
		if _, err := customers.AdjustDebt(ctx, tx.Customers(), o.CustomerID, -amount); err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		return Order{}, err
	}
	s.recordAudit(ctx, actorID, "orders:payment", id, nil,
		map[string]any{"amount": amount, "method": method})
	return s.repo.Get(ctx, id)
}

// Get returns one order with lines and shipment.
func (s *Service) Get(ctx context.Context, id int64) (Order, error) {
	return s.repo.Get(ctx, id)
}

// List returns filtered orders plus the total count.
func (s *Service) List(ctx context.Context, filter ListFilter) ([]Order, int, error) {
	return s.repo.List(ctx, filter)
}

// Receipts returns the payment history of one order.
func (s *Service) Receipts(ctx context.Context, orderID int64) ([]PaymentReceipt, error) {
	if _, err := s.repo.Get(ctx, orderID); err != nil {
		return nil, err
	}
	return s.repo.ListReceipts(ctx, orderID)
}

type lineOp struct {
	warehouseID int64
	productID   int64
	qty         float64
}

type opKind int

const (
	// opReserve holds stock for a delivery order: reserved += qty.
	opReserve opKind = iota
	// opTakeUnreserved removes stock for a pickup: quantity -= qty with no
	// reservation phase.
	opTakeUnreserved
)

func lineOpsFor(lines []LineInput) []lineOp {
	ops := make([]lineOp, 0, len(lines))
	for _, l := range lines {
		ops = append(ops, lineOp{warehouseID: l.WarehouseID, productID: l.ProductID, qty: l.Quantity})
	}
	return ops
}

// applyLineOps locks ledger rows in stable order, verifies every op against
// projected available stock, then applies them. Shortages across all lines
// are collected before the first write.
func applyLineOps(ctx context.Context, ledger inventory.Store, ops []lineOp, kind opKind) error {
	sort.SliceStable(ops, func(i, j int) bool {
		if ops[i].warehouseID != ops[j].warehouseID {
			return ops[i].warehouseID < ops[j].warehouseID
		}
		return ops[i].productID < ops[j].productID
	})

	type projKey struct{ warehouseID, productID int64 }
	projected := make(map[projKey]inventory.Record)
	var shortages []shared.StockShortage
	for _, op := range ops {
		key := projKey{op.warehouseID, op.productID}
		rec, ok := projected[key]
		if !ok {
			loaded, err := ledger.GetForUpdate(ctx, op.warehouseID, op.productID)
			if err != nil && err != inventory.ErrRecordNotFound {
				return err
			}
			rec = loaded
		}
		if rec.Available() < op.qty {
			shortages = append(shortages, shared.StockShortage{
				WarehouseID: op.warehouseID,
				ProductID:   op.productID,
				Requested:   op.qty,
				Available:   rec.Available(),
			})
			continue
		}
		switch kind {
		case opReserve:
			rec.ReservedQuantity += op.qty
		case opTakeUnreserved:
			rec.Quantity -= op.qty
		}
		projected[key] = rec
	}
	if len(shortages) > 0 {
		return &shared.InsufficientStockError{Shortages: shortages}
	}

	for _, op := range ops {
		var err error
		switch kind {
		case opReserve:
			_, err = inventory.Reserve(ctx, ledger, op.warehouseID, op.productID, op.qty)
		case opTakeUnreserved:
			_, err = inventory.ApplyDelta(ctx, ledger, op.warehouseID, op.productID, -op.qty, 0)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func sortedLines(lines []Line) []Line {
	out := append([]Line(nil), lines...)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].WarehouseID != out[j].WarehouseID {
			return out[i].WarehouseID < out[j].WarehouseID
		}
		return out[i].ProductID < out[j].ProductID
	})
	return out
}

// writeMovements records the physical outflow of a pickup order as an
// approved export document, one per involved warehouse.
func (s *Service) writeMovements(ctx context.Context, tx TxRepository, o Order, lines []LineInput, now time.Time) error {
	grouped := make(map[int64][]stock.Detail)
	for _, l := range lines {
		grouped[l.WarehouseID] = append(grouped[l.WarehouseID], stock.Detail{
			ProductID: l.ProductID,
			Quantity:  l.Quantity,
			UnitPrice: l.UnitPrice,
		})
	}
	return s.insertMovementGroups(ctx, tx, o, grouped, now)
}

// writeMovementsFromLines does the same for a delivery order at dispatch.
func (s *Service) writeMovementsFromLines(ctx context.Context, tx TxRepository, o Order, now time.Time) error {
	grouped := make(map[int64][]stock.Detail)
	for _, l := range o.Lines {
		grouped[l.WarehouseID] = append(grouped[l.WarehouseID], stock.Detail{
			ProductID: l.ProductID,
			Quantity:  l.Quantity,
			UnitPrice: l.UnitPrice,
		})
	}
	return s.insertMovementGroups(ctx, tx, o, grouped, now)
}

func (s *Service) insertMovementGroups(ctx context.Context, tx TxRepository, o Order, grouped map[int64][]stock.Detail, now time.Time) error {
	warehouseIDs := make([]int64, 0, len(grouped))
	for id := range grouped {
		warehouseIDs = append(warehouseIDs, id)
	}
	sort.Slice(warehouseIDs, func(i, j int) bool { return warehouseIDs[i] < warehouseIDs[j] })

	for _, warehouseID := range warehouseIDs {
		code, err := s.sequences.NextCode(ctx, stock.TypeExport.Prefix(), now)
		if err != nil {
			return err
		}
		var total float64
		for _, d := range grouped[warehouseID] {
			total += d.Quantity * d.UnitPrice
		}
		if _, err := tx.InsertMovement(ctx, stock.Transaction{
			Code:        code,
			Type:        stock.TypeExport,
			Status:      stock.StatusApproved,
			WarehouseID: warehouseID,
			TotalValue:  total,
			RefModule:   "orders",
			RefID:       o.Code,
			CreatedBy:   o.CreatedBy,
			CreatedAt:   now,
			ApprovedBy:  o.CreatedBy,
			ApprovedAt:  &now,
			Details:     grouped[warehouseID],
		}); err != nil {
			return err
		}
	}
	return nil
}

func (s *Service) emitStatusChange(ctx context.Context, id int64, code string, from, to Status, actorID int64, at time.Time) {
	if s.integration == nil {
		return
	}
	s.integration.HandleOrderStatusChanged(ctx, OrderStatusChangedEvent{
		OrderID: id,
		Code:    code,
		From:    from,
		To:      to,
		ActorID: actorID,
		At:      at,
	})
}

func (s *Service) recordAudit(ctx context.Context, actorID int64, action string, entityID int64, oldValue, newValue map[string]any) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actorID,
		Action:   action,
		Entity:   "sales_order",
		EntityID: fmt.Sprintf("%d", entityID),
		OldValue: oldValue,
		NewValue: newValue,
	})
}
