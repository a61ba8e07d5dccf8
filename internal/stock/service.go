package stock

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/nguyenhoangkha03/quan-ly-ban-hang-backend-sub002/internal/inventory"
	"github.com/nguyenhoangkha03/quan-ly-ban-hang-backend-sub002/internal/masterdata"
	"github.com/nguyenhoangkha03/quan-ly-ban-hang-backend-sub002/internal/shared"
)

// RepositoryPort abstracts repository usage for service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	Get(ctx context.Context, id int64) (Transaction, error)
	List(ctx context.Context, filter ListFilter) ([]Transaction, int, error)
}

// TxRepository exposes transactional operations used by service. Ledger
// returns a store bound to the same transaction, so document state and
// ledger deltas commit or roll back as one unit.
type TxRepository interface {
	GetForUpdate(ctx context.Context, id int64) (Transaction, error)
	Insert(ctx context.Context, txn Transaction) (int64, error)
	InsertDetail(ctx context.Context, d Detail) error
	SetApproved(ctx context.Context, id, approverID int64, at time.Time) error
	SetCancelled(ctx context.Context, id, actorID int64, at time.Time, reason string) error
	Ledger() inventory.Store
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

// Service coordinates stock movement documents.
type Service struct {
	repo         RepositoryPort
	master       MasterDataPort
	availability AvailabilityPort
	sequences    SequencePort
	audit        AuditPort
	idempotency  *shared.IdempotencyStore
	integration  IntegrationHandler
}

// NewService builds Service.
func NewService(repo RepositoryPort, master MasterDataPort, availability AvailabilityPort, sequences SequencePort, audit AuditPort, idem *shared.IdempotencyStore, integration IntegrationHandler) *Service {
	return &Service{repo: repo, master: master, availability: availability, sequences: sequences, audit: audit, idempotency: idem, integration: integration}
}

// LineInput describes one requested document line.
type LineInput struct {
	ProductID  int64      `json:"product_id"`
	Quantity   float64    `json:"quantity"`
	UnitPrice  float64    `json:"unit_price"`
	Batch      string     `json:"batch,omitempty"`
	ExpiryDate *time.Time `json:"expiry_date,omitempty"`
}

// CreateInput describes a document creation request.
type CreateInput struct {
	WarehouseID     int64
	DestWarehouseID int64
	Note            string
	ActorID         int64
	Lines           []LineInput
}

// CreateResult carries the persisted document plus advisory warnings for
// lines that currently lack available stock. Warnings never block creation;
// the authoritative check happens at approval.
type CreateResult struct {
	Transaction Transaction              `json:"transaction"`
	Warnings    []inventory.Availability `json:"warnings,omitempty"`
}

// CreateImport creates a pending inbound receipt.
func (s *Service) CreateImport(ctx context.Context, input CreateInput) (CreateResult, error) {
	return s.create(ctx, TypeImport, input)
}

// CreateExport creates a pending outbound issue.
func (s *Service) CreateExport(ctx context.Context, input CreateInput) (CreateResult, error) {
	return s.create(ctx, TypeExport, input)
}

// CreateDisposal creates a pending write-off document.
func (s *Service) CreateDisposal(ctx context.Context, input CreateInput) (CreateResult, error) {
	return s.create(ctx, TypeDisposal, input)
}

// CreateTransfer creates a pending two-warehouse movement applied in one
// approval step.
func (s *Service) CreateTransfer(ctx context.Context, input CreateInput) (CreateResult, error) {
	return s.create(ctx, TypeTransfer, input)
}

// CreateStocktake creates a pending reconciliation document; line quantities
// are signed deltas of counted minus recorded stock.
func (s *Service) CreateStocktake(ctx context.Context, input CreateInput) (CreateResult, error) {
	return s.create(ctx, TypeStocktake, input)
}

func (s *Service) create(ctx context.Context, typ TransactionType, input CreateInput) (CreateResult, error) {
	if len(input.Lines) == 0 {
		return CreateResult{}, fmt.Errorf("%s: %w", ErrNoLines, shared.ErrValidation)
	}
	if _, err := s.master.RequireActiveWarehouse(ctx, input.WarehouseID); err != nil {
		return CreateResult{}, err
	}
	if typ == TypeTransfer {
		if input.DestWarehouseID == 0 || input.DestWarehouseID == input.WarehouseID {
			return CreateResult{}, fmt.Errorf("stock: transfer requires a distinct destination warehouse: %w", shared.ErrValidation)
		}
		if _, err := s.master.RequireActiveWarehouse(ctx, input.DestWarehouseID); err != nil {
			return CreateResult{}, err
		}
	}

	var totalValue float64
	for _, line := range input.Lines {
		if _, err := s.master.RequireActiveProduct(ctx, line.ProductID); err != nil {
			return CreateResult{}, err
		}
		if typ == TypeStocktake {
			if line.Quantity == 0 {
				return CreateResult{}, fmt.Errorf("stock: stocktake line delta must be non-zero: %w", shared.ErrValidation)
			}
		} else if line.Quantity <= 0 {
			return CreateResult{}, fmt.Errorf("stock: line quantity must be positive: %w", shared.ErrValidation)
		}
		if line.UnitPrice < 0 {
			return CreateResult{}, fmt.Errorf("stock: unit price must be non-negative: %w", shared.ErrValidation)
		}
		totalValue += math.Abs(line.Quantity) * line.UnitPrice
	}

	warnings, err := s.advisoryCheck(ctx, typ, input)
	if err != nil {
		return CreateResult{}, err
	}

	now := time.Now()
	code, err := s.sequences.NextCode(ctx, typ.Prefix(), now)
	if err != nil {
		return CreateResult{}, err
	}

	txn := Transaction{
		Code:        code,
		Type:        typ,
		Status:      StatusPending,
		WarehouseID: input.WarehouseID,
		TotalValue:  math.Round(totalValue*100) / 100,
		Note:        input.Note,
		CreatedBy:   input.ActorID,
		CreatedAt:   now,
	}
	if typ == TypeTransfer {
		txn.SourceWarehouseID = input.WarehouseID
		txn.DestWarehouseID = input.DestWarehouseID
	}

	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		id, err := tx.Insert(ctx, txn)
		if err != nil {
			return err
		}
		txn.ID = id
		for _, line := range input.Lines {
			detail := Detail{
				TransactionID: id,
				ProductID:     line.ProductID,
				Quantity:      line.Quantity,
				UnitPrice:     line.UnitPrice,
				Batch:         line.Batch,
				ExpiryDate:    line.ExpiryDate,
			}
			if err := tx.InsertDetail(ctx, detail); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return CreateResult{}, err
	}

	s.recordAudit(ctx, input.ActorID, fmt.Sprintf("stock:%s:create", typ), txn.ID, nil, map[string]any{"code": txn.Code, "warehouse_id": txn.WarehouseID, "total_value": txn.TotalValue})
	created, err := s.repo.Get(ctx, txn.ID)
	if err != nil {
		return CreateResult{}, err
	}
	return CreateResult{Transaction: created, Warnings: warnings}, nil
}

// advisoryCheck surfaces likely shortages early for outbound types. It holds
// no locks, so it can go stale before approval.
func (s *Service) advisoryCheck(ctx context.Context, typ TransactionType, input CreateInput) ([]inventory.Availability, error) {
	if s.availability == nil {
		return nil, nil
	}
	var items []inventory.AvailabilityItem
	switch typ {
	case TypeExport, TypeDisposal, TypeTransfer:
		for _, line := range input.Lines {
			items = append(items, inventory.AvailabilityItem{WarehouseID: input.WarehouseID, ProductID: line.ProductID, Quantity: line.Quantity})
		}
	case TypeStocktake:
		for _, line := range input.Lines {
			if line.Quantity < 0 {
				items = append(items, inventory.AvailabilityItem{WarehouseID: input.WarehouseID, ProductID: line.ProductID, Quantity: -line.Quantity})
			}
		}
	default:
		return nil, nil
	}
	if len(items) == 0 {
		return nil, nil
	}
	report, err := s.availability.CheckAvailability(ctx, items)
	if err != nil {
		return nil, err
	}
	return inventory.Shortages(report), nil
}

type ledgerOp struct {
	warehouseID int64
	productID   int64
	qtyDelta    float64
}

// Approve applies the document to the ledger. Only legal from pending; the
// status is re-checked under the row lock so a concurrent approval of the
// same document fails with a state error instead of applying twice.
func (s *Service) Approve(ctx context.Context, id, approverID int64) (Transaction, error) {
	existing, err := s.repo.Get(ctx, id)
	if err != nil {
		return Transaction{}, err
	}
	if existing.Status != StatusPending {
		return Transaction{}, fmt.Errorf("stock: transaction %s is %s: %w", existing.Code, existing.Status, shared.ErrInvalidState)
	}

	key := fmt.Sprintf("stock:approve:%s", existing.Code)
	insertedKey := false
	if s.idempotency != nil {
		if err := s.idempotency.CheckAndInsert(ctx, key, "stock"); err != nil {
			return Transaction{}, err
		}
		insertedKey = true
	}

	now := time.Now()
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		txn, err := tx.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if txn.Status != StatusPending {
			return fmt.Errorf("stock: transaction %s is %s: %w", txn.Code, txn.Status, shared.ErrInvalidState)
		}
		ops := buildLedgerOps(txn)
		if err := applyLedgerOps(ctx, tx.Ledger(), ops); err != nil {
			return err
		}
		return tx.SetApproved(ctx, id, approverID, now)
	})
	if err != nil {
		if insertedKey {
			_ = s.idempotency.Delete(ctx, key)
		}
		return Transaction{}, err
	}

	s.recordAudit(ctx, approverID, fmt.Sprintf("stock:%s:approve", existing.Type), id,
		map[string]any{"status": string(StatusPending)},
		map[string]any{"status": string(StatusApproved), "code": existing.Code})
	if s.integration != nil {
		s.integration.HandleStockTransactionApproved(ctx, TransactionApprovedEvent{
			TransactionID: id,
			Code:          existing.Code,
			Type:          existing.Type,
			WarehouseID:   existing.WarehouseID,
			DestWarehouse: existing.DestWarehouseID,
			ActorID:       approverID,
			ApprovedAt:    now,
		})
	}
	return s.repo.Get(ctx, id)
}

// buildLedgerOps maps a document to its per-row quantity deltas.
func buildLedgerOps(txn Transaction) []ledgerOp {
	var ops []ledgerOp
	for _, d := range txn.Details {
		switch txn.Type {
		case TypeImport:
			ops = append(ops, ledgerOp{txn.WarehouseID, d.ProductID, d.Quantity})
		case TypeExport, TypeDisposal:
			ops = append(ops, ledgerOp{txn.WarehouseID, d.ProductID, -d.Quantity})
		case TypeTransfer:
			ops = append(ops, ledgerOp{txn.SourceWarehouseID, d.ProductID, -d.Quantity})
			ops = append(ops, ledgerOp{txn.DestWarehouseID, d.ProductID, d.Quantity})
		case TypeStocktake:
			ops = append(ops, ledgerOp{txn.WarehouseID, d.ProductID, d.Quantity})
		}
	}
	return ops
}

// applyLedgerOps locks rows in a stable order, verifies every decrement can
// be covered, then applies all deltas. Collecting shortages before the first
// write means the caller gets the complete list of failing lines.
func applyLedgerOps(ctx context.Context, store inventory.Store, ops []ledgerOp) error {
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
			loaded, err := store.GetForUpdate(ctx, op.warehouseID, op.productID)
			if err != nil && err != inventory.ErrRecordNotFound {
				return err
			}
			rec = loaded
		}
		newQty := rec.Quantity + op.qtyDelta
		if newQty < 0 || newQty < rec.ReservedQuantity {
			shortages = append(shortages, shared.StockShortage{
				WarehouseID: op.warehouseID,
				ProductID:   op.productID,
				Requested:   -op.qtyDelta,
				Available:   rec.Available(),
			})
			continue
		}
		rec.Quantity = newQty
		projected[key] = rec
	}
	if len(shortages) > 0 {
		return &shared.InsufficientStockError{Shortages: shortages}
	}

	for _, op := range ops {
		if _, err := inventory.ApplyDelta(ctx, store, op.warehouseID, op.productID, op.qtyDelta, 0); err != nil {
			return err
		}
	}
	return nil
}

// Cancel voids a pending document. Approved documents are immutable; a
// correction requires a brand-new reversing transaction.
func (s *Service) Cancel(ctx context.Context, id, actorID int64, reason string) (Transaction, error) {
	now := time.Now()
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		txn, err := tx.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if txn.Status != StatusPending {
			return fmt.Errorf("stock: transaction %s is %s: %w", txn.Code, txn.Status, shared.ErrInvalidState)
		}
		return tx.SetCancelled(ctx, id, actorID, now, reason)
	})
	if err != nil {
		return Transaction{}, err
	}
	s.recordAudit(ctx, actorID, "stock:cancel", id,
		map[string]any{"status": string(StatusPending)},
		map[string]any{"status": string(StatusCancelled), "reason": reason})
	return s.repo.Get(ctx, id)
}

// Get returns one transaction with details.
func (s *Service) Get(ctx context.Context, id int64) (Transaction, error) {
	return s.repo.Get(ctx, id)
}

// List returns filtered transactions plus the total count.
func (s *Service) List(ctx context.Context, filter ListFilter) ([]Transaction, int, error) {
	return s.repo.List(ctx, filter)
}

func (s *Service) recordAudit(ctx context.Context, actorID int64, action string, entityID int64, oldValue, newValue map[string]any) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actorID,
		Action:   action,
		Entity:   "stock_transaction",
		EntityID: fmt.Sprintf("%d", entityID),
		OldValue: oldValue,
		NewValue: newValue,
	})
}
