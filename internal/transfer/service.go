package transfer

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/nguyenhoangkha03/quan-ly-ban-hang-backend-sub002/internal/inventory"
	"github.com/nguyenhoangkha03/quan-ly-ban-hang-backend-sub002/internal/masterdata"
	"github.com/nguyenhoangkha03/quan-ly-ban-hang-backend-sub002/internal/shared"
)

// RepositoryPort abstracts repository usage for service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	Get(ctx context.Context, id int64) (Transfer, error)
	List(ctx context.Context, filter ListFilter) ([]Transfer, int, error)
}

// TxRepository exposes transactional operations used by service.
type TxRepository interface {
	GetForUpdate(ctx context.Context, id int64) (Transfer, error)
	Insert(ctx context.Context, t Transfer) (int64, error)
	InsertDetail(ctx context.Context, d Detail) error
	SetInTransit(ctx context.Context, id, approverID int64, at time.Time) error
	SetCompleted(ctx context.Context, id, actorID int64, at time.Time) error
	SetCancelled(ctx context.Context, id, actorID int64, at time.Time, reason string) error
	Ledger() inventory.Store
}

// MasterDataPort validates warehouse/product existence and active status.
type MasterDataPort interface {
	RequireActiveWarehouse(ctx context.Context, id int64) (masterdata.Warehouse, error)
	RequireActiveProduct(ctx context.Context, id int64) (masterdata.Product, error)
}

// SequencePort allocates document codes.
type SequencePort interface {
	NextCode(ctx context.Context, prefix string, day time.Time) (string, error)
}

// AuditPort abstracts audit logging.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

const codePrefix = "PCK"

// Service coordinates the staged transfer workflow. Stock stays reserved at
// the source from approval until the receiving side confirms, so the goods
// cannot be sold out from under a truck already on the road.
type Service struct {
	repo        RepositoryPort
	master      MasterDataPort
	sequences   SequencePort
	audit       AuditPort
	idempotency *shared.IdempotencyStore
	integration IntegrationHandler
}

// NewService builds Service.
func NewService(repo RepositoryPort, master MasterDataPort, sequences SequencePort, audit AuditPort, idem *shared.IdempotencyStore, integration IntegrationHandler) *Service {
	return &Service{repo: repo, master: master, sequences: sequences, audit: audit, idempotency: idem, integration: integration}
}

// LineInput describes one requested transfer line.
type LineInput struct {
	ProductID int64   `json:"product_id"`
	Quantity  float64 `json:"quantity"`
}

// CreateInput describes a transfer creation request.
type CreateInput struct {
	SourceWarehouse int64
	DestWarehouse   int64
	Note            string
	ActorID         int64
	Lines           []LineInput
}

// Create persists a pending transfer. Nothing is reserved yet.
func (s *Service) Create(ctx context.Context, input CreateInput) (Transfer, error) {
	if len(input.Lines) == 0 {
		return Transfer{}, fmt.Errorf("%s: %w", ErrNoLines, shared.ErrValidation)
	}
	if input.DestWarehouse == 0 || input.DestWarehouse == input.SourceWarehouse {
		return Transfer{}, fmt.Errorf("transfer: source and destination warehouses must differ: %w", shared.ErrValidation)
	}
	if _, err := s.master.RequireActiveWarehouse(ctx, input.SourceWarehouse); err != nil {
		return Transfer{}, err
	}
	if _, err := s.master.RequireActiveWarehouse(ctx, input.DestWarehouse); err != nil {
		return Transfer{}, err
	}
	for _, line := range input.Lines {
		if _, err := s.master.RequireActiveProduct(ctx, line.ProductID); err != nil {
			return Transfer{}, err
		}
		if line.Quantity <= 0 {
			return Transfer{}, fmt.Errorf("transfer: line quantity must be positive: %w", shared.ErrValidation)
		}
	}

	now := time.Now()
	code, err := s.sequences.NextCode(ctx, codePrefix, now)
	if err != nil {
		return Transfer{}, err
	}
	t := Transfer{
		Code:            code,
		Status:          StatusPending,
		SourceWarehouse: input.SourceWarehouse,
		DestWarehouse:   input.DestWarehouse,
		Note:            input.Note,
		CreatedBy:       input.ActorID,
		CreatedAt:       now,
	}

	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		id, err := tx.Insert(ctx, t)
		if err != nil {
			return err
		}
		t.ID = id
		for _, line := range input.Lines {
			if err := tx.InsertDetail(ctx, Detail{TransferID: id, ProductID: line.ProductID, Quantity: line.Quantity}); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return Transfer{}, err
	}

	s.recordAudit(ctx, input.ActorID, "transfer:create", t.ID, nil, map[string]any{"code": t.Code, "source": t.SourceWarehouse, "dest": t.DestWarehouse})
	return s.repo.Get(ctx, t.ID)
}

// Approve moves a pending transfer to in_transit and reserves every line at
// the source warehouse in the same transaction. A shortage on any line fails
// the whole approval with the complete list of failing lines.
func (s *Service) Approve(ctx context.Context, id, approverID int64) (Transfer, error) {
	existing, err := s.repo.Get(ctx, id)
	if err != nil {
		return Transfer{}, err
	}
	if existing.Status != StatusPending {
		return Transfer{}, fmt.Errorf("transfer: %s is %s: %w", existing.Code, existing.Status, shared.ErrInvalidState)
	}

	key := fmt.Sprintf("transfer:approve:%s", existing.Code)
	insertedKey := false
	if s.idempotency != nil {
		if err := s.idempotency.CheckAndInsert(ctx, key, "transfer"); err != nil {
			return Transfer{}, err
		}
		insertedKey = true
	}

	now := time.Now()
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		t, err := tx.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if t.Status != StatusPending {
			return fmt.Errorf("transfer: %s is %s: %w", t.Code, t.Status, shared.ErrInvalidState)
		}
		if err := reserveLines(ctx, tx.Ledger(), t); err != nil {
			return err
		}
		return tx.SetInTransit(ctx, id, approverID, now)
	})
	if err != nil {
		if insertedKey {
			_ = s.idempotency.Delete(ctx, key)
		}
		return Transfer{}, err
	}

	s.recordAudit(ctx, approverID, "transfer:approve", id,
		map[string]any{"status": string(StatusPending)},
		map[string]any{"status": string(StatusInTransit), "code": existing.Code})
	return s.repo.Get(ctx, id)
}

// Complete confirms receipt: for each line the source loses both quantity
// and reservation, the destination gains quantity, and the transfer becomes
// terminal. All of it commits as one unit.
func (s *Service) Complete(ctx context.Context, id, actorID int64) (Transfer, error) {
	existing, err := s.repo.Get(ctx, id)
	if err != nil {
		return Transfer{}, err
	}
	if existing.Status != StatusInTransit {
		return Transfer{}, fmt.Errorf("transfer: %s is %s: %w", existing.Code, existing.Status, shared.ErrInvalidState)
	}

	key := fmt.Sprintf("transfer:complete:%s", existing.Code)
	insertedKey := false
	if s.idempotency != nil {
		if err := s.idempotency.CheckAndInsert(ctx, key, "transfer"); err != nil {
			return Transfer{}, err
		}
		insertedKey = true
	}

	now := time.Now()
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		t, err := tx.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if t.Status != StatusInTransit {
			return fmt.Errorf("transfer: %s is %s: %w", t.Code, t.Status, shared.ErrInvalidState)
		}
		ledger := tx.Ledger()
		for _, d := range sortedDetails(t.Details) {
			if _, err := inventory.Consume(ctx, ledger, t.SourceWarehouse, d.ProductID, d.Quantity); err != nil {
				return err
			}
			if _, err := inventory.ApplyDelta(ctx, ledger, t.DestWarehouse, d.ProductID, d.Quantity, 0); err != nil {
				return err
			}
		}
		return tx.SetCompleted(ctx, id, actorID, now)
	})
	if err != nil {
		if insertedKey {
			_ = s.idempotency.Delete(ctx, key)
		}
		return Transfer{}, err
	}

	s.recordAudit(ctx, actorID, "transfer:complete", id,
		map[string]any{"status": string(StatusInTransit)},
		map[string]any{"status": string(StatusCompleted), "code": existing.Code})
	if s.integration != nil {
		s.integration.HandleTransferCompleted(ctx, TransferCompletedEvent{
			TransferID:      id,
			Code:            existing.Code,
			SourceWarehouse: existing.SourceWarehouse,
			DestWarehouse:   existing.DestWarehouse,
			ActorID:         actorID,
			CompletedAt:     now,
		})
	}
	return s.repo.Get(ctx, id)
}

// Cancel voids a transfer. From in_transit the source reservation placed at
// approval is released line by line; from pending there is nothing to undo.
func (s *Service) Cancel(ctx context.Context, id, actorID int64, reason string) (Transfer, error) {
	now := time.Now()
	var prev Status
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		t, err := tx.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if !t.Status.CanCancel() {
			return fmt.Errorf("transfer: %s is %s: %w", t.Code, t.Status, shared.ErrInvalidState)
		}
		prev = t.Status
		if t.Status == StatusInTransit {
			ledger := tx.Ledger()
			for _, d := range sortedDetails(t.Details) {
				if _, err := inventory.Release(ctx, ledger, t.SourceWarehouse, d.ProductID, d.Quantity); err != nil {
					return err
				}
			}
		}
		return tx.SetCancelled(ctx, id, actorID, now, reason)
	})
	if err != nil {
		return Transfer{}, err
	}
	s.recordAudit(ctx, actorID, "transfer:cancel", id,
		map[string]any{"status": string(prev)},
		map[string]any{"status": string(StatusCancelled), "reason": reason})
	return s.repo.Get(ctx, id)
}

// Get returns one transfer with details.
func (s *Service) Get(ctx context.Context, id int64) (Transfer, error) {
	return s.repo.Get(ctx, id)
}

// List returns filtered transfers plus the total count.
func (s *Service) List(ctx context.Context, filter ListFilter) ([]Transfer, int, error) {
	return s.repo.List(ctx, filter)
}

// reserveLines locks rows in product order, collects every line the source
// cannot cover, then places the reservations.
func reserveLines(ctx context.Context, ledger inventory.Store, t Transfer) error {
	details := sortedDetails(t.Details)

	projected := make(map[int64]inventory.Record)
	var shortages []shared.StockShortage
	for _, d := range details {
		rec, ok := projected[d.ProductID]
		if !ok {
			loaded, err := ledger.GetForUpdate(ctx, t.SourceWarehouse, d.ProductID)
			if err != nil && err != inventory.ErrRecordNotFound {
				return err
			}
			rec = loaded
		}
		if rec.Available() < d.Quantity {
			shortages = append(shortages, shared.StockShortage{
				WarehouseID: t.SourceWarehouse,
				ProductID:   d.ProductID,
				Requested:   d.Quantity,
				Available:   rec.Available(),
			})
			continue
		}
		rec.ReservedQuantity += d.Quantity
		projected[d.ProductID] = rec
	}
	if len(shortages) > 0 {
		return &shared.InsufficientStockError{Shortages: shortages}
	}

	for _, d := range details {
		if _, err := inventory.Reserve(ctx, ledger, t.SourceWarehouse, d.ProductID, d.Quantity); err != nil {
			return err
		}
	}
	return nil
}

func sortedDetails(details []Detail) []Detail {
	out := append([]Detail(nil), details...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].ProductID < out[j].ProductID })
	return out
}

func (s *Service) recordAudit(ctx context.Context, actorID int64, action string, entityID int64, oldValue, newValue map[string]any) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actorID,
		Action:   action,
		Entity:   "stock_transfer",
		EntityID: fmt.Sprintf("%d", entityID),
		OldValue: oldValue,
		NewValue: newValue,
	})
}
