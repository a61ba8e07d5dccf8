package inventory

import (
	"context"
	"errors"
)

// RepositoryPort abstracts the read side used by Service.
type RepositoryPort interface {
	GetRecord(ctx context.Context, warehouseID, productID int64) (Record, error)
	ListByWarehouse(ctx context.Context, warehouseID int64) ([]Record, error)
}

// Service exposes read-only ledger queries. The check runs outside any lock:
// it is a pre-flight gate only, and every workflow re-checks authoritatively
// inside its own atomic unit via ApplyDelta.
type Service struct {
	repo RepositoryPort
}

// NewService builds Service.
func NewService(repo RepositoryPort) *Service {
	return &Service{repo: repo}
}

// GetRecord returns the ledger row for one (warehouse, product) pair; a
// missing row reads as zero stock.
func (s *Service) GetRecord(ctx context.Context, warehouseID, productID int64) (Record, error) {
	rec, err := s.repo.GetRecord(ctx, warehouseID, productID)
	if errors.Is(err, ErrRecordNotFound) {
		return Record{WarehouseID: warehouseID, ProductID: productID}, nil
	}
	return rec, err
}

// ListByWarehouse lists stock levels for one warehouse.
func (s *Service) ListByWarehouse(ctx context.Context, warehouseID int64) ([]Record, error) {
	return s.repo.ListByWarehouse(ctx, warehouseID)
}

// CheckAvailability reports per-item whether requested quantities are covered
// by available stock. It does not reserve anything.
func (s *Service) CheckAvailability(ctx context.Context, items []AvailabilityItem) ([]Availability, error) {
	report := make([]Availability, 0, len(items))
	for _, item := range items {
		if item.Quantity <= 0 {
			return nil, ErrInvalidQuantity
		}
		rec, err := s.GetRecord(ctx, item.WarehouseID, item.ProductID)
		if err != nil {
			return nil, err
		}
		report = append(report, Availability{
			WarehouseID: item.WarehouseID,
			ProductID:   item.ProductID,
			Requested:   item.Quantity,
			OnHand:      rec.Quantity,
			Reserved:    rec.ReservedQuantity,
			Available:   rec.Available(),
			Sufficient:  rec.Available()+qtyEpsilon >= item.Quantity,
		})
	}
	return report, nil
}

// Shortages filters an availability report down to the lines that cannot be
// covered, for advisory warnings on order and export creation.
func Shortages(report []Availability) []Availability {
	var short []Availability
	for _, line := range report {
		if !line.Sufficient {
			short = append(short, line)
		}
	}
	return short
}
