package masterdata

import (
	"context"
	"fmt"

	"github.com/nguyenhoangkha03/quan-ly-ban-hang-backend-sub002/internal/shared"
)

// RepositoryPort abstracts repository usage for service and for stock/sales
// modules that only need the lookup side.
type RepositoryPort interface {
	GetWarehouse(ctx context.Context, id int64) (Warehouse, error)
	GetProduct(ctx context.Context, id int64) (Product, error)
	ListWarehouses(ctx context.Context, activeOnly bool) ([]Warehouse, error)
	ListProducts(ctx context.Context, activeOnly bool) ([]Product, error)
	CreateWarehouse(ctx context.Context, w Warehouse) (int64, error)
	CreateProduct(ctx context.Context, p Product) (int64, error)
	SetWarehouseActive(ctx context.Context, id int64, active bool) error
	SetProductActive(ctx context.Context, id int64, active bool) error
}

// Service exposes master data operations.
type Service struct {
	repo RepositoryPort
}

// NewService builds Service.
func NewService(repo RepositoryPort) *Service {
	return &Service{repo: repo}
}

// RequireActiveWarehouse loads a warehouse and fails when missing or inactive.
func (s *Service) RequireActiveWarehouse(ctx context.Context, id int64) (Warehouse, error) {
	w, err := s.repo.GetWarehouse(ctx, id)
	if err != nil {
		return Warehouse{}, err
	}
	if !w.IsActive {
		return Warehouse{}, fmt.Errorf("warehouse %s is inactive: %w", w.Code, shared.ErrValidation)
	}
	return w, nil
}

// RequireActiveProduct loads a product and fails when missing or inactive.
func (s *Service) RequireActiveProduct(ctx context.Context, id int64) (Product, error) {
	p, err := s.repo.GetProduct(ctx, id)
	if err != nil {
		return Product{}, err
	}
	if !p.IsActive {
		return Product{}, fmt.Errorf("product %s is inactive: %w", p.Code, shared.ErrValidation)
	}
	return p, nil
}

// GetWarehouse returns one warehouse.
func (s *Service) GetWarehouse(ctx context.Context, id int64) (Warehouse, error) {
	return s.repo.GetWarehouse(ctx, id)
}

// GetProduct returns one product.
func (s *Service) GetProduct(ctx context.Context, id int64) (Product, error) {
	return s.repo.GetProduct(ctx, id)
}

// ListWarehouses lists warehouses.
func (s *Service) ListWarehouses(ctx context.Context, activeOnly bool) ([]Warehouse, error) {
	return s.repo.ListWarehouses(ctx, activeOnly)
}

// ListProducts lists products.
func (s *Service) ListProducts(ctx context.Context, activeOnly bool) ([]Product, error) {
	return s.repo.ListProducts(ctx, activeOnly)
}

// CreateWarehouse validates and inserts a warehouse.
func (s *Service) CreateWarehouse(ctx context.Context, w Warehouse) (Warehouse, error) {
	if w.Code == "" || w.Name == "" {
		return Warehouse{}, fmt.Errorf("warehouse code and name required: %w", shared.ErrValidation)
	}
	w.IsActive = true
	id, err := s.repo.CreateWarehouse(ctx, w)
	if err != nil {
		return Warehouse{}, err
	}
	return s.repo.GetWarehouse(ctx, id)
}

// CreateProduct validates and inserts a product.
func (s *Service) CreateProduct(ctx context.Context, p Product) (Product, error) {
	if p.Code == "" || p.Name == "" {
		return Product{}, fmt.Errorf("product code and name required: %w", shared.ErrValidation)
	}
	if p.Price < 0 || p.CostPrice < 0 {
		return Product{}, fmt.Errorf("product prices must be non-negative: %w", shared.ErrValidation)
	}
	p.IsActive = true
	id, err := s.repo.CreateProduct(ctx, p)
	if err != nil {
		return Product{}, err
	}
	return s.repo.GetProduct(ctx, id)
}

// SetWarehouseActive toggles availability of a warehouse for new movements.
func (s *Service) SetWarehouseActive(ctx context.Context, id int64, active bool) error {
	return s.repo.SetWarehouseActive(ctx, id, active)
}

// SetProductActive toggles availability of a product for new movements.
func (s *Service) SetProductActive(ctx context.Context, id int64, active bool) error {
	return s.repo.SetProductActive(ctx, id, active)
}
