package customers

import (
	"context"
	"fmt"
	"strings"

	"github.com/nguyenhoangkha03/quan-ly-ban-hang-backend-sub002/internal/shared"
)

// RepositoryPort abstracts repository usage for service.
type RepositoryPort interface {
	Get(ctx context.Context, id int64) (Customer, error)
	List(ctx context.Context, activeOnly bool, limit, offset int) ([]Customer, int, error)
	Create(ctx context.Context, c Customer) (Customer, error)
	SetActive(ctx context.Context, id int64, active bool) error
}

// Service exposes customer master-data operations.
type Service struct {
	repo RepositoryPort
}

// NewService builds Service.
func NewService(repo RepositoryPort) *Service {
	return &Service{repo: repo}
}

// Get returns one customer.
func (s *Service) Get(ctx context.Context, id int64) (Customer, error) {
	return s.repo.Get(ctx, id)
}

// List returns customers plus the total count.
func (s *Service) List(ctx context.Context, activeOnly bool, limit, offset int) ([]Customer, int, error) {
	return s.repo.List(ctx, activeOnly, limit, offset)
}

// RequireActive returns the customer or a validation error if it is
// missing or deactivated. Orders call this before accepting a sale.
func (s *Service) RequireActive(ctx context.Context, id int64) (Customer, error) {
	c, err := s.repo.Get(ctx, id)
	if err != nil {
		return Customer{}, err
	}
	if !c.IsActive {
		return Customer{}, fmt.Errorf("customers: customer %s is inactive: %w", c.Code, shared.ErrValidation)
	}
	return c, nil
}

// CreateInput describes a new customer.
type CreateInput struct {
	Code        string
	Name        string
	Phone       string
	Email       string
	Address     string
	CreditLimit float64
}

// Create registers a customer with zero opening debt.
func (s *Service) Create(ctx context.Context, input CreateInput) (Customer, error) {
	input.Code = strings.TrimSpace(input.Code)
	input.Name = strings.TrimSpace(input.Name)
	if input.Code == "" || input.Name == "" {
		return Customer{}, fmt.Errorf("customers: code and name are required: %w", shared.ErrValidation)
	}
	if input.CreditLimit < 0 {
		return Customer{}, fmt.Errorf("customers: credit limit must be non-negative: %w", shared.ErrValidation)
	}
	return s.repo.Create(ctx, Customer{
		Code:        input.Code,
		Name:        input.Name,
		Phone:       input.Phone,
		Email:       input.Email,
		Address:     input.Address,
		CreditLimit: input.CreditLimit,
	})
}

// SetActive toggles the active flag.
func (s *Service) SetActive(ctx context.Context, id int64, active bool) error {
	return s.repo.SetActive(ctx, id, active)
}
