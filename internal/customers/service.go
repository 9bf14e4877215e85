package customers

import (
	"context"
	"errors"
	"strings"

	"github.com/heytrack/heytrack/internal/shared"
)

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) List(ctx context.Context, userID int64, filters shared.ListFilters) ([]Customer, int, error) {
	return s.repo.List(ctx, userID, filters)
}

func (s *Service) Get(ctx context.Context, userID, id int64) (Customer, error) {
	if id <= 0 {
		return Customer{}, errors.New("invalid customer ID")
	}
	return s.repo.Get(ctx, userID, id)
}

func (s *Service) Create(ctx context.Context, customer Customer) (Customer, error) {
	if err := s.validate(customer); err != nil {
		return Customer{}, err
	}
	return s.repo.Create(ctx, customer)
}

func (s *Service) Update(ctx context.Context, userID, id int64, customer Customer) error {
	if id <= 0 {
		return errors.New("invalid customer ID")
	}
	if err := s.validate(customer); err != nil {
		return err
	}
	return s.repo.Update(ctx, userID, id, customer)
}

func (s *Service) Delete(ctx context.Context, userID, id int64) error {
	if id <= 0 {
		return errors.New("invalid customer ID")
	}
	return s.repo.Delete(ctx, userID, id)
}

func (s *Service) validate(c Customer) error {
	if strings.TrimSpace(c.Name) == "" {
		return errors.New("customer name is required")
	}
	return nil
}
