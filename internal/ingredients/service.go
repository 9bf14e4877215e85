package ingredients

import (
	"context"
	"errors"

	"github.com/heytrack/heytrack/internal/shared"
)

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) List(ctx context.Context, userID int64, filters shared.ListFilters) ([]Ingredient, int, error) {
	return s.repo.List(ctx, userID, filters)
}

func (s *Service) Get(ctx context.Context, userID, id int64) (Ingredient, error) {
	if id <= 0 {
		return Ingredient{}, errors.New("invalid ingredient ID")
	}
	return s.repo.Get(ctx, userID, id)
}

func (s *Service) Create(ctx context.Context, ingredient Ingredient) (Ingredient, error) {
	if err := s.validate(ingredient); err != nil {
		return Ingredient{}, err
	}
	return s.repo.Create(ctx, ingredient)
}

func (s *Service) Update(ctx context.Context, userID, id int64, ingredient Ingredient) error {
	if id <= 0 {
		return errors.New("invalid ingredient ID")
	}
	if err := s.validate(ingredient); err != nil {
		return err
	}
	return s.repo.Update(ctx, userID, id, ingredient)
}

func (s *Service) Deactivate(ctx context.Context, userID, id int64) error {
	if id <= 0 {
		return errors.New("invalid ingredient ID")
	}
	return s.repo.Deactivate(ctx, userID, id)
}

func (s *Service) ListLowStock(ctx context.Context, userID int64) ([]Ingredient, error) {
	return s.repo.ListLowStock(ctx, userID)
}
