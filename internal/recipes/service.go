package recipes

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/heytrack/heytrack/internal/shared"
)

// DefaultMarginPct is the profit margin applied when the caller gives none.
const DefaultMarginPct = 30.0

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) List(ctx context.Context, userID int64, filters shared.ListFilters) ([]Recipe, int, error) {
	return s.repo.List(ctx, userID, filters)
}

func (s *Service) Get(ctx context.Context, userID, id int64) (Recipe, error) {
	if id <= 0 {
		return Recipe{}, errors.New("invalid recipe ID")
	}
	return s.repo.Get(ctx, userID, id)
}

func (s *Service) Create(ctx context.Context, recipe Recipe) (Recipe, error) {
	if err := s.validate(recipe); err != nil {
		return Recipe{}, err
	}
	if recipe.Servings <= 0 {
		recipe.Servings = 1
	}
	return s.repo.Create(ctx, recipe)
}

func (s *Service) Update(ctx context.Context, userID, id int64, recipe Recipe) error {
	if id <= 0 {
		return errors.New("invalid recipe ID")
	}
	if err := s.validate(recipe); err != nil {
		return err
	}
	if recipe.Servings <= 0 {
		recipe.Servings = 1
	}
	return s.repo.Update(ctx, userID, id, recipe)
}

func (s *Service) Deactivate(ctx context.Context, userID, id int64) error {
	if id <= 0 {
		return errors.New("invalid recipe ID")
	}
	return s.repo.Deactivate(ctx, userID, id)
}

// CalculateHpp prices the recipe at current ingredient costs. HPP is material
// cost plus the recipe's stored labor and overhead; the suggested price marks
// the per-serving HPP up by marginPct.
func (s *Service) CalculateHpp(ctx context.Context, userID, id int64, marginPct float64) (HppBreakdown, error) {
	if id <= 0 {
		return HppBreakdown{}, errors.New("invalid recipe ID")
	}
	if marginPct <= 0 {
		marginPct = DefaultMarginPct
	}

	recipe, err := s.repo.Get(ctx, userID, id)
	if err != nil {
		return HppBreakdown{}, err
	}
	items, err := s.repo.ListCostedItems(ctx, userID, id)
	if err != nil {
		return HppBreakdown{}, err
	}

	var materialCost float64
	for _, item := range items {
		materialCost += item.TotalCost
	}

	servings := recipe.Servings
	if servings <= 0 {
		servings = 1
	}
	totalHpp := materialCost + recipe.LaborCost + recipe.OverheadCost
	perServing := totalHpp / float64(servings)

	return HppBreakdown{
		RecipeID:       recipe.ID,
		RecipeName:     recipe.Name,
		Servings:       servings,
		MaterialCost:   materialCost,
		LaborCost:      recipe.LaborCost,
		OverheadCost:   recipe.OverheadCost,
		TotalHpp:       totalHpp,
		HppPerServing:  perServing,
		MarginPct:      marginPct,
		SuggestedPrice: perServing * (1 + marginPct/100),
		Items:          items,
		CalculatedAt:   time.Now(),
	}, nil
}

func (s *Service) validate(recipe Recipe) error {
	if strings.TrimSpace(recipe.Name) == "" {
		return errors.New("recipe name is required")
	}
	if recipe.LaborCost < 0 || recipe.OverheadCost < 0 || recipe.SellingPrice < 0 {
		return errors.New("costs cannot be negative")
	}
	for _, item := range recipe.Items {
		if item.IngredientID <= 0 {
			return errors.New("recipe item needs an ingredient")
		}
		if item.Quantity <= 0 {
			return errors.New("recipe item quantity must be positive")
		}
	}
	return nil
}
