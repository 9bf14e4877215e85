package recipes

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/heytrack/heytrack/internal/shared"
)

type memoryRepo struct {
	recipes map[int64]Recipe
	costed  map[int64][]HppItem
	nextID  int64
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{
		recipes: make(map[int64]Recipe),
		costed:  make(map[int64][]HppItem),
	}
}

func (r *memoryRepo) List(ctx context.Context, userID int64, filters shared.ListFilters) ([]Recipe, int, error) {
	var out []Recipe
	for _, rec := range r.recipes {
		if rec.UserID == userID {
			out = append(out, rec)
		}
	}
	return out, len(out), nil
}

func (r *memoryRepo) Get(ctx context.Context, userID, id int64) (Recipe, error) {
	rec, ok := r.recipes[id]
	if !ok || rec.UserID != userID {
		return Recipe{}, ErrRecipeNotFound
	}
	return rec, nil
}

func (r *memoryRepo) Create(ctx context.Context, recipe Recipe) (Recipe, error) {
	r.nextID++
	recipe.ID = r.nextID
	recipe.IsActive = true
	r.recipes[recipe.ID] = recipe
	return recipe, nil
}

func (r *memoryRepo) Update(ctx context.Context, userID, id int64, recipe Recipe) error {
	if _, ok := r.recipes[id]; !ok {
		return ErrRecipeNotFound
	}
	recipe.ID = id
	recipe.UserID = userID
	r.recipes[id] = recipe
	return nil
}

func (r *memoryRepo) Deactivate(ctx context.Context, userID, id int64) error {
	rec, ok := r.recipes[id]
	if !ok || rec.UserID != userID {
		return ErrRecipeNotFound
	}
	rec.IsActive = false
	r.recipes[id] = rec
	return nil
}

func (r *memoryRepo) ListCostedItems(ctx context.Context, userID, recipeID int64) ([]HppItem, error) {
	items := r.costed[recipeID]
	out := make([]HppItem, len(items))
	for i, item := range items {
		item.TotalCost = item.Quantity * item.UnitPrice
		out[i] = item
	}
	return out, nil
}

func TestCalculateHpp(t *testing.T) {
	repo := newMemoryRepo()
	repo.recipes[1] = Recipe{ID: 1, UserID: 1, Name: "Nasi Goreng", Servings: 10, LaborCost: 5000, OverheadCost: 3000}
	repo.costed[1] = []HppItem{
		{IngredientID: 10, IngredientName: "Beras", Quantity: 2, Unit: "kg", UnitPrice: 12000},
		{IngredientID: 11, IngredientName: "Telur", Quantity: 10, Unit: "butir", UnitPrice: 2000},
	}

	svc := NewService(repo)
	hpp, err := svc.CalculateHpp(context.Background(), 1, 1, 0)
	require.NoError(t, err)

	// 2*12000 + 10*2000 = 44000 material, plus labor and overhead.
	require.InDelta(t, 44000.0, hpp.MaterialCost, 0.0001)
	require.InDelta(t, 52000.0, hpp.TotalHpp, 0.0001)
	require.InDelta(t, 5200.0, hpp.HppPerServing, 0.0001)
	require.InDelta(t, DefaultMarginPct, hpp.MarginPct, 0.0001)
	require.InDelta(t, 6760.0, hpp.SuggestedPrice, 0.0001)
	require.Len(t, hpp.Items, 2)
}

func TestCalculateHppCustomMargin(t *testing.T) {
	repo := newMemoryRepo()
	repo.recipes[1] = Recipe{ID: 1, UserID: 1, Name: "Es Teh", Servings: 1}
	repo.costed[1] = []HppItem{{IngredientID: 10, IngredientName: "Teh", Quantity: 1, Unit: "sachet", UnitPrice: 1000}}

	svc := NewService(repo)
	hpp, err := svc.CalculateHpp(context.Background(), 1, 1, 50)
	require.NoError(t, err)
	require.InDelta(t, 1000.0, hpp.TotalHpp, 0.0001)
	require.InDelta(t, 1500.0, hpp.SuggestedPrice, 0.0001)
}

func TestCalculateHppTracksCurrentPrices(t *testing.T) {
	repo := newMemoryRepo()
	repo.recipes[1] = Recipe{ID: 1, UserID: 1, Name: "Roti", Servings: 1}
	repo.costed[1] = []HppItem{{IngredientID: 10, IngredientName: "Tepung", Quantity: 2, Unit: "kg", UnitPrice: 10000}}

	svc := NewService(repo)
	first, err := svc.CalculateHpp(context.Background(), 1, 1, 0)
	require.NoError(t, err)
	require.InDelta(t, 20000.0, first.MaterialCost, 0.0001)

	// A purchase moved the ingredient's weighted average cost.
	repo.costed[1][0].UnitPrice = 11500

	second, err := svc.CalculateHpp(context.Background(), 1, 1, 0)
	require.NoError(t, err)
	require.InDelta(t, 23000.0, second.MaterialCost, 0.0001)
}

func TestCalculateHppUnknownRecipe(t *testing.T) {
	svc := NewService(newMemoryRepo())
	_, err := svc.CalculateHpp(context.Background(), 1, 99, 0)
	require.ErrorIs(t, err, ErrRecipeNotFound)
}

func TestCreateValidation(t *testing.T) {
	svc := NewService(newMemoryRepo())

	_, err := svc.Create(context.Background(), Recipe{UserID: 1, Name: "  "})
	require.Error(t, err)

	_, err = svc.Create(context.Background(), Recipe{UserID: 1, Name: "Bakso", Items: []RecipeItem{{IngredientID: 10, Quantity: 0}}})
	require.Error(t, err)

	created, err := svc.Create(context.Background(), Recipe{UserID: 1, Name: "Bakso", Items: []RecipeItem{{IngredientID: 10, Quantity: 0.5, Unit: "kg"}}})
	require.NoError(t, err)
	require.Equal(t, 1, created.Servings)
	require.True(t, created.IsActive)
}
