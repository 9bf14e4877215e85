package recipes

import (
	"time"
)

// Recipe is a sellable product built from ingredients.
type Recipe struct {
	ID           int64        `json:"id"`
	UserID       int64        `json:"user_id"`
	Name         string       `json:"name"`
	Category     string       `json:"category"`
	Servings     int          `json:"servings"`
	LaborCost    float64      `json:"labor_cost"`
	OverheadCost float64      `json:"overhead_cost"`
	SellingPrice float64      `json:"selling_price"`
	IsActive     bool         `json:"is_active"`
	Items        []RecipeItem `json:"items,omitempty"`
	CreatedAt    time.Time    `json:"created_at"`
	UpdatedAt    time.Time    `json:"updated_at"`
}

// RecipeItem is one ingredient line of a recipe.
type RecipeItem struct {
	ID             int64   `json:"id"`
	RecipeID       int64   `json:"recipe_id"`
	IngredientID   int64   `json:"ingredient_id"`
	IngredientName string  `json:"ingredient_name,omitempty"`
	Quantity       float64 `json:"quantity"`
	Unit           string  `json:"unit"`
}

// HppItem is one costed ingredient line of an HPP breakdown.
type HppItem struct {
	IngredientID   int64   `json:"ingredient_id"`
	IngredientName string  `json:"ingredient_name"`
	Quantity       float64 `json:"quantity"`
	Unit           string  `json:"unit"`
	UnitPrice      float64 `json:"unit_price"`
	TotalCost      float64 `json:"total_cost"`
}

// HppBreakdown is the cost-of-goods (harga pokok produksi) of one recipe,
// priced at the current weighted average cost of each ingredient.
type HppBreakdown struct {
	RecipeID       int64     `json:"recipe_id"`
	RecipeName     string    `json:"recipe_name"`
	Servings       int       `json:"servings"`
	MaterialCost   float64   `json:"material_cost"`
	LaborCost      float64   `json:"labor_cost"`
	OverheadCost   float64   `json:"overhead_cost"`
	TotalHpp       float64   `json:"total_hpp"`
	HppPerServing  float64   `json:"hpp_per_serving"`
	MarginPct      float64   `json:"margin_pct"`
	SuggestedPrice float64   `json:"suggested_price"`
	Items          []HppItem `json:"items"`
	CalculatedAt   time.Time `json:"calculated_at"`
}
