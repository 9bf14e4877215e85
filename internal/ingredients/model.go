package ingredients

import (
	"time"
)

// Ingredient represents a raw material tracked for stock and costing.
type Ingredient struct {
	ID           int64     `json:"id"`
	UserID       int64     `json:"user_id"`
	Name         string    `json:"name"`
	Category     string    `json:"category"`
	Unit         string    `json:"unit"`
	PricePerUnit float64   `json:"price_per_unit"`
	CurrentStock float64   `json:"current_stock"`
	MinStock     float64   `json:"min_stock"`
	Supplier     string    `json:"supplier"`
	IsActive     bool      `json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// LowOnStock reports whether the ingredient is at or below its minimum level.
func (i Ingredient) LowOnStock() bool {
	return i.CurrentStock <= i.MinStock
}
