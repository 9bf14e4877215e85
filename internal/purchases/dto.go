package purchases

import "time"

type CreatePurchaseRequest struct {
	IngredientID int64      `json:"ingredient_id" validate:"required,gt=0"`
	Quantity     float64    `json:"quantity" validate:"required,gt=0"`
	UnitPrice    float64    `json:"unit_price" validate:"gte=0"`
	Supplier     string     `json:"supplier" validate:"max=200"`
	PurchaseDate *time.Time `json:"purchase_date,omitempty"`
	Notes        string     `json:"notes" validate:"max=1000"`
}
