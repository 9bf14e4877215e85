package inventory

type BatchWacRequest struct {
	IngredientIDs []int64 `json:"ingredient_ids" validate:"required,min=1,max=100,dive,gt=0"`
}

type AdjustmentRequest struct {
	IngredientID int64   `json:"ingredient_id" validate:"required,gt=0"`
	Quantity     float64 `json:"quantity" validate:"required"`
	UnitCost     float64 `json:"unit_cost" validate:"gte=0"`
	Note         string  `json:"note" validate:"max=500"`
}
