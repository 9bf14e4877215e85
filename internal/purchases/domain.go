package purchases

import (
	"errors"
	"time"
)

// Purchase models one ingredient purchase.
type Purchase struct {
	ID             int64     `json:"id"`
	UserID         int64     `json:"user_id"`
	IngredientID   int64     `json:"ingredient_id"`
	IngredientName string    `json:"ingredient_name,omitempty"`
	Unit           string    `json:"unit,omitempty"`
	Supplier       string    `json:"supplier,omitempty"`
	Quantity       float64   `json:"quantity"`
	UnitPrice      float64   `json:"unit_price"`
	TotalPrice     float64   `json:"total_price"`
	PurchaseDate   time.Time `json:"purchase_date"`
	Notes          string    `json:"notes,omitempty"`
	ExpenseID      *int64    `json:"expense_id,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

// ListFilter filters purchase listings.
type ListFilter struct {
	IngredientID int64
	From         time.Time
	To           time.Time
	Page         int
	PerPage      int
}

// ErrPurchaseNotFound indicates a missing or foreign purchase.
var ErrPurchaseNotFound = errors.New("purchases: purchase not found")

// ErrIngredientNotFound indicates the purchased ingredient does not exist.
var ErrIngredientNotFound = errors.New("purchases: ingredient not found")

// ErrStockConsumed indicates the purchased stock was already used up, so
// the purchase cannot be reversed.
var ErrStockConsumed = errors.New("purchases: stock already consumed, cannot reverse")
