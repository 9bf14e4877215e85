package inventory

import (
	"errors"
	"time"
)

// LogType enumerates supported stock movements.
type LogType string

const (
	// LogTypePurchase marks inbound stock from an ingredient purchase.
	LogTypePurchase LogType = "PURCHASE"
	// LogTypeUsage marks stock consumed by production.
	LogTypeUsage LogType = "USAGE"
	// LogTypeAdjustment indicates manual corrections.
	LogTypeAdjustment LogType = "ADJUSTMENT"
)

// ChangeType tells whether a movement raised or lowered stock.
type ChangeType string

const (
	ChangeIncrease ChangeType = "increase"
	ChangeDecrease ChangeType = "decrease"
)

// StockLog models one entry of the ingredient stock ledger.
type StockLog struct {
	ID              int64      `json:"id"`
	UserID          int64      `json:"user_id"`
	IngredientID    int64      `json:"ingredient_id"`
	Type            LogType    `json:"type"`
	ChangeType      ChangeType `json:"change_type"`
	QuantityBefore  float64    `json:"quantity_before"`
	QuantityAfter   float64    `json:"quantity_after"`
	QuantityChanged float64    `json:"quantity_changed"`
	UnitPrice       float64    `json:"unit_price"`
	TotalPrice      float64    `json:"total_price"`
	ReferenceID     int64      `json:"reference_id,omitempty"`
	ReferenceType   string     `json:"reference_type,omitempty"`
	Note            string     `json:"note,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
}

// PurchaseEntry is a purchase-type ledger row used for cost averaging.
type PurchaseEntry struct {
	ID         int64
	Quantity   float64
	UnitPrice  float64
	TotalPrice float64
	CreatedAt  time.Time
}

// WacCalculation is the weighted average cost derived from purchase history.
type WacCalculation struct {
	IngredientID  int64     `json:"ingredient_id"`
	Wac           float64   `json:"wac"`
	TotalQuantity float64   `json:"total_quantity"`
	TotalValue    float64   `json:"total_value"`
	CalculatedAt  time.Time `json:"calculated_at"`
}

// WacUpdate reports the outcome of a recalculation for one ingredient.
// OldWac is the average before the latest purchase entry; OldPrice is the
// stored price the debounce compares against.
type WacUpdate struct {
	IngredientID int64   `json:"ingredient_id"`
	OldWac       float64 `json:"old_wac"`
	NewWac       float64 `json:"new_wac"`
	Delta        float64 `json:"delta"`
	OldPrice     float64 `json:"old_price"`
	ChangePct    float64 `json:"change_pct"`
	PriceUpdated bool    `json:"price_updated"`
}

// WacPoint is one step of the WAC time series.
type WacPoint struct {
	LogID        int64     `json:"log_id"`
	Date         time.Time `json:"date"`
	Quantity     float64   `json:"quantity"`
	UnitPrice    float64   `json:"unit_price"`
	RunningQty   float64   `json:"running_qty"`
	RunningValue float64   `json:"running_value"`
	Wac          float64   `json:"wac"`
}

// RecalcSummary aggregates the outcome of a bulk recalculation.
type RecalcSummary struct {
	Processed int      `json:"processed"`
	Updated   int      `json:"updated"`
	Failed    int      `json:"failed"`
	Errors    []string `json:"errors,omitempty"`
}

// AdjustmentInput describes a manual stock correction.
type AdjustmentInput struct {
	IngredientID int64
	ActorID      int64
	Qty          float64
	UnitCost     float64
	Note         string
}

// StockLogFilter filters ledger listings.
type StockLogFilter struct {
	UserID       int64
	IngredientID int64
	Type         LogType
	From         time.Time
	To           time.Time
	Limit        int
}

// IngredientRef identifies an ingredient together with its owner.
type IngredientRef struct {
	UserID       int64
	IngredientID int64
}

// IngredientRow is the costing view of an ingredient inside a transaction.
type IngredientRow struct {
	ID           int64
	Name         string
	Unit         string
	PricePerUnit float64
	CurrentStock float64
	MinStock     float64
}

// ErrNegativeStock triggered when a movement would result in negative qty.
var ErrNegativeStock = errors.New("inventory: negative stock not allowed")

// ErrInvalidQuantity indicates invalid qty.
var ErrInvalidQuantity = errors.New("inventory: quantity must be non zero")

// ErrInvalidUnitCost indicates invalid cost value.
var ErrInvalidUnitCost = errors.New("inventory: unit cost must be >= 0")

// ErrIngredientNotFound indicates a missing or foreign ingredient row.
var ErrIngredientNotFound = errors.New("inventory: ingredient not found")
