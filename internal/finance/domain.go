package finance

import (
	"errors"
	"fmt"
	"time"
)

// RecordType splits the ledger into money in and money out.
type RecordType string

const (
	RecordIncome  RecordType = "INCOME"
	RecordExpense RecordType = "EXPENSE"
)

// Categories used by the automatic synchronization.
const (
	CategoryRevenue            = "Revenue"
	CategoryIngredientPurchase = "Pembelian Bahan Baku"
)

// Record is one financial ledger entry.
type Record struct {
	ID          int64      `json:"id"`
	UserID      int64      `json:"user_id"`
	Type        RecordType `json:"type"`
	Category    string     `json:"category"`
	Amount      float64    `json:"amount"`
	Date        time.Time  `json:"date"`
	Reference   string     `json:"reference,omitempty"`
	Description string     `json:"description,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

// OrderLink is the financial view of an order used by the sync service.
type OrderLink struct {
	OrderID           int64
	UserID            int64
	OrderNo           string
	CustomerName      string
	TotalAmount       float64
	OrderDate         time.Time
	DeliveryDate      *time.Time
	FinancialRecordID *int64
}

// PurchaseLink is the financial view of an ingredient purchase.
type PurchaseLink struct {
	PurchaseID     int64
	UserID         int64
	IngredientID   int64
	IngredientName string
	Unit           string
	Supplier       string
	Quantity       float64
	TotalPrice     float64
	PurchaseDate   time.Time
	ExpenseID      *int64
}

// Summary aggregates the ledger over a period.
type Summary struct {
	TotalIncome  float64 `json:"total_income"`
	TotalExpense float64 `json:"total_expense"`
	Net          float64 `json:"net"`
	IncomeCount  int     `json:"income_count"`
	ExpenseCount int     `json:"expense_count"`
}

// SyncReport describes the outcome of a reconciliation pass.
type SyncReport struct {
	OrdersSynced    int      `json:"orders_synced"`
	PurchasesSynced int      `json:"purchases_synced"`
	Failed          int      `json:"failed"`
	Errors          []string `json:"errors,omitempty"`
}

// RecordFilter filters ledger listings.
type RecordFilter struct {
	Type     RecordType
	Category string
	From     time.Time
	To       time.Time
	Page     int
	PerPage  int
}

// OrderReference builds the human readable order reference, for example
// "Order #ORD-20250101-001 - Budi".
func OrderReference(orderNo, customerName string) string {
	return fmt.Sprintf("Order #%s - %s", orderNo, customerName)
}

// OrderIncomeDescription builds the Indonesian income description.
func OrderIncomeDescription(orderNo string, amount float64) string {
	return fmt.Sprintf("Pendapatan dari pesanan #%s sebesar %s", orderNo, FormatIDR(amount))
}

// PurchaseExpenseDescription builds the Indonesian expense description.
func PurchaseExpenseDescription(name string, qty float64, unit, supplier string) string {
	desc := fmt.Sprintf("Pembelian %s (%s %s)", name, trimQty(qty), unit)
	if supplier != "" {
		desc += " dari " + supplier
	}
	return desc
}

func trimQty(qty float64) string {
	s := fmt.Sprintf("%.3f", qty)
	for len(s) > 0 && s[len(s)-1] == '0' {
		s = s[:len(s)-1]
	}
	if len(s) > 0 && s[len(s)-1] == '.' {
		s = s[:len(s)-1]
	}
	return s
}

// ErrRecordNotFound indicates a missing ledger row.
var ErrRecordNotFound = errors.New("finance: record not found")

// ErrOrderNotFound indicates a missing order during sync.
var ErrOrderNotFound = errors.New("finance: order not found")

// ErrPurchaseNotFound indicates a missing purchase during sync.
var ErrPurchaseNotFound = errors.New("finance: purchase not found")
