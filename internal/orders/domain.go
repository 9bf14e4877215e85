package orders

import (
	"errors"
	"time"
)

// Status enumerates the order lifecycle.
type Status string

const (
	StatusPending    Status = "PENDING"
	StatusConfirmed  Status = "CONFIRMED"
	StatusInProgress Status = "IN_PROGRESS"
	StatusReady      Status = "READY"
	StatusDelivered  Status = "DELIVERED"
	StatusCancelled  Status = "CANCELLED"
)

// validTransitions maps each status to the statuses reachable from it.
// A delivered order can still be cancelled (refund), which reverses its
// income record. CANCELLED is terminal.
var validTransitions = map[Status][]Status{
	StatusPending:    {StatusConfirmed, StatusCancelled},
	StatusConfirmed:  {StatusInProgress, StatusCancelled},
	StatusInProgress: {StatusReady, StatusCancelled},
	StatusReady:      {StatusDelivered, StatusCancelled},
	StatusDelivered:  {StatusCancelled},
	StatusCancelled:  {},
}

// Valid reports whether the value is a known status.
func (s Status) Valid() bool {
	_, ok := validTransitions[s]
	return ok
}

// Display returns the Indonesian label shown to users.
func (s Status) Display() string {
	switch s {
	case StatusPending:
		return "Menunggu Konfirmasi"
	case StatusConfirmed:
		return "Dikonfirmasi"
	case StatusInProgress:
		return "Sedang Diproses"
	case StatusReady:
		return "Siap Diantar"
	case StatusDelivered:
		return "Terkirim"
	case StatusCancelled:
		return "Dibatalkan"
	default:
		return string(s)
	}
}

// CanTransition reports whether from may move to to.
func CanTransition(from, to Status) bool {
	for _, next := range validTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// NextStatuses lists the statuses reachable from the given one.
func NextStatuses(from Status) []Status {
	next := validTransitions[from]
	out := make([]Status, len(next))
	copy(out, next)
	return out
}

// Order models a customer order.
type Order struct {
	ID                int64      `json:"id"`
	UserID            int64      `json:"user_id"`
	OrderNo           string     `json:"order_no"`
	CustomerName      string     `json:"customer_name"`
	CustomerPhone     string     `json:"customer_phone,omitempty"`
	Status            Status     `json:"status"`
	StatusDisplay     string     `json:"status_display"`
	TotalAmount       float64    `json:"total_amount"`
	OrderDate         time.Time  `json:"order_date"`
	DeliveryDate      *time.Time `json:"delivery_date,omitempty"`
	Notes             string     `json:"notes,omitempty"`
	FinancialRecordID *int64     `json:"financial_record_id,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

// StatusChange reports the outcome of a status transition.
type StatusChange struct {
	OrderID        int64     `json:"order_id"`
	From           Status    `json:"from"`
	To             Status    `json:"to"`
	IncomeRecordID *int64    `json:"income_record_id,omitempty"`
	IncomeReversed bool      `json:"income_reversed"`
	Amount         float64   `json:"amount"`
	ChangedAt      time.Time `json:"changed_at"`
}

// ListFilter filters order listings.
type ListFilter struct {
	Status  Status
	From    time.Time
	To      time.Time
	Search  string
	Page    int
	PerPage int
}

// ErrOrderNotFound indicates a missing or foreign order.
var ErrOrderNotFound = errors.New("orders: order not found")

// ErrInvalidStatus indicates an unknown status value.
var ErrInvalidStatus = errors.New("orders: invalid status")

// ErrInvalidTransition indicates a move the lifecycle does not allow.
var ErrInvalidTransition = errors.New("orders: invalid status transition")

// ErrOrderNotDeletable indicates the order is in a state that must be kept.
var ErrOrderNotDeletable = errors.New("orders: only pending or cancelled orders can be deleted")
