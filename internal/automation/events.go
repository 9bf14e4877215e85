package automation

import (
	"time"

	"github.com/google/uuid"
)

// Workflow event names emitted by the order and purchase flows.
const (
	EventOrderCompleted         = "order.completed"
	EventOrderCancelled         = "order.cancelled"
	EventOrderStatusChanged     = "order.status_changed"
	EventIngredientPriceChanged = "ingredient.price_changed"
	EventLowStock               = "ingredient.low_stock"
)

// Event is a workflow trigger emitted after a state change committed.
type Event struct {
	ID         uuid.UUID      `json:"id"`
	Name       string         `json:"name"`
	UserID     int64          `json:"user_id"`
	EntityType string         `json:"entity_type"`
	EntityID   int64          `json:"entity_id"`
	Message    string         `json:"message"`
	Meta       map[string]any `json:"meta,omitempty"`
	OccurredAt time.Time      `json:"occurred_at"`
}

// NewEvent builds an Event with a fresh id and timestamp.
func NewEvent(name string, userID int64, entityType string, entityID int64, message string, meta map[string]any) Event {
	return Event{
		ID:         uuid.New(),
		Name:       name,
		UserID:     userID,
		EntityType: entityType,
		EntityID:   entityID,
		Message:    message,
		Meta:       meta,
		OccurredAt: time.Now(),
	}
}

// WorkflowsForStatus names the workflows triggered by an order status change.
func WorkflowsForStatus(newStatus string) []string {
	switch newStatus {
	case "DELIVERED":
		return []string{EventOrderCompleted, EventOrderStatusChanged}
	case "CANCELLED":
		return []string{EventOrderCancelled, EventOrderStatusChanged}
	default:
		return []string{EventOrderStatusChanged}
	}
}
