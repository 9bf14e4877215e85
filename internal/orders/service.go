package orders

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/heytrack/heytrack/internal/automation"
	"github.com/heytrack/heytrack/internal/finance"
	"github.com/heytrack/heytrack/internal/shared"
)

// RepositoryPort abstracts repository usage for service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	List(ctx context.Context, userID int64, filter ListFilter) ([]Order, int, error)
	Get(ctx context.Context, userID, orderID int64) (Order, error)
	Delete(ctx context.Context, userID, orderID int64) error
}

// AuditPort abstracts audit logging functionality.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// WorkflowPort dispatches automation events after commit.
type WorkflowPort interface {
	TriggerAll(ctx context.Context, names []string, userID int64, entityType string, entityID int64, message string, meta map[string]any)
}

// Service coordinates the order lifecycle and its financial side effects.
type Service struct {
	repo      RepositoryPort
	audit     AuditPort
	workflows WorkflowPort
	logger    *slog.Logger
}

// NewService builds Service.
func NewService(repo RepositoryPort, audit AuditPort, workflows WorkflowPort, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, audit: audit, workflows: workflows, logger: logger}
}

// Create registers a new order with a generated order number like
// ORD-20250101-003.
func (s *Service) Create(ctx context.Context, userID int64, req CreateOrderRequest) (Order, error) {
	orderDate := time.Now()
	if req.OrderDate != nil && !req.OrderDate.IsZero() {
		orderDate = *req.OrderDate
	}
	order := Order{
		UserID:        userID,
		CustomerName:  req.CustomerName,
		CustomerPhone: req.CustomerPhone,
		Status:        StatusPending,
		TotalAmount:   req.TotalAmount,
		OrderDate:     orderDate,
		DeliveryDate:  req.DeliveryDate,
		Notes:         req.Notes,
	}
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		count, err := tx.CountOrdersOnDate(ctx, userID, orderDate)
		if err != nil {
			return err
		}
		order.OrderNo = fmt.Sprintf("ORD-%s-%03d", orderDate.Format("20060102"), count+1)
		id, err := tx.InsertOrder(ctx, order)
		if err != nil {
			return err
		}
		order.ID = id
		return nil
	})
	if err != nil {
		return Order{}, err
	}
	order.StatusDisplay = order.Status.Display()
	s.recordAudit(ctx, userID, "orders.created", order.ID, map[string]any{"order_no": order.OrderNo})
	return order, nil
}

// UpdateStatus moves an order through its lifecycle. The transition, the
// income record for a delivery, and the reversal on cancellation all commit
// in one transaction.
func (s *Service) UpdateStatus(ctx context.Context, userID, orderID int64, newStatus Status, notes string) (StatusChange, error) {
	if !newStatus.Valid() {
		return StatusChange{}, ErrInvalidStatus
	}
	var change StatusChange
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		order, err := tx.GetOrderForUpdate(ctx, userID, orderID)
		if err != nil {
			return err
		}
		if !CanTransition(order.Status, newStatus) {
			return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, order.Status, newStatus)
		}

		now := time.Now()
		change = StatusChange{
			OrderID:   orderID,
			From:      order.Status,
			To:        newStatus,
			Amount:    order.TotalAmount,
			ChangedAt: now,
		}
		recordID := order.FinancialRecordID
		var deliveryDate *time.Time

		if newStatus == StatusDelivered {
			if order.DeliveryDate == nil {
				deliveryDate = &now
			}
			if order.FinancialRecordID == nil && order.TotalAmount > 0 {
				link := finance.OrderLink{
					OrderID:      order.ID,
					UserID:       order.UserID,
					OrderNo:      order.OrderNo,
					CustomerName: order.CustomerName,
					TotalAmount:  order.TotalAmount,
					OrderDate:    order.OrderDate,
					DeliveryDate: order.DeliveryDate,
				}
				if deliveryDate != nil {
					link.DeliveryDate = deliveryDate
				}
				id, err := tx.InsertIncomeRecord(ctx, finance.NewOrderIncome(link))
				if err != nil {
					return fmt.Errorf("orders: insert income: %w", err)
				}
				recordID = &id
				change.IncomeRecordID = &id
			}
		}

		// Pembatalan setelah terkirim menarik kembali pendapatannya.
		if newStatus == StatusCancelled && order.FinancialRecordID != nil {
			if err := tx.DeleteIncomeRecord(ctx, userID, *order.FinancialRecordID); err != nil {
				return fmt.Errorf("orders: reverse income: %w", err)
			}
			recordID = nil
			change.IncomeReversed = true
		}

		return tx.UpdateOrderStatus(ctx, orderID, newStatus, deliveryDate, recordID, notes)
	})
	if err != nil {
		return StatusChange{}, err
	}

	s.recordAudit(ctx, userID, "orders.status_changed", orderID, map[string]any{
		"from":            string(change.From),
		"to":              string(change.To),
		"income_reversed": change.IncomeReversed,
	})
	if s.workflows != nil {
		message := fmt.Sprintf("Status pesanan berubah menjadi %s", newStatus.Display())
		s.workflows.TriggerAll(ctx, automation.WorkflowsForStatus(string(newStatus)), userID, "order", orderID, message, map[string]any{
			"from":   string(change.From),
			"to":     string(change.To),
			"amount": change.Amount,
		})
	}
	return change, nil
}

// Update edits order fields that do not affect the lifecycle.
func (s *Service) Update(ctx context.Context, userID, orderID int64, req UpdateOrderRequest) (Order, error) {
	var updated Order
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		order, err := tx.GetOrderForUpdate(ctx, userID, orderID)
		if err != nil {
			return err
		}
		if req.CustomerName != nil {
			order.CustomerName = *req.CustomerName
		}
		if req.CustomerPhone != nil {
			order.CustomerPhone = *req.CustomerPhone
		}
		if req.TotalAmount != nil {
			order.TotalAmount = *req.TotalAmount
		}
		if req.DeliveryDate != nil {
			order.DeliveryDate = req.DeliveryDate
		}
		if req.Notes != nil {
			order.Notes = *req.Notes
		}
		if err := tx.UpdateOrderFields(ctx, order); err != nil {
			return err
		}
		updated = order
		return nil
	})
	if err != nil {
		return Order{}, err
	}
	updated.StatusDisplay = updated.Status.Display()
	return updated, nil
}

// List lists orders with filters.
func (s *Service) List(ctx context.Context, userID int64, filter ListFilter) ([]Order, int, error) {
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, 0, ErrInvalidStatus
	}
	return s.repo.List(ctx, userID, filter)
}

// Get fetches a single order.
func (s *Service) Get(ctx context.Context, userID, orderID int64) (Order, error) {
	return s.repo.Get(ctx, userID, orderID)
}

// Delete removes an order that never produced financial state.
func (s *Service) Delete(ctx context.Context, userID, orderID int64) error {
	order, err := s.repo.Get(ctx, userID, orderID)
	if err != nil {
		return err
	}
	if order.Status != StatusPending && order.Status != StatusCancelled {
		return ErrOrderNotDeletable
	}
	if err := s.repo.Delete(ctx, userID, orderID); err != nil {
		return err
	}
	s.recordAudit(ctx, userID, "orders.deleted", orderID, map[string]any{"order_no": order.OrderNo})
	return nil
}

func (s *Service) recordAudit(ctx context.Context, actorID int64, action string, orderID int64, meta map[string]any) {
	if s.audit == nil {
		return
	}
	entry := shared.AuditLog{
		ActorID:  actorID,
		Action:   action,
		Entity:   "order",
		EntityID: strconv.FormatInt(orderID, 10),
		Meta:     meta,
		At:       time.Now(),
	}
	if err := s.audit.Record(ctx, entry); err != nil {
		s.logger.Warn("audit record failed", "action", action, "error", err)
	}
}
