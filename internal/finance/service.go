package finance

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/heytrack/heytrack/internal/shared"
)

// RepositoryPort abstracts persistence for the sync and reporting service.
type RepositoryPort interface {
	InsertRecord(ctx context.Context, rec Record) (int64, error)
	DeleteRecord(ctx context.Context, userID, recordID int64) error
	GetRecord(ctx context.Context, userID, recordID int64) (Record, error)
	ListRecords(ctx context.Context, userID int64, filter RecordFilter) ([]Record, int, error)
	Summarize(ctx context.Context, userID int64, from, to time.Time) (Summary, error)

	GetOrderLink(ctx context.Context, orderID int64) (OrderLink, error)
	LinkOrderRecord(ctx context.Context, orderID, recordID int64) error
	ClearOrderRecord(ctx context.Context, orderID int64) error
	ListUnsyncedDeliveredOrders(ctx context.Context) ([]OrderLink, error)

	GetPurchaseLink(ctx context.Context, purchaseID int64) (PurchaseLink, error)
	LinkPurchaseExpense(ctx context.Context, purchaseID, recordID int64) error
	ListUnsyncedPurchases(ctx context.Context) ([]PurchaseLink, error)
}

// AuditPort abstracts audit logging functionality.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// MetricsPort records sync outcomes.
type MetricsPort interface {
	ObserveSync(kind, result string)
}

// Service owns the financial ledger and keeps it aligned with orders and
// ingredient purchases.
type Service struct {
	repo    RepositoryPort
	audit   AuditPort
	metrics MetricsPort
	logger  *slog.Logger
}

// NewService builds Service.
func NewService(repo RepositoryPort, audit AuditPort, metrics MetricsPort, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, audit: audit, metrics: metrics, logger: logger}
}

// IncomeDate picks the effective date of an order income record: delivery
// date first, then order date, then today.
func IncomeDate(link OrderLink) time.Time {
	if link.DeliveryDate != nil && !link.DeliveryDate.IsZero() {
		return *link.DeliveryDate
	}
	if !link.OrderDate.IsZero() {
		return link.OrderDate
	}
	return time.Now()
}

// NewOrderIncome builds the income record for a delivered order.
func NewOrderIncome(link OrderLink) Record {
	return Record{
		UserID:      link.UserID,
		Type:        RecordIncome,
		Category:    CategoryRevenue,
		Amount:      link.TotalAmount,
		Date:        IncomeDate(link),
		Reference:   OrderReference(link.OrderNo, link.CustomerName),
		Description: OrderIncomeDescription(link.OrderNo, link.TotalAmount),
	}
}

// NewPurchaseExpense builds the expense record for an ingredient purchase.
func NewPurchaseExpense(link PurchaseLink) Record {
	date := link.PurchaseDate
	if date.IsZero() {
		date = time.Now()
	}
	return Record{
		UserID:      link.UserID,
		Type:        RecordExpense,
		Category:    CategoryIngredientPurchase,
		Amount:      link.TotalPrice,
		Date:        date,
		Reference:   fmt.Sprintf("Purchase #%d", link.PurchaseID),
		Description: PurchaseExpenseDescription(link.IngredientName, link.Quantity, link.Unit, link.Supplier),
	}
}

// CreateIncomeFromOrder records revenue for a delivered order. The call is
// idempotent: an order already linked to a record returns nil without error.
// When linking fails the freshly inserted record is deleted again so no
// orphan revenue survives.
func (s *Service) CreateIncomeFromOrder(ctx context.Context, orderID int64) (*Record, error) {
	link, err := s.repo.GetOrderLink(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if link.FinancialRecordID != nil {
		return nil, nil
	}
	if link.TotalAmount <= 0 {
		return nil, nil
	}

	rec := NewOrderIncome(link)
	recordID, err := s.repo.InsertRecord(ctx, rec)
	if err != nil {
		s.observe("order", "failed")
		return nil, fmt.Errorf("finance: insert income: %w", err)
	}
	if err := s.repo.LinkOrderRecord(ctx, orderID, recordID); err != nil {
		// Kompensasi: hapus catatan yang baru dibuat agar tidak yatim.
		if delErr := s.repo.DeleteRecord(ctx, link.UserID, recordID); delErr != nil {
			s.logger.Error("orphan income record left behind", "record_id", recordID, "error", delErr)
		}
		s.observe("order", "failed")
		return nil, fmt.Errorf("finance: link order record: %w", err)
	}
	rec.ID = recordID

	s.observe("order", "synced")
	s.recordAudit(ctx, link.UserID, "finance.income_created", recordID, map[string]any{
		"order_id": orderID,
		"amount":   rec.Amount,
	})
	return &rec, nil
}

// CreateExpenseFromPurchase records an expense for an ingredient purchase
// that is not linked yet. Idempotent in the same way as order income.
func (s *Service) CreateExpenseFromPurchase(ctx context.Context, purchaseID int64) (*Record, error) {
	link, err := s.repo.GetPurchaseLink(ctx, purchaseID)
	if err != nil {
		return nil, err
	}
	if link.ExpenseID != nil {
		return nil, nil
	}
	if link.TotalPrice <= 0 {
		return nil, nil
	}

	rec := NewPurchaseExpense(link)
	recordID, err := s.repo.InsertRecord(ctx, rec)
	if err != nil {
		s.observe("purchase", "failed")
		return nil, fmt.Errorf("finance: insert expense: %w", err)
	}
	if err := s.repo.LinkPurchaseExpense(ctx, purchaseID, recordID); err != nil {
		if delErr := s.repo.DeleteRecord(ctx, link.UserID, recordID); delErr != nil {
			s.logger.Error("orphan expense record left behind", "record_id", recordID, "error", delErr)
		}
		s.observe("purchase", "failed")
		return nil, fmt.Errorf("finance: link purchase expense: %w", err)
	}
	rec.ID = recordID

	s.observe("purchase", "synced")
	s.recordAudit(ctx, link.UserID, "finance.expense_created", recordID, map[string]any{
		"purchase_id": purchaseID,
		"amount":      rec.Amount,
	})
	return &rec, nil
}

// ReverseOrderIncome deletes the income record linked to an order. Returns
// false when the order has no linked record.
func (s *Service) ReverseOrderIncome(ctx context.Context, orderID int64) (bool, error) {
	link, err := s.repo.GetOrderLink(ctx, orderID)
	if err != nil {
		return false, err
	}
	if link.FinancialRecordID == nil {
		return false, nil
	}
	if err := s.repo.DeleteRecord(ctx, link.UserID, *link.FinancialRecordID); err != nil {
		return false, fmt.Errorf("finance: delete income: %w", err)
	}
	if err := s.repo.ClearOrderRecord(ctx, orderID); err != nil {
		return false, fmt.Errorf("finance: clear order link: %w", err)
	}
	s.recordAudit(ctx, link.UserID, "finance.income_reversed", *link.FinancialRecordID, map[string]any{
		"order_id": orderID,
	})
	return true, nil
}

// AutoSyncAll reconciles every delivered order and every purchase that is
// missing its ledger counterpart. Individual failures are collected, not
// fatal; only listing errors abort the pass.
func (s *Service) AutoSyncAll(ctx context.Context) (SyncReport, error) {
	report := SyncReport{}

	orders, err := s.repo.ListUnsyncedDeliveredOrders(ctx)
	if err != nil {
		return report, fmt.Errorf("finance: list unsynced orders: %w", err)
	}
	for _, link := range orders {
		if _, err := s.CreateIncomeFromOrder(ctx, link.OrderID); err != nil {
			report.Failed++
			report.Errors = append(report.Errors, fmt.Sprintf("order %d: %v", link.OrderID, err))
			s.logger.Warn("order income sync failed", "order_id", link.OrderID, "error", err)
			continue
		}
		report.OrdersSynced++
	}

	purchases, err := s.repo.ListUnsyncedPurchases(ctx)
	if err != nil {
		return report, fmt.Errorf("finance: list unsynced purchases: %w", err)
	}
	for _, link := range purchases {
		if _, err := s.CreateExpenseFromPurchase(ctx, link.PurchaseID); err != nil {
			report.Failed++
			report.Errors = append(report.Errors, fmt.Sprintf("purchase %d: %v", link.PurchaseID, err))
			s.logger.Warn("purchase expense sync failed", "purchase_id", link.PurchaseID, "error", err)
			continue
		}
		report.PurchasesSynced++
	}

	return report, nil
}

// ListRecords lists ledger entries for the user.
func (s *Service) ListRecords(ctx context.Context, userID int64, filter RecordFilter) ([]Record, int, error) {
	return s.repo.ListRecords(ctx, userID, filter)
}

// Summarize aggregates the ledger over a period.
func (s *Service) Summarize(ctx context.Context, userID int64, from, to time.Time) (Summary, error) {
	return s.repo.Summarize(ctx, userID, from, to)
}

func (s *Service) observe(kind, result string) {
	if s.metrics != nil {
		s.metrics.ObserveSync(kind, result)
	}
}

func (s *Service) recordAudit(ctx context.Context, actorID int64, action string, recordID int64, meta map[string]any) {
	if s.audit == nil {
		return
	}
	entry := shared.AuditLog{
		ActorID:  actorID,
		Action:   action,
		Entity:   "financial_record",
		EntityID: strconv.FormatInt(recordID, 10),
		Meta:     meta,
		At:       time.Now(),
	}
	if err := s.audit.Record(ctx, entry); err != nil {
		s.logger.Warn("audit record failed", "action", action, "error", err)
	}
}
