package purchases

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/heytrack/heytrack/internal/automation"
	"github.com/heytrack/heytrack/internal/finance"
	"github.com/heytrack/heytrack/internal/inventory"
	"github.com/heytrack/heytrack/internal/shared"
)

// RepositoryPort abstracts repository usage for service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	List(ctx context.Context, userID int64, filter ListFilter) ([]Purchase, int, error)
	Get(ctx context.Context, userID, purchaseID int64) (Purchase, error)
}

// AuditPort abstracts audit logging functionality.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// WacPort recalculates the weighted average cost after the purchase
// committed. A failure here never undoes the purchase.
type WacPort interface {
	UpdateWACOnPurchase(ctx context.Context, userID, ingredientID int64) (*inventory.WacUpdate, error)
}

// WorkflowPort dispatches automation events after commit.
type WorkflowPort interface {
	Trigger(ctx context.Context, evt automation.Event)
}

// Service records ingredient purchases together with their expense and
// stock side effects.
type Service struct {
	repo      RepositoryPort
	audit     AuditPort
	wac       WacPort
	workflows WorkflowPort
	logger    *slog.Logger
}

// NewService builds Service.
func NewService(repo RepositoryPort, audit AuditPort, wac WacPort, workflows WorkflowPort, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, audit: audit, wac: wac, workflows: workflows, logger: logger}
}

// Create records a purchase. The expense record, the purchase row, the
// stock increment and the ledger entry commit in one transaction; the WAC
// recalculation runs after commit, best-effort.
func (s *Service) Create(ctx context.Context, userID int64, req CreatePurchaseRequest) (Purchase, error) {
	purchaseDate := time.Now()
	if req.PurchaseDate != nil && !req.PurchaseDate.IsZero() {
		purchaseDate = *req.PurchaseDate
	}
	totalPrice := req.Quantity * req.UnitPrice

	var created Purchase
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		ing, err := tx.GetIngredientForUpdate(ctx, userID, req.IngredientID)
		if err != nil {
			return err
		}

		expense := finance.NewPurchaseExpense(finance.PurchaseLink{
			UserID:         userID,
			IngredientID:   req.IngredientID,
			IngredientName: ing.Name,
			Unit:           ing.Unit,
			Supplier:       req.Supplier,
			Quantity:       req.Quantity,
			TotalPrice:     totalPrice,
			PurchaseDate:   purchaseDate,
		})
		expenseID, err := tx.InsertExpenseRecord(ctx, expense)
		if err != nil {
			return fmt.Errorf("purchases: insert expense: %w", err)
		}

		created = Purchase{
			UserID:         userID,
			IngredientID:   req.IngredientID,
			IngredientName: ing.Name,
			Unit:           ing.Unit,
			Supplier:       req.Supplier,
			Quantity:       req.Quantity,
			UnitPrice:      req.UnitPrice,
			TotalPrice:     totalPrice,
			PurchaseDate:   purchaseDate,
			Notes:          req.Notes,
			ExpenseID:      &expenseID,
		}
		purchaseID, err := tx.InsertPurchase(ctx, created)
		if err != nil {
			return fmt.Errorf("purchases: insert purchase: %w", err)
		}
		created.ID = purchaseID

		before, after, err := tx.AddStock(ctx, userID, req.IngredientID, req.Quantity)
		if err != nil {
			return fmt.Errorf("purchases: add stock: %w", err)
		}

		_, err = tx.InsertStockLog(ctx, inventory.StockLog{
			UserID:          userID,
			IngredientID:    req.IngredientID,
			Type:            inventory.LogTypePurchase,
			ChangeType:      inventory.ChangeIncrease,
			QuantityBefore:  before,
			QuantityAfter:   after,
			QuantityChanged: req.Quantity,
			UnitPrice:       req.UnitPrice,
			TotalPrice:      totalPrice,
			ReferenceID:     purchaseID,
			ReferenceType:   "ingredient_purchase",
			Note:            req.Notes,
		})
		if err != nil {
			return fmt.Errorf("purchases: insert stock log: %w", err)
		}
		return nil
	})
	if err != nil {
		return Purchase{}, err
	}

	s.recordAudit(ctx, userID, "purchases.created", created.ID, map[string]any{
		"ingredient_id": created.IngredientID,
		"total_price":   created.TotalPrice,
	})
	s.recalculateWac(ctx, userID, created.IngredientID)
	return created, nil
}

// Delete reverses a purchase: the stock it added is taken back and the
// linked expense record removed. Fails when reversing would drive stock
// negative, meaning the stock was already consumed.
func (s *Service) Delete(ctx context.Context, userID, purchaseID int64) error {
	var ingredientID int64
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		p, err := tx.GetPurchaseForUpdate(ctx, userID, purchaseID)
		if err != nil {
			return err
		}
		ingredientID = p.IngredientID

		ing, err := tx.GetIngredientForUpdate(ctx, userID, p.IngredientID)
		if err != nil {
			return err
		}
		if ing.CurrentStock-p.Quantity < -0.0001 {
			return ErrStockConsumed
		}

		before, after, err := tx.AddStock(ctx, userID, p.IngredientID, -p.Quantity)
		if err != nil {
			return err
		}
		// PURCHASE type with negated amounts so the WAC replay drops this
		// purchase from the cost basis.
		_, err = tx.InsertStockLog(ctx, inventory.StockLog{
			UserID:          userID,
			IngredientID:    p.IngredientID,
			Type:            inventory.LogTypePurchase,
			ChangeType:      inventory.ChangeDecrease,
			QuantityBefore:  before,
			QuantityAfter:   after,
			QuantityChanged: -p.Quantity,
			UnitPrice:       p.UnitPrice,
			TotalPrice:      -p.TotalPrice,
			ReferenceID:     p.ID,
			ReferenceType:   "ingredient_purchase_reversal",
			Note:            "Pembatalan pembelian",
		})
		if err != nil {
			return err
		}

		if err := tx.DeletePurchase(ctx, userID, purchaseID); err != nil {
			return err
		}
		if p.ExpenseID != nil {
			if err := tx.DeleteExpenseRecord(ctx, userID, *p.ExpenseID); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.recordAudit(ctx, userID, "purchases.deleted", purchaseID, nil)
	s.recalculateWac(ctx, userID, ingredientID)
	return nil
}

// List lists purchases with filters.
func (s *Service) List(ctx context.Context, userID int64, filter ListFilter) ([]Purchase, int, error) {
	return s.repo.List(ctx, userID, filter)
}

// Get fetches a single purchase.
func (s *Service) Get(ctx context.Context, userID, purchaseID int64) (Purchase, error) {
	return s.repo.Get(ctx, userID, purchaseID)
}

func (s *Service) recalculateWac(ctx context.Context, userID, ingredientID int64) {
	if s.wac == nil {
		return
	}
	upd, err := s.wac.UpdateWACOnPurchase(ctx, userID, ingredientID)
	if err != nil {
		s.logger.Warn("wac recalculation after purchase failed", "ingredient_id", ingredientID, "error", err)
		return
	}
	if upd != nil && upd.PriceUpdated && s.workflows != nil {
		s.workflows.Trigger(ctx, automation.NewEvent(
			automation.EventIngredientPriceChanged,
			userID,
			"ingredient",
			ingredientID,
			fmt.Sprintf("Harga bahan mengikuti WAC baru %s", finance.FormatIDR(upd.NewWac)),
			map[string]any{"old_price": upd.OldPrice, "new_wac": upd.NewWac},
		))
	}
}

func (s *Service) recordAudit(ctx context.Context, actorID int64, action string, purchaseID int64, meta map[string]any) {
	if s.audit == nil {
		return
	}
	entry := shared.AuditLog{
		ActorID:  actorID,
		Action:   action,
		Entity:   "ingredient_purchase",
		EntityID: strconv.FormatInt(purchaseID, 10),
		Meta:     meta,
		At:       time.Now(),
	}
	if err := s.audit.Record(ctx, entry); err != nil {
		s.logger.Warn("audit record failed", "action", action, "error", err)
	}
}
