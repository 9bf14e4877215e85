package inventory

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/heytrack/heytrack/internal/shared"
)

// RepositoryPort abstracts repository usage for service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	ListPurchaseEntries(ctx context.Context, userID, ingredientID int64) ([]PurchaseEntry, error)
	ListPurchaseEntriesBetween(ctx context.Context, userID, ingredientID int64, from, to time.Time) ([]PurchaseEntry, error)
	ListStockLogs(ctx context.Context, filter StockLogFilter) ([]StockLog, error)
	ListActiveIngredientIDs(ctx context.Context, userID int64) ([]int64, error)
	ListActiveIngredients(ctx context.Context) ([]IngredientRef, error)
}

// AuditPort abstracts audit logging functionality.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// MetricsPort records recalculation outcomes.
type MetricsPort interface {
	ObserveWacRecalc(result string)
}

// Service coordinates stock ledger and weighted average costing.
type Service struct {
	repo      RepositoryPort
	audit     AuditPort
	metrics   MetricsPort
	logger    *slog.Logger
	threshold float64
	allowNeg  bool
}

// ServiceConfig groups optional settings.
type ServiceConfig struct {
	// PriceThreshold is the relative change (percent) required before an
	// ingredient price follows the recalculated WAC.
	PriceThreshold     float64
	AllowNegativeStock bool
}

// NewService builds Service.
func NewService(repo RepositoryPort, audit AuditPort, metrics MetricsPort, logger *slog.Logger, cfg ServiceConfig) *Service {
	threshold := cfg.PriceThreshold
	if threshold == 0 {
		threshold = 5
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, audit: audit, metrics: metrics, logger: logger, threshold: threshold, allowNeg: cfg.AllowNegativeStock}
}

// CalculateWAC folds the purchase ledger into a weighted average cost.
// Returns nil when the ingredient has no purchase history.
func (s *Service) CalculateWAC(ctx context.Context, userID, ingredientID int64) (*WacCalculation, error) {
	if ingredientID <= 0 {
		return nil, ErrIngredientNotFound
	}
	entries, err := s.repo.ListPurchaseEntries(ctx, userID, ingredientID)
	if err != nil {
		return nil, fmt.Errorf("inventory: list purchases: %w", err)
	}
	if len(entries) == 0 {
		return nil, nil
	}
	qty, value := foldPurchases(entries)
	return &WacCalculation{
		IngredientID:  ingredientID,
		Wac:           averageOf(qty, value),
		TotalQuantity: qty,
		TotalValue:    value,
		CalculatedAt:  time.Now(),
	}, nil
}

// UpdateWACOnPurchase recalculates the WAC under a row lock and follows the
// ingredient price when the relative change reaches the threshold.
// Returns nil when there is no purchase history to average.
func (s *Service) UpdateWACOnPurchase(ctx context.Context, userID, ingredientID int64) (*WacUpdate, error) {
	if ingredientID <= 0 {
		return nil, ErrIngredientNotFound
	}
	var result *WacUpdate
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		ing, err := tx.GetIngredientForUpdate(ctx, userID, ingredientID)
		if err != nil {
			return err
		}
		entries, err := tx.ListPurchaseEntries(ctx, userID, ingredientID)
		if err != nil {
			return err
		}
		if len(entries) == 0 {
			return nil
		}
		qty, value := foldPurchases(entries)
		wac := averageOf(qty, value)
		prevQty, prevValue := foldPurchases(entries[:len(entries)-1])
		oldWac := averageOf(prevQty, prevValue)

		// Debounce: harga hanya mengikuti WAC saat selisihnya berarti.
		pct := 100.0
		if ing.PricePerUnit > 0 {
			pct = math.Abs(wac-ing.PricePerUnit) / ing.PricePerUnit * 100
		}
		updated := false
		if pct >= s.threshold {
			if err := tx.UpdateIngredientPrice(ctx, userID, ingredientID, wac); err != nil {
				return err
			}
			updated = true
		}
		result = &WacUpdate{
			IngredientID: ingredientID,
			OldWac:       oldWac,
			NewWac:       wac,
			Delta:        wac - oldWac,
			OldPrice:     ing.PricePerUnit,
			ChangePct:    pct,
			PriceUpdated: updated,
		}
		return nil
	})
	if err != nil {
		s.observe("failed")
		return nil, err
	}
	if result == nil {
		s.observe("skipped")
		return nil, nil
	}
	if result.PriceUpdated {
		s.observe("updated")
		s.recordAudit(ctx, userID, "inventory.wac_price_updated", ingredientID, map[string]any{
			"old_price":  result.OldPrice,
			"new_wac":    result.NewWac,
			"change_pct": result.ChangePct,
		})
	} else {
		s.observe("skipped")
	}
	return result, nil
}

// BatchUpdateWAC recalculates several ingredients concurrently. A single
// failure aborts the whole batch.
func (s *Service) BatchUpdateWAC(ctx context.Context, userID int64, ingredientIDs []int64) ([]WacUpdate, error) {
	if len(ingredientIDs) == 0 {
		return nil, nil
	}
	results := make([]*WacUpdate, len(ingredientIDs))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for i, id := range ingredientIDs {
		i, id := i, id
		g.Go(func() error {
			upd, err := s.UpdateWACOnPurchase(ctx, userID, id)
			if err != nil {
				return fmt.Errorf("ingredient %d: %w", id, err)
			}
			results[i] = upd
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	updates := make([]WacUpdate, 0, len(results))
	for _, upd := range results {
		if upd != nil {
			updates = append(updates, *upd)
		}
	}
	return updates, nil
}

// RecalculateAll walks every active ingredient of the user, continuing past
// individual failures.
func (s *Service) RecalculateAll(ctx context.Context, userID int64) (RecalcSummary, error) {
	ids, err := s.repo.ListActiveIngredientIDs(ctx, userID)
	if err != nil {
		return RecalcSummary{}, fmt.Errorf("inventory: list ingredients: %w", err)
	}
	summary := RecalcSummary{}
	for _, id := range ids {
		summary.Processed++
		upd, err := s.UpdateWACOnPurchase(ctx, userID, id)
		if err != nil {
			summary.Failed++
			summary.Errors = append(summary.Errors, fmt.Sprintf("ingredient %d: %v", id, err))
			s.logger.Warn("wac recalculation failed", "ingredient_id", id, "error", err)
			continue
		}
		if upd != nil && upd.PriceUpdated {
			summary.Updated++
		}
	}
	return summary, nil
}

// RecalculateAllTenants runs the full revaluation across every account.
// Used by the scheduled background job.
func (s *Service) RecalculateAllTenants(ctx context.Context) (RecalcSummary, error) {
	refs, err := s.repo.ListActiveIngredients(ctx)
	if err != nil {
		return RecalcSummary{}, fmt.Errorf("inventory: list all ingredients: %w", err)
	}
	summary := RecalcSummary{}
	for _, ref := range refs {
		summary.Processed++
		upd, err := s.UpdateWACOnPurchase(ctx, ref.UserID, ref.IngredientID)
		if err != nil {
			summary.Failed++
			summary.Errors = append(summary.Errors, fmt.Sprintf("ingredient %d: %v", ref.IngredientID, err))
			continue
		}
		if upd != nil && upd.PriceUpdated {
			summary.Updated++
		}
	}
	return summary, nil
}

// WacHistory replays purchase rows inside the window and emits a WAC point
// per transaction.
func (s *Service) WacHistory(ctx context.Context, userID, ingredientID int64, from, to time.Time) ([]WacPoint, error) {
	if ingredientID <= 0 {
		return nil, ErrIngredientNotFound
	}
	entries, err := s.repo.ListPurchaseEntriesBetween(ctx, userID, ingredientID, from, to)
	if err != nil {
		return nil, fmt.Errorf("inventory: list purchases: %w", err)
	}
	points := make([]WacPoint, 0, len(entries))
	var runQty, runValue float64
	for _, e := range entries {
		total := e.TotalPrice
		if total == 0 {
			total = e.Quantity * e.UnitPrice
		}
		runQty += e.Quantity
		runValue += total
		points = append(points, WacPoint{
			LogID:        e.ID,
			Date:         e.CreatedAt,
			Quantity:     e.Quantity,
			UnitPrice:    e.UnitPrice,
			RunningQty:   runQty,
			RunningValue: runValue,
			Wac:          averageOf(runQty, runValue),
		})
	}
	return points, nil
}

// PostAdjustment applies a manual stock correction and writes a ledger row.
func (s *Service) PostAdjustment(ctx context.Context, userID int64, input AdjustmentInput) (StockLog, error) {
	if input.IngredientID <= 0 {
		return StockLog{}, ErrIngredientNotFound
	}
	if math.Abs(input.Qty) < 1e-9 {
		return StockLog{}, ErrInvalidQuantity
	}
	if input.Qty > 0 && input.UnitCost < 0 {
		return StockLog{}, ErrInvalidUnitCost
	}
	var logged StockLog
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		ing, err := tx.GetIngredientForUpdate(ctx, userID, input.IngredientID)
		if err != nil {
			return err
		}
		if !s.allowNeg && ing.CurrentStock+input.Qty < -0.0001 {
			return ErrNegativeStock
		}
		before, after, err := tx.AddStock(ctx, userID, input.IngredientID, input.Qty)
		if err != nil {
			return err
		}
		unitCost := input.UnitCost
		if input.Qty < 0 {
			unitCost = ing.PricePerUnit
		}
		change := ChangeIncrease
		if input.Qty < 0 {
			change = ChangeDecrease
		}
		logged = StockLog{
			UserID:          userID,
			IngredientID:    input.IngredientID,
			Type:            LogTypeAdjustment,
			ChangeType:      change,
			QuantityBefore:  before,
			QuantityAfter:   after,
			QuantityChanged: input.Qty,
			UnitPrice:       unitCost,
			TotalPrice:      math.Abs(input.Qty) * unitCost,
			Note:            input.Note,
			CreatedAt:       time.Now(),
		}
		id, err := tx.InsertStockLog(ctx, logged)
		if err != nil {
			return err
		}
		logged.ID = id
		return nil
	})
	if err != nil {
		return StockLog{}, err
	}
	s.recordAudit(ctx, input.ActorID, "inventory.adjustment_posted", input.IngredientID, map[string]any{
		"qty":       input.Qty,
		"unit_cost": logged.UnitPrice,
	})
	return logged, nil
}

// StockLogs lists ledger entries for reporting.
func (s *Service) StockLogs(ctx context.Context, filter StockLogFilter) ([]StockLog, error) {
	return s.repo.ListStockLogs(ctx, filter)
}

func (s *Service) observe(result string) {
	if s.metrics != nil {
		s.metrics.ObserveWacRecalc(result)
	}
}

func (s *Service) recordAudit(ctx context.Context, actorID int64, action string, ingredientID int64, meta map[string]any) {
	if s.audit == nil {
		return
	}
	entry := shared.AuditLog{
		ActorID:  actorID,
		Action:   action,
		Entity:   "ingredient",
		EntityID: strconv.FormatInt(ingredientID, 10),
		Meta:     meta,
		At:       time.Now(),
	}
	if err := s.audit.Record(ctx, entry); err != nil {
		s.logger.Warn("audit record failed", "action", action, "error", err)
	}
}

func foldPurchases(entries []PurchaseEntry) (qty, value float64) {
	for _, e := range entries {
		total := e.TotalPrice
		if total == 0 {
			total = e.Quantity * e.UnitPrice
		}
		qty += e.Quantity
		value += total
	}
	return qty, value
}

func averageOf(qty, value float64) float64 {
	if qty <= 0 {
		return 0
	}
	return value / qty
}
