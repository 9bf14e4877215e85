package inventory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type memoryRepo struct {
	ingredients map[int64]IngredientRow
	entries     map[int64][]PurchaseEntry
	logs        []StockLog
	owners      map[int64]int64
	nextLogID   int64
	failFor     map[int64]error
}

type memoryTx struct {
	repo   *memoryRepo
	userID int64
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{
		ingredients: make(map[int64]IngredientRow),
		entries:     make(map[int64][]PurchaseEntry),
		owners:      make(map[int64]int64),
		failFor:     make(map[int64]error),
	}
}

func (r *memoryRepo) addIngredient(userID int64, ing IngredientRow) {
	r.ingredients[ing.ID] = ing
	r.owners[ing.ID] = userID
}

func (r *memoryRepo) addPurchase(ingredientID int64, qty, unitPrice, totalPrice float64) {
	r.nextLogID++
	r.entries[ingredientID] = append(r.entries[ingredientID], PurchaseEntry{
		ID:         r.nextLogID,
		Quantity:   qty,
		UnitPrice:  unitPrice,
		TotalPrice: totalPrice,
		CreatedAt:  time.Now(),
	})
}

func (r *memoryRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return fn(ctx, &memoryTx{repo: r})
}

func (r *memoryRepo) ListPurchaseEntries(ctx context.Context, userID, ingredientID int64) ([]PurchaseEntry, error) {
	out := make([]PurchaseEntry, len(r.entries[ingredientID]))
	copy(out, r.entries[ingredientID])
	return out, nil
}

func (r *memoryRepo) ListPurchaseEntriesBetween(ctx context.Context, userID, ingredientID int64, from, to time.Time) ([]PurchaseEntry, error) {
	return r.ListPurchaseEntries(ctx, userID, ingredientID)
}

func (r *memoryRepo) ListStockLogs(ctx context.Context, filter StockLogFilter) ([]StockLog, error) {
	out := make([]StockLog, len(r.logs))
	copy(out, r.logs)
	return out, nil
}

func (r *memoryRepo) ListActiveIngredientIDs(ctx context.Context, userID int64) ([]int64, error) {
	var ids []int64
	for id, owner := range r.owners {
		if owner == userID {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func (r *memoryRepo) ListActiveIngredients(ctx context.Context) ([]IngredientRef, error) {
	var refs []IngredientRef
	for id, owner := range r.owners {
		refs = append(refs, IngredientRef{UserID: owner, IngredientID: id})
	}
	return refs, nil
}

func (tx *memoryTx) GetIngredientForUpdate(ctx context.Context, userID, ingredientID int64) (IngredientRow, error) {
	if err, ok := tx.repo.failFor[ingredientID]; ok {
		return IngredientRow{}, err
	}
	ing, ok := tx.repo.ingredients[ingredientID]
	if !ok {
		return IngredientRow{}, ErrIngredientNotFound
	}
	return ing, nil
}

func (tx *memoryTx) ListPurchaseEntries(ctx context.Context, userID, ingredientID int64) ([]PurchaseEntry, error) {
	return tx.repo.ListPurchaseEntries(ctx, userID, ingredientID)
}

func (tx *memoryTx) UpdateIngredientPrice(ctx context.Context, userID, ingredientID int64, price float64) error {
	ing := tx.repo.ingredients[ingredientID]
	ing.PricePerUnit = price
	tx.repo.ingredients[ingredientID] = ing
	return nil
}

func (tx *memoryTx) AddStock(ctx context.Context, userID, ingredientID int64, delta float64) (float64, float64, error) {
	ing := tx.repo.ingredients[ingredientID]
	before := ing.CurrentStock
	ing.CurrentStock += delta
	tx.repo.ingredients[ingredientID] = ing
	return before, ing.CurrentStock, nil
}

func (tx *memoryTx) InsertStockLog(ctx context.Context, log StockLog) (int64, error) {
	tx.repo.nextLogID++
	log.ID = tx.repo.nextLogID
	tx.repo.logs = append(tx.repo.logs, log)
	return log.ID, nil
}

func TestCalculateWAC(t *testing.T) {
	repo := newMemoryRepo()
	repo.addIngredient(1, IngredientRow{ID: 10, Name: "Tepung", Unit: "kg", PricePerUnit: 100})
	repo.addPurchase(10, 10, 100, 0)
	repo.addPurchase(10, 10, 200, 0)

	svc := NewService(repo, nil, nil, nil, ServiceConfig{})
	calc, err := svc.CalculateWAC(context.Background(), 1, 10)
	require.NoError(t, err)
	require.NotNil(t, calc)
	require.InDelta(t, 150.0, calc.Wac, 0.0001)
	require.InDelta(t, 20.0, calc.TotalQuantity, 0.0001)
	require.InDelta(t, 3000.0, calc.TotalValue, 0.0001)

	// Reading is idempotent, the ledger stays untouched.
	again, err := svc.CalculateWAC(context.Background(), 1, 10)
	require.NoError(t, err)
	require.InDelta(t, calc.Wac, again.Wac, 0.0001)
}

func TestCalculateWACNoHistory(t *testing.T) {
	repo := newMemoryRepo()
	repo.addIngredient(1, IngredientRow{ID: 10, Name: "Gula", Unit: "kg"})

	svc := NewService(repo, nil, nil, nil, ServiceConfig{})
	calc, err := svc.CalculateWAC(context.Background(), 1, 10)
	require.NoError(t, err)
	require.Nil(t, calc)
}

func TestCalculateWACTotalPriceFallback(t *testing.T) {
	repo := newMemoryRepo()
	repo.addIngredient(1, IngredientRow{ID: 10, Name: "Susu", Unit: "liter"})
	repo.addPurchase(10, 5, 100, 450) // discounted batch, total wins
	repo.addPurchase(10, 5, 100, 0)   // total falls back to qty*unit

	svc := NewService(repo, nil, nil, nil, ServiceConfig{})
	calc, err := svc.CalculateWAC(context.Background(), 1, 10)
	require.NoError(t, err)
	require.InDelta(t, 95.0, calc.Wac, 0.0001)
}

func TestCalculateWACReversedPurchaseLeavesBasis(t *testing.T) {
	repo := newMemoryRepo()
	repo.addIngredient(1, IngredientRow{ID: 10, Name: "Keju", Unit: "kg"})
	repo.addPurchase(10, 10, 100, 0)
	repo.addPurchase(10, 5, 400, 0)
	// Deleting the expensive batch logs a negated purchase entry.
	repo.addPurchase(10, -5, 400, -2000)

	svc := NewService(repo, nil, nil, nil, ServiceConfig{})
	calc, err := svc.CalculateWAC(context.Background(), 1, 10)
	require.NoError(t, err)
	require.InDelta(t, 100.0, calc.Wac, 0.0001)
}

func TestUpdateWACDebounce(t *testing.T) {
	repo := newMemoryRepo()
	repo.addIngredient(1, IngredientRow{ID: 10, Name: "Tepung", Unit: "kg", PricePerUnit: 100})
	repo.addPurchase(10, 10, 102, 0)

	svc := NewService(repo, nil, nil, nil, ServiceConfig{PriceThreshold: 5})
	upd, err := svc.UpdateWACOnPurchase(context.Background(), 1, 10)
	require.NoError(t, err)
	require.NotNil(t, upd)
	require.False(t, upd.PriceUpdated)
	require.InDelta(t, 2.0, upd.ChangePct, 0.0001)
	require.InDelta(t, 100.0, repo.ingredients[10].PricePerUnit, 0.0001)

	// A second batch pushes the average past the threshold.
	repo.addPurchase(10, 10, 130, 0)
	upd, err = svc.UpdateWACOnPurchase(context.Background(), 1, 10)
	require.NoError(t, err)
	require.True(t, upd.PriceUpdated)
	require.InDelta(t, 102.0, upd.OldWac, 0.0001)
	require.InDelta(t, 116.0, upd.NewWac, 0.0001)
	require.InDelta(t, 14.0, upd.Delta, 0.0001)
	require.InDelta(t, 116.0, repo.ingredients[10].PricePerUnit, 0.0001)
}

func TestUpdateWACZeroPriceAlwaysFollows(t *testing.T) {
	repo := newMemoryRepo()
	repo.addIngredient(1, IngredientRow{ID: 10, Name: "Keju", Unit: "kg", PricePerUnit: 0})
	repo.addPurchase(10, 2, 50, 0)

	svc := NewService(repo, nil, nil, nil, ServiceConfig{PriceThreshold: 5})
	upd, err := svc.UpdateWACOnPurchase(context.Background(), 1, 10)
	require.NoError(t, err)
	require.True(t, upd.PriceUpdated)
	require.InDelta(t, 100.0, upd.ChangePct, 0.0001)
	require.InDelta(t, 50.0, repo.ingredients[10].PricePerUnit, 0.0001)
}

func TestUpdateWACNoHistory(t *testing.T) {
	repo := newMemoryRepo()
	repo.addIngredient(1, IngredientRow{ID: 10, Name: "Mentega", Unit: "kg", PricePerUnit: 75})

	svc := NewService(repo, nil, nil, nil, ServiceConfig{})
	upd, err := svc.UpdateWACOnPurchase(context.Background(), 1, 10)
	require.NoError(t, err)
	require.Nil(t, upd)
	require.InDelta(t, 75.0, repo.ingredients[10].PricePerUnit, 0.0001)
}

func TestBatchUpdateWACAbortsOnFailure(t *testing.T) {
	repo := newMemoryRepo()
	repo.addIngredient(1, IngredientRow{ID: 10, Name: "Tepung", Unit: "kg", PricePerUnit: 100})
	repo.addIngredient(1, IngredientRow{ID: 11, Name: "Gula", Unit: "kg", PricePerUnit: 100})
	repo.addPurchase(10, 10, 200, 0)
	repo.addPurchase(11, 10, 200, 0)
	repo.failFor[11] = errors.New("boom")

	svc := NewService(repo, nil, nil, nil, ServiceConfig{})
	_, err := svc.BatchUpdateWAC(context.Background(), 1, []int64{10, 11})
	require.Error(t, err)
	require.Contains(t, err.Error(), "ingredient 11")
}

func TestRecalculateAllContinuesPastFailures(t *testing.T) {
	repo := newMemoryRepo()
	repo.addIngredient(1, IngredientRow{ID: 10, Name: "Tepung", Unit: "kg", PricePerUnit: 100})
	repo.addIngredient(1, IngredientRow{ID: 11, Name: "Gula", Unit: "kg", PricePerUnit: 100})
	repo.addIngredient(1, IngredientRow{ID: 12, Name: "Susu", Unit: "liter", PricePerUnit: 100})
	repo.addPurchase(10, 10, 200, 0)
	repo.addPurchase(12, 10, 101, 0)
	repo.failFor[11] = errors.New("boom")

	svc := NewService(repo, nil, nil, nil, ServiceConfig{})
	summary, err := svc.RecalculateAll(context.Background(), 1)
	require.NoError(t, err)
	require.Equal(t, 3, summary.Processed)
	require.Equal(t, 1, summary.Updated)
	require.Equal(t, 1, summary.Failed)
	require.Len(t, summary.Errors, 1)
}

func TestWacHistoryReplay(t *testing.T) {
	repo := newMemoryRepo()
	repo.addIngredient(1, IngredientRow{ID: 10, Name: "Tepung", Unit: "kg"})
	repo.addPurchase(10, 10, 100, 0)
	repo.addPurchase(10, 10, 200, 0)
	repo.addPurchase(10, 5, 80, 0)

	svc := NewService(repo, nil, nil, nil, ServiceConfig{})
	points, err := svc.WacHistory(context.Background(), 1, 10, time.Time{}, time.Now())
	require.NoError(t, err)
	require.Len(t, points, 3)
	require.InDelta(t, 100.0, points[0].Wac, 0.0001)
	require.InDelta(t, 150.0, points[1].Wac, 0.0001)
	require.InDelta(t, 136.0, points[2].Wac, 0.0001)
	require.InDelta(t, 25.0, points[2].RunningQty, 0.0001)
}

func TestPostAdjustment(t *testing.T) {
	repo := newMemoryRepo()
	repo.addIngredient(1, IngredientRow{ID: 10, Name: "Tepung", Unit: "kg", PricePerUnit: 120, CurrentStock: 8})

	svc := NewService(repo, nil, nil, nil, ServiceConfig{})
	logged, err := svc.PostAdjustment(context.Background(), 1, AdjustmentInput{IngredientID: 10, Qty: 2, UnitCost: 110, Note: "Opname"})
	require.NoError(t, err)
	require.Equal(t, LogTypeAdjustment, logged.Type)
	require.Equal(t, ChangeIncrease, logged.ChangeType)
	require.InDelta(t, 8.0, logged.QuantityBefore, 0.0001)
	require.InDelta(t, 10.0, logged.QuantityAfter, 0.0001)
	require.InDelta(t, 110.0, logged.UnitPrice, 0.0001)

	// Decreases are costed at the current ingredient price.
	logged, err = svc.PostAdjustment(context.Background(), 1, AdjustmentInput{IngredientID: 10, Qty: -3, Note: "Rusak"})
	require.NoError(t, err)
	require.Equal(t, ChangeDecrease, logged.ChangeType)
	require.InDelta(t, 120.0, logged.UnitPrice, 0.0001)
	require.InDelta(t, 7.0, logged.QuantityAfter, 0.0001)
}

func TestPostAdjustmentNegativeStockGuard(t *testing.T) {
	repo := newMemoryRepo()
	repo.addIngredient(1, IngredientRow{ID: 10, Name: "Tepung", Unit: "kg", CurrentStock: 2})

	svc := NewService(repo, nil, nil, nil, ServiceConfig{})
	_, err := svc.PostAdjustment(context.Background(), 1, AdjustmentInput{IngredientID: 10, Qty: -5})
	require.ErrorIs(t, err, ErrNegativeStock)

	allowSvc := NewService(repo, nil, nil, nil, ServiceConfig{AllowNegativeStock: true})
	logged, err := allowSvc.PostAdjustment(context.Background(), 1, AdjustmentInput{IngredientID: 10, Qty: -5})
	require.NoError(t, err)
	require.InDelta(t, -3.0, logged.QuantityAfter, 0.0001)
}

func TestPostAdjustmentValidation(t *testing.T) {
	repo := newMemoryRepo()
	repo.addIngredient(1, IngredientRow{ID: 10, Name: "Tepung", Unit: "kg"})

	svc := NewService(repo, nil, nil, nil, ServiceConfig{})
	_, err := svc.PostAdjustment(context.Background(), 1, AdjustmentInput{IngredientID: 10, Qty: 0})
	require.ErrorIs(t, err, ErrInvalidQuantity)

	_, err = svc.PostAdjustment(context.Background(), 1, AdjustmentInput{IngredientID: 10, Qty: 1, UnitCost: -5})
	require.ErrorIs(t, err, ErrInvalidUnitCost)

	_, err = svc.PostAdjustment(context.Background(), 1, AdjustmentInput{IngredientID: 0, Qty: 1})
	require.ErrorIs(t, err, ErrIngredientNotFound)
}
