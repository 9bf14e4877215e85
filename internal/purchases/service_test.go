package purchases

import (
	"context"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/require"

	"github.com/heytrack/heytrack/internal/automation"
	"github.com/heytrack/heytrack/internal/finance"
	"github.com/heytrack/heytrack/internal/inventory"
)

type memoryRepo struct {
	ingredients  map[int64]inventory.IngredientRow
	purchases    map[int64]Purchase
	expenses     map[int64]finance.Record
	logs         []inventory.StockLog
	nextID       int64
	nextRecordID int64
}

type memoryTx struct {
	repo *memoryRepo
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{
		ingredients: make(map[int64]inventory.IngredientRow),
		purchases:   make(map[int64]Purchase),
		expenses:    make(map[int64]finance.Record),
	}
}

func (r *memoryRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return fn(ctx, &memoryTx{repo: r})
}

func (r *memoryRepo) List(ctx context.Context, userID int64, filter ListFilter) ([]Purchase, int, error) {
	var out []Purchase
	for _, p := range r.purchases {
		if p.UserID == userID {
			out = append(out, p)
		}
	}
	return out, len(out), nil
}

func (r *memoryRepo) Get(ctx context.Context, userID, purchaseID int64) (Purchase, error) {
	p, ok := r.purchases[purchaseID]
	if !ok || p.UserID != userID {
		return Purchase{}, ErrPurchaseNotFound
	}
	return p, nil
}

func (tx *memoryTx) GetIngredientForUpdate(ctx context.Context, userID, ingredientID int64) (inventory.IngredientRow, error) {
	ing, ok := tx.repo.ingredients[ingredientID]
	if !ok {
		return inventory.IngredientRow{}, ErrIngredientNotFound
	}
	return ing, nil
}

func (tx *memoryTx) InsertExpenseRecord(ctx context.Context, rec finance.Record) (int64, error) {
	tx.repo.nextRecordID++
	rec.ID = tx.repo.nextRecordID
	tx.repo.expenses[rec.ID] = rec
	return rec.ID, nil
}

func (tx *memoryTx) DeleteExpenseRecord(ctx context.Context, userID, recordID int64) error {
	delete(tx.repo.expenses, recordID)
	return nil
}

func (tx *memoryTx) InsertPurchase(ctx context.Context, p Purchase) (int64, error) {
	tx.repo.nextID++
	p.ID = tx.repo.nextID
	tx.repo.purchases[p.ID] = p
	return p.ID, nil
}

func (tx *memoryTx) GetPurchaseForUpdate(ctx context.Context, userID, purchaseID int64) (Purchase, error) {
	return tx.repo.Get(ctx, userID, purchaseID)
}

func (tx *memoryTx) DeletePurchase(ctx context.Context, userID, purchaseID int64) error {
	delete(tx.repo.purchases, purchaseID)
	return nil
}

func (tx *memoryTx) AddStock(ctx context.Context, userID, ingredientID int64, delta float64) (float64, float64, error) {
	ing := tx.repo.ingredients[ingredientID]
	before := ing.CurrentStock
	ing.CurrentStock += delta
	tx.repo.ingredients[ingredientID] = ing
	return before, ing.CurrentStock, nil
}

func (tx *memoryTx) InsertStockLog(ctx context.Context, log inventory.StockLog) (int64, error) {
	tx.repo.nextRecordID++
	log.ID = tx.repo.nextRecordID
	tx.repo.logs = append(tx.repo.logs, log)
	return log.ID, nil
}

type fakeWac struct {
	calls  []int64
	result *inventory.WacUpdate
}

func (f *fakeWac) UpdateWACOnPurchase(ctx context.Context, userID, ingredientID int64) (*inventory.WacUpdate, error) {
	f.calls = append(f.calls, ingredientID)
	return f.result, nil
}

type fakeWorkflows struct {
	events []automation.Event
}

func (f *fakeWorkflows) Trigger(ctx context.Context, evt automation.Event) {
	f.events = append(f.events, evt)
}

func TestCreatePurchase(t *testing.T) {
	repo := newMemoryRepo()
	repo.ingredients[10] = inventory.IngredientRow{ID: 10, Name: "Tepung Terigu", Unit: "kg", PricePerUnit: 12000, CurrentStock: 5}
	wac := &fakeWac{}

	svc := NewService(repo, nil, wac, nil, nil)
	created, err := svc.Create(context.Background(), 1, CreatePurchaseRequest{
		IngredientID: 10,
		Quantity:     2.5,
		UnitPrice:    12000,
		Supplier:     "Toko Makmur",
	})
	require.NoError(t, err)
	require.InDelta(t, 30000.0, created.TotalPrice, 0.0001)
	require.Equal(t, "Tepung Terigu", created.IngredientName)
	require.NotNil(t, created.ExpenseID)

	// One transaction produced the expense, the stock bump and the ledger row.
	require.Len(t, repo.expenses, 1)
	expense := repo.expenses[*created.ExpenseID]
	require.Equal(t, finance.RecordExpense, expense.Type)
	require.Equal(t, finance.CategoryIngredientPurchase, expense.Category)
	require.InDelta(t, 30000.0, expense.Amount, 0.0001)

	require.InDelta(t, 7.5, repo.ingredients[10].CurrentStock, 0.0001)

	require.Len(t, repo.logs, 1)
	log := repo.logs[0]
	require.Equal(t, inventory.LogTypePurchase, log.Type)
	require.Equal(t, inventory.ChangeIncrease, log.ChangeType)
	require.InDelta(t, 5.0, log.QuantityBefore, 0.0001)
	require.InDelta(t, 7.5, log.QuantityAfter, 0.0001)
	require.Equal(t, "ingredient_purchase", log.ReferenceType)
	require.Equal(t, created.ID, log.ReferenceID)

	// WAC recalc runs after commit.
	require.Equal(t, []int64{10}, wac.calls)
}

func TestCreatePurchaseZeroUnitPrice(t *testing.T) {
	// Donated stock arrives at no cost and must pass request validation.
	require.NoError(t, validator.New().Struct(CreatePurchaseRequest{IngredientID: 10, Quantity: 2}))

	repo := newMemoryRepo()
	repo.ingredients[10] = inventory.IngredientRow{ID: 10, Name: "Gula", Unit: "kg"}

	svc := NewService(repo, nil, nil, nil, nil)
	created, err := svc.Create(context.Background(), 1, CreatePurchaseRequest{IngredientID: 10, Quantity: 2, UnitPrice: 0})
	require.NoError(t, err)
	require.InDelta(t, 0.0, created.TotalPrice, 0.0001)
	require.InDelta(t, 2.0, repo.ingredients[10].CurrentStock, 0.0001)
}

func TestCreatePurchaseUnknownIngredient(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil, nil, nil, nil)
	_, err := svc.Create(context.Background(), 1, CreatePurchaseRequest{IngredientID: 99, Quantity: 1, UnitPrice: 100})
	require.ErrorIs(t, err, ErrIngredientNotFound)
	require.Empty(t, repo.expenses)
	require.Empty(t, repo.logs)
}

func TestCreatePurchaseTriggersPriceEvent(t *testing.T) {
	repo := newMemoryRepo()
	repo.ingredients[10] = inventory.IngredientRow{ID: 10, Name: "Gula", Unit: "kg", PricePerUnit: 100}
	wac := &fakeWac{result: &inventory.WacUpdate{IngredientID: 10, OldPrice: 100, NewWac: 120, ChangePct: 20, PriceUpdated: true}}
	workflows := &fakeWorkflows{}

	svc := NewService(repo, nil, wac, workflows, nil)
	_, err := svc.Create(context.Background(), 1, CreatePurchaseRequest{IngredientID: 10, Quantity: 1, UnitPrice: 120})
	require.NoError(t, err)
	require.Len(t, workflows.events, 1)
	require.Equal(t, automation.EventIngredientPriceChanged, workflows.events[0].Name)
}

func TestDeletePurchaseReversesEverything(t *testing.T) {
	repo := newMemoryRepo()
	repo.ingredients[10] = inventory.IngredientRow{ID: 10, Name: "Tepung", Unit: "kg", CurrentStock: 0}

	svc := NewService(repo, nil, nil, nil, nil)
	created, err := svc.Create(context.Background(), 1, CreatePurchaseRequest{IngredientID: 10, Quantity: 4, UnitPrice: 1000})
	require.NoError(t, err)
	require.InDelta(t, 4.0, repo.ingredients[10].CurrentStock, 0.0001)

	require.NoError(t, svc.Delete(context.Background(), 1, created.ID))
	require.Empty(t, repo.purchases)
	require.Empty(t, repo.expenses)
	require.InDelta(t, 0.0, repo.ingredients[10].CurrentStock, 0.0001)

	// The reversal leaves its own ledger trail: a negated PURCHASE row, so
	// replaying the purchase history cancels the quantity and the value out.
	require.Len(t, repo.logs, 2)
	reversal := repo.logs[1]
	require.Equal(t, inventory.LogTypePurchase, reversal.Type)
	require.Equal(t, inventory.ChangeDecrease, reversal.ChangeType)
	require.Equal(t, "ingredient_purchase_reversal", reversal.ReferenceType)
	require.InDelta(t, -4.0, reversal.QuantityChanged, 0.0001)
	require.InDelta(t, -4000.0, reversal.TotalPrice, 0.0001)
}

func TestDeletePurchaseStockConsumed(t *testing.T) {
	repo := newMemoryRepo()
	repo.ingredients[10] = inventory.IngredientRow{ID: 10, Name: "Tepung", Unit: "kg", CurrentStock: 0}

	svc := NewService(repo, nil, nil, nil, nil)
	created, err := svc.Create(context.Background(), 1, CreatePurchaseRequest{IngredientID: 10, Quantity: 4, UnitPrice: 1000})
	require.NoError(t, err)

	// Most of the batch is already used up.
	ing := repo.ingredients[10]
	ing.CurrentStock = 1.5
	repo.ingredients[10] = ing

	err = svc.Delete(context.Background(), 1, created.ID)
	require.ErrorIs(t, err, ErrStockConsumed)
	require.Len(t, repo.purchases, 1)
	require.Len(t, repo.expenses, 1)
}
