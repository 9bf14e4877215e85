package finance

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type memoryRepo struct {
	records      map[int64]Record
	orders       map[int64]*OrderLink
	purchases    map[int64]*PurchaseLink
	nextRecordID int64
	linkErr      error
	linkErrFor   int64
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{
		records:   make(map[int64]Record),
		orders:    make(map[int64]*OrderLink),
		purchases: make(map[int64]*PurchaseLink),
	}
}

func (r *memoryRepo) InsertRecord(ctx context.Context, rec Record) (int64, error) {
	r.nextRecordID++
	rec.ID = r.nextRecordID
	rec.CreatedAt = time.Now()
	r.records[rec.ID] = rec
	return rec.ID, nil
}

func (r *memoryRepo) DeleteRecord(ctx context.Context, userID, recordID int64) error {
	if _, ok := r.records[recordID]; !ok {
		return ErrRecordNotFound
	}
	delete(r.records, recordID)
	return nil
}

func (r *memoryRepo) GetRecord(ctx context.Context, userID, recordID int64) (Record, error) {
	rec, ok := r.records[recordID]
	if !ok {
		return Record{}, ErrRecordNotFound
	}
	return rec, nil
}

func (r *memoryRepo) ListRecords(ctx context.Context, userID int64, filter RecordFilter) ([]Record, int, error) {
	var out []Record
	for _, rec := range r.records {
		if rec.UserID == userID {
			out = append(out, rec)
		}
	}
	return out, len(out), nil
}

func (r *memoryRepo) Summarize(ctx context.Context, userID int64, from, to time.Time) (Summary, error) {
	var sum Summary
	for _, rec := range r.records {
		if rec.UserID != userID {
			continue
		}
		switch rec.Type {
		case RecordIncome:
			sum.TotalIncome += rec.Amount
			sum.IncomeCount++
		case RecordExpense:
			sum.TotalExpense += rec.Amount
			sum.ExpenseCount++
		}
	}
	sum.Net = sum.TotalIncome - sum.TotalExpense
	return sum, nil
}

func (r *memoryRepo) GetOrderLink(ctx context.Context, orderID int64) (OrderLink, error) {
	link, ok := r.orders[orderID]
	if !ok {
		return OrderLink{}, ErrOrderNotFound
	}
	return *link, nil
}

func (r *memoryRepo) LinkOrderRecord(ctx context.Context, orderID, recordID int64) error {
	if r.linkErr != nil {
		return r.linkErr
	}
	if r.linkErrFor != 0 && r.linkErrFor == orderID {
		return errors.New("link boom")
	}
	r.orders[orderID].FinancialRecordID = &recordID
	return nil
}

func (r *memoryRepo) ClearOrderRecord(ctx context.Context, orderID int64) error {
	r.orders[orderID].FinancialRecordID = nil
	return nil
}

func (r *memoryRepo) ListUnsyncedDeliveredOrders(ctx context.Context) ([]OrderLink, error) {
	var out []OrderLink
	for _, link := range r.orders {
		if link.FinancialRecordID == nil && link.TotalAmount > 0 {
			out = append(out, *link)
		}
	}
	return out, nil
}

func (r *memoryRepo) GetPurchaseLink(ctx context.Context, purchaseID int64) (PurchaseLink, error) {
	link, ok := r.purchases[purchaseID]
	if !ok {
		return PurchaseLink{}, ErrPurchaseNotFound
	}
	return *link, nil
}

func (r *memoryRepo) LinkPurchaseExpense(ctx context.Context, purchaseID, recordID int64) error {
	if r.linkErr != nil {
		return r.linkErr
	}
	r.purchases[purchaseID].ExpenseID = &recordID
	return nil
}

func (r *memoryRepo) ListUnsyncedPurchases(ctx context.Context) ([]PurchaseLink, error) {
	var out []PurchaseLink
	for _, link := range r.purchases {
		if link.ExpenseID == nil && link.TotalPrice > 0 {
			out = append(out, *link)
		}
	}
	return out, nil
}

func deliveredOrder(id int64, amount float64) *OrderLink {
	delivered := time.Date(2025, 3, 10, 14, 0, 0, 0, time.Local)
	return &OrderLink{
		OrderID:      id,
		UserID:       1,
		OrderNo:      "ORD-20250310-001",
		CustomerName: "Budi",
		TotalAmount:  amount,
		OrderDate:    time.Date(2025, 3, 8, 9, 0, 0, 0, time.Local),
		DeliveryDate: &delivered,
	}
}

func TestCreateIncomeFromOrder(t *testing.T) {
	repo := newMemoryRepo()
	repo.orders[7] = deliveredOrder(7, 150000)

	svc := NewService(repo, nil, nil, nil)
	rec, err := svc.CreateIncomeFromOrder(context.Background(), 7)
	require.NoError(t, err)
	require.NotNil(t, rec)
	require.Equal(t, RecordIncome, rec.Type)
	require.Equal(t, CategoryRevenue, rec.Category)
	require.InDelta(t, 150000.0, rec.Amount, 0.0001)
	require.Equal(t, "Order #ORD-20250310-001 - Budi", rec.Reference)
	require.Equal(t, *repo.orders[7].DeliveryDate, rec.Date)
	require.NotNil(t, repo.orders[7].FinancialRecordID)

	// Second call finds the link and becomes a no-op.
	rec, err = svc.CreateIncomeFromOrder(context.Background(), 7)
	require.NoError(t, err)
	require.Nil(t, rec)
	require.Len(t, repo.records, 1)
}

func TestCreateIncomeFromOrderZeroAmount(t *testing.T) {
	repo := newMemoryRepo()
	repo.orders[7] = deliveredOrder(7, 0)

	svc := NewService(repo, nil, nil, nil)
	rec, err := svc.CreateIncomeFromOrder(context.Background(), 7)
	require.NoError(t, err)
	require.Nil(t, rec)
	require.Empty(t, repo.records)
}

func TestCreateIncomeCompensatesFailedLink(t *testing.T) {
	repo := newMemoryRepo()
	repo.orders[7] = deliveredOrder(7, 150000)
	repo.linkErr = errors.New("link boom")

	svc := NewService(repo, nil, nil, nil)
	_, err := svc.CreateIncomeFromOrder(context.Background(), 7)
	require.Error(t, err)
	require.Empty(t, repo.records)
	require.Nil(t, repo.orders[7].FinancialRecordID)
}

func TestIncomeDateFallback(t *testing.T) {
	link := *deliveredOrder(7, 1000)
	require.Equal(t, *link.DeliveryDate, IncomeDate(link))

	link.DeliveryDate = nil
	require.Equal(t, link.OrderDate, IncomeDate(link))

	link.OrderDate = time.Time{}
	require.WithinDuration(t, time.Now(), IncomeDate(link), time.Second)
}

func TestReverseOrderIncome(t *testing.T) {
	repo := newMemoryRepo()
	repo.orders[7] = deliveredOrder(7, 150000)

	svc := NewService(repo, nil, nil, nil)

	// Nothing to reverse yet.
	reversed, err := svc.ReverseOrderIncome(context.Background(), 7)
	require.NoError(t, err)
	require.False(t, reversed)

	_, err = svc.CreateIncomeFromOrder(context.Background(), 7)
	require.NoError(t, err)

	reversed, err = svc.ReverseOrderIncome(context.Background(), 7)
	require.NoError(t, err)
	require.True(t, reversed)
	require.Empty(t, repo.records)
	require.Nil(t, repo.orders[7].FinancialRecordID)
}

func TestCreateExpenseFromPurchase(t *testing.T) {
	repo := newMemoryRepo()
	repo.purchases[3] = &PurchaseLink{
		PurchaseID:     3,
		UserID:         1,
		IngredientID:   10,
		IngredientName: "Tepung Terigu",
		Unit:           "kg",
		Supplier:       "Toko Makmur",
		Quantity:       2.5,
		TotalPrice:     30000,
		PurchaseDate:   time.Date(2025, 3, 9, 10, 0, 0, 0, time.Local),
	}

	svc := NewService(repo, nil, nil, nil)
	rec, err := svc.CreateExpenseFromPurchase(context.Background(), 3)
	require.NoError(t, err)
	require.NotNil(t, rec)
	require.Equal(t, RecordExpense, rec.Type)
	require.Equal(t, CategoryIngredientPurchase, rec.Category)
	require.Equal(t, "Pembelian Tepung Terigu (2.5 kg) dari Toko Makmur", rec.Description)
	require.NotNil(t, repo.purchases[3].ExpenseID)

	rec, err = svc.CreateExpenseFromPurchase(context.Background(), 3)
	require.NoError(t, err)
	require.Nil(t, rec)
	require.Len(t, repo.records, 1)
}

func TestAutoSyncAll(t *testing.T) {
	repo := newMemoryRepo()
	repo.orders[1] = deliveredOrder(1, 100000)
	repo.orders[2] = deliveredOrder(2, 250000)
	repo.purchases[3] = &PurchaseLink{PurchaseID: 3, UserID: 1, IngredientName: "Gula", Unit: "kg", Quantity: 1, TotalPrice: 15000}

	svc := NewService(repo, nil, nil, nil)
	report, err := svc.AutoSyncAll(context.Background())
	require.NoError(t, err)
	require.Equal(t, 2, report.OrdersSynced)
	require.Equal(t, 1, report.PurchasesSynced)
	require.Equal(t, 0, report.Failed)
	require.Len(t, repo.records, 3)

	// A second pass finds nothing left to do.
	report, err = svc.AutoSyncAll(context.Background())
	require.NoError(t, err)
	require.Equal(t, 0, report.OrdersSynced)
	require.Equal(t, 0, report.PurchasesSynced)
}

func TestAutoSyncAllSkipsZeroAmounts(t *testing.T) {
	repo := newMemoryRepo()
	repo.purchases[1] = &PurchaseLink{PurchaseID: 1, UserID: 1, IngredientName: "Sampel", Unit: "kg", Quantity: 1, TotalPrice: 0}

	svc := NewService(repo, nil, nil, nil)
	report, err := svc.AutoSyncAll(context.Background())
	require.NoError(t, err)
	require.Equal(t, 0, report.PurchasesSynced)
	require.Equal(t, 0, report.Failed)
	require.Empty(t, repo.records)
}

func TestAutoSyncAllContinuesPastFailures(t *testing.T) {
	repo := newMemoryRepo()
	repo.orders[1] = deliveredOrder(1, 100000)
	repo.orders[2] = deliveredOrder(2, 250000)
	repo.purchases[3] = &PurchaseLink{PurchaseID: 3, UserID: 1, IngredientName: "Gula", Unit: "kg", Quantity: 1, TotalPrice: 15000}
	repo.linkErrFor = 1

	svc := NewService(repo, nil, nil, nil)
	report, err := svc.AutoSyncAll(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, report.OrdersSynced)
	require.Equal(t, 1, report.PurchasesSynced)
	require.Equal(t, 1, report.Failed)
	require.Len(t, report.Errors, 1)

	// The failed order's record was compensated away; the rest stuck.
	require.Len(t, repo.records, 2)
	require.Nil(t, repo.orders[1].FinancialRecordID)
	require.NotNil(t, repo.orders[2].FinancialRecordID)
	require.NotNil(t, repo.purchases[3].ExpenseID)
}

func TestSummarize(t *testing.T) {
	repo := newMemoryRepo()
	repo.orders[1] = deliveredOrder(1, 100000)
	repo.purchases[2] = &PurchaseLink{PurchaseID: 2, UserID: 1, IngredientName: "Gula", Unit: "kg", Quantity: 1, TotalPrice: 40000}

	svc := NewService(repo, nil, nil, nil)
	_, err := svc.AutoSyncAll(context.Background())
	require.NoError(t, err)

	sum, err := svc.Summarize(context.Background(), 1, time.Time{}, time.Now())
	require.NoError(t, err)
	require.InDelta(t, 100000.0, sum.TotalIncome, 0.0001)
	require.InDelta(t, 40000.0, sum.TotalExpense, 0.0001)
	require.InDelta(t, 60000.0, sum.Net, 0.0001)
}

func TestFormatIDR(t *testing.T) {
	require.Equal(t, "Rp150.000", FormatIDR(150000))
	require.Equal(t, "Rp1.250.000", FormatIDR(1250000))
	require.Equal(t, "Rp0", FormatIDR(0))
}
