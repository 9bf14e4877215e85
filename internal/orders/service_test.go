package orders

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/heytrack/heytrack/internal/finance"
)

type memoryRepo struct {
	orders       map[int64]Order
	records      map[int64]finance.Record
	nextOrderID  int64
	nextRecordID int64
}

type memoryTx struct {
	repo *memoryRepo
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{
		orders:  make(map[int64]Order),
		records: make(map[int64]finance.Record),
	}
}

func (r *memoryRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return fn(ctx, &memoryTx{repo: r})
}

func (r *memoryRepo) List(ctx context.Context, userID int64, filter ListFilter) ([]Order, int, error) {
	var out []Order
	for _, o := range r.orders {
		if o.UserID == userID {
			out = append(out, o)
		}
	}
	return out, len(out), nil
}

func (r *memoryRepo) Get(ctx context.Context, userID, orderID int64) (Order, error) {
	o, ok := r.orders[orderID]
	if !ok || o.UserID != userID {
		return Order{}, ErrOrderNotFound
	}
	return o, nil
}

func (r *memoryRepo) Delete(ctx context.Context, userID, orderID int64) error {
	if _, ok := r.orders[orderID]; !ok {
		return ErrOrderNotFound
	}
	delete(r.orders, orderID)
	return nil
}

func (tx *memoryTx) GetOrderForUpdate(ctx context.Context, userID, orderID int64) (Order, error) {
	return tx.repo.Get(ctx, userID, orderID)
}

func (tx *memoryTx) CountOrdersOnDate(ctx context.Context, userID int64, day time.Time) (int, error) {
	count := 0
	for _, o := range tx.repo.orders {
		if o.UserID == userID && o.OrderDate.Format("20060102") == day.Format("20060102") {
			count++
		}
	}
	return count, nil
}

func (tx *memoryTx) InsertOrder(ctx context.Context, order Order) (int64, error) {
	tx.repo.nextOrderID++
	order.ID = tx.repo.nextOrderID
	order.CreatedAt = time.Now()
	tx.repo.orders[order.ID] = order
	return order.ID, nil
}

func (tx *memoryTx) UpdateOrderStatus(ctx context.Context, orderID int64, status Status, deliveryDate *time.Time, financialRecordID *int64, notes string) error {
	o := tx.repo.orders[orderID]
	o.Status = status
	if deliveryDate != nil {
		o.DeliveryDate = deliveryDate
	}
	o.FinancialRecordID = financialRecordID
	if notes != "" {
		o.Notes = notes
	}
	tx.repo.orders[orderID] = o
	return nil
}

func (tx *memoryTx) UpdateOrderFields(ctx context.Context, order Order) error {
	tx.repo.orders[order.ID] = order
	return nil
}

func (tx *memoryTx) InsertIncomeRecord(ctx context.Context, rec finance.Record) (int64, error) {
	tx.repo.nextRecordID++
	rec.ID = tx.repo.nextRecordID
	tx.repo.records[rec.ID] = rec
	return rec.ID, nil
}

func (tx *memoryTx) DeleteIncomeRecord(ctx context.Context, userID, recordID int64) error {
	delete(tx.repo.records, recordID)
	return nil
}

func seedOrder(repo *memoryRepo, status Status, amount float64) int64 {
	repo.nextOrderID++
	id := repo.nextOrderID
	repo.orders[id] = Order{
		ID:           id,
		UserID:       1,
		OrderNo:      "ORD-20250310-001",
		CustomerName: "Budi",
		Status:       status,
		TotalAmount:  amount,
		OrderDate:    time.Date(2025, 3, 10, 9, 0, 0, 0, time.Local),
	}
	return id
}

func TestCreateAssignsSequentialOrderNo(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil, nil, nil)
	ctx := context.Background()

	day := time.Date(2025, 3, 10, 9, 0, 0, 0, time.Local)
	first, err := svc.Create(ctx, 1, CreateOrderRequest{CustomerName: "Budi", TotalAmount: 50000, OrderDate: &day})
	require.NoError(t, err)
	require.Equal(t, "ORD-20250310-001", first.OrderNo)
	require.Equal(t, StatusPending, first.Status)
	require.Equal(t, "Menunggu Konfirmasi", first.StatusDisplay)

	second, err := svc.Create(ctx, 1, CreateOrderRequest{CustomerName: "Sari", TotalAmount: 75000, OrderDate: &day})
	require.NoError(t, err)
	require.Equal(t, "ORD-20250310-002", second.OrderNo)
}

func TestStatusTransitions(t *testing.T) {
	cases := []struct {
		from, to Status
		ok       bool
	}{
		{StatusPending, StatusConfirmed, true},
		{StatusPending, StatusCancelled, true},
		{StatusPending, StatusDelivered, false},
		{StatusConfirmed, StatusInProgress, true},
		{StatusConfirmed, StatusReady, false},
		{StatusInProgress, StatusReady, true},
		{StatusReady, StatusDelivered, true},
		{StatusDelivered, StatusReady, false},
		{StatusDelivered, StatusPending, false},
		{StatusDelivered, StatusCancelled, true},
		{StatusCancelled, StatusConfirmed, false},
	}
	for _, tc := range cases {
		require.Equal(t, tc.ok, CanTransition(tc.from, tc.to), "%s -> %s", tc.from, tc.to)
	}
}

func TestUpdateStatusRejectsInvalidTransition(t *testing.T) {
	repo := newMemoryRepo()
	id := seedOrder(repo, StatusPending, 50000)

	svc := NewService(repo, nil, nil, nil)
	_, err := svc.UpdateStatus(context.Background(), 1, id, StatusDelivered, "")
	require.ErrorIs(t, err, ErrInvalidTransition)

	_, err = svc.UpdateStatus(context.Background(), 1, id, Status("SHIPPED"), "")
	require.ErrorIs(t, err, ErrInvalidStatus)
}

func TestDeliveryCreatesIncome(t *testing.T) {
	repo := newMemoryRepo()
	id := seedOrder(repo, StatusReady, 150000)

	svc := NewService(repo, nil, nil, nil)
	change, err := svc.UpdateStatus(context.Background(), 1, id, StatusDelivered, "")
	require.NoError(t, err)
	require.NotNil(t, change.IncomeRecordID)
	require.Len(t, repo.records, 1)

	rec := repo.records[*change.IncomeRecordID]
	require.Equal(t, finance.RecordIncome, rec.Type)
	require.InDelta(t, 150000.0, rec.Amount, 0.0001)

	order := repo.orders[id]
	require.Equal(t, StatusDelivered, order.Status)
	require.NotNil(t, order.DeliveryDate)
	require.Equal(t, change.IncomeRecordID, order.FinancialRecordID)
}

func TestDeliveryZeroAmountSkipsIncome(t *testing.T) {
	repo := newMemoryRepo()
	id := seedOrder(repo, StatusReady, 0)

	svc := NewService(repo, nil, nil, nil)
	change, err := svc.UpdateStatus(context.Background(), 1, id, StatusDelivered, "")
	require.NoError(t, err)
	require.Nil(t, change.IncomeRecordID)
	require.Empty(t, repo.records)
}

func TestCancelAfterDeliveryReversesIncome(t *testing.T) {
	repo := newMemoryRepo()
	id := seedOrder(repo, StatusReady, 150000)

	svc := NewService(repo, nil, nil, nil)
	delivered, err := svc.UpdateStatus(context.Background(), 1, id, StatusDelivered, "")
	require.NoError(t, err)
	require.NotNil(t, delivered.IncomeRecordID)
	require.Len(t, repo.records, 1)

	// Refund path: cancelling a delivered order pulls its income back.
	change, err := svc.UpdateStatus(context.Background(), 1, id, StatusCancelled, "refund")
	require.NoError(t, err)
	require.True(t, change.IncomeReversed)
	require.Equal(t, StatusDelivered, change.From)
	require.Empty(t, repo.records)

	order := repo.orders[id]
	require.Equal(t, StatusCancelled, order.Status)
	require.Nil(t, order.FinancialRecordID)
}

func TestCancelPendingOrderHasNoFinancialEffect(t *testing.T) {
	repo := newMemoryRepo()
	id := seedOrder(repo, StatusPending, 50000)

	svc := NewService(repo, nil, nil, nil)
	change, err := svc.UpdateStatus(context.Background(), 1, id, StatusCancelled, "")
	require.NoError(t, err)
	require.False(t, change.IncomeReversed)
	require.Empty(t, repo.records)
}

func TestDeleteGuard(t *testing.T) {
	repo := newMemoryRepo()
	pendingID := seedOrder(repo, StatusPending, 1000)
	deliveredID := seedOrder(repo, StatusDelivered, 1000)

	svc := NewService(repo, nil, nil, nil)
	require.NoError(t, svc.Delete(context.Background(), 1, pendingID))
	require.ErrorIs(t, svc.Delete(context.Background(), 1, deliveredID), ErrOrderNotDeletable)
}

func TestUpdateFields(t *testing.T) {
	repo := newMemoryRepo()
	id := seedOrder(repo, StatusConfirmed, 50000)

	svc := NewService(repo, nil, nil, nil)
	name := "Sari"
	amount := 80000.0
	updated, err := svc.Update(context.Background(), 1, id, UpdateOrderRequest{CustomerName: &name, TotalAmount: &amount})
	require.NoError(t, err)
	require.Equal(t, "Sari", updated.CustomerName)
	require.InDelta(t, 80000.0, updated.TotalAmount, 0.0001)
	require.Equal(t, StatusConfirmed, updated.Status)
	require.Equal(t, "Dikonfirmasi", updated.StatusDisplay)
}

func TestTenantIsolation(t *testing.T) {
	repo := newMemoryRepo()
	id := seedOrder(repo, StatusPending, 1000)

	svc := NewService(repo, nil, nil, nil)
	_, err := svc.Get(context.Background(), 2, id)
	require.ErrorIs(t, err, ErrOrderNotFound)

	_, err = svc.UpdateStatus(context.Background(), 2, id, StatusConfirmed, "")
	require.ErrorIs(t, err, ErrOrderNotFound)
}
