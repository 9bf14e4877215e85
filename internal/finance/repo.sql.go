package finance

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository persists financial records in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func (r *Repository) InsertRecord(ctx context.Context, rec Record) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx, `INSERT INTO financial_records (user_id, type, category, amount, record_date, reference, description, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,NOW()) RETURNING id`,
		rec.UserID, string(rec.Type), rec.Category, rec.Amount, rec.Date, rec.Reference, rec.Description).Scan(&id)
	return id, err
}

func (r *Repository) DeleteRecord(ctx context.Context, userID, recordID int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM financial_records WHERE id=$1 AND user_id=$2`, recordID, userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrRecordNotFound
	}
	return nil
}

func (r *Repository) GetRecord(ctx context.Context, userID, recordID int64) (Record, error) {
	var rec Record
	err := r.pool.QueryRow(ctx, `SELECT id, user_id, type, category, amount, record_date, COALESCE(reference,''), COALESCE(description,''), created_at
FROM financial_records WHERE id=$1 AND user_id=$2`, recordID, userID).
		Scan(&rec.ID, &rec.UserID, &rec.Type, &rec.Category, &rec.Amount, &rec.Date, &rec.Reference, &rec.Description, &rec.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Record{}, ErrRecordNotFound
		}
		return Record{}, err
	}
	return rec, nil
}

func (r *Repository) ListRecords(ctx context.Context, userID int64, filter RecordFilter) ([]Record, int, error) {
	where := ` FROM financial_records WHERE user_id=$1`
	args := []interface{}{userID}
	argCount := 1

	if filter.Type != "" {
		argCount++
		where += ` AND type=$` + strconv.Itoa(argCount)
		args = append(args, string(filter.Type))
	}
	if filter.Category != "" {
		argCount++
		where += ` AND category=$` + strconv.Itoa(argCount)
		args = append(args, filter.Category)
	}
	if !filter.From.IsZero() {
		argCount++
		where += ` AND record_date >= $` + strconv.Itoa(argCount)
		args = append(args, filter.From)
	}
	if !filter.To.IsZero() {
		argCount++
		where += ` AND record_date <= $` + strconv.Itoa(argCount)
		args = append(args, filter.To)
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*)`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	perPage := filter.PerPage
	if perPage <= 0 || perPage > 100 {
		perPage = 20
	}
	page := filter.Page
	if page <= 0 {
		page = 1
	}
	argCount++
	limitClause := ` ORDER BY record_date DESC, id DESC LIMIT $` + strconv.Itoa(argCount)
	args = append(args, perPage)
	argCount++
	limitClause += ` OFFSET $` + strconv.Itoa(argCount)
	args = append(args, (page-1)*perPage)

	rows, err := r.pool.Query(ctx, `SELECT id, user_id, type, category, amount, record_date, COALESCE(reference,''), COALESCE(description,''), created_at`+where+limitClause, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	records := []Record{}
	for rows.Next() {
		var rec Record
		if err := rows.Scan(&rec.ID, &rec.UserID, &rec.Type, &rec.Category, &rec.Amount, &rec.Date, &rec.Reference, &rec.Description, &rec.CreatedAt); err != nil {
			return nil, 0, err
		}
		records = append(records, rec)
	}
	return records, total, rows.Err()
}

func (r *Repository) Summarize(ctx context.Context, userID int64, from, to time.Time) (Summary, error) {
	var s Summary
	err := r.pool.QueryRow(ctx, `SELECT
COALESCE(SUM(amount) FILTER (WHERE type='INCOME'), 0),
COALESCE(SUM(amount) FILTER (WHERE type='EXPENSE'), 0),
COUNT(*) FILTER (WHERE type='INCOME'),
COUNT(*) FILTER (WHERE type='EXPENSE')
FROM financial_records
WHERE user_id=$1 AND record_date BETWEEN COALESCE($2, '-infinity') AND COALESCE($3, 'infinity')`,
		userID, nullTime(from), nullTime(to)).
		Scan(&s.TotalIncome, &s.TotalExpense, &s.IncomeCount, &s.ExpenseCount)
	if err != nil {
		return Summary{}, err
	}
	s.Net = s.TotalIncome - s.TotalExpense
	return s, nil
}

func (r *Repository) GetOrderLink(ctx context.Context, orderID int64) (OrderLink, error) {
	var link OrderLink
	err := r.pool.QueryRow(ctx, `SELECT id, user_id, order_no, customer_name, total_amount, order_date, delivery_date, financial_record_id
FROM orders WHERE id=$1`, orderID).
		Scan(&link.OrderID, &link.UserID, &link.OrderNo, &link.CustomerName, &link.TotalAmount, &link.OrderDate, &link.DeliveryDate, &link.FinancialRecordID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return OrderLink{}, ErrOrderNotFound
		}
		return OrderLink{}, err
	}
	return link, nil
}

func (r *Repository) LinkOrderRecord(ctx context.Context, orderID, recordID int64) error {
	tag, err := r.pool.Exec(ctx, `UPDATE orders SET financial_record_id=$1, updated_at=NOW() WHERE id=$2`, recordID, orderID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrOrderNotFound
	}
	return nil
}

func (r *Repository) ClearOrderRecord(ctx context.Context, orderID int64) error {
	_, err := r.pool.Exec(ctx, `UPDATE orders SET financial_record_id=NULL, updated_at=NOW() WHERE id=$1`, orderID)
	return err
}

// ListUnsyncedDeliveredOrders returns delivered orders that still miss an
// income record.
func (r *Repository) ListUnsyncedDeliveredOrders(ctx context.Context) ([]OrderLink, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, user_id, order_no, customer_name, total_amount, order_date, delivery_date, financial_record_id
FROM orders
WHERE status='DELIVERED' AND financial_record_id IS NULL AND total_amount > 0
ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	links := []OrderLink{}
	for rows.Next() {
		var link OrderLink
		if err := rows.Scan(&link.OrderID, &link.UserID, &link.OrderNo, &link.CustomerName, &link.TotalAmount, &link.OrderDate, &link.DeliveryDate, &link.FinancialRecordID); err != nil {
			return nil, err
		}
		links = append(links, link)
	}
	return links, rows.Err()
}

func (r *Repository) GetPurchaseLink(ctx context.Context, purchaseID int64) (PurchaseLink, error) {
	var link PurchaseLink
	err := r.pool.QueryRow(ctx, `SELECT p.id, p.user_id, p.ingredient_id, i.name, i.unit, COALESCE(p.supplier,''), p.quantity, p.total_price, p.purchase_date, p.expense_id
FROM ingredient_purchases p
JOIN ingredients i ON i.id = p.ingredient_id
WHERE p.id=$1`, purchaseID).
		Scan(&link.PurchaseID, &link.UserID, &link.IngredientID, &link.IngredientName, &link.Unit, &link.Supplier, &link.Quantity, &link.TotalPrice, &link.PurchaseDate, &link.ExpenseID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return PurchaseLink{}, ErrPurchaseNotFound
		}
		return PurchaseLink{}, err
	}
	return link, nil
}

func (r *Repository) LinkPurchaseExpense(ctx context.Context, purchaseID, recordID int64) error {
	tag, err := r.pool.Exec(ctx, `UPDATE ingredient_purchases SET expense_id=$1 WHERE id=$2`, recordID, purchaseID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrPurchaseNotFound
	}
	return nil
}

// ListUnsyncedPurchases returns purchases that still miss an expense record.
func (r *Repository) ListUnsyncedPurchases(ctx context.Context) ([]PurchaseLink, error) {
	rows, err := r.pool.Query(ctx, `SELECT p.id, p.user_id, p.ingredient_id, i.name, i.unit, COALESCE(p.supplier,''), p.quantity, p.total_price, p.purchase_date, p.expense_id
FROM ingredient_purchases p
JOIN ingredients i ON i.id = p.ingredient_id
WHERE p.expense_id IS NULL AND p.total_price > 0
ORDER BY p.id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	links := []PurchaseLink{}
	for rows.Next() {
		var link PurchaseLink
		if err := rows.Scan(&link.PurchaseID, &link.UserID, &link.IngredientID, &link.IngredientName, &link.Unit, &link.Supplier, &link.Quantity, &link.TotalPrice, &link.PurchaseDate, &link.ExpenseID); err != nil {
			return nil, err
		}
		links = append(links, link)
	}
	return links, rows.Err()
}

func nullTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t
}
