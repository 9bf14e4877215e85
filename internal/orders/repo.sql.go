package orders

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/heytrack/heytrack/internal/finance"
)

// Repository persists orders in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// TxRepository exposes the transactional operations used by the service.
// Income bookkeeping lives here so a delivery and its revenue record commit
// or roll back together.
type TxRepository interface {
	GetOrderForUpdate(ctx context.Context, userID, orderID int64) (Order, error)
	CountOrdersOnDate(ctx context.Context, userID int64, day time.Time) (int, error)
	InsertOrder(ctx context.Context, order Order) (int64, error)
	UpdateOrderStatus(ctx context.Context, orderID int64, status Status, deliveryDate *time.Time, financialRecordID *int64, notes string) error
	UpdateOrderFields(ctx context.Context, order Order) error
	InsertIncomeRecord(ctx context.Context, rec finance.Record) (int64, error)
	DeleteIncomeRecord(ctx context.Context, userID, recordID int64) error
}

type txRepository struct {
	tx pgx.Tx
}

// WithTx executes the callback inside a repeatable-read transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	if r == nil {
		return errors.New("orders repository not initialised")
	}
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead})
	if err != nil {
		return err
	}
	wrapper := &txRepository{tx: tx}
	if err := fn(ctx, wrapper); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}
	return tx.Commit(ctx)
}

const orderColumns = `id, user_id, order_no, customer_name, COALESCE(customer_phone,''), status, total_amount, order_date, delivery_date, COALESCE(notes,''), financial_record_id, created_at, updated_at`

func (r *Repository) List(ctx context.Context, userID int64, filter ListFilter) ([]Order, int, error) {
	where := ` FROM orders WHERE user_id=$1`
	args := []interface{}{userID}
	argCount := 1

	if filter.Status != "" {
		argCount++
		where += ` AND status=$` + strconv.Itoa(argCount)
		args = append(args, string(filter.Status))
	}
	if filter.Search != "" {
		argCount++
		where += ` AND (customer_name ILIKE $` + strconv.Itoa(argCount) + ` OR order_no ILIKE $` + strconv.Itoa(argCount) + `)`
		args = append(args, "%"+filter.Search+"%")
	}
	if !filter.From.IsZero() {
		argCount++
		where += ` AND order_date >= $` + strconv.Itoa(argCount)
		args = append(args, filter.From)
	}
	if !filter.To.IsZero() {
		argCount++
		where += ` AND order_date <= $` + strconv.Itoa(argCount)
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
	tail := ` ORDER BY order_date DESC, id DESC LIMIT $` + strconv.Itoa(argCount)
	args = append(args, perPage)
	argCount++
	tail += ` OFFSET $` + strconv.Itoa(argCount)
	args = append(args, (page-1)*perPage)

	rows, err := r.pool.Query(ctx, `SELECT `+orderColumns+where+tail, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var items []Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, o)
	}
	return items, total, rows.Err()
}

func (r *Repository) Get(ctx context.Context, userID, orderID int64) (Order, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id=$1 AND user_id=$2`, orderID, userID)
	o, err := scanOrder(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Order{}, ErrOrderNotFound
		}
		return Order{}, err
	}
	return o, nil
}

func (r *Repository) Delete(ctx context.Context, userID, orderID int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM orders WHERE id=$1 AND user_id=$2`, orderID, userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrOrderNotFound
	}
	return nil
}

func (r *txRepository) GetOrderForUpdate(ctx context.Context, userID, orderID int64) (Order, error) {
	row := r.tx.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id=$1 AND user_id=$2 FOR UPDATE`, orderID, userID)
	o, err := scanOrder(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Order{}, ErrOrderNotFound
		}
		return Order{}, err
	}
	return o, nil
}

func (r *txRepository) CountOrdersOnDate(ctx context.Context, userID int64, day time.Time) (int, error) {
	var count int
	err := r.tx.QueryRow(ctx, `SELECT COUNT(*) FROM orders WHERE user_id=$1 AND order_date::date=$2::date`, userID, day).Scan(&count)
	return count, err
}

func (r *txRepository) InsertOrder(ctx context.Context, order Order) (int64, error) {
	var id int64
	err := r.tx.QueryRow(ctx, `INSERT INTO orders (user_id, order_no, customer_name, customer_phone, status, total_amount, order_date, delivery_date, notes, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,NOW(),NOW()) RETURNING id`,
		order.UserID, order.OrderNo, order.CustomerName, order.CustomerPhone, string(order.Status),
		order.TotalAmount, order.OrderDate, order.DeliveryDate, order.Notes).Scan(&id)
	return id, err
}

func (r *txRepository) UpdateOrderStatus(ctx context.Context, orderID int64, status Status, deliveryDate *time.Time, financialRecordID *int64, notes string) error {
	_, err := r.tx.Exec(ctx, `UPDATE orders SET status=$1, delivery_date=COALESCE($2, delivery_date), financial_record_id=$3, notes=COALESCE(NULLIF($4,''), notes), updated_at=NOW() WHERE id=$5`,
		string(status), deliveryDate, financialRecordID, notes, orderID)
	return err
}

func (r *txRepository) UpdateOrderFields(ctx context.Context, order Order) error {
	_, err := r.tx.Exec(ctx, `UPDATE orders SET customer_name=$1, customer_phone=$2, total_amount=$3, delivery_date=$4, notes=$5, updated_at=NOW() WHERE id=$6 AND user_id=$7`,
		order.CustomerName, order.CustomerPhone, order.TotalAmount, order.DeliveryDate, order.Notes, order.ID, order.UserID)
	return err
}

func (r *txRepository) InsertIncomeRecord(ctx context.Context, rec finance.Record) (int64, error) {
	var id int64
	err := r.tx.QueryRow(ctx, `INSERT INTO financial_records (user_id, type, category, amount, record_date, reference, description, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,NOW()) RETURNING id`,
		rec.UserID, string(rec.Type), rec.Category, rec.Amount, rec.Date, rec.Reference, rec.Description).Scan(&id)
	return id, err
}

func (r *txRepository) DeleteIncomeRecord(ctx context.Context, userID, recordID int64) error {
	_, err := r.tx.Exec(ctx, `DELETE FROM financial_records WHERE id=$1 AND user_id=$2`, recordID, userID)
	return err
}

func scanOrder(row pgx.Row) (Order, error) {
	var o Order
	err := row.Scan(&o.ID, &o.UserID, &o.OrderNo, &o.CustomerName, &o.CustomerPhone, &o.Status,
		&o.TotalAmount, &o.OrderDate, &o.DeliveryDate, &o.Notes, &o.FinancialRecordID, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return Order{}, err
	}
	o.StatusDisplay = o.Status.Display()
	return o, nil
}
