package purchases

import (
	"context"
	"errors"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/heytrack/heytrack/internal/finance"
	"github.com/heytrack/heytrack/internal/inventory"
)

// Repository persists ingredient purchases in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// TxRepository groups the writes of one purchase: the expense record, the
// purchase row, the stock increment and the ledger entry commit together.
type TxRepository interface {
	GetIngredientForUpdate(ctx context.Context, userID, ingredientID int64) (inventory.IngredientRow, error)
	InsertExpenseRecord(ctx context.Context, rec finance.Record) (int64, error)
	DeleteExpenseRecord(ctx context.Context, userID, recordID int64) error
	InsertPurchase(ctx context.Context, p Purchase) (int64, error)
	GetPurchaseForUpdate(ctx context.Context, userID, purchaseID int64) (Purchase, error)
	DeletePurchase(ctx context.Context, userID, purchaseID int64) error
	AddStock(ctx context.Context, userID, ingredientID int64, delta float64) (before, after float64, err error)
	InsertStockLog(ctx context.Context, log inventory.StockLog) (int64, error)
}

type txRepository struct {
	tx pgx.Tx
}

// WithTx executes the callback inside a repeatable-read transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	if r == nil {
		return errors.New("purchases repository not initialised")
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

const purchaseColumns = `p.id, p.user_id, p.ingredient_id, i.name, i.unit, COALESCE(p.supplier,''), p.quantity, p.unit_price, p.total_price, p.purchase_date, COALESCE(p.notes,''), p.expense_id, p.created_at`

func (r *Repository) List(ctx context.Context, userID int64, filter ListFilter) ([]Purchase, int, error) {
	where := ` FROM ingredient_purchases p JOIN ingredients i ON i.id = p.ingredient_id WHERE p.user_id=$1`
	args := []interface{}{userID}
	argCount := 1

	if filter.IngredientID > 0 {
		argCount++
		where += ` AND p.ingredient_id=$` + strconv.Itoa(argCount)
		args = append(args, filter.IngredientID)
	}
	if !filter.From.IsZero() {
		argCount++
		where += ` AND p.purchase_date >= $` + strconv.Itoa(argCount)
		args = append(args, filter.From)
	}
	if !filter.To.IsZero() {
		argCount++
		where += ` AND p.purchase_date <= $` + strconv.Itoa(argCount)
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
	tail := ` ORDER BY p.purchase_date DESC, p.id DESC LIMIT $` + strconv.Itoa(argCount)
	args = append(args, perPage)
	argCount++
	tail += ` OFFSET $` + strconv.Itoa(argCount)
	args = append(args, (page-1)*perPage)

	rows, err := r.pool.Query(ctx, `SELECT `+purchaseColumns+where+tail, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var items []Purchase
	for rows.Next() {
		p, err := scanPurchase(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, p)
	}
	return items, total, rows.Err()
}

func (r *Repository) Get(ctx context.Context, userID, purchaseID int64) (Purchase, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+purchaseColumns+` FROM ingredient_purchases p JOIN ingredients i ON i.id = p.ingredient_id WHERE p.id=$1 AND p.user_id=$2`, purchaseID, userID)
	p, err := scanPurchase(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Purchase{}, ErrPurchaseNotFound
		}
		return Purchase{}, err
	}
	return p, nil
}

func (r *txRepository) GetIngredientForUpdate(ctx context.Context, userID, ingredientID int64) (inventory.IngredientRow, error) {
	var row inventory.IngredientRow
	err := r.tx.QueryRow(ctx, `SELECT id, name, unit, price_per_unit, current_stock, min_stock
FROM ingredients WHERE id=$1 AND user_id=$2 FOR UPDATE`, ingredientID, userID).
		Scan(&row.ID, &row.Name, &row.Unit, &row.PricePerUnit, &row.CurrentStock, &row.MinStock)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return inventory.IngredientRow{}, ErrIngredientNotFound
		}
		return inventory.IngredientRow{}, err
	}
	return row, nil
}

func (r *txRepository) InsertExpenseRecord(ctx context.Context, rec finance.Record) (int64, error) {
	var id int64
	err := r.tx.QueryRow(ctx, `INSERT INTO financial_records (user_id, type, category, amount, record_date, reference, description, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,NOW()) RETURNING id`,
		rec.UserID, string(rec.Type), rec.Category, rec.Amount, rec.Date, rec.Reference, rec.Description).Scan(&id)
	return id, err
}

func (r *txRepository) DeleteExpenseRecord(ctx context.Context, userID, recordID int64) error {
	_, err := r.tx.Exec(ctx, `DELETE FROM financial_records WHERE id=$1 AND user_id=$2`, recordID, userID)
	return err
}

func (r *txRepository) InsertPurchase(ctx context.Context, p Purchase) (int64, error) {
	var id int64
	err := r.tx.QueryRow(ctx, `INSERT INTO ingredient_purchases (user_id, ingredient_id, supplier, quantity, unit_price, total_price, purchase_date, notes, expense_id, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,NOW()) RETURNING id`,
		p.UserID, p.IngredientID, p.Supplier, p.Quantity, p.UnitPrice, p.TotalPrice, p.PurchaseDate, p.Notes, p.ExpenseID).Scan(&id)
	return id, err
}

func (r *txRepository) GetPurchaseForUpdate(ctx context.Context, userID, purchaseID int64) (Purchase, error) {
	var p Purchase
	err := r.tx.QueryRow(ctx, `SELECT id, user_id, ingredient_id, COALESCE(supplier,''), quantity, unit_price, total_price, purchase_date, COALESCE(notes,''), expense_id, created_at
FROM ingredient_purchases WHERE id=$1 AND user_id=$2 FOR UPDATE`, purchaseID, userID).
		Scan(&p.ID, &p.UserID, &p.IngredientID, &p.Supplier, &p.Quantity, &p.UnitPrice, &p.TotalPrice, &p.PurchaseDate, &p.Notes, &p.ExpenseID, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Purchase{}, ErrPurchaseNotFound
		}
		return Purchase{}, err
	}
	return p, nil
}

func (r *txRepository) DeletePurchase(ctx context.Context, userID, purchaseID int64) error {
	_, err := r.tx.Exec(ctx, `DELETE FROM ingredient_purchases WHERE id=$1 AND user_id=$2`, purchaseID, userID)
	return err
}

func (r *txRepository) AddStock(ctx context.Context, userID, ingredientID int64, delta float64) (float64, float64, error) {
	var after float64
	err := r.tx.QueryRow(ctx, `UPDATE ingredients SET current_stock = current_stock + $1, updated_at=NOW()
WHERE id=$2 AND user_id=$3
RETURNING current_stock`, delta, ingredientID, userID).Scan(&after)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, 0, ErrIngredientNotFound
		}
		return 0, 0, err
	}
	return after - delta, after, nil
}

func (r *txRepository) InsertStockLog(ctx context.Context, log inventory.StockLog) (int64, error) {
	var id int64
	err := r.tx.QueryRow(ctx, `INSERT INTO inventory_stock_logs (user_id, ingredient_id, type, change_type, quantity_before, quantity_after, quantity_changed, unit_price, total_price, reference_id, reference_type, note, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,NOW()) RETURNING id`,
		log.UserID, log.IngredientID, string(log.Type), string(log.ChangeType),
		log.QuantityBefore, log.QuantityAfter, log.QuantityChanged,
		log.UnitPrice, log.TotalPrice, log.ReferenceID, log.ReferenceType, log.Note).Scan(&id)
	return id, err
}

func scanPurchase(row pgx.Row) (Purchase, error) {
	var p Purchase
	err := row.Scan(&p.ID, &p.UserID, &p.IngredientID, &p.IngredientName, &p.Unit, &p.Supplier,
		&p.Quantity, &p.UnitPrice, &p.TotalPrice, &p.PurchaseDate, &p.Notes, &p.ExpenseID, &p.CreatedAt)
	return p, err
}
