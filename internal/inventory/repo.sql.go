package inventory

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository persists the stock ledger in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// TxRepository exposes transactional operations used by service.
type TxRepository interface {
	GetIngredientForUpdate(ctx context.Context, userID, ingredientID int64) (IngredientRow, error)
	ListPurchaseEntries(ctx context.Context, userID, ingredientID int64) ([]PurchaseEntry, error)
	UpdateIngredientPrice(ctx context.Context, userID, ingredientID int64, price float64) error
	AddStock(ctx context.Context, userID, ingredientID int64, delta float64) (before, after float64, err error)
	InsertStockLog(ctx context.Context, log StockLog) (int64, error)
}

type txRepository struct {
	tx pgx.Tx
}

// WithTx executes the callback inside a repeatable-read transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	if r == nil {
		return errors.New("inventory repository not initialised")
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

const purchaseEntryQuery = `SELECT id, quantity_changed, unit_price, total_price, created_at
FROM inventory_stock_logs
WHERE user_id=$1 AND ingredient_id=$2 AND type='PURCHASE'
ORDER BY created_at ASC, id ASC`

func (r *Repository) ListPurchaseEntries(ctx context.Context, userID, ingredientID int64) ([]PurchaseEntry, error) {
	rows, err := r.pool.Query(ctx, purchaseEntryQuery, userID, ingredientID)
	if err != nil {
		return nil, err
	}
	return collectPurchaseEntries(rows)
}

func (r *Repository) ListPurchaseEntriesBetween(ctx context.Context, userID, ingredientID int64, from, to time.Time) ([]PurchaseEntry, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, quantity_changed, unit_price, total_price, created_at
FROM inventory_stock_logs
WHERE user_id=$1 AND ingredient_id=$2 AND type='PURCHASE'
AND created_at BETWEEN COALESCE($3, '-infinity') AND COALESCE($4, 'infinity')
ORDER BY created_at ASC, id ASC`, userID, ingredientID, nullTime(from), nullTime(to))
	if err != nil {
		return nil, err
	}
	return collectPurchaseEntries(rows)
}

func (r *Repository) ListStockLogs(ctx context.Context, filter StockLogFilter) ([]StockLog, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = 200
	}
	rows, err := r.pool.Query(ctx, `SELECT id, user_id, ingredient_id, type, change_type, quantity_before, quantity_after, quantity_changed, unit_price, total_price, COALESCE(reference_id, 0), COALESCE(reference_type, ''), COALESCE(note, ''), created_at
FROM inventory_stock_logs
WHERE user_id=$1
AND ($2::bigint = 0 OR ingredient_id=$2)
AND ($3::text = '' OR type=$3)
AND created_at BETWEEN COALESCE($4, '-infinity') AND COALESCE($5, 'infinity')
ORDER BY created_at DESC, id DESC
LIMIT $6`, filter.UserID, filter.IngredientID, string(filter.Type), nullTime(filter.From), nullTime(filter.To), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	logs := []StockLog{}
	for rows.Next() {
		var l StockLog
		if err := rows.Scan(&l.ID, &l.UserID, &l.IngredientID, &l.Type, &l.ChangeType, &l.QuantityBefore, &l.QuantityAfter, &l.QuantityChanged, &l.UnitPrice, &l.TotalPrice, &l.ReferenceID, &l.ReferenceType, &l.Note, &l.CreatedAt); err != nil {
			return nil, err
		}
		logs = append(logs, l)
	}
	return logs, rows.Err()
}

func (r *Repository) ListActiveIngredientIDs(ctx context.Context, userID int64) ([]int64, error) {
	rows, err := r.pool.Query(ctx, `SELECT id FROM ingredients WHERE user_id=$1 AND is_active=TRUE ORDER BY id`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	ids := []int64{}
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *Repository) ListActiveIngredients(ctx context.Context) ([]IngredientRef, error) {
	rows, err := r.pool.Query(ctx, `SELECT user_id, id FROM ingredients WHERE is_active=TRUE ORDER BY user_id, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	refs := []IngredientRef{}
	for rows.Next() {
		var ref IngredientRef
		if err := rows.Scan(&ref.UserID, &ref.IngredientID); err != nil {
			return nil, err
		}
		refs = append(refs, ref)
	}
	return refs, rows.Err()
}

func (r *txRepository) GetIngredientForUpdate(ctx context.Context, userID, ingredientID int64) (IngredientRow, error) {
	var row IngredientRow
	err := r.tx.QueryRow(ctx, `SELECT id, name, unit, price_per_unit, current_stock, min_stock
FROM ingredients WHERE id=$1 AND user_id=$2 FOR UPDATE`, ingredientID, userID).
		Scan(&row.ID, &row.Name, &row.Unit, &row.PricePerUnit, &row.CurrentStock, &row.MinStock)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return IngredientRow{}, ErrIngredientNotFound
		}
		return IngredientRow{}, err
	}
	return row, nil
}

func (r *txRepository) ListPurchaseEntries(ctx context.Context, userID, ingredientID int64) ([]PurchaseEntry, error) {
	rows, err := r.tx.Query(ctx, purchaseEntryQuery, userID, ingredientID)
	if err != nil {
		return nil, err
	}
	return collectPurchaseEntries(rows)
}

func (r *txRepository) UpdateIngredientPrice(ctx context.Context, userID, ingredientID int64, price float64) error {
	_, err := r.tx.Exec(ctx, `UPDATE ingredients SET price_per_unit=$1, updated_at=NOW() WHERE id=$2 AND user_id=$3`, price, ingredientID, userID)
	return err
}

// AddStock applies the delta as a single atomic increment and returns the
// balance before and after.
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

func (r *txRepository) InsertStockLog(ctx context.Context, log StockLog) (int64, error) {
	var id int64
	err := r.tx.QueryRow(ctx, `INSERT INTO inventory_stock_logs (user_id, ingredient_id, type, change_type, quantity_before, quantity_after, quantity_changed, unit_price, total_price, reference_id, reference_type, note, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,COALESCE($13, NOW())) RETURNING id`,
		log.UserID, log.IngredientID, string(log.Type), string(log.ChangeType),
		log.QuantityBefore, log.QuantityAfter, log.QuantityChanged,
		log.UnitPrice, log.TotalPrice, nullInt(log.ReferenceID), nullStr(log.ReferenceType), log.Note, nullTime(log.CreatedAt)).Scan(&id)
	return id, err
}

func collectPurchaseEntries(rows pgx.Rows) ([]PurchaseEntry, error) {
	defer rows.Close()
	entries := []PurchaseEntry{}
	for rows.Next() {
		var e PurchaseEntry
		if err := rows.Scan(&e.ID, &e.Quantity, &e.UnitPrice, &e.TotalPrice, &e.CreatedAt); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func nullTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t
}

func nullInt(v int64) any {
	if v == 0 {
		return nil
	}
	return v
}

func nullStr(v string) any {
	if v == "" {
		return nil
	}
	return v
}
