package ingredients

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/heytrack/heytrack/internal/shared"
)

// ErrIngredientNotFound indicates a missing or foreign ingredient row.
var ErrIngredientNotFound = errors.New("ingredient not found")

type Repository interface {
	List(ctx context.Context, userID int64, filters shared.ListFilters) ([]Ingredient, int, error)
	Get(ctx context.Context, userID, id int64) (Ingredient, error)
	Create(ctx context.Context, ingredient Ingredient) (Ingredient, error)
	Update(ctx context.Context, userID, id int64, ingredient Ingredient) error
	Deactivate(ctx context.Context, userID, id int64) error
	ListLowStock(ctx context.Context, userID int64) ([]Ingredient, error)
}

type repository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) Repository {
	return &repository{db: db}
}

const ingredientColumns = `id, user_id, name, category, unit, price_per_unit, current_stock, min_stock, supplier, is_active, created_at, updated_at`

func (r *repository) List(ctx context.Context, userID int64, filters shared.ListFilters) ([]Ingredient, int, error) {
	query := `SELECT ` + ingredientColumns + ` FROM ingredients WHERE user_id = $1 AND is_active = TRUE`
	args := []interface{}{userID}
	argCount := 1

	if filters.Search != "" {
		argCount++
		query += ` AND (name ILIKE $` + strconv.Itoa(argCount) + ` OR category ILIKE $` + strconv.Itoa(argCount) + `)`
		args = append(args, "%"+filters.Search+"%")
	}

	countQuery := `SELECT COUNT(*) FROM ingredients WHERE user_id = $1 AND is_active = TRUE`
	countArgs := []interface{}{userID}
	if filters.Search != "" {
		countQuery += ` AND (name ILIKE $2 OR category ILIKE $2)`
		countArgs = append(countArgs, "%"+filters.Search+"%")
	}

	var total int
	if err := r.db.QueryRow(ctx, countQuery, countArgs...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query += " ORDER BY " + sortOrder(filters.SortBy, filters.SortDir)

	argCount++
	query += ` LIMIT $` + strconv.Itoa(argCount)
	args = append(args, filters.Limit())
	argCount++
	query += ` OFFSET $` + strconv.Itoa(argCount)
	args = append(args, filters.Offset())

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var items []Ingredient
	for rows.Next() {
		ing, err := scanIngredient(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, ing)
	}
	return items, total, rows.Err()
}

func (r *repository) Get(ctx context.Context, userID, id int64) (Ingredient, error) {
	row := r.db.QueryRow(ctx, `SELECT `+ingredientColumns+` FROM ingredients WHERE id = $1 AND user_id = $2`, id, userID)
	ing, err := scanIngredient(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Ingredient{}, ErrIngredientNotFound
		}
		return Ingredient{}, err
	}
	return ing, nil
}

func (r *repository) Create(ctx context.Context, ingredient Ingredient) (Ingredient, error) {
	now := time.Now()
	err := r.db.QueryRow(ctx, `INSERT INTO ingredients (user_id, name, category, unit, price_per_unit, current_stock, min_stock, supplier, is_active, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, TRUE, $9, $9) RETURNING id`,
		ingredient.UserID, ingredient.Name, ingredient.Category, ingredient.Unit, ingredient.PricePerUnit,
		ingredient.CurrentStock, ingredient.MinStock, ingredient.Supplier, now).Scan(&ingredient.ID)
	if err != nil {
		return Ingredient{}, err
	}
	ingredient.IsActive = true
	ingredient.CreatedAt = now
	ingredient.UpdatedAt = now
	return ingredient, nil
}

func (r *repository) Update(ctx context.Context, userID, id int64, ingredient Ingredient) error {
	tag, err := r.db.Exec(ctx, `UPDATE ingredients SET name = $1, category = $2, unit = $3, price_per_unit = $4, min_stock = $5, supplier = $6, updated_at = $7
WHERE id = $8 AND user_id = $9`,
		ingredient.Name, ingredient.Category, ingredient.Unit, ingredient.PricePerUnit, ingredient.MinStock, ingredient.Supplier, time.Now(), id, userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrIngredientNotFound
	}
	return nil
}

func (r *repository) Deactivate(ctx context.Context, userID, id int64) error {
	tag, err := r.db.Exec(ctx, `UPDATE ingredients SET is_active = FALSE, updated_at = NOW() WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrIngredientNotFound
	}
	return nil
}

func (r *repository) ListLowStock(ctx context.Context, userID int64) ([]Ingredient, error) {
	rows, err := r.db.Query(ctx, `SELECT `+ingredientColumns+` FROM ingredients
WHERE user_id = $1 AND is_active = TRUE AND current_stock <= min_stock
ORDER BY current_stock / NULLIF(min_stock, 0) ASC NULLS FIRST`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []Ingredient
	for rows.Next() {
		ing, err := scanIngredient(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, ing)
	}
	return items, rows.Err()
}

func scanIngredient(row pgx.Row) (Ingredient, error) {
	var i Ingredient
	err := row.Scan(&i.ID, &i.UserID, &i.Name, &i.Category, &i.Unit, &i.PricePerUnit,
		&i.CurrentStock, &i.MinStock, &i.Supplier, &i.IsActive, &i.CreatedAt, &i.UpdatedAt)
	return i, err
}

func sortOrder(sortBy, sortDir string) string {
	dir := "ASC"
	if sortDir == "desc" {
		dir = "DESC"
	}
	switch sortBy {
	case "category":
		return "category " + dir
	case "current_stock":
		return "current_stock " + dir
	case "created_at":
		return "created_at " + dir
	default:
		return "name " + dir
	}
}
