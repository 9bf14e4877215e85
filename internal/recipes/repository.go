package recipes

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/heytrack/heytrack/internal/shared"
)

// ErrRecipeNotFound indicates a missing or foreign recipe row.
var ErrRecipeNotFound = errors.New("recipe not found")

type Repository interface {
	List(ctx context.Context, userID int64, filters shared.ListFilters) ([]Recipe, int, error)
	Get(ctx context.Context, userID, id int64) (Recipe, error)
	Create(ctx context.Context, recipe Recipe) (Recipe, error)
	Update(ctx context.Context, userID, id int64, recipe Recipe) error
	Deactivate(ctx context.Context, userID, id int64) error
	ListCostedItems(ctx context.Context, userID, recipeID int64) ([]HppItem, error)
}

type repository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) Repository {
	return &repository{db: db}
}

const recipeColumns = `id, user_id, name, category, servings, labor_cost, overhead_cost, selling_price, is_active, created_at, updated_at`

func (r *repository) List(ctx context.Context, userID int64, filters shared.ListFilters) ([]Recipe, int, error) {
	query := `SELECT ` + recipeColumns + ` FROM recipes WHERE user_id = $1 AND is_active = TRUE`
	args := []interface{}{userID}
	argCount := 1

	if filters.Search != "" {
		argCount++
		query += ` AND (name ILIKE $` + strconv.Itoa(argCount) + ` OR category ILIKE $` + strconv.Itoa(argCount) + `)`
		args = append(args, "%"+filters.Search+"%")
	}

	countQuery := `SELECT COUNT(*) FROM recipes WHERE user_id = $1 AND is_active = TRUE`
	countArgs := []interface{}{userID}
	if filters.Search != "" {
		countQuery += ` AND (name ILIKE $2 OR category ILIKE $2)`
		countArgs = append(countArgs, "%"+filters.Search+"%")
	}

	var total int
	if err := r.db.QueryRow(ctx, countQuery, countArgs...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query += ` ORDER BY name ASC`

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

	var items []Recipe
	for rows.Next() {
		rec, err := scanRecipe(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, rec)
	}
	return items, total, rows.Err()
}

func (r *repository) Get(ctx context.Context, userID, id int64) (Recipe, error) {
	row := r.db.QueryRow(ctx, `SELECT `+recipeColumns+` FROM recipes WHERE id = $1 AND user_id = $2`, id, userID)
	rec, err := scanRecipe(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Recipe{}, ErrRecipeNotFound
		}
		return Recipe{}, err
	}

	rows, err := r.db.Query(ctx, `SELECT ri.id, ri.recipe_id, ri.ingredient_id, i.name, ri.quantity, ri.unit
FROM recipe_ingredients ri
JOIN ingredients i ON i.id = ri.ingredient_id
WHERE ri.recipe_id = $1
ORDER BY i.name ASC`, id)
	if err != nil {
		return Recipe{}, err
	}
	defer rows.Close()

	for rows.Next() {
		var item RecipeItem
		if err := rows.Scan(&item.ID, &item.RecipeID, &item.IngredientID, &item.IngredientName, &item.Quantity, &item.Unit); err != nil {
			return Recipe{}, err
		}
		rec.Items = append(rec.Items, item)
	}
	return rec, rows.Err()
}

func (r *repository) Create(ctx context.Context, recipe Recipe) (Recipe, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return Recipe{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	now := time.Now()
	err = tx.QueryRow(ctx, `INSERT INTO recipes (user_id, name, category, servings, labor_cost, overhead_cost, selling_price, is_active, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, TRUE, $8, $8) RETURNING id`,
		recipe.UserID, recipe.Name, recipe.Category, recipe.Servings, recipe.LaborCost,
		recipe.OverheadCost, recipe.SellingPrice, now).Scan(&recipe.ID)
	if err != nil {
		return Recipe{}, err
	}

	for i := range recipe.Items {
		recipe.Items[i].RecipeID = recipe.ID
		err := tx.QueryRow(ctx, `INSERT INTO recipe_ingredients (recipe_id, ingredient_id, quantity, unit)
VALUES ($1, $2, $3, $4) RETURNING id`,
			recipe.ID, recipe.Items[i].IngredientID, recipe.Items[i].Quantity, recipe.Items[i].Unit).Scan(&recipe.Items[i].ID)
		if err != nil {
			return Recipe{}, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return Recipe{}, err
	}
	recipe.IsActive = true
	recipe.CreatedAt = now
	recipe.UpdatedAt = now
	return recipe, nil
}

func (r *repository) Update(ctx context.Context, userID, id int64, recipe Recipe) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	tag, err := tx.Exec(ctx, `UPDATE recipes SET name = $1, category = $2, servings = $3, labor_cost = $4, overhead_cost = $5, selling_price = $6, updated_at = $7
WHERE id = $8 AND user_id = $9`,
		recipe.Name, recipe.Category, recipe.Servings, recipe.LaborCost, recipe.OverheadCost,
		recipe.SellingPrice, time.Now(), id, userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrRecipeNotFound
	}

	if recipe.Items != nil {
		if _, err := tx.Exec(ctx, `DELETE FROM recipe_ingredients WHERE recipe_id = $1`, id); err != nil {
			return err
		}
		for _, item := range recipe.Items {
			_, err := tx.Exec(ctx, `INSERT INTO recipe_ingredients (recipe_id, ingredient_id, quantity, unit) VALUES ($1, $2, $3, $4)`,
				id, item.IngredientID, item.Quantity, item.Unit)
			if err != nil {
				return err
			}
		}
	}

	return tx.Commit(ctx)
}

func (r *repository) Deactivate(ctx context.Context, userID, id int64) error {
	tag, err := r.db.Exec(ctx, `UPDATE recipes SET is_active = FALSE, updated_at = NOW() WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrRecipeNotFound
	}
	return nil
}

// ListCostedItems joins recipe lines with the current ingredient price, which
// the WAC engine keeps up to date.
func (r *repository) ListCostedItems(ctx context.Context, userID, recipeID int64) ([]HppItem, error) {
	rows, err := r.db.Query(ctx, `SELECT ri.ingredient_id, i.name, ri.quantity, ri.unit, i.price_per_unit
FROM recipe_ingredients ri
JOIN recipes r ON r.id = ri.recipe_id
JOIN ingredients i ON i.id = ri.ingredient_id
WHERE ri.recipe_id = $1 AND r.user_id = $2
ORDER BY i.name ASC`, recipeID, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []HppItem
	for rows.Next() {
		var item HppItem
		if err := rows.Scan(&item.IngredientID, &item.IngredientName, &item.Quantity, &item.Unit, &item.UnitPrice); err != nil {
			return nil, err
		}
		item.TotalCost = item.Quantity * item.UnitPrice
		items = append(items, item)
	}
	return items, rows.Err()
}

func scanRecipe(row pgx.Row) (Recipe, error) {
	var rec Recipe
	err := row.Scan(&rec.ID, &rec.UserID, &rec.Name, &rec.Category, &rec.Servings, &rec.LaborCost,
		&rec.OverheadCost, &rec.SellingPrice, &rec.IsActive, &rec.CreatedAt, &rec.UpdatedAt)
	return rec, err
}
