package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/sakif/listen-api/internal/apperror"
	"github.com/sakif/listen-api/internal/model"
	"github.com/sakif/listen-api/internal/repository"
)

var _ repository.CategoryRepository = (*DB)(nil)

func (db *DB) CreateCategory(ctx context.Context, category *model.Category) error {
	result, err := db.conn.ExecContext(ctx,
		`INSERT INTO categories (label) VALUES (?)`, category.Label)
	if err != nil {
		return fmt.Errorf("sqlite: inserting category: %w", err)
	}
	category.ID, err = result.LastInsertId()
	if err != nil {
		return fmt.Errorf("sqlite: reading category id: %w", err)
	}
	return nil
}

func (db *DB) GetCategory(ctx context.Context, id int64) (*model.Category, error) {
	var c model.Category
	err := db.conn.QueryRowContext(ctx,
		`SELECT id, label FROM categories WHERE id = ?`, id,
	).Scan(&c.ID, &c.Label)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("category", id)
		}
		return nil, fmt.Errorf("sqlite: getting category %d: %w", id, err)
	}
	return &c, nil
}

func (db *DB) ListCategories(ctx context.Context) ([]model.Category, error) {
	rows, err := db.conn.QueryContext(ctx, `SELECT id, label FROM categories ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing categories: %w", err)
	}
	defer rows.Close()

	categories := []model.Category{}
	for rows.Next() {
		var c model.Category
		if err := rows.Scan(&c.ID, &c.Label); err != nil {
			return nil, fmt.Errorf("sqlite: scanning category row: %w", err)
		}
		categories = append(categories, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating categories: %w", err)
	}
	return categories, nil
}

func (db *DB) UpdateCategory(ctx context.Context, category *model.Category) error {
	result, err := db.conn.ExecContext(ctx,
		`UPDATE categories SET label = ? WHERE id = ?`, category.Label, category.ID)
	if err != nil {
		return fmt.Errorf("sqlite: updating category %d: %w", category.ID, err)
	}
	return checkAffected(result, "category", category.ID)
}

// DeleteCategory leaves goals in place with a NULL category.
func (db *DB) DeleteCategory(ctx context.Context, id int64) error {
	result, err := db.conn.ExecContext(ctx, `DELETE FROM categories WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlite: deleting category %d: %w", id, err)
	}
	return checkAffected(result, "category", id)
}
