package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"bucheron/internal/domain"
	"bucheron/internal/dto"
	"bucheron/internal/errors"
)

const categorySelect = `
	SELECT c.id, c.slug, c.name, COALESCE(c.description, ''), c.image, c.featured, c.isActive, c.sortOrder,
	       (SELECT COUNT(*) FROM Products p WHERE p.categoryId = c.id AND p.isActive = 1)
	FROM Categories c`

type MySQLCategoryRepository struct {
	db *sql.DB
}

func NewMySQLCategoryRepository(db *sql.DB) *MySQLCategoryRepository {
	return &MySQLCategoryRepository{db: db}
}

func scanCategory(row rowScanner) (*domain.Category, error) {
	var c domain.Category
	err := row.Scan(&c.ID, &c.Slug, &c.Name, &c.Description, &c.Image, &c.Featured, &c.IsActive, &c.SortOrder, &c.ProductCount)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// List returns categories by sort order. Active defaults to true when unset.
func (r *MySQLCategoryRepository) List(ctx context.Context, f dto.CategoryFilter) ([]domain.Category, error) {
	active := true
	if f.Active != nil {
		active = *f.Active
	}
	where := []string{"c.isActive = ?"}
	args := []interface{}{active}
	if f.Featured != nil {
		where = append(where, "c.featured = ?")
		args = append(args, *f.Featured)
	}

	query := categorySelect + ` WHERE ` + strings.Join(where, " AND ") + ` ORDER BY c.sortOrder ASC, c.name ASC`
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying categories: %w", err)
	}
	defer rows.Close()

	categories := []domain.Category{}
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning category row: %w", err)
		}
		categories = append(categories, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating category rows: %w", err)
	}
	return categories, nil
}

func (r *MySQLCategoryRepository) FindBySlug(ctx context.Context, slug string) (*domain.Category, error) {
	c, err := scanCategory(r.db.QueryRowContext(ctx, categorySelect+` WHERE c.slug = ? AND c.isActive = 1`, slug))
	if err == sql.ErrNoRows {
		return nil, errors.NewNotFoundError(fmt.Sprintf("catégorie %q introuvable", slug))
	}
	if err != nil {
		return nil, fmt.Errorf("querying category by slug: %w", err)
	}
	return c, nil
}
