package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"bucheron/internal/domain"
	"bucheron/internal/dto"
	"bucheron/internal/errors"
)

const productColumns = `
	p.id, p.slug, p.name, p.shortDescription, COALESCE(p.description, ''), p.price, p.unit,
	p.image, p.images, p.categoryId, COALESCE(c.slug, ''), p.woodType, p.stock,
	p.featured, p.isNew, p.isActive, p.createdAt, p.updatedAt`

const productFrom = `
	FROM Products p
	LEFT JOIN Categories c ON c.id = p.categoryId`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanProduct(row rowScanner) (*domain.Product, error) {
	var (
		p      domain.Product
		images []byte
		stock  sql.NullInt64
	)
	err := row.Scan(
		&p.ID, &p.Slug, &p.Name, &p.ShortDescription, &p.Description, &p.Price, &p.Unit,
		&p.Image, &images, &p.CategoryID, &p.CategorySlug, &p.WoodType, &stock,
		&p.Featured, &p.IsNew, &p.IsActive, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if stock.Valid {
		s := int(stock.Int64)
		p.Stock = &s
	}
	p.Images = []string{}
	if len(images) > 0 {
		if err := json.Unmarshal(images, &p.Images); err != nil {
			return nil, fmt.Errorf("decoding product images: %w", err)
		}
	}
	return &p, nil
}

func scanProducts(rows *sql.Rows) ([]domain.Product, error) {
	defer rows.Close()

	products := []domain.Product{}
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning product row: %w", err)
		}
		products = append(products, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating product rows: %w", err)
	}
	return products, nil
}

type MySQLRepository struct {
	db *sql.DB
}

func NewMySQLRepository(db *sql.DB) *MySQLRepository {
	return &MySQLRepository{db: db}
}

// FindBySlug returns an active product.
func (r *MySQLRepository) FindBySlug(ctx context.Context, slug string) (*domain.Product, error) {
	query := `SELECT ` + productColumns + productFrom + ` WHERE p.slug = ? AND p.isActive = 1`

	p, err := scanProduct(r.db.QueryRowContext(ctx, query, slug))
	if err == sql.ErrNoRows {
		return nil, errors.NewNotFoundError(fmt.Sprintf("produit %q introuvable", slug))
	}
	if err != nil {
		return nil, fmt.Errorf("querying product by slug: %w", err)
	}
	return p, nil
}

func (r *MySQLRepository) FindByID(ctx context.Context, id int) (*domain.Product, error) {
	query := `SELECT ` + productColumns + productFrom + ` WHERE p.id = ?`

	p, err := scanProduct(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, errors.NewNotFoundError(fmt.Sprintf("produit %d introuvable", id))
	}
	if err != nil {
		return nil, fmt.Errorf("querying product by id: %w", err)
	}
	return p, nil
}

var sortClauses = map[dto.ProductSort]string{
	dto.SortNewest:    "p.createdAt DESC, p.id DESC",
	dto.SortPriceAsc:  "p.price ASC, p.id ASC",
	dto.SortPriceDesc: "p.price DESC, p.id ASC",
	dto.SortName:      "p.name ASC, p.id ASC",
}

// Search returns one page of active products and the total match count.
func (r *MySQLRepository) Search(ctx context.Context, f dto.ProductFilter) ([]domain.Product, int, error) {
	f.Normalize()

	where := []string{"p.isActive = 1"}
	var args []interface{}

	if f.Category != "" {
		where = append(where, "c.slug = ?")
		args = append(args, f.Category)
	}
	if f.Query != "" {
		like := "%" + escapeLike(f.Query) + "%"
		where = append(where, "(p.name LIKE ? OR p.shortDescription LIKE ? OR p.woodType LIKE ?)")
		args = append(args, like, like, like)
	}
	if f.WoodType != "" {
		where = append(where, "p.woodType = ?")
		args = append(args, f.WoodType)
	}
	if f.MinPrice != nil {
		where = append(where, "p.price >= ?")
		args = append(args, *f.MinPrice)
	}
	if f.MaxPrice != nil {
		where = append(where, "p.price <= ?")
		args = append(args, *f.MaxPrice)
	}
	if f.InStock {
		where = append(where, "(p.stock IS NULL OR p.stock > 0)")
	}
	cond := " WHERE " + strings.Join(where, " AND ")

	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*)`+productFrom+cond, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("counting products: %w", err)
	}

	order, ok := sortClauses[f.Sort]
	if !ok {
		order = sortClauses[dto.SortNewest]
	}
	query := `SELECT ` + productColumns + productFrom + cond + ` ORDER BY ` + order + ` LIMIT ? OFFSET ?`
	rows, err := r.db.QueryContext(ctx, query, append(args, f.Limit, f.Offset())...)
	if err != nil {
		return nil, 0, fmt.Errorf("querying products: %w", err)
	}
	products, err := scanProducts(rows)
	if err != nil {
		return nil, 0, err
	}
	return products, total, nil
}

func (r *MySQLRepository) Featured(ctx context.Context, filter dto.FeaturedFilter, limit int) ([]domain.Product, error) {
	cond := " WHERE p.isActive = 1 AND p.featured = 1"
	order := "p.createdAt DESC, p.id DESC"
	switch filter {
	case dto.FeaturedNew:
		cond = " WHERE p.isActive = 1 AND p.isNew = 1"
	case dto.FeaturedInStock:
		cond = " WHERE p.isActive = 1 AND (p.stock IS NULL OR p.stock > 0)"
		order = "p.featured DESC, p.createdAt DESC, p.id DESC"
	}

	query := `SELECT ` + productColumns + productFrom + cond + ` ORDER BY ` + order + ` LIMIT ?`
	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("querying featured products: %w", err)
	}
	return scanProducts(rows)
}

// Similar returns other active products of the same category.
func (r *MySQLRepository) Similar(ctx context.Context, productID, limit int) ([]domain.Product, error) {
	query := `SELECT ` + productColumns + productFrom + `
		WHERE p.isActive = 1
		  AND p.id <> ?
		  AND p.categoryId = (SELECT categoryId FROM Products WHERE id = ?)
		ORDER BY p.featured DESC, p.createdAt DESC, p.id DESC
		LIMIT ?`

	rows, err := r.db.QueryContext(ctx, query, productID, productID, limit)
	if err != nil {
		return nil, fmt.Errorf("querying similar products: %w", err)
	}
	return scanProducts(rows)
}

// FindByIDsForUpdate locks the given products for the rest of tx. Rows are
// locked in id order; callers pass ids sorted ascending.
func (r *MySQLRepository) FindByIDsForUpdate(ctx context.Context, tx *sql.Tx, ids []int) ([]domain.Product, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	placeholders := make([]string, len(ids))
	args := make([]interface{}, len(ids))
	for i, id := range ids {
		placeholders[i] = "?"
		args[i] = id
	}

	query := fmt.Sprintf(`SELECT `+productColumns+productFrom+`
		WHERE p.id IN (%s)
		ORDER BY p.id ASC
		FOR UPDATE`, strings.Join(placeholders, ", "))

	rows, err := tx.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying products for update: %w", err)
	}
	return scanProducts(rows)
}

// DecrementStock removes quantity from a stock-tracked product. Untracked
// products (NULL stock) are left alone.
func (r *MySQLRepository) DecrementStock(ctx context.Context, tx *sql.Tx, productID, quantity int) error {
	query := `UPDATE Products SET stock = stock - ? WHERE id = ? AND stock IS NOT NULL AND stock >= ?`

	if _, err := tx.ExecContext(ctx, query, quantity, productID, quantity); err != nil {
		return fmt.Errorf("decrementing product stock: %w", err)
	}
	return nil
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
