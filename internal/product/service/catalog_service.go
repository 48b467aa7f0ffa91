package service

import (
	"context"

	"bucheron/internal/domain"
	"bucheron/internal/dto"
)

const maxSimilar = 12

type ProductRepository interface {
	FindBySlug(ctx context.Context, slug string) (*domain.Product, error)
	FindByID(ctx context.Context, id int) (*domain.Product, error)
	Search(ctx context.Context, f dto.ProductFilter) ([]domain.Product, int, error)
	Featured(ctx context.Context, filter dto.FeaturedFilter, limit int) ([]domain.Product, error)
	Similar(ctx context.Context, productID, limit int) ([]domain.Product, error)
}

type CategoryRepository interface {
	List(ctx context.Context, f dto.CategoryFilter) ([]domain.Category, error)
	FindBySlug(ctx context.Context, slug string) (*domain.Category, error)
}

type CatalogService struct {
	products   ProductRepository
	categories CategoryRepository
}

func NewCatalogService(products ProductRepository, categories CategoryRepository) *CatalogService {
	return &CatalogService{products: products, categories: categories}
}

func (s *CatalogService) Categories(ctx context.Context, f dto.CategoryFilter) ([]domain.Category, error) {
	return s.categories.List(ctx, f)
}

func (s *CatalogService) FeaturedCategories(ctx context.Context) ([]domain.Category, error) {
	featured := true
	return s.categories.List(ctx, dto.CategoryFilter{Featured: &featured})
}

func (s *CatalogService) Category(ctx context.Context, slug string) (*domain.Category, error) {
	return s.categories.FindBySlug(ctx, slug)
}

func (s *CatalogService) Search(ctx context.Context, f dto.ProductFilter) (*dto.ProductPage, error) {
	f.Normalize()
	if !f.Sort.Valid() {
		f.Sort = dto.SortNewest
	}
	products, total, err := s.products.Search(ctx, f)
	if err != nil {
		return nil, err
	}
	page := dto.NewProductPage(products, total, f)
	return &page, nil
}

func (s *CatalogService) Featured(ctx context.Context, filter dto.FeaturedFilter, limit int) ([]domain.Product, error) {
	if limit < 1 || limit > dto.MaxPageSize {
		limit = dto.DefaultFeatLimit
	}
	return s.products.Featured(ctx, filter, limit)
}

func (s *CatalogService) Product(ctx context.Context, slug string) (*domain.Product, error) {
	return s.products.FindBySlug(ctx, slug)
}

// Similar checks the product exists first so an unknown id is a 404 rather
// than an empty list.
func (s *CatalogService) Similar(ctx context.Context, productID, limit int) ([]domain.Product, error) {
	if _, err := s.products.FindByID(ctx, productID); err != nil {
		return nil, err
	}
	if limit < 1 || limit > maxSimilar {
		limit = 4
	}
	return s.products.Similar(ctx, productID, limit)
}
