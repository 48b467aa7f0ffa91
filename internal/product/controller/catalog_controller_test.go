package controller

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"bucheron/internal/domain"
	"bucheron/internal/dto"
	apperrors "bucheron/internal/errors"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type mockCatalogService struct {
	CategoriesFunc         func(ctx context.Context, f dto.CategoryFilter) ([]domain.Category, error)
	FeaturedCategoriesFunc func(ctx context.Context) ([]domain.Category, error)
	CategoryFunc           func(ctx context.Context, slug string) (*domain.Category, error)
	SearchFunc             func(ctx context.Context, f dto.ProductFilter) (*dto.ProductPage, error)
	FeaturedFunc           func(ctx context.Context, filter dto.FeaturedFilter, limit int) ([]domain.Product, error)
	ProductFunc            func(ctx context.Context, slug string) (*domain.Product, error)
	SimilarFunc            func(ctx context.Context, productID, limit int) ([]domain.Product, error)
}

func (m *mockCatalogService) Categories(ctx context.Context, f dto.CategoryFilter) ([]domain.Category, error) {
	return m.CategoriesFunc(ctx, f)
}

func (m *mockCatalogService) FeaturedCategories(ctx context.Context) ([]domain.Category, error) {
	return m.FeaturedCategoriesFunc(ctx)
}

func (m *mockCatalogService) Category(ctx context.Context, slug string) (*domain.Category, error) {
	return m.CategoryFunc(ctx, slug)
}

func (m *mockCatalogService) Search(ctx context.Context, f dto.ProductFilter) (*dto.ProductPage, error) {
	return m.SearchFunc(ctx, f)
}

func (m *mockCatalogService) Featured(ctx context.Context, filter dto.FeaturedFilter, limit int) ([]domain.Product, error) {
	return m.FeaturedFunc(ctx, filter, limit)
}

func (m *mockCatalogService) Product(ctx context.Context, slug string) (*domain.Product, error) {
	return m.ProductFunc(ctx, slug)
}

func (m *mockCatalogService) Similar(ctx context.Context, productID, limit int) ([]domain.Product, error) {
	return m.SimilarFunc(ctx, productID, limit)
}

func serve(svc CatalogService, method, target string) *httptest.ResponseRecorder {
	r := chi.NewRouter()
	r.Route("/api", NewController(svc, zap.NewNop()).Routes)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(method, target, nil))
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) dto.RawResponse {
	t.Helper()
	var resp dto.RawResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	return resp
}

func TestController_ListCategoriesParsesFlags(t *testing.T) {
	var got dto.CategoryFilter
	svc := &mockCatalogService{CategoriesFunc: func(_ context.Context, f dto.CategoryFilter) ([]domain.Category, error) {
		got = f
		return []domain.Category{{Slug: "bois"}}, nil
	}}

	rec := serve(svc, http.MethodGet, "/api/categories?featured")
	assert.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, got.Featured)
	assert.True(t, *got.Featured)
	assert.Nil(t, got.Active)

	resp := decode(t, rec)
	assert.True(t, resp.Success)
	assert.NotEmpty(t, resp.TraceID)
}

func TestController_GetProductNotFound(t *testing.T) {
	svc := &mockCatalogService{ProductFunc: func(_ context.Context, slug string) (*domain.Product, error) {
		assert.Equal(t, "chene-33", slug)
		return nil, apperrors.NewNotFoundError("produit introuvable")
	}}

	rec := serve(svc, http.MethodGet, "/api/products/chene-33")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	resp := decode(t, rec)
	assert.False(t, resp.Success)
	assert.Equal(t, dto.TypeNotFound, resp.Type)
}

func TestController_SearchProducts(t *testing.T) {
	var got dto.ProductFilter
	svc := &mockCatalogService{SearchFunc: func(_ context.Context, f dto.ProductFilter) (*dto.ProductPage, error) {
		got = f
		page := dto.NewProductPage(nil, 0, f)
		return &page, nil
	}}

	rec := serve(svc, http.MethodGet, "/api/products/search?category=bois&q=ch%C3%AAne&minPrice=10&sort=price_desc&page=3&limit=500")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "bois", got.Category)
	assert.Equal(t, "chêne", got.Query)
	assert.Equal(t, dto.SortPriceDesc, got.Sort)
	assert.Equal(t, 3, got.Page)
	assert.Equal(t, dto.MaxPageSize, got.Limit)
	require.NotNil(t, got.MinPrice)
	assert.Equal(t, 10.0, *got.MinPrice)
}

func TestController_SearchRejectsInvertedPriceRange(t *testing.T) {
	rec := serve(&mockCatalogService{}, http.MethodGet, "/api/products/search?minPrice=100&maxPrice=10")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, dto.TypeValidation, decode(t, rec).Type)
}

func TestController_FeaturedProductsRouteWinsOverSlug(t *testing.T) {
	svc := &mockCatalogService{FeaturedFunc: func(_ context.Context, filter dto.FeaturedFilter, limit int) ([]domain.Product, error) {
		assert.Equal(t, dto.FeaturedNew, filter)
		assert.Equal(t, 4, limit)
		return []domain.Product{}, nil
	}}

	rec := serve(svc, http.MethodGet, "/api/products/featured?filter=new&limit=4")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestController_SimilarProducts(t *testing.T) {
	svc := &mockCatalogService{SimilarFunc: func(_ context.Context, id, limit int) ([]domain.Product, error) {
		assert.Equal(t, 42, id)
		assert.Equal(t, 3, limit)
		return []domain.Product{{ID: 43}}, nil
	}}

	rec := serve(svc, http.MethodGet, "/api/products/42/similar?limit=3")
	assert.Equal(t, http.StatusOK, rec.Code)

	var products []domain.Product
	require.NoError(t, json.Unmarshal(decode(t, rec).Data, &products))
	require.Len(t, products, 1)
	assert.Equal(t, 43, products[0].ID)
}
