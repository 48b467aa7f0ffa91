package controller

import (
	"context"
	"net/http"
	"strconv"

	"bucheron/internal/commons"
	"bucheron/internal/domain"
	"bucheron/internal/dto"
	apperrors "bucheron/internal/errors"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type CatalogService interface {
	Categories(ctx context.Context, f dto.CategoryFilter) ([]domain.Category, error)
	FeaturedCategories(ctx context.Context) ([]domain.Category, error)
	Category(ctx context.Context, slug string) (*domain.Category, error)
	Search(ctx context.Context, f dto.ProductFilter) (*dto.ProductPage, error)
	Featured(ctx context.Context, filter dto.FeaturedFilter, limit int) ([]domain.Product, error)
	Product(ctx context.Context, slug string) (*domain.Product, error)
	Similar(ctx context.Context, productID, limit int) ([]domain.Product, error)
}

type Controller struct {
	service CatalogService
	logger  *zap.Logger
}

func NewController(service CatalogService, logger *zap.Logger) *Controller {
	return &Controller{
		service: service,
		logger:  logger,
	}
}

func (c *Controller) Routes(r chi.Router) {
	r.Get("/categories", c.ListCategories)
	r.Get("/categories/featured", c.FeaturedCategories)
	r.Get("/categories/{slug}", c.GetCategory)
	r.Get("/products/search", c.SearchProducts)
	r.Get("/products/featured", c.FeaturedProducts)
	r.Get("/products/{id:[0-9]+}/similar", c.SimilarProducts)
	r.Get("/products/{slug}", c.GetProduct)
}

func (c *Controller) respond(w http.ResponseWriter, traceID string, logger *zap.Logger, data interface{}, err error) {
	if err != nil {
		commons.WriteError(w, logger, traceID, err)
		return
	}
	commons.WriteSuccess(w, logger, http.StatusOK, traceID, data)
}

func (c *Controller) ListCategories(w http.ResponseWriter, r *http.Request) {
	traceID, logger := commons.NewTrace(c.logger)
	categories, err := c.service.Categories(r.Context(), dto.ParseCategoryFilter(r.URL.Query()))
	c.respond(w, traceID, logger, categories, err)
}

func (c *Controller) FeaturedCategories(w http.ResponseWriter, r *http.Request) {
	traceID, logger := commons.NewTrace(c.logger)
	categories, err := c.service.FeaturedCategories(r.Context())
	c.respond(w, traceID, logger, categories, err)
}

func (c *Controller) GetCategory(w http.ResponseWriter, r *http.Request) {
	traceID, logger := commons.NewTrace(c.logger)
	category, err := c.service.Category(r.Context(), chi.URLParam(r, "slug"))
	c.respond(w, traceID, logger, category, err)
}

func (c *Controller) SearchProducts(w http.ResponseWriter, r *http.Request) {
	traceID, logger := commons.NewTrace(c.logger)
	f := dto.ParseProductFilter(r.URL.Query())
	if f.MinPrice != nil && f.MaxPrice != nil && *f.MinPrice > *f.MaxPrice {
		commons.WriteValidationError(w, logger, traceID, "Filtre de prix invalide", apperrors.ValidationDetail{
			Field:   "minPrice",
			Message: "le prix minimum doit être inférieur au prix maximum",
		})
		return
	}
	page, err := c.service.Search(r.Context(), f)
	c.respond(w, traceID, logger, page, err)
}

func (c *Controller) FeaturedProducts(w http.ResponseWriter, r *http.Request) {
	traceID, logger := commons.NewTrace(c.logger)
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	products, err := c.service.Featured(r.Context(), dto.ParseFeaturedFilter(q.Get("filter")), limit)
	c.respond(w, traceID, logger, products, err)
}

func (c *Controller) GetProduct(w http.ResponseWriter, r *http.Request) {
	traceID, logger := commons.NewTrace(c.logger)
	product, err := c.service.Product(r.Context(), chi.URLParam(r, "slug"))
	c.respond(w, traceID, logger, product, err)
}

func (c *Controller) SimilarProducts(w http.ResponseWriter, r *http.Request) {
	traceID, logger := commons.NewTrace(c.logger)

	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil || id <= 0 {
		commons.WriteValidationError(w, logger, traceID, "identifiant de produit invalide", apperrors.ValidationDetail{
			Field:   "id",
			Message: "id must be a positive integer",
		})
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	products, err := c.service.Similar(r.Context(), id, limit)
	c.respond(w, traceID, logger, products, err)
}
