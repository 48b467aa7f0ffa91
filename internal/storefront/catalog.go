package storefront

import (
	"net/http"

	"bucheron/internal/commons"
	"bucheron/internal/domain"
	"bucheron/internal/dto"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const similarLimit = 4

type homeData struct {
	Categories []domain.Category
	Products   []domain.Product
}

// Home loads the featured strips and the site settings in parallel. Any of
// them failing fails the page.
func (h *Handler) Home(w http.ResponseWriter, r *http.Request) {
	traceID, logger := commons.NewTrace(h.logger)

	var (
		data     homeData
		settings *domain.Settings
	)
	g, ctx := errgroup.WithContext(r.Context())
	g.Go(func() error {
		var err error
		data.Categories, err = h.catalog.FeaturedCategories(ctx)
		return err
	})
	g.Go(func() error {
		var err error
		data.Products, err = h.catalog.FeaturedProducts(ctx, dto.FeaturedAll, dto.DefaultFeatLimit)
		return err
	})
	g.Go(func() error {
		var err error
		settings, err = h.catalog.Settings(ctx)
		return err
	})
	if err := g.Wait(); err != nil {
		h.fail(w, r, logger, traceID, err)
		return
	}

	h.render(w, r, logger, http.StatusOK, "home", view{Title: "Accueil", Settings: settings, Data: data})
}

func (h *Handler) Categories(w http.ResponseWriter, r *http.Request) {
	traceID, logger := commons.NewTrace(h.logger)

	active := true
	categories, err := h.catalog.Categories(r.Context(), dto.CategoryFilter{Active: &active})
	if err != nil {
		h.fail(w, r, logger, traceID, err)
		return
	}
	h.render(w, r, logger, http.StatusOK, "categories", view{Title: "Nos catégories", Data: categories})
}

type listingData struct {
	Category *domain.Category
	Page     *dto.ProductPage
	Filter   dto.ProductFilter
	// Categories feeds the filter sidebar on the product search page.
	Categories []domain.Category
}

func (h *Handler) Category(w http.ResponseWriter, r *http.Request) {
	traceID, logger := commons.NewTrace(h.logger)

	slug := chi.URLParam(r, "slug")
	filter := dto.ParseProductFilter(r.URL.Query())
	filter.Category = slug

	var data listingData
	data.Filter = filter
	g, ctx := errgroup.WithContext(r.Context())
	g.Go(func() error {
		var err error
		data.Category, err = h.catalog.Category(ctx, slug)
		return err
	})
	g.Go(func() error {
		var err error
		data.Page, err = h.catalog.SearchProducts(ctx, filter)
		return err
	})
	if err := g.Wait(); err != nil {
		h.fail(w, r, logger, traceID, err)
		return
	}

	h.render(w, r, logger, http.StatusOK, "category", view{Title: data.Category.Name, Data: data})
}

func (h *Handler) Products(w http.ResponseWriter, r *http.Request) {
	traceID, logger := commons.NewTrace(h.logger)

	filter := dto.ParseProductFilter(r.URL.Query())
	page, err := h.catalog.SearchProducts(r.Context(), filter)
	if err != nil {
		h.fail(w, r, logger, traceID, err)
		return
	}

	active := true
	categories, err := h.catalog.Categories(r.Context(), dto.CategoryFilter{Active: &active})
	if err != nil {
		logger.Warn("loading categories for filters", zap.Error(err))
	}

	h.render(w, r, logger, http.StatusOK, "products", view{
		Title: "Nos produits",
		Data:  listingData{Page: page, Filter: filter, Categories: categories},
	})
}

type productData struct {
	Product domain.Product
	Similar []domain.Product
}

func (h *Handler) Product(w http.ResponseWriter, r *http.Request) {
	traceID, logger := commons.NewTrace(h.logger)

	product, err := h.catalog.Product(r.Context(), chi.URLParam(r, "slug"))
	if err != nil {
		h.fail(w, r, logger, traceID, err)
		return
	}

	similar, err := h.catalog.SimilarProducts(r.Context(), product.ID, similarLimit)
	if err != nil {
		logger.Warn("loading similar products", zap.Int("productId", product.ID), zap.Error(err))
	}

	h.render(w, r, logger, http.StatusOK, "product", view{
		Title: product.Name,
		Data:  productData{Product: *product, Similar: similar},
	})
}
