// Package storefront serves the customer-facing HTML pages. It talks to the
// API through the api client and keeps the cart server-side, keyed by the
// session cookie.
package storefront

import (
	"context"
	"io"
	"net/http"

	"bucheron/internal/cart"
	"bucheron/internal/checkout"
	"bucheron/internal/domain"
	"bucheron/internal/dto"
	"bucheron/internal/infrastructure/metrics"
	"bucheron/internal/legal"
	"bucheron/internal/server"
	"bucheron/internal/shipping"
	"bucheron/internal/tracking"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

type CatalogAPI interface {
	FeaturedCategories(ctx context.Context) ([]domain.Category, error)
	Categories(ctx context.Context, filter dto.CategoryFilter) ([]domain.Category, error)
	Category(ctx context.Context, slug string) (*domain.Category, error)
	SearchProducts(ctx context.Context, filter dto.ProductFilter) (*dto.ProductPage, error)
	FeaturedProducts(ctx context.Context, filter dto.FeaturedFilter, limit int) ([]domain.Product, error)
	Product(ctx context.Context, slug string) (*domain.Product, error)
	SimilarProducts(ctx context.Context, productID, limit int) ([]domain.Product, error)
	Settings(ctx context.Context) (*domain.Settings, error)
}

type OrderAPI interface {
	Order(ctx context.Context, orderNumber string) (*domain.Order, error)
	UploadReceipt(ctx context.Context, orderNumber, filename, contentType string, r io.Reader) (*dto.UploadReceiptResponse, error)
}

type FormsAPI interface {
	Subscribe(ctx context.Context, req dto.NewsletterRequest) error
	Contact(ctx context.Context, req dto.ContactRequest) error
}

type CartStore interface {
	Get(ctx context.Context, key string) (*cart.Store, error)
	Mutate(ctx context.Context, key string, fn func(*cart.Store) error) (*cart.Store, error)
	Clear(ctx context.Context, key string) error
}

type CheckoutService interface {
	Summarize(ctx context.Context, sessionKey, country, region string) (*checkout.Summary, error)
	Submit(ctx context.Context, sessionKey string, form checkout.Form) (*dto.CreateOrderResponse, error)
}

type LegalPages interface {
	Page(slug string, overrides map[string]string) (*legal.Page, error)
}

type OrderPoller interface {
	Run(ctx context.Context, last *domain.Order, fetch tracking.FetchFunc, onUpdate tracking.UpdateFunc) (tracking.Outcome, error)
}

type Validator interface {
	Struct(s interface{}) error
}

// Deps are the collaborators behind the pages.
type Deps struct {
	Catalog   CatalogAPI
	Orders    OrderAPI
	Forms     FormsAPI
	Carts     CartStore
	Checkout  CheckoutService
	Legal     LegalPages
	Poller    OrderPoller
	Validator Validator
	Rates     *shipping.Table
}

type Options struct {
	SessionCookie string
	SecureCookie  bool
}

type Handler struct {
	catalog   CatalogAPI
	orders    OrderAPI
	forms     FormsAPI
	carts     CartStore
	checkout  CheckoutService
	legal     LegalPages
	poller    OrderPoller
	validator Validator
	rates     *shipping.Table
	views     *views
	sessions  *sessions
	logger    *zap.Logger

	// streams is cancelled by CloseStreams to end open event streams.
	streams     context.Context
	stopStreams context.CancelFunc
}

func NewHandler(deps Deps, opts Options, logger *zap.Logger) (*Handler, error) {
	v, err := parseViews()
	if err != nil {
		return nil, err
	}
	streams, stopStreams := context.WithCancel(context.Background())
	return &Handler{
		catalog:   deps.Catalog,
		orders:    deps.Orders,
		forms:     deps.Forms,
		carts:     deps.Carts,
		checkout:  deps.Checkout,
		legal:     deps.Legal,
		poller:    deps.Poller,
		validator: deps.Validator,
		rates:     deps.Rates,
		views:     v,
		sessions:  newSessions(opts.SessionCookie, opts.SecureCookie),
		logger:    logger,

		streams:     streams,
		stopStreams: stopStreams,
	}, nil
}

// CloseStreams ends every open order event stream. The server calls it on
// shutdown; later streams close as soon as they start.
func (h *Handler) CloseStreams() {
	h.stopStreams()
}

func (h *Handler) Routes(r chi.Router) {
	r.Get("/", h.Home)
	r.Get("/categories", h.Categories)
	r.Get("/categories/{slug}", h.Category)
	r.Get("/produits", h.Products)
	r.Get("/produits/{slug}", h.Product)

	r.Get("/panier", h.Cart)
	r.Post("/panier/ajouter", h.AddToCart)
	r.Post("/panier/modifier", h.UpdateCart)
	r.Post("/panier/supprimer", h.RemoveFromCart)
	r.Post("/panier/vider", h.ClearCart)

	r.Get("/commande", h.CheckoutForm)
	r.Post("/commande", h.PlaceOrder)

	r.Get("/suivi", h.TrackingLookup)
	r.Get("/suivi/{orderNumber}", h.Tracking)
	r.Get("/suivi/{orderNumber}/evenements", h.TrackingEvents)
	r.Post("/suivi/{orderNumber}/recu", h.UploadReceipt)

	r.Get("/contact", h.ContactForm)
	r.Post("/contact", h.SendContact)
	r.Post("/newsletter", h.Subscribe)
	r.Get("/legal/{page}", h.Legal)
}

// NewRouter mounts the pages behind the session middleware, next to the
// health, metrics and static asset endpoints.
func NewRouter(h *Handler, api server.Pinger, m *metrics.ServerMetrics, logger *zap.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(server.RequestLogger(logger))
	r.Use(m.Middleware)

	r.Get("/healthz", server.Healthz(api, logger))
	r.Method(http.MethodGet, "/metrics", m.Handler())
	r.Handle("/static/*", staticHandler())

	r.Group(func(pages chi.Router) {
		pages.Use(h.sessions.Middleware)
		h.Routes(pages)
	})
	r.NotFound(h.NotFound)
	return r
}
