package storefront

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"strings"
	"time"

	"bucheron/internal/apiclient"
	"bucheron/internal/commons"
	"bucheron/internal/domain"
	"bucheron/internal/dto"
	apperrors "bucheron/internal/errors"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static
var staticFS embed.FS

var pageNames = []string{
	"home", "categories", "category", "products", "product", "cart", "checkout",
	"tracking", "lookup", "contact", "legal", "error",
}

const (
	msgUnexpected  = "Une erreur inattendue est survenue, veuillez réessayer."
	msgNotFound    = "La page demandée est introuvable."
	msgInvalidForm = "Le formulaire envoyé est invalide."
)

// Flash messages travel across redirects as ?ok= and ?erreur= keys.
var flashOK = map[string]string{
	"ajoute":   "Le produit a été ajouté à votre panier.",
	"panier":   "Votre panier a été mis à jour.",
	"vide":     "Votre panier a été vidé.",
	"commande": "Votre commande a bien été enregistrée.",
	"recu":     "Votre justificatif de virement a bien été envoyé.",
	"envoye":   "Votre message a bien été envoyé. Nous vous répondrons rapidement.",
	"inscrit":  "Merci, votre inscription à la newsletter est confirmée.",
}

var flashError = map[string]string{
	"stock":        "Stock insuffisant pour ce produit.",
	"indisponible": "Ce produit n'est plus disponible.",
	"deja-inscrit": "Cette adresse email est déjà inscrite à la newsletter.",
	"email":        "Veuillez saisir une adresse email valide.",
	"newsletter":   "L'inscription à la newsletter a échoué, veuillez réessayer.",
	"panier":       "Votre panier n'a pas pu être mis à jour, veuillez réessayer.",
}

// view is the data every page template receives.
type view struct {
	Title     string
	Settings  *domain.Settings
	CartCount int
	Flash     string
	Error     string
	Path      string
	TraceID   string
	Data      interface{}
}

type views struct {
	pages map[string]*template.Template
}

var funcs = template.FuncMap{
	"money": money,
	"date": func(t time.Time) string {
		if t.IsZero() {
			return ""
		}
		return t.Format("02/01/2006")
	},
	"datetime": func(t time.Time) string {
		return t.Format("02/01/2006 à 15:04")
	},
	"pages":    pageLinks,
	"selected": func(a, b string) bool { return a == b },
}

type pageLink struct {
	Number  int
	Href    string
	Current bool
}

// pageLinks keeps the current filters on every page link.
func pageLinks(page *dto.ProductPage, filter dto.ProductFilter) []pageLink {
	if page == nil {
		return nil
	}
	links := make([]pageLink, 0, page.Pages)
	for n := 1; n <= page.Pages; n++ {
		f := filter
		f.Page = n
		links = append(links, pageLink{Number: n, Href: "?" + f.Values().Encode(), Current: n == page.Page})
	}
	return links
}

// money formats an amount the French way: 1234.5 becomes "1234,50 €".
func money(v float64) string {
	return strings.Replace(decimal.NewFromFloat(v).StringFixed(2), ".", ",", 1) + " €"
}

// parseViews builds one template set per page, each sharing the layout.
func parseViews() (*views, error) {
	v := &views{pages: make(map[string]*template.Template, len(pageNames))}
	for _, name := range pageNames {
		t, err := template.New(name).Funcs(funcs).ParseFS(templateFS,
			"templates/layout.html",
			"templates/partials.html",
			"templates/"+name+".html",
		)
		if err != nil {
			return nil, fmt.Errorf("parsing template %s: %w", name, err)
		}
		v.pages[name] = t
	}
	return v, nil
}

func staticHandler() http.Handler {
	sub, err := fs.Sub(staticFS, "static")
	if err != nil {
		panic(err)
	}
	return http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
}

// render fills the layout data and writes the page. The page is rendered to a
// buffer first so a template failure never leaves a half-written response.
func (h *Handler) render(w http.ResponseWriter, r *http.Request, logger *zap.Logger, status int, name string, v view) {
	t, ok := h.views.pages[name]
	if !ok {
		logger.Error("unknown template", zap.String("template", name))
		http.Error(w, msgUnexpected, http.StatusInternalServerError)
		return
	}

	if v.Settings == nil {
		settings, err := h.catalog.Settings(r.Context())
		if err != nil {
			logger.Warn("loading settings for layout", zap.Error(err))
		}
		v.Settings = settings
	}
	if v.Settings == nil {
		v.Settings = &domain.Settings{CompanyName: "Bûcheron", Legal: map[string]string{}}
	}

	if key := sessionKey(r); key != "" {
		if st, err := h.carts.Get(r.Context(), key); err != nil {
			logger.Warn("loading cart for layout", zap.Error(err))
		} else {
			v.CartCount = st.TotalItems()
		}
	}

	q := r.URL.Query()
	if v.Flash == "" {
		v.Flash = flashOK[q.Get("ok")]
	}
	if v.Error == "" {
		v.Error = flashError[q.Get("erreur")]
	}
	v.Path = r.URL.Path

	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "layout", v); err != nil {
		logger.Error("rendering page", zap.String("template", name), zap.Error(err))
		http.Error(w, msgUnexpected, http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if _, err := buf.WriteTo(w); err != nil {
		logger.Debug("writing page", zap.Error(err))
	}
}

// fail renders the error page for err. Messages coming from the API are shown
// as they are; anything else gets a generic message and an error log.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, logger *zap.Logger, traceID string, err error) {
	if _, ok := apperrors.IsNotFoundError(err); ok || apiclient.IsNotFound(err) {
		h.render(w, r, logger, http.StatusNotFound, "error", view{Title: "Page introuvable", Error: msgNotFound, TraceID: traceID})
		return
	}
	if ae, ok := apiclient.IsError(err); ok {
		logger.Warn("api call failed", zap.String("kind", string(ae.Kind)), zap.Int("status", ae.Status), zap.Error(err))
		h.render(w, r, logger, http.StatusBadGateway, "error", view{Title: "Service indisponible", Error: ae.Message, TraceID: traceID})
		return
	}
	logger.Error("unexpected error", zap.Error(err))
	h.render(w, r, logger, http.StatusInternalServerError, "error", view{Title: "Erreur", Error: msgUnexpected, TraceID: traceID})
}

func (h *Handler) NotFound(w http.ResponseWriter, r *http.Request) {
	_, logger := commons.NewTrace(h.logger)
	h.render(w, r, logger, http.StatusNotFound, "error", view{Title: "Page introuvable", Error: msgNotFound})
}

// redirect answers a form post with 303 so a reload never resubmits it.
func redirect(w http.ResponseWriter, r *http.Request, target string) {
	http.Redirect(w, r, target, http.StatusSeeOther)
}

// withFlash appends a flash query key to a local path.
func withFlash(path, key, value string) string {
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return path + sep + key + "=" + value
}

// localPath only lets same-site absolute paths through.
func localPath(raw, fallback string) string {
	if raw == "" || !strings.HasPrefix(raw, "/") || strings.HasPrefix(raw, "//") || strings.HasPrefix(raw, "/\\") {
		return fallback
	}
	return raw
}
