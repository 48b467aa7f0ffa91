package storefront

import (
	"net/http"
	"strings"

	"bucheron/internal/apiclient"
	"bucheron/internal/commons"
	"bucheron/internal/dto"
	apperrors "bucheron/internal/errors"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type contactData struct {
	Form   dto.ContactRequest
	Errors map[string]string
}

// ContactForm prefills the order number from ?commande= so the tracking page
// can link to it.
func (h *Handler) ContactForm(w http.ResponseWriter, r *http.Request) {
	_, logger := commons.NewTrace(h.logger)

	form := dto.ContactRequest{OrderNumber: strings.TrimSpace(r.URL.Query().Get("commande"))}
	if form.OrderNumber != "" {
		form.Subject = "Ma commande " + form.OrderNumber
	}
	h.render(w, r, logger, http.StatusOK, "contact", view{
		Title: "Contact",
		Data:  contactData{Form: form, Errors: map[string]string{}},
	})
}

func (h *Handler) SendContact(w http.ResponseWriter, r *http.Request) {
	traceID, logger := commons.NewTrace(h.logger)

	if err := r.ParseForm(); err != nil {
		logger.Warn("invalid contact form", zap.Error(err))
		h.render(w, r, logger, http.StatusBadRequest, "error", view{Title: "Contact", Error: msgInvalidForm, TraceID: traceID})
		return
	}
	get := func(key string) string { return strings.TrimSpace(r.PostForm.Get(key)) }
	form := dto.ContactRequest{
		FirstName:   get("firstName"),
		LastName:    get("lastName"),
		Email:       get("email"),
		Phone:       get("phone"),
		Subject:     get("subject"),
		Message:     get("message"),
		OrderNumber: get("orderNumber"),
		Metadata: map[string]string{
			"source":    "storefront",
			"userAgent": r.UserAgent(),
		},
	}

	rerender := func(status int, fields map[string]string, banner string) {
		if fields == nil {
			fields = map[string]string{}
		}
		h.render(w, r, logger, status, "contact", view{
			Title: "Contact",
			Error: banner,
			Data:  contactData{Form: form, Errors: fields},
		})
	}

	if err := h.validator.Struct(form); err != nil {
		if ve, ok := apperrors.IsValidationError(err); ok {
			fields := make(map[string]string, len(ve.Details))
			for _, d := range ve.Details {
				fields[d.Field] = d.Message
			}
			rerender(http.StatusBadRequest, fields, ve.Message)
			return
		}
		h.fail(w, r, logger, traceID, err)
		return
	}

	if err := h.forms.Contact(r.Context(), form); err != nil {
		if ae, ok := apiclient.IsError(err); ok {
			logger.Warn("contact message rejected", zap.Int("status", ae.Status), zap.String("message", ae.Message))
			rerender(http.StatusBadGateway, nil, ae.Message)
			return
		}
		h.fail(w, r, logger, traceID, err)
		return
	}

	logger.Info("contact message sent", zap.String("subject", form.Subject))
	redirect(w, r, withFlash("/contact", "ok", "envoye"))
}

// Subscribe handles the footer newsletter form and sends the visitor back to
// the page they came from.
func (h *Handler) Subscribe(w http.ResponseWriter, r *http.Request) {
	_, logger := commons.NewTrace(h.logger)

	if err := r.ParseForm(); err != nil {
		logger.Warn("invalid newsletter form", zap.Error(err))
		redirect(w, r, withFlash("/", "erreur", "newsletter"))
		return
	}
	back := localPath(r.PostForm.Get("retour"), "/")

	req := dto.NewsletterRequest{
		Email:     strings.ToLower(strings.TrimSpace(r.PostForm.Get("email"))),
		FirstName: strings.TrimSpace(r.PostForm.Get("firstName")),
		Interests: r.PostForm["interests"],
		Source:    "website",
	}
	if err := h.validator.Struct(req); err != nil {
		redirect(w, r, withFlash(back, "erreur", "email"))
		return
	}

	if err := h.forms.Subscribe(r.Context(), req); err != nil {
		if ae, ok := apiclient.IsError(err); ok && ae.Status == http.StatusConflict {
			redirect(w, r, withFlash(back, "erreur", "deja-inscrit"))
			return
		}
		logger.Warn("newsletter subscription failed", zap.Error(err))
		redirect(w, r, withFlash(back, "erreur", "newsletter"))
		return
	}

	logger.Info("newsletter subscription")
	redirect(w, r, withFlash(back, "ok", "inscrit"))
}

// Legal renders one of the legal pages, preferring the text stored in the site
// settings over the built-in default.
func (h *Handler) Legal(w http.ResponseWriter, r *http.Request) {
	traceID, logger := commons.NewTrace(h.logger)

	settings, err := h.catalog.Settings(r.Context())
	if err != nil {
		logger.Warn("loading settings for legal page", zap.Error(err))
	}
	var overrides map[string]string
	if settings != nil {
		overrides = settings.Legal
	}

	page, err := h.legal.Page(chi.URLParam(r, "page"), overrides)
	if err != nil {
		h.fail(w, r, logger, traceID, err)
		return
	}
	h.render(w, r, logger, http.StatusOK, "legal", view{Title: page.Title, Settings: settings, Data: page})
}
