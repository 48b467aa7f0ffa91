package storefront

import (
	"net/http"
	"net/url"
	"strings"

	"bucheron/internal/apiclient"
	"bucheron/internal/checkout"
	"bucheron/internal/commons"
	apperrors "bucheron/internal/errors"
	"bucheron/internal/shipping"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const defaultCountry = "France"

type checkoutData struct {
	Form      checkout.Form
	Summary   *checkout.Summary
	Countries []shipping.Country
	Errors    map[string]string
}

// CheckoutForm shows the order form next to the cart summary. The shipping line
// follows the ?country=&region= picked on the page. Each rendering issues a new
// idempotency key, carried by the form.
func (h *Handler) CheckoutForm(w http.ResponseWriter, r *http.Request) {
	traceID, logger := commons.NewTrace(h.logger)

	q := r.URL.Query()
	form := checkout.Form{
		Country:        strings.TrimSpace(q.Get("country")),
		Region:         strings.TrimSpace(q.Get("region")),
		IdempotencyKey: uuid.New().String(),
	}
	if form.Country == "" {
		form.Country = defaultCountry
	}

	summary, err := h.checkout.Summarize(r.Context(), sessionKey(r), form.Country, form.Region)
	if err != nil {
		h.fail(w, r, logger, traceID, err)
		return
	}
	if summary.Empty() {
		redirect(w, r, "/panier")
		return
	}

	h.renderCheckout(w, r, logger, http.StatusOK, form, summary, nil, "")
}

// PlaceOrder submits the checkout form. Any failure re-renders the form with
// the customer's input and leaves the cart as it was; API messages such as
// "Stock insuffisant" are shown verbatim.
func (h *Handler) PlaceOrder(w http.ResponseWriter, r *http.Request) {
	traceID, logger := commons.NewTrace(h.logger)

	if err := r.ParseForm(); err != nil {
		logger.Warn("invalid checkout form", zap.Error(err))
		h.render(w, r, logger, http.StatusBadRequest, "error", view{Title: "Commande", Error: msgInvalidForm, TraceID: traceID})
		return
	}
	form := checkout.ParseForm(r.PostForm)
	if form.IdempotencyKey == "" {
		form.IdempotencyKey = uuid.New().String()
	}
	key := sessionKey(r)

	resp, err := h.checkout.Submit(r.Context(), key, form)
	if err == nil {
		redirect(w, r, withFlash("/suivi/"+url.PathEscape(resp.OrderNumber), "ok", "commande"))
		return
	}

	summary, sumErr := h.checkout.Summarize(r.Context(), key, form.Country, form.Region)
	if sumErr != nil {
		h.fail(w, r, logger, traceID, sumErr)
		return
	}

	if ve, ok := apperrors.IsValidationError(err); ok {
		if summary.Empty() {
			redirect(w, r, "/panier")
			return
		}
		fields := make(map[string]string, len(ve.Details))
		for _, d := range ve.Details {
			fields[d.Field] = d.Message
		}
		logger.Info("checkout form rejected", zap.Int("fields", len(fields)))
		h.renderCheckout(w, r, logger, http.StatusBadRequest, form, summary, fields, ve.Message)
		return
	}

	if ae, ok := apiclient.IsError(err); ok {
		status := http.StatusBadGateway
		if ae.Status >= 400 && ae.Status < 500 {
			status = ae.Status
		}
		logger.Warn("order rejected", zap.String("kind", string(ae.Kind)), zap.Int("status", ae.Status), zap.String("message", ae.Message))
		h.renderCheckout(w, r, logger, status, form, summary, nil, ae.Message)
		return
	}

	h.fail(w, r, logger, traceID, err)
}

func (h *Handler) renderCheckout(w http.ResponseWriter, r *http.Request, logger *zap.Logger, status int, form checkout.Form, summary *checkout.Summary, fields map[string]string, banner string) {
	if fields == nil {
		fields = map[string]string{}
	}
	h.render(w, r, logger, status, "checkout", view{
		Title: "Commande",
		Error: banner,
		Data: checkoutData{
			Form:      form,
			Summary:   summary,
			Countries: h.rates.Countries(),
			Errors:    fields,
		},
	})
}
