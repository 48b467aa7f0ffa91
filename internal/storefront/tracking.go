package storefront

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"bucheron/internal/apiclient"
	"bucheron/internal/commons"
	"bucheron/internal/domain"
	"bucheron/internal/tracking"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

const (
	receiptField = "receipt"
	// multipart envelope allowance on top of the receipt itself
	receiptOverhead = 1 << 20
	// browsers wait this long before reconnecting a dropped event stream
	sseRetry = time.Minute

	msgReceiptRejected = "Le justificatif n'a pas pu être envoyé. Il doit s'agir d'une image JPEG, PNG ou d'un PDF de 10 Mo maximum."
)

type trackingData struct {
	Order     domain.Order
	Steps     []tracking.Step
	Polling   bool
	CanUpload bool
}

func newTrackingData(o domain.Order) trackingData {
	return trackingData{
		Order:   o,
		Steps:   tracking.Timeline(o),
		Polling: tracking.NeedsPolling(o),
		CanUpload: o.PaymentStatus == domain.PaymentStatusPending &&
			o.Status != domain.OrderStatusCancelled,
	}
}

// TrackingLookup shows the order number form, or jumps to the order when
// ?numero= is given.
func (h *Handler) TrackingLookup(w http.ResponseWriter, r *http.Request) {
	_, logger := commons.NewTrace(h.logger)

	if number := domain.NormalizeOrderNumber(r.URL.Query().Get("numero")); number != "" {
		redirect(w, r, "/suivi/"+url.PathEscape(number))
		return
	}
	h.render(w, r, logger, http.StatusOK, "lookup", view{Title: "Suivre ma commande"})
}

func (h *Handler) Tracking(w http.ResponseWriter, r *http.Request) {
	traceID, logger := commons.NewTrace(h.logger)
	h.renderTracking(w, r, logger, traceID, http.StatusOK, chi.URLParam(r, "orderNumber"), "")
}

func (h *Handler) renderTracking(w http.ResponseWriter, r *http.Request, logger *zap.Logger, traceID string, status int, number, banner string) {
	order, err := h.orders.Order(r.Context(), domain.NormalizeOrderNumber(number))
	if err != nil {
		h.fail(w, r, logger, traceID, err)
		return
	}
	h.render(w, r, logger, status, "tracking", view{
		Title: "Commande " + order.OrderNumber,
		Error: banner,
		Data:  newTrackingData(*order),
	})
}

// orderEvent is the payload of an "order" server-sent event.
type orderEvent struct {
	OrderNumber   string               `json:"orderNumber"`
	Status        domain.OrderStatus   `json:"status"`
	PaymentStatus domain.PaymentStatus `json:"paymentStatus"`
	BankDetails   *domain.BankDetails  `json:"bankDetails,omitempty"`
	Steps         []tracking.Step      `json:"steps"`
	Polling       bool                 `json:"polling"`
}

func newOrderEvent(o domain.Order) orderEvent {
	return orderEvent{
		OrderNumber:   o.OrderNumber,
		Status:        o.Status,
		PaymentStatus: o.PaymentStatus,
		BankDetails:   o.BankDetails,
		Steps:         tracking.Timeline(o),
		Polling:       tracking.NeedsPolling(o),
	}
}

// TrackingEvents streams order changes to the tracking page while the order
// waits for its bank transfer details. The stream ends with a "done" event once
// the order is resolved or the poller gives up, and stops silently when the
// browser goes away or the server shuts down.
func (h *Handler) TrackingEvents(w http.ResponseWriter, r *http.Request) {
	_, logger := commons.NewTrace(h.logger)
	number := domain.NormalizeOrderNumber(chi.URLParam(r, "orderNumber"))
	logger = logger.With(zap.String("orderNumber", number))

	last, err := h.orders.Order(r.Context(), number)
	if err != nil {
		if apiclient.IsNotFound(err) {
			http.Error(w, msgNotFound, http.StatusNotFound)
			return
		}
		logger.Warn("loading order for event stream", zap.Error(err))
		http.Error(w, msgUnexpected, http.StatusBadGateway)
		return
	}

	rc := http.NewResponseController(w)
	// the stream outlives the server write timeout
	if err := rc.SetWriteDeadline(time.Time{}); err != nil && !errors.Is(err, http.ErrNotSupported) {
		logger.Warn("clearing write deadline", zap.Error(err))
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	sse := &eventWriter{w: w, rc: rc}
	if err := sse.retry(sseRetry); err != nil {
		return
	}

	fetch := func(ctx context.Context) (*domain.Order, error) {
		return h.orders.Order(ctx, number)
	}
	onUpdate := func(o *domain.Order) error {
		return sse.send("order", newOrderEvent(*o))
	}

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()
	stop := context.AfterFunc(h.streams, cancel)
	defer stop()

	outcome, err := h.poller.Run(ctx, last, fetch, onUpdate)
	if err != nil {
		logger.Debug("event stream closed", zap.Error(err))
		return
	}
	if outcome == tracking.OutcomeCancelled {
		return
	}
	logger.Debug("event stream finished", zap.String("outcome", string(outcome)))
	_ = sse.send("done", map[string]string{"outcome": string(outcome)})
}

type eventWriter struct {
	w  http.ResponseWriter
	rc *http.ResponseController
}

func (e *eventWriter) retry(d time.Duration) error {
	if _, err := fmt.Fprintf(e.w, "retry: %d\n\n", d.Milliseconds()); err != nil {
		return err
	}
	return e.rc.Flush()
}

func (e *eventWriter) send(event string, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encoding %s event: %w", event, err)
	}
	if _, err := fmt.Fprintf(e.w, "event: %s\ndata: %s\n\n", event, data); err != nil {
		return err
	}
	return e.rc.Flush()
}

// UploadReceipt forwards a bank transfer receipt to the API once it has been
// checked locally. Every rejection shows the same banner on the tracking page.
func (h *Handler) UploadReceipt(w http.ResponseWriter, r *http.Request) {
	traceID, logger := commons.NewTrace(h.logger)
	number := domain.NormalizeOrderNumber(chi.URLParam(r, "orderNumber"))

	rejected := func(status int, reason error) {
		logger.Info("receipt rejected", zap.String("orderNumber", number), zap.Error(reason))
		h.renderTracking(w, r, logger, traceID, status, number, msgReceiptRejected)
	}

	r.Body = http.MaxBytesReader(w, r.Body, tracking.MaxReceiptBytes+receiptOverhead)
	if err := r.ParseMultipartForm(receiptOverhead); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			rejected(http.StatusRequestEntityTooLarge, err)
			return
		}
		rejected(http.StatusBadRequest, err)
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile(receiptField)
	if err != nil {
		rejected(http.StatusBadRequest, err)
		return
	}
	defer file.Close()

	data, contentType, err := tracking.ReadReceipt(file, tracking.MaxReceiptBytes)
	if err != nil {
		rejected(http.StatusBadRequest, err)
		return
	}

	if _, err := h.orders.UploadReceipt(r.Context(), number, header.Filename, contentType, bytes.NewReader(data)); err != nil {
		if ae, ok := apiclient.IsError(err); ok && ae.Kind == apiclient.KindServer && ae.Status < http.StatusInternalServerError {
			rejected(ae.Status, err)
			return
		}
		h.fail(w, r, logger, traceID, err)
		return
	}

	logger.Info("receipt uploaded", zap.String("orderNumber", number), zap.Int("bytes", len(data)))
	redirect(w, r, withFlash("/suivi/"+url.PathEscape(number), "ok", "recu"))
}
