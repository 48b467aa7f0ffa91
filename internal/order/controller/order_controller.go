package controller

import (
	"context"
	stderrors "errors"
	"io"
	"net/http"

	"bucheron/internal/commons"
	"bucheron/internal/domain"
	"bucheron/internal/dto"
	apperrors "bucheron/internal/errors"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

const (
	IdempotencyHeader = "Idempotency-Key"
	receiptField      = "receipt"
	// multipart envelope allowance on top of the receipt itself
	multipartOverhead = 1 << 20
)

type PlaceOrderUseCase interface {
	Place(ctx context.Context, req dto.CreateOrderRequest, idempotencyKey string) (*domain.Order, bool, error)
}

type GetOrderUseCase interface {
	Get(ctx context.Context, number string) (*domain.Order, error)
}

type UploadReceiptUseCase interface {
	Upload(ctx context.Context, number, filename string, r io.Reader) (*dto.UploadReceiptResponse, error)
}

type Validator interface {
	Struct(s interface{}) error
}

type OrderController struct {
	place     PlaceOrderUseCase
	get       GetOrderUseCase
	upload    UploadReceiptUseCase
	validator Validator
	maxUpload int64
	logger    *zap.Logger
}

func NewOrderController(
	place PlaceOrderUseCase,
	get GetOrderUseCase,
	upload UploadReceiptUseCase,
	validator Validator,
	maxUpload int64,
	logger *zap.Logger,
) *OrderController {
	return &OrderController{
		place:     place,
		get:       get,
		upload:    upload,
		validator: validator,
		maxUpload: maxUpload,
		logger:    logger,
	}
}

func (c *OrderController) Routes(r chi.Router) {
	r.Post("/orders", c.Create)
	r.Get("/orders/{orderNumber}", c.Get)
	r.Post("/orders/{orderNumber}/upload-receipt", c.UploadReceipt)
}

func (c *OrderController) Create(w http.ResponseWriter, r *http.Request) {
	traceID, logger := commons.NewTrace(c.logger)

	var req dto.CreateOrderRequest
	if err := commons.DecodeJSON(r, &req); err != nil {
		logger.Warn("invalid JSON body", zap.Error(err))
		commons.WriteError(w, logger, traceID, err)
		return
	}
	if err := c.validator.Struct(req); err != nil {
		logger.Warn("order rejected by validation", zap.Error(err))
		commons.WriteError(w, logger, traceID, err)
		return
	}

	order, replayed, err := c.place.Place(r.Context(), req, r.Header.Get(IdempotencyHeader))
	if err != nil {
		commons.WriteError(w, logger, traceID, err)
		return
	}

	status := http.StatusCreated
	if replayed {
		status = http.StatusOK
	}
	commons.WriteSuccess(w, logger, status, traceID, dto.CreateOrderResponse{
		OrderNumber:       order.OrderNumber,
		Total:             order.Total,
		PaymentDueDate:    order.PaymentDueDate,
		EstimatedDelivery: order.EstimatedDelivery,
	})
}

func (c *OrderController) Get(w http.ResponseWriter, r *http.Request) {
	traceID, logger := commons.NewTrace(c.logger)

	order, err := c.get.Get(r.Context(), chi.URLParam(r, "orderNumber"))
	if err != nil {
		commons.WriteError(w, logger, traceID, err)
		return
	}
	commons.WriteSuccess(w, logger, http.StatusOK, traceID, order)
}

func (c *OrderController) UploadReceipt(w http.ResponseWriter, r *http.Request) {
	traceID, logger := commons.NewTrace(c.logger)

	r.Body = http.MaxBytesReader(w, r.Body, c.maxUpload+multipartOverhead)
	if err := r.ParseMultipartForm(multipartOverhead); err != nil {
		var tooLarge *http.MaxBytesError
		if stderrors.As(err, &tooLarge) {
			commons.WriteError(w, logger, traceID, apperrors.NewTooLargeError("Le fichier dépasse la taille maximale autorisée", c.maxUpload))
			return
		}
		commons.WriteError(w, logger, traceID, missingReceipt())
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile(receiptField)
	if err != nil {
		commons.WriteError(w, logger, traceID, missingReceipt())
		return
	}
	defer file.Close()

	resp, err := c.upload.Upload(r.Context(), chi.URLParam(r, "orderNumber"), header.Filename, file)
	if err != nil {
		commons.WriteError(w, logger, traceID, err)
		return
	}
	commons.WriteSuccess(w, logger, http.StatusCreated, traceID, resp)
}

func missingReceipt() error {
	return apperrors.NewValidationError("Aucun fichier reçu", apperrors.ValidationDetail{
		Field:   receiptField,
		Message: "Ce champ est obligatoire",
	})
}
