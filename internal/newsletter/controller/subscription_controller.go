package controller

import (
	"context"
	"net/http"

	"bucheron/internal/commons"
	"bucheron/internal/domain"
	"bucheron/internal/dto"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type SubscriptionService interface {
	Subscribe(ctx context.Context, req dto.NewsletterRequest) (*domain.NewsletterSubscription, error)
}

type SubscriptionController struct {
	service SubscriptionService
	logger  *zap.Logger
}

func NewSubscriptionController(service SubscriptionService, logger *zap.Logger) *SubscriptionController {
	return &SubscriptionController{service: service, logger: logger}
}

func (c *SubscriptionController) Routes(r chi.Router) {
	r.Post("/newsletter/subscribe", c.Subscribe)
}

func (c *SubscriptionController) Subscribe(w http.ResponseWriter, r *http.Request) {
	traceID, logger := commons.NewTrace(c.logger)

	var req dto.NewsletterRequest
	if err := commons.DecodeJSON(r, &req); err != nil {
		commons.WriteError(w, logger, traceID, err)
		return
	}

	sub, err := c.service.Subscribe(r.Context(), req)
	if err != nil {
		commons.WriteError(w, logger, traceID, err)
		return
	}
	commons.WriteSuccess(w, logger, http.StatusCreated, traceID, sub)
}
