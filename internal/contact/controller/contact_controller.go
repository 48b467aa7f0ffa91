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

type ContactService interface {
	Submit(ctx context.Context, req dto.ContactRequest) (*domain.ContactMessage, error)
}

type ContactController struct {
	service ContactService
	logger  *zap.Logger
}

func NewContactController(service ContactService, logger *zap.Logger) *ContactController {
	return &ContactController{service: service, logger: logger}
}

func (c *ContactController) Routes(r chi.Router) {
	r.Post("/contact", c.Submit)
}

func (c *ContactController) Submit(w http.ResponseWriter, r *http.Request) {
	traceID, logger := commons.NewTrace(c.logger)

	var req dto.ContactRequest
	if err := commons.DecodeJSON(r, &req); err != nil {
		commons.WriteError(w, logger, traceID, err)
		return
	}
	if req.Metadata == nil {
		req.Metadata = map[string]string{}
	}
	if _, ok := req.Metadata["userAgent"]; !ok {
		req.Metadata["userAgent"] = r.UserAgent()
	}
	req.Metadata["remoteAddr"] = r.RemoteAddr

	msg, err := c.service.Submit(r.Context(), req)
	if err != nil {
		commons.WriteError(w, logger, traceID, err)
		return
	}
	commons.WriteSuccess(w, logger, http.StatusCreated, traceID, map[string]interface{}{
		"id":      msg.ID,
		"message": "Votre message a bien été envoyé",
	})
}
