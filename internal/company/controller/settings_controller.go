package controller

import (
	"context"
	"net/http"

	"bucheron/internal/commons"
	"bucheron/internal/domain"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type SettingsService interface {
	Settings(ctx context.Context) (*domain.Settings, error)
}

type SettingsController struct {
	service SettingsService
	logger  *zap.Logger
}

func NewSettingsController(service SettingsService, logger *zap.Logger) *SettingsController {
	return &SettingsController{service: service, logger: logger}
}

func (c *SettingsController) Routes(r chi.Router) {
	r.Get("/settings", c.GetSettings)
}

func (c *SettingsController) GetSettings(w http.ResponseWriter, r *http.Request) {
	traceID, logger := commons.NewTrace(c.logger)

	settings, err := c.service.Settings(r.Context())
	if err != nil {
		commons.WriteError(w, logger, traceID, err)
		return
	}
	commons.WriteSuccess(w, logger, http.StatusOK, traceID, settings)
}
