package company

import (
	"database/sql"

	"bucheron/internal/company/controller"
	"bucheron/internal/company/repository"
	"bucheron/internal/company/service"

	"go.uber.org/zap"
)

type Module struct {
	Service    *service.SettingsService
	Controller *controller.SettingsController
}

func NewModule(db *sql.DB, logger *zap.Logger) *Module {
	svc := service.NewSettingsService(repository.NewMySQLSettingsRepository(db), logger)
	return &Module{
		Service:    svc,
		Controller: controller.NewSettingsController(svc, logger),
	}
}
