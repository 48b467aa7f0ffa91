package newsletter

import (
	"database/sql"

	"bucheron/internal/newsletter/controller"
	"bucheron/internal/newsletter/repository"
	"bucheron/internal/newsletter/service"
	"bucheron/internal/validation"

	"go.uber.org/zap"
)

func NewModule(db *sql.DB, validator *validation.Validator, logger *zap.Logger) *controller.SubscriptionController {
	repo := repository.NewMySQLSubscriptionRepository(db)
	svc := service.NewSubscriptionService(repo, validator, logger)
	return controller.NewSubscriptionController(svc, logger)
}
