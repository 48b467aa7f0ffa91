package contact

import (
	"database/sql"

	"bucheron/internal/contact/controller"
	"bucheron/internal/contact/repository"
	"bucheron/internal/contact/service"
	"bucheron/internal/validation"

	"go.uber.org/zap"
)

func NewModule(db *sql.DB, validator *validation.Validator, mail service.Mailer, events service.EventPublisher, notify string, logger *zap.Logger) *controller.ContactController {
	repo := repository.NewMySQLMessageRepository(db)
	svc := service.NewContactService(repo, validator, mail, events, notify, logger)
	return controller.NewContactController(svc, logger)
}
