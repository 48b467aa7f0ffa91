package product

import (
	"database/sql"

	"bucheron/internal/product/controller"
	"bucheron/internal/product/repository"
	"bucheron/internal/product/service"

	"go.uber.org/zap"
)

func NewModule(db *sql.DB, logger *zap.Logger) *controller.Controller {
	products := repository.NewMySQLRepository(db)
	categories := repository.NewMySQLCategoryRepository(db)
	svc := service.NewCatalogService(products, categories)
	return controller.NewController(svc, logger)
}
