package order

import (
	"database/sql"

	"bucheron/internal/config"
	"bucheron/internal/order/controller"
	orderrepo "bucheron/internal/order/repository"
	"bucheron/internal/order/service"
	"bucheron/internal/order/usecase"
	productrepo "bucheron/internal/product/repository"
	"bucheron/internal/shipping"
	"bucheron/internal/validation"

	"go.uber.org/zap"
)

// Deps are the collaborators the order module shares with the rest of the API.
type Deps struct {
	Transactor service.Transactor
	Bank       service.BankDetailsProvider
	Receipts   usecase.ReceiptStore
	Events     usecase.EventPublisher
	Mailer     usecase.Mailer
	Validator  *validation.Validator
	Rates      *shipping.Table
}

type Module struct {
	Controller *controller.OrderController
	// Placement is drained on shutdown so confirmation emails are not lost.
	Placement *usecase.PlaceOrderUseCase
}

func NewModule(db *sql.DB, cfg *config.Config, deps Deps, logger *zap.Logger) *Module {
	orderRepo := orderrepo.NewMySQLOrderRepository(db)
	itemRepo := orderrepo.NewMySQLOrderItemRepository(db)
	historyRepo := orderrepo.NewMySQLStatusHistoryRepository(db)
	productRepo := productrepo.NewMySQLRepository(db)

	placement := service.NewPlacementService(
		deps.Transactor,
		productRepo,
		orderRepo,
		itemRepo,
		historyRepo,
		deps.Bank,
		deps.Rates,
		service.Options{
			TxTimeout:      cfg.Order.TxTimeout,
			TaxRate:        cfg.Order.TaxRate,
			PaymentDueDays: cfg.Order.PaymentDueDays,
			DeliveryDays:   cfg.Order.DeliveryDays,
		},
		logger,
	)

	place := usecase.NewPlaceOrderUseCase(orderRepo, placement, deps.Events, deps.Mailer, logger, cfg.Order.MaxRetryAttempts)
	get := usecase.NewGetOrderUseCase(orderRepo, logger)
	upload := usecase.NewUploadReceiptUseCase(deps.Transactor, orderRepo, historyRepo, deps.Receipts, deps.Events, cfg.Uploads.MaxBytes, logger)

	return &Module{
		Controller: controller.NewOrderController(place, get, upload, deps.Validator, cfg.Uploads.MaxBytes, logger),
		Placement:  place,
	}
}
