package usecase

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"time"

	"bucheron/internal/domain"
	"bucheron/internal/dto"
	apperrors "bucheron/internal/errors"
	"bucheron/internal/infrastructure/rabbitmq"
	"bucheron/internal/tracking"

	"go.uber.org/zap"
)

const receiptHistoryNote = "Justificatif de virement reçu"

type OrderRepository interface {
	FindByNumber(ctx context.Context, number string) (*domain.Order, error)
	AttachReceipt(ctx context.Context, tx *sql.Tx, id uint, path string) error
}

type StatusHistoryRepository interface {
	Insert(ctx context.Context, tx *sql.Tx, orderID uint, change domain.StatusChange) error
}

type Transactor interface {
	WithinTx(ctx context.Context, opts *sql.TxOptions, fn func(tx *sql.Tx) error) error
}

type ReceiptStore interface {
	Save(ctx context.Context, name string, data []byte) (string, error)
	Remove(ctx context.Context, path string) error
}

type GetOrderUseCase struct {
	orderRepo OrderRepository
	logger    *zap.Logger
}

func NewGetOrderUseCase(orderRepo OrderRepository, logger *zap.Logger) *GetOrderUseCase {
	return &GetOrderUseCase{orderRepo: orderRepo, logger: logger}
}

func (uc *GetOrderUseCase) Get(ctx context.Context, number string) (*domain.Order, error) {
	return uc.orderRepo.FindByNumber(ctx, domain.NormalizeOrderNumber(number))
}

type UploadReceiptUseCase struct {
	tx          Transactor
	orderRepo   OrderRepository
	historyRepo StatusHistoryRepository
	store       ReceiptStore
	events      EventPublisher
	maxBytes    int64
	logger      *zap.Logger
	now         func() time.Time
}

func NewUploadReceiptUseCase(
	tx Transactor,
	orderRepo OrderRepository,
	historyRepo StatusHistoryRepository,
	store ReceiptStore,
	events EventPublisher,
	maxBytes int64,
	logger *zap.Logger,
) *UploadReceiptUseCase {
	return &UploadReceiptUseCase{
		tx:          tx,
		orderRepo:   orderRepo,
		historyRepo: historyRepo,
		store:       store,
		events:      events,
		maxBytes:    maxBytes,
		logger:      logger,
		now:         time.Now,
	}
}

// Upload validates the receipt from its content, stores it and records it on
// the order. A cancelled order or one already paid does not accept receipts.
func (uc *UploadReceiptUseCase) Upload(ctx context.Context, number, filename string, r io.Reader) (*dto.UploadReceiptResponse, error) {
	order, err := uc.orderRepo.FindByNumber(ctx, domain.NormalizeOrderNumber(number))
	if err != nil {
		return nil, err
	}
	logger := uc.logger.With(zap.String("orderNumber", order.OrderNumber))

	if order.Status == domain.OrderStatusCancelled {
		return nil, apperrors.NewConflictError("Cette commande a été annulée")
	}
	if order.PaymentStatus == domain.PaymentStatusReceived {
		return nil, apperrors.NewConflictError("Le paiement de cette commande a déjà été reçu")
	}

	data, contentType, err := tracking.ReadReceipt(r, uc.maxBytes)
	if err != nil {
		logger.Warn("receipt rejected", zap.String("filename", filename), zap.Error(err))
		return nil, err
	}

	now := uc.now().UTC()
	name := fmt.Sprintf("%s-%d%s", order.OrderNumber, now.UnixNano(), tracking.Extension(contentType))
	path, err := uc.store.Save(ctx, name, data)
	if err != nil {
		return nil, apperrors.NewInternalError("impossible d'enregistrer le justificatif", err)
	}

	err = uc.tx.WithinTx(ctx, nil, func(tx *sql.Tx) error {
		if err := uc.orderRepo.AttachReceipt(ctx, tx, order.ID, path); err != nil {
			return err
		}
		return uc.historyRepo.Insert(ctx, tx, order.ID, domain.StatusChange{
			Status:        order.Status,
			PaymentStatus: order.PaymentStatus,
			Note:          receiptHistoryNote,
			At:            now,
		})
	})
	if err != nil {
		if rmErr := uc.store.Remove(context.WithoutCancel(ctx), path); rmErr != nil {
			logger.Error("failed to remove orphaned receipt", zap.String("path", path), zap.Error(rmErr))
		}
		return nil, err
	}

	resp := &dto.UploadReceiptResponse{
		OrderNumber: order.OrderNumber,
		Filename:    filename,
		ContentType: contentType,
		Size:        int64(len(data)),
	}
	if err := uc.events.Publish(ctx, rabbitmq.EventOrderReceiptUploaded, resp); err != nil {
		logger.Error("failed to publish receipt event", zap.Error(err))
	}

	logger.Info("receipt uploaded", zap.String("contentType", contentType), zap.Int64("size", resp.Size))
	return resp, nil
}
