package usecase

import (
	"context"
	"math/rand"
	"strings"
	"sync"
	"time"

	"bucheron/internal/domain"
	"bucheron/internal/dto"
	apperrors "bucheron/internal/errors"
	"bucheron/internal/infrastructure/mailer"
	"bucheron/internal/infrastructure/mysql"
	"bucheron/internal/infrastructure/rabbitmq"

	"go.uber.org/zap"
)

type OrderPlacer interface {
	Place(ctx context.Context, req dto.CreateOrderRequest, idempotencyKey string) (*domain.Order, error)
}

type IdempotencyRepository interface {
	FindByIdempotencyKey(ctx context.Context, key string) (*domain.Order, error)
}

type EventPublisher interface {
	Publish(ctx context.Context, pattern string, data interface{}) error
}

type Mailer interface {
	Send(ctx context.Context, msg mailer.Message) error
}

// Backoff before attempt 2, 3, ...; later attempts reuse the last value.
var retryBackoffs = []time.Duration{100 * time.Millisecond, 200 * time.Millisecond, 400 * time.Millisecond}

// sideEffectTimeout bounds the event publish and confirmation email of one order.
const sideEffectTimeout = 30 * time.Second

type PlaceOrderUseCase struct {
	orderRepo        IdempotencyRepository
	placer           OrderPlacer
	events           EventPublisher
	mail             Mailer
	logger           *zap.Logger
	maxRetryAttempts int
	sleep            func(ctx context.Context, d time.Duration) error
	pending          sync.WaitGroup
}

func NewPlaceOrderUseCase(
	orderRepo IdempotencyRepository,
	placer OrderPlacer,
	events EventPublisher,
	mail Mailer,
	logger *zap.Logger,
	maxRetryAttempts int,
) *PlaceOrderUseCase {
	if maxRetryAttempts < 1 {
		maxRetryAttempts = 1
	}
	return &PlaceOrderUseCase{
		orderRepo:        orderRepo,
		placer:           placer,
		events:           events,
		mail:             mail,
		logger:           logger,
		maxRetryAttempts: maxRetryAttempts,
		sleep:            sleepContext,
	}
}

// Place creates an order. A request carrying an idempotency key that was
// already used returns the stored order and replayed=true instead. The order
// event and confirmation email go out in the background once the order is
// committed; see Wait.
func (uc *PlaceOrderUseCase) Place(ctx context.Context, req dto.CreateOrderRequest, idempotencyKey string) (order *domain.Order, replayed bool, err error) {
	idempotencyKey = strings.TrimSpace(idempotencyKey)
	logger := uc.logger.With(zap.String("idempotencyKey", idempotencyKey))
	logger.Info("place order started", zap.Int("lineCount", len(req.Items)))

	if existing, ok := uc.findReplay(ctx, idempotencyKey); ok {
		logger.Info("order replayed", zap.String("orderNumber", existing.OrderNumber))
		return existing, true, nil
	}

	order, err = uc.placeWithRetry(ctx, req, idempotencyKey, logger)
	if err != nil {
		// A concurrent request with the same key won the insert.
		if _, conflict := apperrors.IsConflictError(err); conflict {
			if existing, ok := uc.findReplay(ctx, idempotencyKey); ok {
				logger.Info("order replayed after concurrent insert", zap.String("orderNumber", existing.OrderNumber))
				return existing, true, nil
			}
		}
		return nil, false, err
	}

	committed := *order
	uc.pending.Add(1)
	go func() {
		defer uc.pending.Done()
		bg, cancel := context.WithTimeout(context.WithoutCancel(ctx), sideEffectTimeout)
		defer cancel()
		uc.afterCommit(bg, &committed, logger.With(zap.String("orderNumber", committed.OrderNumber)))
	}()
	return order, false, nil
}

// Wait blocks until the side effects of placed orders are done or ctx ends.
func (uc *PlaceOrderUseCase) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		uc.pending.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (uc *PlaceOrderUseCase) findReplay(ctx context.Context, key string) (*domain.Order, bool) {
	if key == "" {
		return nil, false
	}
	existing, err := uc.orderRepo.FindByIdempotencyKey(ctx, key)
	if err != nil {
		if _, notFound := apperrors.IsNotFoundError(err); !notFound {
			uc.logger.Error("idempotency lookup failed", zap.Error(err))
		}
		return nil, false
	}
	return existing, true
}

func (uc *PlaceOrderUseCase) placeWithRetry(ctx context.Context, req dto.CreateOrderRequest, key string, logger *zap.Logger) (*domain.Order, error) {
	for attempt := 1; attempt <= uc.maxRetryAttempts; attempt++ {
		order, err := uc.placer.Place(ctx, req, key)
		if err == nil {
			return order, nil
		}
		if !mysql.IsDeadlock(err) {
			return nil, err
		}
		if attempt == uc.maxRetryAttempts {
			break
		}

		delay := backoff(attempt)
		logger.Warn("deadlock detected, retrying",
			zap.Int("attempt", attempt),
			zap.Int("maxAttempts", uc.maxRetryAttempts),
			zap.Duration("backoff", delay),
		)
		if err := uc.sleep(ctx, delay); err != nil {
			return nil, err
		}
	}

	logger.Error("deadlock retries exhausted", zap.Int("maxAttempts", uc.maxRetryAttempts))
	return nil, apperrors.NewDeadlockError("max retries exceeded")
}

// backoff returns the base delay for attempt with ±20% jitter.
func backoff(attempt int) time.Duration {
	i := attempt - 1
	if i >= len(retryBackoffs) {
		i = len(retryBackoffs) - 1
	}
	base := retryBackoffs[i]
	jitter := time.Duration(float64(base) * (rand.Float64()*0.4 - 0.2))
	return base + jitter
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// afterCommit runs the side effects of a new order. The order already exists,
// so failures here are logged and never returned.
func (uc *PlaceOrderUseCase) afterCommit(ctx context.Context, order *domain.Order, logger *zap.Logger) {
	if err := uc.events.Publish(ctx, rabbitmq.EventOrderCreated, order); err != nil {
		logger.Error("failed to publish order event", zap.Error(err))
	}

	msg, err := confirmationMessage(order)
	if err != nil {
		logger.Error("failed to render confirmation email", zap.Error(err))
		return
	}
	if err := uc.mail.Send(ctx, msg); err != nil {
		logger.Error("failed to send confirmation email", zap.Error(err))
	}
}
