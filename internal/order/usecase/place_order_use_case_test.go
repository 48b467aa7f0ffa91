package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"bucheron/internal/domain"
	"bucheron/internal/dto"
	apperrors "bucheron/internal/errors"
	"bucheron/internal/infrastructure/mailer"
	"bucheron/internal/infrastructure/rabbitmq"

	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func createDeadlockError() error {
	return &mysql.MySQLError{Number: 1213}
}

// Mock implementations

type mockIdempotencyRepo struct {
	FindByIdempotencyKeyFunc func(ctx context.Context, key string) (*domain.Order, error)
}

func (m *mockIdempotencyRepo) FindByIdempotencyKey(ctx context.Context, key string) (*domain.Order, error) {
	return m.FindByIdempotencyKeyFunc(ctx, key)
}

func noStoredOrder() *mockIdempotencyRepo {
	return &mockIdempotencyRepo{FindByIdempotencyKeyFunc: func(context.Context, string) (*domain.Order, error) {
		return nil, apperrors.NewNotFoundError("absent")
	}}
}

type mockPlacer struct {
	PlaceFunc func(ctx context.Context, req dto.CreateOrderRequest, key string) (*domain.Order, error)
	calls     int
}

func (m *mockPlacer) Place(ctx context.Context, req dto.CreateOrderRequest, key string) (*domain.Order, error) {
	m.calls++
	return m.PlaceFunc(ctx, req, key)
}

type recordingPublisher struct {
	patterns []string
	err      error
}

func (p *recordingPublisher) Publish(_ context.Context, pattern string, _ interface{}) error {
	p.patterns = append(p.patterns, pattern)
	return p.err
}

type recordingMailer struct {
	sent []mailer.Message
	err  error
}

func (m *recordingMailer) Send(_ context.Context, msg mailer.Message) error {
	m.sent = append(m.sent, msg)
	return m.err
}

func newTestPlaceOrderUseCase(repo IdempotencyRepository, placer OrderPlacer, events EventPublisher, mail Mailer) *PlaceOrderUseCase {
	uc := NewPlaceOrderUseCase(repo, placer, events, mail, zap.NewNop(), 3)
	uc.sleep = func(context.Context, time.Duration) error { return nil }
	return uc
}

func placedOrder() *domain.Order {
	return &domain.Order{
		OrderNumber: "CMD-20260314-ABC123",
		Customer:    domain.Customer{FirstName: "Jean", Email: "jean@exemple.fr"},
		Items:       []domain.OrderItem{{Name: "Chêne", Unit: "stère", Quantity: 2, Price: 85, Total: 170}},
		Subtotal:    170, ShippingCost: 20, Total: 190,
		Status: domain.OrderStatusPending, PaymentStatus: domain.PaymentStatusPending,
	}
}

// Tests

func TestPlaceOrder_Success(t *testing.T) {
	placer := &mockPlacer{PlaceFunc: func(context.Context, dto.CreateOrderRequest, string) (*domain.Order, error) {
		return placedOrder(), nil
	}}
	events := &recordingPublisher{}
	mail := &recordingMailer{}
	uc := newTestPlaceOrderUseCase(noStoredOrder(), placer, events, mail)

	order, replayed, err := uc.Place(context.Background(), dto.CreateOrderRequest{}, "key-1")

	require.NoError(t, err)
	assert.False(t, replayed)
	assert.Equal(t, "CMD-20260314-ABC123", order.OrderNumber)
	require.NoError(t, uc.Wait(context.Background()))
	assert.Equal(t, []string{rabbitmq.EventOrderCreated}, events.patterns)
	require.Len(t, mail.sent, 1)
	assert.Equal(t, "jean@exemple.fr", mail.sent[0].To)
	assert.Contains(t, mail.sent[0].Subject, "CMD-20260314-ABC123")
	assert.Contains(t, mail.sent[0].HTML, "coordonnées bancaires")
}

func TestPlaceOrder_SideEffectFailuresAreNotFatal(t *testing.T) {
	placer := &mockPlacer{PlaceFunc: func(context.Context, dto.CreateOrderRequest, string) (*domain.Order, error) {
		return placedOrder(), nil
	}}
	events := &recordingPublisher{err: errors.New("broker down")}
	mail := &recordingMailer{err: errors.New("smtp down")}
	uc := newTestPlaceOrderUseCase(noStoredOrder(), placer, events, mail)

	order, _, err := uc.Place(context.Background(), dto.CreateOrderRequest{}, "")

	require.NoError(t, err)
	assert.NotNil(t, order)
	require.NoError(t, uc.Wait(context.Background()))
	assert.Len(t, mail.sent, 1)
}

type mailerFunc func(ctx context.Context, msg mailer.Message) error

func (f mailerFunc) Send(ctx context.Context, msg mailer.Message) error { return f(ctx, msg) }

func TestPlaceOrder_RespondsBeforeSlowMail(t *testing.T) {
	placer := &mockPlacer{PlaceFunc: func(context.Context, dto.CreateOrderRequest, string) (*domain.Order, error) {
		return placedOrder(), nil
	}}
	release := make(chan struct{})
	var mailCtxErr error
	mail := mailerFunc(func(ctx context.Context, _ mailer.Message) error {
		<-release
		mailCtxErr = ctx.Err()
		return nil
	})
	uc := newTestPlaceOrderUseCase(noStoredOrder(), placer, &recordingPublisher{}, mail)

	reqCtx, cancelReq := context.WithCancel(context.Background())
	start := time.Now()
	order, _, err := uc.Place(reqCtx, dto.CreateOrderRequest{}, "")
	cancelReq()

	require.NoError(t, err)
	assert.Equal(t, "CMD-20260314-ABC123", order.OrderNumber)
	assert.Less(t, time.Since(start), time.Second)

	short, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, uc.Wait(short), context.DeadlineExceeded)

	close(release)
	require.NoError(t, uc.Wait(context.Background()))
	assert.NoError(t, mailCtxErr)
}

func TestPlaceOrder_IdempotentReplay(t *testing.T) {
	stored := placedOrder()
	repo := &mockIdempotencyRepo{FindByIdempotencyKeyFunc: func(_ context.Context, key string) (*domain.Order, error) {
		assert.Equal(t, "key-1", key)
		return stored, nil
	}}
	placer := &mockPlacer{PlaceFunc: func(context.Context, dto.CreateOrderRequest, string) (*domain.Order, error) {
		t.Fatal("placer must not be called on replay")
		return nil, nil
	}}
	events := &recordingPublisher{}
	mail := &recordingMailer{}
	uc := newTestPlaceOrderUseCase(repo, placer, events, mail)

	order, replayed, err := uc.Place(context.Background(), dto.CreateOrderRequest{}, " key-1 ")

	require.NoError(t, err)
	assert.True(t, replayed)
	assert.Same(t, stored, order)
	assert.Empty(t, events.patterns)
	assert.Empty(t, mail.sent)
}

func TestPlaceOrder_ConcurrentDuplicateKeyReplays(t *testing.T) {
	lookups := 0
	repo := &mockIdempotencyRepo{FindByIdempotencyKeyFunc: func(context.Context, string) (*domain.Order, error) {
		lookups++
		if lookups == 1 {
			return nil, apperrors.NewNotFoundError("absent")
		}
		return placedOrder(), nil
	}}
	placer := &mockPlacer{PlaceFunc: func(context.Context, dto.CreateOrderRequest, string) (*domain.Order, error) {
		return nil, apperrors.NewConflictError("commande déjà enregistrée")
	}}
	uc := newTestPlaceOrderUseCase(repo, placer, &recordingPublisher{}, &recordingMailer{})

	order, replayed, err := uc.Place(context.Background(), dto.CreateOrderRequest{}, "key-1")

	require.NoError(t, err)
	assert.True(t, replayed)
	assert.Equal(t, "CMD-20260314-ABC123", order.OrderNumber)
}

func TestPlaceOrder_StockConflictPassesThrough(t *testing.T) {
	placer := &mockPlacer{PlaceFunc: func(context.Context, dto.CreateOrderRequest, string) (*domain.Order, error) {
		return nil, apperrors.NewConflictError("Stock insuffisant")
	}}
	uc := newTestPlaceOrderUseCase(noStoredOrder(), placer, &recordingPublisher{}, &recordingMailer{})

	_, _, err := uc.Place(context.Background(), dto.CreateOrderRequest{}, "key-1")

	ce, ok := apperrors.IsConflictError(err)
	require.True(t, ok)
	assert.Equal(t, "Stock insuffisant", ce.Message)
	assert.Equal(t, 1, placer.calls)
}

func TestPlaceOrder_DeadlockRetry(t *testing.T) {
	placer := &mockPlacer{}
	placer.PlaceFunc = func(context.Context, dto.CreateOrderRequest, string) (*domain.Order, error) {
		if placer.calls == 1 {
			return nil, createDeadlockError()
		}
		return placedOrder(), nil
	}
	uc := newTestPlaceOrderUseCase(noStoredOrder(), placer, &recordingPublisher{}, &recordingMailer{})

	order, _, err := uc.Place(context.Background(), dto.CreateOrderRequest{}, "")

	require.NoError(t, err)
	assert.NotNil(t, order)
	assert.Equal(t, 2, placer.calls)
}

func TestPlaceOrder_DeadlockMaxRetries(t *testing.T) {
	placer := &mockPlacer{PlaceFunc: func(context.Context, dto.CreateOrderRequest, string) (*domain.Order, error) {
		return nil, createDeadlockError()
	}}
	uc := newTestPlaceOrderUseCase(noStoredOrder(), placer, &recordingPublisher{}, &recordingMailer{})

	_, _, err := uc.Place(context.Background(), dto.CreateOrderRequest{}, "")

	_, ok := apperrors.IsDeadlockError(err)
	assert.True(t, ok)
	assert.Equal(t, 3, placer.calls)
}

func TestPlaceOrder_RetryStopsOnCancelledContext(t *testing.T) {
	placer := &mockPlacer{PlaceFunc: func(context.Context, dto.CreateOrderRequest, string) (*domain.Order, error) {
		return nil, createDeadlockError()
	}}
	uc := NewPlaceOrderUseCase(noStoredOrder(), placer, &recordingPublisher{}, &recordingMailer{}, zap.NewNop(), 3)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, _, err := uc.Place(ctx, dto.CreateOrderRequest{}, "")

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, placer.calls)
}

func TestBackoff_Jitter(t *testing.T) {
	for attempt := 1; attempt <= 5; attempt++ {
		base := retryBackoffs[len(retryBackoffs)-1]
		if attempt-1 < len(retryBackoffs) {
			base = retryBackoffs[attempt-1]
		}
		d := backoff(attempt)
		assert.GreaterOrEqual(t, d, base*8/10)
		assert.LessOrEqual(t, d, base*12/10)
	}
}

func TestConfirmationMessage_WithBankDetails(t *testing.T) {
	order := placedOrder()
	order.BankDetails = &domain.BankDetails{BankName: "Crédit Agricole", IBAN: "FR76 1234", BIC: "AGRIFRPP", Reference: order.OrderNumber}

	msg, err := confirmationMessage(order)

	require.NoError(t, err)
	assert.Contains(t, msg.HTML, "FR76 1234")
	assert.Contains(t, msg.HTML, "190.00 €")
	assert.NotContains(t, msg.HTML, "très prochainement")
}
