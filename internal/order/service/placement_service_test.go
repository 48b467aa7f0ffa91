package service

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"bucheron/internal/domain"
	"bucheron/internal/dto"
	apperrors "bucheron/internal/errors"
	"bucheron/internal/shipping"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func intPtr(i int) *int {
	return &i
}

// Mock implementations

type mockTransactor struct {
	calls int
	opts  *sql.TxOptions
}

func (m *mockTransactor) WithinTx(_ context.Context, opts *sql.TxOptions, fn func(tx *sql.Tx) error) error {
	m.calls++
	m.opts = opts
	return fn(nil)
}

type mockProductRepository struct {
	FindByIDsForUpdateFunc func(ctx context.Context, tx *sql.Tx, ids []int) ([]domain.Product, error)
	DecrementStockFunc     func(ctx context.Context, tx *sql.Tx, productID, quantity int) error
}

func (m *mockProductRepository) FindByIDsForUpdate(ctx context.Context, tx *sql.Tx, ids []int) ([]domain.Product, error) {
	return m.FindByIDsForUpdateFunc(ctx, tx, ids)
}

func (m *mockProductRepository) DecrementStock(ctx context.Context, tx *sql.Tx, productID, quantity int) error {
	return m.DecrementStockFunc(ctx, tx, productID, quantity)
}

type mockOrderRepository struct {
	inserted *domain.Order
	err      error
}

func (m *mockOrderRepository) Insert(_ context.Context, _ *sql.Tx, o *domain.Order) (uint, error) {
	if m.err != nil {
		return 0, m.err
	}
	m.inserted = o
	return 42, nil
}

type mockOrderItemRepository struct {
	items []domain.OrderItem
}

func (m *mockOrderItemRepository) Insert(_ context.Context, _ *sql.Tx, item domain.OrderItem) (uint, error) {
	m.items = append(m.items, item)
	return uint(len(m.items)), nil
}

type mockHistoryRepository struct {
	changes []domain.StatusChange
}

func (m *mockHistoryRepository) Insert(_ context.Context, _ *sql.Tx, _ uint, change domain.StatusChange) error {
	m.changes = append(m.changes, change)
	return nil
}

type mockBank struct {
	details *domain.BankDetails
	err     error
}

func (m *mockBank) BankDetails(context.Context) (*domain.BankDetails, error) {
	return m.details, m.err
}

type fixture struct {
	tx       *mockTransactor
	products *mockProductRepository
	orders   *mockOrderRepository
	items    *mockOrderItemRepository
	history  *mockHistoryRepository
	bank     *mockBank
	decr     map[int]int
}

func newFixture(products ...domain.Product) *fixture {
	f := &fixture{
		tx:      &mockTransactor{},
		orders:  &mockOrderRepository{},
		items:   &mockOrderItemRepository{},
		history: &mockHistoryRepository{},
		bank:    &mockBank{},
		decr:    map[int]int{},
	}
	f.products = &mockProductRepository{
		FindByIDsForUpdateFunc: func(_ context.Context, _ *sql.Tx, ids []int) ([]domain.Product, error) {
			var out []domain.Product
			for _, id := range ids {
				for _, p := range products {
					if p.ID == id {
						out = append(out, p)
					}
				}
			}
			return out, nil
		},
		DecrementStockFunc: func(_ context.Context, _ *sql.Tx, productID, quantity int) error {
			f.decr[productID] += quantity
			return nil
		},
	}
	return f
}

func (f *fixture) service(opts Options) *PlacementService {
	svc := NewPlacementService(f.tx, f.products, f.orders, f.items, f.history, f.bank, shipping.Default(), opts, zap.NewNop())
	svc.now = func() time.Time { return time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC) }
	return svc
}

func defaultOptions() Options {
	return Options{TxTimeout: 5 * time.Second, PaymentDueDays: 7, DeliveryDays: 10}
}

func request(lines ...dto.OrderLine) dto.CreateOrderRequest {
	return dto.CreateOrderRequest{
		Customer: domain.Customer{FirstName: "Jean", LastName: "Dupont", Email: "jean@exemple.fr", Phone: "0612345678"},
		ShippingAddress: domain.ShippingAddress{
			Street: "1 rue des Chênes", PostalCode: "75001", City: "Paris", Country: "France", Region: "Île-de-France",
		},
		Items: lines,
	}
}

// Tests

func TestPlace_Success(t *testing.T) {
	f := newFixture(
		domain.Product{ID: 1, Name: "Chêne", Unit: "stère", Price: 85, IsActive: true, Stock: intPtr(10)},
		domain.Product{ID: 2, Name: "Allume-feu", Price: 12.5, IsActive: true},
	)
	f.bank.details = &domain.BankDetails{IBAN: "FR76 1234", BIC: "AGRIFRPP"}
	svc := f.service(defaultOptions())

	order, err := svc.Place(context.Background(), request(
		dto.OrderLine{ProductID: 2, Quantity: 2},
		dto.OrderLine{ProductID: 1, Quantity: 2},
	), "key-1")

	require.NoError(t, err)
	assert.Equal(t, uint(42), order.ID)
	assert.Regexp(t, regexp.MustCompile(`^CMD-20260314-[0-9A-F]{6}$`), order.OrderNumber)
	assert.Equal(t, sql.LevelRepeatableRead, f.tx.opts.Isolation)

	assert.Equal(t, 195.0, order.Subtotal)
	assert.Equal(t, order.Subtotal+order.ShippingCost+order.Tax, order.Total)
	assert.Equal(t, 0.0, order.Tax)

	require.Len(t, f.items.items, 2)
	assert.Equal(t, 1, f.items.items[0].ProductID)
	assert.Equal(t, "stère", f.items.items[1].Unit)
	assert.Equal(t, uint(42), f.items.items[0].OrderID)

	assert.Equal(t, map[int]int{1: 2}, f.decr)

	require.NotNil(t, order.BankDetails)
	assert.Equal(t, order.OrderNumber, order.BankDetails.Reference)
	require.NotNil(t, order.IdempotencyKey)
	assert.Equal(t, "key-1", *order.IdempotencyKey)

	require.Len(t, f.history.changes, 1)
	assert.Equal(t, domain.OrderStatusPending, f.history.changes[0].Status)

	assert.Equal(t, time.Date(2026, 3, 21, 9, 30, 0, 0, time.UTC), order.PaymentDueDate)
	assert.Equal(t, time.Date(2026, 3, 24, 9, 30, 0, 0, time.UTC), order.EstimatedDelivery)
}

func TestPlace_FreeShippingAboveThreshold(t *testing.T) {
	f := newFixture(domain.Product{ID: 1, Name: "Chêne", Price: 100, IsActive: true})
	svc := f.service(defaultOptions())

	order, err := svc.Place(context.Background(), request(dto.OrderLine{ProductID: 1, Quantity: 5}), "")

	require.NoError(t, err)
	assert.Equal(t, 0.0, order.ShippingCost)
	assert.Equal(t, 500.0, order.Total)
	assert.Nil(t, order.IdempotencyKey)
}

func TestPlace_TaxRate(t *testing.T) {
	f := newFixture(domain.Product{ID: 1, Name: "Chêne", Price: 100, IsActive: true})
	opts := defaultOptions()
	opts.TaxRate = 0.1
	svc := f.service(opts)

	order, err := svc.Place(context.Background(), request(dto.OrderLine{ProductID: 1, Quantity: 1}), "")

	require.NoError(t, err)
	assert.Equal(t, 10.0, order.Tax)
	assert.InDelta(t, order.Subtotal+order.ShippingCost+order.Tax, order.Total, 0.001)
}

func TestPlace_InsufficientStock(t *testing.T) {
	f := newFixture(domain.Product{ID: 1, Name: "Chêne", Price: 85, IsActive: true, Stock: intPtr(1)})
	svc := f.service(defaultOptions())

	_, err := svc.Place(context.Background(), request(dto.OrderLine{ProductID: 1, Quantity: 3}), "")

	ce, ok := apperrors.IsConflictError(err)
	require.True(t, ok)
	assert.Equal(t, MsgInsufficientStock, ce.Message)
	assert.Nil(t, f.orders.inserted)
	assert.Empty(t, f.decr)
}

func TestPlace_ProductMissingOrInactive(t *testing.T) {
	f := newFixture(
		domain.Product{ID: 1, Name: "Chêne", Price: 85, IsActive: false},
		domain.Product{ID: 2, Name: "Hêtre", Price: 80, IsActive: true, Stock: intPtr(0)},
	)
	svc := f.service(defaultOptions())

	tests := []struct {
		name  string
		lines []dto.OrderLine
	}{
		{"missing", []dto.OrderLine{{ProductID: 99, Quantity: 1}}},
		{"inactive", []dto.OrderLine{{ProductID: 1, Quantity: 1}}},
		{"missing wins over stock", []dto.OrderLine{{ProductID: 2, Quantity: 1}, {ProductID: 99, Quantity: 1}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Place(context.Background(), request(tt.lines...), "")
			_, ok := apperrors.IsNotFoundError(err)
			assert.True(t, ok)
		})
	}
}

func TestPlace_BankDetailsErrorIsNotFatal(t *testing.T) {
	f := newFixture(domain.Product{ID: 1, Name: "Chêne", Price: 85, IsActive: true})
	f.bank.err = errors.New("settings down")
	svc := f.service(defaultOptions())

	order, err := svc.Place(context.Background(), request(dto.OrderLine{ProductID: 1, Quantity: 1}), "")

	require.NoError(t, err)
	assert.Nil(t, order.BankDetails)
	assert.True(t, order.AwaitingBankDetails())
}

func TestPlace_InsertErrorPropagates(t *testing.T) {
	f := newFixture(domain.Product{ID: 1, Name: "Chêne", Price: 85, IsActive: true})
	f.orders.err = errors.New("insert failed")
	svc := f.service(defaultOptions())

	_, err := svc.Place(context.Background(), request(dto.OrderLine{ProductID: 1, Quantity: 1}), "")
	assert.EqualError(t, err, "insert failed")
}

func TestMergeLines(t *testing.T) {
	merged := MergeLines([]dto.OrderLine{
		{ProductID: 5, Quantity: 1},
		{ProductID: 2, Quantity: 3},
		{ProductID: 5, Quantity: 2},
	})

	assert.Equal(t, []dto.OrderLine{{ProductID: 2, Quantity: 3}, {ProductID: 5, Quantity: 3}}, merged)
}

func TestReserve_PricesWithDecimal(t *testing.T) {
	items, failures := Reserve(
		[]dto.OrderLine{{ProductID: 1, Quantity: 3}},
		[]domain.Product{{ID: 1, Name: "Chêne", Price: 0.1, IsActive: true}},
	)

	assert.Empty(t, failures)
	require.Len(t, items, 1)
	assert.Equal(t, 0.3, items[0].Total)
	assert.Equal(t, domain.DefaultUnit, items[0].Unit)
}

func TestReserve_ReportsAvailable(t *testing.T) {
	_, failures := Reserve(
		[]dto.OrderLine{{ProductID: 1, Quantity: 4}},
		[]domain.Product{{ID: 1, IsActive: true, Stock: intPtr(2)}},
	)

	require.Len(t, failures, 1)
	assert.Equal(t, dto.ReasonInsufficientStock, failures[0].Reason)
	assert.Equal(t, 2, failures[0].Available)
}

func TestNewOrderNumber(t *testing.T) {
	a := NewOrderNumber(time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC))
	b := NewOrderNumber(time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC))

	assert.Regexp(t, `^CMD-20260102-[0-9A-F]{6}$`, a)
	assert.NotEqual(t, a, b)
}
