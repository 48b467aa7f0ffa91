package checkout

import (
	"context"

	"bucheron/internal/cart"
	"bucheron/internal/dto"
	apperrors "bucheron/internal/errors"
	"bucheron/internal/shipping"
	"bucheron/internal/validation"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type CartStore interface {
	Get(ctx context.Context, key string) (*cart.Store, error)
	Clear(ctx context.Context, key string) error
}

type OrderClient interface {
	CreateOrder(ctx context.Context, req dto.CreateOrderRequest, idempotencyKey string) (*dto.CreateOrderResponse, error)
}

// Summary is what the checkout page shows next to the form.
type Summary struct {
	Items    []cart.Item
	Count    int
	Subtotal float64
	Shipping shipping.Quote
	Total    float64
}

func (s Summary) Empty() bool {
	return len(s.Items) == 0
}

type Service struct {
	carts     CartStore
	orders    OrderClient
	rates     *shipping.Table
	validator *validation.Validator
	logger    *zap.Logger
}

func NewService(carts CartStore, orders OrderClient, rates *shipping.Table, validator *validation.Validator, logger *zap.Logger) *Service {
	return &Service{
		carts:     carts,
		orders:    orders,
		rates:     rates,
		validator: validator,
		logger:    logger,
	}
}

func (s *Service) Summarize(ctx context.Context, sessionKey, country, region string) (*Summary, error) {
	st, err := s.carts.Get(ctx, sessionKey)
	if err != nil {
		return nil, err
	}
	return s.summarize(st, country, region), nil
}

func (s *Service) summarize(st *cart.Store, country, region string) *Summary {
	subtotal := st.TotalPrice()
	quote := s.rates.Quote(country, region, subtotal)
	total := decimal.NewFromFloat(subtotal).Add(decimal.NewFromFloat(quote.Cost)).Round(2)
	return &Summary{
		Items:    st.Items(),
		Count:    st.TotalItems(),
		Subtotal: subtotal,
		Shipping: quote,
		Total:    total.InexactFloat64(),
	}
}

// Validate checks the form without touching the cart or the network.
func (s *Service) Validate(form Form) error {
	err := s.validator.Struct(form)
	if err == nil && !s.rates.HasCountry(form.Country) {
		return apperrors.NewValidationError("Certains champs sont invalides", apperrors.ValidationDetail{
			Field:   "country",
			Message: "Nous ne livrons pas dans ce pays",
		})
	}
	return err
}

// Submit places the order for the session cart. On success the cart is
// emptied; on any failure it is left untouched and the error is returned as-is
// so the API message reaches the customer verbatim. Nothing is retried.
func (s *Service) Submit(ctx context.Context, sessionKey string, form Form) (*dto.CreateOrderResponse, error) {
	if err := s.Validate(form); err != nil {
		return nil, err
	}

	st, err := s.carts.Get(ctx, sessionKey)
	if err != nil {
		return nil, err
	}
	if st.Len() == 0 {
		return nil, apperrors.NewValidationError("Votre panier est vide")
	}

	summary := s.summarize(st, form.Country, form.Region)
	if summary.Shipping.Estimate {
		s.logger.Warn("shipping fee is an estimate",
			zap.String("country", form.Country),
			zap.String("region", form.Region),
			zap.String("reason", string(summary.Shipping.Reason)),
		)
	}

	lines := make([]dto.OrderLine, 0, len(summary.Items))
	for _, it := range summary.Items {
		lines = append(lines, dto.OrderLine{ProductID: it.ID, Quantity: it.Quantity})
	}

	req := dto.CreateOrderRequest{
		Customer:        form.Customer(),
		ShippingAddress: form.Address(),
		Items:           lines,
		Notes:           form.Notes,
		ShippingCost:    summary.Shipping.Cost,
	}

	resp, err := s.orders.CreateOrder(ctx, req, form.IdempotencyKey)
	if err != nil {
		s.logger.Warn("order submission failed", zap.Int("items", len(lines)), zap.Error(err))
		return nil, err
	}

	if err := s.carts.Clear(ctx, sessionKey); err != nil {
		s.logger.Error("clearing cart after order", zap.String("orderNumber", resp.OrderNumber), zap.Error(err))
	}

	s.logger.Info("order placed",
		zap.String("orderNumber", resp.OrderNumber),
		zap.Float64("total", resp.Total),
	)
	return resp, nil
}
