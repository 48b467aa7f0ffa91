package service

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"
	"time"

	"bucheron/internal/domain"
	"bucheron/internal/dto"
	apperrors "bucheron/internal/errors"
	"bucheron/internal/shipping"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	MsgInsufficientStock = "Stock insuffisant"
	MsgProductNotFound   = "Produit introuvable ou indisponible"
	initialHistoryNote   = "Commande reçue"
)

type Transactor interface {
	WithinTx(ctx context.Context, opts *sql.TxOptions, fn func(tx *sql.Tx) error) error
}

type ProductRepository interface {
	FindByIDsForUpdate(ctx context.Context, tx *sql.Tx, ids []int) ([]domain.Product, error)
	DecrementStock(ctx context.Context, tx *sql.Tx, productID, quantity int) error
}

type OrderRepository interface {
	Insert(ctx context.Context, tx *sql.Tx, o *domain.Order) (uint, error)
}

type OrderItemRepository interface {
	Insert(ctx context.Context, tx *sql.Tx, item domain.OrderItem) (uint, error)
}

type StatusHistoryRepository interface {
	Insert(ctx context.Context, tx *sql.Tx, orderID uint, change domain.StatusChange) error
}

type BankDetailsProvider interface {
	BankDetails(ctx context.Context) (*domain.BankDetails, error)
}

type Options struct {
	TxTimeout      time.Duration
	TaxRate        float64
	PaymentDueDays int
	DeliveryDays   int
}

type PlacementService struct {
	tx          Transactor
	productRepo ProductRepository
	orderRepo   OrderRepository
	itemRepo    OrderItemRepository
	historyRepo StatusHistoryRepository
	bank        BankDetailsProvider
	rates       *shipping.Table
	opts        Options
	logger      *zap.Logger
	now         func() time.Time
	newNumber   func(time.Time) string
}

func NewPlacementService(
	tx Transactor,
	productRepo ProductRepository,
	orderRepo OrderRepository,
	itemRepo OrderItemRepository,
	historyRepo StatusHistoryRepository,
	bank BankDetailsProvider,
	rates *shipping.Table,
	opts Options,
	logger *zap.Logger,
) *PlacementService {
	return &PlacementService{
		tx:          tx,
		productRepo: productRepo,
		orderRepo:   orderRepo,
		itemRepo:    itemRepo,
		historyRepo: historyRepo,
		bank:        bank,
		rates:       rates,
		opts:        opts,
		logger:      logger,
		now:         time.Now,
		newNumber:   NewOrderNumber,
	}
}

// NewOrderNumber returns a reference of the form CMD-YYYYMMDD-XXXXXX.
func NewOrderNumber(at time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.New().String(), "-", ""))[:6]
	return fmt.Sprintf("CMD-%s-%s", at.Format("20060102"), suffix)
}

// Place creates the order in a single REPEATABLE READ transaction: products are
// locked in id order, checked, decremented and the order rows are written.
// Either every line is accepted or nothing is written.
func (s *PlacementService) Place(ctx context.Context, req dto.CreateOrderRequest, idempotencyKey string) (*domain.Order, error) {
	lines := MergeLines(req.Items)

	bank, err := s.bank.BankDetails(ctx)
	if err != nil {
		s.logger.Warn("bank details unavailable, order created without them", zap.Error(err))
		bank = nil
	}

	now := s.now().UTC()
	order := &domain.Order{
		OrderNumber:       s.newNumber(now),
		Customer:          req.Customer,
		ShippingAddress:   req.ShippingAddress,
		Status:            domain.OrderStatusPending,
		PaymentStatus:     domain.PaymentStatusPending,
		Notes:             strings.TrimSpace(req.Notes),
		PaymentDueDate:    now.AddDate(0, 0, s.opts.PaymentDueDays),
		EstimatedDelivery: now.AddDate(0, 0, s.opts.DeliveryDays),
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if idempotencyKey != "" {
		order.IdempotencyKey = &idempotencyKey
	}
	if bank != nil {
		details := *bank
		details.Reference = order.OrderNumber
		order.BankDetails = &details
	}

	txCtx, cancel := context.WithTimeout(ctx, s.opts.TxTimeout)
	defer cancel()

	logger := s.logger.With(zap.String("orderNumber", order.OrderNumber))

	err = s.tx.WithinTx(txCtx, &sql.TxOptions{Isolation: sql.LevelRepeatableRead}, func(tx *sql.Tx) error {
		ids := make([]int, len(lines))
		for i, l := range lines {
			ids[i] = l.ProductID
		}
		products, err := s.productRepo.FindByIDsForUpdate(txCtx, tx, ids)
		if err != nil {
			return err
		}

		items, failures := Reserve(lines, products)
		if len(failures) > 0 {
			for _, f := range failures {
				logger.Warn("order line rejected",
					zap.Int("productId", f.ProductID),
					zap.Int("quantity", f.Quantity),
					zap.Int("available", f.Available),
					zap.String("reason", string(f.Reason)),
				)
			}
			return failureError(failures)
		}

		for _, p := range products {
			if p.Stock == nil {
				continue
			}
			if err := s.productRepo.DecrementStock(txCtx, tx, p.ID, quantityOf(lines, p.ID)); err != nil {
				return err
			}
		}

		s.applyTotals(order, items, req.ShippingCost, logger)

		orderID, err := s.orderRepo.Insert(txCtx, tx, order)
		if err != nil {
			return err
		}
		order.ID = orderID

		for i := range order.Items {
			order.Items[i].OrderID = orderID
			itemID, err := s.itemRepo.Insert(txCtx, tx, order.Items[i])
			if err != nil {
				return err
			}
			order.Items[i].ID = itemID
		}

		initial := domain.StatusChange{
			Status:        order.Status,
			PaymentStatus: order.PaymentStatus,
			Note:          initialHistoryNote,
			At:            now,
		}
		if err := s.historyRepo.Insert(txCtx, tx, orderID, initial); err != nil {
			return err
		}
		order.StatusHistory = []domain.StatusChange{initial}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info("order placed",
		zap.Int("itemCount", len(order.Items)),
		zap.Float64("total", order.Total),
		zap.Bool("bankDetails", order.BankDetails != nil),
	)
	return order, nil
}

// applyTotals prices the order server-side. The client's shipping figure is
// only compared, never trusted.
func (s *PlacementService) applyTotals(order *domain.Order, items []domain.OrderItem, clientShipping float64, logger *zap.Logger) {
	subtotal := decimal.Zero
	for _, it := range items {
		subtotal = subtotal.Add(decimal.NewFromFloat(it.Total))
	}

	quote := s.rates.Quote(order.ShippingAddress.Country, order.ShippingAddress.Region, subtotal.InexactFloat64())
	if quote.Estimate {
		logger.Warn("shipping cost estimated",
			zap.String("country", order.ShippingAddress.Country),
			zap.String("region", order.ShippingAddress.Region),
			zap.String("reason", string(quote.Reason)),
		)
	}
	shippingCost := decimal.NewFromFloat(quote.Cost).Round(2)
	if !shippingCost.Equal(decimal.NewFromFloat(clientShipping).Round(2)) {
		logger.Warn("client shipping cost differs from server quote",
			zap.Float64("client", clientShipping),
			zap.Float64("server", quote.Cost),
		)
	}

	tax := subtotal.Mul(decimal.NewFromFloat(s.opts.TaxRate)).Round(2)
	total := subtotal.Add(shippingCost).Add(tax)

	order.Items = items
	order.Subtotal = subtotal.Round(2).InexactFloat64()
	order.ShippingCost = shippingCost.InexactFloat64()
	order.Tax = tax.InexactFloat64()
	order.Total = total.Round(2).InexactFloat64()
}

// MergeLines folds duplicate product lines together and sorts them by product
// id, the order rows are locked in.
func MergeLines(lines []dto.OrderLine) []dto.OrderLine {
	byID := make(map[int]int, len(lines))
	for _, l := range lines {
		byID[l.ProductID] += l.Quantity
	}
	merged := make([]dto.OrderLine, 0, len(byID))
	for id, qty := range byID {
		merged = append(merged, dto.OrderLine{ProductID: id, Quantity: qty})
	}
	sort.Slice(merged, func(i, j int) bool { return merged[i].ProductID < merged[j].ProductID })
	return merged
}

// Reserve checks every line against the locked products and prices the ones
// that can be fulfilled.
func Reserve(lines []dto.OrderLine, products []domain.Product) ([]domain.OrderItem, []dto.ItemFailure) {
	byID := make(map[int]domain.Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}

	var (
		items    []domain.OrderItem
		failures []dto.ItemFailure
	)
	for _, l := range lines {
		p, ok := byID[l.ProductID]
		switch {
		case !ok:
			failures = append(failures, dto.ItemFailure{ProductID: l.ProductID, Quantity: l.Quantity, Reason: dto.ReasonNotFound})
		case !p.IsActive:
			failures = append(failures, dto.ItemFailure{ProductID: l.ProductID, Quantity: l.Quantity, Reason: dto.ReasonProductInactive})
		case !p.CanFulfil(l.Quantity):
			failures = append(failures, dto.ItemFailure{
				ProductID: l.ProductID,
				Quantity:  l.Quantity,
				Available: p.AvailableStock(),
				Reason:    dto.ReasonInsufficientStock,
			})
		default:
			unit := p.Unit
			if unit == "" {
				unit = domain.DefaultUnit
			}
			total := decimal.NewFromFloat(p.Price).Mul(decimal.NewFromInt(int64(l.Quantity))).Round(2)
			items = append(items, domain.OrderItem{
				ProductID: p.ID,
				Name:      p.Name,
				Unit:      unit,
				Quantity:  l.Quantity,
				Price:     p.Price,
				Total:     total.InexactFloat64(),
			})
		}
	}
	return items, failures
}

// failureError reports missing products before stock shortages.
func failureError(failures []dto.ItemFailure) error {
	for _, f := range failures {
		if f.Reason == dto.ReasonNotFound || f.Reason == dto.ReasonProductInactive {
			return apperrors.NewNotFoundError(MsgProductNotFound)
		}
	}
	return apperrors.NewConflictError(MsgInsufficientStock)
}

func quantityOf(lines []dto.OrderLine, productID int) int {
	for _, l := range lines {
		if l.ProductID == productID {
			return l.Quantity
		}
	}
	return 0
}
