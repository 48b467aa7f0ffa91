package domain

import (
	"strings"
	"time"
)

type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "pending"
	OrderStatusConfirmed  OrderStatus = "confirmed"
	OrderStatusProcessing OrderStatus = "processing"
	OrderStatusShipped    OrderStatus = "shipped"
	OrderStatusDelivered  OrderStatus = "delivered"
	OrderStatusCancelled  OrderStatus = "cancelled"
)

// statusRank orders the forward progression. Cancelled sits outside it.
var statusRank = map[OrderStatus]int{
	OrderStatusPending:    0,
	OrderStatusConfirmed:  1,
	OrderStatusProcessing: 2,
	OrderStatusShipped:    3,
	OrderStatusDelivered:  4,
}

func (s OrderStatus) Valid() bool {
	_, ok := statusRank[s]
	return ok || s == OrderStatusCancelled
}

// Reached reports whether s is at or past milestone in the forward progression.
func (s OrderStatus) Reached(milestone OrderStatus) bool {
	current, ok := statusRank[s]
	if !ok {
		return false
	}
	target, ok := statusRank[milestone]
	if !ok {
		return false
	}
	return current >= target
}

// CanTransition enforces the monotonic lifecycle: forward moves only, cancellation
// from any state but delivered, nothing out of a terminal state.
func CanTransition(from, to OrderStatus) bool {
	if from == OrderStatusCancelled || from == OrderStatusDelivered {
		return false
	}
	if to == OrderStatusCancelled {
		return true
	}
	fromRank, ok := statusRank[from]
	if !ok {
		return false
	}
	toRank, ok := statusRank[to]
	if !ok {
		return false
	}
	return toRank > fromRank
}

type PaymentStatus string

const (
	PaymentStatusPending  PaymentStatus = "pending"
	PaymentStatusReceived PaymentStatus = "received"
)

type Customer struct {
	FirstName string `json:"firstName" validate:"required,max=100"`
	LastName  string `json:"lastName" validate:"required,max=100"`
	Email     string `json:"email" validate:"required,email,max=150"`
	Phone     string `json:"phone" validate:"required,phone"`
}

func (c Customer) FullName() string {
	if c.LastName == "" {
		return c.FirstName
	}
	return c.FirstName + " " + c.LastName
}

type ShippingAddress struct {
	Street     string `json:"street" validate:"required,max=200"`
	Complement string `json:"complement,omitempty" validate:"max=200"`
	PostalCode string `json:"postalCode" validate:"required,postal_code"`
	City       string `json:"city" validate:"required,max=100"`
	Region     string `json:"region" validate:"max=100"`
	Country    string `json:"country" validate:"required,max=60"`
}

type BankDetails struct {
	BankName      string `json:"bankName"`
	AccountHolder string `json:"accountHolder"`
	IBAN          string `json:"iban"`
	BIC           string `json:"bic"`
	Reference     string `json:"reference"`
}

type StatusChange struct {
	Status        OrderStatus   `json:"status"`
	PaymentStatus PaymentStatus `json:"paymentStatus"`
	Note          string        `json:"note,omitempty"`
	At            time.Time     `json:"at"`
}

type OrderItem struct {
	ID        uint    `json:"-"`
	OrderID   uint    `json:"-"`
	ProductID int     `json:"productId"`
	Name      string  `json:"name"`
	Unit      string  `json:"unit"`
	Quantity  int     `json:"quantity"`
	Price     float64 `json:"price"`
	Total     float64 `json:"total"`
}

type Order struct {
	ID                uint            `json:"-"`
	OrderNumber       string          `json:"orderNumber"`
	Customer          Customer        `json:"customer"`
	ShippingAddress   ShippingAddress `json:"shippingAddress"`
	Items             []OrderItem     `json:"items"`
	Subtotal          float64         `json:"subtotal"`
	ShippingCost      float64         `json:"shippingCost"`
	Tax               float64         `json:"tax"`
	Total             float64         `json:"total"`
	Status            OrderStatus     `json:"status"`
	PaymentStatus     PaymentStatus   `json:"paymentStatus"`
	BankDetails       *BankDetails    `json:"bankDetails,omitempty"`
	StatusHistory     []StatusChange  `json:"statusHistory"`
	Notes             string          `json:"notes,omitempty"`
	ReceiptPath       *string         `json:"-"`
	ReceiptUploaded   bool            `json:"receiptUploaded"`
	IdempotencyKey    *string         `json:"-"`
	PaymentDueDate    time.Time       `json:"paymentDueDate"`
	EstimatedDelivery time.Time       `json:"estimatedDelivery"`
	CreatedAt         time.Time       `json:"createdAt"`
	UpdatedAt         time.Time       `json:"updatedAt"`
}

// AwaitingBankDetails is true while the customer cannot pay yet: the transfer
// details are missing and no payment was recorded.
func (o Order) AwaitingBankDetails() bool {
	return o.BankDetails == nil &&
		o.PaymentStatus == PaymentStatusPending &&
		o.Status != OrderStatusCancelled
}

// NormalizeOrderNumber makes customer-typed references case-insensitive.
func NormalizeOrderNumber(number string) string {
	return strings.ToUpper(strings.TrimSpace(number))
}
