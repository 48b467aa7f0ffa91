package dto

import (
	"time"

	"bucheron/internal/domain"
)

type OrderLine struct {
	ProductID int `json:"productId" validate:"gt=0"`
	Quantity  int `json:"quantity" validate:"gte=1,max=1000"`
}

type CreateOrderRequest struct {
	Customer        domain.Customer        `json:"customer"`
	ShippingAddress domain.ShippingAddress `json:"shippingAddress"`
	Items           []OrderLine            `json:"items" validate:"required,min=1,max=100,dive"`
	Notes           string                 `json:"notes" validate:"max=1000"`
	ShippingCost    float64                `json:"shippingCost" validate:"gte=0"`
}

type CreateOrderResponse struct {
	OrderNumber       string    `json:"orderNumber"`
	Total             float64   `json:"total"`
	PaymentDueDate    time.Time `json:"paymentDueDate"`
	EstimatedDelivery time.Time `json:"estimatedDelivery"`
}

type UploadReceiptResponse struct {
	OrderNumber string `json:"orderNumber"`
	Filename    string `json:"filename"`
	ContentType string `json:"contentType"`
	Size        int64  `json:"size"`
}
