package dto

// FailureReason explains why an order line could not be reserved.
type FailureReason string

const (
	ReasonNotFound          FailureReason = "NOT_FOUND"
	ReasonProductInactive   FailureReason = "PRODUCT_INACTIVE"
	ReasonInsufficientStock FailureReason = "INSUFFICIENT_STOCK"
)

type ItemFailure struct {
	ProductID int           `json:"productId"`
	Quantity  int           `json:"quantity"`
	Available int           `json:"available"`
	Reason    FailureReason `json:"reason"`
}
