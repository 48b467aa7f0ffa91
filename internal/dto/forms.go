package dto

type NewsletterRequest struct {
	Email     string   `json:"email" validate:"required,email,max=150"`
	FirstName string   `json:"firstName,omitempty" validate:"max=100"`
	Interests []string `json:"interests" validate:"max=10,dive,max=50"`
	Source    string   `json:"source" validate:"max=50"`
}

type ContactRequest struct {
	FirstName   string            `json:"firstName" validate:"required,max=100"`
	LastName    string            `json:"lastName" validate:"required,max=100"`
	Email       string            `json:"email" validate:"required,email,max=150"`
	Phone       string            `json:"phone" validate:"omitempty,max=30"`
	Subject     string            `json:"subject" validate:"required,max=150"`
	Message     string            `json:"message" validate:"required,min=10,max=5000"`
	OrderNumber string            `json:"orderNumber,omitempty" validate:"max=40"`
	Metadata    map[string]string `json:"metadata"`
}
