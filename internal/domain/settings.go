package domain

import (
	"encoding/json"
	"time"
)

// Settings is the site-wide configuration document served to the storefront.
type Settings struct {
	CompanyName string            `json:"companyName"`
	Email       string            `json:"email"`
	Phone       string            `json:"phone"`
	Address     string            `json:"address"`
	Siret       string            `json:"siret"`
	OpeningHrs  string            `json:"openingHours"`
	Bank        *BankDetails      `json:"bank,omitempty"`
	Legal       map[string]string `json:"legal"`
	UpdatedAt   time.Time         `json:"updatedAt"`
}

// SettingsRecord is the persisted row: the document is stored as JSON.
type SettingsRecord struct {
	ID        int
	Key       string
	Document  string
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (r SettingsRecord) Decode() (*Settings, error) {
	var s Settings
	if err := json.Unmarshal([]byte(r.Document), &s); err != nil {
		return nil, err
	}
	if s.Legal == nil {
		s.Legal = map[string]string{}
	}
	s.UpdatedAt = r.UpdatedAt
	return &s, nil
}

type NewsletterSubscription struct {
	ID        uint      `json:"id"`
	Email     string    `json:"email"`
	FirstName string    `json:"firstName,omitempty"`
	Interests []string  `json:"interests"`
	Source    string    `json:"source"`
	CreatedAt time.Time `json:"createdAt"`
}

type ContactMessage struct {
	ID          uint              `json:"id"`
	FirstName   string            `json:"firstName"`
	LastName    string            `json:"lastName"`
	Email       string            `json:"email"`
	Phone       string            `json:"phone"`
	Subject     string            `json:"subject"`
	Message     string            `json:"message"`
	OrderNumber string            `json:"orderNumber,omitempty"`
	Metadata    map[string]string `json:"metadata"`
	CreatedAt   time.Time         `json:"createdAt"`
}
