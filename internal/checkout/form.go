// Package checkout validates the checkout form and turns the session cart into
// an order.
package checkout

import (
	"net/url"
	"strings"

	"bucheron/internal/domain"
)

type Form struct {
	FirstName   string `form:"firstName" validate:"required,max=100"`
	LastName    string `form:"lastName" validate:"required,max=100"`
	Email       string `form:"email" validate:"required,email,max=150"`
	Phone       string `form:"phone" validate:"required,phone"`
	Street      string `form:"street" validate:"required,max=200"`
	Complement  string `form:"complement" validate:"max=200"`
	PostalCode  string `form:"postalCode" validate:"required,postal_code"`
	City        string `form:"city" validate:"required,max=100"`
	Region      string `form:"region" validate:"max=100"`
	Country     string `form:"country" validate:"required"`
	Notes       string `form:"notes" validate:"max=1000"`
	AcceptTerms bool   `form:"acceptTerms" validate:"required"`
	// IdempotencyKey is issued with the rendered form so a double submit
	// replays the same order.
	IdempotencyKey string `form:"idempotencyKey" validate:"omitempty,max=64"`
}

func ParseForm(v url.Values) Form {
	get := func(key string) string { return strings.TrimSpace(v.Get(key)) }
	terms := get("acceptTerms")
	return Form{
		FirstName:      get("firstName"),
		LastName:       get("lastName"),
		Email:          get("email"),
		Phone:          get("phone"),
		Street:         get("street"),
		Complement:     get("complement"),
		PostalCode:     get("postalCode"),
		City:           get("city"),
		Region:         get("region"),
		Country:        get("country"),
		Notes:          get("notes"),
		AcceptTerms:    terms == "on" || terms == "true" || terms == "1",
		IdempotencyKey: get("idempotencyKey"),
	}
}

func (f Form) Customer() domain.Customer {
	return domain.Customer{
		FirstName: f.FirstName,
		LastName:  f.LastName,
		Email:     f.Email,
		Phone:     f.Phone,
	}
}

func (f Form) Address() domain.ShippingAddress {
	return domain.ShippingAddress{
		Street:     f.Street,
		Complement: f.Complement,
		PostalCode: f.PostalCode,
		City:       f.City,
		Region:     f.Region,
		Country:    f.Country,
	}
}
