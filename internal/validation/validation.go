package validation

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"

	apperrors "bucheron/internal/errors"

	"github.com/go-playground/validator/v10"
)

var (
	postalCodeRe = regexp.MustCompile(`^(?:L-)?[0-9]{4,5}$`)
	phoneRe      = regexp.MustCompile(`^\+?[0-9][0-9 .()-]{5,24}$`)
)

// Validator checks tagged structs and reports failures as a ValidationError
// whose details are keyed by the json (or form) field name.
type Validator struct {
	v *validator.Validate
}

func New() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		for _, tag := range []string{"json", "form"} {
			name := strings.SplitN(f.Tag.Get(tag), ",", 2)[0]
			if name == "-" {
				return ""
			}
			if name != "" {
				return name
			}
		}
		return f.Name
	})
	mustRegister(v, "postal_code", func(fl validator.FieldLevel) bool {
		return postalCodeRe.MatchString(strings.TrimSpace(fl.Field().String()))
	})
	mustRegister(v, "phone", func(fl validator.FieldLevel) bool {
		return phoneRe.MatchString(strings.TrimSpace(fl.Field().String()))
	})
	return &Validator{v: v}
}

// mustRegister panics when a custom tag is rejected, which only happens with a
// malformed tag name.
func mustRegister(v *validator.Validate, tag string, fn validator.Func) {
	if err := v.RegisterValidation(tag, fn); err != nil {
		panic(fmt.Sprintf("registering %q validation: %v", tag, err))
	}
}

func (v *Validator) Struct(s interface{}) error {
	err := v.v.Struct(s)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return apperrors.NewValidationError(err.Error())
	}

	details := make([]apperrors.ValidationDetail, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		details = append(details, apperrors.ValidationDetail{
			Field:   fieldPath(fe),
			Message: message(fe),
		})
	}
	return apperrors.NewValidationError("Certains champs sont invalides", details...)
}

// fieldPath drops the top-level struct name from the namespace:
// "Form.customer.email" becomes "customer.email".
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.Index(ns, "."); i >= 0 {
		return ns[i+1:]
	}
	return fe.Field()
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		if fe.Kind() == reflect.Bool {
			return "Vous devez accepter les conditions générales de vente"
		}
		return "Ce champ est obligatoire"
	case "email":
		return "Adresse email invalide"
	case "postal_code":
		return "Code postal invalide"
	case "phone":
		return "Numéro de téléphone invalide"
	case "min":
		if fe.Kind() == reflect.String {
			return "Ce champ doit contenir au moins " + fe.Param() + " caractères"
		}
		return "La valeur minimale est " + fe.Param()
	case "max":
		if fe.Kind() == reflect.String {
			return "Ce champ ne doit pas dépasser " + fe.Param() + " caractères"
		}
		return "La valeur maximale est " + fe.Param()
	case "gt", "gte":
		return "La valeur doit être supérieure à " + fe.Param()
	case "oneof":
		return "Valeur non autorisée"
	case "dive":
		return "Liste invalide"
	}
	return "Valeur invalide"
}
