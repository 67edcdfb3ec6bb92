package order

import (
	"errors"
	"net/url"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"
)

var phonePattern = regexp.MustCompile(`^\+?\d{1,4}?[-.\s]?\(?\d{1,3}?\)?[-.\s]?\d{1,4}[-.\s]?\d{1,4}[-.\s]?\d{1,9}$`)

// Form is the new-order form as submitted by the browser.
type Form struct {
	Customer string `form:"customer" validate:"required"`
	Phone    string `form:"phone" validate:"required,phone"`
	Address  string `form:"address" validate:"required"`
	Priority bool   `form:"priority"`
}

// FormErrors maps a form field name to the message shown next to it.
type FormErrors map[string]string

// ActionData is bound back into the new-order view when the submission is rejected.
type ActionData struct {
	Values Form
	Errors FormErrors
}

var messages = map[string]string{
	"customer": "Please tell us your name",
	"phone":    "Please give us your correct phone number. We might need it to contact you.",
	"address":  "Please tell us where to deliver your order",
	"cart":     "Your cart is empty. Add some pizzas before ordering.",
}

func newValidator() *validator.Validate {
	v := validator.New()

	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("form"), ",", 2)[0]
		if name == "" || name == "-" {
			return field.Name
		}
		return name
	})

	if err := v.RegisterValidation("phone", func(fl validator.FieldLevel) bool {
		return phonePattern.MatchString(fl.Field().String())
	}); err != nil {
		panic(err)
	}

	return v
}

// ParseForm reads the order form fields, trimming surrounding whitespace.
func ParseForm(values url.Values) Form {
	priority := strings.TrimSpace(values.Get("priority"))
	return Form{
		Customer: strings.TrimSpace(values.Get("customer")),
		Phone:    strings.TrimSpace(values.Get("phone")),
		Address:  strings.TrimSpace(values.Get("address")),
		Priority: priority == "on" || priority == "true",
	}
}

// Validate returns the field errors of f, nil when the form is fine.
func Validate(v *validator.Validate, f Form) FormErrors {
	err := v.Struct(f)
	if err == nil {
		return nil
	}

	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		log.Error().Err(err).Type("validation_error_type", err).Msg("Unexpected error type during validation")
		return FormErrors{"form": "The form could not be checked, please try again"}
	}

	return formatValidationErrors(validationErrors)
}

func formatValidationErrors(validationErrors validator.ValidationErrors) FormErrors {
	out := make(FormErrors, len(validationErrors))
	for _, fe := range validationErrors {
		field := fe.Field()
		if msg, ok := messages[field]; ok {
			out[field] = msg
			continue
		}
		out[field] = "Invalid value for " + field
	}
	return out
}
