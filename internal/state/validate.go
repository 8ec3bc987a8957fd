package state

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/softrack-city/softrack/internal/session"
)

// ErrValidation is wrapped by every *ValidationError.
var ErrValidation = errors.New("validation failed")

var validate *validator.Validate

func init() {
	validate = validator.New()
	validate.RegisterValidation("strong_password", validateStrongPassword)
	validate.RegisterValidation("notblank", validateNotBlank)
}

func validateStrongPassword(fl validator.FieldLevel) bool {
	return len(session.PasswordProblems(fl.Field().String())) == 0
}

func validateNotBlank(fl validator.FieldLevel) bool {
	return strings.TrimSpace(fl.Field().String()) != ""
}

// FieldError is one problem with one input field.
type FieldError struct {
	Field   string
	Message string
}

// ValidationError lists everything wrong with a submission. Nothing was sent
// to the backend.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	msgs := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		msgs = append(msgs, f.Message)
	}
	return fmt.Sprintf("%s: %s", ErrValidation, strings.Join(msgs, "; "))
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

// check validates v and converts the result to a *ValidationError. prefix is
// prepended to each field name, e.g. "contact 2".
func check(v any, prefix string) []FieldError {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return []FieldError{{Field: prefix, Message: err.Error()}}
	}

	fields := make([]FieldError, 0, len(verrs))
	for _, e := range verrs {
		field := e.Field()
		if prefix != "" {
			field = prefix + " " + field
		}
		fields = append(fields, FieldError{Field: field, Message: message(field, e)})
	}
	return fields
}

func message(field string, e validator.FieldError) string {
	switch e.Tag() {
	case "required", "notblank":
		return field + " is required"
	case "email":
		return field + " must be a valid email address"
	case "min":
		return field + " must be at least " + e.Param() + " characters"
	case "eqfield":
		return "Passwords do not match"
	case "strong_password":
		return strings.Join(session.PasswordProblems(e.Value().(string)), "; ")
	default:
		return field + " is invalid"
	}
}

func validationError(fields []FieldError) error {
	if len(fields) == 0 {
		return nil
	}
	return &ValidationError{Fields: fields}
}

// contactCheck is what a contact attached to an asset must carry.
type contactCheck struct {
	Name     string `validate:"notblank"`
	LastName string `validate:"notblank"`
	Email    string `validate:"notblank"`
	Phone    string `validate:"notblank"`
}

// newContactCheck is what registering a brand new contact requires.
type newContactCheck struct {
	Name     string `validate:"notblank"`
	LastName string `validate:"notblank"`
	Email    string `validate:"required,email"`
	Phone    string `validate:"notblank"`
}
