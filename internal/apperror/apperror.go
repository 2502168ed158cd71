// Package apperror defines the error kinds shared by every domain package and
// maps validator failures onto them.
package apperror

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

var (
	ErrValidation          = errors.New("validation failed")
	ErrNotFound            = errors.New("not found")
	ErrConcurrencyConflict = errors.New("concurrency conflict")
	ErrForbidden           = errors.New("forbidden")
)

// ValidationError describes a single rejected input field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e ValidationError) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return fmt.Sprintf("%s %s", e.Field, e.Reason)
}

func (e ValidationError) Unwrap() error {
	return ErrValidation
}

func Invalid(field, reason string) error {
	return ValidationError{Field: field, Reason: reason}
}

// NotFound returns a sentinel for a missing entity which matches ErrNotFound.
func NotFound(entity string) error {
	return fmt.Errorf("%s %w", entity, ErrNotFound)
}

var (
	errRequired          = "is required"
	errMustBePositive    = "must be a positive number"
	errMustNotBeNegative = "must not be negative"
	errQuarterHour       = "must be a multiple of 0.25"
	errOneOf             = "has an unsupported value"
)

var tagMessages = map[string]string{
	"required":    errRequired,
	"gt":          errMustBePositive,
	"gte":         errMustNotBeNegative,
	"min":         errMustNotBeNegative,
	"quarterhour": errQuarterHour,
	"oneof":       errOneOf,
}

// FromValidator converts validator errors into a ValidationError naming the first failing field.
// Other errors are returned unchanged.
func FromValidator(err error) error {
	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) || len(validationErrs) == 0 {
		return err
	}
	fields := make([]string, 0, len(validationErrs))
	for _, e := range validationErrs {
		fields = append(fields, e.Field())
	}
	first := validationErrs[0]
	msg, ok := tagMessages[first.Tag()]
	if !ok {
		msg = "is invalid"
	}
	if len(fields) > 1 {
		msg = fmt.Sprintf("%s (also invalid: %s)", msg, strings.Join(fields[1:], ", "))
	}
	return ValidationError{Field: lowerFirst(first.Field()), Reason: msg}
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToLower(s[:1]) + s[1:]
}
