package usecase

import (
	"fmt"

	"portfolio-contact/internal/domain"
)

type ErrorCode string

const (
	ErrorValidation ErrorCode = "VALIDATION_ERROR"
	ErrorProvider   ErrorCode = "PROVIDER_ERROR"
	ErrorInternal   ErrorCode = "INTERNAL_ERROR"
)

// FieldError describes one rejected Submission field.
type FieldError struct {
	Field   string `json:"field"`
	Tag     string `json:"tag"`
	Message string `json:"message"`
}

type Error struct {
	Code   ErrorCode
	Reason string
	Err    error

	// Set for ErrorValidation.
	Fields []FieldError
	// Set for ErrorProvider; echoed to the caller.
	Provider *domain.ProviderError
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err == nil {
		return fmt.Sprintf("usecase: %s (%s)", e.Code, e.Reason)
	}
	return fmt.Sprintf("usecase: %s (%s): %v", e.Code, e.Reason, e.Err)
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func newError(code ErrorCode, reason string, err error) *Error {
	return &Error{Code: code, Reason: reason, Err: err}
}
