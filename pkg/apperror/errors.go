package apperror

import (
	"errors"
	"net/http"
)

var (
	ErrSelfFollow          = errors.New("cannot follow yourself")
	ErrValidation          = errors.New("validation failed")
	ErrNotFoundOrForbidden = errors.New("resource not found")
	ErrConflict            = errors.New("conflicting concurrent update, retry")
	ErrUnauthorized        = errors.New("unauthorized")
	ErrUnavailable         = errors.New("feature not configured")
)

// AppError carries a client-facing message on top of one of the sentinels above.
type AppError struct {
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return "unknown error"
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// New wraps a sentinel with a message meant for the caller.
func New(err error, message string) *AppError {
	return &AppError{Message: message, Err: err}
}

// Validation is shorthand for New(ErrValidation, message).
func Validation(message string) *AppError {
	return New(ErrValidation, message)
}

// MapErrorToStatus maps the error taxonomy to HTTP status codes
func MapErrorToStatus(err error) int {
	switch {
	case errors.Is(err, ErrSelfFollow), errors.Is(err, ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, ErrNotFoundOrForbidden):
		return http.StatusNotFound
	case errors.Is(err, ErrConflict):
		return http.StatusConflict
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, ErrUnavailable):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

// Message returns the text safe to show a client. Unknown errors are masked.
func Message(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Error()
	}
	if MapErrorToStatus(err) == http.StatusInternalServerError {
		return http.StatusText(http.StatusInternalServerError)
	}
	return err.Error()
}
