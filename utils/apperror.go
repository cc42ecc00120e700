package utils

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorKind classifies failures for the HTTP layer.
type ErrorKind string

const (
	KindValidation    ErrorKind = "validation"
	KindNotFound      ErrorKind = "not_found"
	KindAuthorization ErrorKind = "authorization"
	KindConflict      ErrorKind = "conflict"
	KindGateway       ErrorKind = "gateway"
	KindState         ErrorKind = "state"
	KindInternal      ErrorKind = "internal"
)

// AppError is a classified error carrying a client-safe message.
type AppError struct {
	Kind    ErrorKind
	Message string
	Details any
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *AppError) Unwrap() error { return e.Err }

// WithDetails attaches a structured breakdown to the error.
func (e *AppError) WithDetails(details any) *AppError {
	e.Details = details
	return e
}

func newAppError(kind ErrorKind, err error, format string, args ...any) *AppError {
	return &AppError{Kind: kind, Message: fmt.Sprintf(format, args...), Err: err}
}

func NewValidationError(format string, args ...any) *AppError {
	return newAppError(KindValidation, nil, format, args...)
}

func NewNotFoundError(format string, args ...any) *AppError {
	return newAppError(KindNotFound, nil, format, args...)
}

func NewAuthorizationError(format string, args ...any) *AppError {
	return newAppError(KindAuthorization, nil, format, args...)
}

func NewConflictError(format string, args ...any) *AppError {
	return newAppError(KindConflict, nil, format, args...)
}

func NewStateError(format string, args ...any) *AppError {
	return newAppError(KindState, nil, format, args...)
}

func NewGatewayError(err error, format string, args ...any) *AppError {
	return newAppError(KindGateway, err, format, args...)
}

func NewInternalError(err error, format string, args ...any) *AppError {
	return newAppError(KindInternal, err, format, args...)
}

// KindOf returns the kind of the first AppError in err's chain, or
// KindInternal when there is none.
func KindOf(err error) ErrorKind {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindInternal
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind ErrorKind) bool {
	return err != nil && KindOf(err) == kind
}

// HTTPStatus maps an error kind to its response status.
func HTTPStatus(kind ErrorKind) int {
	switch kind {
	case KindValidation, KindState:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindAuthorization:
		return http.StatusForbidden
	case KindConflict:
		return http.StatusConflict
	case KindGateway:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
