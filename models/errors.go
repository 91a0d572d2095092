package models

import (
	"errors"
	"fmt"
	"net/http"
)

type ErrorKind string

const (
	KindInvalidInput        ErrorKind = "INVALID_INPUT"
	KindUnauthorized        ErrorKind = "UNAUTHORIZED"
	KindTokenExpired        ErrorKind = "TOKEN_EXPIRED"
	KindNotFound            ErrorKind = "NOT_FOUND"
	KindConflict            ErrorKind = "CONFLICT"
	KindInvalidRelationship ErrorKind = "INVALID_RELATIONSHIP"
	KindInternal            ErrorKind = "INTERNAL_ERROR"
	KindRateLimited         ErrorKind = "RATE_LIMITED"
)

// ErrorResponse is the single error body shape of the API.
type ErrorResponse struct {
	Message string    `json:"message"`
	Code    ErrorKind `json:"code"`
}

// AppError represents a classified application error
type AppError struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Status maps the error kind to an HTTP status code.
func (e *AppError) Status() int {
	switch e.Kind {
	case KindInvalidInput, KindInvalidRelationship:
		return http.StatusBadRequest
	case KindUnauthorized, KindTokenExpired:
		return http.StatusUnauthorized
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	case KindRateLimited:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

func NewInvalidInputError(message string) *AppError {
	return &AppError{Kind: KindInvalidInput, Message: message}
}

func NewUnauthorizedError(message string) *AppError {
	return &AppError{Kind: KindUnauthorized, Message: message}
}

func NewTokenExpiredError() *AppError {
	return &AppError{Kind: KindTokenExpired, Message: "Token expired"}
}

func NewNotFoundError(resource string, id interface{}) *AppError {
	return &AppError{Kind: KindNotFound, Message: fmt.Sprintf("%s with ID %v not found", resource, id)}
}

func NewConflictError(message string) *AppError {
	return &AppError{Kind: KindConflict, Message: message}
}

func NewInvalidRelationshipError(message string) *AppError {
	return &AppError{Kind: KindInvalidRelationship, Message: message}
}

func NewRateLimitedError() *AppError {
	return &AppError{Kind: KindRateLimited, Message: "Too many requests"}
}

func NewInternalError(err error) *AppError {
	return &AppError{Kind: KindInternal, Message: "Internal server error", Err: err}
}

// AsAppError classifies any error; unclassified errors become internal errors
// that keep the underlying message.
func AsAppError(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return &AppError{Kind: KindInternal, Message: err.Error(), Err: err}
}

// IsKind reports whether err is an AppError of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Kind == kind
}
