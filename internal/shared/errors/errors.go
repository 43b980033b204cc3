// Package errors classifies failures at the HTTP boundary. Domain packages
// keep their own sentinels; handlers translate them into an AppError whose
// Kind decides the status and code the client sees.
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind is the client-facing class of a failure.
type Kind uint8

const (
	KindInternal Kind = iota
	KindValidation
	KindUnauthorized
	KindNotFound
	KindRateLimited
	KindUnavailable
)

var kinds = [...]struct {
	status int
	code   string
}{
	KindInternal:     {http.StatusInternalServerError, "INTERNAL_ERROR"},
	KindValidation:   {http.StatusBadRequest, "VALIDATION_ERROR"},
	KindUnauthorized: {http.StatusUnauthorized, "UNAUTHORIZED"},
	KindNotFound:     {http.StatusNotFound, "NOT_FOUND"},
	KindRateLimited:  {http.StatusTooManyRequests, "RATE_LIMIT_EXCEEDED"},
	KindUnavailable:  {http.StatusServiceUnavailable, "UNAVAILABLE"},
}

// Status returns the HTTP status for k.
func (k Kind) Status() int {
	if int(k) >= len(kinds) {
		return http.StatusInternalServerError
	}
	return kinds[k].status
}

// Code returns the machine-readable code for k.
func (k Kind) Code() string {
	if int(k) >= len(kinds) {
		return kinds[KindInternal].code
	}
	return kinds[k].code
}

// AppError is a failure with a message that is safe to return to clients.
type AppError struct {
	Kind    Kind
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

// Code returns the code of the error's kind.
func (e *AppError) Code() string {
	return e.Kind.Code()
}

// New creates an AppError of the given kind.
func New(kind Kind, message string, err error) *AppError {
	return &AppError{Kind: kind, Message: message, Err: err}
}

// NotFound reports a missing resource, e.g. NotFound("history entry").
func NotFound(resource string) *AppError {
	return New(KindNotFound, resource+" not found", nil)
}

// Unauthorized reports a missing or wrong access password.
func Unauthorized(message string) *AppError {
	if message == "" {
		message = "Unauthorized"
	}
	return New(KindUnauthorized, message, nil)
}

// ValidationError reports a request that cannot be served as sent.
func ValidationError(message string, err error) *AppError {
	return New(KindValidation, message, err)
}

// RateLimited reports a caller that exceeded its request budget.
func RateLimited() *AppError {
	return New(KindRateLimited, "Too many requests, please try again later", nil)
}

// Internal reports a failure the caller cannot fix. The message is shown to
// the client as is.
func Internal(message string, err error) *AppError {
	return New(KindInternal, message, err)
}

// Unavailable reports a dependency that cannot be reached.
func Unavailable(message string, err error) *AppError {
	return New(KindUnavailable, message, err)
}

// KindOf returns the kind of the first AppError in err's chain. Anything
// else is internal.
func KindOf(err error) Kind {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindInternal
}

// GetStatusCode returns the HTTP status for err.
func GetStatusCode(err error) int {
	return KindOf(err).Status()
}

// PublicMessage returns the message that is safe to show to a client.
func PublicMessage(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	return "internal error"
}
