// Package errors defines the JSON error envelope written by every handler.
package errors

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/dropDatabas3/socialauth/internal/auth"
)

// AppError is an error with its HTTP rendering.
type AppError struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	Detail     string `json:"detail,omitempty"`
	HTTPStatus int    `json:"-"`
	// RetryAfter, in seconds, is sent as the Retry-After header when set.
	RetryAfter int   `json:"-"`
	Err        error `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error { return e.Err }

// WithDetail returns a copy with Detail set.
func (e *AppError) WithDetail(detail string) *AppError {
	cp := *e
	cp.Detail = detail
	return &cp
}

// WithCause returns a copy wrapping err.
func (e *AppError) WithCause(err error) *AppError {
	cp := *e
	cp.Err = err
	return &cp
}

// WithMessage returns a copy with a different user-visible message.
func (e *AppError) WithMessage(msg string) *AppError {
	cp := *e
	cp.Message = msg
	return &cp
}

var (
	ErrInvalidJSON = &AppError{
		Code:       "INVALID_JSON",
		Message:    "The request body is not valid JSON.",
		HTTPStatus: http.StatusBadRequest,
	}
	ErrBodyTooLarge = &AppError{
		Code:       "BODY_TOO_LARGE",
		Message:    "The request body is too large.",
		HTTPStatus: http.StatusRequestEntityTooLarge,
	}
	ErrTokenMissing = &AppError{
		Code:       "TOKEN_MISSING",
		Message:    "No user logged in",
		HTTPStatus: http.StatusUnauthorized,
	}
	ErrMethodNotAllowed = &AppError{
		Code:       "METHOD_NOT_ALLOWED",
		Message:    "Method not allowed.",
		HTTPStatus: http.StatusMethodNotAllowed,
	}
	ErrNotFound = &AppError{
		Code:       "NOT_FOUND",
		Message:    "The requested resource was not found.",
		HTTPStatus: http.StatusNotFound,
	}
	ErrInternalServerError = &AppError{
		Code:       "INTERNAL_SERVER_ERROR",
		Message:    "Something went wrong, please try again",
		HTTPStatus: http.StatusInternalServerError,
	}
	ErrServiceUnavailable = &AppError{
		Code:       "SERVICE_UNAVAILABLE",
		Message:    "The service is temporarily unavailable.",
		HTTPStatus: http.StatusServiceUnavailable,
	}
)

// invalidCredentialsMessage hides which of the password checks failed.
const invalidCredentialsMessage = "These credentials do not match our records."

// FromError converts err to an AppError. Orchestrator errors are mapped by
// kind; anything else is a 500.
func FromError(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	var ae *auth.Error
	if !errors.As(err, &ae) {
		return ErrInternalServerError.WithCause(err)
	}

	out := &AppError{Code: string(ae.Kind), Message: ae.Message, HTTPStatus: http.StatusConflict, Err: err}
	switch {
	case auth.IsCredentialFailure(ae.Kind):
		out.Code = "INVALID_CREDENTIALS"
		out.Message = invalidCredentialsMessage
	case ae.Kind == auth.KindTooManyAttempts:
		out.HTTPStatus = http.StatusTooManyRequests
		out.RetryAfter = int(ae.RetryAfter.Seconds())
	case ae.Kind == auth.KindNotAuthenticated:
		out.HTTPStatus = http.StatusUnauthorized
	case ae.Kind == auth.KindProviderUnreachable:
		out.HTTPStatus = http.StatusServiceUnavailable
	case ae.Kind == auth.KindInternal:
		return ErrInternalServerError.WithCause(err)
	}
	out.Code = strings.ToUpper(out.Code)
	return out
}
