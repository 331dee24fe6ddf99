package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/dropDatabas3/socialauth/internal/providers"
)

// Kind classifies an orchestrator failure. The HTTP layer maps kinds to
// status codes; Message is what the caller sees.
type Kind string

const (
	KindMalformedInput      Kind = "malformed_input"
	KindInvalidCredentials  Kind = "invalid_credentials"
	KindAccountNotFound     Kind = "account_not_found"
	KindAccountInactive     Kind = "account_inactive"
	KindTooManyAttempts     Kind = "too_many_attempts"
	KindEmailTaken          Kind = "email_taken"
	KindUnsupportedProvider Kind = "unsupported_provider"
	KindValidationFailed    Kind = "validation_failed"
	KindProviderRejected    Kind = "provider_rejected"
	KindIdentityMismatch    Kind = "identity_mismatch"
	KindProviderUnreachable Kind = "provider_unreachable"
	KindNotAuthenticated    Kind = "not_authenticated"
	KindInternal            Kind = "internal"
)

// Error is returned by every Service operation.
type Error struct {
	Kind    Kind
	Message string
	// RetryAfter is set for KindTooManyAttempts.
	RetryAfter time.Duration
	Err        error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("auth %s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("auth %s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

func newError(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Message: msg}
}

func internal(err error) *Error {
	return &Error{Kind: KindInternal, Message: "Something went wrong, please try again", Err: err}
}

// KindOf returns the kind of err, or KindInternal for foreign errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// IsCredentialFailure reports whether kind belongs to the password path
// failures that callers must not be able to tell apart.
func IsCredentialFailure(kind Kind) bool {
	switch kind {
	case KindInvalidCredentials, KindAccountNotFound, KindAccountInactive:
		return true
	}
	return false
}

func fromVerification(err error) *Error {
	var ve *providers.VerificationError
	if !errors.As(err, &ve) {
		return internal(err)
	}
	kind := KindValidationFailed
	switch {
	case errors.Is(ve.Kind, providers.ErrProviderRejected):
		kind = KindProviderRejected
	case errors.Is(ve.Kind, providers.ErrIdentityMismatch):
		kind = KindIdentityMismatch
	case errors.Is(ve.Kind, providers.ErrProviderUnreachable):
		kind = KindProviderUnreachable
	}
	return &Error{Kind: kind, Message: ve.Message, Err: err}
}
