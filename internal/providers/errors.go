package providers

import (
	"errors"
	"fmt"
)

// Failure kinds. Every *VerificationError matches exactly one.
var (
	ErrValidationFailed    = errors.New("validation failed")
	ErrProviderRejected    = errors.New("provider rejected credential")
	ErrIdentityMismatch    = errors.New("identity mismatch")
	ErrProviderUnreachable = errors.New("provider unreachable")
)

// Finer reasons for ErrValidationFailed.
var (
	ErrMalformedToken           = errors.New("malformed token")
	ErrInvalidSignature         = errors.New("invalid signature")
	ErrIssuerOrAudienceMismatch = errors.New("issuer or audience mismatch")
	ErrTokenExpired             = errors.New("token expired")
)

// VerificationError is returned by every Verifier on failure. Message is
// safe to show to the end user.
type VerificationError struct {
	Kind    error
	Reason  error
	Message string
	Err     error
}

func (e *VerificationError) Error() string {
	msg := e.Kind.Error()
	if e.Reason != nil {
		msg += ": " + e.Reason.Error()
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap exposes Kind, Reason and the cause to errors.Is / errors.As.
func (e *VerificationError) Unwrap() []error {
	out := []error{e.Kind}
	if e.Reason != nil {
		out = append(out, e.Reason)
	}
	if e.Err != nil {
		out = append(out, e.Err)
	}
	return out
}

// Invalid reports a failed local validation step.
func Invalid(reason error, message string, cause error) *VerificationError {
	if message == "" {
		message = "The token is invalid"
	}
	return &VerificationError{Kind: ErrValidationFailed, Reason: reason, Message: message, Err: cause}
}

// Rejected carries the provider's own error text as Message.
func Rejected(message string) *VerificationError {
	if message == "" {
		message = "The provider rejected the token"
	}
	return &VerificationError{Kind: ErrProviderRejected, Message: message}
}

// Mismatch reports that the verified subject differs from the claimed id.
func Mismatch(claimed, verified string) *VerificationError {
	return &VerificationError{
		Kind:    ErrIdentityMismatch,
		Message: "The token does not belong to this user",
		Err:     fmt.Errorf("claimed %q, verified %q", claimed, verified),
	}
}

// Unreachable reports a transport failure or timeout talking to a provider.
func Unreachable(cause error) *VerificationError {
	return &VerificationError{
		Kind:    ErrProviderUnreachable,
		Message: "The provider could not be reached, please try again",
		Err:     cause,
	}
}
