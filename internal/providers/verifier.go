// Package providers defines the social identity verification contract.
//
// Each provider sub-package implements Verifier: given the credential a
// client obtained from the provider, it returns the identity the provider
// vouches for, or a *VerificationError. The orchestrator selects a verifier
// by provider name through a Registry.
package providers

import "context"

// Credential is the material a client submits for social login.
type Credential struct {
	// Token is a signed ID token (Apple) or a provider access token.
	Token string
	// ClaimedID is the provider user id the client says the token belongs to.
	ClaimedID string
	// Client-asserted profile fields. Used as fallbacks only.
	Email   string
	Name    string
	Picture string
	// Source is "website" for browser sign-in; anything else is mobile.
	Source string
}

// SourceWebsite marks a credential obtained through a browser flow.
const SourceWebsite = "website"

// VerifiedIdentity is the request-scoped result of a verification.
type VerifiedIdentity struct {
	Provider    string
	SubjectID   string
	Email       string
	DisplayName string
	AvatarURL   string
	// EmailHint is a client-supplied address used only when a new account
	// is created and the provider withheld Email. It never links accounts.
	EmailHint string
	// Asserted is true when the provider performed no server-side check and
	// the fields above are exactly what the client sent.
	Asserted bool
	// Evidence is the raw verified payload, kept for debug logging.
	Evidence map[string]any
}

// Verifier proves a credential with one provider.
type Verifier interface {
	Name() string
	Verify(ctx context.Context, cred Credential) (*VerifiedIdentity, error)
}
