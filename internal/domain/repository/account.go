package repository

import (
	"context"
	"strings"
	"time"
)

// Provider names. Each one owns a dedicated external-id slot on Account.
const (
	ProviderApple    = "apple"
	ProviderGoogle   = "google"
	ProviderFacebook = "facebook"
	ProviderTwitter  = "twitter"
	ProviderLinkedIn = "linkedin"
)

// Providers lists every provider that has an id slot, in column order.
var Providers = []string{ProviderGoogle, ProviderFacebook, ProviderTwitter, ProviderLinkedIn, ProviderApple}

// providerColumns maps a provider to its account column. Used by SQL adapters
// to build lookups without interpolating caller input.
var providerColumns = map[string]string{
	ProviderGoogle:   "google_id",
	ProviderFacebook: "facebook_id",
	ProviderTwitter:  "twitter_id",
	ProviderLinkedIn: "linkedin_id",
	ProviderApple:    "apple_id",
}

// ProviderColumn returns the account column holding provider's external id.
func ProviderColumn(provider string) (string, bool) {
	col, ok := providerColumns[provider]
	return col, ok
}

// Account is a local user account.
type Account struct {
	ID       int64
	UserName string
	// Email is empty when the account was created from a provider that did
	// not assert one.
	Email string

	GoogleID   string
	FacebookID string
	TwitterID  string
	LinkedInID string
	AppleID    string

	IsActive bool
	// PasswordHash is nil for accounts created purely through social login.
	PasswordHash *string
	AvatarURL    string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// ProviderID returns the external id linked for provider, or "".
func (a *Account) ProviderID(provider string) string {
	switch provider {
	case ProviderGoogle:
		return a.GoogleID
	case ProviderFacebook:
		return a.FacebookID
	case ProviderTwitter:
		return a.TwitterID
	case ProviderLinkedIn:
		return a.LinkedInID
	case ProviderApple:
		return a.AppleID
	}
	return ""
}

// SetProviderID writes the slot for provider. It reports false for an
// unknown provider.
func (a *Account) SetProviderID(provider, id string) bool {
	switch provider {
	case ProviderGoogle:
		a.GoogleID = id
	case ProviderFacebook:
		a.FacebookID = id
	case ProviderTwitter:
		a.TwitterID = id
	case ProviderLinkedIn:
		a.LinkedInID = id
	case ProviderApple:
		a.AppleID = id
	default:
		return false
	}
	return true
}

// HasPassword reports whether password login is possible for the account.
func (a *Account) HasPassword() bool {
	return a.PasswordHash != nil && *a.PasswordHash != ""
}

// NormalizeEmail trims and lower-cases an address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// CreateAccountInput holds the fields of a new account. At most one provider
// slot is populated at creation.
type CreateAccountInput struct {
	UserName       string
	Email          string
	PasswordHash   *string
	Provider       string
	ProviderUserID string
	AvatarURL      string
	IsActive       bool
}

// AccountRepository is the account store.
type AccountRepository interface {
	// GetByID returns ErrNotFound if the account does not exist.
	GetByID(ctx context.Context, id int64) (*Account, error)

	// GetByEmail matches the normalized email.
	GetByEmail(ctx context.Context, email string) (*Account, error)

	// GetByProviderID looks up the account owning (provider, providerUserID).
	GetByProviderID(ctx context.Context, provider, providerUserID string) (*Account, error)

	// Create inserts the account only if no row holds the same email or
	// provider id; otherwise it returns ErrConflict and writes nothing.
	Create(ctx context.Context, in CreateAccountInput) (*Account, error)

	// LinkProvider writes provider's id slot on account id. ErrConflict if
	// another account already owns the pair.
	LinkProvider(ctx context.Context, id int64, provider, providerUserID string) error

	// UpdateAvatar overwrites the avatar URL.
	UpdateAvatar(ctx context.Context, id int64, avatarURL string) error

	// Lock serializes token issuance and revocation for one account for the
	// rest of the enclosing transaction. Outside a transaction it only checks
	// existence.
	Lock(ctx context.Context, id int64) error
}
