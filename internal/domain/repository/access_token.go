package repository

import (
	"context"
	"time"
)

// AccessToken is the stored side of an opaque bearer credential. Only the
// SHA-256 of the token is kept.
type AccessToken struct {
	ID        int64
	AccountID int64
	TokenHash string
	Name      string
	IssuedAt  time.Time
	ExpiresAt time.Time
	RevokedAt *time.Time
}

// Active reports whether the token is neither revoked nor expired at now.
func (t *AccessToken) Active(now time.Time) bool {
	return t.RevokedAt == nil && now.Before(t.ExpiresAt)
}

type CreateAccessTokenInput struct {
	AccountID int64
	TokenHash string
	Name      string
	TTL       time.Duration
}

// AccessTokenRepository stores issued access tokens.
type AccessTokenRepository interface {
	Create(ctx context.Context, in CreateAccessTokenInput) (*AccessToken, error)

	// GetByHash returns ErrNotFound for unknown hashes, including revoked ones
	// that have been purged.
	GetByHash(ctx context.Context, tokenHash string) (*AccessToken, error)

	// RevokeAllByAccount marks every outstanding token of the account revoked
	// and returns how many were affected.
	RevokeAllByAccount(ctx context.Context, accountID int64) (int, error)
}
