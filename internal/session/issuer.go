// Package session issues and revokes opaque access tokens. Only the SHA-256
// digest of a token is stored.
package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dropDatabas3/socialauth/internal/domain/repository"
	"github.com/dropDatabas3/socialauth/internal/observability/logger"
	tokens "github.com/dropDatabas3/socialauth/internal/security/token"
	"github.com/dropDatabas3/socialauth/internal/store"
)

// ErrInvalidToken covers unknown, revoked and expired tokens alike.
var ErrInvalidToken = errors.New("session: invalid access token")

// DefaultTTL is one year, the lifetime of the tokens this service replaces.
const DefaultTTL = 365 * 24 * time.Hour

// TokenName labels tokens minted at login.
const TokenName = "authToken"

// Issued is a freshly minted token. Token is the only copy of the secret.
type Issued struct {
	Token  string
	Record *repository.AccessToken
}

type Issuer struct {
	ttl time.Duration
	now func() time.Time
}

func NewIssuer(ttl time.Duration) *Issuer {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Issuer{ttl: ttl, now: time.Now}
}

// Issue mints a token for the account. Issuance holds the account lock so
// it cannot interleave with RevokeAll.
func (s *Issuer) Issue(ctx context.Context, conn store.Conn, accountID int64) (*Issued, error) {
	raw, err := tokens.GenerateOpaqueToken(tokens.DefaultBytes)
	if err != nil {
		return nil, fmt.Errorf("generate token: %w", err)
	}

	var rec *repository.AccessToken
	err = conn.WithTx(ctx, func(tx store.Conn) error {
		if err := tx.Accounts().Lock(ctx, accountID); err != nil {
			return err
		}
		var err error
		rec, err = tx.AccessTokens().Create(ctx, repository.CreateAccessTokenInput{
			AccountID: accountID,
			TokenHash: tokens.SHA256Base64URL(raw),
			Name:      TokenName,
			TTL:       s.ttl,
		})
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("issue token: %w", err)
	}
	return &Issued{Token: raw, Record: rec}, nil
}

// Resolve returns the stored record for an active token.
func (s *Issuer) Resolve(ctx context.Context, conn store.Conn, token string) (*repository.AccessToken, error) {
	if token == "" {
		return nil, ErrInvalidToken
	}
	rec, err := conn.AccessTokens().GetByHash(ctx, tokens.SHA256Base64URL(token))
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrInvalidToken
	}
	if err != nil {
		return nil, err
	}
	if !rec.Active(s.now()) {
		return nil, ErrInvalidToken
	}
	return rec, nil
}

// RevokeAll invalidates every outstanding token of the account. A token
// being issued concurrently is either committed before and revoked, or
// committed after and left active.
func (s *Issuer) RevokeAll(ctx context.Context, conn store.Conn, accountID int64) (int, error) {
	var n int
	err := conn.WithTx(ctx, func(tx store.Conn) error {
		if err := tx.Accounts().Lock(ctx, accountID); err != nil {
			return err
		}
		var err error
		n, err = tx.AccessTokens().RevokeAllByAccount(ctx, accountID)
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("revoke tokens: %w", err)
	}
	logger.From(ctx).Debug("tokens revoked",
		logger.Component("session"), logger.AccountID(accountID), logger.Int("count", n))
	return n, nil
}
