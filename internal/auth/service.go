// Package auth sequences password login, signup, social login and logout
// over the verifier, resolver, throttle, session and audit components.
package auth

import (
	"context"
	"errors"

	"github.com/dropDatabas3/socialauth/internal/audit"
	"github.com/dropDatabas3/socialauth/internal/domain/repository"
	"github.com/dropDatabas3/socialauth/internal/email"
	"github.com/dropDatabas3/socialauth/internal/identity"
	"github.com/dropDatabas3/socialauth/internal/observability/logger"
	"github.com/dropDatabas3/socialauth/internal/providers"
	"github.com/dropDatabas3/socialauth/internal/rate"
	"github.com/dropDatabas3/socialauth/internal/security/password"
	"github.com/dropDatabas3/socialauth/internal/session"
	"github.com/dropDatabas3/socialauth/internal/store"
)

// Deps wires the Service. Store and Verifiers are required; the rest fall
// back to in-process defaults.
type Deps struct {
	Store     store.Conn
	Verifiers *providers.Registry
	Resolver  *identity.Resolver
	Throttle  *rate.Throttle
	Sessions  *session.Issuer
	Audit     *audit.Recorder
	// Mailer sends welcome mail for new accounts. Nil disables it.
	Mailer    *email.Notifier
	Passwords password.Policy
}

type Service struct {
	deps Deps
}

func New(d Deps) *Service {
	if d.Resolver == nil {
		d.Resolver = identity.NewResolver()
	}
	if d.Throttle == nil {
		d.Throttle = rate.NewThrottle(rate.NewMemoryStore(), rate.DefaultPolicy())
	}
	if d.Sessions == nil {
		d.Sessions = session.NewIssuer(0)
	}
	if d.Audit == nil {
		d.Audit = audit.NewRecorder()
	}
	if d.Passwords.MinLength == 0 {
		d.Passwords = password.DefaultPolicy()
	}
	return &Service{deps: d}
}

// Result is a successful login or signup.
type Result struct {
	Token   string
	Account *repository.Account
	IsNew   bool
}

// Authenticate returns the account bound to an active access token.
func (s *Service) Authenticate(ctx context.Context, token string) (*repository.Account, error) {
	rec, err := s.deps.Sessions.Resolve(ctx, s.deps.Store, token)
	if err != nil {
		if errors.Is(err, session.ErrInvalidToken) {
			return nil, newError(KindNotAuthenticated, "No user logged in")
		}
		return nil, internal(err)
	}
	acc, err := s.deps.Store.Accounts().GetByID(ctx, rec.AccountID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, newError(KindNotAuthenticated, "No user logged in")
		}
		return nil, internal(err)
	}
	return acc, nil
}

// Me is Authenticate under the name of the endpoint it serves.
func (s *Service) Me(ctx context.Context, token string) (*repository.Account, error) {
	return s.Authenticate(ctx, token)
}

// Logout revokes every token of the caller's account and records the
// transition on the channel of the account's latest session.
func (s *Service) Logout(ctx context.Context, token, purchaseKey string) error {
	log := logger.From(ctx).With(logger.Layer("service"), logger.Component("auth"), logger.Op("Logout"))

	rec, err := s.deps.Sessions.Resolve(ctx, s.deps.Store, token)
	if err != nil {
		if errors.Is(err, session.ErrInvalidToken) {
			return newError(KindNotAuthenticated, "No user logged in")
		}
		return internal(err)
	}
	log = log.With(logger.AccountID(rec.AccountID))

	channel := s.deps.Audit.SessionChannel(ctx, s.deps.Store, rec.AccountID)
	err = s.deps.Store.WithTx(ctx, func(tx store.Conn) error {
		if _, err := s.deps.Sessions.RevokeAll(ctx, tx, rec.AccountID); err != nil {
			return err
		}
		s.deps.Audit.Record(ctx, tx, repository.LoginEvent{
			AccountID:   rec.AccountID,
			Action:      repository.ActionLogout,
			Channel:     channel,
			PurchaseKey: purchaseKey,
		})
		return nil
	})
	if err != nil {
		log.Error("logout failed", logger.Err(err))
		return internal(err)
	}
	log.Info("logged out", logger.Channel(string(channel)))
	return nil
}
