// Package identity maps a verified provider identity to a local account,
// linking or creating one as needed.
package identity

import (
	"context"
	"errors"
	"fmt"

	"github.com/dropDatabas3/socialauth/internal/domain/repository"
	"github.com/dropDatabas3/socialauth/internal/observability/logger"
	"github.com/dropDatabas3/socialauth/internal/providers"
	"github.com/dropDatabas3/socialauth/internal/store"
)

// ErrEmailRequired is returned for an Asserted identity that matches no
// account by provider id and carries no email.
var ErrEmailRequired = errors.New("identity: email required for new account")

// maxAttempts bounds re-resolution after losing a creation or link race.
const maxAttempts = 3

// Options tune one resolution.
type Options struct {
	// AvatarOverride replaces the account avatar when non-empty.
	AvatarOverride string
	// RequireEmail rejects creating an account without an email.
	RequireEmail bool
}

// Result is the resolved account. Exactly one of IsNew and Linked may be
// true; both false means the provider id already pointed at the account.
type Result struct {
	Account *repository.Account
	IsNew   bool
	Linked  bool
}

// Resolver is safe for concurrent use. Two resolutions for the same
// provider id or email are serialized in-process; across processes the
// store's unique constraints decide and the loser re-resolves.
type Resolver struct {
	locks *keyLock
}

func NewResolver() *Resolver {
	return &Resolver{locks: newKeyLock()}
}

// Resolve looks up by provider id, then by verified email, then creates.
// conn may be a transaction; each write runs in its own nested scope so a
// lost race does not poison the caller's transaction.
func (r *Resolver) Resolve(ctx context.Context, conn store.Conn, id *providers.VerifiedIdentity, opts Options) (*Result, error) {
	log := logger.From(ctx).With(
		logger.Layer("service"),
		logger.Component("identity"),
		logger.Op("Resolve"),
		logger.Provider(id.Provider),
	)
	if id.SubjectID == "" {
		return nil, fmt.Errorf("%w: empty subject", repository.ErrInvalidInput)
	}

	email := repository.NormalizeEmail(id.Email)
	hint := repository.NormalizeEmail(id.EmailHint)
	release := r.locks.Lock(providerKey(id.Provider, id.SubjectID), emailKey(email), emailKey(hint))
	defer release()

	useHint := email == "" && hint != ""
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		res, err := r.resolveOnce(ctx, conn, id, email, hint, useHint, opts)
		if err == nil {
			log.Debug("identity resolved",
				logger.AccountID(res.Account.ID),
				logger.Bool("is_new", res.IsNew),
				logger.Bool("linked", res.Linked),
				logger.Int("attempt", attempt),
			)
			return res, nil
		}
		if !errors.Is(err, repository.ErrConflict) {
			return nil, err
		}
		log.Info("identity race lost, re-resolving", logger.Int("attempt", attempt), logger.Bool("hint", useHint))
		// a colliding hint belongs to someone else; create without it
		useHint = false
	}
	return nil, fmt.Errorf("identity: no convergence after %d attempts: %w", maxAttempts, repository.ErrConflict)
}

func (r *Resolver) resolveOnce(ctx context.Context, conn store.Conn, id *providers.VerifiedIdentity,
	email, hint string, useHint bool, opts Options) (*Result, error) {
	accounts := conn.Accounts()

	// 1. provider id
	acc, err := accounts.GetByProviderID(ctx, id.Provider, id.SubjectID)
	switch {
	case err == nil:
		if err := r.applyAvatar(ctx, conn, acc, opts.AvatarOverride); err != nil {
			return nil, err
		}
		return &Result{Account: acc}, nil
	case !errors.Is(err, repository.ErrNotFound):
		return nil, err
	}

	if opts.RequireEmail && email == "" {
		return nil, ErrEmailRequired
	}

	// 2. verified email
	if email != "" {
		acc, err := accounts.GetByEmail(ctx, email)
		switch {
		case err == nil:
			err := conn.WithTx(ctx, func(tx store.Conn) error {
				return tx.Accounts().LinkProvider(ctx, acc.ID, id.Provider, id.SubjectID)
			})
			if err != nil {
				return nil, err
			}
			acc.SetProviderID(id.Provider, id.SubjectID)
			if err := r.applyAvatar(ctx, conn, acc, opts.AvatarOverride); err != nil {
				return nil, err
			}
			return &Result{Account: acc, Linked: true}, nil
		case !errors.Is(err, repository.ErrNotFound):
			return nil, err
		}
	}

	// 3. create
	in := repository.CreateAccountInput{
		UserName:       id.DisplayName,
		Email:          email,
		Provider:       id.Provider,
		ProviderUserID: id.SubjectID,
		AvatarURL:      id.AvatarURL,
		IsActive:       true,
	}
	if useHint {
		in.Email = hint
	}
	if opts.AvatarOverride != "" {
		in.AvatarURL = opts.AvatarOverride
	}
	var created *repository.Account
	err = conn.WithTx(ctx, func(tx store.Conn) error {
		var err error
		created, err = tx.Accounts().Create(ctx, in)
		return err
	})
	if err != nil {
		return nil, err
	}
	return &Result{Account: created, IsNew: true}, nil
}

func (r *Resolver) applyAvatar(ctx context.Context, conn store.Conn, acc *repository.Account, avatar string) error {
	if avatar == "" || avatar == acc.AvatarURL {
		return nil
	}
	if err := conn.Accounts().UpdateAvatar(ctx, acc.ID, avatar); err != nil {
		return fmt.Errorf("update avatar: %w", err)
	}
	acc.AvatarURL = avatar
	return nil
}

func providerKey(provider, subject string) string { return "p:" + provider + ":" + subject }

func emailKey(email string) string {
	if email == "" {
		return ""
	}
	return "e:" + email
}
