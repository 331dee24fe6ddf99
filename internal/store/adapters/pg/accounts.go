package pg

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/dropDatabas3/socialauth/internal/domain/repository"
)

const accountColumns = `id, user_name, email, google_id, facebook_id, twitter_id, linkedin_id, apple_id,
	is_active, password_hash, avatar_url, created_at, updated_at`

type accountRepo struct{ q querier }

func scanAccount(row pgx.Row) (*repository.Account, error) {
	var (
		a                                        repository.Account
		email, google, facebook, twitter, li, ap *string
		avatar                                   *string
	)
	err := row.Scan(&a.ID, &a.UserName, &email, &google, &facebook, &twitter, &li, &ap,
		&a.IsActive, &a.PasswordHash, &avatar, &a.CreatedAt, &a.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	a.Email = deref(email)
	a.GoogleID = deref(google)
	a.FacebookID = deref(facebook)
	a.TwitterID = deref(twitter)
	a.LinkedInID = deref(li)
	a.AppleID = deref(ap)
	a.AvatarURL = deref(avatar)
	return &a, nil
}

func (r *accountRepo) GetByID(ctx context.Context, id int64) (*repository.Account, error) {
	return scanAccount(r.q.QueryRow(ctx, `SELECT `+accountColumns+` FROM account WHERE id = $1`, id))
}

func (r *accountRepo) GetByEmail(ctx context.Context, email string) (*repository.Account, error) {
	email = repository.NormalizeEmail(email)
	if email == "" {
		return nil, repository.ErrNotFound
	}
	return scanAccount(r.q.QueryRow(ctx,
		`SELECT `+accountColumns+` FROM account WHERE lower(email) = $1`, email))
}

func (r *accountRepo) GetByProviderID(ctx context.Context, provider, providerUserID string) (*repository.Account, error) {
	col, ok := repository.ProviderColumn(provider)
	if !ok {
		return nil, repository.ErrUnsupportedProvider
	}
	if providerUserID == "" {
		return nil, repository.ErrNotFound
	}
	return scanAccount(r.q.QueryRow(ctx,
		`SELECT `+accountColumns+` FROM account WHERE `+col+` = $1`, providerUserID))
}

// Create relies on the partial unique indexes: ON CONFLICT DO NOTHING returns
// no row when the email or provider id is already taken.
func (r *accountRepo) Create(ctx context.Context, in repository.CreateAccountInput) (*repository.Account, error) {
	var slots [5]*string
	if in.Provider != "" {
		if _, ok := repository.ProviderColumn(in.Provider); !ok {
			return nil, repository.ErrUnsupportedProvider
		}
		for i, p := range repository.Providers {
			if p == in.Provider {
				slots[i] = nullIfEmpty(in.ProviderUserID)
			}
		}
	}

	const query = `
		INSERT INTO account (user_name, email, google_id, facebook_id, twitter_id, linkedin_id, apple_id,
			is_active, password_hash, avatar_url)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT DO NOTHING
		RETURNING ` + accountColumns

	acc, err := scanAccount(r.q.QueryRow(ctx, query,
		in.UserName, nullIfEmpty(repository.NormalizeEmail(in.Email)),
		slots[0], slots[1], slots[2], slots[3], slots[4],
		in.IsActive, in.PasswordHash, nullIfEmpty(in.AvatarURL),
	))
	if errors.Is(err, repository.ErrNotFound) || isUniqueViolation(err) {
		return nil, repository.ErrConflict
	}
	if err != nil {
		return nil, fmt.Errorf("insert account: %w", err)
	}
	return acc, nil
}

func (r *accountRepo) LinkProvider(ctx context.Context, id int64, provider, providerUserID string) error {
	col, ok := repository.ProviderColumn(provider)
	if !ok {
		return repository.ErrUnsupportedProvider
	}
	tag, err := r.q.Exec(ctx,
		`UPDATE account SET `+col+` = $2, updated_at = NOW() WHERE id = $1`, id, providerUserID)
	if isUniqueViolation(err) {
		return repository.ErrConflict
	}
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *accountRepo) UpdateAvatar(ctx context.Context, id int64, avatarURL string) error {
	tag, err := r.q.Exec(ctx,
		`UPDATE account SET avatar_url = $2, updated_at = NOW() WHERE id = $1`, id, nullIfEmpty(avatarURL))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *accountRepo) Lock(ctx context.Context, id int64) error {
	var got int64
	err := r.q.QueryRow(ctx, `SELECT id FROM account WHERE id = $1 FOR UPDATE`, id).Scan(&got)
	if errors.Is(err, pgx.ErrNoRows) {
		return repository.ErrNotFound
	}
	return err
}
