package pg

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/dropDatabas3/socialauth/internal/domain/repository"
)

type accessTokenRepo struct{ q querier }

func (r *accessTokenRepo) Create(ctx context.Context, in repository.CreateAccessTokenInput) (*repository.AccessToken, error) {
	now := time.Now().UTC()
	t := &repository.AccessToken{
		AccountID: in.AccountID,
		TokenHash: in.TokenHash,
		Name:      in.Name,
		IssuedAt:  now,
		ExpiresAt: now.Add(in.TTL),
	}
	err := r.q.QueryRow(ctx, `
		INSERT INTO access_token (account_id, token_hash, name, issued_at, expires_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id`,
		t.AccountID, t.TokenHash, t.Name, t.IssuedAt, t.ExpiresAt,
	).Scan(&t.ID)
	if isUniqueViolation(err) {
		return nil, repository.ErrConflict
	}
	if err != nil {
		return nil, err
	}
	return t, nil
}

func (r *accessTokenRepo) GetByHash(ctx context.Context, tokenHash string) (*repository.AccessToken, error) {
	var t repository.AccessToken
	err := r.q.QueryRow(ctx, `
		SELECT id, account_id, token_hash, name, issued_at, expires_at, revoked_at
		FROM access_token WHERE token_hash = $1`, tokenHash,
	).Scan(&t.ID, &t.AccountID, &t.TokenHash, &t.Name, &t.IssuedAt, &t.ExpiresAt, &t.RevokedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *accessTokenRepo) RevokeAllByAccount(ctx context.Context, accountID int64) (int, error) {
	tag, err := r.q.Exec(ctx, `
		UPDATE access_token SET revoked_at = NOW()
		WHERE account_id = $1 AND revoked_at IS NULL`, accountID)
	if err != nil {
		return 0, err
	}
	return int(tag.RowsAffected()), nil
}
