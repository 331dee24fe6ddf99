package pg

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/dropDatabas3/socialauth/internal/domain/repository"
)

type loginEventRepo struct{ q querier }

func (r *loginEventRepo) Append(ctx context.Context, ev repository.LoginEvent) (*repository.LoginEvent, error) {
	const query = `
		INSERT INTO login_event (account_id, action, channel, purchase_key, client_id, provider)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at`
	out := ev
	err := r.q.QueryRow(ctx, query,
		ev.AccountID, string(ev.Action), string(ev.Channel),
		nullIfEmpty(ev.PurchaseKey), nullIfEmpty(ev.ClientID), nullIfEmpty(ev.Provider),
	).Scan(&out.ID, &out.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func scanEvent(row pgx.Row) (*repository.LoginEvent, error) {
	var (
		ev                     repository.LoginEvent
		action, channel        string
		purchase, client, prov *string
	)
	if err := row.Scan(&ev.ID, &ev.AccountID, &action, &channel, &purchase, &client, &prov, &ev.CreatedAt); err != nil {
		return nil, err
	}
	ev.Action = repository.LoginAction(action)
	ev.Channel = repository.LoginChannel(channel)
	ev.PurchaseKey = deref(purchase)
	ev.ClientID = deref(client)
	ev.Provider = deref(prov)
	return &ev, nil
}

func (r *loginEventRepo) LatestSession(ctx context.Context, accountID int64) (*repository.LoginEvent, error) {
	const query = `
		SELECT id, account_id, action, channel, purchase_key, client_id, provider, created_at
		FROM login_event
		WHERE account_id = $1 AND action IN ('Login', 'Signup')
		ORDER BY created_at DESC, id DESC
		LIMIT 1`
	ev, err := scanEvent(r.q.QueryRow(ctx, query, accountID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	return ev, err
}

func (r *loginEventRepo) ListByAccount(ctx context.Context, accountID int64, limit int) ([]repository.LoginEvent, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	const query = `
		SELECT id, account_id, action, channel, purchase_key, client_id, provider, created_at
		FROM login_event WHERE account_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2`
	rows, err := r.q.Query(ctx, query, accountID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []repository.LoginEvent
	for rows.Next() {
		ev, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *ev)
	}
	return out, rows.Err()
}
