package pg

import (
	"context"

	"github.com/dropDatabas3/socialauth/internal/domain/repository"
)

type deviceTokenRepo struct{ q querier }

func (r *deviceTokenRepo) Upsert(ctx context.Context, dt repository.DeviceToken) error {
	_, err := r.q.Exec(ctx, `
		INSERT INTO device_token (token, device_type, account_id, updated_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (token) DO UPDATE
		SET device_type = EXCLUDED.device_type, account_id = EXCLUDED.account_id, updated_at = NOW()`,
		dt.Token, dt.DeviceType, dt.AccountID)
	return err
}

func (r *deviceTokenRepo) ListByAccount(ctx context.Context, accountID int64) ([]repository.DeviceToken, error) {
	rows, err := r.q.Query(ctx, `
		SELECT token, device_type, account_id, updated_at
		FROM device_token WHERE account_id = $1 ORDER BY updated_at DESC`, accountID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []repository.DeviceToken
	for rows.Next() {
		var dt repository.DeviceToken
		if err := rows.Scan(&dt.Token, &dt.DeviceType, &dt.AccountID, &dt.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, dt)
	}
	return out, rows.Err()
}
