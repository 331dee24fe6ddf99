package memory

import (
	"context"
	"sort"
	"time"

	"github.com/dropDatabas3/socialauth/internal/domain/repository"
)

type accessTokenRepo struct{ c *memConn }

func (r *accessTokenRepo) Create(_ context.Context, in repository.CreateAccessTokenInput) (out *repository.AccessToken, err error) {
	err = r.c.view(func(d *memData) error {
		if _, ok := d.accounts[in.AccountID]; !ok {
			return repository.ErrNotFound
		}
		if _, dup := d.tokens[in.TokenHash]; dup {
			return repository.ErrConflict
		}
		now := time.Now().UTC()
		d.nextTokenID++
		t := &repository.AccessToken{
			ID:        d.nextTokenID,
			AccountID: in.AccountID,
			TokenHash: in.TokenHash,
			Name:      in.Name,
			IssuedAt:  now,
			ExpiresAt: now.Add(in.TTL),
		}
		d.tokens[in.TokenHash] = t
		cp := *t
		out = &cp
		return nil
	})
	return out, err
}

func (r *accessTokenRepo) GetByHash(_ context.Context, tokenHash string) (out *repository.AccessToken, err error) {
	err = r.c.view(func(d *memData) error {
		t, ok := d.tokens[tokenHash]
		if !ok {
			return repository.ErrNotFound
		}
		cp := *t
		out = &cp
		return nil
	})
	return out, err
}

func (r *accessTokenRepo) RevokeAllByAccount(_ context.Context, accountID int64) (n int, err error) {
	err = r.c.view(func(d *memData) error {
		now := time.Now().UTC()
		for _, t := range d.tokens {
			if t.AccountID == accountID && t.RevokedAt == nil {
				ts := now
				t.RevokedAt = &ts
				n++
			}
		}
		return nil
	})
	return n, err
}

type deviceTokenRepo struct{ c *memConn }

func (r *deviceTokenRepo) Upsert(_ context.Context, dt repository.DeviceToken) error {
	return r.c.view(func(d *memData) error {
		if _, ok := d.accounts[dt.AccountID]; !ok {
			return repository.ErrNotFound
		}
		dt.UpdatedAt = time.Now().UTC()
		d.devices[dt.Token] = dt
		return nil
	})
}

func (r *deviceTokenRepo) ListByAccount(_ context.Context, accountID int64) (out []repository.DeviceToken, err error) {
	err = r.c.view(func(d *memData) error {
		for _, dt := range d.devices {
			if dt.AccountID == accountID {
				out = append(out, dt)
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].Token < out[j].Token })
	return out, err
}
