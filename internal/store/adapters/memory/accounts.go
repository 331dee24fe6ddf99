package memory

import (
	"context"
	"time"

	"github.com/dropDatabas3/socialauth/internal/domain/repository"
)

type accountRepo struct{ c *memConn }

func copyAccount(a *repository.Account) *repository.Account {
	cp := *a
	return &cp
}

func (r *accountRepo) GetByID(_ context.Context, id int64) (out *repository.Account, err error) {
	err = r.c.view(func(d *memData) error {
		a, ok := d.accounts[id]
		if !ok {
			return repository.ErrNotFound
		}
		out = copyAccount(a)
		return nil
	})
	return out, err
}

func (d *memData) findByEmail(email string) *repository.Account {
	email = repository.NormalizeEmail(email)
	if email == "" {
		return nil
	}
	for _, a := range d.accounts {
		if repository.NormalizeEmail(a.Email) == email {
			return a
		}
	}
	return nil
}

func (d *memData) findByProvider(provider, puid string) *repository.Account {
	if puid == "" {
		return nil
	}
	for _, a := range d.accounts {
		if a.ProviderID(provider) == puid {
			return a
		}
	}
	return nil
}

func (r *accountRepo) GetByEmail(_ context.Context, email string) (out *repository.Account, err error) {
	err = r.c.view(func(d *memData) error {
		a := d.findByEmail(email)
		if a == nil {
			return repository.ErrNotFound
		}
		out = copyAccount(a)
		return nil
	})
	return out, err
}

func (r *accountRepo) GetByProviderID(_ context.Context, provider, providerUserID string) (out *repository.Account, err error) {
	if _, ok := repository.ProviderColumn(provider); !ok {
		return nil, repository.ErrUnsupportedProvider
	}
	err = r.c.view(func(d *memData) error {
		a := d.findByProvider(provider, providerUserID)
		if a == nil {
			return repository.ErrNotFound
		}
		out = copyAccount(a)
		return nil
	})
	return out, err
}

func (r *accountRepo) Create(_ context.Context, in repository.CreateAccountInput) (out *repository.Account, err error) {
	if in.Provider != "" {
		if _, ok := repository.ProviderColumn(in.Provider); !ok {
			return nil, repository.ErrUnsupportedProvider
		}
	}
	err = r.c.view(func(d *memData) error {
		if d.findByEmail(in.Email) != nil {
			return repository.ErrConflict
		}
		if in.Provider != "" && d.findByProvider(in.Provider, in.ProviderUserID) != nil {
			return repository.ErrConflict
		}
		now := time.Now().UTC()
		d.nextAccountID++
		a := &repository.Account{
			ID:           d.nextAccountID,
			UserName:     in.UserName,
			Email:        repository.NormalizeEmail(in.Email),
			IsActive:     in.IsActive,
			PasswordHash: in.PasswordHash,
			AvatarURL:    in.AvatarURL,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		if in.Provider != "" {
			a.SetProviderID(in.Provider, in.ProviderUserID)
		}
		d.accounts[a.ID] = a
		out = copyAccount(a)
		return nil
	})
	return out, err
}

func (r *accountRepo) LinkProvider(_ context.Context, id int64, provider, providerUserID string) error {
	if _, ok := repository.ProviderColumn(provider); !ok {
		return repository.ErrUnsupportedProvider
	}
	return r.c.view(func(d *memData) error {
		a, ok := d.accounts[id]
		if !ok {
			return repository.ErrNotFound
		}
		if other := d.findByProvider(provider, providerUserID); other != nil && other.ID != id {
			return repository.ErrConflict
		}
		a.SetProviderID(provider, providerUserID)
		a.UpdatedAt = time.Now().UTC()
		return nil
	})
}

func (r *accountRepo) UpdateAvatar(_ context.Context, id int64, avatarURL string) error {
	return r.c.view(func(d *memData) error {
		a, ok := d.accounts[id]
		if !ok {
			return repository.ErrNotFound
		}
		a.AvatarURL = avatarURL
		a.UpdatedAt = time.Now().UTC()
		return nil
	})
}

// Lock only checks existence; a transaction already excludes every other
// writer.
func (r *accountRepo) Lock(_ context.Context, id int64) error {
	return r.c.view(func(d *memData) error {
		if _, ok := d.accounts[id]; !ok {
			return repository.ErrNotFound
		}
		return nil
	})
}
