package memory

import (
	"context"
	"time"

	"github.com/dropDatabas3/socialauth/internal/domain/repository"
)

type loginEventRepo struct{ c *memConn }

func (r *loginEventRepo) Append(_ context.Context, ev repository.LoginEvent) (out *repository.LoginEvent, err error) {
	err = r.c.view(func(d *memData) error {
		if _, ok := d.accounts[ev.AccountID]; !ok {
			return repository.ErrNotFound
		}
		d.nextEventID++
		ev.ID = d.nextEventID
		ev.CreatedAt = time.Now().UTC()
		d.events = append(d.events, ev)
		cp := ev
		out = &cp
		return nil
	})
	return out, err
}

func (r *loginEventRepo) LatestSession(_ context.Context, accountID int64) (out *repository.LoginEvent, err error) {
	err = r.c.view(func(d *memData) error {
		for i := len(d.events) - 1; i >= 0; i-- {
			ev := d.events[i]
			if ev.AccountID != accountID {
				continue
			}
			if ev.Action == repository.ActionLogin || ev.Action == repository.ActionSignup {
				out = &ev
				return nil
			}
		}
		return repository.ErrNotFound
	})
	return out, err
}

func (r *loginEventRepo) ListByAccount(_ context.Context, accountID int64, limit int) (out []repository.LoginEvent, err error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	err = r.c.view(func(d *memData) error {
		for i := len(d.events) - 1; i >= 0 && len(out) < limit; i-- {
			if d.events[i].AccountID == accountID {
				out = append(out, d.events[i])
			}
		}
		return nil
	})
	return out, err
}
