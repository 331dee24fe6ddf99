package audit

import (
	"context"
	"errors"
	"testing"

	"github.com/dropDatabas3/socialauth/internal/domain/repository"
	"github.com/dropDatabas3/socialauth/internal/store"
	"github.com/dropDatabas3/socialauth/internal/store/adapters/memory"
)

type failingEvents struct {
	repository.LoginEventRepository
}

func (failingEvents) Append(context.Context, repository.LoginEvent) (*repository.LoginEvent, error) {
	return nil, errors.New("disk full")
}

type failingConn struct{ store.Conn }

func (c failingConn) LoginEvents() repository.LoginEventRepository {
	return failingEvents{c.Conn.LoginEvents()}
}

func (c failingConn) WithTx(ctx context.Context, fn func(store.Conn) error) error {
	return c.Conn.WithTx(ctx, func(tx store.Conn) error { return fn(failingConn{tx}) })
}

func TestRecordSwallowsFailure(t *testing.T) {
	ctx := context.Background()
	conn := memory.New()
	acc, err := conn.Accounts().Create(ctx, repository.CreateAccountInput{Email: "a@x.com"})
	if err != nil {
		t.Fatal(err)
	}

	dropped := 0
	r := &Recorder{OnFailure: func() { dropped++ }}

	err = conn.WithTx(ctx, func(tx store.Conn) error {
		if ev := r.Record(ctx, failingConn{tx}, repository.LoginEvent{AccountID: acc.ID, Action: repository.ActionLogin}); ev != nil {
			t.Errorf("expected dropped event")
		}
		// the enclosing transaction keeps working
		return tx.Accounts().UpdateAvatar(ctx, acc.ID, "https://img/x.png")
	})
	if err != nil {
		t.Fatalf("outer tx: %v", err)
	}
	if dropped != 1 {
		t.Fatalf("dropped = %d, want 1", dropped)
	}
	got, _ := conn.Accounts().GetByID(ctx, acc.ID)
	if got.AvatarURL != "https://img/x.png" {
		t.Fatalf("outer write lost: %+v", got)
	}
}

func TestSessionChannel(t *testing.T) {
	ctx := context.Background()
	conn := memory.New()
	acc, _ := conn.Accounts().Create(ctx, repository.CreateAccountInput{Email: "a@x.com"})
	r := &Recorder{}

	if got := r.SessionChannel(ctx, conn, acc.ID); got != repository.ChannelUnknown {
		t.Fatalf("channel = %q, want Unknown", got)
	}
	r.Record(ctx, conn, repository.LoginEvent{AccountID: acc.ID, Action: repository.ActionSignup, Channel: repository.ChannelSocial})
	r.Record(ctx, conn, repository.LoginEvent{AccountID: acc.ID, Action: repository.ActionLogout, Channel: repository.ChannelWebsite})
	if got := r.SessionChannel(ctx, conn, acc.ID); got != repository.ChannelSocial {
		t.Fatalf("channel = %q, want Social", got)
	}
}
