package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/socialauth/internal/domain/repository"
	"github.com/dropDatabas3/socialauth/internal/store"
)

func TestCreateRejectsDuplicates(t *testing.T) {
	ctx := context.Background()
	conn := New()
	accs := conn.Accounts()

	a, err := accs.Create(ctx, repository.CreateAccountInput{
		UserName: "Ann", Email: "Ann@Example.com", Provider: repository.ProviderGoogle, ProviderUserID: "g-1", IsActive: true,
	})
	require.NoError(t, err)
	assert.Equal(t, "ann@example.com", a.Email)
	assert.Equal(t, "g-1", a.GoogleID)

	_, err = accs.Create(ctx, repository.CreateAccountInput{Email: "ann@example.com"})
	assert.ErrorIs(t, err, repository.ErrConflict)

	_, err = accs.Create(ctx, repository.CreateAccountInput{Provider: repository.ProviderGoogle, ProviderUserID: "g-1"})
	assert.ErrorIs(t, err, repository.ErrConflict)

	// two accounts without email do not collide
	_, err = accs.Create(ctx, repository.CreateAccountInput{Provider: repository.ProviderApple, ProviderUserID: "a-1"})
	require.NoError(t, err)
	_, err = accs.Create(ctx, repository.CreateAccountInput{Provider: repository.ProviderApple, ProviderUserID: "a-2"})
	require.NoError(t, err)
}

func TestLinkProviderConflict(t *testing.T) {
	ctx := context.Background()
	accs := New().Accounts()

	a, err := accs.Create(ctx, repository.CreateAccountInput{Email: "a@x.io", Provider: repository.ProviderTwitter, ProviderUserID: "t-1"})
	require.NoError(t, err)
	b, err := accs.Create(ctx, repository.CreateAccountInput{Email: "b@x.io"})
	require.NoError(t, err)

	assert.ErrorIs(t, accs.LinkProvider(ctx, b.ID, repository.ProviderTwitter, "t-1"), repository.ErrConflict)
	require.NoError(t, accs.LinkProvider(ctx, a.ID, repository.ProviderTwitter, "t-1"))
	assert.ErrorIs(t, accs.LinkProvider(ctx, a.ID, "myspace", "x"), repository.ErrUnsupportedProvider)
}

func TestWithTxRollsBack(t *testing.T) {
	ctx := context.Background()
	conn := New()
	boom := errors.New("boom")

	err := conn.WithTx(ctx, func(tx store.Conn) error {
		if _, err := tx.Accounts().Create(ctx, repository.CreateAccountInput{Email: "x@x.io"}); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	_, err = conn.Accounts().GetByEmail(ctx, "x@x.io")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestNestedTxFailureKeepsOuterWrites(t *testing.T) {
	ctx := context.Background()
	conn := New()

	var id int64
	err := conn.WithTx(ctx, func(tx store.Conn) error {
		a, err := tx.Accounts().Create(ctx, repository.CreateAccountInput{Email: "x@x.io"})
		if err != nil {
			return err
		}
		id = a.ID
		nested := tx.WithTx(ctx, func(inner store.Conn) error {
			if _, err := inner.LoginEvents().Append(ctx, repository.LoginEvent{
				AccountID: a.ID, Action: repository.ActionLogin, Channel: repository.ChannelWebsite,
			}); err != nil {
				return err
			}
			return errors.New("audit sink down")
		})
		require.Error(t, nested)
		return nil
	})
	require.NoError(t, err)

	_, err = conn.Accounts().GetByID(ctx, id)
	require.NoError(t, err)
	events, err := conn.LoginEvents().ListByAccount(ctx, id, 10)
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestLatestSessionSkipsLogout(t *testing.T) {
	ctx := context.Background()
	conn := New()
	a, err := conn.Accounts().Create(ctx, repository.CreateAccountInput{Email: "x@x.io"})
	require.NoError(t, err)

	_, err = conn.LoginEvents().LatestSession(ctx, a.ID)
	assert.ErrorIs(t, err, repository.ErrNotFound)

	ev := conn.LoginEvents()
	_, err = ev.Append(ctx, repository.LoginEvent{AccountID: a.ID, Action: repository.ActionSignup, Channel: repository.ChannelWebsite})
	require.NoError(t, err)
	_, err = ev.Append(ctx, repository.LoginEvent{AccountID: a.ID, Action: repository.ActionLogin, Channel: repository.ChannelSocialMobile})
	require.NoError(t, err)
	_, err = ev.Append(ctx, repository.LoginEvent{AccountID: a.ID, Action: repository.ActionLogout, Channel: repository.ChannelSocialMobile})
	require.NoError(t, err)

	latest, err := ev.LatestSession(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, repository.ActionLogin, latest.Action)
	assert.Equal(t, repository.ChannelSocialMobile, latest.Channel)
}

func TestRevokeAllByAccount(t *testing.T) {
	ctx := context.Background()
	conn := New()
	a, err := conn.Accounts().Create(ctx, repository.CreateAccountInput{Email: "x@x.io"})
	require.NoError(t, err)

	toks := conn.AccessTokens()
	for _, h := range []string{"h1", "h2"} {
		_, err := toks.Create(ctx, repository.CreateAccessTokenInput{AccountID: a.ID, TokenHash: h, TTL: time.Hour})
		require.NoError(t, err)
	}
	n, err := toks.RevokeAllByAccount(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	n, err = toks.RevokeAllByAccount(ctx, a.ID)
	require.NoError(t, err)
	assert.Zero(t, n)

	got, err := toks.GetByHash(ctx, "h1")
	require.NoError(t, err)
	assert.NotNil(t, got.RevokedAt)
}

func TestRegisteredAsMemory(t *testing.T) {
	conn, err := store.Open(context.Background(), store.AdapterConfig{Name: "memory"})
	require.NoError(t, err)
	assert.Equal(t, "memory", conn.Name())
}
