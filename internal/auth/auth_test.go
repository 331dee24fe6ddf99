package auth_test

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	jwtv5 "github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/socialauth/internal/auth"
	"github.com/dropDatabas3/socialauth/internal/domain/repository"
	"github.com/dropDatabas3/socialauth/internal/jwt"
	"github.com/dropDatabas3/socialauth/internal/providers"
	"github.com/dropDatabas3/socialauth/internal/providers/apple"
	"github.com/dropDatabas3/socialauth/internal/providers/google"
	"github.com/dropDatabas3/socialauth/internal/providers/twitter"
	"github.com/dropDatabas3/socialauth/internal/rate"
	"github.com/dropDatabas3/socialauth/internal/security/password"
	"github.com/dropDatabas3/socialauth/internal/session"
	"github.com/dropDatabas3/socialauth/internal/store"
	"github.com/dropDatabas3/socialauth/internal/store/adapters/memory"
)

type clock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *clock) now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *clock) advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

type env struct {
	svc      *auth.Service
	conn     store.Conn
	clock    *clock
	appleKey *rsa.PrivateKey
}

func newEnv(t *testing.T) *env {
	t.Helper()

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	jwks, _ := json.Marshal(jwt.JWKS{Keys: []jwt.JWK{jwt.NewRSAJWK("k1", &key.PublicKey)}})
	keySrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write(jwks)
	}))
	t.Cleanup(keySrv.Close)

	tokenInfo := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Query().Get("access_token") {
		case "g-linked":
			_, _ = w.Write([]byte(`{"sub":"g-1","email":"a@x.com","email_verified":"true"}`))
		case "g-unverified":
			_, _ = w.Write([]byte(`{"sub":"g-2","email":"a@x.com","email_verified":"false"}`))
		case "g-new":
			_, _ = w.Write([]byte(`{"sub":"g-9","email":"new@x.com","email_verified":"true"}`))
		default:
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":"invalid_token","error_description":"Invalid Value"}`))
		}
	}))
	t.Cleanup(tokenInfo.Close)

	reg := providers.NewRegistry()
	reg.Register(apple.New(apple.Config{}, jwt.NewKeyCache(keySrv.URL, keySrv.Client(), time.Hour)))
	reg.Register(google.New(tokenInfo.URL, tokenInfo.Client()))
	reg.Register(twitter.New())

	c := &clock{t: time.Now()}
	th := rate.NewThrottle(rate.NewMemoryStore(), rate.Policy{MaxAttempts: 3, Cooldown: time.Minute, Window: time.Minute}).
		WithClock(c.now)

	conn := memory.New()
	svc := auth.New(auth.Deps{Store: conn, Verifiers: reg, Throttle: th})
	return &env{svc: svc, conn: conn, clock: c, appleKey: key}
}

func (e *env) passwordAccount(t *testing.T, email, pwd string) *repository.Account {
	t.Helper()
	hash, err := password.Hash(pwd)
	require.NoError(t, err)
	acc, err := e.conn.Accounts().Create(context.Background(), repository.CreateAccountInput{
		UserName: "Ann", Email: email, PasswordHash: &hash, IsActive: true,
	})
	require.NoError(t, err)
	return acc
}

func (e *env) events(t *testing.T, accountID int64) []repository.LoginEvent {
	t.Helper()
	evs, err := e.conn.LoginEvents().ListByAccount(context.Background(), accountID, 10)
	require.NoError(t, err)
	return evs
}

func requireKind(t *testing.T, err error, kind auth.Kind) *auth.Error {
	t.Helper()
	require.Error(t, err)
	var ae *auth.Error
	require.ErrorAs(t, err, &ae)
	require.Equal(t, kind, ae.Kind, "error: %v", err)
	return ae
}

func TestSocialLoginIsIdempotent(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	in := auth.SocialLogin{Provider: "google", ID: "g-9", Name: "Neo", Token: "g-new"}

	first, err := e.svc.LoginWithProvider(ctx, in)
	require.NoError(t, err)
	second, err := e.svc.LoginWithProvider(ctx, in)
	require.NoError(t, err)

	assert.True(t, first.IsNew)
	assert.False(t, second.IsNew)
	assert.Equal(t, first.Account.ID, second.Account.ID)
	assert.NotEqual(t, first.Token, second.Token)

	evs := e.events(t, first.Account.ID)
	require.Len(t, evs, 2)
	assert.Equal(t, repository.ActionLogin, evs[0].Action)
	assert.Equal(t, repository.ActionSignup, evs[1].Action)
	assert.Equal(t, repository.ChannelSocialMobile, evs[1].Channel)
}

func TestSocialLoginLinksByVerifiedEmail(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	existing := e.passwordAccount(t, "a@x.com", "correct-horse")

	res, err := e.svc.LoginWithProvider(ctx, auth.SocialLogin{Provider: "google", ID: "g-1", Name: "Ann", Token: "g-linked"})
	require.NoError(t, err)

	assert.False(t, res.IsNew)
	assert.Equal(t, existing.ID, res.Account.ID)
	stored, err := e.conn.Accounts().GetByID(ctx, existing.ID)
	require.NoError(t, err)
	assert.Equal(t, "g-1", stored.GoogleID)
	assert.True(t, stored.HasPassword())
}

func TestSocialLoginUnverifiedEmailDoesNotLink(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	existing := e.passwordAccount(t, "a@x.com", "correct-horse")

	res, err := e.svc.LoginWithProvider(ctx, auth.SocialLogin{Provider: "google", ID: "g-2", Name: "Mal", Token: "g-unverified"})
	require.NoError(t, err)

	assert.True(t, res.IsNew)
	assert.NotEqual(t, existing.ID, res.Account.ID)
	stored, err := e.conn.Accounts().GetByID(ctx, existing.ID)
	require.NoError(t, err)
	assert.Empty(t, stored.GoogleID)
}

func TestSocialLoginMismatchTouchesNothing(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	existing := e.passwordAccount(t, "a@x.com", "correct-horse")

	_, err := e.svc.LoginWithProvider(ctx, auth.SocialLogin{Provider: "google", ID: "someone-else", Name: "Eve", Token: "g-linked"})
	requireKind(t, err, auth.KindIdentityMismatch)

	_, err = e.conn.Accounts().GetByProviderID(ctx, "google", "g-1")
	assert.ErrorIs(t, err, repository.ErrNotFound)
	_, err = e.conn.Accounts().GetByProviderID(ctx, "google", "someone-else")
	assert.ErrorIs(t, err, repository.ErrNotFound)
	stored, err := e.conn.Accounts().GetByID(ctx, existing.ID)
	require.NoError(t, err)
	assert.Empty(t, stored.GoogleID)
	assert.Empty(t, e.events(t, existing.ID))
}

func TestSocialLoginProviderRejected(t *testing.T) {
	e := newEnv(t)
	_, err := e.svc.LoginWithProvider(context.Background(), auth.SocialLogin{Provider: "google", ID: "g-1", Name: "Ann", Token: "expired"})
	ae := requireKind(t, err, auth.KindProviderRejected)
	assert.Equal(t, "Invalid Value", ae.Message)
}

func TestPasswordThrottleLocksAndRecovers(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.passwordAccount(t, "a@x.com", "correct-horse")
	good := auth.PasswordLogin{Email: "a@x.com", Password: "correct-horse", IP: "10.0.0.1"}
	bad := good
	bad.Password = "wrong-horse"

	for i := 0; i < 3; i++ {
		_, err := e.svc.LoginPassword(ctx, bad)
		requireKind(t, err, auth.KindInvalidCredentials)
	}

	_, err := e.svc.LoginPassword(ctx, good)
	ae := requireKind(t, err, auth.KindTooManyAttempts)
	assert.Equal(t, time.Minute, ae.RetryAfter)

	// another IP is not affected
	other := good
	other.IP = "10.0.0.2"
	_, err = e.svc.LoginPassword(ctx, other)
	require.NoError(t, err)

	e.clock.advance(time.Minute + time.Second)
	res, err := e.svc.LoginPassword(ctx, good)
	require.NoError(t, err)
	assert.NotEmpty(t, res.Token)

	// the counter restarted: two more failures do not lock
	for i := 0; i < 2; i++ {
		_, err := e.svc.LoginPassword(ctx, bad)
		requireKind(t, err, auth.KindInvalidCredentials)
	}
	_, err = e.svc.LoginPassword(ctx, good)
	require.NoError(t, err)
}

func TestPasswordLoginFailures(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	acc := e.passwordAccount(t, "a@x.com", "correct-horse")

	_, err := e.svc.LoginPassword(ctx, auth.PasswordLogin{Email: "nobody@x.com", Password: "correct-horse", IP: "1.1.1.1"})
	requireKind(t, err, auth.KindAccountNotFound)

	_, err = e.svc.LoginPassword(ctx, auth.PasswordLogin{Email: "a@x.com", Password: "short", IP: "1.1.1.1"})
	ae := requireKind(t, err, auth.KindMalformedInput)
	assert.Equal(t, "The password must be at least 8 characters.", ae.Message)

	_, err = e.svc.LoginPassword(ctx, auth.PasswordLogin{Email: "not-an-email", Password: "correct-horse", IP: "1.1.1.1"})
	requireKind(t, err, auth.KindMalformedInput)

	res, err := e.svc.LoginPassword(ctx, auth.PasswordLogin{Email: "A@X.com", Password: "correct-horse", IP: "1.1.1.1"})
	require.NoError(t, err)
	assert.Equal(t, acc.ID, res.Account.ID)
	evs := e.events(t, acc.ID)
	require.Len(t, evs, 1)
	assert.Equal(t, repository.ChannelWebsite, evs[0].Channel)
}

func TestAppleWebsiteSignup(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	now := time.Now()
	tok := jwtv5.NewWithClaims(jwtv5.SigningMethodRS256, jwtv5.MapClaims{
		"iss":   apple.DefaultIssuer,
		"aud":   apple.DefaultWebsiteClientID,
		"sub":   "001.abc",
		"email": "new@user.com",
		"iat":   now.Unix(),
		"exp":   now.Add(10 * time.Minute).Unix(),
	})
	tok.Header["kid"] = "k1"
	signed, err := tok.SignedString(e.appleKey)
	require.NoError(t, err)

	res, err := e.svc.LoginWithProvider(ctx, auth.SocialLogin{
		Provider: "apple", Token: signed, Source: "website", ClientID: "web-app",
	})
	require.NoError(t, err)

	assert.NotEmpty(t, res.Token)
	assert.True(t, res.IsNew)
	assert.Equal(t, "001.abc", res.Account.AppleID)
	assert.Equal(t, "new@user.com", res.Account.Email)

	evs := e.events(t, res.Account.ID)
	require.Len(t, evs, 1)
	assert.Equal(t, repository.ActionSignup, evs[0].Action)
	assert.Equal(t, repository.ChannelSocial, evs[0].Channel)
	assert.Equal(t, "apple", evs[0].Provider)
	assert.Equal(t, "web-app", evs[0].ClientID)

	me, err := e.svc.Me(ctx, res.Token)
	require.NoError(t, err)
	assert.Equal(t, res.Account.ID, me.ID)
}

func TestAppleUnknownKey(t *testing.T) {
	e := newEnv(t)
	rogue, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	tok := jwtv5.NewWithClaims(jwtv5.SigningMethodRS256, jwtv5.MapClaims{
		"iss": apple.DefaultIssuer, "aud": apple.DefaultMobileClientID, "sub": "001.abc",
		"exp": time.Now().Add(time.Minute).Unix(),
	})
	tok.Header["kid"] = "k1"
	signed, err := tok.SignedString(rogue)
	require.NoError(t, err)

	_, err = e.svc.LoginWithProvider(context.Background(), auth.SocialLogin{Provider: "apple", Token: signed, Source: "ios"})
	requireKind(t, err, auth.KindValidationFailed)
	assert.ErrorIs(t, err, providers.ErrInvalidSignature)
}

func TestAssertedProviderNeedsEmailForNewAccount(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	_, err := e.svc.LoginWithProvider(ctx, auth.SocialLogin{Provider: "twitter", ID: "t-1", Name: "Tw"})
	ae := requireKind(t, err, auth.KindMalformedInput)
	assert.Equal(t, "The email field is only can email or phone number", ae.Message)
	_, err = e.conn.Accounts().GetByProviderID(ctx, "twitter", "t-1")
	assert.ErrorIs(t, err, repository.ErrNotFound)

	res, err := e.svc.LoginWithProvider(ctx, auth.SocialLogin{
		Provider: "twitter", ID: "t-1", Name: "Tw", Email: "tw@x.com",
		DeviceToken: "dev-1", DeviceType: "ios",
	})
	require.NoError(t, err)
	assert.True(t, res.IsNew)

	// known id, no email needed any more
	again, err := e.svc.LoginWithProvider(ctx, auth.SocialLogin{Provider: "twitter", ID: "t-1", Name: "Tw"})
	require.NoError(t, err)
	assert.Equal(t, res.Account.ID, again.Account.ID)

	devs, err := e.conn.DeviceTokens().ListByAccount(ctx, res.Account.ID)
	require.NoError(t, err)
	require.Len(t, devs, 1)
	assert.Equal(t, "ios", devs[0].DeviceType)

	evs := e.events(t, res.Account.ID)
	require.NotEmpty(t, evs)
	assert.Equal(t, repository.ChannelSocial, evs[0].Channel)
}

func TestUnsupportedProvider(t *testing.T) {
	e := newEnv(t)
	_, err := e.svc.LoginWithProvider(context.Background(), auth.SocialLogin{Provider: "myspace", ID: "1", Name: "x", Token: "t"})
	ae := requireKind(t, err, auth.KindUnsupportedProvider)
	assert.Equal(t, "This provider not supported yet", ae.Message)
}

func TestSignup(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	res, err := e.svc.Signup(ctx, auth.SignupRequest{UserName: "Ann", Email: "ann@x.com", Password: "correct-horse", PurchaseKey: "pk-1"})
	require.NoError(t, err)
	assert.True(t, res.IsNew)
	assert.NotEmpty(t, res.Token)

	evs := e.events(t, res.Account.ID)
	require.Len(t, evs, 1)
	assert.Equal(t, repository.ActionSignup, evs[0].Action)
	assert.Equal(t, "pk-1", evs[0].PurchaseKey)

	_, err = e.svc.Signup(ctx, auth.SignupRequest{UserName: "Ann", Email: "ann@x.com", Password: "correct-horse"})
	ae := requireKind(t, err, auth.KindEmailTaken)
	assert.Equal(t, "Email is exists", ae.Message)

	_, err = e.svc.Signup(ctx, auth.SignupRequest{UserName: "Bo", Email: "bo@x.com", Password: "short"})
	requireKind(t, err, auth.KindMalformedInput)

	_, err = e.svc.Signup(ctx, auth.SignupRequest{Email: "bo@x.com", Password: "correct-horse"})
	ae = requireKind(t, err, auth.KindMalformedInput)
	assert.Equal(t, "The user name field is required.", ae.Message)
}

// tokenStoreDown fails every token insert, inside transactions too.
type tokenStoreDown struct{ store.Conn }

type failingTokens struct {
	repository.AccessTokenRepository
}

func (failingTokens) Create(context.Context, repository.CreateAccessTokenInput) (*repository.AccessToken, error) {
	return nil, errors.New("token store down")
}

func (c tokenStoreDown) AccessTokens() repository.AccessTokenRepository {
	return failingTokens{c.Conn.AccessTokens()}
}

func (c tokenStoreDown) WithTx(ctx context.Context, fn func(tx store.Conn) error) error {
	return c.Conn.WithTx(ctx, func(tx store.Conn) error { return fn(tokenStoreDown{tx}) })
}

func TestSignupRollsBackWhenTokenIssueFails(t *testing.T) {
	ctx := context.Background()
	conn := memory.New()
	broken := auth.New(auth.Deps{Store: tokenStoreDown{conn}})

	_, err := broken.Signup(ctx, auth.SignupRequest{UserName: "Ann", Email: "ann@x.com", Password: "correct-horse"})
	requireKind(t, err, auth.KindInternal)

	_, err = conn.Accounts().GetByEmail(ctx, "ann@x.com")
	require.ErrorIs(t, err, repository.ErrNotFound)

	// a retry once tokens work again is a normal signup
	res, err := auth.New(auth.Deps{Store: conn}).Signup(ctx, auth.SignupRequest{UserName: "Ann", Email: "ann@x.com", Password: "correct-horse"})
	require.NoError(t, err)
	assert.True(t, res.IsNew)
	assert.NotEmpty(t, res.Token)
}

func TestLogoutRevokesOnlyCallerTokens(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.passwordAccount(t, "a@x.com", "correct-horse")
	e.passwordAccount(t, "b@x.com", "correct-horse")

	a1, err := e.svc.LoginPassword(ctx, auth.PasswordLogin{Email: "a@x.com", Password: "correct-horse", IP: "1.1.1.1"})
	require.NoError(t, err)
	a2, err := e.svc.LoginPassword(ctx, auth.PasswordLogin{Email: "a@x.com", Password: "correct-horse", IP: "1.1.1.1"})
	require.NoError(t, err)
	b, err := e.svc.LoginPassword(ctx, auth.PasswordLogin{Email: "b@x.com", Password: "correct-horse", IP: "1.1.1.1"})
	require.NoError(t, err)

	require.NoError(t, e.svc.Logout(ctx, a1.Token, "pk"))

	_, err = e.svc.Me(ctx, a1.Token)
	requireKind(t, err, auth.KindNotAuthenticated)
	_, err = e.svc.Me(ctx, a2.Token)
	requireKind(t, err, auth.KindNotAuthenticated)
	_, err = e.svc.Me(ctx, b.Token)
	require.NoError(t, err)

	evs := e.events(t, a1.Account.ID)
	assert.Equal(t, repository.ActionLogout, evs[0].Action)
	assert.Equal(t, repository.ChannelWebsite, evs[0].Channel)

	err = e.svc.Logout(ctx, a1.Token, "")
	requireKind(t, err, auth.KindNotAuthenticated)
}

func TestLogoutWithoutSessionEventUsesUnknownChannel(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	acc := e.passwordAccount(t, "a@x.com", "correct-horse")

	issued, err := session.NewIssuer(time.Hour).Issue(ctx, e.conn, acc.ID)
	require.NoError(t, err)
	require.NoError(t, e.svc.Logout(ctx, issued.Token, ""))

	evs := e.events(t, acc.ID)
	require.Len(t, evs, 1)
	assert.Equal(t, repository.ChannelUnknown, evs[0].Channel)
}

func TestConcurrentFirstSocialLogin(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	ids := make([]int64, 10)
	errs := make([]error, 10)
	for i := range ids {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			res, err := e.svc.LoginWithProvider(ctx, auth.SocialLogin{Provider: "google", ID: "g-9", Name: "Neo", Token: "g-new"})
			errs[i] = err
			if err == nil {
				ids[i] = res.Account.ID
			}
		}(i)
	}
	wg.Wait()

	for i := range ids {
		require.NoError(t, errs[i])
		assert.Equal(t, ids[0], ids[i])
	}
}
