package router_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/socialauth/internal/auth"
	authctrl "github.com/dropDatabas3/socialauth/internal/http/controllers/auth"
	"github.com/dropDatabas3/socialauth/internal/http/controllers/health"
	mw "github.com/dropDatabas3/socialauth/internal/http/middlewares"
	"github.com/dropDatabas3/socialauth/internal/http/router"
	"github.com/dropDatabas3/socialauth/internal/providers"
	"github.com/dropDatabas3/socialauth/internal/providers/twitter"
	"github.com/dropDatabas3/socialauth/internal/rate"
	"github.com/dropDatabas3/socialauth/internal/store/adapters/memory"
)

type envelope struct {
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Code    string          `json:"code"`
}

type tokenData struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	IsSignup    bool   `json:"is_signup"`
	User        struct {
		ID        int64             `json:"id"`
		Email     string            `json:"email"`
		Providers map[string]string `json:"providers"`
	} `json:"user"`
}

func newServer(t *testing.T) *httptest.Server {
	t.Helper()
	return newServerWithProxies(t, nil)
}

func newServerWithProxies(t *testing.T, trusted *mw.TrustedProxies) *httptest.Server {
	t.Helper()
	conn := memory.New()
	reg := providers.NewRegistry()
	reg.Register(twitter.New())
	svc := auth.New(auth.Deps{
		Store:     conn,
		Verifiers: reg,
		Throttle:  rate.NewThrottle(rate.NewMemoryStore(), rate.Policy{MaxAttempts: 2}),
	})
	h := router.New(router.Deps{
		Auth:           authctrl.NewControllers(svc),
		Health:         health.NewController(conn, "test"),
		Authenticator:  svc,
		TrustedProxies: trusted,
	})
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return srv
}

func do(t *testing.T, srv *httptest.Server, method, path, token string, body any) (*http.Response, envelope) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, srv.URL+path, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	var env envelope
	_ = json.NewDecoder(resp.Body).Decode(&env)
	return resp, env
}

func TestSignupMeLogout(t *testing.T) {
	srv := newServer(t)

	resp, env := do(t, srv, http.MethodPost, "/api/auth/signup", "", map[string]string{
		"user_name": "Ann", "email": "ann@x.com", "password": "correct-horse",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Signup Successfully", env.Message)
	assert.Equal(t, "no-store", resp.Header.Get("Cache-Control"))
	var td tokenData
	require.NoError(t, json.Unmarshal(env.Data, &td))
	require.NotEmpty(t, td.AccessToken)
	assert.Equal(t, "Bearer", td.TokenType)
	assert.True(t, td.IsSignup)

	resp, env = do(t, srv, http.MethodGet, "/api/auth/me", td.AccessToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(env.Data), "ann@x.com")

	resp, env = do(t, srv, http.MethodPost, "/api/auth/logout", td.AccessToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Successfully logged out", env.Message)

	resp, _ = do(t, srv, http.MethodGet, "/api/auth/me", td.AccessToken, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestLoginErrorsAreGeneric(t *testing.T) {
	srv := newServer(t)
	do(t, srv, http.MethodPost, "/api/auth/signup", "", map[string]string{
		"user_name": "Ann", "email": "ann@x.com", "password": "correct-horse",
	})

	resp, wrongPwd := do(t, srv, http.MethodPost, "/api/auth/login", "", map[string]string{"email": "ann@x.com", "password": "wrong-horse"})
	require.Equal(t, http.StatusConflict, resp.StatusCode)
	_, noAccount := do(t, srv, http.MethodPost, "/api/auth/login", "", map[string]string{"email": "bob@x.com", "password": "wrong-horse"})

	assert.Equal(t, "INVALID_CREDENTIALS", wrongPwd.Code)
	assert.Equal(t, wrongPwd.Code, noAccount.Code)
	assert.Equal(t, wrongPwd.Message, noAccount.Message)

	// second failure for ann locks the key
	do(t, srv, http.MethodPost, "/api/auth/login", "", map[string]string{"email": "ann@x.com", "password": "wrong-horse"})
	resp, env := do(t, srv, http.MethodPost, "/api/auth/login", "", map[string]string{"email": "ann@x.com", "password": "correct-horse"})
	require.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	assert.Equal(t, "TOO_MANY_ATTEMPTS", env.Code)
	assert.NotEmpty(t, resp.Header.Get("Retry-After"))
}

func TestSocialNumericID(t *testing.T) {
	srv := newServer(t)

	resp, env := do(t, srv, http.MethodPost, "/api/auth/social?provider=twitter", "", map[string]any{"id": 12345, "name": "Tw"})
	require.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, "The email field is only can email or phone number", env.Message)

	resp, env = do(t, srv, http.MethodPost, "/api/auth/social?provider=twitter", "", map[string]any{
		"id": 12345, "name": "Tw", "email": "tw@x.com",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var td tokenData
	require.NoError(t, json.Unmarshal(env.Data, &td))
	assert.True(t, td.IsSignup)
	assert.Equal(t, "12345", td.User.Providers["twitter"])

	resp, env = do(t, srv, http.MethodPost, "/api/auth/social?provider=myspace", "", map[string]any{"id": "1", "name": "x"})
	require.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, "This provider not supported yet", env.Message)
}

func TestRoutingEdges(t *testing.T) {
	srv := newServer(t)

	resp, _ := do(t, srv, http.MethodGet, "/api/auth/login", "", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
	resp, _ = do(t, srv, http.MethodGet, "/nope", "", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp, _ = do(t, srv, http.MethodPost, "/api/auth/logout", "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	resp, _ = do(t, srv, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func loginFrom(t *testing.T, srv *httptest.Server, forwardedFor, pwd string) int {
	t.Helper()
	body, _ := json.Marshal(map[string]string{"email": "ann@x.com", "password": pwd})
	req, err := http.NewRequest(http.MethodPost, srv.URL+"/api/auth/login", bytes.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Forwarded-For", forwardedFor)
	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	return resp.StatusCode
}

func TestRotatingForwardedForDoesNotEscapeLockout(t *testing.T) {
	srv := newServer(t)
	do(t, srv, http.MethodPost, "/api/auth/signup", "", map[string]string{
		"user_name": "Ann", "email": "ann@x.com", "password": "correct-horse",
	})

	require.Equal(t, http.StatusConflict, loginFrom(t, srv, "203.0.113.1", "wrong-horse"))
	require.Equal(t, http.StatusConflict, loginFrom(t, srv, "203.0.113.2", "wrong-horse"))
	assert.Equal(t, http.StatusTooManyRequests, loginFrom(t, srv, "203.0.113.3", "correct-horse"))
}

func TestTrustedProxyForwardsClientAddress(t *testing.T) {
	trusted, err := mw.ParseTrustedProxies([]string{"127.0.0.1", "::1"})
	require.NoError(t, err)
	srv := newServerWithProxies(t, trusted)
	do(t, srv, http.MethodPost, "/api/auth/signup", "", map[string]string{
		"user_name": "Ann", "email": "ann@x.com", "password": "correct-horse",
	})

	require.Equal(t, http.StatusConflict, loginFrom(t, srv, "203.0.113.1", "wrong-horse"))
	require.Equal(t, http.StatusConflict, loginFrom(t, srv, "203.0.113.1", "wrong-horse"))
	assert.Equal(t, http.StatusTooManyRequests, loginFrom(t, srv, "203.0.113.1", "correct-horse"))
	// another client behind the same proxy has its own counter
	assert.Equal(t, http.StatusOK, loginFrom(t, srv, "203.0.113.2", "correct-horse"))
}
