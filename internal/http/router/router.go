// Package router mounts the controllers on a chi router.
package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	authctrl "github.com/dropDatabas3/socialauth/internal/http/controllers/auth"
	"github.com/dropDatabas3/socialauth/internal/http/controllers/health"
	"github.com/dropDatabas3/socialauth/internal/http/errors"
	mw "github.com/dropDatabas3/socialauth/internal/http/middlewares"
)

type Deps struct {
	Auth          *authctrl.Controllers
	Health        *health.Controller
	Authenticator mw.Authenticator
	// Metrics serves /metrics when non-nil.
	Metrics http.Handler
	// TrustedProxies may report the client address in forwarding headers.
	TrustedProxies *mw.TrustedProxies
}

// New returns the service handler.
func New(d Deps) http.Handler {
	r := chi.NewRouter()
	r.NotFound(func(w http.ResponseWriter, _ *http.Request) { errors.WriteError(w, errors.ErrNotFound) })
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		errors.WriteError(w, errors.ErrMethodNotAllowed)
	})

	c := d.Auth
	public := func(route string, h http.HandlerFunc) http.Handler {
		return mw.Chain(h, baseChain(route, d.TrustedProxies)...)
	}
	// bearer auth runs after logging so rejected tokens are logged too
	authed := func(route string, h http.HandlerFunc) http.Handler {
		return mw.Chain(h, append(baseChain(route, d.TrustedProxies), mw.RequireAuth(d.Authenticator))...)
	}
	r.Route("/api/auth", func(r chi.Router) {
		r.Method(http.MethodPost, "/login", public("/api/auth/login", c.Login.Login))
		r.Method(http.MethodPost, "/signup", public("/api/auth/signup", c.Signup.Signup))
		r.Method(http.MethodPost, "/social", public("/api/auth/social", c.Social.Login))
		r.Method(http.MethodPost, "/logout", authed("/api/auth/logout", c.Logout.Logout))
		r.Method(http.MethodGet, "/me", authed("/api/auth/me", c.Me.Me))
	})

	if d.Health != nil {
		r.Method(http.MethodGet, "/healthz", mw.Chain(http.HandlerFunc(d.Health.Healthz), mw.WithRecover(), mw.WithNoStore()))
	}
	if d.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", d.Metrics)
	}
	return r
}

// baseChain is shared by every /api/auth route.
func baseChain(route string, trusted *mw.TrustedProxies) []mw.Middleware {
	return []mw.Middleware{
		mw.WithMetrics(route),
		mw.WithRecover(),
		mw.WithRequestID(),
		mw.WithClientIP(trusted),
		mw.WithSecurityHeaders(),
		mw.WithNoStore(),
		mw.WithLogging(),
	}
}
