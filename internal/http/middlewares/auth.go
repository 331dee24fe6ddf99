package middlewares

import (
	"context"
	"net/http"

	"github.com/dropDatabas3/socialauth/internal/domain/repository"
	"github.com/dropDatabas3/socialauth/internal/http/errors"
	tokens "github.com/dropDatabas3/socialauth/internal/security/token"
)

// Authenticator resolves a bearer token to its account.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*repository.Account, error)
}

// RequireAuth validates Authorization: Bearer <token> and stores the
// account in the context. Missing or revoked tokens get a 401.
func RequireAuth(a Authenticator) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw, ok := tokens.FromAuthorization(r.Header.Get("Authorization"))
			if !ok {
				w.Header().Set("WWW-Authenticate", `Bearer realm="api"`)
				errors.WriteError(w, errors.ErrTokenMissing)
				return
			}
			acc, err := a.Authenticate(r.Context(), raw)
			if err != nil {
				w.Header().Set("WWW-Authenticate", `Bearer realm="api", error="invalid_token"`)
				errors.WriteError(w, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithAccount(r.Context(), acc, raw)))
		})
	}
}
