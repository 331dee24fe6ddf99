package middlewares

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dropDatabas3/socialauth/internal/auth"
	"github.com/dropDatabas3/socialauth/internal/domain/repository"
)

func TestClientIP(t *testing.T) {
	trusted, err := ParseTrustedProxies([]string{"10.0.0.0/8", "3.3.3.3"})
	if err != nil {
		t.Fatalf("ParseTrustedProxies: %v", err)
	}
	cases := []struct {
		name    string
		headers map[string]string
		remote  string
		want    string
	}{
		{"cloudflare wins behind proxy", map[string]string{"CF-Connecting-IP": "1.1.1.1", "X-Forwarded-For": "2.2.2.2"}, "3.3.3.3:1", "1.1.1.1"},
		{"rightmost untrusted hop", map[string]string{"X-Forwarded-For": "9.9.9.9, 2.2.2.2, 10.0.0.1"}, "10.1.1.1:1", "2.2.2.2"},
		{"untrusted peer ignores headers", map[string]string{"CF-Connecting-IP": "1.1.1.1", "X-Forwarded-For": "2.2.2.2"}, "4.4.4.4:1", "4.4.4.4"},
		{"garbage forwarded value", map[string]string{"X-Forwarded-For": "not-an-ip"}, "3.3.3.3:1", "3.3.3.3"},
		{"peer", nil, "3.3.3.3:1234", "3.3.3.3"},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			r.RemoteAddr = c.remote
			for k, v := range c.headers {
				r.Header.Set(k, v)
			}
			var got string
			h := WithClientIP(trusted)(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) { got = ClientIP(r) }))
			h.ServeHTTP(httptest.NewRecorder(), r)
			if got != c.want {
				t.Fatalf("ClientIP = %q, want %q", got, c.want)
			}
		})
	}
}

func TestClientIPTrustsNoProxyByDefault(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.RemoteAddr = "5.5.5.5:80"
	r.Header.Set("X-Forwarded-For", "1.2.3.4")
	if got := (*TrustedProxies)(nil).Resolve(r); got != "5.5.5.5" {
		t.Fatalf("Resolve = %q, want peer", got)
	}
	if _, err := ParseTrustedProxies([]string{"10.0.0.0/33"}); err == nil {
		t.Fatal("bad CIDR accepted")
	}
}

func TestChainOrder(t *testing.T) {
	var order []string
	mw := func(name string) Middleware {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name)
				next.ServeHTTP(w, r)
			})
		}
	}
	h := Chain(http.HandlerFunc(func(http.ResponseWriter, *http.Request) { order = append(order, "h") }), mw("a"), mw("b"))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	if len(order) != 3 || order[0] != "a" || order[1] != "b" || order[2] != "h" {
		t.Fatalf("order = %v", order)
	}
}

type fakeAuth map[string]*repository.Account

func (f fakeAuth) Authenticate(_ context.Context, token string) (*repository.Account, error) {
	if acc, ok := f[token]; ok {
		return acc, nil
	}
	return nil, &auth.Error{Kind: auth.KindNotAuthenticated, Message: "No user logged in"}
}

func TestRequireAuth(t *testing.T) {
	a := fakeAuth{"good": {ID: 7}}
	h := Chain(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if GetAccount(r.Context()).ID != 7 || GetToken(r.Context()) != "good" {
			t.Error("account not in context")
		}
		w.WriteHeader(http.StatusNoContent)
	}), RequireAuth(a))

	for _, c := range []struct {
		header string
		want   int
	}{
		{"", http.StatusUnauthorized},
		{"Bearer nope", http.StatusUnauthorized},
		{"Bearer good", http.StatusNoContent},
	} {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		if c.header != "" {
			r.Header.Set("Authorization", c.header)
		}
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, r)
		if rec.Code != c.want {
			t.Fatalf("%q: status = %d, want %d", c.header, rec.Code, c.want)
		}
	}
}

func TestRecoverAndRequestID(t *testing.T) {
	h := Chain(http.HandlerFunc(func(http.ResponseWriter, *http.Request) { panic("boom") }),
		WithRequestID(), WithRecover())
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d", rec.Code)
	}
	if rec.Header().Get("X-Request-ID") == "" {
		t.Fatal("missing X-Request-ID")
	}
}
