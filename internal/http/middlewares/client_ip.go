package middlewares

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strings"
)

// TrustedProxies is the set of peers allowed to report the client address
// through CF-Connecting-IP or X-Forwarded-For. Nil trusts no one.
type TrustedProxies struct {
	nets []*net.IPNet
}

// ParseTrustedProxies accepts CIDRs ("10.0.0.0/8") and bare addresses.
func ParseTrustedProxies(entries []string) (*TrustedProxies, error) {
	tp := &TrustedProxies{}
	for _, e := range entries {
		e = strings.TrimSpace(e)
		if e == "" {
			continue
		}
		if !strings.Contains(e, "/") {
			ip := net.ParseIP(e)
			if ip == nil {
				return nil, fmt.Errorf("trusted proxy %q: not an IP or CIDR", e)
			}
			bits := 8 * net.IPv6len
			if ip.To4() != nil {
				ip, bits = ip.To4(), 8*net.IPv4len
			}
			tp.nets = append(tp.nets, &net.IPNet{IP: ip, Mask: net.CIDRMask(bits, bits)})
			continue
		}
		_, n, err := net.ParseCIDR(e)
		if err != nil {
			return nil, fmt.Errorf("trusted proxy %q: %w", e, err)
		}
		tp.nets = append(tp.nets, n)
	}
	return tp, nil
}

func (t *TrustedProxies) trusts(addr string) bool {
	if t == nil {
		return false
	}
	ip := net.ParseIP(strings.TrimSpace(addr))
	if ip == nil {
		return false
	}
	for _, n := range t.nets {
		if n.Contains(ip) {
			return true
		}
	}
	return false
}

// Resolve returns the client address of r. Forwarding headers are read
// only when the connection peer is trusted; X-Forwarded-For is walked from
// the right and the first untrusted hop wins.
func (t *TrustedProxies) Resolve(r *http.Request) string {
	peer := peerIP(r)
	if !t.trusts(peer) {
		return peer
	}
	if ip := strings.TrimSpace(r.Header.Get("CF-Connecting-IP")); net.ParseIP(ip) != nil {
		return ip
	}
	if xf := r.Header.Get("X-Forwarded-For"); xf != "" {
		hops := strings.Split(xf, ",")
		for i := len(hops) - 1; i >= 0; i-- {
			hop := strings.TrimSpace(hops[i])
			if net.ParseIP(hop) == nil {
				break
			}
			if !t.trusts(hop) || i == 0 {
				return hop
			}
		}
	}
	return peer
}

func peerIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err == nil {
		return host
	}
	return r.RemoteAddr
}

type clientIPKey struct{}

// WithClientIP resolves the client address once per request.
func WithClientIP(t *TrustedProxies) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := context.WithValue(r.Context(), clientIPKey{}, t.Resolve(r))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// ClientIP returns the address resolved by WithClientIP, or the connection
// peer when the middleware did not run.
func ClientIP(r *http.Request) string {
	if ip, ok := r.Context().Value(clientIPKey{}).(string); ok {
		return ip
	}
	return peerIP(r)
}
