// Package apple verifies Sign in with Apple identity tokens locally against
// Apple's published signing keys.
package apple

import (
	"context"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"errors"
	"strings"
	"time"

	jwtv5 "github.com/golang-jwt/jwt/v5"

	"github.com/dropDatabas3/socialauth/internal/jwt"
	"github.com/dropDatabas3/socialauth/internal/providers"
)

const (
	ProviderName = "apple"

	DefaultIssuer          = "https://appleid.apple.com"
	DefaultKeysURL         = "https://appleid.apple.com/auth/keys"
	DefaultWebsiteClientID = "com.reactapp.signin"
	DefaultMobileClientID  = "com.reactapp.ios"
)

// KeySource resolves a signing key by kid. *jwt.KeyCache implements it.
type KeySource interface {
	Key(ctx context.Context, kid string) (*rsa.PublicKey, error)
}

type Config struct {
	Issuer          string
	WebsiteClientID string
	MobileClientID  string
	// Leeway tolerates clock skew on exp/iat.
	Leeway time.Duration
}

type Verifier struct {
	cfg  Config
	keys KeySource
	now  func() time.Time
}

func New(cfg Config, keys KeySource) *Verifier {
	if cfg.Issuer == "" {
		cfg.Issuer = DefaultIssuer
	}
	if cfg.WebsiteClientID == "" {
		cfg.WebsiteClientID = DefaultWebsiteClientID
	}
	if cfg.MobileClientID == "" {
		cfg.MobileClientID = DefaultMobileClientID
	}
	if cfg.Leeway == 0 {
		cfg.Leeway = 30 * time.Second
	}
	return &Verifier{cfg: cfg, keys: keys, now: time.Now}
}

func (v *Verifier) Name() string { return ProviderName }

// Audience returns the client id expected for a credential source.
func (v *Verifier) Audience(source string) string {
	if source == providers.SourceWebsite {
		return v.cfg.WebsiteClientID
	}
	return v.cfg.MobileClientID
}

type header struct {
	Alg string `json:"alg"`
	Kid string `json:"kid"`
}

func (v *Verifier) Verify(ctx context.Context, cred providers.Credential) (*providers.VerifiedIdentity, error) {
	hdr, err := parseHeader(cred.Token)
	if err != nil {
		return nil, providers.Invalid(providers.ErrMalformedToken, "The token is malformed", err)
	}
	if hdr.Alg != "RS256" {
		return nil, providers.Invalid(providers.ErrInvalidSignature, "The token signature could not be verified", errors.New("unexpected alg "+hdr.Alg))
	}

	key, err := v.keys.Key(ctx, hdr.Kid)
	switch {
	case errors.Is(err, jwt.ErrKeyNotFound):
		return nil, providers.Invalid(providers.ErrInvalidSignature, "The token signature could not be verified", err)
	case err != nil:
		return nil, providers.Unreachable(err)
	}

	aud := v.Audience(cred.Source)
	parser := jwtv5.NewParser(
		jwtv5.WithValidMethods([]string{"RS256"}),
		jwtv5.WithIssuer(v.cfg.Issuer),
		jwtv5.WithAudience(aud),
		jwtv5.WithExpirationRequired(),
		jwtv5.WithLeeway(v.cfg.Leeway),
		jwtv5.WithTimeFunc(v.now),
	)
	claims := jwtv5.MapClaims{}
	if _, err := parser.ParseWithClaims(cred.Token, claims, func(*jwtv5.Token) (any, error) { return key, nil }); err != nil {
		return nil, classify(err, claims)
	}

	sub, _ := claims.GetSubject()
	if sub == "" {
		return nil, providers.Invalid(providers.ErrMalformedToken, "The token has no subject", nil)
	}
	email, _ := claims["email"].(string)

	return &providers.VerifiedIdentity{
		Provider:    ProviderName,
		SubjectID:   sub,
		Email:       email,
		DisplayName: cred.Name,
		Evidence:    map[string]any(claims),
	}, nil
}

func parseHeader(token string) (*header, error) {
	parts := strings.Split(token, ".")
	if len(parts) != 3 || parts[0] == "" || parts[1] == "" || parts[2] == "" {
		return nil, errors.New("bad jwt format")
	}
	raw, err := base64.RawURLEncoding.DecodeString(parts[0])
	if err != nil {
		return nil, err
	}
	var h header
	if err := json.Unmarshal(raw, &h); err != nil {
		return nil, err
	}
	return &h, nil
}

// classify maps jwt parser failures onto verification reasons. Signature is
// checked before claims, so a claim error implies a valid signature.
func classify(err error, claims jwtv5.MapClaims) *providers.VerificationError {
	switch {
	case errors.Is(err, jwtv5.ErrTokenRequiredClaimMissing) && (!hasClaim(claims, "aud") || !hasClaim(claims, "iss")):
		return providers.Invalid(providers.ErrIssuerOrAudienceMismatch, "The token was not issued for this application", err)
	case errors.Is(err, jwtv5.ErrTokenMalformed):
		return providers.Invalid(providers.ErrMalformedToken, "The token is malformed", err)
	case errors.Is(err, jwtv5.ErrTokenSignatureInvalid), errors.Is(err, jwtv5.ErrTokenUnverifiable):
		return providers.Invalid(providers.ErrInvalidSignature, "The token signature could not be verified", err)
	case errors.Is(err, jwtv5.ErrTokenInvalidIssuer), errors.Is(err, jwtv5.ErrTokenInvalidAudience):
		return providers.Invalid(providers.ErrIssuerOrAudienceMismatch, "The token was not issued for this application", err)
	case errors.Is(err, jwtv5.ErrTokenExpired), errors.Is(err, jwtv5.ErrTokenNotValidYet), errors.Is(err, jwtv5.ErrTokenRequiredClaimMissing):
		return providers.Invalid(providers.ErrTokenExpired, "The token has expired", err)
	}
	return providers.Invalid(nil, "", err)
}

func hasClaim(claims jwtv5.MapClaims, name string) bool {
	v, ok := claims[name]
	return ok && v != nil && v != ""
}
