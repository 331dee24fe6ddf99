// Package tokens generates opaque bearer tokens and the digests stored in
// their place.
package tokens

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"strings"
)

// DefaultBytes is the entropy of an access token.
const DefaultBytes = 32

// GenerateOpaqueToken returns nBytes of randomness, base64url without padding.
func GenerateOpaqueToken(nBytes int) (string, error) {
	b := make([]byte, nBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// SHA256Base64URL is the at-rest form of a token.
func SHA256Base64URL(s string) string {
	sum := sha256.Sum256([]byte(s))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}

// FromAuthorization extracts the token from an "Authorization: Bearer"
// header value. The scheme match is case-insensitive.
func FromAuthorization(header string) (string, bool) {
	scheme, tok, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	tok = strings.TrimSpace(tok)
	return tok, tok != ""
}
