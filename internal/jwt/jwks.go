// Package jwt holds JSON Web Key Set parsing and the process-wide signing
// key cache used to verify provider-issued ID tokens.
package jwt

import (
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
)

// JWK is one entry of a key set. Only RSA fields are read.
type JWK struct {
	Kty string `json:"kty"`
	Kid string `json:"kid"`
	Use string `json:"use,omitempty"`
	Alg string `json:"alg,omitempty"`
	N   string `json:"n"`
	E   string `json:"e"`
}

// JWKS is the document served by a provider's keys endpoint.
type JWKS struct {
	Keys []JWK `json:"keys"`
}

var ErrEmptyKeySet = errors.New("jwks: no usable RSA signing keys")

// ParseJWKS decodes a key set and returns its RSA signing keys by kid.
// Non-RSA and encryption keys are skipped.
func ParseJWKS(data []byte) (map[string]*rsa.PublicKey, error) {
	var set JWKS
	if err := json.Unmarshal(data, &set); err != nil {
		return nil, fmt.Errorf("jwks: decode: %w", err)
	}
	out := make(map[string]*rsa.PublicKey, len(set.Keys))
	for _, k := range set.Keys {
		if k.Kty != "RSA" || k.Kid == "" || (k.Use != "" && k.Use != "sig") {
			continue
		}
		pub, err := k.RSAPublicKey()
		if err != nil {
			return nil, fmt.Errorf("jwks: key %q: %w", k.Kid, err)
		}
		out[k.Kid] = pub
	}
	if len(out) == 0 {
		return nil, ErrEmptyKeySet
	}
	return out, nil
}

// RSAPublicKey builds the public key from the base64url modulus and exponent.
func (k JWK) RSAPublicKey() (*rsa.PublicKey, error) {
	nb, err := base64.RawURLEncoding.DecodeString(k.N)
	if err != nil || len(nb) == 0 {
		return nil, errors.New("bad modulus")
	}
	eb, err := base64.RawURLEncoding.DecodeString(k.E)
	if err != nil {
		return nil, errors.New("bad exponent")
	}
	e := 65537
	if len(eb) > 0 {
		if len(eb) > 4 {
			return nil, errors.New("exponent too large")
		}
		e = 0
		for _, b := range eb {
			e = (e << 8) | int(b)
		}
	}
	return &rsa.PublicKey{N: new(big.Int).SetBytes(nb), E: e}, nil
}

// NewRSAJWK encodes pub as a signing JWK.
func NewRSAJWK(kid string, pub *rsa.PublicKey) JWK {
	return JWK{
		Kty: "RSA",
		Kid: kid,
		Use: "sig",
		Alg: "RS256",
		N:   base64.RawURLEncoding.EncodeToString(pub.N.Bytes()),
		E:   base64.RawURLEncoding.EncodeToString(big.NewInt(int64(pub.E)).Bytes()),
	}
}
