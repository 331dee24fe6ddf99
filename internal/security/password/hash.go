// Package password hashes and verifies account passwords.
//
// New hashes are bcrypt, matching the hashes already stored for existing
// accounts. Argon2id PHC strings are verified as well.
package password

import (
	"errors"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

var ErrEmptyPassword = errors.New("empty password")

// DefaultCost is the bcrypt cost for new hashes.
const DefaultCost = bcrypt.DefaultCost

// Hash returns a bcrypt hash of plain.
func Hash(plain string) (string, error) {
	if plain == "" {
		return "", ErrEmptyPassword
	}
	b, err := bcrypt.GenerateFromPassword([]byte(plain), DefaultCost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Verify reports whether plain matches hash, for bcrypt ($2a$, $2b$, $2y$)
// and argon2id hashes. Unknown formats never match.
func Verify(plain, hash string) bool {
	switch {
	case plain == "" || hash == "":
		return false
	case strings.HasPrefix(hash, argon2Prefix):
		return verifyArgon2id(plain, hash)
	case strings.HasPrefix(hash, "$2"):
		return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
	}
	return false
}
