package password

import (
	"fmt"
	"unicode"
)

// Policy is the strength rule set applied at signup.
type Policy struct {
	MinLength     int
	RequireUpper  bool
	RequireLower  bool
	RequireDigit  bool
	RequireSymbol bool
	// Blacklist rejects well-known passwords. May be nil.
	Blacklist *Blacklist
}

// DefaultPolicy only enforces the minimum length.
func DefaultPolicy() Policy { return Policy{MinLength: 8} }

// Check returns a user-facing message for the first rule s breaks, or "".
func (p Policy) Check(s string) string {
	if len([]rune(s)) < p.MinLength {
		return fmt.Sprintf("The password must be at least %d characters.", p.MinLength)
	}
	var hasU, hasL, hasD, hasS bool
	for _, r := range s {
		switch {
		case unicode.IsUpper(r):
			hasU = true
		case unicode.IsLower(r):
			hasL = true
		case unicode.IsDigit(r):
			hasD = true
		case unicode.IsPunct(r) || unicode.IsSymbol(r):
			hasS = true
		}
	}
	switch {
	case p.RequireUpper && !hasU:
		return "The password must contain an uppercase letter."
	case p.RequireLower && !hasL:
		return "The password must contain a lowercase letter."
	case p.RequireDigit && !hasD:
		return "The password must contain a digit."
	case p.RequireSymbol && !hasS:
		return "The password must contain a symbol."
	case p.Blacklist.Contains(s):
		return "The password is too common."
	}
	return ""
}
