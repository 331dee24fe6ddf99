// Package auth holds the request and response bodies of /api/auth.
package auth

import (
	"bytes"
	"encoding/json"
	"time"

	"github.com/dropDatabas3/socialauth/internal/domain/repository"
)

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type SignupRequest struct {
	UserName string `json:"user_name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// SocialRequest is the body of POST /api/auth/social. Which fields are
// required depends on the provider.
type SocialRequest struct {
	ID          FlexString `json:"id"`
	Name        string     `json:"name"`
	Email       string     `json:"email"`
	Token       string     `json:"token"`
	Source      string     `json:"source"`
	UserImage   string     `json:"user_image"`
	UserPicture string     `json:"user_picture"`
	DeviceToken string     `json:"device_token"`
	DeviceType  string     `json:"device_type"`
}

// FlexString accepts a JSON string or number. Mobile clients send numeric
// provider ids.
type FlexString string

func (f *FlexString) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*f = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = FlexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*f = FlexString(n.String())
	return nil
}

// Envelope wraps every successful response.
type Envelope struct {
	Message string `json:"message"`
	Data    any    `json:"data"`
}

type TokenData struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	User        *User  `json:"user"`
	IsSignup    bool   `json:"is_signup"`
}

// User is the public view of an account.
type User struct {
	ID        int64             `json:"id"`
	UserName  string            `json:"user_name"`
	Email     string            `json:"email,omitempty"`
	AvatarURL string            `json:"user_image,omitempty"`
	IsActive  bool              `json:"is_active"`
	Providers map[string]string `json:"providers,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
}

// NewUser renders acc without secrets.
func NewUser(acc *repository.Account) *User {
	if acc == nil {
		return nil
	}
	u := &User{
		ID:        acc.ID,
		UserName:  acc.UserName,
		Email:     acc.Email,
		AvatarURL: acc.AvatarURL,
		IsActive:  acc.IsActive,
		CreatedAt: acc.CreatedAt,
	}
	for _, p := range repository.Providers {
		if id := acc.ProviderID(p); id != "" {
			if u.Providers == nil {
				u.Providers = make(map[string]string)
			}
			u.Providers[p] = id
		}
	}
	return u
}
