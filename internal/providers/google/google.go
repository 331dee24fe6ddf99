// Package google verifies Google access tokens through the tokeninfo
// endpoint.
package google

import (
	"context"
	"errors"
	"net/http"
	"net/url"

	"github.com/dropDatabas3/socialauth/internal/providers"
)

const (
	ProviderName        = "google"
	DefaultTokenInfoURL = "https://www.googleapis.com/oauth2/v3/tokeninfo"
)

// Verifier introspects an access token and checks that its subject is the
// id the client claimed.
type Verifier struct {
	tokenInfoURL string
	client       *http.Client
}

func New(tokenInfoURL string, client *http.Client) *Verifier {
	if tokenInfoURL == "" {
		tokenInfoURL = DefaultTokenInfoURL
	}
	if client == nil {
		client = providers.NewHTTPClient(0, 0)
	}
	return &Verifier{tokenInfoURL: tokenInfoURL, client: client}
}

func (v *Verifier) Name() string { return ProviderName }

type tokenInfo struct {
	Sub              string `json:"sub"`
	Email            string `json:"email"`
	EmailVerified    string `json:"email_verified"`
	Aud              string `json:"aud"`
	Exp              string `json:"exp"`
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
}

func (v *Verifier) Verify(ctx context.Context, cred providers.Credential) (*providers.VerifiedIdentity, error) {
	var info tokenInfo
	_, err := providers.GetJSON(ctx, v.client, v.tokenInfoURL, url.Values{"access_token": {cred.Token}}, &info)
	if err != nil {
		var verr *providers.VerificationError
		if errors.As(err, &verr) {
			return nil, verr
		}
		return nil, providers.Rejected("")
	}
	if info.ErrorDescription != "" || info.Error != "" {
		msg := info.ErrorDescription
		if msg == "" {
			msg = info.Error
		}
		return nil, providers.Rejected(msg)
	}
	if info.Sub == "" {
		return nil, providers.Rejected("")
	}
	if cred.ClaimedID != info.Sub {
		return nil, providers.Mismatch(cred.ClaimedID, info.Sub)
	}

	id := &providers.VerifiedIdentity{
		Provider:    ProviderName,
		SubjectID:   info.Sub,
		DisplayName: cred.Name,
		AvatarURL:   cred.Picture,
		Evidence: map[string]any{
			"sub":            info.Sub,
			"aud":            info.Aud,
			"email_verified": info.EmailVerified,
			"exp":            info.Exp,
		},
	}
	// only a verified address may link to an existing account
	switch {
	case info.Email != "" && info.EmailVerified == "true":
		id.Email = info.Email
	case info.Email != "":
		id.EmailHint = info.Email
	default:
		id.EmailHint = cred.Email
	}
	return id, nil
}
