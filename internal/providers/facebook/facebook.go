// Package facebook verifies Facebook access tokens by reading the user node
// from the Graph API with the token itself.
package facebook

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/dropDatabas3/socialauth/internal/providers"
)

const (
	ProviderName    = "facebook"
	DefaultGraphURL = "https://graph.facebook.com"
)

type Verifier struct {
	graphURL string
	client   *http.Client
}

func New(graphURL string, client *http.Client) *Verifier {
	if graphURL == "" {
		graphURL = DefaultGraphURL
	}
	if client == nil {
		client = providers.NewHTTPClient(0, 0)
	}
	return &Verifier{graphURL: strings.TrimRight(graphURL, "/"), client: client}
}

func (v *Verifier) Name() string { return ProviderName }

type graphUser struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    int    `json:"code"`
	} `json:"error"`
}

// Verify requires a ClaimedID: the graph node is addressed by it. Email may
// be withheld by the user's privacy settings, in which case the client's
// email is carried as a hint for account creation, never for linking.
func (v *Verifier) Verify(ctx context.Context, cred providers.Credential) (*providers.VerifiedIdentity, error) {
	if cred.ClaimedID == "" {
		return nil, providers.Invalid(providers.ErrMalformedToken, "The id field is required", nil)
	}
	endpoint := v.graphURL + "/" + url.PathEscape(cred.ClaimedID)
	q := url.Values{"fields": {"id,name,email"}, "access_token": {cred.Token}}

	var user graphUser
	if _, err := providers.GetJSON(ctx, v.client, endpoint, q, &user); err != nil {
		var verr *providers.VerificationError
		if errors.As(err, &verr) {
			return nil, verr
		}
		return nil, providers.Rejected("")
	}
	if user.Error != nil {
		return nil, providers.Rejected(user.Error.Message)
	}
	if user.ID == "" {
		return nil, providers.Rejected("")
	}
	if user.ID != cred.ClaimedID {
		return nil, providers.Mismatch(cred.ClaimedID, user.ID)
	}

	id := &providers.VerifiedIdentity{
		Provider:    ProviderName,
		SubjectID:   user.ID,
		Email:       user.Email,
		DisplayName: user.Name,
		AvatarURL:   cred.Picture,
		Evidence:    map[string]any{"id": user.ID, "name": user.Name, "email": user.Email},
	}
	if id.Email == "" {
		id.EmailHint = cred.Email
	}
	if id.DisplayName == "" {
		id.DisplayName = cred.Name
	}
	return id, nil
}
