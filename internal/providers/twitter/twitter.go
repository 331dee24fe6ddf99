// Package twitter accepts identities asserted by the Twitter client SDK.
//
// No server-side call is made: the id, name and email in the request are
// taken as given. Callers must treat the result as Asserted.
package twitter

import (
	"context"

	"github.com/dropDatabas3/socialauth/internal/providers"
)

const ProviderName = "twitter"

type Verifier struct{}

func New() *Verifier { return &Verifier{} }

func (Verifier) Name() string { return ProviderName }

func (Verifier) Verify(_ context.Context, cred providers.Credential) (*providers.VerifiedIdentity, error) {
	return providers.Assert(ProviderName, cred)
}
