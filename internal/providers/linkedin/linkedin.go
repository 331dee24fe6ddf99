// Package linkedin accepts identities asserted by the LinkedIn client SDK.
// Like twitter, it performs no server-side verification.
package linkedin

import (
	"context"

	"github.com/dropDatabas3/socialauth/internal/providers"
)

const ProviderName = "linkedin"

type Verifier struct{}

func New() *Verifier { return &Verifier{} }

func (Verifier) Name() string { return ProviderName }

func (Verifier) Verify(_ context.Context, cred providers.Credential) (*providers.VerifiedIdentity, error) {
	return providers.Assert(ProviderName, cred)
}
