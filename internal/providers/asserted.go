package providers

// Assert builds an Asserted identity from the client's own fields, for
// providers whose SDK authenticates on the device and offers nothing to
// check server-side.
func Assert(provider string, cred Credential) (*VerifiedIdentity, error) {
	if cred.ClaimedID == "" {
		return nil, Invalid(ErrMalformedToken, "The id field is required", nil)
	}
	return &VerifiedIdentity{
		Provider:    provider,
		SubjectID:   cred.ClaimedID,
		Email:       cred.Email,
		DisplayName: cred.Name,
		AvatarURL:   cred.Picture,
		Asserted:    true,
	}, nil
}
