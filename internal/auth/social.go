package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/dropDatabas3/socialauth/internal/domain/repository"
	"github.com/dropDatabas3/socialauth/internal/identity"
	"github.com/dropDatabas3/socialauth/internal/metrics"
	"github.com/dropDatabas3/socialauth/internal/observability/logger"
	"github.com/dropDatabas3/socialauth/internal/providers"
	"github.com/dropDatabas3/socialauth/internal/session"
	"github.com/dropDatabas3/socialauth/internal/store"
)

// SocialLogin is a social login request. Which fields are required depends
// on the provider.
type SocialLogin struct {
	Provider string
	ID       string
	Name     string
	Email    string
	Token    string
	// Source is "website" for Apple browser sign-in.
	Source string
	// UserImage overwrites the account avatar on every login.
	UserImage string
	// UserPicture is the avatar for a new account.
	UserPicture string

	DeviceToken string
	DeviceType  string
	ClientID    string
}

// LoginWithProvider verifies the credential with the named provider, finds
// or creates the account and issues a token. Verification failures are not
// throttled.
func (s *Service) LoginWithProvider(ctx context.Context, in SocialLogin) (res *Result, err error) {
	provider := strings.ToLower(strings.TrimSpace(in.Provider))
	log := logger.From(ctx).With(
		logger.Layer("service"),
		logger.Component("auth"),
		logger.Op("LoginWithProvider"),
		logger.Provider(provider),
		logger.ClientID(in.ClientID),
	)
	defer func() {
		metrics.AuthAttempts.WithLabelValues("social", provider, metrics.Result(err)).Inc()
	}()

	verifier, err := s.deps.Verifiers.Get(provider)
	if err != nil {
		if !errors.Is(err, providers.ErrUnsupported) {
			log.Error("verifier unavailable", logger.Err(err))
		}
		return nil, &Error{Kind: KindUnsupportedProvider, Message: "This provider not supported yet", Err: err}
	}
	if msg := validateSocial(provider, in); msg != "" {
		log.Warn("social login rejected", logger.String("reason", msg))
		return nil, newError(KindMalformedInput, msg)
	}

	start := time.Now()
	id, err := verifier.Verify(ctx, providers.Credential{
		Token:     in.Token,
		ClaimedID: in.ID,
		Email:     in.Email,
		Name:      in.Name,
		Picture:   in.UserPicture,
		Source:    in.Source,
	})
	metrics.ProviderVerifyDuration.WithLabelValues(provider, metrics.Result(err)).Observe(time.Since(start).Seconds())
	if err != nil {
		aerr := fromVerification(err)
		log.Warn("verification failed", logger.String("kind", string(aerr.Kind)), logger.Err(err))
		return nil, aerr
	}
	if id.DisplayName == "" {
		id.DisplayName = in.Name
	}
	log.Debug("identity verified", logger.Bool("asserted", id.Asserted), logger.Any("evidence", id.Evidence))

	channel := socialChannel(provider, in.Source)
	var (
		resolved *identity.Result
		issued   *session.Issued
	)
	err = s.deps.Store.WithTx(ctx, func(tx store.Conn) error {
		var err error
		resolved, err = s.deps.Resolver.Resolve(ctx, tx, id, identity.Options{
			AvatarOverride: in.UserImage,
			RequireEmail:   id.Asserted,
		})
		if err != nil {
			return err
		}
		acc := resolved.Account
		if issued, err = s.deps.Sessions.Issue(ctx, tx, acc.ID); err != nil {
			return err
		}
		action := repository.ActionLogin
		if resolved.IsNew {
			action = repository.ActionSignup
		}
		s.deps.Audit.Record(ctx, tx, repository.LoginEvent{
			AccountID: acc.ID,
			Action:    action,
			Channel:   channel,
			ClientID:  in.ClientID,
			Provider:  provider,
		})
		s.storeDevice(ctx, tx, acc.ID, in)
		return nil
	})
	if errors.Is(err, identity.ErrEmailRequired) {
		return nil, newError(KindMalformedInput, "The email field is only can email or phone number")
	}
	if err != nil {
		log.Error("social login failed", logger.Err(err))
		return nil, internal(err)
	}

	acc := resolved.Account
	if resolved.IsNew {
		metrics.AccountsCreated.WithLabelValues(provider).Inc()
		s.deps.Mailer.Welcome(ctx, acc.Email, acc.UserName, provider)
	}
	log.Info("social login succeeded",
		logger.AccountID(acc.ID),
		logger.Bool("is_new", resolved.IsNew),
		logger.Bool("linked", resolved.Linked),
		logger.Channel(string(channel)),
	)
	return &Result{Token: issued.Token, Account: acc, IsNew: resolved.IsNew}, nil
}

// storeDevice records the push token when the client sent one. Failures
// only log.
func (s *Service) storeDevice(ctx context.Context, conn store.Conn, accountID int64, in SocialLogin) {
	if in.DeviceToken == "" || in.DeviceType == "" {
		return
	}
	err := conn.WithTx(ctx, func(tx store.Conn) error {
		return tx.DeviceTokens().Upsert(ctx, repository.DeviceToken{
			Token:      in.DeviceToken,
			DeviceType: in.DeviceType,
			AccountID:  accountID,
		})
	})
	if err != nil {
		logger.From(ctx).Warn("device token not stored",
			logger.Component("auth"), logger.AccountID(accountID), logger.Err(err))
	}
}

// socialChannel is the audit channel of a social login: mobile SDK
// providers log as Social-Mobile, browser flows as Social.
func socialChannel(provider, source string) repository.LoginChannel {
	switch provider {
	case "apple":
		if source == providers.SourceWebsite {
			return repository.ChannelSocial
		}
		return repository.ChannelSocialMobile
	case "google", "facebook":
		return repository.ChannelSocialMobile
	}
	return repository.ChannelSocial
}
