package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dropDatabas3/socialauth/internal/domain/repository"
	"github.com/dropDatabas3/socialauth/internal/metrics"
	"github.com/dropDatabas3/socialauth/internal/observability/logger"
	"github.com/dropDatabas3/socialauth/internal/rate"
	"github.com/dropDatabas3/socialauth/internal/security/password"
	"github.com/dropDatabas3/socialauth/internal/session"
	"github.com/dropDatabas3/socialauth/internal/store"
)

// PasswordLogin is a login request. IP scopes the throttle key.
type PasswordLogin struct {
	Email    string
	Password string
	IP       string
}

// SignupRequest is a password signup request.
type SignupRequest struct {
	UserName    string
	Email       string
	Password    string
	PurchaseKey string
}

// LoginPassword authenticates by email and password. Failed credential
// checks count against the (email, IP) throttle key; once it locks, even a
// correct password is refused until the cooldown passes.
func (s *Service) LoginPassword(ctx context.Context, in PasswordLogin) (res *Result, err error) {
	in.Email = strings.TrimSpace(in.Email)
	log := logger.From(ctx).With(
		logger.Layer("service"),
		logger.Component("auth"),
		logger.Op("LoginPassword"),
		logger.EmailMasked(in.Email),
	)
	defer func() {
		metrics.AuthAttempts.WithLabelValues("password", "", metrics.Result(err)).Inc()
	}()

	key := rate.Key(in.Email, in.IP)
	if err := s.deps.Throttle.Check(ctx, key); err != nil {
		var locked *rate.LockedError
		if errors.As(err, &locked) {
			log.Info("login throttled", logger.ThrottleKey(key), logger.Duration(locked.RetryAfter))
			return nil, &Error{
				Kind:       KindTooManyAttempts,
				Message:    fmt.Sprintf("Too many login attempts. Please try again in %d seconds.", int(locked.RetryAfter.Seconds())),
				RetryAfter: locked.RetryAfter,
				Err:        err,
			}
		}
		return nil, internal(err)
	}

	if msg := validateLogin(in); msg != "" {
		log.Warn("login rejected", logger.String("reason", msg))
		return nil, newError(KindMalformedInput, msg)
	}

	acc, err := s.deps.Store.Accounts().GetByEmail(ctx, in.Email)
	if errors.Is(err, repository.ErrNotFound) {
		s.fail(ctx, key)
		log.Warn("login rejected", logger.String("reason", "account not found"))
		return nil, newError(KindAccountNotFound, "Account is not exist")
	}
	if err != nil {
		return nil, internal(err)
	}
	log = log.With(logger.AccountID(acc.ID))

	if !acc.IsActive {
		log.Warn("login rejected", logger.String("reason", "inactive"))
		return nil, newError(KindAccountInactive, "Account not active")
	}
	if !acc.HasPassword() || !password.Verify(in.Password, *acc.PasswordHash) {
		s.fail(ctx, key)
		log.Warn("login rejected", logger.String("reason", "bad password"))
		return nil, newError(KindInvalidCredentials, "Password is invalid")
	}
	// a failed reset is logged by the throttle and only delays the next lockout
	_ = s.deps.Throttle.Reset(ctx, key)

	var issued *session.Issued
	err = s.deps.Store.WithTx(ctx, func(tx store.Conn) error {
		var err error
		if issued, err = s.deps.Sessions.Issue(ctx, tx, acc.ID); err != nil {
			return err
		}
		s.deps.Audit.Record(ctx, tx, repository.LoginEvent{
			AccountID: acc.ID,
			Action:    repository.ActionLogin,
			Channel:   repository.ChannelWebsite,
		})
		return nil
	})
	if err != nil {
		log.Error("token issue failed", logger.Err(err))
		return nil, internal(err)
	}
	log.Info("login succeeded")
	return &Result{Token: issued.Token, Account: acc}, nil
}

func (s *Service) fail(ctx context.Context, key string) {
	// store errors are already logged by the throttle
	_, _ = s.deps.Throttle.Fail(ctx, key)
}

// Signup creates a password account, issues its token and records the
// Signup event in one transaction.
func (s *Service) Signup(ctx context.Context, in SignupRequest) (res *Result, err error) {
	in.Email = strings.TrimSpace(in.Email)
	in.UserName = strings.TrimSpace(in.UserName)
	log := logger.From(ctx).With(
		logger.Layer("service"),
		logger.Component("auth"),
		logger.Op("Signup"),
		logger.EmailMasked(in.Email),
	)
	defer func() {
		metrics.AuthAttempts.WithLabelValues("signup", "", metrics.Result(err)).Inc()
	}()

	msg := validateSignup(in)
	if msg == "" {
		msg = s.deps.Passwords.Check(in.Password)
	}
	if msg != "" {
		log.Warn("signup rejected", logger.String("reason", msg))
		return nil, newError(KindMalformedInput, msg)
	}

	existing, err := s.deps.Store.Accounts().GetByEmail(ctx, in.Email)
	switch {
	case err == nil:
		if !existing.IsActive {
			return nil, newError(KindEmailTaken, "Account not active")
		}
		return nil, newError(KindEmailTaken, "Email is exists")
	case !errors.Is(err, repository.ErrNotFound):
		return nil, internal(err)
	}

	hash, err := password.Hash(in.Password)
	if err != nil {
		return nil, internal(err)
	}

	var (
		acc    *repository.Account
		issued *session.Issued
	)
	// the account exists only if its token and Signup event do too
	err = s.deps.Store.WithTx(ctx, func(tx store.Conn) error {
		var err error
		acc, err = tx.Accounts().Create(ctx, repository.CreateAccountInput{
			UserName:     in.UserName,
			Email:        in.Email,
			PasswordHash: &hash,
			IsActive:     true,
		})
		if err != nil {
			return err
		}
		if issued, err = s.deps.Sessions.Issue(ctx, tx, acc.ID); err != nil {
			return err
		}
		s.deps.Audit.Record(ctx, tx, repository.LoginEvent{
			AccountID:   acc.ID,
			Action:      repository.ActionSignup,
			Channel:     repository.ChannelWebsite,
			PurchaseKey: in.PurchaseKey,
		})
		return nil
	})
	if errors.Is(err, repository.ErrConflict) {
		return nil, newError(KindEmailTaken, "Email is exists")
	}
	if err != nil {
		log.Error("signup failed", logger.Err(err))
		return nil, internal(err)
	}
	metrics.AccountsCreated.WithLabelValues("password").Inc()
	s.deps.Mailer.Welcome(ctx, acc.Email, acc.UserName, "")

	log.Info("signup succeeded", logger.AccountID(acc.ID))
	return &Result{Token: issued.Token, Account: acc, IsNew: true}, nil
}
