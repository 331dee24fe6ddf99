package main

import (
	"context"
	"fmt"
	"time"

	rdb "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/dropDatabas3/socialauth/internal/auth"
	"github.com/dropDatabas3/socialauth/internal/config"
	"github.com/dropDatabas3/socialauth/internal/email"
	"github.com/dropDatabas3/socialauth/internal/jwt"
	"github.com/dropDatabas3/socialauth/internal/metrics"
	"github.com/dropDatabas3/socialauth/internal/observability/logger"
	"github.com/dropDatabas3/socialauth/internal/providers"
	"github.com/dropDatabas3/socialauth/internal/providers/apple"
	"github.com/dropDatabas3/socialauth/internal/providers/facebook"
	"github.com/dropDatabas3/socialauth/internal/providers/google"
	"github.com/dropDatabas3/socialauth/internal/providers/linkedin"
	"github.com/dropDatabas3/socialauth/internal/providers/twitter"
	"github.com/dropDatabas3/socialauth/internal/rate"
	"github.com/dropDatabas3/socialauth/internal/security/password"
	"github.com/dropDatabas3/socialauth/internal/session"
	"github.com/dropDatabas3/socialauth/internal/store"
	migrations "github.com/dropDatabas3/socialauth/migrations/postgres"
)

// application holds what main needs after wiring.
type application struct {
	conn   store.Conn
	auth   *auth.Service
	mailer *email.Notifier
	redis  rdb.UniversalClient
}

func (a *application) close() {
	a.mailer.Wait()
	if a.redis != nil {
		_ = a.redis.Close()
	}
	if err := a.conn.Close(); err != nil {
		logger.L().Warn("store close failed", zap.Error(err))
	}
}

func build(ctx context.Context, cfg *config.Config) (*application, error) {
	log := logger.L()

	conn, err := store.Open(ctx, store.AdapterConfig{
		Name:         cfg.Storage.Driver,
		DSN:          cfg.Storage.DSN,
		MaxOpenConns: cfg.Storage.Postgres.MaxOpenConns,
		MaxIdleConns: cfg.Storage.Postgres.MaxIdleConns,
	})
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	app := &application{conn: conn}

	if cfg.Storage.AutoMigrate {
		if mc, ok := conn.(store.MigratableConn); ok {
			res, err := store.NewMigrator(migrations.FS, ".").Run(ctx, mc.MigrationExecutor())
			if err != nil {
				_ = conn.Close()
				return nil, fmt.Errorf("migrate: %w", err)
			}
			log.Info("migrations done", zap.Ints("applied", res.Applied), zap.Duration("took", res.Duration))
		}
	}

	throttle, redisClient, err := buildThrottle(ctx, cfg)
	if err != nil {
		_ = conn.Close()
		return nil, err
	}
	app.redis = redisClient

	policy := password.DefaultPolicy()
	if cfg.Security.PasswordMinLength > 0 {
		policy.MinLength = cfg.Security.PasswordMinLength
	}
	if p := cfg.Security.PasswordBlacklistPath; p != "" {
		bl, err := password.LoadBlacklist(p)
		if err != nil {
			log.Warn("password blacklist not loaded", zap.String("path", p), zap.Error(err))
		} else {
			policy.Blacklist = bl
			log.Info("password blacklist loaded", zap.Int("entries", bl.Len()))
		}
	}

	smtp := email.SMTPConfig{
		Host:               cfg.SMTP.Host,
		Port:               cfg.SMTP.Port,
		Username:           cfg.SMTP.Username,
		Password:           cfg.SMTP.Password,
		From:               cfg.SMTP.From,
		TLSMode:            cfg.SMTP.TLS,
		InsecureSkipVerify: cfg.SMTP.InsecureSkipVerify,
	}
	if smtp.Enabled() {
		app.mailer = email.NewNotifier(email.NewSMTPSender(smtp), cfg.App.Name)
	}

	app.auth = auth.New(auth.Deps{
		Store:     conn,
		Verifiers: buildVerifiers(cfg),
		Throttle:  throttle,
		Sessions:  session.NewIssuer(cfg.Session.TokenTTL),
		Mailer:    app.mailer,
		Passwords: policy,
	})
	return app, nil
}

func buildThrottle(ctx context.Context, cfg *config.Config) (*rate.Throttle, rdb.UniversalClient, error) {
	policy := rate.Policy{
		MaxAttempts: cfg.Throttle.MaxAttempts,
		Cooldown:    cfg.Throttle.Cooldown,
		Window:      cfg.Throttle.Window,
	}

	var (
		st     rate.Store
		client rdb.UniversalClient
	)
	switch cfg.Throttle.Driver {
	case "redis":
		client = rdb.NewUniversalClient(&rdb.UniversalOptions{
			Addrs:    []string{cfg.Throttle.Redis.Addr},
			Password: cfg.Throttle.Redis.Password,
			DB:       cfg.Throttle.Redis.DB,
		})
		pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
		defer cancel()
		if err := client.Ping(pingCtx).Err(); err != nil {
			// the throttle fails open, so an unreachable redis is not fatal
			logger.L().Warn("throttle redis unreachable", zap.String("addr", cfg.Throttle.Redis.Addr), zap.Error(err))
		}
		st = rate.NewRedisStore(client, cfg.Throttle.Redis.Prefix)
	case "memory", "":
		st = rate.NewMemoryStore()
	default:
		return nil, nil, fmt.Errorf("throttle: unknown driver %q", cfg.Throttle.Driver)
	}

	t := rate.NewThrottle(st, policy)
	t.OnLock = metrics.ThrottleLockouts.Inc
	return t, client, nil
}

func buildVerifiers(cfg *config.Config) *providers.Registry {
	pc := cfg.Providers
	client := providers.NewHTTPClient(pc.HTTP.ConnectTimeout, pc.HTTP.Timeout)

	factories := map[string]providers.Factory{
		apple.ProviderName: func() (providers.Verifier, error) {
			keys := jwt.NewKeyCache(pc.Apple.KeysURL, client, pc.Apple.KeysTTL)
			keys.OnFetch = func(err error) {
				metrics.SigningKeyFetches.WithLabelValues(metrics.Result(err)).Inc()
			}
			return apple.New(apple.Config{
				Issuer:          pc.Apple.Issuer,
				WebsiteClientID: pc.Apple.WebsiteClientID,
				MobileClientID:  pc.Apple.MobileClientID,
			}, keys), nil
		},
		google.ProviderName: func() (providers.Verifier, error) {
			return google.New(pc.Google.TokenInfoURL, client), nil
		},
		facebook.ProviderName: func() (providers.Verifier, error) {
			return facebook.New(pc.Facebook.GraphURL, client), nil
		},
		twitter.ProviderName: func() (providers.Verifier, error) {
			return twitter.New(), nil
		},
		linkedin.ProviderName: func() (providers.Verifier, error) {
			return linkedin.New(), nil
		},
	}

	reg := providers.NewRegistry()
	for _, name := range pc.Enabled {
		if f, ok := factories[name]; ok {
			reg.RegisterFactory(name, f)
		}
	}
	return reg
}
