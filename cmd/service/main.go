package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	promhttp "github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/dropDatabas3/socialauth/internal/config"
	authctrl "github.com/dropDatabas3/socialauth/internal/http/controllers/auth"
	"github.com/dropDatabas3/socialauth/internal/http/controllers/health"
	mw "github.com/dropDatabas3/socialauth/internal/http/middlewares"
	"github.com/dropDatabas3/socialauth/internal/http/router"
	"github.com/dropDatabas3/socialauth/internal/metrics"
	"github.com/dropDatabas3/socialauth/internal/observability/logger"

	// registers the store adapters
	_ "github.com/dropDatabas3/socialauth/internal/store/adapters/dal"
)

var version = "dev"

func main() {
	configPath := flag.String("config", envOr("CONFIG_PATH", "config.yaml"), "path to the YAML config")
	flag.Parse()

	// .env is optional
	_ = godotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.L().Fatal("config load failed", zap.Error(err))
	}
	logger.Init(logger.Config{Env: cfg.App.Env, Level: cfg.Log.Level, ServiceName: cfg.App.Name, Version: version})
	defer func() { _ = logger.Sync() }()
	log := logger.L()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := build(ctx, cfg)
	if err != nil {
		log.Fatal("startup failed", zap.Error(err))
	}
	defer app.close()

	var metricsHandler http.Handler
	if cfg.Metrics.Enabled {
		reg := prometheus.DefaultRegisterer
		if err := metrics.Register(reg); err != nil {
			log.Fatal("metrics register failed", zap.Error(err))
		}
		if err := mw.RegisterHTTPMetrics(reg); err != nil {
			log.Fatal("http metrics register failed", zap.Error(err))
		}
		if src, ok := app.conn.(metrics.PoolSource); ok {
			if err := reg.Register(metrics.NewPoolCollector(src)); err != nil {
				log.Warn("pool metrics not registered", zap.Error(err))
			}
		}
		metricsHandler = promhttp.Handler()
	}

	trusted, err := mw.ParseTrustedProxies(cfg.Server.TrustedProxies)
	if err != nil {
		log.Fatal("trusted proxies", zap.Error(err))
	}

	handler := router.New(router.Deps{
		Auth:           authctrl.NewControllers(app.auth),
		Health:         health.NewController(app.conn, version),
		Authenticator:  app.auth,
		Metrics:        metricsHandler,
		TrustedProxies: trusted,
	})

	srv := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("service up",
			zap.String("addr", cfg.Server.Addr),
			zap.String("storage", cfg.Storage.Driver),
			zap.String("throttle", cfg.Throttle.Driver),
			zap.Strings("providers", cfg.Providers.Enabled),
		)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("http server failed", zap.Error(err))
		}
	case <-ctx.Done():
		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error("graceful shutdown failed", zap.Error(err))
		}
	}
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
