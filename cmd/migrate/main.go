package main

import (
	"context"
	"flag"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/dropDatabas3/socialauth/internal/config"
	"github.com/dropDatabas3/socialauth/internal/observability/logger"
	"github.com/dropDatabas3/socialauth/internal/store"
	migrations "github.com/dropDatabas3/socialauth/migrations/postgres"
)

func main() {
	var (
		configPath = flag.String("config", envOr("CONFIG_PATH", "config.yaml"), "Path to YAML config")
		list       = flag.Bool("list", false, "List migrations without applying them")
	)
	flag.Parse()

	_ = godotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.L().Fatal("config load", zap.Error(err))
	}
	logger.Init(logger.Config{Env: cfg.App.Env, Level: cfg.Log.Level, ServiceName: "migrate"})
	defer func() { _ = logger.Sync() }()
	log := logger.L()

	m := store.NewMigrator(migrations.FS, ".")
	if *list {
		migs, err := m.ParseMigrations()
		if err != nil {
			log.Fatal("parse migrations", zap.Error(err))
		}
		for _, mig := range migs {
			log.Info("migration", zap.Int("version", mig.Version), zap.String("name", mig.Name))
		}
		return
	}

	if cfg.Storage.Driver != "postgres" {
		log.Info("nothing to migrate", zap.String("driver", cfg.Storage.Driver))
		os.Exit(0)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	pool, err := pgxpool.New(ctx, cfg.Storage.DSN)
	if err != nil {
		log.Fatal("pgxpool", zap.Error(err))
	}
	defer pool.Close()

	res, err := m.Run(ctx, pool)
	if err != nil {
		log.Fatal("migrate", zap.Error(err))
	}
	log.Info("migrations completed",
		zap.Ints("applied", res.Applied),
		zap.Ints("skipped", res.Skipped),
		zap.Duration("took", res.Duration),
	)
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
