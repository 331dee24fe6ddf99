// Package pg is the PostgreSQL store adapter, built on pgxpool.
package pg

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dropDatabas3/socialauth/internal/domain/repository"
	"github.com/dropDatabas3/socialauth/internal/store"
)

func init() {
	store.RegisterAdapter(&postgresAdapter{})
}

const uniqueViolation = "23505"

// querier is satisfied by *pgxpool.Pool and pgx.Tx.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type postgresAdapter struct{}

func (a *postgresAdapter) Name() string { return "postgres" }

func (a *postgresAdapter) Connect(ctx context.Context, cfg store.AdapterConfig) (store.Conn, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("pg: dsn required")
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("pg: parse DSN: %w", err)
	}

	poolCfg.MaxConns = 10
	if cfg.MaxOpenConns > 0 {
		poolCfg.MaxConns = int32(cfg.MaxOpenConns)
	}
	poolCfg.MinConns = 2
	if cfg.MaxIdleConns > 0 {
		poolCfg.MinConns = int32(cfg.MaxIdleConns)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("pg: create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pg: ping failed: %w", err)
	}

	return &pgConn{pool: pool, q: pool}, nil
}

// pgConn is either the root connection (tx == nil) or a transaction scope.
type pgConn struct {
	pool *pgxpool.Pool
	q    querier
	tx   pgx.Tx
}

func (c *pgConn) Name() string { return "postgres" }

func (c *pgConn) Ping(ctx context.Context) error { return c.pool.Ping(ctx) }

func (c *pgConn) Close() error {
	if c.tx == nil {
		c.pool.Close()
	}
	return nil
}

func (c *pgConn) Accounts() repository.AccountRepository         { return &accountRepo{q: c.q} }
func (c *pgConn) LoginEvents() repository.LoginEventRepository   { return &loginEventRepo{q: c.q} }
func (c *pgConn) AccessTokens() repository.AccessTokenRepository { return &accessTokenRepo{q: c.q} }
func (c *pgConn) DeviceTokens() repository.DeviceTokenRepository { return &deviceTokenRepo{q: c.q} }

// WithTx begins a transaction, or a savepoint when c is already transactional.
func (c *pgConn) WithTx(ctx context.Context, fn func(tx store.Conn) error) error {
	var (
		tx  pgx.Tx
		err error
	)
	if c.tx != nil {
		tx, err = c.tx.Begin(ctx)
	} else {
		tx, err = c.pool.Begin(ctx)
	}
	if err != nil {
		return fmt.Errorf("pg: begin: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := fn(&pgConn{pool: c.pool, q: tx, tx: tx}); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("pg: commit: %w", err)
	}
	return nil
}

// Pool exposes the pool for connection metrics.
func (c *pgConn) Pool() *pgxpool.Pool { return c.pool }

// MigrationExecutor implements store.MigratableConn.
func (c *pgConn) MigrationExecutor() store.Executor { return c.pool }

// nullIfEmpty maps "" to SQL NULL for optional text columns.
func nullIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}
