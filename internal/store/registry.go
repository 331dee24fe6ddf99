// Package store holds the adapter registry and the storage contract used by
// the authentication core.
package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/dropDatabas3/socialauth/internal/domain/repository"
)

// Adapter opens connections to one storage backend.
type Adapter interface {
	// Name is the driver name used in configuration ("postgres", "memory").
	Name() string

	Connect(ctx context.Context, cfg AdapterConfig) (Conn, error)
}

// Conn is an open store. Repositories obtained from a Conn passed to a
// WithTx callback run inside that transaction.
type Conn interface {
	Name() string
	Ping(ctx context.Context) error
	Close() error

	Accounts() repository.AccountRepository
	LoginEvents() repository.LoginEventRepository
	AccessTokens() repository.AccessTokenRepository
	DeviceTokens() repository.DeviceTokenRepository

	// WithTx runs fn in a transaction and commits if fn returns nil.
	// Calling WithTx on a transactional Conn opens a nested scope (a
	// savepoint where the backend supports it); a failed nested scope rolls
	// back only its own writes.
	WithTx(ctx context.Context, fn func(tx Conn) error) error
}

// MigratableConn is implemented by connections that can run SQL migrations.
type MigratableConn interface {
	MigrationExecutor() Executor
}

// AdapterConfig carries connection settings.
type AdapterConfig struct {
	Name string
	DSN  string

	MaxOpenConns int
	MaxIdleConns int
}

var (
	registryMu sync.RWMutex
	adapters   = make(map[string]Adapter)
)

// RegisterAdapter makes an adapter available by name. Called from init().
func RegisterAdapter(a Adapter) {
	registryMu.Lock()
	defer registryMu.Unlock()

	name := a.Name()
	if _, exists := adapters[name]; exists {
		panic(fmt.Sprintf("store: adapter %q already registered", name))
	}
	adapters[name] = a
}

// GetAdapter returns a registered adapter.
func GetAdapter(name string) (Adapter, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	a, ok := adapters[name]
	return a, ok
}

// ListAdapters returns the registered adapter names, sorted.
func ListAdapters() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()

	names := make([]string, 0, len(adapters))
	for name := range adapters {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Open connects using the adapter named in cfg.
func Open(ctx context.Context, cfg AdapterConfig) (Conn, error) {
	a, ok := GetAdapter(cfg.Name)
	if !ok {
		return nil, fmt.Errorf("store: unknown driver %q (registered: %v)", cfg.Name, ListAdapters())
	}
	return a.Connect(ctx, cfg)
}
