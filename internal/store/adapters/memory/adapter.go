// Package memory is an in-process store adapter for tests and single-node
// development. Data lives only as long as the Conn.
package memory

import (
	"context"
	"sync"

	"github.com/dropDatabas3/socialauth/internal/domain/repository"
	"github.com/dropDatabas3/socialauth/internal/store"
)

func init() {
	store.RegisterAdapter(&memoryAdapter{})
}

type memoryAdapter struct{}

func (a *memoryAdapter) Name() string { return "memory" }

func (a *memoryAdapter) Connect(_ context.Context, _ store.AdapterConfig) (store.Conn, error) {
	return New(), nil
}

// New returns an empty store.
func New() store.Conn {
	return &memConn{db: &memDB{data: newMemData()}}
}

type memDB struct {
	mu   sync.Mutex
	data *memData
}

type memData struct {
	nextAccountID int64
	nextEventID   int64
	nextTokenID   int64

	accounts map[int64]*repository.Account
	events   []repository.LoginEvent
	tokens   map[string]*repository.AccessToken
	devices  map[string]repository.DeviceToken
}

func newMemData() *memData {
	return &memData{
		accounts: make(map[int64]*repository.Account),
		tokens:   make(map[string]*repository.AccessToken),
		devices:  make(map[string]repository.DeviceToken),
	}
}

func (d *memData) clone() *memData {
	out := &memData{
		nextAccountID: d.nextAccountID,
		nextEventID:   d.nextEventID,
		nextTokenID:   d.nextTokenID,
		accounts:      make(map[int64]*repository.Account, len(d.accounts)),
		events:        append([]repository.LoginEvent(nil), d.events...),
		tokens:        make(map[string]*repository.AccessToken, len(d.tokens)),
		devices:       make(map[string]repository.DeviceToken, len(d.devices)),
	}
	for id, a := range d.accounts {
		cp := *a
		out.accounts[id] = &cp
	}
	for h, t := range d.tokens {
		cp := *t
		out.tokens[h] = &cp
	}
	for k, v := range d.devices {
		out.devices[k] = v
	}
	return out
}

// memConn is the root handle (inTx false) or a transaction scope. A
// transaction holds db.mu until it returns, so repositories obtained from
// the scope must not lock again. Code inside WithTx must use the tx handle,
// never the root one.
type memConn struct {
	db   *memDB
	inTx bool
}

func (c *memConn) Name() string                 { return "memory" }
func (c *memConn) Ping(_ context.Context) error { return nil }
func (c *memConn) Close() error                 { return nil }

func (c *memConn) Accounts() repository.AccountRepository         { return &accountRepo{c} }
func (c *memConn) LoginEvents() repository.LoginEventRepository   { return &loginEventRepo{c} }
func (c *memConn) AccessTokens() repository.AccessTokenRepository { return &accessTokenRepo{c} }
func (c *memConn) DeviceTokens() repository.DeviceTokenRepository { return &deviceTokenRepo{c} }

// WithTx serializes against every other store operation. On error the data
// is restored to its state when the scope began; nested scopes restore only
// their own writes.
func (c *memConn) WithTx(ctx context.Context, fn func(tx store.Conn) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !c.inTx {
		c.db.mu.Lock()
		defer c.db.mu.Unlock()
	}
	snapshot := c.db.data.clone()
	if err := fn(&memConn{db: c.db, inTx: true}); err != nil {
		c.db.data = snapshot
		return err
	}
	return nil
}

// view runs fn with the data locked unless the caller is inside a tx.
func (c *memConn) view(fn func(d *memData) error) error {
	if !c.inTx {
		c.db.mu.Lock()
		defer c.db.mu.Unlock()
	}
	return fn(c.db.data)
}
