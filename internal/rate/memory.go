package rate

import (
	"context"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// MemoryStore keeps counters in process. Entries expire on their own once
// neither the window nor the cooldown can matter any more.
type MemoryStore struct {
	mu sync.Mutex
	c  *gocache.Cache
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{c: gocache.New(5*time.Minute, 10*time.Minute)}
}

func (m *MemoryStore) Get(_ context.Context, key string, now time.Time, p Policy) (State, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.load(key).normalize(now, p), nil
}

func (m *MemoryStore) Fail(_ context.Context, key string, now time.Time, p Policy) (State, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s := applyFailure(m.load(key), now, p)
	m.c.Set(key, s, p.ttl())
	return s, nil
}

func (m *MemoryStore) Reset(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.c.Delete(key)
	return nil
}

func (m *MemoryStore) load(key string) State {
	if v, ok := m.c.Get(key); ok {
		return v.(State)
	}
	return State{}
}
