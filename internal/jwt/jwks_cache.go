package jwt

import (
	"context"
	"crypto/rsa"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

var (
	// ErrKeyNotFound means the key set was fetched but has no key with the
	// requested kid.
	ErrKeyNotFound = errors.New("jwks: signing key not found")
	// ErrKeysUnavailable means the key set could not be fetched.
	ErrKeysUnavailable = errors.New("jwks: key set unavailable")
)

// maxJWKSBody bounds the key set response.
const maxJWKSBody = 1 << 20

// KeyCache fetches a remote key set and caches it for a TTL. Concurrent
// cold-cache lookups share one fetch, and a failed fetch is retried once.
type KeyCache struct {
	url    string
	client *http.Client
	ttl    time.Duration
	// minRefresh limits forced refreshes triggered by an unknown kid.
	minRefresh time.Duration
	// fetchTimeout bounds one shared refresh, both attempts included.
	fetchTimeout time.Duration

	// OnFetch, if set, is called after every network fetch attempt.
	OnFetch func(err error)

	now   func() time.Time
	group singleflight.Group

	mu        sync.RWMutex
	keys      map[string]*rsa.PublicKey
	fetchedAt time.Time
}

func NewKeyCache(url string, client *http.Client, ttl time.Duration) *KeyCache {
	if client == nil {
		client = http.DefaultClient
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &KeyCache{
		url:          url,
		client:       client,
		ttl:          ttl,
		minRefresh:   time.Minute,
		fetchTimeout: 15 * time.Second,
		now:          time.Now,
	}
}

// Key returns the public key for kid. An unknown kid forces one refresh,
// at most once per minRefresh, to pick up rotated keys.
func (c *KeyCache) Key(ctx context.Context, kid string) (*rsa.PublicKey, error) {
	keys, fetchedAt, fresh := c.snapshot()
	if fresh {
		if k, ok := keys[kid]; ok {
			return k, nil
		}
		if c.now().Sub(fetchedAt) < c.minRefresh {
			return nil, ErrKeyNotFound
		}
	}

	keys, err := c.refresh(ctx)
	if err != nil {
		return nil, err
	}
	if k, ok := keys[kid]; ok {
		return k, nil
	}
	return nil, ErrKeyNotFound
}

// Invalidate drops the cached key set.
func (c *KeyCache) Invalidate() {
	c.mu.Lock()
	c.keys = nil
	c.fetchedAt = time.Time{}
	c.mu.Unlock()
}

func (c *KeyCache) snapshot() (map[string]*rsa.PublicKey, time.Time, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	fresh := c.keys != nil && c.now().Before(c.fetchedAt.Add(c.ttl))
	return c.keys, c.fetchedAt, fresh
}

func (c *KeyCache) refresh(ctx context.Context) (map[string]*rsa.PublicKey, error) {
	ch := c.group.DoChan(c.url, func() (any, error) {
		// another caller may have refreshed while we waited
		if keys, fetchedAt, fresh := c.snapshot(); fresh && c.now().Sub(fetchedAt) < c.minRefresh {
			return keys, nil
		}
		// the fetch is shared by every waiter, so it outlives the caller that started it
		fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.fetchTimeout)
		defer cancel()

		keys, err := c.fetch(fctx)
		if err != nil {
			keys, err = c.fetch(fctx)
		}
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		c.keys = keys
		c.fetchedAt = c.now()
		c.mu.Unlock()
		return keys, nil
	})

	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: %v", ErrKeysUnavailable, ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(map[string]*rsa.PublicKey), nil
	}
}

func (c *KeyCache) fetch(ctx context.Context) (keys map[string]*rsa.PublicKey, err error) {
	defer func() {
		if c.OnFetch != nil {
			c.OnFetch(err)
		}
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrKeysUnavailable, err)
	}
	req.Header.Set("Accept", "application/json")
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrKeysUnavailable, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d", ErrKeysUnavailable, resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxJWKSBody))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrKeysUnavailable, err)
	}
	keys, err = ParseJWKS(body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrKeysUnavailable, err)
	}
	return keys, nil
}
