// Package cache wraps an expiring key/value store so dedup claims and
// advisory memoisation are injected services rather than process globals.
package cache

import (
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

type TTL struct {
	mu  sync.Mutex
	c   *gocache.Cache
	ttl time.Duration
}

// New returns a cache whose entries expire after ttl. Expired entries are
// purged every ttl/2, with a one minute floor.
func New(ttl time.Duration) *TTL {
	cleanup := ttl / 2
	if cleanup < time.Minute {
		cleanup = time.Minute
	}
	return &TTL{c: gocache.New(ttl, cleanup), ttl: ttl}
}

// Claim stores value under key only if no live entry exists. It returns the
// current holder and false when the key is already claimed.
func (t *TTL) Claim(key string, value any) (any, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.c.Add(key, value, gocache.DefaultExpiration); err != nil {
		existing, _ := t.c.Get(key)
		return existing, false
	}
	return value, true
}

func (t *TTL) Release(key string) {
	t.c.Delete(key)
}

// ReleaseIf deletes key only while value still holds it. A claim that
// expired and was taken by someone else is left alone.
func (t *TTL) ReleaseIf(key string, value any) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	current, ok := t.c.Get(key)
	if !ok || current != value {
		return false
	}
	t.c.Delete(key)
	return true
}

func (t *TTL) Get(key string) (any, bool) {
	return t.c.Get(key)
}

func (t *TTL) Set(key string, value any) {
	t.c.Set(key, value, gocache.DefaultExpiration)
}

func (t *TTL) Len() int {
	return t.c.ItemCount()
}
