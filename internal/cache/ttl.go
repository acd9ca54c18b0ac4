package cache

import (
	"sync"
	"time"

	"github.com/benbjohnson/clock"
)

type entry[V any] struct {
	value     V
	expiresAt time.Time
}

// TTL is a time-bounded memo keyed by request parameters. Expiry is read from the
// injected clock so tests can move time explicitly.
type TTL[K comparable, V any] struct {
	clock clock.Clock
	ttl   time.Duration

	mu    sync.Mutex
	items map[K]entry[V]
}

func NewTTL[K comparable, V any](c clock.Clock, ttl time.Duration) *TTL[K, V] {
	if c == nil {
		c = clock.New()
	}
	return &TTL[K, V]{
		clock: c,
		ttl:   ttl,
		items: make(map[K]entry[V]),
	}
}

func (c *TTL[K, V]) Get(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.items[key]
	if !ok {
		var zero V
		return zero, false
	}
	if !c.clock.Now().Before(e.expiresAt) {
		delete(c.items, key)
		var zero V
		return zero, false
	}
	return e.value, true
}

func (c *TTL[K, V]) Set(key K, value V) {
	c.SetWithTTL(key, value, c.ttl)
}

func (c *TTL[K, V]) SetWithTTL(key K, value V, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items[key] = entry[V]{value: value, expiresAt: c.clock.Now().Add(ttl)}
}

func (c *TTL[K, V]) Delete(key K) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.items, key)
}

// GetOrLoad returns the cached value or calls load and caches its result. Errors are not cached.
func (c *TTL[K, V]) GetOrLoad(key K, load func() (V, error)) (V, error) {
	if v, ok := c.Get(key); ok {
		return v, nil
	}

	v, err := load()
	if err != nil {
		return v, err
	}
	c.Set(key, v)
	return v, nil
}

func (c *TTL[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

func (c *TTL[K, V]) TTL() time.Duration {
	return c.ttl
}
