package engine

import (
	"context"
	"time"

	"github.com/jellydator/ttlcache/v3"
)

// memoryCache is an in-process ResultCache with per-entry expiry.
type memoryCache struct {
	c *ttlcache.Cache[string, string]
}

// NewMemoryCache returns a ResultCache holding at most capacity entries for ttl.
func NewMemoryCache(ttl time.Duration, capacity uint64) ResultCache {
	opts := []ttlcache.Option[string, string]{ttlcache.WithTTL[string, string](ttl)}
	if capacity > 0 {
		opts = append(opts, ttlcache.WithCapacity[string, string](capacity))
	}
	c := ttlcache.New[string, string](opts...)
	go c.Start()
	return &memoryCache{c: c}
}

func (m *memoryCache) Get(_ context.Context, key string) (string, bool, error) {
	it := m.c.Get(key)
	if it == nil {
		return "", false, nil
	}
	return it.Value(), true, nil
}

func (m *memoryCache) Set(_ context.Context, key, text string) error {
	m.c.Set(key, text, ttlcache.DefaultTTL)
	return nil
}

func (m *memoryCache) Close() error {
	m.c.Stop()
	return nil
}
