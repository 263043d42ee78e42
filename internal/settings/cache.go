package settings

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

const DefaultTTL = 5 * time.Minute

// Source supplies the raw application settings JSON from one location.
type Source interface {
	Name() string
	Load(ctx context.Context) (string, error)
}

// Cache is a read-through settings cache with a TTL. Refresh walks the sources
// in order and keeps the first value that loads; a refresh that fails across
// every source keeps serving the previous value. A single writer refreshes at
// a time, readers are never blocked behind a slow source once a value exists.
type Cache struct {
	sources []Source
	ttl     time.Duration
	logger  *zap.SugaredLogger

	mu     sync.RWMutex
	value  string
	expiry time.Time
}

func NewCache(sources []Source, ttl time.Duration, logger *zap.SugaredLogger) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Cache{
		sources: sources,
		ttl:     ttl,
		logger:  logger,
	}
}

// Get returns the settings JSON, refreshing when the cached value has expired.
func (c *Cache) Get(ctx context.Context) string {
	c.mu.RLock()
	value, expiry := c.value, c.expiry
	c.mu.RUnlock()

	if time.Now().Before(expiry) {
		return value
	}
	return c.refresh(ctx)
}

func (c *Cache) refresh(ctx context.Context) string {
	c.mu.Lock()
	defer c.mu.Unlock()

	// Another writer may have refreshed while we waited on the lock.
	if time.Now().Before(c.expiry) {
		return c.value
	}

	for _, source := range c.sources {
		value, err := source.Load(ctx)
		if err != nil {
			c.logger.Warnw("settings source failed, falling through",
				"source", source.Name(), "error", err)
			continue
		}
		c.value = value
		c.expiry = time.Now().Add(c.ttl)
		return c.value
	}

	c.logger.Errorw("every settings source failed, keeping stale value")
	c.expiry = time.Now().Add(c.ttl)
	return c.value
}
