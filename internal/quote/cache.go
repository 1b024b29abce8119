package quote

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"KabuScope/internal/model"
)

// DefaultTTL is how long a fetched series stays fresh.
const DefaultTTL = 300 * time.Second

// entry is one cached series with its freshness window.
type entry struct {
	series    model.Series
	fetchedAt time.Time
	expiresAt time.Time
}

// Cache is a TTL cache keyed by the full (symbol, period, interval)
// tuple. Readers may observe a stale-but-valid entry while a refresh is
// in flight; concurrent misses for the same key are collapsed into a
// single upstream fetch. Failed fetches are never stored.
type Cache struct {
	ttl    time.Duration
	logger *slog.Logger
	now    func() time.Time // overridable in tests

	mu      sync.RWMutex
	entries map[string]entry
	group   singleflight.Group
}

// NewCache creates a cache with the given TTL; ttl <= 0 selects DefaultTTL.
func NewCache(ttl time.Duration, logger *slog.Logger) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Cache{
		ttl:     ttl,
		logger:  logger,
		now:     time.Now,
		entries: make(map[string]entry),
	}
}

func cacheKey(symbol string, period model.Period, interval model.Interval) string {
	return fmt.Sprintf("%s|%s|%s", symbol, period, interval)
}

// FetchFunc fetches the series for a key on a cache miss.
type FetchFunc func(ctx context.Context, symbol string, period model.Period, interval model.Interval) (model.Series, error)

// GetOrFetch returns the cached series when fresh, otherwise invokes
// fetch, stores the result with expiresAt = now + TTL, and returns it.
// A fetch failure is propagated without storing anything.
func (c *Cache) GetOrFetch(ctx context.Context, symbol string, period model.Period, interval model.Interval, fetch FetchFunc) (model.Series, error) {
	key := cacheKey(symbol, period, interval)

	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()
	if ok && c.now().Before(e.expiresAt) {
		return e.series, nil
	}

	// Collapse concurrent misses for the same key into one upstream call.
	v, err, _ := c.group.Do(key, func() (interface{}, error) {
		// A fetch that completed while this call was queued is fresh enough.
		c.mu.RLock()
		e, ok := c.entries[key]
		c.mu.RUnlock()
		if ok && c.now().Before(e.expiresAt) {
			return e.series, nil
		}

		s, err := fetch(ctx, symbol, period, interval)
		if err != nil {
			return nil, err
		}
		now := c.now()
		c.mu.Lock()
		c.entries[key] = entry{series: s, fetchedAt: now, expiresAt: now.Add(c.ttl)}
		c.mu.Unlock()
		c.logger.Debug("cache refreshed", "key", key, "bars", len(s.Bars))
		return s, nil
	})
	if err != nil {
		return model.Series{}, err
	}
	return v.(model.Series), nil
}

// Invalidate drops all entries for one symbol across every period and interval.
func (c *Cache) Invalidate(symbol string) {
	prefix := symbol + "|"
	c.mu.Lock()
	defer c.mu.Unlock()
	for k := range c.entries {
		if len(k) >= len(prefix) && k[:len(prefix)] == prefix {
			delete(c.entries, k)
		}
	}
}

// InvalidateAll clears the whole cache.
func (c *Cache) InvalidateAll() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]entry)
}

// Len returns the number of live entries, expired ones included.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
