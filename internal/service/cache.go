package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/smartcity/vnweather/internal/domain"
)

// FreshnessWindow is how long a cached result may be served. It is the same
// for every catalog query.
const FreshnessWindow = 600 * time.Second

// FetchFunc runs a query against the warehouse
type FetchFunc func(ctx context.Context, q domain.Query) (*domain.Table, error)

// CacheRecorder receives cache hit/miss events
type CacheRecorder interface {
	RecordCacheHit(id domain.QueryID)
	RecordCacheMiss(id domain.QueryID)
}

type cacheEntry struct {
	table     *domain.Table
	fetchedAt time.Time
}

// Cache memoizes query results by query identity and resolved parameters.
// Entries are replaced whole; a reader sees either the previous result or
// the new one. Concurrent misses on one key share a single warehouse call.
type Cache struct {
	fetch    FetchFunc
	now      func() time.Time
	recorder CacheRecorder

	mu      sync.RWMutex
	entries map[string]*cacheEntry
	group   singleflight.Group
}

// NewCache creates a cache in front of fetch. now and recorder may be nil.
func NewCache(fetch FetchFunc, now func() time.Time, recorder CacheRecorder) *Cache {
	if now == nil {
		now = time.Now
	}
	return &Cache{
		fetch:    fetch,
		now:      now,
		recorder: recorder,
		entries:  make(map[string]*cacheEntry),
	}
}

// Fetch returns the cached result for q while it is fresh, otherwise runs the
// query and stores the new result. Failures are never cached.
func (c *Cache) Fetch(ctx context.Context, q domain.Query) (*domain.Table, error) {
	key := q.Key()
	if table, ok := c.fresh(key); ok {
		c.hit(q.ID)
		return table, nil
	}

	v, err, _ := c.group.Do(key, func() (interface{}, error) {
		// another caller may have refreshed the entry while we waited
		if table, ok := c.fresh(key); ok {
			c.hit(q.ID)
			return table, nil
		}
		c.miss(q.ID)

		table, err := c.fetch(ctx, q)
		if err != nil {
			return nil, err
		}
		if table == nil {
			table = domain.NewTable()
		}

		c.mu.Lock()
		c.entries[key] = &cacheEntry{table: table, fetchedAt: c.now()}
		c.mu.Unlock()
		return table, nil
	})
	if err != nil {
		return nil, fmt.Errorf("cache: fetch %s: %w", q.ID, err)
	}
	return v.(*domain.Table), nil
}

// FetchedAt reports when the entry for q was stored
func (c *Cache) FetchedAt(q domain.Query) (time.Time, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[q.Key()]
	if !ok {
		return time.Time{}, false
	}
	return e.fetchedAt, true
}

// Invalidate drops every entry
func (c *Cache) Invalidate() {
	c.mu.Lock()
	c.entries = make(map[string]*cacheEntry)
	c.mu.Unlock()
}

func (c *Cache) fresh(key string) (*domain.Table, bool) {
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok {
		return nil, false
	}
	if c.now().Sub(e.fetchedAt) > FreshnessWindow {
		return nil, false
	}
	return e.table, true
}

func (c *Cache) hit(id domain.QueryID) {
	if c.recorder != nil {
		c.recorder.RecordCacheHit(id)
	}
}

func (c *Cache) miss(id domain.QueryID) {
	if c.recorder != nil {
		c.recorder.RecordCacheMiss(id)
	}
}
