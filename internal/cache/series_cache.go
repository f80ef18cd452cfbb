// Package cache holds loaded series in memory between requests.
package cache

import (
	"sync"
	"time"

	"series-platform/internal/models"
)

const defaultTTL = 15 * time.Minute

type entry struct {
	series   models.Series
	storedAt time.Time
}

// Stats is a point-in-time view of cache usage
type Stats struct {
	Entries int    `json:"entries"`
	Hits    uint64 `json:"hits"`
	Misses  uint64 `json:"misses"`
}

// HitRatio returns hits / (hits + misses), or 0 before any lookup
func (s Stats) HitRatio() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total)
}

// SeriesCache stores series by key with a fixed time-to-live.
// It is safe for concurrent use. Returned series share point storage with
// the cache, so callers must treat them as read-only.
type SeriesCache struct {
	ttl time.Duration
	now func() time.Time

	mu      sync.RWMutex
	entries map[string]entry
	hits    uint64
	misses  uint64
}

// NewSeriesCache creates a cache; a non-positive ttl selects the default
func NewSeriesCache(ttl time.Duration) *SeriesCache {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &SeriesCache{
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[string]entry),
	}
}

// TTL returns the configured time-to-live
func (c *SeriesCache) TTL() time.Duration {
	return c.ttl
}

// Get returns the series stored under key if it has not expired
func (c *SeriesCache) Get(key string) (models.Series, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if ok && c.now().Sub(e.storedAt) < c.ttl {
		c.hits++
		return e.series, true
	}
	if ok {
		delete(c.entries, key)
	}
	c.misses++
	return models.Series{}, false
}

// Put stores s under its key, replacing any previous entry
func (c *SeriesCache) Put(s models.Series) {
	points := make([]models.Point, len(s.Points))
	copy(points, s.Points)

	c.mu.Lock()
	c.entries[s.Key] = entry{series: s.WithPoints(points), storedAt: c.now()}
	c.mu.Unlock()
}

// Invalidate drops a single key
func (c *SeriesCache) Invalidate(key string) {
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()
}

// InvalidateAll drops every entry and returns how many were removed
func (c *SeriesCache) InvalidateAll() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := len(c.entries)
	c.entries = make(map[string]entry)
	return n
}

// Stats returns the current entry count and lookup counters
func (c *SeriesCache) Stats() Stats {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return Stats{
		Entries: len(c.entries),
		Hits:    c.hits,
		Misses:  c.misses,
	}
}
