package engine

import (
	"sync"
	"time"

	"daycal/internal/store"
	"daycal/internal/timewin"
)

// MonthBucket is one cache entry: every item the store returned for one
// calendar month, stamped with the fetch time. MonthStart is always the
// canonical first instant of the month in the configured calendar.
type MonthBucket struct {
	MonthStart time.Time
	Items      []store.Item
	FetchedAt  time.Time
}

// MonthCache is a TTL cache of month buckets keyed by month start. The TTL is
// deliberately short: two renders of the same frame share one store round
// trip, but a just-completed mutation is never invisible for long. Buckets
// older than the retention horizon are evicted opportunistically after each
// Put to bound memory.
//
// All operations are synchronous and in-memory; a miss is the caller's signal
// to query the store inline.
type MonthCache struct {
	mu              sync.Mutex
	win             timewin.Config
	ttl             time.Duration
	retentionMonths int
	buckets         map[int64]*MonthBucket // keyed by MonthStart.UnixNano()

	nowFunc func() time.Time // test seam
}

// NewMonthCache creates an empty cache with the given freshness TTL and
// retention horizon in months.
func NewMonthCache(win timewin.Config, ttl time.Duration, retentionMonths int) *MonthCache {
	return &MonthCache{
		win:             win,
		ttl:             ttl,
		retentionMonths: retentionMonths,
		buckets:         make(map[int64]*MonthBucket),
		nowFunc:         time.Now,
	}
}

// Get returns the bucket for the month containing monthStart, but only while
// it is fresh: a bucket past its TTL is a miss. The returned bucket is shared;
// callers must treat its item slice as read-only.
func (c *MonthCache) Get(monthStart time.Time) (*MonthBucket, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := c.win.MonthStart(monthStart).UnixNano()

	b, ok := c.buckets[key]
	if !ok {
		return nil, false
	}

	if c.nowFunc().Sub(b.FetchedAt) >= c.ttl {
		return nil, false
	}

	return b, true
}

// Put replaces the month's bucket wholesale, stamping FetchedAt with the
// current time, then evicts buckets past the retention horizon.
func (c *MonthCache) Put(monthStart time.Time, items []store.Item) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.nowFunc()
	canonical := c.win.MonthStart(monthStart)

	c.buckets[canonical.UnixNano()] = &MonthBucket{
		MonthStart: canonical,
		Items:      items,
		FetchedAt:  now,
	}

	c.evictStaleLocked(now)
}

// Invalidate removes the month's bucket outright, forcing the next Get to
// miss regardless of elapsed time.
func (c *MonthCache) Invalidate(monthStart time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.buckets, c.win.MonthStart(monthStart).UnixNano())
}

// InvalidateAll drops every bucket. Used when the query predicate itself
// changes (calendar visibility), after which no bucket can be trusted.
func (c *MonthCache) InvalidateAll() {
	c.mu.Lock()
	defer c.mu.Unlock()

	clear(c.buckets)
}

// EvictStale removes every bucket whose month is strictly more than the
// retention horizon behind now.
func (c *MonthCache) EvictStale(now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.evictStaleLocked(now)
}

func (c *MonthCache) evictStaleLocked(now time.Time) {
	horizon := c.win.MonthStart(now).AddDate(0, -c.retentionMonths, 0)

	for key, b := range c.buckets {
		if b.MonthStart.Before(horizon) {
			delete(c.buckets, key)
		}
	}
}

// Len returns the number of cached buckets.
func (c *MonthCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return len(c.buckets)
}
