// Package statuscache holds the most recent successfully captured server
// status. It is a single-entry cache: this service tracks exactly one
// upstream server, so there is no keying, no eviction and no size bound.
// Staleness is a computed property of the entry's age, never a deletion.
package statuscache

import (
	"sync"
	"time"

	"github.com/wildwest-rp/stagecoach/internal/directory"
)

// Cache stores one status snapshot and the time of the last successful
// capture. The zero value is an empty cache ready for use.
type Cache struct {
	mu            sync.RWMutex
	value         directory.Status
	lastSuccessAt time.Time
	populated     bool
}

// Get returns the cached snapshot, the time it was captured, and whether any
// snapshot has ever been stored.
func (c *Cache) Get() (directory.Status, time.Time, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.value, c.lastSuccessAt, c.populated
}

// Put overwrites the cache with a freshly captured snapshot.
func (c *Cache) Put(s directory.Status) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.value = s
	c.lastSuccessAt = s.CapturedAt
	c.populated = true
}

// IsFresh reports whether a snapshot is present and younger than window.
func (c *Cache) IsFresh(now time.Time, window time.Duration) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.populated && now.Sub(c.lastSuccessAt) < window
}

// Invalidate drops the cached snapshot, forcing the next status request to
// attempt a refetch.
func (c *Cache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.value = directory.Status{}
	c.lastSuccessAt = time.Time{}
	c.populated = false
}
