package service

import (
	"sync"
	"time"
)

// orgCache memoizes legal-entity to organisation resolutions. Resolution walks
// an external resolver plus the cutoff configuration table, so the hot event
// path keeps a short-lived local copy.
type orgCache struct {
	mu    sync.RWMutex
	ttl   time.Duration
	items map[string]orgCacheEntry
}

type orgCacheEntry struct {
	orgID     string
	expiresAt time.Time
}

func newOrgCache(ttl time.Duration) *orgCache {
	return &orgCache{ttl: ttl, items: make(map[string]orgCacheEntry)}
}

func (c *orgCache) get(legalEntityID string) (string, bool) {
	c.mu.RLock()
	entry, ok := c.items[legalEntityID]
	c.mu.RUnlock()
	if !ok || time.Now().After(entry.expiresAt) {
		return "", false
	}
	return entry.orgID, true
}

func (c *orgCache) set(legalEntityID, orgID string) {
	c.mu.Lock()
	c.items[legalEntityID] = orgCacheEntry{orgID: orgID, expiresAt: time.Now().Add(c.ttl)}
	c.mu.Unlock()
}
