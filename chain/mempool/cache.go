package mempool

import (
	"sync"
	"time"
)

// feeCache holds the most recent fee estimates for a fixed TTL so that a
// burst of send attempts does not hit the API once each.
type feeCache struct {
	entry *cacheEntry
	ttl   time.Duration
	now   func() time.Time
	mu    sync.RWMutex
}

// newFeeCache creates a new fee cache.
func newFeeCache(ttl time.Duration) *feeCache {
	return &feeCache{
		ttl: ttl,
		now: time.Now,
	}
}

// get returns the cached estimates if still valid.
func (c *feeCache) get() (FeeEstimates, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.entry == nil || !c.now().Before(c.entry.expiresAt) {
		return FeeEstimates{}, false
	}

	return c.entry.fees, true
}

// set caches fresh estimates.
func (c *feeCache) set(fees FeeEstimates) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entry = &cacheEntry{
		fees:      fees,
		expiresAt: c.now().Add(c.ttl),
	}
}

// invalidate drops the cached estimates.
func (c *feeCache) invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entry = nil
}
