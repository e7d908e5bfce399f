package tenancy

import (
	"sync"
	"time"

	"github.com/liamcoop/payrollrisk/tiers"
)

// TierCache holds resolved tenant tiers between directory reads.
type TierCache interface {
	// Get returns the cached tier, false on a miss or expired entry.
	Get(tenantID string) (tiers.Tier, bool)
	Set(tenantID string, tier tiers.Tier)
	Invalidate(tenantID string)
	InvalidateAll()
}

// CacheConfig controls cache expiry.
type CacheConfig struct {
	// TTL of each entry. Zero means entries live until invalidated.
	TTL time.Duration
}

// DefaultCacheConfig expires entries after five minutes.
func DefaultCacheConfig() CacheConfig {
	return CacheConfig{TTL: 5 * time.Minute}
}

type cachedTier struct {
	tier     tiers.Tier
	cachedAt time.Time
}

// InMemoryTierCache is a TierCache safe for concurrent use.
type InMemoryTierCache struct {
	entries map[string]cachedTier
	config  CacheConfig
	now     func() time.Time
	mu      sync.RWMutex
}

// NewInMemoryTierCache creates an empty cache.
func NewInMemoryTierCache(config CacheConfig) *InMemoryTierCache {
	return &InMemoryTierCache{
		entries: make(map[string]cachedTier),
		config:  config,
		now:     time.Now,
	}
}

func (c *InMemoryTierCache) Get(tenantID string) (tiers.Tier, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, ok := c.entries[tenantID]
	if !ok {
		return "", false
	}
	if c.config.TTL > 0 && c.now().Sub(e.cachedAt) > c.config.TTL {
		return "", false
	}
	return e.tier, true
}

func (c *InMemoryTierCache) Set(tenantID string, tier tiers.Tier) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[tenantID] = cachedTier{tier: tier, cachedAt: c.now()}
}

func (c *InMemoryTierCache) Invalidate(tenantID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, tenantID)
}

func (c *InMemoryTierCache) InvalidateAll() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]cachedTier)
}
