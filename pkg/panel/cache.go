package panel

import (
	"strings"
	"sync"
	"time"
)

// Default cache lifetimes. Error entries expire quickly so a transient
// upstream failure does not pin a stale error for long.
const (
	DefaultSuccessTTL = 2 * time.Minute
	DefaultErrorTTL   = 30 * time.Second
)

// CacheConfig holds QuotaCache configuration
type CacheConfig struct {
	// SuccessTTL is the lifetime of successful entries (default: 2m)
	SuccessTTL time.Duration

	// ErrorTTL is the lifetime of error entries (default: 30s)
	ErrorTTL time.Duration

	// Clock is the time source (default: SystemClock)
	Clock TimeSource
}

type quotaCacheEntry struct {
	result    QuotaResult
	expiresAt time.Time
}

// QuotaCache is an in-memory per-account cache of classified quota results.
// Entries are replaced whole; readers see either the prior entry or the new
// one, never a mix.
type QuotaCache struct {
	mu         sync.RWMutex
	entries    map[string]quotaCacheEntry
	successTTL time.Duration
	errorTTL   time.Duration
	clock      TimeSource
}

// NewQuotaCache creates a quota cache with the given configuration
func NewQuotaCache(config CacheConfig) *QuotaCache {
	if config.SuccessTTL <= 0 {
		config.SuccessTTL = DefaultSuccessTTL
	}
	if config.ErrorTTL <= 0 {
		config.ErrorTTL = DefaultErrorTTL
	}
	if config.Clock == nil {
		config.Clock = SystemClock()
	}
	return &QuotaCache{
		entries:    make(map[string]quotaCacheEntry),
		successTTL: config.SuccessTTL,
		errorTTL:   config.ErrorTTL,
		clock:      config.Clock,
	}
}

// Get returns a copy of the non-expired entry for accountID, marked Cached
func (c *QuotaCache) Get(accountID string) (*QuotaResult, bool) {
	c.mu.RLock()
	entry, ok := c.entries[accountID]
	c.mu.RUnlock()
	if !ok || !c.clock.Now().Before(entry.expiresAt) {
		return nil, false
	}
	out := entry.result.Clone()
	out.Cached = true
	return out, true
}

// Put stores a copy of result under its account id, choosing the TTL from
// the result kind
func (c *QuotaCache) Put(result *QuotaResult) {
	if result == nil || strings.TrimSpace(result.AccountID) == "" {
		return
	}
	ttl := c.successTTL
	if result.Kind == KindError {
		ttl = c.errorTTL
	}
	entry := quotaCacheEntry{
		result:    *result.Clone(),
		expiresAt: c.clock.Now().Add(ttl),
	}
	c.mu.Lock()
	c.entries[result.AccountID] = entry
	c.mu.Unlock()
}

// Invalidate drops the entry for accountID, if any
func (c *QuotaCache) Invalidate(accountID string) {
	accountID = strings.TrimSpace(accountID)
	if accountID == "" {
		return
	}
	c.mu.Lock()
	delete(c.entries, accountID)
	c.mu.Unlock()
}

// Purge removes expired entries and returns how many were dropped
func (c *QuotaCache) Purge() int {
	now := c.clock.Now()
	c.mu.Lock()
	defer c.mu.Unlock()
	removed := 0
	for id, entry := range c.entries {
		if !now.Before(entry.expiresAt) {
			delete(c.entries, id)
			removed++
		}
	}
	return removed
}

// Len returns the number of entries, expired or not
func (c *QuotaCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
