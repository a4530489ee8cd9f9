package application

import (
	"sort"
	"strings"
	"sync"
	"time"
)

// decisionCache remembers recent regeneration decisions so repeated
// preference saves do not re-read and re-validate an unchanged window. A
// replace always invalidates the group's entry.
type decisionCache struct {
	mu         sync.RWMutex
	now        func() time.Time
	ttl        time.Duration
	maxEntries int
	entries    map[string]decisionCacheEntry
}

type decisionCacheEntry struct {
	decision  Decision
	expiresAt time.Time
}

func newDecisionCache(ttl time.Duration, maxEntries int, now func() time.Time) *decisionCache {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	if maxEntries <= 0 {
		maxEntries = 128
	}
	if now == nil {
		now = time.Now
	}
	return &decisionCache{
		now:        now,
		ttl:        ttl,
		maxEntries: maxEntries,
		entries:    make(map[string]decisionCacheEntry),
	}
}

func (c *decisionCache) Get(key string) (Decision, bool) {
	if c == nil {
		return "", false
	}
	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok {
		return "", false
	}
	if c.now().After(entry.expiresAt) {
		c.mu.Lock()
		delete(c.entries, key)
		c.mu.Unlock()
		return "", false
	}
	return entry.decision, true
}

func (c *decisionCache) Store(key string, decision Decision) {
	if c == nil {
		return
	}
	expiry := c.now().Add(c.ttl)

	c.mu.Lock()
	defer c.mu.Unlock()

	c.cleanupLocked()
	if len(c.entries) >= c.maxEntries {
		c.evictOneLocked()
	}
	c.entries[key] = decisionCacheEntry{decision: decision, expiresAt: expiry}
}

// InvalidateGroup drops every cached decision for the group.
func (c *decisionCache) InvalidateGroup(groupID string) {
	if c == nil {
		return
	}
	prefix := groupID + "|"
	c.mu.Lock()
	for key := range c.entries {
		if strings.HasPrefix(key, prefix) {
			delete(c.entries, key)
		}
	}
	c.mu.Unlock()
}

func (c *decisionCache) cleanupLocked() {
	now := c.now()
	for key, entry := range c.entries {
		if now.After(entry.expiresAt) {
			delete(c.entries, key)
		}
	}
}

func (c *decisionCache) evictOneLocked() {
	for key := range c.entries {
		delete(c.entries, key)
		return
	}
}

// buildDecisionCacheKey derives the cache key from the group and its
// eligible set: a preference change alters the set and so misses the cache.
func buildDecisionCacheKey(groupID string, eligible []string, day time.Time) string {
	categories := make([]string, len(eligible))
	copy(categories, eligible)
	sort.Strings(categories)

	builder := strings.Builder{}
	builder.WriteString(groupID)
	builder.WriteString("|")
	builder.WriteString(strings.Join(categories, ","))
	builder.WriteString("|")
	builder.WriteString(day.UTC().Format(time.DateOnly))
	return builder.String()
}
