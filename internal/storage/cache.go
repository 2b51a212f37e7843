package storage

import (
	"container/list"
	"sync"
	"time"

	"creative_gateway/internal/models"
)

type cacheEntry struct {
	keyHash   string
	identity  *models.Identity
	expiresAt time.Time
}

// IdentityCache is a thread-safe LRU cache with TTL, keyed by API key hash.
// It keeps the auth middleware off the database on the hot path.
type IdentityCache struct {
	mu           sync.RWMutex
	capacity     int
	ttl          time.Duration
	items        map[string]*list.Element
	evictionList *list.List
}

// NewIdentityCache creates a new identity cache
func NewIdentityCache(capacity int, ttl time.Duration) *IdentityCache {
	return &IdentityCache{
		capacity:     capacity,
		ttl:          ttl,
		items:        make(map[string]*list.Element, capacity),
		evictionList: list.New(),
	}
}

// Get retrieves a cached identity by key hash
func (c *IdentityCache) Get(keyHash string) (*models.Identity, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, found := c.items[keyHash]; found {
		entry := elem.Value.(*cacheEntry)

		if time.Now().After(entry.expiresAt) {
			c.removeElement(elem)
			return nil, false
		}

		c.evictionList.MoveToFront(elem)
		return entry.identity, true
	}

	return nil, false
}

// Set caches an identity under its key hash
func (c *IdentityCache) Set(keyHash string, identity *models.Identity) {
	c.mu.Lock()
	defer c.mu.Unlock()

	expiresAt := time.Now().Add(c.ttl)

	if elem, found := c.items[keyHash]; found {
		c.evictionList.MoveToFront(elem)
		entry := elem.Value.(*cacheEntry)
		entry.identity = identity
		entry.expiresAt = expiresAt
		return
	}

	elem := c.evictionList.PushFront(&cacheEntry{
		keyHash:   keyHash,
		identity:  identity,
		expiresAt: expiresAt,
	})
	c.items[keyHash] = elem

	if c.evictionList.Len() > c.capacity {
		c.removeOldest()
	}
}

// Delete removes a cached identity. Used on key revocation.
func (c *IdentityCache) Delete(keyHash string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, found := c.items[keyHash]; found {
		c.removeElement(elem)
	}
}

// Clear removes all cached identities
func (c *IdentityCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.items = make(map[string]*list.Element, c.capacity)
	c.evictionList.Init()
}

// Len returns the current number of cached identities
func (c *IdentityCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.evictionList.Len()
}

func (c *IdentityCache) removeOldest() {
	elem := c.evictionList.Back()
	if elem != nil {
		c.removeElement(elem)
	}
}

func (c *IdentityCache) removeElement(elem *list.Element) {
	c.evictionList.Remove(elem)
	entry := elem.Value.(*cacheEntry)
	delete(c.items, entry.keyHash)
}

// CleanupExpired removes all expired entries (called periodically)
func (c *IdentityCache) CleanupExpired() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	removed := 0

	var next *list.Element
	for elem := c.evictionList.Back(); elem != nil; elem = next {
		next = elem.Prev()
		entry := elem.Value.(*cacheEntry)

		if now.After(entry.expiresAt) {
			c.removeElement(elem)
			removed++
		}
	}

	return removed
}
