package storage

import (
	"fmt"
	"testing"
	"time"

	"creative_gateway/internal/models"
)

func cachedIdentity(userID string) *models.Identity {
	return &models.Identity{UserID: userID, OrgID: "org-1"}
}

func TestIdentityCache_SetAndGet(t *testing.T) {
	cache := NewIdentityCache(10, time.Minute)

	cache.Set("hash-a", cachedIdentity("user-a"))

	got, found := cache.Get("hash-a")
	if !found {
		t.Fatal("expected cache hit")
	}
	if got.UserID != "user-a" {
		t.Errorf("expected user-a, got %s", got.UserID)
	}

	if _, found := cache.Get("hash-missing"); found {
		t.Error("expected cache miss for unknown hash")
	}
}

func TestIdentityCache_TTLExpiry(t *testing.T) {
	cache := NewIdentityCache(10, 20*time.Millisecond)

	cache.Set("hash-a", cachedIdentity("user-a"))
	time.Sleep(40 * time.Millisecond)

	if _, found := cache.Get("hash-a"); found {
		t.Error("expected entry to expire")
	}
	if cache.Len() != 0 {
		t.Errorf("expired entry should be evicted on read, len=%d", cache.Len())
	}
}

func TestIdentityCache_LRUEviction(t *testing.T) {
	cache := NewIdentityCache(2, time.Minute)

	cache.Set("hash-1", cachedIdentity("user-1"))
	cache.Set("hash-2", cachedIdentity("user-2"))

	// Touch hash-1 so hash-2 becomes the eviction candidate.
	cache.Get("hash-1")
	cache.Set("hash-3", cachedIdentity("user-3"))

	if _, found := cache.Get("hash-2"); found {
		t.Error("expected least recently used entry to be evicted")
	}
	if _, found := cache.Get("hash-1"); !found {
		t.Error("recently used entry should survive eviction")
	}
	if _, found := cache.Get("hash-3"); !found {
		t.Error("newest entry should be present")
	}
}

func TestIdentityCache_DeleteAndClear(t *testing.T) {
	cache := NewIdentityCache(10, time.Minute)

	cache.Set("hash-a", cachedIdentity("user-a"))
	cache.Delete("hash-a")
	if _, found := cache.Get("hash-a"); found {
		t.Error("deleted entry should be gone")
	}

	for i := 0; i < 5; i++ {
		cache.Set(fmt.Sprintf("hash-%d", i), cachedIdentity("user"))
	}
	cache.Clear()
	if cache.Len() != 0 {
		t.Errorf("expected empty cache after Clear, len=%d", cache.Len())
	}
}

func TestIdentityCache_CleanupExpired(t *testing.T) {
	cache := NewIdentityCache(10, 20*time.Millisecond)

	cache.Set("hash-1", cachedIdentity("user-1"))
	cache.Set("hash-2", cachedIdentity("user-2"))
	time.Sleep(40 * time.Millisecond)

	removed := cache.CleanupExpired()
	if removed != 2 {
		t.Errorf("expected 2 entries removed, got %d", removed)
	}
	if cache.Len() != 0 {
		t.Errorf("expected empty cache, len=%d", cache.Len())
	}
}
