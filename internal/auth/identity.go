package auth

import (
	"context"
	"errors"

	"creative_gateway/internal/models"
	"creative_gateway/internal/utils"
)

// ErrKeyNotFound is returned when a plaintext key resolves to no identity.
var ErrKeyNotFound = errors.New("API key not found")

// IdentityStore resolves plaintext API keys into caller identities.
// Authorization beyond key validity happens upstream; the gateway only
// needs attribution for the usage ledger and per-key rate limits.
type IdentityStore interface {
	Lookup(ctx context.Context, plaintextKey string) (*models.Identity, error)
}

// InMemoryIdentityStore is a placeholder store useful for early local testing.
type InMemoryIdentityStore struct {
	// map of hash(API key) -> identity
	identities map[string]*models.Identity
}

func NewInMemoryIdentityStore() *InMemoryIdentityStore {
	s := &InMemoryIdentityStore{
		identities: make(map[string]*models.Identity),
	}

	// Seed with a demo key: "demo-key"
	hash := utils.HashString("demo-key")
	s.identities[hash] = &models.Identity{
		KeyHash: hash,
		UserID:  "demo-user",
		OrgID:   "demo-org",
		Name:    "Demo Key",
	}

	return s
}

// Add registers an identity under its plaintext key.
func (s *InMemoryIdentityStore) Add(plaintextKey string, identity *models.Identity) {
	identity.KeyHash = utils.HashString(plaintextKey)
	s.identities[identity.KeyHash] = identity
}

func (s *InMemoryIdentityStore) Lookup(ctx context.Context, plaintextKey string) (*models.Identity, error) {
	hash := utils.HashString(plaintextKey)
	identity, ok := s.identities[hash]
	if !ok {
		return nil, ErrKeyNotFound
	}
	return identity, nil
}
