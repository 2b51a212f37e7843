package httpapi

import (
	"context"
	"fmt"

	"creative_gateway/internal/auth"
	"creative_gateway/internal/models"
	"creative_gateway/internal/storage"
	"creative_gateway/internal/utils"
)

// DatabaseIdentityStore implements auth.IdentityStore using the database
// repository, which caches hot keys in an LRU.
type DatabaseIdentityStore struct {
	repo *storage.IdentityRepository
}

// NewDatabaseIdentityStore creates a new database-backed identity store
func NewDatabaseIdentityStore(repo *storage.IdentityRepository) *DatabaseIdentityStore {
	return &DatabaseIdentityStore{
		repo: repo,
	}
}

// Lookup finds an identity by its plaintext API key
func (s *DatabaseIdentityStore) Lookup(ctx context.Context, plaintextKey string) (*models.Identity, error) {
	hashedKey := utils.HashString(plaintextKey)

	identity, err := s.repo.GetByHash(ctx, hashedKey)
	if err != nil {
		if err == storage.ErrIdentityNotFound {
			return nil, auth.ErrKeyNotFound
		}
		return nil, fmt.Errorf("failed to lookup identity: %w", err)
	}

	return identity, nil
}
