package storage

import (
	"context"
	"database/sql"
	"fmt"

	"creative_gateway/internal/models"
)

// IdentityRepository resolves hashed API keys into caller identities,
// with caching on the hot path
type IdentityRepository struct {
	db    *DB
	cache *IdentityCache
}

// NewIdentityRepository creates a new identity repository
func NewIdentityRepository(db *DB) *IdentityRepository {
	return &IdentityRepository{
		db:    db,
		cache: db.GetIdentityCache(),
	}
}

// GetByHash retrieves an identity by its key hash (with caching)
func (r *IdentityRepository) GetByHash(ctx context.Context, keyHash string) (*models.Identity, error) {
	if cached, found := r.cache.Get(keyHash); found {
		return cached, nil
	}

	var identity models.Identity
	query := `
		SELECT id, key_hash, user_id, org_id, name, rate_limit, revoked, created_at
		FROM identities
		WHERE key_hash = $1 AND revoked = false
	`

	err := r.db.conn.GetContext(ctx, &identity, query, keyHash)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrIdentityNotFound
		}
		return nil, fmt.Errorf("failed to get identity: %w", err)
	}

	r.cache.Set(keyHash, &identity)
	return &identity, nil
}

// Invalidate drops a cached identity, forcing the next lookup to hit the
// database. Used when a key is revoked mid-flight.
func (r *IdentityRepository) Invalidate(keyHash string) {
	r.cache.Delete(keyHash)
}
