package models

import (
	"time"

	"github.com/google/uuid"
)

// Identity is the caller attribution resolved from an API key. The gateway
// does not do authorization beyond key validity; it only needs to know who
// to bill.
type Identity struct {
	ID        uuid.UUID `db:"id" json:"id"`
	KeyHash   string    `db:"key_hash" json:"-"`
	UserID    string    `db:"user_id" json:"user_id"`
	OrgID     string    `db:"org_id" json:"org_id"`
	Name      string    `db:"name" json:"name"`
	RateLimit int       `db:"rate_limit" json:"rate_limit"` // requests per minute, 0 = unlimited
	Revoked   bool      `db:"revoked" json:"revoked"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
