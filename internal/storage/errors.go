package storage

import "errors"

var (
	// ErrIdentityNotFound is returned when no identity matches an API key
	ErrIdentityNotFound = errors.New("identity not found")

	// ErrUsageRecordNotFound is returned when a usage record is not found
	ErrUsageRecordNotFound = errors.New("usage record not found")
)
