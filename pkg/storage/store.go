// Package storage defines the key-value backend behind the account and
// portfolio repositories. Records are JSON blobs under fixed keys with
// last-write-wins semantics; there is no schema versioning or migration.
package storage

import (
	"context"
	"errors"
)

// ErrNotFound is returned by Load when no value exists under the key.
var ErrNotFound = errors.New("storage: key not found")

// Store is the contract every backend implements. Repositories are the only
// callers; nothing else does ad hoc key lookups.
type Store interface {
	Load(ctx context.Context, key string) ([]byte, error)
	Save(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}
