package registry

import "context"

// Store is the Correlation Store port this package needs: a flat key/value
// store over JSON blobs with no TTL (entries are released explicitly, never
// expired). Owned by this package; the infrastructure adapter (Redis)
// satisfies it, not the other way around.
type Store interface {
	// SetNX writes value under key only if key is currently absent.
	// Returns true if the write happened, false if key already existed.
	SetNX(ctx context.Context, key string, value []byte) (bool, error)

	// Get reads the value stored under key. Returns apperrors.ErrNotFound
	// (wrapped) if key is absent.
	Get(ctx context.Context, key string) ([]byte, error)

	// Del removes key. Deleting an absent key is not an error.
	Del(ctx context.Context, key string) error
}
