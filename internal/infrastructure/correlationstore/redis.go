// Package correlationstore is the Redis-backed Correlation Store: a flat,
// TTL-less key/value layer satisfying the registry.Store port.
package correlationstore

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/careerdocs/pipeline/internal/apperrors"
)

// Store wraps a go-redis client as a registry.Store.
type Store struct {
	client redis.UniversalClient
}

// New creates a Store backed by client.
func New(client redis.UniversalClient) *Store {
	return &Store{client: client}
}

// SetNX writes value under key only if key is currently absent, with no
// expiration: entries live until explicitly released.
func (s *Store) SetNX(ctx context.Context, key string, value []byte) (bool, error) {
	ok, err := s.client.SetNX(ctx, key, value, 0).Result()
	if err != nil {
		return false, fmt.Errorf("redis SETNX %s: %w", key, err)
	}
	return ok, nil
}

// Get reads the value stored under key, returning apperrors.ErrNotFound if
// absent.
func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	val, err := s.client.Get(ctx, key).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("redis GET %s: %w", key, err)
	}
	return val, nil
}

// Del removes key. Deleting an absent key is not an error.
func (s *Store) Del(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("redis DEL %s: %w", key, err)
	}
	return nil
}
