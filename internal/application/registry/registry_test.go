package registry

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/careerdocs/pipeline/internal/apperrors"
	"github.com/careerdocs/pipeline/internal/core"
)

// memStore is a minimal in-memory Store used to exercise Registry without a
// live Redis instance.
type memStore struct {
	mu   sync.Mutex
	data map[string][]byte
}

func newMemStore() *memStore {
	return &memStore{data: make(map[string][]byte)}
}

func (m *memStore) SetNX(ctx context.Context, key string, value []byte) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.data[key]; exists {
		return false, nil
	}
	m.data[key] = value
	return true, nil
}

func (m *memStore) Get(ctx context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	return v, nil
}

func (m *memStore) Del(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

type failingStore struct{}

func (failingStore) SetNX(ctx context.Context, key string, value []byte) (bool, error) {
	return false, errors.New("connection refused")
}
func (failingStore) Get(ctx context.Context, key string) ([]byte, error) {
	return nil, errors.New("connection refused")
}
func (failingStore) Del(ctx context.Context, key string) error {
	return errors.New("connection refused")
}

func TestRegistry_MintLookupRelease_RoundTrip(t *testing.T) {
	reg := New(newMemStore())
	job := core.Job{Portal: "workday", Title: "Platform Engineer", CompanyName: "Acme"}

	id, err := reg.Mint(context.Background(), job)
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	got, err := reg.Lookup(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, job.Title, got.Title)
	assert.Equal(t, job.Portal, got.Portal)

	require.NoError(t, reg.Release(context.Background(), id))

	_, err = reg.Lookup(context.Background(), id)
	var missing apperrors.CorrelationMissing
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, id, missing.CorrelationID)
}

func TestRegistry_Lookup_MissingID(t *testing.T) {
	reg := New(newMemStore())

	_, err := reg.Lookup(context.Background(), "never-minted")

	var missing apperrors.CorrelationMissing
	require.ErrorAs(t, err, &missing)
}

func TestRegistry_Release_DuplicateIsNoop(t *testing.T) {
	reg := New(newMemStore())
	job := core.Job{Portal: "lever", Title: "Backend Engineer"}

	id, err := reg.Mint(context.Background(), job)
	require.NoError(t, err)
	require.NoError(t, reg.Release(context.Background(), id))

	// Releasing again must not error, matching the duplicate-delivery
	// idempotency requirement on the consumer side.
	assert.NoError(t, reg.Release(context.Background(), id))
}

func TestRegistry_Mint_StoreUnavailableIsTransient(t *testing.T) {
	reg := New(failingStore{})

	_, err := reg.Mint(context.Background(), core.Job{Portal: "lever"})

	require.Error(t, err)
	assert.True(t, apperrors.IsTransient(err))
}

func TestRegistry_Lookup_StoreUnavailableIsTransient(t *testing.T) {
	reg := New(failingStore{})

	_, err := reg.Lookup(context.Background(), "any-id")

	require.Error(t, err)
	assert.True(t, apperrors.IsTransient(err))
}
