package admission

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/careerdocs/pipeline/internal/apperrors"
	"github.com/careerdocs/pipeline/internal/core"
)

type mockRepository struct {
	claimOneFn func(ctx context.Context) (*core.PendingBatch, error)
}

func (m *mockRepository) ClaimOne(ctx context.Context) (*core.PendingBatch, error) {
	return m.claimOneFn(ctx)
}

func TestController_ClaimOne_Success(t *testing.T) {
	want := &core.PendingBatch{ID: "batch-1", UserID: 42, RetriesLeft: 2}
	repo := &mockRepository{
		claimOneFn: func(ctx context.Context) (*core.PendingBatch, error) {
			return want, nil
		},
	}

	got, err := New(repo).ClaimOne(context.Background())

	require.NoError(t, err)
	assert.Same(t, want, got)
}

func TestController_ClaimOne_NoneAdmissible(t *testing.T) {
	repo := &mockRepository{
		claimOneFn: func(ctx context.Context) (*core.PendingBatch, error) {
			return nil, apperrors.ErrNotFound
		},
	}

	got, err := New(repo).ClaimOne(context.Background())

	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestController_ClaimOne_NoneAdmissible_Wrapped(t *testing.T) {
	repo := &mockRepository{
		claimOneFn: func(ctx context.Context) (*core.PendingBatch, error) {
			return nil, fmt.Errorf("mongo: %w", apperrors.ErrNotFound)
		},
	}

	got, err := New(repo).ClaimOne(context.Background())

	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestController_ClaimOne_InfraErrorIsTransient(t *testing.T) {
	repo := &mockRepository{
		claimOneFn: func(ctx context.Context) (*core.PendingBatch, error) {
			return nil, errors.New("connection reset")
		},
	}

	_, err := New(repo).ClaimOne(context.Background())

	require.Error(t, err)
	assert.True(t, apperrors.IsTransient(err))
}

func TestController_ClaimOne_ClaimsEvenAtZeroRetriesLeft(t *testing.T) {
	want := &core.PendingBatch{ID: "batch-exhausted", UserID: 7, RetriesLeft: 0}
	repo := &mockRepository{
		claimOneFn: func(ctx context.Context) (*core.PendingBatch, error) {
			return want, nil
		},
	}

	got, err := New(repo).ClaimOne(context.Background())

	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, 0, got.RetriesLeft)
}
