// Package registry implements the Correlation Registry: a write-through
// layer over the Correlation Store that mints globally-unique correlation
// ids, persists the immutable job snapshot needed to reconstruct a response,
// and releases ids on terminal outcomes only.
package registry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/careerdocs/pipeline/internal/apperrors"
	"github.com/careerdocs/pipeline/internal/core"
)

// maxMintAttempts bounds the (negligible-probability) UUID collision retry
// loop in Mint.
const maxMintAttempts = 5

const keyPrefix = "corr:"

func correlationKey(id string) string {
	return keyPrefix + id
}

// Registry mints, looks up, and releases correlation ids.
type Registry struct {
	store Store
}

// New creates a Registry backed by the given Correlation Store.
func New(store Store) *Registry {
	return &Registry{store: store}
}

// Mint generates a fresh UUIDv4, verifies it is absent from the store,
// writes the job snapshot under that key, and returns the id. On store
// unavailability the caller is expected to fail the whole admission attempt
// and restore the batch. A Correlation Store failure is wrapped with
// apperrors.Transient; a snapshot-encoding, id-generation, or
// collision-exhaustion error is returned unwrapped.
func (r *Registry) Mint(ctx context.Context, job core.Job) (string, error) {
	snapshot, err := json.Marshal(job)
	if err != nil {
		return "", fmt.Errorf("marshal job snapshot: %w", err)
	}

	for attempt := 0; attempt < maxMintAttempts; attempt++ {
		id, err := uuid.NewRandom()
		if err != nil {
			return "", fmt.Errorf("generate correlation id: %w", err)
		}

		written, err := r.store.SetNX(ctx, correlationKey(id.String()), snapshot)
		if err != nil {
			return "", apperrors.Transient(fmt.Errorf("mint correlation id: %w", err))
		}
		if written {
			return id.String(), nil
		}

		slog.WarnContext(ctx, "correlation id collision on mint, retrying",
			"correlation_id", id.String(), "attempt", attempt+1)
	}

	return "", fmt.Errorf("mint correlation id: exhausted %d attempts on collisions", maxMintAttempts)
}

// Lookup reads the job snapshot minted under correlationID. A missing id is
// an unrecoverable-input error for that specific application: the caller
// should record it and continue with the rest of the batch, not fail the
// whole outcome.
func (r *Registry) Lookup(ctx context.Context, correlationID string) (core.Job, error) {
	raw, err := r.store.Get(ctx, correlationKey(correlationID))
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return core.Job{}, apperrors.CorrelationMissing{CorrelationID: correlationID}
		}
		return core.Job{}, apperrors.Transient(fmt.Errorf("lookup correlation id %s: %w", correlationID, err))
	}

	var job core.Job
	if err := json.Unmarshal(raw, &job); err != nil {
		return core.Job{}, fmt.Errorf("unmarshal job snapshot for %s: %w", correlationID, err)
	}
	return job, nil
}

// Release deletes correlationID from the store. Must only be called on a
// terminal outcome (success, permanent-failure, or cancel): releasing
// early risks a fresh Mint reissuing a still-live id. A duplicate Release
// (e.g. on a redelivered outcome message) is a no-op.
func (r *Registry) Release(ctx context.Context, correlationID string) error {
	if err := r.store.Del(ctx, correlationKey(correlationID)); err != nil {
		return apperrors.Transient(fmt.Errorf("release correlation id %s: %w", correlationID, err))
	}
	return nil
}
