// Package consumer implements the Response Consumer & Assembler: the
// component that turns a career_docs_response_queue message back into
// either an assembled application per job, or a restored/failed batch.
package consumer

import (
	"context"
	"time"

	"github.com/careerdocs/pipeline/internal/core"
)

// Registry is the Correlation Registry surface the consumer needs: resolve
// a correlation id back to the job it was minted for, and release it once
// the outcome for that id has been durably recorded.
type Registry interface {
	Lookup(ctx context.Context, correlationID string) (core.Job, error)
	Release(ctx context.Context, correlationID string) error
}

// Repository is the persistence port the consumer needs against the pending
// batch and assembled-application collections.
type Repository interface {
	// UpsertApplication writes app under
	// assembled_applications[userID].content[correlationID], creating the
	// user document if absent. Idempotent: redelivery of the same
	// correlation id overwrites with the same content.
	UpsertApplication(ctx context.Context, userID int64, correlationID string, app core.AssembledApplication) error

	// RetireBatch deletes the pending batch document: every job in it has
	// an outcome recorded. Deleting an already-retired batch (duplicate
	// delivery) is not an error.
	RetireBatch(ctx context.Context, batchID string) error

	// RestoreOrMarkFailed is the failure-path counterpart to a claim: if
	// the batch's retries_left (as last recorded at claim time) is still
	// positive, sent is reset to false so a future refill cycle reclaims
	// it; otherwise the batch is marked PERMANENTLY_FAILED as of failedAt.
	// The decision is made by the implementation against current stored
	// state, not by the caller. Calling it again for a redelivered failure
	// outcome leaves a failed batch failed and a restored batch restored; it
	// does not check whether the batch has been claimed again in between.
	RestoreOrMarkFailed(ctx context.Context, batchID string, failedAt time.Time) error
}

// RefillTrigger lets the consumer nudge the Refill Loop after freeing up
// inflight capacity, rather than waiting for the next timer tick.
type RefillTrigger interface {
	TriggerRefill()
}
