package publisher

import (
	"context"
	"time"

	"github.com/careerdocs/pipeline/internal/core"
)

// Repository is the persistence port the publisher needs once a batch has
// already been claimed by the Batch Admission Controller: a way to put it
// back into play on a publish failure.
type Repository interface {
	// Restore flips sent back to false on batch.ID so a later refill cycle
	// can reclaim it, and persists batch.Jobs so any correlation ids minted
	// on this attempt survive to the next one: a retry republishes with the
	// SAME correlation id, not a fresh one. Must only be called when
	// batch.RetriesLeft (the value already decremented by the claim) is
	// still > 0.
	Restore(ctx context.Context, batch *core.PendingBatch) error

	// SaveJobs persists batch.Jobs back onto the stored pending_batches
	// document without touching sent or retries_left. Called right after
	// minting, before the batch is handed to CareerDocs: the batch stays
	// sent=true in storage while a response is outstanding, and if that
	// response later reports failure, the consumer's RestoreOrMarkFailed
	// flips sent back to false without itself knowing about correlation
	// ids. This call is what makes those ids still be there on the batch's
	// next claim, so a retry reuses the same id instead of minting a fresh
	// one.
	SaveJobs(ctx context.Context, batch *core.PendingBatch) error

	// MarkFailed records batchID as PERMANENTLY_FAILED as of failedAt. The
	// batch is never claimed again.
	MarkFailed(ctx context.Context, batchID string, failedAt time.Time) error

	// AppendAppIDs pushes correlationIDs onto the app_ids list of the
	// pdf_resumes document identified by cvID. Auxiliary cross-reference
	// only, called best-effort: the publisher logs and swallows any error
	// here rather than aborting the publish.
	AppendAppIDs(ctx context.Context, cvID string, correlationIDs []string) error
}

// Registry is the subset of the Correlation Registry the publisher needs:
// minting one id per job before the batch is described to CareerDocs.
type Registry interface {
	Mint(ctx context.Context, job core.Job) (string, error)
}
