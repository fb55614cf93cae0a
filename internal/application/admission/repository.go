package admission

import (
	"context"

	"github.com/careerdocs/pipeline/internal/core"
)

// Repository is the narrow persistence port the Batch Admission Controller
// needs. Owned here, not by the storage package: the component that uses a
// dependency defines the shape it needs.
type Repository interface {
	// ClaimOne atomically finds a single PendingBatch with sent=false,
	// marks it sent=true, and decrements its retries_left counter, in one
	// find-and-modify. Returns apperrors.ErrNotFound (wrapped) if no
	// unsent batch exists. Must never return a batch it has not also
	// flipped sent=true for; two concurrent callers must never observe
	// the same batch.
	ClaimOne(ctx context.Context) (*core.PendingBatch, error)
}
