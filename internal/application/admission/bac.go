// Package admission implements the Batch Admission Controller: the single
// operation that takes one PendingBatch out of contention so it can be
// published to CareerDocs exactly once per attempt.
package admission

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/careerdocs/pipeline/internal/apperrors"
	"github.com/careerdocs/pipeline/internal/core"
)

// Controller claims PendingBatch documents for the Refill Loop to publish.
type Controller struct {
	repo Repository
}

// New creates a Controller backed by repo.
func New(repo Repository) *Controller {
	return &Controller{repo: repo}
}

// ClaimOne finds and atomically claims a single unsent batch, or returns
// (nil, nil) if none is currently admissible.
//
// retries_left is decremented unconditionally on claim, including when it is
// already zero going in: the claim still succeeds, and the next failure
// outcome for this batch will observe retries_left <= 0 and transition it
// straight to PERMANENTLY_FAILED rather than restoring it for another
// attempt. Refusing to claim at retries_left == 0 would strand the batch
// forever in an unsent, unfailed limbo with no path to a terminal state.
func (c *Controller) ClaimOne(ctx context.Context) (*core.PendingBatch, error) {
	batch, err := c.repo.ClaimOne(ctx)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, nil
		}
		return nil, apperrors.Transient(fmt.Errorf("claim batch: %w", err))
	}

	slog.InfoContext(ctx, "claimed pending batch",
		"batch_id", batch.ID, "user_id", batch.UserID, "retries_left", batch.RetriesLeft, "jobs", len(batch.Jobs))

	return batch, nil
}
