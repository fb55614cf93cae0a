package dispatch

import (
	"context"
	"time"

	"github.com/careerdocs/pipeline/internal/core"
)

// Repository is the persistence port the Dispatch Publisher needs against
// the assembled_applications collection.
type Repository interface {
	// GetUnsentApplications returns the full set of assembled applications
	// recorded for userID that have not yet been sent.
	GetUnsentApplications(ctx context.Context, userID int64) ([]core.AssembledApplication, error)

	// GetApplications returns the subset of userID's assembled
	// applications whose id is in ids, regardless of sent state. The
	// caller (SubmitSelected) is responsible for filtering to unsent
	// applications before dispatching.
	GetApplications(ctx context.Context, userID int64, ids []string) ([]core.AssembledApplication, error)

	// MarkSent flips sent=true and records sentAt as the dispatch
	// timestamp for the given application id, called only after a
	// successful publish to its target applier queue.
	MarkSent(ctx context.Context, userID int64, correlationID string, sentAt time.Time) error
}

// Bus is the Message Bus port used to hand an approved application to its
// applier queue.
type Bus interface {
	Publish(ctx context.Context, queue string, body []byte) error
}
