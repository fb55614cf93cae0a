// Package publisher implements the CareerDocs Publisher: the step that
// takes a batch the Batch Admission Controller just claimed, mints a
// correlation id for each of its jobs, and hands the whole batch to
// CareerDocs over career_docs_queue.
package publisher

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/careerdocs/pipeline/internal/core"
)

// RequestQueue is the Message Bus queue CareerDocs consumes batch requests
// from.
const RequestQueue = "career_docs_queue"

// requestJob is one job within a request message. It carries the
// correlation id the registry just minted so CareerDocs can echo it back on
// the response queue unchanged, and the batch's style propagated onto every
// job per the wire contract.
type requestJob struct {
	core.Job
	Style *string `json:"style,omitempty"`
}

// request is the wire shape published to RequestQueue.
type request struct {
	UserID  int64        `json:"user_id"`
	BatchID string       `json:"mongo_id"`
	Jobs    []requestJob `json:"jobs"`
	CVID    *string      `json:"cv_id,omitempty"`
}

// Publisher mints correlation ids and hands a claimed batch to CareerDocs.
type Publisher struct {
	registry Registry
	repo     Repository
	bus      Bus
}

// New creates a Publisher.
func New(registry Registry, repo Repository, bus Bus) *Publisher {
	return &Publisher{registry: registry, repo: repo, bus: bus}
}

// Publish mints a correlation id for every job in batch that doesn't already
// carry one from an earlier attempt, persists those ids back onto the
// stored batch, builds the request message, and publishes it. On any
// failure it puts the batch back into play (Restore) if its retry budget
// allows, or marks it PERMANENTLY_FAILED otherwise, and returns the
// original error to the caller for logging.
//
// A job that already has a CorrelationID (because a prior attempt minted
// one and it was persisted via SaveJobs or Restore) is republished with
// that SAME id rather than minting a new one: a retried batch must reuse its
// original correlation id, whether the retry was triggered by a
// publish-level failure or by CareerDocs later reporting a failed outcome
// for an already-published batch, rather than leak a fresh Correlation
// Store entry on every attempt.
func (p *Publisher) Publish(ctx context.Context, batch *core.PendingBatch) error {
	jobs := make([]requestJob, len(batch.Jobs))
	mintedIDs := make([]string, 0, len(batch.Jobs))
	for i, job := range batch.Jobs {
		id := job.CorrelationID
		if id == "" {
			var err error
			id, err = p.registry.Mint(ctx, job)
			if err != nil {
				p.settle(ctx, batch, err)
				return fmt.Errorf("mint correlation id for job %d of batch %s: %w", i, batch.ID, err)
			}
			mintedIDs = append(mintedIDs, id)
		}
		job.CorrelationID = id
		jobs[i] = requestJob{Job: job, Style: batch.Style}
		batch.Jobs[i].CorrelationID = id
	}

	if len(mintedIDs) > 0 {
		if err := p.repo.SaveJobs(ctx, batch); err != nil {
			p.settle(ctx, batch, err)
			return fmt.Errorf("save correlation ids for batch %s: %w", batch.ID, err)
		}
	}

	if batch.CVID != nil && len(mintedIDs) > 0 {
		p.appendAppIDs(ctx, *batch.CVID, mintedIDs)
	}

	msg := request{
		UserID:  batch.UserID,
		BatchID: batch.ID,
		Jobs:    jobs,
		CVID:    batch.CVID,
	}

	body, err := json.Marshal(msg)
	if err != nil {
		p.settle(ctx, batch, err)
		return fmt.Errorf("marshal request for batch %s: %w", batch.ID, err)
	}

	if err := p.bus.Publish(ctx, RequestQueue, body); err != nil {
		p.settle(ctx, batch, err)
		return fmt.Errorf("publish batch %s: %w", batch.ID, err)
	}

	slog.InfoContext(ctx, "published batch to careerdocs", "batch_id", batch.ID, "user_id", batch.UserID, "jobs", len(jobs))
	return nil
}

// settle puts batch back into play or marks it permanently failed, logging
// either outcome. It never returns an error itself: a failure here must not
// mask the original publish failure, and must not crash the Refill Loop.
func (p *Publisher) settle(ctx context.Context, batch *core.PendingBatch, cause error) {
	if batch.RetriesLeft > 0 {
		if err := p.repo.Restore(ctx, batch); err != nil {
			slog.ErrorContext(ctx, "failed to restore batch after publish failure",
				"batch_id", batch.ID, "cause", cause, "restore_err", err)
			return
		}
		slog.WarnContext(ctx, "restored batch after publish failure", "batch_id", batch.ID, "retries_left", batch.RetriesLeft, "cause", cause)
		return
	}

	if err := p.repo.MarkFailed(ctx, batch.ID, time.Now()); err != nil {
		slog.ErrorContext(ctx, "failed to mark batch permanently failed after publish failure",
			"batch_id", batch.ID, "cause", cause, "mark_failed_err", err)
		return
	}
	slog.ErrorContext(ctx, "batch permanently failed: retry budget exhausted on publish",
		"batch_id", batch.ID, "cause", cause)
}

// appendAppIDs cross-references the freshly minted correlation ids against
// the batch's CV artifact, if any. This is an auxiliary index, not source of
// truth: a failure here is logged and swallowed rather than aborting or
// retrying the publish.
func (p *Publisher) appendAppIDs(ctx context.Context, cvID string, correlationIDs []string) {
	if err := p.repo.AppendAppIDs(ctx, cvID, correlationIDs); err != nil {
		slog.WarnContext(ctx, "failed to append app ids to cv artifact",
			"cv_id", cvID, "correlation_ids", correlationIDs, "err", err)
	}
}
