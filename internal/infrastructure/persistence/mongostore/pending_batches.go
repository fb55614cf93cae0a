package mongostore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/careerdocs/pipeline/internal/apperrors"
	"github.com/careerdocs/pipeline/internal/core"
)

// ClaimOne atomically claims a single unsent, non-failed PendingBatch,
// satisfying admission.Repository.
func (s *Store) ClaimOne(ctx context.Context) (*core.PendingBatch, error) {
	filter := bson.M{
		"sent":   false,
		"status": bson.M{"$ne": core.BatchStatusFailed},
	}
	update := bson.M{
		"$set": bson.M{"sent": true},
		"$inc": bson.M{"retries_left": -1},
	}

	var batch core.PendingBatch
	err := s.pendingBatches.FindOneAndUpdate(ctx, filter, update, options.FindOneAndUpdate().SetReturnDocument(options.After)).Decode(&batch)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("claim pending batch: %w", err)
	}
	return &batch, nil
}

// Restore flips sent back to false on batch.ID and persists batch.Jobs,
// satisfying publisher.Repository. Persisting jobs alongside sent carries
// forward any correlation id minted during the failed attempt, so the next
// claim republishes with the same id instead of minting a fresh one. Used
// when the caller (the publisher, just after a failed publish attempt)
// already knows the batch's retry budget allows it.
func (s *Store) Restore(ctx context.Context, batch *core.PendingBatch) error {
	_, err := s.pendingBatches.UpdateByID(ctx, batch.ID, bson.M{
		"$set": bson.M{"sent": false, "jobs": batch.Jobs},
	})
	if err != nil {
		return fmt.Errorf("restore pending batch %s: %w", batch.ID, err)
	}
	return nil
}

// SaveJobs persists batch.Jobs without touching sent or retries_left,
// satisfying publisher.Repository. Called right after minting so a
// correlation id survives even a restore path (the consumer's
// RestoreOrMarkFailed) that never itself touches jobs.
func (s *Store) SaveJobs(ctx context.Context, batch *core.PendingBatch) error {
	_, err := s.pendingBatches.UpdateByID(ctx, batch.ID, bson.M{"$set": bson.M{"jobs": batch.Jobs}})
	if err != nil {
		return fmt.Errorf("save jobs for pending batch %s: %w", batch.ID, err)
	}
	return nil
}

// MarkFailed records batchID as PERMANENTLY_FAILED, satisfying
// publisher.Repository.
func (s *Store) MarkFailed(ctx context.Context, batchID string, failedAt time.Time) error {
	_, err := s.pendingBatches.UpdateByID(ctx, batchID, bson.M{
		"$set": bson.M{"status": core.BatchStatusFailed, "failed_at": failedAt},
	})
	if err != nil {
		return fmt.Errorf("mark pending batch %s failed: %w", batchID, err)
	}
	return nil
}

// RetireBatch deletes the pending batch document, satisfying
// consumer.Repository. Deleting an already-retired batch is not an error.
func (s *Store) RetireBatch(ctx context.Context, batchID string) error {
	_, err := s.pendingBatches.DeleteOne(ctx, bson.M{"_id": batchID})
	if err != nil {
		return fmt.Errorf("retire pending batch %s: %w", batchID, err)
	}
	return nil
}

// RestoreOrMarkFailed satisfies consumer.Repository: it decides, against
// the batch's currently stored retries_left, whether to restore it for
// another attempt or mark it permanently failed. On a redelivered failure
// outcome, a batch already marked failed is left unchanged (neither update
// matches it), and a batch with retries_left > 0 is matched again and has
// sent set to false again; that restore update does not check sent, so it
// also applies to a batch that has been claimed again in between.
func (s *Store) RestoreOrMarkFailed(ctx context.Context, batchID string, failedAt time.Time) error {
	restoreResult, err := s.pendingBatches.UpdateOne(ctx,
		bson.M{"_id": batchID, "retries_left": bson.M{"$gt": 0}},
		bson.M{"$set": bson.M{"sent": false}},
	)
	if err != nil {
		return fmt.Errorf("conditionally restore pending batch %s: %w", batchID, err)
	}
	if restoreResult.MatchedCount > 0 {
		return nil
	}

	if _, err := s.pendingBatches.UpdateOne(ctx,
		bson.M{"_id": batchID, "status": bson.M{"$ne": core.BatchStatusFailed}},
		bson.M{"$set": bson.M{"status": core.BatchStatusFailed, "failed_at": failedAt}},
	); err != nil {
		return fmt.Errorf("mark pending batch %s failed: %w", batchID, err)
	}
	return nil
}
