package consumer

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/careerdocs/pipeline/internal/apperrors"
	"github.com/careerdocs/pipeline/internal/core"
)

// Consumer processes career_docs_response_queue messages.
type Consumer struct {
	registry Registry
	repo     Repository
	refill   RefillTrigger

	tracer         trace.Tracer
	outcomeCounter metric.Int64Counter
}

// New creates a Consumer. refill may be nil if no refill nudge is wired
// (the timer trigger alone still runs).
func New(registry Registry, repo Repository, refill RefillTrigger) *Consumer {
	outcomeCounter, err := otel.Meter("consumer").Int64Counter("careerdocs.outcomes.processed",
		metric.WithDescription("CareerDocs batch outcomes processed, by result"))
	if err != nil {
		otel.Handle(err)
	}

	return &Consumer{
		registry:       registry,
		repo:           repo,
		refill:         refill,
		tracer:         otel.Tracer("consumer"),
		outcomeCounter: outcomeCounter,
	}
}

// Process handles one response-queue delivery body. A nil error means the
// caller should ack; a non-nil error wrapped as transient means the caller
// should nack-and-requeue; any other error is a permanent decode/schema
// problem the caller should ack-and-drop: redelivering malformed input
// would not help.
func (c *Consumer) Process(ctx context.Context, body []byte) error {
	var outcome core.BatchOutcome
	if err := json.Unmarshal(body, &outcome); err != nil {
		return apperrors.SchemaInvalid{Reason: fmt.Sprintf("decode batch outcome: %v", err)}
	}
	if outcome.BatchID == "" {
		return apperrors.SchemaInvalid{Reason: "batch outcome missing mongo_id"}
	}

	ctx, span := c.tracer.Start(ctx, "consumer.assemble",
		trace.WithAttributes(attribute.String("batch_id", outcome.BatchID), attribute.Bool("success", outcome.Success)))
	defer span.End()

	c.outcomeCounter.Add(ctx, 1, metric.WithAttributes(attribute.Bool("success", outcome.Success)))

	if !outcome.Success {
		return c.handleFailure(ctx, outcome)
	}
	return c.handleSuccess(ctx, outcome)
}

func (c *Consumer) handleFailure(ctx context.Context, outcome core.BatchOutcome) error {
	if err := c.repo.RestoreOrMarkFailed(ctx, outcome.BatchID, time.Now()); err != nil {
		return apperrors.Transient(fmt.Errorf("restore or fail batch %s: %w", outcome.BatchID, err))
	}
	slog.WarnContext(ctx, "batch outcome reported failure", "batch_id", outcome.BatchID, "user_id", outcome.UserID)
	c.triggerRefill()
	return nil
}

func (c *Consumer) handleSuccess(ctx context.Context, outcome core.BatchOutcome) error {
	assembled := 0
	for correlationID, artifacts := range outcome.Applications {
		job, err := c.registry.Lookup(ctx, correlationID)
		if err != nil {
			if apperrors.IsCorrelationMissing(err) {
				slog.WarnContext(ctx, "dropping application for missing correlation id",
					"batch_id", outcome.BatchID, "correlation_id", correlationID)
				continue
			}
			return fmt.Errorf("lookup correlation id %s for batch %s: %w", correlationID, outcome.BatchID, err)
		}

		app := core.AssembledApplication{
			ID:              correlationID,
			Job:             job,
			ResumeOptimized: artifacts.ResumeOptimized,
			CoverLetter:     artifacts.CoverLetter,
			Timestamp:       time.Now(),
		}
		// An Artifact Store failure here must surface as transient so the
		// delivery is nacked and requeued: acking would lose the outcome
		// while the snapshot is still unreleased and reconstructable.
		if err := c.repo.UpsertApplication(ctx, outcome.UserID, correlationID, app); err != nil {
			return apperrors.Transient(fmt.Errorf("upsert assembled application %s for user %d: %w", correlationID, outcome.UserID, err))
		}
		if err := c.registry.Release(ctx, correlationID); err != nil {
			return fmt.Errorf("release correlation id %s: %w", correlationID, err)
		}
		assembled++
	}

	if err := c.repo.RetireBatch(ctx, outcome.BatchID); err != nil {
		return apperrors.Transient(fmt.Errorf("retire batch %s: %w", outcome.BatchID, err))
	}

	slog.InfoContext(ctx, "assembled batch outcome", "batch_id", outcome.BatchID, "user_id", outcome.UserID, "applications", assembled)
	c.triggerRefill()
	return nil
}

func (c *Consumer) triggerRefill() {
	if c.refill != nil {
		c.refill.TriggerRefill()
	}
}
