// Package refill implements the Refill Loop: the component that keeps the
// number of in-flight CareerDocs batches topped up to MAX_INFLIGHT, woken by
// a timer, by the Response Consumer freeing up capacity, or by an external
// application_manager_queue trigger.
package refill

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/careerdocs/pipeline/internal/apperrors"
	"github.com/careerdocs/pipeline/internal/core"
)

// Admitter claims the next admissible batch, or returns (nil, nil) if none
// is currently available.
type Admitter interface {
	ClaimOne(ctx context.Context) (*core.PendingBatch, error)
}

// Dispatcher hands a claimed batch to CareerDocs.
type Dispatcher interface {
	Publish(ctx context.Context, batch *core.PendingBatch) error
}

// Depther reports how many requests CareerDocs currently has in flight, so
// refill stops once MAX_INFLIGHT is reached rather than running unbounded.
type Depther interface {
	QueueDepth(ctx context.Context, queue string) (int, error)
}

// Loop repeatedly claims and publishes batches up to maxInflight capacity,
// triggered by a ticker, an explicit TriggerRefill() call, or both.
type Loop struct {
	admitter    Admitter
	dispatcher  Dispatcher
	depther     Depther
	requestQ    string
	maxInflight int
	period      time.Duration

	trigger chan struct{}

	tracer       trace.Tracer
	depthGauge   metric.Int64Gauge
	claimCounter metric.Int64Counter
}

// New creates a Loop. requestQueue is the queue Depther measures against
// maxInflight (career_docs_queue in production).
func New(admitter Admitter, dispatcher Dispatcher, depther Depther, requestQueue string, maxInflight int, period time.Duration) *Loop {
	meter := otel.Meter("refill")
	depthGauge, err := meter.Int64Gauge("careerdocs.request_queue.depth",
		metric.WithDescription("Ready messages in the CareerDocs request queue at the last refill check"))
	if err != nil {
		otel.Handle(err)
	}
	claimCounter, err := meter.Int64Counter("careerdocs.batches.admitted",
		metric.WithDescription("Batches claimed and published to CareerDocs"))
	if err != nil {
		otel.Handle(err)
	}

	return &Loop{
		admitter:     admitter,
		dispatcher:   dispatcher,
		depther:      depther,
		requestQ:     requestQueue,
		maxInflight:  maxInflight,
		period:       period,
		trigger:      make(chan struct{}, 1),
		tracer:       otel.Tracer("refill"),
		depthGauge:   depthGauge,
		claimCounter: claimCounter,
	}
}

// TriggerRefill nudges the loop to run a cycle as soon as it is free,
// without waiting for the next timer tick. Safe to call from any goroutine;
// satisfies consumer.RefillTrigger.
func (l *Loop) TriggerRefill() {
	select {
	case l.trigger <- struct{}{}:
	default:
		// a refill is already pending; coalesce
	}
}

// Run blocks until ctx is cancelled, running a refill cycle on every timer
// tick and every TriggerRefill() call. A single cycle's errors are logged and
// swallowed: the loop must outlive any individual refill failure.
func (l *Loop) Run(ctx context.Context) {
	ticker := time.NewTicker(l.period)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			l.cycle(ctx)
		case <-l.trigger:
			l.cycle(ctx)
		}
	}
}

// cycle claims and publishes batches until MAX_INFLIGHT is reached or no
// more batches are admissible.
func (l *Loop) cycle(ctx context.Context) {
	for {
		depth, err := l.depther.QueueDepth(ctx, l.requestQ)
		if err != nil {
			slog.ErrorContext(ctx, "refill: failed to read queue depth, aborting cycle", "err", err)
			return
		}
		l.depthGauge.Record(ctx, int64(depth))
		if depth >= l.maxInflight {
			return
		}

		if done := l.admitOne(ctx); done {
			return
		}
	}
}

// admitOne runs one claim-and-publish attempt under a single span. It
// reports true when the cycle should stop: nothing admissible, or a claim
// failure worth backing off on until the next trigger.
func (l *Loop) admitOne(ctx context.Context) (done bool) {
	ctx, span := l.tracer.Start(ctx, "refill.admit")
	defer span.End()

	batch, err := l.admitter.ClaimOne(ctx)
	if err != nil {
		slog.ErrorContext(ctx, "refill: failed to claim batch, aborting cycle", "err", err, "transient", apperrors.IsTransient(err))
		return true
	}
	if batch == nil {
		return true
	}
	span.SetAttributes(attribute.String("batch_id", batch.ID))

	if err := l.dispatcher.Publish(ctx, batch); err != nil {
		slog.ErrorContext(ctx, "refill: failed to publish claimed batch", "batch_id", batch.ID, "err", err)
		return false
	}
	l.claimCounter.Add(ctx, 1)
	return false
}
