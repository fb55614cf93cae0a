// Command orchestrator runs the core coordination pipeline: the Refill
// Loop (claim-and-publish to CareerDocs), the Response Consumer (assemble
// CareerDocs outcomes), and the application-manager trigger listener.
//
// The Dispatch Publisher (internal/application/dispatch) is deliberately
// not driven from here: it is invoked by the (out-of-scope) external API
// surface on user-approved submission, not by anything this process
// schedules itself.
package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"

	"github.com/careerdocs/pipeline/internal/application/admission"
	"github.com/careerdocs/pipeline/internal/application/consumer"
	"github.com/careerdocs/pipeline/internal/application/publisher"
	"github.com/careerdocs/pipeline/internal/application/refill"
	"github.com/careerdocs/pipeline/internal/application/registry"
	"github.com/careerdocs/pipeline/internal/apperrors"
	"github.com/careerdocs/pipeline/internal/config"
	"github.com/careerdocs/pipeline/internal/infrastructure/correlationstore"
	"github.com/careerdocs/pipeline/internal/infrastructure/messagebus"
	"github.com/careerdocs/pipeline/internal/infrastructure/observability"
	"github.com/careerdocs/pipeline/internal/infrastructure/persistence/mongostore"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	obsCfg := observability.Config{Enabled: cfg.Observability.OTelEnabled, ServiceName: cfg.Observability.ServiceName}

	tracerProvider, err := observability.InitTracerProvider(ctx, obsCfg)
	if err != nil {
		log.Fatalf("failed to init tracer provider: %v", err)
	}
	defer tracerProvider.Shutdown(ctx)

	meterProvider, err := observability.InitMeterProvider(ctx, obsCfg)
	if err != nil {
		log.Fatalf("failed to init meter provider: %v", err)
	}
	defer meterProvider.Shutdown(ctx)

	loggerProvider, logger, err := observability.InitLogger(ctx, obsCfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer loggerProvider.Shutdown(ctx)
	slog.SetDefault(logger)

	mongo, err := mongostore.Connect(ctx, cfg.Mongo.URI, cfg.Mongo.Database)
	if err != nil {
		log.Fatalf("failed to connect to mongo: %v", err)
	}
	defer mongo.Close(ctx)

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
	defer redisClient.Close()
	correlationStore := correlationstore.New(redisClient)

	bus, err := messagebus.New(cfg.AMQP.URL)
	if err != nil {
		log.Fatalf("failed to connect to message bus: %v", err)
	}
	defer bus.Close()

	correlationRegistry := registry.New(correlationStore)
	admissionController := admission.New(mongo)
	careerDocsPublisher := publisher.New(correlationRegistry, mongo, bus)

	refillLoop := refill.New(admissionController, careerDocsPublisher, bus, cfg.AMQP.RequestQueue, cfg.Admission.MaxInflight, cfg.Admission.RefillPeriod)
	responseConsumer := consumer.New(correlationRegistry, mongo, refillLoop)

	go refillLoop.Run(ctx)
	go runResponseConsumer(ctx, bus, cfg.AMQP.ResponseQueue, responseConsumer)
	go runManagerTrigger(ctx, bus, cfg.AMQP.ManagerQueue, refillLoop)

	slog.InfoContext(ctx, "orchestrator started",
		"max_inflight", cfg.Admission.MaxInflight, "refill_period", cfg.Admission.RefillPeriod)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	slog.InfoContext(ctx, "shutdown signal received, exiting")
	cancel()
}

// runResponseConsumer drains career_docs_response_queue for the lifetime of
// ctx, acking messages the consumer handled and nacking transient failures
// for redelivery; permanent (schema) failures are acked and dropped.
func runResponseConsumer(ctx context.Context, bus *messagebus.Bus, queue string, c *consumer.Consumer) {
	deliveries, err := bus.Consume(ctx, queue)
	if err != nil {
		slog.ErrorContext(ctx, "failed to start response consumer", "queue", queue, "err", err)
		return
	}

	for d := range deliveries {
		if err := c.Process(ctx, d.Body); err != nil {
			if apperrors.IsTransient(err) {
				slog.WarnContext(ctx, "transient failure processing response, requeueing", "err", err)
				if nackErr := d.Nack(true); nackErr != nil {
					slog.ErrorContext(ctx, "failed to nack response delivery", "err", nackErr)
				}
				continue
			}
			slog.ErrorContext(ctx, "permanent failure processing response, dropping", "err", err)
		}
		if ackErr := d.Ack(); ackErr != nil {
			slog.ErrorContext(ctx, "failed to ack response delivery", "err", ackErr)
		}
	}
}

// runManagerTrigger drains application_manager_queue for the lifetime of
// ctx; every delivery, regardless of its (opaque) content, is
// acknowledged and triggers an immediate refill cycle.
func runManagerTrigger(ctx context.Context, bus *messagebus.Bus, queue string, trigger *refill.Loop) {
	deliveries, err := bus.Consume(ctx, queue)
	if err != nil {
		slog.ErrorContext(ctx, "failed to start application manager trigger listener", "queue", queue, "err", err)
		return
	}

	for d := range deliveries {
		trigger.TriggerRefill()
		if ackErr := d.Ack(); ackErr != nil {
			slog.ErrorContext(ctx, "failed to ack application manager delivery", "err", ackErr)
		}
	}
}
