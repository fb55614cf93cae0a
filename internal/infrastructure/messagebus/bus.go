// Package messagebus is the RabbitMQ adapter shared by every queue this
// pipeline touches: career_docs_queue, career_docs_response_queue,
// application_manager_queue, providers_queue, and skyvern_queue. It
// satisfies the narrow Bus ports each application package declares for
// itself (publisher.Bus, dispatch.Bus, refill.Depther).
package messagebus

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	amqplib "github.com/rabbitmq/amqp091-go"

	"github.com/careerdocs/pipeline/internal/apperrors"
)

const (
	maxReconnectDelay  = 30 * time.Second
	baseReconnectDelay = 1 * time.Second
)

// Bus is a durable, manually-acknowledged RabbitMQ connection. One Bus is
// shared by every producer and consumer in the process; queues are declared
// lazily and idempotently by Publish (on every call) and Consume.
type Bus struct {
	url string

	mu      sync.Mutex
	conn    *amqplib.Connection
	channel *amqplib.Channel
	closed  bool
	closeCh chan struct{}
}

// New dials url and declares no queues yet; queues are declared on use by
// Publish and Consume. QueueDepth only inspects a queue that already exists.
func New(url string) (*Bus, error) {
	b := &Bus{url: url, closeCh: make(chan struct{})}
	if err := b.connect(); err != nil {
		return nil, err
	}
	return b, nil
}

func (b *Bus) connect() error {
	conn, err := amqplib.Dial(b.url)
	if err != nil {
		return fmt.Errorf("amqp dial: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return fmt.Errorf("amqp channel: %w", err)
	}

	if err := ch.Qos(1, 0, false); err != nil {
		ch.Close()
		conn.Close()
		return fmt.Errorf("amqp qos: %w", err)
	}

	if err := ch.Confirm(false); err != nil {
		ch.Close()
		conn.Close()
		return fmt.Errorf("amqp confirm mode: %w", err)
	}

	b.mu.Lock()
	b.conn = conn
	b.channel = ch
	b.mu.Unlock()

	return nil
}

func (b *Bus) declare(queue string) (*amqplib.Channel, error) {
	b.mu.Lock()
	ch := b.channel
	b.mu.Unlock()

	if ch == nil {
		return nil, fmt.Errorf("amqp channel is not connected")
	}

	if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		return nil, fmt.Errorf("declare queue %s: %w", queue, err)
	}
	return ch, nil
}

// Publish delivers body to queue with persistent delivery mode, so it
// survives a broker restart while waiting to be consumed.
func (b *Bus) Publish(ctx context.Context, queue string, body []byte) error {
	ch, err := b.declare(queue)
	if err != nil {
		return apperrors.Transient(err)
	}

	err = ch.PublishWithContext(ctx, "", queue, false, false, amqplib.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqplib.Persistent,
		Body:         body,
	})
	if err != nil {
		return apperrors.Transient(fmt.Errorf("publish to %s: %w", queue, err))
	}
	return nil
}

// QueueDepth returns the number of ready messages currently sitting in
// queue, via a passive declare.
func (b *Bus) QueueDepth(ctx context.Context, queue string) (int, error) {
	b.mu.Lock()
	ch := b.channel
	b.mu.Unlock()

	if ch == nil {
		return 0, apperrors.Transient(fmt.Errorf("amqp channel is not connected"))
	}

	q, err := ch.QueueDeclarePassive(queue, true, false, false, false, nil)
	if err != nil {
		return 0, apperrors.Transient(fmt.Errorf("inspect queue %s: %w", queue, err))
	}
	return q.Messages, nil
}

// Consume starts a manual-ack consumer on queue and streams deliveries to
// the returned channel, which is closed when ctx is cancelled or the Bus is
// closed. It reconnects with exponential backoff, without an attempt limit,
// on any connection failure so a single consumer goroutine can run for the
// lifetime of the process.
func (b *Bus) Consume(ctx context.Context, queue string) (<-chan Delivery, error) {
	if _, err := b.declare(queue); err != nil {
		return nil, err
	}

	out := make(chan Delivery)
	go b.consumeLoop(ctx, queue, out)
	return out, nil
}

func (b *Bus) consumeLoop(ctx context.Context, queue string, out chan<- Delivery) {
	defer close(out)

	for attempt := 0; ; {
		err := b.consumeOnce(ctx, queue, out)
		if err == nil {
			return
		}

		select {
		case <-ctx.Done():
			return
		case <-b.closeCh:
			return
		default:
		}

		delay := time.Duration(math.Min(
			float64(baseReconnectDelay)*math.Pow(2, float64(attempt)),
			float64(maxReconnectDelay),
		))
		slog.WarnContext(ctx, "message bus consumer lost connection, reconnecting",
			"queue", queue, "err", err, "attempt", attempt+1, "delay", delay)

		select {
		case <-ctx.Done():
			return
		case <-time.After(delay):
		}

		if err := b.connect(); err != nil {
			slog.ErrorContext(ctx, "message bus reconnect failed", "queue", queue, "err", err)
			attempt++
			continue
		}
		if _, err := b.declare(queue); err != nil {
			slog.ErrorContext(ctx, "message bus redeclare failed after reconnect", "queue", queue, "err", err)
			attempt++
			continue
		}
		attempt = 0
	}
}

func (b *Bus) consumeOnce(ctx context.Context, queue string, out chan<- Delivery) error {
	b.mu.Lock()
	ch := b.channel
	b.mu.Unlock()
	if ch == nil {
		return fmt.Errorf("amqp channel is nil")
	}

	deliveries, err := ch.Consume(queue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("consume %s: %w", queue, err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case d, ok := <-deliveries:
			if !ok {
				return fmt.Errorf("delivery channel for %s closed", queue)
			}
			tag := d.DeliveryTag
			localCh := ch
			msg := Delivery{
				Body: d.Body,
				Ack:  func() error { return localCh.Ack(tag, false) },
				Nack: func(requeue bool) error { return localCh.Nack(tag, false, requeue) },
			}
			select {
			case out <- msg:
			case <-ctx.Done():
				_ = d.Nack(false, true)
				return nil
			}
		}
	}
}

// Close gracefully shuts down the connection.
func (b *Bus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil
	}
	b.closed = true
	close(b.closeCh)

	var firstErr error
	if b.channel != nil {
		if err := b.channel.Close(); err != nil {
			firstErr = err
		}
	}
	if b.conn != nil {
		if err := b.conn.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
