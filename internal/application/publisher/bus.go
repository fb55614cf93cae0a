package publisher

import "context"

// Bus is the Message Bus port this package needs to hand a request message
// to CareerDocs. Owned here rather than by the messagebus package so the
// publisher only ever sees the one operation it performs.
type Bus interface {
	// Publish delivers body to the named queue with persistent (durable)
	// delivery mode. Returns a transient-wrapped error on any failure so
	// callers can decide whether to restore the claimed batch for retry.
	Publish(ctx context.Context, queue string, body []byte) error
}
