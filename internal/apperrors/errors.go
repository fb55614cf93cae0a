// Package apperrors is the error taxonomy shared by every stage of the
// admission/assembly/dispatch pipeline: the retryable/permanent
// distinction plus the handful of outcomes the batch state machine needs.
package apperrors

import (
	"errors"
	"fmt"
)

// TransientInfra wraps an error from the Message Bus, Artifact Store, or
// Correlation Store that is expected to clear on its own (a dropped
// connection, a timeout, a lock contention). The response consumer loop
// requeues only errors wrapped with Transient() and acks everything else as
// permanent; the publisher restores a claimed batch on any error, transient
// or not.
type TransientInfra struct {
	Err error
}

func (e TransientInfra) Error() string { return fmt.Sprintf("transient infra error: %v", e.Err) }
func (e TransientInfra) Unwrap() error { return e.Err }

// Transient wraps err to signal the caller should retry (batch restore, or
// negative-ack with requeue), rather than treat it as permanent.
func Transient(err error) error {
	if err == nil {
		return nil
	}
	return TransientInfra{Err: err}
}

// IsTransient reports whether err (or anything it wraps) is TransientInfra.
func IsTransient(err error) bool {
	var t TransientInfra
	return errors.As(err, &t)
}

// BatchUnrecoverable indicates a batch's retry budget is exhausted; the
// batch transitions to PERMANENTLY_FAILED and is not retried further.
type BatchUnrecoverable struct {
	BatchID string
	Reason  string
}

func (e BatchUnrecoverable) Error() string {
	return fmt.Sprintf("batch %s unrecoverable: %s", e.BatchID, e.Reason)
}

// IsBatchUnrecoverable reports whether err is a BatchUnrecoverable.
func IsBatchUnrecoverable(err error) bool {
	var b BatchUnrecoverable
	return errors.As(err, &b)
}

// CorrelationMissing indicates a response referenced a correlation id that
// is no longer (or never was) present in the Correlation Store. This is an
// application-level error: it is recorded and skipped, never used to fail
// the whole batch outcome.
type CorrelationMissing struct {
	CorrelationID string
}

func (e CorrelationMissing) Error() string {
	return fmt.Sprintf("correlation id %s missing from correlation store", e.CorrelationID)
}

// IsCorrelationMissing reports whether err is a CorrelationMissing.
func IsCorrelationMissing(err error) bool {
	var c CorrelationMissing
	return errors.As(err, &c)
}

// SchemaInvalid indicates an inbound message failed shape validation. The
// message is acknowledged and dropped; dead-lettering is out of scope.
type SchemaInvalid struct {
	Reason string
}

func (e SchemaInvalid) Error() string { return fmt.Sprintf("invalid message schema: %s", e.Reason) }

// IsSchemaInvalid reports whether err is a SchemaInvalid.
func IsSchemaInvalid(err error) bool {
	var s SchemaInvalid
	return errors.As(err, &s)
}

// RoutingDisabled indicates an application's target applier queue is
// disabled in configuration. The application is dropped with a warning and
// its sent flag is left unset.
type RoutingDisabled struct {
	Portal string
	Queue  string
}

func (e RoutingDisabled) Error() string {
	return fmt.Sprintf("routing to %s disabled (portal %s)", e.Queue, e.Portal)
}

// IsRoutingDisabled reports whether err is a RoutingDisabled.
func IsRoutingDisabled(err error) bool {
	var r RoutingDisabled
	return errors.As(err, &r)
}

// ErrNotFound is returned by store adapters when a lookup finds nothing and
// the caller has no special handling for that case beyond reporting it.
var ErrNotFound = errors.New("not found")

// NoApplicationsResolved indicates a submit-selected request's ids resolved
// to no unsent application at all: every id was unknown, already sent, or
// both. The caller made no progress and should surface this distinctly from
// a partial dispatch.
type NoApplicationsResolved struct {
	UserID int64
	IDs    []string
}

func (e NoApplicationsResolved) Error() string {
	return fmt.Sprintf("no unsent application among %v resolved for user %d", e.IDs, e.UserID)
}

// IsNoApplicationsResolved reports whether err is a NoApplicationsResolved.
func IsNoApplicationsResolved(err error) bool {
	var n NoApplicationsResolved
	return errors.As(err, &n)
}
