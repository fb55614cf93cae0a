// Package orchestration composes the admission, publisher, consumer, and
// dispatch packages against in-memory fakes, driving them the way the
// Refill Loop, a CareerDocs response delivery, and a submit-all call would
// in production. It exercises the pipeline end to end without a live
// Mongo, Redis, or RabbitMQ.
package orchestration

import (
	"context"
	"sync"
	"time"

	"github.com/careerdocs/pipeline/internal/apperrors"
	"github.com/careerdocs/pipeline/internal/core"
)

// fakeStore is an in-memory Correlation Store, satisfying registry.Store.
type fakeStore struct {
	mu   sync.Mutex
	data map[string][]byte
}

func newFakeStore() *fakeStore {
	return &fakeStore{data: make(map[string][]byte)}
}

func (s *fakeStore) SetNX(ctx context.Context, key string, value []byte) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.data[key]; exists {
		return false, nil
	}
	s.data[key] = value
	return true, nil
}

func (s *fakeStore) Get(ctx context.Context, key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.data[key]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	return v, nil
}

func (s *fakeStore) Del(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, key)
	return nil
}

// fakeBus is an in-memory Message Bus: it records every published body per
// queue and tracks each queue's ready depth, standing in for a pre-loaded
// career_docs_queue under back-pressure.
type fakeBus struct {
	mu        sync.Mutex
	published map[string][][]byte
	depth     map[string]int
}

func newFakeBus() *fakeBus {
	return &fakeBus{
		published: make(map[string][][]byte),
		depth:     make(map[string]int),
	}
}

func (b *fakeBus) Publish(ctx context.Context, queue string, body []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.published[queue] = append(b.published[queue], body)
	b.depth[queue]++
	return nil
}

func (b *fakeBus) QueueDepth(ctx context.Context, queue string) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.depth[queue], nil
}

// drain simulates CareerDocs (or an applier) consuming one message off
// queue, the way a real delivery ack would bring the ready count down.
func (b *fakeBus) drain(queue string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.depth[queue] > 0 {
		b.depth[queue]--
	}
}

func (b *fakeBus) messages(queue string) [][]byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([][]byte(nil), b.published[queue]...)
}

// fakeRepository backs pending_batches and assembled_applications, playing
// the role mongostore.Store plays in production: it satisfies
// admission.Repository, publisher.Repository, consumer.Repository, and
// dispatch.Repository all at once, the way a single Mongo database backs
// every one of those narrow ports against its own collections.
type fakeRepository struct {
	mu sync.Mutex

	pending map[string]*core.PendingBatch
	apps    map[int64]map[string]core.AssembledApplication
	pdf     map[string][]string
}

func newFakeRepository() *fakeRepository {
	return &fakeRepository{
		pending: make(map[string]*core.PendingBatch),
		apps:    make(map[int64]map[string]core.AssembledApplication),
		pdf:     make(map[string][]string),
	}
}

func cloneBatch(b *core.PendingBatch) *core.PendingBatch {
	clone := *b
	clone.Jobs = append([]core.Job(nil), b.Jobs...)
	return &clone
}

func (r *fakeRepository) seed(b *core.PendingBatch) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pending[b.ID] = cloneBatch(b)
}

// ClaimOne satisfies admission.Repository.
func (r *fakeRepository) ClaimOne(ctx context.Context) (*core.PendingBatch, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, b := range r.pending {
		if b.Sent || b.IsPermanentlyFailed() {
			continue
		}
		b.Sent = true
		b.RetriesLeft--
		return cloneBatch(b), nil
	}
	return nil, apperrors.ErrNotFound
}

// Restore satisfies publisher.Repository.
func (r *fakeRepository) Restore(ctx context.Context, batch *core.PendingBatch) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.pending[batch.ID]
	if !ok {
		return nil
	}
	stored.Sent = false
	stored.Jobs = append([]core.Job(nil), batch.Jobs...)
	return nil
}

// SaveJobs satisfies publisher.Repository.
func (r *fakeRepository) SaveJobs(ctx context.Context, batch *core.PendingBatch) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if stored, ok := r.pending[batch.ID]; ok {
		stored.Jobs = append([]core.Job(nil), batch.Jobs...)
	}
	return nil
}

// MarkFailed satisfies publisher.Repository.
func (r *fakeRepository) MarkFailed(ctx context.Context, batchID string, failedAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if stored, ok := r.pending[batchID]; ok {
		stored.Status = core.BatchStatusFailed
		stored.FailedAt = &failedAt
	}
	return nil
}

// AppendAppIDs satisfies publisher.Repository.
func (r *fakeRepository) AppendAppIDs(ctx context.Context, cvID string, correlationIDs []string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pdf[cvID] = append(r.pdf[cvID], correlationIDs...)
	return nil
}

// RestoreOrMarkFailed satisfies consumer.Repository: it mirrors
// mongostore.Store.RestoreOrMarkFailed's conditional decision against the
// batch's currently stored retries_left.
func (r *fakeRepository) RestoreOrMarkFailed(ctx context.Context, batchID string, failedAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.pending[batchID]
	if !ok {
		return nil
	}
	if stored.RetriesLeft > 0 {
		stored.Sent = false
		return nil
	}
	stored.Status = core.BatchStatusFailed
	stored.FailedAt = &failedAt
	return nil
}

// RetireBatch satisfies consumer.Repository.
func (r *fakeRepository) RetireBatch(ctx context.Context, batchID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.pending, batchID)
	return nil
}

// UpsertApplication satisfies consumer.Repository.
func (r *fakeRepository) UpsertApplication(ctx context.Context, userID int64, correlationID string, app core.AssembledApplication) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.apps[userID] == nil {
		r.apps[userID] = make(map[string]core.AssembledApplication)
	}
	r.apps[userID][correlationID] = app
	return nil
}

// GetUnsentApplications satisfies dispatch.Repository.
func (r *fakeRepository) GetUnsentApplications(ctx context.Context, userID int64) ([]core.AssembledApplication, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []core.AssembledApplication
	for _, app := range r.apps[userID] {
		if !app.Sent {
			out = append(out, app)
		}
	}
	return out, nil
}

// GetApplications satisfies dispatch.Repository.
func (r *fakeRepository) GetApplications(ctx context.Context, userID int64, ids []string) ([]core.AssembledApplication, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []core.AssembledApplication
	for _, id := range ids {
		if app, ok := r.apps[userID][id]; ok {
			out = append(out, app)
		}
	}
	return out, nil
}

// MarkSent satisfies dispatch.Repository.
func (r *fakeRepository) MarkSent(ctx context.Context, userID int64, correlationID string, sentAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if app, ok := r.apps[userID][correlationID]; ok {
		app.Sent = true
		app.Timestamp = sentAt
		r.apps[userID][correlationID] = app
	}
	return nil
}

func (r *fakeRepository) batch(id string) (*core.PendingBatch, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.pending[id]
	if !ok {
		return nil, false
	}
	return cloneBatch(b), true
}

func (r *fakeRepository) application(userID int64, correlationID string) (core.AssembledApplication, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	app, ok := r.apps[userID][correlationID]
	return app, ok
}
