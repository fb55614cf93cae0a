// Package core defines the domain types shared across the admission,
// response-assembly, and dispatch pipelines.
package core

import "time"

// Portal identifies the job board / ATS a Job targets.
type Portal string

// ProviderPortals is the default closed set of portals with a native
// (non-browser-automation) applier. Runtime-configurable via
// config.DispatchConfig.ProviderPortals; this is only the fallback default.
var ProviderPortals = map[Portal]struct{}{
	"workday":         {},
	"greenhouse":      {},
	"smartrecruiters": {},
	"dice":            {},
	"applytojob":      {},
	"lever":           {},
	"workable":        {},
	"bamboohr":        {},
	"breezyhr":        {},
	"infojobs":        {},
	"infojobs_net":    {},
	"totaljobs":       {},
}

// Job is a single application target within a batch. Fields beyond the ones
// the core needs to route, correlate, and reassemble are carried as opaque
// extra metadata so upstream producers can evolve their schema freely.
type Job struct {
	CorrelationID string         `json:"correlation_id,omitempty" bson:"correlation_id,omitempty"`
	Portal        Portal         `json:"portal" bson:"portal"`
	Title         string         `json:"title" bson:"title"`
	Description   string         `json:"description,omitempty" bson:"description,omitempty"`
	ApplyLink     string         `json:"apply_link,omitempty" bson:"apply_link,omitempty"`
	CompanyName   string         `json:"company_name,omitempty" bson:"company_name,omitempty"`
	Location      string         `json:"location,omitempty" bson:"location,omitempty"`
	Extra         map[string]any `json:"extra,omitempty" bson:"extra,omitempty"`
}

// PendingBatch is one unit of CareerDocs work: a user's jobs awaiting
// admission, retry bookkeeping, and the claim flag that makes admission
// at-most-one-concurrent-claimant safe.
type PendingBatch struct {
	ID          string     `bson:"_id"`
	UserID      int64      `bson:"user_id"`
	Jobs        []Job      `bson:"jobs"`
	CVID        *string    `bson:"cv_id,omitempty"`
	Style       *string    `bson:"style,omitempty"`
	Sent        bool       `bson:"sent"`
	RetriesLeft int        `bson:"retries_left"`
	Status      string     `bson:"status,omitempty"` // "" | "failed"
	FailedAt    *time.Time `bson:"failed_at,omitempty"`
}

// IsPermanentlyFailed reports whether the batch has exhausted its retry
// budget and will never be reclaimed.
func (b *PendingBatch) IsPermanentlyFailed() bool {
	return b.Status == BatchStatusFailed
}

// BatchStatusFailed is the terminal status recorded on a PendingBatch once
// its retry budget is exhausted and a failure outcome has been processed.
const BatchStatusFailed = "failed"

// CorrelationEntry pairs a correlation id with its immutable job snapshot.
// The Correlation Store itself holds only the JSON-encoded Job, under the
// key "corr:<CorrelationID>", between mint and release.
type CorrelationEntry struct {
	CorrelationID string `json:"correlation_id"`
	Job           Job    `json:"job"`
}

// GeneratedArtifacts is the per-application payload CareerDocs returns.
type GeneratedArtifacts struct {
	ResumeOptimized map[string]any `json:"resume_optimized" bson:"resume_optimized"`
	CoverLetter     map[string]any `json:"cover_letter" bson:"cover_letter"`
}

// AssembledApplication merges a job snapshot with the artifacts CareerDocs
// produced for it. It lives under
// assembled_applications[user_id].content[correlation_id] and is the unit a
// user reviews, edits, and approves for dispatch.
type AssembledApplication struct {
	ID              string         `json:"id" bson:"_id"`
	Job             Job            `json:"job" bson:"job"`
	ResumeOptimized map[string]any `json:"resume_optimized" bson:"resume_optimized"`
	CoverLetter     map[string]any `json:"cover_letter" bson:"cover_letter"`
	Style           *string        `json:"style,omitempty" bson:"style,omitempty"`
	Sent            bool           `json:"sent" bson:"sent"`
	GenCV           bool           `json:"gen_cv" bson:"gen_cv"`
	Timestamp       time.Time      `json:"timestamp" bson:"timestamp"`
}

// UserApplications is the document-per-user collection
// assembled_applications: a user id and the map of assembled applications
// keyed by correlation id.
type UserApplications struct {
	UserID  int64                           `bson:"user_id"`
	Content map[string]AssembledApplication `bson:"content"`
}

// BatchOutcome is what CareerDocs publishes to career_docs_response_queue:
// either a successful batch (with per-job artifacts) or a failure signal.
type BatchOutcome struct {
	Success      bool                          `json:"success"`
	UserID       int64                         `json:"user_id"`
	BatchID      string                        `json:"mongo_id"`
	Applications map[string]GeneratedArtifacts `json:"applications,omitempty"`
}
