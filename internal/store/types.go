// Package store provides the full-text index (Bleve) and reindex job
// persistence (SQLite).
package store

import (
	"context"
	"strings"
	"time"

	"github.com/Aman-CERP/sitesearch/internal/document"
	"github.com/Aman-CERP/sitesearch/internal/record"
)

// State keys for the job store.
const (
	// StateKeyLastReindexAt stores the RFC 3339 completion time of the last full reindex.
	StateKeyLastReindexAt = "last_reindex_at"
	// StateKeyLastReindexSeconds stores how long the last full reindex took.
	StateKeyLastReindexSeconds = "last_reindex_seconds"
	// StateKeyLastReindexCount stores how many records the last full reindex enumerated.
	StateKeyLastReindexCount = "last_reindex_count"
)

// Hit is one query match with its stored field values.
type Hit struct {
	// ID is the engine's internal document identifier.
	ID    string
	Score float64
	// Fields holds stored values by field name. A field stored more than
	// once has its values joined with "\n".
	Fields map[string]string
}

// Get returns a stored field value, or "".
func (h Hit) Get(name string) string {
	return h.Fields[name]
}

// Ref returns the source record of the hit, parsed from the stored
// ObjectID and ClassName fields.
func (h Hit) Ref() (record.Ref, bool) {
	return record.ParseRef(h.Get("ClassName"), h.Get("ObjectID"))
}

// Engine is the inverted-index engine the indexing layer writes through.
// Writes are buffered until Commit; Find and FindTerm see committed state.
type Engine interface {
	// Add buffers a document for indexing.
	Add(ctx context.Context, doc *document.Document) error
	// Delete buffers removal of the document with engine ID id.
	Delete(ctx context.Context, id string) error
	// FindTerm returns every document whose field holds exactly value.
	FindTerm(ctx context.Context, field, value string) ([]Hit, error)
	// Find runs a query string and returns all matches by descending score.
	Find(ctx context.Context, query string) ([]Hit, error)
	// Commit applies buffered writes.
	Commit(ctx context.Context) error
	// Reset discards the index and creates an empty one in its place.
	Reset(ctx context.Context) error
	// DocCount returns the number of committed documents.
	DocCount() (uint64, error)
	Close() error
}

// JobStore persists reindex job progress so an interrupted job can resume.
type JobStore interface {
	SaveCheckpoint(ctx context.Context, cp *Checkpoint) error
	LoadCheckpoint(ctx context.Context, job string) (*Checkpoint, error)
	ClearCheckpoint(ctx context.Context, job string) error

	GetState(ctx context.Context, key string) (string, error)
	SetState(ctx context.Context, key, value string) error

	Close() error
}

// Checkpoint is the saved state of a reindex job.
type Checkpoint struct {
	Job       string
	Full      bool
	Total     int
	Step      int
	Remaining []record.Ref
	Failures  []FailedStep
	UpdatedAt time.Time
}

// FailedStep records one record that could not be indexed.
type FailedStep struct {
	Ref   record.Ref `json:"ref"`
	Error string     `json:"error"`
}

// joinValues flattens a stored field that has several values.
func joinValues(values []string) string {
	return strings.Join(values, "\n")
}
