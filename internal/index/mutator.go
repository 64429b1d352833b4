// Package index keeps the search index in step with the source record store:
// single-record upserts and removals, lifecycle hooks, and resumable
// full reindex jobs.
package index

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Aman-CERP/sitesearch/internal/document"
	serrors "github.com/Aman-CERP/sitesearch/internal/errors"
	"github.com/Aman-CERP/sitesearch/internal/fieldconfig"
	"github.com/Aman-CERP/sitesearch/internal/record"
	"github.com/Aman-CERP/sitesearch/internal/store"
)

// Mutator applies single-record changes to the shared engine handle.
//
// Each operation commits on its own. Remove and the add of Upsert are two
// commits, so a crash between them leaves the record unindexed until the
// next reindex. Callers serialize writers to the same index.
type Mutator struct {
	engine  store.Engine
	builder *document.Builder
	logger  *slog.Logger
}

// NewMutator creates a Mutator.
func NewMutator(engine store.Engine, builder *document.Builder, logger *slog.Logger) (*Mutator, error) {
	if engine == nil {
		return nil, fmt.Errorf("search engine is required")
	}
	if builder == nil {
		return nil, fmt.Errorf("document builder is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Mutator{engine: engine, builder: builder, logger: logger}, nil
}

// Searchable reports whether records of class are indexed at all.
func (m *Mutator) Searchable(class string) bool {
	return m.builder.Searchable(class)
}

// Remove deletes every index entry for ref. Removing a record that was
// never indexed is a no-op.
func (m *Mutator) Remove(ctx context.Context, ref record.Ref) error {
	removed, err := m.remove(ctx, ref)
	if err != nil {
		return err
	}
	if err := m.engine.Commit(ctx); err != nil {
		return commitError("failed to commit removal", ref, err)
	}
	if removed > 0 {
		m.logger.Debug("index_remove",
			slog.String("record", ref.String()),
			slog.Int("entries", removed))
	}
	return nil
}

// remove buffers deletion of every entry for ref without committing.
func (m *Mutator) remove(ctx context.Context, ref record.Ref) (int, error) {
	hits, err := m.engine.FindTerm(ctx, fieldconfig.ObjectID, ref.IDString())
	if err != nil {
		return 0, commitError("failed to look up indexed entries", ref, err)
	}

	removed := 0
	for _, hit := range hits {
		// Identifiers are only unique within a class.
		if hit.Get(record.FieldClassName) != ref.Class {
			continue
		}
		if err := m.engine.Delete(ctx, hit.ID); err != nil {
			return removed, commitError("failed to delete indexed entry", ref, err)
		}
		removed++
	}
	return removed, nil
}

// Upsert replaces the index entry for rec with a freshly built document.
// Folders are removed and not re-added. Records of a class with no field
// configuration return an error matching document.ErrNotSearchable.
func (m *Mutator) Upsert(ctx context.Context, rec record.Record) error {
	ref := rec.Ref()
	if !m.builder.Searchable(ref.Class) {
		return serrors.New(serrors.ErrCodeNotSearchable, "class is not searchable", nil).
			WithDetail("class", ref.Class)
	}

	if err := m.Remove(ctx, ref); err != nil {
		return err
	}

	doc, err := m.builder.Build(ctx, rec)
	if err != nil {
		return err
	}
	if doc == nil {
		m.logger.Debug("index_upsert_skipped_folder", slog.String("record", ref.String()))
		return nil
	}

	if err := m.engine.Add(ctx, doc); err != nil {
		return commitError("failed to add document", ref, err)
	}
	if err := m.engine.Commit(ctx); err != nil {
		return commitError("failed to commit document", ref, err)
	}

	m.logger.Debug("index_upsert",
		slog.String("record", ref.String()),
		slog.Int("fields", len(doc.Fields)))
	return nil
}

func commitError(msg string, ref record.Ref, err error) error {
	var se *serrors.SearchError
	if errors.As(err, &se) && se.Code == serrors.ErrCodeCommitFailed {
		return err
	}
	return serrors.CommitError(msg, err).
		WithDetail("class", ref.Class).
		WithDetail("id", ref.IDString())
}

// Reset discards every index entry and recreates an empty index.
func (m *Mutator) Reset(ctx context.Context) error {
	if err := m.engine.Reset(ctx); err != nil {
		return serrors.CommitError("failed to reset search index", err)
	}
	m.logger.Info("index_reset")
	return nil
}
