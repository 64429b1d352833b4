package index

import (
	"context"
	"errors"
	"log/slog"

	"github.com/Aman-CERP/sitesearch/internal/document"
	"github.com/Aman-CERP/sitesearch/internal/record"
)

// Hooks is the record lifecycle integration point. The host record store
// calls AfterWrite after a create or update and AfterDelete after a delete.
type Hooks struct {
	mutator *Mutator
	logger  *slog.Logger
}

// NewHooks creates lifecycle hooks writing through m.
func NewHooks(m *Mutator, logger *slog.Logger) *Hooks {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hooks{mutator: m, logger: logger}
}

// AfterWrite indexes rec. Staged versions of versioned records are ignored
// and so are records of classes that are not searchable.
func (h *Hooks) AfterWrite(ctx context.Context, rec record.Record) error {
	if v, ok := rec.(record.Versioned); ok && !v.IsLiveVersion() {
		h.logger.Debug("index_hook_skipped_staged", slog.String("record", rec.Ref().String()))
		return nil
	}
	err := h.mutator.Upsert(ctx, rec)
	if errors.Is(err, document.ErrNotSearchable) {
		return nil
	}
	return err
}

// AfterDelete removes rec from the index unless a live version of it
// still exists.
func (h *Hooks) AfterDelete(ctx context.Context, rec record.Record) error {
	if v, ok := rec.(record.Versioned); ok && v.ExistsOnLive() {
		h.logger.Debug("index_hook_kept_live", slog.String("record", rec.Ref().String()))
		return nil
	}
	return h.mutator.Remove(ctx, rec.Ref())
}
