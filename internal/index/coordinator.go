package index

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"

	serrors "github.com/Aman-CERP/sitesearch/internal/errors"
	"github.com/Aman-CERP/sitesearch/internal/record"
)

// ErrRecordNotFound is matched (by code) by Source.Load errors for records
// deleted since enumeration.
var ErrRecordNotFound = serrors.NotFoundError("record not found", nil)

// Source enumerates and loads records from the host record store.
type Source interface {
	// List returns the records of class matching filter, in store order.
	// An empty filter selects every record of the class.
	List(ctx context.Context, class, filter string) ([]record.Record, error)
	// Load returns a single record.
	Load(ctx context.Context, ref record.Ref) (record.Record, error)
}

// ClassSpec names an indexable class and its optional index filter.
type ClassSpec struct {
	Name   string
	Filter string
}

// StepFailure is one record the coordinator could not index.
type StepFailure struct {
	Ref record.Ref
	Err error
}

// Cursor is the progress of a reindex. It is a value: RunStep returns an
// updated copy.
type Cursor struct {
	// Full reports whether the index was wiped before the first step.
	Full bool
	// Total is the number of records enumerated.
	Total int
	// Step counts records processed so far.
	Step      int
	Remaining []record.Ref
	Failures  []StepFailure
}

// Done reports whether every enumerated record has been processed.
func (c Cursor) Done() bool {
	return len(c.Remaining) == 0
}

// CoordinatorDependencies contains the injected dependencies for Coordinator.
type CoordinatorDependencies struct {
	// Mutator writes each record (required).
	Mutator *Mutator

	// Source enumerates and loads records (required).
	Source Source

	// Classes lists indexable classes in configuration order.
	Classes []ClassSpec

	// Retry, when set, retries steps that fail with a retryable error.
	Retry *serrors.RetryConfig

	Logger *slog.Logger
}

// Coordinator drives reindexing one record at a time so a host scheduler
// can pause, resume, or interrupt it between steps.
type Coordinator struct {
	mutator *Mutator
	source  Source
	classes []ClassSpec
	retry   *serrors.RetryConfig
	logger  *slog.Logger
}

// NewCoordinator creates a Coordinator with injected dependencies.
func NewCoordinator(deps CoordinatorDependencies) (*Coordinator, error) {
	if deps.Mutator == nil {
		return nil, fmt.Errorf("mutator is required")
	}
	if deps.Source == nil {
		return nil, fmt.Errorf("record source is required")
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	return &Coordinator{
		mutator: deps.Mutator,
		source:  deps.Source,
		classes: deps.Classes,
		retry:   deps.Retry,
		logger:  deps.Logger,
	}, nil
}

// Enumerate lists every record to index, class by class in configuration
// order. Unpublished records are left out and a record listed under more
// than one class appears once, at its first position.
func (c *Coordinator) Enumerate(ctx context.Context) ([]record.Ref, error) {
	seen := make(map[record.Ref]struct{})
	var refs []record.Ref

	for _, cls := range c.classes {
		recs, err := c.source.List(ctx, cls.Name, cls.Filter)
		if err != nil {
			return nil, fmt.Errorf("failed to list %s records: %w", cls.Name, err)
		}

		skipped := 0
		for _, rec := range recs {
			if p, ok := rec.(record.Publishable); ok && !p.IsPublished() {
				skipped++
				continue
			}
			ref := rec.Ref()
			if _, dup := seen[ref]; dup {
				continue
			}
			seen[ref] = struct{}{}
			refs = append(refs, ref)
		}

		c.logger.Debug("reindex_class_enumerated",
			slog.String("class", cls.Name),
			slog.Int("records", len(recs)),
			slog.Int("unpublished", skipped))
	}
	return refs, nil
}

// Start enumerates records and returns the initial cursor. A full reindex
// wipes the index first so records that are no longer enumerable drop out.
func (c *Coordinator) Start(ctx context.Context, full bool) (Cursor, error) {
	refs, err := c.Enumerate(ctx)
	if err != nil {
		return Cursor{}, err
	}
	if full {
		if err := c.mutator.Reset(ctx); err != nil {
			return Cursor{}, err
		}
	}

	c.logger.Info("reindex_started",
		slog.Bool("full", full),
		slog.Int("records", len(refs)))
	return Cursor{Full: full, Total: len(refs), Remaining: refs}, nil
}

// RunStep indexes the next record of cur and returns the advanced cursor
// and whether it is now exhausted. A failing record is added to Failures
// and never stops the run. A step interrupted by ctx leaves cur unchanged
// so the record is retried on resume.
func (c *Coordinator) RunStep(ctx context.Context, cur Cursor) (Cursor, bool) {
	if cur.Done() {
		return cur, true
	}

	ref := cur.Remaining[0]

	var err error
	if c.retry != nil {
		err = serrors.Retry(ctx, *c.retry, func() error { return c.step(ctx, ref) })
	} else {
		err = c.step(ctx, ref)
	}
	if err != nil && ctx.Err() != nil {
		c.logger.Info("reindex_step_cancelled", slog.String("record", ref.String()))
		return cur, false
	}

	cur.Remaining = cur.Remaining[1:]
	cur.Step++
	if err != nil {
		cur.Failures = append(slices.Clip(cur.Failures), StepFailure{Ref: ref, Err: err})
		c.logger.Warn("reindex_step_failed",
			append([]any{slog.String("class", ref.Class), slog.Int64("id", ref.ID)},
				serrors.LogAttrs(err)...)...)
	}
	return cur, cur.Done()
}

// step loads and upserts one record. Records deleted since enumeration are
// removed from the index instead.
func (c *Coordinator) step(ctx context.Context, ref record.Ref) error {
	rec, err := c.source.Load(ctx, ref)
	if errors.Is(err, ErrRecordNotFound) {
		c.logger.Debug("reindex_record_gone", slog.String("record", ref.String()))
		return c.mutator.Remove(ctx, ref)
	}
	if err != nil {
		return err
	}
	return c.mutator.Upsert(ctx, rec)
}
