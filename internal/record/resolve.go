package record

import (
	"errors"
	"log/slog"
	"strings"

	serrors "github.com/Aman-CERP/sitesearch/internal/errors"
)

// ErrCycleDetected is matched (by code) by any error reporting a relation path
// that takes the same relation of the same record twice.
var ErrCycleDetected = serrors.New(serrors.ErrCodeRelationCycle, "relation path revisits a record", nil)

// Resolver reduces a plain or dotted field path to a string value.
//
// Missing accessors, attributes, and relation segments resolve to "".
// A path that routes back through the same relation of the same record
// (e.g. "Parent.Children.Parent.Children.Title" from a child) is reported
// as ErrCycleDetected rather than walked again.
type Resolver struct {
	logger *slog.Logger
}

// NewResolver creates a Resolver. A nil logger means slog.Default().
func NewResolver(logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{logger: logger}
}

// hop is one relation traversal: a relation segment taken from a record.
type hop struct {
	from    Ref
	segment string
}

// Value resolves path against rec.
func (r *Resolver) Value(rec Record, path string) (string, error) {
	if rec == nil {
		rec = Empty
	}
	return r.resolve(rec, path, path, nil)
}

func (r *Resolver) resolve(rec Record, path, full string, taken []hop) (string, error) {
	base, rest, dotted := strings.Cut(path, ".")
	if !dotted {
		return readField(rec, path), nil
	}

	rel, ok := rec.Relation(base)
	if !ok {
		r.logger.Debug("relation_segment_unknown",
			slog.String("record", rec.Ref().String()),
			slog.String("segment", base),
			slog.String("path", full))
		return "", nil
	}

	taken, err := take(taken, hop{from: rec.Ref(), segment: base}, full)
	if err != nil {
		return "", err
	}

	if !rel.Kind.Multi() {
		target := Empty
		if len(rel.Records) > 0 && rel.Records[0] != nil {
			target = rel.Records[0]
		}
		return r.resolve(target, rest, full, taken)
	}

	// A cyclic branch is dropped; the path only fails when every branch
	// loops.
	var (
		values   = make([]string, 0, len(rel.Records))
		cycle    error
		resolved int
	)
	for _, related := range rel.Records {
		if related == nil {
			continue
		}
		v, err := r.resolve(related, rest, full, taken)
		if errors.Is(err, ErrCycleDetected) {
			r.logger.Warn("relation_branch_cycle_skipped",
				slog.String("record", related.Ref().String()),
				slog.String("path", full))
			cycle = err
			continue
		}
		if err != nil {
			return "", err
		}
		resolved++
		if v != "" {
			values = append(values, v)
		}
	}
	if resolved == 0 && cycle != nil {
		return "", cycle
	}
	return strings.Join(values, "\n"), nil
}

// readField calls the accessor if one exists, otherwise reads the attribute.
func readField(rec Record, name string) string {
	if v, ok := rec.TryInvoke(name); ok {
		return v
	}
	if v, ok := rec.TryRead(name); ok {
		return v
	}
	return ""
}

// take appends h to the hops taken so far, failing if it was taken before.
// The returned slice is a copy so sibling branches do not share state.
func take(taken []hop, h hop, full string) ([]hop, error) {
	if !h.from.IsZero() {
		for _, prev := range taken {
			if prev == h {
				return nil, serrors.New(serrors.ErrCodeRelationCycle, "relation path revisits a record", nil).
					WithDetail("path", full).
					WithDetail("record", h.from.String()).
					WithDetail("relation", h.segment)
			}
		}
	}

	next := make([]hop, len(taken), len(taken)+1)
	copy(next, taken)
	return append(next, h), nil
}
