package document

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	serrors "github.com/Aman-CERP/sitesearch/internal/errors"
	"github.com/Aman-CERP/sitesearch/internal/fieldconfig"
	"github.com/Aman-CERP/sitesearch/internal/record"
)

// ErrNotSearchable is matched (by code) by errors for records whose class,
// and every ancestor class, has no field configuration.
var ErrNotSearchable = serrors.New(serrors.ErrCodeNotSearchable, "class is not searchable", nil)

// Extractor returns the text of a file, or "" when none can be extracted.
type Extractor interface {
	Extract(ctx context.Context, filename string) string
}

// Dependencies holds the collaborators of a Builder.
type Dependencies struct {
	// Configs supplies resolved field configs per class. Required.
	Configs *fieldconfig.Resolver
	// Values resolves field paths. Defaults to record.NewResolver(Logger).
	Values *record.Resolver
	// Extractor produces body text for file-backed records. Optional.
	Extractor Extractor
	// Hierarchy lets subclasses inherit a parent's configuration. Optional.
	Hierarchy record.Hierarchy
	Logger    *slog.Logger
}

// Builder builds one Document per record.
type Builder struct {
	configs   *fieldconfig.Resolver
	values    *record.Resolver
	extractor Extractor
	hierarchy record.Hierarchy
	logger    *slog.Logger
}

// NewBuilder creates a Builder.
func NewBuilder(deps Dependencies) (*Builder, error) {
	if deps.Configs == nil {
		return nil, fmt.Errorf("field config resolver is required")
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Values == nil {
		deps.Values = record.NewResolver(deps.Logger)
	}
	return &Builder{
		configs:   deps.Configs,
		values:    deps.Values,
		extractor: deps.Extractor,
		hierarchy: deps.Hierarchy,
		logger:    deps.Logger,
	}, nil
}

// ConfigFor returns the field config for class, falling back to the nearest
// configured ancestor.
func (b *Builder) ConfigFor(class string) (*fieldconfig.ClassFieldConfig, bool) {
	if cfg, ok := b.configs.Lookup(class); ok {
		return cfg, true
	}
	if b.hierarchy == nil {
		return nil, false
	}
	for _, ancestor := range b.hierarchy.Ancestors(class) {
		if cfg, ok := b.configs.Lookup(ancestor); ok {
			return cfg, true
		}
	}
	return nil, false
}

// Searchable reports whether records of class are indexed.
func (b *Builder) Searchable(class string) bool {
	_, ok := b.ConfigFor(class)
	return ok
}

// Build returns the document for rec. Folders yield a nil document and a
// nil error; callers must not index anything for them.
func (b *Builder) Build(ctx context.Context, rec record.Record) (*Document, error) {
	ref := rec.Ref()
	cfg, ok := b.ConfigFor(ref.Class)
	if !ok {
		return nil, serrors.New(serrors.ErrCodeNotSearchable, "class is not searchable", nil).
			WithDetail("class", ref.Class)
	}

	doc := &Document{Ref: ref}

	if fb, ok := rec.(record.FileBacked); ok {
		if fb.IsFolder() {
			return nil, nil
		}
		if path := fb.FilePath(); path != "" && b.extractor != nil {
			if body := b.extractor.Extract(ctx, path); body != "" {
				doc.Fields = append(doc.Fields, Field{Name: fieldconfig.BodyField, Kind: fieldconfig.Text, Value: body})
			}
		}
	}

	for _, spec := range cfg.Fields {
		if spec.Identity() {
			doc.Fields = append(doc.Fields, Field{Name: spec.Name, Kind: spec.Kind, Value: identityValue(ref, spec.Source)})
			continue
		}
		value, err := b.values.Value(rec, spec.Source)
		if err != nil {
			if errors.Is(err, record.ErrCycleDetected) {
				b.logger.Warn("field_skipped_relation_cycle",
					slog.String("record", ref.String()),
					slog.String("field", spec.Source))
				continue
			}
			return nil, fmt.Errorf("resolve %s of %s: %w", spec.Source, ref, err)
		}
		value = spec.Apply(value)
		if value == "" && !spec.StoreEmpty {
			continue
		}
		doc.Fields = append(doc.Fields, Field{Name: spec.Name, Kind: spec.Kind, Value: value})
	}

	if l, ok := rec.(record.Linker); ok && !cfg.HasOutput(LinkField) {
		if url := l.Link(); url != "" {
			doc.Fields = append(doc.Fields, Field{Name: LinkField, Kind: fieldconfig.UnIndexed, Value: url})
		}
	}
	return doc, nil
}

// identityValue returns the value of an identity field, read from the Ref
// that Remove matches against.
func identityValue(ref record.Ref, source string) string {
	if source == record.FieldID {
		return ref.IDString()
	}
	return ref.Class
}
