package fieldconfig

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	serrors "github.com/Aman-CERP/sitesearch/internal/errors"
	"github.com/Aman-CERP/sitesearch/internal/record"
)

// Resolver parses raw field configuration per class and caches the result
// for the life of the process.
type Resolver struct {
	mu      sync.RWMutex
	cache   map[string]*ClassFieldConfig
	order   []string
	filters *Filters
	logger  *slog.Logger
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithFilters sets the content filter registry (default NewFilters()).
func WithFilters(f *Filters) Option {
	return func(r *Resolver) {
		r.filters = f
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(r *Resolver) {
		r.logger = l
	}
}

// NewResolver creates an empty Resolver.
func NewResolver(opts ...Option) *Resolver {
	r := &Resolver{
		cache:   make(map[string]*ClassFieldConfig),
		filters: NewFilters(),
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve parses raw for class and caches it. A class that is already
// resolved returns its cached config; configuration is immutable after the
// first successful resolution. Errors are *errors.SearchError config errors
// and are not cached.
func (r *Resolver) Resolve(class string, raw *yaml.Node) (*ClassFieldConfig, error) {
	if class == "" {
		return nil, serrors.ConfigError("class name is empty", nil)
	}

	r.mu.RLock()
	cfg, ok := r.cache[class]
	r.mu.RUnlock()
	if ok {
		return cfg, nil
	}

	cfg, err := r.parse(class, raw)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.cache[class]; ok {
		return existing, nil
	}
	r.cache[class] = cfg
	r.order = append(r.order, class)
	r.logger.Debug("field_config_resolved",
		slog.String("class", class),
		slog.Int("fields", len(cfg.Fields)))
	return cfg, nil
}

// ResolveList is Resolve for a comma-separated field list.
func (r *Resolver) ResolveList(class, list string) (*ClassFieldConfig, error) {
	return r.Resolve(class, &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: list})
}

// Lookup returns the resolved config for class. A class that was never
// resolved is not searchable.
func (r *Resolver) Lookup(class string) (*ClassFieldConfig, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	cfg, ok := r.cache[class]
	return cfg, ok
}

// Classes returns the resolved classes in resolution order.
func (r *Resolver) Classes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// declared is one user-declared field before defaults are applied.
type declared struct {
	source     string
	name       string
	kind       string
	filter     string
	storeEmpty bool
	line       int
}

func (r *Resolver) parse(class string, raw *yaml.Node) (*ClassFieldConfig, error) {
	decls, err := decode(raw)
	if err != nil {
		return nil, serrors.ConfigError(fmt.Sprintf("invalid field config for class %s", class), err).
			WithDetail("class", class)
	}

	cfg := &ClassFieldConfig{Class: class}
	index := make(map[string]int)

	for _, source := range extraFields {
		index[source] = len(cfg.Fields)
		cfg.Fields = append(cfg.Fields, FieldSpec{
			Source: source,
			Name:   outputName(source),
			Kind:   DefaultKind(source),
		})
	}

	for _, d := range decls {
		spec, err := r.build(class, d)
		if err != nil {
			return nil, err
		}
		if i, ok := index[d.source]; ok {
			if i < len(extraFields) {
				cfg.Fields[i] = r.mergeExtra(class, cfg.Fields[i], spec, d)
			}
			continue
		}
		index[d.source] = len(cfg.Fields)
		cfg.Fields = append(cfg.Fields, spec)
	}

	seen := make(map[string]string, len(cfg.Fields))
	for _, f := range cfg.Fields {
		if f.Name == ObjectID && f.Source != record.FieldID {
			return nil, serrors.New(serrors.ErrCodeReservedField,
				fmt.Sprintf("field %s of class %s cannot use the reserved name %s", f.Source, class, ObjectID), nil).
				WithDetail("class", class).
				WithDetail("field", f.Source)
		}
		if other, dup := seen[f.Name]; dup {
			return nil, serrors.ConfigError(
				fmt.Sprintf("fields %s and %s of class %s both index as %s", other, f.Source, class, f.Name), nil).
				WithDetail("class", class)
		}
		seen[f.Name] = f.Source
	}
	return cfg, nil
}

// build applies defaults and looks up the filter for one declaration.
func (r *Resolver) build(class string, d declared) (FieldSpec, error) {
	if err := validateSource(d.source); err != nil {
		return FieldSpec{}, serrors.ConfigError(fmt.Sprintf("class %s: %v", class, err), nil).
			WithDetail("class", class).
			WithDetail("line", fmt.Sprint(d.line))
	}

	spec := FieldSpec{
		Source:     d.source,
		Name:       d.name,
		Kind:       DefaultKind(d.source),
		StoreEmpty: d.storeEmpty,
	}
	if spec.Name == "" {
		spec.Name = outputName(d.source)
	}
	if d.kind != "" {
		k, err := ParseKind(d.kind)
		if err != nil {
			return FieldSpec{}, serrors.ConfigError(fmt.Sprintf("class %s field %s", class, d.source), err).
				WithDetail("class", class).
				WithDetail("field", d.source)
		}
		spec.Kind = k
	}
	if d.filter != "" {
		fn, ok := r.filters.Get(d.filter)
		if !ok {
			return FieldSpec{}, serrors.ConfigError(
				fmt.Sprintf("class %s field %s: unknown filter %q", class, d.source, d.filter), nil).
				WithDetail("class", class).
				WithDetail("field", d.source).
				WithSuggestion("Available filters: " + strings.Join(r.filters.Names(), ", "))
		}
		spec.Filter = fn
		spec.FilterName = d.filter
	}
	return spec, nil
}

// mergeExtra lets a declaration override an extra field. Identity fields
// are the index delete key, so their name, kind and value are fixed: only
// store_empty is honoured.
func (r *Resolver) mergeExtra(class string, extra, user FieldSpec, d declared) FieldSpec {
	if !isIdentity(extra.Source) {
		return user
	}
	if (d.name != "" && d.name != extra.Name) || (d.kind != "" && user.Kind != extra.Kind) || d.filter != "" {
		r.logger.Warn("identity_field_override_ignored",
			slog.String("class", class),
			slog.String("field", extra.Source))
	}
	extra.StoreEmpty = user.StoreEmpty
	return extra
}

func validateSource(source string) error {
	if source == "" {
		return fmt.Errorf("empty field name")
	}
	for _, seg := range strings.Split(source, ".") {
		if seg == "" {
			return fmt.Errorf("field path %q has an empty segment", source)
		}
		if strings.ContainsAny(seg, " \t\n") {
			return fmt.Errorf("field path %q contains whitespace", source)
		}
	}
	return nil
}
