package fieldconfig

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"

	"golang.org/x/net/html"
)

// Filter transforms a resolved value before it is indexed.
type Filter func(string) string

// Filters is a registry of named content filters that field configs
// refer to by name.
type Filters struct {
	mu      sync.RWMutex
	filters map[string]Filter
}

// NewFilters returns a registry holding the built-in filters:
// strip_tags, trim, lowercase and collapse_space.
func NewFilters() *Filters {
	f := &Filters{filters: make(map[string]Filter)}
	f.filters["strip_tags"] = StripTags
	f.filters["trim"] = strings.TrimSpace
	f.filters["lowercase"] = strings.ToLower
	f.filters["collapse_space"] = CollapseSpace
	return f
}

// Register adds or replaces a named filter.
func (f *Filters) Register(name string, fn Filter) error {
	if name == "" || fn == nil {
		return fmt.Errorf("filter needs a name and a function")
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.filters[name] = fn
	return nil
}

// Get looks a filter up by name.
func (f *Filters) Get(name string) (Filter, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	fn, ok := f.filters[name]
	return fn, ok
}

// Names returns the registered filter names, sorted.
func (f *Filters) Names() []string {
	f.mu.RLock()
	defer f.mu.RUnlock()
	names := make([]string, 0, len(f.filters))
	for n := range f.filters {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// StripTags removes markup, keeping text content. Entities are decoded.
func StripTags(s string) string {
	if !strings.ContainsAny(s, "<&") {
		return s
	}
	z := html.NewTokenizer(strings.NewReader(s))
	var b strings.Builder
	for {
		switch z.Next() {
		case html.ErrorToken:
			if z.Err() == io.EOF {
				return b.String()
			}
			return s
		case html.TextToken:
			b.Write(z.Text())
		}
	}
}

// CollapseSpace trims s and replaces every whitespace run with one space.
func CollapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
