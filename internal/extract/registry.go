// Package extract turns binary files into indexable text.
//
// Extractors are registered against lower-cased file extensions with a
// priority. For a given file they run in priority order (ties in
// registration order) and the first non-empty result wins. Failure of
// every extractor is not an error: the file simply has no body text.
package extract

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	serrors "github.com/Aman-CERP/sitesearch/internal/errors"
)

// DefaultPriority is used when a Descriptor leaves Priority at zero.
const DefaultPriority = 100

// DefaultCacheSize is the number of extraction results kept in memory.
const DefaultCacheSize = 256

// Func extracts text from filename. An empty result with a nil error
// means the extractor declined.
type Func func(ctx context.Context, filename string) (string, error)

// Descriptor registers one extractor.
type Descriptor struct {
	// Name identifies the extractor in logs.
	Name string
	// Extensions handled, lower-case and without a leading dot.
	Extensions []string
	// Priority orders extractors for the same extension; lower runs first.
	Priority int
	// Extract does the work.
	Extract Func
}

type entry struct {
	Descriptor
	seq int
}

// Registry holds the registered extractors.
type Registry struct {
	mu      sync.RWMutex
	byExt   map[string][]entry
	seq     int
	timeout time.Duration
	cache   *lru.Cache[string, string]
	logger  *slog.Logger
}

// Option configures a Registry.
type Option func(*Registry)

// WithTimeout bounds each extractor call. Zero means no timeout.
func WithTimeout(d time.Duration) Option {
	return func(r *Registry) {
		r.timeout = d
	}
}

// WithCacheSize sets the result cache size. Zero or less disables caching.
func WithCacheSize(n int) Option {
	return func(r *Registry) {
		if n <= 0 {
			r.cache = nil
			return
		}
		r.cache, _ = lru.New[string, string](n)
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(r *Registry) {
		r.logger = l
	}
}

// NewRegistry creates an empty Registry.
func NewRegistry(opts ...Option) *Registry {
	cache, _ := lru.New[string, string](DefaultCacheSize)
	r := &Registry{
		byExt:  make(map[string][]entry),
		cache:  cache,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register adds an extractor. Extensions are lower-cased; an extension
// with a leading dot is a configuration error.
func (r *Registry) Register(d Descriptor) error {
	if d.Extract == nil {
		return serrors.ConfigError(fmt.Sprintf("extractor %q has no extract function", d.Name), nil)
	}
	if len(d.Extensions) == 0 {
		return serrors.ConfigError(fmt.Sprintf("extractor %q handles no extensions", d.Name), nil)
	}
	exts := make([]string, 0, len(d.Extensions))
	for _, ext := range d.Extensions {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext == "" || strings.HasPrefix(ext, ".") {
			return serrors.ConfigError(
				fmt.Sprintf("extractor %q: invalid extension %q", d.Name, ext), nil).
				WithSuggestion("Declare extensions without the leading dot, e.g. \"pdf\"")
		}
		exts = append(exts, ext)
	}
	if d.Priority == 0 {
		d.Priority = DefaultPriority
	}
	d.Extensions = exts

	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	e := entry{Descriptor: d, seq: r.seq}
	for _, ext := range exts {
		list := append(r.byExt[ext], e)
		sort.SliceStable(list, func(i, j int) bool {
			if list[i].Priority != list[j].Priority {
				return list[i].Priority < list[j].Priority
			}
			return list[i].seq < list[j].seq
		})
		r.byExt[ext] = list
	}
	if r.cache != nil {
		r.cache.Purge()
	}
	return nil
}

// ExtractorsFor returns the extractors for ext in run order.
func (r *Registry) ExtractorsFor(ext string) []Descriptor {
	ext = strings.ToLower(strings.TrimPrefix(ext, "."))
	r.mu.RLock()
	defer r.mu.RUnlock()
	list := r.byExt[ext]
	out := make([]Descriptor, len(list))
	for i, e := range list {
		out[i] = e.Descriptor
	}
	return out
}

// Extensions returns every extension with at least one extractor, sorted.
func (r *Registry) Extensions() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.byExt))
	for ext := range r.byExt {
		out = append(out, ext)
	}
	sort.Strings(out)
	return out
}

// Extract returns the text of filename, or "" if no extractor produced any.
func (r *Registry) Extract(ctx context.Context, filename string) string {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(filename), "."))
	if ext == "" {
		return ""
	}
	extractors := r.ExtractorsFor(ext)
	if len(extractors) == 0 {
		return ""
	}

	key := r.cacheKey(filename)
	if key != "" {
		if text, ok := r.cache.Get(key); ok {
			return text
		}
	}

	for _, d := range extractors {
		if ctx.Err() != nil {
			return ""
		}
		text, err := r.run(ctx, d, filename)
		if err != nil {
			r.logger.Debug("extraction_failed",
				slog.String("extractor", d.Name),
				slog.String("file", filename),
				slog.String("code", serrors.ErrCodeExtractionFailed),
				slog.String("error", err.Error()))
			continue
		}
		if strings.TrimSpace(text) == "" {
			continue
		}
		if key != "" {
			r.cache.Add(key, text)
		}
		return text
	}
	return ""
}

func (r *Registry) run(ctx context.Context, d Descriptor, filename string) (string, error) {
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}
	return d.Extract(ctx, filename)
}

// cacheKey identifies one version of a file. Files that cannot be
// stat'ed are not cached.
func (r *Registry) cacheKey(filename string) string {
	if r.cache == nil {
		return ""
	}
	info, err := os.Stat(filename)
	if err != nil || info.IsDir() {
		return ""
	}
	return filename + "\x00" + strconv.FormatInt(info.Size(), 10) + "\x00" +
		strconv.FormatInt(info.ModTime().UnixNano(), 10)
}
