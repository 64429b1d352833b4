package store

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/keyword"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"
	bdoc "github.com/blevesearch/bleve/v2/document"
	"github.com/blevesearch/bleve/v2/mapping"
	"github.com/blevesearch/bleve/v2/search"
	"github.com/blevesearch/bleve/v2/search/query"
	index "github.com/blevesearch/bleve_index_api"
	"github.com/google/uuid"

	"github.com/Aman-CERP/sitesearch/internal/document"
	serrors "github.com/Aman-CERP/sitesearch/internal/errors"
	"github.com/Aman-CERP/sitesearch/internal/fieldconfig"
)

// allField is Bleve's composite field searched by unqualified queries.
const allField = "_all"

// BleveIndex is an Engine backed by Bleve. Field storage kinds map to
// per-field indexing options:
//
//	Keyword    keyword analyzer, indexed and stored
//	Text       standard analyzer, indexed, stored, with term vectors
//	UnStored   standard analyzer, indexed only
//	UnIndexed  stored only
type BleveIndex struct {
	mu       sync.RWMutex
	index    bleve.Index
	mapping  *mapping.IndexMappingImpl
	batch    *bleve.Batch
	pending  int
	path     string
	closed   bool
	onCreate []func(*BleveIndex) error
	logger   *slog.Logger

	keywordFields []string
}

// Option configures a BleveIndex.
type Option func(*BleveIndex)

// WithKeywordFields declares fields holding exact-match values, so query
// strings such as "ClassName:Page" are not lower-cased before matching.
// ObjectID and ClassName are always keyword fields.
func WithKeywordFields(names ...string) Option {
	return func(b *BleveIndex) {
		b.keywordFields = append(b.keywordFields, names...)
	}
}

// WithOnCreate registers a callback run every time the index is created,
// including by Reset.
func WithOnCreate(fn func(*BleveIndex) error) Option {
	return func(b *BleveIndex) {
		b.onCreate = append(b.onCreate, fn)
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(b *BleveIndex) {
		b.logger = l
	}
}

// Verify interface implementation
var _ Engine = (*BleveIndex)(nil)

// OpenBleve opens the index at path, creating it if the path does not
// exist. forceCreate discards any existing index first. An empty path
// gives an in-memory index.
func OpenBleve(path string, forceCreate bool, opts ...Option) (*BleveIndex, error) {
	b := &BleveIndex{
		path:          path,
		logger:        slog.Default(),
		keywordFields: []string{fieldconfig.ObjectID, "ClassName"},
	}
	for _, opt := range opts {
		opt(b)
	}

	m, err := b.buildMapping()
	if err != nil {
		return nil, fmt.Errorf("failed to create index mapping: %w", err)
	}
	b.mapping = m

	created, err := b.open(forceCreate)
	if err != nil {
		return nil, err
	}
	b.batch = b.index.NewBatch()
	if created {
		if err := b.runOnCreate(); err != nil {
			_ = b.index.Close()
			return nil, err
		}
	}
	return b, nil
}

// buildMapping sets the analyzers used for query strings. Documents are
// indexed with explicit per-field options, so the mapping does not
// affect how values are stored.
func (b *BleveIndex) buildMapping() (*mapping.IndexMappingImpl, error) {
	m := bleve.NewIndexMapping()
	m.DefaultAnalyzer = standard.Name

	docMapping := bleve.NewDocumentMapping()
	for _, name := range b.keywordFields {
		fm := bleve.NewTextFieldMapping()
		fm.Analyzer = keyword.Name
		docMapping.AddFieldMappingsAt(name, fm)
	}
	m.DefaultMapping = docMapping
	return m, m.Validate()
}

// open returns whether a new index was created.
func (b *BleveIndex) open(forceCreate bool) (bool, error) {
	var err error
	if b.path == "" {
		b.index, err = bleve.NewMemOnly(b.mapping)
		if err != nil {
			return false, fmt.Errorf("failed to create in-memory index: %w", err)
		}
		return true, nil
	}

	dir := filepath.Dir(b.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return false, fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	if forceCreate {
		if err := os.RemoveAll(b.path); err != nil {
			return false, fmt.Errorf("failed to remove index %s: %w", b.path, err)
		}
	} else if validErr := validateIndexIntegrity(b.path); validErr != nil {
		b.logger.Warn("search_index_corrupted",
			slog.String("path", b.path),
			slog.String("error", validErr.Error()))
		if removeErr := os.RemoveAll(b.path); removeErr != nil {
			return false, serrors.New(serrors.ErrCodeCorruptIndex,
				fmt.Sprintf("index corrupted at %s and cannot remove", b.path), removeErr)
		}
		b.logger.Info("search_index_cleared",
			slog.String("path", b.path),
			slog.String("reason", "corruption detected, please reindex"))
	}

	b.index, err = bleve.Open(b.path)
	if err == nil {
		return false, nil
	}
	if err != bleve.ErrorIndexPathDoesNotExist {
		if !isCorruptionError(err) {
			return false, fmt.Errorf("failed to open index: %w", err)
		}
		b.logger.Warn("search_index_open_failed",
			slog.String("path", b.path),
			slog.String("error", err.Error()))
		if removeErr := os.RemoveAll(b.path); removeErr != nil {
			return false, serrors.New(serrors.ErrCodeCorruptIndex, "index corrupted, cannot clear", removeErr)
		}
	}

	b.index, err = bleve.New(b.path, b.mapping)
	if err != nil {
		return false, fmt.Errorf("failed to create index: %w", err)
	}
	b.logger.Info("search_index_created", slog.String("path", b.path))
	return true, nil
}

func (b *BleveIndex) runOnCreate() error {
	for _, fn := range b.onCreate {
		if err := fn(b); err != nil {
			return fmt.Errorf("index create callback: %w", err)
		}
	}
	return nil
}

// validateIndexIntegrity checks index_meta.json before opening an
// existing index. Returns nil if the index is absent or looks valid.
func validateIndexIntegrity(path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}

	metaPath := filepath.Join(path, "index_meta.json")
	info, err := os.Stat(metaPath)
	if os.IsNotExist(err) {
		return fmt.Errorf("index_meta.json missing (corrupted index)")
	}
	if err != nil {
		return fmt.Errorf("cannot stat index_meta.json: %w", err)
	}
	if info.Size() == 0 {
		return fmt.Errorf("index_meta.json is empty (corrupted)")
	}

	data, err := os.ReadFile(metaPath)
	if err != nil {
		return fmt.Errorf("cannot read index_meta.json: %w", err)
	}
	var meta map[string]interface{}
	if err := json.Unmarshal(data, &meta); err != nil {
		return fmt.Errorf("index_meta.json is corrupt: %w", err)
	}
	return nil
}

// isCorruptionError checks if an error indicates Bleve index corruption.
func isCorruptionError(err error) bool {
	if err == nil {
		return false
	}
	errStr := err.Error()
	return strings.Contains(errStr, "unexpected end of JSON") ||
		strings.Contains(errStr, "error parsing mapping JSON") ||
		strings.Contains(errStr, "failed to load segment") ||
		strings.Contains(errStr, "error opening bolt") ||
		err == bleve.ErrorIndexMetaCorrupt
}

// Add implements Engine.
func (b *BleveIndex) Add(_ context.Context, doc *document.Document) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return fmt.Errorf("index is closed")
	}

	bd := bdoc.NewDocument(uuid.NewString())
	for _, f := range doc.Fields {
		bd.AddField(b.field(f))
	}
	bd.AddField(bdoc.NewCompositeFieldWithIndexingOptions(allField, true, nil,
		[]string{fieldconfig.ObjectID}, index.IndexField|index.IncludeTermVectors))

	if err := b.batch.IndexAdvanced(bd); err != nil {
		return fmt.Errorf("failed to index %s: %w", doc.Ref, err)
	}
	b.pending++
	return nil
}

func (b *BleveIndex) field(f document.Field) *bdoc.TextField {
	var (
		opts     index.FieldIndexingOptions
		analyzer analysis.Analyzer
	)
	switch f.Kind {
	case fieldconfig.Keyword:
		opts = index.IndexField | index.StoreField
		analyzer = b.mapping.AnalyzerNamed(keyword.Name)
	case fieldconfig.UnStored:
		opts = index.IndexField | index.IncludeTermVectors
		analyzer = b.mapping.AnalyzerNamed(standard.Name)
	case fieldconfig.UnIndexed:
		opts = index.StoreField
		analyzer = b.mapping.AnalyzerNamed(keyword.Name)
	default:
		opts = index.IndexField | index.StoreField | index.IncludeTermVectors
		analyzer = b.mapping.AnalyzerNamed(standard.Name)
	}
	return bdoc.NewTextFieldCustom(f.Name, nil, []byte(f.Value), opts, analyzer)
}

// Delete implements Engine.
func (b *BleveIndex) Delete(_ context.Context, id string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return fmt.Errorf("index is closed")
	}
	b.batch.Delete(id)
	b.pending++
	return nil
}

// Commit implements Engine.
func (b *BleveIndex) Commit(_ context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return fmt.Errorf("index is closed")
	}
	if b.pending == 0 {
		return nil
	}
	err := b.index.Batch(b.batch)
	b.batch.Reset()
	b.pending = 0
	if err != nil {
		return fmt.Errorf("failed to execute batch: %w", err)
	}
	return nil
}

// FindTerm implements Engine.
func (b *BleveIndex) FindTerm(ctx context.Context, field, value string) ([]Hit, error) {
	q := bleve.NewTermQuery(value)
	q.SetField(field)
	return b.search(ctx, q)
}

// Find implements Engine. The query uses Bleve's query string syntax;
// unqualified terms search every indexed field.
func (b *BleveIndex) Find(ctx context.Context, query string) ([]Hit, error) {
	if strings.TrimSpace(query) == "" {
		return []Hit{}, nil
	}
	return b.search(ctx, bleve.NewQueryStringQuery(query))
}

func (b *BleveIndex) search(ctx context.Context, q query.Query) ([]Hit, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return nil, fmt.Errorf("index is closed")
	}

	count, err := b.index.DocCount()
	if err != nil {
		return nil, fmt.Errorf("failed to count documents: %w", err)
	}
	if count == 0 {
		return []Hit{}, nil
	}

	req := bleve.NewSearchRequest(q)
	req.Size = int(count)
	req.Fields = []string{"*"}

	result, err := b.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("search failed: %w", err)
	}

	hits := make([]Hit, 0, len(result.Hits))
	for _, m := range result.Hits {
		hits = append(hits, toHit(m))
	}
	return hits, nil
}

func toHit(m *search.DocumentMatch) Hit {
	fields := make(map[string]string, len(m.Fields))
	for name, v := range m.Fields {
		switch val := v.(type) {
		case string:
			fields[name] = val
		case []interface{}:
			values := make([]string, 0, len(val))
			for _, item := range val {
				values = append(values, fmt.Sprint(item))
			}
			fields[name] = joinValues(values)
		default:
			fields[name] = fmt.Sprint(val)
		}
	}
	return Hit{ID: m.ID, Score: m.Score, Fields: fields}
}

// Reset implements Engine. Buffered writes are discarded.
func (b *BleveIndex) Reset(_ context.Context) error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return fmt.Errorf("index is closed")
	}
	if err := b.index.Close(); err != nil {
		b.logger.Warn("search_index_close_failed", slog.String("error", err.Error()))
	}
	_, err := b.open(true)
	if err != nil {
		b.closed = true
		b.mu.Unlock()
		return err
	}
	b.batch = b.index.NewBatch()
	b.pending = 0
	b.mu.Unlock()

	return b.runOnCreate()
}

// DocCount implements Engine.
func (b *BleveIndex) DocCount() (uint64, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return 0, fmt.Errorf("index is closed")
	}
	return b.index.DocCount()
}

// Fields returns the names of every field in the index, sorted.
func (b *BleveIndex) Fields() ([]string, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return nil, fmt.Errorf("index is closed")
	}
	fields, err := b.index.Fields()
	if err != nil {
		return nil, err
	}
	sort.Strings(fields)
	return fields, nil
}

// Path returns the index location, or "" for an in-memory index.
func (b *BleveIndex) Path() string {
	return b.path
}

// Close implements Engine.
func (b *BleveIndex) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil
	}
	b.closed = true
	if b.index != nil {
		return b.index.Close()
	}
	return nil
}
