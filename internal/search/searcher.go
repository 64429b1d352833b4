package search

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	serrors "github.com/Aman-CERP/sitesearch/internal/errors"
	"github.com/Aman-CERP/sitesearch/internal/fieldconfig"
	"github.com/Aman-CERP/sitesearch/internal/record"
	"github.com/Aman-CERP/sitesearch/internal/store"
)

// QueryParam is the query parameter carrying the search string.
const QueryParam = "Search"

// Finder runs a query against the index.
type Finder interface {
	Find(ctx context.Context, query string) ([]store.Hit, error)
}

// Result is one visible hit.
type Result struct {
	// Number is the 1-based position of the hit in the full result list.
	Number int
	Score  float64
	Ref    record.Ref
	Fields map[string]string
}

// Get returns a stored field value, or "".
func (r Result) Get(name string) string {
	return r.Fields[name]
}

// Title returns the Title field.
func (r Result) Title() string { return r.Get("Title") }

// Content returns the Content field, or the extracted file body when the
// record has no content of its own.
func (r Result) Content() string {
	if c := r.Get("Content"); c != "" {
		return c
	}
	return r.Get(fieldconfig.BodyField)
}

// Link returns the record's URL.
func (r Result) Link() string { return r.Get("Link") }

// Page is one rendered page of search results.
type Page struct {
	Query   string
	Results []Result
	Window  Window
	Pages   []PageEntry

	// StartResult and EndResult are the 1-based numbers of the first and
	// last visible hits; both are 0 when nothing matched.
	StartResult int
	EndResult   int

	// PrevLink and NextLink are "" on the first and last page.
	PrevLink string
	NextLink string
}

// Config configures a Searcher.
type Config struct {
	PageSize   int
	AlwaysShow int
	MaxShow    int
	// BaseURL is the results page URL that page links are built from.
	BaseURL string
}

// Searcher runs queries and paginates their hits.
type Searcher struct {
	finder Finder
	config Config
	links  *LinkBuilder
	logger *slog.Logger
}

// NewSearcher creates a Searcher.
func NewSearcher(finder Finder, cfg Config, logger *slog.Logger) (*Searcher, error) {
	if finder == nil {
		return nil, fmt.Errorf("search engine is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "/search"
	}
	links, err := NewLinkBuilder(cfg.BaseURL)
	if err != nil {
		return nil, serrors.New(serrors.ErrCodeConfigInvalid, "invalid search base URL", err).
			WithDetail("url", cfg.BaseURL)
	}
	return &Searcher{finder: finder, config: cfg, links: links, logger: logger}, nil
}

// Search runs query and returns the page of results starting at hit
// start. An engine failure is logged and reads as no results.
func (s *Searcher) Search(ctx context.Context, query string, start int) *Page {
	query = strings.TrimSpace(query)
	began := time.Now()

	var hits []store.Hit
	if query != "" {
		var err error
		hits, err = s.finder.Find(ctx, query)
		if err != nil {
			s.logger.Warn("search_failed", append([]any{slog.String("query", query)},
				serrors.LogAttrs(serrors.Wrap(serrors.ErrCodeSearchFailed, err))...)...)
			hits = nil
		}
	}

	links := s.links.With(QueryParam, query)
	w, strip := Paginate(len(hits), Request{
		Start:      start,
		PageSize:   s.config.PageSize,
		AlwaysShow: s.config.AlwaysShow,
		MaxShow:    s.config.MaxShow,
		Link:       links.Link,
	})

	page := &Page{Query: query, Window: w, Pages: strip}
	for i := w.Start; i < w.End; i++ {
		page.Results = append(page.Results, toResult(i, hits[i]))
	}
	if len(page.Results) > 0 {
		page.StartResult = w.Start + 1
		page.EndResult = w.Start + len(page.Results)
	}
	if w.CurrentPage > 1 {
		page.PrevLink = links.Link((w.CurrentPage - 2) * w.PageSize)
	}
	if w.CurrentPage < w.TotalPages {
		page.NextLink = links.Link(w.CurrentPage * w.PageSize)
	}

	s.logger.Debug("search_complete",
		slog.String("query", query),
		slog.Int("hits", len(hits)),
		slog.Int("page", w.CurrentPage),
		slog.Duration("duration", time.Since(began)))
	return page
}

func toResult(i int, h store.Hit) Result {
	ref, _ := h.Ref()
	return Result{Number: i + 1, Score: h.Score, Ref: ref, Fields: h.Fields}
}
